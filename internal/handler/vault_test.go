package handler

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/mosaical/nftvault/internal/config"
	"github.com/mosaical/nftvault/internal/custody"
	"github.com/mosaical/nftvault/internal/dpo"
	"github.com/mosaical/nftvault/internal/middleware"
	"github.com/mosaical/nftvault/internal/model"
	"github.com/mosaical/nftvault/internal/oracle"
	"github.com/mosaical/nftvault/internal/repository"
	"github.com/mosaical/nftvault/internal/service"
	"github.com/mosaical/nftvault/internal/vault"
)

type handlerFixture struct {
	router   *gin.Engine
	feed     *oracle.Feed
	book     *custody.Book
	engine   *vault.Engine
	account  *model.Account
	treasury common.Address
	nfts     common.Address
	adminKey string
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fix := &handlerFixture{
		feed:     oracle.NewFeed(),
		book:     custody.NewBook(),
		treasury: common.HexToAddress("0x00000000000000000000000000000000000a0001"),
		nfts:     common.HexToAddress("0x3333333333333333333333333333333333333333"),
		adminKey: "test-admin",
	}
	fix.account = &model.Account{
		Address: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Name:    "tester",
	}

	ledger := dpo.NewLedger()
	ledger.AuthorizeMinter(fix.treasury, true)
	fix.engine = vault.NewEngine(fix.treasury, fix.feed, dpo.NewMinter(ledger, fix.treasury), fix.book)
	fix.engine.SetState(repository.NewMemoryState())
	// Frozen clock so no interest accrues mid-test.
	fix.engine.SetNow(func() int64 { return 1_700_000_000 })

	svc := service.NewVaultService(fix.engine, fix.feed, nil, nil)
	cfg := &config.Config{Auth: config.AuthConfig{AdminKey: fix.adminKey}}
	am := service.NewAccountManager(cfg, nil)
	vaultHandler := NewVaultHandler(svc)
	adminHandler := NewAdminHandler(svc, fix.feed, am, ledger, fix.book)

	router := gin.New()
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/v1")
	v1.Use(func(c *gin.Context) {
		c.Set(middleware.ContextAccountKey, fix.account)
		c.Next()
	})
	v1.POST("/vault/deposits", vaultHandler.Deposit)
	v1.DELETE("/vault/deposits", vaultHandler.Withdraw)
	v1.POST("/vault/loans", vaultHandler.Borrow)
	v1.POST("/vault/loans/repay", vaultHandler.Repay)
	v1.POST("/vault/liquidations", vaultHandler.Liquidate)
	v1.GET("/vault/positions/:collection/:item", vaultHandler.Position)
	v1.GET("/vault/collections", vaultHandler.Collections)
	v1.GET("/vault/accounts/me", vaultHandler.AccountSummary)

	admin := router.Group("/v1/admin")
	admin.Use(middleware.AdminMiddleware(cfg))
	admin.POST("/collections", adminHandler.AddCollection)
	admin.DELETE("/collections/:collection", adminHandler.RemoveCollection)
	admin.POST("/oracle/floor-price", adminHandler.SetFloorPrice)
	admin.POST("/fund", adminHandler.Fund)
	admin.POST("/custody/items", adminHandler.RegisterItem)

	fix.router = router
	return fix
}

func (fix *handlerFixture) do(t *testing.T, method, path string, payload interface{}, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(middleware.HeaderAdminKey, fix.adminKey)
	}
	rec := httptest.NewRecorder()
	fix.router.ServeHTTP(rec, req)
	return rec
}

func (fix *handlerFixture) seed(t *testing.T) {
	t.Helper()
	rec := fix.do(t, http.MethodPost, "/v1/admin/collections", map[string]interface{}{
		"collection": fix.nfts.Hex(),
		"risk_tier":  1,
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add collection: %d %s", rec.Code, rec.Body.String())
	}
	rec = fix.do(t, http.MethodPost, "/v1/admin/oracle/floor-price", map[string]interface{}{
		"collection": fix.nfts.Hex(),
		"price":      "10e18",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("set floor: %d %s", rec.Code, rec.Body.String())
	}
	rec = fix.do(t, http.MethodPost, "/v1/admin/fund", map[string]interface{}{
		"address": fix.treasury.Hex(),
		"amount":  "100e18",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("fund treasury: %d %s", rec.Code, rec.Body.String())
	}
	rec = fix.do(t, http.MethodPost, "/v1/admin/custody/items", map[string]interface{}{
		"collection": fix.nfts.Hex(),
		"item_id":    1,
		"holder":     fix.account.Address.Hex(),
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register item: %d %s", rec.Code, rec.Body.String())
	}
	fix.feed.SetUtilityScore(fix.nfts, 1, 100)
}

func TestLoanLifecycleOverHTTP(t *testing.T) {
	fix := newHandlerFixture(t)
	fix.seed(t)

	rec := fix.do(t, http.MethodPost, "/v1/vault/deposits", map[string]interface{}{
		"collection": fix.nfts.Hex(), "item_id": 1,
	}, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("deposit: %d %s", rec.Code, rec.Body.String())
	}

	rec = fix.do(t, http.MethodPost, "/v1/vault/loans", map[string]interface{}{
		"collection": fix.nfts.Hex(), "item_id": 1, "amount": "3e18",
	}, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("borrow: %d %s", rec.Code, rec.Body.String())
	}
	var loan model.LoanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &loan); err != nil {
		t.Fatalf("loan response: %v", err)
	}
	if loan.Principal != "3000000000000000000" || !loan.IsActive {
		t.Fatalf("loan = %+v", loan)
	}

	rec = fix.do(t, http.MethodGet, "/v1/vault/positions/"+fix.nfts.Hex()+"/1", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("position: %d %s", rec.Code, rec.Body.String())
	}
	var pos model.PositionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pos); err != nil {
		t.Fatalf("position response: %v", err)
	}
	if !pos.LoanActive || pos.Owner != fix.account.Address.Hex() {
		t.Fatalf("position = %+v", pos)
	}

	rec = fix.do(t, http.MethodPost, "/v1/vault/loans/repay", map[string]interface{}{
		"collection": fix.nfts.Hex(), "item_id": 1, "payment": "4e18",
	}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("repay: %d %s", rec.Code, rec.Body.String())
	}
	var repaid model.RepayResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &repaid); err != nil {
		t.Fatalf("repay response: %v", err)
	}
	if repaid.DebtPaid != "3000000000000000000" || repaid.Refund != "1000000000000000000" {
		t.Fatalf("repay = %+v", repaid)
	}

	rec = fix.do(t, http.MethodDelete, "/v1/vault/deposits", map[string]interface{}{
		"collection": fix.nfts.Hex(), "item_id": 1,
	}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw: %d %s", rec.Code, rec.Body.String())
	}
	holder, err := fix.book.HolderOf(fix.nfts, 1)
	if err != nil || holder != fix.account.Address {
		t.Fatalf("holder after withdraw = %s (%v)", holder.Hex(), err)
	}
}

func TestBorrowErrorsMapToStatusCodes(t *testing.T) {
	fix := newHandlerFixture(t)
	fix.seed(t)

	// No deposit yet.
	rec := fix.do(t, http.MethodPost, "/v1/vault/loans", map[string]interface{}{
		"collection": fix.nfts.Hex(), "item_id": 1, "amount": "1e18",
	}, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("borrow without deposit: %d, want 404", rec.Code)
	}

	fix.do(t, http.MethodPost, "/v1/vault/deposits", map[string]interface{}{
		"collection": fix.nfts.Hex(), "item_id": 1,
	}, false)

	// 8e18 against a 7e18 cap (10 ETH floor, tier 1, score 100).
	rec = fix.do(t, http.MethodPost, "/v1/vault/loans", map[string]interface{}{
		"collection": fix.nfts.Hex(), "item_id": 1, "amount": "8e18",
	}, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("borrow over LTV: %d, want 400", rec.Code)
	}
	var errResp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("error body: %v", err)
	}
	if errResp["code"] != "EXCEEDS_MAX_LTV" {
		t.Fatalf("error code = %v", errResp["code"])
	}

	// Malformed body fails binding.
	rec = fix.do(t, http.MethodPost, "/v1/vault/loans", map[string]interface{}{
		"collection": fix.nfts.Hex(),
	}, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: %d, want 400", rec.Code)
	}

	// Liquidating a healthy position conflicts.
	fix.do(t, http.MethodPost, "/v1/vault/loans", map[string]interface{}{
		"collection": fix.nfts.Hex(), "item_id": 1, "amount": "1e18",
	}, false)
	rec = fix.do(t, http.MethodPost, "/v1/vault/liquidations", map[string]interface{}{
		"collection": fix.nfts.Hex(), "item_id": 1,
	}, false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("liquidate healthy: %d, want 409", rec.Code)
	}
}

func TestAdminCollectionManagement(t *testing.T) {
	fix := newHandlerFixture(t)

	// Admin surface rejects anonymous callers.
	rec := fix.do(t, http.MethodPost, "/v1/admin/collections", map[string]interface{}{
		"collection": fix.nfts.Hex(), "risk_tier": 2,
	}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous admin call: %d, want 401", rec.Code)
	}

	rec = fix.do(t, http.MethodPost, "/v1/admin/collections", map[string]interface{}{
		"collection": fix.nfts.Hex(), "risk_tier": 2,
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add collection: %d %s", rec.Code, rec.Body.String())
	}
	var cfg model.CollectionConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("collection response: %v", err)
	}
	if cfg.RiskTier != 2 || cfg.LiquidationThresholdBp != 8000 {
		t.Fatalf("collection config = %+v", cfg)
	}

	// Duplicates are rejected, not overwritten.
	rec = fix.do(t, http.MethodPost, "/v1/admin/collections", map[string]interface{}{
		"collection": fix.nfts.Hex(), "risk_tier": 3,
	}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate collection: %d, want 400", rec.Code)
	}

	rec = fix.do(t, http.MethodGet, "/v1/vault/collections", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("list collections: %d", rec.Code)
	}
	var cols []model.CollectionConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &cols); err != nil {
		t.Fatalf("collections response: %v", err)
	}
	if len(cols) != 1 {
		t.Fatalf("collections = %+v", cols)
	}

	rec = fix.do(t, http.MethodDelete, "/v1/admin/collections/"+fix.nfts.Hex(), nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove collection: %d %s", rec.Code, rec.Body.String())
	}
	rec = fix.do(t, http.MethodDelete, "/v1/admin/collections/"+fix.nfts.Hex(), nil, true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("remove unknown collection: %d, want 404", rec.Code)
	}
}

func TestAccountSummaryIncludesBalance(t *testing.T) {
	fix := newHandlerFixture(t)
	fix.seed(t)

	if _, err := fix.engine.Fund(fix.account.Address, big.NewInt(42)); err != nil {
		t.Fatalf("fund account: %v", err)
	}
	rec := fix.do(t, http.MethodGet, "/v1/vault/accounts/me", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", rec.Code, rec.Body.String())
	}
	var summary map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("summary response: %v", err)
	}
	if summary["balance"] != "42" {
		t.Fatalf("balance = %v, want 42", summary["balance"])
	}
	if summary["address"] != fix.account.Address.Hex() {
		t.Fatalf("address = %v", summary["address"])
	}
}
