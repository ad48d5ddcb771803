package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/mosaical/nftvault/internal/custody"
	"github.com/mosaical/nftvault/internal/dpo"
	"github.com/mosaical/nftvault/internal/middleware"
	"github.com/mosaical/nftvault/internal/model"
	"github.com/mosaical/nftvault/internal/oracle"
	"github.com/mosaical/nftvault/internal/pkg/apperrors"
	"github.com/mosaical/nftvault/internal/service"
	"github.com/mosaical/nftvault/internal/vault"
)

// AdminHandler exposes the operator surface: collection registry, oracle
// updates, treasury funding and account management. Routes are guarded by
// AdminMiddleware.
type AdminHandler struct {
	svc      *service.VaultService
	prices   *oracle.Feed
	accounts *service.AccountManager
	debt     *dpo.Ledger
	custody  *custody.Book
}

func NewAdminHandler(svc *service.VaultService, prices *oracle.Feed, accounts *service.AccountManager, debt *dpo.Ledger, book *custody.Book) *AdminHandler {
	return &AdminHandler{svc: svc, prices: prices, accounts: accounts, debt: debt, custody: book}
}

type addCollectionRequest struct {
	Collection string `json:"collection" binding:"required"`
	RiskTier   int    `json:"risk_tier" binding:"required"`
}

func (h *AdminHandler) AddCollection(c *gin.Context) {
	var req addCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if !common.IsHexAddress(req.Collection) {
		c.Error(apperrors.NewInvalidRequest("collection must be a 20-byte hex address"))
		return
	}

	cfg, err := h.svc.Engine().AddCollection(common.HexToAddress(req.Collection), req.RiskTier)
	if err != nil {
		c.Error(service.TranslateVaultError(err))
		return
	}

	middleware.AddAuditContext(c, "collection", req.Collection)
	middleware.AddAuditContext(c, "risk_tier", req.RiskTier)

	c.JSON(http.StatusCreated, cfg)
}

func (h *AdminHandler) SetRiskTier(c *gin.Context) {
	var req addCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if !common.IsHexAddress(req.Collection) {
		c.Error(apperrors.NewInvalidRequest("collection must be a 20-byte hex address"))
		return
	}

	cfg, err := h.svc.Engine().SetRiskTier(common.HexToAddress(req.Collection), req.RiskTier)
	if err != nil {
		c.Error(service.TranslateVaultError(err))
		return
	}

	middleware.AddAuditContext(c, "collection", req.Collection)
	middleware.AddAuditContext(c, "risk_tier", req.RiskTier)

	c.JSON(http.StatusOK, cfg)
}

func (h *AdminHandler) RemoveCollection(c *gin.Context) {
	collection := c.Param("collection")
	if !common.IsHexAddress(collection) {
		c.Error(apperrors.NewInvalidRequest("collection must be a 20-byte hex address"))
		return
	}

	if err := h.svc.Engine().RemoveCollection(common.HexToAddress(collection)); err != nil {
		c.Error(service.TranslateVaultError(err))
		return
	}

	middleware.AddAuditContext(c, "collection", collection)

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

type floorPriceRequest struct {
	Collection string `json:"collection" binding:"required"`
	Price      string `json:"price" binding:"required"`
}

func (h *AdminHandler) SetFloorPrice(c *gin.Context) {
	var req floorPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if !common.IsHexAddress(req.Collection) {
		c.Error(apperrors.NewInvalidRequest("collection must be a 20-byte hex address"))
		return
	}
	price, appErr := service.ParseWeiAmount(req.Price)
	if appErr != nil {
		c.Error(appErr)
		return
	}

	if err := h.prices.SetFloorPrice(common.HexToAddress(req.Collection), price); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	middleware.AddAuditContext(c, "collection", req.Collection)
	middleware.AddAuditContext(c, "price", req.Price)

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type utilityScoreRequest struct {
	Collection string `json:"collection" binding:"required"`
	ItemID     uint64 `json:"item_id" binding:"required"`
	Score      uint64 `json:"score"`
}

func (h *AdminHandler) SetUtilityScore(c *gin.Context) {
	var req utilityScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if !common.IsHexAddress(req.Collection) {
		c.Error(apperrors.NewInvalidRequest("collection must be a 20-byte hex address"))
		return
	}

	h.prices.SetUtilityScore(common.HexToAddress(req.Collection), req.ItemID, req.Score)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type activeAssetRequest struct {
	Collection string `json:"collection" binding:"required"`
	ItemID     uint64 `json:"item_id" binding:"required"`
	Active     *bool  `json:"active" binding:"required"`
}

func (h *AdminHandler) SetActiveAsset(c *gin.Context) {
	var req activeAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if !common.IsHexAddress(req.Collection) {
		c.Error(apperrors.NewInvalidRequest("collection must be a 20-byte hex address"))
		return
	}

	h.prices.SetActiveAsset(common.HexToAddress(req.Collection), req.ItemID, *req.Active)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type fundRequest struct {
	Address string `json:"address" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

// Fund credits native currency to an account. Funding the treasury address
// gives the vault lendable liquidity.
func (h *AdminHandler) Fund(c *gin.Context) {
	var req fundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.Error(apperrors.NewInvalidRequest("address must be a 20-byte hex address"))
		return
	}
	amount, appErr := service.ParseWeiAmount(req.Amount)
	if appErr != nil {
		c.Error(appErr)
		return
	}

	acc, err := h.svc.Engine().Fund(common.HexToAddress(req.Address), amount)
	if err != nil {
		c.Error(service.TranslateVaultError(err))
		return
	}

	middleware.AddAuditContext(c, "address", req.Address)
	middleware.AddAuditContext(c, "amount", req.Amount)

	c.JSON(http.StatusOK, gin.H{
		"address": acc.Address.Hex(),
		"balance": acc.Balance.String(),
	})
}

type registerAccountRequest struct {
	Address string  `json:"address" binding:"required"`
	Name    string  `json:"name"`
	APIKey  string  `json:"api_key" binding:"required"`
	QPS     float64 `json:"qps"`
	Burst   int     `json:"burst"`
}

func (h *AdminHandler) RegisterAccount(c *gin.Context) {
	var req registerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.Error(apperrors.NewInvalidRequest("address must be a 20-byte hex address"))
		return
	}

	account := &model.Account{
		Address: common.HexToAddress(req.Address),
		Name:    req.Name,
		APIKey:  req.APIKey,
		Rate: model.RateLimitConfig{
			QPS:   req.QPS,
			Burst: req.Burst,
		},
	}
	h.accounts.ReplaceAccount(account)

	middleware.AddAuditContext(c, "address", req.Address)

	c.JSON(http.StatusCreated, gin.H{"address": account.Address.Hex(), "name": account.Name})
}

func (h *AdminHandler) ListAccounts(c *gin.Context) {
	accounts := h.accounts.ListAccounts()
	out := make([]gin.H, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, gin.H{
			"address": a.Address.Hex(),
			"name":    a.Name,
			"qps":     a.Rate.QPS,
			"burst":   a.Rate.Burst,
		})
	}
	c.JSON(http.StatusOK, out)
}

type settlementRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (h *AdminHandler) SetSettlement(c *gin.Context) {
	var req settlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	switch req.Mode {
	case string(vault.SettlementSeizure), string(vault.SettlementSale):
	default:
		c.Error(apperrors.NewInvalidRequest("mode must be seizure or sale"))
		return
	}

	h.svc.Engine().SetSettlement(vault.SettlementMode(req.Mode))
	c.JSON(http.StatusOK, gin.H{"settlement": req.Mode})
}

type authorizeMinterRequest struct {
	Address    string `json:"address" binding:"required"`
	Authorized *bool  `json:"authorized" binding:"required"`
}

func (h *AdminHandler) AuthorizeMinter(c *gin.Context) {
	var req authorizeMinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.Error(apperrors.NewInvalidRequest("address must be a 20-byte hex address"))
		return
	}

	h.debt.AuthorizeMinter(common.HexToAddress(req.Address), *req.Authorized)

	middleware.AddAuditContext(c, "minter", req.Address)
	middleware.AddAuditContext(c, "authorized", *req.Authorized)

	c.JSON(http.StatusOK, gin.H{"address": req.Address, "authorized": *req.Authorized})
}

type registerItemRequest struct {
	Collection string `json:"collection" binding:"required"`
	ItemID     uint64 `json:"item_id" binding:"required"`
	Holder     string `json:"holder" binding:"required"`
}

// RegisterItem records an NFT and its current holder in the custody book.
// Items must be registered before their holder can deposit them.
func (h *AdminHandler) RegisterItem(c *gin.Context) {
	var req registerItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if !common.IsHexAddress(req.Collection) {
		c.Error(apperrors.NewInvalidRequest("collection must be a 20-byte hex address"))
		return
	}
	if !common.IsHexAddress(req.Holder) {
		c.Error(apperrors.NewInvalidRequest("holder must be a 20-byte hex address"))
		return
	}

	h.custody.Register(common.HexToAddress(req.Collection), req.ItemID, common.HexToAddress(req.Holder))

	middleware.AddAuditContext(c, "collection", req.Collection)
	middleware.AddAuditContext(c, "item_id", req.ItemID)
	middleware.AddAuditContext(c, "holder", req.Holder)

	c.JSON(http.StatusCreated, gin.H{"collection": req.Collection, "item_id": req.ItemID, "holder": req.Holder})
}
