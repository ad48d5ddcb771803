package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaical/nftvault/internal/config"
	"github.com/mosaical/nftvault/internal/model"
)

func TestAccountManagerDefaultAccount(t *testing.T) {
	am := NewAccountManager(&config.Config{}, nil)

	account, ok := am.GetAccountByApiKey("sk-default-12345")
	if !ok {
		t.Fatalf("default account not seeded")
	}
	if am.DefaultAccount() == nil || am.DefaultAccount().Address != account.Address {
		t.Fatalf("default account mismatch")
	}
	if am.GetLimiterForAccount(account.Address) == nil {
		t.Fatalf("default account has no limiter")
	}
}

func TestAccountManagerConfiguredAccounts(t *testing.T) {
	cfg := &config.Config{
		Accounts: []config.AccountConfig{
			{Address: "0x1111111111111111111111111111111111111111", Name: "alice", APIKey: "sk-alice", QPS: 5, Burst: 10},
			{Address: "0x2222222222222222222222222222222222222222", Name: "bob", APIKey: "sk-bob"},
		},
	}
	am := NewAccountManager(cfg, nil)

	alice, ok := am.GetAccountByApiKey("sk-alice")
	if !ok || alice.Rate.QPS != 5 || alice.Rate.Burst != 10 {
		t.Fatalf("alice = %+v, ok=%v", alice, ok)
	}
	// Unset limits fall back to defaults.
	bob, ok := am.GetAccountByApiKey("sk-bob")
	if !ok || bob.Rate.QPS != 10 || bob.Rate.Burst != 20 {
		t.Fatalf("bob = %+v, ok=%v", bob, ok)
	}
	// Configured mode seeds no default account.
	if am.DefaultAccount() != nil {
		t.Fatalf("configured manager has a default account")
	}
	if len(am.ListAccounts()) != 2 {
		t.Fatalf("accounts = %d, want 2", len(am.ListAccounts()))
	}
}

func TestAccountManagerReplaceAndRemove(t *testing.T) {
	am := NewAccountManager(&config.Config{}, nil)
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")

	am.RegisterAccount(&model.Account{Address: addr, Name: "v1", APIKey: "sk-v1"})
	am.ReplaceAccount(&model.Account{Address: addr, Name: "v2", APIKey: "sk-v2"})

	if _, ok := am.GetAccountByApiKey("sk-v1"); ok {
		t.Fatalf("stale key survived replace")
	}
	account, ok := am.GetAccountByAddress(addr)
	if !ok || account.Name != "v2" {
		t.Fatalf("replaced account = %+v, ok=%v", account, ok)
	}

	am.RemoveAccountByAddress(addr)
	if _, ok := am.GetAccountByAddress(addr); ok {
		t.Fatalf("account survived removal")
	}
}

type stubAccountRepo struct {
	account *model.Account
	err     error
	calls   int
}

func (r *stubAccountRepo) GetByApiKey(ctx context.Context, apiKey string) (*model.Account, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.account != nil && r.account.APIKey == apiKey {
		return r.account, nil
	}
	return nil, nil
}

func TestAccountManagerRepoFallback(t *testing.T) {
	stored := &model.Account{
		Address: common.HexToAddress("0x5555555555555555555555555555555555555555"),
		Name:    "from-db",
		APIKey:  "sk-db",
	}
	repo := &stubAccountRepo{account: stored}
	am := NewAccountManager(&config.Config{}, repo)
	ctx := context.Background()

	account, ok := am.GetAccountByApiKeyWithFallback(ctx, "sk-db")
	if !ok || account.Name != "from-db" {
		t.Fatalf("fallback lookup = %+v, ok=%v", account, ok)
	}
	// Second hit is served from the cache, not the repo.
	am.GetAccountByApiKeyWithFallback(ctx, "sk-db")
	if repo.calls != 1 {
		t.Fatalf("repo hit %d times, want 1", repo.calls)
	}

	if _, ok := am.GetAccountByApiKeyWithFallback(ctx, "sk-missing"); ok {
		t.Fatalf("missing key resolved")
	}

	failing := NewAccountManager(&config.Config{}, &stubAccountRepo{err: errors.New("db down")})
	if _, ok := failing.GetAccountByApiKeyWithFallback(ctx, "sk-any"); ok {
		t.Fatalf("repo error treated as a hit")
	}
}
