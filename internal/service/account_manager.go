package service

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/mosaical/nftvault/internal/config"
	"github.com/mosaical/nftvault/internal/model"
)

// AccountManager 管理账户信息与限流器
type AccountManager struct {
	mu             sync.RWMutex
	accounts       map[string]*model.Account        // Key: ApiKey
	limiters       map[common.Address]*rate.Limiter // Key: Address
	config         *config.Config
	defaultAccount *model.Account
	repo           AccountRepo
}

type AccountRepo interface {
	GetByApiKey(ctx context.Context, apiKey string) (*model.Account, error)
}

func NewAccountManager(cfg *config.Config, repo AccountRepo) *AccountManager {
	am := &AccountManager{
		accounts: make(map[string]*model.Account),
		limiters: make(map[common.Address]*rate.Limiter),
		config:   cfg,
		repo:     repo,
	}

	// 配置化账户 (优先)
	if cfg != nil && len(cfg.Accounts) > 0 {
		for _, accCfg := range cfg.Accounts {
			account := &model.Account{
				Address: common.HexToAddress(accCfg.Address),
				Name:    accCfg.Name,
				APIKey:  accCfg.APIKey,
				Rate: model.RateLimitConfig{
					QPS:   chooseFloat(10, accCfg.QPS),
					Burst: chooseInt(20, accCfg.Burst),
				},
			}
			am.RegisterAccount(account)
		}
		return am
	}

	// 初始化默认账户（兼容单用户模式）
	defaultAccount := &model.Account{
		Address: common.HexToAddress("0x00000000000000000000000000000000000d01f7"),
		Name:    "Default User",
		APIKey:  "sk-default-12345",
		Rate: model.RateLimitConfig{
			QPS:   10,
			Burst: 20,
		},
	}
	am.RegisterAccount(defaultAccount)
	am.defaultAccount = defaultAccount

	return am
}

func (am *AccountManager) RegisterAccount(a *model.Account) {
	am.mu.Lock()
	defer am.mu.Unlock()
	if a == nil {
		return
	}
	am.accounts[a.APIKey] = a

	// 初始化限流器，配置为 0 时不限流
	limit := rate.Limit(a.Rate.QPS)
	if limit == 0 {
		limit = rate.Inf
	}
	burst := a.Rate.Burst
	if burst == 0 {
		burst = 1
	}
	am.limiters[a.Address] = rate.NewLimiter(limit, burst)
}

func (am *AccountManager) ReplaceAccount(a *model.Account) {
	am.RemoveAccountByAddress(a.Address)
	am.RegisterAccount(a)
}

func (am *AccountManager) RemoveAccountByAddress(addr common.Address) {
	am.mu.Lock()
	defer am.mu.Unlock()
	for key, account := range am.accounts {
		if account != nil && account.Address == addr {
			delete(am.accounts, key)
			delete(am.limiters, account.Address)
		}
	}
}

func (am *AccountManager) GetAccountByAddress(addr common.Address) (*model.Account, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	for _, account := range am.accounts {
		if account != nil && account.Address == addr {
			return account, true
		}
	}
	return nil, false
}

func (am *AccountManager) ListAccounts() []*model.Account {
	am.mu.RLock()
	defer am.mu.RUnlock()
	results := make([]*model.Account, 0, len(am.accounts))
	seen := make(map[common.Address]struct{})
	for _, account := range am.accounts {
		if account == nil {
			continue
		}
		if _, ok := seen[account.Address]; ok {
			continue
		}
		seen[account.Address] = struct{}{}
		results = append(results, account)
	}
	return results
}

func (am *AccountManager) GetAccountByApiKey(apiKey string) (*model.Account, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	a, ok := am.accounts[apiKey]
	return a, ok
}

func (am *AccountManager) GetAccountByApiKeyWithFallback(ctx context.Context, apiKey string) (*model.Account, bool) {
	if a, ok := am.GetAccountByApiKey(apiKey); ok {
		return a, true
	}
	if am.repo == nil {
		return nil, false
	}
	a, err := am.repo.GetByApiKey(ctx, apiKey)
	if err != nil || a == nil {
		return nil, false
	}
	am.RegisterAccount(a)
	return a, true
}

func (am *AccountManager) DefaultAccount() *model.Account {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.defaultAccount
}

// GetLimiterForAccount 获取账户的限流器
func (am *AccountManager) GetLimiterForAccount(addr common.Address) *rate.Limiter {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.limiters[addr]
}

func chooseFloat(base, override float64) float64 {
	if override > 0 {
		return override
	}
	return base
}

func chooseInt(base, override int) int {
	if override > 0 {
		return override
	}
	return base
}
