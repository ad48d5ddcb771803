package service

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/mosaical/nftvault/internal/config"
	"github.com/mosaical/nftvault/internal/model"
	"github.com/mosaical/nftvault/internal/pkg/metrics"
)

type UsageRepo interface {
	GetDailyUsage(ctx context.Context, account string) (int, float64, error)
	AddDailyUsage(ctx context.Context, account string, loans int, amount float64) error
}

// RiskEngine applies operator borrow caps on top of the vault's own LTV
// checks: per-loan value, daily volume and daily loan count. Caps are
// denominated in whole native units.
type RiskEngine struct {
	repo   UsageRepo
	limits config.RiskConfig
}

func NewRiskEngine(repo UsageRepo, limits config.RiskConfig) *RiskEngine {
	return &RiskEngine{repo: repo, limits: limits}
}

// CheckBorrow 执行借款前的风控检查，返回 error 则必须拒绝借款
func (e *RiskEngine) CheckBorrow(ctx context.Context, account *model.Account, amount *big.Int) error {
	loanVal := decimal.NewFromBigInt(amount, -18).InexactFloat64()

	// 1. 单笔限额 (Max Loan Value)
	if e.limits.MaxLoanValue > 0 && loanVal > e.limits.MaxLoanValue {
		metrics.LoanRejects.WithLabelValues("max_loan_value").Inc()
		return fmt.Errorf("risk reject: loan value %.4f exceeds limit %.4f", loanVal, e.limits.MaxLoanValue)
	}

	// 2. 每日限额检查 (Daily Limit)
	if e.limits.MaxDailyVolume > 0 || e.limits.MaxDailyLoans > 0 {
		currentLoans, currentVol, err := e.repo.GetDailyUsage(ctx, account.Address.Hex())
		if err != nil {
			return fmt.Errorf("risk check failed: %w", err)
		}

		if e.limits.MaxDailyVolume > 0 && currentVol+loanVal > e.limits.MaxDailyVolume {
			metrics.LoanRejects.WithLabelValues("daily_volume_limit").Inc()
			return fmt.Errorf("risk reject: daily volume limit exceeded (curr: %.4f, new: %.4f, max: %.4f)",
				currentVol, loanVal, e.limits.MaxDailyVolume)
		}
		if e.limits.MaxDailyLoans > 0 && currentLoans+1 > e.limits.MaxDailyLoans {
			metrics.LoanRejects.WithLabelValues("daily_loan_limit").Inc()
			return fmt.Errorf("risk reject: daily loan limit exceeded (curr: %d, max: %d)",
				currentLoans, e.limits.MaxDailyLoans)
		}
	}

	return nil
}

// PostBorrowHook 借款成功后调用，同步更新用量以保证限额一致性
func (e *RiskEngine) PostBorrowHook(ctx context.Context, account *model.Account, amount *big.Int) {
	loanVal := decimal.NewFromBigInt(amount, -18).InexactFloat64()
	_ = e.repo.AddDailyUsage(ctx, account.Address.Hex(), 1, loanVal)
}
