package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CollectionConfig is the lending configuration for a collateral collection.
// The liquidation threshold and base rate are derived from the risk tier when
// the collection is registered; the max LTV is always computed from the tier
// so a tier change takes effect on the next read.
type CollectionConfig struct {
	ID                     common.Address `json:"id"`
	IsSupported            bool           `json:"is_supported"`
	RiskTier               int            `json:"risk_tier"`
	LiquidationThresholdBp uint64         `json:"liquidation_threshold_bp"`
	BaseInterestRateBp     uint64         `json:"base_interest_rate_bp"`
}

// Deposit records custody of a single collateral item. The owner is the
// depositor until withdrawal, or the liquidator after a liquidation.
type Deposit struct {
	Collection common.Address `json:"collection"`
	ItemID     uint64         `json:"item_id"`
	Owner      common.Address `json:"owner"`
	CreatedAt  int64          `json:"created_at"`
}

// Loan is the per-(collection, item) loan record. Principal and accrued
// interest are wei. AccruedInterest holds interest earned before the last
// principal change that was not folded into principal; it is owed but earns
// no further interest. The accrual timestamp resets whenever principal
// changes.
type Loan struct {
	Collection       common.Address `json:"collection"`
	ItemID           uint64         `json:"item_id"`
	Borrower         common.Address `json:"borrower"`
	Principal        *big.Int       `json:"principal"`
	AccruedInterest  *big.Int       `json:"accrued_interest"`
	AccrualTimestamp int64          `json:"accrual_timestamp"`
	IsActive         bool           `json:"is_active"`
}

// Clone returns a deep copy of the loan.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Principal != nil {
		clone.Principal = new(big.Int).Set(l.Principal)
	}
	if l.AccruedInterest != nil {
		clone.AccruedInterest = new(big.Int).Set(l.AccruedInterest)
	}
	return &clone
}

// BankAccount holds a native-currency balance in wei. The vault treasury is
// just another bank account at the engine's configured treasury address.
type BankAccount struct {
	Address common.Address `json:"address"`
	Balance *big.Int       `json:"balance"`
}

// Clone returns a deep copy of the bank account.
func (a *BankAccount) Clone() *BankAccount {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return &clone
}
