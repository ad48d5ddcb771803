package vault

import "math/big"

// AccrualPolicy isolates the open interest-math choices so they stay
// swappable: whether a top-up folds already-accrued interest into principal
// (so it compounds from then on) or leaves principal untouched.
type AccrualPolicy struct {
	CompoundOnTopUp bool
}

// DefaultAccrualPolicy compounds accrued interest into principal on top-up.
var DefaultAccrualPolicy = AccrualPolicy{CompoundOnTopUp: true}

var bpDenominator = big.NewInt(BasisPoints)

// accruedInterest computes simple interest on principal at rateBp per
// 365-day year over elapsed seconds. Integer arithmetic throughout, result
// truncated toward zero so rounding never inflates debt.
func accruedInterest(principal *big.Int, rateBp uint64, elapsedSeconds int64) *big.Int {
	if principal == nil || principal.Sign() <= 0 || rateBp == 0 || elapsedSeconds <= 0 {
		return big.NewInt(0)
	}
	interest := new(big.Int).Mul(principal, new(big.Int).SetUint64(rateBp))
	interest.Mul(interest, big.NewInt(elapsedSeconds))
	denom := new(big.Int).Mul(bpDenominator, big.NewInt(secondsPerYear))
	return interest.Quo(interest, denom)
}

// debtWithInterest returns principal plus interest accrued since the loan's
// accrual timestamp, as of now.
func debtWithInterest(principal *big.Int, rateBp uint64, accrualTimestamp, now int64) *big.Int {
	if principal == nil {
		return big.NewInt(0)
	}
	total := new(big.Int).Set(principal)
	return total.Add(total, accruedInterest(principal, rateBp, now-accrualTimestamp))
}

// foldAccrued settles a loan's accrual up to now ahead of a principal change.
// Under compounding, everything owed (principal, carried interest, interest
// accrued since the timestamp) becomes the new principal. Otherwise the
// interest accrued so far joins the carried balance, where it stays owed but
// earns nothing further, and principal is unchanged. Either way accrual
// restarts at now, so a freshly added tranche never earns interest for time
// before it was lent.
func (p AccrualPolicy) foldAccrued(principal, carried *big.Int, rateBp uint64, accrualTimestamp, now int64) (newPrincipal, newCarried *big.Int) {
	accrued := accruedInterest(principal, rateBp, now-accrualTimestamp)
	if carried != nil {
		accrued.Add(accrued, carried)
	}
	if !p.CompoundOnTopUp {
		return new(big.Int).Set(principal), accrued
	}
	newPrincipal = new(big.Int).Set(principal)
	newPrincipal.Add(newPrincipal, accrued)
	return newPrincipal, big.NewInt(0)
}
