package vault

// Risk tiers bucket collections from 1 (lowest risk, highest allowed LTV) to
// 5 (highest risk, lowest allowed LTV). The tier tables are protocol
// constants; changing a collection's tier never touches already-accrued debt.

const (
	MinRiskTier = 1
	MaxRiskTier = 5

	// BasisPoints is the fixed-point denominator: 10000 = 100%.
	BasisPoints = 10_000

	// LiquidationPenaltyBp is the discount a liquidator receives off the
	// oracle floor price.
	LiquidationPenaltyBp = 500

	secondsPerYear = 31_536_000

	// Utility scaling: a score of 0 grants half the tier cap, a score of 100
	// grants the full cap. utilityFloorBp + 100*utilitySlopeBp == BasisPoints,
	// so the effective LTV can never exceed the tier cap.
	utilityFloorBp = 5_000
	utilitySlopeBp = 50
)

var (
	tierMaxLTVBp    = [MaxRiskTier + 1]uint64{0, 7_000, 6_000, 5_000, 4_000, 3_000}
	tierThresholdBp = [MaxRiskTier + 1]uint64{0, 8_500, 8_000, 7_500, 7_000, 6_500}
	tierBaseRateBp  = [MaxRiskTier + 1]uint64{0, 500, 800, 1_200, 1_800, 2_500}
)

// ValidRiskTier reports whether tier falls in the supported range.
func ValidRiskTier(tier int) bool {
	return tier >= MinRiskTier && tier <= MaxRiskTier
}

// MaxLTVBp returns the tier's LTV cap in basis points. Strictly decreasing in
// tier. Unknown tiers get zero borrowing power.
func MaxLTVBp(tier int) uint64 {
	if !ValidRiskTier(tier) {
		return 0
	}
	return tierMaxLTVBp[tier]
}

// LiquidationThresholdBp returns the LTV at which a tier's loans become
// eligible for liquidation.
func LiquidationThresholdBp(tier int) uint64 {
	if !ValidRiskTier(tier) {
		return 0
	}
	return tierThresholdBp[tier]
}

// BaseInterestRateBp returns the tier's annualized interest rate.
func BaseInterestRateBp(tier int) uint64 {
	if !ValidRiskTier(tier) {
		return 0
	}
	return tierBaseRateBp[tier]
}

// EffectiveLTVBp scales the tier cap by utility score. Monotonic
// non-decreasing in score and never above the tier cap.
func EffectiveLTVBp(tier int, utilityScore uint64) uint64 {
	if utilityScore > 100 {
		utilityScore = 100
	}
	multiplier := uint64(utilityFloorBp) + utilityScore*utilitySlopeBp
	return MaxLTVBp(tier) * multiplier / BasisPoints
}
