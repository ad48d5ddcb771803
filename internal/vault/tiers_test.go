package vault

import "testing"

func TestTierTables(t *testing.T) {
	cases := []struct {
		tier      int
		maxLTV    uint64
		threshold uint64
		rate      uint64
	}{
		{1, 7000, 8500, 500},
		{2, 6000, 8000, 800},
		{3, 5000, 7500, 1200},
		{4, 4000, 7000, 1800},
		{5, 3000, 6500, 2500},
	}
	for _, c := range cases {
		if got := MaxLTVBp(c.tier); got != c.maxLTV {
			t.Errorf("MaxLTVBp(%d) = %d, want %d", c.tier, got, c.maxLTV)
		}
		if got := LiquidationThresholdBp(c.tier); got != c.threshold {
			t.Errorf("LiquidationThresholdBp(%d) = %d, want %d", c.tier, got, c.threshold)
		}
		if got := BaseInterestRateBp(c.tier); got != c.rate {
			t.Errorf("BaseInterestRateBp(%d) = %d, want %d", c.tier, got, c.rate)
		}
	}

	// Max LTV falls and threshold tightens as tier rises.
	for tier := 2; tier <= MaxRiskTier; tier++ {
		if MaxLTVBp(tier) >= MaxLTVBp(tier-1) {
			t.Errorf("MaxLTVBp not strictly decreasing at tier %d", tier)
		}
		if LiquidationThresholdBp(tier) >= LiquidationThresholdBp(tier-1) {
			t.Errorf("threshold not strictly decreasing at tier %d", tier)
		}
	}

	for _, tier := range []int{0, -1, 6, 100} {
		if ValidRiskTier(tier) {
			t.Errorf("ValidRiskTier(%d) = true", tier)
		}
		if MaxLTVBp(tier) != 0 || LiquidationThresholdBp(tier) != 0 || BaseInterestRateBp(tier) != 0 {
			t.Errorf("out-of-range tier %d leaks non-zero params", tier)
		}
	}
}

func TestEffectiveLTVBp(t *testing.T) {
	// Score 0 halves the cap, score 100 restores it.
	if got := EffectiveLTVBp(1, 0); got != 3500 {
		t.Fatalf("EffectiveLTVBp(1, 0) = %d, want 3500", got)
	}
	if got := EffectiveLTVBp(1, 100); got != 7000 {
		t.Fatalf("EffectiveLTVBp(1, 100) = %d, want 7000", got)
	}
	if got := EffectiveLTVBp(2, 85); got != 5550 {
		t.Fatalf("EffectiveLTVBp(2, 85) = %d, want 5550", got)
	}

	// Scores above 100 clamp instead of exceeding the tier cap.
	if got := EffectiveLTVBp(3, 250); got != EffectiveLTVBp(3, 100) {
		t.Fatalf("EffectiveLTVBp(3, 250) = %d, not clamped", got)
	}

	for tier := MinRiskTier; tier <= MaxRiskTier; tier++ {
		prev := uint64(0)
		for score := uint64(0); score <= 100; score++ {
			cur := EffectiveLTVBp(tier, score)
			if cur < prev {
				t.Fatalf("EffectiveLTVBp(%d, %d) decreased", tier, score)
			}
			if cur > MaxLTVBp(tier) {
				t.Fatalf("EffectiveLTVBp(%d, %d) = %d exceeds tier cap", tier, score, cur)
			}
			prev = cur
		}
	}
}
