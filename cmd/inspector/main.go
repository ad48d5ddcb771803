// Command inspector evaluates a hypothetical lending position offline: given
// a risk tier, floor price, utility score and loan size, it prints the borrow
// ceiling, interest projections and the floor price at which liquidation
// triggers. Useful for tuning tier assignments before registering a
// collection.
package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/shopspring/decimal"

	"github.com/mosaical/nftvault/internal/vault"
)

func main() {
	tier := flag.Int("tier", 2, "risk tier (1-5)")
	floorStr := flag.String("floor", "1e18", "collection floor price in wei")
	score := flag.Uint64("score", 50, "utility score (0-100)")
	principalStr := flag.String("principal", "", "loan principal in wei (optional)")
	days := flag.Int64("days", 365, "projection horizon in days")
	flag.Parse()

	if !vault.ValidRiskTier(*tier) {
		fmt.Fprintln(os.Stderr, "tier must be between 1 and 5")
		os.Exit(1)
	}
	floor, err := parseWei(*floorStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid floor: %v\n", err)
		os.Exit(1)
	}

	effLTV := vault.EffectiveLTVBp(*tier, *score)
	maxBorrow := new(big.Int).Mul(floor, new(big.Int).SetUint64(effLTV))
	maxBorrow.Quo(maxBorrow, big.NewInt(vault.BasisPoints))

	rateBp := vault.BaseInterestRateBp(*tier)
	thresholdBp := vault.LiquidationThresholdBp(*tier)

	fmt.Printf("Tier %d  maxLTV=%dbp  threshold=%dbp  rate=%dbp/yr\n",
		*tier, vault.MaxLTVBp(*tier), thresholdBp, rateBp)
	fmt.Printf("Utility score %d -> effective LTV %dbp\n", *score, effLTV)
	fmt.Printf("Floor price: %s wei\n", floor.String())
	fmt.Printf("Max borrow:  %s wei\n", maxBorrow.String())

	if *principalStr == "" {
		return
	}
	principal, err := parseWei(*principalStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid principal: %v\n", err)
		os.Exit(1)
	}
	if principal.Cmp(maxBorrow) > 0 {
		fmt.Printf("\nPrincipal %s exceeds max borrow; the vault would reject it.\n", principal.String())
		return
	}

	// Simple interest projection at the horizon.
	interest := new(big.Int).Mul(principal, new(big.Int).SetUint64(rateBp))
	interest.Mul(interest, big.NewInt(*days*86_400))
	interest.Quo(interest, new(big.Int).Mul(big.NewInt(vault.BasisPoints), big.NewInt(365*86_400)))
	debt := new(big.Int).Add(principal, interest)

	fmt.Printf("\nPrincipal:   %s wei\n", principal.String())
	fmt.Printf("After %d days: %s wei debt (%s interest)\n", *days, debt.String(), interest.String())

	// Floor price below which the position is liquidatable, given the debt:
	// ltv >= threshold  <=>  floor <= debt * 10000 / threshold.
	if thresholdBp > 0 {
		trigger := new(big.Int).Mul(debt, big.NewInt(vault.BasisPoints))
		trigger.Quo(trigger, new(big.Int).SetUint64(thresholdBp))
		fmt.Printf("Liquidation triggers once floor drops to %s wei\n", trigger.String())
	}
}

func parseWei(raw string) (*big.Int, error) {
	dec, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	if !dec.IsInteger() || dec.Sign() < 0 {
		return nil, fmt.Errorf("must be a non-negative whole number of wei")
	}
	return dec.BigInt(), nil
}
