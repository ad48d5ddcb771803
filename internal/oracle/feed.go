// Package oracle holds the vault's view of collateral pricing: per-collection
// floor prices and per-item utility scores, pushed in by an operator feed.
package oracle

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MaxUtilityScore caps the per-item utility score. Higher submissions are
// clamped, not rejected, so a noisy upstream feed cannot wedge updates.
const MaxUtilityScore = 100

var ErrInvalidPrice = errors.New("oracle: floor price must be non-negative")

type itemKey struct {
	collection common.Address
	itemID     uint64
}

// Feed is an in-memory price oracle. Reads never block writes for long; the
// vault engine calls FloorPrice and UtilityScore on every borrow and LTV
// check.
type Feed struct {
	mu       sync.RWMutex
	floors   map[common.Address]*big.Int
	scores   map[itemKey]uint64
	inactive map[itemKey]bool
}

func NewFeed() *Feed {
	return &Feed{
		floors:   make(map[common.Address]*big.Int),
		scores:   make(map[itemKey]uint64),
		inactive: make(map[itemKey]bool),
	}
}

// SetFloorPrice records the collection floor price in wei.
func (f *Feed) SetFloorPrice(collection common.Address, price *big.Int) error {
	if price == nil || price.Sign() < 0 {
		return ErrInvalidPrice
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.floors[collection] = new(big.Int).Set(price)
	return nil
}

// SetUtilityScore records a per-item utility score, clamped to MaxUtilityScore.
func (f *Feed) SetUtilityScore(collection common.Address, itemID uint64, score uint64) {
	if score > MaxUtilityScore {
		score = MaxUtilityScore
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[itemKey{collection, itemID}] = score
}

// SetActiveAsset flags whether an item is live in its game. Inactive items
// have zero borrowing power but stay withdrawable.
func (f *Feed) SetActiveAsset(collection common.Address, itemID uint64, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if active {
		delete(f.inactive, itemKey{collection, itemID})
		return
	}
	f.inactive[itemKey{collection, itemID}] = true
}

// FloorPrice returns the recorded floor price, or zero when unpriced.
func (f *Feed) FloorPrice(collection common.Address) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	price, ok := f.floors[collection]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(price)
}

// UtilityScore returns the recorded score, zero when unscored.
func (f *Feed) UtilityScore(collection common.Address, itemID uint64) uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.scores[itemKey{collection, itemID}]
}

// IsActiveAsset defaults to true; only explicit deactivation turns it off.
func (f *Feed) IsActiveAsset(collection common.Address, itemID uint64) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return !f.inactive[itemKey{collection, itemID}]
}
