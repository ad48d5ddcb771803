// Package dpo tracks DPO (Debt Position Obligation) tokens: fungible claims
// minted one-to-one against borrowed amounts, keyed per collateral item.
package dpo

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnauthorizedMinter  = errors.New("dpo: caller is not an authorized minter")
	ErrInvalidAmount       = errors.New("dpo: amount must be positive")
	ErrInsufficientHolding = errors.New("dpo: holder balance too low")
)

type itemKey struct {
	collection common.Address
	itemID     uint64
}

type holdingKey struct {
	item   itemKey
	holder common.Address
}

// Ledger is an in-memory DPO token book: total supply per collateral item and
// per-holder balances. Minting is restricted to authorized addresses; the
// vault engine is registered as one at boot.
type Ledger struct {
	mu       sync.RWMutex
	minters  map[common.Address]bool
	supply   map[itemKey]*big.Int
	holdings map[holdingKey]*big.Int
}

func NewLedger() *Ledger {
	return &Ledger{
		minters:  make(map[common.Address]bool),
		supply:   make(map[itemKey]*big.Int),
		holdings: make(map[holdingKey]*big.Int),
	}
}

// AuthorizeMinter grants or revokes mint rights for an address.
func (l *Ledger) AuthorizeMinter(addr common.Address, authorized bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if authorized {
		l.minters[addr] = true
		return
	}
	delete(l.minters, addr)
}

// IsAuthorizedMinter reports whether addr may mint.
func (l *Ledger) IsAuthorizedMinter(addr common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.minters[addr]
}

// MintAs mints amount tokens for holder against the given item, on behalf of
// caller. Fails unless caller is an authorized minter.
func (l *Ledger) MintAs(caller, collection common.Address, itemID uint64, holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.minters[caller] {
		return ErrUnauthorizedMinter
	}
	item := itemKey{collection, itemID}
	l.supply[item] = add(l.supply[item], amount)
	hk := holdingKey{item, holder}
	l.holdings[hk] = add(l.holdings[hk], amount)
	return nil
}

// Transfer moves tokens of one item between holders.
func (l *Ledger) Transfer(collection common.Address, itemID uint64, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	item := itemKey{collection, itemID}
	fromKey := holdingKey{item, from}
	bal := l.holdings[fromKey]
	if bal == nil || bal.Cmp(amount) < 0 {
		return ErrInsufficientHolding
	}
	l.holdings[fromKey] = new(big.Int).Sub(bal, amount)
	toKey := holdingKey{item, to}
	l.holdings[toKey] = add(l.holdings[toKey], amount)
	return nil
}

// Supply returns total tokens minted against an item.
func (l *Ledger) Supply(collection common.Address, itemID uint64) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return valueOf(l.supply[itemKey{collection, itemID}])
}

// BalanceOf returns a holder's token balance for an item.
func (l *Ledger) BalanceOf(collection common.Address, itemID uint64, holder common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return valueOf(l.holdings[holdingKey{itemKey{collection, itemID}, holder}])
}

func add(cur, amount *big.Int) *big.Int {
	if cur == nil {
		return new(big.Int).Set(amount)
	}
	return new(big.Int).Add(cur, amount)
}

func valueOf(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Minter adapts the ledger to the single-caller mint interface the vault
// engine consumes, fixing the caller identity at construction.
type Minter struct {
	ledger *Ledger
	caller common.Address
}

// NewMinter binds a mint caller identity to the ledger. The identity must be
// authorized separately via AuthorizeMinter.
func NewMinter(ledger *Ledger, caller common.Address) *Minter {
	return &Minter{ledger: ledger, caller: caller}
}

func (m *Minter) Mint(collection common.Address, itemID uint64, holder common.Address, amount *big.Int) error {
	return m.ledger.MintAs(m.caller, collection, itemID, holder, amount)
}
