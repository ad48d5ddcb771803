// Package custody tracks which address holds each collateral item. It stands
// in for the on-chain token registry the vault would call in production.
package custody

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownItem = errors.New("custody: item not registered")
	ErrNotHolder   = errors.New("custody: from address does not hold the item")
)

type itemKey struct {
	collection common.Address
	itemID     uint64
}

// Book is an in-memory custody registry. Items are registered to an initial
// holder and move only through Transfer, which enforces that the sender
// actually holds the item.
type Book struct {
	mu      sync.RWMutex
	holders map[itemKey]common.Address
}

func NewBook() *Book {
	return &Book{holders: make(map[itemKey]common.Address)}
}

// Register records the initial holder of an item. Overwrites any previous
// registration; callers use it for test and bootstrap seeding only.
func (b *Book) Register(collection common.Address, itemID uint64, holder common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holders[itemKey{collection, itemID}] = holder
}

// HolderOf returns the current holder of an item.
func (b *Book) HolderOf(collection common.Address, itemID uint64) (common.Address, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	holder, ok := b.holders[itemKey{collection, itemID}]
	if !ok {
		return common.Address{}, ErrUnknownItem
	}
	return holder, nil
}

// Transfer moves an item between holders. Fails when the item is unknown or
// from is not its current holder, leaving the book unchanged.
func (b *Book) Transfer(collection common.Address, itemID uint64, from, to common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := itemKey{collection, itemID}
	holder, ok := b.holders[key]
	if !ok {
		return ErrUnknownItem
	}
	if holder != from {
		return ErrNotHolder
	}
	b.holders[key] = to
	return nil
}
