package repository

import (
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaical/nftvault/internal/model"
)

type assetKey struct {
	Collection common.Address
	ItemID     uint64
}

// MemoryState is the in-memory vault state store, used when no database is
// configured and by tests. All methods return deep copies, so callers can
// mutate results freely.
type MemoryState struct {
	mu          sync.RWMutex
	collections map[common.Address]model.CollectionConfig
	deposits    map[assetKey]model.Deposit
	loans       map[assetKey]model.Loan
	accounts    map[common.Address]model.BankAccount
}

func NewMemoryState() *MemoryState {
	return &MemoryState{
		collections: make(map[common.Address]model.CollectionConfig),
		deposits:    make(map[assetKey]model.Deposit),
		loans:       make(map[assetKey]model.Loan),
		accounts:    make(map[common.Address]model.BankAccount),
	}
}

func (m *MemoryState) GetCollection(id common.Address) (*model.CollectionConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.collections[id]
	if !ok {
		return nil, nil
	}
	out := cfg
	return &out, nil
}

func (m *MemoryState) PutCollection(cfg *model.CollectionConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[cfg.ID] = *cfg
	return nil
}

func (m *MemoryState) DeleteCollection(id common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, id)
	return nil
}

func (m *MemoryState) ListCollections() ([]*model.CollectionConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.CollectionConfig, 0, len(m.collections))
	for _, cfg := range m.collections {
		c := cfg
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (m *MemoryState) GetDeposit(collection common.Address, itemID uint64) (*model.Deposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dep, ok := m.deposits[assetKey{collection, itemID}]
	if !ok {
		return nil, nil
	}
	out := dep
	return &out, nil
}

func (m *MemoryState) PutDeposit(dep *model.Deposit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deposits[assetKey{dep.Collection, dep.ItemID}] = *dep
	return nil
}

func (m *MemoryState) DeleteDeposit(collection common.Address, itemID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deposits, assetKey{collection, itemID})
	return nil
}

func (m *MemoryState) GetLoan(collection common.Address, itemID uint64) (*model.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loan, ok := m.loans[assetKey{collection, itemID}]
	if !ok {
		return nil, nil
	}
	return loan.Clone(), nil
}

func (m *MemoryState) PutLoan(loan *model.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[assetKey{loan.Collection, loan.ItemID}] = *loan.Clone()
	return nil
}

func (m *MemoryState) DeleteLoan(collection common.Address, itemID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.loans, assetKey{collection, itemID})
	return nil
}

func (m *MemoryState) ActiveLoanCount(collection common.Address) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for key, loan := range m.loans {
		if key.Collection == collection && loan.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *MemoryState) GetAccount(addr common.Address) (*model.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[addr]
	if !ok {
		return nil, nil
	}
	return acc.Clone(), nil
}

func (m *MemoryState) PutAccount(acc *model.BankAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *acc
	if acc.Balance != nil {
		stored.Balance = new(big.Int).Set(acc.Balance)
	}
	m.accounts[acc.Address] = stored
	return nil
}
