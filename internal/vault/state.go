package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaical/nftvault/internal/model"
)

// State is the persistence boundary for the engine. Implementations must be
// strongly consistent within a single operation; the engine serializes
// operations itself, so implementations do not need their own locking beyond
// plain map/row safety.
type State interface {
	GetCollection(id common.Address) (*model.CollectionConfig, error)
	PutCollection(cfg *model.CollectionConfig) error
	DeleteCollection(id common.Address) error
	ListCollections() ([]*model.CollectionConfig, error)

	GetDeposit(collection common.Address, itemID uint64) (*model.Deposit, error)
	PutDeposit(dep *model.Deposit) error
	DeleteDeposit(collection common.Address, itemID uint64) error

	GetLoan(collection common.Address, itemID uint64) (*model.Loan, error)
	PutLoan(loan *model.Loan) error
	DeleteLoan(collection common.Address, itemID uint64) error
	ActiveLoanCount(collection common.Address) (int, error)

	GetAccount(addr common.Address) (*model.BankAccount, error)
	PutAccount(acc *model.BankAccount) error
}

// PriceSource is the oracle collaborator. All readings are untrusted,
// possibly-stale inputs; zero or absent values mean "no market data" and
// translate into zero borrowing power, never an error.
type PriceSource interface {
	FloorPrice(collection common.Address) *big.Int
	UtilityScore(collection common.Address, itemID uint64) uint64
	IsActiveAsset(collection common.Address, itemID uint64) bool
}

// DebtMinter is the debt-participation token ledger collaborator. The vault
// must be authorized by the ledger; a mint failure aborts the borrow.
type DebtMinter interface {
	Mint(collection common.Address, itemID uint64, holder common.Address, amount *big.Int) error
}

// CustodyRegistry is the atomic ownership-transfer primitive for collateral
// items. Transfer either fully succeeds or returns an error with no effect.
type CustodyRegistry interface {
	Transfer(collection common.Address, itemID uint64, from, to common.Address) error
}
