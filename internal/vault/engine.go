package vault

import (
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaical/nftvault/internal/model"
)

// SettlementMode selects what a liquidator owes for seized collateral.
type SettlementMode string

const (
	// SettlementSeizure transfers the collateral only; no funds move.
	SettlementSeizure SettlementMode = "seizure"
	// SettlementSale requires the liquidator to pay the discounted floor
	// price into the treasury.
	SettlementSale SettlementMode = "sale"
)

// InfiniteLTVBp is the LTV reported when the oracle floor price is zero. Any
// finite threshold compares below it, so liquidation checks trigger instead
// of dividing by zero.
var InfiniteLTVBp = big.NewInt(math.MaxInt64)

// Engine owns the lending-vault state machine: collateral custody, loan
// lifecycle, LTV computation and liquidation. Every mutating operation is
// atomic; a failed precondition leaves state untouched, and collaborator
// calls (custody transfer, debt-token mint) are sequenced after internal
// state has been written, with explicit compensation if they fail.
type Engine struct {
	mu         sync.Mutex
	state      State
	prices     PriceSource
	minter     DebtMinter
	custody    CustodyRegistry
	treasury   common.Address
	policy     AccrualPolicy
	settlement SettlementMode
	now        func() int64
}

// NewEngine constructs an engine bound to its collaborators. The treasury
// address holds both the vault's lendable liquidity and custody of deposited
// items.
func NewEngine(treasury common.Address, prices PriceSource, minter DebtMinter, custody CustodyRegistry) *Engine {
	return &Engine{
		prices:     prices,
		minter:     minter,
		custody:    custody,
		treasury:   treasury,
		policy:     DefaultAccrualPolicy,
		settlement: SettlementSeizure,
		now:        func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to its persistence layer.
func (e *Engine) SetState(state State) { e.state = state }

// SetAccrualPolicy overrides the top-up compounding behaviour.
func (e *Engine) SetAccrualPolicy(p AccrualPolicy) { e.policy = p }

// SetSettlement selects the liquidation settlement mode.
func (e *Engine) SetSettlement(mode SettlementMode) {
	if mode == SettlementSale {
		e.settlement = SettlementSale
		return
	}
	e.settlement = SettlementSeizure
}

// SetNow injects a clock, in unix seconds. Tests use this to step time.
func (e *Engine) SetNow(now func() int64) {
	if now != nil {
		e.now = now
	}
}

// Treasury returns the vault's treasury address.
func (e *Engine) Treasury() common.Address { return e.treasury }

// --- collection registry ---

// AddCollection registers a collateral collection under the given risk tier.
// Registering an existing collection is an error, not a no-op, so operator
// typos surface instead of silently re-deriving parameters.
func (e *Engine) AddCollection(id common.Address, tier int) (*model.CollectionConfig, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if !ValidRiskTier(tier) {
		return nil, ErrInvalidRiskTier
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := e.state.GetCollection(id)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsSupported {
		return nil, ErrAlreadySupported
	}
	cfg := &model.CollectionConfig{
		ID:                     id,
		IsSupported:            true,
		RiskTier:               tier,
		LiquidationThresholdBp: LiquidationThresholdBp(tier),
		BaseInterestRateBp:     BaseInterestRateBp(tier),
	}
	if err := e.state.PutCollection(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetRiskTier re-tiers a collection. Open loans are not re-margined; the new
// tier applies to the next borrow check and LTV read.
func (e *Engine) SetRiskTier(id common.Address, tier int) (*model.CollectionConfig, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if !ValidRiskTier(tier) {
		return nil, ErrInvalidRiskTier
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.state.GetCollection(id)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.IsSupported {
		return nil, ErrUnknownCollection
	}
	cfg.RiskTier = tier
	cfg.LiquidationThresholdBp = LiquidationThresholdBp(tier)
	cfg.BaseInterestRateBp = BaseInterestRateBp(tier)
	if err := e.state.PutCollection(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RemoveCollection retires a collection. Blocked while any loan under it is
// active; force-closing customer loans is never an admin action here.
func (e *Engine) RemoveCollection(id common.Address) error {
	if e.state == nil {
		return ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.state.GetCollection(id)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.IsSupported {
		return ErrUnknownCollection
	}
	active, err := e.state.ActiveLoanCount(id)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrCollectionHasActiveLoans
	}
	return e.state.DeleteCollection(id)
}

// Collection returns the registered config, or ErrUnknownCollection.
func (e *Engine) Collection(id common.Address) (*model.CollectionConfig, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	cfg, err := e.state.GetCollection(id)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.IsSupported {
		return nil, ErrUnknownCollection
	}
	return cfg, nil
}

// Collections lists all registered collections.
func (e *Engine) Collections() ([]*model.CollectionConfig, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	return e.state.ListCollections()
}

// --- custody ---

// Deposit takes custody of an item from the caller. The caller stays the
// logical owner until withdrawal or liquidation.
func (e *Engine) Deposit(caller, collection common.Address, itemID uint64) (*model.Deposit, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.state.GetCollection(collection)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.IsSupported {
		return nil, ErrCollectionNotSupported
	}
	existing, err := e.state.GetDeposit(collection, itemID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAssetAlreadyDeposited
	}

	dep := &model.Deposit{
		Collection: collection,
		ItemID:     itemID,
		Owner:      caller,
		CreatedAt:  e.now(),
	}
	if err := e.state.PutDeposit(dep); err != nil {
		return nil, err
	}
	if err := e.custody.Transfer(collection, itemID, caller, e.treasury); err != nil {
		_ = e.state.DeleteDeposit(collection, itemID)
		return nil, err
	}
	return dep, nil
}

// Withdraw releases custody back to the depositor. Blocked while a loan is
// active on the key.
func (e *Engine) Withdraw(caller, collection common.Address, itemID uint64) error {
	if e.state == nil {
		return ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	dep, err := e.state.GetDeposit(collection, itemID)
	if err != nil {
		return err
	}
	if dep == nil {
		return ErrNoDeposit
	}
	if dep.Owner != caller {
		return ErrNotYourAsset
	}
	loan, err := e.state.GetLoan(collection, itemID)
	if err != nil {
		return err
	}
	if loan != nil && loan.IsActive {
		return ErrActiveLoanExists
	}

	if err := e.state.DeleteDeposit(collection, itemID); err != nil {
		return err
	}
	if err := e.custody.Transfer(collection, itemID, e.treasury, caller); err != nil {
		_ = e.state.PutDeposit(dep)
		return err
	}
	return nil
}

// DepositOf returns the custody record for a key, or nil.
func (e *Engine) DepositOf(collection common.Address, itemID uint64) (*model.Deposit, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	return e.state.GetDeposit(collection, itemID)
}

// --- loan reads ---

// MaxBorrowAmount is the ceiling on total debt for a key: floor price scaled
// by the tier cap and utility score, floor division so rounding favours the
// protocol. Zero when the collection is unsupported, the asset is inactive,
// or the oracle has no price.
func (e *Engine) MaxBorrowAmount(collection common.Address, itemID uint64) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	cfg, err := e.state.GetCollection(collection)
	if err != nil {
		return nil, err
	}
	return e.maxBorrowAmount(cfg, collection, itemID), nil
}

func (e *Engine) maxBorrowAmount(cfg *model.CollectionConfig, collection common.Address, itemID uint64) *big.Int {
	if cfg == nil || !cfg.IsSupported {
		return big.NewInt(0)
	}
	if !e.prices.IsActiveAsset(collection, itemID) {
		return big.NewInt(0)
	}
	floor := e.prices.FloorPrice(collection)
	if floor == nil || floor.Sign() <= 0 {
		return big.NewInt(0)
	}
	effLTV := EffectiveLTVBp(cfg.RiskTier, e.prices.UtilityScore(collection, itemID))
	amount := new(big.Int).Mul(floor, new(big.Int).SetUint64(effLTV))
	return amount.Quo(amount, bpDenominator)
}

// TotalDebt returns principal plus interest accrued to the current instant.
// Zero when no loan is active.
func (e *Engine) TotalDebt(collection common.Address, itemID uint64) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	cfg, err := e.state.GetCollection(collection)
	if err != nil {
		return nil, err
	}
	loan, err := e.state.GetLoan(collection, itemID)
	if err != nil {
		return nil, err
	}
	return e.totalDebt(cfg, loan), nil
}

func (e *Engine) totalDebt(cfg *model.CollectionConfig, loan *model.Loan) *big.Int {
	if loan == nil || !loan.IsActive {
		return big.NewInt(0)
	}
	var rateBp uint64
	if cfg != nil {
		rateBp = cfg.BaseInterestRateBp
	}
	debt := debtWithInterest(loan.Principal, rateBp, loan.AccrualTimestamp, e.now())
	if loan.AccruedInterest != nil {
		debt.Add(debt, loan.AccruedInterest)
	}
	return debt
}

// CurrentLTVBp returns debt over floor price in basis points. A zero floor
// yields InfiniteLTVBp so liquidation checks always trigger.
func (e *Engine) CurrentLTVBp(collection common.Address, itemID uint64) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	cfg, err := e.state.GetCollection(collection)
	if err != nil {
		return nil, err
	}
	loan, err := e.state.GetLoan(collection, itemID)
	if err != nil {
		return nil, err
	}
	return e.currentLTVBp(cfg, collection, loan), nil
}

func (e *Engine) currentLTVBp(cfg *model.CollectionConfig, collection common.Address, loan *model.Loan) *big.Int {
	debt := e.totalDebt(cfg, loan)
	if debt.Sign() == 0 {
		return big.NewInt(0)
	}
	floor := e.prices.FloorPrice(collection)
	if floor == nil || floor.Sign() <= 0 {
		return new(big.Int).Set(InfiniteLTVBp)
	}
	ltv := new(big.Int).Mul(debt, bpDenominator)
	return ltv.Quo(ltv, floor)
}

// LoanOf returns the loan record for a key, or nil.
func (e *Engine) LoanOf(collection common.Address, itemID uint64) (*model.Loan, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	loan, err := e.state.GetLoan(collection, itemID)
	if err != nil {
		return nil, err
	}
	return loan.Clone(), nil
}

// --- loan lifecycle ---

// Borrow opens a loan, or tops up an existing one, against a deposited item.
// A top-up first folds accrued interest per the accrual policy, then adds the
// new amount. The borrower's account is credited from the treasury and the
// DPO ledger mints matching debt tokens; a mint failure unwinds everything.
func (e *Engine) Borrow(caller, collection common.Address, itemID uint64, amount *big.Int) (*model.Loan, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.state.GetCollection(collection)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.IsSupported {
		return nil, ErrCollectionNotSupported
	}
	dep, err := e.state.GetDeposit(collection, itemID)
	if err != nil {
		return nil, err
	}
	if dep == nil {
		return nil, ErrNoDeposit
	}
	if dep.Owner != caller {
		return nil, ErrNotYourAsset
	}
	prior, err := e.state.GetLoan(collection, itemID)
	if err != nil {
		return nil, err
	}

	existingDebt := e.totalDebt(cfg, prior)
	projected := new(big.Int).Add(existingDebt, amount)
	if projected.Cmp(e.maxBorrowAmount(cfg, collection, itemID)) > 0 {
		return nil, ErrExceedsMaxLTV
	}

	treasuryAcc, err := e.loadAccount(e.treasury)
	if err != nil {
		return nil, err
	}
	if treasuryAcc.Balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientVaultLiquidity
	}
	borrowerAcc, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}

	now := e.now()
	loan := &model.Loan{
		Collection: collection,
		ItemID:     itemID,
		Borrower:   caller,
		IsActive:   true,
	}
	if prior != nil && prior.IsActive {
		loan.Principal, loan.AccruedInterest = e.policy.foldAccrued(
			prior.Principal, prior.AccruedInterest, cfg.BaseInterestRateBp, prior.AccrualTimestamp, now)
		loan.Principal.Add(loan.Principal, amount)
	} else {
		loan.Principal = new(big.Int).Set(amount)
		loan.AccruedInterest = big.NewInt(0)
	}
	loan.AccrualTimestamp = now

	priorTreasury := treasuryAcc.Clone()
	priorBorrower := borrowerAcc.Clone()
	treasuryAcc.Balance = new(big.Int).Sub(treasuryAcc.Balance, amount)
	borrowerAcc.Balance = new(big.Int).Add(borrowerAcc.Balance, amount)

	if err := e.state.PutAccount(treasuryAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(borrowerAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutLoan(loan); err != nil {
		return nil, err
	}

	// External interaction last; unwind on failure so the borrow is atomic.
	if err := e.minter.Mint(collection, itemID, caller, amount); err != nil {
		_ = e.state.PutAccount(priorTreasury)
		_ = e.state.PutAccount(priorBorrower)
		if prior != nil {
			_ = e.state.PutLoan(prior)
		} else {
			_ = e.state.DeleteLoan(collection, itemID)
		}
		return nil, err
	}

	return loan.Clone(), nil
}

// Repay settles a loan in full. Debt is recomputed at the instant of
// repayment; anything above it stays with the payer as a refund. Anyone may
// repay on a borrower's behalf.
func (e *Engine) Repay(payer, collection common.Address, itemID uint64, payment *big.Int) (debtPaid, refund *big.Int, err error) {
	if e.state == nil {
		return nil, nil, ErrNilState
	}
	if payment == nil || payment.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.state.GetCollection(collection)
	if err != nil {
		return nil, nil, err
	}
	loan, err := e.state.GetLoan(collection, itemID)
	if err != nil {
		return nil, nil, err
	}
	if loan == nil || !loan.IsActive {
		return nil, nil, ErrNoActiveLoan
	}

	debt := e.totalDebt(cfg, loan)
	if payment.Cmp(debt) < 0 {
		return nil, nil, ErrInsufficientPayment
	}

	payerAcc, err := e.loadAccount(payer)
	if err != nil {
		return nil, nil, err
	}
	if payerAcc.Balance.Cmp(debt) < 0 {
		return nil, nil, ErrInsufficientBalance
	}
	treasuryAcc, err := e.loadAccount(e.treasury)
	if err != nil {
		return nil, nil, err
	}

	// Only the debt moves; the overpayment never leaves the payer.
	payerAcc.Balance = new(big.Int).Sub(payerAcc.Balance, debt)
	treasuryAcc.Balance = new(big.Int).Add(treasuryAcc.Balance, debt)

	loan.IsActive = false
	loan.Principal = big.NewInt(0)
	loan.AccruedInterest = big.NewInt(0)
	loan.AccrualTimestamp = e.now()

	if err := e.state.PutAccount(payerAcc); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutAccount(treasuryAcc); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutLoan(loan); err != nil {
		return nil, nil, err
	}

	refund = new(big.Int).Sub(payment, debt)
	return debt, refund, nil
}

// LiquidationResult reports what a successful liquidation did.
type LiquidationResult struct {
	SalePrice  *big.Int
	DebtClosed *big.Int
	NewOwner   common.Address
	Settlement SettlementMode
}

// Liquidate seizes the collateral of a position whose LTV has reached the
// collection's liquidation threshold. Under sale settlement the liquidator
// pays the discounted floor price into the treasury; under seizure no funds
// move. The loan closes either way and the deposit entry is destroyed.
func (e *Engine) Liquidate(liquidator, collection common.Address, itemID uint64) (*LiquidationResult, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.state.GetCollection(collection)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.IsSupported {
		return nil, ErrUnknownCollection
	}
	loan, err := e.state.GetLoan(collection, itemID)
	if err != nil {
		return nil, err
	}
	if loan == nil || !loan.IsActive {
		return nil, ErrNoActiveLoan
	}
	dep, err := e.state.GetDeposit(collection, itemID)
	if err != nil {
		return nil, err
	}
	if dep == nil {
		return nil, ErrNoDeposit
	}

	ltv := e.currentLTVBp(cfg, collection, loan)
	if ltv.Cmp(new(big.Int).SetUint64(cfg.LiquidationThresholdBp)) < 0 {
		return nil, ErrNotLiquidatable
	}

	floor := e.prices.FloorPrice(collection)
	if floor == nil {
		floor = big.NewInt(0)
	}
	salePrice := new(big.Int).Mul(floor, big.NewInt(BasisPoints-LiquidationPenaltyBp))
	salePrice.Quo(salePrice, bpDenominator)

	debtClosed := e.totalDebt(cfg, loan)

	var priorLiquidator, priorTreasury *model.BankAccount
	if e.settlement == SettlementSale {
		liqAcc, err := e.loadAccount(liquidator)
		if err != nil {
			return nil, err
		}
		if liqAcc.Balance.Cmp(salePrice) < 0 {
			return nil, ErrInsufficientBalance
		}
		treAcc, err := e.loadAccount(e.treasury)
		if err != nil {
			return nil, err
		}
		priorLiquidator = liqAcc.Clone()
		priorTreasury = treAcc.Clone()
		liqAcc.Balance = new(big.Int).Sub(liqAcc.Balance, salePrice)
		treAcc.Balance = new(big.Int).Add(treAcc.Balance, salePrice)
		if err := e.state.PutAccount(liqAcc); err != nil {
			return nil, err
		}
		if err := e.state.PutAccount(treAcc); err != nil {
			return nil, err
		}
	}

	priorLoan := loan.Clone()
	loan.IsActive = false
	loan.Principal = big.NewInt(0)
	loan.AccruedInterest = big.NewInt(0)
	loan.AccrualTimestamp = e.now()
	if err := e.state.PutLoan(loan); err != nil {
		return nil, err
	}
	if err := e.state.DeleteDeposit(collection, itemID); err != nil {
		return nil, err
	}

	if err := e.custody.Transfer(collection, itemID, e.treasury, liquidator); err != nil {
		_ = e.state.PutDeposit(dep)
		_ = e.state.PutLoan(priorLoan)
		if priorLiquidator != nil {
			_ = e.state.PutAccount(priorLiquidator)
		}
		if priorTreasury != nil {
			_ = e.state.PutAccount(priorTreasury)
		}
		return nil, err
	}

	return &LiquidationResult{
		SalePrice:  salePrice,
		DebtClosed: debtClosed,
		NewOwner:   liquidator,
		Settlement: e.settlement,
	}, nil
}

// --- bank ---

// Fund credits an account with native currency. Funding the treasury address
// is how the vault receives lendable liquidity.
func (e *Engine) Fund(addr common.Address, amount *big.Int) (*model.BankAccount, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	acc, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	if err := e.state.PutAccount(acc); err != nil {
		return nil, err
	}
	return acc.Clone(), nil
}

// Balance returns an account's native balance, zero for unknown accounts.
func (e *Engine) Balance(addr common.Address) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	acc, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Balance), nil
}

func (e *Engine) loadAccount(addr common.Address) (*model.BankAccount, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &model.BankAccount{Address: addr}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc, nil
}
