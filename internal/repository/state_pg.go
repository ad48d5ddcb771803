package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"

	"github.com/mosaical/nftvault/internal/model"
)

// PostgresState persists the vault state machine. Wei amounts are stored as
// TEXT: postgres numeric types round-trip through float scans too easily, and
// the engine only ever needs the exact big.Int back.
type PostgresState struct {
	db *sqlx.DB
}

func NewPostgresState(db *sqlx.DB) *PostgresState {
	s := &PostgresState{db: db}
	_ = s.ensureSchema(context.Background())
	return s
}

func (s *PostgresState) GetCollection(id common.Address) (*model.CollectionConfig, error) {
	ctx := context.Background()
	var row struct {
		ID          string `db:"id"`
		IsSupported bool   `db:"is_supported"`
		RiskTier    int    `db:"risk_tier"`
		ThresholdBp int64  `db:"liquidation_threshold_bp"`
		RateBp      int64  `db:"base_interest_rate_bp"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT id, is_supported, risk_tier, liquidation_threshold_bp, base_interest_rate_bp
		FROM vault_collections WHERE id = $1
	`, id.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.CollectionConfig{
		ID:                     common.HexToAddress(row.ID),
		IsSupported:            row.IsSupported,
		RiskTier:               row.RiskTier,
		LiquidationThresholdBp: uint64(row.ThresholdBp),
		BaseInterestRateBp:     uint64(row.RateBp),
	}, nil
}

func (s *PostgresState) PutCollection(cfg *model.CollectionConfig) error {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO vault_collections (id, is_supported, risk_tier, liquidation_threshold_bp, base_interest_rate_bp, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			is_supported = $2, risk_tier = $3,
			liquidation_threshold_bp = $4, base_interest_rate_bp = $5, updated_at = $6
	`, cfg.ID.Hex(), cfg.IsSupported, cfg.RiskTier, int64(cfg.LiquidationThresholdBp), int64(cfg.BaseInterestRateBp), time.Now().UTC())
	return err
}

func (s *PostgresState) DeleteCollection(id common.Address) error {
	_, err := s.db.ExecContext(context.Background(), `DELETE FROM vault_collections WHERE id = $1`, id.Hex())
	return err
}

func (s *PostgresState) ListCollections() ([]*model.CollectionConfig, error) {
	ctx := context.Background()
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, is_supported, risk_tier, liquidation_threshold_bp, base_interest_rate_bp
		FROM vault_collections ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.CollectionConfig{}
	for rows.Next() {
		var id string
		var supported bool
		var tier int
		var thresholdBp, rateBp int64
		if err := rows.Scan(&id, &supported, &tier, &thresholdBp, &rateBp); err != nil {
			return nil, err
		}
		out = append(out, &model.CollectionConfig{
			ID:                     common.HexToAddress(id),
			IsSupported:            supported,
			RiskTier:               tier,
			LiquidationThresholdBp: uint64(thresholdBp),
			BaseInterestRateBp:     uint64(rateBp),
		})
	}
	return out, nil
}

func (s *PostgresState) GetDeposit(collection common.Address, itemID uint64) (*model.Deposit, error) {
	ctx := context.Background()
	var row struct {
		Owner     string `db:"owner"`
		CreatedAt int64  `db:"created_at"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT owner, created_at FROM vault_deposits WHERE collection = $1 AND item_id = $2
	`, collection.Hex(), int64(itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.Deposit{
		Collection: collection,
		ItemID:     itemID,
		Owner:      common.HexToAddress(row.Owner),
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (s *PostgresState) PutDeposit(dep *model.Deposit) error {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO vault_deposits (collection, item_id, owner, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, item_id) DO UPDATE SET owner = $3, created_at = $4
	`, dep.Collection.Hex(), int64(dep.ItemID), dep.Owner.Hex(), dep.CreatedAt)
	return err
}

func (s *PostgresState) DeleteDeposit(collection common.Address, itemID uint64) error {
	_, err := s.db.ExecContext(context.Background(),
		`DELETE FROM vault_deposits WHERE collection = $1 AND item_id = $2`,
		collection.Hex(), int64(itemID))
	return err
}

func (s *PostgresState) GetLoan(collection common.Address, itemID uint64) (*model.Loan, error) {
	ctx := context.Background()
	var row struct {
		Borrower  string `db:"borrower"`
		Principal string `db:"principal"`
		Accrued   string `db:"accrued_interest"`
		AccrualTS int64  `db:"accrual_timestamp"`
		IsActive  bool   `db:"is_active"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT borrower, principal, accrued_interest, accrual_timestamp, is_active
		FROM vault_loans WHERE collection = $1 AND item_id = $2
	`, collection.Hex(), int64(itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	principal, ok := new(big.Int).SetString(row.Principal, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt loan principal %q for %s/%d", row.Principal, collection.Hex(), itemID)
	}
	accrued, ok := new(big.Int).SetString(row.Accrued, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt loan accrued interest %q for %s/%d", row.Accrued, collection.Hex(), itemID)
	}
	return &model.Loan{
		Collection:       collection,
		ItemID:           itemID,
		Borrower:         common.HexToAddress(row.Borrower),
		Principal:        principal,
		AccruedInterest:  accrued,
		AccrualTimestamp: row.AccrualTS,
		IsActive:         row.IsActive,
	}, nil
}

func (s *PostgresState) PutLoan(loan *model.Loan) error {
	principal := "0"
	if loan.Principal != nil {
		principal = loan.Principal.String()
	}
	accrued := "0"
	if loan.AccruedInterest != nil {
		accrued = loan.AccruedInterest.String()
	}
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO vault_loans (collection, item_id, borrower, principal, accrued_interest, accrual_timestamp, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (collection, item_id) DO UPDATE SET
			borrower = $3, principal = $4, accrued_interest = $5, accrual_timestamp = $6, is_active = $7
	`, loan.Collection.Hex(), int64(loan.ItemID), loan.Borrower.Hex(), principal, accrued, loan.AccrualTimestamp, loan.IsActive)
	return err
}

func (s *PostgresState) DeleteLoan(collection common.Address, itemID uint64) error {
	_, err := s.db.ExecContext(context.Background(),
		`DELETE FROM vault_loans WHERE collection = $1 AND item_id = $2`,
		collection.Hex(), int64(itemID))
	return err
}

func (s *PostgresState) ActiveLoanCount(collection common.Address) (int, error) {
	var count int
	err := s.db.QueryRowxContext(context.Background(),
		`SELECT COUNT(*) FROM vault_loans WHERE collection = $1 AND is_active`,
		collection.Hex()).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PostgresState) GetAccount(addr common.Address) (*model.BankAccount, error) {
	ctx := context.Background()
	var balance string
	err := s.db.QueryRowxContext(ctx,
		`SELECT balance FROM vault_accounts WHERE address = $1`, addr.Hex()).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	bal, ok := new(big.Int).SetString(balance, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt balance %q for %s", balance, addr.Hex())
	}
	return &model.BankAccount{Address: addr, Balance: bal}, nil
}

func (s *PostgresState) PutAccount(acc *model.BankAccount) error {
	balance := "0"
	if acc.Balance != nil {
		balance = acc.Balance.String()
	}
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO vault_accounts (address, balance)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET balance = $2
	`, acc.Address.Hex(), balance)
	return err
}

func (s *PostgresState) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vault_collections (
			id TEXT PRIMARY KEY,
			is_supported BOOLEAN NOT NULL DEFAULT true,
			risk_tier INTEGER NOT NULL,
			liquidation_threshold_bp BIGINT NOT NULL,
			base_interest_rate_bp BIGINT NOT NULL,
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS vault_deposits (
			collection TEXT,
			item_id BIGINT,
			owner TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			PRIMARY KEY (collection, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS vault_loans (
			collection TEXT,
			item_id BIGINT,
			borrower TEXT NOT NULL,
			principal TEXT NOT NULL,
			accrued_interest TEXT NOT NULL DEFAULT '0',
			accrual_timestamp BIGINT NOT NULL,
			is_active BOOLEAN NOT NULL,
			PRIMARY KEY (collection, item_id)
		)`,
		`ALTER TABLE vault_loans ADD COLUMN IF NOT EXISTS accrued_interest TEXT NOT NULL DEFAULT '0'`,
		`CREATE TABLE IF NOT EXISTS vault_accounts (
			address TEXT PRIMARY KEY,
			balance TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_vault_loans_active ON vault_loans(collection) WHERE is_active`)
	return nil
}
