package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"

	"github.com/mosaical/nftvault/internal/model"
)

var ErrAccountNotFound = errors.New("account not found")

type PostgresAccountRepo struct {
	db *sqlx.DB
}

func NewPostgresAccountRepo(db *sqlx.DB) *PostgresAccountRepo {
	repo := &PostgresAccountRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

type accountDB struct {
	Address       string `db:"address"`
	Name          string `db:"name"`
	ApiKey        string `db:"api_key"`
	RateLimitJSON []byte `db:"rate_limit_config"`
	CreatedAt     string `db:"created_at"`
}

func (r *PostgresAccountRepo) GetByApiKey(ctx context.Context, apiKey string) (*model.Account, error) {
	var ad accountDB
	query := `SELECT address, name, api_key, rate_limit_config FROM accounts WHERE api_key = $1 LIMIT 1`

	err := r.db.GetContext(ctx, &ad, query, apiKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return r.toDomain(&ad)
}

func (r *PostgresAccountRepo) GetByAddress(ctx context.Context, addr common.Address) (*model.Account, error) {
	var ad accountDB
	query := `SELECT address, name, api_key, rate_limit_config FROM accounts WHERE address = $1 LIMIT 1`
	err := r.db.GetContext(ctx, &ad, query, addr.Hex())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return r.toDomain(&ad)
}

func (r *PostgresAccountRepo) toDomain(ad *accountDB) (*model.Account, error) {
	acc := &model.Account{
		Address: common.HexToAddress(ad.Address),
		Name:    ad.Name,
		APIKey:  ad.ApiKey,
	}
	if len(ad.RateLimitJSON) > 0 {
		if err := json.Unmarshal(ad.RateLimitJSON, &acc.Rate); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (r *PostgresAccountRepo) Create(ctx context.Context, acc *model.Account) error {
	rate, _ := json.Marshal(acc.Rate)
	query := `INSERT INTO accounts (address, name, api_key, rate_limit_config, created_at)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, acc.Address.Hex(), acc.Name, acc.APIKey, rate, time.Now().UTC())
	return err
}

func (r *PostgresAccountRepo) List(ctx context.Context, limit, offset int) ([]*model.Account, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT address, name, api_key, rate_limit_config FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryxContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]*model.Account, 0, limit)
	for rows.Next() {
		var ad accountDB
		if err := rows.StructScan(&ad); err != nil {
			return nil, err
		}
		acc, err := r.toDomain(&ad)
		if err != nil {
			return nil, err
		}
		results = append(results, acc)
	}
	return results, nil
}

func (r *PostgresAccountRepo) Update(ctx context.Context, acc *model.Account) error {
	rate, _ := json.Marshal(acc.Rate)
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET name = $2, api_key = $3, rate_limit_config = $4, updated_at = $5
		WHERE address = $1
	`, acc.Address.Hex(), acc.Name, acc.APIKey, rate, time.Now().UTC())
	return err
}

func (r *PostgresAccountRepo) Delete(ctx context.Context, addr common.Address) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE address = $1`, addr.Hex())
	return err
}

func (r *PostgresAccountRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			address TEXT PRIMARY KEY,
			name TEXT,
			api_key TEXT UNIQUE,
			rate_limit_config JSONB,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		)
	`)
	return err
}
