package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresUsageRepo tracks per-account daily borrow activity: loan count and
// borrowed volume in whole native units.
type PostgresUsageRepo struct {
	db *sqlx.DB
}

func NewPostgresUsageRepo(db *sqlx.DB) *PostgresUsageRepo {
	repo := &PostgresUsageRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresUsageRepo) GetDailyUsage(ctx context.Context, account string) (int, float64, error) {
	today := time.Now().UTC().Format("2006-01-02")
	var loans int
	var vol float64
	query := `SELECT loans, volume FROM borrow_daily_usage WHERE account = $1 AND date = $2`

	err := r.db.QueryRowxContext(ctx, query, account, today).Scan(&loans, &vol)
	if err != nil {
		return 0, 0, nil
	}
	return loans, vol, nil
}

func (r *PostgresUsageRepo) AddDailyUsage(ctx context.Context, account string, loans int, amount float64) error {
	today := time.Now().UTC().Format("2006-01-02")

	query := `
		INSERT INTO borrow_daily_usage (account, date, loans, volume)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account, date)
		DO UPDATE SET loans = borrow_daily_usage.loans + $3, volume = borrow_daily_usage.volume + $4
	`
	_, err := r.db.ExecContext(ctx, query, account, today, loans, amount)
	return err
}

func (r *PostgresUsageRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS borrow_daily_usage (
			account TEXT,
			date TEXT,
			loans INTEGER DEFAULT 0,
			volume DOUBLE PRECISION DEFAULT 0,
			PRIMARY KEY (account, date)
		)
	`)
	return err
}
