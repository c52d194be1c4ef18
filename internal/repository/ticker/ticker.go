package ticker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrTickerNotFound = errors.New("ticker not found")

type Ticker struct {
	ID          int64     `db:"id" json:"id"`
	Symbol      string    `db:"symbol" json:"symbol"`
	Source      string    `db:"source" json:"source"`
	MaxLeverage int       `db:"max_leverage" json:"maxLeverage"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// TickerReader is what the use cases need from the registry.
type TickerReader interface {
	GetBySymbol(ctx context.Context, symbol string) (*Ticker, error)
	ListActive(ctx context.Context) ([]Ticker, error)
}

// --- Interface ---
type TickerRepository interface {
	TickerReader
	CreateSchema(ctx context.Context) error
	CreateTicker(ctx context.Context, tx *sqlx.Tx, symbol, source string, maxLeverage int) (int64, error)
	SetActive(ctx context.Context, tx *sqlx.Tx, id int64, active bool) error
}

const schema = `CREATE TABLE IF NOT EXISTS ticker (
    id           BIGSERIAL PRIMARY KEY,
    symbol       TEXT        NOT NULL UNIQUE,
    source       TEXT        NOT NULL DEFAULT 'rest',
    max_leverage INTEGER     NOT NULL DEFAULT 10 CHECK (max_leverage BETWEEN 1 AND 10),
    is_active    BOOLEAN     NOT NULL DEFAULT TRUE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type tickerRepositoryImpl struct {
	db *sqlx.DB
}

func NewTickerRepository(db *sqlx.DB) TickerRepository {
	return &tickerRepositoryImpl{db: db}
}

func (r *tickerRepositoryImpl) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *tickerRepositoryImpl) CreateTicker(ctx context.Context, tx *sqlx.Tx, symbol, source string, maxLeverage int) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO ticker (symbol, source, max_leverage) VALUES ($1, $2, $3) RETURNING id`,
		normalizeSymbol(symbol), source, maxLeverage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting ticker %s: %w", symbol, err)
	}
	return id, nil
}

func (r *tickerRepositoryImpl) GetBySymbol(ctx context.Context, symbol string) (*Ticker, error) {
	var t Ticker
	err := r.db.GetContext(ctx, &t,
		`SELECT id, symbol, source, max_leverage, is_active, created_at FROM ticker WHERE symbol=$1`,
		normalizeSymbol(symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTickerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tickerRepositoryImpl) ListActive(ctx context.Context) ([]Ticker, error) {
	var list []Ticker
	err := r.db.SelectContext(ctx, &list,
		`SELECT id, symbol, source, max_leverage, is_active, created_at FROM ticker WHERE is_active=true ORDER BY id`)
	return list, err
}

func (r *tickerRepositoryImpl) SetActive(ctx context.Context, tx *sqlx.Tx, id int64, active bool) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE ticker SET is_active=$1 WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTickerNotFound
	}
	return nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
