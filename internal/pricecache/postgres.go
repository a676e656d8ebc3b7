package pricecache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/divemart/pricewatch/internal/model"
)

// Pool is the subset of pgxpool.Pool the backend uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresBackend stores price sets in Postgres, one JSONB row per product.
type PostgresBackend struct {
	pool Pool
}

// NewPostgres connects a pool to connString and pings it.
func NewPostgres(ctx context.Context, connString string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresBackend{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS price_cache (
	product_id TEXT PRIMARY KEY,
	prices     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the cache table.
func (p *PostgresBackend) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (p *PostgresBackend) Get(ctx context.Context, productID string) (model.PriceSet, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT prices FROM price_cache WHERE product_id = $1`,
		productID,
	)

	var pricesJSON []byte
	err := row.Scan(&pricesJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get product %s", productID)
	}

	var set model.PriceSet
	if err := json.Unmarshal(pricesJSON, &set); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal product %s", productID)
	}
	return set, nil
}

func (p *PostgresBackend) Put(ctx context.Context, productID string, set model.PriceSet) error {
	pricesJSON, err := json.Marshal(set)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal product %s", productID)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO price_cache (product_id, prices, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (product_id) DO UPDATE SET prices = EXCLUDED.prices, updated_at = now()`,
		productID, pricesJSON,
	)
	return eris.Wrapf(err, "postgres: put product %s", productID)
}

func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}
