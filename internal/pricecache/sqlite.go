package pricecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/divemart/pricewatch/internal/model"
)

// SQLiteBackend stores price sets in a local SQLite database. Each product
// is one row holding the JSON-serialized set, so a Put is a single upsert
// and therefore atomic.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteBackend{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS price_cache (
	product_id TEXT PRIMARY KEY,
	prices     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Migrate creates the cache table.
func (s *SQLiteBackend) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteBackend) Get(ctx context.Context, productID string) (model.PriceSet, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT prices FROM price_cache WHERE product_id = ?`,
		productID,
	)

	var pricesJSON string
	err := row.Scan(&pricesJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get product %s", productID)
	}

	var set model.PriceSet
	if err := json.Unmarshal([]byte(pricesJSON), &set); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal product %s", productID)
	}
	return set, nil
}

func (s *SQLiteBackend) Put(ctx context.Context, productID string, set model.PriceSet) error {
	pricesJSON, err := json.Marshal(set)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal product %s", productID)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO price_cache (product_id, prices, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET prices = excluded.prices, updated_at = excluded.updated_at`,
		productID, string(pricesJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put product %s", productID)
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
