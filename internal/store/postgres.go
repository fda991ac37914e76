package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mercadomaster/economy-engine/internal/model"
)

// Schema creates the tables PostgresStore needs. Journal amounts are
// NUMERIC for exact decimal precision; the state document is JSONB.
const Schema = `
CREATE TABLE IF NOT EXISTS user_states (
	profile_id TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	id         TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL,
	direction  TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	quantity   NUMERIC NOT NULL,
	price      NUMERIC NOT NULL,
	timestamp  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS transactions_profile_ts ON transactions (profile_id, timestamp DESC);
`

// PostgresStore implements Store using PostgreSQL as the source of truth.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate applies Schema. It is safe to run on every start.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadState(ctx context.Context, profileID string) (model.UserState, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM user_states WHERE profile_id = $1`, profileID).
		Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.UserState{}, ErrNotFound
	}
	if err != nil {
		return model.UserState{}, fmt.Errorf("load state %s: %w", profileID, err)
	}
	return model.DecodeState(doc)
}

func (s *PostgresStore) SaveState(ctx context.Context, profileID string, state model.UserState, journal ...model.Transaction) error {
	doc, err := model.EncodeState(state)
	if err != nil {
		return fmt.Errorf("save state %s: %w", profileID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save state %s: begin: %w", profileID, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO user_states (profile_id, document, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (profile_id) DO UPDATE
		 SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		profileID, doc,
	); err != nil {
		return fmt.Errorf("save state %s: %w", profileID, err)
	}

	if len(journal) > 0 {
		batch := &pgx.Batch{}
		for _, t := range journal {
			batch.Queue(
				`INSERT INTO transactions (id, profile_id, direction, symbol, quantity, price, timestamp)
				 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7)
				 ON CONFLICT (id) DO NOTHING`,
				t.ID, profileID, string(t.Direction), t.Symbol,
				t.Quantity.String(), t.Price.String(), t.Timestamp,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save state %s: journal: %w", profileID, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListTransactions(ctx context.Context, profileID string, limit int) ([]model.Transaction, error) {
	query := `SELECT id, direction, symbol, quantity::TEXT, price::TEXT, timestamp
		 FROM transactions WHERE profile_id = $1 ORDER BY timestamp DESC, id`
	args := []any{profileID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// pgxRows is the subset of pgx.Rows scanTransactions reads.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTransactions(rows pgxRows) ([]model.Transaction, error) {
	var entries []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var dir, qtyS, priceS string

		if err := rows.Scan(&t.ID, &dir, &t.Symbol, &qtyS, &priceS, &t.Timestamp); err != nil {
			return nil, err
		}

		t.Direction = model.Direction(dir)
		t.Quantity, _ = decimal.NewFromString(qtyS)
		t.Price, _ = decimal.NewFromString(priceS)

		entries = append(entries, t)
	}
	return entries, rows.Err()
}
