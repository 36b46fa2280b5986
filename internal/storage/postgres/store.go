// Package postgres persists exported market data in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LightmNFT/lightm-market/internal/model"
)

// Store writes events and pair records through a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database and verifies the connection.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutEventBatch inserts events in one round trip. Sequence numbers already
// present are skipped, which makes redelivered batches harmless.
func (s *Store) PutEventBatch(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		emitted, err := time.Parse(time.RFC3339Nano, e.EmittedAt)
		if err != nil {
			return fmt.Errorf("parse emitted_at of event %d: %w", e.Seq, err)
		}
		batch.Queue(`
			INSERT INTO market_events (
				seq, type, caller, pair, collection, token,
				subject, allowed, amount, ts, emitted_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (seq) DO NOTHING
		`,
			int64(e.Seq),
			e.Type,
			e.Caller,
			nullable(e.Pair),
			nullable(e.Collection),
			nullable(e.Token),
			nullable(e.Subject),
			e.Allowed,
			nullable(e.Amount),
			int64(e.Timestamp),
			emitted,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
	}
	return nil
}

// UpsertPairs writes pair records keyed by address.
func (s *Store) UpsertPairs(ctx context.Context, pairs []model.PairRecord) error {
	if len(pairs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range pairs {
		created, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("parse created_at of pair %s: %w", p.Address, err)
		}
		batch.Queue(`
			INSERT INTO pairs (
				address, variant, asset_kind, pool_type, collection, curve,
				token, owner, asset_recipient, delta, fee, spot_price, seq, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (address) DO UPDATE SET
				owner           = EXCLUDED.owner,
				asset_recipient = EXCLUDED.asset_recipient,
				delta           = EXCLUDED.delta,
				fee             = EXCLUDED.fee,
				spot_price      = EXCLUDED.spot_price
		`,
			p.Address,
			p.Variant,
			p.AssetKind,
			p.PoolType,
			p.Collection,
			p.Curve,
			nullable(p.Token),
			p.Owner,
			nullable(p.AssetRecipient),
			p.Delta,
			p.Fee,
			p.SpotPrice,
			int64(p.Seq),
			created,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pairs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert pairs: %w", err)
		}
	}
	return nil
}

// LoadState returns the last exported sequence recorded under name. The
// second return is false when no row exists yet.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	var seq int64
	err := s.pool.QueryRow(ctx,
		`SELECT last_exported_seq FROM market_state WHERE name = $1`, name,
	).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load state %q: %w", name, err)
	}
	return uint64(seq), true, nil
}

// SaveState records the last exported sequence under name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO market_state (name, last_exported_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET
			last_exported_seq = EXCLUDED.last_exported_seq,
			updated_at        = now()
	`, name, int64(seq))
	if err != nil {
		return fmt.Errorf("save state %q: %w", name, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
