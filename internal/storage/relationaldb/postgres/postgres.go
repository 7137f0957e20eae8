// Package postgres implements the relational record index on
// PostgreSQL via database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/yieldprotocol/principald/internal/core/amount"
	"github.com/yieldprotocol/principald/internal/journal"
	"github.com/yieldprotocol/principald/internal/storage/relationaldb"
)

const schema = `
CREATE TABLE IF NOT EXISTS redeem_records (
	seq          BIGINT PRIMARY KEY,
	from_account TEXT NOT NULL,
	to_account   TEXT NOT NULL,
	principal    NUMERIC(78, 0) NOT NULL,
	underlying   NUMERIC(78, 0) NOT NULL,
	redeemed_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS redeem_records_from_idx ON redeem_records (from_account, seq);
`

// Index writes redemption records into PostgreSQL for off-engine SQL
// querying. It never participates in redemption decisions.
type Index struct {
	config *relationaldb.Config
	db     *sql.DB
}

func NewIndex(config *relationaldb.Config) (relationaldb.RecordIndex, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Index{config: config}, nil
}

// Open connects, configures the pool, and ensures the schema exists.
func (idx *Index) Open(ctx context.Context) error {
	db, err := sql.Open("postgres", idx.config.ConnectionString())
	if err != nil {
		return fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(idx.config.MaxOpenConns)
	db.SetMaxIdleConns(idx.config.MaxIdleConns)
	db.SetConnMaxLifetime(idx.config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, idx.config.DefaultTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	idx.db = db
	return nil
}

// IndexRecord upserts one record; replays after a crash are harmless.
func (idx *Index) IndexRecord(ctx context.Context, rec journal.Record) error {
	ctx, cancel := context.WithTimeout(ctx, idx.config.DefaultTimeout)
	defer cancel()

	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO redeem_records (seq, from_account, to_account, principal, underlying, redeemed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (seq) DO NOTHING`,
		int64(rec.Seq), rec.From, rec.To, rec.Principal.String(), rec.Underlying.String(), rec.Time)
	if err != nil {
		return fmt.Errorf("postgres: index record %d: %w", rec.Seq, err)
	}
	return nil
}

// RecordsFrom returns the most recent records redeemed from the given
// account, newest first.
func (idx *Index) RecordsFrom(ctx context.Context, account string, limit int) ([]journal.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.config.DefaultTimeout)
	defer cancel()

	rows, err := idx.db.QueryContext(ctx, `
		SELECT seq, from_account, to_account, principal, underlying, redeemed_at
		FROM redeem_records
		WHERE from_account = $1
		ORDER BY seq DESC
		LIMIT $2`, account, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query records: %w", err)
	}
	defer rows.Close()

	var records []journal.Record
	for rows.Next() {
		var (
			seq                   int64
			from, to              string
			principal, underlying string
			redeemedAt            time.Time
		)
		if err := rows.Scan(&seq, &from, &to, &principal, &underlying, &redeemedAt); err != nil {
			return nil, err
		}
		p, err := amount.Parse(principal)
		if err != nil {
			return nil, err
		}
		u, err := amount.Parse(underlying)
		if err != nil {
			return nil, err
		}
		records = append(records, journal.Record{
			Seq:        uint64(seq),
			From:       from,
			To:         to,
			Principal:  p,
			Underlying: u,
			Time:       redeemedAt,
		})
	}
	return records, rows.Err()
}

// Count returns the number of indexed records.
func (idx *Index) Count(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.config.DefaultTimeout)
	defer cancel()

	var count int64
	if err := idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM redeem_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return uint64(count), nil
}

func (idx *Index) Close() error {
	if idx.db == nil {
		return nil
	}
	return idx.db.Close()
}
