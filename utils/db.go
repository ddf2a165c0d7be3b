package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DB wraps the optional strongly-consistent secondary store. It exists for
// the two things the KV ledger cannot give us: an atomic
// increment-if-under-cap for purchase limits, and a durable settlement audit
// trail. The bot runs fully without it.
type DB struct {
	Pool *pgxpool.Pool
	Log  *logrus.Entry
}

// SetupDatabase opens the connection pool and ensures the schema. A blank
// URL returns (nil, nil): callers treat a nil *DB as "no secondary store".
func SetupDatabase(ctx context.Context, databaseURL string, log *logrus.Entry) (*DB, error) {
	if databaseURL == "" {
		return nil, nil
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 45 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.ConnConfig.RuntimeParams = map[string]string{
		"application_name": "slotbot",
		"timezone":         "UTC",
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	db := &DB{Pool: pool, Log: log}
	if err := db.createTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}

func (d *DB) createTables(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS purchase_counters (
		account TEXT NOT NULL,
		item TEXT NOT NULL,
		week_start TIMESTAMPTZ NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (account, item, week_start)
	);
	CREATE TABLE IF NOT EXISTS settlement_audit (
		id BIGSERIAL PRIMARY KEY,
		account TEXT NOT NULL,
		stake BIGINT NOT NULL,
		payout BIGINT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_settlement_audit_account ON settlement_audit(account, recorded_at);`

	if _, err := d.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// IncrementIfUnderCap bumps the weekly purchase counter only while it is
// below the cap, atomically by construction. Returns the new count, or
// ErrLimitReached when the cap was already met.
func (d *DB) IncrementIfUnderCap(ctx context.Context, account, item string, weekStart time.Time, cap int) (int, error) {
	_, err := d.Pool.Exec(ctx,
		`INSERT INTO purchase_counters (account, item, week_start, count)
		 VALUES ($1, $2, $3, 0)
		 ON CONFLICT (account, item, week_start) DO NOTHING`,
		account, item, weekStart)
	if err != nil {
		return 0, fmt.Errorf("failed to seed purchase counter: %w", err)
	}

	var count int
	err = d.Pool.QueryRow(ctx,
		`UPDATE purchase_counters
		 SET count = count + 1
		 WHERE account = $1 AND item = $2 AND week_start = $3 AND count < $4
		 RETURNING count`,
		account, item, weekStart, cap).Scan(&count)
	if err == pgx.ErrNoRows {
		return cap, ErrLimitReached
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment purchase counter: %w", err)
	}
	return count, nil
}

// PurchaseCount reads the current counter for the week; a missing row is 0.
func (d *DB) PurchaseCount(ctx context.Context, account, item string, weekStart time.Time) (int, error) {
	var count int
	err := d.Pool.QueryRow(ctx,
		`SELECT count FROM purchase_counters
		 WHERE account = $1 AND item = $2 AND week_start = $3`,
		account, item, weekStart).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read purchase counter: %w", err)
	}
	return count, nil
}

// SettlementAudit is one row of the bank-flow trail.
type SettlementAudit struct {
	Account string
	Stake   int64
	Payout  int64
}

// RecordSettlements batches audit rows into the secondary store. Failures
// are logged and swallowed: the audit trail is best effort and must never
// block a settlement.
func (d *DB) RecordSettlements(ctx context.Context, rows []SettlementAudit) {
	if d == nil || len(rows) == 0 {
		return
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			`INSERT INTO settlement_audit (account, stake, payout) VALUES ($1, $2, $3)`,
			row.Account, row.Stake, row.Payout)
	}

	results := d.Pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			d.Log.WithFields(logrus.Fields{"error": err}).Warn("settlement audit insert failed")
			return
		}
	}
}
