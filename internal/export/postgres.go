package export

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/dvloznov/momo-tracker/internal/domain"
)

const createTransactionsTable = `
CREATE TABLE IF NOT EXISTS transactions (
	id        BIGINT PRIMARY KEY,
	type      TEXT NOT NULL,
	amount    DOUBLE PRECISION NOT NULL,
	sender    TEXT NOT NULL,
	receiver  TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	message   TEXT NOT NULL DEFAULT '',
	extra     JSONB
)`

const addExtraColumn = `ALTER TABLE transactions ADD COLUMN IF NOT EXISTS extra JSONB`

const upsertTransaction = `
INSERT INTO transactions (id, type, amount, sender, receiver, timestamp, message, extra)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	type = EXCLUDED.type,
	amount = EXCLUDED.amount,
	sender = EXCLUDED.sender,
	receiver = EXCLUDED.receiver,
	timestamp = EXCLUDED.timestamp,
	message = EXCLUDED.message,
	extra = EXCLUDED.extra`

// Postgres upserts transactions by id into a transactions table.
type Postgres struct {
	dsn string
}

// NewPostgres creates a PostgreSQL sink for the given connection string.
func NewPostgres(dsn string) *Postgres {
	return &Postgres{dsn: dsn}
}

// Write implements the Sink interface. The batch is applied in one
// database transaction.
func (p *Postgres) Write(ctx context.Context, txns []*domain.Transaction) error {
	db, err := sql.Open("postgres", p.dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, createTransactionsTable); err != nil {
		return fmt.Errorf("create transactions table: %w", err)
	}
	if _, err := db.ExecContext(ctx, addExtraColumn); err != nil {
		return fmt.Errorf("add extra column: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertTransaction)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txns {
		args, err := upsertArgs(t)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("upsert transaction %d: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// upsertArgs lists the upsert parameters for t. Passthrough keys go to
// the extra column, NULL when there are none.
func upsertArgs(t *domain.Transaction) ([]interface{}, error) {
	var extra interface{}
	raw, err := t.ExtraJSON()
	if err != nil {
		return nil, fmt.Errorf("encode extra fields of transaction %d: %w", t.ID, err)
	}
	if raw != nil {
		extra = string(raw)
	}
	return []interface{}{t.ID, t.Type, t.Amount, t.Sender, t.Receiver, t.Timestamp, t.Message, extra}, nil
}
