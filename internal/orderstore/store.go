// Package orderstore keeps order items and update-run records in PostgreSQL.
package orderstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/rickgao/orders-dashboard/internal/model"
)

// DateLayout is how delivery dates are rendered.
const DateLayout = "2006-01-02"

// migrations run in order on every start; each is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS order_items (
	id            BIGSERIAL PRIMARY KEY,
	order_number  BIGINT NOT NULL CHECK (order_number >= 0),
	cost_usd      NUMERIC(8,2) NOT NULL,
	cost_rub      NUMERIC(12,2) NOT NULL,
	delivery_date DATE NOT NULL
)`,
	`ALTER TABLE order_items ADD COLUMN IF NOT EXISTS expired BOOLEAN NOT NULL DEFAULT FALSE`,
	`CREATE TABLE IF NOT EXISTS update_executions (
	id                 BIGSERIAL PRIMARY KEY,
	created            TIMESTAMPTZ NOT NULL DEFAULT now(),
	status             TEXT NOT NULL DEFAULT 'success',
	exchange_rate      NUMERIC(18,8),
	document_timestamp TIMESTAMPTZ,
	errors             TEXT[] NOT NULL DEFAULT '{}'
)`,
	`CREATE INDEX IF NOT EXISTS update_executions_created_idx ON update_executions (created)`,
}

const listQuery = `
SELECT id, order_number, cost_usd, cost_rub, delivery_date, expired
FROM order_items
ORDER BY id`

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store reads and writes order items.
type Store struct {
	db DB
}

// New creates a store over a pool or connection.
func New(db DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates or upgrades the tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate order store (step %d): %w", i+1, err)
		}
	}
	return nil
}

// Record is one order_items row.
type Record struct {
	ID           int64
	OrderNumber  int64
	CostUSD      decimal.Decimal
	CostRUB      decimal.Decimal
	DeliveryDate time.Time
	Expired      bool
}

// Model renders the record as served: costs with exactly two decimals,
// dates as YYYY-MM-DD.
func (r Record) Model() model.OrderItem {
	return model.OrderItem{
		ID:           r.ID,
		OrderNumber:  model.Scalar(strconv.FormatInt(r.OrderNumber, 10)),
		CostUSD:      model.Amount(r.CostUSD.StringFixed(2)),
		CostRUB:      model.Amount(r.CostRUB.StringFixed(2)),
		DeliveryDate: r.DeliveryDate.Format(DateLayout),
	}
}

// List returns every order item ordered by id.
func (s *Store) List(ctx context.Context) ([]model.OrderItem, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, 0, len(records))
	for _, r := range records {
		items = append(items, r.Model())
	}
	return items, nil
}

// Records returns every stored row ordered by id.
func (s *Store) Records(ctx context.Context) ([]Record, error) {
	return records(ctx, s.db)
}

func records(ctx context.Context, q querier) ([]Record, error) {
	rows, err := q.Query(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.OrderNumber, &r.CostUSD, &r.CostRUB, &r.DeliveryDate, &r.Expired); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return out, nil
}
