package orderstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Execution statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Execution records one run of the order update job.
type Execution struct {
	ID                int64
	Created           time.Time
	Status            string
	ExchangeRate      decimal.NullDecimal
	DocumentTimestamp *time.Time
	Errors            []string
}

// AddError appends msg and marks the run failed.
func (e *Execution) AddError(msg string) {
	e.Errors = append(e.Errors, msg)
	e.Status = StatusError
}

const executionColumns = `id, created, status, exchange_rate, document_timestamp, errors`

// CreateExecution inserts a new run record in success status.
func (s *Store) CreateExecution(ctx context.Context) (Execution, error) {
	e := Execution{Errors: []string{}}
	err := s.db.QueryRow(ctx,
		`INSERT INTO update_executions DEFAULT VALUES RETURNING id, created, status`,
	).Scan(&e.ID, &e.Created, &e.Status)
	if err != nil {
		return Execution{}, fmt.Errorf("create execution: %w", err)
	}
	return e, nil
}

// SaveExecution writes the mutable fields of e.
func (s *Store) SaveExecution(ctx context.Context, e Execution) error {
	errs := e.Errors
	if errs == nil {
		errs = []string{}
	}

	_, err := s.db.Exec(ctx, `
UPDATE update_executions
SET status = $2, exchange_rate = $3, document_timestamp = $4, errors = $5
WHERE id = $1`,
		e.ID, e.Status, e.ExchangeRate, e.DocumentTimestamp, errs,
	)
	if err != nil {
		return fmt.Errorf("save execution %d: %w", e.ID, err)
	}
	return nil
}

// LastSuccessfulExecution returns the newest successful run other than
// excludeID. ok is false when there is none.
func (s *Store) LastSuccessfulExecution(ctx context.Context, excludeID int64) (e Execution, ok bool, err error) {
	err = s.db.QueryRow(ctx, `
SELECT `+executionColumns+`
FROM update_executions
WHERE status = 'success' AND id <> $1
ORDER BY created DESC, id DESC
LIMIT 1`, excludeID,
	).Scan(&e.ID, &e.Created, &e.Status, &e.ExchangeRate, &e.DocumentTimestamp, &e.Errors)
	if errors.Is(err, pgx.ErrNoRows) {
		return Execution{}, false, nil
	}
	if err != nil {
		return Execution{}, false, fmt.Errorf("query last execution: %w", err)
	}
	return e, true, nil
}

// DeleteExecutionsBefore removes run records created before cutoff.
func (s *Store) DeleteExecutionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM update_executions WHERE created < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old executions: %w", err)
	}
	return tag.RowsAffected(), nil
}
