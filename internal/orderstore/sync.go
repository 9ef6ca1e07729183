package orderstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/orders-dashboard/internal/model"
)

const (
	deleteQuery = `DELETE FROM order_items WHERE id = ANY($1)`

	insertQuery = `
INSERT INTO order_items (id, order_number, cost_usd, cost_rub, delivery_date, expired)
VALUES ($1, $2, $3, $4, $5, $6)`

	updateQuery = `
UPDATE order_items
SET order_number = $2, cost_usd = $3, cost_rub = $4, delivery_date = $5, expired = $6
WHERE id = $1`

	updateCostRUBQuery = `UPDATE order_items SET cost_rub = $2 WHERE id = $1`

	expireQuery = `
UPDATE order_items
SET expired = TRUE
WHERE NOT expired AND delivery_date < $1
RETURNING id, order_number, cost_usd, cost_rub, delivery_date, expired`
)

// CostRUB prices a dollar cost at rate, rounded half away from zero to kopecks.
func CostRUB(usd, rate decimal.Decimal) decimal.Decimal {
	return usd.Mul(rate).Round(2)
}

// SyncResult counts the rows a Sync touched.
type SyncResult struct {
	Created int
	Updated int
	Deleted int
}

type syncPlan struct {
	create []Record
	update []Record
	remove []int64
}

// planSync diffs stored rows against the source. Rows missing from the source
// are removed, changed rows (or every row when the rate changed) are updated
// and new rows are created. cost_rub is derived from cost_usd and rate.
func planSync(existing, source []Record, rate decimal.Decimal, rateChanged bool) syncPlan {
	pending := make(map[int64]Record, len(source))
	for _, r := range source {
		pending[r.ID] = r
	}

	var plan syncPlan
	for _, cur := range existing {
		next, ok := pending[cur.ID]
		if !ok {
			plan.remove = append(plan.remove, cur.ID)
			continue
		}
		delete(pending, cur.ID)

		if !rateChanged && sameSource(cur, next) {
			continue
		}
		next.CostRUB = CostRUB(next.CostUSD, rate)
		// A moved delivery date clears the expired flag.
		next.Expired = cur.Expired && sameDate(cur.DeliveryDate, next.DeliveryDate)
		plan.update = append(plan.update, next)
	}

	for _, r := range source {
		if _, ok := pending[r.ID]; !ok {
			continue
		}
		r.CostRUB = CostRUB(r.CostUSD, rate)
		r.Expired = false
		plan.create = append(plan.create, r)
	}

	return plan
}

func sameSource(a, b Record) bool {
	return a.OrderNumber == b.OrderNumber &&
		a.CostUSD.Equal(b.CostUSD) &&
		sameDate(a.DeliveryDate, b.DeliveryDate)
}

func sameDate(a, b time.Time) bool {
	return a.Format(DateLayout) == b.Format(DateLayout)
}

// Sync makes order_items match source in one transaction.
func (s *Store) Sync(ctx context.Context, source []Record, rate decimal.Decimal, rateChanged bool) (SyncResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("begin sync: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := records(ctx, tx)
	if err != nil {
		return SyncResult{}, err
	}
	plan := planSync(existing, source, rate, rateChanged)

	if len(plan.remove) > 0 {
		if _, err := tx.Exec(ctx, deleteQuery, plan.remove); err != nil {
			return SyncResult{}, fmt.Errorf("delete order items: %w", err)
		}
	}
	for _, r := range plan.update {
		if _, err := tx.Exec(ctx, updateQuery, r.ID, r.OrderNumber, r.CostUSD, r.CostRUB, r.DeliveryDate, r.Expired); err != nil {
			return SyncResult{}, fmt.Errorf("update order item %d: %w", r.ID, err)
		}
	}
	for _, r := range plan.create {
		if _, err := tx.Exec(ctx, insertQuery, r.ID, r.OrderNumber, r.CostUSD, r.CostRUB, r.DeliveryDate, r.Expired); err != nil {
			return SyncResult{}, fmt.Errorf("insert order item %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return SyncResult{}, fmt.Errorf("commit sync: %w", err)
	}

	return SyncResult{
		Created: len(plan.create),
		Updated: len(plan.update),
		Deleted: len(plan.remove),
	}, nil
}

// RefreshCostRUB reprices every row at rate and returns how many changed.
func (s *Store) RefreshCostRUB(ctx context.Context, rate decimal.Decimal) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin refresh: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := records(ctx, tx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, r := range existing {
		rub := CostRUB(r.CostUSD, rate)
		if rub.Equal(r.CostRUB) {
			continue
		}
		if _, err := tx.Exec(ctx, updateCostRUBQuery, r.ID, rub); err != nil {
			return 0, fmt.Errorf("update cost_rub of %d: %w", r.ID, err)
		}
		changed++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit refresh: %w", err)
	}
	return changed, nil
}

// UpdateExpiration flags rows whose delivery date is before today and returns
// the ones that were not flagged yet, ordered by id.
func (s *Store) UpdateExpiration(ctx context.Context, today time.Time) ([]model.OrderItem, error) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	rows, err := s.db.Query(ctx, expireQuery, day)
	if err != nil {
		return nil, fmt.Errorf("expire order items: %w", err)
	}
	expired, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(expired, func(a, b Record) int {
		return cmp.Compare(a.ID, b.ID)
	})

	items := make([]model.OrderItem, 0, len(expired))
	for _, r := range expired {
		items = append(items, r.Model())
	}
	return items, nil
}
