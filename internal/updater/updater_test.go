package updater

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/orders-dashboard/internal/model"
	"github.com/rickgao/orders-dashboard/internal/orderstore"
)

type fakeRates struct {
	rate  decimal.Decimal
	err   error
	calls atomic.Int64
}

func (f *fakeRates) FetchExchangeRate(ctx context.Context, charCode string) (decimal.Decimal, error) {
	f.calls.Add(1)
	return f.rate, f.err
}

type syncCall struct {
	source      []orderstore.Record
	rate        decimal.Decimal
	rateChanged bool
}

type fakeStore struct {
	mu sync.Mutex

	nextID    int64
	createErr error
	saved     []orderstore.Execution

	last    orderstore.Execution
	hasLast bool
	lastErr error

	syncs   []syncCall
	syncErr error

	refreshes  []decimal.Decimal
	refreshErr error

	expired     []model.OrderItem
	expireErr   error
	expireCalls int

	cutoffs []time.Time
}

func (f *fakeStore) CreateExecution(ctx context.Context) (orderstore.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return orderstore.Execution{}, f.createErr
	}
	f.nextID++
	return orderstore.Execution{ID: f.nextID, Status: orderstore.StatusSuccess, Errors: []string{}}, nil
}

func (f *fakeStore) SaveExecution(ctx context.Context, e orderstore.Execution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, e)
	return nil
}

func (f *fakeStore) LastSuccessfulExecution(ctx context.Context, excludeID int64) (orderstore.Execution, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.hasLast, f.lastErr
}

func (f *fakeStore) Sync(ctx context.Context, source []orderstore.Record, rate decimal.Decimal, rateChanged bool) (orderstore.SyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, syncCall{source, rate, rateChanged})
	return orderstore.SyncResult{Created: len(source)}, f.syncErr
}

func (f *fakeStore) RefreshCostRUB(ctx context.Context, rate decimal.Decimal) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, rate)
	return 1, f.refreshErr
}

func (f *fakeStore) UpdateExpiration(ctx context.Context, today time.Time) ([]model.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireCalls++
	return f.expired, f.expireErr
}

func (f *fakeStore) DeleteExecutionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 2, nil
}

func (f *fakeStore) savedExecutions() []orderstore.Execution {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]orderstore.Execution(nil), f.saved...)
}

type notifierFunc func(ctx context.Context, items []model.OrderItem) error

func (fn notifierFunc) NotifyExpired(ctx context.Context, items []model.OrderItem) error {
	return fn(ctx, items)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func writeSheet(t *testing.T, content string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	return path
}

const sheetCSV = "№,заказ №,стоимость,$ срок поставки\n" +
	"1,1001,\"10,50\",01.03.2023\n" +
	"2,1002,abc,02.03.2023\n" +
	"3,1003,20,03.03.2023\n"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateTTL = 0
	return cfg
}

func TestUpdateOrders_SyncsSheet(t *testing.T) {
	modTime := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.SourceFile = writeSheet(t, sheetCSV, modTime)

	store := &fakeStore{}
	rates := &fakeRates{rate: dec("76.4567")}
	u := New(cfg, store, rates, nil, nil)

	exec, err := u.UpdateOrders(context.Background())
	if err != nil {
		t.Fatalf("UpdateOrders failed: %v", err)
	}

	if len(store.syncs) != 1 {
		t.Fatalf("Sync calls = %d, want 1", len(store.syncs))
	}
	call := store.syncs[0]
	if len(call.source) != 2 {
		t.Errorf("synced %d records, want 2", len(call.source))
	}
	if !call.rate.Equal(dec("76.4567")) || !call.rateChanged {
		t.Errorf("Sync rate = %s changed = %v, want 76.4567 true", call.rate, call.rateChanged)
	}

	// The bad row is recorded, the run is still saved once.
	if exec.Status != orderstore.StatusError || len(exec.Errors) != 1 {
		t.Errorf("exec = %+v, want one error", exec)
	}
	if !strings.Contains(exec.Errors[0], "line 3") {
		t.Errorf("error %q does not name line 3", exec.Errors[0])
	}
	if exec.DocumentTimestamp == nil || !exec.DocumentTimestamp.Equal(modTime) {
		t.Errorf("DocumentTimestamp = %v, want %v", exec.DocumentTimestamp, modTime)
	}
	if !exec.ExchangeRate.Valid || !exec.ExchangeRate.Decimal.Equal(dec("76.4567")) {
		t.Errorf("ExchangeRate = %v", exec.ExchangeRate)
	}
	if saved := store.savedExecutions(); len(saved) != 1 || saved[0].ID != exec.ID {
		t.Errorf("saved = %+v, want the run once", saved)
	}
}

func TestUpdateOrders_UnchangedSheet(t *testing.T) {
	modTime := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		prevRate    string
		wantRefresh bool
	}{
		{"same rate", "76.4567", false},
		{"new rate", "75.0000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.SourceFile = writeSheet(t, sheetCSV, modTime)

			prevModTime := modTime
			store := &fakeStore{
				hasLast: true,
				last: orderstore.Execution{
					ID:                7,
					ExchangeRate:      decimal.NewNullDecimal(dec(tt.prevRate)),
					DocumentTimestamp: &prevModTime,
				},
			}
			u := New(cfg, store, &fakeRates{rate: dec("76.4567")}, nil, nil)

			exec, err := u.UpdateOrders(context.Background())
			if err != nil {
				t.Fatalf("UpdateOrders failed: %v", err)
			}
			if len(store.syncs) != 0 {
				t.Errorf("Sync called %d times for an unchanged sheet", len(store.syncs))
			}
			if got := len(store.refreshes) == 1; got != tt.wantRefresh {
				t.Errorf("refreshed = %v, want %v", got, tt.wantRefresh)
			}
			if exec.Status != orderstore.StatusSuccess {
				t.Errorf("Status = %q, want success", exec.Status)
			}
		})
	}
}

func TestUpdateOrders_ModifiedSheetKeepsRate(t *testing.T) {
	prevModTime := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.SourceFile = writeSheet(t, sheetCSV, prevModTime.Add(time.Hour))

	store := &fakeStore{
		hasLast: true,
		last: orderstore.Execution{
			ExchangeRate:      decimal.NewNullDecimal(dec("76.4567")),
			DocumentTimestamp: &prevModTime,
		},
	}
	u := New(cfg, store, &fakeRates{rate: dec("76.4567")}, nil, nil)

	if _, err := u.UpdateOrders(context.Background()); err != nil {
		t.Fatalf("UpdateOrders failed: %v", err)
	}
	if len(store.syncs) != 1 {
		t.Fatalf("Sync calls = %d, want 1", len(store.syncs))
	}
	if store.syncs[0].rateChanged {
		t.Error("rateChanged = true, want false")
	}
}

func TestUpdateOrders_NoSourceFile(t *testing.T) {
	store := &fakeStore{}
	u := New(testConfig(), store, &fakeRates{rate: dec("80")}, nil, nil)

	if _, err := u.UpdateOrders(context.Background()); err != nil {
		t.Fatalf("UpdateOrders failed: %v", err)
	}
	if len(store.syncs) != 0 {
		t.Error("Sync called without a source file")
	}
	if len(store.refreshes) != 1 || !store.refreshes[0].Equal(dec("80")) {
		t.Errorf("refreshes = %v, want [80]", store.refreshes)
	}
}

func TestUpdateOrders_Errors(t *testing.T) {
	errRates := errors.New("cbr down")
	errSync := errors.New("tx failed")

	tests := []struct {
		name      string
		rates     *fakeRates
		store     *fakeStore
		source    bool
		wantErr   error
		wantSaved bool
		wantInMsg string
	}{
		{
			name:      "rate fetch",
			rates:     &fakeRates{err: errRates},
			store:     &fakeStore{},
			wantErr:   errRates,
			wantSaved: true,
			wantInMsg: "retrieve USD exchange rate",
		},
		{
			name:      "sync",
			rates:     &fakeRates{rate: dec("70")},
			store:     &fakeStore{syncErr: errSync},
			source:    true,
			wantErr:   errSync,
			wantSaved: true,
			wantInMsg: "tx failed",
		},
		{
			name:      "create execution",
			rates:     &fakeRates{rate: dec("70")},
			store:     &fakeStore{createErr: errSync},
			wantErr:   errSync,
			wantSaved: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.source {
				cfg.SourceFile = writeSheet(t, sheetCSV, time.Now())
			}
			u := New(cfg, tt.store, tt.rates, nil, nil)

			exec, err := u.UpdateOrders(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}

			saved := tt.store.savedExecutions()
			if tt.wantSaved != (len(saved) == 1) {
				t.Fatalf("saved = %d executions, want saved %v", len(saved), tt.wantSaved)
			}
			if !tt.wantSaved {
				return
			}
			if exec.Status != orderstore.StatusError {
				t.Errorf("Status = %q, want error", exec.Status)
			}
			if len(exec.Errors) == 0 || !strings.Contains(exec.Errors[0], tt.wantInMsg) {
				t.Errorf("Errors = %v, want one containing %q", exec.Errors, tt.wantInMsg)
			}
		})
	}
}

func TestUpdateOrders_MissingSheet(t *testing.T) {
	cfg := testConfig()
	cfg.SourceFile = filepath.Join(t.TempDir(), "missing.csv")
	store := &fakeStore{}
	u := New(cfg, store, &fakeRates{rate: dec("70")}, nil, nil)

	exec, err := u.UpdateOrders(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
	// The mtime check and the read both fail.
	if len(exec.Errors) != 2 {
		t.Errorf("Errors = %v, want 2", exec.Errors)
	}
}

func TestUpdateOrders_RateCache(t *testing.T) {
	cfg := testConfig()
	cfg.RateTTL = time.Hour
	rates := &fakeRates{rate: dec("70")}
	u := New(cfg, &fakeStore{}, rates, nil, nil)

	for i := 0; i < 3; i++ {
		if _, err := u.UpdateOrders(context.Background()); err != nil {
			t.Fatalf("UpdateOrders failed: %v", err)
		}
	}
	if got := rates.calls.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}

	uncached := New(testConfig(), &fakeStore{}, rates, nil, nil)
	uncached.UpdateOrders(context.Background())
	uncached.UpdateOrders(context.Background())
	if got := rates.calls.Load(); got != 3 {
		t.Errorf("fetches = %d, want 3", got)
	}
}

func TestCheckExpiration(t *testing.T) {
	expired := []model.OrderItem{{ID: 4, OrderNumber: "1004", DeliveryDate: "2023-03-01"}}

	t.Run("notifies", func(t *testing.T) {
		var got []model.OrderItem
		store := &fakeStore{expired: expired}
		u := New(testConfig(), store, &fakeRates{}, notifierFunc(func(ctx context.Context, items []model.OrderItem) error {
			got = items
			return nil
		}), nil)

		items, err := u.CheckExpiration(context.Background())
		if err != nil {
			t.Fatalf("CheckExpiration failed: %v", err)
		}
		if len(items) != 1 || len(got) != 1 || got[0].ID != 4 {
			t.Errorf("items = %v, notified = %v", items, got)
		}
	})

	t.Run("nothing expired", func(t *testing.T) {
		called := false
		u := New(testConfig(), &fakeStore{}, &fakeRates{}, notifierFunc(func(ctx context.Context, items []model.OrderItem) error {
			called = true
			return nil
		}), nil)

		if _, err := u.CheckExpiration(context.Background()); err != nil {
			t.Fatalf("CheckExpiration failed: %v", err)
		}
		if called {
			t.Error("notifier called with nothing expired")
		}
	})

	t.Run("notifier error", func(t *testing.T) {
		errNotify := errors.New("send failed")
		u := New(testConfig(), &fakeStore{expired: expired}, &fakeRates{}, notifierFunc(func(ctx context.Context, items []model.OrderItem) error {
			return errNotify
		}), nil)

		if _, err := u.CheckExpiration(context.Background()); !errors.Is(err, errNotify) {
			t.Errorf("err = %v, want %v", err, errNotify)
		}
	})
}

func TestDeleteOldExecutions(t *testing.T) {
	now := time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{}
	u := New(testConfig(), store, &fakeRates{}, nil, nil)
	u.now = func() time.Time { return now }

	n, err := u.DeleteOldExecutions(context.Background())
	if err != nil {
		t.Fatalf("DeleteOldExecutions failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	want := now.Add(-7 * 24 * time.Hour)
	if len(store.cutoffs) != 1 || !store.cutoffs[0].Equal(want) {
		t.Errorf("cutoffs = %v, want [%v]", store.cutoffs, want)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	err := n.NotifyExpired(context.Background(), []model.OrderItem{
		{ID: 1, OrderNumber: "1001", DeliveryDate: "2023-03-01"},
		{ID: 2, OrderNumber: "1002", DeliveryDate: "2023-03-02"},
	})
	if err != nil {
		t.Fatalf("NotifyExpired failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"level=WARN", "count=2", "order 1001 (id 1, due 2023-03-01), order 1002 (id 2, due 2023-03-02)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestUpdater_StartStop(t *testing.T) {
	cfg := testConfig()
	cfg.Interval = time.Hour
	cfg.ExpirationInterval = time.Hour
	store := &fakeStore{}
	rates := &fakeRates{rate: dec("70")}
	u := New(cfg, store, rates, nil, nil)

	if err := u.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := u.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}

	// Update and expiration run before the first tick.
	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		ran := len(store.saved) == 1 && store.expireCalls == 1
		store.mu.Unlock()
		if ran {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("jobs did not run before the first tick")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := u.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := u.Stop(ctx); err != nil {
		t.Errorf("second Stop = %v, want nil", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.cutoffs) != 0 {
		t.Error("cleanup ran before its first tick")
	}
}

func TestUpdater_InvalidInterval(t *testing.T) {
	cfg := testConfig()
	cfg.ExpirationInterval = 0
	u := New(cfg, &fakeStore{}, &fakeRates{}, nil, nil)

	if err := u.Start(context.Background()); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("Start = %v, want ErrInvalidInterval", err)
	}
}
