// Package state holds the dashboard's single piece of process-local state:
// the most recently fetched snapshot of order items.
//
// Exactly one writer (the poller's update callback) calls Set. Readers call Get
// or Subscribe; subscribers always see the newest snapshot and never block Set.
package state

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/orders-dashboard/internal/model"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("state cell closed")

// Cell stores the latest snapshot and fans it out to subscribers.
type Cell struct {
	mu      sync.RWMutex
	current model.Snapshot
	subs    map[uuid.UUID]chan model.Snapshot
	closed  bool

	now func() time.Time
}

// NewCell creates an empty cell.
func NewCell() *Cell {
	return &Cell{
		subs: make(map[uuid.UUID]chan model.Snapshot),
		now:  time.Now,
	}
}

// Set replaces the current snapshot with a new one built from items and
// notifies subscribers. Items must not be modified afterwards.
func (c *Cell) Set(items []model.OrderItem) model.Snapshot {
	snap := model.NewSnapshot(items, c.now())

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return snap
	}
	c.current = snap

	for _, ch := range c.subs {
		// Keep only the newest snapshot pending.
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}

	return snap
}

// Get returns the current snapshot. It is the zero Snapshot before the first Set.
func (c *Cell) Get() model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Subscribe returns a channel that receives the current snapshot (if any) and
// every later one. The channel is closed by the returned cancel func or by Close.
func (c *Cell) Subscribe() (<-chan model.Snapshot, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, nil, ErrClosed
	}

	id := uuid.New()
	ch := make(chan model.Snapshot, 1)
	if !c.current.IsZero() {
		ch <- c.current
	}
	c.subs[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}

	return ch, cancel, nil
}

// Subscribers returns the number of active subscriptions.
func (c *Cell) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Close closes every subscription. Later Sets are ignored.
func (c *Cell) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}
