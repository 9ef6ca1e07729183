package updater

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/orders-dashboard/internal/model"
)

// Notifier is told about items that just passed their delivery date.
type Notifier interface {
	NotifyExpired(ctx context.Context, items []model.OrderItem) error
}

// LogNotifier reports expired items to a logger at warn level.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyExpired(ctx context.Context, items []model.OrderItem) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "order items expired",
		"count", len(items),
		"items", ExpiredMessage(items),
	)
	return nil
}

// ExpiredMessage lists items as "order <number> (id <id>, due <date>)".
func ExpiredMessage(items []model.OrderItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("order %s (id %d, due %s)", item.OrderNumber, item.ID, item.DeliveryDate)
	}
	return strings.Join(parts, ", ")
}
