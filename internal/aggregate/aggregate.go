// Package aggregate computes numeric summaries over a batch of order items.
//
// Costs are parsed with model.Amount.Float64, so a cost that is not a number
// makes the result NaN instead of an error.
package aggregate

import (
	"math"

	"github.com/rickgao/orders-dashboard/internal/model"
)

// Total returns the sum of cost_usd over all items. Empty input yields 0.
func Total(items []model.OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.CostUSD.Float64()
	}
	return total
}

// MaxCostUSD returns the largest cost_usd. Empty input yields NaN, since the
// maximum of an empty set is undefined.
func MaxCostUSD(items []model.OrderItem) float64 {
	if len(items) == 0 {
		return math.NaN()
	}

	highest := math.Inf(-1)
	for _, item := range items {
		v := item.CostUSD.Float64()
		if math.IsNaN(v) {
			return math.NaN()
		}
		if v > highest {
			highest = v
		}
	}
	return highest
}
