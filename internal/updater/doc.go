// Package updater runs the order API's background jobs:
//
//   - update orders: fetch the ruble exchange rate, sync order_items from the
//     orders sheet and reprice cost_rub when the rate or the sheet changed.
//     Every run is recorded in update_executions with its errors.
//   - check expiration: flag items past their delivery date and notify.
//   - cleanup: drop run records older than the configured age.
//
// Each job runs on its own ticker; runs of one job never overlap.
package updater
