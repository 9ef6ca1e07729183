// Package model defines the data types shared by the dashboard and the order API.
//
// Conventions:
//   - Money fields (cost_usd, cost_rub) travel as Amount, which keeps the value
//     exactly as the upstream sent it (decimal string or JSON number)
//   - Parsing to float64 happens only at aggregation/charting time; text that is
//     not a number parses to NaN
//   - Snapshots are identified by uuid.UUID and never mutated after publish
package model
