// Package poller implements the order-items poller.
//
// The poller:
//   - Fetches the order-items feed immediately on Start, then every interval
//   - Runs fetches one at a time; ticks that fire during a slow fetch are coalesced
//   - Publishes each successful batch to a single UpdateFunc
//   - Drops failed ticks (logged, never surfaced to the UpdateFunc)
//   - Never calls the UpdateFunc once Stop has returned
package poller
