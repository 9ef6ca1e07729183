// Package api provides the HTTP clients the two binaries poll.
//
// The dashboard polls the order-items endpoint, which answers GET with a JSON
// array of order items:
//
//	[{"id": 1, "order_number": 1001, "cost_usd": "10.50", "cost_rub": "787.50", "delivery_date": "2023-03-01"}]
//
// The order API polls the central bank's daily rates XML (windows-1251) for
// the ruble exchange rate used to price cost_rub.
//
// Failures are classified as *NetworkError (transport or non-2xx status) or
// *ParseError (body could not be decoded). There is no retry.
package api
