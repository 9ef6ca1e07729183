// Package database provides the PostgreSQL connection pool for the order API.
//
// The order_items table is the source of truth the dashboard polls through
// GET /api/order-items. The dashboard itself never touches the database.
package database
