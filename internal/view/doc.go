// Package view maps order items to the dashboard's three presentational
// views (chart, total, table) and renders them as one HTML page.
//
// Every function here is pure: the same snapshot always yields the same view.
package view
