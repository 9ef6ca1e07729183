package view

import (
	"strconv"

	"github.com/rickgao/orders-dashboard/internal/model"
)

// Column is one fixed table column.
type Column struct {
	Key    string // JSON field name
	Header string
}

// Columns are the table's columns, in display order.
var Columns = []Column{
	{Key: "id", Header: "ID"},
	{Key: "order_number", Header: "Order"},
	{Key: "cost_usd", Header: "Cost, $"},
	{Key: "cost_rub", Header: "Cost, RUB"},
	{Key: "delivery_date", Header: "Delivery date"},
}

// Row is one record; Cells follow Columns.
type Row struct {
	Key   int64
	Cells []string
}

// TableView lists every record.
type TableView struct {
	Columns []Column
	Rows    []Row
}

// Table builds one row per record, in input order, with values as received.
func Table(items []model.OrderItem) TableView {
	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = Row{
			Key: item.ID,
			Cells: []string{
				strconv.FormatInt(item.ID, 10),
				item.OrderNumber.String(),
				item.CostUSD.String(),
				item.CostRUB.String(),
				item.DeliveryDate,
			},
		}
	}
	return TableView{Columns: Columns, Rows: rows}
}
