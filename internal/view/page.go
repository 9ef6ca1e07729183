package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/rickgao/orders-dashboard/internal/aggregate"
	"github.com/rickgao/orders-dashboard/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("dashboard.html").
		Funcs(template.FuncMap{"coord": coord}).
		ParseFS(templateFS, "templates/dashboard.html"),
)

// Page is the full dashboard: chart, total and table for one snapshot.
type Page struct {
	Title      string
	SnapshotID string // Empty before the first successful poll
	FetchedAt  time.Time
	Chart      ChartView
	Total      TotalView
	Table      TableView
}

// HasData reports whether a poll has completed.
func (p Page) HasData() bool {
	return p.SnapshotID != ""
}

// Build assembles the page for a snapshot.
func Build(snap model.Snapshot) Page {
	p := Page{
		Title:     "Order items",
		FetchedAt: snap.FetchedAt,
		Chart:     Chart(snap.Items),
		Total:     TotalDisplay(aggregate.Total(snap.Items)),
		Table:     Table(snap.Items),
	}
	if !snap.IsZero() {
		p.SnapshotID = snap.ID.String()
	}
	return p
}

// Render writes the page as HTML.
func Render(w io.Writer, p Page) error {
	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

func coord(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
