package view

import (
	"math"

	"github.com/rickgao/orders-dashboard/internal/aggregate"
	"github.com/rickgao/orders-dashboard/internal/model"
)

// Chart canvas geometry, in SVG user units.
const (
	ChartWidth  = 700
	ChartHeight = 500

	plotLeft   = 60
	plotTop    = 20
	plotRight  = 20
	plotBottom = 60
	plotWidth  = ChartWidth - plotLeft - plotRight
	plotHeight = ChartHeight - plotTop - plotBottom

	tickCount = 5
)

// Bar is one record on the chart.
type Bar struct {
	Index int     // Position in the input sequence
	Label string  // delivery_date, category axis
	Value float64 // cost_usd, value axis (NaN if unparseable)
	Raw   string  // cost_usd as received

	X, Y, Width, Height float64
}

// Tick is a value-axis gridline.
type Tick struct {
	Value float64
	Label string
	Y     float64
}

// ChartView is a bar chart of cost_usd by delivery_date.
type ChartView struct {
	AxisMax float64 // Upper bound of the value axis; NaN when undefined
	Bars    []Bar
	Ticks   []Tick

	Width, Height         float64
	PlotLeft, PlotTop     float64
	PlotWidth, PlotHeight float64
	PlotBottom, PlotRight float64
}

// Drawable reports whether the value axis has a usable upper bound.
func (c ChartView) Drawable() bool {
	return !math.IsNaN(c.AxisMax) && !math.IsInf(c.AxisMax, 0) && c.AxisMax > 0
}

// Chart builds the chart view. One bar per record, keyed by array position.
func Chart(items []model.OrderItem) ChartView {
	cv := ChartView{
		AxisMax:    aggregate.MaxCostUSD(items),
		Bars:       make([]Bar, len(items)),
		Width:      ChartWidth,
		Height:     ChartHeight,
		PlotLeft:   plotLeft,
		PlotTop:    plotTop,
		PlotWidth:  plotWidth,
		PlotHeight: plotHeight,
		PlotBottom: plotTop + plotHeight,
		PlotRight:  plotLeft + plotWidth,
	}

	var slot float64
	if len(items) > 0 {
		slot = float64(plotWidth) / float64(len(items))
	}

	for i, item := range items {
		bar := Bar{
			Index: i,
			Label: item.DeliveryDate,
			Value: item.CostUSD.Float64(),
			Raw:   item.CostUSD.String(),
			X:     plotLeft + float64(i)*slot + slot*0.1,
			Width: slot * 0.8,
		}
		bar.Height = barHeight(bar.Value, cv)
		bar.Y = plotTop + plotHeight - bar.Height
		cv.Bars[i] = bar
	}

	if cv.Drawable() {
		cv.Ticks = make([]Tick, 0, tickCount+1)
		for i := 0; i <= tickCount; i++ {
			v := cv.AxisMax * float64(i) / tickCount
			cv.Ticks = append(cv.Ticks, Tick{
				Value: v,
				Label: FormatNumber(v),
				Y:     plotTop + plotHeight - plotHeight*float64(i)/tickCount,
			})
		}
	}

	return cv
}

// barHeight scales v onto the plot. Non-finite or negative values get no bar.
func barHeight(v float64, cv ChartView) float64 {
	if !cv.Drawable() || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return v / cv.AxisMax * plotHeight
}
