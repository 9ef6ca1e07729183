package view

import "strconv"

// TotalLabel is the caption of the total display.
const TotalLabel = "Total"

// TotalView shows the aggregate without any currency formatting.
type TotalView struct {
	Label string
	Value string
}

// TotalDisplay renders a total as-is: no symbol, no decimal clamping.
func TotalDisplay(total float64) TotalView {
	return TotalView{Label: TotalLabel, Value: FormatNumber(total)}
}

// FormatNumber prints the shortest decimal form of v ("30.5", "0", "NaN").
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
