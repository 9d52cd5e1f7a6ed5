package exporter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// formatFloat formats a float64 value with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatValue renders a present value like formatFloat and a missing one as
// an empty cell
func formatValue(v domain.Value) string {
	if v.IsNull() {
		return ""
	}
	return formatFloat(v.Float)
}

// formatPlain renders a present value with the shortest exact representation
func formatPlain(v domain.Value) string {
	if v.IsNull() {
		return ""
	}
	return strconv.FormatFloat(v.Float, 'f', -1, 64)
}

// formatInt formats an int value, leaving zero empty
func formatInt(i int) string {
	if i == 0 {
		return ""
	}
	return strconv.Itoa(i)
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func formatMonth(t time.Time) string {
	return t.Format("2006-01")
}
