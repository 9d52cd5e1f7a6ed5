// Package period turns a (year, month, length) selection into a concrete
// date window. Windows always cover whole calendar months and end on the
// last calendar day of the reference month.
package period

import (
	"errors"
	"fmt"
	"time"

	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// Lengths are the window sizes offered to users, in months.
var Lengths = []int{3, 6, 12, 24, 36}

// DefaultLength is used when a caller does not pick a window.
const DefaultLength = 3

var (
	ErrInvalidLength = errors.New("window length must be at least one month")
	ErrInvalidMonth  = errors.New("month must be between 1 and 12")
	ErrOutOfRange    = errors.New("period outside available data")
)

// InvalidWindowError reports a rejected window request.
type InvalidWindowError struct {
	Year   int
	Month  int
	Length int
	Err    error
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid window %04d-%02d/%d: %v", e.Year, e.Month, e.Length, e.Err)
}

func (e *InvalidWindowError) Unwrap() error {
	return e.Err
}

// Resolve returns the window of length months ending at the last day of
// (year, month). It never clamps.
func Resolve(year, month, length int) (domain.Window, error) {
	if length < 1 {
		return domain.Window{}, &InvalidWindowError{Year: year, Month: month, Length: length, Err: ErrInvalidLength}
	}
	if month < 1 || month > 12 {
		return domain.Window{}, &InvalidWindowError{Year: year, Month: month, Length: length, Err: ErrInvalidMonth}
	}

	end := MonthEnd(year, time.Month(month))
	start := time.Date(year, time.Month(month)-time.Month(length-1), 1, 0, 0, 0, 0, time.UTC)
	return domain.Window{Start: start, End: end, Months: length}, nil
}

// Month is the single-month window of (year, month).
func Month(year, month int) (domain.Window, error) {
	return Resolve(year, month, 1)
}

// YearToDate spans Jan 1 of year through the end of month.
func YearToDate(year, month int) (domain.Window, error) {
	if month < 1 || month > 12 {
		return domain.Window{}, &InvalidWindowError{Year: year, Month: month, Length: month, Err: ErrInvalidMonth}
	}
	return Resolve(year, month, month)
}

// Seeded extends w one month back so chained ratios have a base value.
func Seeded(w domain.Window) domain.Window {
	return domain.Window{
		Start:  w.Start.AddDate(0, -1, 0),
		End:    w.End,
		Months: w.Months + 1,
	}
}

// MonthEnd is the last calendar day of (year, month).
func MonthEnd(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// MonthStart is the first day of the month containing t.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Resolver validates windows against the months present in the data.
type Resolver struct {
	first time.Time
	last  time.Time
}

// NewResolver bounds resolution to the months between first and last.
func NewResolver(first, last time.Time) *Resolver {
	return &Resolver{first: MonthStart(first), last: MonthStart(last)}
}

// Resolve is the package Resolve plus a range check on the reference month.
// Only the reference month has to be available; a long window may start
// before the first observation and will simply hold fewer points.
func (r *Resolver) Resolve(year, month, length int) (domain.Window, error) {
	w, err := Resolve(year, month, length)
	if err != nil {
		return w, err
	}
	ref := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	if r.first.IsZero() || ref.Before(r.first) || ref.After(r.last) {
		return domain.Window{}, &InvalidWindowError{Year: year, Month: month, Length: length, Err: ErrOutOfRange}
	}
	return w, nil
}

// Bounds returns the first and last available months.
func (r *Resolver) Bounds() (time.Time, time.Time) {
	return r.first, r.last
}
