package workbook

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrDateColumnMissing = errors.New("date column not found")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidValue      = errors.New("invalid value")
)

// ParseError reports where the workbook could not be read. Row is 1-based as
// shown by spreadsheet programs; zero means the whole sheet.
type ParseError struct {
	Sheet  string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sheet %q", e.Sheet)
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " value %q", e.Value)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
