package workbook

import (
	"sort"
	"time"

	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// Row is one dated line of a sheet. Values are aligned with Table.Columns.
type Row struct {
	Date   time.Time
	Values []domain.Value
}

// Table is a parsed sheet in wide layout: one column per instrument.
type Table struct {
	Sheet   domain.Sheet
	Name    string
	Columns []string
	Rows    []Row
}

// Column returns the index of the named instrument or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// First returns the earliest row date.
func (t *Table) First() time.Time {
	if len(t.Rows) == 0 {
		return time.Time{}
	}
	return t.Rows[0].Date
}

// Last returns the latest row date.
func (t *Table) Last() time.Time {
	if len(t.Rows) == 0 {
		return time.Time{}
	}
	return t.Rows[len(t.Rows)-1].Date
}

// Summary describes the table shape.
func (t *Table) Summary() domain.SheetSummary {
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	return domain.SheetSummary{
		Sheet:       t.Sheet,
		Rows:        len(t.Rows),
		Instruments: cols,
		First:       t.First(),
		Last:        t.Last(),
	}
}

func (t *Table) sortRows() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].Date.Before(t.Rows[j].Date)
	})
}

// Workbook holds every sheet required by the indicators.
type Workbook struct {
	Source   string
	LoadedAt time.Time
	Tables   map[domain.Sheet]*Table
}

// Table returns the parsed sheet, or nil when it was not loaded.
func (w *Workbook) Table(sheet domain.Sheet) *Table {
	if w == nil {
		return nil
	}
	return w.Tables[sheet]
}
