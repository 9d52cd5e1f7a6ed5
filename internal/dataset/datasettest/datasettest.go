// Package datasettest builds in-memory workbooks for tests.
package datasettest

import (
	"context"
	"math"
	"time"

	"github.com/Pittuba/dash-mercado/internal/category"
	"github.com/Pittuba/dash-mercado/internal/dataset"
	"github.com/Pittuba/dash-mercado/internal/workbook"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// Missing marks an absent cell in Row.
var Missing = math.NaN()

// Date is a UTC calendar day.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Row builds a table row. Pass Missing for absent cells.
func Row(date time.Time, values ...float64) workbook.Row {
	vs := make([]domain.Value, len(values))
	for i, v := range values {
		vs[i] = domain.Some(v)
	}
	return workbook.Row{Date: date, Values: vs}
}

// Table builds a sheet.
func Table(sheet domain.Sheet, columns []string, rows ...workbook.Row) *workbook.Table {
	return &workbook.Table{Sheet: sheet, Name: string(sheet), Columns: columns, Rows: rows}
}

// Workbook assembles tables. Sheets not given are created empty.
func Workbook(tables ...*workbook.Table) *workbook.Workbook {
	wb := &workbook.Workbook{
		Source:   "memory",
		LoadedAt: Date(2024, 1, 1),
		Tables:   make(map[domain.Sheet]*workbook.Table),
	}
	for _, sheet := range domain.Sheets {
		wb.Tables[sheet] = &workbook.Table{Sheet: sheet, Name: string(sheet)}
	}
	for _, t := range tables {
		wb.Tables[t.Sheet] = t
	}
	return wb
}

// Catalog builds a catalog with the given returns and risk entries.
func Catalog(returns, risk map[string]string) *category.Catalog {
	doc := "tables:\n  returns:\n" + groups(returns) + "  risk:\n" + groups(risk)
	c, err := category.Parse([]byte(doc))
	if err != nil {
		panic(err)
	}
	return c
}

func groups(entries map[string]string) string {
	if len(entries) == 0 {
		return "    []\n"
	}
	out := ""
	for inst, cat := range entries {
		out += "    - category: \"" + cat + "\"\n      instruments: [\"" + inst + "\"]\n"
	}
	return out
}

// Context wraps tables in a snapshot using the given catalog.
func Context(catalog *category.Catalog, tables ...*workbook.Table) *dataset.Context {
	return dataset.NewContext(Workbook(tables...), catalog, 1)
}

// StaticLoader returns the same workbook on every call.
type StaticLoader struct {
	Workbook *workbook.Workbook
	Err      error
	Calls    int
}

// Load implements dataset.WorkbookLoader.
func (l *StaticLoader) Load(_ context.Context, _ string) (*workbook.Workbook, error) {
	l.Calls++
	return l.Workbook, l.Err
}
