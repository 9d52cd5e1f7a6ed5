// Package dataset holds the loaded workbook as an immutable snapshot and
// swaps snapshots atomically on reload.
package dataset

import (
	"sort"
	"time"

	"github.com/Pittuba/dash-mercado/internal/category"
	"github.com/Pittuba/dash-mercado/internal/period"
	"github.com/Pittuba/dash-mercado/internal/workbook"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// Context is one immutable snapshot of the workbook. Computations receive it
// by reference and must not modify it.
type Context struct {
	Workbook *workbook.Workbook
	Catalog  *category.Catalog
	Version  int64

	long map[domain.Sheet][]domain.Observation
}

// NewContext melts every sheet once. The return and rates sheets are
// categorised with the returns table, the risk sheet with the risk table.
func NewContext(wb *workbook.Workbook, catalog *category.Catalog, version int64) *Context {
	c := &Context{
		Workbook: wb,
		Catalog:  catalog,
		Version:  version,
		long:     make(map[domain.Sheet][]domain.Observation, len(domain.Sheets)),
	}
	for _, sheet := range domain.Sheets {
		var lookup Lookup
		switch sheet {
		case domain.SheetRisk:
			lookup = catalog.Risk()
		case domain.SheetInflation:
			lookup = nil
		default:
			lookup = catalog.Returns()
		}
		c.long[sheet] = Melt(wb.Table(sheet), lookup)
	}
	return c
}

// Table returns the wide table of sheet.
func (c *Context) Table(sheet domain.Sheet) *workbook.Table {
	return c.Workbook.Table(sheet)
}

// Long returns the melted observations of sheet. Callers must not modify
// the slice.
func (c *Context) Long(sheet domain.Sheet) []domain.Observation {
	return c.long[sheet]
}

// Observations counts every melted observation.
func (c *Context) Observations() int {
	n := 0
	for _, obs := range c.long {
		n += len(obs)
	}
	return n
}

// Resolver bounds window resolution to the months present in sheet.
func (c *Context) Resolver(sheet domain.Sheet) *period.Resolver {
	t := c.Table(sheet)
	if t == nil || len(t.Rows) == 0 {
		return &period.Resolver{}
	}
	return period.NewResolver(t.First(), t.Last())
}

// Periods lists the years and months with a month-end closing in sheet.
func (c *Context) Periods(sheet domain.Sheet) domain.Periods {
	p := domain.Periods{Months: map[int][]int{}}
	t := c.Table(sheet)
	if t == nil {
		return p
	}
	seen := make(map[[2]int]bool)
	for _, row := range t.Rows {
		key := [2]int{row.Date.Year(), int(row.Date.Month())}
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, ok := p.Months[key[0]]; !ok {
			p.Years = append(p.Years, key[0])
		}
		p.Months[key[0]] = append(p.Months[key[0]], key[1])
	}
	sort.Ints(p.Years)
	for _, months := range p.Months {
		sort.Ints(months)
	}
	return p
}

// LastDate returns the most recent date of sheet.
func (c *Context) LastDate(sheet domain.Sheet) time.Time {
	t := c.Table(sheet)
	if t == nil {
		return time.Time{}
	}
	return t.Last()
}

// Info summarises the snapshot.
func (c *Context) Info() domain.DatasetInfo {
	info := domain.DatasetInfo{
		Source:    c.Workbook.Source,
		LoadedAt:  c.Workbook.LoadedAt,
		Version:   c.Version,
		Conflicts: c.Catalog.Conflicts(),
	}
	for _, sheet := range domain.Sheets {
		if t := c.Table(sheet); t != nil {
			info.Sheets = append(info.Sheets, t.Summary())
		}
	}
	return info
}
