// Package workbook reads the indicators spreadsheet into date-keyed tables.
//
// The workbook carries five sheets (return, risk, inflation, rates and
// duration). Each has a date column followed by one column per instrument.
// Sheet names are matched against English and Portuguese aliases.
package workbook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Pittuba/dash-mercado/internal/percent"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// SheetAliases maps each logical sheet to the tab names it may appear under.
var SheetAliases = map[domain.Sheet][]string{
	domain.SheetReturn:    {"Return", "Retorno", "Returns"},
	domain.SheetRisk:      {"Risk", "Risco", "Volatility"},
	domain.SheetInflation: {"Inflation", "Inflacao", "Inflação"},
	domain.SheetRates:     {"Rates", "Taxas"},
	domain.SheetDuration:  {"Duration"},
}

// DateHeaders are the accepted names of the date column.
var DateHeaders = []string{"Date", "Data"}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"02/01/2006 15:04:05",
	"2/1/2006",
	"02-01-2006",
}

// Loader parses workbooks.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "workbook_loader"))}
}

// Load opens the workbook at path and parses every required sheet.
func (l *Loader) Load(ctx context.Context, path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return l.parse(ctx, f, path)
}

// Read parses a workbook from r. source is only used for reporting.
func (l *Loader) Read(ctx context.Context, r io.Reader, source string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return l.parse(ctx, f, source)
}

func (l *Loader) parse(ctx context.Context, f *excelize.File, source string) (*Workbook, error) {
	start := time.Now()
	names := f.GetSheetList()

	// Rows are pulled sequentially; cell parsing fans out per sheet.
	raw := make(map[domain.Sheet][][]string, len(domain.Sheets))
	found := make(map[domain.Sheet]string, len(domain.Sheets))
	for _, sheet := range domain.Sheets {
		name, ok := resolveSheet(names, sheet)
		if !ok {
			return nil, &ParseError{Sheet: string(sheet), Err: ErrSheetNotFound}
		}
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &ParseError{Sheet: name, Err: err}
		}
		raw[sheet] = rows
		found[sheet] = name
	}

	tables := make([]*Table, len(domain.Sheets))
	g, gctx := errgroup.WithContext(ctx)
	for i, sheet := range domain.Sheets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := l.parseSheet(sheet, found[sheet], raw[sheet])
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	wb := &Workbook{
		Source:   source,
		LoadedAt: time.Now(),
		Tables:   make(map[domain.Sheet]*Table, len(tables)),
	}
	for _, t := range tables {
		wb.Tables[t.Sheet] = t
		l.logger.Debug("sheet parsed",
			slog.String("sheet", t.Name),
			slog.Int("rows", len(t.Rows)),
			slog.Int("instruments", len(t.Columns)))
	}

	l.logger.Info("workbook loaded",
		slog.String("source", source),
		slog.Duration("duration", time.Since(start)))
	return wb, nil
}

func resolveSheet(names []string, sheet domain.Sheet) (string, bool) {
	for _, alias := range SheetAliases[sheet] {
		for _, name := range names {
			if strings.EqualFold(strings.TrimSpace(name), alias) {
				return name, true
			}
		}
	}
	return "", false
}

func (l *Loader) parseSheet(sheet domain.Sheet, name string, rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, &ParseError{Sheet: name, Err: ErrDateColumnMissing}
	}

	header := rows[0]
	dateCol := -1
	columns := make([]string, 0, len(header))
	positions := make([]int, 0, len(header))
	seen := make(map[string]bool, len(header))

	for i, cell := range header {
		h := strings.TrimSpace(cell)
		if h == "" {
			continue
		}
		if dateCol < 0 && isDateHeader(h) {
			dateCol = i
			continue
		}
		if seen[h] {
			l.logger.Warn("duplicate instrument column ignored",
				slog.String("sheet", name),
				slog.String("instrument", h))
			continue
		}
		seen[h] = true
		columns = append(columns, h)
		positions = append(positions, i)
	}
	if dateCol < 0 {
		return nil, &ParseError{Sheet: name, Row: 1, Err: ErrDateColumnMissing}
	}

	t := &Table{
		Sheet:   sheet,
		Name:    name,
		Columns: columns,
		Rows:    make([]Row, 0, len(rows)-1),
	}

	for r := 1; r < len(rows); r++ {
		line := rows[r]
		dateCell := cellAt(line, dateCol)
		if strings.TrimSpace(dateCell) == "" {
			continue
		}
		date, err := ParseDate(dateCell)
		if err != nil {
			return nil, &ParseError{Sheet: name, Row: r + 1, Column: header[dateCol], Value: dateCell, Err: err}
		}

		values := make([]domain.Value, len(columns))
		for c, pos := range positions {
			cell := cellAt(line, pos)
			v, ok, err := percent.Parse(cell)
			if err != nil {
				return nil, &ParseError{Sheet: name, Row: r + 1, Column: columns[c], Value: cell, Err: ErrInvalidValue}
			}
			if ok {
				values[c] = domain.Some(v)
			}
		}
		t.Rows = append(t.Rows, Row{Date: date, Values: values})
	}

	t.sortRows()
	return t, nil
}

func isDateHeader(h string) bool {
	for _, d := range DateHeaders {
		if strings.EqualFold(h, d) {
			return true
		}
	}
	return false
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// maxExcelSerial is 9999-12-31, the last day Excel can represent
const maxExcelSerial = 2958465

// ParseDate accepts Excel serial numbers and day-first text dates. The result
// is truncated to the calendar day in UTC. Numbers outside Excel's date range
// are rejected rather than read as far-future serials.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if !(serial >= 1 && serial < maxExcelSerial+1) {
			return time.Time{}, fmt.Errorf("%w: %s is outside the Excel date range", ErrInvalidDate, s)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
		return day(t), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return day(t), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
