// Package category maps instrument names to display categories.
//
// Lookups are exact string matches. Instruments that are not listed fall back
// to Uncategorized instead of failing.
package category

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

const (
	// Uncategorized is assigned to instruments missing from a table.
	Uncategorized = "Outros"

	// All is the filter value that selects every category.
	All = "Todos"

	TableReturns = "returns"
	TableRisk    = "risk"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type group struct {
	Category    string   `yaml:"category"`
	Instruments []string `yaml:"instruments"`
}

type glossaryEntry struct {
	Instrument  string `yaml:"instrument"`
	Description string `yaml:"description"`
}

type catalogFile struct {
	Tables   map[string][]group `yaml:"tables"`
	Glossary []glossaryEntry    `yaml:"glossary"`
}

// Table is one instrument -> category lookup.
type Table struct {
	name       string
	entries    map[string]string
	categories []string
	conflicts  []domain.CategoryConflict
}

// NewTable builds a table from (instrument, category) pairs in definition
// order. A repeated instrument with a different label is recorded as a
// conflict and the later label wins.
func NewTable(name string, pairs [][2]string) *Table {
	t := &Table{name: name, entries: make(map[string]string, len(pairs))}
	seen := make(map[string]bool)
	for _, p := range pairs {
		instrument, label := p[0], p[1]
		if prev, ok := t.entries[instrument]; ok && prev != label {
			t.conflicts = append(t.conflicts, domain.CategoryConflict{
				Table:      name,
				Instrument: instrument,
				Previous:   prev,
				Current:    label,
			})
		}
		t.entries[instrument] = label
		if !seen[label] {
			seen[label] = true
			t.categories = append(t.categories, label)
		}
	}

	// drop labels that lost every instrument to a later definition
	used := make(map[string]bool, len(t.entries))
	for _, label := range t.entries {
		used[label] = true
	}
	kept := t.categories[:0]
	for _, c := range t.categories {
		if used[c] {
			kept = append(kept, c)
		}
	}
	t.categories = kept
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Lookup returns the category of instrument, or Uncategorized.
func (t *Table) Lookup(instrument string) string {
	if t == nil {
		return Uncategorized
	}
	if c, ok := t.entries[instrument]; ok {
		return c
	}
	return Uncategorized
}

// Categories lists the labels in definition order.
func (t *Table) Categories() []string {
	out := make([]string, len(t.categories))
	copy(out, t.categories)
	return out
}

// Conflicts returns the duplicate definitions found while building the table.
func (t *Table) Conflicts() []domain.CategoryConflict {
	out := make([]domain.CategoryConflict, len(t.conflicts))
	copy(out, t.conflicts)
	return out
}

// Entries returns a copy of the lookup map.
func (t *Table) Entries() map[string]string {
	out := make(map[string]string, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// IsAll reports whether filter selects every category.
func IsAll(filter string) bool {
	f := strings.TrimSpace(filter)
	return f == "" || strings.EqualFold(f, All) || strings.EqualFold(f, "all")
}

// Matches reports whether category passes filter.
func Matches(filter, category string) bool {
	return IsAll(filter) || strings.TrimSpace(filter) == category
}

// Catalog bundles the lookup tables and the instrument glossary.
type Catalog struct {
	tables   map[string]*Table
	glossary []glossaryEntry
	index    map[string]string
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open category catalog: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a catalog from r.
func Read(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read category catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse category catalog: %w", err)
	}
	for _, name := range []string{TableReturns, TableRisk} {
		if _, ok := file.Tables[name]; !ok {
			return nil, fmt.Errorf("category catalog: missing table %q", name)
		}
	}

	c := &Catalog{
		tables:   make(map[string]*Table, len(file.Tables)),
		glossary: file.Glossary,
		index:    make(map[string]string, len(file.Glossary)),
	}
	for name, groups := range file.Tables {
		var pairs [][2]string
		for _, g := range groups {
			for _, inst := range g.Instruments {
				pairs = append(pairs, [2]string{inst, g.Category})
			}
		}
		c.tables[name] = NewTable(name, pairs)
	}
	for _, e := range file.Glossary {
		c.index[e.Instrument] = e.Description
	}
	return c, nil
}

// Table returns the named table or nil.
func (c *Catalog) Table(name string) *Table {
	return c.tables[name]
}

// Returns is the table used by the return views.
func (c *Catalog) Returns() *Table {
	return c.tables[TableReturns]
}

// Risk is the table used by the volatility views.
func (c *Catalog) Risk() *Table {
	return c.tables[TableRisk]
}

// Conflicts collects conflicts of every table, returns table first.
func (c *Catalog) Conflicts() []domain.CategoryConflict {
	var out []domain.CategoryConflict
	out = append(out, c.Returns().Conflicts()...)
	out = append(out, c.Risk().Conflicts()...)
	for name, t := range c.tables {
		if name == TableReturns || name == TableRisk {
			continue
		}
		out = append(out, t.Conflicts()...)
	}
	return out
}

// Describe returns the glossary description of instrument.
func (c *Catalog) Describe(instrument string) (string, bool) {
	d, ok := c.index[instrument]
	return d, ok
}

// Glossary returns the glossary as ordered (instrument, description) pairs.
func (c *Catalog) Glossary() [][2]string {
	out := make([][2]string, len(c.glossary))
	for i, e := range c.glossary {
		out[i] = [2]string{e.Instrument, e.Description}
	}
	return out
}
