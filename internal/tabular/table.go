// Package tabular reads and writes the registry extracts consumed and
// produced by the batch commands, as CSV or XLSX.
package tabular

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumns is returned when an input lacks a required header. It is
// fatal: no row is processed and no output is written.
var ErrMissingColumns = errors.New("missing required columns")

// Table is a header plus string rows. Rows shorter than the header read as
// blank in the missing cells.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

func NewTable(header ...string) *Table {
	t := &Table{Header: header}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		name = strings.TrimSpace(name)
		t.Header[i] = name
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
}

// Append adds a row. Values are stored as given.
func (t *Table) Append(values ...string) {
	t.Rows = append(t.Rows, values)
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the header contains column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Get returns the trimmed value of column in row i, or "" if either is absent.
func (t *Table) Get(i int, column string) string {
	col, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.Rows) {
		return ""
	}
	row := t.Rows[i]
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Require checks the header for every column, reporting all missing ones.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s (detected headers: %s)", ErrMissingColumns,
			strings.Join(missing, ", "), strings.Join(t.Header, ", "))
	}
	return nil
}
