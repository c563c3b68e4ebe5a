package table

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownColumn is returned when an operation names a column the table does not have.
var ErrUnknownColumn = errors.New("unknown column")

// Table is a header plus rows of string cells.
// Every row has exactly len(Header) cells.
type Table struct {
	header []string
	index  map[string]int
	rows   [][]string
	lines  []int
}

// New returns an empty table with the given header.
func New(header ...string) *Table {
	t := &Table{}
	t.setHeader(append([]string(nil), header...))
	return t
}

func (t *Table) setHeader(h []string) {
	t.header = h
	t.index = make(map[string]int, len(h))
	for i, name := range h {
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
}

// Header returns a copy of the column names.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Has reports whether the table has a column with this name.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Append adds a row. Short rows are padded with empty cells, long rows are truncated.
// line is the source line number, or 0 when the row was built in memory.
func (t *Table) Append(line int, cells ...string) {
	row := make([]string, len(t.header))
	copy(row, cells)
	t.rows = append(t.rows, row)
	t.lines = append(t.lines, line)
}

// Line returns the source line of row i (0 if unknown).
func (t *Table) Line(i int) int {
	return t.lines[i]
}

// Get returns the cell at row i in column col, or "" when the column is absent.
func (t *Table) Get(i int, col string) string {
	c, ok := t.index[col]
	if !ok {
		return ""
	}
	return t.rows[i][c]
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []string {
	return append([]string(nil), t.rows[i]...)
}

// Map applies fn to every cell of the named columns.
// All names are checked before any cell is touched, so an unknown column leaves the table unchanged.
func (t *Table) Map(fn func(string) string, cols ...string) error {
	idx := make([]int, 0, len(cols))
	var missing []string
	for _, col := range cols {
		c, ok := t.index[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx = append(idx, c)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(missing, ", "), ErrUnknownColumn)
	}
	for _, row := range t.rows {
		for _, c := range idx {
			row[c] = fn(row[c])
		}
	}
	return nil
}

// Rename renames columns according to mapping (source name -> target name).
// Header names are matched after trimming surrounding whitespace, and
// case-insensitively when no exact match exists. Unmatched mapping keys are ignored.
func (t *Table) Rename(mapping map[string]string) {
	exact := make(map[string]string, len(mapping))
	folded := make(map[string]string, len(mapping))
	for from, to := range mapping {
		exact[strings.TrimSpace(from)] = to
		folded[strings.ToLower(strings.TrimSpace(from))] = to
	}

	h := make([]string, len(t.header))
	for i, name := range t.header {
		key := strings.TrimSpace(name)
		h[i] = name
		if to, ok := exact[key]; ok {
			h[i] = to
		} else if to, ok := folded[strings.ToLower(key)]; ok {
			h[i] = to
		}
	}
	t.setHeader(h)
}

// EnsureColumns appends every missing column with empty cells and returns the names it added.
func (t *Table) EnsureColumns(cols ...string) []string {
	var added []string
	for _, col := range cols {
		if t.Has(col) {
			continue
		}
		added = append(added, col)
		t.header = append(t.header, col)
		t.index[col] = len(t.header) - 1
		for i := range t.rows {
			t.rows[i] = append(t.rows[i], "")
		}
	}
	return added
}
