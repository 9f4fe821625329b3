package dataset

import (
	"sort"
	"strconv"
	"time"

	"kpidash/domain/core"
)

// Table is an in-memory row-major table with named, typed columns
type Table struct {
	columns []Column
	rows    [][]Value
	index   map[string]int
}

// NewTable builds a table. Every row must have len(columns) cells.
func NewTable(columns []Column, rows [][]Value) *Table {
	t := &Table{
		columns: append([]Column(nil), columns...),
		rows:    rows,
	}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.index[c.Name] = i
	}
}

// Columns returns a copy of the column metadata
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

func (t *Table) NumRows() int    { return len(t.rows) }
func (t *Table) NumColumns() int { return len(t.columns) }
func (t *Table) IsEmpty() bool   { return len(t.rows) == 0 }

// Rows exposes the underlying rows. Callers must not mutate them.
func (t *Table) Rows() [][]Value { return t.rows }

// Row returns row i
func (t *Table) Row(i int) []Value { return t.rows[i] }

// Index returns the position of a column, or -1
func (t *Table) Index(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether the column exists
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the metadata for a column
func (t *Table) Column(name string) (Column, error) {
	i := t.Index(name)
	if i < 0 {
		return Column{}, core.NewColumnNotFoundError(name)
	}
	return t.columns[i], nil
}

// ColumnsWithRole lists column names with the given role, in order
func (t *Table) ColumnsWithRole(role Role) []string {
	var names []string
	for _, c := range t.columns {
		if c.Role == role {
			names = append(names, c.Name)
		}
	}
	return names
}

// NumericColumns lists numeric columns in order
func (t *Table) NumericColumns() []string {
	return t.ColumnsWithRole(RoleNumeric)
}

// PrimaryValueColumn is the first numeric column, or "" when there is none
func (t *Table) PrimaryValueColumn() string {
	if cols := t.NumericColumns(); len(cols) > 0 {
		return cols[0]
	}
	return ""
}

// HasDateColumn reports whether a date column was detected
func (t *Table) HasDateColumn() bool {
	c, err := t.Column(DateColumn)
	return err == nil && c.Role == RoleDate
}

// Values returns the cells of one column
func (t *Table) Values(name string) ([]Value, error) {
	i := t.Index(name)
	if i < 0 {
		return nil, core.NewColumnNotFoundError(name)
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, nil
}

// Floats returns the numeric cells of a column, skipping nulls and non-numbers
func (t *Table) Floats(name string) ([]float64, error) {
	i := t.Index(name)
	if i < 0 {
		return nil, core.NewColumnNotFoundError(name)
	}
	out := make([]float64, 0, len(t.rows))
	for _, row := range t.rows {
		if row[i].Kind == KindNumber {
			out = append(out, row[i].Num)
		}
	}
	return out, nil
}

// Filter returns a new table with the rows for which keep returns true
func (t *Table) Filter(keep func(row []Value) bool) *Table {
	rows := make([][]Value, 0, len(t.rows))
	for _, row := range t.rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return &Table{columns: t.columns, rows: rows, index: t.index}
}

// Head returns the first n rows
func (t *Table) Head(n int) *Table {
	if n >= len(t.rows) {
		return t
	}
	if n < 0 {
		n = 0
	}
	return &Table{columns: t.columns, rows: t.rows[:n], index: t.index}
}

// Clone deep-copies rows so the result can be mutated
func (t *Table) Clone() *Table {
	rows := make([][]Value, len(t.rows))
	for i, row := range t.rows {
		rows[i] = append([]Value(nil), row...)
	}
	return NewTable(t.columns, rows)
}

// WithColumn returns a copy with an extra (or replaced) column computed per row
func (t *Table) WithColumn(col Column, compute func(i int, row []Value) Value) *Table {
	out := t.Clone()
	idx := out.Index(col.Name)
	if idx < 0 {
		out.columns = append(out.columns, col)
		idx = len(out.columns) - 1
		for i := range out.rows {
			out.rows[i] = append(out.rows[i], Null)
		}
		out.reindex()
	} else {
		out.columns[idx] = col
	}
	for i, row := range out.rows {
		out.rows[i][idx] = compute(i, row)
	}
	return out
}

// SortBy returns a copy ordered by the given column (nulls last, stable)
func (t *Table) SortBy(name string, ascending bool) *Table {
	out := t.Clone()
	i := out.Index(name)
	if i < 0 {
		return out
	}
	sort.SliceStable(out.rows, func(a, b int) bool {
		va, vb := out.rows[a][i], out.rows[b][i]
		if va.IsNull() || vb.IsNull() {
			return !va.IsNull() && vb.IsNull()
		}
		if ascending {
			return Less(va, vb)
		}
		return Less(vb, va)
	})
	return out
}

// Distinct returns the distinct non-null values of a column in first-seen order
func (t *Table) Distinct(name string) []Value {
	i := t.Index(name)
	if i < 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []Value
	for _, row := range t.rows {
		v := row[i]
		if v.IsNull() || seen[v.Key()] {
			continue
		}
		seen[v.Key()] = true
		out = append(out, v)
	}
	return out
}

// DateRange returns the min/max of the date column, or nil
func (t *Table) DateRange() *DateRange {
	i := t.Index(DateColumn)
	if i < 0 {
		return nil
	}
	var r *DateRange
	for _, row := range t.rows {
		v := row[i]
		if v.Kind != KindTime {
			continue
		}
		if r == nil {
			r = &DateRange{Min: v.Time, Max: v.Time}
			continue
		}
		if v.Time.Before(r.Min) {
			r.Min = v.Time
		}
		if v.Time.After(r.Max) {
			r.Max = v.Time
		}
	}
	return r
}

// Less orders values of the same kind; mixed kinds order by kind
func Less(a, b Value) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	switch a.Kind {
	case KindNumber:
		return a.Num < b.Num
	case KindText:
		return a.Str < b.Str
	case KindTime:
		return a.Time.Before(b.Time)
	}
	return false
}

// Summarize builds the summary block for a table
func (t *Table) Summarize() Summary {
	return Summary{
		TotalRows:      t.NumRows(),
		TotalColumns:   t.NumColumns(),
		Columns:        t.ColumnNames(),
		DateRange:      t.DateRange(),
		NumericColumns: t.NumericColumns(),
		LoadedAt:       time.Now(),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
