// Package loader turns a workbook into the typed table behind the dashboard.
package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kpidash/adapters/datareadiness/coercer"
	"kpidash/adapters/excel"
	"kpidash/domain/core"
	"kpidash/domain/dataset"
	"kpidash/internal"
	"kpidash/internal/helpers"
	"kpidash/internal/validation"
)

// Result is a processed table plus its summary
type Result struct {
	Table   *dataset.Table
	Summary dataset.Summary
}

// Loader reads, validates, cleans and types one workbook
type Loader struct {
	opts    Options
	coercer *coercer.Coercer
	logger  *internal.Logger

	workbook    *excel.Workbook
	fingerprint core.FileFingerprint
}

// New creates a loader
func New(opts Options) *Loader {
	if opts.MaxCategories <= 0 {
		opts.MaxCategories = 50
	}
	if opts.MaxUniqueRatio <= 0 {
		opts.MaxUniqueRatio = 0.3
	}
	if opts.DateKeywords == nil {
		opts.DateKeywords = DefaultDateKeywords
	}
	if opts.ValueKeywords == nil {
		opts.ValueKeywords = DefaultValueKeywords
	}
	if opts.CategoryKeywords == nil {
		opts.CategoryKeywords = DefaultCategoryKeywords
	}
	return &Loader{
		opts:    opts,
		coercer: coercer.New(opts.coercerConfig()),
		logger:  internal.DefaultLogger.Named("Loader"),
	}
}

// Load runs LoadExcel and ProcessData on the configured sheet
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	start := time.Now()
	if err := l.LoadExcel(ctx); err != nil {
		return nil, err
	}
	table, sheet, err := l.ProcessData(l.opts.Sheet)
	if err != nil {
		return nil, err
	}

	summary := table.Summarize()
	summary.SheetNames = l.SheetNames()
	summary.SourceSheet = sheet
	summary.SourceFile = l.opts.Path
	summary.Fingerprint = l.fingerprint

	l.logger.Info("loaded %s sheet %q: %d rows, %d columns in %s",
		l.opts.Path, sheet, table.NumRows(), table.NumColumns(), time.Since(start).Round(time.Millisecond))
	return &Result{Table: table, Summary: summary}, nil
}

// LoadExcel validates the file and reads every usable sheet
func (l *Loader) LoadExcel(ctx context.Context) error {
	if err := validation.ValidateFilePath(l.opts.Path, l.opts.MaxFileSize); err != nil {
		l.logger.Error("invalid workbook %s: %v", l.opts.Path, err)
		return err
	}

	fingerprint, err := core.ComputeFileFingerprint(l.opts.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptFile, err)
	}

	wb, err := excel.NewDataReader(l.opts.Path).Read(ctx)
	if err != nil {
		l.logger.Error("failed to read %s: %v", l.opts.Path, err)
		return err
	}

	l.logger.Info("loading %d sheet(s) from %s", len(wb.Sheets), l.opts.Path)
	for _, s := range wb.Sheets {
		l.logger.Info("sheet %q: %d rows, %d columns", s.Name, s.NumRows(), len(s.Headers))
	}

	l.workbook = wb
	l.fingerprint = fingerprint
	return nil
}

// SheetNames lists the usable sheets of the last LoadExcel
func (l *Loader) SheetNames() []string {
	if l.workbook == nil {
		return nil
	}
	return l.workbook.SheetNames()
}

// ProcessData builds the typed table from the named sheet, or from the first
// sheet when name is empty or unknown. It returns the sheet actually used.
func (l *Loader) ProcessData(name string) (*dataset.Table, string, error) {
	if l.workbook == nil || len(l.workbook.Sheets) == 0 {
		return nil, "", fmt.Errorf("%w: nothing loaded", core.ErrNoSheets)
	}

	sheet := &l.workbook.Sheets[0]
	if name != "" {
		if s, ok := l.workbook.Sheet(name); ok {
			sheet = s
		} else {
			l.logger.Warn("sheet %q not found, using %q", name, sheet.Name)
		}
	}

	table := rawTable(sheet)
	if err := validation.ValidateTable(table, 1); err != nil {
		return nil, sheet.Name, err
	}
	table = validation.Sanitize(table, l.opts.MaxStringLength)

	table = l.convertDateColumn(table)
	table = l.convertNumericColumns(table)
	numeric := table.NumericColumns()
	if len(numeric) == 0 {
		return nil, sheet.Name, fmt.Errorf("%w: sheet %q", core.ErrNoNumericColumns, sheet.Name)
	}

	table = dropAllNull(table, numeric)
	table = l.dropColumns(table)
	before := table.NumRows()
	table = dropDuplicates(table)
	if dups := before - table.NumRows(); dups > 0 {
		l.logger.Debug("removed %d duplicate rows", dups)
	}
	table = l.classifyTextColumns(table)

	if err := validation.ValidateTable(table, 1); err != nil {
		return nil, sheet.Name, fmt.Errorf("after processing: %w", err)
	}
	if len(table.NumericColumns()) == 0 {
		return nil, sheet.Name, fmt.Errorf("%w: sheet %q after dropping %v", core.ErrNoNumericColumns, sheet.Name, l.opts.DropColumns)
	}
	l.logger.Info("processed sheet %q: %d rows, %d columns", sheet.Name, table.NumRows(), table.NumColumns())
	return table, sheet.Name, nil
}

// rawTable builds a text table with normalized, unique column names. Empty
// cells become null.
func rawTable(sheet *excel.Sheet) *dataset.Table {
	names := helpers.NormalizeColumnNames(sheet.Headers)
	cols := make([]dataset.Column, len(names))
	for i, n := range names {
		cols[i] = dataset.Column{Name: n, Role: dataset.RoleText}
	}

	rows := make([][]dataset.Value, len(sheet.Rows))
	for r, raw := range sheet.Rows {
		row := make([]dataset.Value, len(cols))
		for c := range cols {
			if c < len(raw) && raw[c] != "" {
				row[c] = dataset.Text(raw[c])
			}
		}
		rows[r] = row
	}
	return dataset.NewTable(cols, rows)
}

func (l *Loader) convertDateColumn(t *dataset.Table) *dataset.Table {
	for _, col := range t.Columns() {
		if !containsAny(col.Name, l.opts.DateKeywords) {
			continue
		}
		raw := textValues(t, col.Name)
		if !l.coercer.LooksLikeDates(raw, true) {
			continue
		}

		idx := t.Index(col.Name)
		out := t.WithColumn(dataset.Column{Name: col.Name, Role: dataset.RoleDate}, func(_ int, row []dataset.Value) dataset.Value {
			if parsed, ok := l.coercer.ParseDate(row[idx].Str, true); ok {
				return dataset.Timestamp(parsed)
			}
			return dataset.Null
		})
		l.logger.Debug("column %q detected as date", col.Name)
		return renameColumn(out, col.Name, dataset.DateColumn)
	}
	return t
}

func (l *Loader) convertNumericColumns(t *dataset.Table) *dataset.Table {
	for _, col := range t.Columns() {
		if col.Role == dataset.RoleDate {
			continue
		}
		raw := textValues(t, col.Name)
		plain := coercer.AllPlainNumbers(raw)
		if !plain && !(containsAny(col.Name, l.opts.ValueKeywords) && l.coercer.LooksNumeric(raw)) {
			continue
		}

		idx := t.Index(col.Name)
		t = t.WithColumn(dataset.Column{Name: col.Name, Role: dataset.RoleNumeric}, func(_ int, row []dataset.Value) dataset.Value {
			if n, ok := coercer.ParseNumber(row[idx].Str); ok {
				return dataset.Number(n)
			}
			return dataset.Null
		})
		l.logger.Debug("column %q detected as numeric", col.Name)
	}
	return t
}

func (l *Loader) dropColumns(t *dataset.Table) *dataset.Table {
	drop := make(map[string]bool, len(l.opts.DropColumns))
	for _, name := range l.opts.DropColumns {
		drop[helpers.NormalizeColumnName(name)] = true
	}

	var keep []int
	for i, col := range t.Columns() {
		if drop[col.Name] {
			l.logger.Info("column %q removed", col.Name)
			continue
		}
		keep = append(keep, i)
	}
	if len(keep) == t.NumColumns() {
		return t
	}
	return project(t, keep)
}

// classifyTextColumns marks category-named text columns, and text columns
// with few distinct values relative to their non-null cells, as categorical
func (l *Loader) classifyTextColumns(t *dataset.Table) *dataset.Table {
	cols := t.Columns()
	changed := false
	for i, col := range cols {
		if col.Role != dataset.RoleText {
			continue
		}
		if containsAny(col.Name, l.opts.CategoryKeywords) || l.lowCardinality(t, col.Name) {
			cols[i].Role = dataset.RoleCategorical
			changed = true
		}
	}
	if !changed {
		return t
	}
	return dataset.NewTable(cols, t.Rows())
}

func (l *Loader) lowCardinality(t *dataset.Table, name string) bool {
	values, _ := t.Values(name)
	nonNull := 0
	for _, v := range values {
		if !v.IsNull() {
			nonNull++
		}
	}
	if nonNull == 0 {
		return false
	}
	distinct := len(t.Distinct(name))
	return distinct <= l.opts.MaxCategories && float64(distinct)/float64(nonNull) < l.opts.MaxUniqueRatio
}

func dropAllNull(t *dataset.Table, columns []string) *dataset.Table {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.Index(c)
	}
	return t.Filter(func(row []dataset.Value) bool {
		for _, i := range idx {
			if !row[i].IsNull() {
				return true
			}
		}
		return false
	})
}

func dropDuplicates(t *dataset.Table) *dataset.Table {
	seen := make(map[string]bool, t.NumRows())
	return t.Filter(func(row []dataset.Value) bool {
		var b strings.Builder
		for _, v := range row {
			b.WriteString(v.Key())
			b.WriteByte(0)
		}
		key := b.String()
		if seen[key] {
			return false
		}
		seen[key] = true
		return true
	})
}

func renameColumn(t *dataset.Table, from, to string) *dataset.Table {
	cols := t.Columns()
	for i := range cols {
		if cols[i].Name == to && from != to {
			// an existing column already called "date" keeps its data under a new name
			cols[i].Name = helpers.NormalizeColumnNames([]string{to, to})[1]
		}
	}
	for i := range cols {
		if cols[i].Name == from {
			cols[i].Name = to
		}
	}
	return dataset.NewTable(cols, t.Rows())
}

func project(t *dataset.Table, keep []int) *dataset.Table {
	all := t.Columns()
	cols := make([]dataset.Column, len(keep))
	for i, k := range keep {
		cols[i] = all[k]
	}
	rows := make([][]dataset.Value, t.NumRows())
	for r, row := range t.Rows() {
		out := make([]dataset.Value, len(keep))
		for i, k := range keep {
			out[i] = row[k]
		}
		rows[r] = out
	}
	return dataset.NewTable(cols, rows)
}

func textValues(t *dataset.Table, name string) []string {
	values, _ := t.Values(name)
	out := make([]string, len(values))
	for i, v := range values {
		if v.Kind == dataset.KindText {
			out[i] = v.Str
		}
	}
	return out
}

func containsAny(name string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}
