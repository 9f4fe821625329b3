package processing

import (
	"fmt"
	"sort"

	"kpidash/domain/core"
	"kpidash/domain/dataset"
)

// Aggregation is the cell function of a pivot
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggMean  Aggregation = "mean"
	AggCount Aggregation = "count"
)

// Pivot is a dense index x columns grid. Missing combinations are 0.
type Pivot struct {
	IndexName string      `json:"index_name"`
	Index     []string    `json:"index"`
	Columns   []string    `json:"columns"`
	Cells     [][]float64 `json:"cells"`
}

// Max is the largest cell, 0 for an empty pivot
func (p *Pivot) Max() float64 {
	var m float64
	for _, row := range p.Cells {
		for _, v := range row {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// ToTable flattens the pivot back into a table, one row per index value
func (p *Pivot) ToTable() *dataset.Table {
	cols := []dataset.Column{{Name: p.IndexName, Role: dataset.RoleCategorical}}
	for _, c := range p.Columns {
		cols = append(cols, dataset.Column{Name: c, Role: dataset.RoleNumeric})
	}
	rows := make([][]dataset.Value, len(p.Index))
	for i, label := range p.Index {
		row := []dataset.Value{dataset.Text(label)}
		for _, v := range p.Cells[i] {
			row = append(row, dataset.Number(v))
		}
		rows[i] = row
	}
	return dataset.NewTable(cols, rows)
}

type cell struct {
	sum   float64
	count int
}

// PivotTable aggregates values by index and, when columns is not "", by
// columns too. Without a columns dimension the single column is named after
// values. Index and column labels are sorted by their typed value.
func PivotTable(t *dataset.Table, index, columns, values string, agg Aggregation) (*Pivot, error) {
	switch agg {
	case AggSum, AggMean, AggCount:
	default:
		return nil, fmt.Errorf("unknown aggregation %q", agg)
	}
	ii := t.Index(index)
	if ii < 0 {
		return nil, core.NewColumnNotFoundError(index)
	}
	vi := t.Index(values)
	if vi < 0 {
		return nil, core.NewColumnNotFoundError(values)
	}
	ci := -1
	if columns != "" {
		if ci = t.Index(columns); ci < 0 {
			return nil, core.NewColumnNotFoundError(columns)
		}
	}

	rowLabels := sortedLabels(t.Distinct(index))
	colLabels := []string{values}
	if ci >= 0 {
		colLabels = sortedLabels(t.Distinct(columns))
	}
	rowPos := positions(rowLabels)
	colPos := positions(colLabels)

	grid := make([][]cell, len(rowLabels))
	for i := range grid {
		grid[i] = make([]cell, len(colLabels))
	}
	for _, row := range t.Rows() {
		if row[ii].IsNull() || row[vi].Kind != dataset.KindNumber {
			continue
		}
		c := 0
		if ci >= 0 {
			if row[ci].IsNull() {
				continue
			}
			c = colPos[row[ci].String()]
		}
		g := &grid[rowPos[row[ii].String()]][c]
		g.sum += row[vi].Num
		g.count++
	}

	p := &Pivot{IndexName: index, Index: rowLabels, Columns: colLabels, Cells: make([][]float64, len(rowLabels))}
	for i, cells := range grid {
		p.Cells[i] = make([]float64, len(cells))
		for j, g := range cells {
			switch agg {
			case AggSum:
				p.Cells[i][j] = g.sum
			case AggCount:
				p.Cells[i][j] = float64(g.count)
			case AggMean:
				if g.count > 0 {
					p.Cells[i][j] = g.sum / float64(g.count)
				}
			}
		}
	}
	return p, nil
}

func sortedLabels(vals []dataset.Value) []string {
	sort.SliceStable(vals, func(i, j int) bool { return dataset.Less(vals[i], vals[j]) })
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

func positions(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}
