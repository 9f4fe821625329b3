// Package profiling describes every column of a table: completeness,
// cardinality and, for numeric columns, the shape of the distribution.
package profiling

import (
	"kpidash/domain/dataset"
)

// TopValues is how many frequent values a text column profile keeps
const TopValues = 5

// ValueCount is one frequent value
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile is the profile of one column
type ColumnProfile struct {
	Column       string        `json:"column"`
	Role         dataset.Role  `json:"role"`
	Count        int           `json:"count"`
	Nulls        int           `json:"nulls"`
	Completeness float64       `json:"completeness"`
	Distinct     int           `json:"distinct"`
	Distribution *Distribution `json:"distribution,omitempty"`
	Top          []ValueCount  `json:"top,omitempty"`
}

// ProfileTable profiles every column of t in order
func ProfileTable(t *dataset.Table) []ColumnProfile {
	out := make([]ColumnProfile, 0, len(t.Columns()))
	for _, col := range t.Columns() {
		out = append(out, ProfileColumn(t, col))
	}
	return out
}

// ProfileColumn profiles one column
func ProfileColumn(t *dataset.Table, col dataset.Column) ColumnProfile {
	p := ColumnProfile{Column: col.Name, Role: col.Role}
	values, _ := t.Values(col.Name)
	counts := make(map[string]int)
	order := []string{}
	for _, v := range values {
		if v.IsNull() {
			p.Nulls++
			continue
		}
		p.Count++
		key := v.String()
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}
	p.Distinct = len(counts)
	if len(values) > 0 {
		p.Completeness = float64(p.Count) / float64(len(values))
	}

	switch col.Role {
	case dataset.RoleNumeric:
		floats, _ := t.Floats(col.Name)
		if len(floats) > 0 {
			if d, err := AnalyzeDistribution(floats); err == nil {
				p.Distribution = &d
			}
		}
	case dataset.RoleCategorical, dataset.RoleText:
		p.Top = topValues(order, counts, TopValues)
	}
	return p
}

// topValues keeps the n most frequent values, first seen first on ties
func topValues(order []string, counts map[string]int, n int) []ValueCount {
	top := make([]ValueCount, 0, n)
	for _, v := range order {
		vc := ValueCount{Value: v, Count: counts[v]}
		i := len(top)
		for i > 0 && top[i-1].Count < vc.Count {
			i--
		}
		if i >= n {
			continue
		}
		top = append(top, ValueCount{})
		copy(top[i+1:], top[i:])
		top[i] = vc
		if len(top) > n {
			top = top[:n]
		}
	}
	return top
}
