package filters

import (
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/domain/core"
	"kpidash/domain/dataset"
	"kpidash/internal/errors"
	"kpidash/internal/testkit"
)

func salesFixture() *dataset.Table {
	return testkit.SalesTable(
		testkit.SalesRow{Date: testkit.Day(2024, 1, 1), Category: "A", Value: 10},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 2), Category: "B", Value: 20},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 3), Category: "A", Value: 30},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 4), Category: "C", Value: 40},
		testkit.SalesRow{Date: time.Date(2024, 1, 4, 18, 30, 0, 0, time.UTC), Category: "B", Value: 50},
	)
}

func ptr[T any](v T) *T { return &v }

func totalOf(t *testing.T, table *dataset.Table) float64 {
	t.Helper()
	floats, err := table.Floats("valor")
	require.NoError(t, err)
	sum := 0.0
	for _, f := range floats {
		sum += f
	}
	return sum
}

func TestBuildOptions(t *testing.T) {
	opts := BuildOptions(salesFixture())

	require.True(t, opts.HasDates())
	assert.Equal(t, testkit.Day(2024, 1, 1), *opts.DateMin)
	assert.Equal(t, testkit.Day(2024, 1, 4), *opts.DateMax)
	require.Len(t, opts.Categories, 1)
	assert.Equal(t, CategoryOption{Column: "categoria", Values: []string{"A", "B", "C"}}, opts.Categories[0])
	assert.Equal(t, "valor", opts.ValueColumn)
	assert.Equal(t, 10.0, opts.ValueMin)
	assert.Equal(t, 50.0, opts.ValueMax)
}

func TestBuildOptionsSkipsWideCategories(t *testing.T) {
	cols := []dataset.Column{{Name: "cliente", Role: dataset.RoleCategorical}, {Name: "valor", Role: dataset.RoleNumeric}}
	var rows [][]dataset.Value
	for i := 0; i < 60; i++ {
		rows = append(rows, []dataset.Value{dataset.Text(string(rune('A'+i%26)) + string(rune('a'+i/26))), dataset.Number(1)})
	}

	opts := BuildOptions(dataset.NewTable(cols, rows))
	assert.Empty(t, opts.Categories)
	assert.False(t, opts.HasDates())
}

func TestApplyZeroStateKeepsEverything(t *testing.T) {
	table := salesFixture()
	assert.Equal(t, table.NumRows(), Apply(table, State{}).NumRows())
	assert.Equal(t, 150.0, totalOf(t, Apply(table, State{})))
}

func TestApplyDateRangeIsInclusive(t *testing.T) {
	table := salesFixture()
	s := State{Start: ptr(testkit.Day(2024, 1, 2)), End: ptr(testkit.Day(2024, 1, 4))}

	got := Apply(table, s)
	assert.Equal(t, 4, got.NumRows(), "end of day 4 includes the 18:30 row")
	assert.Equal(t, 140.0, totalOf(t, got))
}

func TestApplyCategoriesAndValues(t *testing.T) {
	table := salesFixture()

	got := Apply(table, State{Categories: map[string][]string{"categoria": {"A", "C"}}})
	assert.Equal(t, 80.0, totalOf(t, got))

	got = Apply(table, State{Categories: map[string][]string{"categoria": {}}})
	assert.Equal(t, 5, got.NumRows(), "empty selection is no constraint")

	got = Apply(table, State{ValueMin: ptr(20.0), ValueMax: ptr(40.0)})
	assert.Equal(t, 90.0, totalOf(t, got))

	got = Apply(table, State{Categories: map[string][]string{"inexistente": {"x"}}})
	assert.Equal(t, 5, got.NumRows())
}

func TestApplyNarrowsMonotonically(t *testing.T) {
	table := salesFixture()
	steps := []State{
		{},
		{Start: ptr(testkit.Day(2024, 1, 2))},
		{Start: ptr(testkit.Day(2024, 1, 2)), Categories: map[string][]string{"categoria": {"B", "C"}}},
		{Start: ptr(testkit.Day(2024, 1, 2)), Categories: map[string][]string{"categoria": {"B", "C"}}, ValueMax: ptr(45.0)},
	}

	prev := table.NumRows() + 1
	for i, s := range steps {
		n := Apply(table, s).NumRows()
		assert.LessOrEqual(t, n, prev, "step %d", i)
		prev = n
	}
	assert.Equal(t, 2, prev)
}

func TestApplyExcludesNullsOnlyWhenConstrained(t *testing.T) {
	table := testkit.SalesTable(
		testkit.SalesRow{Date: testkit.Day(2024, 1, 1), Category: "A", Value: 10},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 2), Category: "A", Value: math.NaN()},
	)

	assert.Equal(t, 2, Apply(table, State{}).NumRows())
	assert.Equal(t, 1, Apply(table, State{ValueMin: ptr(0.0)}).NumRows())
}

func TestParseQueryRoundTrip(t *testing.T) {
	q := url.Values{}
	q.Set("start", "2024-01-02")
	q.Set("end", "2024-01-31")
	q.Set("min", "10")
	q.Set("max", "99.5")
	q.Add("cat.categoria", "A")
	q.Add("cat.categoria", "B")
	q.Add("cat.segmento", " ")

	s, err := ParseQuery(q)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", s.Start.Format(core.DateLayout))
	assert.Equal(t, 99.5, *s.ValueMax)
	assert.Equal(t, map[string][]string{"categoria": {"A", "B"}}, s.Categories)

	again, err := ParseQuery(s.Query())
	require.NoError(t, err)
	assert.Equal(t, s, again)
	assert.Equal(t, s.Hash(), again.Hash())
	assert.False(t, s.IsZero())
	assert.True(t, s.Selected("categoria", "A"))
	assert.False(t, s.Selected("categoria", "C"))
	assert.True(t, s.Selected("segmento", "anything"))
}

func TestParseQueryRejectsBadInput(t *testing.T) {
	tests := map[string]url.Values{
		"bad date":       {"start": {"01/02/2024"}},
		"bad number":     {"min": {"dez"}},
		"inverted dates": {"start": {"2024-02-01"}, "end": {"2024-01-01"}},
		"inverted range": {"min": {"10"}, "max": {"1"}},
	}
	for name, q := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQuery(q)
			require.Error(t, err)
			assert.Equal(t, 400, errors.HTTPStatus(err))
		})
	}
}

func TestParseQueryEmpty(t *testing.T) {
	s, err := ParseQuery(url.Values{})
	require.NoError(t, err)
	assert.True(t, s.IsZero())
}
