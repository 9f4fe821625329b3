package profiling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/domain/dataset"
	"kpidash/internal/testkit"
)

func TestAnalyzeDistribution(t *testing.T) {
	d, err := AnalyzeDistribution([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100})
	require.NoError(t, err)

	assert.InDelta(t, 14.5, d.Mean, 1e-9)
	assert.InDelta(t, 5.5, d.Median, 1e-9)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 100.0, d.Max)
	assert.Equal(t, 1, d.Outliers)
	assert.Greater(t, d.Skewness, 2.0)
	assert.False(t, d.IsNormal)
	assert.Less(t, d.NormalP, NormalityAlpha)

	_, err = AnalyzeDistribution(nil)
	assert.Error(t, err)
}

func TestAnalyzeDistributionConstant(t *testing.T) {
	d, err := AnalyzeDistribution([]float64{4, 4, 4, 4})
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.StdDev)
	assert.Equal(t, 0.0, d.Skewness)
	assert.Equal(t, 0.0, d.Kurtosis)
	assert.Equal(t, 0, d.Outliers)
	assert.False(t, math.IsNaN(d.NormalP))
}

func TestAnalyzeDistributionSymmetric(t *testing.T) {
	data := []float64{-3, -2, -2, -1, -1, -1, 0, 0, 0, 0, 1, 1, 1, 2, 2, 3}
	d, err := AnalyzeDistribution(data)
	require.NoError(t, err)
	assert.InDelta(t, 0, d.Skewness, 1e-9)
	assert.InDelta(t, 0, d.CV, 1e-9)
	assert.True(t, d.IsNormal)
}

func TestProfileTable(t *testing.T) {
	table := testkit.SalesTable(
		testkit.SalesRow{Date: testkit.Day(2024, 1, 1), Category: "Eletrônicos", Value: 10},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 2), Category: "Roupas", Value: 20},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 3), Category: "Roupas", Value: math.NaN()},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 4), Category: "Roupas", Value: 30},
	)

	profiles := ProfileTable(table)
	require.Len(t, profiles, 3)

	category := profiles[1]
	assert.Equal(t, "categoria", category.Column)
	assert.Equal(t, 2, category.Distinct)
	require.NotEmpty(t, category.Top)
	assert.Equal(t, ValueCount{Value: "Roupas", Count: 3}, category.Top[0])
	assert.Nil(t, category.Distribution)

	value := profiles[2]
	assert.Equal(t, dataset.RoleNumeric, value.Role)
	assert.Equal(t, 3, value.Count)
	assert.Equal(t, 1, value.Nulls)
	assert.InDelta(t, 0.75, value.Completeness, 1e-9)
	require.NotNil(t, value.Distribution)
	assert.InDelta(t, 20, value.Distribution.Mean, 1e-9)
}

func TestTopValuesKeepsMostFrequent(t *testing.T) {
	counts := map[string]int{"a": 1, "b": 5, "c": 3, "d": 5, "e": 2, "f": 4}
	top := topValues([]string{"a", "b", "c", "d", "e", "f"}, counts, 3)
	assert.Equal(t, []ValueCount{{"b", 5}, {"d", 5}, {"f", 4}}, top)
}
