package profiling

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// NormalityAlpha is the significance level of the normality test
const NormalityAlpha = 0.05

// Distribution describes the shape of a numeric column
type Distribution struct {
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"` // excess kurtosis, 0 for a normal distribution
	Outliers int     `json:"outliers"` // outside the 1.5 IQR fences
	CV       float64 `json:"cv"`       // coefficient of variation, 0 when the mean is 0
	NormalP  float64 `json:"normal_p"` // Jarque-Bera p-value
	IsNormal bool    `json:"is_normal"`
}

// AnalyzeDistribution summarizes data. Empty input is an error.
func AnalyzeDistribution(data []float64) (Distribution, error) {
	var d Distribution
	var err error

	if d.Mean, err = stats.Mean(data); err != nil {
		return d, err
	}
	if d.StdDev, err = stats.StandardDeviationSample(data); err != nil || math.IsNaN(d.StdDev) {
		d.StdDev = 0
	}
	if d.Min, err = stats.Min(data); err != nil {
		return d, err
	}
	if d.Max, err = stats.Max(data); err != nil {
		return d, err
	}
	if d.Median, err = stats.Median(data); err != nil {
		return d, err
	}
	if d.Q25, err = stats.Percentile(data, 25); err != nil {
		d.Q25 = d.Min
	}
	if d.Q75, err = stats.Percentile(data, 75); err != nil {
		d.Q75 = d.Max
	}

	d.Skewness = skewness(data, d.Mean, d.StdDev)
	d.Kurtosis = excessKurtosis(data, d.Mean, d.StdDev)
	d.Outliers = countOutliers(data, d.Q25, d.Q75)
	if d.Mean != 0 {
		d.CV = d.StdDev / math.Abs(d.Mean)
	}
	d.NormalP = jarqueBera(len(data), d.Skewness, d.Kurtosis)
	d.IsNormal = len(data) >= 8 && d.NormalP > NormalityAlpha
	return d, nil
}

// skewness is the adjusted Fisher-Pearson coefficient
func skewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		z := (x - mean) / stdDev
		sum += z * z * z
	}
	return n / ((n - 1) * (n - 2)) * sum
}

// excessKurtosis is the bias corrected sample excess kurtosis
func excessKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		z := (x - mean) / stdDev
		sum += z * z * z * z
	}
	return n*(n+1)/((n-1)*(n-2)*(n-3))*sum - 3*(n-1)*(n-1)/((n-2)*(n-3))
}

// jarqueBera returns the p-value of the Jarque-Bera statistic, chi-squared
// with two degrees of freedom
func jarqueBera(n int, skew, kurt float64) float64 {
	if n < 3 {
		return 1
	}
	jb := float64(n) / 6 * (skew*skew + kurt*kurt/4)
	return 1 - distuv.ChiSquared{K: 2}.CDF(jb)
}

func countOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lower, upper := q25-1.5*iqr, q75+1.5*iqr
	count := 0
	for _, x := range data {
		if x < lower || x > upper {
			count++
		}
	}
	return count
}
