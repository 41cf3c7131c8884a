package profiling

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"metascreen/domain/core"
	"metascreen/domain/screen"
)

// FeatureProfile summarizes one feature's distribution for reporting.
// These are the numeric companions to the distribution plots that an
// external visualization layer would draw.
type FeatureProfile struct {
	Feature      core.FeatureKey `json:"feature"`
	SampleSize   int             `json:"sample_size"` // valid values only
	MissingCount int             `json:"missing_count"`
	Mean         float64         `json:"mean"`
	StdDev       float64         `json:"std_dev"`
	Min          float64         `json:"min"`
	Max          float64         `json:"max"`
	Median       float64         `json:"median"`
	Q25          float64         `json:"q25"`
	Q75          float64         `json:"q75"`
	Skewness     float64         `json:"skewness"`
	Kurtosis     float64         `json:"kurtosis"`
	OutlierCount int             `json:"outlier_count"` // beyond 1.5 IQR
	IsNormal     bool            `json:"is_normal"`
}

// DistributionAnalyzer computes per-feature distribution profiles
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// ProfileMatrix analyzes every feature column, in column order
func (da *DistributionAnalyzer) ProfileMatrix(matrix *screen.FeatureMatrix) ([]FeatureProfile, error) {
	profiles := make([]FeatureProfile, matrix.Cols())
	for i := 0; i < matrix.Cols(); i++ {
		profile, err := da.ProfileFeature(matrix.Features[i], matrix.Column(i))
		if err != nil {
			return nil, err
		}
		profiles[i] = profile
	}
	return profiles, nil
}

// ProfileFeature analyzes one feature column, excluding missing values
func (da *DistributionAnalyzer) ProfileFeature(feature core.FeatureKey, column []float64) (FeatureProfile, error) {
	profile := FeatureProfile{Feature: feature}

	valid := make([]float64, 0, len(column))
	for _, v := range column {
		if math.IsNaN(v) {
			profile.MissingCount++
			continue
		}
		valid = append(valid, v)
	}
	profile.SampleSize = len(valid)
	if len(valid) == 0 {
		return profile, nil
	}

	mean, err := stats.Mean(valid)
	if err != nil {
		return profile, err
	}
	stdDev, err := stats.StandardDeviation(valid)
	if err != nil {
		return profile, err
	}
	min, err := stats.Min(valid)
	if err != nil {
		return profile, err
	}
	max, err := stats.Max(valid)
	if err != nil {
		return profile, err
	}
	median, err := stats.Median(valid)
	if err != nil {
		return profile, err
	}
	q25, err := stats.Percentile(valid, 25)
	if err != nil {
		q25 = median
	}
	q75, err := stats.Percentile(valid, 75)
	if err != nil {
		q75 = median
	}

	profile.Mean = mean
	profile.StdDev = stdDev
	profile.Min = min
	profile.Max = max
	profile.Median = median
	profile.Q25 = q25
	profile.Q75 = q75
	profile.Skewness = calculateSkewness(valid, mean, stdDev)
	profile.Kurtosis = calculateKurtosis(valid, mean, stdDev)
	profile.OutlierCount = countIQROutliers(valid, q25, q75)
	profile.IsNormal = testNormality(profile.Skewness, profile.Kurtosis)

	return profile, nil
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n

	// Bias correction for sample skewness
	correction := math.Sqrt(n*(n-1)) / (n - 2)
	return skewness * correction
}

// calculateKurtosis computes sample kurtosis (3.0 for a normal distribution)
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumFourthDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumFourthDeviations += deviation * deviation * deviation * deviation
	}

	kurtosis := sumFourthDeviations / n
	excessKurtosis := kurtosis - 3

	if n > 3 {
		correction := (n - 1) / ((n - 2) * (n - 3))
		excessKurtosis = excessKurtosis*correction + 6/(n+1)
	}

	return excessKurtosis + 3
}

// countIQROutliers counts values beyond 1.5 IQR from the quartiles
func countIQROutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lower := q25 - 1.5*iqr
	upper := q75 + 1.5*iqr

	count := 0
	for _, v := range data {
		if v < lower || v > upper {
			count++
		}
	}
	return count
}

// testNormality is a rough shape check from skewness and kurtosis, not a
// proper Shapiro-Wilk test
func testNormality(skewness, kurtosis float64) bool {
	testStat := math.Abs(skewness) + math.Abs(kurtosis-3)/2
	chiDist := distuv.ChiSquared{K: 2}
	pValue := 1 - chiDist.CDF(testStat*testStat)
	return pValue > 0.05
}
