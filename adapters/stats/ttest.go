package stats

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"metascreen/domain/screen"
)

// TTestResult holds the outcome of a two-sample mean comparison
type TTestResult struct {
	TStatistic float64
	DF         float64
	PValue     float64
	MeanA      float64
	MeanB      float64
}

// MeanDifference returns mean(A) - mean(B)
func (r TTestResult) MeanDifference() float64 {
	return r.MeanA - r.MeanB
}

// TwoSampleTTest compares group means with the configured test kind.
// Both groups must already be filtered of missing values and hold at
// least 2 observations each.
func TwoSampleTTest(groupA, groupB []float64, kind screen.TestKind) (TTestResult, error) {
	meanA, err := stats.Mean(groupA)
	if err != nil {
		return TTestResult{}, err
	}
	meanB, err := stats.Mean(groupB)
	if err != nil {
		return TTestResult{}, err
	}
	varA, err := stats.SampleVariance(groupA)
	if err != nil {
		return TTestResult{}, err
	}
	varB, err := stats.SampleVariance(groupB)
	if err != nil {
		return TTestResult{}, err
	}

	n1 := float64(len(groupA))
	n2 := float64(len(groupB))

	var se, df float64
	switch kind {
	case screen.TestStudent:
		// Pooled variance with df = n1 + n2 - 2
		pooled := ((n1-1)*varA + (n2-1)*varB) / (n1 + n2 - 2)
		se = math.Sqrt(pooled * (1/n1 + 1/n2))
		df = n1 + n2 - 2
	default:
		// Welch: unequal variances, Welch-Satterthwaite degrees of freedom
		se = math.Sqrt(varA/n1 + varB/n2)
		df = math.Pow(varA/n1+varB/n2, 2) /
			(math.Pow(varA/n1, 2)/(n1-1) + math.Pow(varB/n2, 2)/(n2-1))
	}

	result := TTestResult{MeanA: meanA, MeanB: meanB, DF: df}

	// Zero variance in both groups leaves the test statistic undefined.
	// Equal means carry no evidence (p=1); unequal means with zero spread
	// are perfectly separated (p=0).
	if se == 0 {
		if meanA == meanB {
			result.PValue = 1.0
			return result, nil
		}
		result.TStatistic = math.Inf(sign(meanA - meanB))
		result.PValue = 0.0
		return result, nil
	}

	result.TStatistic = (meanA - meanB) / se

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	result.PValue = 2 * (1 - tDist.CDF(math.Abs(result.TStatistic)))
	if result.PValue > 1 {
		result.PValue = 1
	}
	if result.PValue < 0 {
		result.PValue = 0
	}
	return result, nil
}

func sign(x float64) int {
	if x < 0 {
		return -1
	}
	return 1
}
