package stats

import (
	"math"
	"testing"

	"metascreen/domain/screen"
)

func TestTwoSampleTTestIdenticalGroups(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{1, 2, 3, 4, 5}

	result, err := TwoSampleTTest(a, b, screen.TestWelch)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.TStatistic != 0 {
		t.Errorf("Expected t=0 for identical groups, got %f", result.TStatistic)
	}
	if result.PValue < 0.999 {
		t.Errorf("Expected p near 1.0 for identical groups, got %f", result.PValue)
	}
	if result.MeanDifference() != 0 {
		t.Errorf("Expected zero mean difference, got %f", result.MeanDifference())
	}
}

func TestTwoSampleTTestKnownValue(t *testing.T) {
	// Equal variances and equal sizes: Welch and Student coincide.
	// se = sqrt(2.5/5 + 2.5/5) = 1, t = -1, df = 8.
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 3, 4, 5, 6}

	for _, kind := range []screen.TestKind{screen.TestWelch, screen.TestStudent} {
		result, err := TwoSampleTTest(a, b, kind)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", kind, err)
		}
		if math.Abs(result.TStatistic-(-1.0)) > 1e-9 {
			t.Errorf("%s: expected t=-1, got %f", kind, result.TStatistic)
		}
		if math.Abs(result.DF-8.0) > 1e-9 {
			t.Errorf("%s: expected df=8, got %f", kind, result.DF)
		}
		// Two-tailed p for |t|=1 at df=8 is about 0.347
		if result.PValue < 0.33 || result.PValue > 0.37 {
			t.Errorf("%s: expected p near 0.347, got %f", kind, result.PValue)
		}
		if math.Abs(result.MeanDifference()-(-1.0)) > 1e-9 {
			t.Errorf("%s: expected mean difference -1, got %f", kind, result.MeanDifference())
		}
	}
}

func TestTwoSampleTTestLargeShift(t *testing.T) {
	// Low variance, large consistent shift: decisive rejection
	a := []float64{99, 100, 101, 100, 100}
	b := []float64{9, 10, 11, 10, 10}

	result, err := TwoSampleTTest(a, b, screen.TestWelch)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(result.MeanDifference()-90.0) > 1e-9 {
		t.Errorf("Expected mean difference 90, got %f", result.MeanDifference())
	}
	if result.PValue > 1e-6 {
		t.Errorf("Expected near-zero p, got %f", result.PValue)
	}
}

func TestTwoSampleTTestZeroVariance(t *testing.T) {
	t.Run("equal means carry no evidence", func(t *testing.T) {
		result, err := TwoSampleTTest([]float64{5, 5, 5}, []float64{5, 5, 5}, screen.TestWelch)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.PValue != 1.0 {
			t.Errorf("Expected p=1 for equal constant groups, got %f", result.PValue)
		}
	})

	t.Run("unequal means are perfectly separated", func(t *testing.T) {
		result, err := TwoSampleTTest([]float64{5, 5, 5}, []float64{7, 7, 7}, screen.TestStudent)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.PValue != 0.0 {
			t.Errorf("Expected p=0 for separated constant groups, got %f", result.PValue)
		}
		if !math.IsInf(result.TStatistic, -1) {
			t.Errorf("Expected t=-Inf, got %f", result.TStatistic)
		}
	})
}

func TestTwoSampleTTestWelchVsStudentUnequalVariance(t *testing.T) {
	// Very different spreads: Welch df must fall below the pooled df
	a := []float64{10, 10.1, 9.9, 10.05, 9.95}
	b := []float64{8, 14, 5, 17, 6, 13}

	welch, err := TwoSampleTTest(a, b, screen.TestWelch)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	student, err := TwoSampleTTest(a, b, screen.TestStudent)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if welch.DF >= student.DF {
		t.Errorf("Expected Welch df (%f) < pooled df (%f)", welch.DF, student.DF)
	}
}
