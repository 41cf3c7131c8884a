package screen

import (
	"errors"
	"math"
	"testing"

	"metascreen/domain/core"
)

func TestNewFeatureMatrixValidation(t *testing.T) {
	t.Run("empty matrix rejected", func(t *testing.T) {
		_, err := NewFeatureMatrix(nil, nil)
		if !errors.Is(err, core.ErrEmptyMatrix) {
			t.Errorf("Expected ErrEmptyMatrix, got %v", err)
		}
	})

	t.Run("ragged rows rejected", func(t *testing.T) {
		features := []core.FeatureKey{"a", "b"}
		data := [][]float64{{1, 2}, {3}}
		_, err := NewFeatureMatrix(features, data)
		if !errors.Is(err, core.ErrShapeMismatch) {
			t.Errorf("Expected ErrShapeMismatch, got %v", err)
		}
	})

	t.Run("column extraction", func(t *testing.T) {
		features := []core.FeatureKey{"a", "b"}
		data := [][]float64{{1, 2}, {3, 4}, {5, 6}}
		m, err := NewFeatureMatrix(features, data)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		col := m.Column(1)
		expected := []float64{2, 4, 6}
		for i := range expected {
			if col[i] != expected[i] {
				t.Errorf("Column(1)[%d] = %f, expected %f", i, col[i], expected[i])
			}
		}
		if m.ColumnIndex("b") != 1 {
			t.Errorf("ColumnIndex(b) = %d, expected 1", m.ColumnIndex("b"))
		}
		if m.ColumnIndex("missing") != -1 {
			t.Error("Expected -1 for unknown feature")
		}
	})
}

func TestFeatureMatrixSelect(t *testing.T) {
	features := []core.FeatureKey{"a", "b", "c"}
	data := [][]float64{{1, 2, 3}, {4, 5, 6}}
	m, err := NewFeatureMatrix(features, data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	sub, err := m.Select([]core.FeatureKey{"c", "a"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if sub.Cols() != 2 || sub.Rows() != 2 {
		t.Fatalf("Expected 2x2 submatrix, got %dx%d", sub.Rows(), sub.Cols())
	}
	if sub.Features[0] != "c" || sub.Features[1] != "a" {
		t.Errorf("Expected requested order, got %v", sub.Features)
	}
	if sub.Data[0][0] != 3 || sub.Data[0][1] != 1 || sub.Data[1][0] != 6 || sub.Data[1][1] != 4 {
		t.Errorf("Submatrix values wrong: %v", sub.Data)
	}

	if _, err := m.Select([]core.FeatureKey{"missing"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown feature, got %v", err)
	}
	if _, err := m.Select(nil); !errors.Is(err, core.ErrEmptyMatrix) {
		t.Errorf("Expected ErrEmptyMatrix for empty selection, got %v", err)
	}
}

func TestLabelVectorDistinct(t *testing.T) {
	labels := LabelVector{"cachexic", "control", "", "cachexic", "control"}

	distinct := labels.Distinct()
	if len(distinct) != 2 {
		t.Fatalf("Expected 2 distinct labels, got %d", len(distinct))
	}
	if distinct[0] != "cachexic" || distinct[1] != "control" {
		t.Errorf("Expected first-seen order, got %v", distinct)
	}
	if labels.Count("cachexic") != 2 {
		t.Errorf("Count(cachexic) = %d, expected 2", labels.Count("cachexic"))
	}
}

func TestOptionsNormalizeAndValidate(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		opts := Options{ClassA: "cachexic", ClassB: "control"}.Normalize()
		if opts.Alpha != DefaultAlpha {
			t.Errorf("Expected default alpha %f, got %f", DefaultAlpha, opts.Alpha)
		}
		if opts.Test != TestWelch {
			t.Errorf("Expected default test welch, got %s", opts.Test)
		}
		if opts.OnError != AbortOnError {
			t.Errorf("Expected default policy abort, got %s", opts.OnError)
		}
		if err := opts.Validate(); err != nil {
			t.Errorf("Unexpected validation error: %v", err)
		}
	})

	tests := []struct {
		name string
		opts Options
	}{
		{"missing classes", Options{}.Normalize()},
		{"identical classes", Options{ClassA: "x", ClassB: "x"}.Normalize()},
		{"bad alpha", Options{ClassA: "a", ClassB: "b", Alpha: 1.5, Test: TestWelch, OnError: AbortOnError}},
		{"bad test", Options{ClassA: "a", ClassB: "b", Alpha: 0.05, Test: "mann_whitney", OnError: AbortOnError}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := test.opts.Validate(); err == nil {
				t.Error("Expected validation error, got none")
			}
		})
	}
}

func TestFeatureResultInvariants(t *testing.T) {
	t.Run("significance threshold", func(t *testing.T) {
		r, err := NewFeatureResult("Citrate", 12.5, 0.001, 0.063, 0.05, 39, 30)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if r.Significant {
			t.Error("corrected p 0.063 must not be significant at alpha 0.05")
		}

		r, err = NewFeatureResult("Citrate", 12.5, 0.0001, 0.0063, 0.05, 39, 30)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !r.Significant {
			t.Error("corrected p 0.0063 must be significant at alpha 0.05")
		}
	})

	t.Run("rejects invalid p-values", func(t *testing.T) {
		if _, err := NewFeatureResult("x", 0, 1.2, 1.2, 0.05, 5, 5); err == nil {
			t.Error("Expected error for p > 1")
		}
		if _, err := NewFeatureResult("x", 0, math.NaN(), 0, 0.05, 5, 5); err == nil {
			t.Error("Expected error for NaN p")
		}
	})

	t.Run("rejects tiny groups", func(t *testing.T) {
		_, err := NewFeatureResult("x", 0, 0.5, 0.5, 0.05, 1, 5)
		if !errors.Is(err, core.ErrInsufficientData) {
			t.Errorf("Expected ErrInsufficientData, got %v", err)
		}
	})

	t.Run("not computable keeps slot", func(t *testing.T) {
		r := NewNotComputableResult("x", core.NewInsufficientDataError("x", 1, 5))
		if r.Status != StatusNotComputable {
			t.Errorf("Expected not_computable status, got %s", r.Status)
		}
		if !math.IsNaN(r.RawP) || !math.IsNaN(r.CorrectedP) {
			t.Error("Expected NaN p-values for not computable result")
		}
		if r.Error == "" {
			t.Error("Expected error message to be recorded")
		}
	})
}

func TestSignificantFilterPreservesOrder(t *testing.T) {
	results := []FeatureResult{
		{Feature: "a", Significant: true, Status: StatusComputed},
		{Feature: "b", Significant: false, Status: StatusComputed},
		{Feature: "c", Significant: true, Status: StatusComputed},
		{Feature: "d", Significant: true, Status: StatusNotComputable}, // never selected
	}

	sig := Significant(results)
	if len(sig) != 2 {
		t.Fatalf("Expected 2 significant features, got %d", len(sig))
	}
	if sig[0].Feature != "a" || sig[1].Feature != "c" {
		t.Errorf("Expected order [a c], got %v", FeatureKeys(sig))
	}
}

func TestNewRunCounts(t *testing.T) {
	results := []FeatureResult{
		{Feature: "a", Significant: true, Status: StatusComputed},
		{Feature: "b", Significant: false, Status: StatusComputed},
		{Feature: "c", Status: StatusNotComputable},
	}

	run := NewRun("urine.csv", Options{ClassA: "cachexic", ClassB: "control"}.Normalize(), 3, 77, results, 12)
	if run.RunID == "" {
		t.Error("Expected run ID to be generated")
	}
	if run.ComputedCount != 2 || run.SignificantCount != 1 || run.SkippedCount != 1 {
		t.Errorf("Unexpected counts: computed=%d significant=%d skipped=%d",
			run.ComputedCount, run.SignificantCount, run.SkippedCount)
	}
	if run.TotalFeatures != 3 {
		t.Errorf("Expected total features 3, got %d", run.TotalFeatures)
	}
}
