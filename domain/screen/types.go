package screen

import (
	"fmt"
	"math"

	"metascreen/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// FeatureMatrix is the canonical input for differential abundance screening.
// INVARIANTS:
// - every row has exactly len(Features) values
// - column order is the order features were read from the source
// - NaN encodes a missing measurement
type FeatureMatrix struct {
	Features []core.FeatureKey `json:"features"`
	Data     [][]float64       `json:"data"` // rows=samples, cols=features
}

// NewFeatureMatrix creates a feature matrix with shape validation
func NewFeatureMatrix(features []core.FeatureKey, data [][]float64) (*FeatureMatrix, error) {
	if len(features) == 0 {
		return nil, core.ErrEmptyMatrix
	}
	for i, row := range data {
		if len(row) != len(features) {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d",
				core.ErrShapeMismatch, i, len(row), len(features))
		}
	}
	return &FeatureMatrix{Features: features, Data: data}, nil
}

// Rows returns the number of samples
func (m *FeatureMatrix) Rows() int {
	return len(m.Data)
}

// Cols returns the number of features
func (m *FeatureMatrix) Cols() int {
	return len(m.Features)
}

// Column extracts the values of one feature across all samples
func (m *FeatureMatrix) Column(idx int) []float64 {
	col := make([]float64, len(m.Data))
	for i, row := range m.Data {
		col[i] = row[idx]
	}
	return col
}

// ColumnIndex returns the position of a feature, or -1 if absent
func (m *FeatureMatrix) ColumnIndex(key core.FeatureKey) int {
	for i, f := range m.Features {
		if f == key {
			return i
		}
	}
	return -1
}

// Select projects the matrix onto a subset of features, preserving the
// requested order. Fails if any feature is absent.
func (m *FeatureMatrix) Select(keys []core.FeatureKey) (*FeatureMatrix, error) {
	if len(keys) == 0 {
		return nil, core.ErrEmptyMatrix
	}
	indices := make([]int, len(keys))
	for i, key := range keys {
		idx := m.ColumnIndex(key)
		if idx < 0 {
			return nil, fmt.Errorf("%w: feature %q", core.ErrNotFound, key)
		}
		indices[i] = idx
	}

	data := make([][]float64, len(m.Data))
	for r, row := range m.Data {
		sub := make([]float64, len(indices))
		for c, idx := range indices {
			sub[c] = row[idx]
		}
		data[r] = sub
	}
	selected := make([]core.FeatureKey, len(keys))
	copy(selected, keys)
	return &FeatureMatrix{Features: selected, Data: data}, nil
}

// LabelVector holds the per-sample class labels, positionally aligned with
// matrix rows. An empty string encodes a missing label.
type LabelVector []string

// Distinct returns the distinct non-missing label values in first-seen order
func (l LabelVector) Distinct() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range l {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Count returns how many samples carry the given label
func (l LabelVector) Count(class string) int {
	n := 0
	for _, v := range l {
		if v == class {
			n++
		}
	}
	return n
}

// ============================================================================
// SCREENING CONFIGURATION
// ============================================================================

// TestKind selects the two-sample test used per feature
type TestKind string

const (
	TestWelch   TestKind = "welch"   // Unequal-variance t-test (default)
	TestStudent TestKind = "student" // Pooled-variance t-test
)

// ErrorPolicy controls how per-feature failures propagate
type ErrorPolicy string

const (
	// AbortOnError fails the whole screening call on the first feature error
	AbortOnError ErrorPolicy = "abort"
	// SkipAndContinue reports the offending feature as not computable and
	// keeps processing, preserving the 1:1 feature-to-result mapping
	SkipAndContinue ErrorPolicy = "skip"
)

// DefaultAlpha is the significance threshold applied after correction
const DefaultAlpha = 0.05

// Options configures a screening call. ClassA and ClassB are explicit:
// mean difference is mean(ClassA) - mean(ClassB), never inferred from order.
type Options struct {
	ClassA       string      `json:"class_a"`
	ClassB       string      `json:"class_b"`
	Alpha        float64     `json:"alpha"`
	Test         TestKind    `json:"test"`
	OnError      ErrorPolicy `json:"on_error"`
	CapCorrected bool        `json:"cap_corrected"` // clamp corrected p at 1.0
	Workers      int         `json:"workers"`       // <=1 means sequential
}

// Normalize fills unset fields with defaults
func (o Options) Normalize() Options {
	if o.Alpha == 0 {
		o.Alpha = DefaultAlpha
	}
	if o.Test == "" {
		o.Test = TestWelch
	}
	if o.OnError == "" {
		o.OnError = AbortOnError
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// Validate checks the class configuration
func (o Options) Validate() error {
	if o.ClassA == "" || o.ClassB == "" {
		return fmt.Errorf("%w: class_a and class_b must be set", core.ErrLabelMismatch)
	}
	if o.ClassA == o.ClassB {
		return fmt.Errorf("%w: class_a and class_b must be distinct", core.ErrLabelMismatch)
	}
	if o.Alpha <= 0 || o.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1), got %f", o.Alpha)
	}
	switch o.Test {
	case TestWelch, TestStudent:
	default:
		return fmt.Errorf("unknown test kind: %q", o.Test)
	}
	switch o.OnError {
	case AbortOnError, SkipAndContinue:
	default:
		return fmt.Errorf("unknown error policy: %q", o.OnError)
	}
	return nil
}

// ============================================================================
// SCREENING RESULTS
// ============================================================================

// ResultStatus marks whether a feature's statistics could be computed
type ResultStatus string

const (
	StatusComputed      ResultStatus = "computed"
	StatusNotComputable ResultStatus = "not_computable"
)

// FeatureResult holds the per-feature screening outcome.
// INVARIANTS:
// - CorrectedP == RawP * total feature count of the call (unless capped)
// - Significant == (CorrectedP < alpha)
// - a not-computable feature keeps its slot with Status and Error set
type FeatureResult struct {
	Feature        core.FeatureKey `json:"feature"`
	MeanDifference float64         `json:"mean_difference"`
	RawP           float64         `json:"raw_p_value"`
	CorrectedP     float64         `json:"corrected_p_value"`
	Significant    bool            `json:"is_significant"`
	GroupSizeA     int             `json:"group_size_a"`
	GroupSizeB     int             `json:"group_size_b"`
	Status         ResultStatus    `json:"status"`
	Error          string          `json:"error,omitempty"`
}

// NewFeatureResult creates a computed result with invariant validation
func NewFeatureResult(feature core.FeatureKey, meanDiff, rawP, correctedP float64, alpha float64, nA, nB int) (FeatureResult, error) {
	if rawP < 0 || rawP > 1 || math.IsNaN(rawP) {
		return FeatureResult{}, fmt.Errorf("raw p-value must be in [0, 1], got %f", rawP)
	}
	if nA < 2 || nB < 2 {
		return FeatureResult{}, core.NewInsufficientDataError(feature, nA, nB)
	}
	return FeatureResult{
		Feature:        feature,
		MeanDifference: meanDiff,
		RawP:           rawP,
		CorrectedP:     correctedP,
		Significant:    correctedP < alpha,
		GroupSizeA:     nA,
		GroupSizeB:     nB,
		Status:         StatusComputed,
	}, nil
}

// NewNotComputableResult keeps the feature's slot when its statistics failed
func NewNotComputableResult(feature core.FeatureKey, cause error) FeatureResult {
	return FeatureResult{
		Feature: feature,
		RawP:    math.NaN(),
		// corrected p is undefined for a failed feature
		CorrectedP: math.NaN(),
		Status:     StatusNotComputable,
		Error:      cause.Error(),
	}
}

// Significant filters a result sequence down to significant features,
// preserving input order
func Significant(results []FeatureResult) []FeatureResult {
	var out []FeatureResult
	for _, r := range results {
		if r.Status == StatusComputed && r.Significant {
			out = append(out, r)
		}
	}
	return out
}

// FeatureKeys projects results onto their feature names, preserving order
func FeatureKeys(results []FeatureResult) []core.FeatureKey {
	keys := make([]core.FeatureKey, len(results))
	for i, r := range results {
		keys[i] = r.Feature
	}
	return keys
}

// ============================================================================
// RUN ARTIFACT (Complete audit trail)
// ============================================================================

// Run captures the complete configuration and outcome of one screening call
type Run struct {
	RunID   core.RunID `json:"run_id"`
	Dataset string     `json:"dataset"`
	Options Options    `json:"options"`

	TotalFeatures    int `json:"total_features"` // Bonferroni multiplier
	SampleCount      int `json:"sample_count"`
	ComputedCount    int `json:"computed_count"`
	SignificantCount int `json:"significant_count"`
	SkippedCount     int `json:"skipped_count"`

	Results   []FeatureResult `json:"results"`
	RuntimeMs int64           `json:"runtime_ms"`
	CreatedAt core.Timestamp  `json:"created_at"`
}

// NewRun assembles the audit artifact for a finished screening call
func NewRun(dataset string, opts Options, totalFeatures, sampleCount int, results []FeatureResult, runtimeMs int64) *Run {
	run := &Run{
		RunID:         core.RunID(core.NewID()),
		Dataset:       dataset,
		Options:       opts,
		TotalFeatures: totalFeatures,
		SampleCount:   sampleCount,
		Results:       results,
		RuntimeMs:     runtimeMs,
		CreatedAt:     core.Now(),
	}
	for _, r := range results {
		switch r.Status {
		case StatusComputed:
			run.ComputedCount++
			if r.Significant {
				run.SignificantCount++
			}
		case StatusNotComputable:
			run.SkippedCount++
		}
	}
	return run
}
