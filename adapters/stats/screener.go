package stats

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"metascreen/domain/core"
	"metascreen/domain/screen"
)

// Screener performs per-feature differential abundance screening with
// Bonferroni correction. A single Screen call is a pure function of its
// inputs: no shared mutable state, no randomness.
type Screener struct{}

// NewScreener creates a new differential abundance screener
func NewScreener() *Screener {
	return &Screener{}
}

// Screen computes one FeatureResult per matrix column, in column order.
// The Bonferroni multiplier is the column count of the input matrix,
// captured once here and applied uniformly to every feature of the call.
func (s *Screener) Screen(ctx context.Context, matrix *screen.FeatureMatrix, labels screen.LabelVector, opts screen.Options) ([]screen.FeatureResult, error) {
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if matrix == nil || matrix.Cols() == 0 {
		return nil, core.ErrEmptyMatrix
	}
	if len(labels) != matrix.Rows() {
		return nil, core.NewShapeMismatchError(len(labels), matrix.Rows())
	}

	// Minimum sample size for a two-sample test: both configured classes
	// must appear at least twice. Count 0/0 also covers the case where
	// every row carries a foreign or missing label.
	if labels.Count(opts.ClassA) < 2 || labels.Count(opts.ClassB) < 2 {
		return nil, core.NewLabelMismatchError(opts.ClassA, opts.ClassB)
	}

	totalFeatures := matrix.Cols()

	if opts.Workers > 1 {
		return s.screenParallel(ctx, matrix, labels, opts, totalFeatures)
	}

	results := make([]screen.FeatureResult, totalFeatures)
	for i := 0; i < totalFeatures; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.screenFeature(matrix.Features[i], matrix.Column(i), labels, opts, totalFeatures)
		if err != nil {
			if opts.OnError == screen.SkipAndContinue {
				results[i] = screen.NewNotComputableResult(matrix.Features[i], err)
				continue
			}
			return nil, err
		}
		results[i] = result
	}
	return results, nil
}

// screenParallel fans the per-feature loop out across workers. Each feature
// touches only its own column plus the read-only label vector, so the only
// ordering requirement is re-assembly into column order, which the indexed
// results slice provides.
func (s *Screener) screenParallel(ctx context.Context, matrix *screen.FeatureMatrix, labels screen.LabelVector, opts screen.Options, totalFeatures int) ([]screen.FeatureResult, error) {
	results := make([]screen.FeatureResult, totalFeatures)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i := 0; i < totalFeatures; i++ {
		idx := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := s.screenFeature(matrix.Features[idx], matrix.Column(idx), labels, opts, totalFeatures)
			if err != nil {
				if opts.OnError == screen.SkipAndContinue {
					results[idx] = screen.NewNotComputableResult(matrix.Features[idx], err)
					return nil
				}
				return err
			}
			results[idx] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// screenFeature runs the per-feature algorithm: partition by class, drop
// missing values, test means, apply the call-wide Bonferroni constant.
func (s *Screener) screenFeature(feature core.FeatureKey, column []float64, labels screen.LabelVector, opts screen.Options, totalFeatures int) (screen.FeatureResult, error) {
	groupA, groupB := partition(column, labels, opts.ClassA, opts.ClassB)

	if len(groupA) < 2 || len(groupB) < 2 {
		return screen.FeatureResult{}, core.NewInsufficientDataError(feature, len(groupA), len(groupB))
	}

	test, err := TwoSampleTTest(groupA, groupB, opts.Test)
	if err != nil {
		return screen.FeatureResult{}, err
	}

	// Bonferroni: raw p times the feature count of the whole call.
	// Corrected values above 1.0 are reported as-is unless capping is
	// requested.
	corrected := test.PValue * float64(totalFeatures)
	if opts.CapCorrected && corrected > 1.0 {
		corrected = 1.0
	}

	return screen.NewFeatureResult(feature, test.MeanDifference(), test.PValue, corrected, opts.Alpha, len(groupA), len(groupB))
}

// partition splits a feature column into the two configured class groups.
// Rows with any other label, a missing label, or a missing measurement are
// excluded; they never form a third group.
func partition(column []float64, labels screen.LabelVector, classA, classB string) (groupA, groupB []float64) {
	for i, v := range column {
		if math.IsNaN(v) {
			continue
		}
		switch labels[i] {
		case classA:
			groupA = append(groupA, v)
		case classB:
			groupB = append(groupB, v)
		}
	}
	return groupA, groupB
}
