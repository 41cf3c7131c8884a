package app

import (
	"context"
	"fmt"
	"time"

	"metascreen/domain/screen"
	"metascreen/internal"
	apperrors "metascreen/internal/errors"
	"metascreen/internal/profiling"
	"metascreen/internal/report"
	"metascreen/ports"
)

// PipelineService orchestrates the full screening pipeline: read the
// dataset, run the differential abundance screen, profile feature
// distributions, cross-validate classifiers on the surviving features,
// then persist and report.
type PipelineService struct {
	reader      ports.DatasetReader
	screener    ports.ScreenerPort
	classifiers []ports.Classifier
	profiler    *profiling.DistributionAnalyzer
	repo        ports.RunRepository
	reporter    *report.Builder
	logger      *internal.Logger
}

// PipelineRequest defines the inputs for one pipeline execution
type PipelineRequest struct {
	Dataset     string // dataset name recorded in the audit artifact
	LabelColumn string
	Options     screen.Options
	CVFolds     int
}

// PipelineResult contains the complete output of a pipeline execution
type PipelineResult struct {
	Run        *screen.Run                `json:"run"`
	Profiles   []profiling.FeatureProfile `json:"profiles,omitempty"`
	CVResults  []ports.CVResult           `json:"cv_results,omitempty"`
	ReportPath string                     `json:"report_path,omitempty"`
}

// NewPipelineService creates a pipeline service. The repository and the
// report builder may be nil, in which case persistence and reporting are
// skipped.
func NewPipelineService(
	reader ports.DatasetReader,
	screener ports.ScreenerPort,
	classifiers []ports.Classifier,
	profiler *profiling.DistributionAnalyzer,
	repo ports.RunRepository,
	reporter *report.Builder,
	logger *internal.Logger,
) *PipelineService {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &PipelineService{
		reader:      reader,
		screener:    screener,
		classifiers: classifiers,
		profiler:    profiler,
		repo:        repo,
		reporter:    reporter,
		logger:      logger,
	}
}

// Run executes the pipeline end to end
func (s *PipelineService) Run(ctx context.Context, req PipelineRequest) (*PipelineResult, error) {
	matrix, labels, err := s.reader.ReadDataset(ctx, req.LabelColumn)
	if err != nil {
		return nil, apperrors.DatasetError("failed to read dataset", err)
	}
	s.logger.Info("Loaded dataset %s: %d samples, %d features",
		req.Dataset, matrix.Rows(), matrix.Cols())

	startTime := time.Now()
	results, err := s.screener.Screen(ctx, matrix, labels, req.Options)
	if err != nil {
		return nil, apperrors.Wrap(err, "screening failed")
	}
	runtimeMs := time.Since(startTime).Milliseconds()

	run := screen.NewRun(req.Dataset, req.Options.Normalize(), matrix.Cols(), matrix.Rows(), results, runtimeMs)
	s.logger.Info("Screen %s finished in %dms: %d/%d significant, %d skipped",
		run.RunID, runtimeMs, run.SignificantCount, run.TotalFeatures, run.SkippedCount)
	for _, r := range screen.Significant(run.Results) {
		s.logger.Trace("Significant %s: diff=%.4f corrected_p=%.4g", r.Feature, r.MeanDifference, r.CorrectedP)
	}

	result := &PipelineResult{Run: run}

	if s.profiler != nil {
		profiles, err := s.profiler.ProfileMatrix(matrix)
		if err != nil {
			return nil, apperrors.Wrap(err, "distribution profiling failed")
		}
		result.Profiles = profiles
	}

	cvResults, err := s.crossValidate(ctx, run, matrix, labels, req)
	if err != nil {
		return nil, err
	}
	result.CVResults = cvResults

	if s.repo != nil {
		if err := s.repo.Create(ctx, run); err != nil {
			return nil, apperrors.Wrap(err, "failed to persist screening run")
		}
	}

	if s.reporter != nil {
		path, err := s.reporter.Write(report.Input{
			Run:       run,
			Profiles:  result.Profiles,
			CVResults: result.CVResults,
		})
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to write report")
		}
		result.ReportPath = path
		s.logger.Info("Report written to %s", path)
	}

	return result, nil
}

// crossValidate runs every configured classifier on the significant
// feature subset. No significant features or no classifiers means the
// step is skipped, not failed.
func (s *PipelineService) crossValidate(ctx context.Context, run *screen.Run, matrix *screen.FeatureMatrix, labels screen.LabelVector, req PipelineRequest) ([]ports.CVResult, error) {
	if len(s.classifiers) == 0 {
		return nil, nil
	}

	significant := screen.Significant(run.Results)
	if len(significant) == 0 {
		s.logger.Warn("No significant features, skipping classifier cross-validation")
		return nil, nil
	}

	selected, err := matrix.Select(screen.FeatureKeys(significant))
	if err != nil {
		return nil, fmt.Errorf("failed to select significant features: %w", err)
	}

	opts := req.Options.Normalize()
	var out []ports.CVResult
	for _, clf := range s.classifiers {
		cv, err := clf.CrossValidate(ctx, selected, labels, opts.ClassA, opts.ClassB, req.CVFolds)
		if err != nil {
			return nil, apperrors.ClassifierError(clf.Name(), err)
		}
		s.logger.Info("Classifier %s: %.1f%% accuracy over %d folds (features: %d)",
			cv.Classifier, cv.Accuracy*100, cv.Folds, selected.Cols())
		out = append(out, cv)
	}
	return out, nil
}
