package ports

import (
	"context"

	"metascreen/domain/screen"
)

// DatasetReader parses an external tabular source into the screening inputs.
// Loading and parsing live behind this port; the screener itself never
// touches files.
type DatasetReader interface {
	// ReadDataset returns the feature matrix and the positionally aligned
	// label vector. The subject identifier column is discarded, the label
	// column is extracted, and every remaining column becomes a feature.
	ReadDataset(ctx context.Context, labelColumn string) (*screen.FeatureMatrix, screen.LabelVector, error)
}

// ScreenerPort runs the differential abundance screen
type ScreenerPort interface {
	Screen(ctx context.Context, matrix *screen.FeatureMatrix, labels screen.LabelVector, opts screen.Options) ([]screen.FeatureResult, error)
}
