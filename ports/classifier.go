package ports

import (
	"context"

	"metascreen/domain/screen"
)

// CVResult is a cross-validated accuracy estimate for one classifier
type CVResult struct {
	Classifier string  `json:"classifier"`
	Folds      int     `json:"folds"`
	Accuracy   float64 `json:"accuracy"` // mean accuracy across folds
	StdDev     float64 `json:"std_dev"`  // fold-to-fold spread
}

// Classifier estimates how predictable the class label is from a feature
// matrix. Training itself is delegated to an external ML library; the port
// only reports the cross-validated accuracy of that library's model. The
// class pair is explicit, mirroring the screener configuration.
type Classifier interface {
	Name() string
	CrossValidate(ctx context.Context, matrix *screen.FeatureMatrix, labels screen.LabelVector, classA, classB string, folds int) (CVResult, error)
}
