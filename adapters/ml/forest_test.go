package ml

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metascreen/domain/core"
	"metascreen/domain/screen"
)

// separableCohort builds two well-separated clusters, 20 samples per class
func separableCohort(t *testing.T) (*screen.FeatureMatrix, screen.LabelVector) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))

	features := []core.FeatureKey{"Creatinine", "Citrate", "Hippurate"}
	var data [][]float64
	var labels screen.LabelVector
	for i := 0; i < 20; i++ {
		data = append(data, []float64{
			10 + rng.NormFloat64(),
			20 + rng.NormFloat64(),
			30 + rng.NormFloat64(),
		})
		labels = append(labels, "cachexic")
	}
	for i := 0; i < 20; i++ {
		data = append(data, []float64{
			-10 + rng.NormFloat64(),
			-20 + rng.NormFloat64(),
			-30 + rng.NormFloat64(),
		})
		labels = append(labels, "control")
	}

	matrix, err := screen.NewFeatureMatrix(features, data)
	require.NoError(t, err)
	return matrix, labels
}

func TestForestClassifierSeparableData(t *testing.T) {
	matrix, labels := separableCohort(t)
	clf := NewForestClassifier(100, 1)

	cv, err := clf.CrossValidate(context.Background(), matrix, labels, "cachexic", "control", 5)
	require.NoError(t, err)

	assert.Equal(t, "random_forest", cv.Classifier)
	assert.Equal(t, 5, cv.Folds)
	// Clusters this far apart should be almost perfectly separable
	assert.Greater(t, cv.Accuracy, 0.8)
	assert.LessOrEqual(t, cv.Accuracy, 1.0)
	assert.GreaterOrEqual(t, cv.StdDev, 0.0)
}

func TestForestClassifierDefaults(t *testing.T) {
	clf := NewForestClassifier(0, 1)
	assert.Equal(t, 500, clf.trees)
}

func TestForestClassifierRejectsMissingClass(t *testing.T) {
	matrix, labels := separableCohort(t)
	clf := NewForestClassifier(50, 1)

	_, err := clf.CrossValidate(context.Background(), matrix, labels, "cachexic", "relapse", 3)
	assert.Error(t, err)
}

func TestForestClassifierCancelledContext(t *testing.T) {
	matrix, labels := separableCohort(t)
	clf := NewForestClassifier(50, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := clf.CrossValidate(ctx, matrix, labels, "cachexic", "control", 3)
	assert.ErrorIs(t, err, context.Canceled)
}
