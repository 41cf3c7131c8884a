package ml

import (
	"context"
	"strconv"
	"testing"

	"github.com/sjwhitworth/golearn/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogisticClassifierSeparableData(t *testing.T) {
	matrix, labels := separableCohort(t)
	clf := NewLogisticClassifier(1.0)

	cv, err := clf.CrossValidate(context.Background(), matrix, labels, "cachexic", "control", 5)
	require.NoError(t, err)

	assert.Equal(t, "logistic_regression", cv.Classifier)
	assert.Equal(t, 5, cv.Folds)
	assert.GreaterOrEqual(t, cv.Accuracy, 0.0)
	assert.LessOrEqual(t, cv.Accuracy, 1.0)
	// Linear separation this wide should be easy for a linear model
	assert.Greater(t, cv.Accuracy, 0.7)
}

func TestLogisticClassifierDeterministicFolds(t *testing.T) {
	matrix, labels := separableCohort(t)
	clf := NewLogisticClassifier(1.0)

	first, err := clf.CrossValidate(context.Background(), matrix, labels, "cachexic", "control", 5)
	require.NoError(t, err)
	second, err := clf.CrossValidate(context.Background(), matrix, labels, "cachexic", "control", 5)
	require.NoError(t, err)

	assert.Equal(t, first.Accuracy, second.Accuracy)
	assert.Equal(t, first.StdDev, second.StdDev)
}

func TestStageInstancesNumericClassColumn(t *testing.T) {
	set := &TrainingSet{
		X:       [][]float64{{1.5, 2}, {3, 4.25}},
		Y:       []int{0, 1},
		Classes: [2]string{"cachexic", "control"},
	}

	grid, err := stageInstances(t.TempDir(), "train_0.csv", set, []int{0, 1})
	require.NoError(t, err)

	_, rows := grid.Size()
	assert.Equal(t, 2, rows)

	classAttrs := grid.AllClassAttributes()
	require.Len(t, classAttrs, 1)
	// The linear models reject categorical class attributes, so the
	// staged label column must parse as a float
	_, ok := classAttrs[0].(*base.FloatAttribute)
	assert.True(t, ok, "class attribute should be numeric")

	first, err := strconv.ParseFloat(base.GetClass(grid, 0), 64)
	require.NoError(t, err)
	second, err := strconv.ParseFloat(base.GetClass(grid, 1), 64)
	require.NoError(t, err)
	assert.Equal(t, -1.0, first)
	assert.Equal(t, 1.0, second)
}

func TestLogisticClassifierDefaults(t *testing.T) {
	clf := NewLogisticClassifier(-1)
	assert.Equal(t, 1.0, clf.c)
}

func TestLogisticClassifierRejectsBadFolds(t *testing.T) {
	matrix, labels := separableCohort(t)
	clf := NewLogisticClassifier(1.0)

	_, err := clf.CrossValidate(context.Background(), matrix, labels, "cachexic", "control", 1)
	assert.Error(t, err)
}

func TestLogisticClassifierCancelledContext(t *testing.T) {
	matrix, labels := separableCohort(t)
	clf := NewLogisticClassifier(1.0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := clf.CrossValidate(ctx, matrix, labels, "cachexic", "control", 3)
	assert.ErrorIs(t, err, context.Canceled)
}
