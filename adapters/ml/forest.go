package ml

import (
	"context"

	randomforest "github.com/malaschitz/randomForest"

	"metascreen/domain/screen"
	"metascreen/ports"
)

// ForestClassifier estimates label predictability with a random forest.
// The trees come entirely from the external library; this adapter only
// handles fold splitting and accuracy bookkeeping.
type ForestClassifier struct {
	trees int
	seed  int64
}

// NewForestClassifier creates a forest classifier with the given ensemble size
func NewForestClassifier(trees int, seed int64) *ForestClassifier {
	if trees <= 0 {
		trees = 500
	}
	return &ForestClassifier{trees: trees, seed: seed}
}

var _ ports.Classifier = (*ForestClassifier)(nil)

// Name returns the classifier name
func (c *ForestClassifier) Name() string {
	return "random_forest"
}

// CrossValidate trains one forest per fold and averages held-out accuracy
func (c *ForestClassifier) CrossValidate(ctx context.Context, matrix *screen.FeatureMatrix, labels screen.LabelVector, classA, classB string, folds int) (ports.CVResult, error) {
	set, err := PrepareTrainingSet(matrix, labels, classA, classB)
	if err != nil {
		return ports.CVResult{}, err
	}
	return c.crossValidateSet(ctx, set, folds)
}

func (c *ForestClassifier) crossValidateSet(ctx context.Context, set *TrainingSet, folds int) (ports.CVResult, error) {
	splits, err := StratifiedKFold(set.Y, folds, c.seed)
	if err != nil {
		return ports.CVResult{}, err
	}

	accuracies := make([]float64, 0, len(splits))
	for _, fold := range splits {
		if err := ctx.Err(); err != nil {
			return ports.CVResult{}, err
		}

		trainX := make([][]float64, len(fold.TrainIdx))
		trainY := make([]int, len(fold.TrainIdx))
		for i, idx := range fold.TrainIdx {
			trainX[i] = set.X[idx]
			trainY[i] = set.Y[idx]
		}

		forest := &randomforest.Forest{}
		forest.Data = randomforest.ForestData{X: trainX, Class: trainY}
		forest.Train(c.trees)

		correct := 0
		for _, idx := range fold.TestIdx {
			votes := forest.Vote(set.X[idx])
			if argmax(votes) == set.Y[idx] {
				correct++
			}
		}
		accuracies = append(accuracies, float64(correct)/float64(len(fold.TestIdx)))
	}

	mean, std := meanStd(accuracies)
	return ports.CVResult{
		Classifier: c.Name(),
		Folds:      folds,
		Accuracy:   mean,
		StdDev:     std,
	}, nil
}

func argmax(votes []float64) int {
	best := 0
	for i, v := range votes {
		if v > votes[best] {
			best = i
		}
	}
	return best
}
