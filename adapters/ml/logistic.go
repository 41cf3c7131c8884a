package ml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/evaluation"
	"github.com/sjwhitworth/golearn/linear_models"

	"metascreen/domain/screen"
	"metascreen/ports"
)

// LogisticClassifier estimates label predictability with an L2-regularized
// logistic regression from golearn. Model fitting and evaluation are the
// library's; this adapter only shapes the data and splits the folds.
type LogisticClassifier struct {
	c    float64 // inverse regularization strength
	eps  float64
	seed int64
}

// NewLogisticClassifier creates a logistic regression classifier
func NewLogisticClassifier(c float64) *LogisticClassifier {
	if c <= 0 {
		c = 1.0
	}
	return &LogisticClassifier{c: c, eps: 1e-6, seed: 1}
}

var _ ports.Classifier = (*LogisticClassifier)(nil)

// Name returns the classifier name
func (c *LogisticClassifier) Name() string {
	return "logistic_regression"
}

// CrossValidate fits one model per stratified fold and scores each held-out
// split with golearn's confusion matrix accuracy
func (c *LogisticClassifier) CrossValidate(ctx context.Context, matrix *screen.FeatureMatrix, labels screen.LabelVector, classA, classB string, folds int) (ports.CVResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.CVResult{}, err
	}
	set, err := PrepareTrainingSet(matrix, labels, classA, classB)
	if err != nil {
		return ports.CVResult{}, err
	}
	if folds < 2 {
		return ports.CVResult{}, fmt.Errorf("need at least 2 folds, got %d", folds)
	}

	splits, err := StratifiedKFold(set.Y, folds, c.seed)
	if err != nil {
		return ports.CVResult{}, err
	}

	dir, err := os.MkdirTemp("", "metascreen-ml")
	if err != nil {
		return ports.CVResult{}, fmt.Errorf("could not create staging dir: %w", err)
	}
	defer os.RemoveAll(dir)

	accuracies := make([]float64, 0, len(splits))
	for f, fold := range splits {
		if err := ctx.Err(); err != nil {
			return ports.CVResult{}, err
		}

		trainData, err := stageInstances(dir, fmt.Sprintf("train_%d.csv", f), set, fold.TrainIdx)
		if err != nil {
			return ports.CVResult{}, err
		}
		testData, err := stageInstances(dir, fmt.Sprintf("test_%d.csv", f), set, fold.TestIdx)
		if err != nil {
			return ports.CVResult{}, err
		}

		lr, err := linear_models.NewLogisticRegression("l2", c.c, c.eps)
		if err != nil {
			return ports.CVResult{}, fmt.Errorf("could not build logistic regression: %w", err)
		}
		if err := lr.Fit(trainData); err != nil {
			return ports.CVResult{}, fmt.Errorf("fold %d training failed: %w", f, err)
		}
		predictions, err := lr.Predict(testData)
		if err != nil {
			return ports.CVResult{}, fmt.Errorf("fold %d prediction failed: %w", f, err)
		}

		cf, err := evaluation.GetConfusionMatrix(testData, predictions)
		if err != nil {
			return ports.CVResult{}, fmt.Errorf("fold %d scoring failed: %w", f, err)
		}
		accuracies = append(accuracies, evaluation.GetAccuracy(cf))
	}

	mean, std := meanStd(accuracies)
	return ports.CVResult{
		Classifier: c.Name(),
		Folds:      folds,
		Accuracy:   mean,
		StdDev:     std,
	}, nil
}

// stageInstances writes the selected samples as a headerless CSV and parses
// it with golearn, whose loader marks the trailing column as the class
// attribute. The class is encoded as -1.0/1.0 because the linear models
// require a numeric class attribute.
func stageInstances(dir, name string, set *TrainingSet, indices []int) (base.FixedDataGrid, error) {
	var sb strings.Builder
	for _, idx := range indices {
		for _, v := range set.X[idx] {
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			sb.WriteByte(',')
		}
		sb.WriteString(classLabel(set.Y[idx]))
		sb.WriteByte('\n')
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return nil, fmt.Errorf("could not stage %s: %w", name, err)
	}
	instances, err := base.ParseCSVToInstances(path, false)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", name, err)
	}
	return instances, nil
}

// classLabel maps the encoded class to the numeric label the model trains on
func classLabel(class int) string {
	if class == 0 {
		return "-1.0"
	}
	return "1.0"
}
