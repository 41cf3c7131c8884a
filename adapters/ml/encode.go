package ml

import (
	"fmt"
	"math"
	"math/rand"

	"metascreen/domain/screen"
)

// TrainingSet is a dense, fully observed design matrix with encoded labels.
// Class 0 is the first configured class, class 1 the second.
type TrainingSet struct {
	X       [][]float64
	Y       []int
	Classes [2]string
}

// PrepareTrainingSet converts screening inputs into classifier inputs. Rows
// with a missing measurement, a missing label, or a label outside the two
// configured classes are dropped: the external models cannot consume NaN.
func PrepareTrainingSet(matrix *screen.FeatureMatrix, labels screen.LabelVector, classA, classB string) (*TrainingSet, error) {
	if matrix == nil || matrix.Cols() == 0 {
		return nil, fmt.Errorf("empty feature matrix")
	}
	if len(labels) != matrix.Rows() {
		return nil, fmt.Errorf("label count %d does not match %d rows", len(labels), matrix.Rows())
	}

	set := &TrainingSet{Classes: [2]string{classA, classB}}
	for i, row := range matrix.Data {
		var class int
		switch labels[i] {
		case classA:
			class = 0
		case classB:
			class = 1
		default:
			continue
		}
		if hasMissing(row) {
			continue
		}
		sample := make([]float64, len(row))
		copy(sample, row)
		set.X = append(set.X, sample)
		set.Y = append(set.Y, class)
	}

	if countClass(set.Y, 0) < 2 || countClass(set.Y, 1) < 2 {
		return nil, fmt.Errorf("need at least 2 complete samples per class, got %d/%d",
			countClass(set.Y, 0), countClass(set.Y, 1))
	}
	return set, nil
}

// Len returns the number of usable samples
func (s *TrainingSet) Len() int { return len(s.Y) }

// Fold is one train/test split of a cross-validation
type Fold struct {
	TrainIdx []int
	TestIdx  []int
}

// StratifiedKFold splits sample indices into k folds that keep the class
// ratio of the full set. The shuffle is seeded so a cross-validation run is
// reproducible.
func StratifiedKFold(y []int, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	for class := 0; class <= 1; class++ {
		if countClass(y, class) < k {
			return nil, fmt.Errorf("class %d has %d samples, fewer than %d folds", class, countClass(y, class), k)
		}
	}

	rng := rand.New(rand.NewSource(seed))

	// Deal each class's shuffled indices round-robin across folds
	testSets := make([][]int, k)
	for class := 0; class <= 1; class++ {
		var idx []int
		for i, v := range y {
			if v == class {
				idx = append(idx, i)
			}
		}
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		for i, sample := range idx {
			testSets[i%k] = append(testSets[i%k], sample)
		}
	}

	folds := make([]Fold, k)
	for f := 0; f < k; f++ {
		inTest := make(map[int]bool, len(testSets[f]))
		for _, i := range testSets[f] {
			inTest[i] = true
		}
		folds[f].TestIdx = testSets[f]
		for i := range y {
			if !inTest[i] {
				folds[f].TrainIdx = append(folds[f].TrainIdx, i)
			}
		}
	}
	return folds, nil
}

// meanStd returns the mean and standard deviation of fold accuracies
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func hasMissing(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func countClass(y []int, class int) int {
	n := 0
	for _, v := range y {
		if v == class {
			n++
		}
	}
	return n
}
