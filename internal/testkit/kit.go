package testkit

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"metascreen/domain/core"
	"metascreen/domain/screen"
	"metascreen/ports"
)

// TestKit bundles synthetic-cohort generation with an in-memory
// repository so pipeline tests run without a database or data file.
type TestKit struct {
	repo *InMemoryRunRepository
}

func NewTestKit() *TestKit {
	return &TestKit{repo: NewInMemoryRunRepository()}
}

// RunRepository returns the shared in-memory repository
func (t *TestKit) RunRepository() ports.RunRepository {
	return t.repo
}

// ============================================================================
// SYNTHETIC COHORT GENERATION
// ============================================================================

// CohortSpec describes a synthetic two-group metabolite cohort.
// The first Shifted features get their class-A mean moved by EffectSize
// standard deviations, making them recoverable by the screen.
type CohortSpec struct {
	ClassA      string
	ClassB      string
	SamplesA    int
	SamplesB    int
	Features    int
	Shifted     int
	EffectSize  float64
	MissingRate float64
	Seed        int64
}

// DefaultCohortSpec mirrors a small urinary metabolomics study
func DefaultCohortSpec() CohortSpec {
	return CohortSpec{
		ClassA:     "cachexic",
		ClassB:     "control",
		SamplesA:   30,
		SamplesB:   33,
		Features:   63,
		Shifted:    5,
		EffectSize: 2.0,
		Seed:       1,
	}
}

// GenerateCohort builds a feature matrix and matching label vector.
// The first spec.Shifted features carry the group effect; the rest are noise.
func (t *TestKit) GenerateCohort(spec CohortSpec) (*screen.FeatureMatrix, screen.LabelVector, error) {
	if spec.SamplesA < 2 || spec.SamplesB < 2 {
		return nil, nil, fmt.Errorf("cohort needs at least 2 samples per class, got %d/%d", spec.SamplesA, spec.SamplesB)
	}
	if spec.Features < 1 {
		return nil, nil, fmt.Errorf("cohort needs at least 1 feature, got %d", spec.Features)
	}
	if spec.Shifted > spec.Features {
		return nil, nil, fmt.Errorf("shifted features (%d) exceed feature count (%d)", spec.Shifted, spec.Features)
	}

	rng := rand.New(rand.NewSource(spec.Seed))
	total := spec.SamplesA + spec.SamplesB

	features := make([]core.FeatureKey, spec.Features)
	for j := range features {
		features[j] = core.FeatureKey(fmt.Sprintf("metabolite_%02d", j+1))
	}

	labels := make(screen.LabelVector, total)
	data := make([][]float64, total)
	for i := 0; i < total; i++ {
		label := spec.ClassB
		if i < spec.SamplesA {
			label = spec.ClassA
		}
		labels[i] = label

		row := make([]float64, spec.Features)
		for j := range row {
			value := rng.NormFloat64()
			if j < spec.Shifted && label == spec.ClassA {
				value += spec.EffectSize
			}
			if spec.MissingRate > 0 && rng.Float64() < spec.MissingRate {
				value = math.NaN()
			}
			row[j] = value
		}
		data[i] = row
	}

	matrix, err := screen.NewFeatureMatrix(features, data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build synthetic matrix: %w", err)
	}
	return matrix, labels, nil
}

// ============================================================================
// IN-MEMORY RUN REPOSITORY
// ============================================================================

// InMemoryRunRepository is a map-backed RunRepository for tests and
// database-less runs
type InMemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[core.RunID]*screen.Run
}

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{runs: make(map[core.RunID]*screen.Run)}
}

func (r *InMemoryRunRepository) Create(ctx context.Context, run *screen.Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if run.RunID.String() == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[run.RunID]; exists {
		return fmt.Errorf("run %s already exists", run.RunID)
	}
	r.runs[run.RunID] = run
	return nil
}

func (r *InMemoryRunRepository) GetByID(ctx context.Context, id core.RunID) (*screen.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, core.ErrNotFound)
	}
	return run, nil
}

func (r *InMemoryRunRepository) List(ctx context.Context, filters ports.RunFilters) ([]*screen.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*screen.Run
	for _, run := range r.runs {
		if filters.Dataset != "" && run.Dataset != filters.Dataset {
			continue
		}
		out = append(out, run)
	}
	// Newest first, matching the SQL-backed repository
	sort.Slice(out, func(i, j int) bool {
		return out[j].CreatedAt.Before(out[i].CreatedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return nil, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(out) {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r *InMemoryRunRepository) Delete(ctx context.Context, id core.RunID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[id]; !ok {
		return fmt.Errorf("run %s: %w", id, core.ErrNotFound)
	}
	delete(r.runs, id)
	return nil
}

var _ ports.RunRepository = (*InMemoryRunRepository)(nil)
