package ports

import (
	"context"

	"metascreen/domain/core"
	"metascreen/domain/screen"
)

// RunFilters for querying stored screening runs
type RunFilters struct {
	Dataset string
	Limit   int
	Offset  int
}

// RunRepository persists screening runs and their per-feature results
type RunRepository interface {
	Create(ctx context.Context, run *screen.Run) error
	GetByID(ctx context.Context, id core.RunID) (*screen.Run, error)
	List(ctx context.Context, filters RunFilters) ([]*screen.Run, error)
	Delete(ctx context.Context, id core.RunID) error
}
