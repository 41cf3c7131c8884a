package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"metascreen/adapters/ml"
	"metascreen/adapters/postgres"
	"metascreen/adapters/stats"
	"metascreen/adapters/tabular"
	"metascreen/app"
	"metascreen/internal"
	"metascreen/internal/config"
	"metascreen/internal/errors"
	"metascreen/internal/migration"
	"metascreen/internal/profiling"
	"metascreen/internal/report"
	"metascreen/internal/testkit"
	"metascreen/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Data access
	RunRepo ports.RunRepository

	// Pipeline components
	Reader      ports.DatasetReader
	Screener    ports.ScreenerPort
	Classifiers []ports.Classifier
	Pipeline    *app.PipelineService
}

// New wires the full pipeline from configuration. DATABASE_URL selects
// between the Postgres repository and the in-memory one.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewDefaultLogger(),
	}

	c.Reader = tabular.NewDataReader(cfg.Data.FilePath)
	c.Screener = stats.NewScreener()
	c.Classifiers = buildClassifiers(cfg)

	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to database")
		}
		if err := migration.NewRunner().Run(context.Background(), db); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "database migration failed")
		}
		c.DB = db
		c.RunRepo = postgres.NewRunRepository(db)
	} else {
		c.Logger.Warn("DATABASE_URL not set, storing runs in memory")
		c.RunRepo = testkit.NewInMemoryRunRepository()
	}

	c.Pipeline = app.NewPipelineService(
		c.Reader,
		c.Screener,
		c.Classifiers,
		profiling.NewDistributionAnalyzer(),
		c.RunRepo,
		report.NewBuilder(cfg.Report.OutputDir, cfg.Report.HTML),
		c.Logger,
	)
	return c, nil
}

// PipelineRequest projects the configuration onto a pipeline request
func (c *Container) PipelineRequest() app.PipelineRequest {
	return app.PipelineRequest{
		Dataset:     c.Config.Data.FilePath,
		LabelColumn: c.Config.Data.LabelColumn,
		Options:     c.Config.ScreenOptions(),
		CVFolds:     c.Config.ML.Folds,
	}
}

// Close releases held resources
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

func buildClassifiers(cfg *config.Config) []ports.Classifier {
	if !cfg.ML.Enabled {
		return nil
	}
	var out []ports.Classifier
	for _, name := range cfg.ML.Classifiers {
		switch name {
		case "logistic_regression":
			out = append(out, ml.NewLogisticClassifier(cfg.ML.C))
		case "random_forest":
			out = append(out, ml.NewForestClassifier(cfg.ML.Trees, cfg.ML.Seed))
		}
	}
	return out
}
