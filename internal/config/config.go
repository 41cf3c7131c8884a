package config

import (
	"os"
	"strconv"
	"strings"

	"metascreen/domain/screen"
	"metascreen/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data     DataConfig
	Screen   ScreenConfig
	ML       MLConfig
	Report   ReportConfig
	Server   ServerConfig
	Database DatabaseConfig
}

// DataConfig holds dataset location and layout settings
type DataConfig struct {
	FilePath    string // CSV or XLSX cohort file
	LabelColumn string
}

// ScreenConfig holds differential abundance screening settings
type ScreenConfig struct {
	ClassA       string
	ClassB       string
	Alpha        float64
	Test         screen.TestKind
	OnError      screen.ErrorPolicy
	CapCorrected bool
	Workers      int
}

// MLConfig holds classifier evaluation settings
type MLConfig struct {
	Enabled     bool
	Classifiers []string // "logistic_regression", "random_forest"
	Folds       int
	Trees       int
	C           float64 // inverse regularization strength
	Seed        int64
}

// ReportConfig holds report output settings
type ReportConfig struct {
	OutputDir string
	HTML      bool
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds optional persistence settings
type DatabaseConfig struct {
	URL string // empty means in-memory storage
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Data: DataConfig{
			FilePath:    os.Getenv("DATA_FILE"),
			LabelColumn: getEnvOrDefault("LABEL_COLUMN", "Muscle loss"),
		},
		Screen: ScreenConfig{
			ClassA:       getEnvOrDefault("CLASS_A", "cachexic"),
			ClassB:       getEnvOrDefault("CLASS_B", "control"),
			Alpha:        getEnvFloatOrDefault("ALPHA", screen.DefaultAlpha),
			Test:         screen.TestKind(getEnvOrDefault("TEST_KIND", string(screen.TestWelch))),
			OnError:      screen.ErrorPolicy(getEnvOrDefault("ERROR_POLICY", string(screen.SkipAndContinue))),
			CapCorrected: getEnvBoolOrDefault("CAP_CORRECTED", false),
			Workers:      getEnvIntOrDefault("SCREEN_WORKERS", 1),
		},
		ML: MLConfig{
			Enabled:     getEnvBoolOrDefault("ML_ENABLED", true),
			Classifiers: splitList(getEnvOrDefault("ML_CLASSIFIERS", "logistic_regression,random_forest")),
			Folds:       getEnvIntOrDefault("ML_FOLDS", 5),
			Trees:       getEnvIntOrDefault("ML_TREES", 500),
			C:           getEnvFloatOrDefault("ML_C", 1.0),
			Seed:        int64(getEnvIntOrDefault("ML_SEED", 1)),
		},
		Report: ReportConfig{
			OutputDir: getEnvOrDefault("REPORT_DIR", "reports"),
			HTML:      getEnvBoolOrDefault("REPORT_HTML", true),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// validateConfig checks required fields
func validateConfig(c *Config) error {
	if c.Data.FilePath == "" {
		return errors.ConfigInvalid("DATA_FILE is required")
	}
	if c.Data.LabelColumn == "" {
		return errors.ConfigInvalid("LABEL_COLUMN cannot be empty")
	}
	opts := c.ScreenOptions()
	if err := opts.Validate(); err != nil {
		return errors.Wrap(err, "invalid screening configuration")
	}
	if c.ML.Enabled && c.ML.Folds < 2 {
		return errors.ConfigInvalid("ML_FOLDS must be at least 2")
	}
	return nil
}

// ScreenOptions projects the config onto screening options
func (c *Config) ScreenOptions() screen.Options {
	return screen.Options{
		ClassA:       c.Screen.ClassA,
		ClassB:       c.Screen.ClassB,
		Alpha:        c.Screen.Alpha,
		Test:         c.Screen.Test,
		OnError:      c.Screen.OnError,
		CapCorrected: c.Screen.CapCorrected,
		Workers:      c.Screen.Workers,
	}.Normalize()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
