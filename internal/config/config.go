package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds pipeline configuration.
type Config struct {
	// RawDataDir is the directory scanned for trip CSV files.
	RawDataDir string

	// DatabasePath is the sqlite results store.
	DatabasePath string

	// SampleFraction optionally subsamples the loaded dataset (0 < f <= 1).
	// 1 loads everything.
	SampleFraction float64

	// RandomSeed seeds sampling and K-Means initialization.
	RandomSeed int64

	LogLevel string

	Paths Paths
}

// Paths groups the output directories the pipeline writes to.
// Directory creation is an explicit step (EnsureDirs), never a side
// effect of loading configuration.
type Paths struct {
	ProcessedDir string
	FiguresDir   string
	ReportsDir   string
	ArtifactsDir string
}

// Load reads configuration from environment variables or falls back
// to defaults. A .env file in the working directory is honored when
// present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		RawDataDir:     getEnv("RAW_DATA_DIR", "data/raw/bikeshare"),
		DatabasePath:   getEnv("DB_PATH", "data/results.db"),
		SampleFraction: getEnvFloat("SAMPLE_FRACTION", 1.0),
		RandomSeed:     int64(getEnvInt("RANDOM_SEED", 42)),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Paths: Paths{
			ProcessedDir: getEnv("PROCESSED_DIR", "data/processed"),
			FiguresDir:   getEnv("FIGURES_DIR", "reports/figures"),
			ReportsDir:   getEnv("REPORTS_DIR", "reports"),
			ArtifactsDir: getEnv("ARTIFACTS_DIR", "artifacts"),
		},
	}
}

// EnsureDirs creates every output directory, including parents.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.ProcessedDir, p.FiguresDir, p.ReportsDir, p.ArtifactsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	return nil
}

// ProcessedFile returns the path of a processed-data file.
func (p Paths) ProcessedFile(name string) string {
	return filepath.Join(p.ProcessedDir, name)
}

// FigureFile returns the path of a figure file.
func (p Paths) FigureFile(name string) string {
	return filepath.Join(p.FiguresDir, name)
}

// ReportFile returns the path of a report table file.
func (p Paths) ReportFile(name string) string {
	return filepath.Join(p.ReportsDir, name)
}

// ArtifactFile returns the path of a fitted-pipeline artifact file.
func (p Paths) ArtifactFile(name string) string {
	return filepath.Join(p.ArtifactsDir, name)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
