// Package config provides the unified configuration system for Prism.
// It defines a single ProfileConfig structure covering one analysis run,
// organized into logical sections:
//   - Sampling: type-detection sample bounds
//   - Performance: worker and chunking settings for the parallel scan
//   - Report: output shaping (top-k, indentation, cardinality warnings)
//   - Observability: logging and metrics
//
// Example usage:
//
//	cfg := config.NewProfileConfig("ads.csv", "ads_stats.json")
//	cfg.GroupBy = []string{"country"}
//	cfg.Performance.Workers = 4
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"runtime"

	"github.com/prism-data/prism/pkg/errors"
)

// ProfileConfig is the configuration for a single analysis run.
type ProfileConfig struct {
	// Source is the path of the CSV dataset to analyze
	Source string `yaml:"source" json:"source"`
	// Output is the path the JSON report is written to
	Output string `yaml:"output" json:"output"`
	// GroupBy lists grouping column names, in order; empty means one
	// implicit group over the whole dataset
	GroupBy []string `yaml:"group_by" json:"group_by"`

	// Sampling controls type detection
	Sampling SamplingConfig `yaml:"sampling" json:"sampling"`

	// Performance settings control the parallel scan
	Performance PerformanceConfig `yaml:"performance" json:"performance"`

	// Report settings shape the emitted summary
	Report ReportConfig `yaml:"report" json:"report"`

	// Observability settings for logging and metrics
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// SamplingConfig bounds the row prefix used for column type detection.
type SamplingConfig struct {
	// SampleSize is the number of leading data rows inspected
	SampleSize int `yaml:"sample_size" json:"sample_size"`
}

// PerformanceConfig contains performance-related settings.
type PerformanceConfig struct {
	// Workers defines the number of concurrent scan workers; 1 forces the
	// sequential single-pass scan
	Workers int `yaml:"workers" json:"workers"`
	// ChunkSize is the number of rows handed to a worker at a time
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// BufferSize sets the size of the row channel buffer
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
}

// ReportConfig contains output shaping settings.
type ReportConfig struct {
	// TopK is the number of most_common tokens reported per discrete column
	TopK int `yaml:"top_k" json:"top_k"`
	// Indent is the indentation unit for the JSON report
	Indent string `yaml:"indent" json:"indent"`
	// CardinalityWarn logs a warning when a frequency table grows past
	// this many distinct tokens (0 disables the check)
	CardinalityWarn int `yaml:"cardinality_warn" json:"cardinality_warn"`
}

// ObservabilityConfig contains logging and metrics settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// EnableMetrics activates Prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
}

// NewProfileConfig returns a ProfileConfig with production defaults for the
// given source and output paths.
func NewProfileConfig(source, output string) *ProfileConfig {
	return &ProfileConfig{
		Source: source,
		Output: output,
		Sampling: SamplingConfig{
			SampleSize: 100,
		},
		Performance: PerformanceConfig{
			Workers:    runtime.NumCPU(),
			ChunkSize:  1000,
			BufferSize: 4096,
		},
		Report: ReportConfig{
			TopK:            5,
			Indent:          "    ",
			CardinalityWarn: 100000,
		},
		Observability: ObservabilityConfig{
			LogLevel:      "info",
			EnableMetrics: false,
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *ProfileConfig) Validate() error {
	if c.Source == "" {
		return errors.New(errors.ErrorTypeConfig, "source path is required")
	}
	if c.Output == "" {
		return errors.New(errors.ErrorTypeConfig, "output path is required")
	}
	if c.Sampling.SampleSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "sample_size must be positive").
			WithDetail("sample_size", c.Sampling.SampleSize)
	}
	if c.Performance.Workers <= 0 {
		return errors.New(errors.ErrorTypeConfig, "workers must be positive").
			WithDetail("workers", c.Performance.Workers)
	}
	if c.Performance.ChunkSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "chunk_size must be positive").
			WithDetail("chunk_size", c.Performance.ChunkSize)
	}
	if c.Performance.BufferSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "buffer_size must be positive").
			WithDetail("buffer_size", c.Performance.BufferSize)
	}
	if c.Report.TopK <= 0 {
		return errors.New(errors.ErrorTypeConfig, "top_k must be positive").
			WithDetail("top_k", c.Report.TopK)
	}
	seen := make(map[string]struct{}, len(c.GroupBy))
	for _, col := range c.GroupBy {
		if col == "" {
			return errors.New(errors.ErrorTypeConfig, "group_by contains an empty column name")
		}
		if _, dup := seen[col]; dup {
			return errors.New(errors.ErrorTypeConfig, "group_by contains a duplicate column").
				WithDetail("column", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}
