package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/prism-data/prism/pkg/config"
	"github.com/prism-data/prism/pkg/engine"
	prismerrors "github.com/prism-data/prism/pkg/errors"
	"github.com/prism-data/prism/pkg/json"
	"github.com/prism-data/prism/pkg/logger"
	"github.com/prism-data/prism/pkg/report"
	"github.com/prism-data/prism/pkg/schema"
	csvsource "github.com/prism-data/prism/pkg/source/csv"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "prism",
		Short: "Prism - Streaming CSV column profiler",
		Long: `Prism computes per-column descriptive statistics over a CSV dataset in a
single streaming pass: numeric moments, categorical frequencies, and exploded
list-valued frequencies, optionally partitioned by one or more grouping
columns. The summary is written as a structured JSON document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Prism v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newAnalyzeCommand())
	root.AddCommand(newTypesCommand())

	if err := root.Execute(); err != nil {
		if prismerrors.IsFatal(err) {
			// Typed run failures go through the structured logger.
			logger.Fatal("run failed", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newAnalyzeCommand builds the main analysis command.
func newAnalyzeCommand() *cobra.Command {
	var (
		cfgFile       string
		source        string
		output        string
		groupBy       string
		logLevel      string
		workers       int
		sampleSize    int
		topK          int
		chunkSize     int
		enableMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a CSV dataset and write a JSON summary",
		Long: `Analyze scans the dataset once, infers a type for every column from a
bounded row prefix, accumulates per-column statistics (per group when
--group-by is set), and writes the summary to the output path.

Setting precedence: flags > PRISM_* environment variables > config file >
defaults.

Example:
  prism analyze --source ads.csv --output ads_stats.json --group-by country,platform`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, cfgFile, source, output, groupBy, configOverrides{
				logLevel:      logLevel,
				workers:       workers,
				sampleSize:    sampleSize,
				topK:          topK,
				chunkSize:     chunkSize,
				enableMetrics: enableMetrics,
			})
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Path to the CSV dataset (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Path the JSON summary is written to (required)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("output")

	cmd.Flags().StringVarP(&groupBy, "group-by", "g", "", "Comma-separated grouping column names")
	cmd.Flags().StringVar(&cfgFile, "config", "", "Path to a YAML run configuration file (optional)")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Number of scan workers; 1 forces the sequential single-pass scan")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 100, "Number of leading rows inspected for type detection")
	cmd.Flags().IntVar(&topK, "top-k", 5, "Number of most_common tokens reported per discrete column")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "Rows handed to a scan worker at a time")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&enableMetrics, "enable-metrics", false, "Log collected Prometheus metrics after the run")

	return cmd
}

// newTypesCommand builds the schema discovery command: detection only, no
// accumulation.
func newTypesCommand() *cobra.Command {
	var (
		source     string
		sampleSize int
	)

	cmd := &cobra.Command{
		Use:   "types",
		Short: "Detect and print column types without running an analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := csvsource.Open(source)
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()

			sample, err := src.Sample(sampleSize)
			if err != nil {
				return err
			}
			types := schema.DetectColumnTypes(src.Header(), sample)

			data, err := json.MarshalIndent(types, "", "    ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Path to the CSV dataset (required)")
	_ = cmd.MarkFlagRequired("source")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 100, "Number of leading rows inspected for type detection")

	return cmd
}

// configOverrides carries the analyze command's flag values.
type configOverrides struct {
	logLevel      string
	workers       int
	sampleSize    int
	topK          int
	chunkSize     int
	enableMetrics bool
}

// buildConfig layers settings: defaults, then the optional config file, then
// PRISM_* environment variables, then explicitly-set flags.
func buildConfig(cmd *cobra.Command, cfgFile, source, output, groupBy string, flags configOverrides) (*config.ProfileConfig, error) {
	cfg := config.NewProfileConfig(source, output)

	if cfgFile != "" {
		if err := config.Load(cfgFile, cfg); err != nil {
			return nil, err
		}
		// Source and output come from required flags, never from the file.
		cfg.Source = source
		cfg.Output = output
	}

	// Bind the file-layered values as viper defaults so PRISM_* environment
	// variables override the file but not explicit flags.
	v := viper.New()
	v.SetEnvPrefix("PRISM")
	v.AutomaticEnv()

	v.SetDefault("log_level", cfg.Observability.LogLevel)
	v.SetDefault("workers", cfg.Performance.Workers)
	v.SetDefault("sample_size", cfg.Sampling.SampleSize)
	v.SetDefault("top_k", cfg.Report.TopK)
	v.SetDefault("chunk_size", cfg.Performance.ChunkSize)
	v.SetDefault("enable_metrics", cfg.Observability.EnableMetrics)

	cfg.Observability.LogLevel = v.GetString("log_level")
	cfg.Observability.EnableMetrics = v.GetBool("enable_metrics")
	cfg.Performance.Workers = v.GetInt("workers")
	cfg.Performance.ChunkSize = v.GetInt("chunk_size")
	cfg.Sampling.SampleSize = v.GetInt("sample_size")
	cfg.Report.TopK = v.GetInt("top_k")

	if groupBy != "" {
		cfg.GroupBy = nil
		for _, col := range strings.Split(groupBy, ",") {
			if col = strings.TrimSpace(col); col != "" {
				cfg.GroupBy = append(cfg.GroupBy, col)
			}
		}
	}

	// Explicit flags win over env and file.
	if cmd.Flags().Changed("log-level") {
		cfg.Observability.LogLevel = flags.logLevel
	}
	if cmd.Flags().Changed("workers") {
		cfg.Performance.Workers = flags.workers
	}
	if cmd.Flags().Changed("chunk-size") {
		cfg.Performance.ChunkSize = flags.chunkSize
	}
	if cmd.Flags().Changed("sample-size") {
		cfg.Sampling.SampleSize = flags.sampleSize
	}
	if cmd.Flags().Changed("top-k") {
		cfg.Report.TopK = flags.topK
	}
	if cmd.Flags().Changed("enable-metrics") {
		cfg.Observability.EnableMetrics = flags.enableMetrics
	}

	return cfg, nil
}

// runAnalyze executes one analysis run end to end.
func runAnalyze(ctx context.Context, cfg *config.ProfileConfig) error {
	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: "console",
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	// Every log line of this run carries the same run id, so concurrent or
	// back-to-back invocations stay distinguishable in aggregated output.
	ctx = context.WithValue(ctx, logger.RunIDKey, uuid.NewString())
	ctx = context.WithValue(ctx, logger.ComponentKey, "prism-cli")
	ctx = context.WithValue(ctx, logger.SourceKey, cfg.Source)

	log := logger.WithContext(ctx).With(zap.String("output", cfg.Output))

	log.Info("starting analysis",
		zap.Strings("group_by", cfg.GroupBy),
		zap.Int("workers", cfg.Performance.Workers),
		zap.Int("sample_size", cfg.Sampling.SampleSize))

	src, err := csvsource.Open(cfg.Source)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.Warn("failed to close source", zap.Error(cerr))
		}
	}()

	startTime := time.Now()
	result, err := engine.New(cfg).Run(ctx, src)
	if err != nil {
		return err
	}

	if err := report.NewWriter(cfg.Output, cfg.Report.Indent).Write(result); err != nil {
		return err
	}

	log.Info("analysis complete",
		zap.Uint64("rows_processed", result.Metadata.TotalRowsProcessed),
		zap.String("analysis_type", result.Metadata.AnalysisType),
		zap.Duration("duration", time.Since(startTime)))

	if cfg.Observability.EnableMetrics {
		logMetrics(log)
	}
	return nil
}

// logMetrics gathers the default Prometheus registry and logs every metric
// family, giving batch runs a post-hoc view without a scrape endpoint.
func logMetrics(log *zap.Logger) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		log.Warn("failed to gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "prism_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				log.Info("metric",
					zap.String("name", mf.GetName()),
					zap.Float64("value", m.GetCounter().GetValue()))
			case m.GetGauge() != nil:
				log.Info("metric",
					zap.String("name", mf.GetName()),
					zap.Float64("value", m.GetGauge().GetValue()))
			}
		}
	}
}
