// Package engine drives the analysis scan: one sequential (or chunked
// parallel) pass over the dataset, routing every row into per-group column
// accumulators and finalizing the result tree at end-of-stream.
//
// # Lifecycle
//
// An Engine moves through four states, none reversible:
//
//	Uninitialized -> TypesDetected -> Accumulating -> Finalized
//
// Types are detected once from a bounded row prefix and are read-only for
// the rest of the scan. Accumulators mutate monotonically until the input
// is exhausted; the finalized result tree is immutable output.
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/prism-data/prism/pkg/config"
	"github.com/prism-data/prism/pkg/errors"
	"github.com/prism-data/prism/pkg/logger"
	"github.com/prism-data/prism/pkg/metrics"
	"github.com/prism-data/prism/pkg/report"
	"github.com/prism-data/prism/pkg/schema"
	csvsource "github.com/prism-data/prism/pkg/source/csv"
	"github.com/prism-data/prism/pkg/stats"
)

// State identifies where an engine is in its lifecycle.
type State int32

const (
	// StateUninitialized is the zero state before any input is touched.
	StateUninitialized State = iota
	// StateTypesDetected means column types are fixed and read-only.
	StateTypesDetected
	// StateAccumulating means rows are being folded into accumulators.
	StateAccumulating
	// StateFinalized is terminal; the result tree has been produced.
	StateFinalized
)

// Engine orchestrates one analysis run.
type Engine struct {
	cfg   *config.ProfileConfig
	log   *zap.Logger
	state atomic.Int32

	header   []string
	types    map[string]schema.ColumnType
	router   *stats.GroupRouter
	groupIdx []int
	measured []measuredColumn

	rowsProcessed atomic.Uint64
	rowsSkipped   atomic.Uint64
}

// measuredColumn pairs a non-grouping column with its header index.
type measuredColumn struct {
	index int
	name  string
}

// New creates an engine for the given run configuration.
func New(cfg *config.ProfileConfig) *Engine {
	return &Engine{
		cfg: cfg,
		log: logger.With(
			zap.String("component", "engine"),
			zap.String("source", cfg.Source)),
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// RowsProcessed returns the count of rows accumulated so far.
func (e *Engine) RowsProcessed() uint64 {
	return e.rowsProcessed.Load()
}

// Run executes the full analysis against src and returns the result tree.
// Configuration-time failures (unknown grouping column, unreadable input)
// are fatal; per-row and per-value failures are recovered locally and never
// abort the scan. Cancelling ctx terminates the scan between rows without
// producing a result.
func (e *Engine) Run(ctx context.Context, src *csvsource.Source) (*report.Result, error) {
	timer := metrics.NewTimer("scan")

	if err := e.prepare(src); err != nil {
		return nil, err
	}

	src.SetRowBuffer(e.cfg.Performance.BufferSize)
	stream := src.Rows(ctx)
	e.state.Store(int32(StateAccumulating))

	var err error
	if e.cfg.Performance.Workers > 1 {
		err = e.scanParallel(ctx, stream)
	} else {
		err = e.scanSequential(ctx, stream)
	}
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, errors.Wrap(ctx.Err(), errors.ErrorTypeData, "scan cancelled")
	}

	e.state.Store(int32(StateFinalized))
	result := e.buildResult()

	elapsed := timer.Stop()
	metrics.ScanDuration.Observe(elapsed.Seconds())
	e.log.Info("scan complete",
		zap.Uint64("rows_processed", e.rowsProcessed.Load()),
		zap.Uint64("rows_skipped", e.rowsSkipped.Load()),
		zap.Int("groups", e.router.Len()),
		zap.Duration("duration", elapsed))

	return result, nil
}

// prepare validates grouping columns, samples the row prefix, detects types,
// and seeds the group router. Runs before any row is accumulated.
func (e *Engine) prepare(src *csvsource.Source) error {
	e.header = src.Header()

	index := make(map[string]int, len(e.header))
	for i, name := range e.header {
		index[name] = i
	}

	e.groupIdx = make([]int, 0, len(e.cfg.GroupBy))
	grouping := make(map[string]struct{}, len(e.cfg.GroupBy))
	for _, col := range e.cfg.GroupBy {
		i, ok := index[col]
		if !ok {
			return errors.New(errors.ErrorTypeValidation, "grouping column not found in header").
				WithDetail("column", col)
		}
		e.groupIdx = append(e.groupIdx, i)
		grouping[col] = struct{}{}
	}

	sample, err := src.Sample(e.cfg.Sampling.SampleSize)
	if err != nil {
		return err
	}
	e.types = schema.DetectColumnTypes(e.header, sample)
	e.state.Store(int32(StateTypesDetected))
	e.log.Info("column types detected",
		zap.Int("columns", len(e.header)),
		zap.Int("sample_rows", len(sample)))

	e.measured = make([]measuredColumn, 0, len(e.header))
	for i, name := range e.header {
		if _, isKey := grouping[name]; isKey {
			continue
		}
		e.measured = append(e.measured, measuredColumn{index: i, name: name})
	}

	opts := stats.Options{
		TopK:            e.cfg.Report.TopK,
		CardinalityWarn: e.cfg.Report.CardinalityWarn,
	}
	e.router = stats.NewGroupRouter(e.header, e.types, e.cfg.GroupBy, opts)
	if len(e.cfg.GroupBy) == 0 {
		// The ungrouped scan is grouping by the empty key set: exactly one
		// group, created eagerly so zero-row datasets still report every
		// discrete column.
		e.router.Route(stats.GroupKey{})
	}
	return nil
}

// accumulateRow folds one raw row into the given router's accumulators.
// Returns false when the row was skipped as malformed.
func (e *Engine) accumulateRow(router *stats.GroupRouter, row []string) bool {
	if len(row) < len(e.header) {
		e.rowsSkipped.Add(1)
		metrics.RowsSkipped.WithLabelValues(e.cfg.Source, "short_row").Inc()
		return false
	}

	key := make(stats.GroupKey, len(e.groupIdx))
	for i, idx := range e.groupIdx {
		key[i] = row[idx]
	}
	group := router.Route(key)

	for _, col := range e.measured {
		value := row[col.index]
		if value == "" {
			continue
		}
		group.Columns[col.name].Ingest(value)
	}

	e.rowsProcessed.Add(1)
	metrics.RowsProcessed.WithLabelValues(e.cfg.Source).Inc()
	return true
}

// scanSequential is the reference single-threaded pass.
func (e *Engine) scanSequential(ctx context.Context, stream *csvsource.RowStream) error {
	for row := range stream.Rows {
		if ctx.Err() != nil {
			return nil
		}
		e.accumulateRow(e.router, row)
	}
	return streamError(stream)
}

// scanParallel partitions the row stream into chunks, accumulates each chunk
// in an isolated per-worker router, and merges the partials. The merge law
// is exact, so the output matches the sequential pass.
func (e *Engine) scanParallel(ctx context.Context, stream *csvsource.RowStream) error {
	workers := e.cfg.Performance.Workers
	chunkSize := e.cfg.Performance.ChunkSize

	chunkChan := make(chan [][]string, workers)
	partials := make([]*stats.GroupRouter, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		partials[w] = e.router.NewPartial()
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for chunk := range chunkChan {
				for _, row := range chunk {
					e.accumulateRow(partials[id], row)
				}
			}
		}(w)
	}

	chunk := make([][]string, 0, chunkSize)
	flush := func() bool {
		if len(chunk) == 0 {
			return true
		}
		select {
		case chunkChan <- chunk:
			chunk = make([][]string, 0, chunkSize)
			return true
		case <-ctx.Done():
			return false
		}
	}

	for row := range stream.Rows {
		chunk = append(chunk, row)
		if len(chunk) >= chunkSize {
			if !flush() {
				break
			}
		}
	}
	flush()
	close(chunkChan)
	wg.Wait()

	for _, partial := range partials {
		if err := e.router.Merge(partial); err != nil {
			return err
		}
	}
	return streamError(stream)
}

// streamError drains the source's error slot after its row channel closed.
func streamError(stream *csvsource.RowStream) error {
	select {
	case err := <-stream.Errors:
		return err
	default:
		return nil
	}
}

// buildResult finalizes every accumulator into the immutable result tree.
// Numeric columns with zero observations are omitted, matching the
// reference output shape.
func (e *Engine) buildResult() *report.Result {
	result := &report.Result{
		Metadata: report.Metadata{
			TotalRowsProcessed: e.rowsProcessed.Load(),
			AnalysisType:       report.AnalysisOverall,
		},
	}

	if len(e.cfg.GroupBy) == 0 {
		for _, group := range e.router.Groups() {
			result.Overall = finalizeGroup(group)
		}
		return result
	}

	result.Metadata.AnalysisType = report.AnalysisGrouped
	result.Metadata.GroupedBy = e.cfg.GroupBy
	result.Grouped = make(map[string]map[string]stats.ColumnStats, e.router.Len())
	for _, group := range e.router.Groups() {
		result.Grouped[group.Key.String()] = finalizeGroup(group)
	}
	return result
}

func finalizeGroup(group *stats.Group) map[string]stats.ColumnStats {
	columns := make(map[string]stats.ColumnStats, len(group.Columns))
	for name, acc := range group.Columns {
		finalized := acc.Finalize()
		if finalized.Empty() {
			continue
		}
		columns[name] = finalized
	}
	return columns
}
