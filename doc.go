// Package prism provides a streaming CSV column profiler: per-column
// descriptive statistics computed in a single sequential pass, optionally
// partitioned by one or more grouping columns, emitted as a structured
// JSON summary.
//
// # Architecture
//
// The scan is organized around four pieces:
//
// 1. Type detection (pkg/schema): a bounded prefix of rows classifies every
// column as numeric, categorical, or list-valued, once, before any
// accumulation.
//
// 2. Accumulation (pkg/stats): one bounded accumulator per (group, column)
// pair consumes raw values incrementally. Numeric columns track running
// moments; discrete columns track frequency tables with insertion order.
//
// 3. Grouping (pkg/stats.GroupRouter): accumulator sets are created lazily
// per group key; the ungrouped scan is grouping by the empty key.
//
// 4. Orchestration (pkg/engine): a single pass routes each row to its
// group, then finalizes every accumulator into the immutable result tree.
// Accumulator merges are associative and commutative, so the engine can
// split the stream across workers and merge partial results exactly.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/prism-data/prism/pkg/config"
//	    "github.com/prism-data/prism/pkg/engine"
//	    csvsource "github.com/prism-data/prism/pkg/source/csv"
//	)
//
//	cfg := config.NewProfileConfig("ads.csv", "ads_stats.json")
//	cfg.GroupBy = []string{"country"}
//
//	src, err := csvsource.Open(cfg.Source)
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	result, err := engine.New(cfg).Run(context.Background(), src)
package prism
