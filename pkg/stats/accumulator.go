// Package stats implements the streaming accumulation engine: per-column
// running state that consumes one raw value at a time in bounded memory,
// merges associatively across partial scans, and finalizes into reported
// statistics.
package stats

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/prism-data/prism/pkg/errors"
	"github.com/prism-data/prism/pkg/logger"
	"github.com/prism-data/prism/pkg/metrics"
	"github.com/prism-data/prism/pkg/schema"
)

// Accumulator is the per-(group, column) running state. Implementations
// consume one raw string value at a time and never allocate unbounded memory
// per row. Accumulators are not safe for concurrent use; the parallel scan
// gives each worker its own set and merges afterwards.
type Accumulator interface {
	// Ingest consumes one raw value. Values that fail the column's type
	// guard are handled locally and never abort the scan.
	Ingest(raw string)
	// Merge folds another accumulator of the same concrete type into this
	// one. The merge law is associative and commutative and exact, which
	// is what licenses chunked parallel scans.
	Merge(other Accumulator) error
	// Finalize converts the accumulated state into reported statistics.
	// The accumulator must not be mutated afterwards.
	Finalize() ColumnStats
}

// Options shape accumulator construction.
type Options struct {
	// TopK is the number of most_common tokens reported per discrete column.
	TopK int
	// CardinalityWarn logs a warning when a frequency table grows past this
	// many distinct tokens; 0 disables the check.
	CardinalityWarn int
}

// DefaultOptions returns the reference output shape: top-5 most_common, no
// cardinality warnings.
func DefaultOptions() Options {
	return Options{TopK: 5}
}

// New creates an accumulator for the given column type.
func New(t schema.ColumnType, column string, opts Options) Accumulator {
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	switch t {
	case schema.TypeNumeric:
		return NewNumeric()
	case schema.TypeList:
		return &ListAccumulator{table: newFrequencyTable(column, opts)}
	default:
		return &CategoricalAccumulator{table: newFrequencyTable(column, opts)}
	}
}

// NumericAccumulator tracks the running moments of a numeric column.
type NumericAccumulator struct {
	count uint64
	sum   float64
	sumSq float64
	min   float64
	max   float64
}

// NewNumeric returns an empty numeric accumulator. Min and max start at the
// infinities and are never reported in that sentinel state.
func NewNumeric() *NumericAccumulator {
	return &NumericAccumulator{
		min: math.Inf(1),
		max: math.Inf(-1),
	}
}

// Ingest parses raw as a float and folds it into the running moments.
// Unparsable values are dropped without touching any counter.
func (a *NumericAccumulator) Ingest(raw string) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		metrics.ValuesDropped.WithLabelValues(string(schema.TypeNumeric)).Inc()
		return
	}
	a.count++
	a.sum += v
	a.sumSq += v * v
	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}
}

// Merge implements Accumulator.
func (a *NumericAccumulator) Merge(other Accumulator) error {
	b, ok := other.(*NumericAccumulator)
	if !ok {
		return errors.New(errors.ErrorTypeInternal, "numeric accumulator merged with mismatched type")
	}
	a.count += b.count
	a.sum += b.sum
	a.sumSq += b.sumSq
	if b.min < a.min {
		a.min = b.min
	}
	if b.max > a.max {
		a.max = b.max
	}
	return nil
}

// Finalize implements Accumulator. Mean is sum/count; stdev uses Bessel's
// correction and clamps the variance at zero to absorb floating-point
// cancellation. With zero observations every field is zero, min and max
// included, preserving the reference sentinel substitution.
func (a *NumericAccumulator) Finalize() ColumnStats {
	out := &NumericStats{Count: a.count}
	if a.count == 0 {
		return out
	}

	count := float64(a.count)
	mean := a.sum / count
	out.Mean = Float(mean)
	out.Min = Float(a.min)
	out.Max = Float(a.max)
	if math.IsInf(a.min, 1) {
		out.Min = 0
	}
	if math.IsInf(a.max, -1) {
		out.Max = 0
	}

	if a.count > 1 {
		variance := a.sumSq/count - mean*mean
		if variance < 0 {
			variance = 0
		}
		out.Stdev = Float(math.Sqrt(variance * count / (count - 1)))
	}
	return out
}

// frequencyTable is the shared counting state behind the categorical and
// list-valued accumulators. Insertion order is retained so most_common ties
// break deterministically by first appearance.
type frequencyTable struct {
	column string
	freq   map[string]uint64
	order  []string
	opts   Options
	warned bool
}

func newFrequencyTable(column string, opts Options) frequencyTable {
	return frequencyTable{
		column: column,
		freq:   make(map[string]uint64),
		opts:   opts,
	}
}

func (t *frequencyTable) add(token string, n uint64) {
	if _, seen := t.freq[token]; !seen {
		t.order = append(t.order, token)
		if t.opts.CardinalityWarn > 0 && !t.warned && len(t.order) > t.opts.CardinalityWarn {
			t.warned = true
			logger.Warn("high-cardinality frequency table",
				zap.String("column", t.column),
				zap.Int("distinct_tokens", len(t.order)))
		}
	}
	t.freq[token] += n
}

func (t *frequencyTable) merge(other *frequencyTable) {
	for _, token := range other.order {
		t.add(token, other.freq[token])
	}
}

func (t *frequencyTable) finalize() *DiscreteStats {
	var total uint64
	for _, n := range t.freq {
		total += n
	}

	// Rank by frequency descending, first-insertion order on ties. The
	// insertion index is recovered from t.order so the sort is stable
	// regardless of map iteration.
	ranked := make([]int, len(t.order))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(x, y int) bool {
		return t.freq[t.order[ranked[x]]] > t.freq[t.order[ranked[y]]]
	})

	k := t.opts.TopK
	if k > len(ranked) {
		k = len(ranked)
	}
	top := make([]TokenCount, 0, k)
	for _, idx := range ranked[:k] {
		token := t.order[idx]
		top = append(top, TokenCount{Token: token, Count: t.freq[token]})
	}

	return &DiscreteStats{
		Count:       total,
		UniqueCount: uint64(len(t.freq)),
		MostCommon:  top,
	}
}

// CategoricalAccumulator counts exact string values.
type CategoricalAccumulator struct {
	table frequencyTable
}

// Ingest implements Accumulator. Empty values are never ingested; the scan
// loop filters them before dispatch, and the guard here keeps direct callers
// honest.
func (a *CategoricalAccumulator) Ingest(raw string) {
	if raw == "" {
		return
	}
	a.table.add(raw, 1)
}

// Merge implements Accumulator.
func (a *CategoricalAccumulator) Merge(other Accumulator) error {
	b, ok := other.(*CategoricalAccumulator)
	if !ok {
		return errors.New(errors.ErrorTypeInternal, "categorical accumulator merged with mismatched type")
	}
	a.table.merge(&b.table)
	return nil
}

// Finalize implements Accumulator.
func (a *CategoricalAccumulator) Finalize() ColumnStats {
	return a.table.finalize()
}

// ListAccumulator explodes list-valued fields: one raw value contributes one
// count per contained element, not one count per row.
type ListAccumulator struct {
	table frequencyTable
}

// Ingest implements Accumulator. Values that fail the list parse fall back
// to counting the whole raw string as a single token, keeping output stable
// across partial parse failures.
func (a *ListAccumulator) Ingest(raw string) {
	if raw == "" {
		return
	}
	tokens, ok := schema.ParseListTokens(raw)
	if !ok {
		a.table.add(raw, 1)
		return
	}
	for _, token := range tokens {
		a.table.add(token, 1)
	}
}

// Merge implements Accumulator.
func (a *ListAccumulator) Merge(other Accumulator) error {
	b, ok := other.(*ListAccumulator)
	if !ok {
		return errors.New(errors.ErrorTypeInternal, "list accumulator merged with mismatched type")
	}
	a.table.merge(&b.table)
	return nil
}

// Finalize implements Accumulator.
func (a *ListAccumulator) Finalize() ColumnStats {
	return a.table.finalize()
}
