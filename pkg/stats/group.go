package stats

import (
	"strings"

	"github.com/prism-data/prism/pkg/errors"
	"github.com/prism-data/prism/pkg/metrics"
	"github.com/prism-data/prism/pkg/schema"
)

// GroupKey is an ordered tuple of raw values from the configured grouping
// columns. Equal tuples denote the same group. The empty key is the single
// implicit group of an ungrouped scan.
type GroupKey []string

// keySeparator joins key parts into a map key. The unit separator cannot
// appear in CSV field values read by encoding/csv in practice, and a
// collision would only co-mingle two pathological groups, never corrupt
// accumulator state.
const keySeparator = "\x1f"

// ID returns the canonical map key for the tuple.
func (k GroupKey) ID() string {
	return strings.Join(k, keySeparator)
}

// String renders the tuple in the report's group-key form: ('US',) for one
// element, ('US', 'CA') for two, () when empty.
func (k GroupKey) String() string {
	if len(k) == 0 {
		return "()"
	}
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range k {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('\'')
		b.WriteString(escapeKeyPart(v))
		b.WriteByte('\'')
	}
	if len(k) == 1 {
		b.WriteByte(',')
	}
	b.WriteByte(')')
	return b.String()
}

func escapeKeyPart(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

// Group is one partition of the dataset: a key and one accumulator per
// measured column.
type Group struct {
	Key     GroupKey
	Columns map[string]Accumulator
}

// GroupRouter maps group keys to accumulator sets, creating each set lazily
// on first sight of its key. Lookup is O(1) amortized; total memory is one
// bounded accumulator struct per (group, measured column) pair plus the
// frequency tables' token maps.
type GroupRouter struct {
	types      map[string]schema.ColumnType
	measured   []string // non-grouping columns, in header order
	opts       Options
	groups     map[string]*Group
	trackGauge bool
}

// NewGroupRouter creates a router over the given header and detected types.
// Grouping columns are excluded from measurement: a column cannot be both a
// partition key and a measured field.
func NewGroupRouter(header []string, types map[string]schema.ColumnType, groupBy []string, opts Options) *GroupRouter {
	grouping := make(map[string]struct{}, len(groupBy))
	for _, col := range groupBy {
		grouping[col] = struct{}{}
	}

	measured := make([]string, 0, len(header))
	for _, col := range header {
		if _, isKey := grouping[col]; isKey {
			continue
		}
		measured = append(measured, col)
	}

	return &GroupRouter{
		types:      types,
		measured:   measured,
		opts:       opts,
		groups:     make(map[string]*Group),
		trackGauge: true,
	}
}

// newPartial returns a router sharing this router's configuration but with
// an empty group map, for use as per-worker scratch state. Partials do not
// move the active-groups gauge; only the merged result does.
func (r *GroupRouter) newPartial() *GroupRouter {
	return &GroupRouter{
		types:    r.types,
		measured: r.measured,
		opts:     r.opts,
		groups:   make(map[string]*Group),
	}
}

// NewPartial exposes partial-router creation for chunked scans.
func (r *GroupRouter) NewPartial() *GroupRouter {
	return r.newPartial()
}

// Route returns the accumulator set for key, allocating a fresh set seeded
// from the detected column types on first sight.
func (r *GroupRouter) Route(key GroupKey) *Group {
	id := key.ID()
	if g, ok := r.groups[id]; ok {
		return g
	}

	g := &Group{
		Key:     append(GroupKey(nil), key...),
		Columns: make(map[string]Accumulator, len(r.measured)),
	}
	for _, col := range r.measured {
		g.Columns[col] = New(r.types[col], col, r.opts)
	}
	r.groups[id] = g
	if r.trackGauge {
		metrics.GroupsActive.Inc()
	}
	return g
}

// Merge folds another router's groups into this one: key union, with
// accumulator sets merged column-wise for keys present in both.
func (r *GroupRouter) Merge(other *GroupRouter) error {
	for id, og := range other.groups {
		g, ok := r.groups[id]
		if !ok {
			r.groups[id] = og
			if r.trackGauge {
				metrics.GroupsActive.Inc()
			}
			continue
		}
		for col, acc := range og.Columns {
			target, ok := g.Columns[col]
			if !ok {
				return errors.New(errors.ErrorTypeInternal, "merge saw a column missing from the target group").
					WithDetail("column", col)
			}
			if err := target.Merge(acc); err != nil {
				return err
			}
		}
	}
	return nil
}

// Groups returns the live groups. Order is unspecified; callers needing
// determinism key their output by GroupKey.String().
func (r *GroupRouter) Groups() map[string]*Group {
	return r.groups
}

// Len returns the number of distinct groups seen.
func (r *GroupRouter) Len() int {
	return len(r.groups)
}

// MeasuredColumns returns the non-grouping columns in header order.
func (r *GroupRouter) MeasuredColumns() []string {
	return r.measured
}
