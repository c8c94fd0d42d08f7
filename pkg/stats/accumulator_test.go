package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-data/prism/pkg/json"
	"github.com/prism-data/prism/pkg/schema"
)

func numericStats(t *testing.T, acc Accumulator) *NumericStats {
	t.Helper()
	s, ok := acc.Finalize().(*NumericStats)
	require.True(t, ok)
	return s
}

func discreteStats(t *testing.T, acc Accumulator) *DiscreteStats {
	t.Helper()
	s, ok := acc.Finalize().(*DiscreteStats)
	require.True(t, ok)
	return s
}

func TestNumericAccumulator(t *testing.T) {
	acc := NewNumeric()
	for _, v := range []string{"10", "20", "30", "bad"} {
		acc.Ingest(v)
	}

	s := numericStats(t, acc)
	assert.Equal(t, uint64(3), s.Count)
	assert.InDelta(t, 20.0, float64(s.Mean), 1e-9)
	assert.InDelta(t, 10.0, float64(s.Min), 1e-9)
	assert.InDelta(t, 30.0, float64(s.Max), 1e-9)
	assert.InDelta(t, 10.0, float64(s.Stdev), 1e-9)
}

func TestNumericAccumulatorSingleValue(t *testing.T) {
	acc := NewNumeric()
	acc.Ingest("42.5")

	s := numericStats(t, acc)
	assert.Equal(t, uint64(1), s.Count)
	assert.InDelta(t, 42.5, float64(s.Mean), 1e-9)
	assert.InDelta(t, 42.5, float64(s.Min), 1e-9)
	assert.InDelta(t, 42.5, float64(s.Max), 1e-9)
	assert.Zero(t, float64(s.Stdev))
}

func TestNumericAccumulatorAllEqual(t *testing.T) {
	acc := NewNumeric()
	for i := 0; i < 100; i++ {
		acc.Ingest("7.25")
	}

	s := numericStats(t, acc)
	assert.Equal(t, uint64(100), s.Count)
	assert.Zero(t, float64(s.Stdev))
}

func TestNumericAccumulatorCancellationClamp(t *testing.T) {
	// Large offset with tiny spread provokes catastrophic cancellation in
	// sumSq/n - mean^2; the clamp must keep stdev real and non-negative.
	acc := NewNumeric()
	for i := 0; i < 1000; i++ {
		acc.Ingest("100000000.01")
	}

	s := numericStats(t, acc)
	assert.False(t, math.IsNaN(float64(s.Stdev)))
	assert.GreaterOrEqual(t, float64(s.Stdev), 0.0)
}

func TestNumericAccumulatorEmpty(t *testing.T) {
	acc := NewNumeric()
	s := numericStats(t, acc)
	assert.True(t, s.Empty())
	assert.Equal(t, uint64(0), s.Count)
	assert.Zero(t, float64(s.Min))
	assert.Zero(t, float64(s.Max))
}

func TestNumericMinLessEqualMeanLessEqualMax(t *testing.T) {
	acc := NewNumeric()
	for _, v := range []string{"3", "-17.5", "400", "0", "0.001"} {
		acc.Ingest(v)
	}

	s := numericStats(t, acc)
	assert.LessOrEqual(t, float64(s.Min), float64(s.Mean))
	assert.LessOrEqual(t, float64(s.Mean), float64(s.Max))
}

func TestCategoricalAccumulator(t *testing.T) {
	acc := New(schema.TypeCategorical, "tag", DefaultOptions())
	for _, v := range []string{"a", "a", "b"} {
		acc.Ingest(v)
	}

	s := discreteStats(t, acc)
	assert.Equal(t, uint64(3), s.Count)
	assert.Equal(t, uint64(2), s.UniqueCount)
	assert.Equal(t, []TokenCount{{Token: "a", Count: 2}, {Token: "b", Count: 1}}, s.MostCommon)
}

func TestCategoricalTieBreakInsertionOrder(t *testing.T) {
	acc := New(schema.TypeCategorical, "tag", DefaultOptions())
	for _, v := range []string{"z", "m", "a"} {
		acc.Ingest(v)
	}

	s := discreteStats(t, acc)
	assert.Equal(t, []TokenCount{{Token: "z", Count: 1}, {Token: "m", Count: 1}, {Token: "a", Count: 1}}, s.MostCommon)
}

func TestCategoricalTopKLimit(t *testing.T) {
	acc := New(schema.TypeCategorical, "tag", Options{TopK: 5})
	tokens := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, tok := range tokens {
		for j := 0; j <= i; j++ {
			acc.Ingest(tok)
		}
	}

	s := discreteStats(t, acc)
	assert.Equal(t, uint64(7), s.UniqueCount)
	require.Len(t, s.MostCommon, 5)
	assert.Equal(t, TokenCount{Token: "g", Count: 7}, s.MostCommon[0])
	assert.Equal(t, TokenCount{Token: "c", Count: 3}, s.MostCommon[4])

	var sum uint64
	for _, tc := range s.MostCommon {
		sum += tc.Count
	}
	assert.LessOrEqual(t, sum, s.Count)
}

func TestCategoricalEmptyValueIgnored(t *testing.T) {
	acc := New(schema.TypeCategorical, "tag", DefaultOptions())
	acc.Ingest("")
	acc.Ingest("x")

	s := discreteStats(t, acc)
	assert.Equal(t, uint64(1), s.Count)
	assert.Equal(t, uint64(1), s.UniqueCount)
}

func TestListAccumulatorExplode(t *testing.T) {
	acc := New(schema.TypeList, "platforms", DefaultOptions())
	acc.Ingest(`["fb","ig"]`)
	acc.Ingest(`["fb"]`)

	s := discreteStats(t, acc)
	assert.Equal(t, uint64(3), s.Count)
	assert.Equal(t, uint64(2), s.UniqueCount)
	assert.Equal(t, []TokenCount{{Token: "fb", Count: 2}, {Token: "ig", Count: 1}}, s.MostCommon)
}

func TestListAccumulatorFallbackToken(t *testing.T) {
	acc := New(schema.TypeList, "platforms", DefaultOptions())
	acc.Ingest(`["fb"]`)
	acc.Ingest("not a list")

	s := discreteStats(t, acc)
	assert.Equal(t, uint64(2), s.Count)
	assert.Equal(t, []TokenCount{{Token: "fb", Count: 1}, {Token: "not a list", Count: 1}}, s.MostCommon)
}

func TestNumericMerge(t *testing.T) {
	whole := NewNumeric()
	left := NewNumeric()
	right := NewNumeric()

	values := []string{"10", "20", "30", "40", "50"}
	for i, v := range values {
		whole.Ingest(v)
		if i < 2 {
			left.Ingest(v)
		} else {
			right.Ingest(v)
		}
	}

	require.NoError(t, left.Merge(right))

	want := numericStats(t, whole)
	got := numericStats(t, left)
	assert.Equal(t, want.Count, got.Count)
	assert.InDelta(t, float64(want.Mean), float64(got.Mean), 1e-9)
	assert.InDelta(t, float64(want.Min), float64(got.Min), 1e-9)
	assert.InDelta(t, float64(want.Max), float64(got.Max), 1e-9)
	assert.InDelta(t, float64(want.Stdev), float64(got.Stdev), 1e-9)
}

func TestNumericMergeEmptySides(t *testing.T) {
	left := NewNumeric()
	right := NewNumeric()
	right.Ingest("5")

	require.NoError(t, left.Merge(right))
	s := numericStats(t, left)
	assert.Equal(t, uint64(1), s.Count)
	assert.InDelta(t, 5.0, float64(s.Min), 1e-9)
	assert.InDelta(t, 5.0, float64(s.Max), 1e-9)
}

func TestDiscreteMerge(t *testing.T) {
	left := New(schema.TypeCategorical, "tag", DefaultOptions())
	right := New(schema.TypeCategorical, "tag", DefaultOptions())
	for _, v := range []string{"a", "b"} {
		left.Ingest(v)
	}
	for _, v := range []string{"b", "c", "b"} {
		right.Ingest(v)
	}

	require.NoError(t, left.Merge(right))
	s := discreteStats(t, left)
	assert.Equal(t, uint64(5), s.Count)
	assert.Equal(t, uint64(3), s.UniqueCount)
	assert.Equal(t, TokenCount{Token: "b", Count: 3}, s.MostCommon[0])
}

func TestMergeTypeMismatch(t *testing.T) {
	numeric := NewNumeric()
	categorical := New(schema.TypeCategorical, "tag", DefaultOptions())

	assert.Error(t, numeric.Merge(categorical))
	assert.Error(t, categorical.Merge(numeric))
}

func TestUniqueCountNeverExceedsCount(t *testing.T) {
	acc := New(schema.TypeCategorical, "tag", DefaultOptions())
	for _, v := range []string{"a", "b", "c", "a", "a"} {
		acc.Ingest(v)
	}

	s := discreteStats(t, acc)
	assert.LessOrEqual(t, s.UniqueCount, s.Count)
}

func TestTokenCountMarshalJSON(t *testing.T) {
	data, err := json.Marshal(TokenCount{Token: "a", Count: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `["a", 2]`, string(data))
}

func TestFloatMarshalNonFinite(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{math.NaN(), `"NaN"`},
		{math.Inf(1), `"Infinity"`},
		{math.Inf(-1), `"-Infinity"`},
		{2.5, "2.5"},
	}
	for _, tt := range tests {
		data, err := json.Marshal(Float(tt.value))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(data))
	}
}
