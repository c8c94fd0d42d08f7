package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectColumnTypes(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		sample [][]string
		want   map[string]ColumnType
	}{
		{
			name:   "all numeric",
			header: []string{"price"},
			sample: [][]string{{"10"}, {"20.5"}, {"-3"}, {"1e6"}},
			want:   map[string]ColumnType{"price": TypeNumeric},
		},
		{
			name:   "numeric at exact threshold",
			header: []string{"v"},
			sample: [][]string{{"1"}, {"2"}, {"3"}, {"4"}, {"oops"}},
			want:   map[string]ColumnType{"v": TypeNumeric},
		},
		{
			name:   "numeric below threshold",
			header: []string{"v"},
			sample: [][]string{{"1"}, {"2"}, {"3"}, {"x"}, {"y"}},
			want:   map[string]ColumnType{"v": TypeCategorical},
		},
		{
			name:   "list literals",
			header: []string{"platforms"},
			sample: [][]string{{`["fb","ig"]`}, {`["fb"]`}, {`['tw']`}, {`[]`}},
			want:   map[string]ColumnType{"platforms": TypeList},
		},
		{
			name:   "empty values excluded from denominator",
			header: []string{"v"},
			sample: [][]string{{""}, {""}, {""}, {"1"}, {"2"}},
			want:   map[string]ColumnType{"v": TypeNumeric},
		},
		{
			name:   "column absent from every sampled row",
			header: []string{"a", "ghost"},
			sample: [][]string{{"1"}, {"2"}},
			want:   map[string]ColumnType{"a": TypeNumeric, "ghost": TypeCategorical},
		},
		{
			name:   "entirely empty column defaults to categorical",
			header: []string{"v"},
			sample: [][]string{{""}, {""}},
			want:   map[string]ColumnType{"v": TypeCategorical},
		},
		{
			name:   "mixed dataset",
			header: []string{"country", "spend", "platforms"},
			sample: [][]string{
				{"US", "5", `["fb","ig"]`},
				{"FR", "15", `["fb"]`},
				{"DE", "100", `["ig"]`},
			},
			want: map[string]ColumnType{
				"country":   TypeCategorical,
				"spend":     TypeNumeric,
				"platforms": TypeList,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectColumnTypes(tt.header, tt.sample)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectColumnTypesIdempotent(t *testing.T) {
	header := []string{"a", "b", "c"}
	sample := [][]string{
		{"1", "x", `["p"]`},
		{"2", "y", `["q","r"]`},
		{"bad", "z", "plain"},
	}

	first := DetectColumnTypes(header, sample)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, DetectColumnTypes(header, sample))
	}
}

func TestDetectColumnTypesEmptySample(t *testing.T) {
	got := DetectColumnTypes([]string{"a", "b"}, nil)
	assert.Equal(t, map[string]ColumnType{
		"a": TypeCategorical,
		"b": TypeCategorical,
	}, got)
}
