package stats

import (
	"math"

	"github.com/prism-data/prism/pkg/json"
)

// ColumnStats is the finalized statistics for one column within one group.
// Exactly two shapes exist: NumericStats and DiscreteStats.
type ColumnStats interface {
	// Empty reports whether the stats carry no observations and should be
	// omitted from the result tree.
	Empty() bool
}

// Float is a float64 that serializes non-finite values as stable string
// placeholders instead of failing the whole report.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(v)
}

// NumericStats reports the five numeric statistics for one column.
type NumericStats struct {
	Count uint64 `json:"count"`
	Mean  Float  `json:"mean"`
	Min   Float  `json:"min"`
	Max   Float  `json:"max"`
	Stdev Float  `json:"stdev"`
}

// Empty implements ColumnStats. A numeric column nobody ingested into is
// dropped from the report, matching the reference output.
func (s *NumericStats) Empty() bool {
	return s.Count == 0
}

// DiscreteStats reports frequency statistics for a categorical or
// list-valued column.
type DiscreteStats struct {
	Count       uint64       `json:"count"`
	UniqueCount uint64       `json:"unique_count"`
	MostCommon  []TokenCount `json:"most_common"`
}

// Empty implements ColumnStats. Discrete stats are always reported, even at
// zero counts.
func (s *DiscreteStats) Empty() bool {
	return false
}

// TokenCount is one (token, frequency) pair in a most_common list. It
// serializes as a two-element array, the tuple form the report schema uses.
type TokenCount struct {
	Token string
	Count uint64
}

// MarshalJSON implements json.Marshaler.
func (t TokenCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{t.Token, t.Count})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TokenCount) UnmarshalJSON(data []byte) error {
	var pair [2]interface{}
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if s, ok := pair[0].(string); ok {
		t.Token = s
	}
	if n, ok := pair[1].(float64); ok {
		t.Count = uint64(n)
	}
	return nil
}
