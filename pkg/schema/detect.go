// Package schema provides column type detection for tabular datasets.
// Types are inferred once from a bounded sample of leading rows and are
// immutable for the rest of the scan.
package schema

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/prism-data/prism/pkg/logger"
)

// ColumnType classifies how a column's values are accumulated.
type ColumnType string

const (
	// TypeNumeric columns accumulate floating-point moments.
	TypeNumeric ColumnType = "numeric"
	// TypeCategorical columns accumulate exact-string frequencies.
	TypeCategorical ColumnType = "categorical"
	// TypeList columns hold list/mapping literals that are exploded into
	// one frequency increment per contained element.
	TypeList ColumnType = "list"
)

// DefaultSampleSize is the number of leading data rows inspected by detection.
const DefaultSampleSize = 100

// classification threshold: a column takes a non-default type only when at
// least 80% of its non-empty sampled values conform.
const majorityThreshold = 0.8

// DetectColumnTypes classifies every header column from a bounded sample of
// data rows. A value counts as numeric if it parses as a float, as a list if
// it is a bracketed/braced literal that parses; empty values are excluded
// from the denominator. Columns whose sampled values meet neither threshold,
// or that are absent from every sampled row, default to categorical.
//
// Detection is deterministic: the same header and sample always produce the
// same mapping.
func DetectColumnTypes(header []string, sample [][]string) map[string]ColumnType {
	types := make(map[string]ColumnType, len(header))

	for i, name := range header {
		var numeric, list, nonEmpty int

		for _, row := range sample {
			if i >= len(row) {
				continue
			}
			value := row[i]
			if value == "" {
				continue
			}
			nonEmpty++

			if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				numeric++
				continue
			}
			if IsListLiteral(value) {
				list++
			}
		}

		switch {
		case nonEmpty == 0:
			types[name] = TypeCategorical
		case float64(numeric) >= majorityThreshold*float64(nonEmpty):
			types[name] = TypeNumeric
		case float64(list) >= majorityThreshold*float64(nonEmpty):
			types[name] = TypeList
		default:
			types[name] = TypeCategorical
		}
	}

	logger.Debug("column types detected",
		zap.Int("columns", len(header)),
		zap.Int("sample_rows", len(sample)))

	return types
}
