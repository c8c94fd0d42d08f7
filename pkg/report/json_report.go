// Package report assembles the finalized result tree and writes it as a
// JSON document. Writes are atomic: the document lands under a temporary
// name and is renamed into place, so a failed run never leaves a partial
// or corrupt report behind.
package report

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/prism-data/prism/pkg/errors"
	"github.com/prism-data/prism/pkg/json"
	"github.com/prism-data/prism/pkg/logger"
	"github.com/prism-data/prism/pkg/stats"
)

// Analysis type values reported in metadata.
const (
	AnalysisOverall = "overall"
	AnalysisGrouped = "grouped"
)

// Metadata describes the analysis that produced a result tree.
type Metadata struct {
	TotalRowsProcessed uint64   `json:"total_rows_processed"`
	AnalysisType       string   `json:"analysis_type"`
	GroupedBy          []string `json:"grouped_by,omitempty"`
}

// Result is the immutable output of one finished scan. Exactly one of
// Overall and Grouped is populated, matching AnalysisType.
type Result struct {
	Metadata Metadata                                `json:"analysis_metadata"`
	Overall  map[string]stats.ColumnStats            `json:"overall_analysis,omitempty"`
	Grouped  map[string]map[string]stats.ColumnStats `json:"grouped_analysis,omitempty"`
}

// Writer writes result trees to disk.
type Writer struct {
	path   string
	indent string
	log    *zap.Logger
}

// NewWriter creates a writer for the given output path. indent is the JSON
// indentation unit; an empty indent produces a compact document.
func NewWriter(path, indent string) *Writer {
	return &Writer{
		path:   path,
		indent: indent,
		log:    logger.With(zap.String("component", "report_writer"), zap.String("path", path)),
	}
}

// Write serializes the result and moves it into place atomically.
func (w *Writer) Write(result *Result) error {
	buf := json.GetBuffer()
	defer json.PutBuffer(buf)

	enc := json.NewEncoder(buf)
	enc.SetIndent("", w.indent)
	if err := enc.Encode(result); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to serialize report")
	}
	data := buf.Bytes()

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".prism-report-*.json")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create temporary report file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write report")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush report")
	}

	if err := os.Rename(tmpName, w.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to move report into place")
	}

	w.log.Info("report written", zap.Int("bytes", len(data)))
	return nil
}
