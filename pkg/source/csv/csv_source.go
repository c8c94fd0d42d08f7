// Package csv provides the CSV dataset source: header discovery, bounded
// sampling for type detection, and context-aware streaming of raw rows.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"go.uber.org/zap"

	prismerrors "github.com/prism-data/prism/pkg/errors"
	"github.com/prism-data/prism/pkg/logger"
	"github.com/prism-data/prism/pkg/metrics"
)

// RowStream carries raw rows from the source to the scan. Errors holds at
// most one fatal I/O error; row-level parse problems are recovered inside
// the source and never surface here.
type RowStream struct {
	Rows   <-chan []string
	Errors <-chan error
}

// Source reads a CSV dataset: one header row followed by data rows. Rows
// shorter than the header are passed through; the scan decides their fate.
type Source struct {
	path      string
	file      *os.File
	reader    *csv.Reader
	header    []string
	sample    [][]string
	sampled   bool
	rowBuffer int
	log       *zap.Logger
}

// defaultRowBuffer is the row channel capacity when none is configured.
const defaultRowBuffer = 1024

// Open opens the dataset and reads its header row. A missing file is a
// typed not-found error so callers can fail before any processing starts.
func Open(path string) (*Source, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path comes from validated run configuration
	if err != nil {
		if os.IsNotExist(err) {
			return nil, prismerrors.Wrap(err, prismerrors.ErrorTypeNotFound, "dataset not found").
				WithDetail("path", path)
		}
		return nil, prismerrors.Wrap(err, prismerrors.ErrorTypeFile, "failed to open dataset").
			WithDetail("path", path)
	}

	reader := csv.NewReader(file)
	// Ragged rows are expected input, not errors.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		_ = file.Close()
		return nil, prismerrors.Wrap(err, prismerrors.ErrorTypeData, "failed to read header row").
			WithDetail("path", path)
	}

	return &Source{
		path:      path,
		file:      file,
		reader:    reader,
		header:    header,
		rowBuffer: defaultRowBuffer,
		log:       logger.With(zap.String("component", "csv_source"), zap.String("path", path)),
	}, nil
}

// SetRowBuffer sets the capacity of the row channel returned by Rows.
// Non-positive values are ignored.
func (s *Source) SetRowBuffer(n int) {
	if n > 0 {
		s.rowBuffer = n
	}
}

// Header returns the ordered column names.
func (s *Source) Header() []string {
	return s.header
}

// Path returns the dataset path.
func (s *Source) Path() string {
	return s.path
}

// Sample reads and buffers up to n leading data rows for type detection.
// The buffered rows are replayed by Rows, so the scan still sees every data
// row exactly once.
func (s *Source) Sample(n int) ([][]string, error) {
	if s.sampled {
		return s.sample, nil
	}
	s.sampled = true

	for len(s.sample) < n {
		row, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				s.log.Warn("skipping unparsable row in sample", zap.Error(err))
				metrics.RowsSkipped.WithLabelValues(s.path, "parse_error").Inc()
				continue
			}
			return nil, prismerrors.Wrap(err, prismerrors.ErrorTypeData, "failed to read sample rows")
		}
		s.sample = append(s.sample, row)
	}

	return s.sample, nil
}

// Rows streams every data row: first the sampled prefix, then the remainder
// of the file. Unparsable rows are skipped with a warning. At most one fatal
// I/O error is delivered on the error channel before both channels close.
func (s *Source) Rows(ctx context.Context) *RowStream {
	rowChan := make(chan []string, s.rowBuffer)
	errorChan := make(chan error, 1)

	go func() {
		defer close(rowChan)
		defer close(errorChan)

		for _, row := range s.sample {
			select {
			case rowChan <- row:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			row, err := s.reader.Read()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					s.log.Warn("skipping unparsable row", zap.Error(err))
					metrics.RowsSkipped.WithLabelValues(s.path, "parse_error").Inc()
					continue
				}
				errorChan <- prismerrors.Wrap(err, prismerrors.ErrorTypeData, "failed to read dataset")
				return
			}

			select {
			case rowChan <- row:
			case <-ctx.Done():
				return
			}
		}
	}()

	return &RowStream{
		Rows:   rowChan,
		Errors: errorChan,
	}
}

// Close closes the underlying file.
func (s *Source) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
