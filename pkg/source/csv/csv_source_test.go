package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-data/prism/pkg/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collectRows(t *testing.T, src *Source) [][]string {
	t.Helper()
	stream := src.Rows(context.Background())
	var rows [][]string
	for row := range stream.Rows {
		rows = append(rows, row)
	}
	select {
	case err := <-stream.Errors:
		require.NoError(t, err)
	default:
	}
	return rows
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestOpenReadsHeader(t *testing.T) {
	src, err := Open(writeFile(t, "a,b,c\n1,2,3\n"))
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	assert.Equal(t, []string{"a", "b", "c"}, src.Header())
}

func TestSampleThenRowsSeesEveryRowOnce(t *testing.T) {
	src, err := Open(writeFile(t, "a\n1\n2\n3\n4\n5\n"))
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	sample, err := src.Sample(2)
	require.NoError(t, err)
	assert.Len(t, sample, 2)

	// The sampled prefix is replayed, so the stream still carries all rows.
	rows := collectRows(t, src)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"1"}, rows[0])
	assert.Equal(t, []string{"5"}, rows[4])
}

func TestSampleLargerThanDataset(t *testing.T) {
	src, err := Open(writeFile(t, "a\n1\n2\n"))
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	sample, err := src.Sample(100)
	require.NoError(t, err)
	assert.Len(t, sample, 2)
	assert.Len(t, collectRows(t, src), 2)
}

func TestRaggedRowsPassThrough(t *testing.T) {
	src, err := Open(writeFile(t, "a,b,c\n1,2,3\n1\n1,2,3,4\n"))
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	rows := collectRows(t, src)
	require.Len(t, rows, 3)
	assert.Len(t, rows[1], 1)
	assert.Len(t, rows[2], 4)
}

func TestSetRowBufferSizesRowChannel(t *testing.T) {
	src, err := Open(writeFile(t, "a\n1\n"))
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	assert.Equal(t, defaultRowBuffer, cap(src.Rows(context.Background()).Rows))

	src.SetRowBuffer(8)
	assert.Equal(t, 8, cap(src.Rows(context.Background()).Rows))

	// Non-positive values keep the previous capacity.
	src.SetRowBuffer(0)
	assert.Equal(t, 8, cap(src.Rows(context.Background()).Rows))
}

func TestRowsContextCancellation(t *testing.T) {
	content := "a\n"
	for i := 0; i < 10000; i++ {
		content += "1\n"
	}
	src, err := Open(writeFile(t, content))
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	stream := src.Rows(ctx)

	// Read a few rows then cancel; the stream must close promptly.
	for i := 0; i < 3; i++ {
		<-stream.Rows
	}
	cancel()
	for range stream.Rows { //nolint:revive // draining until close
	}
}
