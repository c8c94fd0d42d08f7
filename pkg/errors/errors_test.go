package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesTypeAndStack(t *testing.T) {
	err := New(ErrorTypeValidation, "group column not found")

	assert.Equal(t, "validation: group column not found", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesCause(t *testing.T) {
	err := Wrap(io.EOF, ErrorTypeFile, "failed to read dataset")

	require.Error(t, err)
	assert.Equal(t, "file: failed to read dataset: EOF", err.Error())
	assert.True(t, stderrors.Is(err, io.EOF))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "ignored"))
}

func TestWrapKeepsOriginalStack(t *testing.T) {
	inner := New(ErrorTypeData, "bad row")
	outer := Wrap(inner, ErrorTypeInternal, "scan failed")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, IsType(outer, ErrorTypeInternal))
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeConfig, "workers must be positive")

	assert.True(t, IsType(err, ErrorTypeConfig))
	assert.False(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(io.EOF, ErrorTypeConfig))
	assert.False(t, IsType(nil, ErrorTypeConfig))

	// Type checks see through plain fmt wrapping.
	wrapped := fmt.Errorf("run: %w", err)
	assert.True(t, IsType(wrapped, ErrorTypeConfig))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeValidation, "group column not found").
		WithDetail("column", "missing").
		WithDetail("header_width", 4)

	assert.Equal(t, "missing", err.Details["column"])
	assert.Equal(t, 4, err.Details["header_width"])
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrorTypeConfig, "bad config")))
	assert.True(t, IsFatal(Wrap(io.EOF, ErrorTypeFile, "read failed")))
	assert.False(t, IsFatal(io.EOF))
	assert.False(t, IsFatal(nil))
}
