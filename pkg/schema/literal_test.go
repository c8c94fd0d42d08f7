package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListTokens(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
		ok   bool
	}{
		{name: "json array", raw: `["fb","ig"]`, want: []string{"fb", "ig"}, ok: true},
		{name: "single element", raw: `["fb"]`, want: []string{"fb"}, ok: true},
		{name: "empty array", raw: `[]`, want: []string{}, ok: true},
		{name: "python quoting", raw: `['fb', 'ig']`, want: []string{"fb", "ig"}, ok: true},
		{name: "numbers become tokens", raw: `[1, 2.5]`, want: []string{"1", "2.5"}, ok: true},
		{name: "booleans and null", raw: `[true, null]`, want: []string{"true", "null"}, ok: true},
		{name: "mapping keys sorted", raw: `{"b": 1, "a": 2}`, want: []string{"a", "b"}, ok: true},
		{name: "python mapping", raw: `{'b': 1, 'a': 2}`, want: []string{"a", "b"}, ok: true},
		{name: "surrounding whitespace", raw: `  ["fb"]  `, want: []string{"fb"}, ok: true},
		{name: "plain string", raw: "facebook", ok: false},
		{name: "numeric string", raw: "12.5", ok: false},
		{name: "unterminated", raw: `["fb"`, ok: false},
		{name: "malformed json", raw: `[fb, ig]`, ok: false},
		{name: "empty string", raw: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseListTokens(tt.raw)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseListTokensNested(t *testing.T) {
	tokens, ok := ParseListTokens(`[["a"], "b"]`)
	require.True(t, ok)
	require.Len(t, tokens, 2)
	// Nested structures collapse to their JSON rendering.
	assert.Equal(t, `["a"]`, tokens[0])
	assert.Equal(t, "b", tokens[1])
}

func TestIsListLiteral(t *testing.T) {
	assert.True(t, IsListLiteral(`["x"]`))
	assert.True(t, IsListLiteral(`{'k': 1}`))
	assert.False(t, IsListLiteral("x"))
	assert.False(t, IsListLiteral("[broken"))
}
