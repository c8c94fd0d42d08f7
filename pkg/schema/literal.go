package schema

import (
	"sort"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
)

// ParseListTokens parses a raw field value as a list or mapping literal and
// returns the contained tokens. JSON syntax is accepted directly; Python-style
// single-quoted literals (the form ast.literal_eval accepts) are normalized to
// JSON before parsing. Mapping literals contribute their keys, in sorted order
// so repeated parses of the same value emit tokens identically.
//
// The second return value reports whether the value was structurally a
// list/mapping literal that parsed successfully.
func ParseListTokens(raw string) ([]string, bool) {
	s := strings.TrimSpace(raw)
	if !isBracketed(s) {
		return nil, false
	}

	tokens, ok := parseJSONTokens(s)
	if !ok && strings.ContainsRune(s, '\'') {
		// Python repr quoting: ['fb', 'ig'] or {'fb': 1}
		tokens, ok = parseJSONTokens(strings.ReplaceAll(s, "'", `"`))
	}
	return tokens, ok
}

// IsListLiteral reports whether the value parses as a list or mapping literal.
// Used by type detection; shares the exact parse with ingestion so a column
// classified as list-valued accepts the same values the detector saw.
func IsListLiteral(raw string) bool {
	_, ok := ParseListTokens(raw)
	return ok
}

func isBracketed(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (s[0] == '[' && s[len(s)-1] == ']') || (s[0] == '{' && s[len(s)-1] == '}')
}

func parseJSONTokens(s string) ([]string, bool) {
	switch s[0] {
	case '[':
		var elems []interface{}
		if err := gojson.Unmarshal([]byte(s), &elems); err != nil {
			return nil, false
		}
		tokens := make([]string, 0, len(elems))
		for _, e := range elems {
			tokens = append(tokens, tokenString(e))
		}
		return tokens, true
	case '{':
		var obj map[string]interface{}
		if err := gojson.Unmarshal([]byte(s), &obj); err != nil {
			return nil, false
		}
		tokens := make([]string, 0, len(obj))
		for k := range obj {
			tokens = append(tokens, k)
		}
		sort.Strings(tokens)
		return tokens, true
	}
	return nil, false
}

// tokenString renders a parsed list element as a frequency-table token.
func tokenString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return "null"
	default:
		// Nested structures collapse to their JSON rendering.
		b, err := gojson.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
