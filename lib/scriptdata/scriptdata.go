// Package scriptdata pulls key/value data out of inline script text.
//
// These are best effort scrapers, not a javascript parser: a fragment that
// does not have the expected shape is left out of the result instead of
// failing the whole extraction.
package scriptdata

import (
	"encoding/json"
	"strings"
)

const (
	// DefaultCallDelimiter separates the lines of minified inline scripts.
	DefaultCallDelimiter = "\t+"
	// DefaultAssignmentDelimiter separates statements of regular inline scripts.
	DefaultAssignmentDelimiter = "\n"
)

// keyOpeners are the characters that can precede the first key of a call,
// ex. `BuildHover( 'x', {"id"` or `target(c`.
const keyOpeners = "({["

// FromCall splits `script` on `delimiter` and parses the `key:"value"`
// segments of the first line that contains `target`. Later matching lines are
// ignored.
func FromCall(script, target, delimiter string) map[string]string {
	if delimiter == "" {
		delimiter = DefaultCallDelimiter
	}

	out := map[string]string{}
	for _, line := range strings.Split(script, delimiter) {
		if !strings.Contains(line, target) {
			continue
		}
		for _, segment := range strings.Split(line, ",") {
			key, value, ok := parseSegment(segment)
			if !ok {
				continue
			}
			out[key] = value
		}
		break
	}
	return out
}

func parseSegment(segment string) (key, value string, ok bool) {
	parts := strings.Split(segment, `:"`)
	if len(parts) != 2 {
		return "", "", false
	}

	key = strings.ReplaceAll(parts[0], `"`, "")
	if i := strings.LastIndexAny(key, keyOpeners); i >= 0 {
		key = key[i+1:]
	}
	key = strings.Trim(strings.TrimSpace(key), "'")
	if key == "" {
		return "", "", false
	}

	return key, unescape(cutValue(parts[1])), true
}

// cutValue returns the value up to its closing quote.
func cutValue(raw string) string {
	escaped := false
	for i := 0; i < len(raw); i++ {
		switch {
		case escaped:
			escaped = false
		case raw[i] == '\\':
			escaped = true
		case raw[i] == '"':
			return raw[:i]
		}
	}
	return raw
}

// Assignments splits `script` on `delimiter` and decodes every `var name = <json>;`
// statement. Statements that are not assignments or whose value is not json are skipped.
func Assignments(script, delimiter string) map[string]any {
	if delimiter == "" {
		delimiter = DefaultAssignmentDelimiter
	}

	out := map[string]any{}
	for _, line := range strings.Split(script, delimiter) {
		rawKey, rawValue, found := strings.Cut(line, " = ")
		if !found {
			continue
		}

		key := strings.TrimSpace(rawKey)
		for _, keyword := range []string{"var ", "let ", "const "} {
			if strings.HasPrefix(key, keyword) {
				key = strings.TrimSpace(strings.TrimPrefix(key, keyword))
				break
			}
		}
		if key == "" {
			continue
		}

		rawValue = strings.TrimSpace(rawValue)
		rawValue = strings.TrimSpace(strings.TrimSuffix(rawValue, ";"))

		var value any
		err := json.Unmarshal([]byte(rawValue), &value)
		if err != nil {
			continue
		}
		out[key] = value
	}
	return out
}
