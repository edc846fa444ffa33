package scriptdata

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

var simpleEscapes = map[byte]string{
	'n':  "\n",
	't':  "\t",
	'r':  "\r",
	'b':  "\b",
	'f':  "\f",
	'v':  "\v",
	'a':  "\a",
	'0':  "\x00",
	'\\': "\\",
	'\'': "'",
	'"':  "\"",
	'/':  "/",
}

// unescape decodes backslash escapes the way inline scripts write them.
// Unknown or truncated escapes are kept verbatim.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var out strings.Builder
	out.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			out.WriteByte(s[i])
			continue
		}

		c := s[i+1]
		if replacement, ok := simpleEscapes[c]; ok {
			out.WriteString(replacement)
			i++
			continue
		}

		var width int
		switch c {
		case 'x':
			width = 2
		case 'u':
			width = 4
		case 'U':
			width = 8
		default:
			out.WriteByte(s[i])
			continue
		}

		r, ok := parseHex(s, i+2, width)
		if !ok {
			out.WriteByte(s[i])
			continue
		}
		i += 1 + width

		if utf16.IsSurrogate(r) {
			if low, ok := lowSurrogate(s, i+1); ok {
				r = utf16.DecodeRune(r, low)
				i += 6
			}
		}
		if !utf8.ValidRune(r) {
			r = utf8.RuneError
		}
		out.WriteRune(r)
	}
	return out.String()
}

func parseHex(s string, start, width int) (rune, bool) {
	if start+width > len(s) {
		return 0, false
	}
	n, err := strconv.ParseUint(s[start:start+width], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}

// lowSurrogate reads a `\uXXXX` low surrogate starting at `start`.
func lowSurrogate(s string, start int) (rune, bool) {
	if start+6 > len(s) || s[start] != '\\' || s[start+1] != 'u' {
		return 0, false
	}
	r, ok := parseHex(s, start+2, 4)
	if !ok || r < 0xdc00 || r > 0xdfff {
		return 0, false
	}
	return r, true
}
