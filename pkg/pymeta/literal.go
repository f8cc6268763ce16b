// SPDX-License-Identifier: MPL-2.0

package pymeta

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

var errNamedEscape = errors.New(`\N{...} escapes are not supported`)

// literalValue returns the value of a plain str literal token. It reports false
// for bytes, f-strings and t-strings, and for literals it cannot decode.
func literalValue(t token) (string, bool) {
	if t.kind != tokenString || strings.ContainsAny(t.prefix, "bft") {
		return "", false
	}
	if strings.Contains(t.prefix, "r") {
		return t.body, true
	}
	s, err := unescape(t.body)
	if err != nil {
		return "", false
	}
	return s, true
}

// unescape decodes the backslash escapes of a non-raw Python str literal.
// Unrecognized escapes are kept verbatim, as Python does.
func unescape(body string) (string, error) {
	if !strings.Contains(body, `\`) {
		return body, nil
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := body[i]; e {
		case '\n':
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(body) && j < i+3 && body[j] >= '0' && body[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(body[i:j], 8, 32)
			b.WriteRune(rune(n))
			i = j - 1
		case 'x', 'u', 'U':
			width := 2
			switch e {
			case 'u':
				width = 4
			case 'U':
				width = 8
			}
			if i+1+width > len(body) {
				return "", errors.New(`truncated \` + string(e) + ` escape`)
			}
			n, err := strconv.ParseUint(body[i+1:i+1+width], 16, 32)
			if err != nil {
				return "", errors.New(`invalid \` + string(e) + ` escape`)
			}
			if e != 'x' && !utf8.ValidRune(rune(n)) {
				return "", errors.New("escape is not a valid code point")
			}
			b.WriteRune(rune(n))
			i += width
		case 'N':
			return "", errNamedEscape
		default:
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String(), nil
}
