// SPDX-License-Identifier: MPL-2.0

package pymeta

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is wrapped by SyntaxError.
var ErrSyntax = errors.New("python syntax error")

type (
	tokenKind int

	token struct {
		kind tokenKind
		text string
		line int
		// prefix and body are only set for string tokens. prefix is lower-cased.
		prefix string
		body   string
	}

	// logicalLine is a run of tokens terminated by a newline outside brackets.
	logicalLine struct {
		indent int
		line   int
		tokens []token
	}

	// SyntaxError is returned when the source cannot be tokenized.
	SyntaxError struct {
		Line int
		Msg  string
	}
)

const (
	tokenName tokenKind = iota
	tokenString
	tokenOp
	tokenNumber
	tokenOther
)

// operators ordered longest first so that matching is greedy.
var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
	"->", "**", "//", "<<", ">>", ":=",
	"+", "-", "*", "/", "%", "@", "&", "|", "^", "~", "<", ">",
	"(", ")", "[", "]", "{", "}", ",", ":", ".", ";", "=",
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Unwrap returns ErrSyntax so callers can use errors.Is for programmatic detection.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// tokenize splits src into logical lines.
func tokenize(src string) ([]logicalLine, error) {
	var (
		lines []logicalLine
		cur   logicalLine
		depth int
		line  = 1
		col   = 0
	)
	flush := func() {
		if len(cur.tokens) > 0 {
			lines = append(lines, cur)
		}
		cur = logicalLine{}
	}
	emit := func(t token) {
		if len(cur.tokens) == 0 {
			cur.indent = col
			cur.line = line
		}
		t.line = line
		cur.tokens = append(cur.tokens, t)
	}

	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			i++
			line++
			col = 0
			if depth == 0 {
				flush()
			}
			continue
		case c == ' ' || c == '\t' || c == '\f' || c == '\r':
			i++
			if len(cur.tokens) == 0 {
				col++
			}
			continue
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		case c == '\\' && i+1 < len(src) && src[i+1] == '\n':
			i += 2
			line++
			continue
		case c == '\\' && i+2 < len(src) && src[i+1] == '\r' && src[i+2] == '\n':
			i += 3
			line++
			continue
		}

		switch {
		case isIdentStart(c):
			j := i
			for j < len(src) && isIdentChar(src[j]) {
				j++
			}
			word := src[i:j]
			if j < len(src) && (src[j] == '"' || src[j] == '\'') && isStringPrefix(word) {
				tok, end, nl, err := lexString(src, i, j)
				if err != nil {
					return nil, &SyntaxError{Line: line, Msg: err.Error()}
				}
				emit(tok)
				line += nl
				i = end
				continue
			}
			emit(token{kind: tokenName, text: word})
			i = j
		case c == '"' || c == '\'':
			tok, end, nl, err := lexString(src, i, i)
			if err != nil {
				return nil, &SyntaxError{Line: line, Msg: err.Error()}
			}
			emit(tok)
			line += nl
			i = end
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			j := i + 1
			for j < len(src) {
				d := src[j]
				if isIdentChar(d) || d == '.' {
					j++
					continue
				}
				if (d == '+' || d == '-') && (src[j-1] == 'e' || src[j-1] == 'E') {
					j++
					continue
				}
				break
			}
			emit(token{kind: tokenNumber, text: src[i:j]})
			i = j
		default:
			op := matchOperator(src[i:])
			if op == "" {
				emit(token{kind: tokenOther, text: src[i : i+1]})
				i++
				continue
			}
			switch op {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if depth > 0 {
					depth--
				}
			}
			emit(token{kind: tokenOp, text: op})
			i += len(op)
		}
	}
	if depth > 0 {
		return nil, &SyntaxError{Line: line, Msg: "unexpected EOF inside brackets"}
	}
	flush()
	return lines, nil
}

// lexString scans the string literal whose prefix starts at start and whose
// opening quote is at quoteAt. It returns the token, the offset just past the
// closing quote and the number of newlines consumed.
func lexString(src string, start, quoteAt int) (token, int, int, error) {
	q := src[quoteAt]
	delim := string(q)
	if strings.HasPrefix(src[quoteAt:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	triple := len(delim) == 3
	newlines := 0

	j := quoteAt + len(delim)
	for j < len(src) {
		switch c := src[j]; {
		case c == '\\':
			if j+1 < len(src) && src[j+1] == '\n' {
				newlines++
			}
			j += 2
			continue
		case c == '\n':
			if !triple {
				return token{}, 0, 0, errors.New("unterminated string literal")
			}
			newlines++
		case strings.HasPrefix(src[j:], delim):
			end := j + len(delim)
			return token{
				kind:   tokenString,
				text:   src[start:end],
				prefix: strings.ToLower(src[start:quoteAt]),
				body:   src[quoteAt+len(delim) : j],
			}, end, newlines, nil
		}
		j++
	}
	if triple {
		return token{}, 0, 0, errors.New("unterminated triple-quoted string literal")
	}
	return token{}, 0, 0, errors.New("unterminated string literal")
}

func matchOperator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isStringPrefix(word string) bool {
	if len(word) > 2 {
		return false
	}
	seen := map[byte]bool{}
	for i := 0; i < len(word); i++ {
		c := word[i] | 0x20 // lower-case ASCII letters
		if !strings.ContainsRune("rubft", rune(c)) || seen[c] {
			return false
		}
		seen[c] = true
	}
	if len(word) == 2 {
		// Only r may combine with another prefix letter.
		return seen['r'] && !seen['u']
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
