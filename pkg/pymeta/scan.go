// SPDX-License-Identifier: MPL-2.0

package pymeta

import (
	"bytes"
	"slices"
	"strings"
)

// docName is the identifier a leading module docstring is bound to.
const docName = "__doc__"

// Binding is the final module-level binding of a name.
type Binding struct {
	Name string
	// Line is the 1-based source line of the binding statement.
	Line int
	// Literal is true when the bound value is a plain string literal.
	Literal bool
	// Value holds the decoded literal. It is empty when Literal is false.
	Value string
}

// compoundKeywords start statements whose bodies are never module scope.
var compoundKeywords = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "while": true,
	"def": true, "class": true, "with": true, "try": true, "except": true,
	"finally": true, "async": true,
}

// augmentedOps rebind their target to a computed value.
var augmentedOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "//=": true, "%=": true,
	"**=": true, ">>=": true, "<<=": true, "&=": true, "|=": true, "^=": true, "@=": true,
}

// Scan returns the module-level bindings of src keyed by name. Only statements
// that start at column zero are considered; later bindings replace earlier ones
// and "del" removes them.
func Scan(src []byte) (map[string]Binding, error) {
	text := string(bytes.TrimPrefix(src, []byte("\ufeff")))
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	s := &scanner{bindings: make(map[string]Binding)}
	for i, ll := range lines {
		stmts := splitStatements(ll.tokens)
		if i == 0 && len(stmts) > 0 {
			s.docstring(stmts[0])
		}
		if ll.indent != 0 || isCompound(ll.tokens) {
			continue
		}
		for _, stmt := range stmts {
			s.statement(stmt)
		}
	}
	return s.bindings, nil
}

type scanner struct {
	bindings map[string]Binding
}

func (s *scanner) bind(name string, line int, literal bool, value string) {
	if !literal {
		value = ""
	}
	s.bindings[name] = Binding{Name: name, Line: line, Literal: literal, Value: value}
}

// docstring binds __doc__ when the first statement is a lone string expression.
func (s *scanner) docstring(stmt []token) {
	stmt = unparen(stmt)
	if len(stmt) != 1 || stmt[0].kind != tokenString {
		return
	}
	value, ok := literalValue(stmt[0])
	s.bind(docName, stmt[0].line, ok, value)
}

func (s *scanner) statement(stmt []token) {
	if len(stmt) == 0 || stmt[0].kind != tokenName {
		return
	}
	line := stmt[0].line
	switch stmt[0].text {
	case "import":
		for _, name := range importedNames(stmt[1:]) {
			s.bind(name, line, false, "")
		}
		return
	case "from":
		for i, t := range stmt {
			if t.kind == tokenName && t.text == "import" {
				for _, name := range importedNames(stmt[i+1:]) {
					s.bind(name, line, false, "")
				}
				return
			}
		}
		return
	case "del":
		// Only bare names are unbound; "del x.y" and "del x[k]" touch objects.
		for _, target := range splitTopLevel(stmt[1:], ",") {
			if names, ok := unpackNames(target); ok {
				for _, name := range names {
					delete(s.bindings, name)
				}
			}
		}
		return
	}

	if len(stmt) >= 2 && stmt[1].kind == tokenOp && augmentedOps[stmt[1].text] {
		s.bind(stmt[0].text, line, false, "")
		return
	}

	parts := splitAssignment(stmt)
	if len(parts) < 2 {
		return
	}
	rhs := unparen(parts[len(parts)-1])
	value, literal := "", false
	if len(rhs) == 1 {
		value, literal = literalValue(rhs[0])
	}

	// Annotated assignment: NAME ":" annotation "=" value.
	if len(parts) == 2 && len(parts[0]) >= 2 && parts[0][1].kind == tokenOp && parts[0][1].text == ":" {
		s.bind(parts[0][0].text, line, literal, value)
		return
	}

	for _, target := range parts[:len(parts)-1] {
		if len(target) == 1 && target[0].kind == tokenName {
			s.bind(target[0].text, line, literal, value)
			continue
		}
		// Unpacking targets bind computed values. Attribute and subscript
		// elements bind nothing at module scope.
		for _, elem := range splitTopLevel(target, ",") {
			if names, ok := unpackNames(elem); ok {
				for _, name := range names {
					s.bind(name, line, false, "")
				}
			}
		}
	}
}

// isCompound reports whether a logical line is a compound statement header or
// decorator, including one-line forms such as "if x: y = 1".
func isCompound(tokens []token) bool {
	first := tokens[0]
	if first.kind == tokenOp && first.text == "@" {
		return true
	}
	if first.kind != tokenName {
		return false
	}
	if compoundKeywords[first.text] {
		return true
	}
	// match and case are soft keywords: "match = 1" is an assignment.
	if first.text == "match" || first.text == "case" {
		if len(tokens) < 2 || !endsWithColon(tokens) {
			return false
		}
		second := tokens[1]
		return second.kind != tokenOp ||
			!(second.text == "=" || second.text == ":" || second.text == "." || augmentedOps[second.text])
	}
	return false
}

func endsWithColon(tokens []token) bool {
	last := tokens[len(tokens)-1]
	return last.kind == tokenOp && last.text == ":"
}

// splitStatements splits a logical line on top-level semicolons.
func splitStatements(tokens []token) [][]token {
	var (
		stmts [][]token
		start int
		depth int
	)
	for i, t := range tokens {
		depth = trackDepth(t, depth)
		if depth == 0 && t.kind == tokenOp && t.text == ";" {
			if i > start {
				stmts = append(stmts, tokens[start:i])
			}
			start = i + 1
		}
	}
	if start < len(tokens) {
		stmts = append(stmts, tokens[start:])
	}
	return stmts
}

// splitAssignment splits a statement on top-level "=" tokens. Once a lambda
// keyword is seen the rest of the statement is the value, because its default
// arguments also use "=".
func splitAssignment(stmt []token) [][]token {
	var (
		parts [][]token
		start int
		depth int
	)
	for i, t := range stmt {
		depth = trackDepth(t, depth)
		if depth != 0 {
			continue
		}
		if t.kind == tokenName && t.text == "lambda" {
			break
		}
		if t.kind == tokenOp && t.text == "=" {
			parts = append(parts, stmt[start:i])
			start = i + 1
		}
	}
	return append(parts, stmt[start:])
}

// unparen strips balanced parentheses wrapping a single token, so ("A")
// reads as "A". A one-element tuple such as ("A",) is left alone.
func unparen(tokens []token) []token {
	for len(tokens) == 3 &&
		tokens[0].kind == tokenOp && tokens[0].text == "(" &&
		tokens[2].kind == tokenOp && tokens[2].text == ")" {
		tokens = tokens[1:2]
	}
	return tokens
}

// splitTopLevel splits tokens on sep outside brackets.
func splitTopLevel(tokens []token, sep string) [][]token {
	var (
		parts [][]token
		start int
		depth int
	)
	for i, t := range tokens {
		depth = trackDepth(t, depth)
		if depth == 0 && t.kind == tokenOp && t.text == sep {
			parts = append(parts, tokens[start:i])
			start = i + 1
		}
	}
	return append(parts, tokens[start:])
}

// unpackNames returns the names bound by a tuple or list target such as
// "a, (b, c)" or "[a, *b]". It reports false for anything else.
func unpackNames(target []token) ([]string, bool) {
	var names []string
	prevName := false
	for _, t := range target {
		switch {
		case t.kind == tokenName:
			if prevName {
				return nil, false
			}
			names = append(names, t.text)
			prevName = true
		case t.kind == tokenOp && prevName && (t.text == "(" || t.text == "["):
			// A call or subscript, not a name target.
			return nil, false
		case t.kind == tokenOp && slices.Contains([]string{",", "(", ")", "[", "]", "*"}, t.text):
			prevName = false
		default:
			return nil, false
		}
	}
	return names, len(names) > 0
}

// importedNames returns the local names bound by an import clause.
// For "import a.b" the bound name is "a"; "as" aliases take precedence.
func importedNames(clause []token) []string {
	var (
		names []string
		item  []string
	)
	flushItem := func() {
		switch {
		case len(item) >= 3 && item[len(item)-2] == "as":
			names = append(names, item[len(item)-1])
		case len(item) > 0:
			names = append(names, item[0])
		}
		item = nil
	}
	for _, t := range clause {
		switch {
		case t.kind == tokenName:
			item = append(item, t.text)
		case t.kind == tokenOp && t.text == ",":
			flushItem()
		}
	}
	flushItem()
	return names
}

func trackDepth(t token, depth int) int {
	if t.kind != tokenOp {
		return depth
	}
	switch t.text {
	case "(", "[", "{":
		return depth + 1
	case ")", "]", "}":
		if depth > 0 {
			return depth - 1
		}
	}
	return depth
}
