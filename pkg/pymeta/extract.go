// SPDX-License-Identifier: MPL-2.0

package pymeta

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/onyxware/bao/pkg/bun"
)

// Recognized header identifiers.
const (
	DocIdentifier        = docName
	AuthorIdentifier     = "__author__"
	CopyrightIdentifier  = "__copyright__"
	LicenseIdentifier    = "__license__"
	VersionIdentifier    = "__version__"
	MaintainerIdentifier = "__maintainer__"
	EmailIdentifier      = "__email__"
)

const (
	// ReasonMissing means the identifier is never bound at module scope.
	ReasonMissing FieldReason = "missing"
	// ReasonNonLiteral means the identifier is bound to something other than a string literal.
	ReasonNonLiteral FieldReason = "not a string literal"
	// ReasonInvalid means the literal value failed validation.
	ReasonInvalid FieldReason = "invalid"
)

// ErrExtraction is the sentinel error wrapped by ExtractionError.
var ErrExtraction = errors.New("metadata extraction failed")

// RequiredIdentifiers lists the identifiers every bun entrypoint must define.
var RequiredIdentifiers = []string{
	DocIdentifier,
	AuthorIdentifier,
	CopyrightIdentifier,
	LicenseIdentifier,
	VersionIdentifier,
}

type (
	// FieldReason explains why a header field could not be used.
	FieldReason string

	// FieldError describes one unresolved or invalid header field.
	FieldError struct {
		Identifier string
		Reason     FieldReason
		Line       int
		Err        error
	}

	// ExtractionError is returned when one or more required header fields
	// cannot be resolved to a valid string literal.
	ExtractionError struct {
		Fields []FieldError
	}
)

// Error implements the error interface.
func (e FieldError) Error() string {
	msg := e.Identifier + " " + string(e.Reason)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return "cannot extract metadata: " + strings.Join(msgs, ", ")
}

// Unwrap returns ErrExtraction so callers can use errors.Is for programmatic detection.
func (e *ExtractionError) Unwrap() error { return ErrExtraction }

// MissingFields returns the sorted identifiers that could not be resolved to a
// string literal, whether absent or computed.
func (e *ExtractionError) MissingFields() []string {
	var ids []string
	for _, f := range e.Fields {
		if f.Reason == ReasonMissing || f.Reason == ReasonNonLiteral {
			ids = append(ids, f.Identifier)
		}
	}
	slices.Sort(ids)
	return ids
}

// Identifiers returns the sorted identifiers of every reported field.
func (e *ExtractionError) Identifiers() []string {
	ids := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		ids = append(ids, f.Identifier)
	}
	slices.Sort(ids)
	return ids
}

// Extract derives bun metadata from Python source. The source is never executed.
// It returns an *ExtractionError listing every required identifier that is
// missing, computed or invalid, or a *SyntaxError if the source cannot be tokenized.
func Extract(src []byte) (bun.Metadata, error) {
	bindings, err := Scan(src)
	if err != nil {
		return bun.Metadata{}, err
	}

	var (
		meta   bun.Metadata
		fields []FieldError
	)
	for _, id := range RequiredIdentifiers {
		b, ok := bindings[id]
		switch {
		case !ok:
			fields = append(fields, FieldError{Identifier: id, Reason: ReasonMissing})
			continue
		case !b.Literal:
			fields = append(fields, FieldError{Identifier: id, Reason: ReasonNonLiteral, Line: b.Line})
			continue
		}
		if fe := assign(&meta, id, b); fe != nil {
			fields = append(fields, *fe)
		}
	}
	for _, id := range []string{MaintainerIdentifier, EmailIdentifier} {
		if b, ok := bindings[id]; ok && b.Literal {
			_ = assign(&meta, id, b)
		}
	}

	if len(fields) > 0 {
		return bun.Metadata{}, &ExtractionError{Fields: fields}
	}
	return meta, nil
}

// assign stores a literal binding into the matching metadata field and
// validates it.
func assign(meta *bun.Metadata, id string, b Binding) *FieldError {
	invalid := func(err error) *FieldError {
		return &FieldError{Identifier: id, Reason: ReasonInvalid, Line: b.Line, Err: err}
	}
	blank := strings.TrimSpace(b.Value) == ""

	switch id {
	case DocIdentifier:
		meta.Description = b.Value
	case AuthorIdentifier:
		meta.Author = b.Value
	case CopyrightIdentifier:
		meta.Copyright = b.Value
	case LicenseIdentifier:
		meta.License = bun.License(b.Value)
	case VersionIdentifier:
		meta.Version = bun.Version(b.Value)
		if err := meta.Version.Validate(); err != nil {
			return invalid(err)
		}
		return nil
	case MaintainerIdentifier:
		meta.Maintainer = b.Value
		return nil
	case EmailIdentifier:
		meta.Email = b.Value
		return nil
	}
	if blank {
		return invalid(errors.New("value is empty"))
	}
	return nil
}
