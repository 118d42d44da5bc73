// Package diag defines the typed failure values produced by the COB
// pipeline and their conversion to hcl.Diagnostics for rendering.
package diag

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// Syntax is malformed source text; the file's AST is not produced.
	Syntax Kind = iota
	// DuplicateDeclaration is the same name or key declared twice in one scope.
	DuplicateDeclaration
	// ManifestConflict is one manifest key bound to two different paths.
	ManifestConflict
	// UnresolvedReference is a name used but never defined or imported.
	UnresolvedReference
	// CyclicExpansion is a constant, macro, or scene-macro that expands
	// through itself.
	CyclicExpansion
	// ExpansionDepthExceeded is runaway, non-cyclic expansion past the cap.
	ExpansionDepthExceeded
	// UnboundParameter is an invocation that leaves a declared parameter
	// without a value, or supplies an argument no parameter accepts.
	UnboundParameter
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax error"
	case DuplicateDeclaration:
		return "duplicate declaration"
	case ManifestConflict:
		return "manifest conflict"
	case UnresolvedReference:
		return "unresolved reference"
	case CyclicExpansion:
		return "cyclic expansion"
	case ExpansionDepthExceeded:
		return "expansion depth exceeded"
	case UnboundParameter:
		return "unbound parameter"
	default:
		return fmt.Sprintf("diag.Kind(%d)", int(k))
	}
}

// Error is a single failure with a primary span and optional related spans.
type Error struct {
	Kind    Kind
	Summary string
	Detail  string
	// Subject is the primary span. A zero Filename means the failure has no
	// useful span (e.g. it concerns a whole file).
	Subject hcl.Range
	// Related points at other involved declarations, e.g. the first
	// occurrence for a duplicate, or the earlier binding for a conflict.
	Related []hcl.Range
	// Chain is the expansion call chain for cyclic/depth failures, outermost
	// first, each element "name@path".
	Chain []string
}

// New constructs an Error with a formatted summary.
func New(kind Kind, subject hcl.Range, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Summary: fmt.Sprintf(format, args...),
		Subject: subject,
	}
}

func (e *Error) Error() string {
	if e.Subject.Filename == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Summary)
	}
	return fmt.Sprintf("%s: %s: %s", e.Subject, e.Kind, e.Summary)
}

// Diagnostic converts the error to an hcl.Diagnostic for rendering.
func (e *Error) Diagnostic() *hcl.Diagnostic {
	detail := e.Detail
	if len(e.Chain) > 0 {
		if detail != "" {
			detail += "\n"
		}
		detail += "Expansion chain: " + strings.Join(e.Chain, " -> ") + "."
	}
	d := &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  fmt.Sprintf("%s: %s", e.Kind, e.Summary),
		Detail:   detail,
	}
	if e.Subject.Filename != "" {
		subject := e.Subject
		d.Subject = &subject
	}
	if len(e.Related) > 0 {
		related := e.Related[0]
		d.Context = &related
	}
	return d
}

// Errors aggregates failures. A nil or empty Errors means success.
type Errors []*Error

func (es Errors) HasErrors() bool { return len(es) > 0 }

func (es Errors) Error() string {
	switch len(es) {
	case 0:
		return "no errors"
	case 1:
		return es[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", es[0].Error(), len(es)-1)
	}
}

// Err returns the slice as an error, or nil when it is empty. This mirrors
// hcl.Diagnostics and keeps `if err != nil` working at call sites.
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// Diagnostics converts every error for rendering with an
// hcl.DiagnosticWriter.
func (es Errors) Diagnostics() hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, e := range es {
		diags = append(diags, e.Diagnostic())
	}
	return diags
}
