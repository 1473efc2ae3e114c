// Package diag implements the small error taxonomy shared across the
// compilation pipeline (spec §7): compile errors carry a span, a human
// message, and a kind; they compose into a List the way the teacher's
// scanner.ErrorList composes lexer errors, reused here for lex, parse,
// type and compile diagnostics alike.
package diag

import (
	"fmt"
	"strings"

	"github.com/aelys-lang/aelys/lang/token"
)

// Kind identifies which stage of the pipeline produced a diagnostic.
type Kind uint8

const (
	Lex Kind = iota
	Parse
	Type
	Module
	Symbol
	Circular
	NativeModule
	Checksum
	Capability
)

func (k Kind) String() string {
	switch k {
	case Lex:
		return "lex error"
	case Parse:
		return "parse error"
	case Type:
		return "type error"
	case Module:
		return "module not found"
	case Symbol:
		return "symbol not found"
	case Circular:
		return "circular dependency"
	case NativeModule:
		return "invalid native module"
	case Checksum:
		return "checksum mismatch"
	case Capability:
		return "capability denied"
	default:
		return "error"
	}
}

// Error is a single compile-time diagnostic: offending span, human message,
// and originating source, per spec §7.
type Error struct {
	Kind Kind
	Span token.Span
	Msg  string
}

func (e *Error) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Span, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Excerpt renders the offending source line with a caret under the error,
// the diagnostic rendering required at the driver boundary (spec §7).
func (e *Error) Excerpt() string {
	if !e.Span.IsValid() {
		return ""
	}
	line := e.Span.File.LineText(e.Span.Lo)
	_, col := e.Span.File.LineCol(e.Span.Lo)
	caret := strings.Repeat(" ", max(0, col-1)) + "^"
	return line + "\n" + caret
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// List accumulates zero or more *Error values produced during a single
// pass, and implements error via Unwrap() []error so it composes with
// errors.Join/errors.Is the way the taxonomy in spec §7 requires.
type List struct {
	Errs []*Error
}

// Add appends a new diagnostic to the list.
func (l *List) Add(kind Kind, span token.Span, format string, args ...any) {
	l.Errs = append(l.Errs, &Error{Kind: kind, Span: span, Msg: fmt.Sprintf(format, args...)})
}

// Err returns l as an error, or nil if the list is empty.
func (l *List) Err() error {
	if len(l.Errs) == 0 {
		return nil
	}
	return l
}

func (l *List) Error() string {
	var sb strings.Builder
	for i, e := range l.Errs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Unwrap lets the list participate in errors.Is/errors.As chains.
func (l *List) Unwrap() []error {
	errs := make([]error, len(l.Errs))
	for i, e := range l.Errs {
		errs[i] = e
	}
	return errs
}
