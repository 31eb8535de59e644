// Package diag implements the diagnostic session used by the Quill compiler.
// Diagnostics are collected into a session, rendered for the terminal, and
// flushed at phase boundaries. Internal invariant violations do not go through
// the session at all; they use Bugf and are never shown as user diagnostics.
package diag

import "fmt"

// Severity represents the severity level of a diagnostic
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Span represents a location in source code
type Span struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Length int    `json:"length"` // For multi-character tokens
}

// String formats the span as file:line:column
func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Diagnostic is a single user-facing message tied to an optional source span
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     *Span
}

// Error implements the error interface
func (d Diagnostic) Error() string {
	if d.Span != nil {
		return fmt.Sprintf("%s: %s: %s", d.Span, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// IsError returns true if the diagnostic is at Error or Fatal severity
func (d Diagnostic) IsError() bool {
	return d.Severity == Error || d.Severity == Fatal
}

// FatalError is the panic value raised by Session.AbortIfErrors. The CLI
// entry point recovers it and exits with a non-zero status; everything in
// between unwinds without printing a stack trace.
type FatalError struct {
	ErrorCount int
}

func (f FatalError) Error() string {
	if f.ErrorCount == 1 {
		return "aborting due to previous error"
	}
	return fmt.Sprintf("aborting due to %d previous errors", f.ErrorCount)
}

// Bugf reports an internal compiler error. These are invariant violations
// that the rest of the compiler must never trigger; they panic immediately
// and are not recoverable through the diagnostic session.
func Bugf(format string, args ...interface{}) {
	panic(fmt.Sprintf("internal compiler error: "+format, args...))
}
