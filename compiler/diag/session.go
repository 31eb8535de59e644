package diag

import (
	"io"
	"os"
	"sync"
)

// Session collects diagnostics for one compilation. It is safe for
// concurrent use; emission order follows report order.
type Session struct {
	mu       sync.Mutex
	out      io.Writer
	diags    []Diagnostic
	errCount int
}

// NewSession creates a session writing rendered diagnostics to w.
// A nil writer defaults to stderr.
func NewSession(w io.Writer) *Session {
	if w == nil {
		w = os.Stderr
	}
	return &Session{out: w}
}

// Err reports an error with no source location.
func (s *Session) Err(msg string) {
	s.report(Diagnostic{Severity: Error, Message: msg})
}

// SpanErr reports an error attributed to a source span.
func (s *Session) SpanErr(span Span, msg string) {
	s.report(Diagnostic{Severity: Error, Message: msg, Span: &span})
}

// Warn reports a warning with no source location.
func (s *Session) Warn(msg string) {
	s.report(Diagnostic{Severity: Warning, Message: msg})
}

// SpanWarn reports a warning attributed to a source span.
func (s *Session) SpanWarn(span Span, msg string) {
	s.report(Diagnostic{Severity: Warning, Message: msg, Span: &span})
}

func (s *Session) report(d Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diags = append(s.diags, d)
	if d.IsError() {
		s.errCount++
	}
	_, _ = io.WriteString(s.out, d.FormatForTerminal())
}

// ErrorCount returns the number of error-or-worse diagnostics reported so far.
func (s *Session) ErrorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errCount
}

// Diagnostics returns a copy of everything reported so far.
func (s *Session) Diagnostics() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)
	return out
}

// AbortIfErrors panics with a FatalError when at least one error has been
// reported. Callers batch a full phase of diagnostics first so the user sees
// every problem, then abort once.
func (s *Session) AbortIfErrors() {
	if n := s.ErrorCount(); n > 0 {
		panic(FatalError{ErrorCount: n})
	}
}
