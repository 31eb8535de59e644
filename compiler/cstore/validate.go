package cstore

import (
	"fmt"
	"unicode"

	"github.com/quill-lang/quill/compiler/diag"
)

// ValidateCrateName checks that a crate name is non-empty and made only of
// alphanumeric characters and underscore. Every offending character is
// reported as a separate diagnostic against the same span, then compilation
// aborts once if anything was reported. With no session attached a violation
// is an unconditional internal error.
func ValidateCrateName(sess *diag.Session, name string, span *diag.Span) {
	errCount := 0
	say := func(msg string) {
		switch {
		case sess == nil:
			diag.Bugf("%s", msg)
		case span != nil:
			sess.SpanErr(*span, msg)
		default:
			sess.Err(msg)
		}
		errCount++
	}

	if name == "" {
		say("crate name must not be empty")
	}
	for _, c := range name {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			continue
		}
		say(fmt.Sprintf("invalid character `%c` in crate name: `%s`", c, name))
	}

	if errCount > 0 {
		sess.AbortIfErrors()
	}
}
