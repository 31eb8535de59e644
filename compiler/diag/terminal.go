package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan, color.Bold)
	arrowTint = color.New(color.FgCyan)
)

// FormatForTerminal formats a diagnostic for terminal output with colors.
// Color codes are stripped automatically when the writer is not a TTY.
func (d Diagnostic) FormatForTerminal() string {
	var sb strings.Builder

	sb.WriteString(severityColor(d.Severity).Sprint(d.Severity.String()))
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	sb.WriteString("\n")

	if d.Span != nil {
		sb.WriteString(fmt.Sprintf("  %s %s\n", arrowTint.Sprint("-->"), d.Span))
	}

	return sb.String()
}

func severityColor(s Severity) *color.Color {
	switch s {
	case Error, Fatal:
		return errColor
	case Warning:
		return warnColor
	default:
		return infoColor
	}
}
