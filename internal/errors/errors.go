// Package errors provides diagnostic formatting for the Rubolt
// toolchain: compile errors with source context and caret indicators,
// and the address-resolver interface the panic reporter uses to
// symbolize native frames.
package errors

import (
	"fmt"
	"strings"

	"github.com/piratebomber/go-rubolt/internal/lexer"
)

// SourceError represents a single compile-time error with position
// and source context.
type SourceError struct {
	Message string
	Source  string
	File    string
	Pos     lexer.Position
}

// NewSourceError creates a source error.
func NewSourceError(pos lexer.Position, message, source, file string) *SourceError {
	return &SourceError{
		Pos:     pos,
		Message: message,
		Source:  source,
		File:    file,
	}
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return e.Format(false)
}

// Format renders the error with its source line and a caret pointing
// at the error column. ANSI colors are used when color is true.
func (e *SourceError) Format(color bool) string {
	var sb strings.Builder

	if e.File != "" {
		fmt.Fprintf(&sb, "Error in %s:%d:%d\n", e.File, e.Pos.Line, e.Pos.Column)
	} else {
		fmt.Fprintf(&sb, "Error at line %d:%d\n", e.Pos.Line, e.Pos.Column)
	}

	sourceLine := e.getSourceLine(e.Pos.Line)
	if sourceLine != "" {
		lineNumStr := fmt.Sprintf("%4d | ", e.Pos.Line)
		sb.WriteString(lineNumStr)
		sb.WriteString(sourceLine)
		sb.WriteString("\n")

		col := e.Pos.Column
		if col < 1 {
			col = 1
		}
		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+col-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(e.Message)
	if color {
		sb.WriteString("\033[0m")
	}
	return sb.String()
}

// getSourceLine extracts a 1-indexed line from the source.
func (e *SourceError) getSourceLine(lineNum int) string {
	if e.Source == "" {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// FormatErrors renders a list of source errors separated by blank
// lines.
func FormatErrors(errs []*SourceError, color bool) string {
	parts := make([]string, len(errs))
	for idx, err := range errs {
		parts[idx] = err.Format(color)
	}
	return strings.Join(parts, "\n\n")
}

// Frame is a resolved source location for a native code address.
type Frame struct {
	Function   string
	File       string
	Line       int
	Column     int
	SourceLine string
}

// AddrResolver symbolizes native code addresses for stack traces. The
// debug-info reader implements it; the core only consumes the
// interface.
type AddrResolver interface {
	// Resolve returns the source location for addr, or false when the
	// address is unknown.
	Resolve(addr uintptr) (Frame, bool)
}
