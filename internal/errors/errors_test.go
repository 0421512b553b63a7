package errors

import (
	"strings"
	"testing"

	"github.com/piratebomber/go-rubolt/internal/lexer"
)

func TestFormatWithCaret(t *testing.T) {
	source := "let x = 1\nlet y = @\nlet z = 3"
	err := NewSourceError(lexer.Position{Line: 2, Column: 9}, "unexpected character '@'", source, "test.rbo")

	out := err.Format(false)

	if !strings.Contains(out, "Error in test.rbo:2:9") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "let y = @") {
		t.Errorf("missing source line:\n%s", out)
	}
	if !strings.Contains(out, "^") {
		t.Errorf("missing caret:\n%s", out)
	}
	if !strings.Contains(out, "unexpected character '@'") {
		t.Errorf("missing message:\n%s", out)
	}

	// The caret must sit under column 9.
	lines := strings.Split(out, "\n")
	var srcLine, caretLine string
	for idx, line := range lines {
		if strings.Contains(line, "let y = @") && idx+1 < len(lines) {
			srcLine = line
			caretLine = lines[idx+1]
		}
	}
	if srcLine == "" {
		t.Fatal("source line not found")
	}
	atPos := strings.Index(srcLine, "@")
	caretPos := strings.Index(caretLine, "^")
	if atPos != caretPos {
		t.Errorf("caret at %d, '@' at %d:\n%s", caretPos, atPos, out)
	}
}

func TestFormatWithoutFile(t *testing.T) {
	err := NewSourceError(lexer.Position{Line: 1, Column: 1}, "boom", "x", "")
	out := err.Format(false)
	if !strings.Contains(out, "Error at line 1:1") {
		t.Errorf("missing positional header:\n%s", out)
	}
}

func TestFormatOutOfRangeLine(t *testing.T) {
	err := NewSourceError(lexer.Position{Line: 99, Column: 1}, "boom", "one line", "f")
	out := err.Format(false)
	// No source context, but the message still renders.
	if !strings.Contains(out, "boom") {
		t.Errorf("message missing:\n%s", out)
	}
}

func TestFormatErrorsJoins(t *testing.T) {
	errs := []*SourceError{
		NewSourceError(lexer.Position{Line: 1, Column: 1}, "first", "a\nb", ""),
		NewSourceError(lexer.Position{Line: 2, Column: 1}, "second", "a\nb", ""),
	}
	out := FormatErrors(errs, false)
	if !strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Errorf("errors missing:\n%s", out)
	}
}
