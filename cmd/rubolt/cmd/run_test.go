package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeScript drops a script into a temp dir and returns its path.
func writeScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

// exitCodeOf extracts the process exit code a command error maps to.
func exitCodeOf(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return exitOK
	}
	var coded *codedError
	if !errors.As(err, &coded) {
		t.Fatalf("unexpected error type: %v", err)
	}
	return coded.code
}

func TestRunFileSuccess(t *testing.T) {
	path := writeScript(t, "ok.rbo", "let x = 1 + 2\n")
	err := runFile(runCmd, path)
	if code := exitCodeOf(t, err); code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
}

func TestRunFileMissing(t *testing.T) {
	err := runFile(runCmd, filepath.Join(t.TempDir(), "absent.rbo"))
	if code := exitCodeOf(t, err); code != exitNoInput {
		t.Fatalf("exit code = %d, want %d", code, exitNoInput)
	}
}

func TestRunFileParseError(t *testing.T) {
	path := writeScript(t, "bad.rbo", "let = nope\n")
	err := runFile(runCmd, path)
	if code := exitCodeOf(t, err); code != exitParse {
		t.Fatalf("exit code = %d, want %d", code, exitParse)
	}
}

func TestRunFileScriptError(t *testing.T) {
	path := writeScript(t, "boom.rbo", "print(1 / 0)\n")
	err := runFile(runCmd, path)
	if code := exitCodeOf(t, err); code != exitScript {
		t.Fatalf("exit code = %d, want %d", code, exitScript)
	}
}

func TestBracketDepth(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"def f() {", 1},
		{"def f() { }", 0},
		{"[1, (2", 2},
		{`"{ not a brace"`, 0},
		{`'(' + "("`, 0},
	}
	for _, tt := range tests {
		if got := bracketDepth(tt.input); got != tt.want {
			t.Errorf("bracketDepth(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
