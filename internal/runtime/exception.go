package runtime

import (
	"fmt"
	"strings"

	"github.com/piratebomber/go-rubolt/internal/lexer"
)

// ErrorKind names a script error kind. Kinds form a hierarchy rooted
// at RuntimeError; catch arms match by kind name through the
// hierarchy. User-defined kinds (thrown strings or objects with a
// custom type) match by exact name only.
type ErrorKind string

const (
	RuntimeError        ErrorKind = "RuntimeError"
	TypeError           ErrorKind = "TypeError"
	IndexError          ErrorKind = "IndexError"
	KeyError            ErrorKind = "KeyError"
	NullError           ErrorKind = "NullError"
	NameError           ErrorKind = "NameError"
	AttributeError      ErrorKind = "AttributeError"
	ArithmeticError     ErrorKind = "ArithmeticError"
	DivisionByZeroError ErrorKind = "DivisionByZeroError"
	IOError             ErrorKind = "IOError"
	FileNotFoundError   ErrorKind = "FileNotFoundError"
	NetworkError        ErrorKind = "NetworkError"
	AssertionError      ErrorKind = "AssertionError"
	ImportError         ErrorKind = "ImportError"
	MemoryError         ErrorKind = "MemoryError"
	ValueError          ErrorKind = "ValueError"
)

// parentKind maps each kind to its parent in the hierarchy.
// RuntimeError is the root; kinds not present are user-defined and
// have no parent.
var parentKind = map[ErrorKind]ErrorKind{
	TypeError:           RuntimeError,
	IndexError:          RuntimeError,
	KeyError:            RuntimeError,
	NullError:           RuntimeError,
	NameError:           RuntimeError,
	AttributeError:      RuntimeError,
	ArithmeticError:     RuntimeError,
	DivisionByZeroError: ArithmeticError,
	IOError:             RuntimeError,
	FileNotFoundError:   IOError,
	NetworkError:        IOError,
	AssertionError:      RuntimeError,
	ImportError:         RuntimeError,
	MemoryError:         RuntimeError,
	ValueError:          RuntimeError,
}

// KindIsA reports whether kind matches target through the hierarchy:
// a DivisionByZeroError is an ArithmeticError is a RuntimeError.
// "*" and "Exception" match every kind.
func KindIsA(kind, target ErrorKind) bool {
	if target == "*" || target == "Exception" {
		return true
	}
	for k := kind; k != ""; {
		if k == target {
			return true
		}
		parent, ok := parentKind[k]
		if !ok {
			return false
		}
		k = parent
	}
	return false
}

// TraceFrame is one frame of a traceback, captured at throw time.
type TraceFrame struct {
	Function string
	File     string
	Pos      lexer.Position
}

// String formats the frame for traceback output.
func (f TraceFrame) String() string {
	file := f.File
	if file == "" {
		file = "<script>"
	}
	return fmt.Sprintf("  at %s (%s:%d:%d)", f.Function, file, f.Pos.Line, f.Pos.Column)
}

// Exception is the runtime representation of a thrown error. It is a
// Value so scripts can inspect it in catch arms (e.type, e.message,
// e.line), and it propagates through the evaluator as a typed result
// rather than a panic.
type Exception struct {
	ErrKind ErrorKind
	Message string
	File    string
	Pos     lexer.Position
	Cause   *Exception
	Trace   []TraceFrame
}

// NewException creates an exception with a kind and message. Position
// and traceback are attached by the evaluator at the throw site.
func NewException(kind ErrorKind, message string) *Exception {
	return &Exception{ErrKind: kind, Message: message}
}

// NewExceptionf creates an exception with a formatted message.
func NewExceptionf(kind ErrorKind, format string, args ...any) *Exception {
	return &Exception{ErrKind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Exception) Kind() Kind { return ExceptionKind }

func (e *Exception) String() string {
	return fmt.Sprintf("%s: %s", e.ErrKind, e.Message)
}

// Error implements the error interface so exceptions can cross the
// host boundary as Go errors.
func (e *Exception) Error() string { return e.String() }

// WithPos records the source position of the throw site if none is
// set yet, and returns the exception for chaining.
func (e *Exception) WithPos(pos lexer.Position) *Exception {
	if e.Pos.Line == 0 {
		e.Pos = pos
	}
	return e
}

// Member resolves script-visible fields of the exception object.
func (e *Exception) Member(name string) (Value, bool) {
	switch name {
	case "type":
		return NewString(string(e.ErrKind)), true
	case "message":
		return NewString(e.Message), true
	case "line":
		return NewNumber(float64(e.Pos.Line)), true
	case "column":
		return NewNumber(float64(e.Pos.Column)), true
	case "cause":
		if e.Cause != nil {
			return e.Cause, true
		}
		return TheNull, true
	}
	return nil, false
}

// FormatTraceback renders the uncaught-error report: the kind,
// message and position, followed by frames innermost first.
func (e *Exception) FormatTraceback() string {
	var sb strings.Builder
	file := e.File
	if file == "" {
		file = "<script>"
	}
	fmt.Fprintf(&sb, "%s: %s at %s:%d:%d\n", e.ErrKind, e.Message, file, e.Pos.Line, e.Pos.Column)
	for _, frame := range e.Trace {
		sb.WriteString(frame.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
