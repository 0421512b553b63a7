package runtime

import "github.com/piratebomber/go-rubolt/internal/lexer"

// DefaultMaxStackDepth bounds script recursion when no limit is
// configured.
const DefaultMaxStackDepth = 1024

// CallStack tracks the script function call stack for overflow
// detection and traceback capture.
type CallStack struct {
	frames   []TraceFrame
	maxDepth int
}

// NewCallStack creates a call stack with the given maximum depth.
// Non-positive maxDepth selects DefaultMaxStackDepth.
func NewCallStack(maxDepth int) *CallStack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxStackDepth
	}
	return &CallStack{maxDepth: maxDepth}
}

// Push adds a frame. Exceeding the maximum depth raises MemoryError.
func (cs *CallStack) Push(function, file string, pos lexer.Position) *Exception {
	if len(cs.frames) >= cs.maxDepth {
		return NewExceptionf(MemoryError,
			"stack overflow: maximum recursion depth (%d) exceeded in function '%s'",
			cs.maxDepth, function)
	}
	cs.frames = append(cs.frames, TraceFrame{Function: function, File: file, Pos: pos})
	return nil
}

// Pop removes the most recent frame. No-op on an empty stack.
func (cs *CallStack) Pop() {
	if len(cs.frames) > 0 {
		cs.frames = cs.frames[:len(cs.frames)-1]
	}
}

// Depth returns the current stack depth.
func (cs *CallStack) Depth() int { return len(cs.frames) }

// Capture returns a copy of the frames, innermost first, for
// attachment to a thrown exception.
func (cs *CallStack) Capture() []TraceFrame {
	trace := make([]TraceFrame, len(cs.frames))
	for i, frame := range cs.frames {
		trace[len(cs.frames)-1-i] = frame
	}
	return trace
}
