package bytecode

import (
	"fmt"

	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// Chunk holds the compiled IR of one function: the instruction
// stream, the constant pool and the interned-name table variables are
// referenced through.
type Chunk struct {
	Name      string
	Code      []Instruction
	Constants []runtime.Value
	Names     []string

	nameIndex map[string]int
}

// NewChunk creates an empty chunk for a function.
func NewChunk(name string) *Chunk {
	return &Chunk{Name: name, nameIndex: make(map[string]int)}
}

// Emit appends an instruction and returns its index.
func (c *Chunk) Emit(op OpCode, operand, line int) int {
	c.Code = append(c.Code, Instruction{Op: op, Operand: operand, Line: line})
	return len(c.Code) - 1
}

// AddConstant adds a value to the constant pool and returns its
// index. Equal primitive constants are pooled.
func (c *Chunk) AddConstant(val runtime.Value) int {
	for idx, existing := range c.Constants {
		if sameConstant(existing, val) {
			return idx
		}
	}
	c.Constants = append(c.Constants, val)
	return len(c.Constants) - 1
}

// sameConstant pools identical primitive constants.
func sameConstant(a, b runtime.Value) bool {
	switch av := a.(type) {
	case *runtime.Number:
		bv, ok := b.(*runtime.Number)
		return ok && av.Value == bv.Value
	case *runtime.String:
		bv, ok := b.(*runtime.String)
		return ok && av.Value == bv.Value
	case *runtime.Bool:
		bv, ok := b.(*runtime.Bool)
		return ok && av.Value == bv.Value
	case *runtime.Null:
		_, ok := b.(*runtime.Null)
		return ok
	}
	return false
}

// InternName returns the index of name in the name table, adding it
// on first use.
func (c *Chunk) InternName(name string) int {
	if idx, ok := c.nameIndex[name]; ok {
		return idx
	}
	idx := len(c.Names)
	c.Names = append(c.Names, name)
	c.nameIndex[name] = idx
	return idx
}

// Validate checks jump targets and operand indexes before execution.
func (c *Chunk) Validate() error {
	for idx, ins := range c.Code {
		switch ins.Op {
		case OpJump, OpJumpIfFalse:
			if ins.Operand < 0 || ins.Operand > len(c.Code) {
				return fmt.Errorf("instruction %d: jump target %d out of range", idx, ins.Operand)
			}
		case OpLoadConst, OpLoadString:
			if ins.Operand < 0 || ins.Operand >= len(c.Constants) {
				return fmt.Errorf("instruction %d: constant %d out of range", idx, ins.Operand)
			}
		case OpLoadVar:
			if ins.Operand < 0 || ins.Operand >= len(c.Names) {
				return fmt.Errorf("instruction %d: name %d out of range", idx, ins.Operand)
			}
		case OpStoreVar:
			nameIdx, _ := DecodeStore(ins.Operand)
			if ins.Operand < 0 || nameIdx >= len(c.Names) {
				return fmt.Errorf("instruction %d: name %d out of range", idx, nameIdx)
			}
		}
	}
	return nil
}
