package bytecode

import (
	"fmt"
	"strings"

	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// Disassemble renders a chunk as human-readable IR, one instruction
// per line, for tests and the CLI's --dump-ir flag.
func Disassemble(chunk *Chunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", chunk.Name)

	for idx, ins := range chunk.Code {
		fmt.Fprintf(&sb, "%04d %-14s", idx, ins.Op)
		switch ins.Op {
		case OpLoadConst, OpLoadString:
			fmt.Fprintf(&sb, " %-4d (%s)", ins.Operand, runtime.Inspect(chunk.Constants[ins.Operand]))
		case OpLoadVar:
			fmt.Fprintf(&sb, " %-4d (%s)", ins.Operand, chunk.Names[ins.Operand])
		case OpStoreVar:
			nameIdx, declare := DecodeStore(ins.Operand)
			mode := "assign"
			if declare {
				mode = "declare"
			}
			fmt.Fprintf(&sb, " %-4d (%s, %s)", nameIdx, chunk.Names[nameIdx], mode)
		case OpJump, OpJumpIfFalse:
			fmt.Fprintf(&sb, " -> %d", ins.Operand)
		case OpCall:
			fmt.Fprintf(&sb, " argc=%d", ins.Operand)
		case OpShiftLeft:
			fmt.Fprintf(&sb, " k=%d", ins.Operand)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
