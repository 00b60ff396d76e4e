// Package debug implements a read-only bytecode disassembler, used by the
// VM's Debug trace mode and by tests that want to assert on compiled
// output without executing it.
package debug

import (
	"fmt"
	"io"

	"github.com/mna/willow/lang/chunk"
	"github.com/mna/willow/lang/value"
)

// DisassembleChunk writes every instruction in c to w, labelled with name.
func DisassembleChunk(w io.Writer, c *chunk.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction writes the single instruction at offset to w and
// returns the offset of the next instruction.
func DisassembleInstruction(w io.Writer, c *chunk.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[offset])
	}

	op := chunk.OpCode(c.Code[offset])
	switch op.OperandSize() {
	case 0:
		return simpleInstruction(w, op, offset)
	case 1:
		if op == chunk.OpGetLocal || op == chunk.OpSetLocal || op == chunk.OpGetUpvalue || op == chunk.OpSetUpvalue || op == chunk.OpCall {
			return byteInstruction(w, op, c, offset)
		}
		return constantInstruction(w, op, c, offset)
	case 2:
		switch op {
		case chunk.OpJump, chunk.OpLoop, chunk.OpJumpIfFalse:
			sign := 1
			if op == chunk.OpLoop {
				sign = -1
			}
			return jumpInstruction(w, op, sign, c, offset)
		default:
			return invokeInstruction(w, op, c, offset)
		}
	case chunk.VariableOperand:
		return closureInstruction(w, c, offset)
	default:
		fmt.Fprintf(w, "unknown opcode %d\n", op)
		return offset + 1
	}
}

func simpleInstruction(w io.Writer, op chunk.OpCode, offset int) int {
	fmt.Fprintln(w, op.String())
	return offset + 1
}

func byteInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op.String(), slot)
	return offset + 2
}

func constantInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op.String(), idx, c.Constants[idx].String())
	return offset + 2
}

func jumpInstruction(w io.Writer, op chunk.OpCode, sign int, c *chunk.Chunk, offset int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op.String(), offset, offset+3+sign*jump)
	return offset + 3
}

func invokeInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	idx := c.Code[offset+1]
	argc := c.Code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %4d '%s'\n", op.String(), argc, idx, c.Constants[idx].String())
	return offset + 3
}

func closureInstruction(w io.Writer, c *chunk.Chunk, offset int) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", chunk.OpClosure.String(), idx, c.Constants[idx].String())
	offset += 2

	upvalueCount := 0
	if fn, ok := c.Constants[idx].(*value.ObjFunction); ok {
		upvalueCount = fn.UpvalueCount
	}
	for i := 0; i < upvalueCount; i++ {
		isLocal := c.Code[offset]
		index := c.Code[offset+1]
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset, kind, index)
		offset += 2
	}
	return offset
}
