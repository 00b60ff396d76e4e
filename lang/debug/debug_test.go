package debug_test

import (
	"bytes"
	"testing"

	"github.com/mna/willow/lang/chunk"
	"github.com/mna/willow/lang/debug"
	"github.com/mna/willow/lang/value"
	"github.com/stretchr/testify/assert"
)

func TestDisassembleChunkSimpleAndConstantInstructions(t *testing.T) {
	c := &chunk.Chunk{}
	idx, err := c.AddConstant(value.Number(1))
	assert.NoError(t, err)
	c.WriteOp(chunk.OpConstant, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(chunk.OpReturn, 1)

	var buf bytes.Buffer
	debug.DisassembleChunk(&buf, c, "test")

	out := buf.String()
	assert.Contains(t, out, "== test ==")
	assert.Contains(t, out, "OP_CONSTANT")
	assert.Contains(t, out, "OP_RETURN")
}

func TestDisassembleInstructionJump(t *testing.T) {
	c := &chunk.Chunk{}
	c.WriteOp(chunk.OpJump, 3)
	c.Write(0, 3)
	c.Write(2, 3)

	var buf bytes.Buffer
	next := debug.DisassembleInstruction(&buf, c, 0)
	assert.Equal(t, 3, next)
	assert.Contains(t, buf.String(), "OP_JUMP")
	assert.Contains(t, buf.String(), "-> 5")
}

func TestDisassembleInstructionOmitsRepeatedLineNumber(t *testing.T) {
	c := &chunk.Chunk{}
	c.WriteOp(chunk.OpTrue, 7)
	c.WriteOp(chunk.OpFalse, 7)

	var buf bytes.Buffer
	debug.DisassembleChunk(&buf, c, "lines")

	lines := buf.String()
	assert.Contains(t, lines, "   7 OP_TRUE")
	assert.Contains(t, lines, "   | OP_FALSE")
}
