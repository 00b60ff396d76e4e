// Package chunk implements the compiled code unit: a growable array of
// opcode bytes and inline operands, a parallel per-byte line-number array
// for diagnostics, and a constant pool addressed by 8-bit index.
package chunk

// OpCode identifies one bytecode instruction. Operands, where present, are
// either a single immediate byte or a 16-bit big-endian offset, as
// documented per opcode below.
type OpCode uint8

//nolint:revive
const (
	OpConstant     OpCode = iota // K           push constants[K]
	OpNil                       // -           push nil
	OpTrue                      // -           push true
	OpFalse                     // -           push false
	OpPop                       // -           drop top
	OpGetLocal                  // U8 slot     push frame.slots[slot]
	OpSetLocal                  // U8 slot     frame.slots[slot] = peek(0)
	OpGetGlobal                 // K name      push globals[name]
	OpDefineGlobal              // K name      globals[name] = pop()
	OpSetGlobal                 // K name      globals[name] = peek(0)
	OpGetUpvalue               // U8 idx      push *closure.upvalues[idx].location
	OpSetUpvalue               // U8 idx      *closure.upvalues[idx].location = peek(0)
	OpGetProperty              // K name      replace receiver with field or bound method
	OpSetProperty              // K name      instance.fields[name] = peek(0)
	OpGetSuper                 // K name      bind method on receiver, looked up on superclass
	OpEqual                    // -           pop two, push bool
	OpGreater                  // -           pop two numbers, push bool
	OpLess                     // -           pop two numbers, push bool
	OpAdd                      // -           pop two, push sum or concatenation
	OpSubtract                 // -           pop two numbers, push difference
	OpMultiply                 // -           pop two numbers, push product
	OpDivide                   // -           pop two numbers, push quotient
	OpNot                      // -           push isFalsey(pop())
	OpNegate                   // -           negate top number
	OpPrint                    // -           pop and write to stdout
	OpJump                     // U16 offset  ip += offset
	OpJumpIfFalse              // U16 offset  if isFalsey(peek(0)) ip += offset
	OpLoop                     // U16 offset  ip -= offset
	OpCall                     // U8 argc     call peek(argc) with argc args
	OpInvoke                   // K name, U8 argc   fused GET_PROPERTY + CALL
	OpSuperInvoke              // K name, U8 argc   fused GET_SUPER + CALL
	OpClosure                  // K fn, then 2 bytes per upvalue (isLocal, index)
	OpCloseUpvalue             // -           close the upvalue at stackTop-1, then pop
	OpReturn                   // -           pop result, pop frame, return to caller
	OpClass                    // K name      push new empty class
	OpInherit                  // -           copy superclass methods into subclass
	OpMethod                   // K name      bind closure at peek(0) as method on class at peek(1)
)

// VariableOperand marks an operand size that cannot be determined from the
// opcode alone (OpClosure: two bytes per upvalue beyond the function index).
const VariableOperand = -1

// operandSizes gives the number of immediate operand bytes following each
// opcode, or VariableOperand when it depends on runtime state (OpClosure
// only). Used by the disassembler and by anything walking a chunk's code
// byte-for-byte without executing it.
var operandSizes = [...]int{
	OpConstant:     1,
	OpNil:          0,
	OpTrue:         0,
	OpFalse:        0,
	OpPop:          0,
	OpGetLocal:     1,
	OpSetLocal:     1,
	OpGetGlobal:    1,
	OpDefineGlobal: 1,
	OpSetGlobal:    1,
	OpGetUpvalue:   1,
	OpSetUpvalue:   1,
	OpGetProperty:  1,
	OpSetProperty:  1,
	OpGetSuper:     1,
	OpEqual:        0,
	OpGreater:      0,
	OpLess:         0,
	OpAdd:          0,
	OpSubtract:     0,
	OpMultiply:     0,
	OpDivide:       0,
	OpNot:          0,
	OpNegate:       0,
	OpPrint:        0,
	OpJump:         2,
	OpJumpIfFalse:  2,
	OpLoop:         2,
	OpCall:         1,
	OpInvoke:       2,
	OpSuperInvoke:  2,
	OpClosure:      VariableOperand,
	OpCloseUpvalue: 0,
	OpReturn:       0,
	OpClass:        1,
	OpInherit:      0,
	OpMethod:       1,
}

// OperandSize returns the number of immediate operand bytes following op,
// or VariableOperand for OpClosure.
func (op OpCode) OperandSize() int { return operandSizes[op] }

var opcodeNames = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetUpvalue:   "OP_GET_UPVALUE",
	OpSetUpvalue:   "OP_SET_UPVALUE",
	OpGetProperty:  "OP_GET_PROPERTY",
	OpSetProperty:  "OP_SET_PROPERTY",
	OpGetSuper:     "OP_GET_SUPER",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpInvoke:       "OP_INVOKE",
	OpSuperInvoke:  "OP_SUPER_INVOKE",
	OpClosure:      "OP_CLOSURE",
	OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpReturn:       "OP_RETURN",
	OpClass:        "OP_CLASS",
	OpInherit:      "OP_INHERIT",
	OpMethod:       "OP_METHOD",
}

func (op OpCode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "OP_UNKNOWN"
}
