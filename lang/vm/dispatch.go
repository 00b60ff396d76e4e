package vm

import (
	"fmt"

	"github.com/mna/willow/lang/chunk"
	"github.com/mna/willow/lang/debug"
	"github.com/mna/willow/lang/value"
)

func (vm *VM) readByte(fr *CallFrame) byte {
	b := fr.closure.Fn.Chunk.Code[fr.ip]
	fr.ip++
	return b
}

func (vm *VM) readShort(fr *CallFrame) uint16 {
	hi := vm.readByte(fr)
	lo := vm.readByte(fr)
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant(fr *CallFrame) value.Value {
	return fr.closure.Fn.Chunk.Constants[vm.readByte(fr)]
}

func (vm *VM) readString(fr *CallFrame) *value.ObjString {
	return vm.readConstant(fr).(*value.ObjString)
}

// run executes frames[0:frameCount] to completion: either every frame
// returns (OK) or a runtime error unwinds the stack (RuntimeError).
func (vm *VM) run() InterpretResult {
	fr := vm.currentFrame()

	for {
		if vm.Debug {
			vm.traceExecution(fr)
		}
		op := chunk.OpCode(vm.readByte(fr))
		switch op {
		case chunk.OpConstant:
			vm.push(vm.readConstant(fr))

		case chunk.OpNil:
			vm.push(value.NilValue)
		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))
		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			slot := vm.readByte(fr)
			vm.push(vm.stack[fr.slotsBase+int(slot)])
		case chunk.OpSetLocal:
			slot := vm.readByte(fr)
			vm.stack[fr.slotsBase+int(slot)] = vm.peek(0)

		case chunk.OpGetGlobal:
			name := vm.readString(fr)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("undefined variable '%s'", name.Chars())
			}
			vm.push(v)
		case chunk.OpDefineGlobal:
			name := vm.readString(fr)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case chunk.OpSetGlobal:
			name := vm.readString(fr)
			if isNew := vm.globals.Set(name, vm.peek(0)); isNew {
				vm.globals.Delete(name)
				return vm.runtimeError("undefined variable '%s'", name.Chars())
			}

		case chunk.OpGetUpvalue:
			idx := vm.readByte(fr)
			vm.push(vm.readUpvalue(fr.closure.Upvalues[idx]))
		case chunk.OpSetUpvalue:
			idx := vm.readByte(fr)
			vm.writeUpvalue(fr.closure.Upvalues[idx], vm.peek(0))

		case chunk.OpGetProperty:
			if res, ok := vm.getProperty(fr); !ok {
				return res
			}
		case chunk.OpSetProperty:
			if res, ok := vm.setProperty(fr); !ok {
				return res
			}
		case chunk.OpGetSuper:
			name := vm.readString(fr)
			super := vm.pop().(*value.ObjClass)
			if err := vm.bindMethod(super, name); err != nil {
				return vm.runtimeErrorf(err)
			}

		case chunk.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case chunk.OpGreater, chunk.OpLess, chunk.OpAdd, chunk.OpSubtract, chunk.OpMultiply, chunk.OpDivide:
			if res, ok := vm.binaryOp(op); !ok {
				return res
			}

		case chunk.OpNot:
			vm.push(value.Bool(isFalsey(vm.pop())))
		case chunk.OpNegate:
			n, ok := vm.peek(0).(value.Number)
			if !ok {
				return vm.runtimeError("operand must be a number")
			}
			vm.pop()
			vm.push(-n)

		case chunk.OpPrint:
			fmt.Fprintln(vm.stdout(), vm.pop().String())

		case chunk.OpJump:
			offset := vm.readShort(fr)
			fr.ip += int(offset)
		case chunk.OpJumpIfFalse:
			offset := vm.readShort(fr)
			if isFalsey(vm.peek(0)) {
				fr.ip += int(offset)
			}
		case chunk.OpLoop:
			offset := vm.readShort(fr)
			fr.ip -= int(offset)

		case chunk.OpCall:
			argc := int(vm.readByte(fr))
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return vm.runtimeErrorf(err)
			}
			fr = vm.currentFrame()

		case chunk.OpInvoke:
			name := vm.readString(fr)
			argc := int(vm.readByte(fr))
			if err := vm.invoke(name, argc); err != nil {
				return vm.runtimeErrorf(err)
			}
			fr = vm.currentFrame()

		case chunk.OpSuperInvoke:
			name := vm.readString(fr)
			argc := int(vm.readByte(fr))
			super := vm.pop().(*value.ObjClass)
			if err := vm.invokeFromClass(super, name, argc); err != nil {
				return vm.runtimeErrorf(err)
			}
			fr = vm.currentFrame()

		case chunk.OpClosure:
			fn := vm.readConstant(fr).(*value.ObjFunction)
			closure := value.NewClosure(fn)
			vm.registerObject(closure)
			vm.push(closure) // root before captureUpvalue below can allocate and collect
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(fr)
				index := vm.readByte(fr)
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(fr.slotsBase + int(index))
				} else {
					closure.Upvalues[i] = fr.closure.Upvalues[index]
				}
			}

		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(fr.slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return InterpretOK
			}
			vm.stackTop = fr.slotsBase
			vm.push(result)
			fr = vm.currentFrame()

		case chunk.OpClass:
			name := vm.readString(fr)
			class := value.NewClass(name)
			vm.registerObject(class)
			vm.push(class)

		case chunk.OpInherit:
			superVal := vm.peek(1)
			super, ok := superVal.(*value.ObjClass)
			if !ok {
				return vm.runtimeError("superclass must be a class")
			}
			sub := vm.peek(0).(*value.ObjClass)
			sub.Methods.AddAll(super.Methods)
			vm.pop() // the subclass; superclass (peek(0) now) stays as the `super` local

		case chunk.OpMethod:
			name := vm.readString(fr)
			vm.defineMethod(name)

		default:
			return vm.runtimeError("unknown opcode %d", op)
		}
	}
}

func isFalsey(v value.Value) bool { return !v.Truthy() }

func (vm *VM) binaryOp(op chunk.OpCode) (InterpretResult, bool) {
	if op == chunk.OpAdd {
		bs, bIsStr := vm.peek(0).(*value.ObjString)
		as, aIsStr := vm.peek(1).(*value.ObjString)
		if aIsStr && bIsStr {
			vm.pop()
			vm.pop()
			vm.push(vm.InternString(as.Chars() + bs.Chars()))
			return InterpretOK, true
		}
	}

	bn, bOK := vm.peek(0).(value.Number)
	an, aOK := vm.peek(1).(value.Number)
	if !bOK || !aOK {
		msg := "operands must be two numbers or two strings"
		if op != chunk.OpAdd {
			msg = "operands must be numbers"
		}
		return vm.runtimeError(msg), false
	}
	vm.pop()
	vm.pop()

	switch op {
	case chunk.OpGreater:
		vm.push(value.Bool(an > bn))
	case chunk.OpLess:
		vm.push(value.Bool(an < bn))
	case chunk.OpAdd:
		vm.push(an + bn)
	case chunk.OpSubtract:
		vm.push(an - bn)
	case chunk.OpMultiply:
		vm.push(an * bn)
	case chunk.OpDivide:
		vm.push(an / bn)
	}
	return InterpretOK, true
}

func (vm *VM) getProperty(fr *CallFrame) (InterpretResult, bool) {
	name := vm.readString(fr)
	inst, ok := vm.peek(0).(*value.ObjInstance)
	if !ok {
		return vm.runtimeError("only instances have properties"), false
	}
	if v, ok := inst.Fields.Get(name); ok {
		vm.pop()
		vm.push(v)
		return InterpretOK, true
	}
	if err := vm.bindMethod(inst.Class, name); err != nil {
		return vm.runtimeErrorf(err), false
	}
	return InterpretOK, true
}

func (vm *VM) setProperty(fr *CallFrame) (InterpretResult, bool) {
	name := vm.readString(fr)
	inst, ok := vm.peek(1).(*value.ObjInstance)
	if !ok {
		return vm.runtimeError("only instances have fields"), false
	}
	v := vm.pop()
	inst.Fields.Set(name, v)
	vm.pop() // the instance
	vm.push(v)
	return InterpretOK, true
}

func (vm *VM) defineMethod(name *value.ObjString) {
	method := vm.peek(0).(*value.ObjClosure)
	class := vm.peek(1).(*value.ObjClass)
	class.Methods.Set(name, method)
	vm.pop()
}

func (vm *VM) readUpvalue(uv *value.ObjUpvalue) value.Value {
	if uv.Open {
		return vm.stack[uv.Slot]
	}
	return uv.Closed
}

func (vm *VM) writeUpvalue(uv *value.ObjUpvalue, v value.Value) {
	if uv.Open {
		vm.stack[uv.Slot] = v
	} else {
		uv.Closed = v
	}
}

// traceExecution prints the live operand stack and disassembles the
// instruction about to run, mirroring clox's DEBUG_TRACE_EXECUTION mode.
func (vm *VM) traceExecution(fr *CallFrame) {
	w := vm.stderr()
	fmt.Fprint(w, "          ")
	for i := 0; i < vm.stackTop; i++ {
		fmt.Fprintf(w, "[ %s ]", vm.stack[i].String())
	}
	fmt.Fprintln(w)
	debug.DisassembleInstruction(w, fr.closure.Fn.Chunk, fr.ip)
}
