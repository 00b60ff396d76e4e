package vm

import (
	"fmt"

	"github.com/mna/willow/lang/value"
)

// callValue dispatches a call to callee with argc arguments already sitting
// on top of the stack (callee itself at stack[top-argc-1]), per the calling
// convention for each callable kind.
func (vm *VM) callValue(callee value.Value, argc int) error {
	switch c := callee.(type) {
	case *value.ObjClosure:
		return vm.call(c, argc)
	case *value.ObjNative:
		args := vm.stack[vm.stackTop-argc : vm.stackTop]
		result, err := c.Fn(args)
		if err != nil {
			return err
		}
		vm.stackTop -= argc + 1
		vm.push(result)
		return nil
	case *value.ObjClass:
		inst := value.NewInstance(c)
		vm.registerObject(inst)
		vm.stack[vm.stackTop-argc-1] = inst
		if initFn, ok := c.Methods.Get(vm.initString); ok {
			return vm.call(initFn.(*value.ObjClosure), argc)
		}
		if argc != 0 {
			return fmt.Errorf("expected 0 arguments but got %d", argc)
		}
		return nil
	case *value.ObjBoundMethod:
		vm.stack[vm.stackTop-argc-1] = c.Receiver
		return vm.call(c.Method, argc)
	default:
		return fmt.Errorf("can only call functions and classes")
	}
}

// call pushes a new frame for closure, after checking arity and the frame
// bound.
func (vm *VM) call(closure *value.ObjClosure, argc int) error {
	if argc != closure.Fn.Arity {
		return fmt.Errorf("expected %d arguments but got %d", closure.Fn.Arity, argc)
	}
	if vm.frameCount == FramesMax {
		return fmt.Errorf("stack overflow")
	}
	fr := &vm.frames[vm.frameCount]
	fr.closure = closure
	fr.ip = 0
	fr.slotsBase = vm.stackTop - argc - 1
	vm.frameCount++
	return nil
}

// invoke fuses a property lookup and call for `receiver.name(args)`: if the
// receiver has name as an own field, that value becomes the callee (falling
// through to the generic calling convention); otherwise the method is
// called directly off the class without allocating an intermediate
// ObjBoundMethod.
func (vm *VM) invoke(name *value.ObjString, argc int) error {
	receiver := vm.peek(argc)
	inst, ok := receiver.(*value.ObjInstance)
	if !ok {
		return fmt.Errorf("only instances have methods")
	}
	if v, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argc-1] = v
		return vm.callValue(v, argc)
	}
	return vm.invokeFromClass(inst.Class, name, argc)
}

func (vm *VM) invokeFromClass(class *value.ObjClass, name *value.ObjString, argc int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return fmt.Errorf("undefined property '%s'", name.Chars())
	}
	return vm.call(method.(*value.ObjClosure), argc)
}

// bindMethod looks up name on class, binds it to the receiver currently on
// top of the stack, and replaces that receiver with the resulting
// ObjBoundMethod.
func (vm *VM) bindMethod(class *value.ObjClass, name *value.ObjString) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return fmt.Errorf("undefined property '%s'", name.Chars())
	}
	bound := value.NewBoundMethod(vm.peek(0), method.(*value.ObjClosure))
	vm.registerObject(bound)
	vm.pop()
	vm.push(bound)
	return nil
}

// captureUpvalue returns the existing open upvalue for slot if one is
// already on the VM's open-upvalue list, otherwise allocates and splices in
// a new one. The list is kept strictly sorted by descending slot.
func (vm *VM) captureUpvalue(slot int) *value.ObjUpvalue {
	var prev *value.ObjUpvalue
	cur := vm.openUpvalues
	for cur != nil && cur.Slot > slot {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.Slot == slot {
		return cur
	}

	uv := value.NewUpvalue(slot)
	vm.registerObject(uv)
	uv.Next = cur
	if prev == nil {
		vm.openUpvalues = uv
	} else {
		prev.Next = uv
	}
	return uv
}

// closeUpvalues closes every open upvalue at or above slot from, copying
// each one's current stack value into its own storage and removing it from
// the open list, used both for a single slot (OP_CLOSE_UPVALUE) and for an
// entire returning frame's slots (OP_RETURN).
func (vm *VM) closeUpvalues(from int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot >= from {
		uv := vm.openUpvalues
		uv.Close(vm.stack[uv.Slot])
		vm.openUpvalues = uv.Next
	}
}
