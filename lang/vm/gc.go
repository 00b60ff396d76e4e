package vm

import (
	"fmt"

	"github.com/mna/willow/lang/table"
	"github.com/mna/willow/lang/value"
)

// collectGarbage runs one precise mark-sweep cycle: mark every root and
// everything transitively reachable from it (the gray worklist), drop dead
// entries from the (weak) string intern table, then sweep the allocation
// list, freeing anything left unmarked. nextGC doubles bytesAllocated
// afterwards, so the next collection fires once the live set has roughly
// doubled again.
func (vm *VM) collectGarbage() {
	if vm.LogGC {
		fmt.Fprintln(vm.stderr(), "-- gc begin")
	}
	before := vm.bytesAllocated

	vm.markRoots()
	vm.traceReferences()
	table.RemoveWhite[*value.ObjString, *value.ObjString](vm.strings, func(k *value.ObjString) bool {
		return k.Marked()
	})
	vm.sweep()

	vm.nextGC = vm.bytesAllocated * 2
	if vm.nextGC < allocUnit {
		vm.nextGC = allocUnit
	}

	if vm.LogGC {
		fmt.Fprintf(vm.stderr(), "-- gc end: collected %d bytes (from %d to %d), next at %d\n",
			before-vm.bytesAllocated, before, vm.bytesAllocated, vm.nextGC)
	}
}

// markRoots marks every object directly reachable without tracing: the
// live operand stack, every active frame's closure, the open-upvalue list,
// the globals table, the cached "init" string, and the in-progress
// compiler chain's functions.
func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		vm.markObject(uv)
	}
	vm.globals.ForEach(func(k *value.ObjString, v value.Value) {
		vm.markObject(k)
		vm.markValue(v)
	})
	vm.markObject(vm.initString)
	for _, fn := range vm.compilerRoots {
		vm.markObject(fn)
	}
}

func (vm *VM) markValue(v value.Value) {
	if o, ok := v.(value.Obj); ok {
		vm.markObject(o)
	}
}

func (vm *VM) markObject(o value.Obj) {
	if o == nil || o.Marked() {
		return
	}
	o.Mark()
	vm.grayStack = append(vm.grayStack, o)
}

// traceReferences drains the gray worklist, blackening each object in turn
// (marking everything it references, which may enqueue more gray objects)
// until nothing gray remains.
func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		o := vm.grayStack[len(vm.grayStack)-1]
		vm.grayStack = vm.grayStack[:len(vm.grayStack)-1]
		vm.blackenObject(o)
	}
}

func (vm *VM) blackenObject(o value.Obj) {
	switch v := o.(type) {
	case *value.ObjString, *value.ObjNative:
		// no outgoing references
	case *value.ObjFunction:
		if v.Name != nil {
			vm.markObject(v.Name)
		}
		for _, c := range v.Chunk.Constants {
			if cv, ok := c.(value.Value); ok {
				vm.markValue(cv)
			}
		}
	case *value.ObjClosure:
		vm.markObject(v.Fn)
		for _, uv := range v.Upvalues {
			// nil while OP_CLOSURE is still capturing this closure's upvalues
			if uv != nil {
				vm.markObject(uv)
			}
		}
	case *value.ObjUpvalue:
		if !v.Open {
			vm.markValue(v.Closed)
		}
	case *value.ObjClass:
		vm.markObject(v.Name)
		v.Methods.ForEach(func(_ *value.ObjString, m value.Value) { vm.markValue(m) })
	case *value.ObjInstance:
		vm.markObject(v.Class)
		v.Fields.ForEach(func(_ *value.ObjString, f value.Value) { vm.markValue(f) })
	case *value.ObjBoundMethod:
		vm.markValue(v.Receiver)
		vm.markObject(v.Method)
	}
}

// sweep walks the allocation list, unlinking and discarding every object
// that survived marking unmarked, and clears the mark bit on survivors so
// the next cycle starts white.
func (vm *VM) sweep() {
	var prev value.Obj
	cur := vm.objects
	for cur != nil {
		if cur.Marked() {
			cur.Unmark()
			prev = cur
			cur = cur.Next()
			continue
		}
		unreached := cur
		cur = cur.Next()
		if prev == nil {
			vm.objects = cur
		} else {
			prev.SetNext(cur)
		}
		vm.bytesAllocated -= allocUnit
		_ = unreached // dropped: the last Go-level reference to it is gone here
	}
}
