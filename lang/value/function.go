package value

import (
	"fmt"

	"github.com/mna/willow/lang/chunk"
)

// ObjFunction is a compiled function: its arity, how many upvalues its
// closures must capture, its own code chunk, and an optional name (nil for
// the implicit top-level script function).
type ObjFunction struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        *chunk.Chunk
	Name         *ObjString
}

var _ Obj = (*ObjFunction)(nil)

// NewFunction returns an empty function ready for the compiler to emit
// code into.
func NewFunction() *ObjFunction {
	return &ObjFunction{Header: Header{Kind: KindFunction}, Chunk: &chunk.Chunk{}}
}

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars())
}
func (f *ObjFunction) Truthy() bool { return true }

// NativeFn is the signature every native (host-provided) function must
// implement: it receives a contiguous view of its arguments and returns a
// single value, or an error to be raised as a runtime error.
type NativeFn func(args []Value) (Value, error)

// ObjNative wraps a host-provided function so it can be called like any
// other willow value.
type ObjNative struct {
	Header
	Name string
	Fn   NativeFn
}

var _ Obj = (*ObjNative)(nil)

func NewNative(name string, fn NativeFn) *ObjNative {
	return &ObjNative{Header: Header{Kind: KindNative}, Name: name, Fn: fn}
}

func (n *ObjNative) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }
func (n *ObjNative) Truthy() bool   { return true }

// ObjUpvalue is the indirection a closure uses to read and write a variable
// that outlives (or may outlive) the frame that declared it. While the
// declaring frame is still live, Open is true and Slot names its index in
// the VM's operand stack; the VM itself reads/writes vm.stack[Slot] on its
// behalf, since the upvalue has no reference back to the VM. Once that
// frame returns, Close copies the current value into Closed and flips Open
// to false, preserving the upvalue's identity across the transition. Next
// threads this upvalue into the VM's open-upvalue list, kept strictly
// sorted by descending Slot so the VM can find or insert an upvalue for a
// given slot in a single pass.
type ObjUpvalue struct {
	Header
	Slot   int
	Open   bool
	Closed Value
	Next   *ObjUpvalue
}

var _ Obj = (*ObjUpvalue)(nil)

// NewUpvalue returns a new open upvalue referring to the given stack slot.
func NewUpvalue(slot int) *ObjUpvalue {
	return &ObjUpvalue{Header: Header{Kind: KindUpvalue}, Slot: slot, Open: true}
}

func (u *ObjUpvalue) String() string { return "<upvalue>" }
func (u *ObjUpvalue) Truthy() bool   { return true }

// Close detaches the upvalue from the stack, storing current (the value at
// its stack slot, as last seen by the VM) as its own value from now on.
func (u *ObjUpvalue) Close(current Value) {
	u.Closed = current
	u.Open = false
}

// ObjClosure pairs a compiled function with the upvalues it captured at the
// point its OP_CLOSURE instruction ran.
type ObjClosure struct {
	Header
	Fn       *ObjFunction
	Upvalues []*ObjUpvalue
}

var _ Obj = (*ObjClosure)(nil)

func NewClosure(fn *ObjFunction) *ObjClosure {
	return &ObjClosure{
		Header:   Header{Kind: KindClosure},
		Fn:       fn,
		Upvalues: make([]*ObjUpvalue, fn.UpvalueCount),
	}
}

func (c *ObjClosure) String() string { return c.Fn.String() }
func (c *ObjClosure) Truthy() bool   { return true }

// Name returns the closure's display name, "script" for the implicit
// top-level function.
func (c *ObjClosure) Name() string {
	if c.Fn.Name == nil {
		return "script"
	}
	return c.Fn.Name.Chars()
}
