// Package vm implements the stack-based interpreter: call frames windowed
// into one shared operand stack, globals, the string intern table, the
// open-upvalue list, the native-function registry, and the mark-sweep
// garbage collector (see gc.go).
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/mna/willow/lang/compiler"
	"github.com/mna/willow/lang/table"
	"github.com/mna/willow/lang/value"
)

// Bounded resources, per the language's fixed limits: at most FramesMax
// nested calls, and an operand stack sized to the worst case of every frame
// using its full share.
const (
	FramesMax = 64
	StackMax  = FramesMax * 256
)

// InterpretResult is the outcome of one call to Interpret.
type InterpretResult uint8

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// CallFrame is the activation record of one in-flight function call: its
// closure, instruction pointer (an offset into the closure's chunk code),
// and the base slot of its window into the shared operand stack.
type CallFrame struct {
	closure   *value.ObjClosure
	ip        int
	slotsBase int
}

// VM is a single-threaded, synchronous bytecode interpreter. The zero value
// is not usable; construct one with New.
type VM struct {
	// Stdout and Stderr receive OP_PRINT output and diagnostics,
	// respectively. If nil, os.Stdout/os.Stderr are used.
	Stdout io.Writer
	Stderr io.Writer

	// StressGC forces a collection on every allocation, to shake out
	// marking bugs that a normal allocation cadence would rarely trigger.
	StressGC bool
	// LogGC writes a line to Stderr at the start and end of every
	// collection, with the bytes reclaimed and the new threshold.
	LogGC bool
	// Debug disassembles and prints the operand stack before every
	// instruction the VM executes, writing to Stderr.
	Debug bool

	frames     [FramesMax]CallFrame
	frameCount int

	stack    [StackMax]value.Value
	stackTop int

	globals *value.MethodTable
	strings *table.Table[*value.ObjString, *value.ObjString]

	openUpvalues *value.ObjUpvalue

	objects        value.Obj
	bytesAllocated int64
	nextGC         int64

	initString *value.ObjString

	compilerRoots []*value.ObjFunction
	grayStack     []value.Obj
}

var _ compiler.Heap = (*VM)(nil)

// New returns a ready-to-use VM with an empty global environment and the
// bundled native functions installed.
func New() *VM {
	vm := &VM{nextGC: 1 << 20}
	vm.globals = value.NewMethodTable()
	vm.strings = table.New[*value.ObjString, *value.ObjString](
		func(k *value.ObjString) uint32 { return k.Hash() },
		func(a, b *value.ObjString) bool { return a == b },
	)
	vm.initString = vm.InternString("init")
	vm.defineNative("clock", nativeClock)
	return vm
}

func (vm *VM) stdout() io.Writer {
	if vm.Stdout != nil {
		return vm.Stdout
	}
	return os.Stdout
}

func (vm *VM) stderr() io.Writer {
	if vm.Stderr != nil {
		return vm.Stderr
	}
	return os.Stderr
}

// Interpret compiles and runs source against this VM's existing globals and
// string table (so a REPL can call Interpret repeatedly, one line at a
// time, against persistent state).
func (vm *VM) Interpret(source string) InterpretResult {
	fn, errs := compiler.Compile(vm, source)
	vm.SetCompilerRoots(nil)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(vm.stderr(), e)
		}
		return InterpretCompileError
	}

	vm.push(fn)
	closure := value.NewClosure(fn)
	vm.registerObject(closure)
	vm.pop()
	vm.push(closure)

	if err := vm.call(closure, 0); err != nil {
		fmt.Fprintln(vm.stderr(), err)
		return InterpretRuntimeError
	}
	return vm.run()
}

// --- compiler.Heap -------------------------------------------------

// InternString returns the canonical *ObjString for s, allocating and
// interning a new one on first use.
func (vm *VM) InternString(s string) *value.ObjString {
	hash := value.FNV1a(s)
	if existing, ok := table.FindString[*value.ObjString, *value.ObjString](vm.strings, s, hash); ok {
		return existing
	}
	o := value.NewString(s)
	vm.registerObject(o)
	// Root o on the stack across the Set call: inserting into vm.strings may
	// grow it, and growth performs no allocation of its own here, but this
	// mirrors the rooting discipline required wherever a fresh object is
	// exposed to further allocation before it is otherwise reachable.
	vm.push(o)
	vm.strings.Set(o, o)
	vm.pop()
	return o
}

// NewFunction allocates an empty ObjFunction for the compiler to emit code
// into.
func (vm *VM) NewFunction() *value.ObjFunction {
	fn := value.NewFunction()
	vm.registerObject(fn)
	return fn
}

// SetCompilerRoots replaces the set of in-progress compiler functions the
// collector must treat as roots.
func (vm *VM) SetCompilerRoots(fns []*value.ObjFunction) { vm.compilerRoots = fns }

// --- operand stack -------------------------------------------------

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value { return vm.stack[vm.stackTop-1-distance] }

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) currentFrame() *CallFrame { return &vm.frames[vm.frameCount-1] }

// --- allocation ------------------------------------------------------

// allocUnit is the nominal per-object cost charged against bytesAllocated.
// Go's own runtime owns real memory accounting; this unit only needs to be
// positive and roughly proportional to allocation count so nextGC's
// doubling growth trigger (spec ยง4.8) fires at a sensible cadence.
const allocUnit = 64

// registerObject links a freshly allocated object onto the VM's allocation
// list and charges it against the GC's growth trigger, collecting first if
// over threshold (or always, under StressGC).
func (vm *VM) registerObject(o value.Obj) {
	vm.bytesAllocated += allocUnit
	if vm.StressGC || vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}

	o.SetNext(vm.objects)
	vm.objects = o
}
