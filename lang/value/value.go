// Package value implements the runtime value model: the tagged union of
// nil, boolean, number and heap-object values, and the heap object
// hierarchy shared by the compiler and the VM.
package value

import "fmt"

// Value is implemented by every willow runtime value: Nil, Bool, Number,
// and every heap type satisfying Obj.
type Value interface {
	// String returns the value's textual representation, as printed by the
	// "print" statement or shown in error messages.
	String() string
	// Truthy reports whether the value is truthy. Only Nil and Bool(false)
	// are falsey; everything else, including Number(0), is truthy.
	Truthy() bool
}

// Nil is the type of the single nil value.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Truthy() bool   { return false }

// NilValue is the canonical nil value.
var NilValue = Nil{}

// Bool is the type of boolean values.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b Bool) Truthy() bool { return bool(b) }

// Number is the type of numeric values: IEEE-754 double precision floats.
type Number float64

func (n Number) String() string { return formatNumber(float64(n)) }
func (Number) Truthy() bool     { return true }

func formatNumber(f float64) string {
	// Mirrors the common "print integers without a trailing .0" convention
	// of small dynamic-language VMs while still round-tripping fractional
	// values exactly.
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// Equal reports whether a and b are equal under willow's "==" semantics:
// values of different dynamic types are never equal; object values compare
// by reference identity (which, thanks to string interning, also yields
// correct by-content equality for strings).
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && x == y
	case Obj:
		y, ok := b.(Obj)
		return ok && x == y
	default:
		return false
	}
}

// TypeName returns a short, human-readable name for v's dynamic type, used
// in runtime error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case Nil:
		return "nil"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case *ObjString:
		return "string"
	case *ObjFunction:
		return "function"
	case *ObjNative:
		return "native function"
	case *ObjClosure:
		return "function"
	case *ObjUpvalue:
		return "upvalue"
	case *ObjClass:
		return "class"
	case *ObjInstance:
		return "instance"
	case *ObjBoundMethod:
		return "method"
	default:
		return "value"
	}
}
