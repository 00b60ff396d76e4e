package value

import (
	"fmt"

	"github.com/mna/willow/lang/table"
)

// MethodTable is the hash table mapping method (or field) names to values,
// shared by ObjClass (method name -> ObjClosure, as Value) and ObjInstance
// (field name -> Value).
type MethodTable = table.Table[*ObjString, Value]

// NewMethodTable returns an empty method/field table keyed by interned
// string identity.
func NewMethodTable() *MethodTable {
	return table.New[*ObjString, Value](
		func(k *ObjString) uint32 { return k.Hash() },
		func(a, b *ObjString) bool { return a == b },
	)
}

// ObjClass is a class: a name and its method table. Single inheritance is
// realized at OP_INHERIT time by copying the superclass's method table into
// the subclass's (see MethodTable.AddAll), so method lookup at a call site
// never needs to walk a superclass chain.
type ObjClass struct {
	Header
	Name    *ObjString
	Methods *MethodTable
}

var _ Obj = (*ObjClass)(nil)

func NewClass(name *ObjString) *ObjClass {
	return &ObjClass{Header: Header{Kind: KindClass}, Name: name, Methods: NewMethodTable()}
}

func (c *ObjClass) String() string { return c.Name.Chars() }
func (c *ObjClass) Truthy() bool   { return true }

// ObjInstance is an instance of a class: the class it was constructed from,
// and its own field table.
type ObjInstance struct {
	Header
	Class  *ObjClass
	Fields *MethodTable
}

var _ Obj = (*ObjInstance)(nil)

func NewInstance(class *ObjClass) *ObjInstance {
	return &ObjInstance{Header: Header{Kind: KindInstance}, Class: class, Fields: NewMethodTable()}
}

func (i *ObjInstance) String() string { return fmt.Sprintf("%s instance", i.Class.Name.Chars()) }
func (i *ObjInstance) Truthy() bool   { return true }

// ObjBoundMethod pairs a receiver instance with one of its class's methods,
// produced when a method is read off an instance as a value (e.g. assigned
// to a variable) rather than called immediately via OP_INVOKE.
type ObjBoundMethod struct {
	Header
	Receiver Value
	Method   *ObjClosure
}

var _ Obj = (*ObjBoundMethod)(nil)

func NewBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	return &ObjBoundMethod{Header: Header{Kind: KindBoundMethod}, Receiver: receiver, Method: method}
}

func (b *ObjBoundMethod) String() string { return b.Method.String() }
func (b *ObjBoundMethod) Truthy() bool   { return true }
