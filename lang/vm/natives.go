package vm

import (
	"time"

	"github.com/mna/willow/lang/value"
)

var processStart = time.Now()

// nativeClock returns the number of seconds elapsed since the process
// (really, this package's first use) started, as the bundled example
// native function.
func nativeClock(args []value.Value) (value.Value, error) {
	return value.Number(time.Since(processStart).Seconds()), nil
}

// defineNative installs a host function under name in the global table,
// rooting it on the stack across the allocation per the allocation-
// reentrancy discipline.
func (vm *VM) defineNative(name string, fn value.NativeFn) {
	nameStr := vm.InternString(name)
	vm.push(nameStr)
	native := value.NewNative(name, fn)
	vm.registerObject(native)
	vm.push(native)
	vm.globals.Set(nameStr, native)
	vm.pop()
	vm.pop()
}
