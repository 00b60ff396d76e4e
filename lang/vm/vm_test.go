package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mna/willow/lang/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, source string) (string, string, vm.InterpretResult) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	v := vm.New()
	v.Stdout = &stdout
	v.Stderr = &stderr
	res := v.Interpret(source)
	return stdout.String(), stderr.String(), res
}

func TestArithmeticPrecedence(t *testing.T) {
	out, errOut, res := run(t, `print 1 + 2 * 3;`)
	require.Equal(t, vm.InterpretOK, res, errOut)
	assert.Equal(t, "7\n", out)
}

func TestGlobalsAndStringConcatenation(t *testing.T) {
	out, errOut, res := run(t, `
		var a = "hi";
		var b = " there";
		print a + b;
	`)
	require.Equal(t, vm.InterpretOK, res, errOut)
	assert.Equal(t, "hi there\n", out)
}

func TestLexicalScopeShadowing(t *testing.T) {
	out, errOut, res := run(t, `
		var x = 1;
		{
			var x = 2;
			print x;
		}
		print x;
	`)
	require.Equal(t, vm.InterpretOK, res, errOut)
	assert.Equal(t, "2\n1\n", out)
}

func TestClosureCapturesEnclosingLocal(t *testing.T) {
	out, errOut, res := run(t, `
		fun makeCounter() {
			var count = 0;
			fun count_() {
				count = count + 1;
				print count;
			}
			return count_;
		}
		var counter = makeCounter();
		counter();
		counter();
		counter();
	`)
	require.Equal(t, vm.InterpretOK, res, errOut)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestClassInitAndMethod(t *testing.T) {
	out, errOut, res := run(t, `
		class A {
			init(n) {
				this.n = n;
			}
			show() {
				print this.n;
			}
		}
		A(42).show();
	`)
	require.Equal(t, vm.InterpretOK, res, errOut)
	assert.Equal(t, "42\n", out)
}

func TestInheritanceAndSuperCall(t *testing.T) {
	out, errOut, res := run(t, `
		class A {
			speak() {
				print "A";
			}
		}
		class B < A {
			speak() {
				super.speak();
				print "B";
			}
		}
		B().speak();
	`)
	require.Equal(t, vm.InterpretOK, res, errOut)
	assert.Equal(t, "A\nB\n", out)
}

func TestUndefinedGlobalReadIsRuntimeError(t *testing.T) {
	_, errOut, res := run(t, `print nope;`)
	assert.Equal(t, vm.InterpretRuntimeError, res)
	assert.Contains(t, errOut, "undefined variable")
}

func TestSelfReferentialLocalVarInitializerIsCompileError(t *testing.T) {
	_, errOut, res := run(t, `{ var a = a; }`)
	assert.Equal(t, vm.InterpretCompileError, res)
	assert.Contains(t, errOut, "own initializer")
}

func TestSelfReferentialGlobalVarInitializerIsRuntimeError(t *testing.T) {
	_, errOut, res := run(t, `var a = a;`)
	assert.Equal(t, vm.InterpretRuntimeError, res)
	assert.Contains(t, errOut, "undefined variable")
}

func TestTopLevelReturnIsCompileError(t *testing.T) {
	_, _, res := run(t, `return 1;`)
	assert.Equal(t, vm.InterpretCompileError, res)
}

func TestCallingANumberIsRuntimeError(t *testing.T) {
	_, errOut, res := run(t, `var n = 1; n();`)
	assert.Equal(t, vm.InterpretRuntimeError, res)
	assert.True(t, strings.Contains(errOut, "can only call"))
}

func TestNativeClockIsCallable(t *testing.T) {
	out, errOut, res := run(t, `print clock() >= 0;`)
	require.Equal(t, vm.InterpretOK, res, errOut)
	assert.Equal(t, "true\n", out)
}

func TestReplPersistsGlobalsAcrossCalls(t *testing.T) {
	var stdout bytes.Buffer
	v := vm.New()
	v.Stdout = &stdout

	require.Equal(t, vm.InterpretOK, v.Interpret(`var count = 0;`))
	require.Equal(t, vm.InterpretOK, v.Interpret(`count = count + 1; print count;`))
	require.Equal(t, vm.InterpretOK, v.Interpret(`count = count + 1; print count;`))
	assert.Equal(t, "1\n2\n", stdout.String())
}

func TestDebugTraceWritesDisassemblyToStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	v := vm.New()
	v.Stdout = &stdout
	v.Stderr = &stderr
	v.Debug = true

	res := v.Interpret(`print 1 + 2;`)
	require.Equal(t, vm.InterpretOK, res)
	assert.Contains(t, stderr.String(), "OP_ADD")
	assert.Contains(t, stderr.String(), "OP_PRINT")
}

func TestStressGCDoesNotCorruptLiveState(t *testing.T) {
	var stdout bytes.Buffer
	v := vm.New()
	v.Stdout = &stdout
	v.StressGC = true

	res := v.Interpret(`
		class Node {
			init(v) {
				this.v = v;
			}
		}
		var total = 0;
		for (var i = 0; i < 50; i = i + 1) {
			var n = Node(i);
			total = total + n.v;
		}
		print total;
	`)
	require.Equal(t, vm.InterpretOK, res)
	assert.Equal(t, "1225\n", stdout.String())
}

func TestStressGCDoesNotCorruptClosuresAndUpvalues(t *testing.T) {
	var stdout bytes.Buffer
	v := vm.New()
	v.Stdout = &stdout
	v.StressGC = true

	res := v.Interpret(`
		fun makeCounter() {
			var count = 0;
			fun count_() {
				count = count + 1;
				return count;
			}
			return count_;
		}
		var total = 0;
		for (var i = 0; i < 50; i = i + 1) {
			var counter = makeCounter();
			total = total + counter() + counter() + counter();
		}
		print total;
	`)
	require.Equal(t, vm.InterpretOK, res)
	assert.Equal(t, "300\n", stdout.String())
}
