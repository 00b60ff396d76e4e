// Package compiler implements the single-pass Pratt compiler: it drives the
// scanner token by token and emits bytecode directly into a chunk as it
// parses, with no intervening AST. Lexical scope, local/upvalue resolution
// and jump patching are all performed inline during this single pass.
package compiler

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/mna/willow/lang/chunk"
	"github.com/mna/willow/lang/scanner"
	"github.com/mna/willow/lang/token"
	"github.com/mna/willow/lang/value"
)

// Heap is the subset of the VM's object-allocation surface the compiler
// needs. Compiling a program allocates strings (for identifiers and
// literals) and ObjFunction values, and those allocations can themselves
// trigger a garbage collection before the VM's own roots (stack, frames,
// globals) exist; SetCompilerRoots lets the in-progress compiler chain be
// found by that collection.
type Heap interface {
	InternString(s string) *value.ObjString
	NewFunction() *value.ObjFunction
	SetCompilerRoots(fns []*value.ObjFunction)
}

// FuncType distinguishes the four contexts a compiled function body can
// appear in, each with slightly different slot-0 and return semantics.
type FuncType uint8

const (
	FuncScript FuncType = iota
	FuncFunction
	FuncMethod
	FuncInitializer
)

// maxLocals and maxUpvalues mirror the 8-bit operand width of
// OP_GET_LOCAL/OP_GET_UPVALUE: a function may not declare more of either.
const (
	maxLocals   = 256
	maxUpvalues = 256
	maxArgs     = 255
)

type local struct {
	name       string
	depth      int // -1 while the initializer of this local is being compiled
	isCaptured bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// fnCompiler is the per-function compilation context, linked to the
// compiler of its lexically enclosing function (nil at the top level).
type fnCompiler struct {
	enclosing *fnCompiler

	fn     *value.ObjFunction
	fnType FuncType

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
}

// classState tracks the class currently being compiled, linked to any
// enclosing class (for nested class declarations), so `this` and `super`
// can be validated and `super.name` knows whether a superclass scope is in
// effect.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// parser holds all state for one call to Compile: the token stream, the
// chain of function compilers, panic-mode bookkeeping, and the errors
// accumulated so far.
type parser struct {
	heap Heap
	sc   *scanner.Scanner

	previous token.Token
	current  token.Token

	panicMode bool
	errs      []error

	cur   *fnCompiler
	class *classState
}

// Compile compiles source into a top-level ObjFunction of type FuncScript,
// or returns the accumulated compile errors if any statement failed to
// parse. A non-nil, non-empty error slice means compilation failed; the
// returned function is nil in that case.
func Compile(heap Heap, source string) (*value.ObjFunction, []error) {
	p := &parser{heap: heap, sc: scanner.New(source)}
	p.beginFunction(FuncScript, "")

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}

	fn := p.endFunction()
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return fn, nil
}

func (p *parser) beginFunction(fnType FuncType, name string) {
	fc := &fnCompiler{enclosing: p.cur, fn: p.heap.NewFunction(), fnType: fnType}
	// Slot 0 is reserved: the receiver in methods/initializers, the callee
	// itself (unnamed, inaccessible) everywhere else.
	slot0 := local{depth: 0}
	if fnType != FuncFunction && fnType != FuncScript {
		slot0.name = "this"
	}
	fc.locals = append(fc.locals, slot0)
	p.cur = fc
	p.publishCompilerRoots()
	if name != "" {
		fc.fn.Name = p.heap.InternString(name)
	}
}

// endFunction closes out the current function compiler: emits the implicit
// trailing return, pops it off the chain, and returns the finished
// ObjFunction.
func (p *parser) endFunction() *value.ObjFunction {
	p.emitReturn()
	fn := p.cur.fn
	p.cur = p.cur.enclosing
	p.publishCompilerRoots()
	return fn
}

// publishCompilerRoots walks the current function-compiler chain and hands
// the live set of in-progress functions to the heap, so a GC triggered by
// an allocation mid-compile can still find them.
func (p *parser) publishCompilerRoots() {
	var fns []*value.ObjFunction
	for fc := p.cur; fc != nil; fc = fc.enclosing {
		fns = append(fns, fc.fn)
	}
	p.heap.SetCompilerRoots(fns)
}

func (p *parser) chunk() *chunk.Chunk { return p.cur.fn.Chunk }

// --- token stream -----------------------------------------------------

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.sc.Scan()
		if p.current.Kind != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(k token.Kind) bool { return p.current.Kind == k }

func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k token.Kind, msg string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *parser) errorAt(t token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	where := " at end"
	if t.Kind != token.EOF && t.Kind != token.ILLEGAL {
		where = fmt.Sprintf(" at '%s'", t.Lexeme)
	} else if t.Kind == token.ILLEGAL {
		where = ""
	}
	p.errs = append(p.errs, fmt.Errorf("[line %d] Error%s: %s", t.Line, where, msg))
}

// synchronize discards tokens until it finds a statement boundary, so one
// error does not cascade into a pile of spurious follow-on errors.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMICOLON {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// --- bytecode emission -------------------------------------------------

func (p *parser) emitByte(b byte)      { p.chunk().Write(b, p.previous.Line) }
func (p *parser) emitOp(op chunk.OpCode) { p.chunk().WriteOp(op, p.previous.Line) }

func (p *parser) emitBytes(op chunk.OpCode, b byte) {
	p.emitOp(op)
	p.emitByte(b)
}

func (p *parser) emitReturn() {
	if p.cur.fnType == FuncInitializer {
		p.emitBytes(chunk.OpGetLocal, 0)
	} else {
		p.emitOp(chunk.OpNil)
	}
	p.emitOp(chunk.OpReturn)
}

func (p *parser) emitConstant(v value.Value) {
	idx, err := p.chunk().AddConstant(v)
	if err != nil {
		p.error(err.Error())
		return
	}
	p.emitBytes(chunk.OpConstant, byte(idx))
}

// emitJump writes op followed by a two-byte placeholder and returns the
// placeholder's offset, to be filled in later by patchJump.
func (p *parser) emitJump(op chunk.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

func (p *parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > 0xffff {
		p.error("too much code to jump over")
		return
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(chunk.OpLoop)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.error("loop body too large")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset & 0xff))
}

// identifierConstant interns name and adds it to the current chunk's
// constant pool, returning its index.
func (p *parser) identifierConstant(name string) byte {
	idx, err := p.chunk().AddConstant(p.heap.InternString(name))
	if err != nil {
		p.error(err.Error())
		return 0
	}
	return byte(idx)
}

// --- scopes and locals --------------------------------------------------

func (p *parser) beginScope() { p.cur.scopeDepth++ }

func (p *parser) endScope() {
	p.cur.scopeDepth--
	locals := p.cur.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > p.cur.scopeDepth {
		if locals[len(locals)-1].isCaptured {
			p.emitOp(chunk.OpCloseUpvalue)
		} else {
			p.emitOp(chunk.OpPop)
		}
		locals = locals[:len(locals)-1]
	}
	p.cur.locals = locals
}

func (p *parser) addLocal(name string) {
	if len(p.cur.locals) >= maxLocals {
		p.error("too many local variables in function")
		return
	}
	p.cur.locals = append(p.cur.locals, local{name: name, depth: -1})
}

// declareVariable registers the variable named by p.previous as a local of
// the current scope (no-op at global scope, where OP_DEFINE_GLOBAL handles
// binding instead). Redeclaring a name already bound at this exact depth is
// a compile error.
func (p *parser) declareVariable(name string) {
	if p.cur.scopeDepth == 0 {
		return
	}
	for i := len(p.cur.locals) - 1; i >= 0; i-- {
		l := p.cur.locals[i]
		if l.depth != -1 && l.depth < p.cur.scopeDepth {
			break
		}
		if l.name == name {
			p.error("already a variable with this name in this scope")
		}
	}
	p.addLocal(name)
}

func (p *parser) markInitialized() {
	if p.cur.scopeDepth == 0 {
		return
	}
	p.cur.locals[len(p.cur.locals)-1].depth = p.cur.scopeDepth
}

// resolveLocal returns the slot index of name in fc's own locals, searching
// innermost-declared first, or -1 if not found. Finding the name still
// being declared (depth == -1, i.e. its own initializer is in flight) is a
// compile error: `var a = a;` must not see the outer `a`.
func (p *parser) resolveLocal(fc *fnCompiler, name string) int {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			if fc.locals[i].depth == -1 {
				p.error("can't read local variable in its own initializer")
				return -1
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue looks for name in every enclosing function, capturing a
// local (or chaining through an already-captured upvalue) along the way so
// every intermediate frame knows how to forward the reference.
func (p *parser) resolveUpvalue(fc *fnCompiler, name string) int {
	if fc.enclosing == nil {
		return -1
	}
	uv := -1
	if idx := p.resolveLocal(fc.enclosing, name); idx != -1 {
		fc.enclosing.locals[idx].isCaptured = true
		uv = addUpvalue(fc, uint8(idx), true)
	} else if idx := p.resolveUpvalue(fc.enclosing, name); idx != -1 {
		uv = addUpvalue(fc, uint8(idx), false)
	} else {
		return -1
	}
	if uv == -1 {
		p.error("too many closure variables in function")
	}
	return uv
}

// addUpvalue deduplicates by (index, isLocal): a function only ever
// captures a given enclosing slot once, regardless of how many of its own
// nested closures need to see it.
func addUpvalue(fc *fnCompiler, index uint8, isLocal bool) int {
	if i := slices.IndexFunc(fc.upvalues, func(uv upvalueRef) bool {
		return uv.index == index && uv.isLocal == isLocal
	}); i != -1 {
		return i
	}
	if len(fc.upvalues) >= maxUpvalues {
		return -1
	}
	fc.upvalues = append(fc.upvalues, upvalueRef{index: index, isLocal: isLocal})
	fc.fn.UpvalueCount = len(fc.upvalues)
	return len(fc.upvalues) - 1
}
