package compiler

import (
	"github.com/mna/willow/lang/chunk"
	"github.com/mna/willow/lang/token"
)

// classDeclaration compiles `class Name [< Super] { method* }`. The class
// itself becomes a global (or local) variable; a superclass clause opens a
// synthetic scope holding `super` for the duration of the method bodies.
func (p *parser) classDeclaration() {
	p.consume(token.IDENTIFIER, "expect class name")
	name := p.previous.Lexeme
	nameConst := p.identifierConstant(name)
	p.declareVariable(name)

	p.emitBytes(chunk.OpClass, nameConst)
	p.defineVariable(nameConst)

	cs := &classState{enclosing: p.class}
	p.class = cs

	if p.match(token.LESS) {
		p.consume(token.IDENTIFIER, "expect superclass name")
		superName := p.previous.Lexeme
		if superName == name {
			p.error("a class can't inherit from itself")
		}
		variable(p, false) // push the superclass

		p.beginScope()
		p.addLocal("super")
		p.markInitialized()

		p.namedVariable(name, false) // push the subclass
		p.emitOp(chunk.OpInherit)
		cs.hasSuperclass = true
	}

	p.namedVariable(name, false) // leave the class on the stack for OP_METHOD
	p.consume(token.LEFT_BRACE, "expect '{' before class body")
	for !p.check(token.RIGHT_BRACE) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RIGHT_BRACE, "expect '}' after class body")
	p.emitOp(chunk.OpPop) // the class pushed above

	if cs.hasSuperclass {
		p.endScope()
	}
	p.class = cs.enclosing
}

func (p *parser) method() {
	p.consume(token.IDENTIFIER, "expect method name")
	name := p.previous.Lexeme
	nameConst := p.identifierConstant(name)

	fnType := FuncMethod
	if name == "init" {
		fnType = FuncInitializer
	}
	p.function(fnType)
	p.emitBytes(chunk.OpMethod, nameConst)
}
