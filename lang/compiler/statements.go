package compiler

import (
	"github.com/mna/willow/lang/chunk"
	"github.com/mna/willow/lang/token"
)

func (p *parser) declaration() {
	switch {
	case p.match(token.CLASS):
		p.classDeclaration()
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.LEFT_BRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(token.RIGHT_BRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RIGHT_BRACE, "expect '}' after block")
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "expect ';' after value")
	p.emitOp(chunk.OpPrint)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "expect ';' after expression")
	p.emitOp(chunk.OpPop)
}

func (p *parser) ifStatement() {
	p.consume(token.LEFT_PAREN, "expect '(' after 'if'")
	p.expression()
	p.consume(token.RIGHT_PAREN, "expect ')' after condition")

	thenJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()

	elseJump := p.emitJump(chunk.OpJump)
	p.patchJump(thenJump)
	p.emitOp(chunk.OpPop)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.chunk().Code)
	p.consume(token.LEFT_PAREN, "expect '(' after 'while'")
	p.expression()
	p.consume(token.RIGHT_PAREN, "expect ')' after condition")

	exitJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(chunk.OpPop)
}

func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LEFT_PAREN, "expect '(' after 'for'")

	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.match(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "expect ';' after loop condition")
		exitJump = p.emitJump(chunk.OpJumpIfFalse)
		p.emitOp(chunk.OpPop)
	}

	if !p.match(token.RIGHT_PAREN) {
		bodyJump := p.emitJump(chunk.OpJump)
		incrStart := len(p.chunk().Code)
		p.expression()
		p.emitOp(chunk.OpPop)
		p.consume(token.RIGHT_PAREN, "expect ')' after for clauses")

		p.emitLoop(loopStart)
		loopStart = incrStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(chunk.OpPop)
	}
	p.endScope()
}

func (p *parser) returnStatement() {
	if p.cur.fnType == FuncScript {
		p.error("can't return from top-level code")
	}
	if p.match(token.SEMICOLON) {
		p.emitReturn()
		return
	}
	if p.cur.fnType == FuncInitializer {
		p.error("can't return a value from an initializer")
	}
	p.expression()
	p.consume(token.SEMICOLON, "expect ';' after return value")
	p.emitOp(chunk.OpReturn)
}

// --- declarations --------------------------------------------------

// parseVariable consumes an identifier, declares it as a local (if inside a
// scope), and returns its global-name constant index (unused for locals).
func (p *parser) parseVariable(errMsg string) byte {
	p.consume(token.IDENTIFIER, errMsg)
	name := p.previous.Lexeme
	p.declareVariable(name)
	if p.cur.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(name)
}

func (p *parser) defineVariable(global byte) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitBytes(chunk.OpDefineGlobal, global)
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("expect variable name")
	if p.match(token.EQUAL) {
		p.expression()
	} else {
		p.emitOp(chunk.OpNil)
	}
	p.consume(token.SEMICOLON, "expect ';' after variable declaration")
	p.defineVariable(global)
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("expect function name")
	p.markInitialized()
	p.function(FuncFunction)
	p.defineVariable(global)
}

// function compiles one function's parameter list and body, starting a new
// fnCompiler for it, and emits OP_CLOSURE at the call site.
func (p *parser) function(fnType FuncType) {
	name := p.previous.Lexeme
	p.beginFunction(fnType, name)
	p.beginScope()

	p.consume(token.LEFT_PAREN, "expect '(' after function name")
	if !p.check(token.RIGHT_PAREN) {
		for {
			p.cur.fn.Arity++
			if p.cur.fn.Arity > maxArgs {
				p.error("can't have more than 255 parameters")
			}
			paramConst := p.parseVariable("expect parameter name")
			p.defineVariable(paramConst)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "expect ')' after parameters")
	p.consume(token.LEFT_BRACE, "expect '{' before function body")
	p.block()

	upvalues := p.cur.upvalues
	fn := p.endFunction()

	idx, err := p.chunk().AddConstant(fn)
	if err != nil {
		p.error(err.Error())
		return
	}
	p.emitBytes(chunk.OpClosure, byte(idx))
	for _, uv := range upvalues {
		if uv.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.index)
	}
}
