package compiler

import (
	"strconv"

	"github.com/mna/willow/lang/chunk"
	"github.com/mna/willow/lang/token"
	"github.com/mna/willow/lang/value"
)

// precedence orders binding power from loosest to tightest, per the
// language's operator grammar.
type precedence uint8

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type (
	prefixFn func(p *parser, canAssign bool)
	infixFn  func(p *parser, canAssign bool)
)

type parseRule struct {
	prefix     prefixFn
	infix      infixFn
	precedence precedence
}

// rules is the static dispatch table mapping each token kind to its
// (prefix, infix, precedence) parsing behavior, driving parsePrecedence.
var rules [token.NumKinds]parseRule

func init() {
	set := func(k token.Kind, prefix prefixFn, infix infixFn, prec precedence) {
		rules[k] = parseRule{prefix: prefix, infix: infix, precedence: prec}
	}
	set(token.LEFT_PAREN, grouping, call, precCall)
	set(token.DOT, nil, dot, precCall)
	set(token.MINUS, unary, binary, precTerm)
	set(token.PLUS, nil, binary, precTerm)
	set(token.SLASH, nil, binary, precFactor)
	set(token.STAR, nil, binary, precFactor)
	set(token.BANG, unary, nil, precNone)
	set(token.BANG_EQUAL, nil, binary, precEquality)
	set(token.EQUAL_EQUAL, nil, binary, precEquality)
	set(token.GREATER, nil, binary, precComparison)
	set(token.GREATER_EQUAL, nil, binary, precComparison)
	set(token.LESS, nil, binary, precComparison)
	set(token.LESS_EQUAL, nil, binary, precComparison)
	set(token.IDENTIFIER, variable, nil, precNone)
	set(token.STRING, stringLiteral, nil, precNone)
	set(token.NUMBER, number, nil, precNone)
	set(token.AND, nil, and_, precAnd)
	set(token.OR, nil, or_, precOr)
	set(token.FALSE, literal, nil, precNone)
	set(token.NIL, literal, nil, precNone)
	set(token.TRUE, literal, nil, precNone)
	set(token.THIS, this_, nil, precNone)
	set(token.SUPER, super_, nil, precNone)
}

func ruleFor(k token.Kind) *parseRule { return &rules[k] }

// parsePrecedence is the core of the Pratt parser: it parses an expression
// whose operators bind at least as tightly as prec.
func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefix := ruleFor(p.previous.Kind).prefix
	if prefix == nil {
		p.error("expect expression")
		return
	}
	canAssign := prec <= precAssignment
	prefix(p, canAssign)

	for prec <= ruleFor(p.current.Kind).precedence {
		p.advance()
		infix := ruleFor(p.previous.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQUAL) {
		p.error("invalid assignment target")
	}
}

func (p *parser) expression() { p.parsePrecedence(precAssignment) }

// --- prefix / infix rule bodies ----------------------------------------

func grouping(p *parser, _ bool) {
	p.expression()
	p.consume(token.RIGHT_PAREN, "expect ')' after expression")
}

func number(p *parser, _ bool) {
	n, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.error("invalid number literal")
		return
	}
	p.emitConstant(value.Number(n))
}

func stringLiteral(p *parser, _ bool) {
	lex := p.previous.Lexeme
	s := lex[1 : len(lex)-1] // strip the surrounding quotes
	p.emitConstant(p.heap.InternString(s))
}

func literal(p *parser, _ bool) {
	switch p.previous.Kind {
	case token.FALSE:
		p.emitOp(chunk.OpFalse)
	case token.TRUE:
		p.emitOp(chunk.OpTrue)
	case token.NIL:
		p.emitOp(chunk.OpNil)
	}
}

func unary(p *parser, _ bool) {
	op := p.previous.Kind
	p.parsePrecedence(precUnary)
	switch op {
	case token.BANG:
		p.emitOp(chunk.OpNot)
	case token.MINUS:
		p.emitOp(chunk.OpNegate)
	}
}

func binary(p *parser, _ bool) {
	op := p.previous.Kind
	rule := ruleFor(op)
	p.parsePrecedence(rule.precedence + 1)
	switch op {
	case token.BANG_EQUAL:
		p.emitOp(chunk.OpEqual)
		p.emitOp(chunk.OpNot)
	case token.EQUAL_EQUAL:
		p.emitOp(chunk.OpEqual)
	case token.GREATER:
		p.emitOp(chunk.OpGreater)
	case token.GREATER_EQUAL:
		p.emitOp(chunk.OpLess)
		p.emitOp(chunk.OpNot)
	case token.LESS:
		p.emitOp(chunk.OpLess)
	case token.LESS_EQUAL:
		p.emitOp(chunk.OpGreater)
		p.emitOp(chunk.OpNot)
	case token.PLUS:
		p.emitOp(chunk.OpAdd)
	case token.MINUS:
		p.emitOp(chunk.OpSubtract)
	case token.STAR:
		p.emitOp(chunk.OpMultiply)
	case token.SLASH:
		p.emitOp(chunk.OpDivide)
	}
}

func and_(p *parser, _ bool) {
	endJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func or_(p *parser, _ bool) {
	elseJump := p.emitJump(chunk.OpJumpIfFalse)
	endJump := p.emitJump(chunk.OpJump)
	p.patchJump(elseJump)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

// argumentList parses a parenthesized, comma-separated argument list and
// returns its length; emits a compile error if it exceeds maxArgs.
func (p *parser) argumentList() byte {
	argc := 0
	if !p.check(token.RIGHT_PAREN) {
		for {
			p.expression()
			if argc == maxArgs {
				p.error("can't have more than 255 arguments")
			}
			argc++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "expect ')' after arguments")
	return byte(argc)
}

func call(p *parser, _ bool) {
	argc := p.argumentList()
	p.emitBytes(chunk.OpCall, argc)
}

func dot(p *parser, canAssign bool) {
	p.consume(token.IDENTIFIER, "expect property name after '.'")
	name := p.identifierConstant(p.previous.Lexeme)
	switch {
	case canAssign && p.match(token.EQUAL):
		p.expression()
		p.emitBytes(chunk.OpSetProperty, name)
	case p.match(token.LEFT_PAREN):
		argc := p.argumentList()
		p.emitBytes(chunk.OpInvoke, name)
		p.emitByte(argc)
	default:
		p.emitBytes(chunk.OpGetProperty, name)
	}
}

// namedVariable resolves name to a local slot, an upvalue, or (by
// elimination) a global, and emits the matching get or, if canAssign and an
// '=' follows, set opcode.
func (p *parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp chunk.OpCode
	var arg int
	if idx := p.resolveLocal(p.cur, name); idx != -1 {
		arg, getOp, setOp = idx, chunk.OpGetLocal, chunk.OpSetLocal
	} else if idx := p.resolveUpvalue(p.cur, name); idx != -1 {
		arg, getOp, setOp = idx, chunk.OpGetUpvalue, chunk.OpSetUpvalue
	} else {
		arg, getOp, setOp = int(p.identifierConstant(name)), chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if canAssign && p.match(token.EQUAL) {
		p.expression()
		p.emitBytes(setOp, byte(arg))
	} else {
		p.emitBytes(getOp, byte(arg))
	}
}

func variable(p *parser, canAssign bool) { p.namedVariable(p.previous.Lexeme, canAssign) }

func this_(p *parser, _ bool) {
	if p.class == nil {
		p.error("can't use 'this' outside of a class")
		return
	}
	variable(p, false)
}

func super_(p *parser, _ bool) {
	switch {
	case p.class == nil:
		p.error("can't use 'super' outside of a class")
	case !p.class.hasSuperclass:
		p.error("can't use 'super' in a class with no superclass")
	}
	p.consume(token.DOT, "expect '.' after 'super'")
	p.consume(token.IDENTIFIER, "expect superclass method name")
	name := p.identifierConstant(p.previous.Lexeme)

	p.namedVariable("this", false)
	if p.match(token.LEFT_PAREN) {
		argc := p.argumentList()
		p.namedVariable("super", false)
		p.emitBytes(chunk.OpSuperInvoke, name)
		p.emitByte(argc)
	} else {
		p.namedVariable("super", false)
		p.emitBytes(chunk.OpGetSuper, name)
	}
}
