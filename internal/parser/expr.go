package parser

import "github.com/dashql/dashql-go/internal/scanner"

func (p *Parser) precedence(k scanner.Kind) int {
	if pr, ok := precedences[k]; ok {
		return pr
	}
	return lowest
}

// parseExpression is a standard Pratt / precedence-climbing parser, in the
// style of ha1tch-tsqlparser/parser's prefixParseFn/infixParseFn tables.
func (p *Parser) parseExpression(minPrec int) NodeID {
	left := p.parsePrefix()
	for minPrec < p.precedence(p.cur().Kind) {
		switch p.cur().Kind {
		case scanner.DOT:
			left = p.parseDotIndex(left)
		case scanner.LPAREN:
			// Only meaningful as a call when `left` is a bare name; otherwise
			// a parenthesised expression was already consumed by parsePrefix.
			return left
		default:
			left = p.parseInfix(left)
		}
	}
	return left
}

func (p *Parser) parsePrefix() NodeID {
	p.recordExpected(scanner.IDENT, scanner.LITERAL_INTEGER, scanner.LITERAL_STRING, scanner.LPAREN, scanner.NOT)
	sym := p.cur()
	switch sym.Kind {
	case scanner.LITERAL_INTEGER:
		p.advance()
		return p.pushLeaf(NodeLiteralInteger, sym.Location, 0)
	case scanner.LITERAL_FLOAT:
		p.advance()
		return p.pushLeaf(NodeLiteralFloat, sym.Location, 0)
	case scanner.LITERAL_STRING, scanner.LITERAL_HEXSTRING, scanner.LITERAL_BITSTRING:
		p.advance()
		return p.pushLeaf(NodeLiteralString, sym.Location, 0)
	case scanner.NULL:
		p.advance()
		return p.pushLeaf(NodeLiteralNull, sym.Location, 0)
	case scanner.TRUE:
		p.advance()
		return p.boolNode(sym.Location, true)
	case scanner.FALSE:
		p.advance()
		return p.boolNode(sym.Location, false)
	case scanner.LPAREN:
		p.advance()
		inner := p.parseExpression(lowest)
		p.expect(scanner.RPAREN)
		return inner
	case scanner.NOT:
		p.advance()
		operand := p.parseExpression(prefixPrec)
		return p.object(sym.Location, ObjectBinaryExpression, []attrChild{
			{AttrBinaryOp, p.operatorNode(sym.Location, scanner.NOT)},
			{AttrBinaryLeft, operand},
		})
	case scanner.OP_MINUS:
		p.advance()
		operand := p.parseExpression(prefixPrec)
		return p.object(sym.Location, ObjectBinaryExpression, []attrChild{
			{AttrBinaryOp, p.operatorNode(sym.Location, scanner.OP_MINUS)},
			{AttrBinaryLeft, operand},
		})
	case scanner.IDENT, scanner.IDENT_QUOTED:
		return p.parseIdentOrCallOrColumnRef()
	case scanner.CASE:
		return p.parseCaseExpression()
	default:
		p.errorf(sym.Location, "unexpected token in expression: %s", sym.Kind)
		p.advance()
		return p.null(sym.Location)
	}
}

// parseIdentOrCallOrColumnRef handles `name`, `a.b`, `a.b.c`, and `name(args)`.
func (p *Parser) parseIdentOrCallOrColumnRef() NodeID {
	loc := p.cur().Location
	path := p.parseQualifiedName()
	if p.cur().Kind == scanner.LPAREN {
		p.advance()
		var args []NodeID
		if p.cur().Kind != scanner.RPAREN {
			if p.cur().Kind == scanner.OP_STAR {
				p.advance()
			} else {
				args = append(args, p.parseExpression(lowest))
				for p.consumeOptional(scanner.COMMA) {
					args = append(args, p.parseExpression(lowest))
				}
			}
		}
		p.expect(scanner.RPAREN)
		argsArr := p.array(loc, args, true)
		return p.object(loc, ObjectFunctionCall, []attrChild{
			{AttrFuncName, path},
			{AttrFuncArgs, argsArr},
		})
	}
	return p.object(loc, ObjectColumnRef, []attrChild{
		{AttrColumnRefPath, path},
	})
}

// parseDotIndex handles a DOT immediately following an already-parsed
// left-hand expression that wasn't absorbed by parseQualifiedName (e.g.
// after a parenthesised sub-expression). It degrades to re-parsing the
// right-hand identifier as a fresh column-ref path component; full
// expression-typed dotted access isn't part of this grammar subset.
func (p *Parser) parseDotIndex(left NodeID) NodeID {
	loc := p.cur().Location
	p.advance()
	p.recordExpected(scanner.IDENT)
	right := p.parseIdentNode()
	return p.object(loc, ObjectBinaryExpression, []attrChild{
		{AttrBinaryLeft, left},
		{AttrBinaryRight, right},
		{AttrBinaryOp, p.operatorNode(loc, scanner.DOT)},
	})
}

func (p *Parser) parseInfix(left NodeID) NodeID {
	opSym := p.cur()
	prec := p.precedence(opSym.Kind)
	p.advance()
	right := p.parseExpression(prec)
	typ := ObjectBinaryExpression
	switch opSym.Kind {
	case scanner.OP_EQ, scanner.OP_NEQ, scanner.OP_LT, scanner.OP_GT, scanner.OP_LTE, scanner.OP_GTE,
		scanner.LIKE, scanner.ILIKE, scanner.IN, scanner.NOT_LA:
		typ = ObjectComparisonExpression
	}
	return p.object(opSym.Location, typ, []attrChild{
		{AttrBinaryLeft, left},
		{AttrBinaryRight, right},
		{AttrBinaryOp, p.operatorNode(opSym.Location, opSym.Kind)},
	})
}

// parseCaseExpression parses `CASE WHEN e THEN e ... [ELSE e] END` into an
// array holding one binary expression per WHEN/THEN pair (tagged with the
// WHEN operator), followed by the ELSE expression when present; there is no
// dedicated CASE node shape in this grammar subset.
func (p *Parser) parseCaseExpression() NodeID {
	loc := p.cur().Location
	p.expect(scanner.CASE)
	var branches []NodeID
	for p.cur().Kind == scanner.WHEN {
		p.advance()
		cond := p.parseExpression(lowest)
		p.expect(scanner.THEN)
		result := p.parseExpression(lowest)
		branches = append(branches, p.object(loc, ObjectBinaryExpression, []attrChild{
			{AttrBinaryLeft, cond},
			{AttrBinaryRight, result},
			{AttrBinaryOp, p.operatorNode(loc, scanner.WHEN)},
		}))
	}
	if p.cur().Kind == scanner.ELSE {
		p.advance()
		branches = append(branches, p.parseExpression(lowest))
	}
	p.expect(scanner.END)
	return p.array(loc, branches, true)
}
