package parser

import "github.com/dashql/dashql-go/internal/scanner"

func (p *Parser) recordExpected(kinds ...scanner.Kind) {
	if p.completeAt < 0 || p.pos != p.completeAt {
		return
	}
	if p.expected == nil {
		p.expected = make(map[scanner.Kind]bool)
	}
	for _, k := range kinds {
		p.expected[k] = true
	}
}

func (p *Parser) parseStatement() Statement {
	p.recordExpected(scanner.SELECT, scanner.CREATE)
	switch p.cur().Kind {
	case scanner.SELECT:
		root := p.parseSelectStatement()
		return Statement{Type: StatementSelect, Root: root}
	case scanner.CREATE:
		root := p.parseCreateTableStatement()
		return Statement{Type: StatementCreateTable, Root: root}
	default:
		return Statement{Root: InvalidNodeID}
	}
}

// parseSelectStatement parses:
//
//	SELECT [DISTINCT] target [, target]*
//	[FROM from-item [, from-item]* | from-item JOIN from-item ON expr]
//	[WHERE expr]
//	[GROUP BY expr-list]
//	[HAVING expr]
//	[ORDER BY order-item-list]
//	[LIMIT expr] [OFFSET expr]
func (p *Parser) parseSelectStatement() NodeID {
	startLoc := p.cur().Location
	p.expect(scanner.SELECT)

	distinct := InvalidNodeID
	if p.cur().Kind == scanner.DISTINCT {
		loc := p.cur().Location
		p.advance()
		distinct = p.boolNode(loc, true)
	}

	var targets []NodeID
	targets = append(targets, p.parseSelectTarget())
	for p.consumeOptional(scanner.COMMA) {
		targets = append(targets, p.parseSelectTarget())
	}
	targetsArr := p.array(startLoc, targets, true)

	p.recordExpected(scanner.FROM, scanner.WHERE, scanner.GROUP, scanner.ORDER, scanner.LIMIT, scanner.OFFSET)
	from := InvalidNodeID
	if p.cur().Kind == scanner.FROM {
		p.advance()
		from = p.parseFromList()
	}

	where := InvalidNodeID
	if p.cur().Kind == scanner.WHERE {
		p.advance()
		where = p.parseExpression(lowest)
	}

	groupBy := InvalidNodeID
	having := InvalidNodeID
	if p.cur().Kind == scanner.GROUP {
		p.advance()
		p.expect(scanner.BY)
		var items []NodeID
		items = append(items, p.parseExpression(lowest))
		for p.consumeOptional(scanner.COMMA) {
			items = append(items, p.parseExpression(lowest))
		}
		groupBy = p.array(startLoc, items, true)
		if p.cur().Kind == scanner.HAVING {
			p.advance()
			having = p.parseExpression(lowest)
		}
	}

	orderBy := InvalidNodeID
	if p.cur().Kind == scanner.ORDER {
		p.advance()
		p.expect(scanner.BY)
		var items []NodeID
		items = append(items, p.parseOrderItem())
		for p.consumeOptional(scanner.COMMA) {
			items = append(items, p.parseOrderItem())
		}
		orderBy = p.array(startLoc, items, true)
	}

	limit := InvalidNodeID
	if p.cur().Kind == scanner.LIMIT {
		p.advance()
		limit = p.parseExpression(lowest)
	}
	offset := InvalidNodeID
	if p.cur().Kind == scanner.OFFSET {
		p.advance()
		offset = p.parseExpression(lowest)
	}

	return p.object(startLoc, ObjectSelectStatement, []attrChild{
		{AttrSelectDistinct, distinct},
		{AttrSelectTargets, targetsArr},
		{AttrSelectFrom, from},
		{AttrSelectWhere, where},
		{AttrSelectGroupBy, groupBy},
		{AttrSelectHaving, having},
		{AttrSelectOrderBy, orderBy},
		{AttrSelectLimit, limit},
		{AttrSelectOffset, offset},
	})
}

func (p *Parser) parseSelectTarget() NodeID {
	loc := p.cur().Location
	if p.cur().Kind == scanner.OP_STAR {
		p.advance()
		expr := p.enumNode(loc, NodeLiteralNull, 0)
		return p.object(loc, ObjectSelectTarget, []attrChild{{AttrTargetExpr, expr}})
	}
	expr := p.parseExpression(lowest)
	alias := InvalidNodeID
	if p.cur().Kind == scanner.AS {
		p.advance()
		alias = p.parseIdentNode()
	} else if p.cur().Kind == scanner.IDENT {
		alias = p.parseIdentNode()
	}
	return p.object(loc, ObjectSelectTarget, []attrChild{
		{AttrTargetExpr, expr},
		{AttrTargetAlias, alias},
	})
}

func (p *Parser) parseOrderItem() NodeID {
	loc := p.cur().Location
	expr := p.parseExpression(lowest)
	dir := InvalidNodeID
	if p.cur().Kind == scanner.ASC || p.cur().Kind == scanner.DESC {
		d := uint32(0)
		if p.cur().Kind == scanner.DESC {
			d = 1
		}
		dloc := p.cur().Location
		p.advance()
		dir = p.enumNode(dloc, EnumOrderDirection, d)
	}
	nulls := InvalidNodeID
	if p.cur().Kind == scanner.NULLS_LA {
		p.advance()
		n := uint32(0)
		if p.cur().Kind == scanner.LAST {
			n = 1
		}
		nloc := p.cur().Location
		p.advance()
		nulls = p.enumNode(nloc, EnumOrderNullsPos, n)
	}
	return p.object(loc, ObjectOrderByItem, []attrChild{
		{AttrOrderExpr, expr},
		{AttrOrderDirection, dir},
		{AttrOrderNulls, nulls},
	})
}

// parseFromList parses a comma- and JOIN-separated list of table references,
// left-associating JOINs into nested ObjectJoinedTable nodes.
func (p *Parser) parseFromList() NodeID {
	left := p.parseFromItem()
	for {
		p.recordExpected(scanner.JOIN, scanner.LEFT, scanner.RIGHT, scanner.INNER, scanner.OUTER, scanner.FULL)
		switch p.cur().Kind {
		case scanner.JOIN, scanner.LEFT, scanner.RIGHT, scanner.INNER, scanner.OUTER, scanner.FULL:
			left = p.parseJoin(left)
		case scanner.COMMA:
			p.advance()
			right := p.parseFromItem()
			loc := p.scanned.Symbols[0].Location
			left = p.object(loc, ObjectJoinedTable, []attrChild{
				{AttrJoinLeft, left},
				{AttrJoinRight, right},
				{AttrJoinType, p.enumNode(loc, EnumJoinType, 0)},
			})
		default:
			return left
		}
	}
}

func (p *Parser) parseJoin(left NodeID) NodeID {
	loc := p.cur().Location
	joinKind := uint32(0)
	for p.cur().Kind == scanner.LEFT || p.cur().Kind == scanner.RIGHT ||
		p.cur().Kind == scanner.INNER || p.cur().Kind == scanner.OUTER || p.cur().Kind == scanner.FULL {
		switch p.cur().Kind {
		case scanner.LEFT:
			joinKind = 1
		case scanner.RIGHT:
			joinKind = 2
		case scanner.FULL:
			joinKind = 3
		}
		p.advance()
	}
	p.expect(scanner.JOIN)
	right := p.parseFromItem()
	var on NodeID = InvalidNodeID
	if p.cur().Kind == scanner.ON {
		p.advance()
		on = p.parseExpression(lowest)
	}
	return p.object(loc, ObjectJoinedTable, []attrChild{
		{AttrJoinLeft, left},
		{AttrJoinRight, right},
		{AttrJoinType, p.enumNode(loc, EnumJoinType, joinKind)},
		{AttrJoinOn, on},
	})
}

// parseFromItem parses a possibly-qualified table name with an optional
// alias: `db.schema.table [AS] alias`.
func (p *Parser) parseFromItem() NodeID {
	loc := p.cur().Location
	name := p.parseQualifiedName()
	alias := InvalidNodeID
	if p.cur().Kind == scanner.AS {
		p.advance()
		alias = p.parseIdentNode()
	} else if p.cur().Kind == scanner.IDENT {
		alias = p.parseIdentNode()
	}
	return p.object(loc, ObjectTableRef, []attrChild{
		{AttrTableRefName, name},
		{AttrTableRefAlias, alias},
	})
}

// parseQualifiedName parses `a`, `a.b`, or `a.b.c` into an ARRAY of NAME
// leaves (spec.md's "name path"), stopping before a trailing DOT_TRAILING so
// dot-completion can see the partial path.
func (p *Parser) parseQualifiedName() NodeID {
	loc := p.cur().Location
	var parts []NodeID
	parts = append(parts, p.parseIdentNode())
	for p.cur().Kind == scanner.DOT {
		p.advance()
		p.recordExpected(scanner.IDENT)
		if p.cur().Kind != scanner.IDENT && p.cur().Kind != scanner.IDENT_QUOTED {
			break
		}
		parts = append(parts, p.parseIdentNode())
	}
	return p.array(loc, parts, false)
}

func (p *Parser) parseIdentNode() NodeID {
	p.recordExpected(scanner.IDENT)
	sym := p.cur()
	if sym.Kind == scanner.IDENT || sym.Kind == scanner.IDENT_QUOTED {
		p.advance()
		return p.nameFromIdentifier(sym.Location, sym.NameID)
	}
	if sym.Kind.IsKeyword() {
		p.advance()
		return p.nameFromKeyword(sym.Location, sym.Kind.String())
	}
	p.errorf(sym.Location, "expected identifier, got %s", sym.Kind)
	return p.null(sym.Location)
}

// parseCreateTableStatement parses:
//
//	CREATE TABLE [db.schema.]table ( col type [, col type]* )
func (p *Parser) parseCreateTableStatement() NodeID {
	loc := p.cur().Location
	p.expect(scanner.CREATE)
	p.expect(scanner.TABLE)
	name := p.parseQualifiedName()
	var cols []NodeID
	if _, ok := p.expect(scanner.LPAREN); ok {
		if p.cur().Kind != scanner.RPAREN {
			cols = append(cols, p.parseColumnDef())
			for p.consumeOptional(scanner.COMMA) {
				cols = append(cols, p.parseColumnDef())
			}
		}
		p.expect(scanner.RPAREN)
	}
	colsArr := p.array(loc, cols, true)
	return p.object(loc, ObjectCreateTableStatement, []attrChild{
		{AttrCreateTableName, name},
		{AttrCreateTableColumns, colsArr},
	})
}

func (p *Parser) parseColumnDef() NodeID {
	loc := p.cur().Location
	name := p.parseIdentNode()
	typ := InvalidNodeID
	if p.cur().Kind == scanner.IDENT || p.cur().Kind.IsKeyword() {
		typ = p.parseIdentNode()
	}
	return p.object(loc, ObjectColumnDefinition, []attrChild{
		{AttrColumnDefName, name},
		{AttrColumnDefType, typ},
	})
}
