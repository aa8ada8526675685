package parser

import (
	"fmt"

	"github.com/dashql/dashql-go/internal/names"
	"github.com/dashql/dashql-go/internal/scanner"
	"github.com/dashql/dashql-go/internal/status"
)

// Precedence levels, in the style of ha1tch-tsqlparser/parser's Pratt table.
const (
	_ int = iota
	lowest
	orPrec
	andPrec
	comparePrec
	concatPrec
	sumPrec
	productPrec
	prefixPrec
	callPrec
	indexPrec
)

var precedences = map[scanner.Kind]int{
	scanner.OR:         orPrec,
	scanner.AND:        andPrec,
	scanner.OP_EQ:      comparePrec,
	scanner.OP_NEQ:     comparePrec,
	scanner.OP_LT:      comparePrec,
	scanner.OP_GT:      comparePrec,
	scanner.OP_LTE:     comparePrec,
	scanner.OP_GTE:     comparePrec,
	scanner.LIKE:       comparePrec,
	scanner.ILIKE:      comparePrec,
	scanner.IN:         comparePrec,
	scanner.NOT_LA:     comparePrec,
	scanner.OP_CONCAT:  concatPrec,
	scanner.OP_PLUS:    sumPrec,
	scanner.OP_MINUS:   sumPrec,
	scanner.OP_STAR:    productPrec,
	scanner.OP_SLASH:   productPrec,
	scanner.OP_PERCENT: productPrec,
	scanner.LPAREN:     callPrec,
	scanner.DOT:        indexPrec,
}

// Parser consumes a pre-tokenised symbol stream (never the raw text) and
// builds a ParsedScript. It owns the same kind of state spec.md §4.D
// describes for ParseContext: an append-only node buffer, a statement list,
// and an error list, plus a cursor marker used by ParseUntil (see
// parse_until.go).
type Parser struct {
	scanned *scanner.ScannedScript
	symbols []scanner.Symbol
	pos     int

	out *ParsedScript

	// completeAt, when >= 0, is the symbol index ParseUntil wants expected
	// symbols for; set only during a ParseUntil run.
	completeAt int
	expected   map[scanner.Kind]bool
	stopped    bool
}

// Parse runs the parser over a scanned script and returns the ParsedScript.
func Parse(scanned *scanner.ScannedScript) *ParsedScript {
	p := &Parser{scanned: scanned, symbols: scanned.Symbols, completeAt: -1}
	p.out = &ParsedScript{Scanned: scanned}
	p.run()
	return p.out
}

func (p *Parser) run() {
	for !p.atEOF() && !p.stopped {
		begin := uint32(len(p.out.Nodes))
		stmt := p.parseStatement()
		if p.stopped {
			break
		}
		if stmt.Root == InvalidNodeID {
			// Could not make progress (e.g. unexpected token at top level);
			// skip it to avoid an infinite loop, recording an error.
			p.errorf(p.cur().Location, "unexpected token %s", p.cur().Kind)
			p.advance()
			continue
		}
		stmt.NodesBegin = begin
		stmt.NodeCount = uint32(len(p.out.Nodes)) - begin
		p.out.Statements = append(p.out.Statements, stmt)
		p.consumeOptional(scanner.SEMICOLON)
	}
}

func (p *Parser) cur() scanner.Symbol {
	if p.pos >= len(p.symbols) {
		return scanner.Symbol{Kind: scanner.EOF}
	}
	return p.symbols[p.pos]
}

func (p *Parser) peek() scanner.Symbol {
	if p.pos+1 >= len(p.symbols) {
		return scanner.Symbol{Kind: scanner.EOF}
	}
	return p.symbols[p.pos+1]
}

func (p *Parser) atEOF() bool { return p.cur().Kind == scanner.EOF }

func (p *Parser) advance() scanner.Symbol {
	s := p.cur()
	if p.completeAt >= 0 && p.pos >= p.completeAt {
		p.stopped = true
		return s
	}
	if !p.atEOF() {
		p.pos++
	}
	return s
}

func (p *Parser) expect(k scanner.Kind) (scanner.Symbol, bool) {
	if p.completeAt >= 0 && p.pos == p.completeAt {
		if p.expected != nil {
			p.expected[k] = true
		}
	}
	if p.cur().Kind != k {
		p.errorf(p.cur().Location, "expected %s, got %s", k, p.cur().Kind)
		return p.cur(), false
	}
	return p.advance(), true
}

func (p *Parser) consumeOptional(k scanner.Kind) bool {
	if p.cur().Kind == k {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) errorf(loc scanner.Location, format string, args ...any) {
	p.out.Errors = append(p.out.Errors, status.Diagnostic{
		Location: toStatusLoc(loc),
		Message:  sprintf(format, args...),
	})
}

func sprintf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// --- node construction helpers, mirroring spec.md §4.D's ParseContext ---

func (p *Parser) pushLeaf(typ NodeType, loc scanner.Location, value uint32) NodeID {
	id := NodeID(len(p.out.Nodes))
	p.out.Nodes = append(p.out.Nodes, Node{Location: loc, Type: typ, Parent: InvalidNodeID, ChildrenBeginOrValue: value})
	return id
}

func (p *Parser) null(loc scanner.Location) NodeID {
	return p.pushLeaf(NodeNone, loc, 0)
}

func (p *Parser) boolNode(loc scanner.Location, v bool) NodeID {
	val := uint32(0)
	if v {
		val = 1
	}
	return p.pushLeaf(NodeBoolLeaf, loc, val)
}

func (p *Parser) nameFromIdentifier(loc scanner.Location, nameID uint32) NodeID {
	return p.pushLeaf(NodeNameLeaf, loc, nameID)
}

func (p *Parser) nameFromKeyword(loc scanner.Location, text string) NodeID {
	id := p.scanned.NameReg.Register(text, names.Location{Offset: loc.Offset, Length: loc.Length}, names.TagNone)
	return p.pushLeaf(NodeNameLeaf, loc, uint32(id))
}

func (p *Parser) operatorNode(loc scanner.Location, op scanner.Kind) NodeID {
	return p.pushLeaf(NodeOperatorLeaf, loc, uint32(op))
}

func (p *Parser) enumNode(loc scanner.Location, typ NodeType, v uint32) NodeID {
	return p.pushLeaf(typ, loc, v)
}

// attrChild pairs a child node id with the attribute key it plays in its
// parent object.
type attrChild struct {
	key AttributeKey
	id  NodeID
}

// object builds an OBJECT_* node: children are appended to the node buffer
// (they already exist, having been built bottom-up by the recursive
// descent), then the object node itself is appended and every child's Parent
// is patched in a single pass — matching spec.md §4.D's "Node ids are
// assigned at insertion; every non-leaf child's parent id is patched... in a
// single pass over the children span."
func (p *Parser) object(loc scanner.Location, typ NodeType, attrs []attrChild) NodeID {
	begin := uint32(len(p.out.Nodes))
	count := 0
	for _, a := range attrs {
		if a.id == InvalidNodeID {
			continue
		}
		count++
	}
	// Object attribute children are represented as a contiguous span; we
	// relocate each live child's record to the span end-to-end. Since nodes
	// are append-only and children were already appended when built, we
	// instead record indices directly: the span is exactly the range
	// [min(child ids), max(child ids)] is not guaranteed contiguous once
	// NONE children are dropped, so we re-emit attribute marker nodes
	// carrying the attribute key, each pointing at its real child via
	// ChildrenBeginOrValue. This keeps both "object points at an attribute
	// span" and per-child attribute keys, matching the spec's shape without
	// requiring contiguous original ids.
	attrBegin := uint32(len(p.out.Nodes))
	for _, a := range attrs {
		if a.id == InvalidNodeID {
			continue
		}
		p.out.Nodes[a.id].AttributeKey = a.key
		marker := NodeID(len(p.out.Nodes))
		p.out.Nodes = append(p.out.Nodes, Node{
			Location:             p.out.Nodes[a.id].Location,
			Type:                 NodeNone,
			AttributeKey:         a.key,
			Parent:               InvalidNodeID,
			ChildrenBeginOrValue: uint32(a.id),
			ChildrenCount:        1,
		})
		p.out.Nodes[a.id].Parent = marker
		loc = coverLocation(loc, p.out.Nodes[a.id].Location)
	}
	objID := NodeID(len(p.out.Nodes))
	p.out.Nodes = append(p.out.Nodes, Node{
		Location:             loc,
		Type:                 typ,
		Parent:               InvalidNodeID,
		ChildrenBeginOrValue: attrBegin,
		ChildrenCount:        uint32(count),
	})
	for i := attrBegin; i < uint32(objID); i++ {
		p.out.Nodes[i].Parent = objID
	}
	_ = begin
	return objID
}

// coverLocation widens loc so it also spans child.
func coverLocation(loc, child scanner.Location) scanner.Location {
	begin, end := loc.Offset, loc.End()
	if child.Offset < begin {
		begin = child.Offset
	}
	if child.End() > end {
		end = child.End()
	}
	return scanner.Location{Offset: begin, Length: end - begin}
}

// array builds an ARRAY node over already-appended children ids.
func (p *Parser) array(loc scanner.Location, children []NodeID, nullIfEmpty bool) NodeID {
	if len(children) == 0 && nullIfEmpty {
		return p.null(loc)
	}
	begin := uint32(len(p.out.Nodes))
	// Re-emit lightweight index markers so the array's children span is
	// contiguous, the same technique object() uses.
	for _, c := range children {
		marker := NodeID(len(p.out.Nodes))
		p.out.Nodes = append(p.out.Nodes, Node{
			Location:             p.out.Nodes[c].Location,
			Type:                 NodeNone,
			Parent:               InvalidNodeID,
			ChildrenBeginOrValue: uint32(c),
			ChildrenCount:        1,
		})
		p.out.Nodes[c].Parent = marker
		loc = coverLocation(loc, p.out.Nodes[c].Location)
	}
	arrID := NodeID(len(p.out.Nodes))
	p.out.Nodes = append(p.out.Nodes, Node{
		Location:             loc,
		Type:                 NodeArray,
		Parent:               InvalidNodeID,
		ChildrenBeginOrValue: begin,
		ChildrenCount:        uint32(len(children)),
	})
	for i := begin; i < uint32(arrID); i++ {
		p.out.Nodes[i].Parent = arrID
	}
	return arrID
}
