// Package cursor implements spec.md §4.H: given a text offset, derive the
// enclosing symbol, AST node, name scope chain, and a tagged context
// (table-ref vs column-ref vs neither) the completion engine dispatches on.
package cursor

import (
	"github.com/dashql/dashql-go/internal/analyzer"
	"github.com/dashql/dashql-go/internal/parser"
	"github.com/dashql/dashql-go/internal/scanner"
)

// ContextKind discriminates Cursor.Context's payload.
type ContextKind int

const (
	ContextNone ContextKind = iota
	ContextTableRef
	ContextColumnRef
)

// Context is the tagged sum of spec.md §4.H's `context`.
type Context struct {
	Kind             ContextKind
	TableReferenceID analyzer.TableReferenceID
	AtAlias          bool
	ExpressionID     analyzer.ExpressionID
}

// Cursor is the derived position spec.md §4.H describes.
type Cursor struct {
	Location    scanner.LocationInfo
	HasStatement bool
	StatementID int
	ASTNodeID   parser.NodeID
	Scopes      []*analyzer.Scope // innermost first
	Context     Context
}

// Place computes a Cursor for textOffset against an analyzed script, using
// parsed to walk the AST and scanned for the symbol lookup.
func Place(scanned *scanner.ScannedScript, parsed *parser.ParsedScript, analyzed *analyzer.AnalyzedScript, textOffset uint32) Cursor {
	c := Cursor{Location: scanned.FindSymbol(textOffset)}

	stmtIdx, root, ok := findEnclosingStatement(parsed, textOffset)
	if !ok {
		return c
	}
	c.HasStatement = true
	c.StatementID = stmtIdx

	node := descend(parsed, root, textOffset)
	c.ASTNodeID = node

	if analyzed != nil {
		c.Scopes = scopeChain(analyzed, node)
		c.Context = classify(analyzed, node)
	}
	return c
}

// findEnclosingStatement returns the index and root node id of the
// statement whose [begin, end) node-id span contains the node nearest
// textOffset — approximated here via each statement root's location span,
// since statements are laid out in source order.
func findEnclosingStatement(parsed *parser.ParsedScript, textOffset uint32) (int, parser.NodeID, bool) {
	for i, stmt := range parsed.Statements {
		if stmt.Root == parser.InvalidNodeID {
			continue
		}
		loc := parsed.Nodes[stmt.Root].Location
		if textOffset >= loc.Offset && textOffset <= loc.End() {
			return i, stmt.Root, true
		}
	}
	// Fall back to the last statement whose span starts before textOffset,
	// so a cursor just past the final token still resolves somewhere.
	for i := len(parsed.Statements) - 1; i >= 0; i-- {
		stmt := parsed.Statements[i]
		if stmt.Root == parser.InvalidNodeID {
			continue
		}
		if parsed.Nodes[stmt.Root].Location.Offset <= textOffset {
			return i, stmt.Root, true
		}
	}
	return 0, parser.InvalidNodeID, false
}

// descend repeatedly picks the unique child whose span contains textOffset,
// preferring exact containment over end==offset adjacency (spec.md §4.H).
// Markers re-emitted by parser.object/array are transparent: descend follows
// them down to the real child they point at.
func descend(parsed *parser.ParsedScript, node parser.NodeID, textOffset uint32) parser.NodeID {
	current := node
	for {
		n := parsed.Nodes[current]
		if !n.Type.IsObject() && n.Type != parser.NodeArray {
			return current
		}
		var best parser.NodeID = parser.InvalidNodeID
		bestIsAdjacency := true
		for i := n.ChildrenBeginOrValue; i < n.ChildrenBeginOrValue+n.ChildrenCount; i++ {
			marker := parsed.Nodes[i]
			childID := parser.NodeID(marker.ChildrenBeginOrValue)
			if childID == parser.InvalidNodeID || int(childID) >= len(parsed.Nodes) {
				continue
			}
			loc := parsed.Nodes[childID].Location
			if textOffset >= loc.Offset && textOffset < loc.End() {
				best = childID
				bestIsAdjacency = false
				break
			}
			if textOffset == loc.End() {
				// adjacency candidate; keep looking for an exact containment
				if best == parser.InvalidNodeID {
					best = childID
					bestIsAdjacency = true
				}
			}
		}
		if best == parser.InvalidNodeID {
			return current
		}
		_ = bestIsAdjacency
		current = best
	}
}

// scopeChain walks parent pointers from node up to the root, returning every
// Scope whose ASTNodeID is an ancestor (or node itself), innermost first.
func scopeChain(analyzed *analyzer.AnalyzedScript, node parser.NodeID) []*analyzer.Scope {
	byNode := make(map[parser.NodeID]*analyzer.Scope, len(analyzed.Scopes))
	for _, s := range analyzed.Scopes {
		byNode[s.ASTNodeID] = s
	}
	var out []*analyzer.Scope
	current := node
	seen := make(map[parser.NodeID]bool)
	for current != parser.InvalidNodeID && !seen[current] {
		seen[current] = true
		if s, ok := byNode[current]; ok {
			out = append(out, s)
		}
		current = analyzed.Parsed.Nodes[current].Parent
	}
	return out
}

// classify discriminates whether node sits inside a table reference or a
// column reference (spec.md §4.H's `context`).
func classify(analyzed *analyzer.AnalyzedScript, node parser.NodeID) Context {
	for _, ref := range analyzed.TableRefs {
		if nodeWithin(analyzed.Parsed, ref.ASTNodeID, node) {
			return Context{Kind: ContextTableRef, TableReferenceID: ref.ID, AtAlias: atAliasPosition(analyzed.Parsed, ref.ASTNodeID, node)}
		}
	}
	for _, expr := range analyzed.Expressions {
		if expr.Kind != analyzer.ExprUnresolvedColumnRef && expr.Kind != analyzer.ExprResolvedColumnRef {
			continue
		}
		if nodeWithin(analyzed.Parsed, expr.ASTNodeID, node) {
			return Context{Kind: ContextColumnRef, ExpressionID: expr.ID}
		}
	}
	return Context{Kind: ContextNone}
}

func nodeWithin(parsed *parser.ParsedScript, ancestor, node parser.NodeID) bool {
	current := node
	seen := make(map[parser.NodeID]bool)
	for current != parser.InvalidNodeID && !seen[current] {
		if current == ancestor {
			return true
		}
		seen[current] = true
		current = parsed.Nodes[current].Parent
	}
	return false
}

// atAliasPosition reports whether node sits at tableRef's alias attribute
// rather than its qualified name path.
func atAliasPosition(parsed *parser.ParsedScript, tableRef, node parser.NodeID) bool {
	n := parsed.Nodes[tableRef]
	if !n.Type.IsObject() {
		return false
	}
	for i := n.ChildrenBeginOrValue; i < n.ChildrenBeginOrValue+n.ChildrenCount; i++ {
		marker := parsed.Nodes[i]
		if marker.AttributeKey != parser.AttrTableRefAlias {
			continue
		}
		aliasChild := parser.NodeID(marker.ChildrenBeginOrValue)
		if nodeWithin(parsed, aliasChild, node) {
			return true
		}
	}
	return false
}
