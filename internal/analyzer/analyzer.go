// Package analyzer implements the fixed analysis pipeline of spec.md §4.E:
// name resolution, column-ref resolution, table-ref resolution, expression
// classification, and marker propagation, producing an AnalyzedScript that
// also satisfies catalog.Entry so it can be loaded into a Catalog.
//
// The resolution algorithm shapes (scope stacks tracking visible aliases,
// qualified-name arity dispatch, ambiguity detection) are grounded on the
// teacher's pkg/pg_lineage/resolver.go (buildScope/resolveColumn), adapted
// from pg_query_go's generic JSON AST to this module's own flat parser.Node
// array.
package analyzer

import (
	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/names"
	"github.com/dashql/dashql-go/internal/parser"
	"github.com/dashql/dashql-go/internal/status"
)

// ExpressionID, TableReferenceID, ScopeID are local (per-entry) object ids;
// spec.md §3.1's ContextObjectID == (catalog_entry_id, local_index) is
// modeled by the AnalyzedScript owning them and exposing the local index.
type ExpressionID uint32
type TableReferenceID uint32
type ScopeID uint32

// TableRefInner is the tagged union of spec.md's UnresolvedRelationExpression
// / ResolvedRelationExpression, grounded on original_source/script.h's
// AnalyzedScript::TableReference.
type TableRefInner struct {
	Resolved     bool
	NamePath     []string
	Selected     *catalog.ResolvedTable
	Alternatives []*catalog.ResolvedTable
}

// TableReference is spec.md §3.5's table reference.
type TableReference struct {
	ID         TableReferenceID
	ASTNodeID  parser.NodeID
	Alias      string
	HasAlias   bool
	Inner      TableRefInner
}

// ExpressionKind discriminates Expression.Inner's variant, per spec.md §3.5.
type ExpressionKind int

const (
	ExprUnresolvedColumnRef ExpressionKind = iota
	ExprResolvedColumnRef
	ExprLiteral
	ExprComparison
	ExprBinary
	ExprFunctionCall
)

// ResolvedColumn is the payload of a resolved column reference.
type ResolvedColumn struct {
	CatalogDatabaseID uint32
	CatalogSchemaID   uint32
	CatalogTableID    catalog.ObjectID
	ColumnIndex       int
	CatalogVersion    uint64
}

// Expression is spec.md §3.5's expression.
type Expression struct {
	ID           ExpressionID
	ASTNodeID    parser.NodeID
	Kind         ExpressionKind
	ColumnPath   []string // for (un)resolved column refs
	Resolved     *ResolvedColumn
	IsConstant   bool
	IsProjection bool
	IsRestriction bool
	LeftID       ExpressionID
	RightID      ExpressionID
	HasLeft      bool
	HasRight     bool
}

// Scope is spec.md §3.5's name scope.
type Scope struct {
	ID                    ScopeID
	ASTNodeID             parser.NodeID
	ParentScope           ScopeID
	HasParent             bool
	ChildScopes           []ScopeID
	Expressions           []ExpressionID
	TableReferences       []TableReferenceID
	ReferencedTablesByName map[string]TableReferenceID
}

// MarkerType flags semantic roles used by the snippet extractor (spec.md §4.E.5).
type MarkerType int

const (
	MarkerNone MarkerType = iota
	MarkerFilter
	MarkerComputation
	MarkerProjection
)

// AnalyzedScript is the output of the analyzer pipeline and a catalog.Entry.
type AnalyzedScript struct {
	externalID uint32
	Parsed     *parser.ParsedScript
	NameReg    *names.Registry

	TableDecls []*catalog.TableDeclaration // from CREATE TABLE statements in this script
	tableDeclNameNode        []parser.NodeID   // parallel to TableDecls: the table name leaf
	tableDeclColumnNameNodes [][]parser.NodeID // parallel to TableDecls: each column's name leaf
	TableRefs  []*TableReference
	Expressions []*Expression
	Scopes     []*Scope
	NodeMarkers []MarkerType

	Errors []status.Diagnostic

	// CatalogVersionObserved is stamped once this script's table/column refs
	// were resolved against a Catalog (spec.md §3.6, §8.1).
	CatalogVersionObserved uint64
}

func (a *AnalyzedScript) ExternalID() uint32 { return a.externalID }
func (a *AnalyzedScript) Tables() []*catalog.TableDeclaration { return a.TableDecls }
func (a *AnalyzedScript) NameRegistry() *names.Registry { return a.NameReg }

func (a *AnalyzedScript) ReferencedDatabases() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range a.TableDecls {
		if !seen[t.DatabaseName] {
			seen[t.DatabaseName] = true
			out = append(out, t.DatabaseName)
		}
	}
	for _, tr := range a.TableRefs {
		if len(tr.Inner.NamePath) >= 3 {
			db := tr.Inner.NamePath[0]
			if !seen[db] {
				seen[db] = true
				out = append(out, db)
			}
		}
	}
	return out
}

func (a *AnalyzedScript) ReferencedSchemas() []catalog.SchemaRef {
	seen := map[catalog.SchemaRef]bool{}
	var out []catalog.SchemaRef
	for _, t := range a.TableDecls {
		ref := catalog.SchemaRef{DatabaseName: t.DatabaseName, SchemaName: t.SchemaName}
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

// Analyze runs the fixed pipeline of spec.md §4.E over parsed, resolving
// table/column references against the tables this script declares itself and
// against cat (which may be nil, in which case only this script's own
// declarations resolve — analysis never fails outright, per spec.md §4.E's
// failure semantics).
func Analyze(externalID uint32, parsed *parser.ParsedScript, cat *catalog.Catalog) *AnalyzedScript {
	a := &AnalyzedScript{
		externalID: externalID,
		Parsed:     parsed,
		NameReg:    parsed.Scanned.NameReg,
	}
	a.NodeMarkers = make([]MarkerType, len(parsed.Nodes))

	for _, stmt := range parsed.Statements {
		switch stmt.Type {
		case parser.StatementCreateTable:
			a.analyzeCreateTable(stmt)
		case parser.StatementSelect:
			a.analyzeSelect(stmt, cat)
		}
	}

	if cat != nil {
		a.CatalogVersionObserved = cat.Version()
	}
	return a
}

func (a *AnalyzedScript) nodeText(id parser.NodeID) string {
	n := a.Parsed.Nodes[id]
	if n.Type != parser.NodeNameLeaf {
		return ""
	}
	rn := a.NameReg.Get(names.ID(n.ChildrenBeginOrValue))
	if rn == nil {
		return ""
	}
	return rn.Text
}

// arrayChildren resolves an ARRAY node's attribute-marker-wrapped children
// back to their real node ids (see parser.array's encoding).
func (a *AnalyzedScript) arrayChildren(arr parser.NodeID) []parser.NodeID {
	if arr == parser.InvalidNodeID {
		return nil
	}
	n := a.Parsed.Nodes[arr]
	if n.Type != parser.NodeArray {
		return nil
	}
	out := make([]parser.NodeID, 0, n.ChildrenCount)
	for i := n.ChildrenBeginOrValue; i < n.ChildrenBeginOrValue+n.ChildrenCount; i++ {
		marker := a.Parsed.Nodes[i]
		out = append(out, parser.NodeID(marker.ChildrenBeginOrValue))
	}
	return out
}

// objectChild returns the child node id of object's attribute key, if present.
func (a *AnalyzedScript) objectChild(object parser.NodeID, key parser.AttributeKey) (parser.NodeID, bool) {
	if object == parser.InvalidNodeID {
		return parser.InvalidNodeID, false
	}
	n := a.Parsed.Nodes[object]
	if !n.Type.IsObject() {
		return parser.InvalidNodeID, false
	}
	for i := n.ChildrenBeginOrValue; i < n.ChildrenBeginOrValue+n.ChildrenCount; i++ {
		marker := a.Parsed.Nodes[i]
		if marker.AttributeKey == key {
			return parser.NodeID(marker.ChildrenBeginOrValue), true
		}
	}
	return parser.InvalidNodeID, false
}

// lastArrayChild returns the real node id of an ARRAY node's last element,
// used to anchor a ResolvedObjects back-reference on a qualified name path's
// final component (the table or column name itself).
func (a *AnalyzedScript) lastArrayChild(arr parser.NodeID) parser.NodeID {
	children := a.arrayChildren(arr)
	if len(children) == 0 {
		return parser.InvalidNodeID
	}
	return children[len(children)-1]
}

// registerResolvedName records that the NAME leaf at id now resolves to
// objectID, so internal/completion's identifier-candidate collection can
// surface it (spec.md §4.B's ResolvedObjects back-reference).
func (a *AnalyzedScript) registerResolvedName(id parser.NodeID, objectID uint64) {
	n := a.Parsed.Nodes[id]
	if n.Type != parser.NodeNameLeaf {
		return
	}
	a.NameReg.AddResolvedObject(names.ID(n.ChildrenBeginOrValue), objectID)
}

func (a *AnalyzedScript) qualifiedNameParts(pathNode parser.NodeID) []string {
	var out []string
	for _, c := range a.arrayChildren(pathNode) {
		out = append(out, a.nodeText(c))
	}
	return out
}
