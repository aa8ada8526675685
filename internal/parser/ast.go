// Package parser implements the flat AST and recursive-descent (Pratt-style)
// parser of spec.md §4.D. The node-construction helpers (Null, Bool, Name*,
// Const, Operator, Enum, Array, Object) follow the shape described there;
// the parser itself is hand-written in the style of the ha1tch-tsqlparser
// example repo's prefix/infix parse-function table, rather than generated
// from a grammar file (see SPEC_FULL.md §0 for why).
package parser

import (
	"github.com/dashql/dashql-go/internal/scanner"
	"github.com/dashql/dashql-go/internal/status"
)

// NodeID, StatementID index into a ParsedScript's flat arrays.
type NodeID uint32
type StatementID uint32

const InvalidNodeID NodeID = 0xFFFFFFFF

// NodeType partitions into contiguous ranges compared by threshold, per
// spec.md §3.2.
type NodeType uint16

const (
	NodeNone NodeType = iota

	// Leaves.
	NodeNameLeaf
	NodeBoolLeaf
	NodeOperatorLeaf
	NodeLiteralInteger
	NodeLiteralFloat
	NodeLiteralString
	NodeLiteralNull
	leafEnd

	NodeArray

	enumBeg
	EnumJoinType
	EnumOrderDirection
	EnumOrderNullsPos
	EnumStatementType
	enumEnd

	objectBeg
	ObjectSelectStatement
	ObjectSelectTarget
	ObjectTableRef
	ObjectJoinedTable
	ObjectColumnRef
	ObjectBinaryExpression
	ObjectComparisonExpression
	ObjectFunctionCall
	ObjectOrderByItem
	ObjectCreateTableStatement
	ObjectColumnDefinition
	objectEnd
)

func (t NodeType) IsLeaf() bool   { return t > NodeNone && t < leafEnd }
func (t NodeType) IsEnum() bool   { return t > enumBeg && t < enumEnd }
func (t NodeType) IsObject() bool { return t > objectBeg && t < objectEnd }

// AttributeKey identifies a child node's role within its parent object.
type AttributeKey uint16

const (
	AttrNone AttributeKey = iota
	AttrSelectDistinct
	AttrSelectTargets
	AttrSelectFrom
	AttrSelectWhere
	AttrSelectGroupBy
	AttrSelectHaving
	AttrSelectOrderBy
	AttrSelectLimit
	AttrSelectOffset
	AttrTargetExpr
	AttrTargetAlias
	AttrTableRefName
	AttrTableRefAlias
	AttrJoinLeft
	AttrJoinRight
	AttrJoinType
	AttrJoinOn
	AttrColumnRefPath
	AttrBinaryLeft
	AttrBinaryRight
	AttrBinaryOp
	AttrFuncName
	AttrFuncArgs
	AttrOrderExpr
	AttrOrderDirection
	AttrOrderNulls
	AttrCreateTableName
	AttrCreateTableColumns
	AttrColumnDefName
	AttrColumnDefType
)

// Node is the fixed-size flat AST record of spec.md §3.2.
type Node struct {
	Location             scanner.Location
	Type                 NodeType
	AttributeKey         AttributeKey
	Parent               NodeID
	ChildrenBeginOrValue uint32
	ChildrenCount        uint32
}

// StatementType classifies a top-level statement.
type StatementType int

const (
	StatementNone StatementType = iota
	StatementSelect
	StatementCreateTable
)

// Statement is one source-order top-level statement.
type Statement struct {
	Type      StatementType
	Root      NodeID
	NodesBegin uint32
	NodeCount  uint32
}

// ParsedScript is the output of parsing one ScannedScript, per spec.md §3.2.
type ParsedScript struct {
	Scanned    *scanner.ScannedScript
	Nodes      []Node
	Statements []Statement
	Errors     []status.Diagnostic
}

func toStatusLoc(l scanner.Location) status.Location {
	return status.Location{Offset: l.Offset, Length: l.Length}
}
