package analyzer

import (
	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/parser"
)

func (a *AnalyzedScript) analyzeSelect(stmt parser.Statement, cat *catalog.Catalog) {
	root := stmt.Root
	scope := &Scope{
		ID:                     ScopeID(len(a.Scopes)),
		ASTNodeID:              root,
		ReferencedTablesByName: make(map[string]TableReferenceID),
	}
	a.Scopes = append(a.Scopes, scope)

	if fromNode, ok := a.objectChild(root, parser.AttrSelectFrom); ok {
		a.collectFromItem(fromNode, scope, cat)
	}

	if targetsNode, ok := a.objectChild(root, parser.AttrSelectTargets); ok {
		for _, target := range a.arrayChildren(targetsNode) {
			if exprNode, ok := a.objectChild(target, parser.AttrTargetExpr); ok {
				a.collectExpression(exprNode, scope, true, false)
			}
		}
	}

	if whereNode, ok := a.objectChild(root, parser.AttrSelectWhere); ok {
		a.collectExpression(whereNode, scope, false, true)
	}
}

// collectFromItem walks a FROM clause's ObjectTableRef / ObjectJoinedTable
// tree, registering a TableReference per table and populating the scope's
// ReferencedTablesByName under both its alias (if any) and its bare table
// name (spec.md §4.E.1/§4.E.3).
func (a *AnalyzedScript) collectFromItem(node parser.NodeID, scope *Scope, cat *catalog.Catalog) {
	if node == parser.InvalidNodeID {
		return
	}
	n := a.Parsed.Nodes[node]
	switch n.Type {
	case parser.ObjectJoinedTable:
		if left, ok := a.objectChild(node, parser.AttrJoinLeft); ok {
			a.collectFromItem(left, scope, cat)
		}
		if right, ok := a.objectChild(node, parser.AttrJoinRight); ok {
			a.collectFromItem(right, scope, cat)
		}
		if on, ok := a.objectChild(node, parser.AttrJoinOn); ok {
			a.collectExpression(on, scope, false, true)
		}
	case parser.ObjectTableRef:
		nameNode, _ := a.objectChild(node, parser.AttrTableRefName)
		parts := a.qualifiedNameParts(nameNode)
		alias := ""
		if aliasNode, ok := a.objectChild(node, parser.AttrTableRefAlias); ok {
			alias = a.nodeText(aliasNode)
		}

		ref := &TableReference{
			ID:        TableReferenceID(len(a.TableRefs)),
			ASTNodeID: node,
			Alias:     alias,
			HasAlias:  alias != "",
		}
		ref.Inner.NamePath = parts
		if cat != nil && len(parts) > 0 {
			selected, alternatives := cat.ResolveTable(parts, a.externalID, 0)
			if selected != nil {
				ref.Inner.Resolved = true
				ref.Inner.Selected = selected
				ref.Inner.Alternatives = alternatives
			}
		}
		// Also resolve against tables this same script declares (a script
		// may both CREATE TABLE and SELECT FROM it before being loaded).
		if !ref.Inner.Resolved {
			if t := a.findLocalTable(parts); t != nil {
				ref.Inner.Resolved = true
				ref.Inner.Selected = &catalog.ResolvedTable{Table: t, EntryID: a.externalID}
			}
		}
		if ref.Inner.Resolved {
			if leaf := a.lastArrayChild(nameNode); leaf != parser.InvalidNodeID {
				a.registerResolvedName(leaf, catalog.EncodeObjectID(ref.Inner.Selected.Table.CatalogTableID))
			}
		}

		a.TableRefs = append(a.TableRefs, ref)
		scope.TableReferences = append(scope.TableReferences, ref.ID)

		tableName := parts[len(parts)-1]
		scope.ReferencedTablesByName[tableName] = ref.ID
		if ref.HasAlias {
			scope.ReferencedTablesByName[ref.Alias] = ref.ID
		}
	}
}

func (a *AnalyzedScript) findLocalTable(parts []string) *catalog.TableDeclaration {
	if len(parts) == 0 {
		return nil
	}
	table := parts[len(parts)-1]
	for _, t := range a.TableDecls {
		if t.TableName == table {
			return t
		}
	}
	return nil
}

// collectExpression reifies AST expression nodes as Expression variants
// (spec.md §4.E.4), recursing through comparisons/binary expressions/calls,
// and resolves column references within scope (spec.md §4.E.2).
func (a *AnalyzedScript) collectExpression(node parser.NodeID, scope *Scope, isProjection, isRestriction bool) ExpressionID {
	if node == parser.InvalidNodeID {
		return 0
	}
	n := a.Parsed.Nodes[node]

	expr := &Expression{
		ID:            ExpressionID(len(a.Expressions)),
		ASTNodeID:     node,
		IsProjection:  isProjection,
		IsRestriction: isRestriction,
	}

	switch n.Type {
	case parser.NodeLiteralInteger, parser.NodeLiteralFloat, parser.NodeLiteralString, parser.NodeLiteralNull, parser.NodeBoolLeaf:
		expr.Kind = ExprLiteral
		expr.IsConstant = true

	case parser.ObjectColumnRef:
		pathNode, _ := a.objectChild(node, parser.AttrColumnRefPath)
		parts := a.qualifiedNameParts(pathNode)
		expr.ColumnPath = parts
		expr.Kind = ExprUnresolvedColumnRef
		a.resolveColumnRef(expr, scope, isRestriction)
		if expr.Resolved != nil {
			if leaf := a.lastArrayChild(pathNode); leaf != parser.InvalidNodeID {
				a.registerResolvedName(leaf, catalog.EncodeObjectID(catalog.TableColumnObjectID(expr.Resolved.CatalogTableID.A, uint32(expr.Resolved.ColumnIndex))))
			}
		}

	case parser.ObjectFunctionCall:
		expr.Kind = ExprFunctionCall
		if argsNode, ok := a.objectChild(node, parser.AttrFuncArgs); ok {
			for _, argNode := range a.arrayChildren(argsNode) {
				a.collectExpression(argNode, scope, isProjection, isRestriction)
			}
		}

	case parser.ObjectComparisonExpression, parser.ObjectBinaryExpression:
		if n.Type == parser.ObjectComparisonExpression {
			expr.Kind = ExprComparison
		} else {
			expr.Kind = ExprBinary
		}
		if leftNode, ok := a.objectChild(node, parser.AttrBinaryLeft); ok {
			expr.LeftID = a.collectExpression(leftNode, scope, isProjection, isRestriction)
			expr.HasLeft = true
		}
		if rightNode, ok := a.objectChild(node, parser.AttrBinaryRight); ok {
			expr.RightID = a.collectExpression(rightNode, scope, isProjection, isRestriction)
			expr.HasRight = true
		}

	default:
		expr.Kind = ExprLiteral
		expr.IsConstant = true
	}

	a.Expressions = append(a.Expressions, expr)
	scope.Expressions = append(scope.Expressions, expr.ID)

	if isRestriction {
		a.NodeMarkers[node] = MarkerFilter
	} else if isProjection {
		a.NodeMarkers[node] = MarkerProjection
	}

	return expr.ID
}

// resolveColumnRef implements spec.md §4.E.2's qualified/unqualified column
// resolution against the scope's visible tables.
func (a *AnalyzedScript) resolveColumnRef(expr *Expression, scope *Scope, isRestriction bool) {
	parts := expr.ColumnPath
	if len(parts) == 0 {
		return
	}

	var candidateRefs []TableReferenceID
	var columnName string

	if len(parts) >= 2 {
		alias := parts[0]
		columnName = parts[len(parts)-1]
		if refID, ok := scope.ReferencedTablesByName[alias]; ok {
			candidateRefs = []TableReferenceID{refID}
		} else {
			return // qualifier doesn't resolve in scope; leave unresolved
		}
	} else {
		columnName = parts[0]
		for _, refID := range scope.TableReferences {
			candidateRefs = append(candidateRefs, refID)
		}
	}

	var resolved *ResolvedColumn
	matches := 0
	for _, refID := range candidateRefs {
		ref := a.TableRefs[refID]
		if !ref.Inner.Resolved {
			continue
		}
		t := ref.Inner.Selected.Table
		if idx, ok := t.ColumnsByName[columnName]; ok {
			matches++
			resolved = &ResolvedColumn{
				CatalogDatabaseID: t.CatalogDatabaseID,
				CatalogSchemaID:   t.CatalogSchemaID,
				CatalogTableID:    t.CatalogTableID,
				ColumnIndex:       idx,
			}
		}
	}
	if matches == 1 {
		expr.Kind = ExprResolvedColumnRef
		expr.Resolved = resolved
	}
}
