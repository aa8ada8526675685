package analyzer

import (
	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/parser"
)

func (a *AnalyzedScript) analyzeCreateTable(stmt parser.Statement) {
	root := stmt.Root
	nameNode, _ := a.objectChild(root, parser.AttrCreateTableName)
	parts := a.qualifiedNameParts(nameNode)
	if len(parts) == 0 {
		return
	}

	var db, schema, table string
	switch len(parts) {
	case 1:
		table = parts[0]
	case 2:
		schema, table = parts[0], parts[1]
	default:
		db, schema, table = parts[0], parts[1], parts[len(parts)-1]
	}

	colsNode, _ := a.objectChild(root, parser.AttrCreateTableColumns)
	var colNames []string
	var colNameNodes []parser.NodeID
	for _, colDef := range a.arrayChildren(colsNode) {
		colNameNode, ok := a.objectChild(colDef, parser.AttrColumnDefName)
		if !ok {
			continue
		}
		colNames = append(colNames, a.nodeText(colNameNode))
		colNameNodes = append(colNameNodes, colNameNode)
	}

	decl := catalog.NewTableDeclaration(db, schema, table, colNames)
	a.TableDecls = append(a.TableDecls, decl)
	a.tableDeclNameNode = append(a.tableDeclNameNode, a.lastArrayChild(nameNode))
	a.tableDeclColumnNameNodes = append(a.tableDeclColumnNameNodes, colNameNodes)
}

// BindDeclaredObjectIDs registers ResolvedObjects back-references for this
// script's own CREATE TABLE declarations once a Catalog has assigned them
// real object ids (spec.md §4.B) — analysis runs before the script is loaded
// into a Catalog, so a declared table's own id isn't known until after
// Catalog.LoadScript; a caller (internal/script's orchestration) invokes this
// immediately afterward.
func (a *AnalyzedScript) BindDeclaredObjectIDs() {
	for i, decl := range a.TableDecls {
		if i < len(a.tableDeclNameNode) && a.tableDeclNameNode[i] != parser.InvalidNodeID {
			a.registerResolvedName(a.tableDeclNameNode[i], catalog.EncodeObjectID(decl.CatalogTableID))
		}
		if i >= len(a.tableDeclColumnNameNodes) {
			continue
		}
		for j, colNode := range a.tableDeclColumnNameNodes[i] {
			if j >= len(decl.Columns) {
				break
			}
			id := catalog.TableColumnObjectID(decl.CatalogTableID.A, uint32(decl.Columns[j].Index))
			a.registerResolvedName(colNode, catalog.EncodeObjectID(id))
		}
	}
}
