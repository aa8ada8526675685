package completion

import (
	"github.com/dashql/dashql-go/internal/analyzer"
	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/registry"
)

// promoteIdentifiersInScope implements spec.md §4.I.6's PromoteIdentifiersInScope:
// for every enclosing scope's resolved table-refs, OR IN_NAME_SCOPE into
// candidate objects for all of that table's columns, and similarly for
// already-resolved column-refs in scope. The innermost scope (index 0,
// "innermost first" per cursor.Cursor.Scopes) additionally gets
// IN_SAME_STATEMENT: the analyzer's Scope carries no statement id to compare
// against directly, so the innermost enclosing scope stands in for "same
// statement as the cursor".
func promoteIdentifiersInScope(req *Request, byID map[catalog.ObjectID]*CandidateObject) {
	if req.Analyzed == nil {
		return
	}
	for scopeIdx, scope := range req.Cursor.Scopes {
		sameStatement := scopeIdx == 0
		for _, refID := range scope.TableReferences {
			ref := req.Analyzed.TableRefs[refID]
			if !ref.Inner.Resolved {
				continue
			}
			t := ref.Inner.Selected.Table
			for _, col := range t.Columns {
				id := catalog.TableColumnObjectID(uint32(t.CatalogTableID.A), uint32(col.Index))
				if o, ok := byID[id]; ok {
					o.Tags |= TagInNameScope
					if sameStatement {
						o.Tags |= TagInSameStatement
					}
				}
			}
		}
		for _, exprID := range scope.Expressions {
			expr := req.Analyzed.Expressions[exprID]
			if expr.Resolved == nil {
				continue
			}
			id := catalog.TableColumnObjectID(uint32(expr.Resolved.CatalogTableID.A), uint32(expr.Resolved.ColumnIndex))
			if o, ok := byID[id]; ok {
				o.Tags |= TagInNameScope
				if sameStatement {
					o.Tags |= TagInSameStatement
				}
			}
		}
	}
}

// promoteIdentifiersInScripts implements spec.md §4.I.6's
// PromoteIdentifiersInScripts: for every already-collected column candidate,
// consult the secondary registry for other scripts that filter or compute
// over the same column, OR-ing IN_SAME_SCRIPT for hits from the script being
// completed and IN_OTHER_SCRIPT for hits from any other script.
func promoteIdentifiersInScripts(req *Request, byID map[catalog.ObjectID]*CandidateObject) {
	if req.Registry == nil || req.Analyzed == nil {
		return
	}
	selfScriptID := uint64(req.Analyzed.ExternalID())
	for id, o := range byID {
		if id.Kind != catalog.KindTableColumn {
			continue
		}
		col := registry.ColumnRef{Table: catalog.TableObjectID(id.A), Column: id.B}
		handles := req.Registry.CollectColumnFilters(col)
		handles = append(handles, req.Registry.CollectColumnComputations(col)...)
		for _, h := range handles {
			if h.ScriptID() == selfScriptID {
				o.Tags |= TagInSameScript
			} else {
				o.Tags |= TagInOtherScript
			}
		}
	}
}

// promoteTablesAndPeersForUnresolvedColumns implements spec.md §4.I.6's
// PromoteTablesAndPeersForUnresolvedColumns: for each unresolved column
// reference in scope, resolve its name against the whole catalog and OR
// RESOLVING_TABLE into the owning table candidate, UNRESOLVED_PEER into its
// sibling columns.
func promoteTablesAndPeersForUnresolvedColumns(req *Request, byID map[catalog.ObjectID]*CandidateObject) {
	if req.Analyzed == nil || req.Catalog == nil {
		return
	}
	for _, scope := range req.Cursor.Scopes {
		for _, exprID := range scope.Expressions {
			expr := req.Analyzed.Expressions[exprID]
			if expr.Kind != analyzer.ExprUnresolvedColumnRef || len(expr.ColumnPath) == 0 {
				continue
			}
			columnName := expr.ColumnPath[len(expr.ColumnPath)-1]
			for _, rt := range req.Catalog.ResolveTableColumns(columnName) {
				tableID := rt.Table.CatalogTableID
				if o, ok := byID[tableID]; ok {
					o.Tags |= TagResolvingTable
				}
				for _, col := range rt.Table.Columns {
					id := catalog.TableColumnObjectID(uint32(tableID.A), uint32(col.Index))
					if o, ok := byID[id]; ok {
						o.Tags |= TagUnresolvedPeer
					}
				}
			}
		}
	}
}
