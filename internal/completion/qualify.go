package completion

import "github.com/dashql/dashql-go/internal/catalog"

// qualify implements spec.md §4.I.9: derive default qualified names for
// table/column candidate objects, mark candidates whose objects span more
// than one table/column as preferring qualification, then rewrite column
// qualifications to `alias.column` for any in-scope table-ref that has an
// alias.
func qualify(req *Request, strategy Strategy, candidates []Candidate) {
	if req.Analyzed == nil {
		return
	}

	declByTableID := make(map[catalog.ObjectID]*catalog.TableDeclaration)
	for _, ref := range req.Analyzed.TableRefs {
		if ref.Inner.Resolved {
			declByTableID[ref.Inner.Selected.Table.CatalogTableID] = ref.Inner.Selected.Table
		}
	}

	for ci := range candidates {
		c := &candidates[ci]
		tableObjects, columnObjects := 0, 0
		for _, o := range c.Objects {
			switch o.ObjectID.Kind {
			case catalog.KindTable:
				tableObjects++
				if t, ok := declByTableID[o.ObjectID]; ok {
					o.QualifiedName = qualifiedTableParts(t)
				}
			case catalog.KindTableColumn:
				columnObjects++
				tableID := catalog.TableObjectID(o.ObjectID.A)
				if t, ok := declByTableID[tableID]; ok && int(o.ObjectID.B) < len(t.Columns) {
					o.QualifiedName = append(qualifiedTableParts(t), t.Columns[o.ObjectID.B].Name)
				}
			}
		}
		c.PreferQualified = tableObjects > 1 || columnObjects > 1
	}

	// Alias rewrite: for every table-ref in scope with an alias, rewrite
	// matching column candidates to alias.column.
	for _, scope := range req.Cursor.Scopes {
		for _, refID := range scope.TableReferences {
			ref := req.Analyzed.TableRefs[refID]
			if !ref.HasAlias || !ref.Inner.Resolved {
				continue
			}
			tableID := ref.Inner.Selected.Table.CatalogTableID
			for ci := range candidates {
				c := &candidates[ci]
				for _, o := range c.Objects {
					if o.ObjectID.Kind != catalog.KindTableColumn || o.ObjectID.A != tableID.A {
						continue
					}
					if t, ok := declByTableID[tableID]; ok && int(o.ObjectID.B) < len(t.Columns) {
						o.QualifiedName = []string{ref.Alias, t.Columns[o.ObjectID.B].Name}
						c.PreferQualified = true
					}
				}
			}
		}
	}
}

func qualifiedTableParts(t *catalog.TableDeclaration) []string {
	var parts []string
	if t.DatabaseName != "" {
		parts = append(parts, t.DatabaseName)
	}
	if t.SchemaName != "" {
		parts = append(parts, t.SchemaName)
	}
	parts = append(parts, t.TableName)
	return parts
}
