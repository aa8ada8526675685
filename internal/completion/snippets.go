package completion

import (
	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/registry"
	"github.com/dashql/dashql-go/internal/snippet"
)

// attachSnippets implements spec.md §4.I.10: for every table-column
// candidate object, pull the restriction and transform snippets other
// scripts have written over that column from the registry, deduplicated by
// structural template signature, and attach one representative snippet per
// distinct signature.
func attachSnippets(req *Request, candidates []Candidate) {
	for ci := range candidates {
		c := &candidates[ci]
		for _, o := range c.Objects {
			if o.ObjectID.Kind != catalog.KindTableColumn {
				continue
			}
			col := registry.ColumnRef{Table: catalog.TableObjectID(o.ObjectID.A), Column: o.ObjectID.B}
			o.Snippets = collectColumnSnippets(req.Registry, col)
		}
	}
}

func collectColumnSnippets(reg *registry.Registry, col registry.ColumnRef) []*snippet.ScriptSnippet {
	bySignature := make(map[uint64]*snippet.ScriptSnippet)
	var order []uint64
	addFrom := func(handles []registry.ScriptHandle, restriction bool) {
		for _, h := range handles {
			for _, s := range h.ColumnSnippets(col, restriction) {
				sig := s.TemplateSignature()
				if _, ok := bySignature[sig]; ok {
					continue
				}
				bySignature[sig] = s
				order = append(order, sig)
			}
		}
	}
	addFrom(reg.CollectColumnFilters(col), true)
	addFrom(reg.CollectColumnComputations(col), false)

	out := make([]*snippet.ScriptSnippet, 0, len(order))
	for _, sig := range order {
		out = append(out, bySignature[sig])
	}
	return out
}
