package registry

import (
	"testing"

	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/snippet"
)

type fakeScript struct {
	id      uint64
	version uint64
	exprs   map[uint32]ColumnRef
}

func (f *fakeScript) ScriptID() uint64      { return f.id }
func (f *fakeScript) AnalyzedVersion() uint64 { return f.version }
func (f *fakeScript) ExpressionStillRefers(expr uint32, col ColumnRef) bool {
	c, ok := f.exprs[expr]
	return ok && c == col
}
func (f *fakeScript) ColumnSnippets(col ColumnRef, restriction bool) []*snippet.ScriptSnippet { return nil }

func TestCollectColumnFiltersFindsScript(t *testing.T) {
	reg := New()
	col := ColumnRef{Table: catalog.TableObjectID(1), Column: 0}
	s := &fakeScript{id: 1, version: 1, exprs: map[uint32]ColumnRef{7: col}}

	reg.AddScript(s, []IndexedExpr{NewIndexedExpr(7, col)}, nil)

	got := reg.CollectColumnFilters(col)
	if len(got) != 1 || got[0].ScriptID() != 1 {
		t.Fatalf("expected script 1, got %+v", got)
	}
}

func TestStaleEntryEvictedOnHit(t *testing.T) {
	reg := New()
	col := ColumnRef{Table: catalog.TableObjectID(1), Column: 0}
	s := &fakeScript{id: 1, version: 1, exprs: map[uint32]ColumnRef{7: col}}
	reg.AddScript(s, []IndexedExpr{NewIndexedExpr(7, col)}, nil)

	// Script re-analyzed: bump version without re-indexing, so the stale
	// slot's version no longer matches.
	s.version = 2

	got := reg.CollectColumnFilters(col)
	if len(got) != 0 {
		t.Fatalf("expected stale entry evicted, got %+v", got)
	}
	if len(reg.restrictions) != 0 {
		t.Fatalf("expected stale entry removed from the set, got %d", len(reg.restrictions))
	}
}

func TestDropScriptRemovesAllEntries(t *testing.T) {
	reg := New()
	col1 := ColumnRef{Table: catalog.TableObjectID(1), Column: 0}
	col2 := ColumnRef{Table: catalog.TableObjectID(1), Column: 1}
	s := &fakeScript{id: 1, version: 1, exprs: map[uint32]ColumnRef{7: col1, 8: col2}}
	reg.AddScript(s, []IndexedExpr{NewIndexedExpr(7, col1)}, []IndexedExpr{NewIndexedExpr(8, col2)})

	reg.DropScript(1)

	if len(reg.CollectColumnFilters(col1)) != 0 {
		t.Fatalf("expected no filters after drop")
	}
	if len(reg.CollectColumnComputations(col2)) != 0 {
		t.Fatalf("expected no computations after drop")
	}
}

func TestReAddScriptReplacesOldEntries(t *testing.T) {
	reg := New()
	colOld := ColumnRef{Table: catalog.TableObjectID(1), Column: 0}
	colNew := ColumnRef{Table: catalog.TableObjectID(1), Column: 1}
	s := &fakeScript{id: 1, version: 1, exprs: map[uint32]ColumnRef{7: colOld}}
	reg.AddScript(s, []IndexedExpr{NewIndexedExpr(7, colOld)}, nil)

	s.version = 2
	s.exprs = map[uint32]ColumnRef{9: colNew}
	reg.AddScript(s, []IndexedExpr{NewIndexedExpr(9, colNew)}, nil)

	if len(reg.CollectColumnFilters(colOld)) != 0 {
		t.Fatalf("expected old column no longer indexed")
	}
	if len(reg.CollectColumnFilters(colNew)) != 1 {
		t.Fatalf("expected new column indexed")
	}
}
