package script

import (
	"testing"

	"github.com/dashql/dashql-go/internal/analyzer"
	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/completion"
	"github.com/dashql/dashql-go/internal/registry"
)

func TestScanParseAnalyzeCaching(t *testing.T) {
	s := New(1, nil, nil)
	s.ReplaceText("select a from t where a = 1")

	scanned1 := s.Scan()
	scanned2 := s.Scan()
	if scanned1 != scanned2 {
		t.Fatalf("expected cached scan on unchanged text")
	}

	parsed1 := s.Parse()
	parsed2 := s.Parse()
	if parsed1 != parsed2 {
		t.Fatalf("expected cached parse on unchanged scan")
	}

	analyzed1, err := s.Analyze(true)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	analyzed2, err := s.Analyze(true)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analyzed1 != analyzed2 {
		t.Fatalf("expected cached analysis when nothing changed")
	}
}

func TestEditInvalidatesCache(t *testing.T) {
	s := New(1, nil, nil)
	s.ReplaceText("select a from t")
	scanned1 := s.Scan()

	s.InsertTextAt(0, "-- comment\n")
	scanned2 := s.Scan()
	if scanned1 == scanned2 {
		t.Fatalf("expected a fresh scan after an edit")
	}
}

func TestAnalyzeLoadsIntoCatalogAndBindsDeclaredTable(t *testing.T) {
	cat := catalog.New()
	s := New(1, cat, nil)
	s.ReplaceText("create table t (id int, amount int)")

	analyzed, err := s.Analyze(true)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(analyzed.TableDecls) != 1 {
		t.Fatalf("expected one declared table, got %d", len(analyzed.TableDecls))
	}
	if analyzed.TableDecls[0].CatalogTableID == (catalog.ObjectID{}) {
		t.Fatalf("expected the declared table to receive a catalog object id")
	}
}

func TestRegistryWiringTracksRestrictions(t *testing.T) {
	cat := catalog.New()
	reg := registry.New()

	decl := New(100, cat, reg)
	decl.ReplaceText("create table orders (id int, amount int)")
	if _, err := decl.Analyze(true); err != nil {
		t.Fatalf("analyze decl: %v", err)
	}

	query := New(101, cat, reg)
	query.ReplaceText("select id from orders where amount = 1")
	if _, err := query.Analyze(true); err != nil {
		t.Fatalf("analyze query: %v", err)
	}

	var col registry.ColumnRef
	found := false
	for _, e := range query.analyzed.Expressions {
		if e.Kind != analyzer.ExprResolvedColumnRef {
			continue
		}
		if e.IsRestriction {
			col = registry.ColumnRef{Table: e.Resolved.CatalogTableID, Column: uint32(e.Resolved.ColumnIndex)}
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a resolved restriction column in the query script")
	}
	handles := reg.CollectColumnFilters(col)
	if len(handles) != 1 || handles[0].ScriptID() != 101 {
		t.Fatalf("expected the query script registered as a restriction, got %+v", handles)
	}
}

func TestCompleteAtCursorAnalyzesLazily(t *testing.T) {
	s := New(1, nil, nil)
	s.ReplaceText("select a fr")
	candidates, err := s.CompleteAtCursor(uint32(len("select a fr")), 10, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	found := false
	for _, c := range candidates {
		if c.Name == "from" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a FROM keyword candidate, got %+v", candidates)
	}
}

func TestSelectCompletionCandidateAtCursorRoundTrips(t *testing.T) {
	s := New(1, nil, nil)
	s.ReplaceText("select a fr")
	offset := uint32(len("select a fr"))
	candidates, err := s.CompleteAtCursor(offset, 10, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatalf("expected at least one candidate")
	}
	got, err := s.SelectCompletionCandidateAtCursor(0)
	if err != nil {
		t.Fatalf("select candidate: %v", err)
	}
	if got.Name != candidates[0].Name {
		t.Fatalf("expected selected candidate to match candidates[0], got %q vs %q", got.Name, candidates[0].Name)
	}
}

func TestSelectCompletionCandidateAtCursorIncompatibleAfterEdit(t *testing.T) {
	s := New(1, nil, nil)
	s.ReplaceText("select a fr")
	offset := uint32(len("select a fr"))
	if _, err := s.CompleteAtCursor(offset, 10, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	s.InsertTextAt(0, "-- edited\n")
	if _, err := s.Analyze(true); err != nil {
		t.Fatalf("re-analyze: %v", err)
	}
	if _, err := s.SelectCompletionCandidateAtCursor(0); err == nil {
		t.Fatalf("expected COMPLETION_STATE_INCOMPATIBLE after an intervening edit")
	}
}

func TestSelectCompletionCandidateAtCursorIncompatibleWithoutPriorCompletion(t *testing.T) {
	s := New(1, nil, nil)
	s.ReplaceText("select a fr")
	if _, err := s.SelectCompletionCandidateAtCursor(0); err == nil {
		t.Fatalf("expected COMPLETION_STATE_INCOMPATIBLE with no prior completion")
	}
}

func TestRegistryWiredCompletionAttachesSnippets(t *testing.T) {
	cat := catalog.New()
	reg := registry.New()

	decl := New(100, cat, reg)
	decl.ReplaceText("create table orders (id int, amount int)")
	if _, err := decl.Analyze(true); err != nil {
		t.Fatalf("analyze decl: %v", err)
	}

	filter := New(101, cat, reg)
	filter.ReplaceText("select id from orders where amount = 1")
	if _, err := filter.Analyze(true); err != nil {
		t.Fatalf("analyze filter: %v", err)
	}

	query := New(102, cat, reg)
	text := "select amount from orders where a"
	query.ReplaceText(text)
	candidates, err := query.CompleteAtCursor(uint32(len(text)), 10, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	foundSnippet := false
	for _, c := range candidates {
		for _, o := range c.Objects {
			if o.Tags.Has(completion.TagInOtherScript) {
				foundSnippet = true
			}
			if len(o.Snippets) > 0 {
				foundSnippet = true
			}
		}
	}
	if !foundSnippet {
		t.Fatalf("expected the amount column candidate to show cross-script usage, got %+v", candidates)
	}
}

func TestCloseTwiceDoesNotPanic(t *testing.T) {
	cat := catalog.New()
	reg := registry.New()
	s := New(5, cat, reg)
	s.ReplaceText("create table t (id int)")
	if _, err := s.Analyze(true); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	s.Close()
	// Dropping should not panic on a script that was never re-added.
	s.Close()
}
