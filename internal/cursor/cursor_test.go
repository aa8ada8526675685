package cursor

import (
	"testing"

	"github.com/dashql/dashql-go/internal/analyzer"
	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/names"
	"github.com/dashql/dashql-go/internal/parser"
	"github.com/dashql/dashql-go/internal/scanner"
)

func scanAndParse(t *testing.T, text string) (*scanner.ScannedScript, *parser.ParsedScript) {
	t.Helper()
	scanned := scanner.Scan(text, 1)
	parsed := parser.Parse(scanned)
	if len(parsed.Errors) != 0 {
		t.Fatalf("unexpected parse errors for %q: %+v", text, parsed.Errors)
	}
	return scanned, parsed
}

func TestPlaceInsideColumnRef(t *testing.T) {
	text := "select a from t where a > 1"
	scanned, parsed := scanAndParse(t, text)
	cat := catalog.New()
	tbl := catalog.NewTableDeclaration("dashql", "public", "t", []string{"a"})
	_ = cat.LoadScript(&entryStub{id: 1, tables: []*catalog.TableDeclaration{tbl}}, 0)
	analyzed := analyzer.Analyze(2, parsed, cat)

	offset := uint32(len("select a from t where a"))
	c := Place(scanned, parsed, analyzed, offset)

	if !c.HasStatement {
		t.Fatalf("expected enclosing statement")
	}
	if c.Context.Kind != ContextColumnRef {
		t.Fatalf("expected ContextColumnRef, got %v", c.Context.Kind)
	}
}

func TestPlaceInsideTableRef(t *testing.T) {
	text := "select a from t"
	scanned, parsed := scanAndParse(t, text)
	analyzed := analyzer.Analyze(1, parsed, nil)

	offset := uint32(len("select a from t")) - 1
	c := Place(scanned, parsed, analyzed, offset)

	if c.Context.Kind != ContextTableRef {
		t.Fatalf("expected ContextTableRef, got %v", c.Context.Kind)
	}
}

func TestScopeChainNonEmpty(t *testing.T) {
	text := "select a from t"
	scanned, parsed := scanAndParse(t, text)
	analyzed := analyzer.Analyze(1, parsed, nil)

	offset := uint32(len("select a"))
	c := Place(scanned, parsed, analyzed, offset)
	if len(c.Scopes) == 0 {
		t.Fatalf("expected at least one enclosing scope")
	}
}

type entryStub struct {
	id     uint32
	tables []*catalog.TableDeclaration
}

func (e *entryStub) ExternalID() uint32 { return e.id }
func (e *entryStub) Tables() []*catalog.TableDeclaration { return e.tables }
func (e *entryStub) NameRegistry() *names.Registry { return catalog.NameRegistryForTables(e.tables) }
func (e *entryStub) ReferencedDatabases() []string { return []string{"dashql"} }
func (e *entryStub) ReferencedSchemas() []catalog.SchemaRef {
	return []catalog.SchemaRef{{DatabaseName: "dashql", SchemaName: "public"}}
}
