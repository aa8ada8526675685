package fixture

import (
	"testing"

	"github.com/dashql/dashql-go/internal/catalog"
)

func TestGenerateTableIsDeterministic(t *testing.T) {
	a := NewGenerator(42).GenerateTable("db", "public", 4)
	b := NewGenerator(42).GenerateTable("db", "public", 4)
	if a.Decl.TableName != b.Decl.TableName {
		t.Fatalf("expected same table name for same seed, got %q vs %q", a.Decl.TableName, b.Decl.TableName)
	}
	if len(a.Decl.Columns) != 4 || len(b.Decl.Columns) != 4 {
		t.Fatalf("expected 4 columns, got %d and %d", len(a.Decl.Columns), len(b.Decl.Columns))
	}
	for i := range a.Decl.Columns {
		if a.Decl.Columns[i].Name != b.Decl.Columns[i].Name {
			t.Fatalf("column %d differs across identically-seeded generators", i)
		}
	}
}

func TestGenerateTableColumnsAreUnique(t *testing.T) {
	g := NewGenerator(7)
	table := g.GenerateTable("db", "public", 6)
	seen := make(map[string]bool)
	for _, c := range table.Decl.Columns {
		if seen[c.Name] {
			t.Fatalf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
	}
}

func TestCreateTableTextIncludesAllColumns(t *testing.T) {
	g := NewGenerator(1)
	table := g.GenerateTable("db", "public", 3)
	text := table.CreateTableText()
	for _, c := range table.Decl.Columns {
		if !contains(text, c.Name) {
			t.Fatalf("expected CreateTableText to mention column %q, got %q", c.Name, text)
		}
	}
}

func TestLoadSchemaPopulatesCatalog(t *testing.T) {
	g := NewGenerator(9)
	cat := catalog.New()
	before := cat.Version()

	tables, err := g.LoadSchema(cat, 1, "db", "public", 3, 2)
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	if len(tables) != 3 {
		t.Fatalf("expected 3 generated tables, got %d", len(tables))
	}
	if cat.Version() == before {
		t.Fatalf("expected LoadSchema to advance the catalog version")
	}
	for _, table := range tables {
		if table.Decl.CatalogTableID == (catalog.ObjectID{}) {
			t.Fatalf("expected loaded table to receive a catalog object id")
		}
	}
}

func TestSelectTextReferencesGeneratedTable(t *testing.T) {
	g := NewGenerator(3)
	table := g.GenerateTable("db", "public", 2)
	text := g.SelectText(table)
	if !contains(text, table.Decl.TableName) {
		t.Fatalf("expected select text to reference table %q, got %q", table.Decl.TableName, text)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return needle == ""
}
