package ingest

import (
	"testing"

	"github.com/dashql/dashql-go/internal/catalog"
)

func TestParseCreateTablesExtractsColumns(t *testing.T) {
	decls, err := ParseCreateTables(`CREATE TABLE public.orders (id int PRIMARY KEY, amount numeric, customer_id int);`)
	if err != nil {
		t.Fatalf("ParseCreateTables: %v", err)
	}
	if len(decls) != 1 {
		t.Fatalf("expected one declaration, got %d", len(decls))
	}
	decl := decls[0]
	if decl.TableName != "orders" {
		t.Fatalf("expected table name orders, got %q", decl.TableName)
	}
	if decl.SchemaName != "public" {
		t.Fatalf("expected schema public, got %q", decl.SchemaName)
	}
	want := []string{"id", "amount", "customer_id"}
	if len(decl.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(decl.Columns))
	}
	for i, name := range want {
		if decl.Columns[i].Name != name {
			t.Fatalf("column %d: expected %q, got %q", i, name, decl.Columns[i].Name)
		}
	}
}

func TestParseCreateTablesDefaultsUnqualifiedSchema(t *testing.T) {
	decls, err := ParseCreateTables(`CREATE TABLE widgets (id int);`)
	if err != nil {
		t.Fatalf("ParseCreateTables: %v", err)
	}
	if len(decls) != 1 {
		t.Fatalf("expected one declaration, got %d", len(decls))
	}
	if decls[0].SchemaName != "public" {
		t.Fatalf("expected default schema public, got %q", decls[0].SchemaName)
	}
}

func TestParseCreateTablesIgnoresNonCreateTableStatements(t *testing.T) {
	decls, err := ParseCreateTables(`SELECT 1; CREATE TABLE t (id int); DROP TABLE other;`)
	if err != nil {
		t.Fatalf("ParseCreateTables: %v", err)
	}
	if len(decls) != 1 || decls[0].TableName != "t" {
		t.Fatalf("expected only the CREATE TABLE statement to be ingested, got %+v", decls)
	}
}

func TestParseCreateTablesSkipsTableLevelConstraints(t *testing.T) {
	decls, err := ParseCreateTables(`CREATE TABLE t (id int, amount int, CONSTRAINT t_pk PRIMARY KEY (id));`)
	if err != nil {
		t.Fatalf("ParseCreateTables: %v", err)
	}
	if len(decls[0].Columns) != 2 {
		t.Fatalf("expected table-level constraint to contribute no column, got %+v", decls[0].Columns)
	}
}

func TestParseCreateTablesRejectsInvalidSQL(t *testing.T) {
	if _, err := ParseCreateTables(`CREATE TABLE (((`); err == nil {
		t.Fatalf("expected a parse error for malformed DDL")
	}
}

func TestLoadDDLPopulatesCatalog(t *testing.T) {
	cat := catalog.New()
	before := cat.Version()

	decls, err := LoadDDL(cat, 1, `CREATE TABLE t (id int); CREATE TABLE u (id int, t_id int);`)
	if err != nil {
		t.Fatalf("LoadDDL: %v", err)
	}
	if len(decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(decls))
	}
	if cat.Version() == before {
		t.Fatalf("expected LoadDDL to advance the catalog version")
	}
	for _, d := range decls {
		if d.CatalogTableID == (catalog.ObjectID{}) {
			t.Fatalf("expected table %q to receive a catalog object id", d.TableName)
		}
	}
}

func TestLoadDDLWithNoCreateTableIsNoop(t *testing.T) {
	cat := catalog.New()
	decls, err := LoadDDL(cat, 1, `SELECT 1;`)
	if err != nil {
		t.Fatalf("LoadDDL: %v", err)
	}
	if decls != nil {
		t.Fatalf("expected no declarations, got %+v", decls)
	}
}
