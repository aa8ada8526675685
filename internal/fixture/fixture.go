// Package fixture generates synthetic catalogs and scripts for tests and
// cmd/fixturegen, per SPEC_FULL.md §2's domain stack.
//
// Grounded on the teacher's pkg/fixgres_demo (struct-tag-driven
// faker.FakeData generation, e.g. `User{Email string `faker:"email"`}`)
// adapted from generating fake row data for a live Postgres insert to
// generating fake table/column names and SELECT script text for an
// in-memory Catalog. Determinism is carried the way cmd/faker_test pins it:
// seeding the RNG faker draws from (here via the teacher's pkg/prng, there
// via `rand.New(rand.NewSource(seed))` fed to `faker.SetCryptoSource`).
package fixture

import (
	"fmt"
	"math/rand"
	"strings"

	faker "github.com/go-faker/faker/v4"

	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/names"
	"github.com/dashql/dashql-go/pkg/prng"
)

// nameSeed is filled by faker.FakeData per table/column, the same
// struct-tag-driven shape the teacher's fixgres_demo.User uses.
type nameSeed struct {
	Word string `faker:"word"`
}

// Generator produces deterministic synthetic catalogs/scripts from one seed.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a Generator seeded deterministically, and points
// faker's own crypto source at the same seed so every name it fabricates is
// reproducible across runs (grounded on cmd/faker_test's
// faker.SetCryptoSource(rand.New(rand.NewSource(seed))) pattern).
func NewGenerator(seed int64) *Generator {
	faker.SetCryptoSource(prng.New(seed))
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) word() string {
	var s nameSeed
	if err := faker.FakeData(&s); err != nil || s.Word == "" {
		return fmt.Sprintf("word%d", g.rng.Intn(1_000_000))
	}
	return strings.ToLower(s.Word)
}

// columnTypes mirrors the handful of types internal/parser's column
// definitions recognize; fixture generation doesn't need the full SQL type
// grammar, just plausible names.
var columnTypes = []string{"int", "text", "bool", "float", "timestamp"}

// GeneratedTable is a fabricated table declaration plus its column types
// (TableDeclaration itself doesn't carry types, only names, per spec.md
// §3.4; CREATE TABLE script text generation needs the types too).
type GeneratedTable struct {
	Decl        *catalog.TableDeclaration
	ColumnTypes map[string]string
}

// GenerateTable fabricates one table with columnCount columns.
func (g *Generator) GenerateTable(db, schema string, columnCount int) *GeneratedTable {
	tableName := g.word()
	seen := make(map[string]bool)
	var columns []string
	colTypes := make(map[string]string)
	for len(columns) < columnCount {
		name := g.word()
		if seen[name] {
			continue
		}
		seen[name] = true
		columns = append(columns, name)
		colTypes[name] = columnTypes[g.rng.Intn(len(columnTypes))]
	}
	return &GeneratedTable{
		Decl:        catalog.NewTableDeclaration(db, schema, tableName, columns),
		ColumnTypes: colTypes,
	}
}

// CreateTableText renders t as CREATE TABLE DDL, suitable for feeding into
// internal/ingest or directly into a Script.
func (t *GeneratedTable) CreateTableText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "create table %s (", t.Decl.TableName)
	for i, col := range t.Decl.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", col.Name, t.ColumnTypes[col.Name])
	}
	b.WriteString(")")
	return b.String()
}

// entry adapts a slice of GeneratedTable to catalog.Entry so a Generator's
// output can be loaded straight into a Catalog without going through the
// full scan/parse/analyze pipeline (useful for dev-server demo-data
// bootstrap, where the fixture generator IS the source of truth).
type entry struct {
	externalID uint32
	tables     []*catalog.TableDeclaration
	names      *names.Registry
}

func (e *entry) ExternalID() uint32                  { return e.externalID }
func (e *entry) Tables() []*catalog.TableDeclaration { return e.tables }
func (e *entry) NameRegistry() *names.Registry {
	if e.names == nil {
		e.names = catalog.NameRegistryForTables(e.tables)
	}
	return e.names
}
func (e *entry) ReferencedDatabases() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range e.tables {
		if !seen[t.DatabaseName] {
			seen[t.DatabaseName] = true
			out = append(out, t.DatabaseName)
		}
	}
	return out
}
func (e *entry) ReferencedSchemas() []catalog.SchemaRef {
	seen := map[catalog.SchemaRef]bool{}
	var out []catalog.SchemaRef
	for _, t := range e.tables {
		ref := catalog.SchemaRef{DatabaseName: t.DatabaseName, SchemaName: t.SchemaName}
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

// LoadSchema fabricates tableCount tables of columnCount columns each under
// db.schema and loads them into cat as one catalog entry, returning the
// generated tables for script-text generation.
func (g *Generator) LoadSchema(cat *catalog.Catalog, externalID uint32, db, schema string, tableCount, columnCount int) ([]*GeneratedTable, error) {
	var tables []*GeneratedTable
	var decls []*catalog.TableDeclaration
	for i := 0; i < tableCount; i++ {
		t := g.GenerateTable(db, schema, columnCount)
		tables = append(tables, t)
		decls = append(decls, t.Decl)
	}
	if err := cat.LoadScript(&entry{externalID: externalID, tables: decls}, 0); err != nil {
		return nil, err
	}
	return tables, nil
}

// SelectText fabricates a plausible "select <cols> from <table> where <col> = <n>"
// script exercising t, for tests and cmd/fixturegen's sample queries.
func (g *Generator) SelectText(t *GeneratedTable) string {
	if len(t.Decl.Columns) == 0 {
		return fmt.Sprintf("select * from %s", t.Decl.TableName)
	}
	projected := t.Decl.Columns[g.rng.Intn(len(t.Decl.Columns))].Name
	filtered := t.Decl.Columns[g.rng.Intn(len(t.Decl.Columns))].Name
	return fmt.Sprintf("select %s from %s where %s = %d", projected, t.Decl.TableName, filtered, g.rng.Intn(100))
}
