// Command fixturegen prints a synthetic schema (CREATE TABLE DDL) and a
// handful of SELECT statements exercising it, deterministic for a given
// seed. Useful for generating demo data for internal/devserver or seed
// files for tests.
//
// Grounded on the teacher's cmd/faker_test/faker_test.go (seed a
// math/rand.Rand, feed it to faker.SetCryptoSource, assert determinism)
// and cmd/pg_lineage_demo/main.go's flag.Int64-driven CLI shape.
package main

import (
	"flag"
	"fmt"

	"github.com/dashql/dashql-go/internal/fixture"
)

func main() {
	seed := flag.Int64("seed", 1, "deterministic generation seed")
	database := flag.String("database", "dashql", "database name to generate tables under")
	schema := flag.String("schema", "public", "schema name to generate tables under")
	tables := flag.Int("tables", 3, "number of tables to generate")
	columns := flag.Int("columns", 4, "number of columns per table")
	queriesPerTable := flag.Int("queries", 2, "number of SELECT statements to generate per table")
	flag.Parse()

	gen := fixture.NewGenerator(*seed)

	for i := 0; i < *tables; i++ {
		table := gen.GenerateTable(*database, *schema, *columns)
		fmt.Println(table.CreateTableText() + ";")
		for q := 0; q < *queriesPerTable; q++ {
			fmt.Println(gen.SelectText(table) + ";")
		}
	}
}
