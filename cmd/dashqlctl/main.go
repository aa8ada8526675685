// Command dashqlctl is the engine's CLI entry point: it scans, parses, and
// analyzes a script from a file or stdin, optionally ingesting CREATE TABLE
// DDL into the catalog first, and either prints the analysis or serves the
// dev HTTP surface.
//
// Grounded on the teacher's cmd/main.go (thin flag-parsing main calling into
// one internal package, zap.L().Fatal on unrecoverable error) and
// cmd/pg_lineage_demo/main.go (flag.String-driven CLI with fmt.Println
// narration of each stage).
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/config"
	"github.com/dashql/dashql-go/internal/devserver"
	"github.com/dashql/dashql-go/internal/ingest"
	"github.com/dashql/dashql-go/internal/registry"
	"github.com/dashql/dashql-go/internal/script"
)

func main() {
	queryFile := flag.String("query", "", "path to a SQL file to scan/parse/analyze; reads stdin if empty")
	ddlFile := flag.String("ddl", "", "optional path to CREATE TABLE DDL to ingest into the catalog first")
	completeAt := flag.Int("complete-at", -1, "if >= 0, print completions at this rune offset instead of analyzing")
	serve := flag.Bool("serve", false, "start the dev HTTP server instead of running a one-shot analysis")
	flag.Parse()

	cfg := config.FromEnv()
	cat := catalog.New()
	reg := registry.New()

	if *ddlFile != "" {
		ddl, err := os.ReadFile(*ddlFile)
		if err != nil {
			zap.L().Fatal("read ddl file", zap.Error(err))
		}
		decls, err := ingest.LoadDDL(cat, 1, string(ddl))
		if err != nil {
			zap.L().Fatal("ingest ddl", zap.Error(err))
		}
		fmt.Printf("→ ingested %d table(s) from %s\n", len(decls), *ddlFile)
	}

	if *serve {
		srv := devserver.New(cat, reg)
		fmt.Printf("→ listening on %s\n", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, srv.Routes()); err != nil {
			zap.L().Fatal("dev server exited", zap.Error(err))
		}
		return
	}

	var text []byte
	var err error
	if *queryFile != "" {
		text, err = os.ReadFile(*queryFile)
	} else {
		text, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		zap.L().Fatal("read query", zap.Error(err))
	}

	sc := script.New(2, cat, reg)
	sc.ReplaceText(string(text))

	if *completeAt >= 0 {
		candidates, err := sc.CompleteAtCursor(uint32(*completeAt), cfg.CompletionDefaultLimit, nil)
		if err != nil {
			zap.L().Fatal("complete", zap.Error(err))
		}
		fmt.Println("=== Completions ===")
		for _, c := range candidates {
			fmt.Printf("%-20s score=%d\n", c.Name, c.Score)
		}
		return
	}

	analyzed, err := sc.Analyze(true)
	if err != nil {
		zap.L().Fatal("analyze", zap.Error(err))
	}

	fmt.Printf("=== Declared tables (%d) ===\n", len(analyzed.TableDecls))
	for _, t := range analyzed.TableDecls {
		fmt.Printf("%s.%s.%s %v\n", t.DatabaseName, t.SchemaName, t.TableName, columnNames(t))
	}

	fmt.Printf("\n=== Diagnostics (%d) ===\n", len(analyzed.Errors))
	for _, d := range analyzed.Errors {
		fmt.Printf("%d+%d: %s\n", d.Location.Offset, d.Location.Length, d.Message)
	}

	fmt.Println("\n=== Catalog ===")
	for _, col := range cat.Flatten() {
		fmt.Printf("%s.%s.%s.%s\n", col.Database, col.Schema, col.Table, col.Column)
	}
}

func columnNames(t *catalog.TableDeclaration) []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
