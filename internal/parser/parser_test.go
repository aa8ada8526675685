package parser

import (
	"testing"

	"github.com/dashql/dashql-go/internal/scanner"
)

func TestParseSimpleSelect(t *testing.T) {
	scanned := scanner.Scan("select a, b from t where a = 1", 1)
	parsed := Parse(scanned)
	if len(parsed.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", parsed.Errors)
	}
	if len(parsed.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(parsed.Statements))
	}
	stmt := parsed.Statements[0]
	if stmt.Type != StatementSelect {
		t.Fatalf("expected select statement")
	}
	root := parsed.Nodes[stmt.Root]
	if root.Type != ObjectSelectStatement {
		t.Fatalf("expected select statement root, got %v", root.Type)
	}
}

func TestParseJoin(t *testing.T) {
	scanned := scanner.Scan("select * from a join b on a.id = b.id", 1)
	parsed := Parse(scanned)
	if len(parsed.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", parsed.Errors)
	}
}

func TestParseCreateTable(t *testing.T) {
	scanned := scanner.Scan("create table db1.schema1.table1(a int, b text)", 1)
	parsed := Parse(scanned)
	if len(parsed.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", parsed.Errors)
	}
	if parsed.Statements[0].Type != StatementCreateTable {
		t.Fatalf("expected create table statement")
	}
}

func TestNodeInvariants(t *testing.T) {
	scanned := scanner.Scan("select a, b from t where a = 1", 1)
	parsed := Parse(scanned)
	for id, n := range parsed.Nodes {
		if n.Type == NodeArray || n.Type.IsObject() {
			for c := n.ChildrenBeginOrValue; c < n.ChildrenBeginOrValue+n.ChildrenCount; c++ {
				if int(parsed.Nodes[c].Parent) != id {
					t.Fatalf("child %d parent mismatch: got %d want %d", c, parsed.Nodes[c].Parent, id)
				}
			}
		}
	}
}

func TestParseUntilAfterTrailingDotDoesNotPanic(t *testing.T) {
	scanned := scanner.Scan("select * from schema1.", 1)
	// target the symbol right after the trailing dot (EOF index)
	targetIdx := len(scanned.Symbols) - 1
	exp := ParseUntil(scanned, targetIdx)
	_ = exp // best-effort: dot-completion bypasses this path in the engine anyway
}
