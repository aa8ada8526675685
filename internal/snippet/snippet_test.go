package snippet

import (
	"testing"

	"github.com/dashql/dashql-go/internal/analyzer"
	"github.com/dashql/dashql-go/internal/parser"
	"github.com/dashql/dashql-go/internal/scanner"
)

func analyzeText(t *testing.T, text string) (*parser.ParsedScript, *analyzer.AnalyzedScript) {
	t.Helper()
	scanned := scanner.Scan(text, 1)
	parsed := parser.Parse(scanned)
	analyzed := analyzer.Analyze(1, parsed, nil)
	return parsed, analyzed
}

func TestExtractStatementSnippet(t *testing.T) {
	parsed, analyzed := analyzeText(t, "select a from t where a = 1")
	if len(parsed.Statements) == 0 {
		t.Fatal("expected a parsed statement")
	}
	root := parsed.Statements[0].Root

	snip := Extract(parsed, analyzed.NodeMarkers, analyzed.NameReg, root)
	if snip.Text == "" {
		t.Fatal("expected non-empty snippet text")
	}
	if len(snip.Nodes) == 0 {
		t.Fatal("expected at least one node")
	}
	if int(snip.RootNodeID) != len(snip.Nodes)-1 {
		t.Fatalf("expected root at last position, got %d of %d nodes", snip.RootNodeID, len(snip.Nodes))
	}
	if snip.Nodes[snip.RootNodeID].Parent != InvalidNodeID {
		t.Fatalf("expected root's parent to be invalidated")
	}
}

func TestTemplateSignatureIgnoresNamesAndLiterals(t *testing.T) {
	parsedA, analyzedA := analyzeText(t, "select a from t where a = 1")
	parsedB, analyzedB := analyzeText(t, "select b from u where b = 2")

	snipA := Extract(parsedA, analyzedA.NodeMarkers, analyzedA.NameReg, parsedA.Statements[0].Root)
	snipB := Extract(parsedB, analyzedB.NodeMarkers, analyzedB.NameReg, parsedB.Statements[0].Root)

	if snipA.TemplateSignature() != snipB.TemplateSignature() {
		t.Fatalf("expected identical template signatures for structurally identical statements")
	}
	if snipA.RawSignature() == snipB.RawSignature() {
		t.Fatalf("expected distinct raw signatures for different names and literals")
	}
	if !Equal(snipA, snipB, true) {
		t.Fatalf("expected Equal(ignoreNamesAndLiterals=true) to hold")
	}
	if Equal(snipA, snipB, false) {
		t.Fatalf("expected Equal(ignoreNamesAndLiterals=false) to fail")
	}
}

func TestRawSignatureStableAcrossExtraction(t *testing.T) {
	parsed, analyzed := analyzeText(t, "select a from t where a = 1")
	root := parsed.Statements[0].Root

	snip1 := Extract(parsed, analyzed.NodeMarkers, analyzed.NameReg, root)
	snip2 := Extract(parsed, analyzed.NodeMarkers, analyzed.NameReg, root)

	if snip1.RawSignature() != snip2.RawSignature() {
		t.Fatalf("expected deterministic raw signature across repeated extraction")
	}
	if snip1.Text != snip2.Text {
		t.Fatalf("expected identical text across repeated extraction")
	}
}

func TestExtractNestedWhereExpression(t *testing.T) {
	parsed, analyzed := analyzeText(t, "select a from t where a = 1")
	root := parsed.Statements[0].Root

	var whereNode parser.NodeID = parser.InvalidNodeID
	rootN := parsed.Nodes[root]
	for i := rootN.ChildrenBeginOrValue; i < rootN.ChildrenBeginOrValue+rootN.ChildrenCount; i++ {
		marker := parsed.Nodes[i]
		if marker.AttributeKey == parser.AttrSelectWhere {
			whereNode = parser.NodeID(marker.ChildrenBeginOrValue)
		}
	}
	if whereNode == parser.InvalidNodeID {
		t.Fatal("expected a WHERE child on the select statement")
	}

	snip := Extract(parsed, analyzed.NodeMarkers, analyzed.NameReg, whereNode)
	if len(snip.Names) == 0 {
		t.Fatal("expected at least one name in the extracted snippet (the column ref)")
	}
}
