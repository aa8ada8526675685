package scanner

import (
	"testing"

	"github.com/dashql/dashql-go/internal/names"
)

// TestIncrementalSelectOne reproduces spec.md §8.4 scenario S1: scanning
// "select 1" must yield exactly [KEYWORD(select), LITERAL_INTEGER(1), EOF].
// The text is typed one character at a time, rescanning after each.
func TestIncrementalSelectOne(t *testing.T) {
	text := "select 1"
	var s *ScannedScript
	for i := 1; i <= len(text); i++ {
		s = Scan(text[:i], uint64(i))
	}
	if len(s.Symbols) != 3 {
		t.Fatalf("expected 3 symbols, got %d: %+v", len(s.Symbols), s.Symbols)
	}
	if s.Symbols[0].Kind != SELECT || s.Symbols[0].Location != (Location{Offset: 0, Length: 6}) {
		t.Fatalf("bad first symbol: %+v", s.Symbols[0])
	}
	if s.Symbols[1].Kind != LITERAL_INTEGER || s.Symbols[1].Location != (Location{Offset: 7, Length: 1}) {
		t.Fatalf("bad second symbol: %+v", s.Symbols[1])
	}
	if s.Symbols[2].Kind != EOF {
		t.Fatalf("expected EOF last, got %+v", s.Symbols[2])
	}
}

func TestDotDisambiguation(t *testing.T) {
	s := Scan("a.b", 1)
	// a IDENT, . DOT, b IDENT, EOF
	if s.Symbols[1].Kind != DOT {
		t.Fatalf("expected inner DOT, got %v", s.Symbols[1].Kind)
	}

	s2 := Scan("a. ", 1)
	if s2.Symbols[1].Kind != DOT_TRAILING {
		t.Fatalf("expected DOT_TRAILING, got %v", s2.Symbols[1].Kind)
	}

	s3 := Scan("a.", 1)
	if s3.Symbols[1].Kind != DOT_TRAILING {
		t.Fatalf("expected DOT_TRAILING at EOF, got %v", s3.Symbols[1].Kind)
	}
}

func TestLookaheadRewrites(t *testing.T) {
	s := Scan("a not in (1)", 1)
	foundNotLA := false
	for _, sym := range s.Symbols {
		if sym.Kind == NOT_LA {
			foundNotLA = true
		}
	}
	if !foundNotLA {
		t.Fatalf("expected NOT_LA rewrite, got %+v", s.Symbols)
	}

	s2 := Scan("order by x nulls first", 1)
	found := false
	for _, sym := range s2.Symbols {
		if sym.Kind == NULLS_LA {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected NULLS_LA rewrite")
	}
}

func TestQuotedIdentifier(t *testing.T) {
	s := Scan(`select "My Col" from t`, 1)
	found := false
	for _, sym := range s.Symbols {
		if sym.Kind == IDENT_QUOTED {
			found = true
			n := s.NameReg.Get(names.ID(sym.NameID))
			if n.Text != "My Col" {
				t.Fatalf("expected trimmed quoted text, got %q", n.Text)
			}
		}
	}
	if !found {
		t.Fatalf("expected a quoted identifier symbol")
	}
}

func TestLineCommentAndBlockComment(t *testing.T) {
	s := Scan("select 1 -- trailing\n/* block */ , 2", 1)
	if len(s.Comments) != 2 {
		t.Fatalf("expected 2 comments, got %d: %+v", len(s.Comments), s.Comments)
	}
}

func TestNestedBlockComment(t *testing.T) {
	s := Scan("/* outer /* inner */ still outer */ select 1", 1)
	found := false
	for _, sym := range s.Symbols {
		if sym.Kind == SELECT {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected to find select after nested comment, symbols=%+v", s.Symbols)
	}
}

func TestUnterminatedString(t *testing.T) {
	s := Scan("select 'abc", 1)
	if len(s.Errors) == 0 {
		t.Fatalf("expected an unterminated string error")
	}
}

func TestEmptyText(t *testing.T) {
	s := Scan("", 1)
	if len(s.Symbols) != 1 || s.Symbols[0].Kind != EOF {
		t.Fatalf("expected a single EOF symbol, got %+v", s.Symbols)
	}
}
