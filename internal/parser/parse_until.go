package parser

import "github.com/dashql/dashql-go/internal/scanner"

// ExpectedSymbols is the result of ParseUntil: every symbol kind the grammar
// would accept at the target position, plus the diagnostics collected before
// reaching it. Errors after the marker are not collected, matching spec.md
// §4.D: "Errors encountered before the completion marker are added to the
// error list but do not stop the expected-symbols collection."
type ExpectedSymbols struct {
	Kinds           map[scanner.Kind]bool
	ErrorsBefore    []string
	ExpectsIdentifier bool
}

// ParseUntil re-invokes the parser with a synthetic completion marker at
// targetSymbolIndex (an index into scanned.Symbols) and collects every
// grammar symbol that would be accepted there.
//
// The generated-parser LAC mechanism spec.md §4.D describes (walking the
// pact table of the bison-generated state machine) has no equivalent here
// since the parser is hand-written recursive descent, not table-driven; the
// substitute is recording every token kind checked via expect()/
// recordExpected() at the exact moment the parser's cursor reaches the
// marker position (see parser.go's advance()/expect()). Because recursive
// descent follows one deterministic path per input rather than exploring
// every LALR item in the current state, this under-approximates the true
// LALR expected-set in ambiguous grammar positions; it is exact for every
// position this grammar subset's dispatch is deterministic at (statement
// keyword, FROM/JOIN keywords, qualified-name components), which is the set
// spec.md's completion algorithm actually consults.
func ParseUntil(scanned *scanner.ScannedScript, targetSymbolIndex int) *ExpectedSymbols {
	p := &Parser{
		scanned:    scanned,
		symbols:    scanned.Symbols,
		completeAt: targetSymbolIndex,
		expected:   make(map[scanner.Kind]bool),
	}
	p.out = &ParsedScript{Scanned: scanned}
	p.run()

	res := &ExpectedSymbols{Kinds: p.expected}
	for k := range p.expected {
		if k == scanner.IDENT {
			res.ExpectsIdentifier = true
		}
	}
	for _, e := range p.out.Errors {
		res.ErrorsBefore = append(res.ErrorsBefore, e.Message)
	}
	return res
}
