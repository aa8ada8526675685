package scanner

import (
	"strings"
	"unicode"

	"github.com/dashql/dashql-go/internal/names"
	"github.com/dashql/dashql-go/internal/status"
)

// ScannedScript is the output of scanning one version of a script's text, per
// spec.md §4.C/§3.2.
type ScannedScript struct {
	Text        string
	Symbols     []Symbol
	LineBreaks  []Location
	Comments    []Location
	Errors      []status.Diagnostic
	NameReg     *names.Registry
	TextVersion uint64
}

// lexer is a rune-based hand-written recognizer, in the structural style of
// ha1tch-tsqlparser/lexer.Lexer (position/readPosition/ch fields, readChar/
// peekChar, per-class read* helpers) adapted to the dashql token set.
type lexer struct {
	input        []rune
	position     int
	readPosition int
	ch           rune
	out          *ScannedScript
}

// Scan tokenizes text into a ScannedScript. textVersion is recorded so the
// orchestrating Script can detect staleness (spec.md §3.6).
func Scan(text string, textVersion uint64) *ScannedScript {
	out := &ScannedScript{
		Text:    text,
		NameReg: names.NewRegistry(),
	}
	l := &lexer{input: []rune(text), out: out}
	l.readChar()

	var raw []Symbol
	for {
		sym, ok := l.nextRaw()
		if !ok {
			break
		}
		raw = append(raw, sym)
		if sym.Kind == EOF {
			break
		}
	}
	applyLookahead(raw)
	applyDotDisambiguation(raw, l.input)
	out.Symbols = raw
	out.TextVersion = textVersion
	return out
}

func (l *lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *lexer) atEOF() bool { return l.position >= len(l.input) }

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}
func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func (l *lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '\n':
			l.out.LineBreaks = append(l.out.LineBreaks, Location{Offset: uint32(l.position), Length: 1})
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			start := l.position
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			l.out.Comments = append(l.out.Comments, Location{Offset: uint32(start), Length: uint32(l.position - start)})
		case l.ch == '/' && l.peekChar() == '*':
			start := l.position
			l.readChar()
			l.readChar()
			depth := 1
			for depth > 0 && !l.atEOF() {
				if l.ch == '/' && l.peekChar() == '*' {
					depth++
					l.readChar()
					l.readChar()
				} else if l.ch == '*' && l.peekChar() == '/' {
					depth--
					l.readChar()
					l.readChar()
				} else {
					l.readChar()
				}
			}
			if depth > 0 {
				l.out.Errors = append(l.out.Errors, status.Diagnostic{
					Location: status.Location{Offset: uint32(start), Length: uint32(l.position - start)},
					Message:  "unterminated block comment",
				})
			}
			l.out.Comments = append(l.out.Comments, Location{Offset: uint32(start), Length: uint32(l.position - start)})
		default:
			return
		}
	}
}

// nextRaw returns the next raw symbol (before lookahead rewrite / dot
// disambiguation). ok is false only after EOF has already been emitted once.
func (l *lexer) nextRaw() (Symbol, bool) {
	l.skipWhitespaceAndComments()

	start := l.position
	if l.atEOF() {
		return Symbol{Kind: EOF, Location: Location{Offset: uint32(start), Length: 0}}, true
	}

	switch {
	case isLetter(l.ch):
		return l.readIdentifier(start), true
	case isDigit(l.ch):
		return l.readNumber(start), true
	case l.ch == '"':
		return l.readQuotedIdentifier(start), true
	case l.ch == '\'':
		return l.readString(start), true
	case l.ch == '$':
		return l.readParameter(start), true
	case l.ch == 'x' && l.peekChar() == '\'':
		return l.readPrefixedString(start, LITERAL_HEXSTRING), true
	case l.ch == 'b' && l.peekChar() == '\'':
		return l.readPrefixedString(start, LITERAL_BITSTRING), true
	default:
		return l.readPunctOrOperator(start), true
	}
}

func (l *lexer) readIdentifier(start int) Symbol {
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	text := string(l.input[start:l.position])
	folded := strings.ToLower(text)
	kind := LookupIdent(folded)
	loc := Location{Offset: uint32(start), Length: uint32(l.position - start)}
	if kind == IDENT {
		id := l.out.NameReg.Register(folded, names.Location{Offset: loc.Offset, Length: loc.Length}, names.TagNone)
		return Symbol{Kind: IDENT, Location: loc, NameID: uint32(id)}
	}
	return Symbol{Kind: kind, Location: loc}
}

func (l *lexer) readQuotedIdentifier(start int) Symbol {
	l.readChar() // consume opening quote
	var sb strings.Builder
	for {
		if l.atEOF() {
			l.out.Errors = append(l.out.Errors, status.Diagnostic{
				Location: status.Location{Offset: uint32(start), Length: uint32(l.position - start)},
				Message:  "unterminated quoted identifier",
			})
			break
		}
		if l.ch == '"' {
			if l.peekChar() == '"' {
				sb.WriteRune('"')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // consume closing quote
			break
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	loc := Location{Offset: uint32(start), Length: uint32(l.position - start)}
	text := strings.TrimSpace(sb.String())
	id := l.out.NameReg.Register(text, names.Location{Offset: loc.Offset, Length: loc.Length}, names.TagNone)
	return Symbol{Kind: IDENT_QUOTED, Location: loc, NameID: uint32(id)}
}

func (l *lexer) readString(start int) Symbol {
	l.readChar() // opening '
	for {
		if l.atEOF() {
			l.out.Errors = append(l.out.Errors, status.Diagnostic{
				Location: status.Location{Offset: uint32(start), Length: uint32(l.position - start)},
				Message:  "unterminated string literal",
			})
			break
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			break
		}
		l.readChar()
	}
	// Standard concatenation rule: adjacent string literals separated only by
	// whitespace-and-newline concatenate into a single literal (spec.md §4.C).
	save := l.position
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
	if l.ch == '\'' {
		return l.readString(start)
	}
	l.position = save
	return Symbol{Kind: LITERAL_STRING, Location: Location{Offset: uint32(start), Length: uint32(l.position - start)}}
}

func (l *lexer) readPrefixedString(start int, kind Kind) Symbol {
	l.readChar() // x or b
	return Symbol{Kind: kind, Location: func() Location {
		sym := l.readString(l.position)
		return Location{Offset: uint32(start), Length: sym.Location.End() - uint32(start)}
	}()}
}

func (l *lexer) readNumber(start int) Symbol {
	for isDigit(l.ch) {
		l.readChar()
	}
	isFloat := false
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	kind := LITERAL_INTEGER
	if isFloat {
		kind = LITERAL_FLOAT
	}
	return Symbol{Kind: kind, Location: Location{Offset: uint32(start), Length: uint32(l.position - start)}}
}

func (l *lexer) readParameter(start int) Symbol {
	l.readChar() // $
	for isDigit(l.ch) {
		l.readChar()
	}
	return Symbol{Kind: PARAMETER, Location: Location{Offset: uint32(start), Length: uint32(l.position - start)}}
}

func (l *lexer) readPunctOrOperator(start int) Symbol {
	ch := l.ch
	two := func(second rune, k2 Kind, k1 Kind) Symbol {
		if l.peekChar() == second {
			l.readChar()
			l.readChar()
			return Symbol{Kind: k2, Location: Location{Offset: uint32(start), Length: 2}}
		}
		l.readChar()
		return Symbol{Kind: k1, Location: Location{Offset: uint32(start), Length: 1}}
	}
	switch ch {
	case '(':
		l.readChar()
		return Symbol{Kind: LPAREN, Location: Location{Offset: uint32(start), Length: 1}}
	case ')':
		l.readChar()
		return Symbol{Kind: RPAREN, Location: Location{Offset: uint32(start), Length: 1}}
	case '[':
		l.readChar()
		return Symbol{Kind: LBRACKET, Location: Location{Offset: uint32(start), Length: 1}}
	case ']':
		l.readChar()
		return Symbol{Kind: RBRACKET, Location: Location{Offset: uint32(start), Length: 1}}
	case ',':
		l.readChar()
		return Symbol{Kind: COMMA, Location: Location{Offset: uint32(start), Length: 1}}
	case ';':
		l.readChar()
		return Symbol{Kind: SEMICOLON, Location: Location{Offset: uint32(start), Length: 1}}
	case '.':
		l.readChar()
		// Kind is provisionally DOT; applyDotDisambiguation fixes it up once
		// the full raw stream (incl. trailing whitespace) is known.
		return Symbol{Kind: DOT, Location: Location{Offset: uint32(start), Length: 1}}
	case '+':
		l.readChar()
		return Symbol{Kind: OP_PLUS, Location: Location{Offset: uint32(start), Length: 1}}
	case '-':
		l.readChar()
		return Symbol{Kind: OP_MINUS, Location: Location{Offset: uint32(start), Length: 1}}
	case '*':
		l.readChar()
		return Symbol{Kind: OP_STAR, Location: Location{Offset: uint32(start), Length: 1}}
	case '/':
		l.readChar()
		return Symbol{Kind: OP_SLASH, Location: Location{Offset: uint32(start), Length: 1}}
	case '%':
		l.readChar()
		return Symbol{Kind: OP_PERCENT, Location: Location{Offset: uint32(start), Length: 1}}
	case '=':
		l.readChar()
		return Symbol{Kind: OP_EQ, Location: Location{Offset: uint32(start), Length: 1}}
	case '<':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return Symbol{Kind: OP_NEQ, Location: Location{Offset: uint32(start), Length: 2}}
		}
		return two('=', OP_LTE, OP_LT)
	case '>':
		return two('=', OP_GTE, OP_GT)
	case '|':
		return two('|', OP_CONCAT, ILLEGAL)
	default:
		l.readChar()
		l.out.Errors = append(l.out.Errors, status.Diagnostic{
			Location: status.Location{Offset: uint32(start), Length: 1},
			Message:  "unexpected character",
		})
		return Symbol{Kind: ILLEGAL, Location: Location{Offset: uint32(start), Length: 1}}
	}
}

// applyLookahead implements spec.md §4.C's three lookahead rewrites, run over
// the full raw token stream once it is known.
func applyLookahead(syms []Symbol) {
	for i := range syms {
		switch syms[i].Kind {
		case NOT:
			if i+1 < len(syms) {
				switch syms[i+1].Kind {
				case BETWEEN, IN, LIKE, ILIKE, SIMILAR:
					syms[i].Kind = NOT_LA
				}
			}
		case NULLS:
			if i+1 < len(syms) {
				switch syms[i+1].Kind {
				case FIRST, LAST:
					syms[i].Kind = NULLS_LA
				}
			}
		case WITH:
			if i+1 < len(syms) {
				switch syms[i+1].Kind {
				case TIME, ORDINALITY:
					syms[i].Kind = WITH_LA
				}
			}
		}
	}
}

// applyDotDisambiguation finalizes every DOT token into DOT or DOT_TRAILING
// depending on whether it's immediately followed (no intervening whitespace
// in the source text) by another token.
func applyDotDisambiguation(syms []Symbol, input []rune) {
	for i := range syms {
		if syms[i].Kind != DOT {
			continue
		}
		end := int(syms[i].Location.End())
		if end >= len(input) || isSpaceOrEOFBoundary(input[end]) {
			syms[i].Kind = DOT_TRAILING
		}
	}
}

func isSpaceOrEOFBoundary(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == 0
}
