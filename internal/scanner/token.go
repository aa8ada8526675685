// Package scanner produces the tagged token stream described in spec.md
// §4.C. The token kind enum and keyword table follow the shape of the
// ha1tch-tsqlparser example repo's token package (a bounded int enum with a
// keyword-lookup map), adapted to the dashql grammar's kind set instead of
// T-SQL's.
package scanner

// Kind is a scanner symbol kind. Ranges are contiguous so callers can
// threshold-compare the way spec.md §3.2 describes for AST node types.
type Kind int

const (
	EOF Kind = iota
	ILLEGAL

	// Identifiers and literals.
	IDENT // unquoted, case-folded, backed by a names.ID
	IDENT_QUOTED
	LITERAL_INTEGER
	LITERAL_FLOAT
	LITERAL_STRING
	LITERAL_BITSTRING
	LITERAL_HEXSTRING
	LITERAL_INTERVAL
	LITERAL_NULL
	PARAMETER // $N

	// Punctuation.
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	COMMA
	SEMICOLON
	DOT          // inner dot, no trailing whitespace: a.b
	DOT_TRAILING // dot followed by whitespace/EOF: a.<cursor>

	// Operators.
	OP_PLUS
	OP_MINUS
	OP_STAR
	OP_SLASH
	OP_PERCENT
	OP_EQ
	OP_NEQ
	OP_LT
	OP_GT
	OP_LTE
	OP_GTE
	OP_CONCAT // ||

	keywordBeg
	// Reserved keywords.
	SELECT
	FROM
	WHERE
	AS
	AND
	OR
	NOT
	NOT_LA
	IN
	IS
	LIKE
	ILIKE
	SIMILAR
	BETWEEN
	NULL
	TRUE
	FALSE
	JOIN
	LEFT
	RIGHT
	INNER
	OUTER
	FULL
	ON
	GROUP
	BY
	ORDER
	LIMIT
	OFFSET
	HAVING
	DISTINCT
	UNION
	ALL
	INTERSECT
	EXCEPT
	INSERT
	INTO
	VALUES
	UPDATE
	SET
	DELETE
	CREATE
	TABLE
	SCHEMA
	DATABASE
	DROP
	ALTER
	WITH
	WITH_LA
	RECURSIVE
	CASE
	WHEN
	THEN
	ELSE
	END
	CAST
	ASC
	DESC
	NULLS
	NULLS_LA
	FIRST
	LAST
	TIME
	ORDINALITY
	keywordEnd
)

var tokenNames = map[Kind]string{
	EOF: "EOF", ILLEGAL: "ILLEGAL",
	IDENT: "IDENT", IDENT_QUOTED: "IDENT_QUOTED",
	LITERAL_INTEGER: "LITERAL_INTEGER", LITERAL_FLOAT: "LITERAL_FLOAT",
	LITERAL_STRING: "LITERAL_STRING", LITERAL_BITSTRING: "LITERAL_BITSTRING",
	LITERAL_HEXSTRING: "LITERAL_HEXSTRING", LITERAL_INTERVAL: "LITERAL_INTERVAL",
	LITERAL_NULL: "LITERAL_NULL", PARAMETER: "PARAMETER",
	LPAREN: "(", RPAREN: ")", LBRACKET: "[", RBRACKET: "]",
	COMMA: ",", SEMICOLON: ";", DOT: "DOT", DOT_TRAILING: "DOT_TRAILING",
	OP_PLUS: "+", OP_MINUS: "-", OP_STAR: "*", OP_SLASH: "/", OP_PERCENT: "%",
	OP_EQ: "=", OP_NEQ: "<>", OP_LT: "<", OP_GT: ">", OP_LTE: "<=", OP_GTE: ">=",
	OP_CONCAT: "||",
	SELECT: "select", FROM: "from", WHERE: "where", AS: "as", AND: "and", OR: "or",
	NOT: "not", NOT_LA: "not", IN: "in", IS: "is", LIKE: "like", ILIKE: "ilike",
	SIMILAR: "similar", BETWEEN: "between", NULL: "null", TRUE: "true", FALSE: "false",
	JOIN: "join", LEFT: "left", RIGHT: "right", INNER: "inner", OUTER: "outer", FULL: "full",
	ON: "on", GROUP: "group", BY: "by", ORDER: "order", LIMIT: "limit", OFFSET: "offset",
	HAVING: "having", DISTINCT: "distinct", UNION: "union", ALL: "all",
	INTERSECT: "intersect", EXCEPT: "except", INSERT: "insert", INTO: "into",
	VALUES: "values", UPDATE: "update", SET: "set", DELETE: "delete", CREATE: "create",
	TABLE: "table", SCHEMA: "schema", DATABASE: "database", DROP: "drop", ALTER: "alter",
	WITH: "with", WITH_LA: "with", RECURSIVE: "recursive", CASE: "case", WHEN: "when",
	THEN: "then", ELSE: "else", END: "end", CAST: "cast", ASC: "asc", DESC: "desc",
	NULLS: "nulls", NULLS_LA: "nulls", FIRST: "first", LAST: "last", TIME: "time",
	ORDINALITY: "ordinality",
}

// keywords maps the lower-case spelling of every keyword to its Kind. Built
// once from tokenNames at init, the way ha1tch-tsqlparser/token builds its
// `keywords` map from the same source data as `tokenNames`.
var keywords = map[string]Kind{}

func init() {
	for k := keywordBeg + 1; k < keywordEnd; k++ {
		if k == NOT_LA || k == WITH_LA || k == NULLS_LA {
			continue // lookahead-rewritten kinds are never looked up directly
		}
		keywords[tokenNames[k]] = k
	}
}

// LookupIdent returns KEYWORD(folded) if folded is a keyword, else IDENT.
func LookupIdent(folded string) Kind {
	if k, ok := keywords[folded]; ok {
		return k
	}
	return IDENT
}

// IsKeyword reports whether k is in the keyword range.
func (k Kind) IsKeyword() bool { return k > keywordBeg && k < keywordEnd }

func (k Kind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Location is a rune-offset span in the scanned text.
type Location struct {
	Offset uint32
	Length uint32
}

func (l Location) End() uint32 { return l.Offset + l.Length }

// Symbol is one scanner token: its kind and source location. For IDENT and
// IDENT_QUOTED symbols, NameID carries the interned names.ID; it is zero (and
// meaningless) for every other kind.
type Symbol struct {
	Kind     Kind
	Location Location
	NameID   uint32
}
