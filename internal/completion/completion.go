// Package completion implements the completion engine of spec.md §4.I:
// strategy dispatch on a script cursor, dot- and identifier-candidate
// collection, promotion passes, scoring, and top-k selection.
package completion

import (
	"sort"
	"strings"

	"github.com/dashql/dashql-go/internal/analyzer"
	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/cursor"
	"github.com/dashql/dashql-go/internal/names"
	"github.com/dashql/dashql-go/internal/parser"
	"github.com/dashql/dashql-go/internal/registry"
	"github.com/dashql/dashql-go/internal/scanner"
	"github.com/dashql/dashql-go/internal/snippet"
)

// Strategy discriminates the completion dispatch of spec.md §4.I's opening
// table.
type Strategy int

const (
	StrategyDefault Strategy = iota
	StrategyTableRef
	StrategyTableRefAlias
	StrategyColumnRef
)

func strategyFor(ctx cursor.Context) Strategy {
	switch ctx.Kind {
	case cursor.ContextTableRef:
		if ctx.AtAlias {
			return StrategyTableRefAlias
		}
		return StrategyTableRef
	case cursor.ContextColumnRef:
		return StrategyColumnRef
	default:
		return StrategyDefault
	}
}

// ObjectTag accumulates the per-candidate-object score contributors of
// spec.md §4.I.7.
type ObjectTag uint32

const (
	TagKeywordDefault ObjectTag = 1 << iota
	TagKeywordPopular
	TagKeywordVeryPopular
	TagSubstringMatch
	TagPrefixMatch
	TagResolvingTable
	TagUnresolvedPeer
	TagDotResolutionSchema
	TagDotResolutionTable
	TagDotResolutionColumn
	TagInNameScope
	TagInSameStatement
	TagInSameScript
	TagInOtherScript
	TagExpectedParserSymbol
	TagNameIndex
	TagThroughCatalog
)

func (t ObjectTag) Has(b ObjectTag) bool { return t&b != 0 }

const (
	likelyScore   = 20
	unlikelyScore = 10
	ignoreScore   = 0

	scoreKeywordDefault      = 0
	scoreKeywordPopular      = 2
	scoreKeywordVeryPopular  = 3
	scoreSubstringMatch      = 30
	scorePrefixMatch         = 5
	scoreResolvingTable      = 5
	scoreUnresolvedPeer      = 1
	scoreDotResolutionSchema = 2
	scoreDotResolutionTable  = 2
	scoreDotResolutionColumn = 2
	scoreInNameScope         = 10
	scoreInSameStatement     = 1
	scoreInSameScript        = 1
	scoreInOtherScript       = 1
)

// Compile-time inequality checks mirroring spec.md §4.I.7's design
// constraints: an array whose length is the (value - 1) of the inequality
// fails to compile unless the left side strictly exceeds the right.
type (
	_assertUnlikelyPlusSubstringBeatsLikely [unlikelyScore + scoreSubstringMatch - likelyScore - 1]struct{}
	_assertInScopeBeatsPrefix               [scoreInNameScope - scorePrefixMatch - 1]struct{}
	_assertSubstringBeatsSameScriptSum      [scoreSubstringMatch - (scoreInSameStatement + scoreInSameScript + scoreInOtherScript) - 1]struct{}
	_assertInScopeBeatsSameScriptSum        [scoreInNameScope - (scoreInSameStatement + scoreInSameScript + scoreInOtherScript) - 1]struct{}
	_assertResolvingTableBeatsSameScriptSum [scoreResolvingTable - (scoreInSameStatement + scoreInSameScript + scoreInOtherScript) - 1]struct{}
)

func objectContribution(t ObjectTag) int {
	score := 0
	if t.Has(TagKeywordDefault) {
		score += scoreKeywordDefault
	}
	if t.Has(TagKeywordPopular) {
		score += scoreKeywordPopular
	}
	if t.Has(TagKeywordVeryPopular) {
		score += scoreKeywordVeryPopular
	}
	if t.Has(TagSubstringMatch) {
		score += scoreSubstringMatch
	}
	if t.Has(TagPrefixMatch) {
		score += scorePrefixMatch
	}
	if t.Has(TagResolvingTable) {
		score += scoreResolvingTable
	}
	if t.Has(TagUnresolvedPeer) {
		score += scoreUnresolvedPeer
	}
	if t.Has(TagDotResolutionSchema) {
		score += scoreDotResolutionSchema
	}
	if t.Has(TagDotResolutionTable) {
		score += scoreDotResolutionTable
	}
	if t.Has(TagDotResolutionColumn) {
		score += scoreDotResolutionColumn
	}
	if t.Has(TagInNameScope) {
		score += scoreInNameScope
	}
	if t.Has(TagInSameStatement) {
		score += scoreInSameStatement
	}
	if t.Has(TagInSameScript) {
		score += scoreInSameScript
	}
	if t.Has(TagInOtherScript) {
		score += scoreInOtherScript
	}
	return score
}

func baseScore(nameTag names.Tag, strategy Strategy) int {
	has := func(b names.Tag) bool { return nameTag.Has(b) }
	switch strategy {
	case StrategyColumnRef:
		switch {
		case has(names.TagTableAlias), has(names.TagColumnName):
			return likelyScore
		case has(names.TagSchemaName), has(names.TagDatabaseName), has(names.TagTableName):
			return unlikelyScore
		}
	case StrategyTableRef:
		switch {
		case has(names.TagSchemaName), has(names.TagDatabaseName), has(names.TagTableName):
			return likelyScore
		case has(names.TagTableAlias), has(names.TagColumnName):
			return unlikelyScore
		}
	default: // DEFAULT, TABLE_REF_ALIAS
		if nameTag != names.TagNone {
			return likelyScore
		}
	}
	return ignoreScore
}

// CandidateObject is one resolved catalog object backing a Candidate.
type CandidateObject struct {
	ObjectID      catalog.ObjectID
	Tags          ObjectTag
	Score         int
	QualifiedName []string
	// Snippets holds one script snippet per distinct template signature
	// touching this object's column, attached by attachSnippets (spec.md
	// §4.I.10). Nil unless the request carried a non-nil Registry.
	Snippets []*snippet.ScriptSnippet
}

// Candidate is one completion suggestion (spec.md §4.I).
type Candidate struct {
	Name            string
	NameTag         names.Tag
	Objects         []*CandidateObject
	Score           int
	PreferQualified bool
}

// Request bundles the inputs Complete needs.
type Request struct {
	Scanned  *scanner.ScannedScript
	Parsed   *parser.ParsedScript
	Analyzed *analyzer.AnalyzedScript
	Catalog  *catalog.Catalog
	Cursor   cursor.Cursor
	Limit    int
	// Registry is the secondary (table,column)->scripts index used by
	// promoteIdentifiersInScripts and attachSnippets (spec.md §4.I.6,
	// §4.I.10). Nil disables both passes.
	Registry *registry.Registry
}

var veryPopularKeywords = map[scanner.Kind]bool{
	scanner.SELECT: true, scanner.FROM: true, scanner.WHERE: true,
	scanner.AND: true, scanner.ORDER: true, scanner.GROUP: true,
}

var popularKeywords = map[scanner.Kind]bool{
	scanner.AS: true, scanner.BY: true, scanner.LIMIT: true, scanner.WITH: true,
	scanner.JOIN: true, scanner.ON: true, scanner.DISTINCT: true,
}

// nonCompletableKinds are punctuation/numeric/comparison symbols that never
// themselves anchor completion (spec.md §4.I.1).
var nonCompletableKinds = map[scanner.Kind]bool{
	scanner.LITERAL_INTEGER: true, scanner.LITERAL_FLOAT: true,
	scanner.OP_EQ: true, scanner.OP_NEQ: true, scanner.OP_LT: true, scanner.OP_GT: true,
	scanner.OP_LTE: true, scanner.OP_GTE: true, scanner.COMMA: true, scanner.SEMICOLON: true,
	scanner.LPAREN: true, scanner.RPAREN: true,
}

// Complete runs the pipeline of spec.md §4.I and returns the ranked,
// qualified top-k candidate list.
func Complete(req Request) []Candidate {
	loc := req.Cursor.Location

	// 4.I.1 early rejection.
	if loc.RelativePos == scanner.NewSymbolAfter || loc.RelativePos == scanner.NewSymbolBefore {
		if nonCompletableKinds[loc.Symbol.Kind] {
			return nil
		}
	}
	if nonCompletableKinds[loc.Symbol.Kind] && loc.RelativePos != scanner.EndOfSymbol {
		return nil
	}

	strategy := strategyFor(req.Cursor.Context)

	heap := newTopK(req.Limit)

	dotCompleting := loc.CurrentIsDot() && loc.RelativePos == scanner.EndOfSymbol
	var expects *parser.ExpectedSymbols
	if !dotCompleting {
		expects = parser.ParseUntil(req.Scanned, loc.SymbolIndex)
		if loc.PreviousIsDot() && expects.ExpectsIdentifier {
			dotCompleting = true
		}
	}

	candidatesByName := make(map[string]*Candidate)
	objectsByID := make(map[catalog.ObjectID]*CandidateObject)

	if dotCompleting {
		collectDotCandidates(&req, strategy, candidatesByName, objectsByID)
	} else {
		collectKeywordCandidates(&req, expects, strategy, heap)
		if expects.ExpectsIdentifier && strategy != StrategyTableRefAlias {
			collectIdentifierCandidates(&req, strategy, candidatesByName, objectsByID)
		}
	}

	promoteIdentifiersInScope(&req, objectsByID)
	promoteIdentifiersInScripts(&req, objectsByID)
	promoteTablesAndPeersForUnresolvedColumns(&req, objectsByID)

	for _, c := range candidatesByName {
		finalizeCandidateScore(c, strategy)
		heap.push(*c)
	}

	qualify(&req, strategy, heap.items)
	if req.Registry != nil && strategy != StrategyTableRefAlias {
		attachSnippets(&req, heap.items)
	}

	return heap.finish()
}

func matchesPrefix(name, prefix string) ObjectTag {
	if prefix == "" {
		return 0
	}
	lname, lprefix := strings.ToLower(name), strings.ToLower(prefix)
	if strings.HasPrefix(lname, lprefix) {
		return TagPrefixMatch
	}
	if strings.Contains(lname, lprefix) {
		return TagSubstringMatch
	}
	return 0
}

func getOrCreateCandidate(byName map[string]*Candidate, name string, nameTag names.Tag) *Candidate {
	if c, ok := byName[name]; ok {
		c.NameTag |= nameTag
		return c
	}
	c := &Candidate{Name: name, NameTag: nameTag}
	byName[name] = c
	return c
}

func getOrCreateObject(byID map[catalog.ObjectID]*CandidateObject, c *Candidate, id catalog.ObjectID) *CandidateObject {
	if o, ok := byID[id]; ok {
		return o
	}
	o := &CandidateObject{ObjectID: id}
	byID[id] = o
	c.Objects = append(c.Objects, o)
	return o
}

func finalizeCandidateScore(c *Candidate, strategy Strategy) {
	base := baseScore(c.NameTag, strategy)
	if len(c.Objects) == 0 {
		c.Score = base
		return
	}
	// Per §4.I.7: keep the top 24 objects by score, then the candidate's
	// score is base + the minimum of those finalised object scores.
	for _, o := range c.Objects {
		o.Score = base + objectContribution(o.Tags)
	}
	sort.Slice(c.Objects, func(i, j int) bool { return c.Objects[i].Score > c.Objects[j].Score })
	if len(c.Objects) > 24 {
		c.Objects = c.Objects[:24]
	}
	min := c.Objects[0].Score
	for _, o := range c.Objects {
		if o.Score < min {
			min = o.Score
		}
	}
	c.Score = min
}
