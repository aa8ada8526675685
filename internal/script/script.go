// Package script implements spec.md §4.K's orchestration: the mutable
// rope-backed script lifecycle (edit, scan, parse, analyze, complete),
// tracked against a Catalog and a registry.Registry, with elapsed-time and
// memory statistics alongside every operation.
//
// Grounded on the teacher's internal/app/server.go request-handling shape
// (guard with a mutex, stamp a monotonic version, log duration via
// logutil.Values) generalized from one HTTP request's lifecycle to one
// script's edit/analyze lifecycle.
package script

import (
	"time"

	"go.uber.org/zap"

	"github.com/dashql/dashql-go/internal/analyzer"
	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/completion"
	"github.com/dashql/dashql-go/internal/cursor"
	"github.com/dashql/dashql-go/internal/logutil"
	"github.com/dashql/dashql-go/internal/parser"
	"github.com/dashql/dashql-go/internal/registry"
	"github.com/dashql/dashql-go/internal/rope"
	"github.com/dashql/dashql-go/internal/scanner"
	"github.com/dashql/dashql-go/internal/snippet"
	"github.com/dashql/dashql-go/internal/status"
)

// Statistics accumulates elapsed time for the last run of each pipeline
// stage, per spec.md §4.K's operation-timing requirement.
type Statistics struct {
	ScanDuration     time.Duration
	ParseDuration    time.Duration
	AnalyzeDuration  time.Duration
	CompleteDuration time.Duration
}

// MemoryStatistics reports the approximate size of a script's cached
// pipeline outputs, for diagnostics/telemetry (spec.md §4.K).
type MemoryStatistics struct {
	RopeRunes    int
	ScannedSymbols int
	ParsedNodes    int
	AnalyzedExpressions int
	AnalyzedTableRefs   int
}

// Script is one editable script tracked against a shared Catalog, per
// spec.md §4.K. It satisfies registry.ScriptHandle so a registry.Registry
// can be wired directly to live scripts.
type Script struct {
	externalID uint32
	cat        *catalog.Catalog
	reg        *registry.Registry

	text *rope.Rope

	scanned  *scanner.ScannedScript
	scannedForVersion uint64

	parsed  *parser.ParsedScript
	parsedForVersion uint64

	analyzed *analyzer.AnalyzedScript
	analyzedForTextVersion uint64
	analyzedForCatalogVersion uint64

	lastCompletion *completionSnapshot

	stats Statistics
}

// completionSnapshot is the state CompleteAtCursor stashes so a later
// SelectCompletionCandidateAtCursor / SelectCompletionCatalogObjectAtCursor
// call can re-locate the cursor and check it's still looking at the same
// kind of thing, per spec.md §4.K's "previous completion blob" second-phase
// APIs — kept in-process here rather than round-tripped through the caller,
// since a Go caller already holds the slice CompleteAtCursor returned.
type completionSnapshot struct {
	textOffset          uint32
	contextKind         cursor.ContextKind
	analyzedTextVersion uint64
	candidates          []completion.Candidate
}

// New returns an empty script identified by externalID, tracked against cat
// (may be nil) and optionally indexed by reg (may be nil).
func New(externalID uint32, cat *catalog.Catalog, reg *registry.Registry) *Script {
	return &Script{
		externalID: externalID,
		cat:        cat,
		reg:        reg,
		text:       rope.New(""),
	}
}

// ScriptID implements registry.ScriptHandle.
func (s *Script) ScriptID() uint64 { return uint64(s.externalID) }

// AnalyzedVersion implements registry.ScriptHandle: the text version the
// current AnalyzedScript was built from, or 0 if never analyzed.
func (s *Script) AnalyzedVersion() uint64 { return s.analyzedForTextVersion }

// ExpressionStillRefers implements registry.ScriptHandle.
func (s *Script) ExpressionStillRefers(expr uint32, col registry.ColumnRef) bool {
	if s.analyzed == nil || int(expr) >= len(s.analyzed.Expressions) {
		return false
	}
	e := s.analyzed.Expressions[int(expr)]
	if e.Resolved == nil {
		return false
	}
	return e.Resolved.CatalogTableID == col.Table && uint32(e.Resolved.ColumnIndex) == col.Column
}

// ColumnSnippets implements registry.ScriptHandle: a snippet per currently
// analyzed expression restricting/transforming col, rooted at the
// expression's immediate enclosing AST node (the comparison/binary/call
// wrapping the bare column-ref leaf, when there is one) so the extracted
// text reads as the filter or computation rather than a lone identifier.
func (s *Script) ColumnSnippets(col registry.ColumnRef, restriction bool) []*snippet.ScriptSnippet {
	if s.analyzed == nil || s.parsed == nil {
		return nil
	}
	var out []*snippet.ScriptSnippet
	for _, e := range s.analyzed.Expressions {
		if e.Kind != analyzer.ExprResolvedColumnRef || e.Resolved == nil {
			continue
		}
		if e.Resolved.CatalogTableID != col.Table || uint32(e.Resolved.ColumnIndex) != col.Column {
			continue
		}
		if restriction && !e.IsRestriction {
			continue
		}
		if !restriction && !(e.IsProjection && !e.IsRestriction) {
			continue
		}
		root := e.ASTNodeID
		if n := s.parsed.Nodes[root]; n.Parent != parser.InvalidNodeID {
			root = n.Parent
			// Step past the attribute/array relay marker to the real parent.
			if m := s.parsed.Nodes[root]; m.Type == parser.NodeNone && m.Parent != parser.InvalidNodeID {
				root = m.Parent
			}
		}
		out = append(out, snippet.Extract(s.parsed, s.analyzed.NodeMarkers, s.analyzed.NameReg, root))
	}
	return out
}

// InsertCharAt inserts a single codepoint at the given rune offset.
func (s *Script) InsertCharAt(charIdx int, cp rune) { s.text.InsertCodepoint(charIdx, cp) }

// InsertTextAt inserts text at the given rune offset.
func (s *Script) InsertTextAt(charIdx int, text string) { s.text.InsertAt(charIdx, text) }

// EraseRange removes count runes starting at charIdx.
func (s *Script) EraseRange(charIdx, count int) { s.text.EraseRange(charIdx, count) }

// ReplaceText discards the current content and replaces it wholesale.
func (s *Script) ReplaceText(text string) { s.text.ReplaceAll(text) }

// TextVersion returns the rope's current version.
func (s *Script) TextVersion() uint64 { return s.text.Version() }

// Text materializes the current script text.
func (s *Script) Text() string { return s.text.String() }

// Scan rescans the current text if the rope has changed since the last scan,
// and returns the (possibly cached) ScannedScript.
func (s *Script) Scan() *scanner.ScannedScript {
	if s.scanned != nil && s.scannedForVersion == s.text.Version() {
		return s.scanned
	}
	start := time.Now()
	s.scanned = scanner.Scan(s.text.String(), s.text.Version())
	s.scannedForVersion = s.text.Version()
	s.stats.ScanDuration = time.Since(start)
	zap.L().Debug("scanned script", logutil.Values(
		zap.Uint32("external_id", s.externalID),
		zap.Uint64("text_version", s.scannedForVersion),
		zap.Int("symbols", len(s.scanned.Symbols)),
		zap.Duration("duration", s.stats.ScanDuration),
	))
	return s.scanned
}

// Parse re-parses the current scan if it's stale, and returns the (possibly
// cached) ParsedScript.
func (s *Script) Parse() *parser.ParsedScript {
	scanned := s.Scan()
	if s.parsed != nil && s.parsedForVersion == s.scannedForVersion {
		return s.parsed
	}
	start := time.Now()
	s.parsed = parser.Parse(scanned)
	s.parsedForVersion = s.scannedForVersion
	s.stats.ParseDuration = time.Since(start)
	zap.L().Debug("parsed script", logutil.Values(
		zap.Uint32("external_id", s.externalID),
		zap.Int("nodes", len(s.parsed.Nodes)),
		zap.Int("statements", len(s.parsed.Statements)),
		zap.Duration("duration", s.stats.ParseDuration),
	))
	return s.parsed
}

// Analyze re-runs the analyzer if the parse is stale or the catalog has
// advanced past the version the current AnalyzedScript observed, then loads
// the result into the catalog (if any) and binds this script's own declared
// table/column names to their freshly-assigned catalog object ids.
//
// parseIfOutdated controls whether a stale parse is transparently refreshed
// first (true, the common editor-driven path) or treated as an error
// (false, for callers that want analysis pinned to an already-parsed
// snapshot).
func (s *Script) Analyze(parseIfOutdated bool) (*analyzer.AnalyzedScript, error) {
	if !parseIfOutdated && s.parsed != nil && s.parsedForVersion != s.text.Version() {
		return nil, status.New(status.ScriptNotParsed, "parse is stale and parseIfOutdated is false")
	}
	parsed := s.Parse()

	catalogVersion := uint64(0)
	if s.cat != nil {
		catalogVersion = s.cat.Version()
	}
	if s.analyzed != nil && s.analyzedForTextVersion == s.parsedForVersion && s.analyzedForCatalogVersion == catalogVersion {
		return s.analyzed, nil
	}

	start := time.Now()
	// Per spec.md §4.B: transient per-name analyzer state resets on
	// re-analysis, while interning is preserved.
	parsed.Scanned.NameReg.ResetAnalyzerState()
	analyzed := analyzer.Analyze(s.externalID, parsed, s.cat)

	if s.cat != nil {
		if err := s.cat.LoadScript(analyzed, 0); err != nil {
			return nil, err
		}
		analyzed.BindDeclaredObjectIDs()
		catalogVersion = s.cat.Version()
	}

	s.analyzed = analyzed
	s.analyzedForTextVersion = s.parsedForVersion
	s.analyzedForCatalogVersion = catalogVersion
	s.stats.AnalyzeDuration = time.Since(start)

	if s.reg != nil {
		s.reg.AddScript(s, s.restrictionExprs(), s.transformExprs())
	}

	zap.L().Debug("analyzed script", logutil.Values(
		zap.Uint32("external_id", s.externalID),
		zap.Int("expressions", len(analyzed.Expressions)),
		zap.Int("table_refs", len(analyzed.TableRefs)),
		zap.Duration("duration", s.stats.AnalyzeDuration),
	))
	return analyzed, nil
}

func (s *Script) restrictionExprs() []registry.IndexedExpr {
	return s.columnExprsWhere(func(e *analyzer.Expression) bool { return e.IsRestriction })
}

func (s *Script) transformExprs() []registry.IndexedExpr {
	return s.columnExprsWhere(func(e *analyzer.Expression) bool { return e.IsProjection && !e.IsRestriction })
}

func (s *Script) columnExprsWhere(pred func(*analyzer.Expression) bool) []registry.IndexedExpr {
	var out []registry.IndexedExpr
	for i, e := range s.analyzed.Expressions {
		if e.Kind != analyzer.ExprResolvedColumnRef || e.Resolved == nil || !pred(e) {
			continue
		}
		col := registry.ColumnRef{Table: e.Resolved.CatalogTableID, Column: uint32(e.Resolved.ColumnIndex)}
		out = append(out, registry.NewIndexedExpr(uint32(i), col))
	}
	return out
}

// CompleteAtCursor runs the completion engine at the given rune (text)
// offset, analyzing first if necessary (spec.md §4.K/§4.I). registryOverride,
// when non-nil, is used for the scripts-promotion and snippet-attachment
// passes instead of the script's own registry (spec.md §4.K's
// `complete_at_cursor(limit, registry?)`); pass nil to use the script's own.
func (s *Script) CompleteAtCursor(textOffset uint32, limit int, registryOverride *registry.Registry) ([]completion.Candidate, error) {
	analyzed, err := s.Analyze(true)
	if err != nil {
		return nil, err
	}
	reg := s.reg
	if registryOverride != nil {
		reg = registryOverride
	}
	start := time.Now()
	cur := cursor.Place(s.scanned, s.parsed, analyzed, textOffset)
	req := completion.Request{
		Scanned:  s.scanned,
		Parsed:   s.parsed,
		Analyzed: analyzed,
		Catalog:  s.cat,
		Registry: reg,
		Cursor:   cur,
		Limit:    limit,
	}
	candidates := completion.Complete(req)
	s.stats.CompleteDuration = time.Since(start)
	s.lastCompletion = &completionSnapshot{
		textOffset:          textOffset,
		contextKind:         cur.Context.Kind,
		analyzedTextVersion: s.analyzedForTextVersion,
		candidates:          candidates,
	}
	zap.L().Debug("completed at cursor", logutil.Values(
		zap.Uint32("external_id", s.externalID),
		zap.Uint32("text_offset", textOffset),
		zap.Int("candidates", len(candidates)),
		zap.Duration("duration", s.stats.CompleteDuration),
	))
	return candidates, nil
}

// SelectCompletionCandidateAtCursor implements spec.md §4.K's second-phase
// select_completion_candidate_at_cursor: re-locates the cursor against the
// most recent CompleteAtCursor call's candidate list and returns the chosen
// candidate. Fails with COMPLETION_STATE_INCOMPATIBLE if the script has been
// re-analyzed since, or the cursor no longer sits in the same kind of
// context, so an editor can tell "still good to commit" from "rebuild the
// list first". A text edit that has not been analyzed yet does not by itself
// fail the check.
func (s *Script) SelectCompletionCandidateAtCursor(candidateIdx int) (*completion.Candidate, error) {
	snap, err := s.checkCompletionSnapshot()
	if err != nil {
		return nil, err
	}
	if candidateIdx < 0 || candidateIdx >= len(snap.candidates) {
		return nil, status.New(status.CompletionStateIncompatible, "completion candidate index out of range")
	}
	return &snap.candidates[candidateIdx], nil
}

// SelectCompletionCatalogObjectAtCursor implements spec.md §4.K's
// select_completion_catalog_object_at_cursor: like
// SelectCompletionCandidateAtCursor, but scoped down to one of the chosen
// candidate's resolved catalog objects.
func (s *Script) SelectCompletionCatalogObjectAtCursor(candidateIdx, objectIdx int) (*completion.CandidateObject, error) {
	c, err := s.SelectCompletionCandidateAtCursor(candidateIdx)
	if err != nil {
		return nil, err
	}
	if objectIdx < 0 || objectIdx >= len(c.Objects) {
		return nil, status.New(status.CompletionStateIncompatible, "completion catalog object index out of range")
	}
	return c.Objects[objectIdx], nil
}

func (s *Script) checkCompletionSnapshot() (*completionSnapshot, error) {
	snap := s.lastCompletion
	if snap == nil {
		return nil, status.New(status.CompletionStateIncompatible, "no completion computed at this cursor yet")
	}
	if s.analyzed == nil || s.analyzedForTextVersion != snap.analyzedTextVersion {
		return nil, status.New(status.CompletionStateIncompatible, "script re-analyzed since completion was computed")
	}
	cur := cursor.Place(s.scanned, s.parsed, s.analyzed, snap.textOffset)
	if cur.Context.Kind != snap.contextKind {
		return nil, status.New(status.CompletionStateIncompatible, "cursor context changed since completion was computed")
	}
	return snap, nil
}

// Statistics returns the elapsed-time statistics of the most recent run of
// each pipeline stage.
func (s *Script) Statistics() Statistics { return s.stats }

// GetMemoryStatistics reports the approximate size of this script's cached
// pipeline outputs.
func (s *Script) GetMemoryStatistics() MemoryStatistics {
	m := MemoryStatistics{RopeRunes: s.text.Len()}
	if s.scanned != nil {
		m.ScannedSymbols = len(s.scanned.Symbols)
	}
	if s.parsed != nil {
		m.ParsedNodes = len(s.parsed.Nodes)
	}
	if s.analyzed != nil {
		m.AnalyzedExpressions = len(s.analyzed.Expressions)
		m.AnalyzedTableRefs = len(s.analyzed.TableRefs)
	}
	return m
}

// Close drops this script from the catalog and the registry, releasing its
// contributions to both (spec.md §4.K's lifecycle end).
func (s *Script) Close() {
	if s.cat != nil {
		s.cat.DropScript(s.externalID)
	}
	if s.reg != nil {
		s.reg.DropScript(s.ScriptID())
	}
}
