// Package registry implements the secondary script index of spec.md §4.G:
// two sets keyed by (table object id, column index, script id, expression id)
// answering
// "which scripts restrict/transform this column?" without scanning every
// analyzed script. Grounded on the teacher's internal/reactive registry's
// mutex-map-with-lazy-cleanup texture, rebuilt here over the new analyzer's
// Expression/Scope shapes rather than pg_query_go's lineage graph.
package registry

import (
	"sync"

	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/snippet"
)

// ColumnRef names a column an expression restricts or transforms.
type ColumnRef struct {
	Table  catalog.ObjectID
	Column uint32
}

// ScriptHandle is the minimal view the registry needs of a live script: an
// identity, its current analyzed version, and a way to re-check whether a
// given expression still exists and still touches the same column at the
// version it was indexed under. internal/script's Script type satisfies
// this without registry needing to import it.
type ScriptHandle interface {
	ScriptID() uint64
	AnalyzedVersion() uint64
	// ExpressionStillRefers reports whether expr (by local id) still exists
	// in the script's current analyzed script and still refers to col.
	ExpressionStillRefers(expr uint32, col ColumnRef) bool
	// ColumnSnippets extracts a script snippet for every currently analyzed
	// expression still restricting (restriction=true) or transforming
	// (restriction=false) col, for the completion engine's snippet
	// attachment (spec.md §4.I.10).
	ColumnSnippets(col ColumnRef, restriction bool) []*snippet.ScriptSnippet
}

type key struct {
	col      ColumnRef
	scriptID uint64
	expr     uint32
}

type slot struct {
	script  ScriptHandle
	version uint64
}

// Registry is the mutable secondary index. Safe for concurrent use.
type Registry struct {
	mu sync.Mutex

	restrictions map[key]*slot
	transforms   map[key]*slot

	// byScript lets DropScript / re-indexing on edit find every key a given
	// script contributed, without a full scan.
	byScript map[uint64][]key
}

func New() *Registry {
	return &Registry{
		restrictions: make(map[key]*slot),
		transforms:   make(map[key]*slot),
		byScript:     make(map[uint64][]key),
	}
}

// AddScript indexes script's restriction and transform expressions at its
// current analyzed version (spec.md §4.G's add_script). Call again after
// every re-analysis; old entries for the script are dropped first so the
// index never holds two versions of the same script's contributions.
func (r *Registry) AddScript(script ScriptHandle, restrictions, transforms []IndexedExpr) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dropScriptLocked(script.ScriptID())

	version := script.AnalyzedVersion()
	var keys []key
	for _, ie := range restrictions {
		k := key{col: ie.Column, scriptID: script.ScriptID(), expr: ie.ExprID}
		r.restrictions[k] = &slot{script: script, version: version}
		keys = append(keys, k)
	}
	for _, ie := range transforms {
		k := key{col: ie.Column, scriptID: script.ScriptID(), expr: ie.ExprID}
		r.transforms[k] = &slot{script: script, version: version}
		keys = append(keys, k)
	}
	r.byScript[script.ScriptID()] = keys
}

// IndexedExpr pairs a restriction/transform expression with the column it
// refers to, the unit AddScript's caller supplies per expression.
type IndexedExpr struct {
	ExprID uint32
	Column ColumnRef
}

func NewIndexedExpr(exprID uint32, col ColumnRef) IndexedExpr {
	return IndexedExpr{ExprID: exprID, Column: col}
}

// DropScript removes every entry contributed by scriptID (spec.md §4.G's
// drop_script), e.g. when a script is closed.
func (r *Registry) DropScript(scriptID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropScriptLocked(scriptID)
}

func (r *Registry) dropScriptLocked(scriptID uint64) {
	for _, k := range r.byScript[scriptID] {
		delete(r.restrictions, k)
		delete(r.transforms, k)
	}
	delete(r.byScript, scriptID)
}

// CollectColumnFilters returns every live script with a restriction
// referring to col, lazily evicting stale entries encountered along the way
// (spec.md §4.G: "Stale entries are lazily removed on hit").
func (r *Registry) CollectColumnFilters(col ColumnRef) []ScriptHandle {
	return r.collect(r.restrictions, col)
}

// CollectColumnComputations mirrors CollectColumnFilters for transforms.
func (r *Registry) CollectColumnComputations(col ColumnRef) []ScriptHandle {
	return r.collect(r.transforms, col)
}

func (r *Registry) collect(set map[key]*slot, col ColumnRef) []ScriptHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ScriptHandle
	seen := make(map[uint64]bool)
	for k, s := range set {
		if k.col != col {
			continue
		}
		if s.version != s.script.AnalyzedVersion() || !s.script.ExpressionStillRefers(k.expr, col) {
			delete(set, k)
			continue
		}
		if !seen[k.scriptID] {
			seen[k.scriptID] = true
			out = append(out, s.script)
		}
	}
	return out
}

// Clear empties the registry (spec.md §4.G's registry lifecycle `clear`).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restrictions = make(map[key]*slot)
	r.transforms = make(map[key]*slot)
	r.byScript = make(map[uint64][]key)
}
