// Package names implements the per-owner name registry of spec.md §4.B: an
// append-only buffer of RegisteredName plus a hash map from interned text to
// the name id, accumulating occurrence counts, coarse name tags, and
// back-references to resolved catalog objects.
package names

import "strings"

// ID is an index into a Registry's buffer.
type ID uint32

// Tag is a coarse name-tag bit. Multiple tags accumulate on one name via OR.
type Tag uint8

const (
	TagNone Tag = 0
	TagDatabaseName Tag = 1 << (iota - 1)
	TagSchemaName
	TagTableName
	TagTableAlias
	TagColumnName
)

// Has reports whether t contains the bit b.
func (t Tag) Has(b Tag) bool { return t&b != 0 }

// Location mirrors status.Location to avoid an import cycle into a package
// this low in the dependency graph; scanner/parser convert as needed.
type Location struct {
	Offset uint32
	Length uint32
}

// RegisteredName is one interned identifier.
type RegisteredName struct {
	ID ID
	// Text is the case-preserved interned text (lower-cased for unquoted
	// identifiers per spec.md §4.C, verbatim for quoted ones).
	Text string
	// FirstSeen is the location of the first occurrence.
	FirstSeen Location
	// Occurrences counts how many times this text was registered.
	Occurrences int
	// Tags accumulates coarse name tags across all occurrences.
	Tags Tag
	// ResolvedObjects is an intrusive list of catalog object ids sharing this
	// name, added during analysis. Transient: reset on re-analysis.
	ResolvedObjects []uint64
}

// Registry is one owner's (scanned script or descriptor pool) name table.
type Registry struct {
	names    []RegisteredName
	byText   map[string]ID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byText: make(map[string]ID)}
}

// Register interns text, returning the existing id (bumping occurrences and
// OR-ing tag) or appending a new RegisteredName.
func (r *Registry) Register(text string, loc Location, tag Tag) ID {
	if id, ok := r.byText[text]; ok {
		n := &r.names[id]
		n.Occurrences++
		n.Tags |= tag
		return id
	}
	id := ID(len(r.names))
	r.names = append(r.names, RegisteredName{
		ID:          id,
		Text:        text,
		FirstSeen:   loc,
		Occurrences: 1,
		Tags:        tag,
	})
	r.byText[text] = id
	return id
}

// Get returns the name at id.
func (r *Registry) Get(id ID) *RegisteredName {
	if int(id) >= len(r.names) {
		return nil
	}
	return &r.names[id]
}

// Lookup returns the id for previously-registered text.
func (r *Registry) Lookup(text string) (ID, bool) {
	id, ok := r.byText[text]
	return id, ok
}

// All returns every registered name, in registration order.
func (r *Registry) All() []RegisteredName { return r.names }

// Len returns the number of registered names.
func (r *Registry) Len() int { return len(r.names) }

// AddResolvedObject appends a catalog object id to a name's back-reference list.
func (r *Registry) AddResolvedObject(id ID, objectID uint64) {
	n := r.Get(id)
	if n == nil {
		return
	}
	n.ResolvedObjects = append(n.ResolvedObjects, objectID)
}

// ResetAnalyzerState clears the transient per-name analyzer state
// (ResolvedObjects) ahead of re-analysis, while preserving interning — per
// spec.md §4.B: "On re-analysis, per-name transient state... is reset; the
// interning is preserved."
func (r *Registry) ResetAnalyzerState() {
	for i := range r.names {
		r.names[i].ResolvedObjects = nil
	}
}

// SuffixIndex is a multimap from every suffix of a registered name (folded to
// lower case) to the names it came from, used to drive the non-dot
// identifier-completion search of spec.md §4.I.5. It is built lazily by a
// caller (the analyzed script) from the owner's Registry.
type SuffixIndex struct {
	minLen int
	bySuffix map[string][]ID
	sorted   []string
}

// BuildSuffixIndex constructs a SuffixIndex over reg, inserting every suffix
// of length >= minLen for each registered name.
func BuildSuffixIndex(reg *Registry, minLen int) *SuffixIndex {
	idx := &SuffixIndex{minLen: minLen, bySuffix: make(map[string][]ID)}
	for _, n := range reg.All() {
		lower := strings.ToLower(n.Text)
		runes := []rune(lower)
		for start := 0; start < len(runes); start++ {
			suf := string(runes[start:])
			if len(suf) < minLen {
				continue
			}
			idx.bySuffix[suf] = append(idx.bySuffix[suf], n.ID)
		}
	}
	idx.sorted = make([]string, 0, len(idx.bySuffix))
	for k := range idx.bySuffix {
		idx.sorted = append(idx.sorted, k)
	}
	sortStrings(idx.sorted)
	return idx
}

func sortStrings(s []string) {
	// insertion sort is fine; suffix index sizes are small relative to script size
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Search returns every name id whose suffix set contains an entry with the
// given lower-case prefix, analogous to lower_bound(prefix) + scan-while-
// prefix-matches over the suffix multimap (spec.md §4.I.5).
func (idx *SuffixIndex) Search(prefix string) []ID {
	if idx == nil {
		return nil
	}
	prefix = strings.ToLower(prefix)
	lo := lowerBound(idx.sorted, prefix)
	var out []ID
	seen := make(map[ID]bool)
	for i := lo; i < len(idx.sorted); i++ {
		if !strings.HasPrefix(idx.sorted[i], prefix) {
			break
		}
		for _, id := range idx.bySuffix[idx.sorted[i]] {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func lowerBound(sorted []string, prefix string) int {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid] < prefix {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
