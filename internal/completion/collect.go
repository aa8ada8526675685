package completion

import (
	"strings"

	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/cursor"
	"github.com/dashql/dashql-go/internal/names"
	"github.com/dashql/dashql-go/internal/parser"
	"github.com/dashql/dashql-go/internal/scanner"
)

// collectKeywordCandidates implements spec.md §4.I.3: every expected grammar
// keyword becomes a candidate pushed straight into the result heap.
func collectKeywordCandidates(req *Request, expects *parser.ExpectedSymbols, strategy Strategy, heap *topK) {
	if expects == nil {
		return
	}
	prefix := currentSymbolPrefix(req.Scanned, req.Cursor.Location)
	for k := range expects.Kinds {
		if !k.IsKeyword() {
			continue
		}
		spelling := k.String()
		tag := TagKeywordDefault
		switch {
		case veryPopularKeywords[k]:
			tag = TagKeywordVeryPopular
		case popularKeywords[k]:
			tag = TagKeywordPopular
		}
		tag |= TagExpectedParserSymbol
		if m := matchesPrefix(spelling, prefix); m != 0 {
			tag |= m
		}
		base := likelyScore // keywords are always plausible regardless of strategy
		obj := &CandidateObject{Tags: tag}
		obj.Score = base + objectContribution(tag)
		heap.push(Candidate{Name: spelling, Objects: []*CandidateObject{obj}, Score: obj.Score})
	}
}

// currentSymbolPrefix extracts the typed-so-far text under the cursor, trimmed
// of surrounding double quotes, per spec.md §4.I.5.
func currentSymbolPrefix(scanned *scanner.ScannedScript, loc scanner.LocationInfo) string {
	sym := loc.Symbol
	if loc.RelativePos == scanner.NewSymbolBefore || loc.RelativePos == scanner.NewSymbolAfter {
		return ""
	}
	if int(sym.Location.Offset) >= len(scanned.Text) {
		return ""
	}
	end := loc.TextOffset
	start := sym.Location.Offset
	if end > sym.Location.End() {
		end = sym.Location.End()
	}
	if end < start {
		return ""
	}
	text := scanned.Text
	if int(end) > len(text) {
		end = uint32(len(text))
	}
	prefix := text[start:end]
	return strings.Trim(prefix, `"`)
}

// collectDotCandidates implements spec.md §4.I.4.
func collectDotCandidates(req *Request, strategy Strategy, byName map[string]*Candidate, byID map[catalog.ObjectID]*CandidateObject) {
	path, lastPrefix := dotNamePath(req)
	sealed := len(path)
	if sealed == 0 {
		return
	}

	switch req.Cursor.Context.Kind {
	case cursor.ContextTableRef:
		selfEntry := req.Analyzed.ExternalID()
		switch sealed {
		case 1:
			a := path[0]
			if req.Catalog != nil {
				for _, t := range req.Catalog.ResolveSchemaTables(a) {
					addDotCandidate(byName, byID, t.Table.TableName, names.TagTableName, TagDotResolutionTable, t.Table.CatalogTableID, lastPrefix, t.EntryID != selfEntry)
				}
				for _, schema := range req.Catalog.ResolveDatabaseSchemas(a) {
					schemaID := req.Catalog.AllocateSchemaID(a, schema)
					addDotCandidate(byName, byID, schema, names.TagSchemaName, TagDotResolutionSchema, catalog.SchemaObjectID(schemaID), lastPrefix, false)
				}
			}
		case 2:
			if req.Catalog != nil {
				for _, t := range req.Catalog.ResolveSchemaTables(path[1]) {
					if t.Table.DatabaseName != path[0] {
						continue
					}
					addDotCandidate(byName, byID, t.Table.TableName, names.TagTableName, TagDotResolutionTable, t.Table.CatalogTableID, lastPrefix, t.EntryID != selfEntry)
				}
			}
		}
	case cursor.ContextColumnRef:
		if sealed != 1 {
			return
		}
		alias := path[0]
		selfEntry := req.Analyzed.ExternalID()
		for _, scope := range req.Cursor.Scopes {
			refID, ok := scope.ReferencedTablesByName[alias]
			if !ok {
				continue
			}
			ref := req.Analyzed.TableRefs[refID]
			if !ref.Inner.Resolved {
				return
			}
			t := ref.Inner.Selected.Table
			through := ref.Inner.Selected.EntryID != selfEntry
			for _, col := range t.Columns {
				addDotCandidate(byName, byID, col.Name, names.TagColumnName, TagDotResolutionColumn,
					catalog.TableColumnObjectID(t.CatalogTableID.A, uint32(col.Index)), lastPrefix, through)
			}
			return
		}
	}
}

func addDotCandidate(byName map[string]*Candidate, byID map[catalog.ObjectID]*CandidateObject, name string, nameTag names.Tag, resTag ObjectTag, id catalog.ObjectID, prefix string, throughCatalog bool) {
	c := getOrCreateCandidate(byName, name, nameTag)
	o := getOrCreateObject(byID, c, id)
	o.Tags |= resTag
	if throughCatalog {
		o.Tags |= TagThroughCatalog
	}
	if m := matchesPrefix(name, prefix); m != 0 {
		o.Tags |= m
	}
}

// dotNamePath reads the AST name path under the cursor, returning the sealed
// components (those entirely left of the cursor) and the partial text of the
// component the cursor sits in.
func dotNamePath(req *Request) ([]string, string) {
	node := req.Cursor.ASTNodeID
	if node == parser.InvalidNodeID || req.Analyzed == nil {
		return nil, ""
	}
	n := req.Parsed.Nodes[node]
	parent := n.Parent
	if parent == parser.InvalidNodeID {
		return nil, ""
	}
	pn := req.Parsed.Nodes[parent]
	if pn.Type != parser.NodeArray {
		return nil, ""
	}
	var parts []string
	for i := pn.ChildrenBeginOrValue; i < pn.ChildrenBeginOrValue+pn.ChildrenCount; i++ {
		marker := req.Parsed.Nodes[i]
		childID := parser.NodeID(marker.ChildrenBeginOrValue)
		if childID == node {
			break
		}
		parts = append(parts, nameLeafText(req, childID))
	}
	prefix := currentSymbolPrefix(req.Scanned, req.Cursor.Location)
	return parts, prefix
}

func nameLeafText(req *Request, id parser.NodeID) string {
	n := req.Parsed.Nodes[id]
	if n.Type != parser.NodeNameLeaf {
		return ""
	}
	rn := req.Analyzed.NameReg.Get(names.ID(n.ChildrenBeginOrValue))
	if rn == nil {
		return ""
	}
	return rn.Text
}

// collectIdentifierCandidates implements spec.md §4.I.5's non-dot path over
// the name suffix index: the current script's own registry first, then every
// other loaded catalog entry's registry in rank order, tagging hits that
// crossed an entry boundary THROUGH_CATALOG.
func collectIdentifierCandidates(req *Request, strategy Strategy, byName map[string]*Candidate, byID map[catalog.ObjectID]*CandidateObject) {
	if req.Analyzed == nil {
		return
	}
	search := currentSymbolPrefix(req.Scanned, req.Cursor.Location)
	if search == "" {
		search = fullSymbolText(req.Scanned, req.Cursor.Location)
	}

	idx := names.BuildSuffixIndex(req.Analyzed.NameReg, 1)
	for _, id := range idx.Search(search) {
		rn := req.Analyzed.NameReg.Get(id)
		if rn == nil {
			continue
		}
		if rn.Occurrences == 1 && req.Cursor.Location.TextOffset >= rn.FirstSeen.Offset && req.Cursor.Location.TextOffset <= rn.FirstSeen.Offset+rn.FirstSeen.Length {
			continue // skip the cursor's own identifier
		}
		c := getOrCreateCandidate(byName, rn.Text, rn.Tags)
		for _, objID := range rn.ResolvedObjects {
			o := getOrCreateObject(byID, c, catalog.DecodeObjectID(objID))
			o.Tags |= TagNameIndex
			if m := matchesPrefix(rn.Text, search); m != 0 {
				o.Tags |= m
			}
		}
	}

	if req.Catalog == nil {
		return
	}
	selfEntry := req.Analyzed.ExternalID()
	for _, eid := range req.Catalog.EntryIDs() {
		if eid == selfEntry {
			continue
		}
		entry, ok := req.Catalog.EntryByID(eid)
		if !ok {
			continue
		}
		reg := entry.NameRegistry()
		if reg == nil {
			continue
		}
		otherIdx := names.BuildSuffixIndex(reg, 1)
		for _, id := range otherIdx.Search(search) {
			rn := reg.Get(id)
			if rn == nil {
				continue
			}
			c := getOrCreateCandidate(byName, rn.Text, rn.Tags)
			for _, objID := range resolveEntryNameObjects(entry, rn) {
				o := getOrCreateObject(byID, c, objID)
				o.Tags |= TagNameIndex | TagThroughCatalog
				if m := matchesPrefix(rn.Text, search); m != 0 {
					o.Tags |= m
				}
			}
		}
	}
}

// resolveEntryNameObjects resolves a registered name from another catalog
// entry's registry to the catalog objects it names, by matching against that
// entry's table declarations (rather than trusting ResolvedObjects, which a
// descriptor-pool-backed entry's registry never populates).
func resolveEntryNameObjects(entry catalog.Entry, rn *names.RegisteredName) []catalog.ObjectID {
	var out []catalog.ObjectID
	for _, t := range entry.Tables() {
		if rn.Tags.Has(names.TagTableName) && t.TableName == rn.Text {
			out = append(out, t.CatalogTableID)
		}
		if rn.Tags.Has(names.TagColumnName) {
			if idx, ok := t.ColumnsByName[rn.Text]; ok {
				out = append(out, catalog.TableColumnObjectID(t.CatalogTableID.A, uint32(idx)))
			}
		}
	}
	return out
}

// fullSymbolText extracts the entire text span of the symbol under the
// cursor (not clamped to the cursor offset), for the empty-prefix fallback
// of spec.md §4.I.5: a cursor sitting mid-identifier still searches on the
// identifier's full spelling, not its token kind.
func fullSymbolText(scanned *scanner.ScannedScript, loc scanner.LocationInfo) string {
	if loc.RelativePos == scanner.NewSymbolBefore || loc.RelativePos == scanner.NewSymbolAfter {
		return ""
	}
	sym := loc.Symbol
	start, end := sym.Location.Offset, sym.Location.End()
	if int(start) >= len(scanned.Text) {
		return ""
	}
	if int(end) > len(scanned.Text) {
		end = uint32(len(scanned.Text))
	}
	return strings.Trim(scanned.Text[start:end], `"`)
}

