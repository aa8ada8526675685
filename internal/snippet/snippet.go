// Package snippet implements the snippet extractor of spec.md §4.J: given a
// script's parsed AST and node markers, produces a self-contained
// ScriptSnippet (its own text slice, name table, and node buffer) rooted at
// one AST node, plus template/raw structural signatures for deduplicating
// similar filters/computations found across scripts.
//
// The extractor mirrors parser.Parser's object()/array() marker-relay
// technique (see parser.go) rather than the source's DFS-then-reverse
// construction: since this module's node buffer is already the markered
// variant (SPEC_FULL.md §0's resolution of that Open Question), building the
// snippet bottom-up via the same relay nodes produces an identical final
// shape without a separate reversal pass.
package snippet

import (
	"hash/fnv"
	"strconv"

	"github.com/dashql/dashql-go/internal/analyzer"
	"github.com/dashql/dashql-go/internal/names"
	"github.com/dashql/dashql-go/internal/parser"
)

// NodeID indexes into a ScriptSnippet's own Nodes buffer.
type NodeID uint32

const InvalidNodeID NodeID = 0xFFFFFFFF

// Node mirrors parser.Node but with snippet-local ids and a base-offset
// adjusted Location.
type Node struct {
	Offset               uint32
	Length               uint32
	Type                 parser.NodeType
	AttributeKey         parser.AttributeKey
	Parent               NodeID
	ChildrenBeginOrValue uint32
	ChildrenCount        uint32
}

// ScriptSnippet is the owned, portable extraction of spec.md §4.J.
type ScriptSnippet struct {
	Text        string
	Names       []string
	Nodes       []Node
	NodeMarkers []analyzer.MarkerType
	RootNodeID  NodeID
}

type builder struct {
	src     *parser.ParsedScript
	markers []analyzer.MarkerType
	nameReg *names.Registry
	base    uint32

	nodes       []Node
	nodeMarkers []analyzer.MarkerType

	nameIndex map[names.ID]int
	localNames []string
}

// Extract builds a ScriptSnippet rooted at root, given the parsed script it
// came from, its analyzer-produced node markers (indexed by parser.NodeID),
// and the name registry that resolves NAME leaf node ids.
func Extract(parsed *parser.ParsedScript, markers []analyzer.MarkerType, nameReg *names.Registry, root parser.NodeID) *ScriptSnippet {
	rootLoc := parsed.Nodes[root].Location
	b := &builder{
		src:       parsed,
		markers:   markers,
		nameReg:   nameReg,
		base:      rootLoc.Offset,
		nameIndex: make(map[names.ID]int),
	}
	rootNew := b.convert(root)

	text := ""
	if int(rootLoc.Offset) <= len(parsed.Scanned.Text) {
		end := rootLoc.Offset + rootLoc.Length
		if int(end) > len(parsed.Scanned.Text) {
			end = uint32(len(parsed.Scanned.Text))
		}
		text = parsed.Scanned.Text[rootLoc.Offset:end]
	}

	b.nodes[rootNew].Parent = InvalidNodeID
	return &ScriptSnippet{
		Text:        text,
		Names:       b.localNames,
		Nodes:       b.nodes,
		NodeMarkers: b.nodeMarkers,
		RootNodeID:  NodeID(rootNew),
	}
}

func (b *builder) markerFor(src parser.NodeID) analyzer.MarkerType {
	if int(src) < len(b.markers) {
		return b.markers[src]
	}
	return analyzer.MarkerNone
}

// pushContentNode appends a node that corresponds to a real source node,
// carrying its marker across.
func (b *builder) pushContentNode(src parser.NodeID, typ parser.NodeType, value uint32) NodeID {
	loc := b.src.Nodes[src].Location
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{
		Offset:               loc.Offset - b.base,
		Length:               loc.Length,
		Type:                 typ,
		AttributeKey:         b.src.Nodes[src].AttributeKey,
		Parent:               InvalidNodeID,
		ChildrenBeginOrValue: value,
	})
	b.nodeMarkers = append(b.nodeMarkers, b.markerFor(src))
	return id
}

func (b *builder) localNameIndex(id names.ID) int {
	if idx, ok := b.nameIndex[id]; ok {
		return idx
	}
	idx := len(b.localNames)
	text := ""
	if rn := b.nameReg.Get(id); rn != nil {
		text = rn.Text
	}
	b.localNames = append(b.localNames, text)
	b.nameIndex[id] = idx
	return idx
}

type attrChild struct {
	key parser.AttributeKey
	id  NodeID
}

// convert translates a source AST node (and its subtree) into the snippet's
// own buffer, returning the new node's id.
func (b *builder) convert(src parser.NodeID) NodeID {
	n := b.src.Nodes[src]

	switch {
	case n.Type == parser.NodeNameLeaf:
		idx := b.localNameIndex(names.ID(n.ChildrenBeginOrValue))
		return b.pushContentNode(src, n.Type, uint32(idx))

	case n.Type.IsLeaf(), n.Type == parser.NodeBoolLeaf, n.Type.IsEnum(), n.Type == parser.NodeNone:
		return b.pushContentNode(src, n.Type, n.ChildrenBeginOrValue)

	case n.Type == parser.NodeArray:
		children := realChildren(b.src, src)
		newChildren := make([]NodeID, 0, len(children))
		for _, c := range children {
			newChildren = append(newChildren, b.convert(c))
		}
		return b.buildArray(src, newChildren)

	case n.Type.IsObject():
		pairs := objectAttrChildren(b.src, src)
		attrs := make([]attrChild, 0, len(pairs))
		for _, p := range pairs {
			newID := b.convert(p.id)
			attrs = append(attrs, attrChild{p.key, newID})
		}
		return b.buildObject(src, attrs)

	default:
		return b.pushContentNode(src, n.Type, n.ChildrenBeginOrValue)
	}
}

// buildObject relays attrs through marker nodes exactly as parser.object
// does, so the object's children span stays contiguous despite each real
// child's new id being scattered through its own already-appended subtree.
func (b *builder) buildObject(src parser.NodeID, attrs []attrChild) NodeID {
	count := 0
	for _, a := range attrs {
		if a.id != InvalidNodeID {
			count++
		}
	}
	attrBegin := uint32(len(b.nodes))
	for _, a := range attrs {
		if a.id == InvalidNodeID {
			continue
		}
		b.nodes[a.id].AttributeKey = a.key
		marker := NodeID(len(b.nodes))
		b.nodes = append(b.nodes, Node{
			Offset:               b.nodes[a.id].Offset,
			Length:               b.nodes[a.id].Length,
			Type:                 parser.NodeNone,
			AttributeKey:         a.key,
			Parent:               InvalidNodeID,
			ChildrenBeginOrValue: uint32(a.id),
			ChildrenCount:        1,
		})
		b.nodeMarkers = append(b.nodeMarkers, analyzer.MarkerNone)
		b.nodes[a.id].Parent = marker
	}
	objID := b.pushContentNode(src, b.src.Nodes[src].Type, 0)
	b.nodes[objID].ChildrenBeginOrValue = attrBegin
	b.nodes[objID].ChildrenCount = uint32(count)
	for i := attrBegin; i < uint32(objID); i++ {
		b.nodes[i].Parent = objID
	}
	return objID
}

func (b *builder) buildArray(src parser.NodeID, children []NodeID) NodeID {
	begin := uint32(len(b.nodes))
	for _, c := range children {
		marker := NodeID(len(b.nodes))
		b.nodes = append(b.nodes, Node{
			Offset:               b.nodes[c].Offset,
			Length:               b.nodes[c].Length,
			Type:                 parser.NodeNone,
			Parent:               InvalidNodeID,
			ChildrenBeginOrValue: uint32(c),
			ChildrenCount:        1,
		})
		b.nodeMarkers = append(b.nodeMarkers, analyzer.MarkerNone)
		b.nodes[c].Parent = marker
	}
	arrID := b.pushContentNode(src, parser.NodeArray, 0)
	b.nodes[arrID].ChildrenBeginOrValue = begin
	b.nodes[arrID].ChildrenCount = uint32(len(children))
	for i := begin; i < uint32(arrID); i++ {
		b.nodes[i].Parent = arrID
	}
	return arrID
}

// realChildren resolves an ARRAY node's marker-relayed children to their
// real source node ids.
func realChildren(parsed *parser.ParsedScript, arr parser.NodeID) []parser.NodeID {
	n := parsed.Nodes[arr]
	if n.Type != parser.NodeArray {
		return nil
	}
	out := make([]parser.NodeID, 0, n.ChildrenCount)
	for i := n.ChildrenBeginOrValue; i < n.ChildrenBeginOrValue+n.ChildrenCount; i++ {
		out = append(out, parser.NodeID(parsed.Nodes[i].ChildrenBeginOrValue))
	}
	return out
}

type srcAttrChild struct {
	key parser.AttributeKey
	id  parser.NodeID
}

func objectAttrChildren(parsed *parser.ParsedScript, object parser.NodeID) []srcAttrChild {
	n := parsed.Nodes[object]
	if !n.Type.IsObject() {
		return nil
	}
	out := make([]srcAttrChild, 0, n.ChildrenCount)
	for i := n.ChildrenBeginOrValue; i < n.ChildrenBeginOrValue+n.ChildrenCount; i++ {
		marker := parsed.Nodes[i]
		out = append(out, srcAttrChild{marker.AttributeKey, parser.NodeID(marker.ChildrenBeginOrValue)})
	}
	return out
}

// TemplateSignature hashes only (node_type, attribute_key, child count) for
// every node, ignoring names and literal text — stable across renames and
// constant value changes (spec.md §4.J).
func (s *ScriptSnippet) TemplateSignature() uint64 {
	h := fnv.New64a()
	for _, n := range s.Nodes {
		writeUint(h, uint64(n.Type))
		writeUint(h, uint64(n.AttributeKey))
		writeUint(h, uint64(n.ChildrenCount))
	}
	return h.Sum64()
}

// RawSignature additionally hashes names and literal text.
func (s *ScriptSnippet) RawSignature() uint64 {
	h := fnv.New64a()
	for _, n := range s.Nodes {
		writeUint(h, uint64(n.Type))
		writeUint(h, uint64(n.AttributeKey))
		writeUint(h, uint64(n.ChildrenCount))
		if n.Type == parser.NodeNameLeaf && int(n.ChildrenBeginOrValue) < len(s.Names) {
			h.Write([]byte(s.Names[n.ChildrenBeginOrValue]))
		}
		if isLiteral(n.Type) {
			end := n.Offset + n.Length
			if end <= uint32(len(s.Text)) {
				h.Write([]byte(s.Text[n.Offset:end]))
			}
		}
	}
	return h.Sum64()
}

func isLiteral(t parser.NodeType) bool {
	switch t {
	case parser.NodeLiteralInteger, parser.NodeLiteralFloat, parser.NodeLiteralString, parser.NodeLiteralNull:
		return true
	}
	return false
}

func writeUint(h interface{ Write([]byte) (int, error) }, v uint64) {
	h.Write([]byte(strconv.FormatUint(v, 16)))
}

// Equal compares two snippets' structural shape. When ignoreNamesAndLiterals
// is true it compares template signatures; otherwise raw signatures.
func Equal(a, b *ScriptSnippet, ignoreNamesAndLiterals bool) bool {
	if ignoreNamesAndLiterals {
		return a.TemplateSignature() == b.TemplateSignature()
	}
	return a.RawSignature() == b.RawSignature()
}
