// Package rope implements the text buffer described in spec.md §4.A: a
// character-oriented piece table with insert/erase, a monotonically
// increasing version counter, and full materialization via String().
//
// The underlying structure is a flat piece list rather than a tree of
// pieces, which keeps the implementation small. An edit locates its piece by
// a linear scan over the list and rebuilds the piece slice around the edit
// boundary, so insert and erase are O(number of pieces).
package rope

import (
	"strings"
	"unicode/utf8"
)

// piece is a half-open slice [start, end) into one of the rope's buffers,
// measured in runes (not bytes) so that character-offset edits are exact.
type piece struct {
	buf   []rune
	start int
	end   int
}

func (p piece) len() int { return p.end - p.start }

// Rope is the mutable text buffer. The zero value is an empty rope.
type Rope struct {
	pieces  []piece
	length  int // total rune count
	version uint64
}

// New returns a Rope initialized with the given text.
func New(text string) *Rope {
	r := &Rope{}
	r.ReplaceAll(text)
	return r
}

// Version returns the current text version. Every mutating call increments it.
func (r *Rope) Version() uint64 { return r.version }

// Len returns the total length in runes.
func (r *Rope) Len() int { return r.length }

// String materializes the full text.
func (r *Rope) String() string {
	var b strings.Builder
	b.Grow(r.length)
	for _, p := range r.pieces {
		b.WriteString(string(p.buf[p.start:p.end]))
	}
	return b.String()
}

// WithSentinels returns the full text with two trailing NUL bytes appended,
// as required by the scanner's end-of-buffer handling (spec.md §4.C).
func (r *Rope) WithSentinels() string {
	return r.String() + "\x00\x00"
}

// InsertAt inserts a UTF-8 slice at the given rune offset.
func (r *Rope) InsertAt(charIdx int, text string) {
	if text == "" {
		return
	}
	charIdx = clamp(charIdx, 0, r.length)
	runes := []rune(text)
	idx, offset := r.locate(charIdx)
	newPiece := piece{buf: runes, start: 0, end: len(runes)}
	r.pieces = insertPieceAt(r.pieces, idx, offset, newPiece)
	r.length += len(runes)
	r.version++
}

// InsertCodepoint inserts a single Unicode codepoint at the given rune offset.
func (r *Rope) InsertCodepoint(charIdx int, cp rune) {
	buf := make([]byte, utf8.UTFMax)
	n := utf8.EncodeRune(buf, cp)
	r.InsertAt(charIdx, string(buf[:n]))
}

// EraseRange removes count runes starting at charIdx.
func (r *Rope) EraseRange(charIdx, count int) {
	if count <= 0 {
		return
	}
	charIdx = clamp(charIdx, 0, r.length)
	count = clamp(count, 0, r.length-charIdx)
	if count == 0 {
		return
	}
	r.pieces = eraseRange(r.pieces, charIdx, charIdx+count)
	r.length -= count
	r.version++
}

// ReplaceAll discards the current content and replaces it with text.
func (r *Rope) ReplaceAll(text string) {
	runes := []rune(text)
	if len(runes) == 0 {
		r.pieces = nil
	} else {
		r.pieces = []piece{{buf: runes, start: 0, end: len(runes)}}
	}
	r.length = len(runes)
	r.version++
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// locate finds the piece index and the in-piece rune offset for a global rune
// offset. If the offset sits exactly on a piece boundary, it returns the
// piece that starts there (or len(pieces) at end of rope).
func (r *Rope) locate(charIdx int) (pieceIdx, inPieceOffset int) {
	acc := 0
	for i, p := range r.pieces {
		if charIdx <= acc+p.len() {
			return i, charIdx - acc
		}
		acc += p.len()
	}
	return len(r.pieces), 0
}

func insertPieceAt(pieces []piece, idx, offset int, newPiece piece) []piece {
	if idx >= len(pieces) {
		return append(pieces, newPiece)
	}
	target := pieces[idx]
	if offset == 0 {
		out := make([]piece, 0, len(pieces)+1)
		out = append(out, pieces[:idx]...)
		out = append(out, newPiece)
		out = append(out, pieces[idx:]...)
		return out
	}
	if offset == target.len() {
		out := make([]piece, 0, len(pieces)+1)
		out = append(out, pieces[:idx+1]...)
		out = append(out, newPiece)
		out = append(out, pieces[idx+1:]...)
		return out
	}
	left := piece{buf: target.buf, start: target.start, end: target.start + offset}
	right := piece{buf: target.buf, start: target.start + offset, end: target.end}
	out := make([]piece, 0, len(pieces)+2)
	out = append(out, pieces[:idx]...)
	out = append(out, left, newPiece, right)
	out = append(out, pieces[idx+1:]...)
	return out
}

func eraseRange(pieces []piece, from, to int) []piece {
	out := make([]piece, 0, len(pieces))
	acc := 0
	for _, p := range pieces {
		pStart, pEnd := acc, acc+p.len()
		acc = pEnd
		// No overlap with [from,to): keep whole.
		if pEnd <= from || pStart >= to {
			out = append(out, p)
			continue
		}
		// Keep the part before `from`.
		if pStart < from {
			out = append(out, piece{buf: p.buf, start: p.start, end: p.start + (from - pStart)})
		}
		// Keep the part after `to`.
		if pEnd > to {
			out = append(out, piece{buf: p.buf, start: p.start + (to - pStart), end: p.end})
		}
	}
	return out
}
