package completion

import "sort"

// topK is the min-heap of spec.md §4.I.8: bounded capacity, each insertion
// either fills the heap or evicts the current minimum if value strictly
// exceeds it under the tie-break rule (equal score: lexicographically larger
// name sorts as smaller, so shorter/earlier names win ties).
type topK struct {
	limit int
	items []Candidate
}

func newTopK(limit int) *topK {
	if limit <= 0 {
		limit = 50
	}
	return &topK{limit: limit}
}

// less reports whether a sorts before b under the min-heap ordering: lower
// score is "smaller"; on equal score, the lexicographically larger name is
// treated as smaller.
func less(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Name > b.Name
}

func (h *topK) push(c Candidate) {
	if len(h.items) < h.limit {
		h.items = append(h.items, c)
		if len(h.items) == h.limit {
			h.heapify()
		}
		return
	}
	if len(h.items) == 0 {
		return
	}
	if less(h.items[0], c) {
		h.items[0] = c
		h.siftDown(0)
	}
}

func (h *topK) heapify() {
	n := len(h.items)
	for i := n/2 - 1; i >= 0; i-- {
		h.siftDown(i)
	}
}

func (h *topK) siftDown(i int) {
	n := len(h.items)
	for {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < n && less(h.items[l], h.items[smallest]) {
			smallest = l
		}
		if r < n && less(h.items[r], h.items[smallest]) {
			smallest = r
		}
		if smallest == i {
			return
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// finish sorts descending by the same comparator (so highest score, earliest
// name first) and returns the result list.
func (h *topK) finish() []Candidate {
	out := make([]Candidate, len(h.items))
	copy(out, h.items)
	sort.Slice(out, func(i, j int) bool { return less(out[j], out[i]) })
	return out
}
