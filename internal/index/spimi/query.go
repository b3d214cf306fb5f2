package spimi

import (
	"container/heap"
	"math"
	"strings"
)

// Scored is one ranked result from Query.
type Scored struct {
	Rid   int64
	Score float64
}

// Query tokenizes q identically to Build, accumulates
// score[doc] += w_t,q * w_t,d over the persistent dictionary and the
// in-memory delta, normalizes by ‖d‖₂, and returns the top-k by score,
// ties broken by smaller doc_id first (spec.md §4.7).
//
// A field-scoped match ("f:term" query terms, spec.md "Multi-field") is
// honored transparently: the caller is expected to have already
// qualified field-scoped tokens with "field:" during both Build and
// Query, since indexing is blind to field boundaries otherwise.
func (idx *Index) Query(q string, k int) []Scored {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	terms := Tokenize(q, idx.cfg.Profile, idx.cfg.Stem)
	if len(terms) == 0 || k <= 0 {
		return nil
	}

	queryTF := make(map[string]int)
	for _, t := range terms {
		queryTF[t]++
	}

	n := idx.totalDocs()
	scores := make(map[int64]float64)

	for t, qtf := range queryTF {
		df, postings := idx.mergedPostings(t)
		if df == 0 {
			continue
		}
		wq := weight(qtf, df, n)
		for docID, tf := range postings {
			if idx.tomb[docID] {
				continue
			}
			wd := weight(tf, df, n)
			scores[docID] += wq * wd
		}
	}

	h := &scoreHeap{}
	heap.Init(h)
	for docID, raw := range scores {
		norm := idx.docNorm(docID)
		if norm == 0 {
			continue
		}
		s := raw / norm
		if h.Len() < k {
			heap.Push(h, Scored{Rid: docID, Score: s})
		} else if (*h)[0].Score < s || ((*h)[0].Score == s && (*h)[0].Rid > docID) {
			heap.Pop(h)
			heap.Push(h, Scored{Rid: docID, Score: s})
		}
	}

	out := make([]Scored, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Scored)
	}
	return out
}

// mergedPostings returns term's document frequency and tf map, combining
// the persistent dictionary with any unmerged delta postings.
func (idx *Index) mergedPostings(t string) (int, map[int64]int) {
	postings := make(map[int64]int)
	if entry, ok := idx.dict[t]; ok {
		for _, p := range entry.Postings {
			postings[p.DocID] = p.TF
		}
	}
	if d, ok := idx.delta[t]; ok {
		for docID, tf := range d {
			postings[docID] += tf
		}
	}
	return len(postings), postings
}

func (idx *Index) totalDocs() int64 {
	n := idx.n
	if idx.deltaN > 0 {
		n += int64(idx.deltaN)
	}
	return n
}

func (idx *Index) docNorm(docID int64) float64 {
	if n, ok := idx.norms[docID]; ok && n > 0 {
		return n
	}
	// A doc that exists only in the delta hasn't had its norm persisted
	// yet; approximate from its delta-only postings.
	var sum float64
	for t, d := range idx.delta {
		if tf, ok := d[docID]; ok {
			_, postings := idx.mergedPostings(t)
			df := len(postings)
			w := weight(tf, df, idx.totalDocs())
			sum += w * w
		}
	}
	if sum == 0 {
		return 1 // avoid div-by-zero for an otherwise-unscored doc
	}
	return math.Sqrt(sum)
}

// scoreHeap is a min-heap on Score (so the worst of the current top-k
// sits on top and is evicted first), ties broken by larger doc_id first
// (so, combined with the min-heap eviction rule, the surviving tie is the
// smaller doc_id — spec.md "Ties: smaller doc_id first").
type scoreHeap []Scored

func (h scoreHeap) Len() int { return len(h) }
func (h scoreHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].Rid > h[j].Rid
}
func (h scoreHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x any)   { *h = append(*h, x.(Scored)) }
func (h *scoreHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// FieldScope qualifies a term with "field:" for single-field matches
// (spec.md §4.7 "Multi-field"); pass through unscoped queries unchanged.
func FieldScope(field, text string) string {
	if field == "" {
		return text
	}
	var b strings.Builder
	for _, w := range strings.Fields(text) {
		b.WriteString(field)
		b.WriteByte(':')
		b.WriteString(w)
		b.WriteByte(' ')
	}
	return b.String()
}
