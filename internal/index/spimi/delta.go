package spimi

import "sort"

// InsertDoc routes an insert to the in-memory delta index; queries merge
// delta contributions with the persistent dictionary transparently
// (spec.md §4.7 "Incremental updates"). When the delta crosses
// cfg.DeltaThreshold it is folded into the persistent dictionary.
func (idx *Index) InsertDoc(rid int64, text string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.tomb, rid)
	for _, tok := range Tokenize(text, idx.cfg.Profile, idx.cfg.Stem) {
		docs, ok := idx.delta[tok]
		if !ok {
			docs = make(map[int64]int)
			idx.delta[tok] = docs
		}
		docs[rid]++
	}
	idx.deltaN++

	threshold := idx.cfg.DeltaThreshold
	if threshold <= 0 {
		threshold = 2000
	}
	if idx.deltaN >= threshold {
		return idx.mergeDeltaLocked()
	}
	return nil
}

// DeleteDoc sets a document tombstone consulted at query time; the
// persistent posting lists are left untouched until the next rebuild
// folds the tombstone away (spec.md §4.7, §9 Open Question (b)).
func (idx *Index) DeleteDoc(rid int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tomb[rid] = true
	return nil
}

// mergeDeltaLocked performs the "full rebuild of affected terms" spec.md
// §4.7 describes: every term touched by the delta gets its posting list
// recomputed from the union of persistent and delta postings, tombstoned
// documents are dropped, and norms for affected documents are refreshed.
// Callers must hold idx.mu.
func (idx *Index) mergeDeltaLocked() error {
	for t, deltaDocs := range idx.delta {
		entry, ok := idx.dict[t]
		if !ok {
			entry = &term{}
			idx.dict[t] = entry
		}
		merged := make(map[int64]int, len(entry.Postings)+len(deltaDocs))
		for _, p := range entry.Postings {
			if !idx.tomb[p.DocID] {
				merged[p.DocID] = p.TF
			}
		}
		for docID, tf := range deltaDocs {
			if idx.tomb[docID] {
				continue
			}
			merged[docID] += tf
		}
		entry.Postings = entry.Postings[:0]
		for docID, tf := range merged {
			entry.Postings = append(entry.Postings, tfRow{DocID: docID, TF: tf})
		}
		sort.Slice(entry.Postings, func(i, j int) bool { return entry.Postings[i].DocID < entry.Postings[j].DocID })
		entry.DF = len(entry.Postings)
	}

	idx.delta = make(map[string]map[int64]int)
	idx.n += int64(idx.deltaN)
	idx.deltaN = 0
	idx.computeNorms()
	return idx.persist()
}
