package filter

// Index maps filter identifiers to their retained Record. It is built once by
// BuildIndex and drained by the Engine; entries are never re-added while
// filtering. An Index is not safe for concurrent use.
type Index struct {
	entries map[string]Record
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]Record)}
}

// Put stores rec under its identifier, replacing any earlier entry.
// It reports whether an entry was replaced.
func (ix *Index) Put(rec Record) bool {
	_, replaced := ix.entries[rec.Identifier]
	ix.entries[rec.Identifier] = rec
	return replaced
}

// Take removes and returns the entry for id.
func (ix *Index) Take(id string) (Record, bool) {
	rec, ok := ix.entries[id]
	if ok {
		delete(ix.entries, id)
	}
	return rec, ok
}

// Get returns the entry for id without removing it.
func (ix *Index) Get(id string) (Record, bool) {
	rec, ok := ix.entries[id]
	return rec, ok
}

// Len returns the number of entries left.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Range calls fn for every entry in unspecified order until fn returns false.
// fn must not modify the index.
func (ix *Index) Range(fn func(Record) bool) {
	for _, rec := range ix.entries {
		if !fn(rec) {
			return
		}
	}
}

// ExclusionSet is a set of categories that keep a filter entry out of the
// index. Matching is exact and case-sensitive.
type ExclusionSet map[string]struct{}

// NewExclusionSet builds a set from categories.
func NewExclusionSet(categories []string) ExclusionSet {
	set := make(ExclusionSet, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return set
}

// Configured reports whether the set excludes anything at all.
func (s ExclusionSet) Configured() bool {
	return len(s) > 0
}

// Matches reports whether any of categories is in the set.
func (s ExclusionSet) Matches(categories []string) bool {
	for _, c := range categories {
		if _, ok := s[c]; ok {
			return true
		}
	}
	return false
}
