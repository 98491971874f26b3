package sslcache

import "github.com/google/btree"

// store is the self-balancing ordered index over entries, keyed by
// (hash, family, key-bytes). Lookup and insertion are O(log n). It does
// not own entry lifetime; the owning cache does.
type store struct {
	tree *btree.BTreeG[*entry]
}

func newStore() *store {
	return &store{tree: btree.NewG(32, entryLess)}
}

func entryLess(a, b *entry) bool {
	return a.less(b)
}

// get looks up an entry by (family, key), using a throwaway probe entry
// with no object attached — the comparator only ever reads key/family.
func (s *store) get(family Family, key Key) (*entry, bool) {
	probe := &entry{key: key, family: family}
	return s.tree.Get(probe)
}

func (s *store) insert(e *entry) {
	s.tree.ReplaceOrInsert(e)
}

func (s *store) delete(e *entry) {
	s.tree.Delete(e)
}

// ascend visits every entry in index order. fn must not mutate the tree.
func (s *store) ascend(fn func(e *entry) bool) {
	s.tree.Ascend(fn)
}

func (s *store) len() int {
	return s.tree.Len()
}
