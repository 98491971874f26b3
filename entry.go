package sslcache

import "time"

// fsUniq is the filesystem identity of a PATH entry's backing file,
// analogous to nginx's device+inode "uniq" pair: two stats of the same
// inode compare equal even if the path was rewritten through a different
// mount, while an unlinked-and-recreated file compares unequal.
type fsUniq struct {
	dev, ino uint64
}

// entry is a single cached (family, key, object) record. It participates
// in the index's ordering directly and, for bounded caches only, in an
// intrusive recency list via prev/next. prev and next self-loop when the
// entry is detached, so there is no separate membership flag to keep in
// sync.
type entry struct {
	key    Key
	family Family
	object object

	created  time.Time
	accessed time.Time

	mtime time.Time
	uniq  fsUniq

	prev, next *entry
}

// less implements the index's total order: hash, then family, then key
// bytes lexicographically (a shorter prefix first).
func (e *entry) less(o *entry) bool {
	if e.key.Hash != o.key.Hash {
		return e.key.Hash < o.key.Hash
	}
	if e.family != o.family {
		return e.family < o.family
	}
	return bytesLess(e.key.Bytes, o.key.Bytes)
}

// detach removes the entry from whatever recency list it is on (a no-op if
// it is already detached) and restores the self-loop invariant.
func (e *entry) detach() {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = e
	e.next = e
}

// recencyList is a circular doubly-linked list with a sentinel root node.
// root.next is the most-recently-used entry; root.prev is the least. It is
// the list that backs bounded-cache eviction ordering; the configuration
// cache never instantiates one.
type recencyList struct {
	root entry
}

func newRecencyList() *recencyList {
	l := &recencyList{}
	l.root.next = &l.root
	l.root.prev = &l.root
	return l
}

// pushFront splices e in at the head. e must already be detached.
func (l *recencyList) pushFront(e *entry) {
	e.next = l.root.next
	e.prev = &l.root
	l.root.next.prev = e
	l.root.next = e
}

func (l *recencyList) empty() bool {
	return l.root.next == &l.root
}

// tail returns the least-recently-used entry, or nil if the list is empty.
func (l *recencyList) tail() *entry {
	if l.empty() {
		return nil
	}
	return l.root.prev
}
