package sslcache

import (
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Kind classifies how a reference string was resolved: inline data, a
// hardware-engine key URI, or a filesystem path.
type Kind uint8

const (
	KindPath Kind = iota
	KindData
	KindEngine
)

func (k Kind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindData:
		return "data"
	case KindEngine:
		return "engine"
	default:
		return "unknown"
	}
}

// Key is the normalized identity of a cached reference: a kind tag, the
// byte sequence that uniquely identifies the object within its family, and
// a derived 32-bit hash used as the primary sort key in the index.
type Key struct {
	Kind  Kind
	Bytes []byte
	Hash  uint32
}

const (
	dataPrefix   = "data:"
	enginePrefix = "engine:"
)

// classify normalizes reference into a Key. prefix is the configured
// directory that bare filesystem paths are resolved against. classify
// never fails: a malformed engine reference (missing key id) is a
// load-time error surfaced later by the pkey loader, not a classification
// error, mirroring the source's two-step validation.
func classify(family Family, reference string, prefix string) Key {
	switch {
	case (family == CERT || family == PKEY) && strings.HasPrefix(reference, dataPrefix):
		b := []byte(reference)
		return Key{Kind: KindData, Bytes: b, Hash: mixHash(b)}
	case family == PKEY && strings.HasPrefix(reference, enginePrefix):
		b := []byte(reference)
		return Key{Kind: KindEngine, Bytes: b, Hash: mixHash(b)}
	default:
		abs := resolvePath(prefix, reference)
		b := []byte(abs)
		return Key{Kind: KindPath, Bytes: b, Hash: mixHash(b)}
	}
}

// resolvePath yields an absolute, cleaned form of ref, resolved against
// prefix when ref is itself relative.
func resolvePath(prefix, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Clean(filepath.Join(prefix, ref))
}

// mixHash is a 32-bit non-cryptographic mixing hash over b. The algorithm
// choice is unconstrained by the cache's contract (any deterministic
// mixing function suffices); xxhash is already pulled in transitively by
// the rest of this module's dependency graph, so it is reused here rather
// than hand-rolling FNV or similar.
func mixHash(b []byte) uint32 {
	return uint32(xxhash.Sum64(b))
}

// bytesLess implements the lexicographic total order the index's
// comparator uses for key bytes: the first differing byte decides, and a
// shorter prefix sorts before a longer string that extends it.
func bytesLess(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
