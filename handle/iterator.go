// Package handle provides lazy, read-on-demand block handles and iteration
// streams over block identifiers (spec §4, component L). Handles carry a
// store-id plus a checksum key rather than a back-reference into store
// internals, per DESIGN NOTES §9 "arena+index" guidance: the store owns the
// buffers, and a handle whose key has been invalidated by deletion fails
// KeyNotFound on read rather than dangling.
package handle

// HexIterator streams hex-encoded checksums one at a time. It is the
// iteration shape used by pool.Store.ListBlocksInPool and mirrors the
// teacher's KVStore Iterator contract (Next/Key.../Error/Close), adapted to
// hex strings since the pool's public surface never leaks raw bytes for
// keys.
type HexIterator interface {
	// Next advances the iterator and reports whether a value is available.
	Next() bool
	// Hex returns the current element. Valid only after a Next call that
	// returned true.
	Hex() string
	// Err returns any error encountered during iteration.
	Err() error
	// Close releases any resources held by the iterator.
	Close() error
}

// SliceIterator is a HexIterator over an in-memory slice snapshot.
type SliceIterator struct {
	hexes []string
	idx   int
}

// NewSliceIterator returns a HexIterator over a defensive copy of hexes.
func NewSliceIterator(hexes []string) *SliceIterator {
	cp := make([]string, len(hexes))
	copy(cp, hexes)
	return &SliceIterator{hexes: cp}
}

func (it *SliceIterator) Next() bool {
	if it.idx >= len(it.hexes) {
		return false
	}
	it.idx++
	return true
}

func (it *SliceIterator) Hex() string {
	if it.idx == 0 || it.idx > len(it.hexes) {
		return ""
	}
	return it.hexes[it.idx-1]
}

func (it *SliceIterator) Err() error   { return nil }
func (it *SliceIterator) Close() error { return nil }
