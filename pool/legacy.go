package pool

import "offs-core/checksum"

// Legacy is the single-pool block store façade (spec §4.3.1 "legacy
// single-pool façade"): every operation is scoped to DefaultPool, so callers
// written against the pre-pooling API keep working unmodified against a
// pooled Store underneath.
type Legacy struct {
	Store Store
}

// NewLegacy wraps store behind the single-pool façade.
func NewLegacy(store Store) *Legacy {
	return &Legacy{Store: store}
}

func (l *Legacy) Has(hex string) (bool, error) {
	return l.Store.HasInPool(DefaultPool, hex)
}

func (l *Legacy) Get(hex string) ([]byte, error) {
	return l.Store.GetFromPool(DefaultPool, hex)
}

func (l *Legacy) Put(data []byte) (string, error) {
	return l.Store.PutInPool(DefaultPool, data)
}

func (l *Legacy) Delete(hex string) error {
	return l.Store.DeleteFromPool(DefaultPool, hex)
}

func (l *Legacy) GetRandomBlocks(n int) ([]checksum.Checksum, error) {
	return l.Store.GetRandomBlocksFromPool(DefaultPool, n)
}
