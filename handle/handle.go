package handle

import "offs-core/checksum"

// Fetcher is the minimal read capability a BlockHandle needs. pool.Store
// satisfies this interface structurally (same method set), so handles can
// be issued against any pool.Store without this package importing pool
// (which would create an import cycle, since pool depends on handle for
// HexIterator).
type Fetcher interface {
	GetFromPool(poolId, hex string) ([]byte, error)
}

// BlockHandle is a lazy, read-on-demand reference to a block's bytes. It
// carries only the store-identifying (poolId, hex) key, not the bytes
// themselves; reading fetches fresh from the backing Fetcher each time, so
// a handle issued before a delete simply fails KeyNotFound afterward rather
// than returning stale or dangling data (spec §9 "cyclic references in
// block handles").
type BlockHandle struct {
	poolId  string
	hex     string
	fetcher Fetcher
}

// NewBlockHandle returns a handle for (poolId, hex) backed by fetcher.
func NewBlockHandle(poolId, hex string, fetcher Fetcher) *BlockHandle {
	return &BlockHandle{poolId: poolId, hex: hex, fetcher: fetcher}
}

// PoolId returns the handle's pool.
func (h *BlockHandle) PoolId() string { return h.poolId }

// Hex returns the handle's checksum hex string.
func (h *BlockHandle) Hex() string { return h.hex }

// Checksum decodes the handle's hex key into a checksum.Checksum.
func (h *BlockHandle) Checksum() (checksum.Checksum, error) {
	return checksum.FromHex(h.hex)
}

// Read fetches the block's current bytes from the backing store. It
// performs no caching: each call re-fetches, so a handle never serves
// stale data and a deleted block's handle fails on every subsequent read.
func (h *BlockHandle) Read() ([]byte, error) {
	return h.fetcher.GetFromPool(h.poolId, h.hex)
}
