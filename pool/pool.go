// Package pool implements the namespaced, content-addressed block store
// (spec §4.3): put/get/delete by (pool, checksum), per-pool statistics,
// cursor-paginated listing, cross-pool dependency analysis, and guarded or
// forced pool deletion.
package pool

import (
	"regexp"
	"time"

	"offs-core/block"
	"offs-core/checksum"
	"offs-core/engine/errs"
	"offs-core/handle"
)

// DefaultPool is the reserved pool id used by the legacy single-pool
// façade (spec §3 "Pool id").
const DefaultPool = "default"

var poolIdPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidatePoolId reports whether id matches the pool-id grammar (spec §3).
func ValidatePoolId(id string) error {
	if !poolIdPattern.MatchString(id) {
		return errs.ErrInvalidPoolId
	}
	return nil
}

// Stats is a defensive-copy snapshot of a pool's statistics (spec §3 "Pool
// statistics").
type Stats struct {
	PoolId         string
	BlockCount     int
	TotalBytes     int64
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// ListOptions controls cursor pagination for ListBlocksInPool (spec §4.3).
type ListOptions struct {
	// Limit caps the number of items yielded from the returned stream. Zero
	// or negative means unlimited.
	Limit int
	// Cursor, if non-empty, resumes iteration strictly after the element
	// equal to Cursor.
	Cursor string
}

// DependencyReport is the result of ValidatePoolDeletion (spec §4.3.1).
type DependencyReport struct {
	Safe              bool
	DependentPools    []string
	ReferencedBlocks  []string
}

// Store is the pooled block store contract (spec §4.3).
type Store interface {
	HasInPool(poolId, hex string) (bool, error)
	GetFromPool(poolId, hex string) ([]byte, error)
	// PutInPool computes the checksum of data, inserts it under (poolId,
	// hex) if absent, and returns hex. Idempotent per (poolId, hex).
	PutInPool(poolId string, data []byte) (string, error)
	DeleteFromPool(poolId, hex string) error
	ListPools() ([]string, error)
	ListBlocksInPool(poolId string, opts ListOptions) (handle.HexIterator, error)
	GetPoolStats(poolId string) (Stats, error)
	ValidatePoolDeletion(poolId string) (DependencyReport, error)
	DeletePool(poolId string) error
	ForceDeletePool(poolId string) error
	GetRandomBlocksFromPool(poolId string, n int) ([]checksum.Checksum, error)
	BootstrapPool(poolId string, size block.Size, n int) error
}

// SizedStore is an optional, stricter capability a Store may implement for
// the spec's disk-storage-layer contracts (§4.4). SetData/GetData/DeleteData
// operate on whole, pre-sized block.Block values with create-only semantics
// (BlockSizeMismatch, BlockPathAlreadyExists, BlockFileSizeMismatch),
// distinct from PutInPool's permissive dedup-by-content upsert. Xor streams
// a batch of block handles into a freshly combined block. Callers type-
// assert a Store for this interface and fall back to the generic Store
// methods when a backend (e.g. MemStore) doesn't offer it.
type SizedStore interface {
	SetData(poolId string, size block.Size, b block.Block) error
	GetData(poolId string, size block.Size, hex string) (block.Block, error)
	DeleteData(poolId string, size block.Size, hex string) error
	Xor(handles []*handle.BlockHandle, destSize block.Size, destCreated time.Time) (block.Block, error)
}
