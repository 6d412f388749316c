// Package metaindex implements the checksum → metadata record mapping
// described in spec §3 "Block metadata record" and referenced throughout
// §4.3. It is kept distinct from the block-byte map (package pool) because
// the spec describes it as an independently keyed structure: metadata
// persists per checksum regardless of how many pools currently store that
// checksum's bytes.
package metaindex

import (
	"sync"
	"time"

	"offs-core/checksum"
)

// ReplicationStatus tags how well-replicated a block is believed to be.
type ReplicationStatus uint8

const (
	ReplicationPending ReplicationStatus = iota
	ReplicationReplicated
	ReplicationUnderReplicated
)

// Record is the metadata a store keeps about a checksum, independent of the
// pool(s) that currently hold its bytes (spec §3).
type Record struct {
	BlockId                 checksum.Checksum
	SizeBytes               int
	PoolId                  string
	CreatedAt               time.Time
	ExpiresAt               *time.Time
	LastAccessedAt          time.Time
	AccessCount             int64
	ReplicationStatus       ReplicationStatus
	TargetReplicationFactor int
	ReplicaNodeIds          []string
	ParityBlockIds          []string
}

func (r Record) clone() Record {
	out := r
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		out.ExpiresAt = &t
	}
	out.ReplicaNodeIds = append([]string(nil), r.ReplicaNodeIds...)
	out.ParityBlockIds = append([]string(nil), r.ParityBlockIds...)
	return out
}

// Index is the metadata store contract. Implementations must return
// defensive copies from Get, per spec §3 "Ownership".
type Index interface {
	// Get returns the record for id, or ok=false if none exists.
	Get(id checksum.Checksum) (Record, bool)
	// Touch creates a record for id if absent (seeded with poolId and
	// sizeBytes), or updates PoolId and bumps AccessCount/LastAccessedAt if
	// present. Per spec §4.3 "putInPool ... updates its poolId to reflect
	// the newest pool of storage".
	Touch(id checksum.Checksum, poolId string, sizeBytes int, at time.Time)
	// Delete removes the record for id, if any.
	Delete(id checksum.Checksum)
}

// memIndex is an in-memory Index guarded by a single mutex. Concurrent
// readers/writers are safe to call from multiple goroutines (spec §5).
type memIndex struct {
	mu      sync.Mutex
	records map[checksum.Checksum]Record
}

// New returns an in-memory Index.
func New() Index {
	return &memIndex{records: make(map[checksum.Checksum]Record)}
}

func (m *memIndex) Get(id checksum.Checksum) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return Record{}, false
	}
	return r.clone(), true
}

func (m *memIndex) Touch(id checksum.Checksum, poolId string, sizeBytes int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		r = Record{
			BlockId:                 id,
			SizeBytes:               sizeBytes,
			PoolId:                  poolId,
			CreatedAt:               at,
			LastAccessedAt:          at,
			AccessCount:             1,
			ReplicationStatus:       ReplicationPending,
			TargetReplicationFactor: 1,
		}
		m.records[id] = r
		return
	}
	r.PoolId = poolId
	r.LastAccessedAt = at
	r.AccessCount++
	m.records[id] = r
}

func (m *memIndex) Delete(id checksum.Checksum) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
}
