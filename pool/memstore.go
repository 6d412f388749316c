package pool

import (
	crand "crypto/rand"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"offs-core/block"
	"offs-core/cbl"
	"offs-core/checksum"
	"offs-core/engine/errs"
	"offs-core/handle"
	"offs-core/metaindex"
)

// poolState holds one pool's entries and derived statistics behind its own
// mutex, so operations against different pools never contend (spec §4.3
// "pool isolation").
type poolState struct {
	mu      sync.Mutex
	entries map[string][]byte
	order   []string // insertion order, for stable ListBlocksInPool pagination
	stats   Stats
}

// MemStore is an in-memory Store implementation (spec §4.3). It is the
// backing store exercised directly by pool_test.go; diskstore.Store is a
// separate on-disk implementation of the same Store interface and does not
// wrap MemStore.
type MemStore struct {
	topMu sync.Mutex
	pools map[string]*poolState

	meta    metaindex.Index
	metrics *Metrics
	now     func() time.Time
}

// NewMemStore returns an empty MemStore backed by meta for checksum
// metadata. metrics may be nil to disable Prometheus observation.
func NewMemStore(meta metaindex.Index, metrics *Metrics) *MemStore {
	return &MemStore{
		pools:   make(map[string]*poolState),
		meta:    meta,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// getPool is the common path nearly every MemStore method funnels through,
// so it doubles as the pool-id grammar gate (spec §4.3 "InvalidPoolId") for
// every entry point that hasn't already validated poolId itself. A returned
// error here is always ErrInvalidPoolId; callers that accept a nil *poolState
// as "pool absent" must check the error first.
func (s *MemStore) getPool(poolId string) (*poolState, error) {
	if err := ValidatePoolId(poolId); err != nil {
		return nil, err
	}
	s.topMu.Lock()
	defer s.topMu.Unlock()
	return s.pools[poolId], nil
}

func (s *MemStore) getOrCreatePool(poolId string, at time.Time) *poolState {
	s.topMu.Lock()
	defer s.topMu.Unlock()
	ps, ok := s.pools[poolId]
	if !ok {
		ps = &poolState{
			entries: make(map[string][]byte),
			stats:   Stats{PoolId: poolId, CreatedAt: at, LastAccessedAt: at},
		}
		s.pools[poolId] = ps
	}
	return ps
}

// HasInPool reports whether hex is stored in poolId, touching the pool's
// access time in the process (spec §4.3 "hasInPool ... touches pool access
// time").
func (s *MemStore) HasInPool(poolId, hex string) (bool, error) {
	ps, err := s.getPool(poolId)
	if err != nil {
		return false, err
	}
	if ps == nil {
		return false, nil
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	_, ok := ps.entries[hex]
	ps.stats.LastAccessedAt = s.now()
	return ok, nil
}

func (s *MemStore) GetFromPool(poolId, hex string) ([]byte, error) {
	ps, err := s.getPool(poolId)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, errs.NewKeyNotFound(poolId, hex)
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	data, ok := ps.entries[hex]
	if !ok {
		return nil, errs.NewKeyNotFound(poolId, hex)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// PutInPool is idempotent: a second put of the same content under the same
// pool is a no-op that still reports the block's hex (spec §4.3 "putInPool",
// §8 invariant "idempotent put").
func (s *MemStore) PutInPool(poolId string, data []byte) (string, error) {
	if err := ValidatePoolId(poolId); err != nil {
		return "", err
	}
	sum := checksum.Compute(data)
	hex := sum.Hex()
	at := s.now()
	ps := s.getOrCreatePool(poolId, at)

	ps.mu.Lock()
	_, exists := ps.entries[hex]
	if !exists {
		buf := make([]byte, len(data))
		copy(buf, data)
		ps.entries[hex] = buf
		ps.order = append(ps.order, hex)
		ps.stats.BlockCount++
		ps.stats.TotalBytes += int64(len(data))
	}
	ps.stats.LastAccessedAt = at
	ps.mu.Unlock()

	s.meta.Touch(sum, poolId, len(data), at)
	if s.metrics != nil && !exists {
		s.metrics.ObservePut(poolId, len(data))
	}
	return hex, nil
}

// DeleteFromPool removes the block under (poolId, hex) if present; deleting
// an absent block is a no-op (spec §4.3 "deleteFromPool"). When the pool's
// block count reaches zero it transitions Live -> Absent (spec §3 "Pool
// lifecycle") and is pruned from the top-level index.
func (s *MemStore) DeleteFromPool(poolId, hex string) error {
	ps, err := s.getPool(poolId)
	if err != nil {
		return err
	}
	if ps == nil {
		return nil
	}

	ps.mu.Lock()
	data, existed := ps.entries[hex]
	if existed {
		delete(ps.entries, hex)
		for i, h := range ps.order {
			if h == hex {
				ps.order = append(ps.order[:i], ps.order[i+1:]...)
				break
			}
		}
		ps.stats.BlockCount--
		ps.stats.TotalBytes -= int64(len(data))
	}
	empty := ps.stats.BlockCount == 0
	ps.mu.Unlock()

	if !existed {
		return nil
	}

	if sum, err := checksum.FromHex(hex); err == nil {
		s.meta.Delete(sum)
	}
	if s.metrics != nil {
		s.metrics.ObserveDelete(poolId, len(data))
	}
	if empty {
		s.pruneIfEmpty(poolId)
	}
	return nil
}

func (s *MemStore) pruneIfEmpty(poolId string) {
	s.topMu.Lock()
	defer s.topMu.Unlock()
	if ps, ok := s.pools[poolId]; ok {
		ps.mu.Lock()
		empty := ps.stats.BlockCount == 0
		ps.mu.Unlock()
		if empty {
			delete(s.pools, poolId)
		}
	}
}

// ListPools returns the ids of all pools that currently hold at least one
// block, sorted for deterministic output (spec §4.3 "listPools").
func (s *MemStore) ListPools() ([]string, error) {
	s.topMu.Lock()
	ids := make([]string, 0, len(s.pools))
	for id, ps := range s.pools {
		ps.mu.Lock()
		n := ps.stats.BlockCount
		ps.mu.Unlock()
		if n > 0 {
			ids = append(ids, id)
		}
	}
	s.topMu.Unlock()
	sort.Strings(ids)
	return ids, nil
}

// ListBlocksInPool returns a cursor-paginated iterator over poolId's hexes
// in stable insertion order (spec §4.3 "listBlocksInPool").
func (s *MemStore) ListBlocksInPool(poolId string, opts ListOptions) (handle.HexIterator, error) {
	ps, err := s.getPool(poolId)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return handle.NewSliceIterator(nil), nil
	}
	ps.mu.Lock()
	snapshot := make([]string, len(ps.order))
	copy(snapshot, ps.order)
	ps.mu.Unlock()

	start := 0
	if opts.Cursor != "" {
		start = len(snapshot)
		for i, h := range snapshot {
			if h == opts.Cursor {
				start = i + 1
				break
			}
		}
	}
	if start > len(snapshot) {
		start = len(snapshot)
	}
	page := snapshot[start:]
	if opts.Limit > 0 && len(page) > opts.Limit {
		page = page[:opts.Limit]
	}
	return handle.NewSliceIterator(page), nil
}

// GetPoolStats returns a defensive copy of poolId's statistics, or
// ErrPoolNotFound if the pool is absent or empty (spec §4.3 "Pool
// statistics").
func (s *MemStore) GetPoolStats(poolId string) (Stats, error) {
	ps, err := s.getPool(poolId)
	if err != nil {
		return Stats{}, err
	}
	if ps == nil {
		return Stats{}, errs.ErrPoolNotFound
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.stats.BlockCount == 0 {
		return Stats{}, errs.ErrPoolNotFound
	}
	return ps.stats, nil
}

// ValidatePoolDeletion implements the cross-pool dependency analysis (spec
// §4.3.1): a pool is unsafe to delete if any CBL stored in a *different*
// pool references one of this pool's blocks.
func (s *MemStore) ValidatePoolDeletion(poolId string) (DependencyReport, error) {
	target, err := s.getPool(poolId)
	if err != nil {
		return DependencyReport{}, err
	}
	if target == nil {
		return DependencyReport{Safe: true}, nil
	}
	target.mu.Lock()
	setS := make(map[string]bool, len(target.entries))
	for hex := range target.entries {
		setS[hex] = true
	}
	target.mu.Unlock()
	if len(setS) == 0 {
		return DependencyReport{Safe: true}, nil
	}

	s.topMu.Lock()
	others := make([]*poolState, 0, len(s.pools))
	otherIds := make([]string, 0, len(s.pools))
	for id, ps := range s.pools {
		if id == poolId {
			continue
		}
		others = append(others, ps)
		otherIds = append(otherIds, id)
	}
	s.topMu.Unlock()

	dependentSet := map[string]bool{}
	referencedSet := map[string]bool{}

	for i, ps := range others {
		ps.mu.Lock()
		blobs := make([][]byte, 0, len(ps.entries))
		for _, data := range ps.entries {
			blobs = append(blobs, data)
		}
		ps.mu.Unlock()

		for _, data := range blobs {
			if len(data) == 0 || data[0] != cbl.MagicPrefix {
				continue
			}
			if !cbl.IsCBLStructuredType(cbl.StructuredType(data[1])) {
				continue
			}
			// IsEncrypted is always false on this branch: we've already
			// matched the plain CBL magic byte. Checked anyway for
			// fidelity with the spec's documented algorithm.
			if cbl.IsEncrypted(data) {
				continue
			}
			addrs, err := cbl.AddressDataToAddresses(data)
			if err != nil {
				continue
			}
			for _, a := range addrs {
				hex := a.Hex()
				if setS[hex] {
					dependentSet[otherIds[i]] = true
					referencedSet[hex] = true
				}
			}
		}
	}

	if len(dependentSet) == 0 {
		return DependencyReport{Safe: true}, nil
	}

	dependents := make([]string, 0, len(dependentSet))
	for id := range dependentSet {
		dependents = append(dependents, id)
	}
	sort.Strings(dependents)

	referenced := make([]string, 0, len(referencedSet))
	for hex := range referencedSet {
		referenced = append(referenced, hex)
	}
	sort.Strings(referenced)

	return DependencyReport{
		Safe:             false,
		DependentPools:   dependents,
		ReferencedBlocks: referenced,
	}, nil
}

// DeletePool deletes poolId only if ValidatePoolDeletion reports it safe;
// otherwise it returns a *errs.PoolDeletionError carrying the dependency
// detail and leaves the store unchanged (spec §4.3.1).
func (s *MemStore) DeletePool(poolId string) error {
	report, err := s.ValidatePoolDeletion(poolId)
	if err != nil {
		return err
	}
	if !report.Safe {
		return &errs.PoolDeletionError{
			PoolId:           poolId,
			DependentPools:   report.DependentPools,
			ReferencedBlocks: report.ReferencedBlocks,
		}
	}
	s.forceDelete(poolId)
	return nil
}

// ForceDeletePool deletes poolId unconditionally, bypassing dependency
// analysis (spec §4.3.1 "force delete").
func (s *MemStore) ForceDeletePool(poolId string) error {
	if err := ValidatePoolId(poolId); err != nil {
		return err
	}
	s.forceDelete(poolId)
	return nil
}

func (s *MemStore) forceDelete(poolId string) {
	s.topMu.Lock()
	ps, ok := s.pools[poolId]
	delete(s.pools, poolId)
	s.topMu.Unlock()
	if !ok {
		return
	}
	ps.mu.Lock()
	hexes := make([]string, 0, len(ps.entries))
	for hex := range ps.entries {
		hexes = append(hexes, hex)
	}
	ps.mu.Unlock()
	for _, hex := range hexes {
		if sum, err := checksum.FromHex(hex); err == nil {
			s.meta.Delete(sum)
		}
	}
}

// GetRandomBlocksFromPool returns n distinct checksums drawn uniformly from
// poolId's contents (spec §4.5 "whitener pool sourcing"). Selection need not
// be cryptographically random (spec §4.5 Non-goals), so math/rand/v2 is
// used rather than crypto/rand.
func (s *MemStore) GetRandomBlocksFromPool(poolId string, n int) ([]checksum.Checksum, error) {
	ps, err := s.getPool(poolId)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, errs.ErrPoolNotFound
	}
	ps.mu.Lock()
	hexes := make([]string, len(ps.order))
	copy(hexes, ps.order)
	ps.mu.Unlock()

	if n > len(hexes) {
		n = len(hexes)
	}
	rand.Shuffle(len(hexes), func(i, j int) { hexes[i], hexes[j] = hexes[j], hexes[i] })

	out := make([]checksum.Checksum, 0, n)
	for _, hex := range hexes[:n] {
		sum, err := checksum.FromHex(hex)
		if err != nil {
			continue
		}
		out = append(out, sum)
	}
	return out, nil
}

// BootstrapPool seeds poolId with n freshly generated random blocks of the
// given size, used to stand up a whitener soup (spec §4.5 "bootstrap").
func (s *MemStore) BootstrapPool(poolId string, size block.Size, n int) error {
	for i := 0; i < n; i++ {
		buf := make([]byte, int(size))
		if _, err := crand.Read(buf); err != nil {
			return err
		}
		if _, err := s.PutInPool(poolId, buf); err != nil {
			return err
		}
	}
	return nil
}
