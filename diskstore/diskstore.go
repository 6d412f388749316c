// Package diskstore persists pooled blocks under a sharded directory tree,
// with a JSON sidecar per block carrying the metadata getRandomBlocks must
// know to skip. It implements pool.Store directly, grounded on the
// teacher's on-disk diskLRU cache (core/storage.go) for the os/filepath
// idiom and mutex-guarded in-memory index pattern.
//
// Path scheme: <root>/<poolId>/<sizeTag>/<h0>/<h1>/<hex>. This deviates
// from spec §4.4's literal <root>/<sizeTag>/<h0>/<h1>/<hex> by inserting a
// poolId segment ahead of sizeTag, so that distinct pools occupy disjoint
// subtrees on disk (ListPools/ValidatePoolDeletion walk by poolId directory
// rather than needing a separate pool index keyed over a shared tree).
package diskstore

import (
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"offs-core/block"
	"offs-core/cbl"
	"offs-core/checksum"
	"offs-core/engine/errs"
	"offs-core/handle"
	"offs-core/metaindex"
	"offs-core/pkg/utils"
	"offs-core/pool"
)

func randRead(buf []byte) (int, error) { return crand.Read(buf) }

// sidecarSuffix names the JSON metadata file written alongside each block's
// data file. getRandomBlocks must recognize and skip these when sampling a
// pool's directory tree (spec §4.4 "getRandomBlocks ... ignoring sidecars").
const sidecarSuffix = ".m.json"

// sidecar is the on-disk metadata record written next to a block's bytes.
type sidecar struct {
	SizeBytes int       `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// sizeTag encodes size as spec §4.4's "lowercase zero-padded 8-hex-digit
// string" path segment.
func sizeTag(size block.Size) string {
	return fmt.Sprintf("%08x", uint32(size))
}

type entry struct {
	size block.Size
}

// poolIndex caches a pool's known hexes (insertion order) and running
// statistics, so ListBlocksInPool/GetPoolStats don't re-walk the directory
// tree on every call. The directory tree remains the source of truth for
// block bytes; this index is a derived cache rebuilt from a fresh store by
// scanning once at first touch.
type poolIndex struct {
	mu      sync.Mutex
	entries map[string]entry
	order   []string
	stats   pool.Stats
	loaded  bool
}

// Store is an on-disk pool.Store.
type Store struct {
	topMu sync.Mutex
	root  string
	pools map[string]*poolIndex

	meta    metaindex.Index
	metrics *pool.Metrics
	log     *logrus.Logger
	now     func() time.Time
}

// New returns a Store rooted at root, creating it if necessary.
func New(root string, meta metaindex.Index, metrics *pool.Metrics, log *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, utils.Wrap(err, "diskstore: create root")
	}
	if log == nil {
		log = logrus.New()
	}
	return &Store{
		root:    root,
		pools:   make(map[string]*poolIndex),
		meta:    meta,
		metrics: metrics,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) poolDir(poolId string) string {
	return filepath.Join(s.root, poolId)
}

func (s *Store) blockPath(poolId string, size block.Size, hex string) string {
	return filepath.Join(s.poolDir(poolId), sizeTag(size), hex[0:2], hex[2:4], hex)
}

func (s *Store) sidecarPath(dataPath string) string {
	return dataPath + sidecarSuffix
}

// blockCreatedAt resolves a block's creation time from its sidecar, falling
// back to the data file's mtime if the sidecar is missing or unreadable.
// The host OS rarely exposes a true birth time through the stdlib, so the
// sidecar is the source of truth spec §4.4 calls "the file's birth time".
func (s *Store) blockCreatedAt(path string) time.Time {
	if raw, err := os.ReadFile(s.sidecarPath(path)); err == nil {
		var sc sidecar
		if json.Unmarshal(raw, &sc) == nil && !sc.CreatedAt.IsZero() {
			return sc.CreatedAt
		}
	}
	if fi, err := os.Stat(path); err == nil {
		return fi.ModTime()
	}
	return time.Time{}
}

// getOrLoadIndex returns poolId's cached index, scanning the directory tree
// to populate it on first access.
// getOrLoadIndex is the common path nearly every Store method funnels
// through, so it doubles as the pool-id grammar gate (spec §4.3
// "InvalidPoolId"): every entry point that hasn't already validated poolId
// itself gets it enforced here.
func (s *Store) getOrLoadIndex(poolId string) (*poolIndex, error) {
	if err := pool.ValidatePoolId(poolId); err != nil {
		return nil, err
	}
	s.topMu.Lock()
	pi, ok := s.pools[poolId]
	if !ok {
		pi = &poolIndex{entries: make(map[string]entry), stats: pool.Stats{PoolId: poolId}}
		s.pools[poolId] = pi
	}
	s.topMu.Unlock()

	pi.mu.Lock()
	defer pi.mu.Unlock()
	if pi.loaded {
		return pi, nil
	}
	if err := s.scanInto(poolId, pi); err != nil {
		return nil, err
	}
	pi.loaded = true
	return pi, nil
}

func (s *Store) scanInto(poolId string, pi *poolIndex) error {
	root := s.poolDir(poolId)
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return utils.Wrap(err, "diskstore: stat pool dir")
	}
	if !info.IsDir() {
		return nil
	}

	type found struct {
		hex     string
		size    int64
		modTime time.Time
	}
	var foundList []found

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".json" {
			return nil // sidecar, skip
		}
		hex := d.Name()
		if len(hex) != checksum.Size*2 {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		foundList = append(foundList, found{hex: hex, size: fi.Size(), modTime: fi.ModTime()})
		return nil
	})
	if err != nil {
		return utils.Wrap(err, "diskstore: walk pool dir")
	}

	sort.Slice(foundList, func(i, j int) bool { return foundList[i].modTime.Before(foundList[j].modTime) })

	for _, f := range foundList {
		pi.entries[f.hex] = entry{size: block.NextSizeAbove(int(f.size))}
		pi.order = append(pi.order, f.hex)
		pi.stats.BlockCount++
		pi.stats.TotalBytes += f.size
	}
	return nil
}

// HasInPool reports whether hex is stored in poolId, touching the pool's
// access time in the process (spec §4.3 "hasInPool ... touches pool access
// time").
func (s *Store) HasInPool(poolId, hex string) (bool, error) {
	if err := pool.ValidatePoolId(poolId); err != nil {
		return false, err
	}
	pi, err := s.getOrLoadIndex(poolId)
	if err != nil {
		return false, err
	}
	pi.mu.Lock()
	defer pi.mu.Unlock()
	_, ok := pi.entries[hex]
	pi.stats.LastAccessedAt = s.now()
	return ok, nil
}

func (s *Store) GetFromPool(poolId, hex string) ([]byte, error) {
	if err := pool.ValidatePoolId(poolId); err != nil {
		return nil, err
	}
	pi, err := s.getOrLoadIndex(poolId)
	if err != nil {
		return nil, err
	}
	pi.mu.Lock()
	e, ok := pi.entries[hex]
	pi.mu.Unlock()
	if !ok {
		return nil, errs.NewKeyNotFound(poolId, hex)
	}
	data, err := os.ReadFile(s.blockPath(poolId, e.size, hex))
	if os.IsNotExist(err) {
		return nil, errs.NewKeyNotFound(poolId, hex)
	}
	if err != nil {
		return nil, utils.Wrap(err, "diskstore: read block")
	}
	return data, nil
}

// PutInPool writes data to its sharded path if absent (idempotent per
// (poolId, hex), spec §4.3/§4.4).
func (s *Store) PutInPool(poolId string, data []byte) (string, error) {
	if err := pool.ValidatePoolId(poolId); err != nil {
		return "", err
	}
	pi, err := s.getOrLoadIndex(poolId)
	if err != nil {
		return "", err
	}
	sum := checksum.Compute(data)
	hex := sum.Hex()
	at := s.now()

	pi.mu.Lock()
	_, exists := pi.entries[hex]
	pi.mu.Unlock()
	if exists {
		s.meta.Touch(sum, poolId, len(data), at)
		return hex, nil
	}

	size := block.NextSizeAbove(len(data))
	path := s.blockPath(poolId, size, hex)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", utils.Wrap(err, "diskstore: mkdir shard")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", utils.Wrap(err, "diskstore: write block")
	}
	sc := sidecar{SizeBytes: len(data), CreatedAt: at}
	scBytes, err := json.Marshal(sc)
	if err != nil {
		return "", utils.Wrap(err, "diskstore: marshal sidecar")
	}
	if err := os.WriteFile(s.sidecarPath(path), scBytes, 0o644); err != nil {
		return "", utils.Wrap(err, "diskstore: write sidecar")
	}

	pi.mu.Lock()
	if _, exists := pi.entries[hex]; !exists {
		pi.entries[hex] = entry{size: size}
		pi.order = append(pi.order, hex)
		pi.stats.BlockCount++
		pi.stats.TotalBytes += int64(len(data))
	}
	pi.stats.LastAccessedAt = at
	if pi.stats.CreatedAt.IsZero() {
		pi.stats.CreatedAt = at
	}
	pi.mu.Unlock()

	s.meta.Touch(sum, poolId, len(data), at)
	if s.metrics != nil {
		s.metrics.ObservePut(poolId, len(data))
	}
	return hex, nil
}

// SetData writes b to its content-addressed shard path, create-only (spec
// §4.4 "setData"): it refuses BlockSizeMismatch if b's declared size
// doesn't match size, BlockPathAlreadyExists if the path is already
// occupied, and validates b's checksum before writing. Unlike PutInPool's
// idempotent dedup-by-content upsert, a second SetData for the same block
// is an error. ingest and whiten treat that ErrBlockPathAlreadyExists as a
// content-addressed dedup hit: the block is already stored, and they do not
// queue it for rollback.
func (s *Store) SetData(poolId string, size block.Size, b block.Block) error {
	if err := pool.ValidatePoolId(poolId); err != nil {
		return err
	}
	if b.Size() != size {
		return errs.ErrBlockSizeMismatch
	}
	if err := b.Validate(); err != nil {
		return err
	}
	data := b.Data()
	hex := b.Checksum().Hex()
	path := s.blockPath(poolId, size, hex)

	if _, err := os.Stat(path); err == nil {
		return errs.ErrBlockPathAlreadyExists
	} else if !os.IsNotExist(err) {
		return utils.Wrap(err, "diskstore: stat block")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrBlockDirectoryCreationFailed, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return utils.Wrap(err, "diskstore: write block")
	}
	at := b.DateCreated()
	sc := sidecar{SizeBytes: len(data), CreatedAt: at}
	scBytes, err := json.Marshal(sc)
	if err != nil {
		return utils.Wrap(err, "diskstore: marshal sidecar")
	}
	if err := os.WriteFile(s.sidecarPath(path), scBytes, 0o644); err != nil {
		return utils.Wrap(err, "diskstore: write sidecar")
	}

	pi, err := s.getOrLoadIndex(poolId)
	if err != nil {
		return err
	}
	pi.mu.Lock()
	if _, exists := pi.entries[hex]; !exists {
		pi.entries[hex] = entry{size: size}
		pi.order = append(pi.order, hex)
		pi.stats.BlockCount++
		pi.stats.TotalBytes += int64(len(data))
	}
	pi.stats.LastAccessedAt = at
	if pi.stats.CreatedAt.IsZero() {
		pi.stats.CreatedAt = at
	}
	pi.mu.Unlock()

	s.meta.Touch(b.Checksum(), poolId, len(data), at)
	if s.metrics != nil {
		s.metrics.ObservePut(poolId, len(data))
	}
	return nil
}

// GetData reads the block at (poolId, size, hex): KeyNotFound if absent,
// BlockFileSizeMismatch if the file's length doesn't match size (spec §4.4
// "getData"). DateCreated comes from the block's sidecar.
func (s *Store) GetData(poolId string, size block.Size, hex string) (block.Block, error) {
	if err := pool.ValidatePoolId(poolId); err != nil {
		return block.Block{}, err
	}
	path := s.blockPath(poolId, size, hex)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// A block stored under another size tier is found through the pool index.
		pi, idxErr := s.getOrLoadIndex(poolId)
		if idxErr != nil {
			return block.Block{}, idxErr
		}
		pi.mu.Lock()
		e, ok := pi.entries[hex]
		pi.mu.Unlock()
		if ok && e.size != size {
			path = s.blockPath(poolId, e.size, hex)
			data, err = os.ReadFile(path)
		}
	}
	if os.IsNotExist(err) {
		return block.Block{}, errs.NewKeyNotFound(poolId, hex)
	}
	if err != nil {
		return block.Block{}, utils.Wrap(err, "diskstore: read block")
	}
	if len(data) != int(size) {
		return block.Block{}, errs.ErrBlockFileSizeMismatch
	}
	return block.New(size, block.KindRawData, block.DataRaw, data, s.blockCreatedAt(path))
}

// DeleteData unlinks the block at (poolId, size, hex): KeyNotFound if
// absent, BlockDeletionFailed with the OS error string attached on any
// other OS error (spec §4.4 "deleteData").
func (s *Store) DeleteData(poolId string, size block.Size, hex string) error {
	if err := pool.ValidatePoolId(poolId); err != nil {
		return err
	}
	path := s.blockPath(poolId, size, hex)
	fi, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		return errs.NewKeyNotFound(poolId, hex)
	}
	if statErr != nil {
		return errs.NewBlockDeletionFailed(path, statErr)
	}
	if err := os.Remove(path); err != nil {
		return errs.NewBlockDeletionFailed(path, err)
	}
	os.Remove(s.sidecarPath(path))

	if pi, err := s.getOrLoadIndex(poolId); err == nil {
		pi.mu.Lock()
		if _, ok := pi.entries[hex]; ok {
			delete(pi.entries, hex)
			for i, h := range pi.order {
				if h == hex {
					pi.order = append(pi.order[:i], pi.order[i+1:]...)
					break
				}
			}
			pi.stats.BlockCount--
			pi.stats.TotalBytes -= fi.Size()
		}
		pi.mu.Unlock()
	}
	if sum, err := checksum.FromHex(hex); err == nil {
		s.meta.Delete(sum)
	}
	if s.metrics != nil {
		s.metrics.ObserveDelete(poolId, int(fi.Size()))
	}
	return nil
}

// Xor streams each handle's bytes through a multi-way XOR transform,
// accumulating the result in memory, and emits a new RawDataBlock with
// DateCreated = destCreated (spec §4.4 "xor"). Fails NoBlocksProvided on an
// empty handle list. Since XOR is commutative and associative, combining an
// OFFS tuple's whiteners and prime through a single Xor call (in any order)
// recovers the same plaintext as XORing the prime against the whiteners one
// at a time.
func (s *Store) Xor(handles []*handle.BlockHandle, destSize block.Size, destCreated time.Time) (block.Block, error) {
	if len(handles) == 0 {
		return block.Block{}, errs.ErrNoBlocksProvided
	}
	first, err := handles[0].Read()
	if err != nil {
		return block.Block{}, err
	}
	out := make([]byte, len(first))
	copy(out, first)
	for _, h := range handles[1:] {
		data, err := h.Read()
		if err != nil {
			return block.Block{}, err
		}
		n := len(out)
		if len(data) < n {
			n = len(data)
		}
		for i := 0; i < n; i++ {
			out[i] ^= data[i]
		}
	}
	return block.New(destSize, block.KindRawData, block.DataRaw, out, destCreated)
}

// DeleteFromPool removes a block's data and sidecar files. Deleting an
// absent block is a no-op (spec §4.3). Any OS error removing the data file
// is reported as BlockDeletionFailed (spec §4.4).
func (s *Store) DeleteFromPool(poolId, hex string) error {
	if err := pool.ValidatePoolId(poolId); err != nil {
		return err
	}
	pi, err := s.getOrLoadIndex(poolId)
	if err != nil {
		return err
	}
	pi.mu.Lock()
	e, ok := pi.entries[hex]
	pi.mu.Unlock()
	if !ok {
		return nil
	}

	path := s.blockPath(poolId, e.size, hex)
	fi, statErr := os.Stat(path)
	if statErr != nil && !os.IsNotExist(statErr) {
		return errs.NewBlockDeletionFailed(path, statErr)
	}
	if statErr == nil {
		if err := os.Remove(path); err != nil {
			return errs.NewBlockDeletionFailed(path, err)
		}
	}
	os.Remove(s.sidecarPath(path))

	var removedBytes int64
	if fi != nil {
		removedBytes = fi.Size()
	}

	pi.mu.Lock()
	delete(pi.entries, hex)
	for i, h := range pi.order {
		if h == hex {
			pi.order = append(pi.order[:i], pi.order[i+1:]...)
			break
		}
	}
	pi.stats.BlockCount--
	pi.stats.TotalBytes -= removedBytes
	pi.mu.Unlock()

	if sum, err := checksum.FromHex(hex); err == nil {
		s.meta.Delete(sum)
	}
	if s.metrics != nil {
		s.metrics.ObserveDelete(poolId, int(removedBytes))
	}
	return nil
}

// ListPools lists sub-directory names under root that currently hold any
// blocks (spec §4.3 "listPools").
func (s *Store) ListPools() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.Wrap(err, "diskstore: read root")
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pi, err := s.getOrLoadIndex(e.Name())
		if err != nil {
			return nil, err
		}
		pi.mu.Lock()
		n := pi.stats.BlockCount
		pi.mu.Unlock()
		if n > 0 {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) ListBlocksInPool(poolId string, opts pool.ListOptions) (handle.HexIterator, error) {
	pi, err := s.getOrLoadIndex(poolId)
	if err != nil {
		return nil, err
	}
	pi.mu.Lock()
	snapshot := make([]string, len(pi.order))
	copy(snapshot, pi.order)
	pi.mu.Unlock()

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

func (s *Store) GetPoolStats(poolId string) (pool.Stats, error) {
	pi, err := s.getOrLoadIndex(poolId)
	if err != nil {
		return pool.Stats{}, err
	}
	pi.mu.Lock()
	defer pi.mu.Unlock()
	if pi.stats.BlockCount == 0 {
		return pool.Stats{}, errs.ErrPoolNotFound
	}
	return pi.stats, nil
}

// ValidatePoolDeletion mirrors pool.MemStore's cross-pool dependency
// analysis (spec §4.3.1), reading each other pool's blocks off disk.
func (s *Store) ValidatePoolDeletion(poolId string) (pool.DependencyReport, error) {
	target, err := s.getOrLoadIndex(poolId)
	if err != nil {
		return pool.DependencyReport{}, err
	}
	target.mu.Lock()
	setS := make(map[string]bool, len(target.entries))
	for hex := range target.entries {
		setS[hex] = true
	}
	target.mu.Unlock()
	if len(setS) == 0 {
		return pool.DependencyReport{Safe: true}, nil
	}

	otherIds, err := s.ListPools()
	if err != nil {
		return pool.DependencyReport{}, err
	}

	dependentSet := map[string]bool{}
	referencedSet := map[string]bool{}

	for _, otherId := range otherIds {
		if otherId == poolId {
			continue
		}
		pi, err := s.getOrLoadIndex(otherId)
		if err != nil {
			return pool.DependencyReport{}, err
		}
		pi.mu.Lock()
		hexes := make([]string, 0, len(pi.entries))
		sizes := make(map[string]block.Size, len(pi.entries))
		for hex, e := range pi.entries {
			hexes = append(hexes, hex)
			sizes[hex] = e.size
		}
		pi.mu.Unlock()

		for _, hex := range hexes {
			data, err := os.ReadFile(s.blockPath(otherId, sizes[hex], hex))
			if err != nil {
				continue
			}
			if len(data) == 0 || data[0] != cbl.MagicPrefix {
				continue
			}
			if !cbl.IsCBLStructuredType(cbl.StructuredType(data[1])) {
				continue
			}
			if cbl.IsEncrypted(data) {
				continue
			}
			addrs, err := cbl.AddressDataToAddresses(data)
			if err != nil {
				continue
			}
			for _, a := range addrs {
				if ahex := a.Hex(); setS[ahex] {
					dependentSet[otherId] = true
					referencedSet[ahex] = true
				}
			}
		}
	}

	if len(dependentSet) == 0 {
		return pool.DependencyReport{Safe: true}, nil
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

	return pool.DependencyReport{Safe: false, DependentPools: dependents, ReferencedBlocks: referenced}, nil
}

func (s *Store) DeletePool(poolId string) error {
	report, err := s.ValidatePoolDeletion(poolId)
	if err != nil {
		return err
	}
	if !report.Safe {
		return &errs.PoolDeletionError{PoolId: poolId, DependentPools: report.DependentPools, ReferencedBlocks: report.ReferencedBlocks}
	}
	return s.forceDelete(poolId)
}

func (s *Store) ForceDeletePool(poolId string) error {
	return s.forceDelete(poolId)
}

func (s *Store) forceDelete(poolId string) error {
	pi, err := s.getOrLoadIndex(poolId)
	if err != nil {
		return err
	}
	pi.mu.Lock()
	hexes := make([]string, 0, len(pi.entries))
	for hex := range pi.entries {
		hexes = append(hexes, hex)
	}
	pi.mu.Unlock()

	if err := os.RemoveAll(s.poolDir(poolId)); err != nil {
		return errs.NewBlockDeletionFailed(s.poolDir(poolId), err)
	}
	for _, hex := range hexes {
		if sum, err := checksum.FromHex(hex); err == nil {
			s.meta.Delete(sum)
		}
	}

	s.topMu.Lock()
	delete(s.pools, poolId)
	s.topMu.Unlock()
	s.log.WithField("pool", poolId).Info("diskstore: pool deleted")
	return nil
}

// GetRandomBlocksFromPool returns min(n, block count) distinct checksums
// drawn uniformly from poolId by shuffling the cached index's flat key list.
// It does not walk the directory tree at sampling time, and it holds the
// pool's full key list in memory. The index comes from scanInto, which
// skips .m.json sidecars, so sidecars are never sampled.
func (s *Store) GetRandomBlocksFromPool(poolId string, n int) ([]checksum.Checksum, error) {
	pi, err := s.getOrLoadIndex(poolId)
	if err != nil {
		return nil, err
	}
	pi.mu.Lock()
	hexes := make([]string, len(pi.order))
	copy(hexes, pi.order)
	pi.mu.Unlock()

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

func (s *Store) BootstrapPool(poolId string, size block.Size, n int) error {
	batchId := uuid.New().String()
	for i := 0; i < n; i++ {
		buf := make([]byte, int(size))
		if _, err := randRead(buf); err != nil {
			return err
		}
		if _, err := s.PutInPool(poolId, buf); err != nil {
			return err
		}
	}
	s.log.WithFields(logrus.Fields{"pool": poolId, "batchId": batchId, "count": n}).Info("diskstore: pool bootstrapped")
	return nil
}
