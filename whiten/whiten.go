// Package whiten sources the randomizer ("whitener") blocks XORed against
// file payloads under the OFFS scheme (spec §4.5). It mixes cached
// whiteners pulled from an existing pool with freshly generated CSPRNG
// blocks, and tracks which of the two a caller must roll back on failure.
package whiten

import (
	"crypto/rand"
	"errors"
	"time"

	"offs-core/block"
	"offs-core/engine/errs"
	"offs-core/pool"
)

// DefaultCacheFraction is the fraction of a whitener request satisfied from
// the pool cache before falling back to freshly generated blocks, absent an
// explicit configuration value (spec Open Question, resolved in DESIGN.md).
const DefaultCacheFraction = 0.5

// Source gathers whiteners against a single pool (conventionally the
// whitener "soup" pool) using cacheFraction to balance reuse against
// freshness.
type Source struct {
	Store         pool.Store
	PoolId        string
	CacheFraction float64
}

// New returns a Source reading/writing whiteners in poolId. A zero or
// negative cacheFraction falls back to DefaultCacheFraction.
func New(store pool.Store, poolId string, cacheFraction float64) *Source {
	if cacheFraction <= 0 {
		cacheFraction = DefaultCacheFraction
	}
	return &Source{Store: store, PoolId: poolId, CacheFraction: cacheFraction}
}

// Whitener is one gathered randomizer block plus whether it came from the
// cache (and therefore must survive a rollback) or was freshly generated
// (and therefore must be deleted on rollback, spec §4.5).
type Whitener struct {
	Block     block.Block
	Hex       string
	FromCache bool
}

// Gather returns n whiteners of the given size, preferring up to
// floor(n*CacheFraction) reused blocks from the pool before generating the
// rest fresh and persisting them (spec §4.5 "gather").
func (s *Source) Gather(size block.Size, n int, dateCreated time.Time) ([]Whitener, error) {
	if s.Store == nil {
		return nil, errs.ErrUninitialized
	}
	if n <= 0 {
		return nil, nil
	}

	cacheQuota := int(float64(n) * s.CacheFraction)
	if cacheQuota > n {
		cacheQuota = n
	}

	out := make([]Whitener, 0, n)

	if cacheQuota > 0 {
		cached, err := s.Store.GetRandomBlocksFromPool(s.PoolId, cacheQuota)
		if err != nil && err != errs.ErrPoolNotFound {
			return nil, err
		}
		for _, sum := range cached {
			hex := sum.Hex()
			data, err := s.Store.GetFromPool(s.PoolId, hex)
			if err != nil {
				continue
			}
			blk, err := block.New(size, block.KindRawData, block.DataRaw, data, dateCreated)
			if err != nil {
				continue
			}
			out = append(out, Whitener{Block: blk, Hex: hex, FromCache: true})
		}
	}

	sized, storeIsSized := s.Store.(pool.SizedStore)

	for len(out) < n {
		buf := make([]byte, int(size))
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		blk, err := block.New(size, block.KindRawData, block.DataRaw, buf, dateCreated)
		if err != nil {
			return nil, err
		}
		hex := blk.Checksum().Hex()
		alreadyStored := false
		if storeIsSized {
			if err := sized.SetData(s.PoolId, size, blk); err != nil {
				if !errors.Is(err, errs.ErrBlockPathAlreadyExists) {
					return nil, err
				}
				alreadyStored = true
			}
		} else {
			alreadyStored, err = s.Store.HasInPool(s.PoolId, hex)
			if err != nil {
				return nil, err
			}
			hex, err = s.Store.PutInPool(s.PoolId, buf)
			if err != nil {
				return nil, err
			}
		}
		// A collision with an already-stored block means some other caller
		// depends on it; report it as FromCache so the caller doesn't queue
		// it for rollback.
		out = append(out, Whitener{Block: blk, Hex: hex, FromCache: alreadyStored})
	}

	return out, nil
}
