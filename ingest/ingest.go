// Package ingest implements the file ingestion pipeline (spec §4.8):
// whitening each chunked payload against pool-sourced randomizers, writing
// the resulting prime blocks, and assembling the CBL that describes how to
// reconstruct the original file. Any failure mid-pipeline rolls back every
// block this invocation persisted.
package ingest

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"offs-core/block"
	"offs-core/cbl"
	"offs-core/checksum"
	"offs-core/engine/errs"
	"offs-core/offs"
	"offs-core/pool"
	"offs-core/whiten"
)

// Params describes one ingestion request (spec §4.8 "Inputs").
type Params struct {
	Source        offs.Source
	CreateExtended bool
	Encrypt       bool
	Creator       []byte
	Recipient     []byte
	PathHint      string
	DateCreated   time.Time
	MimeType      string // overrides detection when non-empty
	FileName      string // overrides PathHint-derived name when non-empty
}

// Deps are the collaborators IngestFile needs (spec §4.8 wiring): the
// pooled store that holds both primes and whiteners, the pools to use for
// each, the cache/fresh balance for whitener sourcing, and (only when
// encrypting) the ECIES collaborator.
type Deps struct {
	Store           pool.Store
	PrimePoolId     string
	WhitenerPoolId  string
	CacheFraction   float64
	Encryptor       offs.Encryptor
	ChunkSize       int
}

// undoAction is one entry in the rollback log (spec §4.8 step 3): delete
// the block at (poolId, hex) if ingestion fails after it was persisted.
type undoAction struct {
	poolId string
	hex    string
	size   block.Size
}

// IngestFile runs the full pipeline and returns the assembled CBL payload.
// On any failure it replays the rollback log in reverse order, ignoring
// secondary errors, and returns the original error (spec §4.8 step 6).
func IngestFile(deps Deps, p Params) ([]byte, error) {
	if deps.Store == nil {
		return nil, errs.ErrUninitialized
	}
	if deps.ChunkSize <= 0 {
		deps.ChunkSize = 1
	}

	data, err := readAll(p.Source)
	if err != nil {
		return nil, err
	}
	fileLength := len(data)

	mimeType := p.MimeType
	if mimeType == "" && len(data) > 0 {
		mimeType = http.DetectContentType(data)
	}
	fileName := p.FileName
	if fileName == "" && p.PathHint != "" {
		fileName = filepath.Base(p.PathHint)
	}
	if p.CreateExtended {
		if mimeType == "" {
			return nil, errs.ErrCannotDetermineMimeType
		}
		if fileName == "" {
			return nil, errs.ErrCannotDetermineFileName
		}
	}

	dateCreated := p.DateCreated
	if dateCreated.IsZero() {
		dateCreated = time.Now().UTC()
	}

	whitenerCount := offsTupleWhitenerCount()
	src := whiten.New(deps.Store, deps.WhitenerPoolId, deps.CacheFraction)

	var rollback []undoAction
	var addressBlocks []block.Block

	sized, storeIsSized := deps.Store.(pool.SizedStore)

	rollbackAll := func() {
		for i := len(rollback) - 1; i >= 0; i-- {
			a := rollback[i]
			if storeIsSized {
				_ = sized.DeleteData(a.poolId, a.size, a.hex)
				continue
			}
			_ = deps.Store.DeleteFromPool(a.poolId, a.hex)
		}
	}

	_, procErr := offs.ProcessFileInChunks(
		offs.Source{Data: data},
		deps.Encryptor,
		p.Encrypt,
		deps.ChunkSize,
		func(batch [][]byte) error {
			for _, payload := range batch {
				blockSize := block.NextSizeAbove(len(payload))

				whiteners, err := src.Gather(blockSize, whitenerCount, dateCreated)
				if err != nil {
					return err
				}
				whitenerBytes := make([][]byte, len(whiteners))
				for i, w := range whiteners {
					whitenerBytes[i] = w.Block.Data()
					if !w.FromCache {
						rollback = append(rollback, undoAction{poolId: deps.WhitenerPoolId, hex: w.Hex, size: w.Block.Size()})
					}
				}

				primeData, err := offs.XorBlockWithWhiteners(payload, whitenerBytes)
				if err != nil {
					return err
				}
				primeBlock, err := block.New(blockSize, block.KindRawData, block.DataRaw, primeData, dateCreated)
				if err != nil {
					return err
				}
				primeHex := primeBlock.Checksum().Hex()
				alreadyStored := false
				if storeIsSized {
					if err := sized.SetData(deps.PrimePoolId, blockSize, primeBlock); err != nil {
						if !errors.Is(err, errs.ErrBlockPathAlreadyExists) {
							return err
						}
						alreadyStored = true
					}
				} else {
					alreadyStored, err = deps.Store.HasInPool(deps.PrimePoolId, primeHex)
					if err != nil {
						return err
					}
					primeHex, err = deps.Store.PutInPool(deps.PrimePoolId, primeData)
					if err != nil {
						return err
					}
				}
				// A content-addressed dedup hit means some other file already
				// depends on this prime block; only queue it for rollback if
				// this call is the one that created it.
				if !alreadyStored {
					rollback = append(rollback, undoAction{poolId: deps.PrimePoolId, hex: primeHex, size: blockSize})
				}

				for _, w := range whiteners {
					addressBlocks = append(addressBlocks, w.Block)
				}
				addressBlocks = append(addressBlocks, primeBlock)
			}
			return nil
		},
		p.Recipient,
	)
	if procErr != nil {
		rollbackAll()
		return nil, procErr
	}

	if len(addressBlocks) == 0 {
		rollbackAll()
		return nil, errs.ErrEmptyBlocksArray
	}

	originalChecksum := checksum.Compute(data)
	structuredType := cbl.TypeCBL
	var extended *cbl.ExtendedHeader
	if p.CreateExtended {
		structuredType = cbl.TypeExtendedCBL
		extended = &cbl.ExtendedHeader{MimeType: mimeType, FileName: fileName}
	}

	payload, err := cbl.CreateCBL(structuredType, addressBlocks, p.Creator, uint64(fileLength), originalChecksum, offs.TUPLE_SIZE, extended)
	if err != nil {
		rollbackAll()
		return nil, err
	}
	return payload, nil
}

func offsTupleWhitenerCount() int {
	return offs.TUPLE_SIZE - 1
}

func readAll(s offs.Source) ([]byte, error) {
	if s.Data != nil {
		return s.Data, nil
	}
	if s.Reader != nil {
		return io.ReadAll(s.Reader)
	}
	if s.Path != "" {
		return os.ReadFile(s.Path)
	}
	return nil, errs.ErrCannotDetermineLength
}
