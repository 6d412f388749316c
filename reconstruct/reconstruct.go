// Package reconstruct implements the file reconstruction pipeline (spec
// §4.9): parsing a CBL, fetching and verifying every referenced block, and
// XORing each tuple back into its original payload.
package reconstruct

import (
	"offs-core/block"
	"offs-core/cbl"
	"offs-core/checksum"
	"offs-core/engine/errs"
	"offs-core/handle"
	"offs-core/offs"
	"offs-core/pool"
)

// Decryptor mirrors offs.Encryptor for the reverse direction: given an
// ECIES-encrypted CBL envelope, return the plain CBL bytes it wraps (spec
// §4.9 step 1).
type Decryptor interface {
	Decrypt(envelope []byte) ([]byte, error)
}

// Deps are the collaborators ReconstructFile needs. PrimePoolId and
// WhitenerPoolId mirror ingest.Deps: primes and whiteners were persisted
// into separate pools at ingestion time, so reconstruction must fetch each
// tuple's addresses from the matching pool (spec §4.9 step 3, §4.8). If
// WhitenerPoolId is empty it defaults to PrimePoolId, for deployments that
// share a single pool for both.
type Deps struct {
	Store          pool.Store
	PrimePoolId    string
	WhitenerPoolId string
	Decryptor      Decryptor
	Verifier       cbl.SignatureVerifier
}

// ReconstructFile rebuilds the original file bytes from a CBL payload
// (spec §4.9).
func ReconstructFile(deps Deps, payload []byte) ([]byte, error) {
	if deps.Store == nil {
		return nil, errs.ErrUninitialized
	}
	whitenerPoolId := deps.WhitenerPoolId
	if whitenerPoolId == "" {
		whitenerPoolId = deps.PrimePoolId
	}

	if cbl.IsEncrypted(payload) {
		if deps.Decryptor == nil {
			return nil, errs.ErrRecipientRequiredForEncryption
		}
		plain, err := deps.Decryptor.Decrypt(payload)
		if err != nil {
			return nil, err
		}
		payload = plain
	}

	header, err := cbl.ParseHeader(payload)
	if err != nil {
		return nil, err
	}

	if deps.Verifier != nil {
		if !cbl.ValidateSignature(payload, header.CreatorID, deps.Verifier) {
			return nil, errs.ErrBlockValidationFailed
		}
	}

	addrs, err := cbl.AddressDataToAddresses(payload)
	if err != nil {
		return nil, err
	}
	tupleSize := int(header.TupleSize)
	if tupleSize == 0 || len(addrs)%tupleSize != 0 {
		return nil, cbl.ErrAddressCountNotTupleMultiple
	}

	sized, storeIsSized := deps.Store.(pool.SizedStore)

	var recovered []byte
	for i := 0; i < len(addrs); i += tupleSize {
		tuple := addrs[i : i+tupleSize]
		blocks := make([][]byte, len(tuple))
		handles := make([]*handle.BlockHandle, len(tuple))
		for j, addr := range tuple {
			hex := addr.Hex()
			// The last address in the tuple is the prime; the rest are
			// whiteners, persisted into their own pool at ingestion time.
			poolId := whitenerPoolId
			if j == len(tuple)-1 {
				poolId = deps.PrimePoolId
			}
			data, err := deps.Store.GetFromPool(poolId, hex)
			if err != nil {
				return nil, err
			}
			actual := checksum.Compute(data)
			if !actual.Equal(addr) {
				return nil, errs.NewIntegrityViolation(hex, actual.Hex())
			}
			blocks[j] = data
			handles[j] = handle.NewBlockHandle(poolId, hex, deps.Store)
		}

		var plain []byte
		if storeIsSized {
			// XOR is commutative and associative, so combining the whole
			// tuple through one multi-way Xor call recovers the same
			// plaintext as XORing the prime against the whiteners alone.
			recoveredBlock, err := sized.Xor(handles, block.NextSizeAbove(len(blocks[0])), header.DateCreated)
			if err != nil {
				return nil, err
			}
			plain = recoveredBlock.Data()
		} else {
			prime := blocks[len(blocks)-1]
			whiteners := blocks[:len(blocks)-1]
			var err error
			plain, err = offs.XorBlockWithWhiteners(prime, whiteners)
			if err != nil {
				return nil, err
			}
		}
		recovered = append(recovered, plain...)
	}

	if uint64(len(recovered)) < header.OriginalDataLength {
		return nil, errs.ErrMalformedCbl
	}
	output := recovered[:header.OriginalDataLength]

	actual := checksum.Compute(output)
	if !actual.Equal(header.OriginalDataChecksum) {
		return nil, errs.NewIntegrityViolation(header.OriginalDataChecksum.Hex(), actual.Hex())
	}
	return output, nil
}
