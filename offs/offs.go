// Package offs implements the XOR/OFFS transform engine (spec §4.6): the
// bitwise whitening primitives used to turn a plaintext payload into a
// store-agnostic "prime" block, and the chunked file-reading loop that
// drives ingestion.
package offs

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"

	"offs-core/block"
	"offs-core/engine/errs"
)

// TUPLE_SIZE is the number of blocks (whiteners + one prime) an OFFS tuple
// carries; the system-wide default is 3 (spec §4.6).
const TUPLE_SIZE = 3

// ECIES_OVERHEAD is the number of bytes an ECIES envelope adds on top of
// plaintext, reducing the usable payload capacity of an encrypted block
// (spec §4.6). The actual encryption is delegated externally (spec §1
// Non-goals); this core only needs the byte-budget constant.
const ECIES_OVERHEAD = 113

// XorBlockWithWhiteners XORs data in place against each whitener's bytes
// (spec §4.6 "xorBlockWithWhiteners"). The operation is commutative and
// associative in the whiteners, and self-inverse: applying the same
// whitener set twice returns the original bytes.
func XorBlockWithWhiteners(data []byte, whiteners [][]byte) ([]byte, error) {
	if len(whiteners) == 0 {
		return nil, errs.ErrNoWhitenersProvided
	}
	out := make([]byte, len(data))
	copy(out, data)
	for _, w := range whiteners {
		n := len(out)
		if len(w) < n {
			n = len(w)
		}
		for i := 0; i < n; i++ {
			out[i] ^= w[i]
		}
	}
	return out, nil
}

// XorBlocksWithWhitenersRoundRobin XORs blocks[i] against
// whiteners[i%len(whiteners)], leaving the whitener set unconsumed (spec
// §4.6 "xorBlocksWithWhitenersRoundRobin").
func XorBlocksWithWhitenersRoundRobin(blocks [][]byte, whiteners [][]byte) ([][]byte, error) {
	if len(whiteners) == 0 {
		return nil, errs.ErrNoWhitenersProvided
	}
	out := make([][]byte, len(blocks))
	for i, b := range blocks {
		w := whiteners[i%len(whiteners)]
		result, err := XorBlockWithWhiteners(b, [][]byte{w})
		if err != nil {
			return nil, err
		}
		out[i] = result
	}
	return out, nil
}

// Source describes the input to ProcessFileInChunks (spec §4.6
// "processFileInChunks"). Exactly one of Data or Reader should be set: Data
// for an in-memory byte buffer (length is simply len(Data)), Reader for a
// stream whose length must come from Length or, failing that, a Stat on
// Path.
type Source struct {
	Data   []byte
	Reader io.Reader
	Path   string
	Length int64 // -1 if unknown
}

func (s Source) resolveLength() (int64, error) {
	if s.Data != nil {
		return int64(len(s.Data)), nil
	}
	if s.Length >= 0 {
		return s.Length, nil
	}
	if s.Path != "" {
		fi, err := os.Stat(s.Path)
		if err != nil {
			return 0, err
		}
		return fi.Size(), nil
	}
	return 0, errs.ErrCannotDetermineLength
}

func (s Source) reader() io.Reader {
	if s.Data != nil {
		return bytes.NewReader(s.Data)
	}
	return s.Reader
}

// Encryptor is the external ECIES collaborator contract (spec §1, §6): this
// core hands it plaintext payloads and a recipient and receives ciphertext
// back, without knowing anything about the encryption scheme itself.
type Encryptor interface {
	Encrypt(payload []byte, recipient []byte) ([]byte, error)
}

// ProcessFileInChunks reads source in payloadPerBlock-sized payloads,
// optionally encrypts each, batches them to chunkSize, and invokes forEach
// once per batch before accruing the next (spec §4.6). It returns the total
// number of real (non-padding) bytes consumed from source.
func ProcessFileInChunks(
	source Source,
	enc Encryptor,
	encrypt bool,
	chunkSize int,
	forEach func(batch [][]byte) error,
	recipient []byte,
) (int64, error) {
	fileLength, err := source.resolveLength()
	if err != nil {
		return 0, errs.ErrCannotDetermineLength
	}
	if fileLength >= int64(block.SizeHuge) {
		return 0, errs.ErrCannotDetermineBlockSize
	}

	blockSize := block.NextSizeAbove(int(fileLength))
	payloadPerBlock := int(blockSize)
	if encrypt {
		payloadPerBlock -= ECIES_OVERHEAD
	}
	if payloadPerBlock <= 0 {
		return 0, errs.ErrCannotDetermineBlockSize
	}

	r := source.reader()
	var total int64
	var batch [][]byte

	for {
		payload := make([]byte, payloadPerBlock)
		n, readErr := io.ReadFull(r, payload)
		if n > 0 {
			total += int64(n)
			if n < payloadPerBlock {
				// Right-pad the final, short payload with CSPRNG bytes,
				// never zero-fill (spec §4.6).
				if _, err := rand.Read(payload[n:]); err != nil {
					return total, err
				}
			}

			out := payload
			if encrypt {
				if enc == nil {
					return total, errs.ErrRecipientRequiredForEncryption
				}
				ciphertext, err := enc.Encrypt(payload, recipient)
				if err != nil {
					return total, err
				}
				out = ciphertext
			}
			batch = append(batch, out)

			if len(batch) == chunkSize {
				if err := forEach(batch); err != nil {
					return total, err
				}
				batch = nil
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return total, readErr
		}
	}

	if len(batch) > 0 {
		if err := forEach(batch); err != nil {
			return total, err
		}
	}
	return total, nil
}
