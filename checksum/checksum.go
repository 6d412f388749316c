// Package checksum computes and encodes the SHA3-512 digests used as block
// identifiers throughout the engine.
package checksum

import (
	"encoding/hex"
	"errors"
	"golang.org/x/crypto/sha3"
)

// Size is the length in bytes of a Checksum (SHA3-512 digest).
const Size = 64

// ErrInvalidChecksum is returned when a hex string cannot be decoded into a
// well-formed Checksum.
var ErrInvalidChecksum = errors.New("checksum: invalid hex encoding")

// Checksum is an opaque, fixed-length content identifier. The zero value is
// not a valid checksum of any content and is used as a sentinel.
type Checksum [Size]byte

// Compute returns the SHA3-512 digest of data.
func Compute(data []byte) Checksum {
	return Checksum(sha3.Sum512(data))
}

// FromHex decodes a lower-case, unseparated hex string into a Checksum. It
// fails with ErrInvalidChecksum if the string is malformed or the wrong
// length.
func FromHex(s string) (Checksum, error) {
	var c Checksum
	if len(s) != Size*2 {
		return c, ErrInvalidChecksum
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return c, ErrInvalidChecksum
	}
	copy(c[:], b)
	return c, nil
}

// MustFromHex is like FromHex but panics on error. It exists for tests and
// compile-time constants derived from known-good hex strings.
func MustFromHex(s string) Checksum {
	c, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns the lower-case, unseparated hex encoding of c.
func (c Checksum) Hex() string {
	return hex.EncodeToString(c[:])
}

// String implements fmt.Stringer by returning the hex encoding.
func (c Checksum) String() string {
	return c.Hex()
}

// Equal reports whether c and other identify the same content.
func (c Checksum) Equal(other Checksum) bool {
	return c == other
}

// IsZero reports whether c is the zero-value sentinel.
func (c Checksum) IsZero() bool {
	return c == Checksum{}
}

// Bytes returns a defensive copy of the underlying digest bytes.
func (c Checksum) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, c[:])
	return out
}
