// Package magnet encodes and decodes opaque "magnet:" identifiers for
// checksums, wrapping the raw SHA3-512 digest in a CIDv1 the way the
// teacher's storage layer wraps content digests for its IPFS gateway
// (core/storage.go), adapted here to identify engine-native checksums
// rather than re-hashed gateway content.
package magnet

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"offs-core/checksum"
)

const urn = "urn:offs:"

var (
	ErrNotAMagnetURL = fmt.Errorf("magnet: missing magnet: scheme")
	ErrMissingXT     = fmt.Errorf("magnet: missing xt parameter")
	ErrBadURN        = fmt.Errorf("magnet: malformed urn:offs: value")
	ErrWrongDigest   = fmt.Errorf("magnet: digest is not a SHA3-512 checksum")
)

// Encode wraps sum's digest in a CIDv1/multihash and returns a magnet URL.
// poolId, if non-empty, is carried as an additional query parameter so a
// recipient knows which pool to resolve the checksum against.
func Encode(sum checksum.Checksum, poolId string) (string, error) {
	encodedMH, err := mh.Encode(sum.Bytes(), mh.SHA3_512)
	if err != nil {
		return "", err
	}
	c := cid.NewCidV1(cid.Raw, encodedMH)

	v := url.Values{}
	v.Set("xt", urn+c.String())
	if poolId != "" {
		v.Set("pool", poolId)
	}
	return "magnet:?" + v.Encode(), nil
}

// Decode parses a magnet URL produced by Encode back into a checksum and
// its associated pool id (empty if the URL carried none).
func Decode(magnetURL string) (checksum.Checksum, string, error) {
	if !strings.HasPrefix(magnetURL, "magnet:?") {
		return checksum.Checksum{}, "", ErrNotAMagnetURL
	}
	q, err := url.ParseQuery(strings.TrimPrefix(magnetURL, "magnet:?"))
	if err != nil {
		return checksum.Checksum{}, "", err
	}
	xt := q.Get("xt")
	if xt == "" {
		return checksum.Checksum{}, "", ErrMissingXT
	}
	if !strings.HasPrefix(xt, urn) {
		return checksum.Checksum{}, "", ErrBadURN
	}

	c, err := cid.Decode(strings.TrimPrefix(xt, urn))
	if err != nil {
		return checksum.Checksum{}, "", err
	}
	decoded, err := mh.Decode(c.Hash())
	if err != nil {
		return checksum.Checksum{}, "", err
	}
	if decoded.Code != mh.SHA3_512 || len(decoded.Digest) != checksum.Size {
		return checksum.Checksum{}, "", ErrWrongDigest
	}

	var sum checksum.Checksum
	copy(sum[:], decoded.Digest)
	return sum, q.Get("pool"), nil
}
