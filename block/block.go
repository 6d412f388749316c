// Package block defines the immutable Block value type (spec §3, §4.2) as a
// tagged variant: a common header plus a payload, matched on Kind rather
// than dispatched through an inheritance hierarchy (see DESIGN.md, DESIGN
// NOTES §9).
package block

import (
	"errors"
	"time"

	"offs-core/checksum"
)

// Size is a canonical block size. Unknown is used for sizes that do not map
// onto one of the named tiers.
type Size uint32

// Canonical block sizes (spec §3). Medium/Large/Huge are powers of two by
// convention; concrete values are fixed here so the engine has stable
// chunking tiers to select from in offs.NextSizeAbove.
const (
	SizeUnknown Size = 0
	SizeMessage Size = 512
	SizeTiny    Size = 1024
	SizeSmall   Size = 4096
	SizeMedium  Size = 1 << 16 // 64 KiB
	SizeLarge   Size = 1 << 20 // 1 MiB
	SizeHuge    Size = 1 << 24 // 16 MiB
)

// orderedSizes lists the named tiers smallest-first; used by
// offs.NextSizeAbove to pick the smallest tier that fits a payload.
var orderedSizes = []Size{SizeMessage, SizeTiny, SizeSmall, SizeMedium, SizeLarge, SizeHuge}

// OrderedSizes returns the canonical sizes in ascending order.
func OrderedSizes() []Size {
	out := make([]Size, len(orderedSizes))
	copy(out, orderedSizes)
	return out
}

// NextSizeAbove returns the smallest canonical tier that can hold n bytes,
// or SizeHuge if n exceeds every tier (callers must then chunk across
// multiple blocks rather than growing the tier further; spec §4.6
// "NextSizeAbove"). n must be non-negative.
func NextSizeAbove(n int) Size {
	for _, s := range orderedSizes {
		if int(s) >= n {
			return s
		}
	}
	return SizeHuge
}

// Kind tags the structural role of a block (spec §3 "type").
type Kind uint8

const (
	KindRawData Kind = iota
	KindEphemeralOwnedData
	KindCBL
	KindExtendedCBL
	KindEncryptedSingle
	KindEncryptedMulti
	KindMessageCBL
	KindSuperCBL
	KindVaultCBL
	KindHandle
)

// cblKinds is the set of Kind values that carry a CBL header (used by the
// pool's cross-pool dependency analysis, spec §4.3.1).
var cblKinds = map[Kind]bool{
	KindCBL:         true,
	KindExtendedCBL: true,
	KindMessageCBL:  true,
	KindSuperCBL:    true,
	KindVaultCBL:    true,
}

// IsCBLKind reports whether k carries a CBL header.
func IsCBLKind(k Kind) bool { return cblKinds[k] }

// DataType tags how the payload bytes should be interpreted (spec §3
// "dataType").
type DataType uint8

const (
	DataRaw DataType = iota
	DataEphemeralStructured
	DataPublicMemberData
	DataEncryptedData
)

var (
	// ErrDataCannotBeEmpty is returned when a persisted block is constructed
	// with zero-length data.
	ErrDataCannotBeEmpty = errors.New("block: data cannot be empty")
	// ErrDataLengthExceedsCapacity is returned when data is longer than the
	// declared block size.
	ErrDataLengthExceedsCapacity = errors.New("block: data length exceeds capacity")
	// ErrSizeMismatch is returned when len(data) != size for a size other
	// than SizeUnknown.
	ErrSizeMismatch = errors.New("block: size mismatch")
)

// Block is an immutable, content-addressed byte buffer (spec §3).
type Block struct {
	size        Size
	kind        Kind
	dataType    DataType
	data        []byte
	checksum    checksum.Checksum
	dateCreated time.Time
}

// New validates and constructs a Block, computing its checksum once. The
// checksum is derived from data and is never supplied by the caller,
// preserving the invariant checksum(block.data) == block.checksum.
func New(size Size, kind Kind, dataType DataType, data []byte, created time.Time) (Block, error) {
	if len(data) == 0 {
		return Block{}, ErrDataCannotBeEmpty
	}
	if size != SizeUnknown {
		if len(data) > int(size) {
			return Block{}, ErrDataLengthExceedsCapacity
		}
		if len(data) != int(size) {
			return Block{}, ErrSizeMismatch
		}
	}
	if created.IsZero() {
		created = time.Now().UTC()
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return Block{
		size:        size,
		kind:        kind,
		dataType:    dataType,
		data:        buf,
		checksum:    checksum.Compute(buf),
		dateCreated: created,
	}, nil
}

// Size returns the block's declared size tier.
func (b Block) Size() Size { return b.size }

// Kind returns the block's structural kind.
func (b Block) Kind() Kind { return b.kind }

// DataType returns the block's payload interpretation tag.
func (b Block) DataType() DataType { return b.dataType }

// Checksum returns the block's content checksum.
func (b Block) Checksum() checksum.Checksum { return b.checksum }

// DateCreated returns the block's creation timestamp.
func (b Block) DateCreated() time.Time { return b.dateCreated }

// Data returns a defensive copy of the block's payload. Callers may not
// mutate the store's internal buffer through this method.
func (b Block) Data() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Len returns the length of the block's payload in bytes.
func (b Block) Len() int { return len(b.data) }

// Validate recomputes the checksum over the current data and compares it
// against the stored checksum, detecting corruption of the in-memory value.
func (b Block) Validate() error {
	if checksum.Compute(b.data) != b.checksum {
		return ErrSizeMismatch
	}
	return nil
}

// HasCBLMagic reports whether the block's data begins with the CBL magic
// prefix, independent of whether it fully parses as a CBL header. Used by
// the pool's dependency analysis (spec §4.3.1) to cheaply skip non-CBL
// blocks before attempting a full header parse.
func (b Block) HasCBLMagic(magic byte) bool {
	return len(b.data) > 0 && b.data[0] == magic
}
