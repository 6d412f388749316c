// Package cbl implements the Constituent Block List binary codec (spec
// §4.7): header layout, CRC-8 framing, sub-type discrimination, address-list
// packing, and CBL assembly from a tuple-ordered list of blocks.
package cbl

import (
	"encoding/binary"
	"errors"
	"time"

	"offs-core/block"
	"offs-core/checksum"
	"offs-core/engine/errs"
)

// MagicPrefix identifies the first byte of every CBL payload.
const MagicPrefix byte = 0xBC

// StructuredType discriminates CBL sub-kinds (spec §4.7 offset 1).
type StructuredType uint8

const (
	TypeCBL StructuredType = iota + 2
	TypeExtendedCBL
	TypeMessageCBL
	TypeSuperCBL
	TypeVaultCBL
)

// Version is the only header version this codec emits or accepts.
const Version uint8 = 1

// CreatorIDSize is the fixed width of the identity provider's opaque
// creator id (spec §4.7 "length fixed by identity provider; typically 16 or
// 32"). This core fixes it at 32 bytes.
const CreatorIDSize = 32

// SignatureSize is the fixed width of the creator signature slot.
const SignatureSize = 64

// AddressSize is the width of a single packed address (a Checksum).
const AddressSize = checksum.Size

var (
	ErrInvalidMagic               = errors.New("cbl: invalid magic prefix")
	ErrUnsupportedVersion         = errors.New("cbl: unsupported version")
	ErrCrcMismatch                = errors.New("cbl: crc8 mismatch")
	ErrAddressCountNotTupleMultiple = errors.New("cbl: address count is not a multiple of tuple size")
	ErrTruncatedHeader            = errors.New("cbl: truncated header")
	ErrInvalidCreatorIDLength     = errors.New("cbl: invalid creator id length")
)

// ExtendedHeader carries the optional mime-type/filename pair for Extended
// CBLs (spec §4.7 "extended_header").
type ExtendedHeader struct {
	MimeType string
	FileName string
}

// Header is the decoded view of a CBL's fixed-layout header (spec §3 "CBL
// record", §4.7).
type Header struct {
	StructuredType         StructuredType
	Version                uint8
	CRC8                   byte
	CreatorID              []byte
	DateCreated            time.Time
	AddressCount           uint32
	TupleSize              uint8
	OriginalDataLength     uint64
	OriginalDataChecksum   checksum.Checksum
	Extended               *ExtendedHeader
	Signature              [SignatureSize]byte

	// headerLen is the number of bytes the header occupies at the front of
	// the CBL payload; the address list begins immediately after it.
	headerLen int
}

// HeaderLen returns the number of bytes the header occupies; the packed
// address list begins at this offset in the full CBL payload.
func (h Header) HeaderLen() int { return h.headerLen }

// IsCBLStructuredType reports whether t carries a CBL header at all (used by
// pool dependency analysis to skip non-CBL blocks, spec §4.3.1).
func IsCBLStructuredType(t StructuredType) bool {
	switch t {
	case TypeCBL, TypeExtendedCBL, TypeMessageCBL, TypeSuperCBL, TypeVaultCBL:
		return true
	default:
		return false
	}
}

// KindForStructuredType maps a wire StructuredType onto the corresponding
// block.Kind, used when the engine wraps a CBL payload in a block.Block.
func KindForStructuredType(t StructuredType) block.Kind {
	switch t {
	case TypeExtendedCBL:
		return block.KindExtendedCBL
	case TypeMessageCBL:
		return block.KindMessageCBL
	case TypeSuperCBL:
		return block.KindSuperCBL
	case TypeVaultCBL:
		return block.KindVaultCBL
	default:
		return block.KindCBL
	}
}

func putUint16Prefixed(buf []byte, s string) []byte {
	b := []byte(s)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(b)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, b...)
	return buf
}

func readUint16Prefixed(data []byte, offset int) (string, int, error) {
	if offset+2 > len(data) {
		return "", 0, ErrTruncatedHeader
	}
	n := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if offset+n > len(data) {
		return "", 0, ErrTruncatedHeader
	}
	return string(data[offset : offset+n]), offset + n, nil
}

// MakeCblHeader assembles the exact bytes that must precede the address
// list (spec §4.7 "makeCblHeader"). The signature slot is zero-filled;
// signing is a separate step performed by the ECIES collaborator against
// the returned bytes. CRC8 is computed over the header bytes from the
// creator-id field through the end of the (optional) extended header,
// i.e. everything between the crc8 field and the signature field.
func MakeCblHeader(
	structuredType StructuredType,
	creatorID []byte,
	dateCreated time.Time,
	addressCount uint32,
	tupleSize uint8,
	originalDataLength uint64,
	originalDataChecksum checksum.Checksum,
	extended *ExtendedHeader,
) ([]byte, error) {
	if len(creatorID) != CreatorIDSize {
		return nil, ErrInvalidCreatorIDLength
	}

	// Build the CRC-covered span first: creator_id .. is_extended_header
	// (+ extended header bytes, if present).
	span := make([]byte, 0, CreatorIDSize+8+4+1+8+checksum.Size+1+64)
	span = append(span, creatorID...)

	var millisBuf [8]byte
	binary.BigEndian.PutUint64(millisBuf[:], uint64(dateCreated.UnixMilli()))
	span = append(span, millisBuf[:]...)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], addressCount)
	span = append(span, countBuf[:]...)

	span = append(span, tupleSize)

	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], originalDataLength)
	span = append(span, lenBuf[:]...)

	span = append(span, originalDataChecksum[:]...)

	if extended != nil {
		span = append(span, 1)
		span = putUint16Prefixed(span, extended.MimeType)
		span = putUint16Prefixed(span, extended.FileName)
	} else {
		span = append(span, 0)
	}

	crc := crc8(span)

	header := make([]byte, 0, 4+len(span)+SignatureSize)
	header = append(header, MagicPrefix, byte(structuredType), Version, crc)
	header = append(header, span...)
	header = append(header, make([]byte, SignatureSize)...) // zeroed signature slot

	return header, nil
}

// ParseHeader validates and decodes a CBL header from the front of data
// (spec §4.7 "parseHeader").
func ParseHeader(data []byte) (Header, error) {
	const fixedPrefix = 4 // magic, type, version, crc8
	if len(data) < fixedPrefix {
		return Header{}, ErrTruncatedHeader
	}
	if data[0] != MagicPrefix {
		return Header{}, ErrInvalidMagic
	}
	st := StructuredType(data[1])
	if !IsCBLStructuredType(st) {
		return Header{}, ErrInvalidMagic
	}
	version := data[2]
	if version != Version {
		return Header{}, ErrUnsupportedVersion
	}
	crcField := data[3]

	offset := fixedPrefix
	spanStart := offset
	if offset+CreatorIDSize > len(data) {
		return Header{}, ErrTruncatedHeader
	}
	creatorID := append([]byte(nil), data[offset:offset+CreatorIDSize]...)
	offset += CreatorIDSize

	if offset+8 > len(data) {
		return Header{}, ErrTruncatedHeader
	}
	millis := binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8

	if offset+4 > len(data) {
		return Header{}, ErrTruncatedHeader
	}
	addressCount := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4

	if offset+1 > len(data) {
		return Header{}, ErrTruncatedHeader
	}
	tupleSize := data[offset]
	offset++

	if offset+8 > len(data) {
		return Header{}, ErrTruncatedHeader
	}
	originalDataLength := binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8

	if offset+checksum.Size > len(data) {
		return Header{}, ErrTruncatedHeader
	}
	var origChecksum checksum.Checksum
	copy(origChecksum[:], data[offset:offset+checksum.Size])
	offset += checksum.Size

	if offset+1 > len(data) {
		return Header{}, ErrTruncatedHeader
	}
	isExtended := data[offset]
	offset++

	var extended *ExtendedHeader
	if isExtended == 1 {
		mime, next, err := readUint16Prefixed(data, offset)
		if err != nil {
			return Header{}, err
		}
		offset = next
		name, next2, err := readUint16Prefixed(data, offset)
		if err != nil {
			return Header{}, err
		}
		offset = next2
		extended = &ExtendedHeader{MimeType: mime, FileName: name}
	}

	spanEnd := offset
	gotCRC := crc8(data[spanStart:spanEnd])
	if gotCRC != crcField {
		return Header{}, ErrCrcMismatch
	}

	if offset+SignatureSize > len(data) {
		return Header{}, ErrTruncatedHeader
	}
	var sig [SignatureSize]byte
	copy(sig[:], data[offset:offset+SignatureSize])
	offset += SignatureSize

	if tupleSize == 0 || addressCount%uint32(tupleSize) != 0 {
		return Header{}, ErrAddressCountNotTupleMultiple
	}

	return Header{
		StructuredType:       st,
		Version:              version,
		CRC8:                 crcField,
		CreatorID:            creatorID,
		DateCreated:          time.UnixMilli(int64(millis)).UTC(),
		AddressCount:         addressCount,
		TupleSize:            tupleSize,
		OriginalDataLength:   originalDataLength,
		OriginalDataChecksum: origChecksum,
		Extended:             extended,
		Signature:            sig,
		headerLen:            offset,
	}, nil
}

// IsSuperCBL reports whether data's header declares the SuperCBL sub-type,
// without requiring a full successful parse of the address list.
func IsSuperCBL(data []byte) bool {
	if len(data) < 2 || data[0] != MagicPrefix {
		return false
	}
	return StructuredType(data[1]) == TypeSuperCBL
}

// encryptedEnvelopeMarker is the second-byte convention this core expects
// an ECIES-encrypted CBL envelope to carry when the first byte is not the
// CBL magic prefix. The actual envelope format is owned by the external
// ECIES collaborator (spec §1, §6); this core only needs to recognize that
// a payload is opaque to it.
const encryptedEnvelopeMarker = 0xEC

// IsEncrypted reports whether data is an ECIES-encrypted envelope rather
// than a plain CBL (spec §4.7 "isEncrypted").
func IsEncrypted(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	if data[0] == MagicPrefix {
		return false
	}
	return data[1] == encryptedEnvelopeMarker
}

// AddressDataToAddresses parses the tightly packed address list following
// data's header (spec §4.7 "addressDataToAddresses").
func AddressDataToAddresses(data []byte) ([]checksum.Checksum, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	return addressesAt(data, h)
}

func addressesAt(data []byte, h Header) ([]checksum.Checksum, error) {
	need := h.headerLen + int(h.AddressCount)*AddressSize
	if len(data) < need {
		return nil, ErrTruncatedHeader
	}
	addrs := make([]checksum.Checksum, h.AddressCount)
	for i := 0; i < int(h.AddressCount); i++ {
		start := h.headerLen + i*AddressSize
		copy(addrs[i][:], data[start:start+AddressSize])
	}
	return addrs, nil
}

// SignatureVerifier is the ECIES collaborator contract for signature
// validation (spec §6 "Signing/verification (ECIES)").
type SignatureVerifier interface {
	Verify(headerBytes []byte, signature [SignatureSize]byte, creatorID []byte) bool
}

// ValidateSignature delegates to verifier; it never panics and returns
// false for any mismatch or nil verifier (spec §4.7 "validateSignature").
func ValidateSignature(data []byte, creatorID []byte, verifier SignatureVerifier) bool {
	if verifier == nil {
		return false
	}
	h, err := ParseHeader(data)
	if err != nil {
		return false
	}
	headerBytes := data[:h.headerLen]
	return verifier.Verify(headerBytes, h.Signature, creatorID)
}

// CreateCBL assembles a full CBL payload (header + packed address list)
// from an ordered list of already-stored blocks, preserving input order
// (spec §4.7 "CBL assembly (createCBL)"). blocks must be non-empty and
// share the same size; the emitted CBL's own block size is independent of
// the constituent blocks' size and is not represented in this codec layer.
func CreateCBL(
	structuredType StructuredType,
	blocks []block.Block,
	creatorID []byte,
	originalDataLength uint64,
	originalDataChecksum checksum.Checksum,
	tupleSize uint8,
	extended *ExtendedHeader,
) ([]byte, error) {
	if len(blocks) == 0 {
		return nil, errs.ErrEmptyBlocksArray
	}
	size := blocks[0].Size()
	dateCreated := blocks[0].DateCreated()
	for _, b := range blocks {
		if b.Size() != size {
			return nil, block.ErrSizeMismatch
		}
	}

	addressCount := uint32(len(blocks))
	header, err := MakeCblHeader(structuredType, creatorID, dateCreated, addressCount, tupleSize, originalDataLength, originalDataChecksum, extended)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(header)+len(blocks)*AddressSize)
	out = append(out, header...)
	for _, b := range blocks {
		c := b.Checksum()
		out = append(out, c[:]...)
	}
	return out, nil
}
