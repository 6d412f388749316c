package cbl

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"offs-core/block"
	"offs-core/checksum"
	"offs-core/engine/errs"
)

func fixedCreatorID() []byte {
	id := make([]byte, CreatorIDSize)
	for i := range id {
		id[i] = byte(i)
	}
	return id
}

func TestMakeAndParseHeaderRoundTrip(t *testing.T) {
	creator := fixedCreatorID()
	when := time.UnixMilli(1_700_000_000_000).UTC()
	origChecksum := checksum.Compute([]byte("original file contents"))

	header, err := MakeCblHeader(TypeCBL, creator, when, 9, 3, 123456, origChecksum, nil)
	if err != nil {
		t.Fatalf("MakeCblHeader: %v", err)
	}

	// Append a fake address list so ParseHeader's tuple-multiple check and
	// HeaderLen-based slicing can be exercised together.
	payload := append([]byte(nil), header...)
	for i := 0; i < 9; i++ {
		c := checksum.Compute([]byte{byte(i)})
		payload = append(payload, c[:]...)
	}

	h, err := ParseHeader(payload)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.StructuredType != TypeCBL {
		t.Errorf("StructuredType = %v, want TypeCBL", h.StructuredType)
	}
	if h.AddressCount != 9 {
		t.Errorf("AddressCount = %d, want 9", h.AddressCount)
	}
	if h.TupleSize != 3 {
		t.Errorf("TupleSize = %d, want 3", h.TupleSize)
	}
	if h.OriginalDataLength != 123456 {
		t.Errorf("OriginalDataLength = %d, want 123456", h.OriginalDataLength)
	}
	if !h.OriginalDataChecksum.Equal(origChecksum) {
		t.Errorf("OriginalDataChecksum mismatch")
	}
	if !h.DateCreated.Equal(when) {
		t.Errorf("DateCreated = %v, want %v", h.DateCreated, when)
	}
	if h.Extended != nil {
		t.Errorf("Extended = %v, want nil", h.Extended)
	}

	addrs, err := AddressDataToAddresses(payload)
	if err != nil {
		t.Fatalf("AddressDataToAddresses: %v", err)
	}
	if len(addrs) != 9 {
		t.Fatalf("len(addrs) = %d, want 9", len(addrs))
	}
	for i, a := range addrs {
		want := checksum.Compute([]byte{byte(i)})
		if !a.Equal(want) {
			t.Errorf("addrs[%d] = %s, want %s", i, a, want)
		}
	}
}

func TestParseHeaderExtended(t *testing.T) {
	creator := fixedCreatorID()
	origChecksum := checksum.Compute([]byte("x"))
	ext := &ExtendedHeader{MimeType: "text/plain", FileName: "notes.txt"}

	header, err := MakeCblHeader(TypeExtendedCBL, creator, time.Now(), 3, 3, 1, origChecksum, ext)
	if err != nil {
		t.Fatalf("MakeCblHeader: %v", err)
	}
	payload := append([]byte(nil), header...)
	for i := 0; i < 3; i++ {
		var z checksum.Checksum
		payload = append(payload, z[:]...)
	}

	h, err := ParseHeader(payload)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Extended == nil {
		t.Fatalf("Extended = nil, want non-nil")
	}
	if h.Extended.MimeType != "text/plain" || h.Extended.FileName != "notes.txt" {
		t.Errorf("Extended = %+v", h.Extended)
	}
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	data := []byte{0x00, byte(TypeCBL), Version, 0x00}
	if _, err := ParseHeader(data); err != ErrInvalidMagic {
		t.Fatalf("err = %v, want ErrInvalidMagic", err)
	}
}

func TestParseHeaderRejectsCrcMismatch(t *testing.T) {
	creator := fixedCreatorID()
	header, err := MakeCblHeader(TypeCBL, creator, time.Now(), 3, 3, 1, checksum.Checksum{}, nil)
	if err != nil {
		t.Fatalf("MakeCblHeader: %v", err)
	}
	header[3] ^= 0xFF // corrupt crc8
	if _, err := ParseHeader(header); err != ErrCrcMismatch {
		t.Fatalf("err = %v, want ErrCrcMismatch", err)
	}
}

func TestParseHeaderRejectsNonTupleMultiple(t *testing.T) {
	creator := fixedCreatorID()
	header, err := MakeCblHeader(TypeCBL, creator, time.Now(), 4, 3, 1, checksum.Checksum{}, nil)
	if err != nil {
		t.Fatalf("MakeCblHeader: %v", err)
	}
	if _, err := ParseHeader(header); err != ErrAddressCountNotTupleMultiple {
		t.Fatalf("err = %v, want ErrAddressCountNotTupleMultiple", err)
	}
}

func TestParseHeaderRejectsTruncated(t *testing.T) {
	if _, err := ParseHeader([]byte{MagicPrefix}); err != ErrTruncatedHeader {
		t.Fatalf("err = %v, want ErrTruncatedHeader", err)
	}
}

func TestIsSuperCBL(t *testing.T) {
	creator := fixedCreatorID()
	header, _ := MakeCblHeader(TypeSuperCBL, creator, time.Now(), 3, 3, 1, checksum.Checksum{}, nil)
	if !IsSuperCBL(header) {
		t.Fatalf("IsSuperCBL = false, want true")
	}
	headerCBL, _ := MakeCblHeader(TypeCBL, creator, time.Now(), 3, 3, 1, checksum.Checksum{}, nil)
	if IsSuperCBL(headerCBL) {
		t.Fatalf("IsSuperCBL = true, want false")
	}
}

func TestIsEncrypted(t *testing.T) {
	plain := []byte{MagicPrefix, byte(TypeCBL), Version, 0}
	if IsEncrypted(plain) {
		t.Fatalf("plain CBL reported encrypted")
	}
	enc := []byte{0x01, encryptedEnvelopeMarker, 0, 0}
	if !IsEncrypted(enc) {
		t.Fatalf("envelope-marked payload not reported encrypted")
	}
}

type fakeVerifier struct{ ok bool }

func (f fakeVerifier) Verify(headerBytes []byte, sig [SignatureSize]byte, creatorID []byte) bool {
	return f.ok
}

func TestValidateSignatureDelegates(t *testing.T) {
	creator := fixedCreatorID()
	header, _ := MakeCblHeader(TypeCBL, creator, time.Now(), 3, 3, 1, checksum.Checksum{}, nil)
	if ValidateSignature(header, creator, fakeVerifier{ok: true}) != true {
		t.Fatalf("expected true verifier result")
	}
	if ValidateSignature(header, creator, fakeVerifier{ok: false}) != false {
		t.Fatalf("expected false verifier result")
	}
	if ValidateSignature(header, creator, nil) != false {
		t.Fatalf("nil verifier must return false, not panic")
	}
}

func TestCreateCBLRejectsEmptyBlockList(t *testing.T) {
	creator := fixedCreatorID()
	_, err := CreateCBL(TypeCBL, nil, creator, 0, checksum.Compute(nil), 3, nil)
	if !errors.Is(err, errs.ErrEmptyBlocksArray) {
		t.Fatalf("err = %v, want ErrEmptyBlocksArray", err)
	}
}

func TestCreateCBLPreservesOrderAndRejectsMixedSizes(t *testing.T) {
	creator := fixedCreatorID()
	now := time.Now().UTC()
	mk := func(b byte) block.Block {
		data := make([]byte, block.SizeMessage)
		data[0] = b
		blk, err := block.New(block.SizeMessage, block.KindRawData, block.DataRaw, data, now)
		if err != nil {
			t.Fatalf("block.New: %v", err)
		}
		return blk
	}
	blocks := []block.Block{mk(1), mk(2), mk(3)}

	payload, err := CreateCBL(TypeCBL, blocks, creator, 42, checksum.Compute([]byte("orig")), 3, nil)
	if err != nil {
		t.Fatalf("CreateCBL: %v", err)
	}
	addrs, err := AddressDataToAddresses(payload)
	if err != nil {
		t.Fatalf("AddressDataToAddresses: %v", err)
	}
	for i, b := range blocks {
		if !bytes.Equal(addrs[i][:], func() []byte { c := b.Checksum(); return c[:] }()) {
			t.Errorf("address[%d] does not match input order", i)
		}
	}

	// Mixed sizes must be rejected.
	oddData := make([]byte, block.SizeTiny)
	oddData[0] = 9
	odd, err := block.New(block.SizeTiny, block.KindRawData, block.DataRaw, oddData, now)
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	if _, err := CreateCBL(TypeCBL, append(blocks, odd), creator, 42, checksum.Checksum{}, 3, nil); err == nil {
		t.Fatalf("expected error for mixed block sizes")
	}
}
