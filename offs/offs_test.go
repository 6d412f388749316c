package offs

import (
	"bytes"
	"errors"
	"testing"

	"offs-core/engine/errs"
)

func TestXorBlockWithWhitenersSelfInverse(t *testing.T) {
	data := []byte("the quick brown fox")
	w1 := []byte("whitener one bytes..")
	w2 := []byte("whitener two bytes..")
	whiteners := [][]byte{w1, w2}

	xored, err := XorBlockWithWhiteners(data, whiteners)
	if err != nil {
		t.Fatalf("XorBlockWithWhiteners: %v", err)
	}
	if bytes.Equal(xored, data) {
		t.Fatalf("expected xored output to differ from input")
	}
	back, err := XorBlockWithWhiteners(xored, whiteners)
	if err != nil {
		t.Fatalf("XorBlockWithWhiteners (reverse): %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Fatalf("double application did not recover original data")
	}
}

func TestXorBlockWithWhitenersCommutative(t *testing.T) {
	data := []byte("payload bytes.......")
	w1 := []byte("whitener one bytes..")
	w2 := []byte("whitener two bytes..")

	a, _ := XorBlockWithWhiteners(data, [][]byte{w1, w2})
	b, _ := XorBlockWithWhiteners(data, [][]byte{w2, w1})
	if !bytes.Equal(a, b) {
		t.Fatalf("xor with whiteners in reverse order produced different output")
	}
}

func TestXorBlockWithWhitenersRequiresWhiteners(t *testing.T) {
	if _, err := XorBlockWithWhiteners([]byte("x"), nil); !errors.Is(err, errs.ErrNoWhitenersProvided) {
		t.Fatalf("err = %v, want ErrNoWhitenersProvided", err)
	}
}

func TestXorBlocksWithWhitenersRoundRobin(t *testing.T) {
	blocks := [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cccc")}
	whiteners := [][]byte{[]byte("1111"), []byte("2222")}

	out, err := XorBlocksWithWhitenersRoundRobin(blocks, whiteners)
	if err != nil {
		t.Fatalf("XorBlocksWithWhitenersRoundRobin: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	// block 2 (index 2) wraps back to whiteners[0].
	back, _ := XorBlockWithWhiteners(out[2], [][]byte{whiteners[0]})
	if !bytes.Equal(back, blocks[2]) {
		t.Fatalf("round-robin wrap-around did not recover block 2")
	}
}

func TestProcessFileInChunksSingleBlockNoEncryption(t *testing.T) {
	data := []byte("a small file")
	var batches [][][]byte

	total, err := ProcessFileInChunks(Source{Data: data}, nil, false, 4, func(batch [][]byte) error {
		cp := make([][]byte, len(batch))
		copy(cp, batch)
		batches = append(batches, cp)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("ProcessFileInChunks: %v", err)
	}
	if total != int64(len(data)) {
		t.Fatalf("total = %d, want %d", total, len(data))
	}
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("expected exactly one payload in one batch, got %v", batches)
	}
	if !bytes.HasPrefix(batches[0][0], data) {
		t.Fatalf("payload does not start with original data")
	}
}

func TestProcessFileInChunksRejectsHugeInput(t *testing.T) {
	_, err := ProcessFileInChunks(Source{Length: 1 << 30}, nil, false, 4, func([][]byte) error { return nil }, nil)
	if !errors.Is(err, errs.ErrCannotDetermineBlockSize) {
		t.Fatalf("err = %v, want ErrCannotDetermineBlockSize", err)
	}
}

func TestProcessFileInChunksRequiresEncryptorWhenEncrypting(t *testing.T) {
	_, err := ProcessFileInChunks(Source{Data: []byte("x")}, nil, true, 4, func([][]byte) error { return nil }, nil)
	if !errors.Is(err, errs.ErrRecipientRequiredForEncryption) {
		t.Fatalf("err = %v, want ErrRecipientRequiredForEncryption", err)
	}
}

type fakeEncryptor struct{}

func (fakeEncryptor) Encrypt(payload []byte, recipient []byte) ([]byte, error) {
	out := make([]byte, len(payload))
	copy(out, payload)
	for i := range out {
		out[i] ^= 0xFF
	}
	return out, nil
}

func TestProcessFileInChunksEncrypts(t *testing.T) {
	data := []byte("secret contents")
	var got []byte
	_, err := ProcessFileInChunks(Source{Data: data}, fakeEncryptor{}, true, 4, func(batch [][]byte) error {
		got = batch[0]
		return nil
	}, []byte("recipient"))
	if err != nil {
		t.Fatalf("ProcessFileInChunks: %v", err)
	}
	if bytes.Equal(got[:len(data)], data) {
		t.Fatalf("expected ciphertext to differ from plaintext")
	}
}
