package checksum

import "testing"

// FuzzHexRoundTrip ensures Hex/FromHex are inverses for arbitrary byte
// slices hashed into a Checksum.
func FuzzHexRoundTrip(f *testing.F) {
	seeds := [][]byte{nil, []byte(""), []byte("a"), []byte("brightchain soup")}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		c := Compute(data)
		got, err := FromHex(c.Hex())
		if err != nil {
			t.Fatalf("FromHex(%q): %v", c.Hex(), err)
		}
		if !got.Equal(c) {
			t.Fatalf("round trip mismatch: got %s want %s", got, c)
		}
	})
}
