package diskstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"offs-core/block"
	"offs-core/cbl"
	"offs-core/checksum"
	"offs-core/engine/errs"
	"offs-core/handle"
	"offs-core/internal/testutil"
	"offs-core/metaindex"
)

func newTestStore(t *testing.T) (*Store, *testutil.Sandbox) {
	t.Helper()
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	t.Cleanup(func() { sb.Cleanup() })
	s, err := New(sb.Root, metaindex.New(), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, sb
}

func TestPutGetRoundTripOnDisk(t *testing.T) {
	s, sb := newTestStore(t)
	data := []byte("persisted bytes")

	hex, err := s.PutInPool("a", data)
	if err != nil {
		t.Fatalf("PutInPool: %v", err)
	}

	want := filepath.Join(sb.Root, "a", "00000200", hex[0:2], hex[2:4], hex)
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected block file at %s: %v", want, err)
	}
	if _, err := os.Stat(want + sidecarSuffix); err != nil {
		t.Fatalf("expected sidecar file at %s: %v", want+sidecarSuffix, err)
	}

	got, err := s.GetFromPool("a", hex)
	if err != nil {
		t.Fatalf("GetFromPool: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("GetFromPool = %q, want %q", got, data)
	}
}

func TestPutIsIdempotentOnDisk(t *testing.T) {
	s, _ := newTestStore(t)
	data := []byte("same bytes")
	hex1, err := s.PutInPool("a", data)
	if err != nil {
		t.Fatalf("PutInPool: %v", err)
	}
	hex2, err := s.PutInPool("a", data)
	if err != nil {
		t.Fatalf("PutInPool (second): %v", err)
	}
	if hex1 != hex2 {
		t.Fatalf("hex mismatch: %s vs %s", hex1, hex2)
	}
	stats, err := s.GetPoolStats("a")
	if err != nil {
		t.Fatalf("GetPoolStats: %v", err)
	}
	if stats.BlockCount != 1 {
		t.Fatalf("BlockCount = %d, want 1", stats.BlockCount)
	}
}

func TestDeleteFromPoolRemovesFiles(t *testing.T) {
	s, sb := newTestStore(t)
	hex, err := s.PutInPool("a", []byte("x"))
	if err != nil {
		t.Fatalf("PutInPool: %v", err)
	}
	path := filepath.Join(sb.Root, "a", "00000200", hex[0:2], hex[2:4], hex)

	if err := s.DeleteFromPool("a", hex); err != nil {
		t.Fatalf("DeleteFromPool: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected data file removed, stat err = %v", err)
	}
	if _, err := os.Stat(path + sidecarSuffix); !os.IsNotExist(err) {
		t.Fatalf("expected sidecar file removed, stat err = %v", err)
	}
	if ok, _ := s.HasInPool("a", hex); ok {
		t.Fatalf("HasInPool should report false after delete")
	}
}

func TestListPoolsAndReload(t *testing.T) {
	s, sb := newTestStore(t)
	s.PutInPool("b", []byte("1"))
	s.PutInPool("a", []byte("2"))

	pools, err := s.ListPools()
	if err != nil {
		t.Fatalf("ListPools: %v", err)
	}
	if len(pools) != 2 || pools[0] != "a" || pools[1] != "b" {
		t.Fatalf("ListPools = %v, want [a b]", pools)
	}

	// A fresh Store over the same root must reconstruct its index from disk.
	s2, err := New(sb.Root, metaindex.New(), nil, nil)
	if err != nil {
		t.Fatalf("New (reload): %v", err)
	}
	pools2, err := s2.ListPools()
	if err != nil {
		t.Fatalf("ListPools (reload): %v", err)
	}
	if len(pools2) != 2 || pools2[0] != "a" || pools2[1] != "b" {
		t.Fatalf("ListPools (reload) = %v, want [a b]", pools2)
	}
}

func TestValidatePoolDeletionOnDisk(t *testing.T) {
	s, _ := newTestStore(t)

	data := make([]byte, block.SizeMessage)
	data[0] = 3
	blk, err := block.New(block.SizeMessage, block.KindRawData, block.DataRaw, data, s.now())
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	hex, err := s.PutInPool("target", blk.Data())
	if err != nil {
		t.Fatalf("PutInPool: %v", err)
	}

	creator := make([]byte, cbl.CreatorIDSize)
	payload, err := cbl.CreateCBL(cbl.TypeCBL, []block.Block{blk}, creator, uint64(blk.Len()), checksum.Compute(blk.Data()), 1, nil)
	if err != nil {
		t.Fatalf("CreateCBL: %v", err)
	}
	if _, err := s.PutInPool("referencer", payload); err != nil {
		t.Fatalf("PutInPool (referencer): %v", err)
	}

	report, err := s.ValidatePoolDeletion("target")
	if err != nil {
		t.Fatalf("ValidatePoolDeletion: %v", err)
	}
	if report.Safe {
		t.Fatalf("report = %+v, want unsafe", report)
	}
	if len(report.ReferencedBlocks) != 1 || report.ReferencedBlocks[0] != hex {
		t.Fatalf("ReferencedBlocks = %v, want [%s]", report.ReferencedBlocks, hex)
	}

	var pde *errs.PoolDeletionError
	if err := s.DeletePool("target"); !errors.As(err, &pde) {
		t.Fatalf("DeletePool err = %v, want *PoolDeletionError", err)
	}
	if err := s.ForceDeletePool("target"); err != nil {
		t.Fatalf("ForceDeletePool: %v", err)
	}
	if _, err := s.GetPoolStats("target"); !errors.Is(err, errs.ErrPoolNotFound) {
		t.Fatalf("target pool should be gone, err = %v", err)
	}
}

func TestBootstrapPoolOnDisk(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.BootstrapPool("whiteners", block.SizeTiny, 3); err != nil {
		t.Fatalf("BootstrapPool: %v", err)
	}
	stats, err := s.GetPoolStats("whiteners")
	if err != nil {
		t.Fatalf("GetPoolStats: %v", err)
	}
	if stats.BlockCount != 3 {
		t.Fatalf("BlockCount = %d, want 3", stats.BlockCount)
	}
}

func TestSetDataRejectsSizeMismatch(t *testing.T) {
	s, _ := newTestStore(t)
	data := make([]byte, block.SizeMessage)
	blk, err := block.New(block.SizeMessage, block.KindRawData, block.DataRaw, data, s.now())
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	if err := s.SetData("a", block.SizeTiny, blk); !errors.Is(err, errs.ErrBlockSizeMismatch) {
		t.Fatalf("SetData err = %v, want ErrBlockSizeMismatch", err)
	}
}

func TestSetDataRejectsPathAlreadyExists(t *testing.T) {
	s, _ := newTestStore(t)
	data := make([]byte, block.SizeMessage)
	blk, err := block.New(block.SizeMessage, block.KindRawData, block.DataRaw, data, s.now())
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	if err := s.SetData("a", block.SizeMessage, blk); err != nil {
		t.Fatalf("SetData (first): %v", err)
	}
	if err := s.SetData("a", block.SizeMessage, blk); !errors.Is(err, errs.ErrBlockPathAlreadyExists) {
		t.Fatalf("SetData (second) err = %v, want ErrBlockPathAlreadyExists", err)
	}
}

func TestGetDataRoundTripsAndDetectsSizeMismatch(t *testing.T) {
	s, _ := newTestStore(t)
	data := make([]byte, block.SizeMessage)
	data[0] = 7
	blk, err := block.New(block.SizeMessage, block.KindRawData, block.DataRaw, data, s.now())
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	if err := s.SetData("a", block.SizeMessage, blk); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	hex := blk.Checksum().Hex()

	got, err := s.GetData("a", block.SizeMessage, hex)
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if !bytes.Equal(got.Data(), data) {
		t.Fatalf("GetData.Data() = %x, want %x", got.Data(), data)
	}

	if _, err := s.GetData("a", block.SizeTiny, hex); !errors.Is(err, errs.ErrBlockFileSizeMismatch) {
		t.Fatalf("GetData (wrong size) err = %v, want ErrBlockFileSizeMismatch", err)
	}
	if _, err := s.GetData("a", block.SizeMessage, "deadbeef"); !errors.Is(err, errs.ErrKeyNotFound) {
		t.Fatalf("GetData (missing) err = %v, want ErrKeyNotFound", err)
	}
}

func TestDeleteDataReportsKeyNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.DeleteData("a", block.SizeMessage, "deadbeef"); !errors.Is(err, errs.ErrKeyNotFound) {
		t.Fatalf("DeleteData err = %v, want ErrKeyNotFound", err)
	}
}

func TestXorRejectsEmptyHandles(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Xor(nil, block.SizeMessage, s.now()); !errors.Is(err, errs.ErrNoBlocksProvided) {
		t.Fatalf("Xor err = %v, want ErrNoBlocksProvided", err)
	}
}

func TestXorCombinesHandles(t *testing.T) {
	s, _ := newTestStore(t)
	prime := make([]byte, block.SizeMessage)
	prime[0] = 0xFF
	whitener := make([]byte, block.SizeMessage)
	whitener[0] = 0x0F

	primeHex, err := s.PutInPool("primes", prime)
	if err != nil {
		t.Fatalf("PutInPool (prime): %v", err)
	}
	whitenerHex, err := s.PutInPool("soup", whitener)
	if err != nil {
		t.Fatalf("PutInPool (whitener): %v", err)
	}

	handles := []*handle.BlockHandle{
		handle.NewBlockHandle("soup", whitenerHex, s),
		handle.NewBlockHandle("primes", primeHex, s),
	}
	out, err := s.Xor(handles, block.SizeMessage, s.now())
	if err != nil {
		t.Fatalf("Xor: %v", err)
	}
	want := make([]byte, block.SizeMessage)
	want[0] = prime[0] ^ whitener[0]
	if !bytes.Equal(out.Data(), want) {
		t.Fatalf("Xor.Data()[0] = %x, want %x", out.Data()[0], want[0])
	}
}

func TestInvalidPoolIdRejectedAtEntryPoints(t *testing.T) {
	s, _ := newTestStore(t)
	const bad = "not a valid pool id!"

	if _, err := s.HasInPool(bad, "x"); !errors.Is(err, errs.ErrInvalidPoolId) {
		t.Fatalf("HasInPool err = %v, want ErrInvalidPoolId", err)
	}
	if _, err := s.GetFromPool(bad, "x"); !errors.Is(err, errs.ErrInvalidPoolId) {
		t.Fatalf("GetFromPool err = %v, want ErrInvalidPoolId", err)
	}
	if _, err := s.PutInPool(bad, []byte("x")); !errors.Is(err, errs.ErrInvalidPoolId) {
		t.Fatalf("PutInPool err = %v, want ErrInvalidPoolId", err)
	}
	if err := s.DeleteFromPool(bad, "x"); !errors.Is(err, errs.ErrInvalidPoolId) {
		t.Fatalf("DeleteFromPool err = %v, want ErrInvalidPoolId", err)
	}
	if _, err := s.GetPoolStats(bad); !errors.Is(err, errs.ErrInvalidPoolId) {
		t.Fatalf("GetPoolStats err = %v, want ErrInvalidPoolId", err)
	}
}
