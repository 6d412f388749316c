package metaindex

import (
	"testing"
	"time"

	"offs-core/checksum"
)

func TestTouchCreatesThenUpdates(t *testing.T) {
	idx := New()
	id := checksum.Compute([]byte("data"))
	t0 := time.Now().UTC()

	idx.Touch(id, "pool-a", 128, t0)
	rec, ok := idx.Get(id)
	if !ok {
		t.Fatalf("expected record to exist after first Touch")
	}
	if rec.PoolId != "pool-a" || rec.SizeBytes != 128 || rec.AccessCount != 1 {
		t.Fatalf("unexpected record after create: %+v", rec)
	}
	if !rec.CreatedAt.Equal(t0) || !rec.LastAccessedAt.Equal(t0) {
		t.Fatalf("timestamps not seeded from first Touch: %+v", rec)
	}

	t1 := t0.Add(time.Minute)
	idx.Touch(id, "pool-b", 9999, t1)
	rec2, ok := idx.Get(id)
	if !ok {
		t.Fatalf("expected record to still exist")
	}
	if rec2.PoolId != "pool-b" {
		t.Fatalf("PoolId = %s, want pool-b (newest pool wins)", rec2.PoolId)
	}
	if rec2.AccessCount != 2 {
		t.Fatalf("AccessCount = %d, want 2", rec2.AccessCount)
	}
	if !rec2.LastAccessedAt.Equal(t1) {
		t.Fatalf("LastAccessedAt not bumped")
	}
	if !rec2.CreatedAt.Equal(t0) {
		t.Fatalf("CreatedAt must not change on update: %+v", rec2)
	}
	if rec2.SizeBytes != 128 {
		t.Fatalf("SizeBytes should not be overwritten by a touch update, got %d", rec2.SizeBytes)
	}
}

func TestGetReturnsDefensiveCopy(t *testing.T) {
	idx := New()
	id := checksum.Compute([]byte("x"))
	idx.Touch(id, "p", 1, time.Now().UTC())

	rec, _ := idx.Get(id)
	rec.ReplicaNodeIds = append(rec.ReplicaNodeIds, "node-1")

	rec2, _ := idx.Get(id)
	if len(rec2.ReplicaNodeIds) != 0 {
		t.Fatalf("mutating a returned Record must not affect the index, got %+v", rec2)
	}
}

func TestDelete(t *testing.T) {
	idx := New()
	id := checksum.Compute([]byte("gone"))
	idx.Touch(id, "p", 1, time.Now().UTC())
	idx.Delete(id)
	if _, ok := idx.Get(id); ok {
		t.Fatalf("expected record to be gone after Delete")
	}
	// Deleting an absent record is a no-op.
	idx.Delete(id)
}

func TestGetMissing(t *testing.T) {
	idx := New()
	if _, ok := idx.Get(checksum.Compute([]byte("never stored"))); ok {
		t.Fatalf("expected ok=false for unknown checksum")
	}
}
