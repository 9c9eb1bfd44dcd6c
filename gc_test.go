package ffs_test

import (
	"bytes"
	"fmt"
	"testing"

	ffs "github.com/embeddedfs/flashfs"
)

// TestGCReclaimsSupersededRecords fills a live area with superseded inode
// records (by repeatedly renaming the same file), runs a forced GC cycle
// against it, and checks that the live name still resolves to a file.
func TestGCReclaimsSupersededRecords(t *testing.T) {
	fsys, _, _ := mustFormat(t)

	h, err := fsys.Open("/f", ffs.OpenWrite|ffs.OpenCreate)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	h.Close()

	// Churn the name many times so many superseded inode records pile up
	// in the live area the file currently lives in.
	cur := "f"
	for i := 0; i < 40; i++ {
		next := fmt.Sprintf("f%d", i)
		if err := fsys.Rename("/"+cur, "/"+next); err != nil {
			t.Fatalf("rename %d: %v", i, err)
		}
		cur = next
	}

	if err := fsys.GC(); err != nil {
		t.Fatalf("GC: %v", err)
	}

	ino, _, err := fsys.Find("/" + cur)
	if err != nil {
		t.Fatalf("file missing after GC: %v", err)
	}
	if ino.IsDir() {
		t.Error("expected a file, got a directory")
	}
}

// TestReserveSpaceTriggersGCAutomatically writes enough small files that
// the live areas fill up, relying on reserveSpace's automatic GC fallback
// rather than an explicit GC call.
func TestReserveSpaceTriggersGCAutomatically(t *testing.T) {
	fsys, _, _ := mustFormat(t)

	for i := 0; i < 60; i++ {
		name := fmt.Sprintf("/f%d", i)
		h, err := fsys.Open(name, ffs.OpenWrite|ffs.OpenCreate)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := h.Write(bytes.Repeat([]byte{'x'}, 64)); err != nil {
			h.Close()
			t.Fatalf("write %s: %v", name, err)
		}
		h.Close()
		if err := fsys.Unlink(name); err != nil {
			t.Fatalf("unlink %s: %v", name, err)
		}
	}

	// A final live file should still fit: reserveSpace must have run GC
	// along the way to reclaim the deleted records' space.
	h, err := fsys.Open("/final", ffs.OpenWrite|ffs.OpenCreate)
	if err != nil {
		t.Fatalf("create /final after churn: %v", err)
	}
	h.Close()
}

func TestGCOnEmptyLiveAreasIsNotFull(t *testing.T) {
	fsys, _, _ := mustFormat(t)
	if err := fsys.GC(); err != nil {
		t.Errorf("GC on a freshly formatted image should succeed, got %v", err)
	}
}
