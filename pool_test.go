package ffs_test

import (
	"errors"
	"testing"

	ffs "github.com/embeddedfs/flashfs"
)

// TestInodePoolExhaustion drives the inode pool to exhaustion through the
// public Mkdir API and checks ErrNoMem surfaces rather than an unbounded
// allocation (§5's fixed-size pool guarantee).
func TestInodePoolExhaustion(t *testing.T) {
	descs := testLayout()
	drv := ffs.NewMemDriver(descs)
	fsys, err := ffs.FormatFull(drv, descs, quietLogger(), ffs.WithPoolSizes(4, 64, 4))
	if err != nil {
		t.Fatalf("FormatFull: %v", err)
	}

	// Root already consumes one inode slot; three more directories should
	// fit within a four-slot pool (one of which is root itself).
	ok := 0
	var lastErr error
	for i := 0; i < 10; i++ {
		name := string(rune('a' + i))
		if _, err := fsys.Mkdir("/" + name); err != nil {
			lastErr = err
			break
		}
		ok++
	}
	if lastErr == nil {
		t.Fatal("expected pool exhaustion before 10 directories with a 4-slot pool")
	}
	if !errors.Is(lastErr, ffs.ErrNoMem) {
		t.Errorf("expected ErrNoMem, got %v", lastErr)
	}
	if ok == 0 {
		t.Error("expected at least one successful Mkdir before exhaustion")
	}
}

// TestHandlePoolExhaustion exercises the handle pool symmetrically.
func TestHandlePoolExhaustion(t *testing.T) {
	descs := testLayout()
	drv := ffs.NewMemDriver(descs)
	fsys, err := ffs.FormatFull(drv, descs, quietLogger(), ffs.WithPoolSizes(64, 64, 2))
	if err != nil {
		t.Fatalf("FormatFull: %v", err)
	}
	creator, err := fsys.Open("/f", ffs.OpenWrite|ffs.OpenCreate)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer creator.Close()

	var handles []*ffs.FileHandle
	var lastErr error
	for i := 0; i < 5; i++ {
		h, err := fsys.Open("/f", ffs.OpenRead)
		if err != nil {
			lastErr = err
			break
		}
		handles = append(handles, h)
	}
	if lastErr == nil {
		t.Fatal("expected handle pool exhaustion, got none")
	}
	if !errors.Is(lastErr, ffs.ErrNoMem) {
		t.Errorf("expected ErrNoMem, got %v", lastErr)
	}
	for _, h := range handles {
		h.Close()
	}
}

func TestWithPoolSizesRejectsNonPositive(t *testing.T) {
	descs := testLayout()
	drv := ffs.NewMemDriver(descs)
	_, err := ffs.FormatFull(drv, descs, quietLogger(), ffs.WithPoolSizes(0, 1, 1))
	if !errors.Is(err, ffs.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
