package ffs_test

import (
	"errors"
	"testing"

	ffs "github.com/embeddedfs/flashfs"
)

func TestMemDriverErasedStateIsAllOnes(t *testing.T) {
	descs := []ffs.AreaDesc{{ID: 0, Offset: 0, Length: 16}}
	drv := ffs.NewMemDriver(descs)
	buf := make([]byte, 16)
	if err := drv.ReadAt(0, 0, buf); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i, b := range buf {
		if b != 0xff {
			t.Fatalf("byte %d = %#x, want 0xff", i, b)
		}
	}
}

func TestMemDriverWriteThenRead(t *testing.T) {
	descs := []ffs.AreaDesc{{ID: 0, Offset: 0, Length: 16}}
	drv := ffs.NewMemDriver(descs)
	want := []byte{1, 2, 3, 4}
	if err := drv.WriteAt(0, 4, want); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	got := make([]byte, 4)
	if err := drv.ReadAt(0, 4, got); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMemDriverUnknownAreaFails(t *testing.T) {
	drv := ffs.NewMemDriver([]ffs.AreaDesc{{ID: 0, Offset: 0, Length: 16}})
	if err := drv.ReadAt(9, 0, make([]byte, 1)); !errors.Is(err, ffs.ErrInvalid) {
		t.Errorf("expected ErrInvalid for unknown area, got %v", err)
	}
}

func TestMemDriverOutOfBoundsFails(t *testing.T) {
	drv := ffs.NewMemDriver([]ffs.AreaDesc{{ID: 0, Offset: 0, Length: 16}})
	if err := drv.ReadAt(0, 10, make([]byte, 10)); !errors.Is(err, ffs.ErrInvalid) {
		t.Errorf("expected ErrInvalid reading past area end, got %v", err)
	}
}

func TestMemDriverEraseResetsToAllOnes(t *testing.T) {
	drv := ffs.NewMemDriver([]ffs.AreaDesc{{ID: 0, Offset: 0, Length: 4}})
	if err := drv.WriteAt(0, 0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := drv.Erase(0); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	buf := make([]byte, 4)
	if err := drv.ReadAt(0, 0, buf); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for _, b := range buf {
		if b != 0xff {
			t.Error("expected all-0xff after erase")
		}
	}
}
