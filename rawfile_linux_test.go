//go:build linux

package ffs_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	ffs "github.com/embeddedfs/flashfs"
)

// newScratchImagePath returns a unique path under t.TempDir so parallel
// tests never collide on the same backing file.
func newScratchImagePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), uuid.NewString()+".img")
}

func TestRawFileDriverFormatWriteRestore(t *testing.T) {
	path := newScratchImagePath(t)
	descs := testLayout()

	drv, err := ffs.OpenRawFileDriver(path, descs)
	if err != nil {
		t.Fatalf("OpenRawFileDriver: %v", err)
	}
	fsys, err := ffs.FormatFull(drv, descs, quietLogger())
	if err != nil {
		drv.Close()
		t.Fatalf("FormatFull: %v", err)
	}
	writeAll(t, fsys, "/f", []byte("on disk"))
	if err := drv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	drv2, err := ffs.OpenRawFileDriver(path, descs)
	if err != nil {
		t.Fatalf("reopen OpenRawFileDriver: %v", err)
	}
	defer drv2.Close()
	restored, err := ffs.RestoreFull(drv2, descs, quietLogger())
	if err != nil {
		t.Fatalf("RestoreFull: %v", err)
	}
	got := readAll(t, restored, "/f")
	if !bytes.Equal(got, []byte("on disk")) {
		t.Errorf("got %q, want %q", got, "on disk")
	}
}

func TestRawFileDriverGrowsBackingFile(t *testing.T) {
	path := newScratchImagePath(t)
	descs := testLayout()
	drv, err := ffs.OpenRawFileDriver(path, descs)
	if err != nil {
		t.Fatalf("OpenRawFileDriver: %v", err)
	}
	defer drv.Close()

	var end uint32
	for _, d := range descs {
		if e := d.Offset + d.Length; e > end {
			end = e
		}
	}
	buf := make([]byte, 1)
	last := descs[len(descs)-1]
	if err := drv.ReadAt(last.ID, last.Length-1, buf); err != nil {
		t.Errorf("expected backing file to be grown to fit every area, read failed: %v", err)
	}
}
