package ffs_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	ffs "github.com/embeddedfs/flashfs"
)

func writeAll(t *testing.T, fsys *ffs.Filesystem, path string, data []byte) {
	t.Helper()
	h, err := fsys.Open(path, ffs.OpenWrite|ffs.OpenCreate|ffs.OpenTruncate)
	if err != nil {
		t.Fatalf("open %s for write: %v", path, err)
	}
	defer h.Close()
	if _, err := h.Write(data); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readAll(t *testing.T, fsys *ffs.Filesystem, path string) []byte {
	t.Helper()
	h, err := fsys.Open(path, ffs.OpenRead)
	if err != nil {
		t.Fatalf("open %s for read: %v", path, err)
	}
	defer h.Close()
	data, err := io.ReadAll(readerFunc(h.Read))
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func TestWriteReadSmallFile(t *testing.T) {
	fsys, _, _ := mustFormat(t)
	want := []byte("hello, flash")
	writeAll(t, fsys, "/f", want)
	got := readAll(t, fsys, "/f")
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteReadSpanningMultipleBlocks(t *testing.T) {
	fsys, _, _ := mustFormat(t)
	want := make([]byte, ffs.BlockDataLen*3+17)
	for i := range want {
		want[i] = byte(i % 251)
	}
	writeAll(t, fsys, "/big", want)
	got := readAll(t, fsys, "/big")
	if !bytes.Equal(got, want) {
		t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(want))
	}
}

func TestOverwriteInPlace(t *testing.T) {
	fsys, _, _ := mustFormat(t)
	writeAll(t, fsys, "/f", []byte("0123456789"))

	h, err := fsys.Open("/f", ffs.OpenWrite)
	if err != nil {
		t.Fatalf("open for write: %v", err)
	}
	if _, err := h.Seek(3, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if _, err := h.Write([]byte("XYZ")); err != nil {
		t.Fatalf("write: %v", err)
	}
	h.Close()

	got := readAll(t, fsys, "/f")
	want := []byte("012XYZ6789")
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAppendFlag(t *testing.T) {
	fsys, _, _ := mustFormat(t)
	writeAll(t, fsys, "/f", []byte("abc"))

	h, err := fsys.Open("/f", ffs.OpenWrite|ffs.OpenAppend)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := h.Write([]byte("def")); err != nil {
		t.Fatalf("write: %v", err)
	}
	h.Close()

	got := readAll(t, fsys, "/f")
	if !bytes.Equal(got, []byte("abcdef")) {
		t.Errorf("got %q, want abcdef", got)
	}
}

func TestTruncateGrowZeroFills(t *testing.T) {
	fsys, _, _ := mustFormat(t)
	writeAll(t, fsys, "/f", []byte("hi"))

	h, err := fsys.Open("/f", ffs.OpenWrite)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.Truncate(6); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	h.Close()

	got := readAll(t, fsys, "/f")
	want := []byte{'h', 'i', 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTruncateShrinkMidBlock(t *testing.T) {
	fsys, _, _ := mustFormat(t)
	writeAll(t, fsys, "/f", []byte("0123456789"))

	h, err := fsys.Open("/f", ffs.OpenWrite)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.Truncate(4); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	h.Close()

	got := readAll(t, fsys, "/f")
	if !bytes.Equal(got, []byte("0123")) {
		t.Errorf("got %q, want 0123", got)
	}
}

func TestTruncateShrinkAcrossBlockBoundary(t *testing.T) {
	fsys, _, _ := mustFormat(t)
	data := make([]byte, ffs.BlockDataLen*2+50)
	for i := range data {
		data[i] = byte(i % 200)
	}
	writeAll(t, fsys, "/f", data)

	h, err := fsys.Open("/f", ffs.OpenWrite)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	newLen := uint64(ffs.BlockDataLen + 5)
	if err := h.Truncate(newLen); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	h.Close()

	got := readAll(t, fsys, "/f")
	if uint64(len(got)) != newLen {
		t.Fatalf("got %d bytes, want %d", len(got), newLen)
	}
	if !bytes.Equal(got, data[:newLen]) {
		t.Error("truncated content mismatch")
	}
}

func TestOpenDirectoryFails(t *testing.T) {
	fsys, _, _ := mustFormat(t)
	if _, err := fsys.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if _, err := fsys.Open("/d", ffs.OpenRead); !errors.Is(err, ffs.ErrInvalid) {
		t.Errorf("expected ErrInvalid opening a directory, got %v", err)
	}
}

func TestReadWithoutReadFlagFails(t *testing.T) {
	fsys, _, _ := mustFormat(t)
	writeAll(t, fsys, "/f", []byte("x"))
	h, err := fsys.Open("/f", ffs.OpenWrite)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()
	buf := make([]byte, 1)
	if _, err := h.Read(buf); !errors.Is(err, ffs.ErrAccess) {
		t.Errorf("expected ErrAccess, got %v", err)
	}
}

func TestDeferredTeardownOnUnlinkWhileOpen(t *testing.T) {
	fsys, _, _ := mustFormat(t)
	writeAll(t, fsys, "/f", []byte("data"))

	h, err := fsys.Open("/f", ffs.OpenRead)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := fsys.Unlink("/f"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	// The handle remains valid until closed, even though the name is gone.
	buf := make([]byte, 4)
	if _, err := h.Read(buf); err != nil {
		t.Fatalf("read after unlink: %v", err)
	}
	if !bytes.Equal(buf, []byte("data")) {
		t.Errorf("got %q, want data", buf)
	}
	h.Close()

	if _, _, err := fsys.Find("/f"); !errors.Is(err, ffs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
