package ffs_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	ffs "github.com/embeddedfs/flashfs"
)

func TestAreaHeaderRoundTrip(t *testing.T) {
	h := ffs.AreaHeader{Length: 8192, Reserved: 0, Seq: 7, IsScratch: true}
	buf := ffs.EncodeAreaHeaderForTest(h)
	got, err := ffs.DecodeAreaHeaderForTest(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(h, got); diff != "" {
		t.Errorf("area header round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAreaHeaderBadMagic(t *testing.T) {
	buf := make([]byte, 24)
	if _, err := ffs.DecodeAreaHeaderForTest(buf); err == nil {
		t.Error("expected error decoding all-zero buffer, got none")
	}
}

func TestInodeRecordRoundTrip(t *testing.T) {
	rec := ffs.InodeRecord{ID: 42, Seq: 3, ParentID: 0, Flags: ffs.InodeDirectory, Name: "etc"}
	buf, err := ffs.EncodeInodeRecordForTest(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, n, err := ffs.DecodeInodeRecordForTest(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d bytes, want %d", n, len(buf))
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("inode record round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestInodeRecordNameTooLong(t *testing.T) {
	rec := ffs.InodeRecord{ID: 1, Name: "seventeen-bytes-x"} // 17 bytes
	if _, err := ffs.EncodeInodeRecordForTest(rec); err == nil {
		t.Error("expected error for over-length name, got none")
	}
}

func TestInodeRecordNameExactlySixteenIsValid(t *testing.T) {
	rec := ffs.InodeRecord{ID: 1, Name: "sixteen-byte-nam"} // 16 bytes
	if len(rec.Name) != 16 {
		t.Fatalf("test fixture name is %d bytes, want 16", len(rec.Name))
	}
	if _, err := ffs.EncodeInodeRecordForTest(rec); err != nil {
		t.Errorf("16-byte name should be valid: %v", err)
	}
}

func TestBlockRecordRoundTrip(t *testing.T) {
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i)
	}
	rec := ffs.BlockRecord{ID: 5, Seq: 1, Rank: 2, InodeID: 42, Data: data}
	buf, err := ffs.EncodeBlockRecordForTest(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(buf) != ffs.BlockDiskSize {
		t.Fatalf("encoded block is %d bytes, want %d", len(buf), ffs.BlockDiskSize)
	}
	got, err := ffs.DecodeBlockRecordForTest(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("block record round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBlockRecordDataTooLarge(t *testing.T) {
	rec := ffs.BlockRecord{ID: 1, Data: make([]byte, ffs.BlockDataLen+1)}
	if _, err := ffs.EncodeBlockRecordForTest(rec); err == nil {
		t.Error("expected error for over-length block payload, got none")
	}
}

func TestBlockRecordBadMagic(t *testing.T) {
	buf := make([]byte, ffs.BlockDiskSize)
	if _, err := ffs.DecodeBlockRecordForTest(buf); err == nil {
		t.Error("expected error decoding all-zero buffer, got none")
	}
}
