package ffs_test

import (
	"testing"

	ffs "github.com/embeddedfs/flashfs"
)

func TestInodeFlagsHasAndString(t *testing.T) {
	f := ffs.InodeDirectory | ffs.InodeDeleted
	if !f.Has(ffs.InodeDirectory) {
		t.Error("expected InodeDirectory set")
	}
	if f.Has(ffs.InodeDummy) {
		t.Error("did not expect InodeDummy set")
	}
	if got := f.String(); got != "DELETED|DIRECTORY" {
		t.Errorf("String() = %q, want DELETED|DIRECTORY", got)
	}
}

func TestBlockFlagsHasAndString(t *testing.T) {
	var f ffs.BlockFlags
	if f.Has(ffs.BlockDeleted) {
		t.Error("zero value should not have BlockDeleted set")
	}
	f |= ffs.BlockDeleted
	if !f.Has(ffs.BlockDeleted) {
		t.Error("expected BlockDeleted set")
	}
	if got := f.String(); got != "DELETED" {
		t.Errorf("String() = %q, want DELETED", got)
	}
}

func TestOpenFlagsHas(t *testing.T) {
	f := ffs.OpenRead | ffs.OpenCreate
	if !f.Has(ffs.OpenRead) || !f.Has(ffs.OpenCreate) {
		t.Error("expected both flags set")
	}
	if f.Has(ffs.OpenWrite) {
		t.Error("did not expect OpenWrite set")
	}
}
