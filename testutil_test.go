package ffs_test

import (
	ffs "github.com/embeddedfs/flashfs"
	"github.com/sirupsen/logrus"
)

// testLayout is a small four-area descriptor table used across the test
// suite: three live areas plus one scratch, each big enough to hold a
// handful of inode and block records.
func testLayout() []ffs.AreaDesc {
	const areaLen = 8192
	return []ffs.AreaDesc{
		{ID: 0, Offset: 0 * areaLen, Length: areaLen},
		{ID: 1, Offset: 1 * areaLen, Length: areaLen},
		{ID: 2, Offset: 2 * areaLen, Length: areaLen},
		{ID: 3, Offset: 3 * areaLen, Length: areaLen},
	}
}

func quietLogger() ffs.Option {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return ffs.WithLogger(logrus.NewEntry(l))
}

func mustFormat(t interface{ Fatalf(string, ...any) }) (*ffs.Filesystem, *ffs.MemDriver, []ffs.AreaDesc) {
	descs := testLayout()
	drv := ffs.NewMemDriver(descs)
	fsys, err := ffs.FormatFull(drv, descs, quietLogger())
	if err != nil {
		t.Fatalf("FormatFull: %v", err)
	}
	return fsys, drv, descs
}
