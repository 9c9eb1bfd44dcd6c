//go:build linux

package ffs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// RawFileDriver backs a Driver with a single regular file (or block
// device) on disk, one fixed byte range per area, opened O_SYNC so every
// WriteAt/Erase call is durable before it returns, the property the
// spec's crash-safety arguments (§5) assume of the underlying medium.
type RawFileDriver struct {
	f     *os.File
	descs map[uint16]AreaDesc
}

// OpenRawFileDriver opens path (creating it if missing and sized to fit
// every descriptor) as the backing store for descs.
func OpenRawFileDriver(path string, descs []AreaDesc) (*RawFileDriver, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_SYNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	f := os.NewFile(uintptr(fd), path)

	var end uint64
	table := make(map[uint16]AreaDesc, len(descs))
	for _, d := range descs {
		table[d.ID] = d
		if e := uint64(d.Offset) + uint64(d.Length); e > end {
			end = e
		}
	}
	if info, err := f.Stat(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	} else if uint64(info.Size()) < end {
		if err := f.Truncate(int64(end)); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: grow %s to %d bytes: %v", ErrIO, path, end, err)
		}
	}
	return &RawFileDriver{f: f, descs: table}, nil
}

// Close releases the underlying file descriptor.
func (d *RawFileDriver) Close() error {
	return d.f.Close()
}

func (d *RawFileDriver) area(areaID uint16) (AreaDesc, error) {
	desc, ok := d.descs[areaID]
	if !ok {
		return AreaDesc{}, fmt.Errorf("%w: rawfile: unknown area %d", ErrInvalid, areaID)
	}
	return desc, nil
}

func (d *RawFileDriver) ReadAt(areaID uint16, offset uint32, buf []byte) error {
	desc, err := d.area(areaID)
	if err != nil {
		return err
	}
	if uint64(offset)+uint64(len(buf)) > uint64(desc.Length) {
		return fmt.Errorf("%w: rawfile: read past end of area %d", ErrInvalid, areaID)
	}
	n, err := d.f.ReadAt(buf, int64(desc.Offset)+int64(offset))
	if err != nil || n != len(buf) {
		return fmt.Errorf("%w: rawfile: short read at area %d offset %d: %v", ErrIO, areaID, offset, err)
	}
	return nil
}

func (d *RawFileDriver) WriteAt(areaID uint16, offset uint32, buf []byte) error {
	desc, err := d.area(areaID)
	if err != nil {
		return err
	}
	if uint64(offset)+uint64(len(buf)) > uint64(desc.Length) {
		return fmt.Errorf("%w: rawfile: write past end of area %d", ErrInvalid, areaID)
	}
	n, err := d.f.WriteAt(buf, int64(desc.Offset)+int64(offset))
	if err != nil || n != len(buf) {
		return fmt.Errorf("%w: rawfile: short write at area %d offset %d: %v", ErrIO, areaID, offset, err)
	}
	return nil
}

// Erase overwrites the whole area with 0xff, the erased state of NOR
// flash, using unix.Fallocate with FALLOC_FL_PUNCH_HOLE where supported
// would lose that guarantee, so it writes explicitly instead.
func (d *RawFileDriver) Erase(areaID uint16) error {
	desc, err := d.area(areaID)
	if err != nil {
		return err
	}
	const chunk = 4096
	blank := make([]byte, chunk)
	for i := range blank {
		blank[i] = 0xff
	}
	remaining := desc.Length
	off := int64(desc.Offset)
	for remaining > 0 {
		n := uint32(chunk)
		if n > remaining {
			n = remaining
		}
		if _, err := d.f.WriteAt(blank[:n], off); err != nil {
			return fmt.Errorf("%w: rawfile: erase area %d: %v", ErrIO, areaID, err)
		}
		off += int64(n)
		remaining -= n
	}
	return unix.Fsync(int(d.f.Fd()))
}
