package ffs

import "fmt"

// Driver is the external flash driver capability assumed by §2: a
// byte-addressable, erase-by-area NOR-style device. The filesystem core
// never assumes anything about the underlying medium beyond this
// interface; real implementations (memdriver.go, rawfile_linux.go) and
// test doubles all satisfy it.
type Driver interface {
	ReadAt(areaID uint16, offset uint32, buf []byte) error
	WriteAt(areaID uint16, offset uint32, buf []byte) error
	Erase(areaID uint16) error
}

// AreaDesc describes one entry of the area descriptor table supplied at
// format/restore time (§6): a logical id and its fixed offset/length on
// the underlying medium. The table itself is a property of the mount, not
// of the flash driver, since the same driver can back images with
// different layouts.
type AreaDesc struct {
	ID     uint16
	Offset uint32
	Length uint32
}

// flashDevice wraps a Driver with area-lookup-by-id and bounds checking,
// so the rest of the core addresses areas purely by logical id and never
// has to re-derive bounds.
type flashDevice struct {
	drv   Driver
	table map[uint16]AreaDesc
	order []uint16 // area ids in descriptor-table order
}

func newFlashDevice(drv Driver, descs []AreaDesc) (*flashDevice, error) {
	if len(descs) == 0 {
		return nil, fmt.Errorf("%w: empty area descriptor table", ErrInvalid)
	}
	if len(descs) > MaxAreas {
		return nil, fmt.Errorf("%w: %d areas exceeds MaxAreas=%d", ErrInvalid, len(descs), MaxAreas)
	}
	fd := &flashDevice{
		drv:   drv,
		table: make(map[uint16]AreaDesc, len(descs)),
	}
	for _, d := range descs {
		if _, dup := fd.table[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate area id %d in descriptor table", ErrInvalid, d.ID)
		}
		fd.table[d.ID] = d
		fd.order = append(fd.order, d.ID)
	}
	return fd, nil
}

func (fd *flashDevice) desc(areaID uint16) (AreaDesc, error) {
	d, ok := fd.table[areaID]
	if !ok {
		return AreaDesc{}, fmt.Errorf("%w: unknown area id %d", ErrInvalid, areaID)
	}
	return d, nil
}

func (fd *flashDevice) checkBounds(areaID uint16, offset uint32, n int) error {
	d, err := fd.desc(areaID)
	if err != nil {
		return err
	}
	if uint64(offset)+uint64(n) > uint64(d.Length) {
		return fmt.Errorf("%w: area %d: offset %d len %d exceeds area length %d", ErrInvalid, areaID, offset, n, d.Length)
	}
	return nil
}

func (fd *flashDevice) readAt(areaID uint16, offset uint32, buf []byte) error {
	if err := fd.checkBounds(areaID, offset, len(buf)); err != nil {
		return err
	}
	if err := fd.drv.ReadAt(areaID, offset, buf); err != nil {
		return fmt.Errorf("%w: area %d offset %d: %v", ErrIO, areaID, offset, err)
	}
	return nil
}

func (fd *flashDevice) writeAt(areaID uint16, offset uint32, buf []byte) error {
	if err := fd.checkBounds(areaID, offset, len(buf)); err != nil {
		return err
	}
	if err := fd.drv.WriteAt(areaID, offset, buf); err != nil {
		return fmt.Errorf("%w: area %d offset %d: %v", ErrIO, areaID, offset, err)
	}
	return nil
}

func (fd *flashDevice) erase(areaID uint16) error {
	if _, err := fd.desc(areaID); err != nil {
		return err
	}
	if err := fd.drv.Erase(areaID); err != nil {
		return fmt.Errorf("%w: area %d: %v", ErrIO, areaID, err)
	}
	return nil
}

// copyRecord streams n bytes from (srcArea, srcOff) to (dstArea, dstOff)
// through a bounded staging buffer, used by GC to move records between
// areas without holding a whole area in memory at once.
func (fd *flashDevice) copyRecord(dstArea uint16, dstOff uint32, srcArea uint16, srcOff uint32, n uint32) error {
	const chunk = 4096
	buf := make([]byte, chunk)
	for n > 0 {
		c := uint32(chunk)
		if c > n {
			c = n
		}
		if err := fd.readAt(srcArea, srcOff, buf[:c]); err != nil {
			return err
		}
		if err := fd.writeAt(dstArea, dstOff, buf[:c]); err != nil {
			return err
		}
		srcOff += c
		dstOff += c
		n -= c
	}
	return nil
}
