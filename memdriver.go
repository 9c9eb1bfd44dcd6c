package ffs

import "fmt"

// MemDriver is an in-RAM Driver (§2), used by tests and by callers that
// want a throwaway image without a backing file. Erase fills an area with
// 0xff, matching the erased state of real NOR flash, so a scan that runs
// off the end of live data sees a clean "no magic here" byte rather than
// a zero that could be mistaken for a half-written record.
type MemDriver struct {
	areas map[uint16][]byte
}

// NewMemDriver allocates an in-RAM driver with one buffer of each
// descriptor's full length, with every area pre-erased.
func NewMemDriver(descs []AreaDesc) *MemDriver {
	d := &MemDriver{areas: make(map[uint16][]byte, len(descs))}
	for _, desc := range descs {
		buf := make([]byte, desc.Length)
		for i := range buf {
			buf[i] = 0xff
		}
		d.areas[desc.ID] = buf
	}
	return d
}

func (d *MemDriver) area(areaID uint16) ([]byte, error) {
	buf, ok := d.areas[areaID]
	if !ok {
		return nil, fmt.Errorf("%w: memdriver: unknown area %d", ErrInvalid, areaID)
	}
	return buf, nil
}

func (d *MemDriver) ReadAt(areaID uint16, offset uint32, buf []byte) error {
	area, err := d.area(areaID)
	if err != nil {
		return err
	}
	if uint64(offset)+uint64(len(buf)) > uint64(len(area)) {
		return fmt.Errorf("%w: memdriver: read past end of area %d", ErrInvalid, areaID)
	}
	copy(buf, area[offset:])
	return nil
}

func (d *MemDriver) WriteAt(areaID uint16, offset uint32, buf []byte) error {
	area, err := d.area(areaID)
	if err != nil {
		return err
	}
	if uint64(offset)+uint64(len(buf)) > uint64(len(area)) {
		return fmt.Errorf("%w: memdriver: write past end of area %d", ErrInvalid, areaID)
	}
	copy(area[offset:], buf)
	return nil
}

func (d *MemDriver) Erase(areaID uint16) error {
	area, err := d.area(areaID)
	if err != nil {
		return err
	}
	for i := range area {
		area[i] = 0xff
	}
	return nil
}
