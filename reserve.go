package ffs

// findAreaWithFree returns the first live (non-scratch) area, in
// ascending id order, whose remaining capacity is at least size, or nil.
func (fsys *Filesystem) findAreaWithFree(size uint32) *Area {
	for _, id := range fsys.areaOrder {
		if id == fsys.scratchID {
			continue
		}
		a := fsys.areas[id]
		if a.free() >= size {
			return a
		}
	}
	return nil
}

// reserveSpace allocates size contiguous bytes in a live area for one
// record (§4.6). It scans for existing free space first, then runs GC
// until enough is freed, failing with ErrFull only if GC makes no further
// progress.
func (fsys *Filesystem) reserveSpace(size int) (areaID uint16, offset uint32, err error) {
	n := uint32(size)
	if a := fsys.findAreaWithFree(n); a != nil {
		return fsys.take(a, n)
	}
	if err := fsys.gcUntil(n); err != nil {
		return 0, 0, err
	}
	if a := fsys.findAreaWithFree(n); a != nil {
		return fsys.take(a, n)
	}
	return 0, 0, ErrFull
}

func (fsys *Filesystem) take(a *Area, n uint32) (uint16, uint32, error) {
	offset := a.Cursor
	a.Cursor += n
	return a.ID, offset, nil
}
