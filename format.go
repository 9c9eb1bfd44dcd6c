package ffs

import "fmt"

// formatArea erases a single area and writes its header (§4.8
// format_area). If isScratch, it becomes the filesystem's scratch area.
func (fsys *Filesystem) formatArea(a *Area, isScratch bool) error {
	if err := fsys.fd.erase(a.ID); err != nil {
		return err
	}
	hdr := encodeAreaHeader(AreaHeader{Length: a.Length, Seq: 0, IsScratch: isScratch})
	if err := fsys.fd.writeAt(a.ID, 0, hdr); err != nil {
		return err
	}
	a.Cursor = areaHeaderSize
	a.Seq = 0
	a.IsScratch = isScratch
	if isScratch {
		fsys.scratchID = a.ID
	}
	return nil
}

// formatFromScratchArea promotes the current scratch area to live with
// the given sequence number (§4.8 format_from_scratch_area), used by GC
// once a copy pass has finished streaming records into it.
func (fsys *Filesystem) formatFromScratchArea(scratch *Area, seq uint8) error {
	hdr := encodeAreaHeader(AreaHeader{Length: scratch.Length, Seq: seq, IsScratch: false})
	if err := fsys.fd.writeAt(scratch.ID, 0, hdr); err != nil {
		return err
	}
	scratch.Seq = seq
	scratch.IsScratch = false
	return nil
}

// FormatFull erases every area, designates the last entry of descs as
// scratch, writes all headers, and creates the root directory inode in
// the first live area (§4.8 format_full).
func FormatFull(drv Driver, descs []AreaDesc, opts ...Option) (*Filesystem, error) {
	if len(descs) < 2 {
		return nil, fmt.Errorf("%w: at least 2 areas required (1 live + 1 scratch)", ErrInvalid)
	}
	fsys, err := newFilesystem(drv, descs, opts...)
	if err != nil {
		return nil, err
	}

	scratchAreaID := descs[len(descs)-1].ID
	for _, id := range fsys.areaOrder {
		if err := fsys.formatArea(fsys.areas[id], id == scratchAreaID); err != nil {
			return nil, fmt.Errorf("format area %d: %w", id, err)
		}
	}

	root, err := fsys.allocInode()
	if err != nil {
		return nil, err
	}
	rec := InodeRecord{ID: RootID, Seq: 0, ParentID: NoneID, Flags: InodeDirectory, Name: ""}
	areaID, offset, err := fsys.reserveSpace(rec.diskSize())
	if err != nil {
		return nil, err
	}
	if err := fsys.writeInodeDisk(rec, areaID, offset); err != nil {
		return nil, err
	}
	root.ID = RootID
	root.ParentID = NoneID
	root.Flags = InodeDirectory
	root.Name = ""
	root.AreaID = areaID
	root.Offset = offset
	root.refcnt = 1
	fsys.index.insert(root)
	fsys.root = root
	fsys.nextID = RootID + 1

	fsys.log.WithField("areas", len(descs)).Info("formatted flash image")
	return fsys, nil
}
