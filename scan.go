package ffs

import (
	"errors"
	"fmt"
)

// errEndOfArea is the internal sentinel scanArea uses to stop cleanly at
// the area's write cursor. It never escapes scanArea.
var errEndOfArea = errors.New("ffs: end of area")

type recordKind int

const (
	recInode recordKind = iota
	recBlock
)

// scannedRecord is one decoded record yielded by scanArea, tagged with
// its physical location and on-disk size so callers (restore, GC) can
// both interpret it and relocate/re-reference it.
type scannedRecord struct {
	kind   recordKind
	areaID uint16
	offset uint32
	size   uint32

	inode InodeRecord
	block BlockRecord
}

// scanArea walks every record between an area's header and limit,
// decoding each in turn and invoking visit, and returns the offset one
// past the last successfully decoded record — the area's true write
// cursor. It stops, without error, at the first unrecognized magic (§7:
// "bad magic on restore stops scanning that area... but does not abort
// the mount") or when visit returns errEndOfArea. Any other error
// returned by visit aborts the scan and is propagated to the caller.
func (fsys *Filesystem) scanArea(a *Area, limit uint32, visit func(scannedRecord) error) (uint32, error) {
	offset := uint32(areaHeaderSize)
	for offset < limit {
		if limit-offset < 4 {
			return offset, nil
		}
		magicBuf := make([]byte, 4)
		if err := fsys.fd.readAt(a.ID, offset, magicBuf); err != nil {
			return offset, fmt.Errorf("scan area %d at offset %d: %w", a.ID, offset, err)
		}
		magic := byteOrder.Uint32(magicBuf)

		switch magic {
		case inodeMagic:
			if limit-offset < inodeHeaderSize {
				return offset, nil
			}
			rec, err := fsys.readInodeDisk(a.ID, offset)
			if err != nil {
				fsys.log.WithError(err).WithField("area", a.ID).WithField("offset", offset).Warn("bad inode record, stopping area scan")
				return offset, nil
			}
			size := uint32(rec.diskSize())
			if offset+size > limit {
				return offset, nil
			}
			if err := visit(scannedRecord{kind: recInode, areaID: a.ID, offset: offset, size: size, inode: rec}); err != nil {
				if errors.Is(err, errEndOfArea) {
					return offset, nil
				}
				return offset, err
			}
			offset += size
		case blockMagic:
			if limit-offset < BlockDiskSize {
				return offset, nil
			}
			rec, err := fsys.readBlockDisk(a.ID, offset)
			if err != nil {
				fsys.log.WithError(err).WithField("area", a.ID).WithField("offset", offset).Warn("bad block record, stopping area scan")
				return offset, nil
			}
			if err := visit(scannedRecord{kind: recBlock, areaID: a.ID, offset: offset, size: BlockDiskSize, block: rec}); err != nil {
				if errors.Is(err, errEndOfArea) {
					return offset, nil
				}
				return offset, err
			}
			offset += BlockDiskSize
		default:
			// Undecodable region: a half-written record from a crash
			// between reserve and write, or genuine end of log.
			return offset, nil
		}
	}
	return offset, nil
}
