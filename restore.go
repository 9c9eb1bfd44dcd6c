package ffs

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// RestoreFull mounts an existing flash image, rebuilding the in-RAM index,
// children/block lists, and cached data lengths purely from the area logs
// (§4.7 restore). A missing or duplicate scratch area is fatal to
// restoring the existing image: rather than guess which area was meant to
// be scratch, it falls back to a clean FormatFull, the same as a device
// whose flash has never been initialized.
func RestoreFull(drv Driver, descs []AreaDesc, opts ...Option) (*Filesystem, error) {
	fsys, err := newFilesystem(drv, descs, opts...)
	if err != nil {
		return nil, err
	}

	scratchCount := 0
	for _, id := range fsys.areaOrder {
		a := fsys.areas[id]
		hdrBuf := make([]byte, areaHeaderSize)
		if err := fsys.fd.readAt(a.ID, 0, hdrBuf); err != nil {
			fsys.log.WithError(err).WithField("area", a.ID).Warn("cannot read area header, formatting image from scratch")
			return FormatFull(drv, descs, opts...)
		}
		hdr, err := decodeAreaHeader(hdrBuf)
		if err != nil {
			fsys.log.WithField("area", a.ID).Warn("uninitialized or corrupt area header, formatting image from scratch")
			return FormatFull(drv, descs, opts...)
		}
		if hdr.Length != a.Length {
			fsys.log.WithField("area", a.ID).Error("area header length does not match descriptor table")
			return nil, fmt.Errorf("%w: area %d header length %d, table length %d", ErrTableMismatch, a.ID, hdr.Length, a.Length)
		}
		a.Seq = hdr.Seq
		a.IsScratch = hdr.IsScratch
		if hdr.IsScratch {
			scratchCount++
			fsys.scratchID = a.ID
		}
	}
	if scratchCount != 1 {
		fsys.log.WithField("scratch_areas", scratchCount).Warn("expected exactly one scratch area, formatting image from scratch")
		return FormatFull(drv, descs, opts...)
	}

	var errs *multierror.Error
	var records []scannedRecord
	for _, id := range fsys.areaOrder {
		a := fsys.areas[id]
		if a.IsScratch {
			// A prior GC cycle may have died mid-copy, leaving partial
			// records here; none of them were ever promoted, so the area
			// contributes nothing but its header.
			a.Cursor = areaHeaderSize
			continue
		}
		cursor, err := fsys.scanArea(a, a.Length, func(rec scannedRecord) error {
			records = append(records, rec)
			return nil
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("scan area %d: %w", a.ID, err))
			fsys.log.WithError(err).WithField("area", a.ID).Error("area scan aborted")
		}
		a.Cursor = cursor
	}

	// Resolve the winning (highest-seq) record per id across every area:
	// a superseded record is never rewritten in place, so stale copies of
	// an id can still be sitting in an older, not-yet-GC'd area.
	winners := make(map[uint32]scannedRecord, len(records))
	for _, rec := range records {
		id, seq := recordIDSeq(rec)
		if cur, ok := winners[id]; !ok || seq > recordSeq(cur) {
			winners[id] = rec
		}
	}

	ids := make([]uint32, 0, len(winners))
	for id := range winners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	// Materialize inodes before blocks so every block's owner is already
	// indexed when blocks are attached below.
	for _, id := range ids {
		rec := winners[id]
		if rec.kind != recInode || rec.inode.Flags.Has(InodeDeleted) {
			continue
		}
		if _, err := fsys.inodeFromDisk(rec.inode, rec.areaID, rec.offset); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("materialize inode %d: %w", id, err))
		}
	}
	for _, id := range ids {
		rec := winners[id]
		if rec.kind != recBlock || rec.block.Flags.Has(BlockDeleted) {
			continue
		}
		if _, err := fsys.blockFromDisk(rec.block, rec.areaID, rec.offset); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("materialize block %d: %w", id, err))
		}
	}

	root, err := fsys.index.findInode(RootID)
	if err != nil || !root.IsDir() {
		fsys.log.Warn("root directory missing or corrupt after restore, formatting image from scratch")
		return FormatFull(drv, descs, opts...)
	}
	root.ParentID = NoneID
	root.refcnt = 1
	fsys.root = root

	// Snapshot liveness for every inode before anything is unlinked: a
	// child's liveness depends on walking its parent chain through the
	// index, which must stay intact until this pass finishes.
	var orphanInodes []*Inode
	fsys.index.foreach(func(d descriptor) {
		ino, ok := d.(*Inode)
		if !ok || ino.ID == RootID {
			return
		}
		if !fsys.isLive(ino) {
			orphanInodes = append(orphanInodes, ino)
		}
	})
	for _, ino := range orphanInodes {
		fsys.log.WithField("inode", ino.ID).Warn("dropping orphaned inode found during restore")
		fsys.freeInode(ino)
	}

	var orphanBlocks []*Block
	blocksByOwner := make(map[uint32][]*Block)
	fsys.index.foreach(func(d descriptor) {
		blk, ok := d.(*Block)
		if !ok {
			return
		}
		owner, err := fsys.index.findInode(blk.InodeID)
		if err != nil || owner.IsDir() {
			orphanBlocks = append(orphanBlocks, blk)
			return
		}
		blocksByOwner[blk.InodeID] = append(blocksByOwner[blk.InodeID], blk)
	})
	for _, blk := range orphanBlocks {
		fsys.log.WithField("block", blk.ID).Warn("dropping orphaned block found during restore")
		fsys.freeBlock(blk)
	}

	// Reattach every surviving inode to its parent's children list, then
	// every surviving block to its owner's block list in rank order.
	fsys.index.foreach(func(d descriptor) {
		ino, ok := d.(*Inode)
		if !ok || ino.ID == RootID {
			return
		}
		parent, err := fsys.index.findInode(ino.ParentID)
		if err != nil {
			return // unreachable: orphan pass above already dropped these
		}
		if err := addChildSorted(parent, ino); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("attach inode %d under parent %d: %w", ino.ID, parent.ID, err))
		}
	})
	for ownerID, blks := range blocksByOwner {
		owner, err := fsys.index.findInode(ownerID)
		if err != nil {
			continue
		}
		sort.Slice(blks, func(i, j int) bool { return blks[i].Rank < blks[j].Rank })
		for _, b := range blks {
			owner.appendBlock(b)
		}
		owner.dataLen = owner.calcDataLength()
	}

	// next_id must account for every id seen on the log, including deleted
	// and superseded ones: a tombstoned id is still reserved until its area
	// is GC'd, and reusing it early would let a stale tombstone win over a
	// freshly created object on a later restore.
	maxID := uint32(0)
	for id := range winners {
		if id > maxID {
			maxID = id
		}
	}
	fsys.nextID = maxID + 1

	if errs != nil {
		fsys.log.WithError(errs.ErrorOrNil()).Warn("restore completed with non-fatal scan or link errors")
	}
	fsys.log.WithField("objects", fsys.index.count()).Info("restored flash image")
	return fsys, nil
}

func recordIDSeq(rec scannedRecord) (id, seq uint32) {
	if rec.kind == recInode {
		return rec.inode.ID, rec.inode.Seq
	}
	return rec.block.ID, rec.block.Seq
}

func recordSeq(rec scannedRecord) uint32 {
	_, seq := recordIDSeq(rec)
	return seq
}
