package ffs

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// pickVictim chooses the non-scratch area with the lowest sequence
// number, tie-breaking on the lowest area id (§4.6 GC protocol step 1).
func (fsys *Filesystem) pickVictim() *Area {
	var victim *Area
	for _, a := range fsys.liveAreas() {
		if victim == nil || a.Seq < victim.Seq || (a.Seq == victim.Seq && a.ID < victim.ID) {
			victim = a
		}
	}
	return victim
}

// gcUntil runs GC cycles until some live area has at least `need` bytes
// free, or until a full cycle through every live area makes no further
// progress possible, in which case it fails with ErrFull.
func (fsys *Filesystem) gcUntil(need uint32) error {
	var errs *multierror.Error
	rounds := len(fsys.liveAreas())
	for i := 0; i < rounds; i++ {
		if fsys.findAreaWithFree(need) != nil {
			return nil
		}
		victim := fsys.pickVictim()
		if victim == nil {
			break
		}
		freedBefore := fsys.scratch().free()
		if err := fsys.gcArea(victim); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("gc area %d: %w", victim.ID, err))
			fsys.log.WithError(err).WithField("area", victim.ID).Error("gc cycle failed")
			break
		}
		fsys.log.WithFields(map[string]interface{}{
			"victim":       victim.ID,
			"freed_before": freedBefore,
		}).Info("gc cycle complete")
	}
	if fsys.findAreaWithFree(need) != nil {
		return nil
	}
	if errs != nil {
		return fmt.Errorf("%w: %v", ErrFull, errs.ErrorOrNil())
	}
	return ErrFull
}

// GC forces one garbage-collection cycle against the current oldest
// live area, for CLI/administrative use. It returns ErrFull only in the
// degenerate case where the image has no live areas other than scratch.
func (fsys *Filesystem) GC() error {
	victim := fsys.pickVictim()
	if victim == nil {
		return ErrFull
	}
	return fsys.gcArea(victim)
}

// gcArea implements the scratch-copy GC protocol of §4.6 steps 2-5: it
// streams victim's still-current, non-deleted records into scratch,
// promotes scratch to live, and erases victim into the new scratch.
func (fsys *Filesystem) gcArea(victim *Area) error {
	type move struct {
		kind      recordKind
		id        uint32
		newOffset uint32
	}

	scratch := fsys.scratch()
	scratch.Cursor = areaHeaderSize
	var moves []move

	_, err := fsys.scanArea(victim, victim.Cursor, func(rec scannedRecord) error {
		switch rec.kind {
		case recInode:
			if rec.inode.Flags.Has(InodeDeleted) {
				return nil
			}
			cur, err := fsys.index.findInode(rec.inode.ID)
			if err != nil || cur.AreaID != rec.areaID || cur.Offset != rec.offset {
				return nil // superseded elsewhere, or no longer indexed
			}
			newOffset := scratch.Cursor
			if err := fsys.fd.copyRecord(scratch.ID, newOffset, rec.areaID, rec.offset, rec.size); err != nil {
				return err
			}
			scratch.Cursor += rec.size
			moves = append(moves, move{kind: recInode, id: rec.inode.ID, newOffset: newOffset})
		case recBlock:
			if rec.block.Flags.Has(BlockDeleted) {
				return nil
			}
			cur, err := fsys.index.findBlock(rec.block.ID)
			if err != nil || cur.AreaID != rec.areaID || cur.Offset != rec.offset {
				return nil
			}
			newOffset := scratch.Cursor
			if err := fsys.fd.copyRecord(scratch.ID, newOffset, rec.areaID, rec.offset, rec.size); err != nil {
				return err
			}
			scratch.Cursor += rec.size
			moves = append(moves, move{kind: recBlock, id: rec.block.ID, newOffset: newOffset})
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Step 3: promote scratch to live. The header write is issued last so
	// a crash mid-copy leaves scratch looking blank on the next mount.
	newSeq := victim.Seq + 1
	if err := fsys.formatFromScratchArea(scratch, newSeq); err != nil {
		return err
	}
	promoted := scratch.ID

	// Step 5: repoint every copied record's in-RAM descriptor.
	for _, m := range moves {
		switch m.kind {
		case recInode:
			if ino, err := fsys.index.findInode(m.id); err == nil {
				ino.AreaID = promoted
				ino.Offset = m.newOffset
			}
		case recBlock:
			if blk, err := fsys.index.findBlock(m.id); err == nil {
				blk.AreaID = promoted
				blk.Offset = m.newOffset
			}
		}
	}

	// Step 4: erase victim and make it the new scratch.
	if err := fsys.formatArea(victim, true); err != nil {
		return err
	}

	return nil
}
