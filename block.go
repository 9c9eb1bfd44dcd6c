package ffs

import "fmt"

// Block is the in-RAM representation of one file data extent (§3 "Entity:
// Block"). Payload bytes are not cached in RAM; they are re-read from
// flash on demand (§4.3), so Block only carries enough to locate and
// order the on-disk record.
type Block struct {
	ID      uint32
	Seq     uint32
	Rank    uint32
	InodeID uint32
	Flags   BlockFlags
	DataLen uint16

	AreaID uint16
	Offset uint32

	next  *Block // next block of the owning inode, ordered by Rank ascending
	owner *Inode
}

func (b *Block) objID() uint32 { return b.ID }

func (b *Block) isDeleted() bool { return b.Flags.Has(BlockDeleted) }

// allocBlock obtains a zeroed Block from the fixed pool (§4.4 alloc).
func (fsys *Filesystem) allocBlock() (*Block, error) {
	b, err := fsys.blockPool.alloc()
	if err != nil {
		return nil, err
	}
	*b = Block{}
	return b, nil
}

// freeBlock returns a Block to the fixed pool (§4.4 free).
func (fsys *Filesystem) freeBlock(b *Block) {
	fsys.index.remove(b)
	fsys.blockPool.release(b)
}

// readBlockDisk decodes the block record at (areaID, offset) (§4.4 read_disk).
func (fsys *Filesystem) readBlockDisk(areaID uint16, offset uint32) (BlockRecord, error) {
	buf := make([]byte, BlockDiskSize)
	if err := fsys.fd.readAt(areaID, offset, buf); err != nil {
		return BlockRecord{}, err
	}
	return decodeBlockRecord(buf)
}

// writeBlockDisk serializes rec and writes it at the given, already
// reserved, location (§4.4 write_disk). It returns the area/offset used,
// mirroring the teacher's write_disk returning the allocation actually
// consumed.
func (fsys *Filesystem) writeBlockDisk(rec BlockRecord, areaID uint16, offset uint32) (uint16, uint32, error) {
	buf, err := encodeBlockRecord(rec)
	if err != nil {
		return 0, 0, err
	}
	if err := fsys.fd.writeAt(areaID, offset, buf); err != nil {
		return 0, 0, err
	}
	return areaID, offset, nil
}

// blockFromDisk initializes an in-RAM Block from a decoded record and
// indexes it (§4.3 from_disk, generalized to blocks).
func (fsys *Filesystem) blockFromDisk(rec BlockRecord, areaID uint16, offset uint32) (*Block, error) {
	blk, err := fsys.allocBlock()
	if err != nil {
		return nil, err
	}
	blk.ID = rec.ID
	blk.Seq = rec.Seq
	blk.Rank = rec.Rank
	blk.InodeID = rec.InodeID
	blk.Flags = rec.Flags
	blk.DataLen = uint16(len(rec.Data))
	blk.AreaID = areaID
	blk.Offset = offset
	fsys.index.insert(blk)
	return blk, nil
}

// deleteBlockFromDisk writes a header-only deleted record for blk with
// seq+1 (§4.4 delete_from_disk). The record is self-contained: no
// in-place rewrite of the prior record.
func (fsys *Filesystem) deleteBlockFromDisk(blk *Block) error {
	areaID, offset, err := fsys.reserveSpace(BlockDiskSize)
	if err != nil {
		return err
	}
	rec := BlockRecord{
		ID:      blk.ID,
		Seq:     blk.Seq + 1,
		Rank:    blk.Rank,
		InodeID: blk.InodeID,
		Flags:   blk.Flags | BlockDeleted,
	}
	if _, _, err := fsys.writeBlockDisk(rec, areaID, offset); err != nil {
		return err
	}
	blk.Seq = rec.Seq
	blk.Flags = rec.Flags
	blk.DataLen = 0
	blk.AreaID = areaID
	blk.Offset = offset
	return nil
}

// deleteBlockListFromRAM detaches and frees every block of the owning
// inode's block list between first and last inclusive (§4.4).
func (fsys *Filesystem) deleteBlockListFromRAM(ino *Inode, first, last *Block) {
	cur := first
	for cur != nil {
		next := cur.next
		fsys.freeBlock(cur)
		if cur == last {
			break
		}
		cur = next
	}
}

// deleteBlockListFromDisk writes a deleted record for every block between
// first and last inclusive.
func (fsys *Filesystem) deleteBlockListFromDisk(first, last *Block) error {
	cur := first
	for cur != nil {
		if !cur.isDeleted() {
			if err := fsys.deleteBlockFromDisk(cur); err != nil {
				return fmt.Errorf("delete block %d: %w", cur.ID, err)
			}
		}
		if cur == last {
			break
		}
		cur = cur.next
	}
	return nil
}

// readBlockData fetches blk's current payload from flash on demand.
func (fsys *Filesystem) readBlockData(blk *Block) ([]byte, error) {
	rec, err := fsys.readBlockDisk(blk.AreaID, blk.Offset)
	if err != nil {
		return nil, err
	}
	if rec.ID != blk.ID || rec.Seq != blk.Seq {
		return nil, fmt.Errorf("%w: block %d stale index entry (have seq %d, disk seq %d)", ErrCorrupt, blk.ID, blk.Seq, rec.Seq)
	}
	return rec.Data, nil
}
