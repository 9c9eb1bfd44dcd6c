package ffs

import (
	"errors"
	"fmt"
	"io"
)

// FileHandle is a position-addressed open reference to a file inode (§4.9).
// It is obtained from Filesystem.Open and must be released with Close,
// which is what actually tears down a dummy-deleted inode once every
// handle referencing it is gone.
type FileHandle struct {
	fsys  *Filesystem
	ino   *Inode
	flags OpenFlags
	pos   uint64
}

// Open resolves path and returns a handle for reading and/or writing it,
// honoring OpenCreate, OpenTruncate, and OpenAppend (§4.9 open).
func (fsys *Filesystem) Open(path string, flags OpenFlags) (*FileHandle, error) {
	if !flags.Has(OpenRead) && !flags.Has(OpenWrite) {
		return nil, fmt.Errorf("%w: open requires OpenRead and/or OpenWrite", ErrInvalid)
	}

	ino, parent, err := fsys.resolve(path)
	switch {
	case err == nil:
		if ino.IsDir() {
			return nil, fmt.Errorf("%w: cannot open a directory for I/O", ErrInvalid)
		}
	case errors.Is(err, ErrNotFound):
		if !flags.Has(OpenCreate) {
			return nil, err
		}
		if parent == nil {
			return nil, ErrNotFound
		}
		toks, terr := tokenizePath(path)
		if terr != nil {
			return nil, terr
		}
		ino, err = fsys.createInode(parent, toks[len(toks)-1].name, 0)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if flags.Has(OpenTruncate) && ino.dataLen > 0 {
		if err := fsys.truncateInode(ino, 0); err != nil {
			return nil, err
		}
	}
	return fsys.newHandle(ino, flags)
}

// newHandle wraps an already-resolved inode in a handle, bypassing path
// lookup. Used by Open above and by the FUSE adapter, which already holds
// the target inode from its own node graph.
func (fsys *Filesystem) newHandle(ino *Inode, flags OpenFlags) (*FileHandle, error) {
	h, err := fsys.handlePool.alloc()
	if err != nil {
		return nil, err
	}
	*h = FileHandle{fsys: fsys, ino: ino, flags: flags}
	ino.incRef()
	if flags.Has(OpenAppend) {
		h.pos = ino.dataLen
	}
	return h, nil
}

// Close releases h. Any refcnt-deferred teardown of a deleted inode
// completes once the last open handle is closed (§4.9 close).
func (h *FileHandle) Close() error {
	if h.ino == nil {
		return nil
	}
	h.fsys.decRef(h.ino)
	h.fsys.handlePool.release(h)
	h.ino = nil
	return nil
}

// Seek repositions h per io.Seeker semantics. A target position outside
// [0, file length] is rejected with ErrInvalid and leaves h unchanged.
func (h *FileHandle) Seek(offset int64, whence int) (int64, error) {
	var base uint64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = h.pos
	case io.SeekEnd:
		base = h.ino.dataLen
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", ErrInvalid, whence)
	}
	newPos := int64(base) + offset
	if newPos < 0 || uint64(newPos) > h.ino.dataLen {
		return 0, fmt.Errorf("%w: seek out of range", ErrInvalid)
	}
	h.pos = uint64(newPos)
	return newPos, nil
}

// Read copies up to len(buf) bytes starting at the handle's position,
// re-reading each covered block's payload from flash on demand (§4.9 read).
func (h *FileHandle) Read(buf []byte) (int, error) {
	if !h.flags.Has(OpenRead) {
		return 0, fmt.Errorf("%w: handle not opened for reading", ErrAccess)
	}
	ino := h.ino
	if h.pos >= ino.dataLen {
		return 0, io.EOF
	}
	_, blk, blockOff, err := ino.seek(h.pos)
	if err != nil {
		return 0, err
	}

	n := 0
	for blk != nil && n < len(buf) {
		if blk.isDeleted() {
			blk, blockOff = blk.next, 0
			continue
		}
		data, err := h.fsys.readBlockData(blk)
		if err != nil {
			return n, err
		}
		if int(blockOff) >= len(data) {
			blk, blockOff = blk.next, 0
			continue
		}
		c := copy(buf[n:], data[blockOff:])
		n += c
		h.pos += uint64(c)
		if blockOff+uint32(c) >= uint32(len(data)) {
			blk, blockOff = blk.next, 0
		} else {
			blockOff += uint32(c)
		}
	}
	return n, nil
}

// Write implements write_to_file (§4.9): the caller's buffer is consumed
// in writeStageBufferSize-sized chunks, each of which is in turn split
// into BlockDataLen-sized on-disk block records, overwriting any existing
// blocks in range and appending new ones past the current end of file.
func (h *FileHandle) Write(data []byte) (int, error) {
	if !h.flags.Has(OpenWrite) {
		return 0, fmt.Errorf("%w: handle not opened for writing", ErrAccess)
	}
	written := 0
	for written < len(data) {
		end := written + writeStageBufferSize
		if end > len(data) {
			end = len(data)
		}
		n, err := h.fsys.writeChunkToFile(h.ino, h.pos, data[written:end])
		written += n
		h.pos += uint64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Truncate grows or shrinks the file to newLen, zero-filling on growth and
// dropping/splitting blocks on shrink (§4.9 truncate).
func (h *FileHandle) Truncate(newLen uint64) error {
	return h.fsys.truncateInode(h.ino, newLen)
}

// writeChunkToFile writes chunk at byte offset in ino's data, rewriting
// the tail of any block it overlaps and appending new blocks once it runs
// past the current end of file.
func (fsys *Filesystem) writeChunkToFile(ino *Inode, offset uint64, chunk []byte) (int, error) {
	written := 0
	for written < len(chunk) {
		curOffset := offset + uint64(written)
		if curOffset < ino.dataLen {
			prev, blk, blockOff, err := ino.seek(curOffset)
			_ = prev
			if err != nil {
				return written, err
			}
			old, err := fsys.readBlockData(blk)
			if err != nil {
				return written, err
			}
			room := BlockDataLen - int(blockOff)
			n := len(chunk) - written
			if n > room {
				n = room
			}
			avail := len(old) - int(blockOff)
			if blk.next != nil && n > avail {
				// Only the last block may grow; a partial block in mid-file
				// is overwritten up to its own length.
				n = avail
			}
			newData := append([]byte(nil), old[:blockOff]...)
			newData = append(newData, chunk[written:written+n]...)
			if n < avail {
				newData = append(newData, old[int(blockOff)+n:]...)
			}
			if _, err := fsys.rewriteBlockData(ino, blk, newData); err != nil {
				return written, err
			}
			written += n
		} else {
			n := len(chunk) - written
			if n > BlockDataLen {
				n = BlockDataLen
			}
			if err := fsys.appendNewBlock(ino, chunk[written:written+n]); err != nil {
				return written, err
			}
			written += n
		}
	}
	return written, nil
}

// rewriteBlockData supersedes old with a new record at the same rank
// carrying newData, relinking it into ino's block list in old's place.
func (fsys *Filesystem) rewriteBlockData(ino *Inode, old *Block, newData []byte) (*Block, error) {
	if len(newData) > BlockDataLen {
		return nil, fmt.Errorf("%w: rewritten block data %d exceeds %d", ErrInvalid, len(newData), BlockDataLen)
	}
	areaID, offset, err := fsys.reserveSpace(BlockDiskSize)
	if err != nil {
		return nil, err
	}
	rec := BlockRecord{ID: old.ID, Seq: old.Seq + 1, Rank: old.Rank, InodeID: ino.ID, Flags: old.Flags, Data: newData}
	if _, _, err := fsys.writeBlockDisk(rec, areaID, offset); err != nil {
		return nil, err
	}
	nb, err := fsys.allocBlock()
	if err != nil {
		return nil, err
	}
	nb.ID = old.ID
	nb.Seq = rec.Seq
	nb.Rank = old.Rank
	nb.InodeID = ino.ID
	nb.Flags = old.Flags
	nb.DataLen = uint16(len(newData))
	nb.AreaID = areaID
	nb.Offset = offset

	fsys.index.remove(old)
	fsys.index.insert(nb)
	ino.replaceBlock(old, nb)
	fsys.blockPool.release(old)
	return nb, nil
}

// appendNewBlock allocates a fresh id and rank and appends data as a new
// block at the end of ino's block list.
func (fsys *Filesystem) appendNewBlock(ino *Inode, data []byte) error {
	if len(data) > BlockDataLen {
		return fmt.Errorf("%w: block data %d exceeds %d", ErrInvalid, len(data), BlockDataLen)
	}
	rank := uint32(0)
	if ino.lastBlock != nil {
		rank = ino.lastBlock.Rank + 1
	}
	id := fsys.allocID()
	areaID, offset, err := fsys.reserveSpace(BlockDiskSize)
	if err != nil {
		return err
	}
	rec := BlockRecord{ID: id, Seq: 0, Rank: rank, InodeID: ino.ID, Data: data}
	if _, _, err := fsys.writeBlockDisk(rec, areaID, offset); err != nil {
		return err
	}
	blk, err := fsys.allocBlock()
	if err != nil {
		return err
	}
	blk.ID = id
	blk.Seq = 0
	blk.Rank = rank
	blk.InodeID = ino.ID
	blk.DataLen = uint16(len(data))
	blk.AreaID = areaID
	blk.Offset = offset
	fsys.index.insert(blk)
	ino.appendBlock(blk)
	return nil
}

// truncateInode grows (zero-filling) or shrinks ino to newLen (§4.9
// truncate), splitting the block straddling the new boundary when
// shrinking lands inside it rather than on a block edge.
func (fsys *Filesystem) truncateInode(ino *Inode, newLen uint64) error {
	if newLen == ino.dataLen {
		return nil
	}
	if newLen > ino.dataLen {
		pad := make([]byte, newLen-ino.dataLen)
		if _, err := fsys.writeChunkToFile(ino, ino.dataLen, pad); err != nil {
			return err
		}
		return fsys.supersedeInode(ino, ino.ParentID, ino.Name, ino.Flags)
	}

	prev, blk, blockOff, err := ino.seek(newLen)
	if err != nil {
		return err
	}

	var keep, drop *Block
	if blockOff > 0 {
		old, err := fsys.readBlockData(blk)
		if err != nil {
			return err
		}
		nb, err := fsys.rewriteBlockData(ino, blk, old[:blockOff])
		if err != nil {
			return err
		}
		keep, drop = nb, nb.next
	} else {
		keep, drop = prev, blk
	}

	if drop != nil {
		last := ino.lastBlock
		if err := fsys.deleteBlockListFromDisk(drop, last); err != nil {
			return err
		}
		fsys.deleteBlockListFromRAM(ino, drop, last)
	}
	if keep != nil {
		keep.next = nil
		ino.lastBlock = keep
	} else {
		ino.blocks = nil
		ino.lastBlock = nil
	}
	ino.dataLen = newLen

	// §4.9: truncate supersedes the inode with a new seq, on top of the
	// block-level deletions above.
	return fsys.supersedeInode(ino, ino.ParentID, ino.Name, ino.Flags)
}
