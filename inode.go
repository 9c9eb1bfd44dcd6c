package ffs

import "fmt"

// Inode is the in-RAM representation of a file or directory's persistent
// identity (§3 "Entity: Inode"). The sibling-list link, children/block
// list heads, refcnt, and cached data length exist only in RAM and are
// rebuilt by restore.
type Inode struct {
	ID       uint32
	Seq      uint32
	ParentID uint32
	Flags    InodeFlags
	Name     string

	AreaID uint16
	Offset uint32

	refcnt int

	parent    *Inode
	nextSib   *Inode // sibling list within parent.children, sorted by Name
	children  *Inode // head of children list (directories only)
	blocks    *Block // head of block list (files only), ordered by Rank
	lastBlock *Block // tail, for O(1) append
	dataLen   uint64 // cached sum of non-deleted block data lengths
}

func (i *Inode) objID() uint32 { return i.ID }

func (i *Inode) IsDir() bool     { return i.Flags.Has(InodeDirectory) }
func (i *Inode) IsDeleted() bool { return i.Flags.Has(InodeDeleted) }
func (i *Inode) IsDummy() bool   { return i.Flags.Has(InodeDummy) }

// DataLen returns the cached file length (§3 "cached data length").
func (i *Inode) DataLen() uint64 { return i.dataLen }

// Children returns the head of this directory's sorted sibling list, or
// nil for a file or an empty directory. Walk it with NextSibling.
func (i *Inode) Children() *Inode { return i.children }

// NextSibling returns the next entry in this inode's parent's children
// list, in ascending filename order, or nil for the last entry.
func (i *Inode) NextSibling() *Inode { return i.nextSib }

func (i *Inode) incRef() { i.refcnt++ }

// compareNames implements the binary filename comparator of §4.3: raw
// byte comparison up to the shared prefix length, then shorter-sorts-first.
func compareNames(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

func validateName(name string) error {
	if len(name) == 0 || len(name) > MaxNameLen {
		return fmt.Errorf("%w: filename %q length must be 1..%d bytes", ErrInvalid, name, MaxNameLen)
	}
	return nil
}

// findChildByName does an O(n) linear scan of parent's sorted sibling
// list, per §4.5's "small n assumed".
func findChildByName(parent *Inode, name string) *Inode {
	for c := parent.children; c != nil; c = c.nextSib {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// addChildSorted inserts child into parent's children list in ascending
// filename order (§4.3 add_child). Duplicate names are rejected.
func addChildSorted(parent *Inode, child *Inode) error {
	if findChildByName(parent, child.Name) != nil {
		return ErrExist
	}
	child.parent = parent
	if parent.children == nil || compareNames(child.Name, parent.children.Name) < 0 {
		child.nextSib = parent.children
		parent.children = child
		return nil
	}
	prev := parent.children
	for prev.nextSib != nil && compareNames(child.Name, prev.nextSib.Name) > 0 {
		prev = prev.nextSib
	}
	child.nextSib = prev.nextSib
	prev.nextSib = child
	return nil
}

// removeChildNode detaches child from parent's children list (§4.3 remove_child).
func removeChildNode(parent *Inode, child *Inode) {
	if parent.children == child {
		parent.children = child.nextSib
		child.nextSib = nil
		child.parent = nil
		return
	}
	prev := parent.children
	for prev != nil && prev.nextSib != child {
		prev = prev.nextSib
	}
	if prev != nil {
		prev.nextSib = child.nextSib
	}
	child.nextSib = nil
	child.parent = nil
}

// appendBlock extends the inode's block list at its tail (used by
// write_to_file when a write appends new ranks).
func (i *Inode) appendBlock(b *Block) {
	b.owner = i
	b.next = nil
	if i.lastBlock == nil {
		i.blocks = b
	} else {
		i.lastBlock.next = b
	}
	i.lastBlock = b
	i.dataLen += uint64(b.DataLen)
}

// replaceBlock swaps old for replacement in the block list in place,
// used when write_to_file overwrites an existing rank (§4.9).
func (i *Inode) replaceBlock(old, replacement *Block) {
	replacement.owner = i
	replacement.next = old.next
	if i.blocks == old {
		i.blocks = replacement
	} else {
		for b := i.blocks; b != nil; b = b.next {
			if b.next == old {
				b.next = replacement
				break
			}
		}
	}
	if i.lastBlock == old {
		i.lastBlock = replacement
	}
	i.dataLen = i.dataLen - uint64(old.DataLen) + uint64(replacement.DataLen)
}

// calcDataLength recomputes the cached length from the block list (§4.3
// calc_data_length), used to reconcile the cache after restore and after
// partial deletes.
func (i *Inode) calcDataLength() uint64 {
	var total uint64
	for b := i.blocks; b != nil; b = b.next {
		if !b.isDeleted() {
			total += uint64(b.DataLen)
		}
	}
	return total
}

// seek walks the block list summing data lengths until it reaches the
// block containing offset (§4.3 seek). It returns the containing block,
// its predecessor (for O(1) unlink), and the byte offset within it. If
// offset equals the file length, it returns (last, nil, 0).
func (i *Inode) seek(offset uint64) (prev, cur *Block, blockOff uint32, err error) {
	if i.IsDir() {
		return nil, nil, 0, fmt.Errorf("%w: seek on a directory", ErrInvalid)
	}
	if offset > i.dataLen {
		return nil, nil, 0, fmt.Errorf("%w: offset %d beyond file length %d", ErrInvalid, offset, i.dataLen)
	}
	remaining := offset
	var p *Block
	for b := i.blocks; b != nil; b = b.next {
		if remaining < uint64(b.DataLen) {
			return p, b, uint32(remaining), nil
		}
		remaining -= uint64(b.DataLen)
		p = b
	}
	return p, nil, 0, nil
}

// allocInode obtains a zeroed Inode from the fixed pool (§4.3 alloc).
func (fsys *Filesystem) allocInode() (*Inode, error) {
	ino, err := fsys.inodePool.alloc()
	if err != nil {
		return nil, err
	}
	*ino = Inode{}
	return ino, nil
}

// freeInode returns an Inode to the fixed pool (§4.3 free).
func (fsys *Filesystem) freeInode(ino *Inode) {
	fsys.index.remove(ino)
	fsys.inodePool.release(ino)
}

// readInodeDisk decodes the inode record at (areaID, offset) (§4.3
// read_disk). It reads the fixed header first to learn the filename
// length, then the filename itself, mirroring the teacher's
// length-prefixed tableReader.readBlock.
func (fsys *Filesystem) readInodeDisk(areaID uint16, offset uint32) (InodeRecord, error) {
	hdr := make([]byte, inodeHeaderSize)
	if err := fsys.fd.readAt(areaID, offset, hdr); err != nil {
		return InodeRecord{}, err
	}
	if byteOrder.Uint32(hdr) != inodeMagic {
		return InodeRecord{}, fmt.Errorf("%w: bad inode magic", ErrCorrupt)
	}
	nameLen := hdr[inodeNameLenOffset]
	if nameLen > MaxNameLen {
		return InodeRecord{}, fmt.Errorf("%w: filename_len %d exceeds %d", ErrCorrupt, nameLen, MaxNameLen)
	}
	full := make([]byte, inodeHeaderSize+int(nameLen))
	copy(full, hdr)
	if nameLen > 0 {
		if err := fsys.fd.readAt(areaID, offset+inodeHeaderSize, full[inodeHeaderSize:]); err != nil {
			return InodeRecord{}, err
		}
	}
	rec, _, err := decodeInodeRecord(full)
	return rec, err
}

// writeInodeDisk serializes rec and writes it at the given, already
// reserved, location (§4.3 write_disk). Exactly one record is emitted.
func (fsys *Filesystem) writeInodeDisk(rec InodeRecord, areaID uint16, offset uint32) error {
	buf, err := encodeInodeRecord(rec)
	if err != nil {
		return err
	}
	return fsys.fd.writeAt(areaID, offset, buf)
}

// inodeFromDisk initializes an in-RAM inode from a decoded record and
// indexes it (§4.3 from_disk). Used by restore.
func (fsys *Filesystem) inodeFromDisk(rec InodeRecord, areaID uint16, offset uint32) (*Inode, error) {
	ino, err := fsys.allocInode()
	if err != nil {
		return nil, err
	}
	ino.ID = rec.ID
	ino.Seq = rec.Seq
	ino.ParentID = rec.ParentID
	ino.Flags = rec.Flags
	ino.Name = rec.Name
	ino.AreaID = areaID
	ino.Offset = offset
	fsys.index.insert(ino)
	return ino, nil
}

// supersedeInode writes a brand-new record for ino's id with seq+1 and
// the given fields, then updates the in-RAM descriptor to point at it.
// It never rewrites the prior record in place (§5 ordering guarantees).
func (fsys *Filesystem) supersedeInode(ino *Inode, parentID uint32, name string, flags InodeFlags) error {
	rec := InodeRecord{ID: ino.ID, Seq: ino.Seq + 1, ParentID: parentID, Flags: flags, Name: name}
	areaID, offset, err := fsys.reserveSpace(rec.diskSize())
	if err != nil {
		return err
	}
	if err := fsys.writeInodeDisk(rec, areaID, offset); err != nil {
		return err
	}
	ino.ParentID = parentID
	ino.Name = name
	ino.Flags = flags
	ino.Seq = rec.Seq
	ino.AreaID = areaID
	ino.Offset = offset
	return nil
}

// renameInode enforces the 16-byte name limit, writes a new inode record
// with seq+1 and the new name, and keeps the existing child/block lists
// (§4.3 rename). If ino is currently attached to a parent, its sibling
// position is recomputed for the new name.
func (fsys *Filesystem) renameInode(ino *Inode, newName string) error {
	if err := validateName(newName); err != nil {
		return err
	}
	parent := ino.parent
	if parent != nil {
		if sib := findChildByName(parent, newName); sib != nil && sib != ino {
			return ErrExist
		}
		removeChildNode(parent, ino)
	}
	if err := fsys.supersedeInode(ino, ino.ParentID, newName, ino.Flags); err != nil {
		if parent != nil {
			_ = addChildSorted(parent, ino)
		}
		return err
	}
	if parent != nil {
		return addChildSorted(parent, ino)
	}
	return nil
}

// deleteInodeFromDisk writes a deleted-flag record with seq+1 (§4.3
// delete_from_disk).
func (fsys *Filesystem) deleteInodeFromDisk(ino *Inode) error {
	return fsys.supersedeInode(ino, ino.ParentID, ino.Name, ino.Flags|InodeDeleted)
}

// deleteInodeFromRAM detaches ino from its parent and tears it down,
// honoring refcnt: if refcnt > 0 the inode is marked dummy-deleted and
// teardown is deferred until the last handle closes it (§4.3
// delete_from_ram, §4.9 close).
func (fsys *Filesystem) deleteInodeFromRAM(ino *Inode) {
	if ino.parent != nil {
		removeChildNode(ino.parent, ino)
	}
	fsys.teardownInode(ino)
}

// teardownInode frees ino's owned resources (children recursively for a
// directory, blocks for a file) and returns it to the pool, unless it is
// still referenced, in which case it is marked dummy-deleted instead.
func (fsys *Filesystem) teardownInode(ino *Inode) {
	if ino.refcnt > 0 {
		ino.Flags |= InodeDummy | InodeDeleted
		return
	}
	if ino.IsDir() {
		child := ino.children
		ino.children = nil
		for child != nil {
			next := child.nextSib
			child.parent = nil
			child.nextSib = nil
			fsys.teardownInode(child)
			child = next
		}
	} else {
		fsys.deleteBlockListFromRAM(ino, ino.blocks, ino.lastBlock)
		ino.blocks = nil
		ino.lastBlock = nil
		ino.dataLen = 0
	}
	fsys.freeInode(ino)
}

// decRef drops ino's reference count and, if it reaches zero while the
// inode is dummy-deleted, completes the deferred teardown (§4.9 close).
func (fsys *Filesystem) decRef(ino *Inode) {
	ino.refcnt--
	if ino.refcnt <= 0 && ino.IsDummy() {
		fsys.teardownInode(ino)
	}
}

// isLive reports whether ino's highest-seq record is not deleted, its
// parent chain terminates at the root, and its filename length is within
// bounds (§3 "An inode is live iff...").
func (fsys *Filesystem) isLive(ino *Inode) bool {
	if ino.IsDeleted() {
		return false
	}
	if len(ino.Name) > MaxNameLen {
		return false
	}
	if ino.ID == RootID {
		return true
	}
	seen := map[uint32]bool{ino.ID: true}
	cur := ino
	for {
		if cur.ID == RootID {
			return true
		}
		parent, err := fsys.index.findInode(cur.ParentID)
		if err != nil {
			return false
		}
		if seen[parent.ID] {
			return false
		}
		seen[parent.ID] = true
		cur = parent
	}
}
