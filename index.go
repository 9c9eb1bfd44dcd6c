package ffs

// descriptor is the common shape of anything the object index can hold:
// an Inode or a Block (§3 "Entity: Index"). Blocks and inodes share the
// 32-bit id space, so a single flat index serves both.
type descriptor interface {
	objID() uint32
}

type indexNode struct {
	desc descriptor
	next *indexNode
}

// objectIndex is the 256-bucket id→descriptor hash of §4.2. It holds the
// current, non-superseded version of each live id; callers must remove
// the prior version of an id before inserting a replacement.
type objectIndex struct {
	buckets [HashBuckets]*indexNode
}

func newObjectIndex() *objectIndex {
	return &objectIndex{}
}

func bucketOf(id uint32) int {
	return int(id % HashBuckets)
}

// find returns the descriptor stored for id, if any.
func (x *objectIndex) find(id uint32) (descriptor, bool) {
	for n := x.buckets[bucketOf(id)]; n != nil; n = n.next {
		if n.desc.objID() == id {
			return n.desc, true
		}
	}
	return nil, false
}

// insert adds a descriptor under its own id. It does not replace an
// existing entry for the same id — callers must remove() the prior
// version first, per §4.2.
func (x *objectIndex) insert(d descriptor) {
	b := bucketOf(d.objID())
	x.buckets[b] = &indexNode{desc: d, next: x.buckets[b]}
}

// remove detaches d from the index. A no-op if d is not present.
func (x *objectIndex) remove(d descriptor) {
	b := bucketOf(d.objID())
	var prev *indexNode
	for n := x.buckets[b]; n != nil; n = n.next {
		if n.desc == d {
			if prev == nil {
				x.buckets[b] = n.next
			} else {
				prev.next = n.next
			}
			return
		}
		prev = n
	}
}

// removeID detaches whatever descriptor is stored for id, if any.
func (x *objectIndex) removeID(id uint32) {
	if d, ok := x.find(id); ok {
		x.remove(d)
	}
}

// foreach visits every descriptor in the index. Order is bucket-major and
// not otherwise meaningful.
func (x *objectIndex) foreach(fn func(descriptor)) {
	for _, head := range x.buckets {
		for n := head; n != nil; n = n.next {
			fn(n.desc)
		}
	}
}

// count returns the number of descriptors currently indexed.
func (x *objectIndex) count() int {
	n := 0
	x.foreach(func(descriptor) { n++ })
	return n
}

// findInode is the typed accessor for inodes: it returns ErrNotFound both
// when the id is absent and when it resolves to a Block, per §4.2's
// "typed accessors return a typed pointer only when the stored descriptor
// type matches, else a not-found error".
func (x *objectIndex) findInode(id uint32) (*Inode, error) {
	d, ok := x.find(id)
	if !ok {
		return nil, ErrNotFound
	}
	ino, ok := d.(*Inode)
	if !ok {
		return nil, ErrNotFound
	}
	return ino, nil
}

// findBlock is the typed accessor for blocks, symmetric with findInode.
func (x *objectIndex) findBlock(id uint32) (*Block, error) {
	d, ok := x.find(id)
	if !ok {
		return nil, ErrNotFound
	}
	blk, ok := d.(*Block)
	if !ok {
		return nil, ErrNotFound
	}
	return blk, nil
}
