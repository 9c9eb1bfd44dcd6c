package ffs

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Default pool capacities (§5 "three fixed-size pools"), overridable with
// WithPoolSizes.
const (
	DefaultInodePoolSize  = 256
	DefaultBlockPoolSize  = 1024
	DefaultHandlePoolSize = 16
)

// Area is the in-RAM representation of one flash erase unit (§3 "Entity:
// Area").
type Area struct {
	ID        uint16
	Offset    uint32
	Length    uint32
	Cursor    uint32
	Seq       uint8
	IsScratch bool
}

func (a *Area) free() uint32 {
	return a.Length - a.Cursor
}

// Filesystem is a single mounted flash image: the encapsulated global
// state (pools, index, root, scratch id, next_id, area table) that spec
// §9 calls out as "best encapsulated behind a filesystem-instance value
// so tests can mount multiple images in parallel". All public operations
// are methods on *Filesystem.
type Filesystem struct {
	log *logrus.Entry

	fd        *flashDevice
	areas     map[uint16]*Area
	areaOrder []uint16 // ascending by id, stable iteration for GC victim selection
	scratchID uint16

	index *objectIndex

	inodePool  *pool[Inode]
	blockPool  *pool[Block]
	handlePool *pool[FileHandle]

	root   *Inode
	nextID uint32
}

// Option configures a Filesystem at construction time (teacher: options.go, writer.go's WriterOption).
type Option func(*Filesystem) error

// WithLogger overrides the default logrus.StandardLogger()-backed entry.
func WithLogger(l *logrus.Entry) Option {
	return func(fs *Filesystem) error {
		fs.log = l
		return nil
	}
}

// WithPoolSizes overrides the default fixed-size object pool capacities.
func WithPoolSizes(inodes, blocks, handles int) Option {
	return func(fs *Filesystem) error {
		if inodes <= 0 || blocks <= 0 || handles <= 0 {
			return fmt.Errorf("%w: pool sizes must be positive", ErrInvalid)
		}
		fs.inodePool = newPool(inodes, func() *Inode { return &Inode{} })
		fs.blockPool = newPool(blocks, func() *Block { return &Block{} })
		fs.handlePool = newPool(handles, func() *FileHandle { return &FileHandle{} })
		return nil
	}
}

func newFilesystem(drv Driver, descs []AreaDesc, opts ...Option) (*Filesystem, error) {
	fd, err := newFlashDevice(drv, descs)
	if err != nil {
		return nil, err
	}
	fsys := &Filesystem{
		log:        logrus.NewEntry(logrus.StandardLogger()),
		fd:         fd,
		areas:      make(map[uint16]*Area, len(descs)),
		index:      newObjectIndex(),
		inodePool:  newPool(DefaultInodePoolSize, func() *Inode { return &Inode{} }),
		blockPool:  newPool(DefaultBlockPoolSize, func() *Block { return &Block{} }),
		handlePool: newPool(DefaultHandlePoolSize, func() *FileHandle { return &FileHandle{} }),
	}
	for _, d := range descs {
		fsys.areas[d.ID] = &Area{ID: d.ID, Offset: d.Offset, Length: d.Length}
		fsys.areaOrder = append(fsys.areaOrder, d.ID)
	}
	sort.Slice(fsys.areaOrder, func(i, j int) bool { return fsys.areaOrder[i] < fsys.areaOrder[j] })
	for _, o := range opts {
		if err := o(fsys); err != nil {
			return nil, err
		}
	}
	return fsys, nil
}

// liveAreas returns every area except the current scratch, in ascending
// id order.
func (fsys *Filesystem) liveAreas() []*Area {
	out := make([]*Area, 0, len(fsys.areaOrder))
	for _, id := range fsys.areaOrder {
		if id == fsys.scratchID {
			continue
		}
		out = append(out, fsys.areas[id])
	}
	return out
}

func (fsys *Filesystem) scratch() *Area {
	return fsys.areas[fsys.scratchID]
}

func (fsys *Filesystem) allocID() uint32 {
	id := fsys.nextID
	fsys.nextID++
	return id
}

// Root returns the filesystem's root directory inode.
func (fsys *Filesystem) Root() *Inode {
	return fsys.root
}

// ObjectCount returns the number of live inodes and blocks currently
// indexed, for fsck/diagnostic reporting.
func (fsys *Filesystem) ObjectCount() int {
	return fsys.index.count()
}
