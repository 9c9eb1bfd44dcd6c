package ffs

import "strings"

// InodeFlags are the persistent flags carried in an inode record (§3).
type InodeFlags uint16

const (
	InodeDeleted InodeFlags = 1 << iota
	InodeDummy
	InodeDirectory
	InodeTest
)

func (f InodeFlags) Has(w InodeFlags) bool { return f&w == w }

func (f InodeFlags) String() string {
	var opt []string
	if f.Has(InodeDeleted) {
		opt = append(opt, "DELETED")
	}
	if f.Has(InodeDummy) {
		opt = append(opt, "DUMMY")
	}
	if f.Has(InodeDirectory) {
		opt = append(opt, "DIRECTORY")
	}
	if f.Has(InodeTest) {
		opt = append(opt, "TEST")
	}
	return strings.Join(opt, "|")
}

// BlockFlags are the persistent flags carried in a block record (§3).
type BlockFlags uint16

const (
	BlockDeleted BlockFlags = 1 << iota
)

func (f BlockFlags) Has(w BlockFlags) bool { return f&w == w }

func (f BlockFlags) String() string {
	if f.Has(BlockDeleted) {
		return "DELETED"
	}
	return ""
}

// OpenFlags select the access mode and creation behavior of Open (§4.9).
type OpenFlags uint32

const (
	OpenRead OpenFlags = 1 << iota
	OpenWrite
	OpenAppend
	OpenTruncate
	OpenCreate
)

func (f OpenFlags) Has(w OpenFlags) bool { return f&w == w }
