//go:build darwin && fuse

package ffs

import "github.com/hanwen/go-fuse/v2/fuse"

// FillAttr populates out from ino's flash-filesystem metadata (§11.2),
// mirroring the teacher's darwin/linux FillAttr split in inode_darwin.go.
func (n *FuseNode) FillAttr(out *fuse.Attr) {
	out.Ino = uint64(n.ino.ID) + 1
	if n.ino.IsDir() {
		out.Mode = syscallModeDir
		out.Nlink = 2
		return
	}
	out.Mode = syscallModeReg
	out.Nlink = 1
	out.Size = n.ino.DataLen()
	out.Blocks = (out.Size + 511) / 512
}
