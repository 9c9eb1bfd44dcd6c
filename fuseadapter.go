//go:build fuse

package ffs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// FuseNode adapts a flash filesystem Inode into a go-fuse node, for
// interactive inspection and mounting of an image (§11.2). It is a
// debugging surface layered on top of the core API; nothing in the core
// depends on it.
type FuseNode struct {
	gofs.Inode

	fsys *Filesystem
	ino  *Inode
}

var (
	_ gofs.NodeGetattrer = (*FuseNode)(nil)
	_ gofs.NodeLookuper  = (*FuseNode)(nil)
	_ gofs.NodeReaddirer = (*FuseNode)(nil)
	_ gofs.NodeOpener    = (*FuseNode)(nil)
	_ gofs.NodeCreater   = (*FuseNode)(nil)
	_ gofs.NodeMkdirer   = (*FuseNode)(nil)
	_ gofs.NodeUnlinker  = (*FuseNode)(nil)
	_ gofs.NodeRmdirer   = (*FuseNode)(nil)
)

const (
	syscallModeDir = syscall.S_IFDIR | 0o755
	syscallModeReg = syscall.S_IFREG | 0o644
)

func stableAttr(ino *Inode) gofs.StableAttr {
	mode := uint32(syscall.S_IFREG)
	if ino.IsDir() {
		mode = syscall.S_IFDIR
	}
	return gofs.StableAttr{Mode: mode, Ino: uint64(ino.ID) + 1}
}

func (n *FuseNode) Getattr(ctx context.Context, f gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.FillAttr(&out.Attr)
	return 0
}

func (n *FuseNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	if !n.ino.IsDir() {
		return nil, syscall.ENOTDIR
	}
	child := findChildByName(n.ino, name)
	if child == nil {
		return nil, syscall.ENOENT
	}
	cn := &FuseNode{fsys: n.fsys, ino: child}
	cn.FillAttr(&out.Attr)
	return n.NewInode(ctx, cn, stableAttr(child)), 0
}

func (n *FuseNode) Readdir(ctx context.Context) (gofs.DirStream, syscall.Errno) {
	if !n.ino.IsDir() {
		return nil, syscall.ENOTDIR
	}
	var entries []fuse.DirEntry
	for c := n.ino.children; c != nil; c = c.nextSib {
		entries = append(entries, fuse.DirEntry{Name: c.Name, Ino: uint64(c.ID) + 1, Mode: stableAttr(c).Mode})
	}
	return gofs.NewListDirStream(entries), 0
}

func (n *FuseNode) Open(ctx context.Context, flags uint32) (gofs.FileHandle, uint32, syscall.Errno) {
	h, err := n.fsys.newHandle(n.ino, OpenRead|OpenWrite)
	if err != nil {
		return nil, 0, toErrno(err)
	}
	return &fuseFileHandle{h: h}, 0, 0
}

func (n *FuseNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofs.Inode, gofs.FileHandle, uint32, syscall.Errno) {
	child, err := n.fsys.createInode(n.ino, name, 0)
	if err != nil {
		return nil, nil, 0, toErrno(err)
	}
	h, err := n.fsys.newHandle(child, OpenRead|OpenWrite)
	if err != nil {
		return nil, nil, 0, toErrno(err)
	}
	cn := &FuseNode{fsys: n.fsys, ino: child}
	cn.FillAttr(&out.Attr)
	return n.NewInode(ctx, cn, stableAttr(child)), &fuseFileHandle{h: h}, 0, 0
}

func (n *FuseNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	child, err := n.fsys.createInode(n.ino, name, InodeDirectory)
	if err != nil {
		return nil, toErrno(err)
	}
	cn := &FuseNode{fsys: n.fsys, ino: child}
	cn.FillAttr(&out.Attr)
	return n.NewInode(ctx, cn, stableAttr(child)), 0
}

func (n *FuseNode) Unlink(ctx context.Context, name string) syscall.Errno {
	child := findChildByName(n.ino, name)
	if child == nil {
		return syscall.ENOENT
	}
	if err := n.fsys.deleteInodeFromDisk(child); err != nil {
		return toErrno(err)
	}
	n.fsys.deleteInodeFromRAM(child)
	return 0
}

func (n *FuseNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	return n.Unlink(ctx, name)
}

// fuseFileHandle adapts a FileHandle to go-fuse's per-open read/write
// callbacks, translating its absolute-offset calling convention into
// FileHandle's seek-then-read/write one.
type fuseFileHandle struct {
	h *FileHandle
}

var (
	_ gofs.FileReader   = (*fuseFileHandle)(nil)
	_ gofs.FileWriter   = (*fuseFileHandle)(nil)
	_ gofs.FileReleaser = (*fuseFileHandle)(nil)
)

func (f *fuseFileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if _, err := f.h.Seek(off, io.SeekStart); err != nil {
		return nil, toErrno(err)
	}
	n, err := f.h.Read(dest)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (f *fuseFileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	if _, err := f.h.Seek(off, io.SeekStart); err != nil {
		return 0, toErrno(err)
	}
	n, err := f.h.Write(data)
	if err != nil {
		return uint32(n), toErrno(err)
	}
	return uint32(n), 0
}

func (f *fuseFileHandle) Release(ctx context.Context) syscall.Errno {
	return toErrno(f.h.Close())
}

// Mount serves fsys over FUSE at mountpoint until ctx is canceled, for
// interactive inspection (ffsctl's fuse subcommand).
func Mount(ctx context.Context, fsys *Filesystem, mountpoint string, opts *gofs.Options) (*fuse.Server, error) {
	root := &FuseNode{fsys: fsys, ino: fsys.root}
	server, err := gofs.Mount(mountpoint, root, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: mount %s: %v", ErrIO, mountpoint, err)
	}
	go func() {
		<-ctx.Done()
		_ = server.Unmount()
	}()
	return server, nil
}

func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, ErrExist):
		return syscall.EEXIST
	case errors.Is(err, ErrNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, ErrInvalid):
		return syscall.EINVAL
	case errors.Is(err, ErrNoMem), errors.Is(err, ErrFull):
		return syscall.ENOSPC
	case errors.Is(err, ErrAccess):
		return syscall.EACCES
	default:
		return syscall.EIO
	}
}
