package ffs

import (
	"errors"
	"fmt"
	"strings"
)

// tokenKind classifies a path component as an intermediate directory
// component (BRANCH) or the terminal component (LEAF), per §4.5.
type tokenKind int

const (
	tokenBranch tokenKind = iota
	tokenLeaf
)

type pathToken struct {
	name string
	kind tokenKind
}

// tokenizePath splits a slash-separated, absolute path into tokens.
// Leading slash is required; "." and ".." are rejected (§1 Non-goals: no
// long filenames, and per §4.5, no "." or "..").
func tokenizePath(p string) ([]pathToken, error) {
	if len(p) == 0 || p[0] != '/' {
		return nil, fmt.Errorf("%w: path must be absolute", ErrInvalid)
	}
	parts := strings.Split(p, "/")[1:]
	if len(parts) == 1 && parts[0] == "" {
		return nil, nil // path is exactly "/"
	}
	toks := make([]pathToken, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: empty path component", ErrInvalid)
		}
		if part == "." || part == ".." {
			return nil, fmt.Errorf("%w: relative path components are not supported", ErrInvalid)
		}
		if len(part) > MaxNameLen {
			return nil, fmt.Errorf("%w: path component %q exceeds %d bytes", ErrInvalid, part, MaxNameLen)
		}
		kind := tokenBranch
		if i == len(parts)-1 {
			kind = tokenLeaf
		}
		toks = append(toks, pathToken{name: part, kind: kind})
	}
	return toks, nil
}

// resolve walks path from root, matching each token against the current
// directory's children (§4.5 find). It returns one of three outcomes:
//
//   - full match: (inode, inode.parent, nil)
//   - final token unmatched, parent directory exists: (nil, parent, ErrNotFound)
//   - intermediate token unmatched (or an intermediate component is not a
//     directory): (nil, nil, ErrNotFound)
func (fsys *Filesystem) resolve(path string) (ino *Inode, parent *Inode, err error) {
	toks, err := tokenizePath(path)
	if err != nil {
		return nil, nil, err
	}
	if len(toks) == 0 {
		return fsys.root, nil, nil
	}
	cur := fsys.root
	for _, tok := range toks {
		if !cur.IsDir() {
			return nil, nil, ErrNotFound
		}
		child := findChildByName(cur, tok.name)
		if child == nil {
			if tok.kind == tokenLeaf {
				return nil, cur, ErrNotFound
			}
			return nil, nil, ErrNotFound
		}
		if tok.kind == tokenLeaf {
			return child, cur, nil
		}
		cur = child
	}
	// unreachable: every token is visited and the last is always tokenLeaf
	return nil, nil, ErrInvalid
}

// Find resolves path, returning the inode and its parent (§4.5 find).
func (fsys *Filesystem) Find(path string) (ino *Inode, parent *Inode, err error) {
	return fsys.resolve(path)
}

// createInode allocates a new inode, writes its first record (seq 0),
// and links it into parent's children, shared by Mkdir and Open(O_CREATE).
func (fsys *Filesystem) createInode(parent *Inode, name string, flags InodeFlags) (*Inode, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if findChildByName(parent, name) != nil {
		return nil, ErrExist
	}
	ino, err := fsys.allocInode()
	if err != nil {
		return nil, err
	}
	id := fsys.allocID()
	rec := InodeRecord{ID: id, Seq: 0, ParentID: parent.ID, Flags: flags, Name: name}
	areaID, offset, err := fsys.reserveSpace(rec.diskSize())
	if err != nil {
		fsys.inodePool.release(ino)
		return nil, err
	}
	if err := fsys.writeInodeDisk(rec, areaID, offset); err != nil {
		fsys.inodePool.release(ino)
		return nil, err
	}
	ino.ID = id
	ino.Seq = 0
	ino.ParentID = parent.ID
	ino.Flags = flags
	ino.Name = name
	ino.AreaID = areaID
	ino.Offset = offset
	fsys.index.insert(ino)
	if err := addChildSorted(parent, ino); err != nil {
		fsys.freeInode(ino)
		return nil, err
	}
	return ino, nil
}

// Mkdir creates an empty directory at path (§4.5 new_dir, §4.8).
func (fsys *Filesystem) Mkdir(path string) (*Inode, error) {
	toks, err := tokenizePath(path)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, ErrExist // "/" always exists
	}
	_, parent, err := fsys.resolve(path)
	if err == nil {
		return nil, ErrExist
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if parent == nil {
		return nil, ErrNotFound
	}
	return fsys.createInode(parent, toks[len(toks)-1].name, InodeDirectory)
}

// Unlink removes the file or empty directory at path (§4.5 unlink). The
// root cannot be unlinked; a non-empty directory cannot be unlinked.
func (fsys *Filesystem) Unlink(path string) error {
	ino, _, err := fsys.resolve(path)
	if err != nil {
		return err
	}
	if ino.ID == RootID {
		return fmt.Errorf("%w: cannot unlink root", ErrInvalid)
	}
	if ino.IsDir() && ino.children != nil {
		return ErrNotEmpty
	}
	if err := fsys.deleteInodeFromDisk(ino); err != nil {
		return err
	}
	fsys.deleteInodeFromRAM(ino)
	return nil
}

// Rename moves/renames from to to (§4.5 rename). The destination's parent
// must already exist and be a directory; if to already exists it is
// atomically superseded (old inode deleted, new one written under the new
// parent/name) rather than updated in place.
func (fsys *Filesystem) Rename(from, to string) error {
	srcIno, _, err := fsys.resolve(from)
	if err != nil {
		return err
	}
	if srcIno.ID == RootID {
		return fmt.Errorf("%w: cannot rename root", ErrInvalid)
	}

	toToks, err := tokenizePath(to)
	if err != nil {
		return err
	}
	if len(toToks) == 0 {
		return fmt.Errorf("%w: cannot rename onto root", ErrInvalid)
	}

	dstIno, dstParent, err := fsys.resolve(to)
	switch {
	case err == nil:
		// to fully resolved to an existing inode; dstParent is its parent.
	case errors.Is(err, ErrNotFound):
		if dstParent == nil {
			return ErrNotFound // intermediate component of `to` missing
		}
	default:
		return err
	}
	if !dstParent.IsDir() {
		return fmt.Errorf("%w: destination parent is not a directory", ErrInvalid)
	}

	if dstIno != nil && dstIno.ID != srcIno.ID {
		if dstIno.IsDir() && dstIno.children != nil {
			return ErrNotEmpty
		}
		if err := fsys.deleteInodeFromDisk(dstIno); err != nil {
			return err
		}
		fsys.deleteInodeFromRAM(dstIno)
	}

	newName := toToks[len(toToks)-1].name
	oldParent := srcIno.parent
	if oldParent != nil {
		removeChildNode(oldParent, srcIno)
	}
	if err := fsys.supersedeInode(srcIno, dstParent.ID, newName, srcIno.Flags); err != nil {
		if oldParent != nil {
			_ = addChildSorted(oldParent, srcIno)
		}
		return err
	}
	return addChildSorted(dstParent, srcIno)
}
