package ffs

import "errors"

// Package-specific error variables, matching the error-kind enum of the
// specification (OK, ENOMEM, ENOENT, EEXIST, EINVAL, EACCES, ENOTEMPTY,
// ECORRUPT, EFULL, EIO). Check with errors.Is.
var (
	// ErrNoMem is returned when a fixed-size pool (handle, inode, or block) is exhausted.
	ErrNoMem = errors.New("ffs: object pool exhausted")

	// ErrNotFound is returned when a path does not resolve to an existing inode.
	ErrNotFound = errors.New("ffs: no such file or directory")

	// ErrExist is returned when a create would collide with an existing name.
	ErrExist = errors.New("ffs: file exists")

	// ErrInvalid is returned for malformed arguments: bad paths, names over
	// the 16-byte limit, operations on the wrong inode kind, and so on.
	ErrInvalid = errors.New("ffs: invalid argument")

	// ErrAccess is returned when an operation is attempted with a handle
	// that was not opened with the required access flag.
	ErrAccess = errors.New("ffs: permission denied")

	// ErrNotEmpty is returned by unlink on a non-empty directory.
	ErrNotEmpty = errors.New("ffs: directory not empty")

	// ErrCorrupt is returned when a targeted read decodes a record with a
	// bad magic number or otherwise malformed framing.
	ErrCorrupt = errors.New("ffs: corrupt record")

	// ErrFull is returned when reserve_space cannot satisfy a request even
	// after running garbage collection.
	ErrFull = errors.New("ffs: flash full")

	// ErrIO wraps an underlying flash driver failure.
	ErrIO = errors.New("ffs: flash i/o error")

	// Names for the scratch and root conditions of §7. RestoreFull does not
	// return these: when the image has no scratch area, more than one, or
	// no root directory, it formats the image instead.
	ErrNoScratch    = errors.New("ffs: no scratch area found")
	ErrMultiScratch = errors.New("ffs: more than one scratch area found")
	ErrNoRoot       = errors.New("ffs: root directory missing")

	// ErrTableMismatch is fatal-to-mount: the area descriptor table passed
	// to restore does not agree with what is already on flash.
	ErrTableMismatch = errors.New("ffs: area descriptor table does not match on-flash headers")
)
