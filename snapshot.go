package ffs

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// CompressionFormat selects the codec wrapping a whole-image snapshot
// stream (§11.3). Snapshots are a transport/backup concern layered on top
// of the on-disk format, not part of the wire format itself.
type CompressionFormat int

const (
	CompressionZstd CompressionFormat = iota
	CompressionXZ
)

var snapshotMagic = [4]byte{'f', 'f', 's', '1'}

// ExportSnapshot writes every area of fsys's backing image to w, in area-id
// order, each prefixed with its id and length, through the chosen
// compressor. The stream is a verbatim copy of flash content with no
// derived RAM state, so importing it is equivalent to powering on a
// device whose flash already holds that image.
func ExportSnapshot(fsys *Filesystem, w io.Writer, format CompressionFormat) error {
	cw, closeFn, err := newCompressWriter(w, format)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(cw)
	if _, err := bw.Write(snapshotMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, byteOrder, uint32(len(fsys.areaOrder))); err != nil {
		return err
	}

	buf := make([]byte, 4096)
	for _, id := range fsys.areaOrder {
		desc, err := fsys.fd.desc(id)
		if err != nil {
			return err
		}
		if err := binary.Write(bw, byteOrder, id); err != nil {
			return err
		}
		if err := binary.Write(bw, byteOrder, desc.Length); err != nil {
			return err
		}
		remaining := desc.Length
		var off uint32
		for remaining > 0 {
			n := uint32(len(buf))
			if n > remaining {
				n = remaining
			}
			if err := fsys.fd.readAt(id, off, buf[:n]); err != nil {
				return fmt.Errorf("export area %d: %w", id, err)
			}
			if _, err := bw.Write(buf[:n]); err != nil {
				return err
			}
			off += n
			remaining -= n
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return closeFn()
}

// ImportSnapshot decompresses a stream written by ExportSnapshot into drv's
// areas, which must match descs exactly in id and length, then restores a
// Filesystem from the freshly written image.
func ImportSnapshot(r io.Reader, format CompressionFormat, drv Driver, descs []AreaDesc, opts ...Option) (*Filesystem, error) {
	cr, closeFn, err := newDecompressReader(r, format)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	br := bufio.NewReader(cr)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: read snapshot magic: %v", ErrCorrupt, err)
	}
	if magic != snapshotMagic {
		return nil, fmt.Errorf("%w: bad snapshot magic", ErrCorrupt)
	}

	table := make(map[uint16]AreaDesc, len(descs))
	for _, d := range descs {
		table[d.ID] = d
	}

	var count uint32
	if err := binary.Read(br, byteOrder, &count); err != nil {
		return nil, fmt.Errorf("%w: read area count: %v", ErrCorrupt, err)
	}
	buf := make([]byte, 4096)
	for i := uint32(0); i < count; i++ {
		var id uint16
		var length uint32
		if err := binary.Read(br, byteOrder, &id); err != nil {
			return nil, fmt.Errorf("%w: read area id: %v", ErrCorrupt, err)
		}
		if err := binary.Read(br, byteOrder, &length); err != nil {
			return nil, fmt.Errorf("%w: read area length: %v", ErrCorrupt, err)
		}
		desc, ok := table[id]
		if !ok || desc.Length != length {
			return nil, fmt.Errorf("%w: snapshot area %d does not match descriptor table", ErrInvalid, id)
		}
		remaining := length
		var off uint32
		for remaining > 0 {
			n := uint32(len(buf))
			if n > remaining {
				n = remaining
			}
			if _, err := io.ReadFull(br, buf[:n]); err != nil {
				return nil, fmt.Errorf("%w: area %d: %v", ErrCorrupt, id, err)
			}
			if err := drv.WriteAt(id, off, buf[:n]); err != nil {
				return nil, fmt.Errorf("import area %d: %w", id, err)
			}
			off += n
			remaining -= n
		}
	}

	return RestoreFull(drv, descs, opts...)
}

func newCompressWriter(w io.Writer, format CompressionFormat) (io.Writer, func() error, error) {
	switch format {
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return zw, zw.Close, nil
	case CompressionXZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return xw, xw.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown snapshot compression format %d", ErrInvalid, format)
	}
}

func newDecompressReader(r io.Reader, format CompressionFormat) (io.Reader, func() error, error) {
	switch format {
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() error { zr.Close(); return nil }, nil
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown snapshot compression format %d", ErrInvalid, format)
	}
}
