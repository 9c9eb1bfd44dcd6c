package ffs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var byteOrder = binary.LittleEndian

// AreaHeader is the first record of every area (§4.1).
type AreaHeader struct {
	Length    uint32
	Reserved  uint16
	Seq       uint8
	IsScratch bool
}

func encodeAreaHeader(h AreaHeader) []byte {
	buf := make([]byte, areaHeaderSize)
	for i, w := range areaMagic {
		byteOrder.PutUint32(buf[i*4:], w)
	}
	byteOrder.PutUint32(buf[16:], h.Length)
	byteOrder.PutUint16(buf[20:], h.Reserved)
	buf[22] = h.Seq
	if h.IsScratch {
		buf[areaScratchOffset] = 1
	}
	return buf
}

func decodeAreaHeader(buf []byte) (AreaHeader, error) {
	if len(buf) < areaHeaderSize {
		return AreaHeader{}, fmt.Errorf("%w: short area header (%d bytes)", ErrCorrupt, len(buf))
	}
	for i, want := range areaMagic {
		if byteOrder.Uint32(buf[i*4:]) != want {
			return AreaHeader{}, fmt.Errorf("%w: bad area magic", ErrCorrupt)
		}
	}
	return AreaHeader{
		Length:    byteOrder.Uint32(buf[16:]),
		Reserved:  byteOrder.Uint16(buf[20:]),
		Seq:       buf[22],
		IsScratch: buf[areaScratchOffset] != 0,
	}, nil
}

// InodeRecord is the on-disk framing of an inode metadata record (§4.1).
type InodeRecord struct {
	ID       uint32
	Seq      uint32
	ParentID uint32
	Flags    InodeFlags
	Name     string
}

// diskSize returns the encoded size of this record, including its
// variable-length filename.
func (r InodeRecord) diskSize() int {
	return inodeHeaderSize + len(r.Name)
}

func encodeInodeRecord(r InodeRecord) ([]byte, error) {
	if len(r.Name) > MaxNameLen {
		return nil, fmt.Errorf("%w: filename %q exceeds %d bytes", ErrInvalid, r.Name, MaxNameLen)
	}
	buf := new(bytes.Buffer)
	buf.Grow(r.diskSize())
	_ = binary.Write(buf, byteOrder, inodeMagic)
	_ = binary.Write(buf, byteOrder, r.ID)
	_ = binary.Write(buf, byteOrder, r.Seq)
	_ = binary.Write(buf, byteOrder, r.ParentID)
	_ = binary.Write(buf, byteOrder, uint16(r.Flags))
	_ = binary.Write(buf, byteOrder, uint8(len(r.Name)))
	_ = binary.Write(buf, byteOrder, eccPlaceholder(nil)) // see eccPlaceholder doc
	buf.WriteString(r.Name)
	return buf.Bytes(), nil
}

// decodeInodeRecord decodes a record from buf, returning the record and
// the number of bytes consumed. buf may be longer than the record; excess
// trailing bytes are ignored by the caller.
func decodeInodeRecord(buf []byte) (InodeRecord, int, error) {
	if len(buf) < inodeHeaderSize {
		return InodeRecord{}, 0, fmt.Errorf("%w: short inode header", ErrCorrupt)
	}
	r := bytes.NewReader(buf)
	var magic uint32
	_ = binary.Read(r, byteOrder, &magic)
	if magic != inodeMagic {
		return InodeRecord{}, 0, fmt.Errorf("%w: bad inode magic", ErrCorrupt)
	}
	var rec InodeRecord
	var flags uint16
	var nameLen uint8
	var ecc uint32
	_ = binary.Read(r, byteOrder, &rec.ID)
	_ = binary.Read(r, byteOrder, &rec.Seq)
	_ = binary.Read(r, byteOrder, &rec.ParentID)
	_ = binary.Read(r, byteOrder, &flags)
	_ = binary.Read(r, byteOrder, &nameLen)
	_ = binary.Read(r, byteOrder, &ecc) // placeholder, not yet validated

	if nameLen > MaxNameLen {
		return InodeRecord{}, 0, fmt.Errorf("%w: filename_len %d exceeds %d", ErrCorrupt, nameLen, MaxNameLen)
	}
	total := inodeHeaderSize + int(nameLen)
	if len(buf) < total {
		return InodeRecord{}, 0, fmt.Errorf("%w: truncated inode record", ErrCorrupt)
	}
	rec.Flags = InodeFlags(flags)
	rec.Name = string(buf[inodeHeaderSize:total])
	return rec, total, nil
}

// BlockRecord is the on-disk framing of a file data block (§4.1). Every
// block record occupies exactly BlockDiskSize bytes on flash; unused
// payload bytes beyond Data are zero-padded.
type BlockRecord struct {
	ID      uint32
	Seq     uint32
	Rank    uint32
	InodeID uint32
	Flags   BlockFlags
	Data    []byte
}

func encodeBlockRecord(r BlockRecord) ([]byte, error) {
	if len(r.Data) > BlockDataLen {
		return nil, fmt.Errorf("%w: block data %d bytes exceeds BlockDataLen=%d", ErrInvalid, len(r.Data), BlockDataLen)
	}
	buf := make([]byte, BlockDiskSize)
	w := buf
	byteOrder.PutUint32(w, blockMagic)
	byteOrder.PutUint32(w[4:], r.ID)
	byteOrder.PutUint32(w[8:], r.Seq)
	byteOrder.PutUint32(w[12:], r.Rank)
	byteOrder.PutUint32(w[16:], r.InodeID)
	byteOrder.PutUint16(w[20:], 0) // reserved
	byteOrder.PutUint16(w[22:], uint16(r.Flags))
	byteOrder.PutUint16(w[24:], uint16(len(r.Data)))
	byteOrder.PutUint32(w[26:], 0) // ecc placeholder
	copy(w[blockHeaderSize:], r.Data)
	return buf, nil
}

func decodeBlockRecord(buf []byte) (BlockRecord, error) {
	if len(buf) < BlockDiskSize {
		return BlockRecord{}, fmt.Errorf("%w: short block record", ErrCorrupt)
	}
	if byteOrder.Uint32(buf) != blockMagic {
		return BlockRecord{}, fmt.Errorf("%w: bad block magic", ErrCorrupt)
	}
	dataLen := byteOrder.Uint16(buf[24:])
	if int(dataLen) > BlockDataLen {
		return BlockRecord{}, fmt.Errorf("%w: block data_len %d exceeds BlockDataLen=%d", ErrCorrupt, dataLen, BlockDataLen)
	}
	r := BlockRecord{
		ID:      byteOrder.Uint32(buf[4:]),
		Seq:     byteOrder.Uint32(buf[8:]),
		Rank:    byteOrder.Uint32(buf[12:]),
		InodeID: byteOrder.Uint32(buf[16:]),
		Flags:   BlockFlags(byteOrder.Uint16(buf[22:])),
	}
	r.Data = append([]byte(nil), buf[blockHeaderSize:blockHeaderSize+int(dataLen)]...)
	return r, nil
}

// eccPlaceholder is the hook named in spec §9's first Open Question: the
// ecc field is reserved for a future integrity check over the record
// body. Coverage (whole record? payload only?) is left unspecified by the
// source, so this implementation writes a literal zero and does not
// validate it on read, rather than guessing a checksum scheme.
func eccPlaceholder(body []byte) uint32 {
	return 0
}
