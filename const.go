package ffs

// Wire-format constants from §6 of the specification.
const (
	// MaxNameLen is the maximum filename length, in bytes. Filenames are
	// not null-terminated on disk; length is carried separately in
	// filename_len. Open question (spec §9) resolved as inclusive: a name
	// of exactly 16 bytes is valid.
	MaxNameLen = 16

	// BlockDiskSize is the fixed on-disk size of a block record slot,
	// header and data combined. Every block record, regardless of how
	// much of its payload is actually used, occupies exactly this many
	// bytes of flash so that reserve_space for a block is always a single
	// constant-size request.
	BlockDiskSize = 512

	// blockHeaderSize is the encoded size of a block record's fixed
	// fields, computed from the codec table in §4.1: magic, id, seq,
	// rank, inode_id, reserved, flags, data_len, ecc.
	blockHeaderSize = 4 + 4 + 4 + 4 + 4 + 2 + 2 + 2 + 4

	// BlockDataLen is FFS_BLOCK_DATA_LEN: the maximum payload bytes a
	// single block record can carry on disk.
	BlockDataLen = BlockDiskSize - blockHeaderSize

	// writeStageBufferSize bounds how many bytes write_to_file consumes
	// from the caller's buffer per iteration before splitting that chunk
	// into BlockDataLen-sized on-disk block records. This is distinct
	// from BlockDataLen itself: the spec separately calls out a 2048-byte
	// "max in-memory block data payload" alongside the 512-byte on-disk
	// block size, which this implementation resolves as a staging-buffer
	// size rather than a second on-disk constant.
	writeStageBufferSize = 2048

	// HashBuckets is the object index's fixed bucket count (§4.2).
	HashBuckets = 256

	// MaxAreas bounds the area descriptor table (§6).
	MaxAreas = 32

	// NoneID is the sentinel id used for "no id" (root's parent, end of list).
	NoneID uint32 = 0xffffffff

	// RootID is the inode id permanently reserved for the root directory.
	RootID uint32 = 0

	// areaHeaderSize is the encoded size of an area header record (§4.1):
	// four u32 magic words, length u32, reserved u16, seq u8, is_scratch u8.
	areaHeaderSize = 4*4 + 4 + 2 + 1 + 1

	// areaScratchOffset is the byte offset of is_scratch within an area
	// header, fixed by the spec at offset 23 from area start.
	areaScratchOffset = 23

	// inodeHeaderSize is the encoded size of an inode record's fixed
	// fields, before the variable-length filename: magic, id, seq,
	// parent_id, flags, filename_len, ecc.
	inodeHeaderSize = 4 + 4 + 4 + 4 + 2 + 1 + 4

	// inodeNameLenOffset is the byte offset of filename_len within an
	// encoded inode record: magic(4)+id(4)+seq(4)+parent_id(4)+flags(2).
	inodeNameLenOffset = 4 + 4 + 4 + 4 + 2
)

// Magic constants (§6). The area magic is a four-word sequence; inode and
// block records each carry a single magic word.
var areaMagic = [4]uint32{0xb98a31e2, 0x7fb0428c, 0xace08253, 0xb185fc8e}

const (
	inodeMagic uint32 = 0x925f8bc0
	blockMagic uint32 = 0x53ba23b9
)
