package ffs

// Exported aliases of unexported codec functions, for use by the black-box
// ffs_test test files. This file is excluded from non-test builds.

func EncodeAreaHeaderForTest(h AreaHeader) []byte { return encodeAreaHeader(h) }

func DecodeAreaHeaderForTest(buf []byte) (AreaHeader, error) { return decodeAreaHeader(buf) }

func EncodeInodeRecordForTest(r InodeRecord) ([]byte, error) { return encodeInodeRecord(r) }

func DecodeInodeRecordForTest(buf []byte) (InodeRecord, int, error) { return decodeInodeRecord(buf) }

func EncodeBlockRecordForTest(r BlockRecord) ([]byte, error) { return encodeBlockRecord(r) }

func DecodeBlockRecordForTest(buf []byte) (BlockRecord, error) { return decodeBlockRecord(buf) }
