// Package snapshot stores built site trees in a self-describing binary
// format.
//
// Layout (little endian):
//
//	magic        [4]byte  "SITE"
//	version      uint16
//	compression  uint8    (0 none, 1 lz4, 2 zstd)
//	codecLen     uint8
//	codec        [codecLen]byte
//	rawSize      uint32   size of the encoded tree
//	storedSize   uint32   size of the payload; 0 means stored uncompressed
//	payload      [storedSize or rawSize]byte
//	checksum     uint32   CRC32 (IEEE) of every preceding byte
//
// The payload is the codec encoding of the tree, with leaf row bitmaps in
// the portable roaring format. Decoding selects the codec by the recorded
// name and verifies the checksum and the structural invariants of the tree.
package snapshot
