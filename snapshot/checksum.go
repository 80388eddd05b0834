package snapshot

import (
	"hash"
	"hash/crc32"
	"io"
)

// CRC32 (IEEE) guards against accidental corruption only; it is not a
// tamper check.
var crc32Table = crc32.MakeTable(crc32.IEEE)

// checksumWriter wraps an io.Writer and computes a running CRC32 checksum.
type checksumWriter struct {
	w    io.Writer
	hash hash.Hash32
	n    int64
}

func newChecksumWriter(w io.Writer) *checksumWriter {
	return &checksumWriter{
		w:    w,
		hash: crc32.New(crc32Table),
	}
}

// Write implements io.Writer.
func (cw *checksumWriter) Write(p []byte) (int, error) {
	if _, err := cw.hash.Write(p); err != nil {
		return 0, err
	}
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func (cw *checksumWriter) Sum() uint32 {
	return cw.hash.Sum32()
}

// checksumReader wraps an io.Reader and computes a running CRC32 checksum.
type checksumReader struct {
	r    io.Reader
	hash hash.Hash32
}

func newChecksumReader(r io.Reader) *checksumReader {
	return &checksumReader{
		r:    r,
		hash: crc32.New(crc32Table),
	}
}

// Read implements io.Reader.
func (cr *checksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		if _, hashErr := cr.hash.Write(p[:n]); hashErr != nil {
			return n, hashErr
		}
	}
	return n, err
}

// Verify checks the running checksum against expected.
func (cr *checksumReader) Verify(expected uint32) error {
	if actual := cr.hash.Sum32(); actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
