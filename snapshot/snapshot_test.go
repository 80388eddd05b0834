package snapshot

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/codec"
	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/kdtree"
	"github.com/hupe1980/sitetree/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T, n int) *kdtree.Tree[float64] {
	t.Helper()
	rng := testutil.NewRNG(99)
	tree, err := kdtree.Build(rng.UniformSites(n, 2, 2001, 2003), kdtree.Config{
		Dims: 2, MinSize: 3, Years: balance.YearRange{Min: 2001, Max: 2003},
	})
	require.NoError(t, err)
	return tree
}

func assertSameTree(t *testing.T, want, got *kdtree.Tree[float64]) {
	t.Helper()
	assert.Equal(t, want.Config(), got.Config())
	assert.Equal(t, want.Strategy, got.Strategy)
	require.Len(t, got.Nodes, len(want.Nodes))
	for i := range want.Nodes {
		w, g := &want.Nodes[i], &got.Nodes[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Box, g.Box)
		assert.Equal(t, w.Left, g.Left)
		assert.Equal(t, w.Right, g.Right)
		assert.Equal(t, w.Median, g.Median)
		assert.Equal(t, w.Reason, g.Reason)
		assert.Equal(t, w.Deficient, g.Deficient)
		if w.IsLeaf() {
			assert.True(t, w.Rows.Equals(g.Rows))
		}
	}
	assert.Equal(t, want.LeafPoints(), got.LeafPoints())
}

func TestEncodeDecode(t *testing.T) {
	tree := buildTree(t, 400)

	tests := []struct {
		name        string
		codec       codec.Codec
		compression Compression
	}{
		{"GoJSON/None", codec.GoJSON{}, CompressionNone},
		{"GoJSON/LZ4", codec.GoJSON{}, CompressionLZ4},
		{"JSON/Zstd", codec.JSON{}, CompressionZstd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			info, err := Encode(&buf, tree, WithCodec(tt.codec), WithCompression(tt.compression))
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), info.Size)
			assert.Equal(t, tt.codec.Name(), info.Codec)
			assert.Equal(t, 400, info.Points)

			if tt.compression == CompressionZstd {
				assert.Less(t, info.Size, int64(info.RawSize))
			}

			got, dinfo, err := Decode[float64](&buf)
			require.NoError(t, err)
			assert.Equal(t, info.Checksum, dinfo.Checksum)
			assert.Equal(t, info.Size, dinfo.Size)
			assert.Equal(t, tt.compression, dinfo.Compression)
			assertSameTree(t, tree, got)
		})
	}
}

func TestDecode_EmptyTree(t *testing.T) {
	tree, err := kdtree.Build[float32](nil, kdtree.Config{Dims: 3, MinSize: 1, Years: balance.YearRange{Min: 1, Max: 2}})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = Encode(&buf, tree)
	require.NoError(t, err)

	got, info, err := Decode[float32](&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Points)
	assert.Equal(t, tree.Root().Box, got.Root().Box)
	assert.True(t, got.Root().Rows.IsEmpty())
	assert.Equal(t, []int{1, 2}, got.Root().Deficient)
}

func TestDecode_Errors(t *testing.T) {
	tree := buildTree(t, 50)
	var buf bytes.Buffer
	_, err := Encode(&buf, tree, WithCompression(CompressionZstd))
	require.NoError(t, err)
	good := buf.Bytes()

	corrupt := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return f(b)
	}

	tests := []struct {
		name  string
		input []byte
		check func(t *testing.T, err error)
	}{
		{"Magic", corrupt(func(b []byte) []byte { b[0] = 'X'; return b }), func(t *testing.T, err error) {
			require.ErrorIs(t, err, ErrInvalidMagic)
		}},
		{"Version", corrupt(func(b []byte) []byte { b[4] = 9; return b }), func(t *testing.T, err error) {
			require.ErrorIs(t, err, ErrUnsupportedVersion)
		}},
		{"Codec", corrupt(func(b []byte) []byte { b[8] = 'x'; return b }), func(t *testing.T, err error) {
			require.ErrorIs(t, err, ErrUnknownCodec)
		}},
		{"Truncated", good[:len(good)-10], func(t *testing.T, err error) {
			require.ErrorIs(t, err, ErrTruncated)
		}},
		{"Checksum", corrupt(func(b []byte) []byte { b[len(b)-8] ^= 0xff; return b }), func(t *testing.T, err error) {
			require.True(t, IsChecksumMismatch(err))
		}},
		{"ClaimedSizeBeyondInput", corrupt(func(b []byte) []byte {
			off := 8 + int(b[7]) + 4
			binary.LittleEndian.PutUint32(b[off:], MaxSize)
			return b
		}), func(t *testing.T, err error) {
			require.ErrorIs(t, err, ErrTruncated)
		}},
		{"ClaimedSizeOverLimit", corrupt(func(b []byte) []byte {
			off := 8 + int(b[7])
			binary.LittleEndian.PutUint32(b[off:], MaxSize+1)
			return b
		}), func(t *testing.T, err error) {
			require.ErrorIs(t, err, ErrTooLarge)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode[float64](bytes.NewReader(tt.input))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestDecode_CoordinateType(t *testing.T) {
	tree := buildTree(t, 20)
	var buf bytes.Buffer
	_, err := Encode(&buf, tree)
	require.NoError(t, err)

	_, _, err = Decode[int32](&buf)
	require.ErrorIs(t, err, ErrCoordinateType)
}

func TestDecode_RejectsStructurallyCorruptTree(t *testing.T) {
	tree := buildTree(t, 100)
	leaf := tree.Node(tree.Leaves()[0])
	leaf.Points[0] = geom.Point[float64]{Coords: []float64{50, 50}, Year: leaf.Points[0].Year}

	var buf bytes.Buffer
	_, err := Encode(&buf, tree)
	require.NoError(t, err)

	_, _, err = Decode[float64](&buf)
	require.ErrorIs(t, err, kdtree.ErrCorrupt)
}

func TestEncode_UnknownCompression(t *testing.T) {
	var buf bytes.Buffer
	_, err := Encode(&buf, buildTree(t, 10), WithCompression(Compression(7)))
	require.ErrorIs(t, err, ErrUnknownCompression)
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseCompression("brotli")
	require.ErrorIs(t, err, ErrUnknownCompression)
}
