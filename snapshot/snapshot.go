package snapshot

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/codec"
	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/kdtree"
	"github.com/hupe1980/sitetree/median"
)

const (
	// Magic starts every snapshot.
	Magic = "SITE"
	// Version is the current format version.
	Version uint16 = 1
	// MaxSize bounds the encoded tree and the stored payload. Decode
	// rejects headers claiming more before allocating anything.
	MaxSize = 1 << 30

	maxCodecName = 255
)

// Info describes an encoded snapshot.
type Info struct {
	Version     uint16
	Codec       string
	Compression Compression
	// RawSize is the size of the encoded tree before compression.
	RawSize uint32
	// Size is the total number of bytes of the snapshot.
	Size     int64
	Checksum uint32
	Nodes    int
	Points   int
}

// Option configures Encode.
type Option func(*options)

type options struct {
	codec       codec.Codec
	compression Compression
}

// WithCodec sets the payload codec. Only built-in codecs can be decoded.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithCompression sets the payload compression.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

type treeDTO[T geom.Coordinate] struct {
	Coord    string            `json:"coord"`
	Dims     int               `json:"dims"`
	MinSize  int               `json:"min_size"`
	Years    balance.YearRange `json:"years"`
	StartDim int               `json:"start_dim"`
	Strategy string            `json:"strategy"`
	Nodes    []nodeDTO[T]      `json:"nodes"`
}

type nodeDTO[T geom.Coordinate] struct {
	ID        uint64          `json:"id"`
	Box       geom.Box[T]     `json:"box"`
	SplitDim  int             `json:"split_dim"`
	Depth     int             `json:"depth"`
	Size      int             `json:"size"`
	Left      int             `json:"left"`
	Right     int             `json:"right"`
	Median    *geom.Point[T]  `json:"median,omitempty"`
	Points    []geom.Point[T] `json:"points,omitempty"`
	Rows      []byte          `json:"rows,omitempty"`
	Reason    median.Reason   `json:"reason"`
	Deficient []int           `json:"deficient,omitempty"`
}

func coordName[T geom.Coordinate]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

func toDTO[T geom.Coordinate](t *kdtree.Tree[T]) (*treeDTO[T], error) {
	dto := &treeDTO[T]{
		Coord:    coordName[T](),
		Dims:     t.Dims,
		MinSize:  t.MinSize,
		Years:    t.Years,
		StartDim: t.StartDim,
		Strategy: t.Strategy,
		Nodes:    make([]nodeDTO[T], len(t.Nodes)),
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		d := nodeDTO[T]{
			ID:        n.ID,
			Box:       n.Box,
			SplitDim:  n.SplitDim,
			Depth:     n.Depth,
			Size:      n.Size,
			Left:      n.Left,
			Right:     n.Right,
			Median:    n.Median,
			Points:    n.Points,
			Reason:    n.Reason,
			Deficient: n.Deficient,
		}
		if n.Rows != nil {
			b, err := n.Rows.ToBytes()
			if err != nil {
				return nil, fmt.Errorf("snapshot: encode rows of node %d: %w", n.ID, err)
			}
			d.Rows = b
		}
		dto.Nodes[i] = d
	}
	return dto, nil
}

func fromDTO[T geom.Coordinate](dto *treeDTO[T]) (*kdtree.Tree[T], error) {
	t := &kdtree.Tree[T]{
		Dims:     dto.Dims,
		MinSize:  dto.MinSize,
		Years:    dto.Years,
		StartDim: dto.StartDim,
		Strategy: dto.Strategy,
		Nodes:    make([]kdtree.Node[T], len(dto.Nodes)),
	}
	for i, d := range dto.Nodes {
		n := kdtree.Node[T]{
			ID:        d.ID,
			Box:       d.Box,
			SplitDim:  d.SplitDim,
			Depth:     d.Depth,
			Size:      d.Size,
			Left:      d.Left,
			Right:     d.Right,
			Median:    d.Median,
			Points:    d.Points,
			Reason:    d.Reason,
			Deficient: d.Deficient,
		}
		if n.IsLeaf() {
			n.Rows = roaring.New()
			if len(d.Rows) > 0 {
				if err := n.Rows.UnmarshalBinary(d.Rows); err != nil {
					return nil, fmt.Errorf("snapshot: decode rows of node %d: %w", d.ID, err)
				}
			}
		}
		t.Nodes[i] = n
	}

	if err := t.Verify(); err != nil {
		return nil, err
	}
	return t, nil
}

// Encode writes t to w.
func Encode[T geom.Coordinate](w io.Writer, t *kdtree.Tree[T], opts ...Option) (Info, error) {
	o := options{codec: codec.Default, compression: CompressionNone}
	for _, opt := range opts {
		opt(&o)
	}

	name := o.codec.Name()
	if len(name) > maxCodecName {
		return Info{}, fmt.Errorf("%w: name too long", ErrUnknownCodec)
	}

	dto, err := toDTO(t)
	if err != nil {
		return Info{}, err
	}
	raw, err := o.codec.Marshal(dto)
	if err != nil {
		return Info{}, fmt.Errorf("snapshot: marshal: %w", err)
	}
	if len(raw) > MaxSize {
		return Info{}, fmt.Errorf("%w: encoded tree of %d bytes", ErrTooLarge, len(raw))
	}

	stored, err := compress(raw, o.compression)
	if err != nil {
		return Info{}, fmt.Errorf("snapshot: compress: %w", err)
	}
	payload := raw
	if stored != nil {
		payload = stored
	}

	cw := newChecksumWriter(w)

	hdr := make([]byte, 0, 4+2+1+1+len(name)+4+4)
	hdr = append(hdr, Magic...)
	hdr = binary.LittleEndian.AppendUint16(hdr, Version)
	hdr = append(hdr, byte(o.compression), byte(len(name)))
	hdr = append(hdr, name...)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(raw)))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(stored)))

	if _, err := cw.Write(hdr); err != nil {
		return Info{}, err
	}
	if _, err := cw.Write(payload); err != nil {
		return Info{}, err
	}

	sum := cw.Sum()
	if err := binary.Write(w, binary.LittleEndian, sum); err != nil {
		return Info{}, err
	}

	return Info{
		Version:     Version,
		Codec:       name,
		Compression: o.compression,
		RawSize:     uint32(len(raw)),
		Size:        cw.n + 4,
		Checksum:    sum,
		Nodes:       len(t.Nodes),
		Points:      t.Size(),
	}, nil
}

// Decode reads a snapshot from r and verifies it.
func Decode[T geom.Coordinate](r io.Reader) (*kdtree.Tree[T], Info, error) {
	var info Info
	cr := newChecksumReader(r)

	var fixed [8]byte
	if _, err := io.ReadFull(cr, fixed[:]); err != nil {
		return nil, info, fmt.Errorf("%w: header: %v", ErrTruncated, err)
	}
	if string(fixed[:4]) != Magic {
		return nil, info, ErrInvalidMagic
	}
	info.Version = binary.LittleEndian.Uint16(fixed[4:6])
	if info.Version == 0 || info.Version > Version {
		return nil, info, fmt.Errorf("%w: %d", ErrUnsupportedVersion, info.Version)
	}
	info.Compression = Compression(fixed[6])

	name := make([]byte, fixed[7])
	if _, err := io.ReadFull(cr, name); err != nil {
		return nil, info, fmt.Errorf("%w: codec name: %v", ErrTruncated, err)
	}
	info.Codec = string(name)
	c, ok := codec.ByName(info.Codec)
	if !ok {
		return nil, info, fmt.Errorf("%w: %q", ErrUnknownCodec, info.Codec)
	}

	var sizes [8]byte
	if _, err := io.ReadFull(cr, sizes[:]); err != nil {
		return nil, info, fmt.Errorf("%w: sizes: %v", ErrTruncated, err)
	}
	info.RawSize = binary.LittleEndian.Uint32(sizes[0:])
	storedSize := binary.LittleEndian.Uint32(sizes[4:])

	if info.RawSize > MaxSize || storedSize > MaxSize {
		return nil, info, fmt.Errorf("%w: header claims %d raw, %d stored bytes", ErrTooLarge, info.RawSize, storedSize)
	}

	n := info.RawSize
	if storedSize != 0 {
		n = storedSize
	}
	// ReadAll grows with the data actually present, so a short input never
	// costs the claimed size.
	payload, err := io.ReadAll(io.LimitReader(cr, int64(n)))
	if err != nil {
		return nil, info, fmt.Errorf("snapshot: read payload: %w", err)
	}
	if uint32(len(payload)) != n {
		return nil, info, fmt.Errorf("%w: payload has %d of %d bytes", ErrTruncated, len(payload), n)
	}

	var sum [4]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		return nil, info, fmt.Errorf("%w: checksum: %v", ErrTruncated, err)
	}
	info.Checksum = binary.LittleEndian.Uint32(sum[:])
	if err := cr.Verify(info.Checksum); err != nil {
		return nil, info, err
	}
	info.Size = int64(8+len(name)+8+len(payload)) + 4

	raw := payload
	if storedSize != 0 {
		if raw, err = decompress(payload, info.RawSize, info.Compression); err != nil {
			return nil, info, fmt.Errorf("snapshot: decompress: %w", err)
		}
	}

	var head struct {
		Coord string `json:"coord"`
	}
	if err := c.Unmarshal(raw, &head); err != nil {
		return nil, info, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	if want := coordName[T](); head.Coord != want {
		return nil, info, fmt.Errorf("%w: snapshot holds %s, want %s", ErrCoordinateType, head.Coord, want)
	}

	var dto treeDTO[T]
	if err := c.Unmarshal(raw, &dto); err != nil {
		return nil, info, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	t, err := fromDTO(&dto)
	if err != nil {
		return nil, info, err
	}

	info.Nodes = len(t.Nodes)
	info.Points = t.Size()
	return t, info, nil
}
