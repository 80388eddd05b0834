package kdtree

import (
	"fmt"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/sitetree/balance"
	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/median"
)

// Observer is notified while a tree is built.
type Observer interface {
	// OnSplit is called for every internal node.
	OnSplit(id uint64, depth, dim, size, index int)
	// OnLeaf is called for every leaf. deficient lists the years that
	// blocked the split for the deficiency reasons and is nil otherwise.
	OnLeaf(id uint64, depth, size int, reason median.Reason, deficient []int)
}

type noopObserver struct{}

func (noopObserver) OnSplit(uint64, int, int, int, int)             {}
func (noopObserver) OnLeaf(uint64, int, int, median.Reason, []int) {}

// BuilderOption configures a Builder.
type BuilderOption[T geom.Coordinate] func(*Builder[T])

// WithStrategy sets the median strategy. The strategy must be bound to a
// validator with the builder's years and minimum size.
func WithStrategy[T geom.Coordinate](s median.Strategy[T]) BuilderOption[T] {
	return func(b *Builder[T]) {
		b.strategy = s
	}
}

// WithSequence sets the node id sequence.
func WithSequence[T geom.Coordinate](seq *Sequence) BuilderOption[T] {
	return func(b *Builder[T]) {
		b.seq = seq
	}
}

// WithObserver sets the build observer.
func WithObserver[T geom.Coordinate](o Observer) BuilderOption[T] {
	return func(b *Builder[T]) {
		b.observer = o
	}
}

// Builder constructs trees for one configuration.
type Builder[T geom.Coordinate] struct {
	cfg       Config
	validator *balance.Validator[T]
	strategy  median.Strategy[T]
	seq       *Sequence
	observer  Observer
}

// NewBuilder validates cfg and returns a Builder. Without options it uses the
// Sorted strategy, a fresh Sequence starting at 0 and no observer.
func NewBuilder[T geom.Coordinate](cfg Config, opts ...BuilderOption[T]) (*Builder[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	v, err := balance.NewValidator[T](cfg.Years, cfg.MinSize)
	if err != nil {
		return nil, err
	}

	b := &Builder[T]{
		cfg:       cfg,
		validator: v,
		observer:  noopObserver{},
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.strategy == nil {
		b.strategy = median.NewSorted(v)
	}
	if b.seq == nil {
		b.seq = NewSequence(0)
	}
	return b, nil
}

// Config returns the builder configuration.
func (b *Builder[T]) Config() Config { return b.cfg }

// Validator returns the validator derived from the configuration.
func (b *Builder[T]) Validator() *balance.Validator[T] { return b.validator }

// frame is a pending node on the build stack.
type frame struct {
	lo, hi int
	dim    int
	depth  int
	parent int
	right  bool
}

// Build partitions points into a tree. The points themselves are not
// modified; the tree holds shallow copies that share coordinate storage with
// the input.
//
// Points whose dimension differs from the configuration are rejected with an
// error. A point whose year lies outside the configured range is a contract
// violation and panics with a *balance.YearOutOfRangeError.
func (b *Builder[T]) Build(points []geom.Point[T]) (*Tree[T], error) {
	if uint64(len(points)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyPoints, len(points))
	}
	for _, p := range points {
		if p.Dim() != b.cfg.Dims {
			return nil, &geom.DimensionError{Expected: b.cfg.Dims, Actual: p.Dim()}
		}
	}

	pts := make([]geom.Point[T], len(points))
	copy(pts, points)
	rows := make([]uint32, len(points))
	for i := range rows {
		rows[i] = uint32(i)
	}
	run := median.Run[T]{Points: pts, Rows: rows}

	tree := &Tree[T]{
		Dims:     b.cfg.Dims,
		Years:    b.cfg.Years,
		MinSize:  b.cfg.MinSize,
		StartDim: b.cfg.StartDim,
		Strategy: b.strategy.Name(),
	}

	stack := []frame{{lo: 0, hi: len(pts), dim: b.cfg.StartDim, parent: NoChild}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx := len(tree.Nodes)
		tree.Nodes = append(tree.Nodes, Node[T]{
			ID:       b.seq.Next(),
			Box:      boundingBox(b.cfg.Dims, pts[f.lo:f.hi]),
			SplitDim: f.dim,
			Depth:    f.depth,
			Size:     f.hi - f.lo,
			Left:     NoChild,
			Right:    NoChild,
		})
		if f.parent != NoChild {
			if f.right {
				tree.Nodes[f.parent].Right = idx
			} else {
				tree.Nodes[f.parent].Left = idx
			}
		}
		n := &tree.Nodes[idx]

		sub := run.Slice(f.lo, f.hi)
		split, reason := b.strategy.Split(sub, f.dim)
		if !reason.Accepted() {
			makeLeaf(n, sub, reason, split.Deficient)
			b.observer.OnLeaf(n.ID, n.Depth, n.Size, reason, n.Deficient)
			continue
		}

		if b.cfg.MaxDepth > 0 && f.depth >= b.cfg.MaxDepth {
			return nil, &TooDeepError{MaxDepth: b.cfg.MaxDepth, NodeID: n.ID, Size: n.Size}
		}

		m := split.Median.Clone()
		n.Median = &m
		b.observer.OnSplit(n.ID, n.Depth, f.dim, n.Size, split.Index)

		mid := f.lo + split.Index
		next := b.cfg.nextDim(f.dim)
		// Right is pushed first so that the left subtree is built, and
		// numbered, first.
		stack = append(stack,
			frame{lo: mid, hi: f.hi, dim: next, depth: f.depth + 1, parent: idx, right: true},
			frame{lo: f.lo, hi: mid, dim: next, depth: f.depth + 1, parent: idx},
		)
	}

	return tree, nil
}

// Build is a convenience wrapper that builds points with a fresh Builder.
func Build[T geom.Coordinate](points []geom.Point[T], cfg Config, opts ...BuilderOption[T]) (*Tree[T], error) {
	b, err := NewBuilder[T](cfg, opts...)
	if err != nil {
		return nil, err
	}
	return b.Build(points)
}

// makeLeaf stores the run in n, restoring input order so that Points lines
// up with the iteration order of Rows.
func makeLeaf[T geom.Coordinate](n *Node[T], run median.Run[T], reason median.Reason, deficient []int) {
	sort.Sort(byRow[T](run))

	n.Points = make([]geom.Point[T], run.Len())
	copy(n.Points, run.Points)
	n.Rows = roaring.New()
	n.Rows.AddMany(run.Rows)
	n.Rows.RunOptimize()
	n.Reason = reason
	n.Deficient = deficient
}

type byRow[T geom.Coordinate] median.Run[T]

func (r byRow[T]) Len() int           { return len(r.Points) }
func (r byRow[T]) Less(i, j int) bool { return r.Rows[i] < r.Rows[j] }
func (r byRow[T]) Swap(i, j int)      { median.Run[T](r).Swap(i, j) }

func boundingBox[T geom.Coordinate](dims int, points []geom.Point[T]) geom.Box[T] {
	box := geom.NewBox[T](dims)
	for _, p := range points {
		box.Extend(p)
	}
	return box
}
