package sitecsv

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/hupe1980/sitetree/geom"
	"github.com/hupe1980/sitetree/kdtree"
)

// Writer writes leaf assignment rows.
type Writer[T geom.Coordinate] struct {
	w      *csv.Writer
	record []string
	rows   int
	// attrs is the attribute column count of the header, or -1 before
	// WriteHeader.
	attrs int
}

// NewWriter returns a Writer on w.
func NewWriter[T geom.Coordinate](w io.Writer) *Writer[T] {
	return &Writer[T]{w: csv.NewWriter(w), attrs: -1}
}

// WriteHeader writes a header row for points with attrs attributes and dims
// coordinates. Later rows with fewer attributes are padded with empty fields.
func (w *Writer[T]) WriteHeader(attrs, dims int) error {
	w.attrs = attrs
	header := []string{"leaf_id", "year"}
	for i := 0; i < attrs; i++ {
		header = append(header, fmt.Sprintf("attr_%d", i))
	}
	for i := 0; i < dims; i++ {
		header = append(header, fmt.Sprintf("x_%d", i))
	}
	return w.w.Write(header)
}

// Write writes one row. Call Flush when done.
func (w *Writer[T]) Write(lp kdtree.LeafPoint[T]) error {
	p := lp.Point

	rec := w.record[:0]
	rec = append(rec, fmt.Sprint(lp.LeafID), fmt.Sprint(p.Year))
	rec = append(rec, p.Attributes...)
	if w.attrs >= 0 {
		if len(p.Attributes) > w.attrs {
			return fmt.Errorf("%w: row has %d attributes, header has %d", ErrAttributeCount, len(p.Attributes), w.attrs)
		}
		for i := len(p.Attributes); i < w.attrs; i++ {
			rec = append(rec, "")
		}
	}
	for _, c := range p.Coords {
		rec = append(rec, fmt.Sprint(c))
	}
	w.record = rec

	if err := w.w.Write(rec); err != nil {
		return err
	}
	w.rows++
	return nil
}

// Flush writes buffered rows and reports any write error.
func (w *Writer[T]) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// Rows returns the number of rows written, excluding the header.
func (w *Writer[T]) Rows() int { return w.rows }

// WriteLeafPoints writes every point of tree in leaf order and flushes.
func (w *Writer[T]) WriteLeafPoints(tree *kdtree.Tree[T]) error {
	return w.writeAll(tree.LeafPoints())
}

// WriteInputOrder writes every point of tree in input order and flushes.
func (w *Writer[T]) WriteInputOrder(tree *kdtree.Tree[T]) error {
	return w.writeAll(tree.InputOrder())
}

func (w *Writer[T]) writeAll(lps []kdtree.LeafPoint[T]) error {
	for _, lp := range lps {
		if err := w.Write(lp); err != nil {
			return err
		}
	}
	return w.Flush()
}
