package kdtree

import (
	"fmt"

	"github.com/hupe1980/sitetree/balance"
)

// Config holds the parameters of a build.
type Config struct {
	// Dims is the number of coordinates of every point.
	Dims int `json:"dims"`
	// MinSize is the minimum number of points per year on every side of a split.
	MinSize int `json:"min_size"`
	// Years is the inclusive range of survey years.
	Years balance.YearRange `json:"years"`
	// StartDim is the split dimension of the root.
	StartDim int `json:"start_dim"`
	// MaxDepth limits the depth of the tree; zero means unlimited.
	MaxDepth int `json:"max_depth,omitempty"`
}

// Validate reports the first configuration error.
func (c Config) Validate() error {
	if c.Dims < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidDimensions, c.Dims)
	}
	if err := c.Years.Validate(); err != nil {
		return err
	}
	if c.MinSize < 0 {
		return fmt.Errorf("%w: %d", balance.ErrNegativeMinSize, c.MinSize)
	}
	if c.StartDim < 0 || c.StartDim >= c.Dims {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidStartDimension, c.StartDim, c.Dims)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxDepth, c.MaxDepth)
	}
	return nil
}

// nextDim returns the round-robin successor of d.
func (c Config) nextDim(d int) int {
	return (d + 1) % c.Dims
}
