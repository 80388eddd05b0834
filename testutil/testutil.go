package testutil

import (
	"fmt"
	"math/rand/v2"

	"github.com/hupe1980/sitetree/geom"
)

// RNG generates deterministic synthetic survey sites. It is not safe for
// concurrent use; give each goroutine its own seed.
type RNG struct {
	r *rand.Rand
}

// NewRNG returns a generator seeded with seed. Equal seeds yield equal sites.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), 0x5173))}
}

// UniformSites returns num sites with coordinates uniform in [0, 1) and years
// uniform in [minYear, maxYear].
func (g *RNG) UniformSites(num, dims, minYear, maxYear int) []geom.Point[float64] {
	return g.generate(num, dims, func(int) float64 { return g.r.Float64() }, g.randomYear(minYear, maxYear))
}

// GridSites snaps every coordinate to one of steps integer values, which
// produces long runs of equal keys.
func (g *RNG) GridSites(num, dims, steps, minYear, maxYear int) []geom.Point[float64] {
	return g.generate(num, dims, func(int) float64 { return float64(g.r.IntN(steps)) }, g.randomYear(minYear, maxYear))
}

// RoundRobinSites assigns years cyclically, so each year holds num/span sites
// give or take one.
func (g *RNG) RoundRobinSites(num, dims, minYear, maxYear int) []geom.Point[float64] {
	span := maxYear - minYear + 1
	return g.generate(num, dims, func(int) float64 { return g.r.Float64() }, func(i int) int {
		return minYear + i%span
	})
}

// ClusteredSites scatters sites normally around k random centers. Each
// cluster is surveyed in a single year, which makes balanced splits hard.
func (g *RNG) ClusteredSites(num, dims, k, minYear, maxYear int) []geom.Point[float64] {
	centers := make([][]float64, k)
	years := make([]int, k)
	for c := range centers {
		centers[c] = make([]float64, dims)
		for d := range centers[c] {
			centers[c][d] = g.r.Float64() * 100
		}
		years[c] = minYear + g.r.IntN(maxYear-minYear+1)
	}

	owner := make([]int, num)
	for i := range owner {
		owner[i] = g.r.IntN(k)
	}

	pts := g.generate(num, dims, nil, func(i int) int { return years[owner[i]] })
	for i := range pts {
		for d := range pts[i].Coords {
			pts[i].Coords[d] = centers[owner[i]][d] + g.r.NormFloat64()
		}
	}
	return pts
}

func (g *RNG) randomYear(minYear, maxYear int) func(int) int {
	span := maxYear - minYear + 1
	return func(int) int { return minYear + g.r.IntN(span) }
}

// generate lays all coordinates out in one backing slice. coord may be nil
// when the caller fills coordinates afterwards.
func (g *RNG) generate(num, dims int, coord func(int) float64, year func(int) int) []geom.Point[float64] {
	backing := make([]float64, num*dims)
	pts := make([]geom.Point[float64], num)
	for i := range pts {
		c := backing[i*dims : (i+1)*dims : (i+1)*dims]
		if coord != nil {
			for d := range c {
				c[d] = coord(d)
			}
		}
		pts[i] = geom.Point[float64]{
			Coords:     c,
			Year:       year(i),
			Attributes: []string{fmt.Sprintf("site-%04d", i), fmt.Sprintf("plot-%d", g.r.IntN(1000))},
		}
	}
	return pts
}
