package topology

import "sirsim/internal/rng"

// Complete is the all-to-all contact graph.
type Complete struct {
	n int
}

func NewComplete(n int) *Complete {
	return &Complete{n: n}
}

func (c *Complete) Kind() Kind { return KindComplete }

func (c *Complete) Size() int { return c.n }

func (c *Complete) Neighbors(i int) []int {
	out := make([]int, 0, c.n-1)
	c.ForEachNeighbor(i, func(j int) {
		out = append(out, j)
	})
	return out
}

func (c *Complete) ForEachNeighbor(i int, fn func(j int)) {
	for j := 0; j < c.n; j++ {
		if j != i {
			fn(j)
		}
	}
}

func (c *Complete) SampleContact(i int, src rng.Source) (int, bool) {
	if c.n < 2 {
		return 0, false
	}
	j := src.IntN(c.n - 1)
	if j >= i {
		j++
	}
	return j, true
}
