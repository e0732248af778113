package topology

import (
	"fmt"

	"sirsim/internal/model"
	"sirsim/internal/rng"
)

// Villages splits the population into equal contiguous blocks. Static
// neighbours are the other members of the same village; sampled contacts
// leak to a different village with the inter-village probability.
type Villages struct {
	n     int
	count int
	size  int
	leak  float64
}

func NewVillages(n, count int, interVillageProbability float64) (*Villages, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: village count must be > 0, got %d", model.ErrInvalidConfig, count)
	}
	if n%count != 0 {
		return nil, fmt.Errorf("%w: %d villages do not divide population %d evenly", model.ErrInvalidConfig, count, n)
	}
	if interVillageProbability < 0 || interVillageProbability > 1 {
		return nil, fmt.Errorf("%w: inter-village probability must be in [0,1], got %v", model.ErrInvalidConfig, interVillageProbability)
	}
	return &Villages{n: n, count: count, size: n / count, leak: interVillageProbability}, nil
}

func (v *Villages) Kind() Kind { return KindVillages }

func (v *Villages) Size() int { return v.n }

func (v *Villages) Groups() int { return v.count }

func (v *Villages) Group(i int) int { return i / v.size }

func (v *Villages) VillageSize() int { return v.size }

func (v *Villages) InterVillageProbability() float64 { return v.leak }

// Members returns the index range [lo, hi) of village g.
func (v *Villages) Members(g int) (lo, hi int) {
	return g * v.size, (g + 1) * v.size
}

func (v *Villages) Neighbors(i int) []int {
	out := make([]int, 0, v.size-1)
	v.ForEachNeighbor(i, func(j int) {
		out = append(out, j)
	})
	return out
}

func (v *Villages) ForEachNeighbor(i int, fn func(j int)) {
	lo, hi := v.Members(v.Group(i))
	for j := lo; j < hi; j++ {
		if j != i {
			fn(j)
		}
	}
}

// SampleContact always consumes one uniform draw for the leakage decision,
// then one draw for the village (leak only) and one for the member.
func (v *Villages) SampleContact(i int, src rng.Source) (int, bool) {
	own := v.Group(i)
	u := src.Float64()
	if v.count > 1 && u < v.leak {
		other := src.IntN(v.count - 1)
		if other >= own {
			other++
		}
		return other*v.size + src.IntN(v.size), true
	}
	if v.size < 2 {
		return 0, false
	}
	local := i - own*v.size
	k := src.IntN(v.size - 1)
	if k >= local {
		k++
	}
	return own*v.size + k, true
}
