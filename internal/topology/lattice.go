package topology

import "sirsim/internal/rng"

// Lattice is a rows x cols grid with von Neumann (up/down/left/right)
// neighbourhoods. Agent index = row*cols + col. With wrap the grid is a torus,
// otherwise edge and corner cells have fewer neighbours.
type Lattice struct {
	rows, cols int
	wrap       bool
	adj        [][]int
}

func NewLattice(rows, cols int, wrap bool) *Lattice {
	l := &Lattice{rows: rows, cols: cols, wrap: wrap}
	l.adj = make([][]int, rows*cols)
	offsets := [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := l.Index(r, c)
			neighbors := make([]int, 0, 4)
			for _, off := range offsets {
				nr, nc := r+off[0], c+off[1]
				if wrap {
					nr = (nr + rows) % rows
					nc = (nc + cols) % cols
				} else if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
					continue
				}
				j := l.Index(nr, nc)
				if j == i || containsIndex(neighbors, j) {
					continue
				}
				neighbors = append(neighbors, j)
			}
			l.adj[i] = neighbors
		}
	}
	return l
}

func (l *Lattice) Kind() Kind { return KindLattice }

func (l *Lattice) Size() int { return l.rows * l.cols }

func (l *Lattice) Rows() int { return l.rows }

func (l *Lattice) Cols() int { return l.cols }

func (l *Lattice) Wraps() bool { return l.wrap }

func (l *Lattice) Index(row, col int) int {
	return row*l.cols + col
}

func (l *Lattice) Coord(i int) (row, col int) {
	return i / l.cols, i % l.cols
}

func (l *Lattice) Neighbors(i int) []int {
	return append([]int(nil), l.adj[i]...)
}

func (l *Lattice) ForEachNeighbor(i int, fn func(j int)) {
	for _, j := range l.adj[i] {
		fn(j)
	}
}

func (l *Lattice) SampleContact(i int, src rng.Source) (int, bool) {
	neighbors := l.adj[i]
	if len(neighbors) == 0 {
		return 0, false
	}
	return neighbors[src.IntN(len(neighbors))], true
}

func containsIndex(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
