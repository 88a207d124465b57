package clustering

import (
	"fmt"
	"math"

	"complexome/pkg/contracts/domain"
)

// dendrogram is a binary tree over n leaves built from a linkage. Node ids
// below n are leaves; node n+k is created by merge k. Every node covers the
// contiguous range [start, end) of positions in the initial left-to-right
// leaf order, and its left child always comes first.
type dendrogram struct {
	n           int
	left, right []int
	start, end  []int
	order       []int
}

func newDendrogram(merges []domain.Merge, n int) (*dendrogram, error) {
	if len(merges) != n-1 {
		return nil, fmt.Errorf("linkage has %d merges, expected %d", len(merges), n-1)
	}
	total := 2*n - 1
	t := &dendrogram{
		n:     n,
		left:  make([]int, total),
		right: make([]int, total),
		start: make([]int, total),
		end:   make([]int, total),
		order: make([]int, 0, n),
	}
	for i := range t.left {
		t.left[i], t.right[i] = -1, -1
	}
	for k, m := range merges {
		node := n + k
		if m.Left < 0 || m.Left >= node || m.Right < 0 || m.Right >= node {
			return nil, fmt.Errorf("merge %d refers to a cluster that does not exist yet", k)
		}
		t.left[node], t.right[node] = m.Left, m.Right
	}

	// iterative pre-order walk assigning leaf ranges
	type frame struct {
		node    int
		visited bool
	}
	stack := []frame{{node: total - 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.node < n {
			t.start[f.node] = len(t.order)
			t.order = append(t.order, f.node)
			t.end[f.node] = len(t.order)
			continue
		}
		if f.visited {
			t.end[f.node] = len(t.order)
			continue
		}
		t.start[f.node] = len(t.order)
		stack = append(stack, frame{node: f.node, visited: true}, frame{node: t.right[f.node]}, frame{node: t.left[f.node]})
	}
	if len(t.order) != n {
		return nil, fmt.Errorf("linkage does not cover all %d observations", n)
	}
	return t, nil
}

func (t *dendrogram) isLeaf(node int) bool {
	return node < t.n
}

// far returns the position range of the leaves of node that may end a
// sub-order starting at position p: the other child's range, or p itself
// for a single leaf
func (t *dendrogram) far(node, p int) (int, int) {
	if t.isLeaf(node) {
		return p, p + 1
	}
	l, r := t.left[node], t.right[node]
	if p < t.end[l] {
		return t.start[r], t.end[r]
	}
	return t.start[l], t.end[l]
}

// rowOffset gives the condensed index of (i, j), i < j, as rowOffset(n, i) + j
func rowOffset(n, i int) int {
	return n*i - i*(i+1)/2 - i - 1
}

// positionCost reads a symmetric condensed matrix over leaf positions
func positionCost(m []float64, n, p, q int) float64 {
	if p == q {
		return 0
	}
	if p > q {
		p, q = q, p
	}
	return m[rowOffset(n, p)+q]
}

// minPlus returns min over k of a[k] + b[k]
func minPlus(a, b []float64) float64 {
	best := math.Inf(1)
	for k, v := range a {
		if c := v + b[k]; c < best {
			best = c
		}
	}
	return best
}

func grow(buf []float64, size int) []float64 {
	if cap(buf) < size {
		return make([]float64, size)
	}
	return buf[:size]
}

// OptimalLeafOrder returns the leaf order, consistent with the dendrogram,
// that minimises the sum of distances between adjacent leaves
func OptimalLeafOrder(merges []domain.Merge, condensed []float64, n int) ([]int, error) {
	if n == 1 {
		return []int{0}, nil
	}
	if len(condensed) != n*(n-1)/2 {
		return nil, fmt.Errorf("condensed matrix has %d entries, expected %d", len(condensed), n*(n-1)/2)
	}
	t, err := newDendrogram(merges, n)
	if err != nil {
		return nil, err
	}

	// m starts as the distances between leaf positions. Once a merge is
	// processed, its left x right block holds the cheapest cost of a
	// sub-order of the merge running from one leaf to the other. Blocks of
	// different merges never overlap.
	m := make([]float64, len(condensed))
	for p := 0; p < n; p++ {
		off := rowOffset(n, p)
		for q := p + 1; q < n; q++ {
			m[off+q] = condensed[condensedIndex(n, t.order[p], t.order[q])]
		}
	}

	var best, cross []float64
	for k := 0; k < n-1; k++ {
		node := n + k
		l, r := t.left[node], t.right[node]
		a, b, c := t.start[l], t.start[r], t.end[r]
		nl, nr := b-a, c-b

		// best[i*nr+j]: cheapest run from a+i through l that steps onto b+j
		best = grow(best, nl*nr)
		for i := 0; i < nl; i++ {
			u := a + i
			row := best[i*nr : (i+1)*nr]
			for j := range row {
				row[j] = math.Inf(1)
			}
			fs, fe := t.far(l, u)
			for mm := fs; mm < fe; mm++ {
				base := positionCost(m, n, u, mm)
				off := rowOffset(n, mm)
				for j, d := range m[off+b : off+c] {
					if v := base + d; v < row[j] {
						row[j] = v
					}
				}
			}
		}

		if t.isLeaf(r) {
			for i := 0; i < nl; i++ {
				m[rowOffset(n, a+i)+b] = best[i*nr]
			}
			continue
		}

		// r splits into [b, y) and [y, c); a run ending in one half enters
		// r from the other
		y := t.end[t.left[r]]
		n1, n2 := y-b, c-y
		cross = grow(cross, n2*n1)
		for kk := b; kk < y; kk++ {
			off := rowOffset(n, kk)
			for w, v := range m[off+y : off+c] {
				cross[w*n1+kk-b] = v
			}
		}
		for i := 0; i < nl; i++ {
			row := best[i*nr : (i+1)*nr]
			off := rowOffset(n, a+i)
			out := m[off+b : off+c]
			for w := b; w < y; w++ {
				wo := rowOffset(n, w)
				out[w-b] = minPlus(row[n1:], m[wo+y:wo+c])
			}
			for w := y; w < c; w++ {
				out[w-b] = minPlus(row[:n1], cross[(w-y)*n1:(w-y+1)*n1])
			}
		}
	}

	root := 2*n - 2
	split := t.start[t.right[root]]
	bestU, bestW, bestCost := -1, -1, math.Inf(1)
	for u := 0; u < split; u++ {
		off := rowOffset(n, u)
		for w := split; w < n; w++ {
			if c := m[off+w]; c < bestCost {
				bestU, bestW, bestCost = u, w, c
			}
		}
	}

	order := make([]int, 0, n)
	t.walk(root, bestU, bestW, condensed, m, &order)
	return order, nil
}

// walk appends the optimal sub-order of node running from position u to
// position w
func (t *dendrogram) walk(node, u, w int, condensed, m []float64, order *[]int) {
	if t.isLeaf(node) {
		*order = append(*order, t.order[u])
		return
	}

	n := t.n
	first, second := t.left[node], t.right[node]
	if u >= t.end[first] {
		first, second = second, first
	}

	target := positionCost(m, n, u, w)
	fs, fe := t.far(first, u)
	ks, ke := t.far(second, w)
	bestM, bestK, bestCost := -1, -1, math.Inf(1)
search:
	for mm := fs; mm < fe; mm++ {
		head := positionCost(m, n, u, mm)
		for kk := ks; kk < ke; kk++ {
			c := head + condensed[condensedIndex(n, t.order[mm], t.order[kk])] + positionCost(m, n, kk, w)
			if c < bestCost {
				bestM, bestK, bestCost = mm, kk, c
			}
			if c == target {
				break search
			}
		}
	}

	t.walk(first, u, bestM, condensed, m, order)
	t.walk(second, bestK, w, condensed, m, order)
}

// DendrogramOrder returns the left-to-right leaf order of the linkage
// without reordering
func DendrogramOrder(merges []domain.Merge, n int) ([]int, error) {
	if n == 1 {
		return []int{0}, nil
	}
	t, err := newDendrogram(merges, n)
	if err != nil {
		return nil, err
	}
	return append([]int(nil), t.order...), nil
}

// adjacentCost sums distances between neighbouring leaves of an order
func adjacentCost(order []int, condensed []float64, n int) float64 {
	var total float64
	for i := 1; i < len(order); i++ {
		total += condensed[condensedIndex(n, order[i-1], order[i])]
	}
	return total
}
