package clustering

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"sort"

	"complexome/pkg/contracts/domain"
)

// Linkage method names, matching SciPy's linkage
const (
	MethodSingle   = "single"
	MethodComplete = "complete"
	MethodAverage  = "average"
	MethodWeighted = "weighted"
	MethodCentroid = "centroid"
	MethodMedian   = "median"
	MethodWard     = "ward"
)

var ErrUnknownMethod = errors.New("unknown linkage method")

// updateFunc is a Lance-Williams update: the distance from cluster x to the
// union of a and b, given d(a,x), d(b,x), d(a,b) and the cluster sizes
type updateFunc func(dax, dbx, dab, na, nb, nx float64) float64

func lanceWilliams(method string) (updateFunc, error) {
	switch method {
	case MethodSingle:
		return func(dax, dbx, _, _, _, _ float64) float64 {
			return math.Min(dax, dbx)
		}, nil
	case MethodComplete:
		return func(dax, dbx, _, _, _, _ float64) float64 {
			return math.Max(dax, dbx)
		}, nil
	case MethodAverage:
		return func(dax, dbx, _, na, nb, _ float64) float64 {
			return (na*dax + nb*dbx) / (na + nb)
		}, nil
	case MethodWeighted:
		return func(dax, dbx, _, _, _, _ float64) float64 {
			return (dax + dbx) / 2
		}, nil
	case MethodWard:
		return func(dax, dbx, dab, na, nb, nx float64) float64 {
			t := 1 / (na + nb + nx)
			return math.Sqrt(math.Max(0, (na+nx)*t*dax*dax+(nb+nx)*t*dbx*dbx-nx*t*dab*dab))
		}, nil
	case MethodCentroid:
		return func(dax, dbx, dab, na, nb, _ float64) float64 {
			s := na + nb
			return math.Sqrt(math.Max(0, (na*dax*dax+nb*dbx*dbx)/s-na*nb*dab*dab/(s*s)))
		}, nil
	case MethodMedian:
		return func(dax, dbx, dab, _, _, _ float64) float64 {
			return math.Sqrt(math.Max(0, dax*dax/2+dbx*dbx/2-dab*dab/4))
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

// Linkage performs agglomerative clustering of n observations from their
// condensed distances. The result follows SciPy's linkage matrix: merge k
// creates cluster n+k, Left < Right, and Size counts original observations.
func Linkage(condensed []float64, n int, method string) ([]domain.Merge, error) {
	if n < 1 {
		return nil, ErrEmptyInput
	}
	if len(condensed) != n*(n-1)/2 {
		return nil, fmt.Errorf("condensed matrix has %d entries, expected %d for %d observations", len(condensed), n*(n-1)/2, n)
	}
	for _, d := range condensed {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w in distance matrix", ErrNonFinite)
		}
	}
	update, err := lanceWilliams(method)
	if err != nil {
		return nil, err
	}
	if n == 1 {
		return []domain.Merge{}, nil
	}

	dist := append([]float64(nil), condensed...)
	switch method {
	case MethodCentroid, MethodMedian:
		return labelMerges(genericLinkage(dist, n, update), n), nil
	default:
		return labelMerges(nnChain(dist, n, update), n), nil
	}
}

// nnChain runs the nearest-neighbour chain algorithm, valid for reducible
// methods. Merges are returned in creation order with observation indices:
// the merged cluster takes the index of the larger member.
func nnChain(dist []float64, n int, update updateFunc) []domain.Merge {
	size := make([]float64, n)
	for i := range size {
		size[i] = 1
	}
	merges := make([]domain.Merge, 0, n-1)
	chain := make([]int, 0, n)

	for k := 0; k < n-1; k++ {
		if len(chain) == 0 {
			for i := 0; i < n; i++ {
				if size[i] > 0 {
					chain = append(chain, i)
					break
				}
			}
		}

		var x, y int
		var current float64
		for {
			x = chain[len(chain)-1]
			current = math.Inf(1)
			if len(chain) > 1 {
				y = chain[len(chain)-2]
				current = dist[condensedIndex(n, x, y)]
			}
			for i := 0; i < n; i++ {
				if size[i] == 0 || i == x {
					continue
				}
				if d := dist[condensedIndex(n, x, i)]; d < current {
					current = d
					y = i
				}
			}
			if len(chain) > 1 && y == chain[len(chain)-2] {
				break
			}
			chain = append(chain, y)
		}
		chain = chain[:len(chain)-2]

		if x > y {
			x, y = y, x
		}
		nx, ny := size[x], size[y]
		merges = append(merges, domain.Merge{Left: x, Right: y, Height: current, Size: int(nx + ny)})

		size[x] = 0
		size[y] = nx + ny
		for i := 0; i < n; i++ {
			if size[i] == 0 || i == y {
				continue
			}
			dxi := condensedIndex(n, x, i)
			dyi := condensedIndex(n, y, i)
			dist[dyi] = update(dist[dxi], dist[dyi], current, nx, ny, size[i])
		}
	}
	return merges
}

// labelMerges sorts merges by height, keeping creation order among ties,
// and relabels members with cluster ids. The merges form a spanning tree over
// observation indices, so any order relabels to a valid linkage. Centroid and
// median can produce inversions; sorting them first gives the same matrix as
// SciPy, whose dendrogram may then group differently from creation order.
func labelMerges(merges []domain.Merge, n int) []domain.Merge {
	sort.SliceStable(merges, func(i, j int) bool {
		return merges[i].Height < merges[j].Height
	})

	uf := newUnionFind(n)
	for k := range merges {
		a, b := uf.find(merges[k].Left), uf.find(merges[k].Right)
		if a > b {
			a, b = b, a
		}
		merges[k].Left, merges[k].Right = a, b
		merges[k].Size = uf.union(a, b)
	}
	return merges
}

// genericLinkage is the nearest-neighbour-list algorithm, valid for every
// Lance-Williams method including those with inversions. Each active node
// x keeps a lower bound of its distance to the nodes after it; stale
// candidates are recomputed when they reach the top of the queue. Merges
// are returned in creation order with observation indices, like nnChain.
func genericLinkage(dist []float64, n int, update updateFunc) []domain.Merge {
	size := make([]float64, n)
	active := make([]bool, n)
	for i := range size {
		size[i] = 1
		active[i] = true
	}

	neighbour := make([]int, n)
	q := newMinQueue(n)
	for x := 0; x < n-1; x++ {
		best, bestD := x+1, dist[condensedIndex(n, x, x+1)]
		for y := x + 2; y < n; y++ {
			if d := dist[condensedIndex(n, x, y)]; d < bestD {
				best, bestD = y, d
			}
		}
		neighbour[x] = best
		q.push(x, bestD)
	}

	merges := make([]domain.Merge, 0, n-1)
	for k := 0; k < n-1; k++ {
		a := q.top()
		b := neighbour[a]
		for !active[b] || dist[condensedIndex(n, a, b)] != q.key(a) {
			best, bestD := -1, math.Inf(1)
			for y := a + 1; y < n; y++ {
				if !active[y] {
					continue
				}
				if d := dist[condensedIndex(n, a, y)]; best < 0 || d < bestD {
					best, bestD = y, d
				}
			}
			neighbour[a] = best
			q.update(a, bestD)
			a = q.top()
			b = neighbour[a]
		}
		height := q.key(a)
		q.remove(a)

		left, right := a, b
		if left > right {
			left, right = right, left
		}
		merges = append(merges, domain.Merge{Left: left, Right: right, Height: height, Size: int(size[a] + size[b])})

		// the union lives on at b; a is retired
		active[a] = false
		na, nb := size[a], size[b]
		for x := 0; x < n; x++ {
			if !active[x] || x == b {
				continue
			}
			dax := dist[condensedIndex(n, a, x)]
			dbx := condensedIndex(n, b, x)
			dist[dbx] = update(dax, dist[dbx], height, na, nb, size[x])
		}
		size[b] = na + nb

		for x := 0; x < a; x++ {
			if active[x] && neighbour[x] == a {
				neighbour[x] = b
			}
		}
		for x := 0; x < b; x++ {
			if !active[x] {
				continue
			}
			if d := dist[condensedIndex(n, x, b)]; d < q.key(x) {
				neighbour[x] = b
				q.update(x, d)
			}
		}
		if b < n-1 {
			best, bestD := -1, math.Inf(1)
			for y := b + 1; y < n; y++ {
				if !active[y] {
					continue
				}
				if d := dist[condensedIndex(n, b, y)]; best < 0 || d < bestD {
					best, bestD = y, d
				}
			}
			neighbour[b] = best
			q.update(b, bestD)
		}
	}
	return merges
}

// unionFind tracks cluster membership while labelling merges
type unionFind struct {
	parent []int
	size   []int
	next   int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, 2*n-1),
		size:   make([]int, 2*n-1),
		next:   n,
	}
	for i := range uf.parent {
		uf.parent[i] = i
		if i < n {
			uf.size[i] = 1
		}
	}
	return uf
}

func (u *unionFind) find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

// union merges two roots into a new cluster and returns its size
func (u *unionFind) union(a, b int) int {
	c := u.next
	u.next++
	u.parent[a] = c
	u.parent[b] = c
	u.size[c] = u.size[a] + u.size[b]
	return u.size[c]
}

// minQueue is an indexed binary heap of node keys
type minQueue struct {
	items []int
	keys  []float64
	pos   []int
}

func newMinQueue(n int) *minQueue {
	q := &minQueue{
		items: make([]int, 0, n),
		keys:  make([]float64, n),
		pos:   make([]int, n),
	}
	for i := range q.pos {
		q.pos[i] = -1
	}
	return q
}

func (q *minQueue) Len() int           { return len(q.items) }
func (q *minQueue) Less(i, j int) bool { return q.keys[q.items[i]] < q.keys[q.items[j]] }
func (q *minQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.pos[q.items[i]] = i
	q.pos[q.items[j]] = j
}
func (q *minQueue) Push(x any) {
	node := x.(int)
	q.pos[node] = len(q.items)
	q.items = append(q.items, node)
}
func (q *minQueue) Pop() any {
	last := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	q.pos[last] = -1
	return last
}

func (q *minQueue) push(node int, key float64) {
	q.keys[node] = key
	heap.Push(q, node)
}

func (q *minQueue) top() int {
	return q.items[0]
}

func (q *minQueue) key(node int) float64 {
	return q.keys[node]
}

func (q *minQueue) update(node int, key float64) {
	q.keys[node] = key
	if q.pos[node] < 0 {
		heap.Push(q, node)
		return
	}
	heap.Fix(q, q.pos[node])
}

func (q *minQueue) remove(node int) {
	if q.pos[node] >= 0 {
		heap.Remove(q, q.pos[node])
	}
}
