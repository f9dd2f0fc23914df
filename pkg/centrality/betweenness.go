package centrality

import (
	"container/heap"
	"math"
)

// betweenness is Brandes' algorithm over hop distance. Each unordered pair
// is seen from both ends, so the raw sum is divided by (n-1)(n-2), giving
// 1.0 for the centre of a star.
func betweenness(ix indexed) []float64 {
	n := len(ix.names)
	bc := make([]float64, n)

	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	stack := make([]int, 0, n)
	queue := make([]int, 0, n)

	for s := 0; s < n; s++ {
		for i := 0; i < n; i++ {
			sigma[i], dist[i], delta[i] = 0, -1, 0
			preds[i] = preds[i][:0]
		}
		stack, queue = stack[:0], queue[:0]
		sigma[s], dist[s] = 1, 0
		queue = append(queue, s)

		for head := 0; head < len(queue); head++ {
			v := queue[head]
			stack = append(stack, v)
			for _, w := range ix.adj[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		accumulate(s, stack, preds, sigma, delta, bc)
	}
	return normalise(bc)
}

// weightedBetweenness runs Brandes with Dijkstra, using 1/weight as the
// length of an edge so pairs sharing more attributes are closer.
func weightedBetweenness(ix indexed) []float64 {
	n := len(ix.names)
	bc := make([]float64, n)

	sigma := make([]float64, n)
	dist := make([]float64, n)
	done := make([]bool, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	stack := make([]int, 0, n)

	for s := 0; s < n; s++ {
		for i := 0; i < n; i++ {
			sigma[i], dist[i], done[i], delta[i] = 0, -1, false, 0
			preds[i] = preds[i][:0]
		}
		stack = stack[:0]
		sigma[s], dist[s] = 1, 0
		pq := &distQueue{{node: s}}

		for pq.Len() > 0 {
			item := heap.Pop(pq).(distItem)
			v := item.node
			if done[v] {
				continue
			}
			done[v] = true
			stack = append(stack, v)
			for k, w := range ix.adj[v] {
				if done[w] {
					continue
				}
				d := dist[v] + 1/ix.weights[v][k]
				switch {
				// Path lengths are float sums, so equal routes may differ by rounding.
				case dist[w] < 0 || d < dist[w]-Epsilon:
					dist[w] = d
					sigma[w] = sigma[v]
					preds[w] = append(preds[w][:0], v)
					heap.Push(pq, distItem{node: w, dist: d})
				case math.Abs(d-dist[w]) <= Epsilon:
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		accumulate(s, stack, preds, sigma, delta, bc)
	}
	return normalise(bc)
}

// accumulate back-propagates pair dependencies from the farthest node inward.
func accumulate(s int, stack []int, preds [][]int, sigma, delta, bc []float64) {
	for i := len(stack) - 1; i >= 0; i-- {
		w := stack[i]
		for _, v := range preds[w] {
			delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
		}
		if w != s {
			bc[w] += delta[w]
		}
	}
}

func normalise(bc []float64) []float64 {
	n := len(bc)
	if n <= 2 {
		for i := range bc {
			bc[i] = 0
		}
		return bc
	}
	scale := 1 / float64((n-1)*(n-2))
	for i := range bc {
		bc[i] *= scale
	}
	return bc
}

type distItem struct {
	node int
	dist float64
}

// distQueue is a min-heap on distance, ties broken by node index.
type distQueue []distItem

func (q distQueue) Len() int { return len(q) }
func (q distQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q distQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x any)   { *q = append(*q, x.(distItem)) }
func (q *distQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}
