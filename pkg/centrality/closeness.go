package centrality

import (
	gograph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/Pratee23389/Hack4Delhi/pkg/graph"
)

// closeness is (r-1)/Σd scaled by (r-1)/(n-1), where r counts the nodes
// reachable from the source including itself. For a connected component
// this reduces to (n-1)/Σd.
func closeness(sub *graph.SimilarityGraph, ix indexed) []float64 {
	n := len(ix.names)
	g := sub.Graph()
	out := make([]float64, n)
	for i, name := range ix.names {
		id, _ := sub.ID(name)
		total, reached := 0, 0
		bf := traverse.BreadthFirst{}
		bf.Walk(g, g.Node(id), func(_ gograph.Node, depth int) bool {
			total += depth
			reached++
			return false
		})
		if total == 0 {
			continue
		}
		r := float64(reached - 1)
		out[i] = (r / float64(total)) * (r / float64(n-1))
	}
	return out
}
