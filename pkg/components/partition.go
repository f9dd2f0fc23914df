package components

import (
	"sort"

	"github.com/Pratee23389/Hack4Delhi/pkg/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// Component is a maximal set of records connected by similarity edges.
// Members are sorted lexicographically.
type Component struct {
	Members []string
}

// Size returns the number of members.
func (c Component) Size() int { return len(c.Members) }

// Min returns the smallest member id, used to order components.
func (c Component) Min() string {
	if len(c.Members) == 0 {
		return ""
	}
	return c.Members[0]
}

// Partition splits the graph into connected components. Every node lands in
// exactly one component; isolated records form singletons. Components are
// ordered by their smallest member id so the result does not depend on
// map iteration order.
func Partition(g *graph.SimilarityGraph) []Component {
	raw := topo.ConnectedComponents(g.Undirected())
	comps := make([]Component, 0, len(raw))
	for _, nodes := range raw {
		members := make([]string, 0, len(nodes))
		for _, n := range nodes {
			members = append(members, g.Name(n.ID()))
		}
		sort.Strings(members)
		comps = append(comps, Component{Members: members})
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i].Min() < comps[j].Min() })
	return comps
}

// Flagged returns the components with at least min members, preserving order.
func Flagged(comps []Component, min int) []Component {
	out := make([]Component, 0)
	for _, c := range comps {
		if c.Size() >= min {
			out = append(out, c)
		}
	}
	return out
}

// SizeHistogram counts components by size.
func SizeHistogram(comps []Component) map[int]int {
	h := make(map[int]int)
	for _, c := range comps {
		h[c.Size()]++
	}
	return h
}
