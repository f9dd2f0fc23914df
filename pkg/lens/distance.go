package lens

import (
	"fmt"
	"sort"

	gograph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/Pratee23389/Hack4Delhi/pkg/graph"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// Distances returns the hop distance from center to every record within
// depth, following only edges of at least minWeight. Records further away
// or unreachable are absent from the map.
func Distances(sg *graph.SimilarityGraph, center string, depth int, minWeight float64) (map[string]int, error) {
	id, ok := sg.ID(center)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecord, center)
	}

	distances := make(map[string]int)
	g := sg.Graph()
	bf := traverse.BreadthFirst{
		Traverse: func(e gograph.Edge) bool {
			we, ok := e.(gograph.WeightedEdge)
			return !ok || we.Weight() >= minWeight
		},
	}
	// Nodes are dequeued in depth order, so the first one past the limit ends the walk.
	bf.Walk(g, g.Node(id), func(n gograph.Node, d int) bool {
		if d > depth {
			return true
		}
		distances[sg.Name(n.ID())] = d
		return false
	})
	return distances, nil
}

// Focus builds the neighbourhood view around center. Nodes are ordered by
// distance then id; edges are every qualifying edge between two included
// nodes, ordered by endpoints. clusterOf may be nil.
func Focus(sg *graph.SimilarityGraph, center string, cfg Config, clusterOf map[string]int) (*model.GraphView, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	distances, err := Distances(sg, center, cfg.Depth, cfg.MinWeight)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(distances))
	for id := range distances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		di, dj := distances[ids[i]], distances[ids[j]]
		if di != dj {
			return di < dj
		}
		return ids[i] < ids[j]
	})

	view := model.NewGraphView(center)
	for _, id := range ids {
		view.AddNode(viewNode(sg, id, distances[id], clusterOf, cfg))
	}
	addEdges(sg, view, distances, cfg.MinWeight)
	return view, nil
}

// ClusterView shows every record that belongs to a flagged cluster, with
// the edges between them. All distances are zero.
func ClusterView(sg *graph.SimilarityGraph, clusterOf map[string]int, labelAttribute string) *model.GraphView {
	members := make(map[string]int, len(clusterOf))
	ids := make([]string, 0, len(clusterOf))
	for id := range clusterOf {
		members[id] = 0
		ids = append(ids, id)
	}
	sort.Strings(ids)

	view := model.NewGraphView("")
	for _, id := range ids {
		view.AddNode(viewNode(sg, id, 0, clusterOf, Config{LabelAttribute: labelAttribute}))
	}
	addEdges(sg, view, members, 0)
	return view
}

func viewNode(sg *graph.SimilarityGraph, id string, distance int, clusterOf map[string]int, cfg Config) *model.ViewNode {
	node := &model.ViewNode{ID: id, Label: id, Distance: distance, Cluster: clusterOf[id]}
	if r, ok := sg.Record(id); ok {
		if cfg.LabelAttribute != "" {
			node.Label = r.Display(cfg.LabelAttribute)
		}
		if cfg.Metadata {
			node.Metadata = make(map[string]model.Value, len(r.Attributes))
			for k, v := range r.Attributes {
				node.Metadata[k] = v
			}
		}
	}
	return node
}

func addEdges(sg *graph.SimilarityGraph, view *model.GraphView, included map[string]int, minWeight float64) {
	for _, node := range view.Nodes {
		for _, nb := range sg.Neighbors(node.ID) {
			if nb <= node.ID {
				continue
			}
			if _, ok := included[nb]; !ok {
				continue
			}
			e, _ := sg.Edge(node.ID, nb)
			if e.Weight < minWeight {
				continue
			}
			view.AddEdge(&model.ViewEdge{Source: e.A, Target: e.B, Weight: e.Weight, Reasons: e.Reasons})
		}
	}
	sort.Slice(view.Edges, func(i, j int) bool {
		if view.Edges[i].Source != view.Edges[j].Source {
			return view.Edges[i].Source < view.Edges[j].Source
		}
		return view.Edges[i].Target < view.Edges[j].Target
	})
}
