package graph

import (
	"sort"

	"github.com/Pratee23389/Hack4Delhi/pkg/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Edge is an undirected link between two records. A < B always holds.
type Edge struct {
	A       string
	B       string
	Weight  float64
	Reasons []string
}

// SimilarityGraph holds records as nodes and shared-attribute links as
// weighted undirected edges. It is immutable once Build returns.
type SimilarityGraph struct {
	graph   *simple.WeightedUndirectedGraph
	ids     map[string]int64
	names   []string
	records []model.Record
	reasons map[edgeKey][]string
}

type edgeKey struct{ lo, hi int64 }

func keyOf(x, y int64) edgeKey {
	if x > y {
		x, y = y, x
	}
	return edgeKey{x, y}
}

func newSimilarityGraph(size int) *SimilarityGraph {
	return &SimilarityGraph{
		graph:   simple.NewWeightedUndirectedGraph(0, 0),
		ids:     make(map[string]int64, size),
		names:   make([]string, 0, size),
		records: make([]model.Record, 0, size),
		reasons: make(map[edgeKey][]string),
	}
}

func (sg *SimilarityGraph) addRecord(r model.Record) int64 {
	id := int64(len(sg.names))
	sg.ids[r.ID] = id
	sg.names = append(sg.names, r.ID)
	sg.records = append(sg.records, r)
	sg.graph.AddNode(simple.Node(id))
	return id
}

// link adds one shared attribute between x and y. A second shared
// attribute raises the weight of the existing edge instead of adding one.
func (sg *SimilarityGraph) link(x, y int64, attr string) {
	if x == y {
		return
	}
	k := keyOf(x, y)
	if e := sg.graph.WeightedEdgeBetween(x, y); e != nil {
		rs := sg.reasons[k]
		for _, r := range rs {
			if r == attr {
				return
			}
		}
		sg.reasons[k] = append(rs, attr)
		sg.graph.SetWeightedEdge(sg.graph.NewWeightedEdge(simple.Node(x), simple.Node(y), e.Weight()+1))
		return
	}
	sg.reasons[k] = []string{attr}
	sg.graph.SetWeightedEdge(sg.graph.NewWeightedEdge(simple.Node(x), simple.Node(y), 1))
}

// Graph exposes the underlying gonum graph. Node IDs map to records via Name.
func (sg *SimilarityGraph) Graph() graph.WeightedUndirected {
	return sg.graph
}

// Undirected exposes the same graph for algorithms that query edges by
// endpoint pair, such as topo.ConnectedComponents.
func (sg *SimilarityGraph) Undirected() graph.Undirected {
	return sg.graph
}

// ID returns the gonum node id for a record.
func (sg *SimilarityGraph) ID(recordID string) (int64, bool) {
	id, ok := sg.ids[recordID]
	return id, ok
}

// Name returns the record id for a gonum node id.
func (sg *SimilarityGraph) Name(id int64) string {
	if id < 0 || int(id) >= len(sg.names) {
		return ""
	}
	return sg.names[id]
}

// Record returns the record stored under recordID.
func (sg *SimilarityGraph) Record(recordID string) (model.Record, bool) {
	id, ok := sg.ids[recordID]
	if !ok {
		return model.Record{}, false
	}
	return sg.records[id], true
}

func (sg *SimilarityGraph) NodeCount() int { return len(sg.names) }

func (sg *SimilarityGraph) EdgeCount() int { return len(sg.reasons) }

// Density is 2E/(n(n-1)) over the whole graph.
func (sg *SimilarityGraph) Density() float64 {
	return Density(sg.NodeCount(), sg.EdgeCount())
}

// Density of a simple undirected graph with n nodes and e edges.
// Graphs with fewer than two nodes have density 0.
func Density(n, e int) float64 {
	if n < 2 {
		return 0
	}
	return 2 * float64(e) / (float64(n) * float64(n-1))
}

// Nodes returns every record id in lexicographic order.
func (sg *SimilarityGraph) Nodes() []string {
	out := append([]string(nil), sg.names...)
	sort.Strings(out)
	return out
}

// Edge returns the edge between a and b, if any.
func (sg *SimilarityGraph) Edge(a, b string) (Edge, bool) {
	x, ok1 := sg.ids[a]
	y, ok2 := sg.ids[b]
	if !ok1 || !ok2 {
		return Edge{}, false
	}
	e := sg.graph.WeightedEdgeBetween(x, y)
	if e == nil {
		return Edge{}, false
	}
	return sg.edge(x, y, e.Weight()), true
}

func (sg *SimilarityGraph) edge(x, y int64, w float64) Edge {
	a, b := sg.names[x], sg.names[y]
	if a > b {
		a, b = b, a
	}
	reasons := append([]string(nil), sg.reasons[keyOf(x, y)]...)
	sort.Strings(reasons)
	return Edge{A: a, B: b, Weight: w, Reasons: reasons}
}

// Edges returns every edge ordered by (A, B).
func (sg *SimilarityGraph) Edges() []Edge {
	edges := make([]Edge, 0, len(sg.reasons))
	it := sg.graph.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		edges = append(edges, sg.edge(e.From().ID(), e.To().ID(), e.Weight()))
	}
	sortEdges(edges)
	return edges
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
}

// Neighbors returns the record ids adjacent to recordID in lexicographic order.
func (sg *SimilarityGraph) Neighbors(recordID string) []string {
	id, ok := sg.ids[recordID]
	if !ok {
		return nil
	}
	var out []string
	it := sg.graph.From(id)
	for it.Next() {
		out = append(out, sg.names[it.Node().ID()])
	}
	sort.Strings(out)
	return out
}

// Subgraph returns the graph induced by members: those nodes and every
// edge with both endpoints among them. Unknown ids are ignored.
func (sg *SimilarityGraph) Subgraph(members []string) *SimilarityGraph {
	sub := newSimilarityGraph(len(members))
	local := make(map[int64]int64, len(members))
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	for _, m := range sorted {
		id, ok := sg.ids[m]
		if !ok {
			continue
		}
		if _, dup := local[id]; dup {
			continue
		}
		local[id] = sub.addRecord(sg.records[id])
	}
	for _, m := range sorted {
		x, ok := sg.ids[m]
		if !ok {
			continue
		}
		it := sg.graph.From(x)
		for it.Next() {
			y := it.Node().ID()
			ly, in := local[y]
			if !in || x > y {
				continue
			}
			k := keyOf(x, y)
			w := sg.graph.WeightedEdgeBetween(x, y).Weight()
			sub.graph.SetWeightedEdge(sub.graph.NewWeightedEdge(simple.Node(local[x]), simple.Node(ly), w))
			sub.reasons[keyOf(local[x], ly)] = append([]string(nil), sg.reasons[k]...)
		}
	}
	return sub
}
