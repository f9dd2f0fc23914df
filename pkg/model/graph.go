package model

// GraphView is a serialisable slice of the similarity graph, used by the
// neighbourhood endpoint and the text output.
type GraphView struct {
	Center string      `json:"center,omitempty"`
	Nodes  []*ViewNode `json:"nodes"`
	Edges  []*ViewEdge `json:"edges"`
}

// ViewNode is a record in a view. Distance is the hop count from Center.
type ViewNode struct {
	ID       string           `json:"id"`
	Label    string           `json:"label"`
	Distance int              `json:"distance"`
	Cluster  int              `json:"cluster,omitempty"`
	Metadata map[string]Value `json:"metadata,omitempty"`
}

// ViewEdge is an undirected link with the attributes that created it.
type ViewEdge struct {
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Weight  float64  `json:"weight"`
	Reasons []string `json:"reasons"`
}

// NewGraphView creates an empty view around center.
func NewGraphView(center string) *GraphView {
	return &GraphView{Center: center, Nodes: make([]*ViewNode, 0), Edges: make([]*ViewEdge, 0)}
}

// AddNode appends a node.
func (g *GraphView) AddNode(node *ViewNode) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge appends an edge.
func (g *GraphView) AddEdge(edge *ViewEdge) {
	g.Edges = append(g.Edges, edge)
}
