package model

// Severity is the risk tier assigned to a flagged cluster.
type Severity string

const (
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities so callers can sort or compare them.
func (s Severity) Rank() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return 0
}

// Status summarises a report: CLEAR when nothing was flagged.
type Status string

const (
	StatusClear   Status = "CLEAR"
	StatusWarning Status = "WARNING"
)

// Report is the full result of one analysis.
type Report struct {
	TotalRecords    int          `json:"total_records"`
	TotalComponents int          `json:"total_components"`
	FlaggedRecords  int          `json:"flagged_records"`
	Status          Status       `json:"status"`
	Clusters        []Cluster    `json:"clusters"`
	GraphMetrics    GraphMetrics `json:"graph_metrics"`
	IntegrityScore  float64      `json:"integrity_score"`
}

// Cluster returns the cluster with the given 1-based id.
func (r *Report) Cluster(id int) (Cluster, bool) {
	if id < 1 || id > len(r.Clusters) {
		return Cluster{}, false
	}
	return r.Clusters[id-1], true
}

// CountBySeverity returns how many clusters carry each severity.
func (r *Report) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, c := range r.Clusters {
		counts[c.Severity]++
	}
	return counts
}

// GraphMetrics describes the whole similarity graph.
type GraphMetrics struct {
	TotalNodes          int     `json:"total_nodes"`
	TotalEdges          int     `json:"total_edges"`
	OverallDensity      float64 `json:"overall_density"`
	CentralityAlgorithm string  `json:"centrality_algorithm"`
}

// Cluster is a connected component large enough to be flagged.
type Cluster struct {
	ID               int            `json:"cluster_id"`
	Size             int            `json:"size"`
	Members          []string       `json:"members"`
	EdgeCount        int            `json:"edge_count"`
	Density          float64        `json:"density"`
	Severity         Severity       `json:"severity"`
	Kingpin          Kingpin        `json:"kingpin"`
	TopSuspects      []Suspect      `json:"top_suspects"`
	SharedAttributes map[string]int `json:"shared_attributes"`
	Explanation      string         `json:"explanation"`
}

// Kingpin is the most central member of a cluster.
type Kingpin struct {
	RecordID        string  `json:"record_id"`
	Name            string  `json:"name"`
	CentralityScore float64 `json:"centrality_score"`
	Algorithm       string  `json:"algorithm"`
	Explanation     string  `json:"explanation"`
}

// Suspect is one entry of a cluster's centrality ranking.
type Suspect struct {
	RecordID string  `json:"record_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
}
