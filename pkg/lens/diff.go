package lens

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// ViewDiff is the difference between two views of the flagged records,
// typically from consecutive runs in watch mode.
type ViewDiff struct {
	AddedNodes   []string `json:"addedNodes"`
	RemovedNodes []string `json:"removedNodes"`
	MovedNodes   []string `json:"movedNodes"` // cluster id changed
	AddedEdges   []string `json:"addedEdges"`
	RemovedEdges []string `json:"removedEdges"`
	FullGraph    bool     `json:"fullGraph"` // no previous snapshot
}

// Empty reports whether nothing changed.
func (d *ViewDiff) Empty() bool {
	return !d.FullGraph && len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.MovedNodes) == 0 && len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// Snapshot is an indexed copy of a view kept for diffing.
type Snapshot struct {
	Hash  string
	Nodes map[string]int  // id -> cluster
	Edges map[string]bool // "a|b"
}

// CreateSnapshot indexes a view and hashes its JSON form.
func CreateSnapshot(view *model.GraphView) *Snapshot {
	s := &Snapshot{
		Nodes: make(map[string]int, len(view.Nodes)),
		Edges: make(map[string]bool, len(view.Edges)),
	}
	for _, n := range view.Nodes {
		s.Nodes[n.ID] = n.Cluster
	}
	for _, e := range view.Edges {
		s.Edges[edgeKey(e.Source, e.Target)] = true
	}
	s.Hash = ComputeHash(view)
	return s
}

// ComputeHash returns a hex SHA-256 of the view's JSON encoding. Views are
// built in a fixed order, so equal graphs hash equally.
func ComputeHash(view *model.GraphView) string {
	data, err := json.Marshal(view)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// ComputeDiff compares a previous snapshot with a new view. A nil snapshot
// yields a full-graph diff listing every node and edge as added.
func ComputeDiff(old *Snapshot, view *model.GraphView) *ViewDiff {
	next := CreateSnapshot(view)
	diff := &ViewDiff{
		AddedNodes:   make([]string, 0),
		RemovedNodes: make([]string, 0),
		MovedNodes:   make([]string, 0),
		AddedEdges:   make([]string, 0),
		RemovedEdges: make([]string, 0),
	}
	if old == nil {
		old = &Snapshot{}
		diff.FullGraph = true
	}
	if old.Hash != "" && old.Hash == next.Hash {
		return diff
	}

	for id, cluster := range next.Nodes {
		prev, existed := old.Nodes[id]
		switch {
		case !existed:
			diff.AddedNodes = append(diff.AddedNodes, id)
		case prev != cluster:
			diff.MovedNodes = append(diff.MovedNodes, id)
		}
	}
	for id := range old.Nodes {
		if _, ok := next.Nodes[id]; !ok {
			diff.RemovedNodes = append(diff.RemovedNodes, id)
		}
	}
	for k := range next.Edges {
		if !old.Edges[k] {
			diff.AddedEdges = append(diff.AddedEdges, k)
		}
	}
	for k := range old.Edges {
		if !next.Edges[k] {
			diff.RemovedEdges = append(diff.RemovedEdges, k)
		}
	}

	for _, list := range [][]string{diff.AddedNodes, diff.RemovedNodes, diff.MovedNodes, diff.AddedEdges, diff.RemovedEdges} {
		sort.Strings(list)
	}
	return diff
}

func edgeKey(source, target string) string {
	return source + "|" + target
}
