package centrality

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Pratee23389/Hack4Delhi/pkg/graph"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// Algorithm names a centrality measure.
type Algorithm string

const (
	Degree      Algorithm = "degree"
	Betweenness Algorithm = "betweenness"
	Closeness   Algorithm = "closeness"
)

// Epsilon is the score difference below which two members are tied.
const Epsilon = 1e-9

// Algorithms lists the supported measures.
func Algorithms() []Algorithm {
	return []Algorithm{Degree, Betweenness, Closeness}
}

// ParseAlgorithm accepts a supported algorithm name, case-insensitively.
// Unknown names are rejected rather than replaced by a default.
func ParseAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Algorithms() {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unknown centrality algorithm %q (want degree, betweenness or closeness)", model.ErrInvalidConfig, name)
}

// Options tune the computation.
type Options struct {
	// Weighted makes betweenness treat stronger links as shorter paths.
	Weighted bool
}

// Ranked is one member and its score.
type Ranked struct {
	ID    string
	Score float64
}

// Result holds the scores of one component.
type Result struct {
	Algorithm Algorithm
	Scores    map[string]float64
	Ranking   []Ranked
	Kingpin   Ranked
}

// TopK returns at most k entries of the ranking.
func (r *Result) TopK(k int) []Ranked {
	if k <= 0 {
		return nil
	}
	if k > len(r.Ranking) {
		k = len(r.Ranking)
	}
	return append([]Ranked(nil), r.Ranking[:k]...)
}

// Analyze scores every node of a component subgraph and picks the kingpin:
// the highest score, ties broken by the lexicographically smallest id.
func Analyze(sub *graph.SimilarityGraph, alg Algorithm, opts Options) (*Result, error) {
	scores, err := Scores(sub, alg, opts)
	if err != nil {
		return nil, err
	}
	ranking := Rank(scores)
	return &Result{
		Algorithm: alg,
		Scores:    scores,
		Ranking:   ranking,
		Kingpin:   ranking[0],
	}, nil
}

// Scores computes the normalised centrality of every node in sub.
func Scores(sub *graph.SimilarityGraph, alg Algorithm, opts Options) (map[string]float64, error) {
	if sub.NodeCount() < 2 {
		return nil, fmt.Errorf("%w: centrality needs at least 2 nodes, got %d", model.ErrDegenerateComponent, sub.NodeCount())
	}
	ix := index(sub)
	var raw []float64
	switch alg {
	case Degree:
		raw = degree(ix)
	case Closeness:
		raw = closeness(sub, ix)
	case Betweenness:
		if opts.Weighted {
			raw = weightedBetweenness(ix)
		} else {
			raw = betweenness(ix)
		}
	default:
		_, err := ParseAlgorithm(string(alg))
		return nil, err
	}
	scores := make(map[string]float64, len(raw))
	for i, s := range raw {
		scores[ix.names[i]] = s
	}
	return scores, nil
}

// Rank orders members by score descending. Scores within Epsilon of each
// other are tied and ordered by id. The first entry is always the
// smallest id among those tied for the maximum.
func Rank(scores map[string]float64) []Ranked {
	out := make([]Ranked, 0, len(scores))
	for id, s := range scores {
		out = append(out, Ranked{ID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score-out[j].Score > Epsilon
	})
	if len(out) == 0 {
		return out
	}
	best := 0
	for i := 1; i < len(out); i++ {
		if math.Abs(out[i].Score-out[0].Score) <= Epsilon && out[i].ID < out[best].ID {
			best = i
		}
	}
	if best != 0 {
		k := out[best]
		copy(out[1:best+1], out[:best])
		out[0] = k
	}
	return out
}

// indexed is a component with dense indices in id order and sorted adjacency.
type indexed struct {
	names   []string
	adj     [][]int
	weights [][]float64
}

func index(sub *graph.SimilarityGraph) indexed {
	names := sub.Nodes()
	pos := make(map[string]int, len(names))
	for i, n := range names {
		pos[n] = i
	}
	ix := indexed{
		names:   names,
		adj:     make([][]int, len(names)),
		weights: make([][]float64, len(names)),
	}
	for i, n := range names {
		for _, m := range sub.Neighbors(n) {
			e, _ := sub.Edge(n, m)
			ix.adj[i] = append(ix.adj[i], pos[m])
			ix.weights[i] = append(ix.weights[i], e.Weight)
		}
	}
	return ix
}

func degree(ix indexed) []float64 {
	n := len(ix.names)
	out := make([]float64, n)
	for i := range ix.adj {
		out[i] = float64(len(ix.adj[i])) / float64(n-1)
	}
	return out
}
