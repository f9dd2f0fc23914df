package cluster

import (
	"sort"

	"github.com/Pratee23389/Hack4Delhi/pkg/graph"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// Thresholds decide which components are flagged and how severe they are.
type Thresholds struct {
	MinClusterSize int
	SuspiciousSize int
	HighDensity    float64
	LowDensity     float64
}

// DefaultThresholds match the payroll audit defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinClusterSize: 2,
		SuspiciousSize: 3,
		HighDensity:    0.7,
		LowDensity:     0.3,
	}
}

// Classify assigns a severity from size first, then density. Size bounds are
// inclusive; the density escalation requires strictly more than HighDensity.
// flagged is false for components below MinClusterSize.
func Classify(size int, density float64, th Thresholds) (sev model.Severity, flagged bool) {
	switch {
	case size < th.MinClusterSize:
		return "", false
	case size < th.SuspiciousSize:
		return model.SeverityMedium, true
	case density > th.HighDensity:
		return model.SeverityCritical, true
	default:
		return model.SeverityHigh, true
	}
}

// Band describes density in words for explanations. It never affects severity.
func Band(density float64, th Thresholds) string {
	switch {
	case density > th.HighDensity:
		return "dense"
	case density < th.LowDensity:
		return "sparse"
	default:
		return "moderate"
	}
}

// EdgeCount counts edges with both endpoints in members.
func EdgeCount(g *graph.SimilarityGraph, members []string) int {
	in := make(map[string]bool, len(members))
	for _, m := range members {
		in[m] = true
	}
	count := 0
	for _, m := range members {
		for _, n := range g.Neighbors(m) {
			if in[n] && m < n {
				count++
			}
		}
	}
	return count
}

// SharedAttributes counts, per attribute, the member edges it contributed to.
func SharedAttributes(g *graph.SimilarityGraph, members []string) map[string]int {
	in := make(map[string]bool, len(members))
	for _, m := range members {
		in[m] = true
	}
	out := make(map[string]int)
	for _, m := range members {
		for _, n := range g.Neighbors(m) {
			if !in[n] || m > n {
				continue
			}
			e, _ := g.Edge(m, n)
			for _, r := range e.Reasons {
				out[r]++
			}
		}
	}
	return out
}

// Metrics summarises one component.
type Metrics struct {
	Members          []string
	Size             int
	EdgeCount        int
	Density          float64
	Severity         model.Severity
	Band             string
	SharedAttributes map[string]int
}

// TopAttributes returns the shared attribute names ordered by count, then name.
func (m Metrics) TopAttributes() []string {
	names := make([]string, 0, len(m.SharedAttributes))
	for k := range m.SharedAttributes {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := m.SharedAttributes[names[i]], m.SharedAttributes[names[j]]
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})
	return names
}

// Measure computes size, edges, density and severity for a component.
// flagged is false when the component is too small to report.
func Measure(g *graph.SimilarityGraph, members []string, th Thresholds) (Metrics, bool) {
	size := len(members)
	edges := EdgeCount(g, members)
	density := graph.Density(size, edges)
	sev, flagged := Classify(size, density, th)
	if !flagged {
		return Metrics{Members: members, Size: size, EdgeCount: edges, Density: density}, false
	}
	return Metrics{
		Members:          members,
		Size:             size,
		EdgeCount:        edges,
		Density:          density,
		Severity:         sev,
		Band:             Band(density, th),
		SharedAttributes: SharedAttributes(g, members),
	}, true
}
