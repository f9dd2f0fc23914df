package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Pratee23389/Hack4Delhi/pkg/centrality"
	"github.com/Pratee23389/Hack4Delhi/pkg/cluster"
	"github.com/Pratee23389/Hack4Delhi/pkg/components"
	"github.com/Pratee23389/Hack4Delhi/pkg/graph"
	"github.com/Pratee23389/Hack4Delhi/pkg/logging"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// Result is a report together with the graph it was computed from.
type Result struct {
	Report     *model.Report
	Graph      *graph.SimilarityGraph
	Components []components.Component
	// ClusterOf maps each flagged record to its 1-based cluster id.
	ClusterOf map[string]int
}

// Analyze runs the full pipeline and returns the report.
func Analyze(records []model.Record, opts Options) (*model.Report, error) {
	res, err := AnalyzeGraph(context.Background(), records, opts)
	if err != nil {
		return nil, err
	}
	return res.Report, nil
}

// AnalyzeGraph runs the full pipeline: validate, build the similarity graph,
// partition it, then score every flagged component in parallel. The output
// depends only on records and opts.
func AnalyzeGraph(ctx context.Context, records []model.Record, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	alg, _ := opts.Algorithm()

	g, err := graph.Build(records, opts.LinkingAttributes)
	if err != nil {
		return nil, err
	}

	comps := components.Partition(g)
	flagged := components.Flagged(comps, opts.MinClusterSize)
	logging.DebugContext(ctx, "graph partitioned",
		"records", len(records),
		"edges", g.EdgeCount(),
		"components", len(comps),
		"flagged", len(flagged),
	)

	clusters := make([]model.Cluster, len(flagged))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.workers())
	for i, comp := range flagged {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			c, err := scoreCluster(g, comp, alg, opts)
			if err != nil {
				return fmt.Errorf("cluster starting at %s: %w", comp.Min(), err)
			}
			c.ID = i + 1
			clusters[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := assemble(g, comps, clusters, alg)
	clusterOf := make(map[string]int)
	for _, c := range clusters {
		for _, m := range c.Members {
			clusterOf[m] = c.ID
		}
	}
	return &Result{Report: report, Graph: g, Components: comps, ClusterOf: clusterOf}, nil
}

func scoreCluster(g *graph.SimilarityGraph, comp components.Component, alg centrality.Algorithm, opts Options) (model.Cluster, error) {
	m, ok := cluster.Measure(g, comp.Members, opts.Thresholds())
	if !ok {
		return model.Cluster{}, fmt.Errorf("component of size %d is below the minimum cluster size", m.Size)
	}

	res, err := centrality.Analyze(g.Subgraph(comp.Members), alg, centrality.Options{Weighted: opts.WeightedBetweenness})
	if err != nil {
		return model.Cluster{}, err
	}

	name := func(id string) string {
		r, _ := g.Record(id)
		if opts.NameAttribute == "" {
			return id
		}
		return r.Display(opts.NameAttribute)
	}

	suspects := make([]model.Suspect, 0, opts.TopSuspects)
	for _, r := range res.TopK(opts.TopSuspects) {
		suspects = append(suspects, model.Suspect{RecordID: r.ID, Name: name(r.ID), Score: r.Score})
	}

	kp := res.Kingpin
	c := model.Cluster{
		Size:             m.Size,
		Members:          m.Members,
		EdgeCount:        m.EdgeCount,
		Density:          m.Density,
		Severity:         m.Severity,
		TopSuspects:      suspects,
		SharedAttributes: m.SharedAttributes,
		Kingpin: model.Kingpin{
			RecordID:        kp.ID,
			Name:            name(kp.ID),
			CentralityScore: kp.Score,
			Algorithm:       string(alg),
			Explanation:     explainKingpin(kp, alg, m.Size),
		},
	}
	c.Explanation = explainCluster(m, opts)
	return c, nil
}

func assemble(g *graph.SimilarityGraph, comps []components.Component, clusters []model.Cluster, alg centrality.Algorithm) *model.Report {
	flaggedRecords := 0
	for _, c := range clusters {
		flaggedRecords += c.Size
	}
	status := model.StatusClear
	if len(clusters) > 0 {
		status = model.StatusWarning
	}
	total := g.NodeCount()
	return &model.Report{
		TotalRecords:    total,
		TotalComponents: len(comps),
		FlaggedRecords:  flaggedRecords,
		Status:          status,
		Clusters:        clusters,
		GraphMetrics: model.GraphMetrics{
			TotalNodes:          total,
			TotalEdges:          g.EdgeCount(),
			OverallDensity:      g.Density(),
			CentralityAlgorithm: string(alg),
		},
		IntegrityScore: IntegrityScore(flaggedRecords, total),
	}
}

// IntegrityScore is 100 minus twice the flagged percentage, floored at 0.
func IntegrityScore(flagged, total int) float64 {
	if total <= 0 {
		return 100
	}
	pct := float64(flagged) / float64(total) * 100
	return math.Max(0, 100-2*pct)
}

func explainCluster(m cluster.Metrics, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d records linked by %d shared-attribute edges (density %.2f, %s)",
		m.Size, m.EdgeCount, m.Density, m.Band)

	if attrs := m.TopAttributes(); len(attrs) > 0 {
		parts := make([]string, len(attrs))
		for i, a := range attrs {
			parts[i] = fmt.Sprintf("%s x%d", a, m.SharedAttributes[a])
		}
		fmt.Fprintf(&b, "; shared: %s", strings.Join(parts, ", "))
	}
	switch m.Severity {
	case model.SeverityCritical:
		fmt.Fprintf(&b, "; size >= %d and density above %.2f", opts.SuspiciousSize, opts.HighDensity)
	case model.SeverityHigh:
		fmt.Fprintf(&b, "; size >= %d", opts.SuspiciousSize)
	}
	return b.String()
}

func explainKingpin(kp centrality.Ranked, alg centrality.Algorithm, size int) string {
	switch alg {
	case centrality.Degree:
		return fmt.Sprintf("directly linked to %.0f of the %d other members (degree %.3f)", kp.Score*float64(size-1), size-1, kp.Score)
	case centrality.Closeness:
		return fmt.Sprintf("fewest hops to every other member (closeness %.3f)", kp.Score)
	default:
		return fmt.Sprintf("lies on the most shortest paths between members (betweenness %.3f)", kp.Score)
	}
}
