package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

func employee(id, name, mobile, bank string) model.Record {
	return model.NewRecord(id, map[string]model.Value{
		"name":         model.Text(name),
		"mobile":       model.Text(mobile),
		"bank_account": model.Text(bank),
	})
}

func TestSharedBankPairIsMedium(t *testing.T) {
	records := []model.Record{
		employee("E001", "Asha", "900001", "ACC-1"),
		employee("E002", "Ravi", "900002", "ACC-1"),
		employee("E003", "Meena", "900003", "ACC-3"),
		employee("E004", "Kabir", "900004", "ACC-4"),
		employee("E005", "Tara", "900005", "ACC-5"),
	}

	rep, err := Analyze(records, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 5, rep.TotalRecords)
	assert.Equal(t, 4, rep.TotalComponents)
	require.Len(t, rep.Clusters, 1)
	c := rep.Clusters[0]
	assert.Equal(t, 1, c.ID)
	assert.Equal(t, 2, c.Size)
	assert.Equal(t, []string{"E001", "E002"}, c.Members)
	assert.Equal(t, 1.0, c.Density)
	assert.Equal(t, model.SeverityMedium, c.Severity)
	assert.Equal(t, "E001", c.Kingpin.RecordID)
	assert.Equal(t, "Asha", c.Kingpin.Name)
	assert.Equal(t, map[string]int{"bank_account": 1}, c.SharedAttributes)

	assert.Equal(t, model.StatusWarning, rep.Status)
	assert.Equal(t, 2, rep.FlaggedRecords)
	assert.InDelta(t, 20.0, rep.IntegrityScore, 1e-9)
	assert.Equal(t, 1, rep.GraphMetrics.TotalEdges)
	assert.InDelta(t, 0.1, rep.GraphMetrics.OverallDensity, 1e-12)
}

func TestMobileCliqueIsCritical(t *testing.T) {
	var records []model.Record
	for _, id := range []string{"E10", "E04", "E07", "E01", "E09", "E03", "E06", "E02", "E08", "E05"} {
		records = append(records, employee(id, "Name "+id, "999", "ACC-"+id))
	}
	opts := DefaultOptions()
	opts.MinClusterSize = 3
	opts.SuspiciousSize = 3
	opts.HighDensity = 0.7

	rep, err := Analyze(records, opts)
	require.NoError(t, err)

	require.Len(t, rep.Clusters, 1)
	c := rep.Clusters[0]
	assert.Equal(t, 10, c.Size)
	assert.Equal(t, 45, c.EdgeCount)
	assert.Equal(t, 1.0, c.Density)
	assert.Equal(t, model.SeverityCritical, c.Severity)
	assert.Equal(t, "E01", c.Kingpin.RecordID, "all scores tie, lowest id wins")
	assert.Equal(t, "betweenness", c.Kingpin.Algorithm)
	assert.Equal(t, 0.0, rep.IntegrityScore)
	require.Len(t, c.TopSuspects, 5)
	assert.Equal(t, "E05", c.TopSuspects[4].RecordID)
}

func TestDoublyLinkedPairHasOneEdge(t *testing.T) {
	records := []model.Record{
		employee("A", "A", "555", "X"),
		employee("B", "B", "555", "X"),
	}

	res, err := AnalyzeGraph(t.Context(), records, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Report.Clusters, 1)
	assert.Equal(t, 1, res.Report.Clusters[0].EdgeCount)
	e, ok := res.Graph.Edge("A", "B")
	require.True(t, ok)
	assert.Equal(t, 2.0, e.Weight)
	assert.Equal(t, []string{"bank_account", "mobile"}, e.Reasons)
	assert.Equal(t, map[string]int{"A": 1, "B": 1}, res.ClusterOf)
}

func TestNoClustersIsClear(t *testing.T) {
	records := []model.Record{
		employee("A", "A", "1", "X"),
		employee("B", "B", "2", "Y"),
		employee("C", "C", "", ""),
	}

	rep, err := Analyze(records, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, model.StatusClear, rep.Status)
	assert.Empty(t, rep.Clusters)
	assert.Equal(t, 100.0, rep.IntegrityScore)
	assert.Equal(t, 3, rep.TotalComponents)
}

func TestClustersOrderedBySmallestMember(t *testing.T) {
	records := []model.Record{
		employee("Z1", "", "7", "Q"),
		employee("Z2", "", "7", "R"),
		employee("B1", "", "8", "S"),
		employee("A9", "", "9", "S"),
		employee("C1", "", "", ""),
	}

	rep, err := Analyze(records, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, rep.Clusters, 2)
	assert.Equal(t, []string{"A9", "B1"}, rep.Clusters[0].Members)
	assert.Equal(t, []string{"Z1", "Z2"}, rep.Clusters[1].Members)
	assert.Equal(t, 2, rep.Clusters[1].ID)
	assert.Equal(t, "A9", rep.Clusters[0].Kingpin.Name, "blank names fall back to the record id")
}

func TestAlgorithmsPickChainCentre(t *testing.T) {
	// Chain a - b - c - d - e through alternating attributes.
	records := []model.Record{
		employee("a", "", "m1", "b0"),
		employee("b", "", "m1", "b1"),
		employee("c", "", "m2", "b1"),
		employee("d", "", "m2", "b2"),
		employee("e", "", "m3", "b2"),
	}

	for _, alg := range []string{"betweenness", "closeness"} {
		opts := DefaultOptions()
		opts.CentralityAlgorithm = alg
		rep, err := Analyze(records, opts)
		require.NoError(t, err, alg)
		require.Len(t, rep.Clusters, 1)
		c := rep.Clusters[0]
		assert.Equal(t, "c", c.Kingpin.RecordID, alg)
		assert.Equal(t, model.SeverityHigh, c.Severity, alg)
		assert.Equal(t, alg, rep.GraphMetrics.CentralityAlgorithm)
	}

	opts := DefaultOptions()
	opts.CentralityAlgorithm = "degree"
	rep, err := Analyze(records, opts)
	require.NoError(t, err)
	assert.Equal(t, "b", rep.Clusters[0].Kingpin.RecordID, "b, c and d tie on degree")
}

func TestTopSuspectsDisabled(t *testing.T) {
	records := []model.Record{employee("A", "", "1", ""), employee("B", "", "1", "")}
	opts := DefaultOptions()
	opts.TopSuspects = 0

	rep, err := Analyze(records, opts)
	require.NoError(t, err)
	assert.Empty(t, rep.Clusters[0].TopSuspects)
	assert.Equal(t, "A", rep.Clusters[0].Kingpin.RecordID)
}

func TestAnalyzeErrors(t *testing.T) {
	good := []model.Record{employee("A", "", "1", "x"), employee("B", "", "1", "y")}

	tests := []struct {
		name    string
		records []model.Record
		mutate  func(*Options)
		want    error
		message string
	}{
		{"empty records", nil, nil, model.ErrInvalidInput, "empty"},
		{"duplicate ids", []model.Record{good[0], good[0]}, nil, model.ErrInvalidInput, "duplicate"},
		{
			name:    "missing column",
			records: []model.Record{model.NewRecord("A", map[string]model.Value{"mobile": model.Text("1")})},
			want:    model.ErrInvalidInput,
			message: "bank_account",
		},
		{"unknown algorithm", good, func(o *Options) { o.CentralityAlgorithm = "pagerank" }, model.ErrInvalidConfig, "pagerank"},
		{"no linking attributes", good, func(o *Options) { o.LinkingAttributes = []string{} }, model.ErrInvalidConfig, "linking_attributes"},
		{"suspicious below minimum", good, func(o *Options) { o.MinClusterSize = 4; o.SuspiciousSize = 3 }, model.ErrInvalidConfig, "suspicious_size_threshold"},
		{"density out of range", good, func(o *Options) { o.HighDensity = 1.5 }, model.ErrInvalidConfig, "high_density_threshold"},
		{"minimum of one", good, func(o *Options) { o.MinClusterSize = 1 }, model.ErrInvalidConfig, "min_cluster_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			rep, err := Analyze(tt.records, opts)
			assert.Nil(t, rep)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestIntegrityScore(t *testing.T) {
	assert.Equal(t, 100.0, IntegrityScore(0, 10))
	assert.Equal(t, 60.0, IntegrityScore(2, 10))
	assert.Equal(t, 0.0, IntegrityScore(5, 10))
	assert.Equal(t, 0.0, IntegrityScore(9, 10))
	assert.InDelta(t, 100-200.0/3.0, IntegrityScore(1, 3), 1e-12)
	assert.Equal(t, 100.0, IntegrityScore(0, 0))
}

func randomRecords(mobiles, banks []int) []model.Record {
	n := len(mobiles)
	if len(banks) < n {
		n = len(banks)
	}
	records := make([]model.Record, n)
	for i := 0; i < n; i++ {
		bank := ""
		if banks[i] > 0 {
			bank = fmt.Sprintf("B%d", banks[i])
		}
		records[i] = employee(fmt.Sprintf("E%03d", i), "", fmt.Sprintf("M%d", mobiles[i]), bank)
	}
	return records
}

func TestReportProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	records := gen.SliceOfN(25, gen.IntRange(0, 12))
	banks := gen.SliceOfN(25, gen.IntRange(0, 8))

	properties.Property("every record is in exactly one component and flagged counts add up", prop.ForAll(
		func(m, b []int) bool {
			res, err := AnalyzeGraph(t.Context(), randomRecords(m, b), DefaultOptions())
			if err != nil {
				return false
			}
			seen := make(map[string]bool)
			for _, c := range res.Components {
				for _, id := range c.Members {
					if seen[id] {
						return false
					}
					seen[id] = true
				}
			}
			flagged := 0
			for _, c := range res.Report.Clusters {
				flagged += c.Size
				if c.Density < 0 || c.Density > 1 {
					return false
				}
			}
			return len(seen) == res.Report.TotalRecords && flagged == res.Report.FlaggedRecords
		},
		records, banks,
	))

	properties.Property("kingpin is a member with the highest score", prop.ForAll(
		func(m, b []int) bool {
			rep, err := Analyze(randomRecords(m, b), DefaultOptions())
			if err != nil {
				return false
			}
			for _, c := range rep.Clusters {
				found := false
				for _, id := range c.Members {
					found = found || id == c.Kingpin.RecordID
				}
				if !found {
					return false
				}
				for _, s := range c.TopSuspects {
					if s.Score > c.Kingpin.CentralityScore+1e-9 {
						return false
					}
				}
			}
			return true
		},
		records, banks,
	))

	properties.Property("integrity never rises as more records are flagged", prop.ForAll(
		func(total, a, b int) bool {
			if a > b {
				a, b = b, a
			}
			if b > total {
				return true
			}
			return IntegrityScore(a, total) >= IntegrityScore(b, total)
		},
		gen.IntRange(1, 500), gen.IntRange(0, 500), gen.IntRange(0, 500),
	))

	properties.TestingRun(t)
}

func TestReportIsByteIdenticalAcrossRuns(t *testing.T) {
	m := make([]int, 60)
	b := make([]int, 60)
	for i := range m {
		m[i] = (i * 7) % 23
		b[i] = (i * 5) % 11
	}
	records := randomRecords(m, b)
	opts := DefaultOptions()
	opts.Workers = 8

	first, err := Analyze(records, opts)
	require.NoError(t, err)
	want, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		rep, err := Analyze(records, opts)
		require.NoError(t, err)
		got, _ := json.Marshal(rep)
		require.Equal(t, string(want), string(got), "run %d", i)
	}
}
