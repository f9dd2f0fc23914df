package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// Formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Write renders rep in the given format.
func Write(w io.Writer, format string, source string, rep *model.Report) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatText, "":
		PrintReport(w, source, rep)
		return nil
	}
	return fmt.Errorf("%w: unknown output format %q", model.ErrInvalidConfig, format)
}

// WriteJSON writes the report as indented JSON. The output is identical for
// identical reports.
func WriteJSON(w io.Writer, rep *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// PrintReport prints a nicely formatted payroll integrity report with colors
func PrintReport(w io.Writer, source string, rep *model.Report) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Ghost Hunter - Payroll Integrity Report")
	bold.Fprintln(w, "=======================================")
	if source != "" {
		fmt.Fprintf(w, "Source: %s\n", source)
	}
	gm := rep.GraphMetrics
	fmt.Fprintf(w, "Scanned: %d records in %d components (%d links, density %.4f)\n",
		rep.TotalRecords, rep.TotalComponents, gm.TotalEdges, gm.OverallDensity)

	if rep.Status == model.StatusClear {
		green.Fprintf(w, "Status: %s\n", rep.Status)
	} else {
		red.Fprintf(w, "Status: %s\n", rep.Status)
		yellow.Fprintf(w, "Flagged: %d record(s) in %d cluster(s)\n", rep.FlaggedRecords, len(rep.Clusters))
	}
	fmt.Fprintln(w)

	if len(rep.Clusters) > 0 {
		red.Fprintln(w, "SUSPICIOUS CLUSTERS:")
		for _, c := range rep.Clusters {
			printCluster(w, c, cyan)
			fmt.Fprintln(w)
		}
	}

	// Summary with color based on integrity score
	summaryColor := green
	if rep.IntegrityScore < 90 {
		summaryColor = yellow
	}
	if rep.IntegrityScore < 70 {
		summaryColor = red
	}
	summaryColor.Fprintf(w, "Integrity score: %.1f/100 (%d/%d records clean)\n",
		rep.IntegrityScore, rep.TotalRecords-rep.FlaggedRecords, rep.TotalRecords)

	if rep.Status == model.StatusClear {
		green.Fprintln(w, "✓ No ghost employee clusters found")
	}
}

func severityColor(s model.Severity) *color.Color {
	switch s {
	case model.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case model.SeverityHigh:
		return color.New(color.FgRed)
	}
	return color.New(color.FgYellow)
}

func printCluster(w io.Writer, c model.Cluster, detail *color.Color) {
	severityColor(c.Severity).Fprintf(w, "  Cluster %d [%s]", c.ID, c.Severity)
	fmt.Fprintf(w, " %d members, %d links, density %.2f\n", c.Size, c.EdgeCount, c.Density)
	fmt.Fprintf(w, "    Members: %s\n", strings.Join(c.Members, ", "))
	if shared := formatShared(c.SharedAttributes); shared != "" {
		detail.Fprintf(w, "    Shared: %s\n", shared)
	}

	kp := c.Kingpin
	name := ""
	if kp.Name != "" && kp.Name != kp.RecordID {
		name = " (" + kp.Name + ")"
	}
	fmt.Fprintf(w, "    Kingpin: %s%s, %s %.3f\n", kp.RecordID, name, kp.Algorithm, kp.CentralityScore)
	if len(c.TopSuspects) > 1 {
		fmt.Fprintln(w, "    Top suspects:")
		for i, s := range c.TopSuspects {
			fmt.Fprintf(w, "      %d. %-12s %-20s %.3f\n", i+1, s.RecordID, s.Name, s.Score)
		}
	}
	if c.Explanation != "" {
		fmt.Fprintf(w, "    %s\n", c.Explanation)
	}
}

// formatShared lists attribute link counts, most frequent first.
func formatShared(shared map[string]int) string {
	names := make([]string, 0, len(shared))
	for name := range shared {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if shared[names[i]] != shared[names[j]] {
			return shared[names[i]] > shared[names[j]]
		}
		return names[i] < names[j]
	})
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s x%d", name, shared[name])
	}
	return strings.Join(parts, ", ")
}
