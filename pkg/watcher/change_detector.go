package watcher

import (
	"fmt"
	"path/filepath"
)

// ChangeAnalysis describes what changed and whether the analysis must run again
type ChangeAnalysis struct {
	// NeedRerun is false only for batches with no paths.
	NeedRerun bool
	// InputSetChanged is true when files were added or removed, so a
	// directory input now resolves to a different file list.
	InputSetChanged bool
	ChangedFiles    []string
	Reason          string
}

// AnalyzeChanges determines what a debounced batch of changes requires
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}
	if len(event.Paths) == 0 {
		return analysis
	}

	analysis.NeedRerun = true
	switch event.Type {
	case ChangeTypeCreated, ChangeTypeRemoved:
		analysis.InputSetChanged = true
	}

	if len(event.Paths) == 1 {
		analysis.Reason = fmt.Sprintf("%s %s", filepath.Base(event.Paths[0]), event.Type)
	} else {
		analysis.Reason = fmt.Sprintf("%d input files %s", len(event.Paths), event.Type)
	}
	return analysis
}
