package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Pratee23389/Hack4Delhi/pkg/logging"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// LargeGroupWarning is the group size above which Build logs a warning.
// Each group becomes a clique, so its cost grows with the square of its size.
const LargeGroupWarning = 500

// Build connects every pair of records that share a non-blank value for
// one of the linking attributes. Each shared attribute adds 1 to the
// pair's edge weight and its name to the edge's reasons.
func Build(records []model.Record, linking []string) (*SimilarityGraph, error) {
	if len(linking) == 0 {
		return nil, fmt.Errorf("%w: at least one linking attribute is required", model.ErrInvalidConfig)
	}
	if err := ValidateRecords(records, linking); err != nil {
		return nil, err
	}

	log := logging.New("graph.build")
	sg := newSimilarityGraph(len(records))
	for _, r := range records {
		sg.addRecord(r)
	}

	seen := make(map[string]bool, len(linking))
	for _, attr := range linking {
		if seen[attr] {
			continue
		}
		seen[attr] = true

		groups := make(map[string][]int64)
		for i, r := range records {
			v := r.Attributes[attr]
			if v.IsBlank() {
				continue
			}
			groups[v.Key()] = append(groups[v.Key()], int64(i))
		}

		keys := make([]string, 0, len(groups))
		for k, members := range groups {
			if len(members) > 1 {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		for _, k := range keys {
			members := groups[k]
			if len(members) > LargeGroupWarning {
				log.Warn("large shared-value group", "attribute", attr, "size", len(members))
			}
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					sg.link(members[i], members[j], attr)
				}
			}
		}
		log.Debug("attribute linked", "attribute", attr, "groups", len(keys))
	}

	log.Debug("graph built", "nodes", sg.NodeCount(), "edges", sg.EdgeCount())
	return sg, nil
}

// ValidateRecords fails on an empty set, blank or duplicate ids, and
// records that lack any of the required attributes. Missing attributes are
// reported together, by name.
func ValidateRecords(records []model.Record, required []string) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: record set is empty", model.ErrInvalidInput)
	}

	ids := make(map[string]int, len(records))
	missing := make(map[string]int)
	for i, r := range records {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return fmt.Errorf("%w: record %d has a blank identifier", model.ErrInvalidInput, i+1)
		}
		if prev, dup := ids[r.ID]; dup {
			return fmt.Errorf("%w: duplicate identifier %q (records %d and %d)", model.ErrInvalidInput, r.ID, prev+1, i+1)
		}
		ids[r.ID] = i
		for _, attr := range required {
			if _, ok := r.Attributes[attr]; !ok {
				missing[attr]++
			}
		}
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for attr, n := range missing {
			names = append(names, fmt.Sprintf("%s (%d records)", attr, n))
		}
		sort.Strings(names)
		return fmt.Errorf("%w: missing required attribute(s): %s", model.ErrInvalidInput, strings.Join(names, ", "))
	}
	return nil
}
