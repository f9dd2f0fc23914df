package lens

import (
	"errors"
	"fmt"

	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// DefaultDepth is the neighbourhood radius used when none is requested.
const DefaultDepth = 2

// MaxDepth bounds a neighbourhood request.
const MaxDepth = 10

// ErrUnknownRecord is returned when the focus record is not in the graph.
var ErrUnknownRecord = errors.New("unknown record")

// Config controls which part of the similarity graph a view shows.
type Config struct {
	// Depth is the maximum hop distance from the focus record.
	Depth int `json:"depth"`
	// MinWeight hides edges lighter than this, e.g. 2 keeps only pairs
	// sharing at least two attributes.
	MinWeight float64 `json:"minWeight"`
	// Metadata copies record attributes onto the view nodes.
	Metadata bool `json:"metadata"`
	// LabelAttribute names the attribute shown as the node label; the
	// record id is used when it is empty or blank.
	LabelAttribute string `json:"labelAttribute"`
}

// DefaultConfig shows two hops with every edge and no attributes.
func DefaultConfig() Config {
	return Config{Depth: DefaultDepth, LabelAttribute: "name"}
}

// Validate rejects depths outside [0, MaxDepth] and negative weights.
func (c Config) Validate() error {
	if c.Depth < 0 || c.Depth > MaxDepth {
		return fmt.Errorf("%w: depth must be between 0 and %d, got %d", model.ErrInvalidInput, MaxDepth, c.Depth)
	}
	if c.MinWeight < 0 {
		return fmt.Errorf("%w: min weight must not be negative", model.ErrInvalidInput)
	}
	return nil
}
