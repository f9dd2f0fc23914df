package model

import "errors"

var (
	// ErrInvalidInput covers empty record sets, blank or duplicate IDs and
	// records missing a linking attribute.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig covers unknown algorithms, bad thresholds and an
	// empty linking attribute list.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrDegenerateComponent is returned when centrality is requested for a
	// component with fewer than two nodes.
	ErrDegenerateComponent = errors.New("degenerate component")
)

// ErrorKind maps an error to its wire name.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrDegenerateComponent):
		return "degenerate_component"
	default:
		return "internal"
	}
}
