package analysis

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Pratee23389/Hack4Delhi/pkg/centrality"
	"github.com/Pratee23389/Hack4Delhi/pkg/cluster"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// Options configure one analysis. The koanf tags are the config keys under
// "analysis"; the json tags are used by the HTTP API.
type Options struct {
	LinkingAttributes   []string `koanf:"linking_attributes" json:"linking_attributes" validate:"required,min=1,dive,required"`
	NameAttribute       string   `koanf:"name_attribute" json:"name_attribute"`
	MinClusterSize      int      `koanf:"min_cluster_size" json:"min_cluster_size" validate:"min=2"`
	SuspiciousSize      int      `koanf:"suspicious_size_threshold" json:"suspicious_size_threshold" validate:"gtefield=MinClusterSize"`
	HighDensity         float64  `koanf:"high_density_threshold" json:"high_density_threshold" validate:"gte=0,lte=1"`
	LowDensity          float64  `koanf:"low_density_threshold" json:"low_density_threshold" validate:"gte=0,lte=1"`
	CentralityAlgorithm string   `koanf:"centrality_algorithm" json:"centrality_algorithm" validate:"required"`
	WeightedBetweenness bool     `koanf:"weighted_betweenness" json:"weighted_betweenness"`
	TopSuspects         int      `koanf:"top_suspects" json:"top_suspects" validate:"gte=0"`
	Workers             int      `koanf:"workers" json:"workers" validate:"gte=0"`
}

// DefaultOptions returns the payroll audit defaults.
func DefaultOptions() Options {
	th := cluster.DefaultThresholds()
	return Options{
		LinkingAttributes:   []string{"mobile", "bank_account"},
		NameAttribute:       "name",
		MinClusterSize:      th.MinClusterSize,
		SuspiciousSize:      th.SuspiciousSize,
		HighDensity:         th.HighDensity,
		LowDensity:          th.LowDensity,
		CentralityAlgorithm: string(centrality.Betweenness),
		TopSuspects:         5,
	}
}

// Validate checks every field and returns one ErrInvalidConfig naming all problems.
func (o Options) Validate() error {
	var problems []string
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
		}
		for _, e := range verrs {
			problems = append(problems, describe(e))
		}
	}
	if o.CentralityAlgorithm != "" {
		if _, err := centrality.ParseAlgorithm(o.CentralityAlgorithm); err != nil {
			problems = append(problems, fmt.Sprintf("centrality_algorithm: unknown value %q", o.CentralityAlgorithm))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", model.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

var fieldKeys = map[string]string{"MinClusterSize": "min_cluster_size"}

func describe(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return field + ": is required"
	case "min":
		return fmt.Sprintf("%s: must be at least %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s: must be >= %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s: must be <= %s", field, e.Param())
	case "gtefield":
		return fmt.Sprintf("%s: must be >= %s", field, fieldKeys[e.Param()])
	default:
		return fmt.Sprintf("%s: failed %s", field, e.Tag())
	}
}

// Algorithm returns the parsed centrality algorithm.
func (o Options) Algorithm() (centrality.Algorithm, error) {
	return centrality.ParseAlgorithm(o.CentralityAlgorithm)
}

// Thresholds returns the cluster severity thresholds.
func (o Options) Thresholds() cluster.Thresholds {
	return cluster.Thresholds{
		MinClusterSize: o.MinClusterSize,
		SuspiciousSize: o.SuspiciousSize,
		HighDensity:    o.HighDensity,
		LowDensity:     o.LowDensity,
	}
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}
