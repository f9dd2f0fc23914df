package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/Pratee23389/Hack4Delhi/pkg/analysis"
	"github.com/Pratee23389/Hack4Delhi/pkg/loader"
	"github.com/Pratee23389/Hack4Delhi/pkg/logging"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// EnvPrefix prefixes every environment variable, e.g.
// GHOST_HUNTER_PORT=9090 or GHOST_HUNTER_ANALYSIS__MIN_CLUSTER_SIZE=3.
const EnvPrefix = "GHOST_HUNTER_"

// DefaultFiles are tried in order when no --config is given.
var DefaultFiles = []string{"ghost-hunter.toml", "ghost-hunter.yaml", "ghost-hunter.yml"}

// Config holds all configuration for the application
type Config struct {
	Input     string           `koanf:"input"`
	Format    string           `koanf:"format" validate:"oneof=text json"`
	Web       bool             `koanf:"web"`
	Port      int              `koanf:"port" validate:"min=1,max=65535"`
	Watch     bool             `koanf:"watch"`
	Open      bool             `koanf:"open"`
	Verbosity string           `koanf:"verbosity" validate:"omitempty,oneof=trace debug info warn warning error"`
	Verbose   int              `koanf:"verbose" validate:"gte=0"`
	LogJSON   bool             `koanf:"log_json"`
	Analysis  analysis.Options `koanf:"analysis" validate:"-"`
	Loader    loader.Schema    `koanf:"loader" validate:"-"`
}

// flagKeys maps CLI flag names onto config keys. Flags not listed here use
// their own name as the key.
var flagKeys = map[string]string{
	"linking-attributes": "analysis.linking_attributes",
	"name-attribute":     "analysis.name_attribute",
	"min-cluster-size":   "analysis.min_cluster_size",
	"suspicious-size":    "analysis.suspicious_size_threshold",
	"high-density":       "analysis.high_density_threshold",
	"algorithm":          "analysis.centrality_algorithm",
	"weighted":           "analysis.weighted_betweenness",
	"top-suspects":       "analysis.top_suspects",
	"workers":            "analysis.workers",
	"id-field":           "loader.id_field",
	"log-json":           "log_json",
	"config":             "",
}

// RegisterFlags adds every flag Load understands to f.
func RegisterFlags(f *pflag.FlagSet) {
	opts := analysis.DefaultOptions()

	f.StringP("input", "i", "", "CSV or JSON file, or a directory of them")
	f.String("format", "text", "Report format: text or json")
	f.Bool("web", false, "Start the HTTP API instead of printing a report")
	f.Int("port", 8080, "Port for the HTTP API (only used with --web)")
	f.Bool("watch", false, "Re-run the analysis when the input changes")
	f.Bool("open", true, "Open a browser when the HTTP API starts")
	f.String("config", "", "Config file (.toml or .yaml)")
	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("log-json", false, "Write logs as JSON")

	f.StringSlice("linking-attributes", opts.LinkingAttributes, "Attributes whose shared values link records")
	f.String("name-attribute", opts.NameAttribute, "Attribute used as the display name")
	f.String("id-field", loader.DefaultSchema().IDField, "Column holding the record identifier")
	f.Int("min-cluster-size", opts.MinClusterSize, "Smallest component reported as a cluster")
	f.Int("suspicious-size", opts.SuspiciousSize, "Cluster size at which severity becomes HIGH")
	f.Float64("high-density", opts.HighDensity, "Density above which a suspicious cluster is CRITICAL")
	f.String("algorithm", opts.CentralityAlgorithm, "Kingpin centrality: betweenness, degree or closeness")
	f.Bool("weighted", opts.WeightedBetweenness, "Use edge weights for betweenness")
	f.Int("top-suspects", opts.TopSuspects, "Suspects listed per cluster (0 disables)")
	f.Int("workers", opts.Workers, "Clusters scored in parallel (0 uses GOMAXPROCS)")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file. An explicit --config must exist; the default names are optional.
	path := ""
	if f != nil {
		path, _ = f.GetString("config")
	}
	if err := loadFile(k, path); err != nil {
		return nil, err
	}

	// 3. Environment variables
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, flagKey(f)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}
	// Without an explicit loader.required, inputs need the linking columns.
	if len(cfg.Loader.Required) == 0 {
		cfg.Loader = cfg.Loader.RequireAttributes(cfg.Analysis.LinkingAttributes)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if path == "" {
		for _, name := range DefaultFiles {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
		if path == "" {
			return nil
		}
	}

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return fmt.Errorf("%w: config file %s must be .toml or .yaml", model.ErrInvalidConfig, path)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("%w: load %s: %v", model.ErrInvalidConfig, path, err)
	}
	return nil
}

// envKey turns GHOST_HUNTER_ANALYSIS__TOP_SUSPECTS into analysis.top_suspects.
// List values are comma separated.
func envKey(name, value string) (string, interface{}) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	switch key {
	case "analysis.linking_attributes", "loader.required":
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, value
}

func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			key = f.Name
		}
		return key, posflag.FlagVal(fs, f)
	}
}

func defaults() map[string]interface{} {
	opts := analysis.DefaultOptions()
	schema := loader.DefaultSchema()

	aliases := make(map[string]interface{}, len(schema.Aliases))
	for from, to := range schema.Aliases {
		aliases[from] = to
	}

	return map[string]interface{}{
		"input":     "",
		"format":    "text",
		"web":       false,
		"port":      8080,
		"watch":     false,
		"open":      true,
		"verbosity": "",
		"verbose":   0,
		"log_json":  false,
		"analysis": map[string]interface{}{
			"linking_attributes":        opts.LinkingAttributes,
			"name_attribute":            opts.NameAttribute,
			"min_cluster_size":          opts.MinClusterSize,
			"suspicious_size_threshold": opts.SuspiciousSize,
			"high_density_threshold":    opts.HighDensity,
			"low_density_threshold":     opts.LowDensity,
			"centrality_algorithm":      opts.CentralityAlgorithm,
			"weighted_betweenness":      opts.WeightedBetweenness,
			"top_suspects":              opts.TopSuspects,
			"workers":                   opts.Workers,
		},
		"loader": map[string]interface{}{
			"id_field": schema.IDField,
			"aliases":  aliases,
		},
	}
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}()

// Validate checks the top-level settings and the analysis options.
func (c *Config) Validate() error {
	var problems []string
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
		}
		for _, e := range verrs {
			if e.Param() != "" {
				problems = append(problems, fmt.Sprintf("%s: failed %s=%s (got %v)", e.Field(), e.Tag(), e.Param(), e.Value()))
			} else {
				problems = append(problems, fmt.Sprintf("%s: failed %s", e.Field(), e.Tag()))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", model.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if len(c.Loader.Required) > 0 && strings.TrimSpace(c.Loader.IDField) == "" {
		return fmt.Errorf("%w: loader.id_field: is required", model.ErrInvalidConfig)
	}
	return nil
}

// LogLevel resolves the effective log level: an explicit verbosity wins
// over the -v count.
func (c *Config) LogLevel() slog.Level {
	if c.Verbosity != "" {
		level, _ := logging.ParseLevel(c.Verbosity)
		return level
	}
	return logging.LevelFromVerbosity(c.Verbose)
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
