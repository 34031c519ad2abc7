// Package config holds the explicit, immutable Config value threaded
// through constructors (spec §9 design notes: "replace the global
// config module with an explicit immutable Config value; no
// process-wide mutable state"). It is built from Default, then an
// optional YAML file, then CLI flags, in ascending precedence. A .env
// file, if present, is loaded into the process environment; no Config
// field is read from the environment.
package config

import (
	"os"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "tlsid/internal/errors"
	"tlsid/domain/pattern"
)

// FilterSpec is the YAML/flag representation of a pattern.Filter.
type FilterSpec struct {
	Operator string `yaml:"operator" validate:"required,oneof=== != < <= > >="`
	Length   int    `yaml:"length" validate:"required,min=1"`
	Head     int    `yaml:"head" validate:"required,min=1"`
}

// ToPattern converts the spec to a domain pattern.Filter.
func (f FilterSpec) ToPattern() pattern.Filter {
	return pattern.Filter{Operator: pattern.Operator(f.Operator), Length: f.Length, Head: f.Head}
}

// Config is the complete, validated run configuration (spec §6).
type Config struct {
	DatasetPath         string       `yaml:"dataset_path" validate:"required"`
	JAVersion           int          `yaml:"ja_version" validate:"oneof=3 4"`
	SlidingWindowSize   int          `yaml:"sliding_window_size" validate:"min=1"`
	MinSupport          float64      `yaml:"min_support" validate:"gt=0,lte=1"`
	MaxCandidatesLength int          `yaml:"max_candidates_length" validate:"min=1"`
	PatternFilters      []FilterSpec `yaml:"pattern_filters" validate:"required,min=1,dive"`
	ContextAttributes   []string     `yaml:"context_attributes" validate:"required,min=1"`
	TestRatio           float64      `yaml:"test_ratio" validate:"gt=0,lt=1"`
	CSVReportPath       string       `yaml:"csv_report_path"`
	HTMLReportPath      string       `yaml:"html_report_path"`
	ReportDBDSN         string       `yaml:"report_db_dsn"`
	Debug               bool         `yaml:"debug"`
}

// Default returns the baseline configuration before YAML/flag overrides.
func Default() Config {
	return Config{
		JAVersion:           4,
		SlidingWindowSize:   5,
		MinSupport:          0.1,
		MaxCandidatesLength: 5,
		TestRatio:           0.25,
		PatternFilters: []FilterSpec{
			{Operator: "==", Length: 1, Head: 10},
			{Operator: ">=", Length: 2, Head: 10},
		},
	}
}

// Load loads a .env file into the process environment (if present) and
// applies the optional YAML layer on top of Default.
// CLI flag overrides are applied by the caller afterward, via the
// struct fields directly, before Validate runs.
func Load(yamlPath string) (*Config, error) {
	// Best-effort: a missing .env is not an error, matching the
	// teacher's dotenv bootstrap in its cmd/ entrypoints.
	_ = godotenv.Load()

	cfg := Default()
	if yamlPath != "" {
		b, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, apperrors.Config("failed to read config file: " + err.Error())
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, apperrors.Config("failed to parse config file: " + err.Error())
		}
	}
	return &cfg, nil
}

// Validate checks range/shape constraints declaratively via struct
// tags, then the one cross-field rule that validator can't express:
// context_attributes must not shadow AppName or Filename.
func Validate(c *Config) error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return apperrors.Config(err.Error())
	}
	for _, attr := range c.ContextAttributes {
		if attr == "AppName" || attr == "Filename" {
			return apperrors.Config("context_attributes must not include AppName or Filename")
		}
	}
	return nil
}

// Filters converts the configured FilterSpecs to domain pattern.Filters.
func (c *Config) Filters() []pattern.Filter {
	out := make([]pattern.Filter, 0, len(c.PatternFilters))
	for _, f := range c.PatternFilters {
		out = append(out, f.ToPattern())
	}
	return out
}
