// Package config loads resafe scan configuration from YAML files.
//
// A configuration file lists the patterns to check and the thresholds to
// check them against:
//
//	threshold: 1.0
//	concurrency: 4
//	patterns:
//	  - name: email
//	    pattern: '[a-z]+@[a-z]+\.com'
//	  - name: version
//	    pattern: 'v\d\.\d'
//	    threshold: 2.5
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp/syntax"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultThreshold mirrors the analyzer default.
	DefaultThreshold = 1.0

	// DefaultConcurrency bounds parallel checks during a scan.
	DefaultConcurrency = 4

	// MaxConcurrency is the largest accepted concurrency value.
	MaxConcurrency = 256
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Pattern is one named regex entry.
type Pattern struct {
	Name    string `yaml:"name" validate:"required"`
	Pattern string `yaml:"pattern" validate:"required,regex"`

	// Threshold overrides Config.Threshold when non-zero.
	Threshold float64 `yaml:"threshold,omitempty" validate:"gte=0"`
}

// Config is the top-level configuration document.
type Config struct {
	Threshold   float64   `yaml:"threshold" validate:"gte=0"`
	Concurrency int       `yaml:"concurrency" validate:"gte=1,lte=256"`
	Patterns    []Pattern `yaml:"patterns" validate:"required,min=1,unique=Name,dive"`
}

// EffectiveThreshold returns the threshold that applies to p.
func (c *Config) EffectiveThreshold(p Pattern) float64 {
	if p.Threshold > 0 {
		return p.Threshold
	}
	return c.Threshold
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("regex", validateRegex)
}

// validateRegex accepts patterns the regexp/syntax parser accepts.
func validateRegex(fl validator.FieldLevel) bool {
	_, err := syntax.Parse(fl.Field().String(), syntax.Perl)
	return err == nil
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document, applying defaults for
// missing threshold and concurrency.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func (c *Config) applyDefaults() {
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "regex":
		return fmt.Sprintf("%s %q is not a valid regex", field, fe.Value())
	case "unique":
		return field + " contains duplicate names"
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
}
