// Package config loads the YAML configuration file and validates it against
// an embedded CUE schema that also supplies the defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Config is the whole configuration file.
type Config struct {
	Database Database `json:"database" yaml:"database"`
	Log      Log      `json:"log" yaml:"log"`
	Alarms   Alarms   `json:"alarms" yaml:"alarms"`
	MQTT     MQTT     `json:"mqtt" yaml:"mqtt"`
	Metrics  Metrics  `json:"metrics" yaml:"metrics"`
}

type Database struct {
	Path         string `json:"path" yaml:"path"`
	SeedDefaults bool   `json:"seed_defaults" yaml:"seed_defaults"`
}

type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type Alarms struct {
	SnoozeMinutes int `json:"snooze_minutes" yaml:"snooze_minutes"`
}

// Snooze returns the snooze length.
func (a Alarms) Snooze() time.Duration {
	return time.Duration(a.SnoozeMinutes) * time.Minute
}

// MQTT configures the change feed. An empty Broker turns it off.
type MQTT struct {
	Broker   string `json:"broker" yaml:"broker"`
	Topic    string `json:"topic" yaml:"topic"`
	ClientID string `json:"client_id" yaml:"client_id"`
	QoS      int    `json:"qos" yaml:"qos"`
}

// Metrics configures the Prometheus endpoint. An empty Listen turns it off.
type Metrics struct {
	Listen string `json:"listen" yaml:"listen"`
}

// FieldError is one schema violation.
type FieldError struct {
	Field   string // dotted path, empty when the error is not tied to a field
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Load reads path and returns the validated configuration. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		data = b
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration an empty file produces.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config schema has no valid default: %v", err))
	}
	return cfg
}

// Parse validates YAML data and fills in defaults.
func Parse(data []byte) (*Config, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(raw))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fieldErrors(err)
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// fieldErrors flattens a CUE error list into FieldErrors.
func fieldErrors(err error) error {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return err
	}
	out := make([]error, 0, len(list))
	for _, e := range list {
		format, args := e.Msg()
		out = append(out, &FieldError{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return errors.Join(out...)
}
