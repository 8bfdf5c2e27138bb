// Package profile defines the lint profile (.toollint.yaml): which linters
// to skip, report and failure thresholds, and an optional finding filter.
// Parsing is strict; unknown fields are rejected.
package profile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/toollint/pkg/lint"
)

// APIVersion is the only profile document version this build understands.
const APIVersion = "toollint/v0"

// Profile configures one lint run.
type Profile struct {
	APIVersion string `yaml:"apiVersion" json:"apiVersion" jsonschema:"required,const=toollint/v0"`

	// Level is the minimum severity shown in reports.
	Level string `yaml:"level,omitempty" json:"level,omitempty" jsonschema:"enum=all,enum=valid,enum=info,enum=warn,enum=error"`

	// FailLevel is the severity at which the process exits non-zero.
	FailLevel string `yaml:"fail_level,omitempty" json:"fail_level,omitempty" jsonschema:"enum=warn,enum=error"`

	// Skip lists linter names to leave out of the run.
	Skip []string `yaml:"skip,omitempty" json:"skip,omitempty"`

	// Select is an expr finding filter applied before reporting
	// (variables: level, linter, message).
	Select string `yaml:"select,omitempty" json:"select,omitempty"`
}

// Default returns the profile used when no file is given.
func Default() *Profile {
	return &Profile{APIVersion: APIVersion, Level: "warn", FailLevel: "error"}
}

// Load parses a profile with strict unknown-field rejection (yaml.v3
// KnownFields) and fills in threshold defaults.
func Load(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p Profile
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse profile: document is empty")
		}
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if p.Level == "" {
		p.Level = "warn"
	}
	if p.FailLevel == "" {
		p.FailLevel = "error"
	}
	return &p, nil
}

// LoadFile reads and parses a profile YAML file.
func LoadFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// ReportLevel resolves the report threshold.
func (p *Profile) ReportLevel() (lint.Level, error) {
	return lint.ParseLevel(p.Level)
}

// FailAt resolves the failure threshold. Only warn and error make sense as
// failure triggers.
func (p *Profile) FailAt() (lint.Level, error) {
	switch p.FailLevel {
	case "warn", "error":
		return lint.ParseLevel(p.FailLevel)
	}
	return lint.LevelError, fmt.Errorf("unknown fail level %q (use warn or error)", p.FailLevel)
}

// SkipSet returns the skip list as a lookup set.
func (p *Profile) SkipSet() map[string]bool {
	set := make(map[string]bool, len(p.Skip))
	for _, name := range p.Skip {
		set[name] = true
	}
	return set
}
