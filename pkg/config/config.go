// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxTokens bounds every model response
	DefaultMaxTokens int64 = 4096
	// DefaultSettleDelay is how long the sync gate stays closed after a transformation.
	// It absorbs the notification caused by our own write; it is a heuristic, not a guarantee.
	DefaultSettleDelay = 100 * time.Millisecond
	// DefaultRequestTimeout bounds a single model call
	DefaultRequestTimeout = 2 * time.Minute
)

// 📚 Settings is the optional settings file
type Settings struct {
	Model          string `json:"model,omitempty" yaml:"model,omitempty" hcl:"model,optional"`
	MaxTokens      int64  `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" hcl:"max_tokens,optional"`
	SettleDelay    string `json:"settle_delay,omitempty" yaml:"settle_delay,omitempty" hcl:"settle_delay,optional"`
	RequestTimeout string `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty" hcl:"request_timeout,optional"`
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty" hcl:"base_url,optional"`

	settleDelay    time.Duration
	requestTimeout time.Duration
	location       string
}

// 🏭 Defaults returns validated settings with every default applied
func Defaults() *Settings {
	return &Settings{
		Model:          DefaultModel,
		MaxTokens:      DefaultMaxTokens,
		SettleDelay:    DefaultSettleDelay.String(),
		RequestTimeout: DefaultRequestTimeout.String(),
		settleDelay:    DefaultSettleDelay,
		requestTimeout: DefaultRequestTimeout,
	}
}

// 🔍 Validate applies defaults and checks every field
func (s *Settings) Validate() error {
	if s.Model == "" {
		s.Model = DefaultModel
	}
	if err := ValidateModel(s.Model); err != nil {
		return err
	}

	if s.MaxTokens == 0 {
		s.MaxTokens = DefaultMaxTokens
	}
	if s.MaxTokens < 0 {
		return errors.Errorf("max_tokens must be positive, got %d", s.MaxTokens)
	}

	var err error
	if s.settleDelay, err = parseDuration("settle_delay", s.SettleDelay, DefaultSettleDelay); err != nil {
		return err
	}
	if s.requestTimeout, err = parseDuration("request_timeout", s.RequestTimeout, DefaultRequestTimeout); err != nil {
		return err
	}

	return nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Errorf("parsing %s: %w", field, err)
	}
	if d < 0 {
		return 0, errors.Errorf("%s must not be negative, got %s", field, value)
	}
	return d, nil
}

// SettleDelayDuration returns the parsed settle delay
func (s *Settings) SettleDelayDuration() time.Duration { return s.settleDelay }

// RequestTimeoutDuration returns the parsed request timeout
func (s *Settings) RequestTimeoutDuration() time.Duration { return s.requestTimeout }

// Location returns the file the settings were loaded from, if any
func (s *Settings) Location() string { return s.location }

// 📝 String returns a short description for logs
func (s *Settings) String() string {
	return fmt.Sprintf("model=%s max_tokens=%d settle_delay=%s request_timeout=%s", s.Model, s.MaxTokens, s.settleDelay, s.requestTimeout)
}

// 🔌 Parser is the interface for settings parsers
type Parser interface {
	// 📝 Parse parses the settings from bytes
	Parse(ctx context.Context, data []byte, filename string) (*Settings, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🎯 Load loads and validates the settings file at path
func Load(ctx context.Context, fs afero.Fs, path string) (*Settings, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading settings")

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading settings file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("unsupported settings file extension %q", filepath.Ext(path))
	}

	s, err := p.Parse(ctx, data, path)
	if err != nil {
		return nil, errors.Errorf("parsing settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, errors.Errorf("validating settings: %w", err)
	}
	s.location = path

	return s, nil
}

// 🔧 JSONParser implements the Parser interface for JSON files
type JSONParser struct{}

func (p *JSONParser) CanParse(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}

func (p *JSONParser) Parse(ctx context.Context, data []byte, filename string) (*Settings, error) {
	var s Settings
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return &s, nil
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func (p *YAMLParser) CanParse(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte, filename string) (*Settings, error) {
	var s Settings
	if len(bytes.TrimSpace(data)) == 0 {
		return &s, nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &s, nil
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

func (p *HCLParser) CanParse(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".hcl")
}

func (p *HCLParser) Parse(ctx context.Context, data []byte, filename string) (*Settings, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var s Settings
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &s)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return &s, nil
}

func init() {
	Register(&JSONParser{})
	Register(&YAMLParser{})
	Register(&HCLParser{})
}
