// Package config defines the typed instrumentation-catalog data model
// (Config / InstrumentationConfig / ModuleMatcher / FunctionQuery) and
// loads it from a host-authored YAML document.
package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/orchestrion-go/weaver/internal/ast"
	weavererrors "github.com/orchestrion-go/weaver/internal/errors"
	"github.com/orchestrion-go/weaver/internal/query"
	"gopkg.in/yaml.v3"
)

// ModuleMatcher decides whether an InstrumentationConfig applies to a
// given (module name, version, file path) triple.
type ModuleMatcher struct {
	Name         string
	VersionRange *semver.Constraints
	FilePath     string
}

// Matches reports whether the supplied module identity satisfies this
// matcher. A version string that fails to parse fails the match without
// raising an error — the VersionParseFailure case is silent by design.
func (m ModuleMatcher) Matches(moduleName, version, filePath string) bool {
	if moduleName != m.Name || filePath != m.FilePath {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return m.VersionRange.Check(v)
}

// InstrumentationConfig pairs one ModuleMatcher with the FunctionQuery
// that picks out the target function and the channel it publishes on.
type InstrumentationConfig struct {
	ChannelName   string
	Module        ModuleMatcher
	FunctionQuery query.FunctionQuery
}

var nonIdentChar = regexp.MustCompile(`[^A-Za-z0-9]`)

// SanitizedChannelName returns ChannelName with every non-ASCII-
// alphanumeric character replaced by '_', forming a valid identifier
// suffix for the generated `tr_ch_apm$<id>` binding.
func (c InstrumentationConfig) SanitizedChannelName() string {
	return nonIdentChar.ReplaceAllString(c.ChannelName, "_")
}

// Config is the full, ordered instrumentation catalog handed to the
// Orchestrator. Ordering of Instrumentations does not affect emitted
// code but does affect the order of the InjectionMatchFailure list.
type Config struct {
	Instrumentations []InstrumentationConfig
	DCModule         string
}

// yamlEnvelope mirrors the on-disk shape: a required schema version, an
// optional diagnostics_channel module override, and the instrumentation
// list.
type yamlEnvelope struct {
	Version          int                 `yaml:"version"`
	DCModule         string              `yaml:"dc_module"`
	Instrumentations []yamlInstrumentation `yaml:"instrumentations"`
}

type yamlInstrumentation struct {
	ModuleName    string            `yaml:"module_name"`
	VersionRange  string            `yaml:"version_range"`
	FilePath      string            `yaml:"file_path"`
	ChannelName   string            `yaml:"channel_name"`
	Operator      string            `yaml:"operator"`
	FunctionQuery yamlFunctionQuery `yaml:"function_query"`
}

type yamlFunctionQuery struct {
	Type      string `yaml:"type"` // "class_constructor" | "class_method" | "object_method" | "decl" | "expr"
	ClassName string `yaml:"class_name"`
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"` // "sync" | "async" | "callback"
	Index     int    `yaml:"index"`
}

// Load parses a YAML instrumentation catalog into a Config, validating
// the envelope version and every instrumentation entry. All structural
// problems are reported as *weavererrors.InvalidConfigurationError,
// surfaced at construction time rather than during a later transform.
func Load(data []byte) (*Config, error) {
	var env yamlEnvelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, weavererrors.NewInvalidConfigurationError("yaml", err.Error())
	}
	if env.Version != ConfigEnvelopeVersion {
		return nil, weavererrors.NewInvalidConfigurationError(
			"version", fmt.Sprintf("must be %d, got %d", ConfigEnvelopeVersion, env.Version))
	}
	dcModule := env.DCModule
	if dcModule == "" {
		dcModule = DefaultDCModule
	}

	cfg := &Config{DCModule: dcModule}
	for i, raw := range env.Instrumentations {
		ic, err := parseInstrumentation(raw)
		if err != nil {
			return nil, fmt.Errorf("instrumentations[%d]: %w", i, err)
		}
		cfg.Instrumentations = append(cfg.Instrumentations, ic)
	}
	return cfg, nil
}

func parseInstrumentation(raw yamlInstrumentation) (InstrumentationConfig, error) {
	if raw.ModuleName == "" {
		return InstrumentationConfig{}, weavererrors.NewInvalidConfigurationError("module_name", "must be a non-empty string")
	}
	if raw.ChannelName == "" {
		return InstrumentationConfig{}, weavererrors.NewInvalidConfigurationError("channel_name", "must be a non-empty string")
	}
	constraint, err := semver.NewConstraint(raw.VersionRange)
	if err != nil {
		return InstrumentationConfig{}, weavererrors.NewInvalidConfigurationError(
			"version_range", fmt.Sprintf("invalid semver range %q: %v", raw.VersionRange, err))
	}

	fq, err := parseFunctionQuery(raw.FunctionQuery)
	if err != nil {
		return InstrumentationConfig{}, err
	}

	return InstrumentationConfig{
		ChannelName: raw.ChannelName,
		Module: ModuleMatcher{
			Name:         raw.ModuleName,
			VersionRange: constraint,
			FilePath:     raw.FilePath,
		},
		FunctionQuery: fq,
	}, nil
}

func parseFunctionQuery(raw yamlFunctionQuery) (query.FunctionQuery, error) {
	var variant query.VariantKind
	switch raw.Type {
	case "class_constructor":
		variant = query.ClassConstructor
	case "class_method":
		variant = query.ClassMethod
	case "object_method":
		variant = query.ObjectMethod
	case "decl":
		variant = query.FunctionDeclaration
	case "expr":
		variant = query.FunctionExpression
	default:
		return query.FunctionQuery{}, weavererrors.NewInvalidConfigurationError(
			"function_query.type",
			fmt.Sprintf("must be one of class_constructor, class_method, object_method, decl, expr, got %q", raw.Type))
	}

	k, err := parseKind(raw.Kind, variant)
	if err != nil {
		return query.FunctionQuery{}, err
	}

	return query.FunctionQuery{
		Variant:   variant,
		ClassName: raw.ClassName,
		Name:      raw.Name,
		Kind:      k,
		Index:     raw.Index,
	}, nil
}

func parseKind(s string, variant query.VariantKind) (ast.FunctionKind, error) {
	if variant == query.ClassConstructor {
		// Constructors carry no FunctionKind filter.
		return ast.KindSync, nil
	}
	switch strings.ToLower(s) {
	case "sync", "":
		return ast.KindSync, nil
	case "async":
		return ast.KindAsync, nil
	case "callback":
		return ast.KindCallback, nil
	default:
		return 0, weavererrors.NewInvalidConfigurationError(
			"function_query.kind", fmt.Sprintf("must be one of sync, async, callback, got %q", s))
	}
}
