// Package errors implements the error taxonomy of the instrumentation
// engine, in the struct-plus-Error()-method shape the rest of the module
// uses for its own domain errors (see internal/typesystem.SymbolNotFoundError
// in the original language toolchain this package descends from).
package errors

import "fmt"

// ParseFailure means the source handed to the orchestrator could not be
// parsed as JavaScript at all; no instrumentation was attempted.
type ParseFailure struct {
	Path   string
	Reason string
}

func NewParseFailure(path, reason string) *ParseFailure {
	return &ParseFailure{Path: path, Reason: reason}
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure in %s: %s", e.Path, e.Reason)
}

// InjectionMatchFailure means an InstrumentationConfig's ModuleMatcher
// matched the module/version/path, but its FunctionQuery never matched
// any function in the parsed program. The orchestrator collects these
// rather than aborting the transform.
type InjectionMatchFailure struct {
	ModuleName     string
	ChannelName    string
	FilePath       string
	QueryName      string
	QueryIndex     int
}

func NewInjectionMatchFailure(moduleName, channelName, filePath, queryName string, queryIndex int) *InjectionMatchFailure {
	return &InjectionMatchFailure{
		ModuleName:  moduleName,
		ChannelName: channelName,
		FilePath:    filePath,
		QueryName:   queryName,
		QueryIndex:  queryIndex,
	}
}

func (e *InjectionMatchFailure) Error() string {
	return fmt.Sprintf(
		"instrumentation %q (module %s, file %s) never matched function %q at index %d",
		e.ChannelName, e.ModuleName, e.FilePath, e.QueryName, e.QueryIndex,
	)
}

// InvalidConfigurationError means a loaded InstrumentationConfig was
// structurally invalid (bad type/kind enum, unparsable semver range, bad
// envelope version) and was rejected before any matching was attempted.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func NewInvalidConfigurationError(field, reason string) *InvalidConfigurationError {
	return &InvalidConfigurationError{Field: field, Reason: reason}
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
