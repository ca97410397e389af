// Package wrapper synthesizes the channel-import prelude, the
// per-instrumentation channel binding, and the two function-body
// rewrites (standard and constructor) described in §4.2.
package wrapper

import (
	"fmt"

	"github.com/orchestrion-go/weaver/internal/ast"
	"github.com/orchestrion-go/weaver/internal/config"
	"github.com/orchestrion-go/weaver/internal/printer"
)

// Synthesizer builds wrapper text fragments. It is stateless — every
// method is a pure function of its arguments, so one Synthesizer is
// shared across every Instrumentation in a transform.
type Synthesizer struct {
	DCModule string
}

func New(dcModule string) *Synthesizer {
	return &Synthesizer{DCModule: dcModule}
}

// ModuleImportPrelude returns the single shared import statement for ES
// module programs: `import { tracingChannel as tr_ch_apm_tracingChannel } from "<dc_module>";`
func (s *Synthesizer) ModuleImportPrelude() string {
	return fmt.Sprintf("import { tracingChannel as %s } from %q;\n", config.ChannelHelperName, s.DCModule)
}

// ScriptImportPrelude returns the single shared import statement for
// CommonJS script programs: `const { tracingChannel: tr_ch_apm_tracingChannel } = require("<dc_module>");`
func (s *Synthesizer) ScriptImportPrelude() string {
	return fmt.Sprintf("const { tracingChannel: %s } = require(%q);\n", config.ChannelHelperName, s.DCModule)
}

// ChannelPrelude returns the per-instrumentation channel-binding
// statement: `const tr_ch_apm$id = tr_ch_apm_tracingChannel("orchestrion:<module>:<channel>");`
func (s *Synthesizer) ChannelPrelude(sanitizedID, moduleName, channelName string) string {
	return fmt.Sprintf(
		"const %s = %s(%q);\n",
		config.ChannelBindingName(sanitizedID),
		config.ChannelHelperName,
		config.ChannelQualifiedName(moduleName, channelName),
	)
}

// StandardWrapper rewrites a function body (given as the raw inner
// source text, minus braces) into the traced-call wrapper described in
// §4.2. paramList is the original parameter list text (without
// parens), isAsync sets the outer arrow's async flag, moduleVersion is
// the optional module_version property (empty string omits it).
func (s *Synthesizer) StandardWrapper(originalBody, paramList, sanitizedID string, kind ast.FunctionKind, isAsync bool, moduleVersion string) string {
	ch := config.ChannelBindingName(sanitizedID)
	b := printer.NewCodeBuilder()
	b.Line("const __apm$original_args = arguments;")
	asyncPrefix := ""
	if isAsync {
		asyncPrefix = "async "
	}
	b.Line(fmt.Sprintf("const __apm$traced = %s() => {", asyncPrefix))
	b.Indent()
	b.Line(fmt.Sprintf("const __apm$wrapped = (%s) => {", paramList))
	b.Indent()
	b.Raw(originalBody)
	if len(originalBody) == 0 || originalBody[len(originalBody)-1] != '\n' {
		b.Raw("\n")
	}
	b.Dedent()
	b.Line("};")
	b.Line("return __apm$wrapped.apply(null, __apm$original_args);")
	b.Dedent()
	b.Line("};")
	b.Line(fmt.Sprintf("if (!%s.hasSubscribers) return __apm$traced();", ch))
	b.Line(fmt.Sprintf("return %s.%s(__apm$traced, %s);", ch, kind.Operator(), contextObjectLiteral(moduleVersion)))
	return b.String()
}

func contextObjectLiteral(moduleVersion string) string {
	if moduleVersion == "" {
		return "{ arguments, self: this }"
	}
	return fmt.Sprintf("{ arguments, self: this, moduleVersion: %q }", moduleVersion)
}

// ConstructorWrapper rewrites a constructor's body into the try/catch/
// finally publish wrapper described in §4.2. originalStatements is the
// raw inner source text of the constructor body (may begin with a
// super() call).
func (s *Synthesizer) ConstructorWrapper(originalStatements, sanitizedID string, moduleVersion string) string {
	ch := config.ChannelBindingName(sanitizedID)
	ctx := "tr_ch_apm_ctx$" + sanitizedID
	b := printer.NewCodeBuilder()
	// No `self: this` here: before super() in a subclass, reading `this`
	// throws, so self is only filled in by the catch and finally blocks.
	ctxLiteral := "{ arguments }"
	if moduleVersion != "" {
		ctxLiteral = fmt.Sprintf("{ arguments, moduleVersion: %q }", moduleVersion)
	}
	b.Line(fmt.Sprintf("const %s = %s;", ctx, ctxLiteral))
	b.Line("try {")
	b.Indent()
	b.Line(fmt.Sprintf("if (%s.hasSubscribers) %s.start.publish(%s);", ch, ch, ctx))
	b.Raw(originalStatements)
	if len(originalStatements) == 0 || originalStatements[len(originalStatements)-1] != '\n' {
		b.Raw("\n")
	}
	b.Dedent()
	b.Line("} catch (tr_ch_err) {")
	b.Indent()
	b.Line(fmt.Sprintf("if (%s.hasSubscribers) {", ch))
	b.Indent()
	b.Line(fmt.Sprintf("%s.error = tr_ch_err;", ctx))
	b.Line("try { " + ctx + ".self = this; } catch (refErr) { /* pre-super(): ignore */ }")
	b.Line(fmt.Sprintf("%s.error.publish(%s);", ch, ctx))
	b.Dedent()
	b.Line("}")
	b.Line("throw tr_ch_err;")
	b.Dedent()
	b.Line("} finally {")
	b.Indent()
	b.Line(fmt.Sprintf("if (%s.hasSubscribers) { %s.self = this; %s.end.publish(%s); }", ch, ctx, ch, ctx))
	b.Dedent()
	b.Line("}")
	return b.String()
}
