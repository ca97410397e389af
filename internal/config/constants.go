package config

// Version is the current weaver engine version, set at build time by the
// release pipeline via -ldflags, mirroring the teacher toolchain's own
// Version var.
var Version = "0.1.0"

// SourceFileExtensions are the extensions cmd/weaverctl accepts as JS
// source on its command line; anything else is rejected before it ever
// reaches the parser collaborator.
var SourceFileExtensions = []string{".js", ".cjs", ".mjs", ".jsx"}

// HasSourceExt returns true if the path ends with any recognized source
// extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// reservedChannelPrefix is the identifier prefix every generated
// diagnostics-channel binding uses, taken verbatim from the original
// instrumentation engine's code generation so output matches what a real
// diagnostics_channel consumer expects: `tr_ch_apm$<id>`, where id is
// the sanitized channel name.
const reservedChannelPrefix = "tr_ch_apm"

// ChannelBindingName returns the identifier a channel constant is bound
// to for the given logical channel name.
func ChannelBindingName(channelName string) string {
	return reservedChannelPrefix + "$" + channelName
}

// ChannelHelperName returns the identifier the channel-import prelude
// binds the `tracingChannel` constructor helper to.
const ChannelHelperName = reservedChannelPrefix + "_tracingChannel"

// DefaultDCModule is the Node.js built-in module the channel-import
// prelude imports from when a Config doesn't override it.
const DefaultDCModule = "diagnostics_channel"

// ChannelQualifiedName returns the colon-separated channel name published on the
// diagnostics channel, e.g. "orchestrion:express:request".
func ChannelQualifiedName(moduleName, channelName string) string {
	return "orchestrion:" + moduleName + ":" + channelName
}

// ConfigEnvelopeVersion is the only accepted top-level "version" field in
// a loaded YAML catalog.
const ConfigEnvelopeVersion = 1
