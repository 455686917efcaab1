// Package main hosts the cgex CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, applies flag overrides and
// hands a run to the pipeline package. Supporting commands list the built-in
// title catalog, show run history from the manifest, report missing external
// programs and scaffold a configuration file.
//
// Keep this package thin: behaviour lives in internal packages and is only
// surfaced here through flags and output formatting.
package main
