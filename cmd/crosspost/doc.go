// Package main hosts the crosspost CLI entrypoint and command graph.
//
// The Cobra-based command tree covers one-shot runs, the continuous watch
// loop, publish history inspection, and configuration scaffolding. It
// centralizes configuration resolution, credential loading, and structured
// logging setup so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
