// Package cli wires together the Cobra command tree for the qrev binary.
//
// It defines the root command and all subcommands (fetch, review, backends,
// config, cache, version), binds flags, reads configuration, invokes the
// review pipeline, and returns deterministic exit codes for CI gating.
package cli
