// Package config loads and merges qrev configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (QREV_FAIL_ON, QREV_MAX_CONCURRENCY, etc.)
//  3. Config file (qrev.toml in the working directory, or
//     $XDG_CONFIG_HOME/qrev/qrev.toml)
//  4. Built-in defaults
//
// The merged [Config] carries the ordered backend chain (primary first,
// then fallbacks), the dispatch policy, file filters, and privacy/cache
// settings. It is passed into pipeline construction as a value; there is
// no process-wide configuration state.
package config
