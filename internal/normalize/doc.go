// Package normalize converts raw backend responses into validated
// findings.
//
// Backends answer in whatever shape their model produces: a JSON object
// with a findings array, a bare JSON array, JSON buried in prose, or a
// YAML document. The normalizer tries a configurable sequence of parsing
// strategies and, when none recovers structure, emits a single diagnostic
// finding instead — a parse failure never crosses this boundary as an
// error. Confidence values are clamped into [0,1] and unknown severities
// coerce to info.
package normalize
