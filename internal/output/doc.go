// Package output renders findings reports in multiple formats.
//
// Supported formats: json (the canonical findings document), text
// (human-readable terminal output), markdown (PR-comment-friendly), and
// sarif (SARIF v2.1.0 for code scanning integrations).
package output
