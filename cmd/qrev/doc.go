// Qrev is a CLI for reviewing code changes hunk by hunk with pluggable
// analysis backends.
//
// It fetches pull request diffs or parses local git diffs, decomposes them
// into per-hunk review jobs, dispatches the jobs concurrently across a
// backend fallback chain, and emits normalized findings with deterministic
// exit codes suitable for CI gating.
//
// Usage:
//
//	qrev fetch --pr https://github.com/owner/repo/pull/123 --out diff.json
//	qrev review --inp diff.json --out findings.json
//	qrev review --pr https://github.com/owner/repo/pull/123
//	qrev review --local main...HEAD
//	qrev backends list
//
// See https://github.com/qreviewer/qrev for full documentation.
package main
