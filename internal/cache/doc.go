// Package cache provides a file-based cache for normalized review
// findings.
//
// Entries are keyed by a SHA-256 hash of the backend name, model, exact
// hunk text, and guideline text, so an unchanged hunk re-reviewed by the
// same backend is served from disk. Each entry stores the findings along
// with a creation timestamp and a TTL (in seconds). Expired entries are
// skipped on read and removed during cache-clear operations.
//
// The default cache directory is $XDG_CACHE_HOME/qrev (or the
// OS-appropriate equivalent). Hunk text is hashed after secret redaction.
package cache
