// Package hunks decomposes unified-diff patch text into addressable hunks.
//
// Each file patch (the bare hunk fragment the GitHub API returns, without
// file headers) is split at @@ header lines. Line entries carry resolved
// old-side and new-side line numbers: a context line advances both
// counters, an added line only the new counter, a removed line only the
// old counter. Hunks retain their exact source text, so a file's patch can
// be reassembled byte for byte from its hunks.
//
// A header that fails to parse fails only that file's hunk list; the
// remaining files are unaffected.
package hunks
