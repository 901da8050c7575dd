// Package review composes the full pipeline: file filtering, hunk
// extraction, concurrent dispatch across the backend fallback chain, and
// response normalization into one ordered finding stream.
//
// The pipeline degrades instead of aborting: a file whose patch cannot be
// parsed is flagged with a diagnostic finding, a hunk whose review
// exhausts every backend yields a diagnostic finding, and an empty diff
// produces an empty report. Output finding order always follows input
// hunk order.
//
// Rules packs (rules.go) let callers override finding severities by
// category after normalization.
package review
