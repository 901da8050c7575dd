// Package redact removes secrets from hunk text before it is sent to any
// review backend.
//
// Detection uses regex heuristics covering common secret shapes: API
// keys, JWTs, private keys, AWS access key IDs and secret access keys,
// bearer tokens, and provider-specific tokens (Anthropic, OpenAI, GitHub,
// Slack). Redaction is applied per hunk, so cache keys are computed over
// the redacted text.
package redact
