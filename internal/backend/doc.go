// Package backend defines the analysis-backend capability and its three
// variants: an HTTP backend speaking an OpenAI-compatible chat API, a
// process backend invoking an external command locally or over SSH, and a
// managed-inference backend with Anthropic-messages request shaping.
//
// Backends do one thing: submit a single hunk for review and return the
// raw response. Every failure is classified as transient (retryable),
// permanent, or malformed; retry, backoff, and fallback policy belong to
// the dispatcher, not here. The wire format of each call is private to its
// variant.
package backend
