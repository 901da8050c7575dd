// Package dispatch schedules hunk reviews across a backend fallback chain
// under a bounded worker pool.
//
// Every hunk becomes one job. Jobs run at most MaxConcurrency at a time;
// each backend call carries its own deadline, transient failures are
// retried with capped exponential backoff, permanent failures advance the
// fallback chain immediately, and a job that exhausts the whole chain is
// returned as failed rather than dropped. Results always come back in
// input order regardless of completion order.
//
// Cancelling the context stops pending jobs from starting; calls already
// in flight resolve at their own per-call timeouts.
package dispatch
