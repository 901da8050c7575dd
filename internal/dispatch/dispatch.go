package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/qreviewer/qrev/internal/backend"
	"github.com/qreviewer/qrev/internal/config"
	"github.com/qreviewer/qrev/internal/hunks"
)

// Status is the lifecycle state of a review job.
type Status int

const (
	StatusPending Status = iota
	StatusInFlight
	StatusSucceeded
	StatusFailedExhausted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInFlight:
		return "in_flight"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailedExhausted:
		return "failed_exhausted"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Policy is the declarative retry/backoff/concurrency policy applied
// uniformly to every job, regardless of backend variant.
type Policy struct {
	MaxConcurrency int
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
}

// PolicyFromConfig converts the dispatch configuration to a Policy.
func PolicyFromConfig(d config.DispatchConfig) Policy {
	return Policy{
		MaxConcurrency: d.MaxConcurrency,
		MaxRetries:     d.MaxRetries,
		BackoffBase:    time.Duration(d.BackoffBaseMS) * time.Millisecond,
		BackoffCap:     time.Duration(d.BackoffCapMS) * time.Millisecond,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxConcurrency <= 0 {
		p.MaxConcurrency = 4
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = 500 * time.Millisecond
	}
	if p.BackoffCap <= 0 {
		p.BackoffCap = 8 * time.Second
	}
	return p
}

// Result is the terminal state of one job. Response is nil unless Status
// is StatusSucceeded; Err carries the last failure otherwise.
type Result struct {
	Index    int
	Hunk     *hunks.Hunk
	Response *backend.Response
	Err      error
	Status   Status
	// Attempts is the total number of backend calls made for this job.
	Attempts int
	// Backend is the last backend tried.
	Backend string
}

// Options carries per-run request context and an optional completion hook.
type Options struct {
	Guidelines  string
	RepoContext string
	MaxTokens   int
	// Notify, when set, is called once per job as it reaches a terminal
	// state. It may be called concurrently.
	Notify func(Result)
}

// Run reviews every hunk against the backend chain and returns one result
// per hunk, in input order. It never returns an error: per-job failures
// are reported in the corresponding Result.
func Run(ctx context.Context, hs []*hunks.Hunk, chain []backend.Backend, pol Policy, opts Options) []Result {
	pol = pol.withDefaults()

	results := make([]Result, len(hs))
	sem := semaphore.NewWeighted(int64(pol.MaxConcurrency))
	var wg sync.WaitGroup

	for i, h := range hs {
		results[i] = Result{Index: i, Hunk: h, Status: StatusPending}

		// Stop enqueuing once the pipeline is cancelled; jobs already
		// started resolve at their own timeouts.
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i].Status = StatusCancelled
			results[i].Err = err
			if opts.Notify != nil {
				opts.Notify(results[i])
			}
			continue
		}

		wg.Add(1)
		go func(i int, h *hunks.Hunk) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = runJob(ctx, i, h, chain, pol, opts)
			if opts.Notify != nil {
				opts.Notify(results[i])
			}
		}(i, h)
	}

	wg.Wait()
	return results
}

func runJob(ctx context.Context, index int, h *hunks.Hunk, chain []backend.Backend, pol Policy, opts Options) Result {
	res := Result{Index: index, Hunk: h, Status: StatusInFlight}
	req := backend.Request{
		Hunk:        h,
		Guidelines:  opts.Guidelines,
		RepoContext: opts.RepoContext,
		MaxTokens:   opts.MaxTokens,
	}

	var lastErr error
	for _, b := range chain {
		res.Backend = b.Name()
		for attempt := 0; attempt <= pol.MaxRetries; attempt++ {
			if ctx.Err() != nil {
				res.Status = StatusCancelled
				res.Err = ctx.Err()
				return res
			}

			res.Attempts++
			// Each call gets its own deadline, detached from pipeline
			// cancellation so an in-flight call can still resolve.
			callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.Timeout())
			resp, err := b.Submit(callCtx, req)
			cancel()

			if err == nil {
				res.Response = &resp
				res.Status = StatusSucceeded
				return res
			}
			lastErr = fmt.Errorf("%s: %w", b.Name(), err)

			// Permanent failures skip retries and advance the chain.
			if backend.IsPermanent(err) {
				break
			}
			if attempt < pol.MaxRetries {
				if err := sleepBackoff(ctx, pol, attempt); err != nil {
					res.Status = StatusCancelled
					res.Err = err
					return res
				}
			}
		}
	}

	res.Status = StatusFailedExhausted
	if lastErr == nil {
		lastErr = fmt.Errorf("no backends configured")
	}
	res.Err = lastErr
	return res
}

// sleepBackoff waits base*2^attempt, capped, or returns early on
// cancellation.
func sleepBackoff(ctx context.Context, pol Policy, attempt int) error {
	backoff := pol.BackoffBase << uint(attempt)
	if backoff > pol.BackoffCap {
		backoff = pol.BackoffCap
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}
