package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/qreviewer/qrev/internal/config"
	"github.com/qreviewer/qrev/internal/hunks"
)

// Request carries one hunk to a backend, with optional guideline text and
// repository context for the prompt.
type Request struct {
	Hunk        *hunks.Hunk
	Guidelines  string
	RepoContext string
	MaxTokens   int
}

// Response is the raw result of one backend call.
type Response struct {
	// Backend is the name of the backend that produced the response.
	Backend string
	// Content is the raw payload, text or JSON, exactly as returned.
	Content string
	Latency time.Duration
}

// Backend is the single capability every variant implements. Submit must
// honor ctx cancellation and classify every failure via the error types in
// this package. Implementations must be safe for concurrent use.
type Backend interface {
	Submit(ctx context.Context, req Request) (Response, error)
	Name() string
	// Timeout is the per-call deadline the dispatcher applies around
	// each Submit.
	Timeout() time.Duration
}

// New creates a backend from its configuration.
func New(cfg config.BackendConfig) (Backend, error) {
	switch cfg.Kind {
	case "http":
		return NewHTTP(cfg)
	case "process":
		return NewProcess(cfg)
	case "inference":
		return NewInference(cfg)
	default:
		return nil, fmt.Errorf("unknown backend kind: %s", cfg.Kind)
	}
}

// NewChain builds the ordered backend chain (primary first) from config.
func NewChain(cfgs []config.BackendConfig) ([]Backend, error) {
	chain := make([]Backend, 0, len(cfgs))
	for i, c := range cfgs {
		b, err := New(c)
		if err != nil {
			return nil, fmt.Errorf("backend %d (%s): %w", i, c.Name, err)
		}
		chain = append(chain, b)
	}
	return chain, nil
}
