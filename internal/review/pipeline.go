package review

import (
	"context"
	"fmt"
	"os"

	"github.com/qreviewer/qrev/internal/backend"
	"github.com/qreviewer/qrev/internal/cache"
	"github.com/qreviewer/qrev/internal/config"
	"github.com/qreviewer/qrev/internal/dispatch"
	"github.com/qreviewer/qrev/internal/hunks"
	"github.com/qreviewer/qrev/internal/model"
	"github.com/qreviewer/qrev/internal/normalize"
	"github.com/qreviewer/qrev/internal/redact"
)

// Pipeline runs a full review: filter files, extract hunks, dispatch to
// the backend chain, normalize responses into an ordered finding stream.
type Pipeline struct {
	chain      []backend.Backend
	policy     dispatch.Policy
	normalizer *normalize.Normalizer
	cache      *cache.Cache
	rules      *Rules
	guidelines string

	include       []string
	exclude       []string
	redactSecrets bool

	primaryName  string
	primaryModel string

	// Notify, when set, receives each job's terminal result as reviews
	// complete. It may be called concurrently.
	Notify func(dispatch.Result)
}

// New builds a Pipeline from configuration. Guideline and rules files are
// read eagerly so a broken path fails at construction, not mid-review.
func New(cfg config.Config) (*Pipeline, error) {
	chain, err := backend.NewChain(cfg.Backends)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	rules, err := LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	var guidelines string
	if cfg.GuidelinesFile != "" {
		data, err := os.ReadFile(cfg.GuidelinesFile)
		if err != nil {
			return nil, fmt.Errorf("reading guidelines file: %w", err)
		}
		guidelines = string(data)
	}

	return &Pipeline{
		chain:         chain,
		policy:        dispatch.PolicyFromConfig(cfg.Dispatch),
		normalizer:    normalize.New(),
		cache:         c,
		rules:         rules,
		guidelines:    guidelines,
		include:       cfg.Include,
		exclude:       cfg.Exclude,
		redactSecrets: cfg.Privacy.RedactSecrets,
		primaryName:   chain[0].Name(),
		primaryModel:  cfg.Backends[0].Model,
	}, nil
}

// Run reviews the diff document and returns the findings report. Findings
// appear in hunk input order; files whose patches could not be parsed and
// hunks whose reviews failed contribute diagnostic findings in place.
// An empty diff yields an empty report, not an error.
func (p *Pipeline) Run(ctx context.Context, doc model.PRDiff) (*model.FindingsReport, error) {
	files := FilterFiles(doc.Files, p.include, p.exclude)
	if p.redactSecrets {
		for i := range files {
			files[i].Patch = redact.Secrets(files[i].Patch)
		}
	}

	extracted := hunks.Extract(files)
	all := hunks.Flatten(extracted)

	perHunk := make([][]model.Finding, len(all))

	// Serve unchanged hunks from the cache; dispatch the rest.
	var pending []*hunks.Hunk
	var pendingIdx []int
	for i, h := range all {
		if fs, ok := p.cache.Get(p.cacheKey(h)); ok {
			perHunk[i] = fs
			continue
		}
		pending = append(pending, h)
		pendingIdx = append(pendingIdx, i)
	}

	results := dispatch.Run(ctx, pending, p.chain, p.policy, dispatch.Options{
		Guidelines: p.guidelines,
		Notify:     p.Notify,
	})
	for j, r := range results {
		fs := p.resultFindings(r)
		perHunk[pendingIdx[j]] = fs
		if r.Status == dispatch.StatusSucceeded {
			// Cache write failures are not worth failing the run over.
			_ = p.cache.Put(p.cacheKey(r.Hunk), fs)
		}
	}

	// Assemble output in file order, hunk order within each file.
	var findings []model.Finding
	cursor := 0
	for _, fh := range extracted {
		if fh.Err != nil {
			findings = append(findings, fileDiagnostic(fh))
			continue
		}
		for range fh.Hunks {
			findings = append(findings, perHunk[cursor]...)
			cursor++
		}
	}

	findings = ApplySeverityOverrides(findings, p.rules)
	if findings == nil {
		findings = []model.Finding{}
	}

	return &model.FindingsReport{
		PR:       doc.PR,
		Findings: findings,
		Stats:    model.ComputeStats(findings),
	}, nil
}

// resultFindings converts one dispatch result into findings. A hunk's
// result is never dropped: failed and cancelled jobs yield a diagnostic
// finding.
func (p *Pipeline) resultFindings(r dispatch.Result) []model.Finding {
	switch r.Status {
	case dispatch.StatusSucceeded:
		return p.normalizer.Findings(*r.Response, r.Hunk)
	case dispatch.StatusCancelled:
		return []model.Finding{normalize.Diagnostic(r.Hunk, "review cancelled before completion")}
	default:
		return []model.Finding{normalize.Diagnostic(r.Hunk,
			fmt.Sprintf("review failed after %d attempts: %v", r.Attempts, r.Err))}
	}
}

func (p *Pipeline) cacheKey(h *hunks.Hunk) string {
	return cache.Key(p.primaryName, p.primaryModel, h.Text(), p.guidelines)
}

// fileDiagnostic flags a file whose patch could not be decomposed.
func fileDiagnostic(fh hunks.FileHunks) model.Finding {
	return model.Finding{
		File:       fh.Path,
		Severity:   model.SeverityInfo,
		Category:   "system",
		Message:    fmt.Sprintf("file skipped: %v", fh.Err),
		Confidence: 0.1,
	}
}
