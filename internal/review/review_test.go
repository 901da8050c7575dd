package review

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qreviewer/qrev/internal/backend"
	"github.com/qreviewer/qrev/internal/cache"
	"github.com/qreviewer/qrev/internal/config"
	"github.com/qreviewer/qrev/internal/dispatch"
	"github.com/qreviewer/qrev/internal/model"
	"github.com/qreviewer/qrev/internal/normalize"
)

func TestFilterFiles(t *testing.T) {
	files := []model.FilePatch{
		{Path: "cmd/main.go"},
		{Path: "vendor/lib/lib.go"},
		{Path: "internal/api/api.go"},
		{Path: "docs/readme.md"},
	}

	got := FilterFiles(files, []string{"**/*.go"}, []string{"vendor/**"})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Path != "cmd/main.go" || got[1].Path != "internal/api/api.go" {
		t.Errorf("paths = %s, %s", got[0].Path, got[1].Path)
	}

	// Empty include means everything; empty exclude removes nothing.
	if got := FilterFiles(files, nil, nil); len(got) != 4 {
		t.Errorf("no filters: len = %d, want 4", len(got))
	}
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules("")
	if err != nil || rules != nil {
		t.Errorf("LoadRules(\"\") = %v, %v, want nil, nil", rules, err)
	}

	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(`{"severity_overrides":{"style":"minor","security":"critical"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err = LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules error: %v", err)
	}
	if rules.SeverityOverrides["security"] != "critical" {
		t.Errorf("overrides = %v", rules.SeverityOverrides)
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing rules file")
	}
}

func TestApplySeverityOverrides(t *testing.T) {
	rules := &Rules{SeverityOverrides: map[string]string{
		"style":    "minor",
		"security": "critical",
		"docs":     "blocking", // outside the enum, coerces to info
	}}
	findings := []model.Finding{
		{Category: "style", Severity: model.SeverityMajor},
		{Category: "security", Severity: model.SeverityInfo},
		{Category: "docs", Severity: model.SeverityMajor},
		{Category: "correctness", Severity: model.SeverityMajor},
	}

	got := ApplySeverityOverrides(findings, rules)
	if got[0].Severity != model.SeverityMinor {
		t.Errorf("style = %q, want minor", got[0].Severity)
	}
	if got[1].Severity != model.SeverityCritical {
		t.Errorf("security = %q, want critical", got[1].Severity)
	}
	if got[2].Severity != model.SeverityInfo {
		t.Errorf("docs = %q, want coerced info", got[2].Severity)
	}
	if got[3].Severity != model.SeverityMajor {
		t.Errorf("correctness = %q, want untouched major", got[3].Severity)
	}
}

// stubBackend returns canned content per file path.
type stubBackend struct {
	name    string
	content func(req backend.Request) (string, error)
	calls   atomic.Int64
}

func (s *stubBackend) Submit(ctx context.Context, req backend.Request) (backend.Response, error) {
	s.calls.Add(1)
	content, err := s.content(req)
	if err != nil {
		return backend.Response{}, err
	}
	return backend.Response{Backend: s.name, Content: content}, nil
}

func (s *stubBackend) Name() string           { return s.name }
func (s *stubBackend) Timeout() time.Duration { return time.Second }

func testPipeline(t *testing.T, b backend.Backend) *Pipeline {
	t.Helper()
	c, err := cache.New(false, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	return &Pipeline{
		chain:        []backend.Backend{b},
		policy:       dispatch.Policy{MaxConcurrency: 4, MaxRetries: 0, BackoffBase: time.Millisecond, BackoffCap: time.Millisecond},
		normalizer:   normalize.New(),
		cache:        c,
		primaryName:  b.Name(),
		primaryModel: "test-model",
	}
}

func TestPipeline_Run(t *testing.T) {
	b := &stubBackend{
		name: "stub",
		content: func(req backend.Request) (string, error) {
			if req.Hunk.FilePath == "clean.go" {
				return "[]", nil
			}
			return `[{"severity":"major","category":"correctness","message":"bug here","confidence":0.9}]`, nil
		},
	}
	p := testPipeline(t, b)

	doc := model.PRDiff{
		PR: model.PRInfo{URL: "https://github.com/o/r/pull/1", Number: 1, Repo: "o/r"},
		Files: []model.FilePatch{
			{Path: "buggy.go", Status: "modified", Patch: "@@ -1,1 +1,1 @@\n-a\n+b\n@@ -10,1 +10,1 @@\n-c\n+d\n"},
			{Path: "clean.go", Status: "modified", Patch: "@@ -1,1 +1,1 @@\n-x\n+y\n"},
		},
	}

	report, err := p.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.Stats.Total != 2 || report.Stats.Major != 2 {
		t.Errorf("Stats = %+v", report.Stats)
	}
	for i, f := range report.Findings {
		if f.File != "buggy.go" {
			t.Errorf("Findings[%d].File = %q, want buggy.go", i, f.File)
		}
	}
	// Two hunks in buggy.go, one in clean.go.
	if got := b.calls.Load(); got != 3 {
		t.Errorf("backend calls = %d, want 3", got)
	}
	if report.PR.Number != 1 {
		t.Errorf("PR = %+v", report.PR)
	}
}

func TestPipeline_EmptyDiff(t *testing.T) {
	b := &stubBackend{name: "stub", content: func(backend.Request) (string, error) { return "[]", nil }}
	p := testPipeline(t, b)

	report, err := p.Run(context.Background(), model.PRDiff{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.Findings == nil || len(report.Findings) != 0 {
		t.Errorf("Findings = %v, want empty non-nil", report.Findings)
	}
	if report.Stats.Total != 0 {
		t.Errorf("Stats = %+v", report.Stats)
	}
	if got := b.calls.Load(); got != 0 {
		t.Errorf("backend calls = %d, want 0", got)
	}
}

func TestPipeline_MalformedFileYieldsDiagnostic(t *testing.T) {
	b := &stubBackend{name: "stub", content: func(backend.Request) (string, error) { return "[]", nil }}
	p := testPipeline(t, b)

	doc := model.PRDiff{Files: []model.FilePatch{
		{Path: "bad.go", Status: "modified", Patch: "@@ broken @@\n+x"},
		{Path: "good.go", Status: "modified", Patch: "@@ -1,1 +1,1 @@\n-a\n+b\n"},
	}}

	report, err := p.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("len(Findings) = %d, want 1 diagnostic", len(report.Findings))
	}
	f := report.Findings[0]
	if f.File != "bad.go" || f.Category != "system" || f.Severity != model.SeverityInfo || f.Confidence != 0.1 {
		t.Errorf("diagnostic = %+v", f)
	}
	if !strings.Contains(f.Message, "file skipped") {
		t.Errorf("Message = %q", f.Message)
	}
}

func TestPipeline_FailedHunkYieldsDiagnostic(t *testing.T) {
	b := &stubBackend{
		name: "stub",
		content: func(req backend.Request) (string, error) {
			return "", &backend.TransientError{Reason: "down"}
		},
	}
	p := testPipeline(t, b)

	doc := model.PRDiff{Files: []model.FilePatch{
		{Path: "a.go", Status: "modified", Patch: "@@ -1,1 +1,1 @@\n-a\n+b\n"},
	}}

	report, err := p.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("len(Findings) = %d, want 1", len(report.Findings))
	}
	f := report.Findings[0]
	if f.Category != "system" || f.Confidence != 0.1 {
		t.Errorf("diagnostic = %+v", f)
	}
	if !strings.Contains(f.Message, "review failed after") {
		t.Errorf("Message = %q", f.Message)
	}
}

func TestPipeline_FilterAndRedact(t *testing.T) {
	var sawSecret atomic.Bool
	b := &stubBackend{
		name: "stub",
		content: func(req backend.Request) (string, error) {
			if strings.Contains(req.Hunk.Text(), "hunter2hunter2") {
				sawSecret.Store(true)
			}
			return "[]", nil
		},
	}
	p := testPipeline(t, b)
	p.include = []string{"**/*.go"}
	p.exclude = []string{"vendor/**"}
	p.redactSecrets = true

	doc := model.PRDiff{Files: []model.FilePatch{
		{Path: "a.go", Status: "modified", Patch: "@@ -1,1 +1,1 @@\n-a\n+password: \"hunter2hunter2\"\n"},
		{Path: "vendor/b.go", Status: "modified", Patch: "@@ -1,1 +1,1 @@\n-a\n+b\n"},
		{Path: "readme.txt", Status: "modified", Patch: "@@ -1,1 +1,1 @@\n-a\n+b\n"},
	}}

	if _, err := p.Run(context.Background(), doc); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := b.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1 (vendored and non-go files filtered)", got)
	}
	if sawSecret.Load() {
		t.Error("secret reached the backend; redaction failed")
	}
}

func TestPipeline_RulesApplied(t *testing.T) {
	b := &stubBackend{
		name: "stub",
		content: func(backend.Request) (string, error) {
			return `[{"severity":"info","category":"security","message":"weak hash"}]`, nil
		},
	}
	p := testPipeline(t, b)
	p.rules = &Rules{SeverityOverrides: map[string]string{"security": "critical"}}

	doc := model.PRDiff{Files: []model.FilePatch{
		{Path: "a.go", Status: "modified", Patch: "@@ -1,1 +1,1 @@\n-a\n+b\n"},
	}}

	report, err := p.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.Findings[0].Severity != model.SeverityCritical {
		t.Errorf("Severity = %q, want critical after override", report.Findings[0].Severity)
	}
}

func TestPipeline_CacheSkipsRepeatCalls(t *testing.T) {
	b := &stubBackend{
		name: "stub",
		content: func(backend.Request) (string, error) {
			return `[{"severity":"minor","category":"style","message":"naming"}]`, nil
		},
	}
	p := testPipeline(t, b)
	c, err := cache.New(true, t.TempDir(), 3600)
	if err != nil {
		t.Fatal(err)
	}
	p.cache = c

	doc := model.PRDiff{Files: []model.FilePatch{
		{Path: "a.go", Status: "modified", Patch: "@@ -1,1 +1,1 @@\n-a\n+b\n"},
	}}

	first, err := p.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	second, err := p.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := b.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1 (second run served from cache)", got)
	}
	if len(first.Findings) != 1 || len(second.Findings) != 1 {
		t.Errorf("findings = %d, %d, want 1, 1", len(first.Findings), len(second.Findings))
	}
	if second.Findings[0].Message != first.Findings[0].Message {
		t.Errorf("cached finding differs: %+v vs %+v", second.Findings[0], first.Findings[0])
	}
}

func TestNew_FromConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	cfg := config.Default()
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if p.primaryName != "anthropic" {
		t.Errorf("primaryName = %q", p.primaryName)
	}
}

func TestNew_MissingGuidelinesFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	cfg := config.Default()
	cfg.GuidelinesFile = filepath.Join(t.TempDir(), "absent.md")
	if _, err := New(cfg); err == nil {
		t.Error("expected error for missing guidelines file")
	}
}
