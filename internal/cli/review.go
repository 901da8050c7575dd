package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/qreviewer/qrev/internal/backend"
	"github.com/qreviewer/qrev/internal/config"
	"github.com/qreviewer/qrev/internal/dispatch"
	"github.com/qreviewer/qrev/internal/github"
	"github.com/qreviewer/qrev/internal/localdiff"
	"github.com/qreviewer/qrev/internal/model"
	"github.com/qreviewer/qrev/internal/output"
	"github.com/qreviewer/qrev/internal/review"
)

// Shared review flags
var (
	flagInp            string
	flagPR             string
	flagLocalRange     string
	flagRepoDir        string
	flagOut            string
	flagGuidelines     string
	flagRules          string
	flagMaxConcurrency int
	flagMaxRetries     int
	flagTimeoutSec     int
	flagFailOn         string
	flagFormat         string
	flagNoRedact       bool
	flagVerbose        bool
	flagConfig         string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a diff hunk by hunk",
	Long:  "Review a diff document from a file, a GitHub PR, or the local git worktree. Each hunk is reviewed independently and findings are emitted as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig, buildOverrides())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		doc, ok := loadDiffDoc(cmd.Context())
		if !ok {
			return nil
		}
		runReview(cmd.Context(), doc, cfg)
		return nil
	},
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagMaxConcurrency > 0 {
		m["maxConcurrency"] = fmt.Sprintf("%d", flagMaxConcurrency)
	}
	if flagMaxRetries > 0 {
		m["maxRetries"] = fmt.Sprintf("%d", flagMaxRetries)
	}
	if flagGuidelines != "" {
		m["guidelines"] = flagGuidelines
	}
	if flagRules != "" {
		m["rulesFile"] = flagRules
	}
	if flagTimeoutSec > 0 {
		m["timeoutSec"] = fmt.Sprintf("%d", flagTimeoutSec)
	}
	return m
}

// loadDiffDoc resolves the diff source flags into a diff document. Exactly
// one of --inp, --pr, and --local must be used; --inp of "-" reads stdin.
func loadDiffDoc(ctx context.Context) (model.PRDiff, bool) {
	sources := 0
	for _, set := range []bool{flagInp != "", flagPR != "", flagLocalRange != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one of --inp, --pr, or --local is required")
		exitCode = ExitUsageError
		return model.PRDiff{}, false
	}

	switch {
	case flagPR != "":
		owner, repo, number, err := github.ParsePRURL(flagPR)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return model.PRDiff{}, false
		}
		client, err := github.NewClient()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitAuthError
			return model.PRDiff{}, false
		}
		doc, err := client.FetchPRDiff(ctx, owner, repo, number)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return model.PRDiff{}, false
		}
		return doc, true

	case flagLocalRange != "":
		commitRange := flagLocalRange
		if commitRange == "worktree" {
			commitRange = ""
		}
		raw, err := localdiff.GitDiffRange(flagRepoDir, commitRange)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return model.PRDiff{}, false
		}
		doc, err := localdiff.Parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return model.PRDiff{}, false
		}
		return doc, true

	default:
		var data []byte
		var err error
		if flagInp == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(flagInp)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading diff document: %v\n", err)
			exitCode = ExitRuntimeError
			return model.PRDiff{}, false
		}
		var doc model.PRDiff
		if err := json.Unmarshal(data, &doc); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing diff document: %v\n", err)
			exitCode = ExitUsageError
			return model.PRDiff{}, false
		}
		return doc, true
	}
}

func runReview(ctx context.Context, doc model.PRDiff, cfg config.Config) {
	if flagNoRedact {
		cfg.Privacy.RedactSecrets = false
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}

	p, err := review.New(cfg)
	if err != nil {
		if backend.IsAuthError(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitAuthError
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	if flagVerbose {
		p.Notify = func(r dispatch.Result) {
			fmt.Fprintf(os.Stderr, "  %s %s [%s, %d attempts]\n",
				r.Hunk.Ref(), r.Status, r.Backend, r.Attempts)
		}
	}

	report, err := p.Run(ctx, doc)
	if err != nil {
		if backend.IsAuthError(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitAuthError
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if err := output.WriteReport(report, flagFormat, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if cfg.FailOn != "none" && cfg.FailOn != "" {
		for _, f := range report.Findings {
			if model.MeetsThreshold(f.Severity, cfg.FailOn) {
				exitCode = ExitFindings
				return
			}
		}
	}
}

func writeJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" || path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func init() {
	f := reviewCmd.Flags()
	f.StringVar(&flagInp, "inp", "", "Diff document JSON file (use - for stdin)")
	f.StringVar(&flagPR, "pr", "", "GitHub pull request URL to fetch and review")
	f.StringVar(&flagLocalRange, "local", "", "Review a local git range (e.g. main...HEAD, or worktree)")
	f.StringVar(&flagRepoDir, "repo-dir", ".", "Repository directory for --local")
	f.StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	f.StringVar(&flagGuidelines, "guidelines", "", "Review guidelines file included in every prompt")
	f.StringVar(&flagRules, "rules", "", "Rules file with severity overrides")
	f.IntVar(&flagMaxConcurrency, "max-concurrency", 0, "Maximum concurrent hunk reviews")
	f.IntVar(&flagMaxRetries, "max-retries", 0, "Retries per backend before falling back")
	f.IntVar(&flagTimeoutSec, "timeout-sec", 0, "Per-call backend timeout in seconds")
	f.StringVar(&flagFailOn, "fail-on", "", "Fail on severity threshold (none, info, minor, major, critical)")
	f.StringVar(&flagFormat, "format", "json", "Output format (json, text, markdown, sarif)")
	f.BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	f.BoolVar(&flagVerbose, "verbose", false, "Print per-hunk progress to stderr")
	f.StringVar(&flagConfig, "config", "", "Config file path")
}
