package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/qreviewer/qrev/internal/model"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *model.FindingsReport) error {
	fmt.Fprintf(w, "## Qrev Code Review\n\n")

	fmt.Fprintf(w, "| Severity | Count |\n")
	fmt.Fprintf(w, "|----------|-------|\n")
	fmt.Fprintf(w, "| Critical | %d    |\n", report.Stats.Critical)
	fmt.Fprintf(w, "| Major    | %d    |\n", report.Stats.Major)
	fmt.Fprintf(w, "| Minor    | %d    |\n", report.Stats.Minor)
	fmt.Fprintf(w, "| Info     | %d    |\n", report.Stats.Info)
	fmt.Fprintf(w, "| **Total** | **%d** |\n\n", report.Stats.Total)

	if report.Stats.Total == 0 {
		fmt.Fprintln(w, "No issues found. :white_check_mark:")
		return nil
	}

	grouped := groupBySeverity(report.Findings)
	for _, sev := range severityOrder {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		fmt.Fprintf(w, "<details>\n<summary>%s %s (%d)</summary>\n\n",
			severityIcon(sev), strings.ToUpper(string(sev)), len(findings))

		sort.SliceStable(findings, func(i, j int) bool {
			return findings[i].File < findings[j].File
		})

		for _, f := range findings {
			fmt.Fprintf(w, "### `%s`%s\n\n", f.File, mdLineRef(f))
			fmt.Fprintf(w, "%s | Confidence: %.0f%%\n\n", f.Category, f.Confidence*100)
			fmt.Fprintf(w, "%s\n\n", f.Message)

			if f.SuggestedPatch != "" {
				fmt.Fprintf(w, "**Suggested patch:**\n\n")
				fmt.Fprintf(w, "```\n%s\n```\n\n", strings.TrimRight(f.SuggestedPatch, "\n"))
			}
		}

		fmt.Fprintf(w, "</details>\n\n")
	}

	return nil
}

func mdLineRef(f model.Finding) string {
	if f.LineHint > 0 {
		return fmt.Sprintf(" line %d", f.LineHint)
	}
	return ""
}
