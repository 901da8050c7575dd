package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/qreviewer/qrev/internal/model"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *model.FindingsReport) error {
	ew := &errWriter{w: w}

	ew.printf("Qrev Code Review — %s\n", reportTarget(report))
	ew.println(strings.Repeat("─", 60))
	ew.printf("Findings: %d total", report.Stats.Total)
	if report.Stats.Total > 0 {
		ew.printf(" (%d critical, %d major, %d minor, %d info)",
			report.Stats.Critical,
			report.Stats.Major,
			report.Stats.Minor,
			report.Stats.Info,
		)
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if report.Stats.Total == 0 {
		ew.println("\nNo issues found. Looks good!")
		return ew.err
	}

	grouped := groupBySeverity(report.Findings)
	for _, sev := range severityOrder {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		label := strings.ToUpper(string(sev))
		ew.printf("\n%s %s\n", severityIcon(sev), label)
		ew.println(strings.Repeat("─", 40))

		// Sort by file path within severity
		sort.SliceStable(findings, func(i, j int) bool {
			return findings[i].File < findings[j].File
		})

		for _, f := range findings {
			ew.printf("\n  %s%s\n", f.File, lineRef(f))
			ew.printf("  Category: %s | Confidence: %.0f%%\n",
				f.Category, f.Confidence*100)

			for _, line := range wrapText(f.Message, 70) {
				ew.printf("    %s\n", line)
			}

			if f.SuggestedPatch != "" {
				ew.println("  Suggested patch:")
				for _, line := range strings.Split(strings.TrimRight(f.SuggestedPatch, "\n"), "\n") {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	return ew.err
}

func reportTarget(report *model.FindingsReport) string {
	if report.PR.URL != "" {
		return report.PR.URL
	}
	return "local diff"
}

func lineRef(f model.Finding) string {
	if f.LineHint > 0 {
		return fmt.Sprintf(":%d", f.LineHint)
	}
	if f.HunkHeader != "" {
		return "  " + f.HunkHeader
	}
	return ""
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func severityIcon(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "[!!]"
	case model.SeverityMajor:
		return "[!]"
	case model.SeverityMinor:
		return "[-]"
	case model.SeverityInfo:
		return "[i]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
