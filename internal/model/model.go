package model

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// SeverityRank returns a numeric rank for sorting and threshold checks
// (higher = more severe). Unknown severities rank at zero.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityMajor:
		return 3
	case SeverityMinor:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// CoerceSeverity maps arbitrary input to a member of the severity enum.
// Anything outside the enum becomes info.
func CoerceSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityInfo, SeverityMinor, SeverityMajor, SeverityCritical:
		return Severity(s)
	default:
		return SeverityInfo
	}
}

// MeetsThreshold returns true if severity is at or above the threshold.
func MeetsThreshold(s Severity, threshold string) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	return SeverityRank(s) >= SeverityRank(Severity(threshold))
}

// ClampConfidence forces a confidence score into [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// PRInfo identifies the pull request a diff document came from.
type PRInfo struct {
	URL    string `json:"url"`
	Number int    `json:"number"`
	Repo   string `json:"repo"`
}

// FilePatch is one file entry of a PR diff as delivered by the
// source-control collaborator. Patch is the unified-diff fragment for the
// file (hunk headers and lines only, no file header); it is empty for
// binary files and pure renames.
type FilePatch struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Patch     string `json:"patch,omitempty"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	SHA       string `json:"sha,omitempty"`
}

// PRDiff is the complete diff document for one review run.
type PRDiff struct {
	PR    PRInfo      `json:"pr"`
	Files []FilePatch `json:"files"`
}

// Finding is a single normalized review comment.
type Finding struct {
	File           string   `json:"file"`
	HunkHeader     string   `json:"hunk_header"`
	Severity       Severity `json:"severity"`
	Category       string   `json:"category"`
	Message        string   `json:"message"`
	Confidence     float64  `json:"confidence"`
	SuggestedPatch string   `json:"suggested_patch,omitempty"`
	LineHint       int      `json:"line_hint,omitempty"`
}

// Stats summarizes findings by severity.
type Stats struct {
	Info     int `json:"info"`
	Minor    int `json:"minor"`
	Major    int `json:"major"`
	Critical int `json:"critical"`
	Total    int `json:"total"`
}

// FindingsReport is the top-level output document.
type FindingsReport struct {
	PR       PRInfo    `json:"pr"`
	Findings []Finding `json:"findings"`
	Stats    Stats     `json:"stats"`
}

// ComputeStats tallies findings per severity.
func ComputeStats(findings []Finding) Stats {
	var s Stats
	for _, f := range findings {
		switch f.Severity {
		case SeverityInfo:
			s.Info++
		case SeverityMinor:
			s.Minor++
		case SeverityMajor:
			s.Major++
		case SeverityCritical:
			s.Critical++
		}
	}
	s.Total = len(findings)
	return s
}

// HighestSeverity returns the most severe finding severity, or the empty
// string when there are no findings.
func HighestSeverity(findings []Finding) Severity {
	var top Severity
	for _, f := range findings {
		if SeverityRank(f.Severity) > SeverityRank(top) {
			top = f.Severity
		}
	}
	return top
}
