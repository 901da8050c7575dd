package backend

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a strict, expert code reviewer. Your job is to review a single diff hunk and produce structured findings in JSON format.

Rules:
1. Only review the change shown in the hunk. Do not comment on unchanged code.
2. Focus on bugs, security issues, performance problems, and correctness. Avoid bikeshedding on style unless it impacts readability significantly.
3. Be concise and actionable: at most two sentences per finding.
4. Rate severity as "info", "minor", "major", or "critical".
5. Rate your confidence from 0.0 to 1.0.
6. Categorize each finding as one of: correctness, security, performance, complexity, style, tests, docs.

You MUST respond with ONLY a JSON array of findings. No markdown, no explanation, no preamble. Just the JSON array.

Each finding must have this exact structure:
{
  "severity": "info|minor|major|critical",
  "category": "correctness|security|performance|complexity|style|tests|docs",
  "message": "What is wrong and why it matters",
  "confidence": 0.0-1.0,
  "suggested_patch": "optional replacement code",
  "line": 1
}

If there are no issues, respond with an empty array: []`

// SystemPrompt returns the review rubric sent as the system message.
func SystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt renders the hunk, its metadata, and any guideline text
// into the user message shared by all backend variants.
func BuildUserPrompt(req Request) string {
	var b strings.Builder

	h := req.Hunk
	fmt.Fprintf(&b, "File: %s (%s)\n", h.FilePath, h.Status)
	if h.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", h.Language)
	}
	fmt.Fprintf(&b, "Hunk: %s\n", h.Header)

	b.WriteString("\n--- BEGIN HUNK ---\n")
	b.WriteString(h.Body())
	if !strings.HasSuffix(h.Body(), "\n") {
		b.WriteString("\n")
	}
	b.WriteString("--- END HUNK ---\n")

	if req.Guidelines != "" {
		b.WriteString("\nProject guidelines:\n")
		b.WriteString(req.Guidelines)
		b.WriteString("\n")
	}
	if req.RepoContext != "" {
		b.WriteString("\nRepository context:\n")
		b.WriteString(req.RepoContext)
		b.WriteString("\n")
	}

	b.WriteString("\nReview this change and respond with the JSON findings array.")
	return b.String()
}
