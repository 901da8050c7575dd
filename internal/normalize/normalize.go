package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qreviewer/qrev/internal/backend"
	"github.com/qreviewer/qrev/internal/hunks"
	"github.com/qreviewer/qrev/internal/model"
)

// defaultConfidence is assigned when a backend omits the confidence field.
const defaultConfidence = 0.5

// diagnosticConfidence marks findings synthesized by the normalizer
// itself.
const diagnosticConfidence = 0.1

// RawFinding is the finding shape accepted from backend payloads. All
// fields are optional; defaults and coercion are applied on conversion.
type RawFinding struct {
	Severity       string   `json:"severity" yaml:"severity"`
	Category       string   `json:"category" yaml:"category"`
	Message        string   `json:"message" yaml:"message"`
	Confidence     *float64 `json:"confidence" yaml:"confidence"`
	SuggestedPatch string   `json:"suggested_patch" yaml:"suggested_patch"`
	Line           int      `json:"line" yaml:"line"`
}

// Strategy attempts to recover finding structure from cleaned response
// text. It reports false when the text is not in its shape.
type Strategy func(text string) ([]RawFinding, bool)

// Normalizer converts backend responses to findings using an ordered
// strategy chain. The zero value is not usable; call New.
type Normalizer struct {
	strategies []Strategy
}

// New creates a Normalizer. With no arguments the default strategy chain
// is used: JSON object with findings array, bare JSON array, first
// balanced JSON fragment in free text, YAML document.
func New(strategies ...Strategy) *Normalizer {
	if len(strategies) == 0 {
		strategies = []Strategy{
			ObjectStrategy,
			ArrayStrategy,
			EmbeddedJSONStrategy,
			YAMLStrategy,
		}
	}
	return &Normalizer{strategies: strategies}
}

// Findings converts one backend response into zero or more findings for
// the hunk it reviewed. It never fails: unrecoverable responses yield
// exactly one diagnostic finding.
func (n *Normalizer) Findings(resp backend.Response, h *hunks.Hunk) []model.Finding {
	text := Clean(resp.Content)
	for _, strat := range n.strategies {
		raw, ok := strat(text)
		if !ok {
			continue
		}
		out := make([]model.Finding, 0, len(raw))
		for _, r := range raw {
			out = append(out, convert(r, h))
		}
		return out
	}
	msg := fmt.Sprintf("unparseable response from %s: %s", resp.Backend, truncate(resp.Content, 500))
	return []model.Finding{Diagnostic(h, msg)}
}

// Diagnostic builds the last-resort finding for a hunk whose review could
// not be completed or parsed.
func Diagnostic(h *hunks.Hunk, msg string) model.Finding {
	return model.Finding{
		File:       h.FilePath,
		HunkHeader: h.Header,
		Severity:   model.SeverityInfo,
		Category:   "system",
		Message:    msg,
		Confidence: diagnosticConfidence,
		LineHint:   h.EndLine,
	}
}

func convert(r RawFinding, h *hunks.Hunk) model.Finding {
	confidence := defaultConfidence
	if r.Confidence != nil {
		confidence = model.ClampConfidence(*r.Confidence)
	}
	category := r.Category
	if category == "" {
		category = "general"
	}
	message := r.Message
	if message == "" {
		message = "no message provided"
	}
	lineHint := r.Line
	if lineHint == 0 {
		lineHint = h.EndLine
	}
	return model.Finding{
		File:           h.FilePath,
		HunkHeader:     h.Header,
		Severity:       model.CoerceSeverity(r.Severity),
		Category:       category,
		Message:        message,
		Confidence:     confidence,
		SuggestedPatch: r.SuggestedPatch,
		LineHint:       lineHint,
	}
}

var ansiEscape = regexp.MustCompile(`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// Clean strips the decoration CLI-style backends wrap around their
// payloads: ANSI color codes, interactive prompt prefixes, and markdown
// code fences.
func Clean(text string) string {
	text = ansiEscape.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "> ")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) >= 2 {
			end := len(lines)
			if strings.TrimSpace(lines[end-1]) == "```" {
				end--
			}
			text = strings.TrimSpace(strings.Join(lines[1:end], "\n"))
		}
	}
	return text
}

// ObjectStrategy parses a JSON object containing a findings array.
func ObjectStrategy(text string) ([]RawFinding, bool) {
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var doc struct {
		Findings []RawFinding `json:"findings"`
	}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, false
	}
	if doc.Findings == nil {
		return nil, false
	}
	return doc.Findings, true
}

// ArrayStrategy parses a bare JSON array of finding objects.
func ArrayStrategy(text string) ([]RawFinding, bool) {
	if !strings.HasPrefix(text, "[") {
		return nil, false
	}
	var raw []RawFinding
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}
	return raw, true
}

// EmbeddedJSONStrategy extracts the first balanced JSON object or array
// from free text and parses it with the object and array strategies.
func EmbeddedJSONStrategy(text string) ([]RawFinding, bool) {
	fragment, ok := firstJSONFragment(text)
	if !ok {
		return nil, false
	}
	if raw, ok := ObjectStrategy(fragment); ok {
		return raw, true
	}
	return ArrayStrategy(fragment)
}

// YAMLStrategy parses a YAML document: either a mapping with a findings
// key or a bare sequence of findings.
func YAMLStrategy(text string) ([]RawFinding, bool) {
	var doc struct {
		Findings []RawFinding `yaml:"findings"`
	}
	if err := yaml.Unmarshal([]byte(text), &doc); err == nil && doc.Findings != nil {
		return doc.Findings, true
	}
	var seq []RawFinding
	if err := yaml.Unmarshal([]byte(text), &seq); err == nil && seq != nil {
		return seq, true
	}
	return nil, false
}

// firstJSONFragment scans text for the first balanced {...} or [...]
// fragment, respecting string literals and escapes.
func firstJSONFragment(text string) (string, bool) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", false
	}
	opener := text[start]
	var closer byte = '}'
	if opener == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
