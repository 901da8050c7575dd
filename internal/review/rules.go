package review

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/qreviewer/qrev/internal/model"
)

// Rules is a rules pack loaded from --rules: post-normalization severity
// overrides keyed by finding category.
type Rules struct {
	SeverityOverrides map[string]string `json:"severity_overrides,omitempty"`
}

// LoadRules loads a rules file from disk. Returns nil Rules and nil error
// if path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rules Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	return &rules, nil
}

// ApplySeverityOverrides rewrites finding severities per the rules pack.
// Override values outside the severity enum coerce to info, preserving
// the enum invariant.
func ApplySeverityOverrides(findings []model.Finding, rules *Rules) []model.Finding {
	if rules == nil || len(rules.SeverityOverrides) == 0 {
		return findings
	}
	for i := range findings {
		if override, ok := rules.SeverityOverrides[findings[i].Category]; ok {
			findings[i].Severity = model.CoerceSeverity(override)
		}
	}
	return findings
}
