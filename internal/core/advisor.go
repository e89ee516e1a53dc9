package core

import (
	"context"
	"encoding/json"
	"strings"
)

// Severity grades a quality issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// QualityIssue is one problem reported by an Advisor.
type QualityIssue struct {
	Column     string   `json:"column" yaml:"column"`
	Issue      string   `json:"issue" yaml:"issue"`
	Severity   Severity `json:"severity" yaml:"severity"`
	Suggestion string   `json:"suggestion" yaml:"suggestion"`
}

// FallbackIssue stands in for advisor output that could not be read.
var FallbackIssue = QualityIssue{
	Column:     "general",
	Issue:      "unparsable",
	Severity:   SeverityMedium,
	Suggestion: "manual review",
}

// Advisor describes a dataset and proposes fixes. Implementations usually
// call a language model; their output is free text and is only reported,
// never used to steer cleaning.
type Advisor interface {
	// Summarize returns a short narrative about the dataset.
	Summarize(ctx context.Context, p Profile) (string, error)
	// DetectIssues returns text that should contain a JSON array of
	// QualityIssue objects.
	DetectIssues(ctx context.Context, p Profile) (string, error)
	// Plan returns a free-text remediation plan for issues.
	Plan(ctx context.Context, issues []QualityIssue) (string, error)
}

// ParseIssues extracts a JSON array of issues from text. Code fences and
// surrounding prose are tolerated. Any failure yields the single
// FallbackIssue; it never panics.
func ParseIssues(text string) (issues []QualityIssue) {
	defer func() {
		if recover() != nil {
			issues = []QualityIssue{FallbackIssue}
		}
	}()

	raw, ok := extractJSONArray(text)
	if !ok {
		return []QualityIssue{FallbackIssue}
	}
	var parsed []QualityIssue
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return []QualityIssue{FallbackIssue}
	}
	for i := range parsed {
		parsed[i].Severity = normalizeSeverity(parsed[i].Severity)
	}
	return parsed
}

// extractJSONArray finds the array inside a ```json fence, a bare ``` fence,
// or between the first '[' and the last ']'.
func extractJSONArray(text string) (string, bool) {
	body := text
	if _, after, ok := strings.Cut(text, "```json"); ok {
		body, _, _ = strings.Cut(after, "```")
	} else if _, after, ok := strings.Cut(text, "```"); ok {
		body, _, _ = strings.Cut(after, "```")
	}

	start := strings.IndexByte(body, '[')
	end := strings.LastIndexByte(body, ']')
	if start < 0 || end <= start {
		return "", false
	}
	return body[start : end+1], true
}

func normalizeSeverity(s Severity) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(string(s)))) {
	case SeverityLow:
		return SeverityLow
	case SeverityHigh:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
