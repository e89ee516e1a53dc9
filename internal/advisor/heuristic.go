package advisor

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/datacleaner/internal/core"
	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

// highNullShare is the fraction of missing values that makes a column's
// missing-value issue high severity.
const highNullShare = 0.2

// Heuristic derives issues from the profile alone. Its output is
// deterministic, so it suits tests and offline runs.
type Heuristic struct{}

var _ core.Advisor = Heuristic{}

// Summarize describes shape, missing values and duplicates.
func (Heuristic) Summarize(_ context.Context, p core.Profile) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset with %d rows and %d columns.", p.Shape.Rows, p.Shape.Columns)

	var withNulls []string
	for _, c := range p.Columns {
		if c.Nulls > 0 {
			withNulls = append(withNulls, fmt.Sprintf("%s (%d)", c.Name, c.Nulls))
		}
	}
	if len(withNulls) > 0 {
		fmt.Fprintf(&b, " %d missing values across %s.", p.Nulls, strings.Join(withNulls, ", "))
	} else {
		b.WriteString(" No missing values.")
	}
	if p.Duplicates > 0 {
		fmt.Fprintf(&b, " %d duplicate rows.", p.Duplicates)
	}

	types := make([]string, 0, len(p.Columns))
	for _, c := range p.Columns {
		types = append(types, c.Name+": "+c.Type)
	}
	fmt.Fprintf(&b, " Column types: %s.", strings.Join(types, ", "))
	return b.String(), nil
}

// DetectIssues returns a JSON array of issues.
func (Heuristic) DetectIssues(_ context.Context, p core.Profile) (string, error) {
	issues := detect(p)
	data, err := json.Marshal(issues)
	if err != nil {
		return "", fmt.Errorf("encode issues: %w", err)
	}
	return string(data), nil
}

// Plan orders issues by severity and numbers them.
func (Heuristic) Plan(_ context.Context, issues []core.QualityIssue) (string, error) {
	if len(issues) == 0 {
		return "No issues found; no cleaning steps required.", nil
	}
	sorted := slices.Clone(issues)
	slices.SortStableFunc(sorted, func(a, b core.QualityIssue) int {
		return cmp.Compare(severityRank(a.Severity), severityRank(b.Severity))
	})

	var b strings.Builder
	for i, is := range sorted {
		fmt.Fprintf(&b, "%d. [priority %d] %s: %s. Action: %s.\n",
			i+1, severityRank(is.Severity), is.Column, is.Issue, is.Suggestion)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func severityRank(s core.Severity) int {
	switch s {
	case core.SeverityHigh:
		return 1
	case core.SeverityMedium:
		return 2
	default:
		return 3
	}
}

func detect(p core.Profile) []core.QualityIssue {
	issues := []core.QualityIssue{}
	if p.Duplicates > 0 {
		issues = append(issues, core.QualityIssue{
			Column:     "general",
			Issue:      fmt.Sprintf("%d duplicate rows", p.Duplicates),
			Severity:   core.SeverityMedium,
			Suggestion: "drop duplicates keeping the first occurrence",
		})
	}

	for _, c := range p.Columns {
		if c.Nulls > 0 {
			sev := core.SeverityMedium
			if p.Shape.Rows > 0 && float64(c.Nulls)/float64(p.Shape.Rows) > highNullShare {
				sev = core.SeverityHigh
			}
			fix := "impute with the mode"
			if c.Type == dataset.TypeInteger.String() || c.Type == dataset.TypeFloat.String() {
				fix = "impute with the median"
			}
			issues = append(issues, core.QualityIssue{
				Column:     c.Name,
				Issue:      fmt.Sprintf("%d missing values", c.Nulls),
				Severity:   sev,
				Suggestion: fix,
			})
		}
		if c.Type != dataset.TypeText.String() || len(c.Samples) == 0 {
			continue
		}
		issues = append(issues, textIssues(c)...)
	}
	return issues
}

// textIssues inspects the samples of a text column.
func textIssues(c core.ColumnProfile) []core.QualityIssue {
	var numeric, padded, tokens int
	folded := make(map[string]int)
	for _, v := range c.Samples {
		s := v.String()
		if _, ok := dataset.ParseNumber(s); ok {
			numeric++
		}
		if s != strings.TrimSpace(s) {
			padded++
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "none", "null", "nan", "n/a":
			tokens++
		}
		folded[strings.ToLower(strings.TrimSpace(s))]++
	}

	var out []core.QualityIssue
	if numeric > 0 && numeric < len(c.Samples) {
		out = append(out, core.QualityIssue{
			Column:     c.Name,
			Issue:      "numbers stored as text alongside non-numeric values",
			Severity:   core.SeverityHigh,
			Suggestion: "map number words to digits and coerce to numeric",
		})
	}
	if padded > 0 {
		out = append(out, core.QualityIssue{
			Column:     c.Name,
			Issue:      "leading or trailing whitespace",
			Severity:   core.SeverityLow,
			Suggestion: "trim whitespace",
		})
	}
	if tokens > 0 {
		out = append(out, core.QualityIssue{
			Column:     c.Name,
			Issue:      "placeholder text used for missing values",
			Severity:   core.SeverityMedium,
			Suggestion: "normalize null tokens",
		})
	}
	if len(folded) < len(c.Samples) {
		out = append(out, core.QualityIssue{
			Column:     c.Name,
			Issue:      "inconsistent casing or spacing of the same value",
			Severity:   core.SeverityMedium,
			Suggestion: "canonicalize category spellings",
		})
	}
	return out
}
