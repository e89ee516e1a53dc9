package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/datacleaner/internal/core"
)

func columnFacts(p core.Profile) (names, types, nulls, samples string) {
	n := make([]string, 0, len(p.Columns))
	t := make(map[string]string, len(p.Columns))
	m := make(map[string]int)
	s := make(map[string][]string, len(p.Columns))
	for _, c := range p.Columns {
		n = append(n, c.Name)
		t[c.Name] = c.Type
		if c.Nulls > 0 {
			m[c.Name] = c.Nulls
		}
		vals := make([]string, len(c.Samples))
		for i, v := range c.Samples {
			vals[i] = v.String()
		}
		s[c.Name] = vals
	}
	tj, _ := json.Marshal(t)
	mj, _ := json.Marshal(m)
	sj, _ := json.MarshalIndent(s, "", "  ")
	return strings.Join(n, ", "), string(tj), string(mj), string(sj)
}

func summaryPrompt(p core.Profile) string {
	names, types, nulls, samples := columnFacts(p)
	return fmt.Sprintf(`You are reviewing a tabular dataset before it is cleaned.

Shape: %d rows, %d columns
Columns: %s
Column types: %s
Missing values per column: %s
Duplicate rows: %d

Up to ten distinct values per column:
%s

Write a short summary covering what kind of records these are, the main
data quality observations, and an overall assessment.`,
		p.Shape.Rows, p.Shape.Columns, names, types, nulls, p.Duplicates, samples)
}

func issuesPrompt(p core.Profile) string {
	_, types, nulls, samples := columnFacts(p)
	return fmt.Sprintf(`You are a data quality reviewer. List every data quality problem in
this dataset.

Missing values per column: %s
Duplicate rows: %d
Column types: %s

Up to ten distinct values per column:
%s

Look for missing values, inconsistent spellings or casing of the same value,
numbers stored as text, surrounding whitespace, out-of-range or invalid
values, and inconsistent column naming.

Answer with a JSON array only, without markdown, in this form:
[{"column": "name", "issue": "what is wrong", "severity": "low|medium|high", "suggestion": "how to fix it"}]`,
		nulls, p.Duplicates, types, samples)
}

func planPrompt(issues []core.QualityIssue) string {
	data, _ := json.MarshalIndent(issues, "", "  ")
	return fmt.Sprintf(`Turn these data quality issues into a cleaning plan:

%s

Give a numbered list. For every step state its priority from 1 (highest) to
5, the affected columns, the operation to perform and the expected result.`,
		string(data))
}
