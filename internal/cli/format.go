package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/datacleaner/internal/core"
)

// OutputFormat selects how results are printed.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// ParseOutputFormat validates a --format value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want text, json or yaml)", s)
	}
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, v any, format OutputFormat) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// writeResult prints a cleaning result.
func writeResult(w io.Writer, res *core.Result, format OutputFormat) error {
	if format != FormatText {
		return writeStructured(w, res, format)
	}

	var b strings.Builder
	r := res.Report
	fmt.Fprintf(&b, "Stage: %s\n", res.Stage)
	fmt.Fprintf(&b, "Shape: %s -> %s (%d rows, %d columns removed)\n",
		r.OriginalShape, r.FinalShape, r.RowsRemoved, r.ColumnsRemoved)
	fmt.Fprintf(&b, "Nulls: %d -> %d\n", r.NullsBefore, r.NullsAfter)
	fmt.Fprintf(&b, "Duplicates: %d -> %d\n", r.DuplicatesBefore, r.DuplicatesAfter)

	if len(res.Bindings) > 0 {
		b.WriteString("\nFields:\n")
		for _, bd := range res.Bindings {
			fmt.Fprintf(&b, "  %-22s %s\n", bd.Field, bd.Column)
		}
	}

	if len(res.Issues) > 0 {
		b.WriteString("\nIssues:\n")
		for _, is := range res.Issues {
			fmt.Fprintf(&b, "  [%s] %s: %s (%s)\n", is.Severity, is.Column, is.Issue, is.Suggestion)
		}
	}
	if res.Plan != "" {
		b.WriteString("\nPlan:\n")
		for _, line := range strings.Split(res.Plan, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\nActions:\n")
	for _, a := range res.Actions {
		fmt.Fprintf(&b, "  %s\n", a)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeProfile prints a dataset profile.
func writeProfile(w io.Writer, p core.Profile, format OutputFormat) error {
	if format != FormatText {
		return writeStructured(w, p, format)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Shape: %s, %d nulls, %d duplicate rows\n\n", p.Shape, p.Nulls, p.Duplicates)
	fmt.Fprintf(&b, "%-24s %-9s %6s  %s\n", "COLUMN", "TYPE", "NULLS", "SAMPLES")
	for _, c := range p.Columns {
		samples := make([]string, len(c.Samples))
		for i, v := range c.Samples {
			samples[i] = fmt.Sprintf("%q", v.String())
		}
		fmt.Fprintf(&b, "%-24s %-9s %6d  %s\n", c.Name, c.Type, c.Nulls, strings.Join(samples, ", "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
