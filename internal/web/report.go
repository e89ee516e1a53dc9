package web

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datacleaner/internal/core"
	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:72rem;color:#1f2933}
table{border-collapse:collapse;margin:1rem 0;font-size:.9rem}
th,td{border:1px solid #d2d6dc;padding:.3rem .6rem;text-align:left}
th{background:#f4f5f7}
.high{color:#b91c1c}.medium{color:#b45309}.low{color:#4b5563}
.failed{color:#b91c1c}.skipped{color:#6b7280}
pre{background:#f4f5f7;padding:1rem;white-space:pre-wrap}`

// page wraps body in the shared layout.
func page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s</title><style>%s</style></head><body>",
			templ.EscapeString(title), pageStyle); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

// htmlWriter accumulates escaped HTML and keeps the first write error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(format string, args ...any) {
	if h.err != nil {
		return
	}
	_, h.err = fmt.Fprintf(h.w, format, args...)
}

// text writes s escaped.
func (h *htmlWriter) text(s string) {
	h.raw("%s", templ.EscapeString(s))
}

// DashboardPage lists recent runs.
func DashboardPage(runs []core.RunSummary, limiter core.RunLimiterStatus) templ.Component {
	return page("Data cleaner", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<h1>Data cleaner</h1>")
		h.raw("<p>%d of %d run slots in use. POST a CSV to <code>/api/clean</code> to start a run.</p>",
			limiter.Active, limiter.MaxConcurrent)
		if limiter.Waiting > 0 || limiter.Rejected > 0 {
			h.raw("<p>%d queued, %d turned away since start.</p>", limiter.Waiting, limiter.Rejected)
		}

		if len(runs) == 0 {
			h.raw("<p>No runs yet.</p>")
			return h.err
		}
		h.raw("<table><thead><tr><th>Run</th><th>Dataset</th><th>Source</th><th>Created</th><th>Stage</th><th>Final shape</th><th>Rows removed</th><th>Actions</th></tr></thead><tbody>")
		for _, r := range runs {
			h.raw("<tr><td><a href=\"/runs/%s\">", templ.EscapeString(r.ID))
			h.text(shortID(r.ID))
			h.raw("</a></td><td>")
			h.text(r.Name)
			h.raw("</td><td>")
			h.text(r.Source)
			h.raw("</td><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%d</td></tr>",
				r.Created.Format("2006-01-02 15:04:05"), templ.EscapeString(string(r.Stage)),
				r.FinalShape, r.RowsRemoved, r.Actions)
		}
		h.raw("</tbody></table>")
		return h.err
	}))
}

// RunPage renders the full report of one run with a preview of the cleaned
// rows.
func RunPage(run *core.Run, previewRows int) templ.Component {
	title := "Run " + shortID(run.ID)
	return page(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		res := run.Result
		rep := res.Report

		h.raw("<p><a href=\"/\">All runs</a></p><h1>")
		h.text(run.Name)
		h.raw("</h1><p>Run <code>%s</code> from %s, stage <strong>%s</strong>, took %s. <a href=\"/api/runs/%s/export\">Download CSV</a></p>",
			templ.EscapeString(run.ID), templ.EscapeString(run.Source), templ.EscapeString(string(res.Stage)),
			run.Elapsed, templ.EscapeString(run.ID))

		h.raw("<h2>Validation</h2><table><tbody>")
		h.raw("<tr><th>Shape</th><td>%s &rarr; %s</td></tr>", rep.OriginalShape, rep.FinalShape)
		h.raw("<tr><th>Rows removed</th><td>%d</td></tr><tr><th>Columns removed</th><td>%d</td></tr>", rep.RowsRemoved, rep.ColumnsRemoved)
		h.raw("<tr><th>Missing values</th><td>%d &rarr; %d</td></tr>", rep.NullsBefore, rep.NullsAfter)
		h.raw("<tr><th>Duplicate rows</th><td>%d &rarr; %d</td></tr>", rep.DuplicatesBefore, rep.DuplicatesAfter)
		h.raw("</tbody></table>")

		if res.Summary != "" {
			h.raw("<h2>Summary</h2><pre>")
			h.text(res.Summary)
			h.raw("</pre>")
		}

		if len(res.Issues) > 0 {
			h.raw("<h2>Issues</h2><table><thead><tr><th>Column</th><th>Issue</th><th>Severity</th><th>Suggestion</th></tr></thead><tbody>")
			for _, is := range res.Issues {
				h.raw("<tr><td>")
				h.text(is.Column)
				h.raw("</td><td>")
				h.text(is.Issue)
				h.raw("</td><td class=\"%s\">%s</td><td>", templ.EscapeString(string(is.Severity)), templ.EscapeString(string(is.Severity)))
				h.text(is.Suggestion)
				h.raw("</td></tr>")
			}
			h.raw("</tbody></table>")
		}

		if res.Plan != "" {
			h.raw("<h2>Plan</h2><pre>")
			h.text(res.Plan)
			h.raw("</pre>")
		}

		h.raw("<h2>Actions</h2><table><thead><tr><th>#</th><th>Operation</th><th>Columns</th><th>Status</th><th>Affected</th><th>Message</th></tr></thead><tbody>")
		for _, a := range res.Actions {
			h.raw("<tr class=\"%s\"><td>%d</td><td>%s</td><td>", templ.EscapeString(string(a.Status)), a.Seq, templ.EscapeString(a.Operation))
			h.text(strings.Join(a.Columns, ", "))
			h.raw("</td><td>%s</td><td>%d</td><td>", templ.EscapeString(string(a.Status)), a.Affected)
			h.text(a.Message)
			h.raw("</td></tr>")
		}
		h.raw("</tbody></table>")

		if res.Dataset != nil {
			h.raw("<h2>Cleaned data</h2>")
			writeTable(h, res.Dataset.Table(previewRows), res.Dataset.Rows())
		}
		return h.err
	}))
}

func writeTable(h *htmlWriter, t dataset.Table, total int) {
	h.raw("<p>Showing %d of %d rows.</p><table><thead><tr>", len(t.Rows), total)
	for i, c := range t.Columns {
		h.raw("<th>")
		h.text(c)
		h.raw(" <small>%s</small></th>", templ.EscapeString(t.Types[i]))
	}
	h.raw("</tr></thead><tbody>")
	for _, row := range t.Rows {
		h.raw("<tr>")
		for _, v := range row {
			h.raw("<td>")
			h.text(v.String())
			h.raw("</td>")
		}
		h.raw("</tr>")
	}
	h.raw("</tbody></table>")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
