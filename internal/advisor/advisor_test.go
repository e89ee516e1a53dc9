package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/datacleaner/internal/config"
	"github.com/JonMunkholm/datacleaner/internal/core"
	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

func sampleProfile(t *testing.T) core.Profile {
	t.Helper()
	ds, err := dataset.ReadCSV(strings.NewReader(
		"age,gender,gpa\ntwenty,Male,3.1\n25, female,\n25, female,\n,male,2.0\n"), "students")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return core.ProfileDataset(ds)
}

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		wantNil  bool
		wantErr  bool
	}{
		{"none", true, false},
		{"heuristic", false, false},
		{"", false, false},
		{"gemini", false, true}, // no API key
		{"oracle", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			a, err := New(config.AdvisorConfig{Provider: tt.provider, Model: "m"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (a == nil) != tt.wantNil {
				t.Errorf("advisor = %v, wantNil %v", a, tt.wantNil)
			}
		})
	}
}

func TestHeuristicDetectIssues(t *testing.T) {
	h := Heuristic{}
	text, err := h.DetectIssues(context.Background(), sampleProfile(t))
	if err != nil {
		t.Fatalf("DetectIssues: %v", err)
	}

	issues := core.ParseIssues(text)
	find := func(column, fragment string) *core.QualityIssue {
		for i := range issues {
			if issues[i].Column == column && strings.Contains(issues[i].Issue, fragment) {
				return &issues[i]
			}
		}
		return nil
	}

	if is := find("general", "duplicate rows"); is == nil {
		t.Errorf("no duplicate issue in %+v", issues)
	}
	if is := find("age", "numbers stored as text"); is == nil || is.Severity != core.SeverityHigh {
		t.Errorf("age text-number issue = %+v", is)
	}
	if is := find("gpa", "missing values"); is == nil || is.Suggestion != "impute with the median" {
		t.Errorf("gpa missing issue = %+v", is)
	}
	if is := find("gender", "whitespace"); is == nil {
		t.Errorf("no whitespace issue for gender in %+v", issues)
	}
	if is := find("gender", "inconsistent casing"); is == nil {
		t.Errorf("no casing issue for gender in %+v", issues)
	}
}

func TestHeuristicIsDeterministic(t *testing.T) {
	h := Heuristic{}
	p := sampleProfile(t)
	a, _ := h.DetectIssues(context.Background(), p)
	b, _ := h.DetectIssues(context.Background(), p)
	if a != b {
		t.Error("DetectIssues output differs between calls")
	}
}

func TestHeuristicPlan(t *testing.T) {
	h := Heuristic{}
	plan, err := h.Plan(context.Background(), []core.QualityIssue{
		{Column: "a", Issue: "minor", Severity: core.SeverityLow, Suggestion: "trim"},
		{Column: "b", Issue: "major", Severity: core.SeverityHigh, Suggestion: "coerce"},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	lines := strings.Split(plan, "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "1. [priority 1] b") {
		t.Errorf("plan = %q", plan)
	}

	empty, _ := h.Plan(context.Background(), nil)
	if !strings.Contains(empty, "No issues") {
		t.Errorf("empty plan = %q", empty)
	}
}

func TestHeuristicSummarize(t *testing.T) {
	s, err := Heuristic{}.Summarize(context.Background(), sampleProfile(t))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	for _, want := range []string{"4 rows and 3 columns", "1 duplicate rows", "gpa (2)"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary %q missing %q", s, want)
		}
	}
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prev := retryBaseDelay
	retryBaseDelay = time.Millisecond
	t.Cleanup(func() { retryBaseDelay = prev })

	g, err := NewGemini(config.AdvisorConfig{
		APIKey:      "test-key",
		Model:       "gemini-test",
		Endpoint:    srv.URL + "/v1beta/",
		Temperature: 0.2,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	return g
}

func TestGeminiGenerate(t *testing.T) {
	var gotReq generateRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-test:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("api key header = %q", r.Header.Get("x-goog-api-key"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotReq); err != nil {
			t.Errorf("request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"[{\"column\":\"age\","},{"text":"\"issue\":\"x\",\"severity\":\"low\",\"suggestion\":\"y\"}]"}]}}]}`)
	})

	text, err := g.DetectIssues(context.Background(), sampleProfile(t))
	if err != nil {
		t.Fatalf("DetectIssues: %v", err)
	}
	issues := core.ParseIssues(text)
	if len(issues) != 1 || issues[0].Column != "age" || issues[0].Severity != core.SeverityLow {
		t.Errorf("issues = %+v", issues)
	}
	if gotReq.GenerationConfig.Temperature != 0.2 {
		t.Errorf("temperature = %v", gotReq.GenerationConfig.Temperature)
	}
	if len(gotReq.Contents) != 1 || !strings.Contains(gotReq.Contents[0].Parts[0].Text, "JSON array") {
		t.Errorf("prompt = %+v", gotReq.Contents)
	}
}

func TestGeminiRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"a plan"}]}}]}`)
	})

	text, err := g.Plan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if text != "a plan" || calls.Load() != 2 {
		t.Errorf("text = %q after %d calls", text, calls.Load())
	}
}

func TestGeminiClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	})

	_, err := g.Summarize(context.Background(), sampleProfile(t))
	if err == nil || !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestGeminiEmptyResponse(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	})

	if _, err := g.Summarize(context.Background(), sampleProfile(t)); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestGeminiInPipelineDegrades(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ds, _ := dataset.ReadCSV(strings.NewReader("age\n20\n"), "x")

	res, err := core.NewPipeline(g, core.DefaultOptions()).Run(context.Background(), ds)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Issues) != 1 || res.Issues[0] != core.FallbackIssue || res.Plan != core.FallbackPlan {
		t.Errorf("issues = %+v, plan = %q", res.Issues, res.Plan)
	}
}
