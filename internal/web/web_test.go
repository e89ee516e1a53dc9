package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/JonMunkholm/datacleaner/internal/config"
	"github.com/JonMunkholm/datacleaner/internal/core"
	"github.com/JonMunkholm/datacleaner/internal/source"
)

const studentsCSV = `Age,gender,gpa
20,Male,3.1
20,Male,3.1
twenty five, female,2.8
22,,NULL
`

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			RequestTimeout: 10 * time.Second,
			MaxUploadSize:  1 << 20,
		},
		Database: config.DatabaseConfig{MaxRows: 100},
		Cleaning: config.CleaningConfig{
			DedupKeep:         "first",
			OutlierMethod:     "iqr",
			MaxConcurrentRuns: 2,
			RunMaxWait:        time.Second,
			RunRetention:      time.Minute,
			PreviewRows:       2,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	svc, err := core.NewService(nil, cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	s := NewServer(svc, source.NewPostgres(nil, cfg.Database), cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type cleanResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
	Result struct {
		Stage  string `json:"stage"`
		Report struct {
			RowsRemoved int `json:"rows_removed"`
		} `json:"report"`
	} `json:"result"`
	Preview struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	} `json:"preview"`
}

func cleanUpload(t *testing.T, s *Server, req *http.Request) cleanResponse {
	t.Helper()
	rec := do(t, s, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got cleanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Header().Get("Location") != "/api/runs/"+got.ID {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}
	return got
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCleanUpload(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		wantName string
	}{
		{
			name: "multipart csv",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/clean", "students.csv", []byte(studentsCSV))
			},
			wantName: "students",
		},
		{
			name: "multipart gzip",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/clean", "students.csv.gz", gzipBytes(t, studentsCSV))
			},
			wantName: "students",
		},
		{
			name: "raw body",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/clean?name=raw", strings.NewReader(studentsCSV))
				req.Header.Set("Content-Type", "text/csv")
				return req
			},
			wantName: "raw",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig())
			got := cleanUpload(t, s, tt.req(t))

			if got.Name != tt.wantName || got.Source != "upload" {
				t.Errorf("run = %+v", got)
			}
			if got.Result.Stage != string(core.StageDone) {
				t.Errorf("stage = %q", got.Result.Stage)
			}
			if got.Result.Report.RowsRemoved != 1 {
				t.Errorf("rows removed = %d, want 1", got.Result.Report.RowsRemoved)
			}
			if len(got.Preview.Rows) != 2 {
				t.Errorf("preview rows = %d, want 2", len(got.Preview.Rows))
			}
		})
	}
}

func TestCleanUploadErrors(t *testing.T) {
	small := testConfig()
	small.Server.MaxUploadSize = 16

	tests := []struct {
		name string
		cfg  *config.Config
		req  func(t *testing.T) *http.Request
		want int
	}{
		{
			name: "no file part",
			cfg:  testConfig(),
			req: func(t *testing.T) *http.Request {
				var body bytes.Buffer
				mw := multipart.NewWriter(&body)
				_ = mw.WriteField("name", "x")
				_ = mw.Close()
				req := httptest.NewRequest(http.MethodPost, "/api/clean", &body)
				req.Header.Set("Content-Type", mw.FormDataContentType())
				return req
			},
			want: http.StatusBadRequest,
		},
		{
			name: "empty body",
			cfg:  testConfig(),
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/clean", strings.NewReader(""))
			},
			want: http.StatusBadRequest,
		},
		{
			name: "corrupt gzip",
			cfg:  testConfig(),
			req: func(t *testing.T) *http.Request {
				data := gzipBytes(t, studentsCSV)
				return multipartRequest(t, "/api/clean", "students.csv.gz", data[:len(data)-6])
			},
			want: http.StatusBadRequest,
		},
		{
			name: "too large",
			cfg:  small,
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/clean", strings.NewReader(studentsCSV))
			},
			want: http.StatusRequestEntityTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.cfg)
			rec := do(t, s, tt.req(t))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.want, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code == "" || resp.Message == "" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestProfile(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(t, s, multipartRequest(t, "/api/profile", "students.csv", []byte(studentsCSV)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got struct {
		Shape struct {
			Rows    int `json:"rows"`
			Columns int `json:"columns"`
		} `json:"shape"`
		Duplicates int `json:"duplicates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Shape.Rows != 4 || got.Shape.Columns != 3 || got.Duplicates != 1 {
		t.Errorf("profile = %+v", got)
	}
	if len(s.service.ListRuns()) != 0 {
		t.Error("profiling stored a run")
	}
}

func TestRunEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig())
	run := cleanUpload(t, s, multipartRequest(t, "/api/clean", "students.csv", []byte(studentsCSV)))

	t.Run("list", func(t *testing.T) {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
		var list []core.RunSummary
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(list) != 1 || list[0].ID != run.ID || list[0].RowsRemoved != 1 {
			t.Errorf("list = %+v", list)
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID, nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"actions"`) {
			t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("data", func(t *testing.T) {
		tests := []struct {
			query string
			want  int
		}{
			{"", 2},
			{"?limit=1", 1},
			{"?limit=0", 3},
			{"?limit=bogus", 2},
		}
		for _, tt := range tests {
			rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID+"/data"+tt.query, nil))
			var table struct {
				Rows [][]any `json:"rows"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &table); err != nil {
				t.Fatalf("%q: decode: %v", tt.query, err)
			}
			if len(table.Rows) != tt.want {
				t.Errorf("%q: rows = %d, want %d", tt.query, len(table.Rows), tt.want)
			}
		}
	})

	t.Run("export", func(t *testing.T) {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID+"/export", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("Content-Type = %q", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="students_clean_`) {
			t.Errorf("Content-Disposition = %q", cd)
		}
		body, _ := io.ReadAll(rec.Body)
		if lines := strings.Count(strings.TrimSpace(string(body)), "\n") + 1; lines != 4 {
			t.Errorf("exported %d lines, want header plus 3 rows:\n%s", lines, body)
		}
	})

	t.Run("missing run", func(t *testing.T) {
		for _, path := range []string{"/api/runs/nope", "/api/runs/nope/data", "/api/runs/nope/export", "/runs/nope"} {
			rec := do(t, s, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusNotFound {
				t.Errorf("%s: status = %d, want 404", path, rec.Code)
			}
		}
	})
}

func TestCleanTableWithoutDatabase(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/clean/table/students", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503; body %s", rec.Code, rec.Body.String())
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := newTestServer(t, cfg)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without key: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := do(t, s, req); rec.Code != http.StatusOK {
		t.Errorf("with key: status = %d", rec.Code)
	}

	// Pages and health stay public.
	for _, path := range []string{"/", "/healthz"} {
		if rec := do(t, s, httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var got struct {
		Status   string                `json:"status"`
		Runs     core.RunLimiterStatus `json:"runs"`
		Database bool                  `json:"database"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "ok" || got.Database || got.Runs.MaxConcurrent != 2 {
		t.Errorf("health = %+v", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestPagesEscapeDatasetNames(t *testing.T) {
	s := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/clean?name=%3Cscript%3Ealert(1)%3C/script%3E", strings.NewReader(studentsCSV))
	run := cleanUpload(t, s, req)

	for _, path := range []string{"/", "/runs/" + run.ID} {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, path, nil))
		body := rec.Body.String()
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
		if strings.Contains(body, "<script>") {
			t.Errorf("%s: unescaped dataset name", path)
		}
		if !strings.Contains(body, "&lt;script&gt;") {
			t.Errorf("%s: dataset name missing", path)
		}
	}

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil))
	if !strings.Contains(rec.Body.String(), "Showing 2 of 3 rows") {
		t.Errorf("run page preview missing:\n%s", rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", core.ErrRunNotFound, http.StatusNotFound},
		{"busy", core.ErrTooManyRuns, http.StatusServiceUnavailable},
		{"no database", source.ErrNoDatabase, http.StatusServiceUnavailable},
		{"too many rows", source.ErrTooManyRows, http.StatusRequestEntityTooLarge},
		{"no dataset", core.ErrNoDataset, http.StatusBadRequest},
		{"other", io.ErrClosedPipe, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestSafeFilename(t *testing.T) {
	tests := map[string]string{
		"students":     "students",
		"my data/2024": "my_data_2024",
		"":             "dataset",
		"q1-report_v2": "q1-report_v2",
	}
	for in, want := range tests {
		if got := safeFilename(in); got != want {
			t.Errorf("safeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
