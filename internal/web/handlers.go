package web

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datacleaner/internal/core"
	"github.com/JonMunkholm/datacleaner/internal/dataset"
	"github.com/JonMunkholm/datacleaner/internal/logging"
	"github.com/JonMunkholm/datacleaner/internal/source"
)

// multipartMemory is how much of a multipart upload is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// runResponse is returned after a run finishes.
type runResponse struct {
	*core.Run
	Preview dataset.Table `json:"preview"`
}

// handleDashboard renders the list of recent runs.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := DashboardPage(s.service.ListRuns(), s.service.LimiterStatus()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}

// handleRunPage renders the HTML report of one run.
func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := RunPage(run, s.cfg.Cleaning.PreviewRows).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render run", "run_id", run.ID, "error", err)
	}
}

// handleHealth reports run slot usage and whether a database is attached.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"runs":     s.service.LimiterStatus(),
		"database": s.pg.Enabled(),
	})
}

// readUpload parses the dataset from a request. Multipart forms carry it in
// the "file" part; any other body is read as CSV, named by the "name" query
// parameter. Gzip content is detected either way.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "upload"
		}
		return source.ReadCSV(r.Body, name)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, fmt.Errorf("request body too large: %w", err)
		}
		return nil, fmt.Errorf("parse form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	name, _ := source.DatasetName(header.Filename)
	if v := r.FormValue("name"); v != "" {
		name = v
	}
	ds, err := source.ReadCSV(file, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", header.Filename, err)
	}
	return ds, nil
}

// handleProfile profiles an uploaded dataset without cleaning it.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	ds, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.service.Profile(ds)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// handleCleanUpload runs the pipeline over an uploaded dataset.
func (s *Server) handleCleanUpload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.clean(w, r, ds, "upload")
}

// handleCleanTable loads a PostgreSQL table and cleans it. With
// ?output_table=name the cleaned rows are written back; replace=true drops
// that table first.
func (s *Server) handleCleanTable(w http.ResponseWriter, r *http.Request) {
	if !s.pg.Enabled() {
		s.respondError(w, r, source.ErrNoDatabase)
		return
	}

	table := chi.URLParam(r, "table")
	ds, err := s.pg.LoadTable(r.Context(), table)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	run := s.clean(w, r, ds, "postgres")
	if run == nil {
		return
	}

	if out := r.URL.Query().Get("output_table"); out != "" {
		replace, _ := strconv.ParseBool(r.URL.Query().Get("replace"))
		n, err := s.pg.WriteTable(r.Context(), out, run.Result.Dataset, replace)
		if err != nil {
			// The run itself succeeded and was already returned.
			logging.FromContext(r.Context()).Error("write cleaned table", "table", out, "run_id", run.ID, "error", err)
			return
		}
		logging.FromContext(r.Context()).Info("wrote cleaned table", "table", out, "rows", n, "run_id", run.ID)
	}
}

// clean runs ds through the service and writes the run. It returns nil when
// an error response was written instead.
func (s *Server) clean(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset, origin string) *core.Run {
	run, err := s.service.Clean(r.Context(), ds, origin)
	if err != nil {
		s.respondError(w, r, err)
		return nil
	}
	w.Header().Set("Location", "/api/runs/"+run.ID)
	writeJSONStatus(w, http.StatusCreated, runResponse{
		Run:     run,
		Preview: run.Result.Dataset.Table(s.cfg.Cleaning.PreviewRows),
	})
	return run
}

// handleListRuns lists stored runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ListRuns())
}

// handleGetRun returns one run with its full result.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, run)
}

// handleRunData returns cleaned rows. ?limit=N caps them; 0 means all.
func (s *Server) handleRunData(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, run.Result.Dataset.Table(parseIntParam(r, "limit", s.cfg.Cleaning.PreviewRows)))
}

// parseIntParam parses a non-negative integer query parameter with a default
// value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// handleExportRun streams the cleaned dataset as CSV.
func (s *Server) handleExportRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s_clean_%s.csv", safeFilename(run.Name), run.Created.Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Last-Modified", run.Created.UTC().Format(http.TimeFormat))

	if err := dataset.WriteCSV(w, run.Result.Dataset); err != nil {
		logging.FromContext(r.Context()).Error("export run", "run_id", run.ID, "error", err)
	}
}

// safeFilename keeps letters, digits, dash and underscore.
func safeFilename(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if clean == "" {
		return "dataset"
	}
	return clean
}
