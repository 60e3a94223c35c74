// Package server is the HTTP request layer: file-upload handshake, JSON
// envelopes, and routing into the ingestion, query, and export components.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/sheetpipe/sheetpipe/internal/dbclient"
	"github.com/sheetpipe/sheetpipe/internal/query"
	"github.com/sheetpipe/sheetpipe/internal/registry"
	"github.com/sheetpipe/sheetpipe/internal/sheets"
)

// Server wires the stores and core components behind the HTTP endpoints.
type Server struct {
	Databases registry.Store
	Queries   registry.QueryStore
	Client    *dbclient.Client
	// Placer is nil when no spreadsheet service is configured; the
	// googleSheet output type then reports an error instead.
	Placer *sheets.Placer

	UploadDir   string
	DownloadDir string
	// BatchSize is the spool batch size for ingestion runs.
	BatchSize int
	Logger    *log.Logger
}

// New builds a Server and ensures its working directories exist.
func New(s Server) (*Server, error) {
	if s.Logger == nil {
		s.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	if s.UploadDir == "" {
		s.UploadDir = "uploads"
	}
	if s.DownloadDir == "" {
		s.DownloadDir = "downloads"
	}
	for _, dir := range []string{s.UploadDir, s.DownloadDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}
	if s.Client == nil {
		s.Client = &dbclient.Client{Registry: s.Databases}
	}
	return &s, nil
}

// Routes returns the handler for all endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload-table", s.handleUploadTable)
	mux.HandleFunc("POST /get-xlsx-sheets", s.handleGetXLSXSheets)
	mux.HandleFunc("POST /query-database", s.handleQueryDatabase)
	mux.HandleFunc("GET /download-file", s.handleDownloadFile)
	mux.HandleFunc("POST /databases", s.handleListDatabases)
	mux.HandleFunc("POST /append-database", s.handleAppendDatabase)
	mux.HandleFunc("POST /remove-database", s.handleRemoveDatabase)
	mux.HandleFunc("POST /get-queries", s.handleGetQueries)
	mux.HandleFunc("POST /save-query", s.handleSaveQuery)
	return mux
}

func (s *Server) expander() *query.Expander {
	return &query.Expander{Exec: s.Client}
}

// writeJSON writes a JSON envelope with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the error envelope used by every endpoint.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func (s *Server) handleListDatabases(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"databases": s.Databases.IDs(),
	})
}

func (s *Server) handleAppendDatabase(w http.ResponseWriter, r *http.Request) {
	var payload registry.Database
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if payload.ID == "" || payload.Host == "" || payload.Port == "" ||
		payload.User == "" || payload.Password == "" || payload.Database == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if err := s.Databases.Set(payload); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleRemoveDatabase(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ID == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if err := s.Databases.Delete(payload.ID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleGetQueries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"queries": s.Queries.All(),
	})
}

func (s *Server) handleSaveQuery(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name  string `json:"name"`
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if err := s.Queries.Set(payload.Name, payload.Query); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
