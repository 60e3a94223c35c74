package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/sheetpipe/sheetpipe/internal/dbclient"
	"github.com/sheetpipe/sheetpipe/internal/ingest"
)

// maxUploadMemory bounds the in-memory part of a multipart parse; larger
// file parts spill to disk.
const maxUploadMemory = 32 << 20

// Upload error messages, kept stable for the UI.
const (
	msgNoFile             = "Request has no file part"
	msgNoConfig           = "Request has no config part"
	msgNoFileSelected     = "No file selected"
	msgDatabaseNotFound   = "Database not found"
	msgFileTypeNotAllowed = "File type not allowed"
)

// workbookExtensions are ingested through the xlsx orchestrator; the rest
// of allowedExtensions go through the delimited one.
var (
	workbookExtensions  = []string{"xlsx", "xlsm"}
	delimitedExtensions = []string{"csv", "tsv", "csv.gz", "tsv.gz", "csv.bz2", "tsv.bz2", "csv.xz", "tsv.xz", "csv.zst", "tsv.zst"}
)

// uploadConfig is the JSON config part accompanying an uploaded file.
type uploadConfig struct {
	DatabaseID string `json:"database_id"`
	TableName  string `json:"table_name"`
	// SheetName is ignored for delimited-text sources.
	SheetName string `json:"sheet_name"`
}

// fileExtension returns the lower-cased extension chain after the first
// dot of the base name ("data.csv.gz" -> "csv.gz").
func fileExtension(name string) string {
	base := filepath.Base(name)
	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		return strings.ToLower(base[idx+1:])
	}
	return ""
}

func isWorkbook(ext string) bool  { return slices.Contains(workbookExtensions, ext) }
func isDelimited(ext string) bool { return slices.Contains(delimitedExtensions, ext) }

// stageUpload copies an uploaded part into the upload directory under a
// random name, returning the staged path. The caller owns the file and
// must remove it on every exit path.
func (s *Server) stageUpload(part multipart.File, ext string) (string, error) {
	path := filepath.Join(s.UploadDir, uuid.NewString()+"."+ext)
	dst, err := os.Create(path) //nolint:gosec // Name is generated, directory is ours
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, part); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// removeStaged deletes a staged upload; failures are logged, not escalated.
func (s *Server) removeStaged(path string) {
	if err := os.Remove(path); err != nil {
		s.Logger.Printf("upload: remove staged file %s: %v", path, err)
	}
}

func (s *Server) handleUploadTable(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer func() {
		_ = file.Close() // Ignore close error
	}()
	configPart, _, err := r.FormFile("config")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoConfig)
		return
	}
	defer func() {
		_ = configPart.Close() // Ignore close error
	}()

	if fileHeader.Filename == "" {
		writeError(w, http.StatusBadRequest, msgNoFileSelected)
		return
	}
	ext := fileExtension(fileHeader.Filename)
	if !isWorkbook(ext) && !isDelimited(ext) {
		writeError(w, http.StatusBadRequest, msgFileTypeNotAllowed)
		return
	}

	var cfg uploadConfig
	if err := json.NewDecoder(configPart).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config JSON")
		return
	}
	if cfg.DatabaseID == "" || cfg.TableName == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if !s.Databases.Exists(cfg.DatabaseID) {
		writeError(w, http.StatusBadRequest, msgDatabaseNotFound)
		return
	}

	if err := s.processUpload(r, file, ext, cfg); err != nil {
		var verr *validationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.msg)
			return
		}
		s.Logger.Printf("upload: table=%s database=%s failed: %v", cfg.TableName, cfg.DatabaseID, err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("An unexpected error occurred: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// validationError marks caller mistakes that map to a 400 response.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

// processUpload stages the file, validates the sheet for workbooks, and
// runs the matching ingestion orchestrator against the target database.
func (s *Server) processUpload(r *http.Request, file multipart.File, ext string, cfg uploadConfig) error {
	staged, err := s.stageUpload(file, ext)
	if err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	defer s.removeStaged(staged)

	reg, err := s.Databases.Get(cfg.DatabaseID)
	if err != nil {
		return err
	}
	db, err := dbclient.Open(reg)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close() // Ignore close error
	}()
	dialect := dbclient.Dialect(reg)

	opts := ingest.Options{BatchSize: s.BatchSize, Logger: s.Logger}

	if isWorkbook(ext) {
		names, err := ingest.SheetNames(staged)
		if err != nil {
			return err
		}
		if !slices.Contains(names, cfg.SheetName) {
			return &validationError{msg: fmt.Sprintf("Sheet not found. Available (%s)", strings.Join(names, ", "))}
		}
		return ingest.XLSX(r.Context(), db, dialect, staged, cfg.SheetName, cfg.TableName, opts)
	}
	return ingest.DelimitedFile(r.Context(), db, dialect, staged, cfg.TableName, opts)
}

func (s *Server) handleGetXLSXSheets(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer func() {
		_ = file.Close() // Ignore close error
	}()
	if fileHeader.Filename == "" {
		writeError(w, http.StatusBadRequest, msgNoFileSelected)
		return
	}
	ext := fileExtension(fileHeader.Filename)
	if !isWorkbook(ext) {
		writeError(w, http.StatusBadRequest, msgFileTypeNotAllowed)
		return
	}

	staged, err := s.stageUpload(file, ext)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer s.removeStaged(staged)

	names, err := ingest.SheetNames(staged)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sheets": names})
}
