package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sheetpipe/sheetpipe/internal/sheets"
	"github.com/sheetpipe/sheetpipe/internal/xlsxout"
)

// Output types supported by the query endpoint.
const (
	outputHTMLTable   = "html"
	outputDownload    = "xlsx"
	outputGoogleSheet = "googleSheet"
)

// queryRequest is the JSON payload of /query-database.
type queryRequest struct {
	DatabaseID    string `json:"database_id"`
	Query         string `json:"query"`
	SubQuery      string `json:"sub_query"`
	OutputType    string `json:"output_type"`
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetName     string `json:"sheet_name"`
}

func (s *Server) handleQueryDatabase(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.DatabaseID == "" || req.Query == "" || req.OutputType == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if !s.Databases.Exists(req.DatabaseID) {
		writeError(w, http.StatusBadRequest, msgDatabaseNotFound)
		return
	}

	table, err := s.expander().Run(r.Context(), req.DatabaseID, req.Query, req.SubQuery)
	if err != nil {
		// Engine errors surface verbatim, unretried.
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch req.OutputType {
	case outputHTMLTable:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"table":      table,
			"outputType": outputHTMLTable,
		})

	case outputDownload:
		name := uuid.NewString() + ".xlsx"
		path := filepath.Join(s.DownloadDir, name)
		if err := xlsxout.Write(table, path, "Data"); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"link":       "/download-file?file=" + name,
			"file":       "QueriedData.xlsx",
			"outputType": outputDownload,
		})

	case outputGoogleSheet:
		if s.Placer == nil {
			writeError(w, http.StatusBadRequest, "spreadsheet service is not configured")
			return
		}
		if req.SpreadsheetID == "" || req.SheetName == "" {
			writeError(w, http.StatusBadRequest, "Missing required fields (spreadsheet_id or sheet_name)")
			return
		}
		id := sheets.SpreadsheetIDFromLink(req.SpreadsheetID)
		if err := s.Placer.Replace(r.Context(), id, req.SheetName, table); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"outputType": outputGoogleSheet,
		})

	default:
		writeError(w, http.StatusBadRequest, "Invalid output type")
	}
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	// Only serve files directly inside the download directory.
	path := filepath.Join(s.DownloadDir, filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusBadRequest, "File not found")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="DownloadedFile.xlsx"`)
	http.ServeFile(w, r, path)
}
