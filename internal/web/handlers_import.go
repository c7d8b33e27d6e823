package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/salesdash/internal/core"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// uploadFields are the accepted multipart field names, in order.
var uploadFields = []string{"file", "excel_file"}

// ImportResponse is the JSON body of POST /api/import.
type ImportResponse struct {
	Success         bool                    `json:"success"`
	Message         string                  `json:"message"`
	RunID           string                  `json:"run_id"`
	FileName        string                  `json:"file_name"`
	RowsRead        int                     `json:"rows_read"`
	DetailsInserted int                     `json:"details_inserted"`
	Orders          int                     `json:"orders"`
	RowsSkipped     int                     `json:"rows_skipped"`
	SkippedLines    []int                   `json:"skipped_lines,omitempty"`
	SkippedBy       map[core.SkipReason]int `json:"skipped_by,omitempty"`
	Duration        string                  `json:"duration"`
	Code            string                  `json:"code,omitempty"`
	Action          string                  `json:"action,omitempty"`
}

func toImportResponse(res *core.Result) ImportResponse {
	out := ImportResponse{
		Success:         res.Success,
		Message:         res.Message,
		RunID:           res.RunID,
		FileName:        res.FileName,
		RowsRead:        res.RowsRead,
		DetailsInserted: res.DetailsInserted,
		Orders:          res.Orders,
		RowsSkipped:     res.RowsSkipped,
		SkippedLines:    res.SkippedLines,
		SkippedBy:       res.SkippedBy,
		Duration:        res.Duration.String(),
	}
	if res.UserError != nil {
		out.Code = res.UserError.User.Code
		out.Action = res.UserError.User.Action
	}
	return out
}

// handleImport loads an uploaded CSV or XLSX sheet. It answers 200 when the
// import committed and an error status with the same body when it did not.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, errTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	for _, field := range uploadFields {
		file, header, err := r.FormFile(field)
		if err != nil {
			continue
		}
		defer file.Close()

		ctx := withRequestMetadata(r.Context(), r)
		res := s.imports.Import(ctx, header.Filename, file)

		status := http.StatusOK
		if !res.Success {
			status = importStatus(res.Err)
			if status == http.StatusServiceUnavailable {
				w.Header().Set("Retry-After", "5")
			}
		}
		writeJSON(w, status, toImportResponse(res))
		return
	}

	respondError(w, r, errNoFile, http.StatusBadRequest)
}

// handleListImports returns recent import runs, newest first.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 20)
	if limit > 200 {
		limit = 200
	}

	runs, err := s.imports.RecentImports(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": runs})
}

// handleImportStatus reports whether an import is running.
func (s *Server) handleImportStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.imports.Limiter().Status())
}

// parseIntParam reads a positive integer query parameter, falling back to
// defaultVal when it is absent or invalid.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
