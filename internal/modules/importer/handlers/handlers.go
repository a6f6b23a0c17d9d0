// Package handlers provides HTTP handlers for dataset import and export.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tradescope/internal/modules/importer"
	"tradescope/internal/modules/session"
)

// maxUploadBytes caps the accepted CSV size.
const maxUploadBytes = 32 << 20

// Handler handles import and export requests
type Handler struct {
	service       *importer.Service
	manager       *session.Manager
	defaultFilter importer.Filter
	log           zerolog.Logger
}

// NewHandler creates a new importer handler. defaultFilter applies when
// an import request carries no filter query parameter.
func NewHandler(
	service *importer.Service,
	manager *session.Manager,
	defaultFilter importer.Filter,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:       service,
		manager:       manager,
		defaultFilter: defaultFilter,
		log:           log.With().Str("handler", "importer").Logger(),
	}
}

// HandleImport handles POST /api/import?filter=all|options|stocks
// Accepts either a multipart upload under the "file" field or raw CSV
// text as the request body.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	filter := h.defaultFilter
	if param := r.URL.Query().Get("filter"); param != "" {
		parsed, err := importer.ParseFilter(param)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter = parsed
	}

	raw, sourceName, err := h.readUpload(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.service.Import(raw, sourceName, filter)
	if err != nil {
		if errors.Is(err, importer.ErrMalformedInput) {
			h.writeError(w, http.StatusUnprocessableEntity, "CSV appears to be empty or invalid")
			return
		}
		h.log.Error().Err(err).Msg("Import failed")
		h.writeError(w, http.StatusInternalServerError, "Import failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": sessionSummary(sess),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// readUpload extracts the CSV text from a multipart form or the body.
func (h *Handler) readUpload(r *http.Request) (string, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err == nil {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", "", errors.New("multipart request without a file field")
		}
		defer file.Close()

		raw, err := io.ReadAll(file)
		if err != nil {
			return "", "", errors.New("failed to read uploaded file")
		}
		return string(raw), header.Filename, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", "", errors.New("failed to read request body")
	}
	return string(raw), "upload.csv", nil
}

// HandleExport handles GET /api/export
// Streams the current trade set back as CSV.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	sess := h.manager.Current()
	if sess == nil {
		h.writeError(w, http.StatusNotFound, "No dataset imported")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trades_export.csv"`)
	if _, err := w.Write([]byte(importer.ExportCSV(sess.Trades))); err != nil {
		h.log.Error().Err(err).Msg("Failed to write CSV export")
	}
}

// HandleSession handles GET /api/session
// Returns the current session's metadata and import accounting.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sess := h.manager.Current()
	if sess == nil {
		h.writeError(w, http.StatusNotFound, "No dataset imported")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": sessionSummary(sess),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func sessionSummary(sess *session.Session) map[string]interface{} {
	return map[string]interface{}{
		"session_id":  sess.ID,
		"source_name": sess.SourceName,
		"filter":      sess.Filter,
		"imported_at": sess.ImportedAt.Format(time.RFC3339),
		"stats":       sess.Stats,
		"trade_count": len(sess.Trades),
		"day_count":   len(sess.Daily),
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
