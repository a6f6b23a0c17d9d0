package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradescope/internal/events"
	"tradescope/internal/modules/importer"
	"tradescope/internal/modules/session"
)

const sampleCSV = "Symbol,Open_Time,Close_Time,Total_Profit,Win_Loss\n" +
	"AAPL,2024-01-02T10:00:00Z,2024-01-02T15:00:00Z,100,Win\n" +
	"AAPL,2024-01-02T11:00:00Z,2024-01-02T16:00:00Z,-50,Loss\n"

func setupRouter(t *testing.T, defaultFilter importer.Filter) (*chi.Mux, *session.Manager) {
	t.Helper()

	manager := session.NewManager()
	service := importer.NewService(manager, nil, nil, events.NewManager(zerolog.Nop()), zerolog.Nop())
	handler := NewHandler(service, manager, defaultFilter, zerolog.Nop())

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return router, manager
}

func TestHandleImportRawBody(t *testing.T) {
	router, manager := setupRouter(t, importer.FilterAll)

	req := httptest.NewRequest(http.MethodPost, "/api/import?filter=all", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			SessionID  string              `json:"session_id"`
			TradeCount int                 `json:"trade_count"`
			Stats      session.ImportStats `json:"stats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.SessionID)
	assert.Equal(t, 2, body.Data.TradeCount)
	assert.Equal(t, 2, body.Data.Stats.Retained)

	sess := manager.Current()
	require.NotNil(t, sess)
	assert.Equal(t, 2, len(sess.Trades))
	assert.Equal(t, 50.0, sess.Daily["2024-01-02"].PnL)
}

func TestHandleImportConfiguredDefaultFilter(t *testing.T) {
	router, manager := setupRouter(t, importer.FilterOptions)

	// Without a filter query param the configured default applies.
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(sampleCSV))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	sess := manager.Current()
	require.NotNil(t, sess)
	assert.Equal(t, "options", sess.Filter)
	assert.Equal(t, 0, len(sess.Trades))
	assert.Equal(t, 2, sess.Stats.RejectedFiltered)

	// An explicit query param still overrides it.
	req = httptest.NewRequest(http.MethodPost, "/api/import?filter=all", strings.NewReader(sampleCSV))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, len(manager.Current().Trades))
}

func TestHandleImportInvalidFilter(t *testing.T) {
	router, _ := setupRouter(t, importer.FilterAll)

	req := httptest.NewRequest(http.MethodPost, "/api/import?filter=futures", strings.NewReader(sampleCSV))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleImportMalformed(t *testing.T) {
	router, manager := setupRouter(t, importer.FilterAll)

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("just a header\n"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Nil(t, manager.Current())
}

func TestHandleExportRoundTrip(t *testing.T) {
	router, _ := setupRouter(t, importer.FilterAll)

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(sampleCSV))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/export", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"AAPL"`)

	// The export re-imports to the same count and aggregate pnl.
	req = httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(rec.Body.String()))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec3 := httptest.NewRecorder()
	router.ServeHTTP(rec3, req)
	require.Equal(t, http.StatusOK, rec3.Code)

	var body struct {
		Data struct {
			TradeCount int `json:"trade_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec3.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.TradeCount)
}

func TestHandleSessionWithoutImport(t *testing.T) {
	router, _ := setupRouter(t, importer.FilterAll)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
