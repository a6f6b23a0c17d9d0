package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"tradescope/internal/database"
	"tradescope/internal/modules/session"
)

// SystemHandlers serves the health and system-info endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	journalDB *database.DB
	manager   *session.Manager
	startedAt time.Time
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, dataDir string, journalDB *database.DB, manager *session.Manager) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		journalDB: journalDB,
		manager:   manager,
		startedAt: time.Now(),
	}
}

// HandleHealth handles GET /api/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK

	if h.journalDB != nil {
		if err := h.journalDB.HealthCheck(r.Context()); err != nil {
			h.log.Error().Err(err).Msg("Journal database health check failed")
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	h.writeJSON(w, httpStatus, map[string]interface{}{
		"status":         status,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// HandleSystemInfo handles GET /api/system/info
// Returns host resource usage, journal database stats and the current
// session's import accounting.
func (h *SystemHandlers) HandleSystemInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
		"data_dir":       h.dataDir,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		info["cpu_percent"] = cpuPercent[0]
	}
	if memStat, err := mem.VirtualMemory(); err == nil {
		info["memory_used_percent"] = memStat.UsedPercent
		info["memory_total_bytes"] = memStat.Total
	}

	if h.journalDB != nil {
		if stats, err := h.journalDB.GetStats(); err == nil {
			info["journal_db"] = map[string]interface{}{
				"size_bytes":     stats.SizeBytes,
				"wal_size_bytes": stats.WALSizeBytes,
				"page_count":     stats.PageCount,
				"page_size":      stats.PageSize,
			}
		} else {
			h.log.Warn().Err(err).Msg("Failed to read journal database stats")
		}
	}

	if sess := h.manager.Current(); sess != nil {
		info["session"] = map[string]interface{}{
			"session_id":  sess.ID,
			"imported_at": sess.ImportedAt.Format(time.RFC3339),
			"trade_count": len(sess.Trades),
			"stats":       sess.Stats,
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": info,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
