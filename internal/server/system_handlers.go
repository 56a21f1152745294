package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/scheduler"
	"github.com/aristath/stockfolio/internal/utils"
)

// StatusResponse is the payload of GET /api/system/status
type StatusResponse struct {
	StartedAt     time.Time             `json:"started_at"`
	Jobs          []scheduler.EntryInfo `json:"jobs"`
	Status        string                `json:"status"`
	GoVersion     string                `json:"go_version"`
	Database      string                `json:"database"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	Goroutines    int                   `json:"goroutines"`
	CPUPercent    float64               `json:"cpu_percent"`
	MemoryPercent float64               `json:"memory_percent"`
	DBSizeMB      float64               `json:"db_size_mb"`
}

// SystemHandlers serves health, status and job endpoints
type SystemHandlers struct {
	db        *database.DB
	scheduler *scheduler.Scheduler
	started   time.Time
	cpuSample time.Duration
	log       zerolog.Logger
}

// NewSystemHandlers creates a new system handlers instance. sched may be nil.
func NewSystemHandlers(db *database.DB, sched *scheduler.Scheduler, started time.Time, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:        db,
		scheduler: sched,
		started:   started,
		cpuSample: 100 * time.Millisecond,
		log:       log.With().Str("component", "system_handlers").Logger(),
	}
}

// HandleHealth pings the database
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Conn().PingContext(ctx); err != nil {
		h.log.Error().Err(err).Msg("Health check failed")
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// HandleStatus reports process, host and database state
// GET /api/system/status
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.systemStats()

	status := "healthy"
	if err := h.db.Conn().PingContext(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Database ping failed")
		status = "degraded"
	}

	utils.WriteJSON(w, http.StatusOK, StatusResponse{
		StartedAt:     h.started.UTC(),
		Jobs:          h.entries(),
		Status:        status,
		GoVersion:     runtime.Version(),
		Database:      h.db.Name(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		DBSizeMB:      float64(h.db.SizeBytes()) / 1024 / 1024,
	})
}

// HandleJobs lists the scheduled jobs
// GET /api/system/jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, h.entries())
}

// HandleRunJob runs a registered job immediately
// POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.hasJob(name) {
		utils.WriteError(w, http.StatusNotFound, "job "+name+" is not registered")
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")
	if err := h.scheduler.RunNow(name); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "completed", "job": name})
}

func (h *SystemHandlers) entries() []scheduler.EntryInfo {
	if h.scheduler == nil {
		return []scheduler.EntryInfo{}
	}
	return h.scheduler.Entries()
}

func (h *SystemHandlers) hasJob(name string) bool {
	for _, e := range h.entries() {
		if e.Name == name {
			return true
		}
	}
	return false
}

// systemStats returns CPU and RAM usage percentages
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuAvg := 0.0
	if percents, err := cpu.Percent(h.cpuSample, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(percents) > 0 {
		cpuAvg = percents[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0
	}
	return cpuAvg, memStat.UsedPercent
}
