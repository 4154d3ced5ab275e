package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/alevras/covercall/internal/database"
	"github.com/alevras/covercall/internal/scheduler"
)

// StreamStatus reports the quote stream's connection health
type StreamStatus interface {
	IsConnected() bool
	IsCacheStale() bool
}

// SystemHandlers serves process and host monitoring endpoints plus manual
// job triggers.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	databases   map[string]*database.DB
	quoteStream StreamStatus

	sched          *scheduler.Scheduler
	scanRefreshJob scheduler.Job
	markPricesJob  scheduler.Job
	backupJob      scheduler.Job
}

// NewSystemHandlers creates the system handlers
func NewSystemHandlers(log zerolog.Logger, dataDir string, databases map[string]*database.DB, quoteStream StreamStatus) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		databases:   databases,
		quoteStream: quoteStream,
	}
}

// SetJobs wires the scheduler and jobs for manual triggering. Called from
// main after job registration.
func (h *SystemHandlers) SetJobs(sched *scheduler.Scheduler, scanRefresh, markPrices, backup scheduler.Job) {
	h.sched = sched
	h.scanRefreshJob = scanRefresh
	h.markPricesJob = markPrices
	h.backupJob = backup
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Get("/stats", h.HandleStatus)
		r.Get("/databases", h.HandleDatabaseStats)
		r.Post("/jobs/{name}/run", h.HandleTriggerJob)
	})
}

// systemStatus is the /system/status payload
type systemStatus struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemPercent    float64 `json:"mem_percent"`
	DiskPercent   float64 `json:"disk_percent"`
	QuoteStream   string  `json:"quote_stream"`
}

// HandleStatus handles GET /api/system/status
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.systemStats()

	diskPct := 0.0
	if usage, err := disk.Usage(h.dataDir); err == nil {
		diskPct = usage.UsedPercent
	}

	stream := "disabled"
	if h.quoteStream != nil {
		switch {
		case !h.quoteStream.IsConnected():
			stream = "disconnected"
		case h.quoteStream.IsCacheStale():
			stream = "stale"
		default:
			stream = "live"
		}
	}

	h.writeJSON(w, systemStatus{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPct,
		MemPercent:    memPct,
		DiskPercent:   diskPct,
		QuoteStream:   stream,
	})
}

// systemStats samples CPU over a short window so the endpoint stays fast
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// databaseStats is one row of the /system/databases payload
type databaseStats struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	SizeMB    float64 `json:"size_mb"`
	Reachable bool    `json:"reachable"`
}

// HandleDatabaseStats handles GET /api/system/databases
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make([]databaseStats, 0, len(h.databases))
	for name, db := range h.databases {
		row := databaseStats{Name: name, Path: filepath.Base(db.Path())}
		if info, err := os.Stat(db.Path()); err == nil {
			row.SizeMB = float64(info.Size()) / 1024 / 1024
		}
		row.Reachable = db.Conn().PingContext(r.Context()) == nil
		stats = append(stats, row)
	}
	h.writeJSON(w, stats)
}

// HandleTriggerJob handles POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	if h.sched == nil {
		http.Error(w, "Scheduler not available", http.StatusServiceUnavailable)
		return
	}

	var job scheduler.Job
	switch chi.URLParam(r, "name") {
	case "scan_refresh":
		job = h.scanRefreshJob
	case "mark_prices":
		job = h.markPricesJob
	case "backup":
		job = h.backupJob
	}
	if job == nil {
		http.Error(w, "Unknown job", http.StatusNotFound)
		return
	}

	if err := h.sched.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", job.Name()).Msg("Manual job run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]string{"job": job.Name(), "status": "completed"})
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
