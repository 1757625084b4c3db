package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/spreadscan/internal/database"
	"github.com/aristath/spreadscan/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	archiveDir  string
	startupTime time.Time
	priceDB     *database.DB

	mu   sync.Mutex
	jobs map[string]*jobState
}

type jobState struct {
	job     scheduler.Job
	running bool
	lastRun time.Time
	lastErr error
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir, archiveDir string, priceDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		archiveDir:  archiveDir,
		startupTime: time.Now(),
		priceDB:     priceDB,
		jobs:        make(map[string]*jobState),
	}
}

// SetJobs registers job references for manual triggering
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, job := range jobs {
		if job == nil {
			continue
		}
		h.jobs[job.Name()] = &jobState{job: job}
	}
}

// SystemStatusResponse represents the process and host status
type SystemStatusResponse struct {
	Status        string  `json:"status"` // "healthy" or "unhealthy"
	UptimeSeconds int64   `json:"uptime_seconds"`
	GoVersion     string  `json:"go_version"`
	Goroutines    int     `json:"goroutines"`
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float64 `json:"ram_percent"`
	DatabaseError string  `json:"database_error,omitempty"`
}

// DatabaseStatsResponse represents price store statistics
type DatabaseStatsResponse struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Driver      string          `json:"driver"`
	Stats       *database.Stats `json:"stats"`
	LastChecked string          `json:"last_checked"`
}

// DiskUsageResponse represents disk usage of the data directories
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
	ArchiveMB float64 `json:"archive_mb"`
}

// JobsStatusResponse represents the registered jobs
type JobsStatusResponse struct {
	TotalJobs int       `json:"total_jobs"`
	Jobs      []JobInfo `json:"jobs"`
}

// JobInfo represents information about a single job
type JobInfo struct {
	Name      string `json:"name"`
	Running   bool   `json:"running"`
	LastRun   string `json:"last_run,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()
	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
	}

	if err := h.priceDB.HealthCheck(r.Context()); err != nil {
		response.Status = "unhealthy"
		response.DatabaseError = err.Error()
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	stats, err := h.priceDB.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		http.Error(w, "Failed to get database stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, DatabaseStatsResponse{
		Name:        h.priceDB.Name(),
		Path:        h.priceDB.Path(),
		Driver:      h.priceDB.Driver(),
		Stats:       stats,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleDiskUsage handles GET /api/system/disk
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	h.writeJSON(w, http.StatusOK, DiskUsageResponse{
		DataDirMB: h.getDirSize(h.dataDir),
		ArchiveMB: h.getDirSize(h.archiveDir),
	})
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	jobs := make([]JobInfo, 0, len(h.jobs))
	for name, state := range h.jobs {
		info := JobInfo{Name: name, Running: state.running}
		if !state.lastRun.IsZero() {
			info.LastRun = state.lastRun.Format(time.RFC3339)
		}
		if state.lastErr != nil {
			info.LastError = state.lastErr.Error()
		}
		jobs = append(jobs, info)
	}
	h.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	h.writeJSON(w, http.StatusOK, JobsStatusResponse{TotalJobs: len(jobs), Jobs: jobs})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}. The job runs in the background;
// a job that is already running is not started twice.
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.mu.Lock()
	state, ok := h.jobs[name]
	if !ok {
		h.mu.Unlock()
		http.Error(w, "Job not registered", http.StatusNotFound)
		return
	}
	if state.running {
		h.mu.Unlock()
		h.writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "Job is already running"})
		return
	}
	state.running = true
	h.mu.Unlock()

	h.log.Info().Str("job", name).Msg("Manual job triggered")
	go h.runJob(state)

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "success", "message": name + " triggered successfully"})
}

func (h *SystemHandlers) runJob(state *jobState) {
	err := state.job.Run()
	if err != nil {
		h.log.Error().Err(err).Str("job", state.job.Name()).Msg("Manual job failed")
	}

	h.mu.Lock()
	state.running = false
	state.lastRun = time.Now()
	state.lastErr = err
	h.mu.Unlock()
}

func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// Sampled over 100ms to keep the endpoint responsive
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

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
