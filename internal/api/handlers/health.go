package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the response for the health check endpoint.
type HealthResponse struct {
	Status   HealthStatus   `json:"status"`
	Database map[string]any `json:"database,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// DatabaseHealthChecker defines the interface for database health checking.
type DatabaseHealthChecker interface {
	Ping(ctx context.Context) error
	Health() map[string]any
}

// HealthHandler handles health endpoints.
type HealthHandler struct {
	db     DatabaseHealthChecker
	logger zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db DatabaseHealthChecker, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger.With().Str("component", "health_handler").Logger(),
	}
}

// RegisterPublicRoutes registers health check routes that don't require authentication.
func (h *HealthHandler) RegisterPublicRoutes(r *gin.Engine) {
	health := r.Group("/health")
	{
		health.GET("", h.Overall)
		health.GET("/system", h.System)
	}
}

// Overall returns server health, checking database connectivity.
// GET /health
func (h *HealthHandler) Overall(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := &HealthResponse{Status: HealthStatusHealthy}

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error().Err(err).Msg("database health check failed")
		response.Status = HealthStatusUnhealthy
		response.Error = "database unreachable"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	response.Database = h.db.Health()

	c.JSON(http.StatusOK, response)
}

// SystemStats holds host-level statistics for the system health endpoint.
type SystemStats struct {
	Hostname       string  `json:"hostname"`
	OS             string  `json:"os"`
	UptimeSeconds  uint64  `json:"uptime_seconds"`
	CPUUsage       float64 `json:"cpu_usage"`
	MemoryUsage    float64 `json:"memory_usage"`
	DiskUsage      float64 `json:"disk_usage"`
	DiskFreeBytes  uint64  `json:"disk_free_bytes"`
	DiskTotalBytes uint64  `json:"disk_total_bytes"`
	Goroutines     int     `json:"goroutines"`
}

// System returns host-level statistics.
// GET /health/system
func (h *HealthHandler) System(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	stats := SystemStats{
		OS:         runtime.GOOS,
		Goroutines: runtime.NumGoroutine(),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		stats.Hostname = info.Hostname
		stats.UptimeSeconds = info.Uptime
	}
	if cpuPercent, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(cpuPercent) > 0 {
		stats.CPUUsage = cpuPercent[0]
	}
	if memStat, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryUsage = memStat.UsedPercent
	}

	diskPath := "/"
	if runtime.GOOS == "windows" {
		diskPath = "C:\\"
	}
	if diskStat, err := disk.UsageWithContext(ctx, diskPath); err == nil {
		stats.DiskUsage = diskStat.UsedPercent
		stats.DiskFreeBytes = diskStat.Free
		stats.DiskTotalBytes = diskStat.Total
	}

	c.JSON(http.StatusOK, stats)
}
