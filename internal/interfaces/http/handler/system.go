package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledgerkeep/backend/internal/infrastructure/persistence"
	"github.com/ledgerkeep/backend/internal/interfaces/http/dto"
)

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	db        *persistence.Database
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *persistence.Database) *SystemHandler {
	return &SystemHandler{
		db:        db,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/info", h.GetSystemInfo)
		system.GET("/ping", h.Ping)
	}
	rg.GET("/health", h.Health)
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string      `json:"name" example:"LedgerKeep Backend API"`
	Version   string      `json:"version" example:"1.0.0"`
	GoVersion string      `json:"go_version" example:"go1.25.5"`
	Uptime    string      `json:"uptime" example:"1h30m45s"`
	DBPool    *DBPoolInfo `json:"db_pool,omitempty"`
}

// DBPoolInfo reports database connection pool usage
type DBPoolInfo struct {
	MaxOpenConnections int `json:"max_open_connections"`
	OpenConnections    int `json:"open_connections"`
	InUse              int `json:"in_use"`
	Idle               int `json:"idle"`
}

// GetSystemInfo returns basic system information including version, uptime
// and database pool usage
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "LedgerKeep Backend API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	if stats, err := h.db.Stats(); err == nil {
		info.DBPool = &DBPoolInfo{
			MaxOpenConnections: stats.MaxOpenConnections,
			OpenConnections:    stats.OpenConnections,
			InUse:              stats.InUse,
			Idle:               stats.Idle,
		}
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-07-15T12:00:00Z"`
}

// Ping is a simple liveness endpoint for the versioned API
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Timestamp string `json:"timestamp" example:"2026-07-15T12:00:00Z"`
}

// Health is a liveness probe; it answers as long as the process serves HTTP
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status   string `json:"status" example:"ready"`
	Database string `json:"database" example:"ok"`
}

// Ready is a readiness probe. The sequence store lives in the database, so
// readiness requires a successful ping; without it every allocation would
// fail as unavailable anyway.
func (h *SystemHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(
			dto.ErrCodeStorageUnavailable,
			"Database is not reachable",
		))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(ReadyResponse{
		Status:   "ready",
		Database: "ok",
	}))
}
