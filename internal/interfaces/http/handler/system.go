package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// healthCheckTimeout bounds every dependency probe of GET /health
const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	carriers  []shipping.CarrierID
	checks    map[string]HealthCheck
	startTime time.Time
}

// SystemHandlerConfig describes the running service
type SystemHandlerConfig struct {
	Name     string
	Version  string
	Carriers []shipping.CarrierID
	Checks   map[string]HealthCheck
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(cfg SystemHandlerConfig) *SystemHandler {
	return &SystemHandler{
		name:      cfg.Name,
		version:   cfg.Version,
		carriers:  cfg.Carriers,
		checks:    cfg.Checks,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string               `json:"name"`
	Version   string               `json:"version"`
	GoVersion string               `json:"go_version"`
	Uptime    string               `json:"uptime"`
	Carriers  []shipping.CarrierID `json:"carriers"`
}

// GetSystemInfo returns version, uptime and the carriers this instance quotes
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	carriers := h.carriers
	if carriers == nil {
		carriers = []shipping.CarrierID{}
	}
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Carriers:  carriers,
	})
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping is a liveness probe
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthResponse reports dependency status
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health runs every dependency probe. Any failure turns the response into 503.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "healthy"}
	status := http.StatusOK
	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Checks[name] = "unhealthy: " + err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "healthy"
	}

	c.JSON(status, dto.NewSuccessResponse(resp))
}
