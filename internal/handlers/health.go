// Package handlers provides HTTP request handlers for the API endpoints.
// Handlers coordinate between the HTTP layer and the assistant and storage
// layers, handling request parsing, validation, and response formatting.
//
// This package includes handlers for:
//   - The conversational assistant (POST /asha/chat)
//   - Logistics route lookup (GET /logistics)
//   - Health checks and readiness probes
//   - Swagger UI and the OpenAPI document (GET /api/docs/*)
package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/mkulima/asha/pkg/utils"
	"github.com/rs/zerolog/log"
)

// Pinger is a dependency whose connectivity the readiness probe checks.
// Implemented by database.PostgresDB, database.SupabaseDB and database.RedisDB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints for monitoring and orchestration.
// Provides both simple liveness checks and detailed readiness checks that verify
// connectivity to the relational store and Redis.
type HealthHandler struct {
	dependencies map[string]Pinger
	timeout      time.Duration
}

// NewHealthHandler creates a new health handler over the named dependencies.
//
// Parameters:
//   - dependencies: name shown in the readiness response mapped to its pinger
//
// Example:
//
//	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{
//	    "postgres": postgresDB,
//	    "redis":    redisDB,
//	})
//	r.Get("/health", healthHandler.Health)
//	r.Get("/ready", healthHandler.Ready)
func NewHealthHandler(dependencies map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		dependencies: dependencies,
		timeout:      5 * time.Second,
	}
}

// HealthResponse represents the health check response structure.
// Used by both the basic health check and detailed readiness check.
//
// JSON example:
//
//	{
//	  "status": "ok",
//	  "timestamp": "2026-01-20T14:30:00Z",
//	  "services": {
//	    "postgres": "healthy",
//	    "redis": "healthy"
//	  }
//	}
type HealthResponse struct {
	Status    string            `json:"status"`             // Overall status: "ok" or "degraded"
	Timestamp time.Time         `json:"timestamp"`          // Current server time
	Services  map[string]string `json:"services,omitempty"` // Individual service health (readiness only)
}

// Health returns a simple liveness check. It never touches dependencies and
// always answers 200 OK with {"status": "ok"}.
//
// @Summary      Health check (liveness probe)
// @Description  Returns 200 OK if the service is running. Does not check dependencies.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse  "Service is alive"
// @Router       /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Ready checks if the service is ready to accept traffic by pinging every
// dependency. Returns 200 OK if all are healthy, or 503 Service Unavailable
// with "status": "degraded" if any are down.
//
// Pings share a 5-second timeout so a hung dependency cannot stall the probe.
//
// @Summary      Readiness check
// @Description  Checks that the relational store and Redis answer a ping
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse  "All services healthy"
// @Failure      503  {object}  HealthResponse  "One or more services unhealthy"
// @Router       /ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.dependencies))
	for name := range h.dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	services := make(map[string]string, len(names))
	allHealthy := true
	for _, name := range names {
		if err := h.dependencies[name].Ping(ctx); err != nil {
			log.Error().Err(err).Str("service", name).Msg("Health check failed")
			services[name] = "unhealthy"
			allHealthy = false
			continue
		}
		services[name] = "healthy"
	}

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Services:  services,
	}

	statusCode := http.StatusOK
	if !allHealthy {
		response.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	utils.RespondWithJSON(w, r, statusCode, response)
}
