package handlers

import (
	"net/http"

	"github.com/favipie/FPL-hacker/internal/services"
	"github.com/favipie/FPL-hacker/pkg/database"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	db    *database.DB
	cache *services.CacheService
}

func NewHealthHandler(db *database.DB, cache *services.CacheService) *HealthHandler {
	return &HealthHandler{
		db:    db,
		cache: cache,
	}
}

// GetHealth returns basic health status - always returns 200 if server is running
// This is used for basic liveness probes
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "fpl-hacker",
	})
}

// GetReady returns readiness status - 200 only when the database is
// reachable. A cache outage degrades the service instead of failing it,
// since every cached path falls back to the database.
func (h *HealthHandler) GetReady(c *gin.Context) {
	checks := gin.H{
		"database": "ok",
		"cache":    "ok",
	}
	status := "ready"
	code := http.StatusOK

	if err := h.db.HealthCheck(); err != nil {
		checks["database"] = err.Error()
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	if err := h.cache.HealthCheck(c.Request.Context()); err != nil {
		checks["cache"] = err.Error()
		if status == "ready" {
			status = "degraded"
		}
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
	})
}
