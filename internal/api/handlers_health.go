// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/chemequip/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	store   storage.DatasetStore
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store storage.DatasetStore, version string) HealthHandler {
	return &HealthHandlerImpl{
		store:   store,
		version: version,
	}
}

// HandleHealth returns server health status and the stored dataset count
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	n, err := h.store.Count(c.Request().Context())
	if err != nil {
		return NewServiceUnavailableError("Dataset store unavailable", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"datasets": n,
	})
}
