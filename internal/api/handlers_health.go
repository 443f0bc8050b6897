// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	sessions SessionManager
	link     PlotterLink
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessions SessionManager, link PlotterLink) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		sessions: sessions,
		link:     link,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.sessions != nil {
		resp["sessions"] = h.sessions.Count()
	}
	if h.link != nil {
		resp["plotter"] = h.link.Status().State
	}
	return c.JSON(http.StatusOK, resp)
}
