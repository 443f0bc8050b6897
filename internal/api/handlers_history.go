// handlers_history.go - Plot run history handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/plotter-studio/backend/internal/models"
)

// HistoryHandlerImpl implements the HistoryHandler interface
type HistoryHandlerImpl struct {
	history RunHistory
}

// NewHistoryHandler creates a new history handler instance
func NewHistoryHandler(history RunHistory) HistoryHandler {
	return &HistoryHandlerImpl{history: history}
}

// HandleListRuns returns the most recent plot runs
func (h *HistoryHandlerImpl) HandleListRuns(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("plot history is disabled")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return NewValidationError("limit")
		}
		limit = n
	}

	runs, err := h.history.List(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to list plot runs", err)
	}
	if runs == nil {
		runs = []models.PlotRun{}
	}

	return c.JSON(http.StatusOK, runs)
}

// HandleGetRun returns one recorded run
func (h *HistoryHandlerImpl) HandleGetRun(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("plot history is disabled")
	}

	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	run, err := h.history.Get(c.Request().Context(), id)
	if err != nil {
		return FromDomainError(err, "plot run", id)
	}

	return c.JSON(http.StatusOK, run)
}

// HandleSummary returns aggregate totals across all runs
func (h *HistoryHandlerImpl) HandleSummary(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("plot history is disabled")
	}

	summary, err := h.history.Summarize(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to summarize plot runs", err)
	}

	return c.JSON(http.StatusOK, summary)
}
