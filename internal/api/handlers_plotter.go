// handlers_plotter.go - Serial link control and plot job handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/plotter-studio/backend/internal/models"
	"github.com/plotter-studio/backend/internal/plotter"
	"github.com/plotter-studio/backend/internal/transport"
)

// PlotterHandlerImpl implements the PlotterHandler interface
type PlotterHandlerImpl struct {
	link      PlotterLink
	jobs      JobRunner
	configs   configResolver
	listPorts func() ([]string, error)
}

// NewPlotterHandler creates a new plotter handler instance. listPorts may be nil.
func NewPlotterHandler(link PlotterLink, jobs JobRunner, configs configResolver, listPorts func() ([]string, error)) PlotterHandler {
	return &PlotterHandlerImpl{
		link:      link,
		jobs:      jobs,
		configs:   configs,
		listPorts: listPorts,
	}
}

// profilesResponse lists presets alongside the server defaults they fall back to.
type profilesResponse struct {
	Defaults models.PlotterConfig `json:"defaults"`
	Profiles []plotter.Profile    `json:"profiles"`
}

// HandleSupport reports whether direct plotting should be offered to this client
func (h *PlotterHandlerImpl) HandleSupport(c echo.Context) error {
	support := transport.CheckSupport(h.link.Supported(), c.Request().UserAgent())
	return c.JSON(http.StatusOK, support)
}

// HandlePorts lists attached serial devices
func (h *PlotterHandlerImpl) HandlePorts(c echo.Context) error {
	if h.listPorts == nil {
		return c.JSON(http.StatusOK, []string{})
	}

	ports, err := h.listPorts()
	if err != nil {
		return NewServiceUnavailableError("serial ports could not be listed: " + err.Error())
	}
	if ports == nil {
		ports = []string{}
	}

	return c.JSON(http.StatusOK, ports)
}

// HandleStatus returns the current link status
func (h *PlotterHandlerImpl) HandleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.link.Status())
}

// HandleProfiles returns the configured machine presets
func (h *PlotterHandlerImpl) HandleProfiles(c echo.Context) error {
	profiles := h.configs.profiles
	if profiles == nil {
		profiles = []plotter.Profile{}
	}
	return c.JSON(http.StatusOK, profilesResponse{
		Defaults: h.configs.defaults,
		Profiles: profiles,
	})
}

// HandleConnect opens the serial link. Failures are reported in the returned status.
func (h *PlotterHandlerImpl) HandleConnect(c echo.Context) error {
	return c.JSON(http.StatusOK, h.link.Connect(c.Request().Context()))
}

// HandleDisconnect closes the serial link
func (h *PlotterHandlerImpl) HandleDisconnect(c echo.Context) error {
	return c.JSON(http.StatusOK, h.link.Disconnect())
}

// HandlePause pauses a running plot
func (h *PlotterHandlerImpl) HandlePause(c echo.Context) error {
	return c.JSON(http.StatusOK, h.link.Pause())
}

// HandleResume resumes a paused plot
func (h *PlotterHandlerImpl) HandleResume(c echo.Context) error {
	return c.JSON(http.StatusOK, h.link.Resume())
}

// HandleCancel sends an emergency stop and ends the running plot
func (h *PlotterHandlerImpl) HandleCancel(c echo.Context) error {
	return c.JSON(http.StatusOK, h.link.Cancel())
}

// HandleStartJob plans a session and starts streaming it in the background
func (h *PlotterHandlerImpl) HandleStartJob(c echo.Context) error {
	var req startJobRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	cfg, err := h.configs.resolve(req.planRequest)
	if err != nil {
		return err
	}

	j, err := h.jobs.StartJob(req.SessionID, req.Mode, cfg)
	if err != nil {
		return FromDomainError(err, "session", req.SessionID)
	}

	return c.JSON(http.StatusAccepted, j)
}

// HandleGetJob returns a job snapshot
func (h *PlotterHandlerImpl) HandleGetJob(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	j, ok := h.jobs.GetJob(id)
	if !ok {
		return NewNotFoundError("job", id)
	}

	return c.JSON(http.StatusOK, j)
}

// HandleActiveJob returns the job currently streaming
func (h *PlotterHandlerImpl) HandleActiveJob(c echo.Context) error {
	j, ok := h.jobs.ActiveJob()
	if !ok {
		return NewNotFoundError("job", "active")
	}

	return c.JSON(http.StatusOK, j)
}
