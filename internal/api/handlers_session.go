// handlers_session.go - Render session preview, plan and packet export handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/plotter-studio/backend/internal/models"
	"github.com/plotter-studio/backend/internal/normalize"
	"github.com/vmihailenco/msgpack/v5"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions SessionManager
	configs  configResolver
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(sessions SessionManager, configs configResolver) SessionHandler {
	return &SessionHandlerImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// packetsResponse is the export form of a compiled job.
type packetsResponse struct {
	Mode         models.LayerMode      `json:"mode" msgpack:"mode"`
	Stats        models.PlotJobStats   `json:"stats" msgpack:"stats"`
	TotalPackets int                   `json:"totalPackets" msgpack:"totalPackets"`
	CommandCount int                   `json:"commandCount" msgpack:"commandCount"`
	Packets      []models.PacketRecord `json:"packets" msgpack:"packets"`
}

// HandleGetSession returns a render session with its normalized document
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, ok := h.sessions.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, sess)
}

// HandleSessionSVG renders a session's document as a standalone SVG preview
func (h *SessionHandlerImpl) HandleSessionSVG(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	opts := models.SVGRenderOptions{
		HoveredLayerID: c.QueryParam("hovered"),
		Background:     c.QueryParam("background"),
	}
	if raw := c.QueryParam("dim"); raw != "" {
		dim, err := strconv.ParseFloat(raw, 64)
		if err != nil || dim < 0 || dim > 1 {
			return NewValidationError("dim")
		}
		opts.DimOpacity = &dim
	}

	sess, ok := h.sessions.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	svg := normalize.RenderSVG(sess.Document, opts)
	return c.Blob(http.StatusOK, "image/svg+xml", []byte(svg))
}

// HandleSessionPNG rasterizes a session's document into a PNG thumbnail
func (h *SessionHandlerImpl) HandleSessionPNG(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	width := normalize.DefaultThumbnailWidth
	if raw := c.QueryParam("width"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < normalize.MinThumbnailWidth || n > normalize.MaxThumbnailWidth {
			return NewValidationError("width")
		}
		width = n
	}

	sess, ok := h.sessions.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	data, err := normalize.RenderPNG(sess.Document, width)
	if err != nil {
		return NewInternalError("failed to render thumbnail", err)
	}

	return c.Blob(http.StatusOK, "image/png", data)
}

// HandleDeleteSession drops a render session
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if !h.sessions.DeleteSession(id) {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandlePlan builds a fresh plot plan for a session
func (h *SessionHandlerImpl) HandlePlan(c echo.Context) error {
	id, req, cfg, err := h.bindPlan(c)
	if err != nil {
		return err
	}

	plan, err := h.sessions.Plan(id, req.Mode, cfg)
	if err != nil {
		return FromDomainError(err, "session", id)
	}

	return c.JSON(http.StatusOK, plan)
}

// HandlePackets compiles a session into EBB packets and returns them as JSON
func (h *SessionHandlerImpl) HandlePackets(c echo.Context) error {
	resp, err := h.compile(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandlePacketsMsgpack is HandlePackets in MessagePack form
func (h *SessionHandlerImpl) HandlePacketsMsgpack(c echo.Context) error {
	resp, err := h.compile(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *SessionHandlerImpl) compile(c echo.Context) (packetsResponse, error) {
	id, req, cfg, err := h.bindPlan(c)
	if err != nil {
		return packetsResponse{}, err
	}

	packets, plan, err := h.sessions.Packets(id, req.Mode, cfg)
	if err != nil {
		return packetsResponse{}, FromDomainError(err, "session", id)
	}

	return packetsResponse{
		Mode:         plan.Mode,
		Stats:        plan.Stats,
		TotalPackets: len(packets),
		CommandCount: models.CommandCount(packets),
		Packets:      models.PacketRecords(packets),
	}, nil
}

func (h *SessionHandlerImpl) bindPlan(c echo.Context) (string, planRequest, models.PlotterConfig, error) {
	id := c.Param("id")
	if id == "" {
		return "", planRequest{}, models.PlotterConfig{}, NewValidationError("id")
	}

	var req planRequest
	if err := c.Bind(&req); err != nil {
		return "", req, models.PlotterConfig{}, NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return "", req, models.PlotterConfig{}, err
	}

	cfg, err := h.configs.resolve(req)
	if err != nil {
		return "", req, cfg, err
	}
	return id, req, cfg, nil
}
