// handlers_sketch.go - Sketch catalog and render handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/plotter-studio/backend/internal/sketch"
)

// SketchHandlerImpl implements the SketchHandler interface
type SketchHandlerImpl struct {
	registry *sketch.Registry
	sessions SessionManager
}

// NewSketchHandler creates a new sketch handler instance
func NewSketchHandler(registry *sketch.Registry, sessions SessionManager) SketchHandler {
	return &SketchHandlerImpl{
		registry: registry,
		sessions: sessions,
	}
}

// sketchDetail is a manifest plus everything a client needs to build a param form.
type sketchDetail struct {
	sketch.Manifest
	Schema   sketch.Schema `json:"schema"`
	Defaults sketch.Params `json:"defaults"`
}

// HandleListSketches returns all registered sketch manifests in display order
func (h *SketchHandlerImpl) HandleListSketches(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.List())
}

// HandleGetSketch returns a sketch's manifest, schema and defaults
func (h *SketchHandlerImpl) HandleGetSketch(c echo.Context) error {
	slug := c.Param("slug")
	if slug == "" {
		return NewValidationError("slug")
	}

	sk, manifest, err := h.registry.Get(slug)
	if err != nil {
		return FromDomainError(err, "sketch", slug)
	}

	schema := sk.Schema()
	return c.JSON(http.StatusOK, sketchDetail{
		Manifest: manifest,
		Schema:   schema,
		Defaults: schema.Defaults(),
	})
}

// HandleRenderSketch renders a sketch with the given params into a new session
func (h *SketchHandlerImpl) HandleRenderSketch(c echo.Context) error {
	slug := c.Param("slug")
	if slug == "" {
		return NewValidationError("slug")
	}

	var req renderSketchRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	sess, err := h.sessions.RenderSketch(slug, req.Params, renderContextOrDefault(req.Context))
	if err != nil {
		return FromDomainError(err, "sketch", slug)
	}

	return c.JSON(http.StatusCreated, sess)
}
