// handlers_document.go - Uploaded SVG document handlers
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/plotter-studio/backend/internal/models"
	"github.com/plotter-studio/backend/internal/storage"
)

// DocumentHandlerImpl implements the DocumentHandler interface
type DocumentHandlerImpl struct {
	store    storage.Store
	sessions SessionManager
}

// NewDocumentHandler creates a new document handler instance
func NewDocumentHandler(store storage.Store, sessions SessionManager) DocumentHandler {
	return &DocumentHandlerImpl{
		store:    store,
		sessions: sessions,
	}
}

// HandleImportSVG stores a freeform SVG and normalizes it into a render session
func (h *DocumentHandlerImpl) HandleImportSVG(c echo.Context) error {
	var req importSVGRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	info, err := h.store.SaveBytes(req.Name, []byte(req.SVG))
	if err != nil {
		return NewInternalError("failed to save document", err)
	}

	sess, apiErr := h.importStored(info.ID, req.SVG, renderContextOrDefault(req.Context))
	if apiErr != nil {
		return apiErr
	}

	return c.JSON(http.StatusCreated, sess)
}

// HandleListDocuments returns recently uploaded documents
func (h *DocumentHandlerImpl) HandleListDocuments(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return NewValidationError("limit")
		}
		limit = n
	}

	files, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("failed to list documents", err)
	}
	if files == nil {
		files = []*models.FileInfo{}
	}

	return c.JSON(http.StatusOK, files)
}

// HandleReimportDocument renders a stored document again, optionally on a new canvas
func (h *DocumentHandlerImpl) HandleReimportDocument(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req reimportRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	data, err := h.store.ReadFile(id)
	if err != nil {
		return FromDomainError(err, "document", id)
	}

	sess, apiErr := h.importStored(id, string(data), renderContextOrDefault(req.Context))
	if apiErr != nil {
		return apiErr
	}

	return c.JSON(http.StatusCreated, sess)
}

// HandleRenameDocument updates the display name of a document
func (h *DocumentHandlerImpl) HandleRenameDocument(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req renameDocumentRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.Name == "" {
		return NewValidationError("name")
	}

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return FromDomainError(err, "document", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteDocument removes a stored document. Sessions already rendered from it are kept.
func (h *DocumentHandlerImpl) HandleDeleteDocument(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return FromDomainError(err, "document", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// importStored normalizes stored SVG text and records the outcome on the file.
func (h *DocumentHandlerImpl) importStored(fileID, svg string, ctx models.RenderContext) (*models.RenderSession, *APIError) {
	sess, err := h.sessions.ImportSVG(fileID, svg, ctx)
	if err != nil {
		if statusErr := h.store.SetStatus(fileID, storage.StatusError); statusErr != nil {
			fmt.Printf("[Documents] Warning: failed to mark %s as errored: %v\n", fileID, statusErr)
		}
		apiErr := FromDomainError(err, "document", fileID)
		if apiErr.Status == http.StatusInternalServerError {
			return nil, NewUnprocessableError("could not import SVG document", err)
		}
		return nil, apiErr
	}

	if err := h.store.SetStatus(fileID, storage.StatusImported); err != nil {
		fmt.Printf("[Documents] Warning: failed to mark %s as imported: %v\n", fileID, err)
	}
	return sess, nil
}
