package api

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/plotter-studio/backend/internal/models"
	"github.com/plotter-studio/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDocumentHandler_ImportSVG(t *testing.T) {
	t.Run("valid svg", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/api/documents/svg", map[string]interface{}{
			"name":    "line.svg",
			"svg":     lineSVG,
			"context": models.RenderContext{Width: 2, Height: 2, Units: models.UnitInches},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		sess := decode[models.RenderSession](t, rec)
		assert.Equal(t, models.SourceSVG, sess.Source)
		require.Len(t, sess.Document.Layers, 1)
		assert.Equal(t, "svg-layer-1", sess.Document.Layers[0].ID)

		info, err := env.store.Get(sess.FileID)
		require.NoError(t, err)
		assert.Equal(t, "line.svg", info.Name)
		assert.Equal(t, storage.StatusImported, info.Status)
	})

	t.Run("malformed svg is kept but marked", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/api/documents/svg", map[string]interface{}{
			"name": "broken.svg",
			"svg":  `<svg><path d="M0 0 L1 1"></svg>`,
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "UNPROCESSABLE", decode[APIError](t, rec).Code)

		files, err := env.store.List(0)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, storage.StatusError, files[0].Status)
		assert.Zero(t, env.sessions.Count())
	})

	t.Run("missing fields", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/api/documents/svg", map[string]interface{}{"name": "x.svg"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[APIError](t, rec).Code)
		assert.Zero(t, env.store.GetFileCount())
	})
}

func TestDocumentHandler_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddFile("doc-1", "art.svg", []byte(lineSVG))

	rec := env.do(t, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.FileInfo](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/api/documents/doc-1/import", map[string]interface{}{
		"context": models.RenderContext{Width: 10, Height: 10, Units: models.UnitMillimeters},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sess := decode[models.RenderSession](t, rec)
	assert.Equal(t, "doc-1", sess.FileID)
	assert.Equal(t, models.UnitMillimeters, sess.Document.Units)

	rec = env.do(t, http.MethodPut, "/api/documents/doc-1", map[string]string{"name": "renamed.svg"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renamed.svg", decode[models.FileInfo](t, rec).Name)

	rec = env.do(t, http.MethodDelete, "/api/documents/doc-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/documents/doc-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/documents/doc-1/import", map[string]interface{}{})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The session outlives its source file
	rec = env.do(t, http.MethodGet, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionHandler_GetAndDelete(t *testing.T) {
	env := newTestEnv(t)
	id := env.renderInsetSquare(t)

	rec := env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inset-square", decode[models.RenderSession](t, rec).SketchSlug)

	rec = env.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandler_SVGPreview(t *testing.T) {
	env := newTestEnv(t)
	id := env.renderInsetSquare(t)

	rec := env.do(t, http.MethodGet, "/api/sessions/"+id+"/svg?hovered=frame&dim=0.3&background=%23ffffff", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get(echo.HeaderContentType))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<?xml"), body)
	assert.Contains(t, body, `<svg xmlns="http://www.w3.org/2000/svg"`)
	assert.Contains(t, body, "#ffffff")
	assert.Contains(t, body, `opacity="0.3"`)

	rec = env.do(t, http.MethodGet, "/api/sessions/"+id+"/svg?hovered=frame&dim=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `opacity="0"`)

	rec = env.do(t, http.MethodGet, "/api/sessions/"+id+"/svg?dim=2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/sessions/missing/svg", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandler_PNGThumbnail(t *testing.T) {
	env := newTestEnv(t)
	id := env.renderInsetSquare(t)

	rec := env.do(t, http.MethodGet, "/api/sessions/"+id+"/png?width=200", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy(), "4x3 canvas keeps its aspect")

	rec = env.do(t, http.MethodGet, "/api/sessions/"+id+"/png?width=5", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandler_Plan(t *testing.T) {
	env := newTestEnv(t)
	id := env.renderInsetSquare(t)

	tests := []struct {
		name       string
		path       string
		body       map[string]interface{}
		wantStatus int
		check      func(t *testing.T, plan models.PlotJobPlan)
	}{
		{
			name:       "ordered by default",
			path:       "/api/sessions/" + id + "/plan",
			body:       map[string]interface{}{},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, plan models.PlotJobPlan) {
				assert.Equal(t, models.LayerModeOrdered, plan.Mode)
				require.Len(t, plan.Layers, 2)
				assert.Equal(t, "frame", plan.Layers[0].ID)
				assert.Equal(t, 4, plan.Stats.StrokeCount)
			},
		},
		{
			name:       "flatten",
			path:       "/api/sessions/" + id + "/plan",
			body:       map[string]interface{}{"mode": "flatten"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, plan models.PlotJobPlan) {
				require.Len(t, plan.Layers, 1)
				assert.Equal(t, "flattened", plan.Layers[0].ID)
				assert.Equal(t, "Flattened Layer", plan.Layers[0].Name)
			},
		},
		{
			name:       "config overrides repeat count",
			path:       "/api/sessions/" + id + "/plan",
			body:       map[string]interface{}{"config": map[string]interface{}{"repeatCount": 2}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, plan models.PlotJobPlan) {
				require.Len(t, plan.Layers, 4)
				assert.Equal(t, "frame-copy-1", plan.Layers[0].ID)
				assert.Equal(t, "Frame (2/2)", plan.Layers[1].Name)
			},
		},
		{
			name:       "profile",
			path:       "/api/sessions/" + id + "/plan",
			body:       map[string]interface{}{"profile": "slow-a3"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, plan models.PlotJobPlan) {
				assert.Zero(t, plan.Stats.OutOfBoundsPoints)
			},
		},
		{
			name:       "unknown profile",
			path:       "/api/sessions/" + id + "/plan",
			body:       map[string]interface{}{"profile": "nope"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown mode",
			path:       "/api/sessions/" + id + "/plan",
			body:       map[string]interface{}{"mode": "sideways"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown model",
			path:       "/api/sessions/" + id + "/plan",
			body:       map[string]interface{}{"config": map[string]interface{}{"model": "Z9"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown session",
			path:       "/api/sessions/missing/plan",
			body:       map[string]interface{}{},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decode[models.PlotJobPlan](t, rec))
			}
		})
	}
}

func TestSessionHandler_Packets(t *testing.T) {
	env := newTestEnv(t)
	id := env.renderInsetSquare(t)
	body := map[string]interface{}{"mode": "pause-between"}

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/packets", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[packetsResponse](t, rec)

	require.Len(t, resp.Packets, resp.TotalPackets)
	assert.Equal(t, models.LayerModePauseBetween, resp.Mode)
	assert.Equal(t, models.PacketRecord{Type: models.PacketTypeCommand, Command: "EM,1,1"}, resp.Packets[0])
	assert.Equal(t, "EM,0,0", resp.Packets[len(resp.Packets)-1].Command)
	assert.Equal(t, resp.TotalPackets-1, resp.CommandCount, "one pause marker between two layers")

	t.Run("msgpack matches json", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/packets/msgpack", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

		var packed packetsResponse
		require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &packed))
		assert.Equal(t, resp.TotalPackets, packed.TotalPackets)
		assert.Equal(t, resp.CommandCount, packed.CommandCount)
		assert.Equal(t, resp.Packets, packed.Packets)
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/sessions/missing/packets", body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSessionHandler_DirectInvocation(t *testing.T) {
	env := newTestEnv(t)
	h := NewSessionHandler(env.sessions, configResolver{defaults: models.PlotterConfig{Model: models.ModelA4}})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := h.HandleGetSession(c)
	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected APIError, got %T", err)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}
