package api

import (
	"net/http"
	"testing"

	"github.com/plotter-studio/backend/internal/models"
	"github.com/plotter-studio/backend/internal/sketch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, float64(0), body["sessions"])
	assert.Equal(t, "idle", body["plotter"])
}

func TestSketchHandler_List(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/sketches", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	manifests := decode[[]sketch.Manifest](t, rec)
	require.Len(t, manifests, 3)
	assert.Equal(t, "inset-square", manifests[0].Slug)
	assert.Equal(t, "layered-waves", manifests[1].Slug)
	assert.Equal(t, "aurora-topography", manifests[2].Slug)
}

func TestSketchHandler_Get(t *testing.T) {
	env := newTestEnv(t)

	t.Run("known sketch", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/sketches/inset-square", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[map[string]interface{}](t, rec)
		assert.Equal(t, "Inset Square", body["title"])
		schema, ok := body["schema"].([]interface{})
		require.True(t, ok)
		assert.Len(t, schema, 3)
		defaults, ok := body["defaults"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(4), defaults["ringCount"])
		assert.Equal(t, true, defaults["showDiagonals"])
	})

	t.Run("unknown sketch", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/sketches/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decode[APIError](t, rec).Code)
	})
}

func TestSketchHandler_Render(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       map[string]interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name: "coerces params and renders",
			path: "/api/sketches/inset-square/render",
			body: map[string]interface{}{
				"params":  map[string]interface{}{"ringCount": "3", "showDiagonals": false},
				"context": models.RenderContext{Width: 6, Height: 4, Units: models.UnitInches},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "default context when omitted",
			path:       "/api/sketches/layered-waves/render",
			body:       map[string]interface{}{},
			wantStatus: http.StatusCreated,
		},
		{
			name: "rejects empty canvas",
			path: "/api/sketches/inset-square/render",
			body: map[string]interface{}{
				"context": models.RenderContext{Width: 0, Height: 4},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "unknown sketch",
			path:       "/api/sketches/missing/render",
			body:       map[string]interface{}{},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decode[APIError](t, rec).Code)
				return
			}

			sess := decode[models.RenderSession](t, rec)
			assert.NotEmpty(t, sess.ID)
			assert.Equal(t, models.SourceSketch, sess.Source)
			require.NotNil(t, sess.Document)
			assert.NotEmpty(t, sess.Document.Layers)
			assert.Equal(t, 1, env.sessions.Count())
		})
	}
}

func TestSketchHandler_RenderCoercedParams(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/sketches/inset-square/render", map[string]interface{}{
		"params": map[string]interface{}{"ringCount": 99, "showDiagonals": false},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	sess := decode[models.RenderSession](t, rec)
	assert.Equal(t, float64(24), sess.Params["ringCount"], "clamped to max")
	require.Len(t, sess.Document.Layers, 2)
	assert.Len(t, sess.Document.Layers[0].Polylines, 24)
	assert.Empty(t, sess.Document.Layers[1].Polylines)
}
