package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/plotter-studio/backend/internal/history"
	"github.com/plotter-studio/backend/internal/job"
	"github.com/plotter-studio/backend/internal/models"
	"github.com/plotter-studio/backend/internal/session"
	"github.com/plotter-studio/backend/internal/sketch"
	"github.com/plotter-studio/backend/internal/storage"
	"github.com/plotter-studio/backend/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

func TestPlotterHandler_Support(t *testing.T) {
	tests := []struct {
		name        string
		userAgent   string
		unavailable bool
		want        transport.Support
	}{
		{"chrome with serial", chromeUA, false, transport.Support{Serial: true, Chromium: true, DirectPlotting: true}},
		{"firefox", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", false, transport.Support{Serial: true}},
		{"chrome without serial", chromeUA, true, transport.Support{Chromium: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.opener.Unavailable = tt.unavailable

			req := httptest.NewRequest(http.MethodGet, "/api/plotter/support", nil)
			req.Header.Set("User-Agent", tt.userAgent)
			rec := httptest.NewRecorder()
			env.e.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, decode[transport.Support](t, rec))
		})
	}
}

func TestPlotterHandler_Ports(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/plotter/ports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/dev/ttyACM0"}, decode[[]string](t, rec))

	h := NewPlotterHandler(env.link, env.jobs, configResolver{}, func() ([]string, error) {
		return nil, errors.New("no enumerator")
	})
	c := env.e.NewContext(httptest.NewRequest(http.MethodGet, "/api/plotter/ports", nil), httptest.NewRecorder())
	apiErr, ok := h.HandlePorts(c).(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}

func TestPlotterHandler_Profiles(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/plotter/profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]interface{}](t, rec)
	defaults := body["defaults"].(map[string]interface{})
	assert.Equal(t, "A4", defaults["model"])
	profiles := body["profiles"].([]interface{})
	require.Len(t, profiles, 1)
	first := profiles[0].(map[string]interface{})
	assert.Equal(t, "slow-a3", first["name"])
	assert.Equal(t, "A3", first["model"])
}

func TestPlotterHandler_LinkControl(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/plotter/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[models.PlotterStatus](t, rec)
	assert.Equal(t, models.PlotterStateIdle, st.State)
	assert.Equal(t, transport.MsgNotConnected, st.Message)

	rec = env.do(t, http.MethodPost, "/api/plotter/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PlotterStateConnected, decode[models.PlotterStatus](t, rec).State)

	// Pause and resume outside a plot change nothing
	rec = env.do(t, http.MethodPost, "/api/plotter/pause", nil)
	assert.Equal(t, models.PlotterStateConnected, decode[models.PlotterStatus](t, rec).State)
	rec = env.do(t, http.MethodPost, "/api/plotter/resume", nil)
	assert.Equal(t, models.PlotterStateConnected, decode[models.PlotterStatus](t, rec).State)

	rec = env.do(t, http.MethodPost, "/api/plotter/cancel", nil)
	assert.Equal(t, models.PlotterStateCanceled, decode[models.PlotterStatus](t, rec).State)
	assert.Equal(t, []string{"ES"}, env.port.Lines())

	rec = env.do(t, http.MethodPost, "/api/plotter/disconnect", nil)
	st = decode[models.PlotterStatus](t, rec)
	assert.Equal(t, models.PlotterStateIdle, st.State)
	assert.Equal(t, transport.MsgDisconnected, st.Message)
	assert.True(t, env.port.Closed())
}

func TestPlotterHandler_ConnectFailureIsAStatus(t *testing.T) {
	env := newTestEnv(t)
	env.opener.OpenErr = errors.New("permission denied")

	rec := env.do(t, http.MethodPost, "/api/plotter/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	st := decode[models.PlotterStatus](t, rec)
	assert.Equal(t, models.PlotterStateError, st.State)
	assert.Equal(t, "permission denied", st.Message)
}

func TestPlotterHandler_Jobs(t *testing.T) {
	env := newTestEnv(t)
	id := env.renderInsetSquare(t)

	t.Run("requires a connection", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/plotter/jobs", map[string]interface{}{"sessionId": id})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("requires a session id", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/plotter/jobs", map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[APIError](t, rec).Code)
	})

	rec := env.do(t, http.MethodPost, "/api/plotter/connect", nil)
	require.Equal(t, models.PlotterStateConnected, decode[models.PlotterStatus](t, rec).State)

	t.Run("unknown session", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/plotter/jobs", map[string]interface{}{"sessionId": "missing"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("streams to completion", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/plotter/jobs", map[string]interface{}{
			"sessionId": id,
			"mode":      "flatten",
		})
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		started := decode[job.Job](t, rec)
		assert.Equal(t, job.StatusRunning, started.Status)
		assert.Equal(t, models.LayerModeFlatten, started.Mode)

		var finished job.Job
		require.Eventually(t, func() bool {
			rec := env.do(t, http.MethodGet, "/api/plotter/jobs/"+started.ID, nil)
			if rec.Code != http.StatusOK {
				return false
			}
			finished = decode[job.Job](t, rec)
			return finished.Status != job.StatusRunning
		}, 2*time.Second, 5*time.Millisecond)

		assert.Equal(t, job.StatusComplete, finished.Status)
		assert.Equal(t, finished.TotalPackets, finished.SentPackets)
		lines := env.port.Lines()
		require.Len(t, lines, finished.TotalPackets)
		assert.Equal(t, "EM,1,1", lines[0])
		assert.Equal(t, "EM,0,0", lines[len(lines)-1])

		rec = env.do(t, http.MethodGet, "/api/plotter/jobs/active", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/history/"+started.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		run := decode[models.PlotRun](t, rec)
		assert.Equal(t, models.PlotterStateConnected, run.State)
		assert.Equal(t, finished.TotalPackets, run.SentPackets)
	})

	t.Run("unknown job", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/plotter/jobs/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHistoryHandler(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC().Truncate(time.Second)
	for _, run := range []models.PlotRun{
		{ID: "run-1", State: models.PlotterStateConnected, SentPackets: 10, TotalPackets: 10, StartedAt: now},
		{ID: "run-2", State: models.PlotterStateCanceled, SentPackets: 3, TotalPackets: 10, StartedAt: now},
	} {
		require.NoError(t, env.history.Record(context.Background(), run))
	}

	rec := env.do(t, http.MethodGet, "/api/history?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.PlotRun](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/history", nil)
	assert.Len(t, decode[[]models.PlotRun](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/history/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[history.Summary](t, rec)
	assert.Equal(t, 2, sum.Runs)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, int64(13), sum.PacketsSent)

	rec = env.do(t, http.MethodGet, "/api/history/run-9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryHandler_Disabled(t *testing.T) {
	h := NewHistoryHandler(nil)
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	c := env.e.NewContext(req, httptest.NewRecorder())

	err := h.HandleListRuns(c)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}

func TestFromDomainError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{session.ErrSessionNotFound, http.StatusNotFound},
		{sketch.ErrNotFound, http.StatusNotFound},
		{storage.ErrNotFound, http.StatusNotFound},
		{history.ErrNotFound, http.StatusNotFound},
		{session.ErrInvalidContext, http.StatusBadRequest},
		{session.ErrRenderFailed, http.StatusUnprocessableEntity},
		{job.ErrBusy, http.StatusConflict},
		{job.ErrNotConnected, http.StatusServiceUnavailable},
		{NewConflictError("already"), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, FromDomainError(tt.err, "thing", "id").Status)
		})
	}
}
