package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/plotter-studio/backend/internal/history"
	"github.com/plotter-studio/backend/internal/job"
	"github.com/plotter-studio/backend/internal/models"
	"github.com/plotter-studio/backend/internal/plotter"
	"github.com/plotter-studio/backend/internal/session"
	"github.com/plotter-studio/backend/internal/sketch"
	"github.com/plotter-studio/backend/internal/testutil"
	"github.com/plotter-studio/backend/internal/transport"
	"github.com/stretchr/testify/require"
)

const lineSVG = `<svg xmlns="http://www.w3.org/2000/svg"><path d="M0 0 L1 1"/></svg>`

// stubHistory is an in-memory RunHistory.
type stubHistory struct {
	mu   sync.Mutex
	runs []models.PlotRun
}

func (h *stubHistory) Record(_ context.Context, run models.PlotRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.runs {
		if h.runs[i].ID == run.ID {
			h.runs[i] = run
			return nil
		}
	}
	h.runs = append(h.runs, run)
	return nil
}

func (h *stubHistory) List(_ context.Context, limit int) ([]models.PlotRun, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	runs := append([]models.PlotRun(nil), h.runs...)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (h *stubHistory) Get(_ context.Context, id string) (models.PlotRun, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, run := range h.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return models.PlotRun{}, history.ErrNotFound
}

func (h *stubHistory) Summarize(context.Context) (history.Summary, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sum := history.Summary{Runs: len(h.runs)}
	for _, run := range h.runs {
		if run.State == models.PlotterStateConnected {
			sum.Completed++
		}
		sum.PacketsSent += int64(run.SentPackets)
	}
	return sum, nil
}

type testEnv struct {
	e        *echo.Echo
	store    *testutil.MockStorage
	sessions *session.Manager
	link     *transport.Session
	port     *testutil.FakePort
	opener   *testutil.FakeOpener
	jobs     *job.Manager
	history  *stubHistory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    testutil.NewMockStorage(),
		sessions: session.NewManager(sketch.Builtin()),
		port:     testutil.NewFakePort(),
		history:  &stubHistory{},
	}
	env.opener = &testutil.FakeOpener{Port: env.port}
	env.link = transport.NewSession(env.opener, transport.Options{PacketDelay: time.Microsecond, PollInterval: time.Millisecond})
	env.jobs = job.NewManager(env.link, env.sessions, env.history)
	t.Cleanup(env.jobs.Shutdown)

	handlers := NewHandlers(&Dependencies{
		Store:    env.store,
		Sessions: env.sessions,
		Registry: sketch.Builtin(),
		Plotter:  env.link,
		Jobs:     env.jobs,
		History:  env.history,
		Profiles: []plotter.Profile{
			{Name: "slow-a3", PlotterConfig: models.PlotterConfig{Model: models.ModelA3, SpeedPenDown: 10, SpeedPenUp: 50, PenUpDelayMs: 140, PenDownDelayMs: 170, RepeatCount: 1}},
		},
		Defaults: plotter.DefaultConfig(),
		Version:  "test",
		ListPorts: func() ([]string, error) {
			return []string{"/dev/ttyACM0"}, nil
		},
	})

	env.e = echo.New()
	SetupMiddleware(env.e)
	RegisterRoutes(env.e, handlers)
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// renderInsetSquare creates a session from the stock inset-square sketch.
func (env *testEnv) renderInsetSquare(t *testing.T) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/sketches/inset-square/render", map[string]interface{}{
		"params":  map[string]interface{}{"ringCount": 2},
		"context": models.RenderContext{Width: 4, Height: 3, Units: models.UnitInches, Seed: 1},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.RenderSession](t, rec).ID
}
