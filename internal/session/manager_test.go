package session

import (
	"errors"
	"testing"
	"time"

	"github.com/plotter-studio/backend/internal/models"
	"github.com/plotter-studio/backend/internal/plotter"
	"github.com/plotter-studio/backend/internal/sketch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickySketch struct{}

func (panickySketch) Schema() sketch.Schema { return nil }

func (panickySketch) Render(sketch.Params, models.RenderContext) (models.SketchOutput, error) {
	panic("boom")
}

type failingSketch struct{}

func (failingSketch) Schema() sketch.Schema { return nil }

func (failingSketch) Render(sketch.Params, models.RenderContext) (models.SketchOutput, error) {
	return models.SketchOutput{}, errors.New("bad params")
}

func testRegistry(t *testing.T) *sketch.Registry {
	t.Helper()
	r := sketch.NewRegistry()
	require.NoError(t, r.Register(sketch.Manifest{Slug: "inset-square", Title: "Inset"}, func() sketch.Sketch { return sketch.InsetSquare{} }))
	require.NoError(t, r.Register(sketch.Manifest{Slug: "panicky", Title: "Panicky"}, func() sketch.Sketch { return panickySketch{} }))
	require.NoError(t, r.Register(sketch.Manifest{Slug: "failing", Title: "Failing"}, func() sketch.Sketch { return failingSketch{} }))
	return r
}

func TestManager_RenderSketch(t *testing.T) {
	m := NewManager(testRegistry(t))

	sess, err := m.RenderSketch("inset-square", map[string]any{"ringCount": 2.4}, models.RenderContext{Width: 8, Height: 6})
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, models.SourceSketch, sess.Source)
	assert.Equal(t, 2.0, sess.Params["ringCount"])
	assert.Equal(t, models.UnitInches, sess.Context.Units)
	require.Len(t, sess.Document.Layers, 2)
	assert.Len(t, sess.Document.Layers[0].Polylines, 2)

	got, ok := m.GetSession(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)
}

func TestManager_RenderFailures(t *testing.T) {
	m := NewManager(testRegistry(t))
	ctx := models.DefaultRenderContext()

	_, err := m.RenderSketch("panicky", nil, ctx)
	assert.ErrorIs(t, err, ErrRenderFailed)
	assert.ErrorContains(t, err, "boom")

	_, err = m.RenderSketch("failing", nil, ctx)
	assert.ErrorIs(t, err, ErrRenderFailed)

	_, err = m.RenderSketch("nope", nil, ctx)
	assert.ErrorIs(t, err, sketch.ErrNotFound)

	_, err = m.RenderSketch("inset-square", nil, models.RenderContext{Width: 0, Height: 6})
	assert.ErrorIs(t, err, ErrInvalidContext)

	_, err = m.RenderSketch("inset-square", nil, models.RenderContext{Width: 1, Height: 1, Units: "cm"})
	assert.ErrorIs(t, err, ErrInvalidContext)

	assert.Zero(t, m.Count())
}

func TestManager_ImportSVG(t *testing.T) {
	m := NewManager(testRegistry(t))
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><g id="a"><line x1="0" y1="0" x2="10" y2="0"/></g><g id="b"><rect x="0" y="0" width="2" height="1"/></g></svg>`

	sess, err := m.ImportSVG("file-1", svg, models.RenderContext{Width: 210, Height: 297, Units: models.UnitMillimeters})
	require.NoError(t, err)
	assert.Equal(t, models.SourceSVG, sess.Source)
	assert.Equal(t, "file-1", sess.FileID)
	assert.Len(t, sess.Document.Layers, 2)

	_, err = m.ImportSVG("file-2", "<svg", models.DefaultRenderContext())
	assert.Error(t, err)
}

func TestManager_PlanAndPackets(t *testing.T) {
	m := NewManager(testRegistry(t))
	sess, err := m.RenderSketch("inset-square", nil, models.DefaultRenderContext())
	require.NoError(t, err)

	cfg := plotter.DefaultConfig()
	plan, err := m.Plan(sess.ID, models.LayerModePauseBetween, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, plan.Stats.LayerCount)

	packets, plan2, err := m.Packets(sess.ID, models.LayerModePauseBetween, cfg)
	require.NoError(t, err)
	assert.Equal(t, plan, plan2)
	assert.Equal(t, "EM,1,1", packets[0].Record().Command)

	_, err = m.Plan("missing", models.LayerModeOrdered, cfg)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Plan(sess.ID, "sideways", cfg)
	assert.Error(t, err)

	cfg.Model = "Z9"
	_, err = m.Plan(sess.ID, models.LayerModeOrdered, cfg)
	assert.Error(t, err)
}

func TestManager_Cleanup(t *testing.T) {
	m := NewManager(testRegistry(t))
	sess, err := m.RenderSketch("inset-square", nil, models.DefaultRenderContext())
	require.NoError(t, err)

	// Recently used sessions survive.
	m.CleanupOldSessions(0)
	assert.Equal(t, 1, m.Count())

	m.mu.Lock()
	m.sessions[sess.ID].LastAccessed = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	m.CleanupOldSessions(SessionMaxAge)
	assert.Zero(t, m.Count())
	assert.False(t, m.DeleteSession(sess.ID))
}

func TestManager_EvictsAtCapacity(t *testing.T) {
	m := NewManager(testRegistry(t))
	ctx := models.DefaultRenderContext()

	first, err := m.RenderSketch("inset-square", nil, ctx)
	require.NoError(t, err)
	m.mu.Lock()
	m.sessions[first.ID].LastAccessed = time.Now().Add(-time.Minute)
	m.mu.Unlock()

	for i := 1; i < MaxSessions+1; i++ {
		_, err := m.RenderSketch("inset-square", nil, ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, MaxSessions, m.Count())
	_, ok := m.GetSession(first.ID)
	assert.False(t, ok)
}
