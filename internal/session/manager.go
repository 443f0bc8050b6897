package session

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plotter-studio/backend/internal/models"
	"github.com/plotter-studio/backend/internal/normalize"
	"github.com/plotter-studio/backend/internal/plotter"
	"github.com/plotter-studio/backend/internal/sketch"
)

// MaxSessions limits cached documents to bound memory use
const MaxSessions = 32

// SessionMaxAge is how long an idle session is kept before cleanup
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRenderFailed wraps failures raised by a sketch while rendering.
	ErrRenderFailed = errors.New("render failed")
	// ErrInvalidContext is returned for unusable render canvases.
	ErrInvalidContext = errors.New("invalid render context")
)

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// Manager holds rendered documents between requests.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	registry *sketch.Registry
}

// SessionState holds a render session and its access time.
type SessionState struct {
	Session      *models.RenderSession
	LastAccessed time.Time
}

// NewManager creates a session manager backed by a sketch registry.
func NewManager(registry *sketch.Registry) *Manager {
	return &Manager{
		sessions: make(map[string]*SessionState),
		registry: registry,
	}
}

// ValidateContext fills in default units and rejects unusable canvases.
func ValidateContext(ctx models.RenderContext) (models.RenderContext, error) {
	if ctx.Units == "" {
		ctx.Units = models.UnitInches
	}
	if ctx.Units != models.UnitInches && ctx.Units != models.UnitMillimeters {
		return ctx, fmt.Errorf("%w: unknown units %q", ErrInvalidContext, ctx.Units)
	}
	if !(ctx.Width > 0) || !(ctx.Height > 0) || math.IsInf(ctx.Width, 0) || math.IsInf(ctx.Height, 0) {
		return ctx, fmt.Errorf("%w: width and height must be positive", ErrInvalidContext)
	}
	return ctx, nil
}

// RenderSketch coerces params, renders the sketch and stores the normalized document.
// A panicking sketch is reported as ErrRenderFailed.
func (m *Manager) RenderSketch(slug string, input map[string]any, ctx models.RenderContext) (*models.RenderSession, error) {
	ctx, err := ValidateContext(ctx)
	if err != nil {
		return nil, err
	}

	sk, _, err := m.registry.Get(slug)
	if err != nil {
		return nil, err
	}

	params := sk.Schema().Coerce(input)
	start := time.Now()

	output, err := renderSafely(sk, params, ctx)
	if err != nil {
		fmt.Printf("[Render %s] ERROR: %v\n", slug, err)
		return nil, err
	}

	doc, err := normalize.Normalize(output, ctx)
	if err != nil {
		fmt.Printf("[Render %s] ERROR: normalize failed: %v\n", slug, err)
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	sess := &models.RenderSession{
		Source:     models.SourceSketch,
		SketchSlug: slug,
		Params:     params,
		Context:    ctx,
		Document:   doc,
		RenderMs:   time.Since(start).Milliseconds(),
	}
	m.store(sess)

	fmt.Printf("[Render %s] %s: %d layers in %dms\n", shortID(sess.ID), slug, len(doc.Layers), sess.RenderMs)
	return sess, nil
}

// ImportSVG normalizes a freeform SVG document into a session.
func (m *Manager) ImportSVG(fileID, svg string, ctx models.RenderContext) (*models.RenderSession, error) {
	ctx, err := ValidateContext(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	doc, err := normalize.Normalize(models.SVGOutput(svg), ctx)
	if err != nil {
		return nil, fmt.Errorf("importing svg: %w", err)
	}

	sess := &models.RenderSession{
		Source:   models.SourceSVG,
		FileID:   fileID,
		Context:  ctx,
		Document: doc,
		RenderMs: time.Since(start).Milliseconds(),
	}
	m.store(sess)

	fmt.Printf("[Render %s] Imported SVG %s: %d layers\n", shortID(sess.ID), shortID(fileID), len(doc.Layers))
	return sess, nil
}

func renderSafely(sk sketch.Sketch, params sketch.Params, ctx models.RenderContext) (out models.SketchOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRenderFailed, r)
		}
	}()

	out, err = sk.Render(params, ctx)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return out, nil
}

func (m *Manager) store(sess *models.RenderSession) {
	m.cleanupOldSessionsIfNeeded()

	sess.ID = uuid.New().String()
	sess.CreatedAt = time.Now()

	m.mu.Lock()
	m.sessions[sess.ID] = &SessionState{Session: sess, LastAccessed: sess.CreatedAt}
	m.mu.Unlock()
}

// cleanupOldSessionsIfNeeded evicts the least recently used sessions when at capacity
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.sessions[ids[i]].LastAccessed.Before(m.sessions[ids[j]].LastAccessed)
	})

	toFree := len(m.sessions) - MaxSessions + 1
	for _, id := range ids[:toFree] {
		delete(m.sessions, id)
		fmt.Printf("[Manager] Cleaned up old session %s to free memory\n", shortID(id))
	}
}

// CleanupOldSessions removes sessions not accessed within maxAge.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	for id, state := range m.sessions {
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			fmt.Printf("[Manager] Cleaned up aged session %s (last accessed: %s ago)\n",
				shortID(id), time.Since(state.LastAccessed).Round(time.Second))
		}
	}
}

// GetSession returns a session by ID and marks it as used.
func (m *Manager) GetSession(id string) (*models.RenderSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	state.LastAccessed = time.Now()
	return state.Session, true
}

// DeleteSession drops a session. It reports whether the session existed.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Plan builds a fresh plot plan for a session's document.
func (m *Manager) Plan(id string, mode models.LayerMode, cfg models.PlotterConfig) (models.PlotJobPlan, error) {
	if !mode.Valid() {
		return models.PlotJobPlan{}, fmt.Errorf("unknown layer mode %q", mode)
	}
	if err := plotter.ValidateConfig(cfg); err != nil {
		return models.PlotJobPlan{}, err
	}

	sess, ok := m.GetSession(id)
	if !ok {
		return models.PlotJobPlan{}, ErrSessionNotFound
	}
	return plotter.Plan(sess.Document, mode, cfg), nil
}

// Packets plans a session's document and compiles it to EBB packets.
func (m *Manager) Packets(id string, mode models.LayerMode, cfg models.PlotterConfig) ([]models.Packet, models.PlotJobPlan, error) {
	plan, err := m.Plan(id, mode, cfg)
	if err != nil {
		return nil, plan, err
	}
	return plotter.BuildPackets(plan, cfg), plan, nil
}
