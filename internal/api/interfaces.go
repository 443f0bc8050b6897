// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/plotter-studio/backend/internal/history"
	"github.com/plotter-studio/backend/internal/job"
	"github.com/plotter-studio/backend/internal/models"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SketchHandler serves the sketch catalog and renders sketches into sessions
type SketchHandler interface {
	HandleListSketches(c echo.Context) error
	HandleGetSketch(c echo.Context) error
	HandleRenderSketch(c echo.Context) error
}

// DocumentHandler handles uploaded SVG documents
type DocumentHandler interface {
	HandleImportSVG(c echo.Context) error
	HandleListDocuments(c echo.Context) error
	HandleReimportDocument(c echo.Context) error
	HandleRenameDocument(c echo.Context) error
	HandleDeleteDocument(c echo.Context) error
}

// SessionHandler handles render session previews, plans and packet exports
type SessionHandler interface {
	HandleGetSession(c echo.Context) error
	HandleSessionSVG(c echo.Context) error
	HandleSessionPNG(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandlePlan(c echo.Context) error
	HandlePackets(c echo.Context) error
	HandlePacketsMsgpack(c echo.Context) error
}

// PlotterHandler handles the serial link and plot jobs
type PlotterHandler interface {
	HandleSupport(c echo.Context) error
	HandlePorts(c echo.Context) error
	HandleStatus(c echo.Context) error
	HandleProfiles(c echo.Context) error
	HandleConnect(c echo.Context) error
	HandleDisconnect(c echo.Context) error
	HandlePause(c echo.Context) error
	HandleResume(c echo.Context) error
	HandleCancel(c echo.Context) error
	HandleStartJob(c echo.Context) error
	HandleGetJob(c echo.Context) error
	HandleActiveJob(c echo.Context) error
}

// HistoryHandler handles recorded plot runs
type HistoryHandler interface {
	HandleListRuns(c echo.Context) error
	HandleGetRun(c echo.Context) error
	HandleSummary(c echo.Context) error
}

// SessionManager defines the interface for render session management
// This allows mocking in tests
type SessionManager interface {
	RenderSketch(slug string, input map[string]any, ctx models.RenderContext) (*models.RenderSession, error)
	ImportSVG(fileID, svg string, ctx models.RenderContext) (*models.RenderSession, error)
	GetSession(id string) (*models.RenderSession, bool)
	DeleteSession(id string) bool
	Count() int
	Plan(id string, mode models.LayerMode, cfg models.PlotterConfig) (models.PlotJobPlan, error)
	Packets(id string, mode models.LayerMode, cfg models.PlotterConfig) ([]models.Packet, models.PlotJobPlan, error)
}

// PlotterLink is the transport session as seen by handlers and the status hub
type PlotterLink interface {
	Supported() bool
	Status() models.PlotterStatus
	Connect(ctx context.Context) models.PlotterStatus
	Disconnect() models.PlotterStatus
	Pause() models.PlotterStatus
	Resume() models.PlotterStatus
	Cancel() models.PlotterStatus
	Subscribe(fn func(models.PlotterStatus)) func()
}

// JobRunner starts and tracks background plot jobs
type JobRunner interface {
	StartJob(sessionID string, mode models.LayerMode, cfg models.PlotterConfig) (job.Job, error)
	GetJob(id string) (job.Job, bool)
	ActiveJob() (job.Job, bool)
}

// RunHistory reads recorded plot runs
type RunHistory interface {
	List(ctx context.Context, limit int) ([]models.PlotRun, error)
	Get(ctx context.Context, id string) (models.PlotRun, error)
	Summarize(ctx context.Context) (history.Summary, error)
}
