// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/plotter-studio/backend/internal/models"
	"github.com/plotter-studio/backend/internal/plotter"
	"github.com/plotter-studio/backend/internal/sketch"
	"github.com/plotter-studio/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store    storage.Store
	Sessions SessionManager
	Registry *sketch.Registry
	Plotter  PlotterLink
	Jobs     JobRunner
	History  RunHistory // nil disables the history routes' backing store
	Profiles []plotter.Profile
	Defaults models.PlotterConfig
	Version  string

	// ListPorts enumerates serial devices; nil reports none
	ListPorts func() ([]string, error)
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Sketches  SketchHandler
	Documents DocumentHandler
	Sessions  SessionHandler
	Plotter   PlotterHandler
	History   HistoryHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	configs := configResolver{defaults: deps.Defaults, profiles: deps.Profiles}
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.Sessions, deps.Plotter),
		Sketches:  NewSketchHandler(deps.Registry, deps.Sessions),
		Documents: NewDocumentHandler(deps.Store, deps.Sessions),
		Sessions:  NewSessionHandler(deps.Sessions, configs),
		Plotter:   NewPlotterHandler(deps.Plotter, deps.Jobs, configs, deps.ListPorts),
		History:   NewHistoryHandler(deps.History),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Sketch catalog
	sketchGroup := apiGroup.Group("/sketches")
	sketchGroup.GET("", handlers.Sketches.HandleListSketches)
	sketchGroup.GET("/:slug", handlers.Sketches.HandleGetSketch)
	sketchGroup.POST("/:slug/render", handlers.Sketches.HandleRenderSketch)

	// Uploaded documents
	docGroup := apiGroup.Group("/documents")
	docGroup.POST("/svg", handlers.Documents.HandleImportSVG)
	docGroup.GET("", handlers.Documents.HandleListDocuments)
	docGroup.POST("/:id/import", handlers.Documents.HandleReimportDocument)
	docGroup.PUT("/:id", handlers.Documents.HandleRenameDocument)
	docGroup.DELETE("/:id", handlers.Documents.HandleDeleteDocument)

	// Render sessions
	sessionGroup := apiGroup.Group("/sessions")
	sessionGroup.GET("/:id", handlers.Sessions.HandleGetSession)
	sessionGroup.GET("/:id/svg", handlers.Sessions.HandleSessionSVG)
	sessionGroup.GET("/:id/png", handlers.Sessions.HandleSessionPNG)
	sessionGroup.DELETE("/:id", handlers.Sessions.HandleDeleteSession)
	sessionGroup.POST("/:id/plan", handlers.Sessions.HandlePlan)
	sessionGroup.POST("/:id/packets", handlers.Sessions.HandlePackets)
	sessionGroup.POST("/:id/packets/msgpack", handlers.Sessions.HandlePacketsMsgpack)

	// Plotter link and jobs
	plotterGroup := apiGroup.Group("/plotter")
	plotterGroup.GET("/support", handlers.Plotter.HandleSupport)
	plotterGroup.GET("/ports", handlers.Plotter.HandlePorts)
	plotterGroup.GET("/status", handlers.Plotter.HandleStatus)
	plotterGroup.GET("/profiles", handlers.Plotter.HandleProfiles)
	plotterGroup.POST("/connect", handlers.Plotter.HandleConnect)
	plotterGroup.POST("/disconnect", handlers.Plotter.HandleDisconnect)
	plotterGroup.POST("/pause", handlers.Plotter.HandlePause)
	plotterGroup.POST("/resume", handlers.Plotter.HandleResume)
	plotterGroup.POST("/cancel", handlers.Plotter.HandleCancel)
	plotterGroup.POST("/jobs", handlers.Plotter.HandleStartJob)
	plotterGroup.GET("/jobs/active", handlers.Plotter.HandleActiveJob)
	plotterGroup.GET("/jobs/:id", handlers.Plotter.HandleGetJob)

	// Plot history
	historyGroup := apiGroup.Group("/history")
	historyGroup.GET("", handlers.History.HandleListRuns)
	historyGroup.GET("/summary", handlers.History.HandleSummary)
	historyGroup.GET("/:id", handlers.History.HandleGetRun)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, hub *StatusHub) {
	e.GET("/api/ws/plotter", hub.HandleWebSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler
}
