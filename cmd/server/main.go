package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/plotter-studio/backend/internal/api"
	"github.com/plotter-studio/backend/internal/config"
	"github.com/plotter-studio/backend/internal/history"
	"github.com/plotter-studio/backend/internal/job"
	"github.com/plotter-studio/backend/internal/plotter"
	"github.com/plotter-studio/backend/internal/session"
	"github.com/plotter-studio/backend/internal/sketch"
	"github.com/plotter-studio/backend/internal/storage"
	"github.com/plotter-studio/backend/internal/transport"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "PlotterStudio.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	api.ShowErrorDetails = strings.EqualFold(cfg.Advanced.LogLevel, "debug")

	// Initialize storage
	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}

	// Plot history is optional; the server still plots without it
	var runHistory api.RunHistory
	var recorder job.Recorder
	historyStore, err := history.Open(cfg.Storage.HistoryDatabase)
	if err != nil {
		fmt.Printf("Warning: plot history disabled: %v\n", err)
	} else {
		runHistory = historyStore
		recorder = historyStore
	}

	// Machine presets
	defaults := cfg.MachineDefaults()
	if err := plotter.ValidateConfig(defaults); err != nil {
		fmt.Printf("Warning: invalid plotter defaults in config (%v), using stock settings\n", err)
		defaults = plotter.DefaultConfig()
	}
	profiles, err := plotter.LoadProfiles(cfg.Plotter.ProfilesFile)
	if err != nil {
		fmt.Printf("Warning: failed to load machine profiles: %v\n", err)
	} else if len(profiles) > 0 {
		fmt.Printf("Loaded %d machine profiles\n", len(profiles))
	}

	// Initialize session manager
	sessionMgr := session.NewManager(sketch.Builtin())

	// Serial link and background plot jobs
	link := transport.NewSession(&transport.SerialOpener{
		PortName: cfg.Plotter.PortName,
		BaudRate: cfg.Plotter.BaudRate,
	}, transport.Options{
		PacketDelay:  cfg.PacketDelay(),
		PollInterval: cfg.PausePollInterval(),
	})
	jobMgr := job.NewManager(link, sessionMgr, recorder)

	// Initialize WebSocket status hub
	hub := api.NewStatusHub(link, cfg.Advanced.WebSocketMaxMessageSize)

	// Start background session cleanup
	stopCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		maxAge := time.Duration(cfg.Processing.SessionTimeoutMinutes) * time.Minute
		for {
			select {
			case <-ticker.C:
				sessionMgr.CleanupOldSessions(maxAge)
				jobMgr.CleanupOldJobs(maxAge)
			case <-stopCleanup:
				return
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e)

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") ||
				strings.HasPrefix(path, "/api/plotter/jobs/") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
		},
		ErrorMessage: "Request timeout - render took too long",
	}))

	// Compression middleware
	if cfg.Processing.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Processing.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
			},
		}))
	}

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	// API Routes
	handlers := api.NewHandlers(&api.Dependencies{
		Store:     fileStore,
		Sessions:  sessionMgr,
		Registry:  sketch.Builtin(),
		Plotter:   link,
		Jobs:      jobMgr,
		History:   runHistory,
		Profiles:  profiles,
		Defaults:  defaults,
		Version:   Version,
		ListPorts: transport.ListPorts,
	})
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, hub)

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	portName := cfg.Plotter.PortName
	if portName == "" {
		portName = "auto-detect"
	}

	// Print startup banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Plotter Studio Server                           ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Plotter:    %-45s║\n", fmt.Sprintf("%s @ %d baud", portName, cfg.Plotter.BaudRate))
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal(err)
		}
	}()

	// Handle interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nInterrupted, shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop any running plot before the link closes
	if link.IsSending() {
		link.Cancel()
	}
	jobMgr.Shutdown()
	link.Disconnect()
	hub.Close()
	close(stopCleanup)

	if err := e.Shutdown(ctx); err != nil {
		fmt.Printf("Warning: server shutdown: %v\n", err)
	}
	if historyStore != nil {
		if err := historyStore.Close(); err != nil {
			fmt.Printf("Warning: closing history: %v\n", err)
		}
	}
}
