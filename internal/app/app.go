package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/Pittuba/dash-mercado/internal/category"
	"github.com/Pittuba/dash-mercado/internal/config"
	"github.com/Pittuba/dash-mercado/internal/dataset"
	apierrors "github.com/Pittuba/dash-mercado/internal/errors"
	"github.com/Pittuba/dash-mercado/internal/infrastructure"
	customMiddleware "github.com/Pittuba/dash-mercado/internal/middleware"
	"github.com/Pittuba/dash-mercado/internal/services"
	handlers "github.com/Pittuba/dash-mercado/internal/transport/http"
	"github.com/Pittuba/dash-mercado/internal/updater"
	"github.com/Pittuba/dash-mercado/internal/validation"
	"github.com/Pittuba/dash-mercado/internal/workbook"
	ws "github.com/Pittuba/dash-mercado/internal/websocket"
)

const (
	VERSION  = infrastructure.ServiceVersion
	REPO_URL = "https://github.com/Pittuba/dash-mercado"
	AppName  = "Dash Mercado"

	// StartupTrigger names the initial workbook load
	StartupTrigger = "startup"

	runtimeInterval = 15 * time.Second
)

var (
	// BuildTime is overridden with -ldflags at release
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID tells apart builds of the same version
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(VERSION))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Options override the parts of the application that tests and tools swap
// out. The zero value is production.
type Options struct {
	// BaseDir anchors relative paths. Empty means the working directory.
	BaseDir string
	// OTel replaces the default OpenTelemetry setup
	OTel *infrastructure.OTelConfig
	// Loader replaces the Excel workbook loader
	Loader dataset.WorkbookLoader
}

// Application owns every long-lived component of the server
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Router           *chi.Mux
	Server           *http.Server
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	BusinessMetrics  *infrastructure.BusinessMetrics
	Store            *dataset.Store
	IndicatorService *services.IndicatorService
	HealthService    *services.HealthService
	WebSocketHub     *ws.Hub
	Watcher          *updater.Watcher
	Runtime          *infrastructure.RuntimeCollector

	stopBackground context.CancelFunc
}

// LoadCatalog reads the category file when one is configured and falls back
// to the built-in tables otherwise.
func LoadCatalog(paths *config.Paths) (*category.Catalog, error) {
	if paths.CategoriesFile == "" {
		return category.Default()
	}
	return category.LoadFile(paths.CategoriesFile)
}

// LoadStore builds a dataset store for paths and performs the initial load.
// It is shared by the server and the one-shot commands.
func LoadStore(ctx context.Context, cfg *config.Config, paths *config.Paths, loader dataset.WorkbookLoader, logger *slog.Logger, listeners ...dataset.Listener) (*dataset.Store, error) {
	catalog, err := LoadCatalog(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	for _, c := range catalog.Conflicts() {
		logger.Warn("instrument listed under more than one category",
			slog.String("table", c.Table),
			slog.String("instrument", c.Instrument),
			slog.String("previous", c.Previous),
			slog.String("current", c.Current))
	}

	if loader == nil {
		loader = workbook.NewLoader(logger)
	}
	store := dataset.NewStore(loader, paths.WorkbookPath, catalog, logger)
	for _, l := range listeners {
		store.OnReload(l)
	}

	if cfg.Data.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Data.LoadTimeout)
		defer cancel()
	}
	if _, err := store.Reload(ctx, StartupTrigger); err != nil {
		return nil, fmt.Errorf("failed to load workbook %s: %w", paths.WorkbookPath, err)
	}
	return store, nil
}

// NewApplication wires every component. The workbook is loaded before it
// returns; a workbook that cannot be read is a startup error.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.String("build_id", BuildID))

	paths, err := config.ResolvePaths(cfg, opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelCfg := opts.OTel
	if otelCfg == nil {
		otelCfg = infrastructure.OTelConfigFrom(cfg.Telemetry)
	}
	otelProviders, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	businessMetrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	recordLoad := func(e dataset.ReloadEvent) {
		var (
			observations int
			version      int64
		)
		if e.Context != nil {
			observations = e.Context.Observations()
			version = e.Context.Version
		}
		infrastructure.RecordDatasetLoad(context.Background(), businessMetrics, e.Trigger, e.Duration, observations, version, e.Err)
	}

	store, err := LoadStore(ctx, cfg, paths, opts.Loader, logger, recordLoad)
	if err != nil {
		return nil, err
	}

	wsMetrics, err := ws.NewOTelMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	hub := ws.NewHub(ws.Options{
		PingPeriod: cfg.WebSocket.PingPeriod,
		PongWait:   cfg.WebSocket.PongWait,
	}, wsMetrics, logger)
	if cfg.WebSocket.Enabled {
		// The startup load has no audience; later reloads are pushed
		store.OnReload(ws.ReloadNotifier(hub, store.Path()))
	}

	indicatorService := services.NewIndicatorService(store, logger)
	indicatorService.SetMetrics(businessMetrics)

	runtimeCollector, err := infrastructure.NewRuntimeCollector(otelProviders.Meter, runtimeInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime collector: %w", err)
	}

	app := &Application{
		Config:           cfg,
		Paths:            paths,
		Logger:           logger,
		OTelProviders:    otelProviders,
		BusinessMetrics:  businessMetrics,
		Store:            store,
		IndicatorService: indicatorService,
		HealthService:    services.NewHealthService(services.BuildInfo{
			Version:   VERSION,
			RepoURL:   REPO_URL,
			BuildTime: BuildTime,
			BuildID:   BuildID,
		}, store, hub, logger),
		WebSocketHub:     hub,
		Watcher:          updater.NewWatcher(store, paths.WorkbookModTime, cfg.Data.ReloadInterval, cfg.Data.LoadTimeout, logger),
		Runtime:          runtimeCollector,
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// setupRouter configures the HTTP router. The WebSocket route sits outside
// the main group: timeouts and response wrappers break the upgrade.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	if a.Config.WebSocket.Enabled {
		wsHandler := ws.NewHandler(a.WebSocketHub, ws.HandlerConfig{
			AllowedOrigins:  a.Config.Security.AllowedOrigins,
			AllowAnyOrigin:  a.Config.Logging.Development,
			ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
			WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		}, a.Logger)
		r.With(customMiddleware.WebSocketTrace(a.OTelProviders.Tracer)).Handle("/ws", wsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.BusinessMetrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger, a.BusinessMetrics))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r, errorHandler)
	})

	// Prometheus scrapes outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes mounts the JSON API under /api
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	r.Route("/api", func(r chi.Router) {
		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Compress(5))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

			handlers.NewHealthHandler(a.HealthService, a.Logger).RegisterRoutes(r)

			var runtime handlers.RuntimeSnapshotter
			if a.Runtime != nil {
				runtime = a.Runtime
			}
			r.Mount("/metrics", handlers.NewMetricsHandler(runtime).Routes())

			validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

			indicatorHandler := handlers.NewIndicatorHandler(a.IndicatorService, validation, a.Logger, errorHandler)
			indicatorHandler.SetReloadMiddleware(
				customMiddleware.TokenAuth(a.Logger, a.Config.Security.ReloadToken),
				customMiddleware.AuditLog(a.Logger),
			)
			indicatorHandler.RegisterRoutes(r)

			r.With(customMiddleware.ContentTypeValidator("application/json"), validation.ValidateRequest).
				Post("/logs", handlers.NewClientLogHandler(validation, a.Logger, errorHandler).Handle)
		})
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	origins := append([]string(nil), a.Config.Security.AllowedOrigins...)
	if a.Config.Logging.Development {
		origins = append(origins, "http://localhost:3000", "http://127.0.0.1:3000")
		a.Logger.Info("CORS configured for development mode", slog.Any("allowed_origins", origins))
	}
	return customMiddleware.CORSConfig{
		AllowedOrigins: origins,
		ExposedHeaders: []string{customMiddleware.RequestIDHeader, "Content-Disposition"},
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the background services and the HTTP server. A server error
// cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	bgCtx, stop := context.WithCancel(ctx)
	a.stopBackground = stop

	if a.Config.WebSocket.Enabled {
		a.WebSocketHub.Start()
	}
	if err := a.Watcher.Start(bgCtx); err != nil {
		a.Logger.WarnContext(ctx, "Workbook watcher not started", slog.String("error", err.Error()))
	}
	go a.Runtime.Start(bgCtx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop drains the server, then the watcher, the hub and telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.Watcher.Stop()
	a.Runtime.Stop()
	a.WebSocketHub.Stop()
	if a.stopBackground != nil {
		a.stopBackground()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted or the server fails
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck reports missing inputs and unwritable output
// directories. None of them stops the server.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	if err := a.Paths.ValidateRequiredFiles(); err != nil {
		warnings = append(warnings, err.Error())
	}

	validator := validation.NewFileValidator(a.Logger)
	directories := map[string]string{
		"Reports": a.Paths.ReportsDir,
		"Logs":    a.Paths.LogsDir,
	}
	for name, dir := range directories {
		if dir == "" {
			continue
		}
		if err := validator.ValidateOutputDirectory(dir); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
