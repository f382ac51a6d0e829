package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"

	"wagebrowser/internal/cache"
	"wagebrowser/internal/catalog"
	"wagebrowser/internal/config"
	"wagebrowser/internal/dataset"
	apierrors "wagebrowser/internal/errors"
	"wagebrowser/internal/infrastructure"
	customMiddleware "wagebrowser/internal/middleware"
	"wagebrowser/internal/remote"
	"wagebrowser/internal/services"
	"wagebrowser/internal/site"
	handlers "wagebrowser/internal/transport/http"
	"wagebrowser/pkg/contracts/domain"
)

const (
	AppName = "OEWS Wage Browser"
	RepoURL = "https://github.com/Soorej30/wage_analysis"
)

// Build information, set at link time with -ldflags "-X wagebrowser/internal/app.Version=..."
var (
	Version   = "dev"
	BuildTime = ""
	BuildID   = ""
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.Metrics
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Remote  *remote.Client
	Browser *services.BrowserService
	Health  *services.HealthService
	Site    *site.Service
	Caches  *Caches
}

// Caches are the process-lifetime memories shared by every request
type Caches struct {
	Listings *cache.Memory[string, []domain.DirectoryEntry]
	Raw      *cache.Memory[string, []byte]
	Tables   *cache.Memory[string, dataset.Entry]
	Images   *cache.Memory[string, string]
}

func newCaches() *Caches {
	return &Caches{
		Listings: cache.NewMemory[string, []domain.DirectoryEntry](),
		Raw:      cache.NewMemory[string, []byte](),
		Tables:   cache.NewMemory[string, dataset.Entry](),
		Images:   cache.NewMemory[string, string](),
	}
}

// stats exposes the caches to the readiness report
func (c *Caches) stats() map[string]services.StatsSource {
	return map[string]services.StatsSource{
		"listings": c.Listings,
		"raw":      c.Raw,
		"tables":   c.Tables,
		"images":   c.Images,
	}
}

// NewApplication loads configuration, initializes logging and
// OpenTelemetry and wires the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("data_repository", fmt.Sprintf("%s/%s@%s", cfg.Remote.Owner, cfg.Remote.Repo, cfg.Remote.Branch)))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return New(cfg, logger, otelProviders)
}

// New wires an application from explicit dependencies. providers may be nil,
// in which case the global (no-op unless installed) meter is used.
func New(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Application, error) {
	meter := otel.Meter(infrastructure.MeterName)
	if providers != nil && providers.Meter != nil {
		meter = providers.Meter
	}
	metrics, err := infrastructure.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the remote client, the cached indexer and loader
// and the services on top of them
func (a *Application) initializeServices() error {
	caches := newCaches()

	client := remote.NewClient(a.Config.Remote, a.Logger, remote.WithMetrics(a.Metrics))

	indexer := catalog.NewIndexer(client,
		cache.Observe[string, []domain.DirectoryEntry](caches.Listings, "listings", a.Metrics),
		a.Logger)
	loader := dataset.NewLoader(client,
		cache.Observe[string, []byte](caches.Raw, "raw", a.Metrics),
		cache.Observe[string, dataset.Entry](caches.Tables, "tables", a.Metrics),
		a.Logger,
		dataset.WithMetrics(a.Metrics))

	browser := services.NewBrowserService(indexer, loader, a.Config.Remote.BasePath, client.Source(), a.Logger)

	content, err := site.LoadContent()
	if err != nil {
		return fmt.Errorf("failed to load site content: %w", err)
	}
	resolver := site.NewImageResolver(client, a.Config.Site.PlaceholderImage, a.Config.Site.CheckTimeout,
		cache.Observe[string, string](caches.Images, "images", a.Metrics),
		a.Logger)

	a.Services = &ServiceContainer{
		Remote:  client,
		Browser: browser,
		Health:  services.NewHealthService(Version, RepoURL, BuildTime, BuildID, browser, caches.stats(), a.Logger),
		Site:    site.NewService(content, resolver, a.Logger),
		Caches:  caches,
	}
	return nil
}

// setupRouter configures the chi router and its middleware chain
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Level == "debug")

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	// RequestID → RealIP first, for every route
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// Scrapes bypass the API middleware
	var promHandler http.Handler
	if a.OTelProviders != nil {
		promHandler = a.OTelProviders.PrometheusHTTP
	}
	r.Method(http.MethodGet, "/metrics", handlers.NewMetricsHandler(promHandler))

	r.Group(func(r chi.Router) {
		tracer := otel.Tracer(infrastructure.TracerName)
		if a.OTelProviders != nil && a.OTelProviders.Tracer != nil {
			tracer = a.OTelProviders.Tracer
		}
		r.Use(customMiddleware.NewOTelMiddleware(tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(errorHandler.Recoverer)
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
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

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.StripSlashes)
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		r.Use(customMiddleware.Compress(5))

		healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		r.Mount("/datasets", handlers.NewDatasetHandler(a.Services.Browser, a.Logger, errorHandler).Routes())
		r.Mount("/site", handlers.NewSiteHandler(a.Services.Site, a.Logger, errorHandler).Routes())
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the HTTP server and warms the year index in the background.
// cancel is called if the server fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	go a.warmIndex(ctx)

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// warmIndex builds the year index once at startup so the first visitor does
// not pay for the listings. Failures are not cached; the next request retries.
func (a *Application) warmIndex(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, a.Config.Server.RequestTimeout)
	defer cancel()

	view, err := a.Services.Browser.Index(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "Startup index warm-up failed", slog.String("error", err.Error()))
		return
	}
	a.Logger.InfoContext(ctx, "Year index warmed",
		slog.Int("years", len(view.Years)),
		slog.Int("files", view.FileCount),
		slog.Int("warnings", len(view.Warnings)))
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
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
		a.Logger.InfoContext(ctx, "Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.ErrorContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(ctx)
}
