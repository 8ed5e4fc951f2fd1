// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/chemequip/backend/internal/auth"
	"github.com/chemequip/backend/internal/events"
	"github.com/chemequip/backend/internal/report"
	"github.com/chemequip/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store     storage.Store
	Publisher events.Publisher
	Stream    EventStreamHandler // nil disables the websocket route
	Renderer  *report.Renderer
	Logger    *slog.Logger
	Version   string

	// RequireAuth extends Basic auth to upload, latest, history and the
	// event stream. Detail and PDF routes always require it.
	RequireAuth bool
	Realm       string
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Datasets DatasetHandler
	Stream   EventStreamHandler

	requireUser  echo.MiddlewareFunc
	optionalUser echo.MiddlewareFunc
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	authn := auth.NewAuthenticator(deps.Store)
	return &Handlers{
		Health:       NewHealthHandler(deps.Store, deps.Version),
		Datasets:     NewDatasetHandler(deps.Store, deps.Publisher, deps.Renderer, deps.Logger),
		Stream:       deps.Stream,
		requireUser:  NewBasicAuth(authn, deps.Realm, true),
		optionalUser: NewBasicAuth(authn, deps.Realm, deps.RequireAuth),
	}
}

// APIPrefix is the path every API route lives under.
const APIPrefix = "/api"

// RegisterRoutes registers all API routes with the Echo instance.
// Auth is attached per route so unknown paths still answer 404.
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	g := e.Group(APIPrefix)

	g.GET("/health", handlers.Health.HandleHealth)

	g.POST("/upload", handlers.Datasets.HandleUpload, handlers.optionalUser)
	g.GET("/datasets/latest", handlers.Datasets.HandleLatest, handlers.optionalUser)
	g.GET("/datasets/history", handlers.Datasets.HandleHistory, handlers.optionalUser)
	g.GET("/datasets/:id", handlers.Datasets.HandleGetDataset, handlers.requireUser)
	g.GET("/datasets/:id/pdf", handlers.Datasets.HandleDatasetPDF, handlers.requireUser)

	if handlers.Stream != nil {
		g.GET("/ws/datasets", handlers.Stream.HandleWebSocket, handlers.optionalUser)
	}
}

// MiddlewareConfig tunes SetupMiddleware.
type MiddlewareConfig struct {
	Logger            *slog.Logger
	BodyLimit         string
	AllowOrigins      []string
	EnableCompression bool
	CompressionLevel  int
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	// Accept the trailing-slash paths older clients call.
	e.Pre(middleware.RemoveTrailingSlash())

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == APIPrefix+"/health"
		},
		HandleError: true,
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			switch {
			case v.Status >= http.StatusInternalServerError:
				level = slog.LevelError
			case v.Status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered", "uri", c.Request().RequestURI, "error", err, "stack", string(stack))
			return err
		},
	}))

	if cfg.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, APIPrefix+"/ws/")
			},
		}))
	}

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	}))
}
