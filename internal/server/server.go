// Package server exposes résumé sessions over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/muhammadolammi/atsresume/internal/analysis"
	"github.com/muhammadolammi/atsresume/internal/events"
	"github.com/muhammadolammi/atsresume/internal/intake"
	"github.com/muhammadolammi/atsresume/internal/session"
)

const uploadBodyLimit = "64M"

// Deps are the collaborators the HTTP layer routes requests to. Objects is
// nil when object storage is not configured.
type Deps struct {
	Registry  *session.Registry
	Intake    *intake.Intake
	Objects   intake.ObjectStore
	Submitter *analysis.Submitter
	Hub       *events.Hub
	Logger    *slog.Logger
	Clock     clockwork.Clock
}

type Server struct {
	echo      *echo.Echo
	registry  *session.Registry
	intake    *intake.Intake
	objects   intake.ObjectStore
	submitter *analysis.Submitter
	hub       *events.Hub
	logger    *slog.Logger
	clock     clockwork.Clock
	validator *validator.Validate
	upgrader  websocket.Upgrader
	startTime time.Time
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			deps.Logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(uploadBodyLimit))

	srv := &Server{
		echo:      e,
		registry:  deps.Registry,
		intake:    deps.Intake,
		objects:   deps.Objects,
		submitter: deps.Submitter,
		hub:       deps.Hub,
		logger:    deps.Logger,
		clock:     deps.Clock,
		validator: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		startTime: deps.Clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(port string) error {
	s.logger.Info("Starting server", "port", port)
	return s.echo.Start(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
