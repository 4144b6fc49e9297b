// Package dashboard serves the driver station dashboard: run status,
// routine listing, alignment tuning, metrics and live telemetry.
package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/apexftc/go-auton/pkg/align"
	"github.com/apexftc/go-auton/pkg/hub"
	"github.com/apexftc/go-auton/pkg/metrics"
)

// StatusFunc returns a JSON-encodable snapshot of the running opmode.
type StatusFunc func() any

// Options configure a Server. Every field except Addr is optional; the
// matching routes answer 404 when their backing part is missing.
type Options struct {
	Addr    string
	Hub     *hub.Hub
	Tuning  *align.Tunable
	Metrics *metrics.Metrics
	Status  StatusFunc
	Logger  zerolog.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	app    *fiber.App
	opts   Options
	logger zerolog.Logger
}

// NewServer builds the routes.
func NewServer(opts Options) *Server {
	s := &Server{opts: opts, logger: opts.Logger}

	app := fiber.New(fiber.Config{
		AppName:               "auton dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/routines", s.handleRoutines)
	api.Get("/tuning/align", s.handleGetTuning)
	api.Put("/tuning/align", s.handlePutTuning)

	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Start listens until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.opts.Addr).Msg("dashboard listening")
	return s.app.Listen(s.opts.Addr)
}

// StartAsync runs Start in a goroutine and logs its failure.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error().Err(err).Msg("dashboard stopped")
		}
	}()
}

// Shutdown stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
