// ABOUTME: HTTP API over the location resolver and forecast watcher
// ABOUTME: Fiber app with JSON error handling, request logging, and panic recovery

package api

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/harper/skycast/internal/forecast"
	"github.com/harper/skycast/internal/logging"
	"github.com/harper/skycast/internal/models"
)

// Locations is the resolver surface the API exposes.
type Locations interface {
	Active() (models.ActiveLocation, bool)
	SetLocation(ctx context.Context, c models.Candidate, source models.Source) error
	Search(ctx context.Context, query string) ([]models.Candidate, error)
	Saved() []models.SavedLocation
	SaveLocation(ctx context.Context, loc models.SavedLocation) error
	Default() (models.SavedLocation, bool)
	SetDefaultLocation(ctx context.Context, id int64) error
	RemoveLocation(ctx context.Context, id int64) error
	Recent() []models.SavedLocation
	RemoveFromRecent(ctx context.Context, id int64) error
}

// Weather supplies the latest forecast.
type Weather interface {
	Latest() (forecast.Report, error)
}

// Options configures a Server. Weather may be nil.
type Options struct {
	Locations Locations
	Weather   Weather
	Logger    *log.Logger
}

// Server serves the JSON API.
type Server struct {
	app       *fiber.App
	locations Locations
	weather   Weather
	validate  *validator.Validate
	logger    *log.Logger
}

// New builds the fiber app and registers routes.
func New(opts Options) *Server {
	s := &Server{
		locations: opts.Locations,
		weather:   opts.Weather,
		validate:  validator.New(),
		logger:    logging.OrDiscard(opts.Logger),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "skycast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.logRequests)

	s.routes()
	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http api listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
