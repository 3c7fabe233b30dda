// Package server exposes the search service over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
	"github.com/Aman-CERP/solrscout/internal/search"
	"github.com/Aman-CERP/solrscout/pkg/scout"
	"github.com/Aman-CERP/solrscout/pkg/version"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

const localRequestID = "request_id"

// Searcher is the part of search.Service the API needs.
type Searcher interface {
	Models() []string
	Search(ctx context.Context, req search.Request) (*search.Result, error)
	Facets(ctx context.Context, req search.Request) (scout.Facets, error)
	Keys(ctx context.Context, req search.Request) ([]string, error)
	Stats() search.Stats
	Ping(ctx context.Context) error
}

// Verify interface implementation at compile time
var _ Searcher = (*search.Service)(nil)

// Server is the HTTP API.
type Server struct {
	app       *fiber.App
	svc       Searcher
	logger    *slog.Logger
	withPprof bool
}

// Option configures a Server.
type Option func(*Server)

// WithPprof mounts the runtime profiler under /debug/pprof.
func WithPprof() Option {
	return func(s *Server) {
		s.withPprof = true
	}
}

// New creates the server and registers its routes.
func New(svc Searcher, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "solrscout " + version.Version,
		DisableStartupMessage: true,
		// Query strings outlive the request in telemetry and caches.
		Immutable:    true,
		ErrorHandler: s.handleError,
	})

	s.app.Use(s.requestID, s.accessLog, recover.New())
	if s.withPprof {
		s.app.Use(pprof.New())
	}
	s.app.Get("/healthz", s.health)
	s.app.Get("/stats", s.stats)
	s.app.Get("/models", s.models)
	s.app.Get("/search/:model", s.search)
	s.app.Get("/facets/:model", s.facets)
	s.app.Get("/keys/:model", s.keys)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server_listening", slog.String("addr", addr))
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("server_shutting_down")
		if err := s.app.ShutdownWithTimeout(ShutdownTimeout); err != nil {
			return err
		}
		return <-errCh
	}
}

func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get(HeaderRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(localRequestID, id)
	c.Set(HeaderRequestID, id)
	return c.Next()
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		if herr := s.app.ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	s.logger.Info("http_request",
		slog.String("request_id", requestIDFrom(c)),
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.String("model", c.Params("model")),
		slog.Int("status", c.Response().StatusCode()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func requestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request_failed",
			slog.String("request_id", requestIDFrom(c)),
			slog.String("path", c.Path()),
			slog.Any("error", scouterrors.FormatForLog(err)))
	}
	return c.Status(status).JSON(scouterrors.ToJSON(err))
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	code := scouterrors.GetCode(err)
	switch code {
	case scouterrors.ErrCodeUnknownModel, scouterrors.ErrCodeRecordNotFound:
		return fiber.StatusNotFound
	case scouterrors.ErrCodeNetworkTimeout:
		return fiber.StatusGatewayTimeout
	case scouterrors.ErrCodeNetworkUnavailable, scouterrors.ErrCodeEngineUnavailable:
		return fiber.StatusServiceUnavailable
	case scouterrors.ErrCodeEngineStatus, scouterrors.ErrCodeMalformedResponse:
		return fiber.StatusBadGateway
	}
	if scouterrors.GetCategory(err) == scouterrors.CategoryValidation {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func (s *Server) health(c *fiber.Ctx) error {
	if err := s.svc.Ping(c.UserContext()); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"status": "unavailable",
			"error":  scouterrors.ToJSON(err),
		})
	}
	return c.JSON(fiber.Map{"status": "ok", "version": version.Version})
}

func (s *Server) stats(c *fiber.Ctx) error {
	return c.JSON(s.svc.Stats())
}

func (s *Server) models(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"models": s.svc.Models()})
}

func (s *Server) search(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return err
	}
	res, err := s.svc.Search(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) facets(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return err
	}
	f, err := s.svc.Facets(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"facets": f})
}

func (s *Server) keys(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return err
	}
	keys, err := s.svc.Keys(c.UserContext(), req)
	if err != nil {
		return err
	}
	if keys == nil {
		keys = []string{}
	}
	return c.JSON(fiber.Map{"keys": keys})
}
