package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"subextract/internal/config"
	"subextract/internal/logging"
	"subextract/internal/messaging"
	"subextract/internal/queue"
	"subextract/internal/services"
	"subextract/internal/workflow"
)

const shutdownTimeout = 5 * time.Second

// Jobs is the coordinator surface the gateway needs.
type Jobs interface {
	Submit(ctx context.Context, sub workflow.Submission) (*queue.Job, error)
	Status(ctx context.Context, ownerID, prefix string) ([]workflow.JobStatus, error)
	Cancel(ctx context.Context, ownerID, prefix string) (workflow.CancelReport, error)
}

// Events is the messaging surface the gateway exposes to clients.
type Events interface {
	StoreUpload(r io.Reader, filename string) (string, error)
	Events(target string, since uint64) []messaging.Event
	Document(target string, seq uint64) (messaging.Event, bool)
	Subscribe(target string) (<-chan messaging.Event, func())
	Reply(ctx context.Context, target, text string) error
}

// Commands answers chat commands.
type Commands interface {
	Handle(ctx context.Context, ownerID, text string) string
}

// Server is the fiber application behind the chat gateway.
type Server struct {
	app      *fiber.App
	listen   string
	token    string
	jobs     Jobs
	events   Events
	commands Commands
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer wires routes and middleware.
func NewServer(cfg *config.Config, jobs Jobs, events Events, commands Commands, logger *slog.Logger) *Server {
	logger = logging.NewComponentLogger(logger, "api-server")
	s := &Server{
		listen:   strings.TrimSpace(cfg.Gateway.Listen),
		token:    strings.TrimSpace(cfg.Gateway.APIToken),
		jobs:     jobs,
		events:   events,
		commands: commands,
		logger:   logger,
	}

	bodyLimit := (cfg.Gateway.MaxUploadMB + 1) * 1024 * 1024
	s.app = fiber.New(fiber.Config{
		AppName:               "subextract",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
		ReadTimeout:           5 * time.Minute,
		IdleTimeout:           time.Minute,
	})

	s.app.Use(recover.New())
	s.app.Use(requestID())
	s.app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${locals:requestid} ${status} ${method} ${path} ${latency}\n",
		Output: logging.NewLineWriter(logger, slog.LevelDebug),
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Owner-ID, X-Target-ID",
	}))

	s.app.Get("/health", s.handleHealth)

	api := s.app.Group("/api", bearerAuth(s.token))
	api.Post("/jobs", s.handleSubmit)
	api.Get("/jobs", s.handleListJobs)
	api.Post("/jobs/cancel", s.handleCancel)
	api.Post("/commands", s.handleCommand)
	api.Get("/targets/:target/events", s.handleEvents)
	api.Get("/targets/:target/documents/:seq", s.handleDocument)

	ws := s.app.Group("/ws", bearerAuth(s.token), requireUpgrade)
	ws.Get("/targets/:target", websocket.New(s.handleStream))

	return s
}

// App exposes the fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on gateway.listen and serves until ctx ends or Stop.
func (s *Server) Start(ctx context.Context) error {
	if s.listen == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.app.Listener(listener); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("gateway server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		_ = s.app.ShutdownWithTimeout(shutdownTimeout)
	}()

	s.logger.Info("gateway listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
	)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop() {
	s.mu.Lock()
	started := s.listener != nil
	s.listener = nil
	s.mu.Unlock()
	if !started {
		return
	}
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		s.logger.Warn("gateway shutdown failed", logging.Error(err))
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
		message = fiberErr.Message
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
		message = err.Error()
	default:
		logging.WithContext(c.UserContext(), s.logger).Error("request failed",
			logging.String("path", c.Path()),
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_request_failed"),
		)
	}
	return c.Status(status).JSON(ErrorResponse{Error: message})
}
