package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *logger.Logger
}

func NewAPIServer(listenAddress, appName string, log *logger.Logger) *APIServer {
	s := &APIServer{listenAddress: listenAddress, log: log}
	s.app = fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             4 * 1024 * 1024,
		ErrorHandler:          s.handleError,
	})
	return s
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

// handleError renders errors that escape a handler, including fiber's own 404/405
func (s *APIServer) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Code, fe.Message, "HTTP_ERROR")
	}
	s.log.Error("unhandled request error", "method", c.Method(), "path", c.Path(), "error", err)
	return response.FromError(c, err)
}

func (s *APIServer) Run() error {
	s.log.Info("Starting API Server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx expires
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down API Server")
	return s.app.ShutdownWithContext(ctx)
}
