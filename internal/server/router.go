package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/econfetch/econfetch/internal/cache"
	"github.com/econfetch/econfetch/internal/fetch"
)

// SourceFetcher describes the conditional downloader used by the HTTP layer.
// *fetch.Fetcher satisfies it; tests may inject fakes.
type SourceFetcher interface {
	FetchIfStale(ctx context.Context, req fetch.Request) (*fetch.Result, error)
	Status(ctx context.Context, req fetch.Request) (cache.Paths, *cache.Entry, string, error)
	Open(ctx context.Context, path string) (*cache.ReadResult, error)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Registry   *SourceRegistry
	Fetcher    SourceFetcher
	ListenPort int
}

const contextKeyRequestID = "_econfetch_request_id"

// NewApp builds a Fiber application with request-ID middleware and the
// /sources handlers. Diagnostics routes are attached by the routes package.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("source registry is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	handler := &sourceHandler{
		registry: opts.Registry,
		fetcher:  opts.Fetcher,
		logger:   opts.Logger,
	}
	app.Get("/sources/:name", handler.serve)
	app.Post("/sources/:name/refresh", handler.refresh)

	return app, nil
}

// requestIDMiddleware 为每个请求生成 ID，写入 Locals 与响应头。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func requestContext(c fiber.Ctx) context.Context {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
