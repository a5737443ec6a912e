package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	perrors "github.com/jmgilman/go/errors"
	"github.com/sirupsen/logrus"

	"github.com/econfetch/econfetch/internal/cache"
	"github.com/econfetch/econfetch/internal/fetch"
	"github.com/econfetch/econfetch/internal/logging"
)

type sourceHandler struct {
	registry *SourceRegistry
	fetcher  SourceFetcher
	logger   *logrus.Logger
}

// serve 先做一次条件下载，再将本地缓存文件流式返回。
func (h *sourceHandler) serve(c fiber.Ctx) error {
	route, ok := h.registry.Lookup(c.Params("name"))
	if !ok {
		return renderSourceNotFound(c, h.logger, c.Params("name"))
	}

	started := time.Now()
	ctx := requestContext(c)
	result, err := h.fetcher.FetchIfStale(ctx, route.Request)
	if err != nil {
		return h.writeFetchError(c, route, err)
	}

	cached, err := h.fetcher.Open(ctx, result.Path)
	if err != nil {
		h.logger.WithFields(h.fields(c, route)).WithError(err).Error("cache_open_failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cache_open_failed"})
	}
	defer cached.Reader.Close()

	if ext := strings.TrimPrefix(filepath.Ext(result.Path), "."); ext != "" {
		c.Type(ext)
	}
	if cached.Entry.SizeBytes > 0 {
		c.Response().Header.SetContentLength(int(cached.Entry.SizeBytes))
	}
	if !cached.Entry.ModTime.IsZero() {
		c.Set(fiber.HeaderLastModified, cached.Entry.ModTime.UTC().Format(http.TimeFormat))
	}
	c.Set("X-Econfetch-Downloaded", strconv.FormatBool(result.Downloaded))
	c.Set("X-Econfetch-Decision", string(result.Decision))
	c.Status(fiber.StatusOK)

	_, err = io.Copy(c.Response().BodyWriter(), cached.Reader)
	fields := h.fields(c, route)
	fields["downloaded"] = result.Downloaded
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		h.logger.WithFields(fields).WithError(err).Error("serve_failed")
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("read cache failed: %v", err))
	}
	h.logger.WithFields(fields).Info("source_served")
	return nil
}

// refresh 只执行条件下载并返回 JSON 结果。
func (h *sourceHandler) refresh(c fiber.Ctx) error {
	route, ok := h.registry.Lookup(c.Params("name"))
	if !ok {
		return renderSourceNotFound(c, h.logger, c.Params("name"))
	}
	result, err := h.fetcher.FetchIfStale(requestContext(c), route.Request)
	if err != nil {
		return h.writeFetchError(c, route, err)
	}
	return c.JSON(fiber.Map{
		"source": route.Config.Name,
		"result": result,
	})
}

func (h *sourceHandler) writeFetchError(c fiber.Ctx, route *SourceRoute, err error) error {
	status, code := StatusForError(err)
	h.logger.WithFields(h.fields(c, route)).WithError(err).Warn("source_fetch_failed")
	return c.Status(status).JSON(fiber.Map{
		"error":  code,
		"detail": perrors.ToJSON(err),
	})
}

func (h *sourceHandler) fields(c fiber.Ctx, route *SourceRoute) logrus.Fields {
	fields := logging.FetchFields(route.Config.Name, route.Request.URL, string(route.Request.Check))
	fields["action"] = "serve"
	fields["request_id"] = RequestID(c)
	return fields
}

// StatusForError 将下载错误映射为 HTTP 状态码与错误标识。
func StatusForError(err error) (int, string) {
	var transferErr *fetch.TransferError
	switch {
	case errors.As(err, &transferErr):
		return fiber.StatusBadGateway, "transfer_failed"
	case errors.Is(err, cache.ErrPathCollision):
		return fiber.StatusConflict, "cache_path_collision"
	case perrors.GetCode(err) == perrors.CodeInvalidInput:
		return fiber.StatusBadRequest, "invalid_request"
	case perrors.GetCode(err) == perrors.CodeUnauthorized:
		return fiber.StatusUnauthorized, "unauthorized"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

func renderSourceNotFound(c fiber.Ctx, logger *logrus.Logger, name string) error {
	logger.WithFields(logrus.Fields{
		"action":     "source_lookup",
		"source":     name,
		"request_id": RequestID(c),
	}).Warn("source not found")
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "source_not_found",
	})
}
