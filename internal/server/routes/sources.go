package routes

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/econfetch/econfetch/internal/logging"
	"github.com/econfetch/econfetch/internal/server"
)

// RegisterSourceRoutes 暴露 /-/sources，列出每个数据源的本地路径、缓存大小与已存令牌。
// 该接口只读本地状态，不访问远端，也不创建缓存目录。
func RegisterSourceRoutes(app *fiber.App, registry *server.SourceRegistry, fetcher server.SourceFetcher) {
	if app == nil || registry == nil || fetcher == nil {
		return
	}

	app.Get("/-/sources", func(c fiber.Ctx) error {
		ctx := c.Context()
		routes := registry.List()
		payload := make([]sourceStatusPayload, 0, len(routes))
		for _, route := range routes {
			item := sourceStatusPayload{
				Name:        route.Config.Name,
				Module:      route.ModuleKey,
				URL:         logging.RedactURL(route.Request.URL),
				Check:       string(route.Request.Check),
				Schedule:    route.Config.Schedule,
				Destination: route.Config.Destination,
			}
			paths, entry, token, err := fetcher.Status(ctx, route.Request)
			if err != nil {
				item.Error = err.Error()
			}
			item.Path = paths.Local
			item.MetaPath = paths.Meta
			item.Token = token
			if entry != nil {
				item.Cached = true
				item.SizeBytes = entry.SizeBytes
				item.ModTime = entry.ModTime
			}
			payload = append(payload, item)
		}
		return c.JSON(fiber.Map{"sources": payload})
	})
}

type sourceStatusPayload struct {
	Name        string    `json:"name"`
	Module      string    `json:"module"`
	URL         string    `json:"url"`
	Check       string    `json:"check"`
	Schedule    string    `json:"schedule,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Path        string    `json:"path"`
	MetaPath    string    `json:"meta_path"`
	Cached      bool      `json:"cached"`
	SizeBytes   int64     `json:"size_bytes"`
	ModTime     time.Time `json:"mod_time,omitempty"`
	Token       string    `json:"token,omitempty"`
	Error       string    `json:"error,omitempty"`
}
