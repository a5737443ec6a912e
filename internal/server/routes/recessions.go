package routes

import (
	"github.com/gofiber/fiber/v3"
	perrors "github.com/jmgilman/go/errors"

	"github.com/econfetch/econfetch/internal/recession"
	"github.com/econfetch/econfetch/internal/server"
	"github.com/econfetch/econfetch/internal/sourcemodule/fred"
)

// RegisterRecessionRoutes 暴露 /fred/:series/recessions，返回 0/1 指示序列对应的区间。
func RegisterRecessionRoutes(app *fiber.App, client *fred.Client) {
	if app == nil || client == nil {
		return
	}

	app.Get("/fred/:series/recessions", func(c fiber.Ctx) error {
		series := c.Params("series")
		intervals, err := recession.FromFRED(c.Context(), client, series)
		if err != nil {
			status, code := server.StatusForError(err)
			return c.Status(status).JSON(fiber.Map{
				"error":  code,
				"detail": perrors.ToJSON(err),
			})
		}
		if intervals == nil {
			intervals = []recession.Interval{}
		}
		return c.JSON(fiber.Map{
			"series":    series,
			"intervals": intervals,
		})
	})
}
