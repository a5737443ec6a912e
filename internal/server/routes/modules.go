package routes

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/econfetch/econfetch/internal/server"
	"github.com/econfetch/econfetch/internal/sourcemodule"
)

// RegisterModuleRoutes 暴露 /-/modules 诊断接口，列出已注册模块及数据源绑定关系。
func RegisterModuleRoutes(app *fiber.App, registry *server.SourceRegistry) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/modules", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"modules": encodeModules(sourcemodule.List()),
			"sources": encodeSourceBindings(registry.List()),
		})
	})

	app.Get("/-/modules/:key", func(c fiber.Ctx) error {
		key := strings.ToLower(strings.TrimSpace(c.Params("key")))
		if key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "module_key_required"})
		}
		meta, ok := sourcemodule.Resolve(key)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "module_not_found"})
		}
		return c.JSON(encodeModule(meta))
	})
}

type modulePayload struct {
	Key         string   `json:"key"`
	Description string   `json:"description"`
	Subfolder   string   `json:"subfolder"`
	Check       string   `json:"check"`
	HeaderNames []string `json:"header_names,omitempty"`
}

type sourceBindingPayload struct {
	SourceName string `json:"source_name"`
	ModuleKey  string `json:"module_key"`
	Generic    bool   `json:"generic"`
}

func encodeModules(mods []sourcemodule.ModuleMetadata) []modulePayload {
	if len(mods) == 0 {
		return nil
	}
	sort.Slice(mods, func(i, j int) bool {
		return mods[i].Key < mods[j].Key
	})
	result := make([]modulePayload, 0, len(mods))
	for _, meta := range mods {
		result = append(result, encodeModule(meta))
	}
	return result
}

// encodeModule 只输出请求头名称，避免把可能带凭据的值暴露到诊断接口。
func encodeModule(meta sourcemodule.ModuleMetadata) modulePayload {
	names := make([]string, 0, len(meta.Headers))
	for name := range meta.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return modulePayload{
		Key:         meta.Key,
		Description: meta.Description,
		Subfolder:   meta.Subfolder,
		Check:       string(meta.Check),
		HeaderNames: names,
	}
}

func encodeSourceBindings(routes []server.SourceRoute) []sourceBindingPayload {
	if len(routes) == 0 {
		return nil
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Config.Name < routes[j].Config.Name
	})
	result := make([]sourceBindingPayload, 0, len(routes))
	for _, route := range routes {
		result = append(result, sourceBindingPayload{
			SourceName: route.Config.Name,
			ModuleKey:  route.ModuleKey,
			Generic:    route.ModuleKey == sourcemodule.DefaultModuleKey(),
		})
	}
	return result
}
