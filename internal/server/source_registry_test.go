package server

import (
	"testing"

	"github.com/econfetch/econfetch/internal/config"
	"github.com/econfetch/econfetch/internal/fetch"
)

func TestSourceRegistryAppliesModuleDefaults(t *testing.T) {
	cfg := &config.Config{
		Sources: []config.SourceConfig{
			{Name: "qcew", Module: "bls", URL: "https://data.bls.gov/cew/data/api/2023/1/area/US000.csv"},
			{Name: "gdp", Module: "fred", URL: "https://fred.stlouisfed.org/graph/fredgraph.csv?id=GDP", Check: "size"},
		},
	}

	registry, err := NewSourceRegistry(cfg)
	if err != nil {
		t.Fatalf("NewSourceRegistry error: %v", err)
	}
	if registry.Len() != 2 {
		t.Fatalf("expected 2 routes, got %d", registry.Len())
	}

	qcew, ok := registry.Lookup("QCEW")
	if !ok {
		t.Fatalf("lookup should ignore case")
	}
	if qcew.ModuleKey != "bls" || qcew.Request.Subfolder != "bls" || qcew.Request.Check != fetch.CheckSize {
		t.Fatalf("unexpected bls route: %+v", qcew)
	}
	if qcew.Request.Headers["Accept-Language"] == "" {
		t.Fatalf("expected bls browser headers to be applied")
	}

	gdp, _ := registry.Lookup("gdp")
	if gdp.Request.Check != fetch.CheckSize {
		t.Fatalf("source check should override module default, got %s", gdp.Request.Check)
	}

	list := registry.List()
	if len(list) != 2 || list[0].Config.Name != "qcew" {
		t.Fatalf("list should keep config order: %+v", list)
	}
}

func TestSourceRegistryRejectsDuplicates(t *testing.T) {
	cfg := &config.Config{
		Sources: []config.SourceConfig{
			{Name: "a", URL: "https://example.com/a.csv"},
			{Name: "A", URL: "https://example.com/b.csv"},
		},
	}
	if _, err := NewSourceRegistry(cfg); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestSourceRegistryUnknownModule(t *testing.T) {
	cfg := &config.Config{
		Sources: []config.SourceConfig{{Name: "x", Module: "nope", URL: "https://example.com/x"}},
	}
	if _, err := NewSourceRegistry(cfg); err == nil {
		t.Fatalf("expected unknown module error")
	}
}
