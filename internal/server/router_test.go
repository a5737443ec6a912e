package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/econfetch/econfetch/internal/config"
	"github.com/econfetch/econfetch/internal/fetch"
)

const upstreamLastModified = "Wed, 21 Oct 2015 07:28:00 GMT"

type upstreamStub struct {
	*httptest.Server

	mu      sync.Mutex
	body    []byte
	status  int
	getHits int
}

func newUpstreamStub(t *testing.T, body string) *upstreamStub {
	t.Helper()
	stub := &upstreamStub{body: []byte(body), status: http.StatusOK}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		if r.Method == http.MethodGet {
			stub.getHits++
		}
		if stub.status != http.StatusOK {
			w.WriteHeader(stub.status)
			return
		}
		w.Header().Set("Last-Modified", upstreamLastModified)
		w.Header().Set("Content-Length", strconv.Itoa(len(stub.body)))
		if r.Method == http.MethodGet {
			_, _ = w.Write(stub.body)
		}
	}))
	t.Cleanup(stub.Close)
	return stub
}

func (s *upstreamStub) setStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *upstreamStub) gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getHits
}

type testApp struct {
	*fiber.App
	registry *SourceRegistry
	root     string
}

func newTestApp(t *testing.T, upstream *upstreamStub) *testApp {
	t.Helper()

	cfg := &config.Config{
		Global: config.GlobalConfig{ListenPort: 5000},
		Sources: []config.SourceConfig{
			{Name: "report", Module: "generic", URL: upstream.URL + "/data/report.csv"},
			{Name: "usrec", Module: "fred", URL: upstream.URL + "/graph/USREC.csv", Check: "modified"},
		},
	}
	registry, err := NewSourceRegistry(cfg)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	root := t.TempDir()
	fetcher, err := fetch.New(fetch.Options{
		Client:           upstream.Client(),
		CacheRoot:        root,
		Logger:           logger,
		RepairCollisions: true,
	})
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}

	app, err := NewApp(AppOptions{
		Logger:     logger,
		Registry:   registry,
		Fetcher:    fetcher,
		ListenPort: 5000,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return &testApp{App: app, registry: registry, root: root}
}

func TestServeSourceDownloadsThenServesFromCache(t *testing.T) {
	upstream := newUpstreamStub(t, "date,value\n2020-01-01,1\n")
	app := newTestApp(t, upstream)

	for i, wantDownloaded := range []string{"true", "false"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sources/report", nil))
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request %d: expected 200, got %d (%s)", i, resp.StatusCode, body)
		}
		if string(body) != "date,value\n2020-01-01,1\n" {
			t.Fatalf("request %d: unexpected body %q", i, body)
		}
		if got := resp.Header.Get("X-Econfetch-Downloaded"); got != wantDownloaded {
			t.Fatalf("request %d: expected downloaded=%s, got %s", i, wantDownloaded, got)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("expected X-Request-ID header")
		}
	}
	if upstream.gets() != 1 {
		t.Fatalf("expected one upstream GET, got %d", upstream.gets())
	}
}

func TestServeSourceLookupIsCaseInsensitive(t *testing.T) {
	upstream := newUpstreamStub(t, "x")
	app := newTestApp(t, upstream)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sources/USREC", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestServeSourceUnknownReturns404(t *testing.T) {
	upstream := newUpstreamStub(t, "x")
	app := newTestApp(t, upstream)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sources/missing", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 status, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"source_not_found"`)) {
		t.Fatalf("expected source_not_found error, got %s", string(body))
	}
}

func TestServeSourceTransferFailureReturns502(t *testing.T) {
	upstream := newUpstreamStub(t, "x")
	upstream.setStatus(http.StatusServiceUnavailable)
	app := newTestApp(t, upstream)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sources/report", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	var payload struct {
		Error  string `json:"error"`
		Detail struct {
			Code    string                 `json:"code"`
			Context map[string]interface{} `json:"context"`
		} `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload.Error != "transfer_failed" || payload.Detail.Code == "" {
		t.Fatalf("unexpected error payload: %+v", payload)
	}
}

func TestRefreshReturnsResultJSON(t *testing.T) {
	upstream := newUpstreamStub(t, "payload")
	app := newTestApp(t, upstream)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sources/usrec/refresh", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Source string       `json:"source"`
		Result fetch.Result `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode refresh payload: %v", err)
	}
	if payload.Source != "usrec" || !payload.Result.Downloaded {
		t.Fatalf("unexpected refresh payload: %+v", payload)
	}
	if payload.Result.Token != upstreamLastModified {
		t.Fatalf("expected stored token, got %q", payload.Result.Token)
	}
}

func TestNewAppValidatesOptions(t *testing.T) {
	if _, err := NewApp(AppOptions{}); err == nil {
		t.Fatalf("expected error without logger")
	}
}
