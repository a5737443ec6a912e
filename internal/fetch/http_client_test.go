package fetch

import (
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPClientUsesTimeout(t *testing.T) {
	client := NewHTTPClient(45 * time.Second)
	if client.Timeout != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %s", client.Timeout)
	}
	if NewHTTPClient(0).Timeout != 30*time.Second {
		t.Fatalf("zero timeout should fall back to 30s")
	}
}

func TestApplyHeadersSkipsHopByHop(t *testing.T) {
	dst := http.Header{}
	ApplyHeaders(dst, map[string]string{
		"connection": "keep-alive",
		"keep-alive": "timeout=5",
		"user-agent": "Mozilla/5.0",
		"":           "ignored",
	})

	if _, exists := dst["Connection"]; exists {
		t.Fatalf("connection header should not be applied")
	}
	if _, exists := dst["Keep-Alive"]; exists {
		t.Fatalf("keep-alive header should not be applied")
	}
	if got := dst.Get("User-Agent"); got != "Mozilla/5.0" {
		t.Fatalf("expected user agent to be canonicalised and set, got %q", got)
	}
}
