package fetch

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// remoteStub 模拟一个可变的远端文件，并统计 HEAD/GET 次数。
type remoteStub struct {
	*httptest.Server

	mu           sync.Mutex
	body         []byte
	lastModified string
	getStatus    int
	headStatus   int
	headHits     int
	getHits      int
	lastHeaders  http.Header
}

func newRemoteStub(t *testing.T, body string, lastModified string) *remoteStub {
	t.Helper()
	stub := &remoteStub{
		body:         []byte(body),
		lastModified: lastModified,
		getStatus:    http.StatusOK,
		headStatus:   http.StatusOK,
	}
	stub.Server = httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(stub.Close)
	return stub
}

func (s *remoteStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastHeaders = r.Header.Clone()
	status := s.getStatus
	if r.Method == http.MethodHead {
		s.headHits++
		status = s.headStatus
	} else {
		s.getHits++
	}

	if s.lastModified != "" {
		w.Header().Set("Last-Modified", s.lastModified)
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(s.body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(s.body)
	}
}

func (s *remoteStub) update(body string, lastModified string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = []byte(body)
	s.lastModified = lastModified
}

func (s *remoteStub) setGetStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getStatus = status
}

func (s *remoteStub) setHeadStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headStatus = status
}

func (s *remoteStub) hits() (head, get int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headHits, s.getHits
}

// failingHeadTransport 让所有 HEAD 请求在网络层失败，GET 照常转发。
type failingHeadTransport struct {
	base http.RoundTripper
}

func (t failingHeadTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodHead {
		return nil, errSimulatedNetwork
	}
	return t.base.RoundTrip(req)
}

type simulatedNetworkError struct{}

func (simulatedNetworkError) Error() string { return "simulated network failure" }

var errSimulatedNetwork error = simulatedNetworkError{}
