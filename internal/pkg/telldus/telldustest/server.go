// Package telldustest provides a fake Telldus local API for tests.
package telldustest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

// Request is a call received by the fake hub.
type Request struct {
	Path          string
	Query         url.Values
	Authorization string
}

// Server answers devices/list, sensors/list and device/<method> calls with
// configurable bodies. A path configured to fail answers with a 500.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	devices  string
	sensors  string
	command  string
	failing  map[string]bool
	requests []Request
}

func NewServer() *Server {
	s := &Server{
		devices: `{"device":[]}`,
		sensors: `{"sensor":[]}`,
		command: `{"status":"success"}`,
		failing: map[string]bool{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/")

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Path:          path,
		Query:         r.URL.Query(),
		Authorization: r.Header.Get("Authorization"),
	})
	failing := s.failing[path]
	var body string
	switch {
	case path == "devices/list":
		body = s.devices
	case path == "sensors/list":
		body = s.sensors
	case strings.HasPrefix(path, "device/"):
		body = s.command
	}
	s.mu.Unlock()

	if failing || body == "" {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// SetDevices sets the raw body returned by devices/list.
func (s *Server) SetDevices(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = body
}

// SetSensors sets the raw body returned by sensors/list.
func (s *Server) SetSensors(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensors = body
}

// SetCommandResponse sets the raw body returned by every device/<method>.
func (s *Server) SetCommandResponse(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.command = body
}

// Fail makes path ("devices/list", "sensors/list", "device/dim", ...)
// answer with a 500 until called again with false.
func (s *Server) Fail(path string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[path] = fail
}

// Requests returns the calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent call to path.
func (s *Server) LastRequest(path string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == path {
			return s.requests[i], true
		}
	}
	return Request{}, false
}
