// Package web serves the panel-power daemon's state over HTTP:
//
//	/, /index.html   human-readable power, battery and MQTT status
//	/index.json      the same snapshot as the retained MQTT status message
//	/healthz         200 while the power latch is held, 503 with the state otherwise
//
// All routes are read-only and answer GET and HEAD.
package web

import (
	"context"
	"net/http"

	"github.com/sweeney/panel-power/internal/status"
)

// SnapshotSource is anything that can report the current daemon state.
// *status.Tracker satisfies it.
type SnapshotSource interface {
	Snapshot() status.Snapshot
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	source     SnapshotSource
}

// New creates a Server that reads state from source.
func New(addr string, source SnapshotSource) *Server {
	s := &Server{source: source}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.readOnly(s.handleIndex))
	mux.HandleFunc("/index.html", s.readOnly(s.handleIndex))
	mux.HandleFunc("/index.json", s.readOnly(s.handleJSON))
	mux.HandleFunc("/healthz", s.readOnly(s.handleHealth))

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// readOnly rejects anything but GET and HEAD, and marks responses uncacheable:
// the latch and battery state change from one tick to the next.
func (s *Server) readOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		h(w, r)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.source.Snapshot())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.source.Snapshot()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !snap.Power.Latched {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(string(snap.Power.State) + "\n"))
		return
	}
	w.Write([]byte("ok\n"))
}
