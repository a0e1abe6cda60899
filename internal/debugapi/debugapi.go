// Package debugapi serves a small read-only debug HTTP surface exposing
// the orchestrator's current phase, hashrate, and queue depth as JSON —
// mirroring the teacher's api/debug package's introspection role, but
// scoped to this module's state machine rather than log verbosity and
// pprof knobs (SPEC_FULL §B.9). This is not the out-of-scope "telemetry
// reporting": it only answers local reads, it never pushes data out.
package debugapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// Snapshot is the read-only view the orchestrator publishes for this
// surface to serve. Set via Server.Update.
type Snapshot struct {
	MiningPhase string  `json:"mining_phase"`
	EpochNumber uint64  `json:"epoch_number"`
	Hashrate    float64 `json:"hashrate"`
	QueueDepth  int     `json:"queue_depth"`
}

// Server holds the latest Snapshot and serves it over HTTP.
type Server struct {
	handler http.Handler

	mu      sync.RWMutex
	current Snapshot
}

// NewServer builds the debug HTTP handler. allowedOrigins configures CORS
// for browser-based dashboards; pass nil to allow any origin.
func NewServer(allowedOrigins []string) *Server {
	s := &Server{}

	router := httprouter.New()
	router.GET("/debug/status", s.handleStatus)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})
	s.handler = c.Handler(router)
	return s
}

// Handler returns the composed http.Handler to mount on a listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Update publishes a new snapshot for the next request to observe.
func (s *Server) Update(snap Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.mu.RLock()
	snap := s.current
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}
