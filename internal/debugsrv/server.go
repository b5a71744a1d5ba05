// Package debugsrv exposes a small read-only HTTP surface over a
// running node's abci.Adapter: current height/app_hash, a raw
// commitment-tree key read, and a dispatched query.Query. Grounded on
// cmd/explorer/server.go's mux.Router-plus-http.Server shape and
// core/virtual_machine.go's rate.NewLimiter(200, 100) request
// throttle — kept the same burst/rate values rather than re-derived,
// since neither teacher file talks to a consensus-style adapter.
package debugsrv

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"grug/abci"
)

// Server wraps an abci.Adapter with a debug-only HTTP API. It is never
// the consensus engine's own request path (that goes through the
// Adapter's methods directly) — this is for operators and local
// tooling.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	adapter    *abci.Adapter
	limiter    *rate.Limiter
}

// NewServer builds a Server listening on addr once Start is called.
func NewServer(addr string, adapter *abci.Adapter) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		adapter: adapter,
		limiter: rate.NewLimiter(200, 100),
	}
	s.routes()
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// Start blocks serving HTTP until the server is closed or fails.
func (s *Server) Start() error { return s.httpServer.ListenAndServe() }

// Close shuts the server down without waiting for in-flight requests.
func (s *Server) Close() error { return s.httpServer.Close() }

func (s *Server) routes() {
	s.router.Use(s.limit)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/store/{key}", s.handleStore).Methods(http.MethodGet)
	s.router.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)
}

func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.adapter.Info(abci.RequestInfo{}))
}

// handleStore reads one raw commitment-tree key, optionally with an
// ics23 proof (?prove=true) pinned at a height (?height=N, 0=latest).
func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	height, _ := strconv.ParseUint(r.URL.Query().Get("height"), 10, 64)
	prove := r.URL.Query().Get("prove") == "true"

	resp := s.adapter.Query(abci.RequestQuery{
		Path:   abci.PathStore,
		Data:   []byte(key),
		Height: height,
		Prove:  prove,
	})
	if resp.Error != "" {
		http.Error(w, resp.Error, http.StatusNotFound)
		return
	}
	writeJSON(w, resp)
}

// handleQuery dispatches a posted query.Query JSON body.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := s.adapter.Query(abci.RequestQuery{Data: body})
	if resp.Error != "" {
		http.Error(w, resp.Error, http.StatusBadRequest)
		return
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
