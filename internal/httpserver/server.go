// apps/rooms-server/internal/httpserver/server.go
//
// HTTP server wiring for the multiplayer room backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     per-IP rate limiting).
//   - Public endpoints: "/", "/health".
//   - Diagnostics: /debug/words, /rooms/stats, /history/recent.
//   - Websocket entry point: GET /ws (hands off to the connection hub).
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The request timeout and JSON content type apply to the API group only;
//     /ws must stay free of both so the upgrade and the long-lived socket
//     survive.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/robalobadob/wordle/apps/rooms-server/internal/history"
	"github.com/robalobadob/wordle/apps/rooms-server/internal/rooms"
	"github.com/robalobadob/wordle/apps/rooms-server/internal/words"
	"github.com/robalobadob/wordle/apps/rooms-server/internal/ws"
)

// Server bundles the router with the room registry, word lists, the
// websocket hub, and the optional round-history store.
type Server struct {
	r        *chi.Mux
	words    *words.List
	registry *rooms.Registry
	hist     *history.Store
	hub      *ws.Hub
	srv      *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
// hist may be nil when history is disabled.
func New(wl *words.List, reg *rooms.Registry, hist *history.Store, hub *ws.Hub) *Server {
	s := &Server{r: chi.NewRouter(), words: wl, registry: reg, hist: hist, hub: hub}
	s.srv = &http.Server{Handler: s.r}

	// --- middleware ---
	s.r.Use(chimw.RequestID)         // add X-Request-ID
	s.r.Use(chimw.RealIP)            // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)         // recover from panics
	s.r.Use(corsFromEnv)             // credentials-friendly CORS
	s.r.Use(rateLimitFromEnv().wrap) // per-IP request limit

	// Websocket endpoint. No timeout, no JSON header: the connection is
	// hijacked on upgrade and lives until the client leaves.
	s.r.Get("/ws", hub.ServeWS)

	// API group: bounded handler time, JSON responses.
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"wordle-rooms","endpoints":["/health","/ws","/rooms/stats","/history/recent"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		// Debug: word list counts
		r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
			a, g := s.words.Stats()
			_ = json.NewEncoder(w).Encode(map[string]int{"answers": a, "allowed": g})
		})

		// Live room/player/connection counts.
		r.Get("/rooms/stats", func(w http.ResponseWriter, r *http.Request) {
			roomCount, playerCount := s.registry.Stats()
			_ = json.NewEncoder(w).Encode(map[string]int{
				"rooms":       roomCount,
				"players":     playerCount,
				"connections": s.hub.ClientCount(),
			})
		})

		// Recently finished rounds, newest first.
		r.Get("/history/recent", s.handleHistoryRecent)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error {
	s.srv.Addr = addr
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// handleHistoryRecent serves the most recently finished rounds. Responds 503
// when the server runs without a history database.
func (s *Server) handleHistoryRecent(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		http.Error(w, `{"error":"history_disabled"}`, http.StatusServiceUnavailable)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	rounds, err := s.hist.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(rounds)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
