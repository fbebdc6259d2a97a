package trackhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/shipscope/shipscope/internal/live"
	"github.com/shipscope/shipscope/internal/services/tracking"
	"github.com/shipscope/shipscope/internal/trackerr"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// API binds the tracking service and the live hub to HTTP: a JSON lookup
// endpoint plus the websocket event stream.
type API struct {
	svc *tracking.Service
	hub *live.Hub

	rl          RateLimiter
	rlPerMinute int64
	swaggerPath string

	upgrader websocket.Upgrader
	newID    func() string
}

func New(svc *tracking.Service, hub *live.Hub) *API {
	return &API{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		newID: uuid.NewString,
	}
}

func (a *API) WithRateLimiter(rl RateLimiter, perMinute int64) *API {
	a.rl = rl
	a.rlPerMinute = perMinute
	return a
}

// WithSwagger serves the given OpenAPI document and a docs UI for it.
func (a *API) WithSwagger(path string) *API {
	a.swaggerPath = path
	return a
}

func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	if a.swaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, a.swaggerPath)
		})
		r.Get("/docs/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger.json"),
		))
	}

	r.Post("/api/track", a.handleTrack)
	r.Get("/api/history", a.handleHistory)
	r.Get("/ws", a.handleWS)

	return r
}

type trackRequest struct {
	TrackingNumber string `json:"trackingNumber"`
}

func (a *API) handleTrack(w http.ResponseWriter, r *http.Request) {
	if a.rl != nil && a.rlPerMinute > 0 {
		key := fmt.Sprintf("rl:track:%s:%s", clientIP(r), time.Now().UTC().Format("200601021504"))
		allowed, _, err := a.rl.Allow(r.Context(), key, a.rlPerMinute, 70*time.Second)
		if err == nil && !allowed {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
	}

	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := a.svc.Track(r.Context(), req.TrackingNumber)
	if err != nil {
		writeError(w, trackerr.HTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	out, err := a.svc.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lookups": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
