/*
Package handler provides the HTTP handlers and routing setup for the chat relay.

This file defines the main Router, applying logging, CORS and recovery middleware
before delegating to the static page, the health check and the WebSocket endpoint.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"wschat/internal/pkg/errs"
	"wschat/internal/pkg/limiter"
	"wschat/internal/pkg/logx"
	"wschat/internal/pkg/resp"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "WS Chat Relay"

const (
	// HealthRate and HealthBurst bound health checks per client IP.
	HealthRate  = 5
	HealthBurst = 10
)

// Router sets up the HTTP routing table. The returned stop function releases
// the background resources of the rate limiters.
func Router(deps *AppDeps) (http.Handler, func()) {
	connectRate := rate.Inf
	if deps.Config.ConnectRate > 0 {
		connectRate = rate.Limit(deps.Config.ConnectRate)
	}
	connectLimiter := limiter.NewIPRateLimiter(connectRate, deps.Config.ConnectBurst)
	healthLimiter := limiter.NewIPRateLimiter(rate.Limit(HealthRate), HealthBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			code := errs.ErrInvalidParams
			if status == http.StatusForbidden {
				code = errs.ErrOriginNotAllowed
			}
			logx.Warn("WebSocket upgrade failed.", "status", status, "reason", reason.Error())
			resp.RespondError(w, r, errs.NewError(code))
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/", HandleIndex(deps.Config.IndexFile))

	r.With(healthLimiter.Middleware).Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if !deps.Hub.Accepting() {
			status = "shutting_down"
		}

		resp.RespondSuccess(w, r, HealthData{
			Status:      status,
			Service:     ServiceName,
			Online:      deps.Hub.Registry().Len(),
			Users:       deps.Hub.Registry().Identities(),
			Connections: deps.Hub.Connections(),
		})
	})

	r.Get("/chat", HandleWebSocket(deps.Hub, wsUpgrader, connectLimiter))

	stop := func() {
		connectLimiter.Stop()
		healthLimiter.Stop()
	}

	return r, stop
}

// HealthData is the payload of the health endpoint.
type HealthData struct {
	Status      string   `json:"status"`
	Service     string   `json:"service"`
	Online      int      `json:"online"`
	Users       []string `json:"users"`
	Connections int      `json:"connections"`
}
