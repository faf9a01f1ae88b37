/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

HandleWebSocket rate limits the caller, upgrades the HTTP connection, and hands the
socket to the Hub, which runs it until it closes.
*/
package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"wschat/internal/app/chat"
	"wschat/internal/pkg/errs"
	"wschat/internal/pkg/limiter"
	"wschat/internal/pkg/logx"
	"wschat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc serving the relay WebSocket endpoint.
func HandleWebSocket(hub *chat.Hub, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		anonIP := logx.AnonymizeIP(r.RemoteAddr)

		if !rateLimiter.Allow(r.RemoteAddr) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "remote_ip", anonIP)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		if !hub.Accepting() {
			logx.Info("WebSocket connection rejected: Hub is shutting down.", "remote_ip", anonIP)
			resp.RespondError(w, r, errs.NewError(errs.ErrServiceUnavailable))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// the upgrader has already written the HTTP error
			logx.Error(err, "Failed to upgrade connection to WebSocket", "remote_ip", anonIP)
			return
		}

		if err := hub.Serve(conn, r.RemoteAddr); err != nil && !errors.Is(err, chat.ErrShuttingDown) {
			logx.Error(err, "WebSocket connection ended with error", "remote_ip", anonIP)
		}
	}
}
