/*
Package chat contains the relay core: the connection registry, the message router that
decodes and routes inbound frames, and the WebSocket client and hub that drive them.

This file defines the Hub, which owns the single Registry and Router of the process
and supervises every connection from upgrade to shutdown.
*/
package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"wschat/internal/configs"
	"wschat/internal/pkg/logx"
)

// ErrShuttingDown is returned by Serve once Shutdown has started.
var ErrShuttingDown = errors.New("chat: hub is shutting down")

const shutdownReason = "Server is shutting down."

// Hub coordinates every live connection of the relay.
type Hub struct {
	registry *Registry
	router   *Router

	clientOpts ClientOptions

	// mu protects clients and closing.
	mu sync.Mutex

	// clients holds every live connection, initialized or not, keyed by connection ID.
	clients map[string]*Client

	closing bool

	// wg tracks running connections so Shutdown can wait for them.
	wg sync.WaitGroup

	// structured logger with Hub context.
	logger zerolog.Logger
}

// NewHub constructs a Hub configured from cfg.
func NewHub(cfg *configs.AppConfig) *Hub {
	hubLogger := logx.Component("hub")

	registry := NewRegistry(logx.Component("registry"))
	router := NewRouter(registry, RouterOptions{
		IdentityPolicy:     cfg.IdentityPolicy,
		NotifySenderErrors: cfg.NotifySenderErrors,
		MaxTextBytes:       cfg.MaxTextBytes,
	}, logx.Component("router"))

	return &Hub{
		registry: registry,
		router:   router,
		clientOpts: ClientOptions{
			SendQueueSize:   cfg.SendQueueSize,
			MaxMessageBytes: cfg.MaxMessageBytes,
			MessageRate:     rate.Limit(cfg.MessageRate),
			MessageBurst:    cfg.MessageBurst,
		},
		clients: make(map[string]*Client),
		logger:  hubLogger,
	}
}

// Registry returns the hub's identity registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Accepting reports whether new connections are admitted.
func (h *Hub) Accepting() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return !h.closing
}

// Connections returns the number of live connections, including ones that have not sent INIT.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Serve runs conn until it terminates. It blocks for the lifetime of the connection.
func (h *Hub) Serve(conn *websocket.Conn, remoteAddr string) error {
	client := NewClient(conn, h.router, h.clientOpts, remoteAddr)

	if !h.track(client) {
		client.writeCloseMessage(websocket.CloseGoingAway, shutdownReason)
		if err := conn.Close(); err != nil {
			h.logger.Debug().Err(err).Msg("Close error while refusing connection")
		}
		return ErrShuttingDown
	}
	defer h.untrack(client)

	h.logger.Info().
		Str("conn_id", client.ID()).
		Int("connections", h.Connections()).
		Msg("Connection established.")

	go client.WritePump()
	client.ReadPump()

	return nil
}

func (h *Hub) track(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return false
	}

	h.clients[c.ID()] = c
	h.wg.Add(1)

	return true
}

func (h *Hub) untrack(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID())
	remaining := len(h.clients)
	h.mu.Unlock()

	h.wg.Done()

	h.logger.Info().
		Str("conn_id", c.ID()).
		Int("connections", remaining).
		Msg("Connection finished.")
}

// Shutdown refuses new connections, closes the live ones, and waits for their
// goroutines until ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.logger.Info().Msg("Shutting down hub...")

	h.mu.Lock()
	h.closing = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close(shutdownReason)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info().Int("closed", len(clients)).Msg("Hub shutdown complete.")
		return nil
	case <-ctx.Done():
		h.logger.Warn().Msg("Hub shutdown timed out, some connections may still be open.")
		return ctx.Err()
	}
}
