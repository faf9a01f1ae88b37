/*
Package chat contains the relay core: the connection registry, the message router that
decodes and routes inbound frames, and the WebSocket client and hub that drive them.

This file defines the Client struct, one live WebSocket connection. Its ReadPump feeds
frames to the Router in arrival order; its WritePump drains the outbound queue.
*/
package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"wschat/internal/pkg/logx"
	"wschat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// WsCloseCodeSessionKicked is a custom WebSocket Close Code (4000-4999 range)
	// used to signal the client that the session was replaced by a new connection.
	WsCloseCodeSessionKicked = 4001
)

// ClientOptions holds the per-connection limits.
type ClientOptions struct {
	// SendQueueSize is the capacity of the outbound queue.
	SendQueueSize int

	// MaxMessageBytes is the largest inbound frame accepted.
	MaxMessageBytes int64

	// MessageRate and MessageBurst bound inbound frames per second. A zero rate disables the limit.
	MessageRate  rate.Limit
	MessageBurst int
}

type closeRequest struct {
	code   int
	reason string
}

// Client struct represents an active WebSocket connection.
type Client struct {
	// connection handle, unique per process.
	id string

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// router receives every inbound text frame.
	router *Router

	// a buffered channel used to queue messages waiting to be sent to the client.
	send chan []byte

	// closed when the connection has terminated.
	done chan struct{}

	// asks the WritePump to send a close frame and hang up.
	closeReq chan closeRequest

	terminateOnce sync.Once

	// inbound frame limiter, nil when unlimited.
	limiter *rate.Limiter

	maxMessageBytes int64

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for wsConn routing through router.
func NewClient(wsConn *websocket.Conn, router *Router, opts ClientOptions, remoteAddr string) *Client {
	id := randx.ConnID()

	queueSize := opts.SendQueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	var limiter *rate.Limiter
	if opts.MessageRate > 0 {
		limiter = rate.NewLimiter(opts.MessageRate, opts.MessageBurst)
	}

	return &Client{
		id:              id,
		conn:            wsConn,
		router:          router,
		send:            make(chan []byte, queueSize),
		done:            make(chan struct{}),
		closeReq:        make(chan closeRequest, 1),
		limiter:         limiter,
		maxMessageBytes: opts.MaxMessageBytes,
		logger: logx.Logger().With().
			Str("conn_id", id).
			Str("remote_ip", logx.AnonymizeIP(remoteAddr)).
			Logger(),
	}
}

// ID returns the connection handle.
func (c *Client) ID() string {
	return c.id
}

// Send queues msg for the WritePump without blocking.
// It fails with ErrTransportClosed after termination and ErrQueueFull when the queue is saturated.
func (c *Client) Send(msg []byte) error {
	select {
	case <-c.done:
		return ErrTransportClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
		return ErrQueueFull
	}
}

// Kick closes the connection with close code 4001 and the given reason.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionKicked).
		Str("reason", reason).
		Msg("Kicking connection.")

	c.requestClose(WsCloseCodeSessionKicked, reason)
}

// Close asks the connection to hang up with a going-away close frame.
func (c *Client) Close(reason string) {
	c.requestClose(websocket.CloseGoingAway, reason)
}

func (c *Client) requestClose(code int, reason string) {
	select {
	case c.closeReq <- closeRequest{code: code, reason: reason}:
	default:
		// a close is already pending
	}
}

// ReadPump reads frames until the connection fails, handing each text frame to the router.
// It runs disconnect handling exactly once before returning.
func (c *Client) ReadPump() {
	defer c.terminate()

	if c.maxMessageBytes > 0 {
		c.conn.SetReadLimit(c.maxMessageBytes)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Debug().Int("message_type", messageType).Msg("Ignoring non-text frame")
			continue
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.logger.Warn().Msg("Frame rate limit exceeded; discarding frame")
			c.router.Notify(c, ErrRateLimited)
			continue
		}

		// errors are logged by the router; none of them ends the connection
		_, _ = c.router.HandleFrame(c, data)
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn().Int64("limit", c.maxMessageBytes).Msg("Frame exceeded maximum size; closing")
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.logger.Debug().Err(err).Msg("Client closed connection")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
		c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
	default:
		c.logger.Debug().Err(err).Msg("Read loop ended")
	}
}

// terminate marks the connection closed, runs disconnect handling, and releases the socket.
func (c *Client) terminate() {
	c.terminateOnce.Do(func() {
		close(c.done)

		c.router.HandleDisconnect(c)

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	})
}

// WritePump writes queued messages and heartbeats until the connection terminates.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// unblocks ReadPump when the write side fails first
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message := <-c.send:
			if !c.writeQueuedMessage(message) {
				return
			}

		case req := <-c.closeReq:
			c.writeCloseMessage(req.code, req.reason)
			return

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}

		case <-c.done:
			c.writeCloseMessage(websocket.CloseNormalClosure, "")
			return
		}
	}
}

// writeQueuedMessage writes one queued frame. It returns false when the pump should stop.
func (c *Client) writeQueuedMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a WebSocket Ping to keep the connection alive.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

func (c *Client) writeCloseMessage(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Int("close_code", code).Msg("Failed to send close message")
	}
}
