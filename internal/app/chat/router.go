/*
Package chat contains the relay core: the connection registry, the message router that
decodes and routes inbound frames, and the WebSocket client and hub that drive them.

This file defines the Router, which turns one inbound frame at a time into registry
mutations and deliveries, and runs disconnect handling when a connection ends.
*/
package chat

import (
	"errors"

	"github.com/rs/zerolog"

	"wschat/internal/configs"
	"wschat/internal/pkg/errs"
)

// Kicker is implemented by connections that can be closed by the hub.
type Kicker interface {
	Kick(reason string)
}

// RouterOptions tunes the routing policy.
type RouterOptions struct {
	// IdentityPolicy decides how a duplicate INIT identity is handled.
	IdentityPolicy configs.IdentityPolicy

	// NotifySenderErrors sends an ERROR envelope to the sender when its frame is dropped.
	NotifySenderErrors bool

	// MaxTextBytes bounds the text of a TEXT frame. Zero means no limit.
	MaxTextBytes int
}

// Router decodes inbound frames and routes them through a Registry.
// It holds no per-connection state of its own: a connection is ACTIVE exactly
// while the registry maps an identity to it.
type Router struct {
	registry *Registry
	opts     RouterOptions
	logger   zerolog.Logger
}

// NewRouter creates a Router delivering through registry.
func NewRouter(registry *Registry, opts RouterOptions, logger zerolog.Logger) *Router {
	if opts.IdentityPolicy == "" {
		opts.IdentityPolicy = configs.PolicyOverwrite
	}

	return &Router{
		registry: registry,
		opts:     opts,
		logger:   logger,
	}
}

// Registry returns the registry the router delivers through.
func (rt *Router) Registry() *Registry {
	return rt.registry
}

// HandleFrame processes one raw text frame received on c.
//
// It returns the routing classification (MTypeInit, MTypeMsg or MTypeDM; empty
// for a ping) and the reason the frame was dropped, if any. A non-nil error never
// means the connection must close.
func (rt *Router) HandleFrame(c Conn, raw []byte) (MType, error) {
	if string(raw) == PingFrame {
		if err := c.Send(pongReply); err != nil {
			rt.logger.Debug().Err(err).Str("conn_id", c.ID()).Msg("Failed to queue pong.")
			return "", errors.Join(ErrDeliveryFailed, err)
		}
		return "", nil
	}

	inbound, err := Decode(raw)
	if err != nil {
		rt.logger.Warn().
			Err(err).
			Str("conn_id", c.ID()).
			Int("frame_bytes", len(raw)).
			Msg("Dropping malformed frame.")
		rt.Notify(c, err)
		return "", err
	}

	switch m := inbound.(type) {
	case Init:
		return MTypeInit, rt.handleInit(c, m)
	case Text:
		return rt.handleText(c, m)
	}

	// Decode only yields Init or Text.
	return "", ErrDecode
}

// handleInit registers the sender and announces it to everyone else.
func (rt *Router) handleInit(c Conn, m Init) error {
	logger := rt.logger.With().Str("conn_id", c.ID()).Str("identity", m.ID).Logger()

	if current, ok := rt.registry.LookupIdentity(c); ok {
		logger.Warn().Str("current_identity", current).Msg("Dropping INIT from an already initialized connection.")
		rt.Notify(c, ErrAlreadyInitialized)
		return ErrAlreadyInitialized
	}

	switch rt.opts.IdentityPolicy {
	case configs.PolicyReject:
		if err := rt.registry.RegisterUnique(m.ID, c); err != nil {
			logger.Warn().Err(err).Msg("Rejecting INIT for an identity that is in use.")
			rt.notifyCode(c, errs.NewError(errs.ErrIdentityTaken, m.ID))
			return err
		}

	default:
		if evicted := rt.registry.Register(m.ID, c); evicted != nil {
			logger.Warn().
				Str("evicted_conn_id", evicted.ID()).
				Str("policy", string(rt.opts.IdentityPolicy)).
				Msg("Identity re-registered by a new connection.")

			if rt.opts.IdentityPolicy == configs.PolicyKick {
				if k, ok := evicted.(Kicker); ok {
					k.Kick(errs.NewError(errs.ErrSessionKicked).Message)
				}
			}
		}
	}

	msg, err := Encode(UserEnter{ID: m.ID})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build USER_ENTER message.")
		return err
	}

	n := rt.registry.BroadcastExcept(msg, c)
	logger.Info().
		Int("notified", n).
		Int("total_users", rt.registry.Len()).
		Msg("Client joined.")

	return nil
}

// handleText routes a TEXT frame as a DM when it names a recipient and as a MSG otherwise.
func (rt *Router) handleText(c Conn, m Text) (MType, error) {
	logger := rt.logger.With().Str("conn_id", c.ID()).Str("identity", m.ID).Logger()

	registered, ok := rt.registry.LookupIdentity(c)
	if !ok {
		logger.Warn().Msg("Dropping TEXT from a connection that has not sent INIT.")
		rt.Notify(c, ErrNotInitialized)
		return "", ErrNotInitialized
	}
	if registered != m.ID {
		logger.Debug().Str("registered_identity", registered).Msg("TEXT id differs from the registered identity.")
	}

	if rt.opts.MaxTextBytes > 0 && len(m.Text) > rt.opts.MaxTextBytes {
		logger.Warn().Int("text_bytes", len(m.Text)).Msg("Dropping TEXT over the length limit.")
		rt.Notify(c, ErrTextTooLong)
		return "", ErrTextTooLong
	}

	if m.IsDirect() {
		msg, err := Encode(Direct{ID: m.ID, To: m.To, Text: m.Text})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to build DM message.")
			return MTypeDM, err
		}

		if err := rt.registry.DeliverTo(m.To, msg); err != nil {
			logger.Warn().Err(err).Str("to", m.To).Msg("Direct message not delivered.")
			if errors.Is(err, ErrNoSuchRecipient) {
				rt.notifyCode(c, errs.NewError(errs.ErrRecipientNotFound, m.To))
			}
			return MTypeDM, err
		}

		logger.Debug().Str("to", m.To).Msg("Direct message delivered.")
		return MTypeDM, nil
	}

	msg, err := Encode(Broadcast{ID: m.ID, Text: m.Text})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build MSG message.")
		return MTypeMsg, err
	}

	n := rt.registry.BroadcastExcept(msg, c)
	logger.Debug().Int("recipients", n).Msg("Message broadcast.")

	return MTypeMsg, nil
}

// HandleDisconnect removes c from the registry and tells the remaining
// connections it left. It returns the identity that was removed, if any.
// Connections that never completed INIT, or whose identity was taken over,
// produce no notice.
func (rt *Router) HandleDisconnect(c Conn) (string, bool) {
	identity, ok := rt.registry.Detach(c)
	if !ok {
		rt.logger.Debug().Str("conn_id", c.ID()).Msg("Unregistered connection closed.")
		return "", false
	}

	logger := rt.logger.With().Str("conn_id", c.ID()).Str("identity", identity).Logger()

	msg, err := Encode(UserLeave{ID: identity})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build USER_LEAVE message.")
		return identity, true
	}

	n := rt.registry.BroadcastExcept(msg, c)
	logger.Info().
		Int("notified", n).
		Int("total_users", rt.registry.Len()).
		Msg("Client left.")

	return identity, true
}

// Notify sends an ERROR envelope describing err to c when sender notices are enabled.
func (rt *Router) Notify(c Conn, err error) {
	if !rt.opts.NotifySenderErrors {
		return
	}
	rt.notifyCode(c, noticeFor(err))
}

func (rt *Router) notifyCode(c Conn, customErr *errs.CustomError) {
	if !rt.opts.NotifySenderErrors {
		return
	}

	msg, err := Encode(ErrorNotice{Code: customErr.Code, Message: customErr.Message})
	if err != nil {
		rt.logger.Error().Err(err).Msg("Failed to build ERROR message.")
		return
	}

	if err := c.Send(msg); err != nil {
		rt.logger.Debug().Err(err).Str("conn_id", c.ID()).Msg("Failed to queue ERROR message.")
	}
}

// noticeFor maps a routing error to the client-facing error code.
func noticeFor(err error) *errs.CustomError {
	switch {
	case errors.Is(err, ErrDecode):
		return errs.NewError(errs.ErrMessageMalformed)
	case errors.Is(err, ErrNotInitialized):
		return errs.NewError(errs.ErrNotInitialized)
	case errors.Is(err, ErrAlreadyInitialized):
		return errs.NewError(errs.ErrAlreadyInitialized)
	case errors.Is(err, ErrTextTooLong):
		return errs.NewError(errs.ErrMessageContentTooLong)
	case errors.Is(err, ErrRateLimited):
		return errs.NewError(errs.ErrRateLimitExceeded)
	default:
		return errs.NewError(errs.ErrUnknown)
	}
}
