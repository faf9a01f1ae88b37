/*
Package chat contains the relay core: the connection registry, the message router that
decodes and routes inbound frames, and the WebSocket client and hub that drive them.

This file defines the Registry, the live identity-to-connection table shared by every
connection goroutine.
*/
package chat

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Conn is the outbound side of one live transport channel.
// Two Conns are the same connection when their IDs are equal.
type Conn interface {
	// ID returns the connection handle, unique for the process lifetime.
	ID() string

	// Send queues a text frame for the connection. It never blocks.
	Send(msg []byte) error
}

// Registry is a concurrency-safe map from identity to connection.
//
// A single RWMutex guards both indexes; byConn is kept in lock-step with
// byIdentity so reverse lookups do not scan the table.
type Registry struct {
	mu sync.RWMutex

	// byIdentity maps a registered identity to its connection.
	byIdentity map[string]Conn

	// byConn maps a connection ID back to the identity it registered.
	byConn map[string]string

	logger zerolog.Logger
}

// NewRegistry returns an empty Registry that logs delivery failures to logger.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		byIdentity: make(map[string]Conn),
		byConn:     make(map[string]string),
		logger:     logger,
	}
}

// Register maps identity to c, replacing any existing mapping.
// It returns the connection that previously held identity, or nil.
func (r *Registry) Register(identity string, c Conn) (evicted Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byIdentity[identity]; ok && prev.ID() != c.ID() {
		delete(r.byConn, prev.ID())
		evicted = prev
	}

	// a connection owns at most one identity
	if old, ok := r.byConn[c.ID()]; ok && old != identity {
		delete(r.byIdentity, old)
	}

	r.byIdentity[identity] = c
	r.byConn[c.ID()] = identity

	return evicted
}

// RegisterUnique maps identity to c only if no other connection holds it.
// Re-registering the same connection under the same identity is a no-op.
func (r *Registry) RegisterUnique(identity string, c Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byIdentity[identity]; ok {
		if prev.ID() == c.ID() {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrIdentityTaken, identity)
	}

	if old, ok := r.byConn[c.ID()]; ok {
		delete(r.byIdentity, old)
	}

	r.byIdentity[identity] = c
	r.byConn[c.ID()] = identity

	return nil
}

// Unregister removes identity. It reports whether a mapping existed.
func (r *Registry) Unregister(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byIdentity[identity]
	if !ok {
		return false
	}

	delete(r.byIdentity, identity)
	delete(r.byConn, c.ID())

	return true
}

// Detach removes whatever identity c registered and returns it.
// A connection whose identity was taken over by a newer one finds nothing.
func (r *Registry) Detach(c Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byConn[c.ID()]
	if !ok {
		return "", false
	}

	delete(r.byConn, c.ID())
	if current, held := r.byIdentity[identity]; held && current.ID() == c.ID() {
		delete(r.byIdentity, identity)
	}

	return identity, true
}

// LookupIdentity returns the identity registered by c.
func (r *Registry) LookupIdentity(c Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byConn[c.ID()]
	return identity, ok
}

// Lookup returns the connection registered under identity.
func (r *Registry) Lookup(identity string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byIdentity[identity]
	return c, ok
}

// DeliverTo sends msg to the connection registered under identity.
// It fails with ErrNoSuchRecipient when identity is absent and wraps
// transport errors in ErrDeliveryFailed.
func (r *Registry) DeliverTo(identity string, msg []byte) error {
	c, ok := r.Lookup(identity)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchRecipient, identity)
	}

	if err := c.Send(msg); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeliveryFailed, identity, err)
	}

	return nil
}

// BroadcastExcept sends msg to every registered connection other than excluded,
// which may be nil. A failing recipient is logged and skipped. It returns the
// number of connections that accepted the message.
func (r *Registry) BroadcastExcept(msg []byte, excluded Conn) int {
	type target struct {
		identity string
		conn     Conn
	}

	excludedID := ""
	if excluded != nil {
		excludedID = excluded.ID()
	}

	r.mu.RLock()
	targets := make([]target, 0, len(r.byIdentity))
	for identity, c := range r.byIdentity {
		if excluded != nil && c.ID() == excludedID {
			continue
		}
		targets = append(targets, target{identity, c})
	}
	r.mu.RUnlock()

	delivered := 0
	for _, t := range targets {
		if err := t.conn.Send(msg); err != nil {
			r.logger.Warn().
				Err(err).
				Str("identity", t.identity).
				Str("conn_id", t.conn.ID()).
				Msg("Broadcast delivery failed for recipient, continuing.")
			continue
		}
		delivered++
	}

	return delivered
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byIdentity)
}

// Identities returns a sorted snapshot of the registered identities.
func (r *Registry) Identities() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.byIdentity))
	for identity := range r.byIdentity {
		ids = append(ids, identity)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
