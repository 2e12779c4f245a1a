package realtime

import (
	"context"
	"sync"

	"github.com/inkpress/authgate"
)

// connection is one registered socket. The callbacks are supplied by the
// gateway and must be safe to call from any goroutine; close must be
// idempotent.
type connection struct {
	userID    string
	sessionID string
	enqueue   func(Outbound) bool
	close     func(reason authgate.RejectReason)
}

// Registry tracks live connections keyed (userId, sessionId) and implements
// authgate.Evictor. Single active session per user means the inner map
// normally holds one entry; it still handles the transient overlap while a
// displaced session's close is in flight.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]*connection
}

// NewRegistry creates an empty registry. Hand it to the gateway and to
// authgate.Engine.SetEvictor.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]map[string]*connection)}
}

// register stores c and returns the connection it displaced, if the same
// (userId, sessionId) was already connected. The new connection wins; the
// caller closes the displaced one outside the registry lock.
func (r *Registry) register(c *connection) *connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.users[c.userID]
	if sessions == nil {
		sessions = make(map[string]*connection, 1)
		r.users[c.userID] = sessions
	}

	displaced := sessions[c.sessionID]
	sessions[c.sessionID] = c
	return displaced
}

// remove detaches c, but only if it is still the registered connection for
// its key. A displaced connection removing itself must not take its
// replacement down with it.
func (r *Registry) remove(c *connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.users[c.userID]
	if sessions == nil || sessions[c.sessionID] != c {
		return
	}

	delete(sessions, c.sessionID)
	if len(sessions) == 0 {
		delete(r.users, c.userID)
	}
}

func (r *Registry) detach(userID, sessionID string) *connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.users[userID]
	c := sessions[sessionID]
	if c == nil {
		return nil
	}

	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(r.users, userID)
	}
	return c
}

func (r *Registry) detachUserExcept(userID, keepSessionID string) []*connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.users[userID]
	if len(sessions) == 0 {
		return nil
	}

	var out []*connection
	for sid, c := range sessions {
		if sid == keepSessionID {
			continue
		}
		delete(sessions, sid)
		out = append(out, c)
	}
	if len(sessions) == 0 {
		delete(r.users, userID)
	}
	return out
}

// NotifyEvicted implements authgate.Evictor. It closes the socket for
// (userID, sessionID) with status 1008 and the reason code, reporting
// whether one was connected.
func (r *Registry) NotifyEvicted(ctx context.Context, userID, sessionID string, reason authgate.RejectReason) bool {
	c := r.detach(userID, sessionID)
	if c == nil {
		return false
	}
	c.close(reason)
	return true
}

// EvictUserExcept implements authgate.Evictor. It closes every socket of
// userID except keepSessionID, returning the number closed. A login passes
// its fresh sessionId here; account deletion passes "".
func (r *Registry) EvictUserExcept(ctx context.Context, userID, keepSessionID string, reason authgate.RejectReason) int {
	conns := r.detachUserExcept(userID, keepSessionID)
	for _, c := range conns {
		c.close(reason)
	}
	return len(conns)
}

// Send enqueues frame on every connection of userID, returning how many
// accepted it. Full send queues drop the frame for that connection rather
// than block.
func (r *Registry) Send(userID string, frame Outbound) int {
	r.mu.RLock()
	conns := make([]*connection, 0, len(r.users[userID]))
	for _, c := range r.users[userID] {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	sent := 0
	for _, c := range conns {
		if c.enqueue(frame) {
			sent++
		}
	}
	return sent
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, sessions := range r.users {
		n += len(sessions)
	}
	return n
}
