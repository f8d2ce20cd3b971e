package signaling

import (
	"sync"
	"time"
)

// PresenceEntry binds one live connection to a logical user identity.
type PresenceEntry struct {
	ConnID string
	UserID string
	Name   string
	Role   string
	Device string
	Since  time.Time
}

// PresenceRegistry is the single source of truth for who is online on
// which connection. One user holds at most one active connection;
// a newer registration for the same userId wins and the stale reverse
// mapping is evicted first. State is transient, gone on restart.
type PresenceRegistry struct {
	mu     sync.RWMutex
	byConn map[string]PresenceEntry
	byUser map[string]string // userID -> connID
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byConn: make(map[string]PresenceEntry),
		byUser: make(map[string]string),
	}
}

// Register binds connID to userID, returning the connection id that was
// evicted by this registration, if any.
func (r *PresenceRegistry) Register(connID, userID, name, role, device string) (evicted string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok && old != connID {
		delete(r.byConn, old)
		evicted = old
	}
	r.byConn[connID] = PresenceEntry{
		ConnID: connID,
		UserID: userID,
		Name:   name,
		Role:   role,
		Device: device,
		Since:  time.Now(),
	}
	r.byUser[userID] = connID
	return evicted
}

// Unregister removes both mapping directions. Calling it for an unknown
// connection is a no-op. The reverse entry is only dropped when it still
// points at this connection, so an eviction followed by the old
// connection's disconnect cannot knock out the newer registration.
func (r *PresenceRegistry) Unregister(connID string) (PresenceEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byConn[connID]
	if !ok {
		return PresenceEntry{}, false
	}
	delete(r.byConn, connID)
	if cur, ok := r.byUser[entry.UserID]; ok && cur == connID {
		delete(r.byUser, entry.UserID)
	}
	return entry, true
}

// LookupConn returns the active connection for a user.
func (r *PresenceRegistry) LookupConn(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

// Lookup returns the presence entry for a connection.
func (r *PresenceRegistry) Lookup(connID string) (PresenceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byConn[connID]
	return e, ok
}

// List returns every online user. Uniqueness per user is structural:
// byUser holds one connection per user.
func (r *PresenceRegistry) List() []OnlineUser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]OnlineUser, 0, len(r.byUser))
	for _, connID := range r.byUser {
		e := r.byConn[connID]
		users = append(users, OnlineUser{UserID: e.UserID, Name: e.Name, Role: e.Role, Device: e.Device})
	}
	return users
}

// ListOthers returns every online user except the one on excludeConnID.
func (r *PresenceRegistry) ListOthers(excludeConnID string) []OnlineUser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]OnlineUser, 0, len(r.byUser))
	for _, connID := range r.byUser {
		if connID == excludeConnID {
			continue
		}
		e := r.byConn[connID]
		users = append(users, OnlineUser{UserID: e.UserID, Name: e.Name, Role: e.Role, Device: e.Device})
	}
	return users
}

// ConnsWithRoles returns the connections of every online user whose role
// is in the given set. Used for caregiver alert fan-out.
func (r *PresenceRegistry) ConnsWithRoles(roles map[string]bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []string
	for _, connID := range r.byUser {
		if e := r.byConn[connID]; roles[e.Role] {
			conns = append(conns, connID)
		}
	}
	return conns
}

// Count returns the number of online users.
func (r *PresenceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
