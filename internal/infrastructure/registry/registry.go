package registry

import (
	"sync"

	"voxhub/internal/core/domain"

	"go.uber.org/zap"
)

// Conn is one live duplex transport session. The registry is the only
// component that holds connections; everything else routes through it.
// Enqueue must be non-blocking: implementations buffer outbound events and
// drain them from a single writer, which is what gives FIFO per recipient.
type Conn interface {
	// Enqueue hands the event to the connection's writer. It returns false
	// if the connection is congested or closed; the event is then dropped.
	Enqueue(event domain.Event) bool
	// Close tears the transport down.
	Close()
}

// Registry maps authenticated identities to their live connections. One
// identity may own many connections (multi-device); a connection is bound
// to at most one identity for its lifetime.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[domain.IdentityID]map[Conn]struct{}
	identityOf map[Conn]domain.IdentityID

	logger *zap.SugaredLogger
}

func New(logger *zap.SugaredLogger) *Registry {
	return &Registry{
		byIdentity: make(map[domain.IdentityID]map[Conn]struct{}),
		identityOf: make(map[Conn]domain.IdentityID),
		logger:     logger,
	}
}

// Register binds conn to id. Registering the same pair twice is a no-op;
// binding a connection that already belongs to another identity fails.
func (r *Registry) Register(id domain.IdentityID, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bound, ok := r.identityOf[conn]; ok {
		if bound == id {
			return nil
		}
		return domain.ErrConnectionBound
	}

	set, ok := r.byIdentity[id]
	if !ok {
		set = make(map[Conn]struct{})
		r.byIdentity[id] = set
	}
	set[conn] = struct{}{}
	r.identityOf[conn] = id

	r.logger.Infow("connection registered", "identity_id", id, "connections", len(set))
	return nil
}

// Unregister removes conn and reports the identity it was bound to and
// whether that identity now has no connections left (fully offline). The
// caller cascades presence and room teardown from that signal.
func (r *Registry) Unregister(conn Conn) (domain.IdentityID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.identityOf[conn]
	if !ok {
		return "", false
	}
	delete(r.identityOf, conn)

	set := r.byIdentity[id]
	delete(set, conn)
	if len(set) > 0 {
		r.logger.Infow("connection unregistered", "identity_id", id, "connections", len(set))
		return id, false
	}
	delete(r.byIdentity, id)
	r.logger.Infow("identity fully offline", "identity_id", id)
	return id, true
}

// Deliver sends the event to every live connection of id. Offline identity
// is a silent no-op; events are dropped, never queued.
func (r *Registry) Deliver(id domain.IdentityID, event domain.Event) {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.byIdentity[id]))
	for c := range r.byIdentity[id] {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		if !c.Enqueue(event) {
			r.logger.Warnw("dropping event for congested connection",
				"identity_id", id, "event_type", event.Type)
		}
	}
}

// IsOnline reports whether id has at least one live connection.
func (r *Registry) IsOnline(id domain.IdentityID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity[id]) > 0
}

// IdentityOf returns the identity bound to conn, if any.
func (r *Registry) IdentityOf(conn Conn) (domain.IdentityID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.identityOf[conn]
	return id, ok
}

// ConnectionCount is the number of live registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identityOf)
}

// OnlineCount is the number of identities with at least one connection.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity)
}
