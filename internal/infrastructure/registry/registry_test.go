package registry

import (
	"sync"
	"testing"

	"voxhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeConn records enqueued events; congested simulates a full send queue.
type fakeConn struct {
	mu        sync.Mutex
	events    []domain.Event
	congested bool
	closed    bool
}

func (c *fakeConn) Enqueue(event domain.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.congested {
		return false
	}
	c.events = append(c.events, event)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) eventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newTestRegistry() *Registry {
	return New(zap.NewNop().Sugar())
}

func TestRegisterAndDeliver(t *testing.T) {
	reg := newTestRegistry()
	conn := &fakeConn{}

	require.NoError(t, reg.Register("alice", conn))
	assert.True(t, reg.IsOnline("alice"))

	reg.Deliver("alice", domain.NewEvent(domain.EventHeartbeatAck, nil))
	assert.Equal(t, 1, conn.eventCount())
}

func TestDeliverToOfflineIdentityIsNoOp(t *testing.T) {
	reg := newTestRegistry()
	// Must not panic or error.
	reg.Deliver("ghost", domain.NewEvent(domain.EventHeartbeatAck, nil))
	assert.False(t, reg.IsOnline("ghost"))
}

func TestRegisterSamePairIsIdempotent(t *testing.T) {
	reg := newTestRegistry()
	conn := &fakeConn{}

	require.NoError(t, reg.Register("alice", conn))
	require.NoError(t, reg.Register("alice", conn))
	assert.Equal(t, 1, reg.ConnectionCount())
}

func TestRegisterRebindFails(t *testing.T) {
	reg := newTestRegistry()
	conn := &fakeConn{}

	require.NoError(t, reg.Register("alice", conn))
	assert.ErrorIs(t, reg.Register("bob", conn), domain.ErrConnectionBound)
}

func TestMultiDeviceDelivery(t *testing.T) {
	reg := newTestRegistry()
	phone := &fakeConn{}
	laptop := &fakeConn{}

	require.NoError(t, reg.Register("alice", phone))
	require.NoError(t, reg.Register("alice", laptop))
	assert.Equal(t, 2, reg.ConnectionCount())
	assert.Equal(t, 1, reg.OnlineCount())

	reg.Deliver("alice", domain.NewEvent(domain.EventPresenceChanged, nil))
	assert.Equal(t, 1, phone.eventCount())
	assert.Equal(t, 1, laptop.eventCount())
}

func TestUnregisterReportsFullOffline(t *testing.T) {
	reg := newTestRegistry()
	phone := &fakeConn{}
	laptop := &fakeConn{}

	require.NoError(t, reg.Register("alice", phone))
	require.NoError(t, reg.Register("alice", laptop))

	id, offline := reg.Unregister(phone)
	assert.Equal(t, domain.IdentityID("alice"), id)
	assert.False(t, offline)
	assert.True(t, reg.IsOnline("alice"))

	id, offline = reg.Unregister(laptop)
	assert.Equal(t, domain.IdentityID("alice"), id)
	assert.True(t, offline)
	assert.False(t, reg.IsOnline("alice"))
}

func TestUnregisterUnknownConn(t *testing.T) {
	reg := newTestRegistry()
	id, offline := reg.Unregister(&fakeConn{})
	assert.Empty(t, id)
	assert.False(t, offline)
}

func TestDeliverDropsOnCongestion(t *testing.T) {
	reg := newTestRegistry()
	conn := &fakeConn{congested: true}

	require.NoError(t, reg.Register("alice", conn))
	// A congested connection drops the event without affecting others.
	reg.Deliver("alice", domain.NewEvent(domain.EventHeartbeatAck, nil))
	assert.Equal(t, 0, conn.eventCount())
}

func TestIdentityOf(t *testing.T) {
	reg := newTestRegistry()
	conn := &fakeConn{}

	_, ok := reg.IdentityOf(conn)
	assert.False(t, ok)

	require.NoError(t, reg.Register("alice", conn))
	id, ok := reg.IdentityOf(conn)
	assert.True(t, ok)
	assert.Equal(t, domain.IdentityID("alice"), id)
}
