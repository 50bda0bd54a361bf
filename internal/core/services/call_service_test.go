package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"voxhub/internal/core/domain"
	"voxhub/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingSink captures delivered events per identity so tests can assert
// on fan-out without a live websocket.
type recordingSink struct {
	mu     sync.Mutex
	events map[domain.IdentityID][]domain.Event
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: make(map[domain.IdentityID][]domain.Event)}
}

func (s *recordingSink) Deliver(id domain.IdentityID, event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id] = append(s.events[id], event)
}

func (s *recordingSink) IsOnline(id domain.IdentityID) bool { return true }

func (s *recordingSink) eventTypes(id domain.IdentityID) []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventType, 0, len(s.events[id]))
	for _, e := range s.events[id] {
		out = append(out, e.Type)
	}
	return out
}

func (s *recordingSink) lastEvent(id domain.IdentityID) (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events[id]
	if len(events) == 0 {
		return domain.Event{}, false
	}
	return events[len(events)-1], true
}

func newTestCallService(t *testing.T, sink *recordingSink, store *memory.MemoryMessageStore, ringTimeout time.Duration) *callService {
	t.Helper()
	svc := NewCallService(sink, store, ringTimeout, zap.NewNop().Sugar())
	return svc.(*callService)
}

func TestCallServiceStartDeliversIncoming(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), 0)

	err := svc.Start(context.Background(), "dm-1", "alice", "Alice", "bob")
	require.NoError(t, err)

	event, ok := sink.lastEvent("bob")
	require.True(t, ok)
	assert.Equal(t, domain.EventCallIncoming, event.Type)

	session, ok := svc.Session("dm-1")
	require.True(t, ok)
	assert.Equal(t, domain.CallRinging, session.State())
	assert.Equal(t, domain.IdentityID("alice"), session.StarterID)
}

func TestCallServiceStartRejectsInvalidTarget(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), 0)

	assert.ErrorIs(t, svc.Start(context.Background(), "dm-1", "alice", "Alice", ""), domain.ErrInvalidState)
	assert.ErrorIs(t, svc.Start(context.Background(), "dm-1", "alice", "Alice", "alice"), domain.ErrInvalidState)
}

func TestCallServiceSecondStartOnChannelFails(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), 0)

	require.NoError(t, svc.Start(context.Background(), "dm-1", "alice", "Alice", "bob"))
	err := svc.Start(context.Background(), "dm-1", "carol", "Carol", "bob")
	assert.ErrorIs(t, err, domain.ErrCallInProgress)
	assert.Equal(t, 1, svc.ActiveCount())
}

func TestCallServiceAccept(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), 0)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, "dm-1", "alice", "Alice", "bob"))

	// Only the callee may accept.
	assert.ErrorIs(t, svc.Accept(ctx, "dm-1", "carol"), domain.ErrForbidden)

	require.NoError(t, svc.Accept(ctx, "dm-1", "bob"))

	event, ok := sink.lastEvent("alice")
	require.True(t, ok)
	assert.Equal(t, domain.EventCallAccepted, event.Type)

	session, ok := svc.Session("dm-1")
	require.True(t, ok)
	assert.Equal(t, domain.CallActive, session.State())
	assert.Len(t, session.Participants, 2)

	// Accepting an already-active call fails.
	assert.ErrorIs(t, svc.Accept(ctx, "dm-1", "bob"), domain.ErrInvalidState)
}

func TestCallServiceAcceptUnknownChannel(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), 0)

	assert.ErrorIs(t, svc.Accept(context.Background(), "nope", "bob"), domain.ErrNotFound)
}

func TestCallServiceRejectOnlyByTarget(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), 0)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, "dm-1", "alice", "Alice", "bob"))
	assert.ErrorIs(t, svc.Reject(ctx, "dm-1", "alice"), domain.ErrForbidden)

	require.NoError(t, svc.Reject(ctx, "dm-1", "bob"))
	assert.Equal(t, 0, svc.ActiveCount())

	event, ok := sink.lastEvent("alice")
	require.True(t, ok)
	assert.Equal(t, domain.EventCallRejected, event.Type)
}

func TestCallServiceCancelOnlyByStarter(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), 0)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, "dm-1", "alice", "Alice", "bob"))
	assert.ErrorIs(t, svc.Cancel(ctx, "dm-1", "bob"), domain.ErrForbidden)

	require.NoError(t, svc.Cancel(ctx, "dm-1", "alice"))
	assert.Equal(t, 0, svc.ActiveCount())

	event, ok := sink.lastEvent("bob")
	require.True(t, ok)
	assert.Equal(t, domain.EventCallCancelled, event.Type)
}

func TestCallServiceEndPersistsHistory(t *testing.T) {
	sink := newRecordingSink()
	store := memory.NewMemoryMessageStore()
	svc := newTestCallService(t, sink, store, 0)
	ctx := context.Background()

	base := time.Now()
	svc.now = func() time.Time { return base }

	require.NoError(t, svc.Start(ctx, "dm-1", "alice", "Alice", "bob"))
	require.NoError(t, svc.Accept(ctx, "dm-1", "bob"))

	svc.now = func() time.Time { return base.Add(30 * time.Second) }

	// First hangup keeps the session alive for the remaining party.
	require.NoError(t, svc.End(ctx, "dm-1", "alice"))
	assert.Equal(t, 1, svc.ActiveCount())

	types := sink.eventTypes("bob")
	assert.Contains(t, types, domain.EventCallEnded)

	// Second hangup vacates the session and writes the history record.
	require.NoError(t, svc.End(ctx, "dm-1", "bob"))
	assert.Equal(t, 0, svc.ActiveCount())

	require.Eventually(t, func() bool {
		return len(store.Messages("dm-1")) == 1
	}, time.Second, 10*time.Millisecond)

	msg := store.Messages("dm-1")[0]
	assert.Equal(t, domain.MessageCallEnded, msg.Kind)
	assert.Equal(t, int64(30000), msg.CallDuration)
	assert.Equal(t, domain.IdentityID("alice"), msg.AuthorID)

	// Both parties receive the synthesized message.
	require.Eventually(t, func() bool {
		aliceTypes := sink.eventTypes("alice")
		bobTypes := sink.eventTypes("bob")
		return contains(aliceTypes, domain.EventMessageCreated) && contains(bobTypes, domain.EventMessageCreated)
	}, time.Second, 10*time.Millisecond)
}

func TestCallServiceEndRingingWritesNoHistory(t *testing.T) {
	sink := newRecordingSink()
	store := memory.NewMemoryMessageStore()
	svc := newTestCallService(t, sink, store, 0)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, "dm-1", "alice", "Alice", "bob"))
	require.NoError(t, svc.End(ctx, "dm-1", "alice"))

	assert.Equal(t, 0, svc.ActiveCount())
	assert.Empty(t, store.Messages("dm-1"))
}

func TestCallServiceEndByStranger(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), 0)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, "dm-1", "alice", "Alice", "bob"))
	assert.ErrorIs(t, svc.End(ctx, "dm-1", "carol"), domain.ErrForbidden)
}

func TestCallServiceRingTimeout(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), 20*time.Millisecond)

	require.NoError(t, svc.Start(context.Background(), "dm-1", "alice", "Alice", "bob"))

	require.Eventually(t, func() bool {
		return svc.ActiveCount() == 0
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return contains(sink.eventTypes("alice"), domain.EventCallCancelled) &&
			contains(sink.eventTypes("bob"), domain.EventCallCancelled)
	}, time.Second, 5*time.Millisecond)
}

func TestCallServiceAcceptStopsRingTimeout(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), 30*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, "dm-1", "alice", "Alice", "bob"))
	require.NoError(t, svc.Accept(ctx, "dm-1", "bob"))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, svc.ActiveCount())
	assert.NotContains(t, sink.eventTypes("alice"), domain.EventCallCancelled)
}

func TestCallServiceRejoinNotifiesOtherParty(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), 0)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, "dm-1", "alice", "Alice", "bob"))
	require.NoError(t, svc.Accept(ctx, "dm-1", "bob"))

	assert.ErrorIs(t, svc.Rejoin(ctx, "dm-1", "carol"), domain.ErrForbidden)

	require.NoError(t, svc.Rejoin(ctx, "dm-1", "alice"))
	event, ok := sink.lastEvent("bob")
	require.True(t, ok)
	assert.Equal(t, domain.EventCallRejoined, event.Type)

	// Rejoin is informational; the session is untouched.
	session, ok := svc.Session("dm-1")
	require.True(t, ok)
	assert.Len(t, session.Participants, 2)
}

func TestCallServiceShutdownClearsSessions(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestCallService(t, sink, memory.NewMemoryMessageStore(), time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, "dm-1", "alice", "Alice", "bob"))
	require.NoError(t, svc.Start(ctx, "dm-2", "carol", "Carol", "dave"))

	svc.Shutdown()
	assert.Equal(t, 0, svc.ActiveCount())
}

func contains(types []domain.EventType, want domain.EventType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
