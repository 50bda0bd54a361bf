package router

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

func newTestRouter(sink *recordingSink) (*Router, *memory.MemoryGroupMembership) {
	groups := memory.NewMemoryGroupMembership()
	return New(sink, groups, zap.NewNop().Sugar()), groups
}

func TestBroadcastToViewersReachesOnlySubscribers(t *testing.T) {
	sink := newRecordingSink()
	rt, _ := newTestRouter(sink)

	rt.Subscribe("general", "alice")
	rt.Subscribe("general", "bob")
	rt.Subscribe("random", "carol")

	rt.BroadcastToViewers("general", domain.NewEvent(domain.EventMessageCreated, nil), "")

	assert.Len(t, sink.eventTypes("alice"), 1)
	assert.Len(t, sink.eventTypes("bob"), 1)
	assert.Empty(t, sink.eventTypes("carol"))
}

func TestBroadcastToViewersExcludesSender(t *testing.T) {
	sink := newRecordingSink()
	rt, _ := newTestRouter(sink)

	rt.Subscribe("general", "alice")
	rt.Subscribe("general", "bob")

	rt.BroadcastToViewers("general", domain.NewEvent(domain.EventMessageCreated, nil), "alice")

	assert.Empty(t, sink.eventTypes("alice"))
	assert.Len(t, sink.eventTypes("bob"), 1)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	sink := newRecordingSink()
	rt, _ := newTestRouter(sink)

	rt.Subscribe("general", "alice")
	rt.Subscribe("general", "alice")

	rt.BroadcastToViewers("general", domain.NewEvent(domain.EventMessageCreated, nil), "")
	assert.Len(t, sink.eventTypes("alice"), 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	sink := newRecordingSink()
	rt, _ := newTestRouter(sink)

	rt.Subscribe("general", "alice")
	rt.Unsubscribe("general", "alice")
	assert.False(t, rt.IsSubscribed("general", "alice"))

	rt.BroadcastToViewers("general", domain.NewEvent(domain.EventMessageCreated, nil), "")
	assert.Empty(t, sink.eventTypes("alice"))
}

func TestBroadcastToMembersIgnoresSubscriptions(t *testing.T) {
	sink := newRecordingSink()
	rt, groups := newTestRouter(sink)
	groups.AddMember("g1", "alice")
	groups.AddMember("g1", "bob")

	err := rt.BroadcastToMembers(context.Background(), "g1", domain.NewEvent(domain.EventVoiceUserJoined, nil), "alice")
	require.NoError(t, err)

	assert.Empty(t, sink.eventTypes("alice"))
	assert.Len(t, sink.eventTypes("bob"), 1)
}

func TestNotifyTypingBroadcastsAndAutoStops(t *testing.T) {
	sink := newRecordingSink()
	rt, _ := newTestRouter(sink)
	rt.SetTypingStopDelay(20 * time.Millisecond)

	rt.Subscribe("general", "alice")
	rt.Subscribe("general", "bob")

	rt.NotifyTyping("general", "alice", "Alice")

	types := sink.eventTypes("bob")
	require.Len(t, types, 1)
	assert.Equal(t, domain.EventTypingStart, types[0])
	// The typist never hears their own typing.
	assert.Empty(t, sink.eventTypes("alice"))

	require.Eventually(t, func() bool {
		types := sink.eventTypes("bob")
		return len(types) == 2 && types[1] == domain.EventTypingStop
	}, time.Second, 5*time.Millisecond)
}

func TestNotifyTypingResetsTimer(t *testing.T) {
	sink := newRecordingSink()
	rt, _ := newTestRouter(sink)
	rt.SetTypingStopDelay(40 * time.Millisecond)

	rt.Subscribe("general", "alice")
	rt.Subscribe("general", "bob")

	rt.NotifyTyping("general", "alice", "Alice")
	time.Sleep(25 * time.Millisecond)
	rt.NotifyTyping("general", "alice", "Alice")
	time.Sleep(25 * time.Millisecond)

	// The second signal pushed the stop out; only typing_start events so far.
	for _, typ := range sink.eventTypes("bob") {
		assert.Equal(t, domain.EventTypingStart, typ)
	}

	require.Eventually(t, func() bool {
		types := sink.eventTypes("bob")
		return len(types) == 3 && types[2] == domain.EventTypingStop
	}, time.Second, 5*time.Millisecond)
}

func TestNotifyTypingRenewalNeverEmitsStaleStop(t *testing.T) {
	sink := newRecordingSink()
	rt, _ := newTestRouter(sink)
	rt.SetTypingStopDelay(40 * time.Millisecond)

	rt.Subscribe("general", "alice")
	rt.Subscribe("general", "bob")

	// Continuous typing renews the stop timer well inside its window,
	// including renewals that land right as an earlier timer expires.
	for i := 0; i < 12; i++ {
		rt.NotifyTyping("general", "alice", "Alice")
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		types := sink.eventTypes("bob")
		return types[len(types)-1] == domain.EventTypingStop
	}, time.Second, 5*time.Millisecond)

	// Exactly one stop, and only after the last start: no stop ever slipped
	// out between renewals, and no orphaned timer fires a second one.
	time.Sleep(100 * time.Millisecond)
	types := sink.eventTypes("bob")
	stops := 0
	for _, typ := range types {
		if typ == domain.EventTypingStop {
			stops++
		}
	}
	require.Equal(t, 1, stops)
	assert.Equal(t, domain.EventTypingStop, types[len(types)-1])
}

func TestUnsubscribeCancelsTypingTimer(t *testing.T) {
	sink := newRecordingSink()
	rt, _ := newTestRouter(sink)
	rt.SetTypingStopDelay(20 * time.Millisecond)

	rt.Subscribe("general", "alice")
	rt.Subscribe("general", "bob")

	rt.NotifyTyping("general", "alice", "Alice")
	rt.Unsubscribe("general", "alice")

	time.Sleep(50 * time.Millisecond)
	types := sink.eventTypes("bob")
	assert.NotContains(t, types, domain.EventTypingStop)
}

func TestDropIdentityClearsEverything(t *testing.T) {
	sink := newRecordingSink()
	rt, _ := newTestRouter(sink)
	rt.SetTypingStopDelay(20 * time.Millisecond)

	rt.Subscribe("general", "alice")
	rt.Subscribe("random", "alice")
	rt.Subscribe("general", "bob")
	rt.NotifyTyping("general", "alice", "Alice")

	rt.DropIdentity("alice")
	assert.False(t, rt.IsSubscribed("general", "alice"))
	assert.False(t, rt.IsSubscribed("random", "alice"))
	assert.True(t, rt.IsSubscribed("general", "bob"))

	time.Sleep(50 * time.Millisecond)
	assert.NotContains(t, sink.eventTypes("bob"), domain.EventTypingStop)
}

func TestShutdownStopsTimers(t *testing.T) {
	sink := newRecordingSink()
	rt, _ := newTestRouter(sink)
	rt.SetTypingStopDelay(20 * time.Millisecond)

	rt.Subscribe("general", "alice")
	rt.Subscribe("general", "bob")
	rt.NotifyTyping("general", "alice", "Alice")

	rt.Shutdown()
	time.Sleep(50 * time.Millisecond)
	assert.NotContains(t, sink.eventTypes("bob"), domain.EventTypingStop)
}
