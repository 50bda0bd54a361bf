package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"

	"go.uber.org/zap"
)

// DefaultTypingStopDelay is how long after the last typing signal the
// automatic typing_stop broadcast fires.
const DefaultTypingStopDelay = 3 * time.Second

type typingKey struct {
	channel  domain.ChannelID
	identity domain.IdentityID
}

// typingEntry tags each armed stop timer with a generation so a callback
// that fired while a renewal held the lock can tell it went stale.
type typingEntry struct {
	timer *time.Timer
	gen   uint64
}

// Router is the dual-mode broadcast fan-out. Viewer-scoped delivery only
// costs work proportional to active subscribers; membership-scoped delivery
// reaches every group member so sidebars stay correct without a
// subscription.
type Router struct {
	sink   ports.EventSink
	groups ports.GroupMembership

	mu          sync.Mutex
	subscribers map[domain.ChannelID]map[domain.IdentityID]struct{}
	channelsOf  map[domain.IdentityID]map[domain.ChannelID]struct{}
	typing      map[typingKey]*typingEntry
	typingGen   uint64

	typingStopDelay time.Duration
	logger          *zap.SugaredLogger
}

func New(sink ports.EventSink, groups ports.GroupMembership, logger *zap.SugaredLogger) *Router {
	return &Router{
		sink:            sink,
		groups:          groups,
		subscribers:     make(map[domain.ChannelID]map[domain.IdentityID]struct{}),
		channelsOf:      make(map[domain.IdentityID]map[domain.ChannelID]struct{}),
		typing:          make(map[typingKey]*typingEntry),
		typingStopDelay: DefaultTypingStopDelay,
		logger:          logger,
	}
}

// SetTypingStopDelay overrides the typing debounce window.
func (rt *Router) SetTypingStopDelay(d time.Duration) {
	rt.typingStopDelay = d
}

// Subscribe marks id as currently viewing channelID. Subscriptions are
// session-scoped; clients resubscribe after reconnecting.
func (rt *Router) Subscribe(channelID domain.ChannelID, id domain.IdentityID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	subs, ok := rt.subscribers[channelID]
	if !ok {
		subs = make(map[domain.IdentityID]struct{})
		rt.subscribers[channelID] = subs
	}
	subs[id] = struct{}{}

	chans, ok := rt.channelsOf[id]
	if !ok {
		chans = make(map[domain.ChannelID]struct{})
		rt.channelsOf[id] = chans
	}
	chans[channelID] = struct{}{}
}

// Unsubscribe removes the viewing relation and cancels any typing timer the
// identity holds on the channel.
func (rt *Router) Unsubscribe(channelID domain.ChannelID, id domain.IdentityID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.removeSubscription(channelID, id)
	rt.cancelTyping(typingKey{channelID, id})
}

// DropIdentity clears every subscription and typing timer the identity
// holds. Called when the identity goes fully offline.
func (rt *Router) DropIdentity(id domain.IdentityID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for channelID := range rt.channelsOf[id] {
		rt.removeSubscription(channelID, id)
		rt.cancelTyping(typingKey{channelID, id})
	}
	delete(rt.channelsOf, id)
}

// IsSubscribed reports whether id currently views channelID.
func (rt *Router) IsSubscribed(channelID domain.ChannelID, id domain.IdentityID) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	_, ok := rt.subscribers[channelID][id]
	return ok
}

// BroadcastToViewers delivers only to identities subscribed to channelID,
// skipping exclude.
func (rt *Router) BroadcastToViewers(channelID domain.ChannelID, event domain.Event, exclude domain.IdentityID) {
	rt.mu.Lock()
	targets := make([]domain.IdentityID, 0, len(rt.subscribers[channelID]))
	for id := range rt.subscribers[channelID] {
		if id != exclude {
			targets = append(targets, id)
		}
	}
	rt.mu.Unlock()

	for _, id := range targets {
		rt.sink.Deliver(id, event)
	}
}

// BroadcastToMembers delivers to every member of groupID regardless of
// subscription, skipping exclude.
func (rt *Router) BroadcastToMembers(ctx context.Context, groupID domain.GroupID, event domain.Event, exclude domain.IdentityID) error {
	members, err := rt.groups.MembersOf(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to resolve members of group %s: %w", groupID, err)
	}
	for _, id := range members {
		if id != exclude {
			rt.sink.Deliver(id, event)
		}
	}
	return nil
}

// NotifyTyping broadcasts typing_start to the channel's viewers and arms the
// automatic typing_stop. A newer typing signal from the same identity replaces
// the armed stop instead of stacking another; a stop callback that already
// fired but lost the lock race checks its generation and bows out, so a
// renewed typing_start is never followed by a stale typing_stop.
func (rt *Router) NotifyTyping(channelID domain.ChannelID, id domain.IdentityID, displayName string) {
	payload := map[string]any{
		"channel_id":   channelID,
		"identity_id":  id,
		"display_name": displayName,
	}
	rt.BroadcastToViewers(channelID, domain.NewEvent(domain.EventTypingStart, payload), id)

	key := typingKey{channelID, id}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if e, ok := rt.typing[key]; ok {
		e.timer.Stop()
	}
	rt.typingGen++
	gen := rt.typingGen
	rt.typing[key] = &typingEntry{
		gen: gen,
		timer: time.AfterFunc(rt.typingStopDelay, func() {
			rt.mu.Lock()
			e, ok := rt.typing[key]
			if !ok || e.gen != gen {
				rt.mu.Unlock()
				return
			}
			delete(rt.typing, key)
			rt.mu.Unlock()
			rt.BroadcastToViewers(channelID, domain.NewEvent(domain.EventTypingStop, map[string]any{
				"channel_id":  channelID,
				"identity_id": id,
			}), id)
		}),
	}
}

// Shutdown cancels all outstanding typing timers.
func (rt *Router) Shutdown() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for key, e := range rt.typing {
		e.timer.Stop()
		delete(rt.typing, key)
	}
}

// removeSubscription assumes rt.mu is held.
func (rt *Router) removeSubscription(channelID domain.ChannelID, id domain.IdentityID) {
	if subs, ok := rt.subscribers[channelID]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(rt.subscribers, channelID)
		}
	}
	if chans, ok := rt.channelsOf[id]; ok {
		delete(chans, channelID)
		if len(chans) == 0 {
			delete(rt.channelsOf, id)
		}
	}
}

// cancelTyping assumes rt.mu is held. A callback that already fired finds
// its key gone (or superseded) and broadcasts nothing.
func (rt *Router) cancelTyping(key typingKey) {
	if e, ok := rt.typing[key]; ok {
		e.timer.Stop()
		delete(rt.typing, key)
	}
}
