package services

import (
	"context"
	"fmt"
	"sync"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"

	"go.uber.org/zap"
)

type presenceService struct {
	friends ports.FriendGraph
	groups  ports.GroupMembership
	sink    ports.EventSink

	mu     sync.RWMutex
	status map[domain.IdentityID]domain.Status

	logger *zap.SugaredLogger
}

// NewPresenceService builds the presence engine. Fan-out targets are the
// union of the identity's mutual friends and the members of every group it
// belongs to, deduplicated.
func NewPresenceService(friends ports.FriendGraph, groups ports.GroupMembership, sink ports.EventSink, logger *zap.SugaredLogger) ports.PresenceService {
	return &presenceService{
		friends: friends,
		groups:  groups,
		sink:    sink,
		status:  make(map[domain.IdentityID]domain.Status),
		logger:  logger,
	}
}

func (p *presenceService) HandleConnect(ctx context.Context, id domain.IdentityID) {
	if err := p.SetStatus(ctx, id, domain.StatusOnline); err != nil {
		p.logger.Warnw("presence fan-out on connect failed", "identity_id", id, "error", err)
	}
}

func (p *presenceService) HandleDisconnect(ctx context.Context, id domain.IdentityID) {
	if err := p.SetStatus(ctx, id, domain.StatusOffline); err != nil {
		p.logger.Warnw("presence fan-out on disconnect failed", "identity_id", id, "error", err)
	}
	p.mu.Lock()
	delete(p.status, id)
	p.mu.Unlock()
}

func (p *presenceService) SetStatus(ctx context.Context, id domain.IdentityID, status domain.Status) error {
	if !domain.ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidState, status)
	}

	p.mu.Lock()
	old, ok := p.status[id]
	if !ok {
		old = domain.StatusOffline
	}
	if old == status {
		p.mu.Unlock()
		return nil
	}
	p.status[id] = status
	p.mu.Unlock()

	targets, err := p.fanoutTargets(ctx, id)
	if err != nil {
		return err
	}

	event := domain.NewEvent(domain.EventPresenceChanged, map[string]any{
		"identity_id": id,
		"status":      status,
	})
	for target := range targets {
		p.sink.Deliver(target, event)
	}

	p.logger.Infow("presence changed",
		"identity_id", id, "status", status, "targets", len(targets))
	return nil
}

func (p *presenceService) Status(id domain.IdentityID) domain.Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.status[id]; ok {
		return s
	}
	return domain.StatusOffline
}

// fanoutTargets computes friends ∪ co-group-members, excluding the identity
// itself. The map keying is what guarantees an identity reachable through
// several paths receives exactly one event.
func (p *presenceService) fanoutTargets(ctx context.Context, id domain.IdentityID) (map[domain.IdentityID]struct{}, error) {
	targets := make(map[domain.IdentityID]struct{})

	friends, err := p.friends.MutualFriendsOf(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve friends of %s: %w", id, err)
	}
	for _, f := range friends {
		targets[f] = struct{}{}
	}

	groups, err := p.groups.GroupsOf(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve groups of %s: %w", id, err)
	}
	for _, g := range groups {
		members, err := p.groups.MembersOf(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve members of group %s: %w", g, err)
		}
		for _, m := range members {
			targets[m] = struct{}{}
		}
	}

	delete(targets, id)
	return targets, nil
}
