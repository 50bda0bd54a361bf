package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type groupCallService struct {
	friends ports.FriendGraph
	sink    ports.EventSink

	mu    sync.Mutex
	calls map[domain.GroupID]*domain.GroupCall

	logger *zap.SugaredLogger
}

// NewGroupCallService builds the bounded-membership group call manager.
// Group calls are hub-local: they exist only in memory and are scoped to
// their own member set, not to persistent group membership.
func NewGroupCallService(friends ports.FriendGraph, sink ports.EventSink, logger *zap.SugaredLogger) ports.GroupCallService {
	return &groupCallService{
		friends: friends,
		sink:    sink,
		calls:   make(map[domain.GroupID]*domain.GroupCall),
		logger:  logger,
	}
}

func (g *groupCallService) Create(ctx context.Context, ownerID domain.IdentityID, name string, invited []domain.IdentityID) (*domain.GroupCallView, error) {
	if 1+len(invited) > domain.MaxGroupCallMembers {
		return nil, domain.ErrCapacityExceeded
	}
	for _, id := range invited {
		if id == ownerID {
			return nil, fmt.Errorf("%w: cannot invite yourself", domain.ErrInvalidState)
		}
		ok, err := g.friends.AreFriends(ctx, ownerID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check friendship with %s: %w", id, err)
		}
		if !ok {
			return nil, domain.ErrNotFriends
		}
	}

	call := &domain.GroupCall{
		ID:      domain.GroupID(uuid.NewString()),
		OwnerID: ownerID,
		Name:    name,
		Members: map[domain.IdentityID]struct{}{ownerID: {}},
		Invited: make(map[domain.IdentityID]struct{}, len(invited)),
	}
	for _, id := range invited {
		call.Invited[id] = struct{}{}
	}

	g.mu.Lock()
	g.calls[call.ID] = call
	view := projectGroupCall(call)
	g.mu.Unlock()

	invite := domain.NewEvent(domain.EventGroupCallInvite, map[string]any{
		"group_id": call.ID,
		"owner_id": ownerID,
		"name":     name,
	})
	for _, id := range invited {
		g.sink.Deliver(id, invite)
	}

	g.logger.Infow("group call created",
		"group_id", call.ID, "owner_id", ownerID, "invited", len(invited))
	return view, nil
}

func (g *groupCallService) Accept(ctx context.Context, groupID domain.GroupID, id domain.IdentityID) error {
	g.mu.Lock()
	call, ok := g.calls[groupID]
	if !ok {
		g.mu.Unlock()
		return domain.ErrNotFound
	}
	if _, member := call.Members[id]; member {
		// Accepting twice is harmless.
		g.mu.Unlock()
		return nil
	}
	if _, invited := call.Invited[id]; !invited {
		g.mu.Unlock()
		return domain.ErrNotInvited
	}
	delete(call.Invited, id)
	call.Members[id] = struct{}{}
	members := memberIDs(call)
	g.mu.Unlock()

	joined := domain.NewEvent(domain.EventGroupCallJoined, map[string]any{
		"group_id":    groupID,
		"identity_id": id,
	})
	for _, m := range members {
		if m != id {
			g.sink.Deliver(m, joined)
		}
	}

	g.logger.Infow("group call accepted", "group_id", groupID, "identity_id", id)
	return nil
}

func (g *groupCallService) Leave(ctx context.Context, groupID domain.GroupID, id domain.IdentityID) error {
	g.mu.Lock()
	call, ok := g.calls[groupID]
	if !ok {
		g.mu.Unlock()
		return domain.ErrNotFound
	}
	if _, member := call.Members[id]; !member {
		g.mu.Unlock()
		return domain.ErrNotAMember
	}
	delete(call.Members, id)

	// Owner leaving or the room emptying tears the whole call down.
	if len(call.Members) == 0 || id == call.OwnerID {
		remaining := memberIDs(call)
		delete(g.calls, groupID)
		g.mu.Unlock()

		deleted := domain.NewEvent(domain.EventGroupCallDeleted, map[string]any{
			"group_id": groupID,
		})
		for _, m := range remaining {
			g.sink.Deliver(m, deleted)
		}
		g.logger.Infow("group call deleted", "group_id", groupID, "left", id)
		return nil
	}

	remaining := memberIDs(call)
	g.mu.Unlock()

	left := domain.NewEvent(domain.EventGroupCallMemberLeft, map[string]any{
		"group_id":    groupID,
		"identity_id": id,
	})
	for _, m := range remaining {
		g.sink.Deliver(m, left)
	}
	g.logger.Infow("group call member left", "group_id", groupID, "identity_id", id)
	return nil
}

func (g *groupCallService) Get(ctx context.Context, groupID domain.GroupID) (*domain.GroupCallView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	call, ok := g.calls[groupID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return projectGroupCall(call), nil
}

func (g *groupCallService) List(ctx context.Context, id domain.IdentityID) ([]*domain.GroupCallView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var views []*domain.GroupCallView
	for _, call := range g.calls {
		_, member := call.Members[id]
		_, invited := call.Invited[id]
		if member || invited {
			views = append(views, projectGroupCall(call))
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

func (g *groupCallService) Members(groupID domain.GroupID) ([]domain.IdentityID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	call, ok := g.calls[groupID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return memberIDs(call), nil
}

func (g *groupCallService) LeaveAll(ctx context.Context, id domain.IdentityID) {
	g.mu.Lock()
	var involved []domain.GroupID
	for groupID, call := range g.calls {
		if _, member := call.Members[id]; member {
			involved = append(involved, groupID)
		}
	}
	g.mu.Unlock()

	for _, groupID := range involved {
		if err := g.Leave(ctx, groupID, id); err != nil {
			g.logger.Warnw("group call teardown on disconnect failed",
				"group_id", groupID, "identity_id", id, "error", err)
		}
	}
}

func (g *groupCallService) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// memberIDs assumes g.mu is held.
func memberIDs(call *domain.GroupCall) []domain.IdentityID {
	out := make([]domain.IdentityID, 0, len(call.Members))
	for id := range call.Members {
		out = append(out, id)
	}
	return out
}

// projectGroupCall assumes g.mu is held.
func projectGroupCall(call *domain.GroupCall) *domain.GroupCallView {
	view := &domain.GroupCallView{
		ID:      call.ID,
		OwnerID: call.OwnerID,
		Name:    call.Name,
	}
	for id := range call.Members {
		view.Participants = append(view.Participants, domain.GroupCallParticipant{
			IdentityID: id,
			State:      domain.GroupCallActive,
		})
	}
	for id := range call.Invited {
		view.Participants = append(view.Participants, domain.GroupCallParticipant{
			IdentityID: id,
			State:      domain.GroupCallPending,
		})
	}
	sort.Slice(view.Participants, func(i, j int) bool {
		return view.Participants[i].IdentityID < view.Participants[j].IdentityID
	})
	return view
}
