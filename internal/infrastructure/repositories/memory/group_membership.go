package memory

import (
	"context"
	"sync"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"
)

// MemoryGroupMembership is the in-memory group membership table, used for
// development and tests.
type MemoryGroupMembership struct {
	mu             sync.RWMutex
	members        map[domain.GroupID]map[domain.IdentityID]struct{}
	groupsOf       map[domain.IdentityID]map[domain.GroupID]struct{}
	groupOfChannel map[domain.ChannelID]domain.GroupID
}

func NewMemoryGroupMembership() *MemoryGroupMembership {
	return &MemoryGroupMembership{
		members:        make(map[domain.GroupID]map[domain.IdentityID]struct{}),
		groupsOf:       make(map[domain.IdentityID]map[domain.GroupID]struct{}),
		groupOfChannel: make(map[domain.ChannelID]domain.GroupID),
	}
}

var _ ports.GroupMembership = (*MemoryGroupMembership)(nil)

// AddMember records id as a member of groupID.
func (m *MemoryGroupMembership) AddMember(groupID domain.GroupID, id domain.IdentityID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.members[groupID]
	if !ok {
		set = make(map[domain.IdentityID]struct{})
		m.members[groupID] = set
	}
	set[id] = struct{}{}

	groups, ok := m.groupsOf[id]
	if !ok {
		groups = make(map[domain.GroupID]struct{})
		m.groupsOf[id] = groups
	}
	groups[groupID] = struct{}{}
}

// BindChannel records that channelID belongs to groupID.
func (m *MemoryGroupMembership) BindChannel(channelID domain.ChannelID, groupID domain.GroupID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupOfChannel[channelID] = groupID
}

func (m *MemoryGroupMembership) GroupsOf(ctx context.Context, id domain.IdentityID) ([]domain.GroupID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.GroupID, 0, len(m.groupsOf[id]))
	for g := range m.groupsOf[id] {
		out = append(out, g)
	}
	return out, nil
}

func (m *MemoryGroupMembership) MembersOf(ctx context.Context, groupID domain.GroupID) ([]domain.IdentityID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.IdentityID, 0, len(m.members[groupID]))
	for id := range m.members[groupID] {
		out = append(out, id)
	}
	return out, nil
}

func (m *MemoryGroupMembership) GroupOfChannel(ctx context.Context, channelID domain.ChannelID) (domain.GroupID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	groupID, ok := m.groupOfChannel[channelID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return groupID, nil
}
