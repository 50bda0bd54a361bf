package memory

import (
	"context"
	"sync"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"
)

// MemoryFriendGraph is the in-memory mutual-friend relation, used for
// development and tests. The relation is kept symmetric on write.
type MemoryFriendGraph struct {
	mu      sync.RWMutex
	friends map[domain.IdentityID]map[domain.IdentityID]struct{}
}

func NewMemoryFriendGraph() *MemoryFriendGraph {
	return &MemoryFriendGraph{
		friends: make(map[domain.IdentityID]map[domain.IdentityID]struct{}),
	}
}

var _ ports.FriendGraph = (*MemoryFriendGraph)(nil)

// AddFriendship records a mutual friendship between a and b.
func (g *MemoryFriendGraph) AddFriendship(a, b domain.IdentityID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.link(a, b)
	g.link(b, a)
}

func (g *MemoryFriendGraph) MutualFriendsOf(ctx context.Context, id domain.IdentityID) ([]domain.IdentityID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]domain.IdentityID, 0, len(g.friends[id]))
	for f := range g.friends[id] {
		out = append(out, f)
	}
	return out, nil
}

func (g *MemoryFriendGraph) AreFriends(ctx context.Context, a, b domain.IdentityID) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.friends[a][b]
	return ok, nil
}

// link assumes g.mu is held.
func (g *MemoryFriendGraph) link(from, to domain.IdentityID) {
	set, ok := g.friends[from]
	if !ok {
		set = make(map[domain.IdentityID]struct{})
		g.friends[from] = set
	}
	set[to] = struct{}{}
}
