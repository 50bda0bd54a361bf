package redis

import (
	"context"
	"fmt"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisFriendGraph reads the mutual-friend sets the account service
// maintains under voxhub:friends:<identity_id>.
type RedisFriendGraph struct {
	client *redis.Client
	prefix string
}

func NewRedisFriendGraph(client *redis.Client) ports.FriendGraph {
	return &RedisFriendGraph{
		client: client,
		prefix: "voxhub:friends:",
	}
}

func (g *RedisFriendGraph) friendsKey(id domain.IdentityID) string {
	return g.prefix + string(id)
}

func (g *RedisFriendGraph) MutualFriendsOf(ctx context.Context, id domain.IdentityID) ([]domain.IdentityID, error) {
	ids, err := g.client.SMembers(ctx, g.friendsKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read friends of %s: %w", id, err)
	}

	out := make([]domain.IdentityID, 0, len(ids))
	for _, s := range ids {
		out = append(out, domain.IdentityID(s))
	}
	return out, nil
}

func (g *RedisFriendGraph) AreFriends(ctx context.Context, a, b domain.IdentityID) (bool, error) {
	ok, err := g.client.SIsMember(ctx, g.friendsKey(a), string(b)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return ok, nil
}
