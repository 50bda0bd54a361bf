package redis

import (
	"context"
	"fmt"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisGroupMembership reads group membership the CRUD service maintains:
// voxhub:group:<group_id>:members (set), voxhub:identity:<id>:groups (set)
// and voxhub:channel:<channel_id>:group (string).
type RedisGroupMembership struct {
	client *redis.Client
}

func NewRedisGroupMembership(client *redis.Client) ports.GroupMembership {
	return &RedisGroupMembership{client: client}
}

func (m *RedisGroupMembership) membersKey(groupID domain.GroupID) string {
	return fmt.Sprintf("voxhub:group:%s:members", groupID)
}

func (m *RedisGroupMembership) groupsKey(id domain.IdentityID) string {
	return fmt.Sprintf("voxhub:identity:%s:groups", id)
}

func (m *RedisGroupMembership) channelKey(channelID domain.ChannelID) string {
	return fmt.Sprintf("voxhub:channel:%s:group", channelID)
}

func (m *RedisGroupMembership) GroupsOf(ctx context.Context, id domain.IdentityID) ([]domain.GroupID, error) {
	ids, err := m.client.SMembers(ctx, m.groupsKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read groups of %s: %w", id, err)
	}

	out := make([]domain.GroupID, 0, len(ids))
	for _, s := range ids {
		out = append(out, domain.GroupID(s))
	}
	return out, nil
}

func (m *RedisGroupMembership) MembersOf(ctx context.Context, groupID domain.GroupID) ([]domain.IdentityID, error) {
	ids, err := m.client.SMembers(ctx, m.membersKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read members of group %s: %w", groupID, err)
	}

	out := make([]domain.IdentityID, 0, len(ids))
	for _, s := range ids {
		out = append(out, domain.IdentityID(s))
	}
	return out, nil
}

func (m *RedisGroupMembership) GroupOfChannel(ctx context.Context, channelID domain.ChannelID) (domain.GroupID, error) {
	s, err := m.client.Get(ctx, m.channelKey(channelID)).Result()
	if err == redis.Nil {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve group of channel %s: %w", channelID, err)
	}
	return domain.GroupID(s), nil
}
