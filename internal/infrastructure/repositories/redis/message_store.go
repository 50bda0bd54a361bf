package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisMessageStore appends chat records to the per-channel list the CRUD
// service serves history from (voxhub:channel:<channel_id>:messages).
type RedisMessageStore struct {
	client *redis.Client
}

func NewRedisMessageStore(client *redis.Client) ports.MessageStore {
	return &RedisMessageStore{client: client}
}

func (s *RedisMessageStore) messagesKey(channelID domain.ChannelID) string {
	return fmt.Sprintf("voxhub:channel:%s:messages", channelID)
}

func (s *RedisMessageStore) AppendText(ctx context.Context, channelID domain.ChannelID, authorID domain.IdentityID, content string) (*domain.Message, error) {
	return s.append(ctx, &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		ChannelID: channelID,
		AuthorID:  authorID,
		Kind:      domain.MessageText,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

func (s *RedisMessageStore) AppendCallRecord(ctx context.Context, channelID domain.ChannelID, authorID domain.IdentityID, durationMS int64) (*domain.Message, error) {
	return s.append(ctx, &domain.Message{
		ID:           domain.MessageID(uuid.NewString()),
		ChannelID:    channelID,
		AuthorID:     authorID,
		Kind:         domain.MessageCallEnded,
		CallDuration: durationMS,
		CreatedAt:    time.Now(),
	})
}

func (s *RedisMessageStore) append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := s.client.RPush(ctx, s.messagesKey(msg.ChannelID), data).Err(); err != nil {
		return nil, fmt.Errorf("failed to append message to Redis: %w", err)
	}
	return msg, nil
}
