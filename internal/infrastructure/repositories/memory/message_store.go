package memory

import (
	"context"
	"sync"
	"time"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"

	"github.com/google/uuid"
)

// MemoryMessageStore is the in-memory message log, used for development and
// tests.
type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages map[domain.ChannelID][]*domain.Message
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{
		messages: make(map[domain.ChannelID][]*domain.Message),
	}
}

var _ ports.MessageStore = (*MemoryMessageStore)(nil)

func (s *MemoryMessageStore) AppendText(ctx context.Context, channelID domain.ChannelID, authorID domain.IdentityID, content string) (*domain.Message, error) {
	return s.append(&domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		ChannelID: channelID,
		AuthorID:  authorID,
		Kind:      domain.MessageText,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

func (s *MemoryMessageStore) AppendCallRecord(ctx context.Context, channelID domain.ChannelID, authorID domain.IdentityID, durationMS int64) (*domain.Message, error) {
	return s.append(&domain.Message{
		ID:           domain.MessageID(uuid.NewString()),
		ChannelID:    channelID,
		AuthorID:     authorID,
		Kind:         domain.MessageCallEnded,
		CallDuration: durationMS,
		CreatedAt:    time.Now(),
	})
}

// Messages returns the channel's log in insertion order.
func (s *MemoryMessageStore) Messages(channelID domain.ChannelID) []*domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Message, len(s.messages[channelID]))
	copy(out, s.messages[channelID])
	return out
}

func (s *MemoryMessageStore) append(msg *domain.Message) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ChannelID] = append(s.messages[msg.ChannelID], msg)
	return msg, nil
}
