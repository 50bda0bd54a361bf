package ports

import (
	"context"

	"voxhub/internal/core/domain"
)

// MessageStore persists chat records. The hub only appends: the single
// write it performs is the synthesized call-history message.
type MessageStore interface {
	// AppendText stores an ordinary message with an opaque body.
	AppendText(ctx context.Context, channelID domain.ChannelID, authorID domain.IdentityID, content string) (*domain.Message, error)
	// AppendCallRecord stores a call-ended history record. Duration is in
	// milliseconds.
	AppendCallRecord(ctx context.Context, channelID domain.ChannelID, authorID domain.IdentityID, durationMS int64) (*domain.Message, error)
}

// FriendGraph exposes the mutual-friend relation maintained elsewhere.
type FriendGraph interface {
	MutualFriendsOf(ctx context.Context, id domain.IdentityID) ([]domain.IdentityID, error)
	AreFriends(ctx context.Context, a, b domain.IdentityID) (bool, error)
}

// GroupMembership exposes group membership maintained elsewhere.
type GroupMembership interface {
	GroupsOf(ctx context.Context, id domain.IdentityID) ([]domain.GroupID, error)
	MembersOf(ctx context.Context, groupID domain.GroupID) ([]domain.IdentityID, error)
	// GroupOfChannel resolves which group a voice channel belongs to,
	// so channel-level voice events can be membership-scoped.
	GroupOfChannel(ctx context.Context, channelID domain.ChannelID) (domain.GroupID, error)
}
