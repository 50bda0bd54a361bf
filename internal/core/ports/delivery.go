package ports

import (
	"context"

	"voxhub/internal/core/domain"
)

// EventSink delivers events to every live connection of an identity.
// Delivery is best-effort: an offline identity is a silent no-op.
type EventSink interface {
	Deliver(id domain.IdentityID, event domain.Event)
	IsOnline(id domain.IdentityID) bool
}

// Broadcaster is the dual-mode fan-out used for channel and group traffic.
type Broadcaster interface {
	// BroadcastToViewers reaches only identities currently subscribed to
	// the channel. Used for message-level traffic.
	BroadcastToViewers(channelID domain.ChannelID, event domain.Event, exclude domain.IdentityID)
	// BroadcastToMembers reaches every member of the group regardless of
	// subscription. Used for structural events.
	BroadcastToMembers(ctx context.Context, groupID domain.GroupID, event domain.Event, exclude domain.IdentityID) error
}
