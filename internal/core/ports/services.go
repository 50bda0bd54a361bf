package ports

import (
	"context"

	"voxhub/internal/core/domain"
)

// PresenceService tracks identity status and fans out transitions.
type PresenceService interface {
	// HandleConnect is invoked when the first connection of an identity
	// authenticates; it transitions the identity to online.
	HandleConnect(ctx context.Context, id domain.IdentityID)
	// HandleDisconnect is invoked when the last connection of an identity
	// closes; it transitions the identity to offline.
	HandleDisconnect(ctx context.Context, id domain.IdentityID)
	// SetStatus applies an explicit status change. Setting the current
	// status again is a no-op and produces no outbound events.
	SetStatus(ctx context.Context, id domain.IdentityID, status domain.Status) error
	Status(id domain.IdentityID) domain.Status
}

// CallService runs the one-to-one call state machine, at most one session
// per DM channel.
type CallService interface {
	Start(ctx context.Context, channelID domain.ChannelID, starterID domain.IdentityID, starterName string, targetID domain.IdentityID) error
	Accept(ctx context.Context, channelID domain.ChannelID, calleeID domain.IdentityID) error
	Reject(ctx context.Context, channelID domain.ChannelID, byID domain.IdentityID) error
	Cancel(ctx context.Context, channelID domain.ChannelID, byID domain.IdentityID) error
	End(ctx context.Context, channelID domain.ChannelID, byID domain.IdentityID) error
	// Rejoin notifies the other party that a peer reconnected mid-call.
	// Informational only; no state change.
	Rejoin(ctx context.Context, channelID domain.ChannelID, byID domain.IdentityID) error
	// Session returns a snapshot of the session for the channel, if any.
	Session(channelID domain.ChannelID) (*domain.CallSession, bool)
	ActiveCount() int
	// Shutdown cancels all pending ringing timers.
	Shutdown()
}

// GroupCallService manages the invite/accept/leave lifecycle of bounded
// voice rooms.
type GroupCallService interface {
	Create(ctx context.Context, ownerID domain.IdentityID, name string, invited []domain.IdentityID) (*domain.GroupCallView, error)
	Accept(ctx context.Context, groupID domain.GroupID, id domain.IdentityID) error
	Leave(ctx context.Context, groupID domain.GroupID, id domain.IdentityID) error
	Get(ctx context.Context, groupID domain.GroupID) (*domain.GroupCallView, error)
	// List returns the calls the identity is a member of or invited to.
	List(ctx context.Context, id domain.IdentityID) ([]*domain.GroupCallView, error)
	// Members returns the active member set, used to scope voice events.
	Members(groupID domain.GroupID) ([]domain.IdentityID, error)
	// LeaveAll removes the identity from every call it is a member of,
	// applying the usual teardown rules. Used on disconnect.
	LeaveAll(ctx context.Context, id domain.IdentityID)
	ActiveCount() int
}

// VoiceService is the ephemeral voice participant table shared by channel
// voice rooms and group-call rooms.
type VoiceService interface {
	// Join upserts the participant and returns the room roster.
	Join(room domain.RoomID, p domain.VoiceParticipant) []domain.VoiceParticipant
	// Leave removes the participant; reports whether it was present.
	Leave(room domain.RoomID, id domain.IdentityID) bool
	// Update mutates the participant in place and returns the result.
	Update(room domain.RoomID, id domain.IdentityID, fn func(*domain.VoiceParticipant)) (*domain.VoiceParticipant, error)
	Participants(room domain.RoomID) []domain.VoiceParticipant
	// LeaveAll removes the identity from every room it occupies and
	// returns the vacated room keys.
	LeaveAll(id domain.IdentityID) []domain.RoomID
	ParticipantCount() int
}
