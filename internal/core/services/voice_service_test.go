package services

import (
	"testing"

	"voxhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceJoinReturnsRoster(t *testing.T) {
	svc := NewVoiceService()
	room := domain.ChannelRoom("general")

	roster := svc.Join(room, domain.VoiceParticipant{IdentityID: "alice", DisplayName: "Alice"})
	assert.Len(t, roster, 1)

	roster = svc.Join(room, domain.VoiceParticipant{IdentityID: "bob", DisplayName: "Bob", Muted: true})
	assert.Len(t, roster, 2)
	assert.Equal(t, 2, svc.ParticipantCount())
}

func TestVoiceJoinIsUpsert(t *testing.T) {
	svc := NewVoiceService()
	room := domain.ChannelRoom("general")

	svc.Join(room, domain.VoiceParticipant{IdentityID: "alice"})
	roster := svc.Join(room, domain.VoiceParticipant{IdentityID: "alice", Muted: true})

	require.Len(t, roster, 1)
	assert.True(t, roster[0].Muted)
}

func TestVoiceLeave(t *testing.T) {
	svc := NewVoiceService()
	room := domain.ChannelRoom("general")

	svc.Join(room, domain.VoiceParticipant{IdentityID: "alice"})
	assert.True(t, svc.Leave(room, "alice"))
	assert.False(t, svc.Leave(room, "alice"))
	assert.Empty(t, svc.Participants(room))
}

func TestVoiceUpdateMutatesInPlace(t *testing.T) {
	svc := NewVoiceService()
	room := domain.GroupCallRoom("g1")

	svc.Join(room, domain.VoiceParticipant{IdentityID: "alice"})

	updated, err := svc.Update(room, "alice", func(p *domain.VoiceParticipant) {
		p.Speaking = true
	})
	require.NoError(t, err)
	assert.True(t, updated.Speaking)

	participants := svc.Participants(room)
	require.Len(t, participants, 1)
	assert.True(t, participants[0].Speaking)
}

func TestVoiceUpdateUnknownParticipant(t *testing.T) {
	svc := NewVoiceService()
	_, err := svc.Update(domain.ChannelRoom("general"), "ghost", func(p *domain.VoiceParticipant) {})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVoiceLeaveAllVacatesEveryRoom(t *testing.T) {
	svc := NewVoiceService()
	chanRoom := domain.ChannelRoom("general")
	callRoom := domain.GroupCallRoom("g1")

	svc.Join(chanRoom, domain.VoiceParticipant{IdentityID: "alice"})
	svc.Join(callRoom, domain.VoiceParticipant{IdentityID: "alice"})
	svc.Join(chanRoom, domain.VoiceParticipant{IdentityID: "bob"})

	vacated := svc.LeaveAll("alice")
	assert.ElementsMatch(t, []domain.RoomID{chanRoom, callRoom}, vacated)
	assert.Equal(t, 1, svc.ParticipantCount())

	// Rooms the identity never occupied yield nothing.
	assert.Empty(t, svc.LeaveAll("alice"))
}
