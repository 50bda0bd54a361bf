package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomIDRoundTrip(t *testing.T) {
	room := ChannelRoom("general")
	channelID, ok := room.Channel()
	assert.True(t, ok)
	assert.Equal(t, ChannelID("general"), channelID)
	_, ok = room.GroupCall()
	assert.False(t, ok)

	room = GroupCallRoom("g1")
	groupID, ok := room.GroupCall()
	assert.True(t, ok)
	assert.Equal(t, GroupID("g1"), groupID)
	_, ok = room.Channel()
	assert.False(t, ok)
}

func TestCallSessionState(t *testing.T) {
	s := &CallSession{StarterID: "alice", TargetID: "bob"}
	assert.Equal(t, CallRinging, s.State())

	s.StartTime = time.Now()
	assert.Equal(t, CallActive, s.State())
}

func TestCallSessionOtherParty(t *testing.T) {
	s := &CallSession{StarterID: "alice", TargetID: "bob"}
	assert.Equal(t, IdentityID("bob"), s.OtherParty("alice"))
	assert.Equal(t, IdentityID("alice"), s.OtherParty("bob"))
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusOnline, StatusIdle, StatusDND, StatusOffline} {
		assert.True(t, ValidStatus(s))
	}
	assert.False(t, ValidStatus("away"))
	assert.False(t, ValidStatus(""))
}
