package domain

import "strings"

// VoiceParticipant is the ephemeral state of one identity inside a voice
// room. It exists only while the identity is joined; nothing here is
// persisted and a server restart legitimately resets all of it.
type VoiceParticipant struct {
	IdentityID  IdentityID `json:"identity_id"`
	DisplayName string     `json:"display_name"`
	Muted       bool       `json:"muted"`
	Deafened    bool       `json:"deafened"`
	Speaking    bool       `json:"speaking"`
}

// ChannelRoom is the voice room key for an ordinary voice channel.
func ChannelRoom(channelID ChannelID) RoomID {
	return RoomID("channel:" + string(channelID))
}

// GroupCallRoom is the synthetic voice room key for an accepted group call.
func GroupCallRoom(groupID GroupID) RoomID {
	return RoomID("call:" + string(groupID))
}

// Channel reports whether r is a channel room and, if so, which channel.
func (r RoomID) Channel() (ChannelID, bool) {
	if s, ok := strings.CutPrefix(string(r), "channel:"); ok {
		return ChannelID(s), true
	}
	return "", false
}

// GroupCall reports whether r is a group-call room and, if so, which call.
func (r RoomID) GroupCall() (GroupID, bool) {
	if s, ok := strings.CutPrefix(string(r), "call:"); ok {
		return GroupID(s), true
	}
	return "", false
}
