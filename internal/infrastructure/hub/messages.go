package hub

import (
	"encoding/json"

	"voxhub/internal/core/domain"
)

// MessageType names every inbound message the hub accepts. Dispatch
// switches over this closed set; anything else earns a structured error.
type MessageType string

const (
	MsgAuthenticate MessageType = "authenticate"
	MsgHeartbeat    MessageType = "heartbeat"
	MsgPresence     MessageType = "presence"

	MsgSubscribe   MessageType = "subscribe"
	MsgUnsubscribe MessageType = "unsubscribe"
	MsgTyping      MessageType = "typing"

	MsgVoiceJoin     MessageType = "voice_join"
	MsgVoiceLeave    MessageType = "voice_leave"
	MsgVoiceSpeaking MessageType = "voice_speaking"
	MsgVoiceMute     MessageType = "voice_mute"
	MsgVoiceDeafen   MessageType = "voice_deafen"

	MsgSessionOffer       MessageType = "session_offer"
	MsgSessionAnswer      MessageType = "session_answer"
	MsgICECandidate       MessageType = "ice_candidate"
	MsgScreenOffer        MessageType = "screen_offer"
	MsgScreenAnswer       MessageType = "screen_answer"
	MsgScreenICECandidate MessageType = "screen_ice_candidate"
	MsgScreenStop         MessageType = "screen_stop"

	MsgCallStart  MessageType = "dm_call_start"
	MsgCallAccept MessageType = "dm_call_accept"
	MsgCallReject MessageType = "dm_call_reject"
	MsgCallEnd    MessageType = "dm_call_end"
	MsgCallCancel MessageType = "dm_call_cancel"
	MsgCallRejoin MessageType = "dm_call_rejoin"

	MsgGroupCallCreate MessageType = "group_call_create"
	MsgGroupCallJoin   MessageType = "group_call_join"
	MsgGroupCallLeave  MessageType = "group_call_leave"
)

// InboundMessage is the wire envelope read off the socket.
type InboundMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// relayEvents maps pure-forwarding message types to their outbound twins.
var relayEvents = map[MessageType]domain.EventType{
	MsgSessionOffer:       domain.EventSessionOffer,
	MsgSessionAnswer:      domain.EventSessionAnswer,
	MsgICECandidate:       domain.EventICECandidate,
	MsgScreenOffer:        domain.EventScreenOffer,
	MsgScreenAnswer:       domain.EventScreenAnswer,
	MsgScreenICECandidate: domain.EventScreenICECandidate,
	MsgScreenStop:         domain.EventScreenStop,
}

type authenticatePayload struct {
	Token string `json:"token"`
}

type presencePayload struct {
	Status domain.Status `json:"status"`
}

type channelPayload struct {
	ChannelID domain.ChannelID `json:"channel_id"`
}

type voicePayload struct {
	ChannelID   domain.ChannelID `json:"channel_id,omitempty"`
	GroupCallID domain.GroupID   `json:"group_call_id,omitempty"`
	Muted       bool             `json:"muted,omitempty"`
	Deafened    bool             `json:"deafened,omitempty"`
	Speaking    bool             `json:"speaking,omitempty"`
}

type dmCallPayload struct {
	ChannelID        domain.ChannelID  `json:"channel_id"`
	TargetIdentityID domain.IdentityID `json:"target_identity_id,omitempty"`
}

type groupCallCreatePayload struct {
	Name    string              `json:"name"`
	Invited []domain.IdentityID `json:"invited"`
}

type groupCallPayload struct {
	GroupID domain.GroupID `json:"group_id"`
}
