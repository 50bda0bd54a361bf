package domain

// EventType names every outbound event the hub can emit. The set is closed;
// routing code switches over these constants and treats anything else as a
// programming error.
type EventType string

const (
	EventError         EventType = "error"
	EventAuthenticated EventType = "authenticated"
	EventHeartbeatAck  EventType = "heartbeat_ack"

	EventPresenceChanged EventType = "presence_changed"

	EventSubscribeAck   EventType = "subscribe_ack"
	EventUnsubscribeAck EventType = "unsubscribe_ack"
	EventTypingStart    EventType = "typing_start"
	EventTypingStop     EventType = "typing_stop"
	EventMessageCreated EventType = "message_created"

	EventVoiceRoster      EventType = "voice_roster"
	EventVoiceUserJoined  EventType = "voice_user_joined"
	EventVoiceUserLeft    EventType = "voice_user_left"
	EventVoiceUserUpdated EventType = "voice_user_updated"

	EventSessionOffer       EventType = "session_offer"
	EventSessionAnswer      EventType = "session_answer"
	EventICECandidate       EventType = "ice_candidate"
	EventScreenOffer        EventType = "screen_offer"
	EventScreenAnswer       EventType = "screen_answer"
	EventScreenICECandidate EventType = "screen_ice_candidate"
	EventScreenStop         EventType = "screen_stop"

	EventCallIncoming  EventType = "dm_call_incoming"
	EventCallAccepted  EventType = "dm_call_accepted"
	EventCallRejected  EventType = "dm_call_rejected"
	EventCallCancelled EventType = "dm_call_cancelled"
	EventCallEnded     EventType = "dm_call_ended"
	EventCallRejoined  EventType = "dm_call_rejoined"

	EventGroupCallCreated    EventType = "group_call_created"
	EventGroupCallInvite     EventType = "group_call_invite"
	EventGroupCallJoined     EventType = "group_call_member_joined"
	EventGroupCallMemberLeft EventType = "group_call_member_left"
	EventGroupCallDeleted    EventType = "group_call_deleted"
)

// Event is the outbound wire envelope. Payload must marshal to JSON.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// NewEvent builds an outbound envelope.
func NewEvent(t EventType, payload any) Event {
	return Event{Type: t, Payload: payload}
}

// ErrorEvent is the structured error surfaced to the originating connection.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Payload: map[string]string{"message": message}}
}
