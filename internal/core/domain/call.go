package domain

import "time"

// CallState is the lifecycle stage of a one-to-one call session.
type CallState string

const (
	// CallRinging means the session exists but has not been accepted yet.
	CallRinging CallState = "ringing"
	// CallActive means the callee accepted and the start time is set.
	CallActive CallState = "active"
)

// CallSession is the in-memory record of a one-to-one call, keyed by the DM
// channel it runs over. At most one session may exist per DM channel.
type CallSession struct {
	ChannelID          ChannelID
	StarterID          IdentityID
	StarterDisplayName string
	TargetID           IdentityID
	// StartTime is zero until the call is accepted.
	StartTime    time.Time
	Participants map[IdentityID]struct{}
}

// State derives the lifecycle stage from the start time.
func (s *CallSession) State() CallState {
	if s.StartTime.IsZero() {
		return CallRinging
	}
	return CallActive
}

// OtherParty returns the counterpart of id in this session.
func (s *CallSession) OtherParty(id IdentityID) IdentityID {
	if id == s.StarterID {
		return s.TargetID
	}
	return s.StarterID
}
