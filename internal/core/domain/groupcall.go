package domain

// MaxGroupCallMembers bounds a group call, owner included.
const MaxGroupCallMembers = 10

// GroupCall is a small voice room with an owner and an invite/accept flow.
// Invariant: Members and Invited are disjoint; an identity moves from
// Invited to Members only through an accept.
type GroupCall struct {
	ID      GroupID
	OwnerID IdentityID
	Name    string
	Members map[IdentityID]struct{}
	Invited map[IdentityID]struct{}
}

// GroupCallParticipantState distinguishes active members from pending
// invitees in read-only projections.
type GroupCallParticipantState string

const (
	GroupCallActive  GroupCallParticipantState = "active"
	GroupCallPending GroupCallParticipantState = "pending"
)

// GroupCallParticipant is one row of the merged members+invited projection.
type GroupCallParticipant struct {
	IdentityID IdentityID                `json:"identity_id"`
	State      GroupCallParticipantState `json:"state"`
}

// GroupCallView is the read-only projection served to UI clients.
type GroupCallView struct {
	ID           GroupID                `json:"id"`
	OwnerID      IdentityID             `json:"owner_id"`
	Name         string                 `json:"name"`
	Participants []GroupCallParticipant `json:"participants"`
}
