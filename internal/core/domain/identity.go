package domain

type IdentityID string
type ChannelID string
type GroupID string
type RoomID string

// Status is the presence state of an identity as seen by its peers.
type Status string

const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusDND     Status = "dnd"
	StatusOffline Status = "offline"
)

// ValidStatus reports whether s is one of the four presence states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOnline, StatusIdle, StatusDND, StatusOffline:
		return true
	}
	return false
}

// Identity is the hub's view of a user. The hub only reads the display name
// and routes by ID; everything else about the account lives elsewhere.
type Identity struct {
	ID          IdentityID
	DisplayName string
	Status      Status
}
