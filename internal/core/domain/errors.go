package domain

import "errors"

var (
	ErrUnauthenticated  = errors.New("connection is not authenticated")
	ErrConnectionBound  = errors.New("connection is already bound to an identity")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidState     = errors.New("invalid state for operation")
	ErrCallInProgress   = errors.New("call already in progress for this channel")
	ErrCapacityExceeded = errors.New("group call capacity exceeded")
	ErrNotFriends       = errors.New("identities are not mutual friends")
	ErrNotInvited       = errors.New("identity is not invited to this group call")
	ErrNotAMember       = errors.New("identity is not a member of this group call")
)
