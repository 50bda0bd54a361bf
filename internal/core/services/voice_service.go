package services

import (
	"sync"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"
)

type voiceService struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomID]map[domain.IdentityID]*domain.VoiceParticipant
	roomsOf map[domain.IdentityID]map[domain.RoomID]struct{}
}

// NewVoiceService builds the in-memory voice participant table. State here
// is strictly ephemeral; whoever calls Join is responsible for broadcasting
// the resulting roster change to the right audience.
func NewVoiceService() ports.VoiceService {
	return &voiceService{
		rooms:   make(map[domain.RoomID]map[domain.IdentityID]*domain.VoiceParticipant),
		roomsOf: make(map[domain.IdentityID]map[domain.RoomID]struct{}),
	}
}

func (v *voiceService) Join(room domain.RoomID, p domain.VoiceParticipant) []domain.VoiceParticipant {
	v.mu.Lock()
	defer v.mu.Unlock()

	participants, ok := v.rooms[room]
	if !ok {
		participants = make(map[domain.IdentityID]*domain.VoiceParticipant)
		v.rooms[room] = participants
	}
	cp := p
	participants[p.IdentityID] = &cp

	occupied, ok := v.roomsOf[p.IdentityID]
	if !ok {
		occupied = make(map[domain.RoomID]struct{})
		v.roomsOf[p.IdentityID] = occupied
	}
	occupied[room] = struct{}{}

	return v.snapshot(room)
}

func (v *voiceService) Leave(room domain.RoomID, id domain.IdentityID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.remove(room, id)
}

func (v *voiceService) Update(room domain.RoomID, id domain.IdentityID, fn func(*domain.VoiceParticipant)) (*domain.VoiceParticipant, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	p, ok := v.rooms[room][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	fn(p)
	cp := *p
	return &cp, nil
}

func (v *voiceService) Participants(room domain.RoomID) []domain.VoiceParticipant {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshot(room)
}

func (v *voiceService) LeaveAll(id domain.IdentityID) []domain.RoomID {
	v.mu.Lock()
	defer v.mu.Unlock()

	var vacated []domain.RoomID
	for room := range v.roomsOf[id] {
		if v.remove(room, id) {
			vacated = append(vacated, room)
		}
	}
	return vacated
}

func (v *voiceService) ParticipantCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n := 0
	for _, participants := range v.rooms {
		n += len(participants)
	}
	return n
}

// remove assumes v.mu is held.
func (v *voiceService) remove(room domain.RoomID, id domain.IdentityID) bool {
	participants, ok := v.rooms[room]
	if !ok {
		return false
	}
	if _, ok := participants[id]; !ok {
		return false
	}
	delete(participants, id)
	if len(participants) == 0 {
		delete(v.rooms, room)
	}
	if occupied, ok := v.roomsOf[id]; ok {
		delete(occupied, room)
		if len(occupied) == 0 {
			delete(v.roomsOf, id)
		}
	}
	return true
}

// snapshot assumes v.mu is held (read or write).
func (v *voiceService) snapshot(room domain.RoomID) []domain.VoiceParticipant {
	participants := v.rooms[room]
	out := make([]domain.VoiceParticipant, 0, len(participants))
	for _, p := range participants {
		out = append(out, *p)
	}
	return out
}
