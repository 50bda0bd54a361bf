package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"
	"voxhub/pkg/retry"

	"go.uber.org/zap"
)

// DefaultRingTimeout bounds how long a session may sit unanswered before the
// server cancels it. Zero disables the timeout.
const DefaultRingTimeout = 60 * time.Second

type callSession struct {
	domain.CallSession
	ringTimer *time.Timer
}

type callService struct {
	sink  ports.EventSink
	store ports.MessageStore

	mu       sync.Mutex
	sessions map[domain.ChannelID]*callSession

	ringTimeout time.Duration
	retryCfg    retry.Config
	now         func() time.Time
	logger      *zap.SugaredLogger
}

// NewCallService builds the one-to-one call state machine. The history
// record is persisted asynchronously with retry so a slow message store
// never delays signaling for other participants.
func NewCallService(sink ports.EventSink, store ports.MessageStore, ringTimeout time.Duration, logger *zap.SugaredLogger) ports.CallService {
	return &callService{
		sink:        sink,
		store:       store,
		sessions:    make(map[domain.ChannelID]*callSession),
		ringTimeout: ringTimeout,
		retryCfg:    retry.DefaultConfig(),
		now:         time.Now,
		logger:      logger,
	}
}

func (c *callService) Start(ctx context.Context, channelID domain.ChannelID, starterID domain.IdentityID, starterName string, targetID domain.IdentityID) error {
	if targetID == "" || targetID == starterID {
		return fmt.Errorf("%w: invalid call target", domain.ErrInvalidState)
	}

	c.mu.Lock()
	if _, exists := c.sessions[channelID]; exists {
		c.mu.Unlock()
		return domain.ErrCallInProgress
	}
	s := &callSession{
		CallSession: domain.CallSession{
			ChannelID:          channelID,
			StarterID:          starterID,
			StarterDisplayName: starterName,
			TargetID:           targetID,
			Participants:       map[domain.IdentityID]struct{}{starterID: {}},
		},
	}
	if c.ringTimeout > 0 {
		s.ringTimer = time.AfterFunc(c.ringTimeout, func() {
			c.expireRinging(channelID)
		})
	}
	c.sessions[channelID] = s
	c.mu.Unlock()

	c.sink.Deliver(targetID, domain.NewEvent(domain.EventCallIncoming, map[string]any{
		"channel_id":       channelID,
		"from_identity_id": starterID,
		"display_name":     starterName,
	}))
	c.logger.Infow("call started", "channel_id", channelID, "starter_id", starterID, "target_id", targetID)
	return nil
}

func (c *callService) Accept(ctx context.Context, channelID domain.ChannelID, calleeID domain.IdentityID) error {
	c.mu.Lock()
	s, ok := c.sessions[channelID]
	if !ok {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	if s.State() != domain.CallRinging {
		c.mu.Unlock()
		return fmt.Errorf("%w: call is not ringing", domain.ErrInvalidState)
	}
	if calleeID != s.TargetID {
		c.mu.Unlock()
		return domain.ErrForbidden
	}
	s.StartTime = c.now()
	s.Participants[calleeID] = struct{}{}
	if s.ringTimer != nil {
		s.ringTimer.Stop()
		s.ringTimer = nil
	}
	starterID := s.StarterID
	c.mu.Unlock()

	c.sink.Deliver(starterID, domain.NewEvent(domain.EventCallAccepted, map[string]any{
		"channel_id":       channelID,
		"from_identity_id": calleeID,
	}))
	c.logger.Infow("call accepted", "channel_id", channelID, "callee_id", calleeID)
	return nil
}

func (c *callService) Reject(ctx context.Context, channelID domain.ChannelID, byID domain.IdentityID) error {
	c.mu.Lock()
	s, ok := c.sessions[channelID]
	if !ok {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	if s.State() != domain.CallRinging {
		c.mu.Unlock()
		return fmt.Errorf("%w: call is not ringing", domain.ErrInvalidState)
	}
	if byID != s.TargetID {
		c.mu.Unlock()
		return domain.ErrForbidden
	}
	c.removeSession(channelID, s)
	starterID := s.StarterID
	c.mu.Unlock()

	c.sink.Deliver(starterID, domain.NewEvent(domain.EventCallRejected, map[string]any{
		"channel_id":       channelID,
		"from_identity_id": byID,
	}))
	c.logger.Infow("call rejected", "channel_id", channelID)
	return nil
}

func (c *callService) Cancel(ctx context.Context, channelID domain.ChannelID, byID domain.IdentityID) error {
	c.mu.Lock()
	s, ok := c.sessions[channelID]
	if !ok {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	if s.State() != domain.CallRinging {
		c.mu.Unlock()
		return fmt.Errorf("%w: call is not ringing", domain.ErrInvalidState)
	}
	if byID != s.StarterID {
		c.mu.Unlock()
		return domain.ErrForbidden
	}
	c.removeSession(channelID, s)
	targetID := s.TargetID
	c.mu.Unlock()

	c.sink.Deliver(targetID, domain.NewEvent(domain.EventCallCancelled, map[string]any{
		"channel_id":       channelID,
		"from_identity_id": byID,
	}))
	c.logger.Infow("call cancelled", "channel_id", channelID)
	return nil
}

func (c *callService) End(ctx context.Context, channelID domain.ChannelID, byID domain.IdentityID) error {
	c.mu.Lock()
	s, ok := c.sessions[channelID]
	if !ok {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	if byID != s.StarterID && byID != s.TargetID {
		c.mu.Unlock()
		return domain.ErrForbidden
	}
	delete(s.Participants, byID)
	other := s.OtherParty(byID)

	vacated := len(s.Participants) == 0
	wasActive := !s.StartTime.IsZero()
	var durationMS int64
	if vacated {
		if wasActive {
			durationMS = c.now().Sub(s.StartTime).Milliseconds()
		}
		c.removeSession(channelID, s)
	}
	starterID := s.StarterID
	targetID := s.TargetID
	c.mu.Unlock()

	// Either side hanging up informs the other immediately; the durable
	// history record is only written once the session is fully vacated.
	c.sink.Deliver(other, domain.NewEvent(domain.EventCallEnded, map[string]any{
		"channel_id":       channelID,
		"from_identity_id": byID,
	}))

	if vacated && wasActive {
		go c.persistHistory(channelID, starterID, targetID, durationMS)
	}
	c.logger.Infow("call end", "channel_id", channelID, "by", byID, "vacated", vacated)
	return nil
}

func (c *callService) Rejoin(ctx context.Context, channelID domain.ChannelID, byID domain.IdentityID) error {
	c.mu.Lock()
	s, ok := c.sessions[channelID]
	if !ok {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	if byID != s.StarterID && byID != s.TargetID {
		c.mu.Unlock()
		return domain.ErrForbidden
	}
	other := s.OtherParty(byID)
	c.mu.Unlock()

	c.sink.Deliver(other, domain.NewEvent(domain.EventCallRejoined, map[string]any{
		"channel_id":       channelID,
		"from_identity_id": byID,
	}))
	return nil
}

func (c *callService) Session(channelID domain.ChannelID) (*domain.CallSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[channelID]
	if !ok {
		return nil, false
	}
	cp := s.CallSession
	cp.Participants = make(map[domain.IdentityID]struct{}, len(s.Participants))
	for id := range s.Participants {
		cp.Participants[id] = struct{}{}
	}
	return &cp, true
}

func (c *callService) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *callService) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for channelID, s := range c.sessions {
		if s.ringTimer != nil {
			s.ringTimer.Stop()
		}
		delete(c.sessions, channelID)
	}
}

// expireRinging cancels a session nobody answered within the ring timeout.
func (c *callService) expireRinging(channelID domain.ChannelID) {
	c.mu.Lock()
	s, ok := c.sessions[channelID]
	if !ok || s.State() != domain.CallRinging {
		c.mu.Unlock()
		return
	}
	c.removeSession(channelID, s)
	starterID := s.StarterID
	targetID := s.TargetID
	c.mu.Unlock()

	event := domain.NewEvent(domain.EventCallCancelled, map[string]any{
		"channel_id": channelID,
		"reason":     "timeout",
	})
	c.sink.Deliver(starterID, event)
	c.sink.Deliver(targetID, event)
	c.logger.Infow("ringing call expired", "channel_id", channelID)
}

// persistHistory writes the synthesized call record and delivers it to both
// parties. Runs on its own goroutine so the store never blocks signaling.
func (c *callService) persistHistory(channelID domain.ChannelID, starterID, targetID domain.IdentityID, durationMS int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	msg, err := retry.RetryWithResult(ctx, c.retryCfg, func() (*domain.Message, error) {
		return c.store.AppendCallRecord(ctx, channelID, starterID, durationMS)
	})
	if err != nil {
		c.logger.Errorw("failed to persist call history",
			"channel_id", channelID, "duration_ms", durationMS, "error", err)
		return
	}

	event := domain.NewEvent(domain.EventMessageCreated, msg)
	c.sink.Deliver(starterID, event)
	c.sink.Deliver(targetID, event)
}

// removeSession assumes c.mu is held.
func (c *callService) removeSession(channelID domain.ChannelID, s *callSession) {
	if s.ringTimer != nil {
		s.ringTimer.Stop()
		s.ringTimer = nil
	}
	delete(c.sessions, channelID)
}
