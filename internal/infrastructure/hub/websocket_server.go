package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"voxhub/internal/core/domain"
	"voxhub/internal/core/ports"
	"voxhub/internal/core/services"
	"voxhub/internal/infrastructure/monitoring"
	"voxhub/internal/infrastructure/registry"
	"voxhub/internal/infrastructure/router"
	"voxhub/pkg/config"
	"voxhub/pkg/tracing"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Server accepts websocket connections and runs the per-connection read
// loop. Connections arrive unauthenticated; the first accepted message
// must be authenticate, and everything else before it earns a structured
// error on the same connection.
type Server struct {
	auth       services.AuthService
	registry   *registry.Registry
	router     *router.Router
	presence   ports.PresenceService
	calls      ports.CallService
	groupCalls ports.GroupCallService
	voice      ports.VoiceService
	groups     ports.GroupMembership
	metrics    *monitoring.PrometheusCollector

	pingInterval time.Duration
	pongTimeout  time.Duration
	writeTimeout time.Duration
	queueSize    int
	maxMsgSize   int64

	logger *zap.SugaredLogger
}

func NewServer(
	cfg *config.Config,
	auth services.AuthService,
	reg *registry.Registry,
	rt *router.Router,
	presence ports.PresenceService,
	calls ports.CallService,
	groupCalls ports.GroupCallService,
	voice ports.VoiceService,
	groups ports.GroupMembership,
	metrics *monitoring.PrometheusCollector,
	logger *zap.SugaredLogger,
) *Server {
	return &Server{
		auth:         auth,
		registry:     reg,
		router:       rt,
		presence:     presence,
		calls:        calls,
		groupCalls:   groupCalls,
		voice:        voice,
		groups:       groups,
		metrics:      metrics,
		pingInterval: cfg.Hub.PingInterval,
		pongTimeout:  cfg.Hub.PongTimeout,
		writeTimeout: cfg.Hub.WriteTimeout,
		queueSize:    cfg.Hub.SendQueueSize,
		maxMsgSize:   cfg.Hub.MaxMessageSizeBytes,
		logger:       logger,
	}
}

// session is the per-connection state the read loop carries. identity is
// empty until authenticate succeeds and never changes afterwards.
type session struct {
	client      *Client
	identity    domain.IdentityID
	displayName string
}

func (s *session) authenticated() bool { return s.identity != "" }

// HandleWebSocket upgrades the request and serves the connection until it
// closes. One goroutine runs the write pump, the calling goroutine reads.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, s.queueSize, s.pingInterval, s.writeTimeout, s.logger)
	sess := &session{client: client}

	s.metrics.ConnectionOpened()
	go client.WritePump()

	conn.SetReadLimit(s.maxMsgSize)
	conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("read failed", "identity_id", sess.identity, "error", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(s.pongTimeout))

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames are dropped without killing the connection.
			s.logger.Debugw("dropping malformed message", "identity_id", sess.identity, "error", err)
			continue
		}

		s.dispatch(r.Context(), sess, msg)
	}

	s.teardown(sess)
}

func (s *Server) dispatch(ctx context.Context, sess *session, msg InboundMessage) {
	ctx, span := tracing.StartSpan(ctx, "hub."+string(msg.Type))
	defer span.End()

	s.metrics.MessageHandled(string(msg.Type))

	var err error
	switch {
	case msg.Type == MsgAuthenticate:
		err = s.handleAuthenticate(ctx, sess, msg.Payload)
	case !sess.authenticated():
		err = domain.ErrUnauthenticated
	case msg.Type == MsgHeartbeat:
		sess.client.Enqueue(domain.NewEvent(domain.EventHeartbeatAck, map[string]any{
			"timestamp": time.Now().Unix(),
		}))
	case msg.Type == MsgPresence:
		err = s.handlePresence(ctx, sess, msg.Payload)
	case msg.Type == MsgSubscribe:
		err = s.handleSubscribe(sess, msg.Payload)
	case msg.Type == MsgUnsubscribe:
		err = s.handleUnsubscribe(sess, msg.Payload)
	case msg.Type == MsgTyping:
		err = s.handleTyping(sess, msg.Payload)
	case msg.Type == MsgVoiceJoin:
		err = s.handleVoiceJoin(ctx, sess, msg.Payload)
	case msg.Type == MsgVoiceLeave:
		err = s.handleVoiceLeave(ctx, sess, msg.Payload)
	case msg.Type == MsgVoiceSpeaking || msg.Type == MsgVoiceMute || msg.Type == MsgVoiceDeafen:
		err = s.handleVoiceUpdate(ctx, sess, msg.Type, msg.Payload)
	case relayEvents[msg.Type] != "":
		err = s.handleRelay(sess, msg.Type, msg.Payload)
	case msg.Type == MsgCallStart || msg.Type == MsgCallAccept || msg.Type == MsgCallReject ||
		msg.Type == MsgCallEnd || msg.Type == MsgCallCancel || msg.Type == MsgCallRejoin:
		err = s.handleCall(ctx, sess, msg.Type, msg.Payload)
	case msg.Type == MsgGroupCallCreate:
		err = s.handleGroupCallCreate(ctx, sess, msg.Payload)
	case msg.Type == MsgGroupCallJoin:
		err = s.handleGroupCallJoin(ctx, sess, msg.Payload)
	case msg.Type == MsgGroupCallLeave:
		err = s.handleGroupCallLeave(ctx, sess, msg.Payload)
	default:
		err = fmt.Errorf("unknown message type: %s", msg.Type)
	}

	if err != nil {
		tracing.RecordError(span, err)
		s.metrics.HandlerError(string(msg.Type))
		s.logger.Infow("handler error",
			"identity_id", sess.identity, "type", msg.Type, "error", err)
		sess.client.Enqueue(domain.ErrorEvent(err.Error()))
	}
}

func (s *Server) handleAuthenticate(ctx context.Context, sess *session, raw json.RawMessage) error {
	if sess.authenticated() {
		return fmt.Errorf("connection already authenticated")
	}

	var payload authenticatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid authenticate payload: %w", err)
	}

	claims, err := s.auth.ValidateToken(payload.Token)
	if err != nil {
		return err
	}

	wasOnline := s.registry.IsOnline(claims.IdentityID)
	if err := s.registry.Register(claims.IdentityID, sess.client); err != nil {
		return err
	}
	sess.identity = claims.IdentityID
	sess.displayName = claims.DisplayName

	if !wasOnline {
		s.metrics.IdentityOnline()
		s.presence.HandleConnect(ctx, claims.IdentityID)
	}

	sess.client.Enqueue(domain.NewEvent(domain.EventAuthenticated, map[string]any{
		"identity_id":  claims.IdentityID,
		"display_name": claims.DisplayName,
	}))
	return nil
}

func (s *Server) handlePresence(ctx context.Context, sess *session, raw json.RawMessage) error {
	var payload presencePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid presence payload: %w", err)
	}
	return s.presence.SetStatus(ctx, sess.identity, payload.Status)
}

func (s *Server) handleSubscribe(sess *session, raw json.RawMessage) error {
	var payload channelPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid subscribe payload: %w", err)
	}
	if payload.ChannelID == "" {
		return fmt.Errorf("channel_id is required")
	}

	s.router.Subscribe(payload.ChannelID, sess.identity)
	sess.client.Enqueue(domain.NewEvent(domain.EventSubscribeAck, map[string]any{
		"channel_id": payload.ChannelID,
	}))
	return nil
}

func (s *Server) handleUnsubscribe(sess *session, raw json.RawMessage) error {
	var payload channelPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid unsubscribe payload: %w", err)
	}

	s.router.Unsubscribe(payload.ChannelID, sess.identity)
	sess.client.Enqueue(domain.NewEvent(domain.EventUnsubscribeAck, map[string]any{
		"channel_id": payload.ChannelID,
	}))
	return nil
}

func (s *Server) handleTyping(sess *session, raw json.RawMessage) error {
	var payload channelPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid typing payload: %w", err)
	}
	if !s.router.IsSubscribed(payload.ChannelID, sess.identity) {
		return fmt.Errorf("not subscribed to channel %s", payload.ChannelID)
	}

	s.router.NotifyTyping(payload.ChannelID, sess.identity, sess.displayName)
	return nil
}

// resolveRoom maps a voice payload to a room key, enforcing group-call
// membership for call rooms.
func (s *Server) resolveRoom(payload voicePayload, id domain.IdentityID) (domain.RoomID, error) {
	switch {
	case payload.ChannelID != "":
		return domain.ChannelRoom(payload.ChannelID), nil
	case payload.GroupCallID != "":
		members, err := s.groupCalls.Members(payload.GroupCallID)
		if err != nil {
			return "", err
		}
		for _, m := range members {
			if m == id {
				return domain.GroupCallRoom(payload.GroupCallID), nil
			}
		}
		return "", domain.ErrNotAMember
	default:
		return "", fmt.Errorf("channel_id or group_call_id is required")
	}
}

// broadcastVoice fans a voice event out to the room's audience: group
// members for channel rooms, active call members for call rooms.
func (s *Server) broadcastVoice(ctx context.Context, room domain.RoomID, event domain.Event, exclude domain.IdentityID) error {
	if channelID, ok := room.Channel(); ok {
		groupID, err := s.groups.GroupOfChannel(ctx, channelID)
		if err != nil {
			return fmt.Errorf("failed to resolve group for channel %s: %w", channelID, err)
		}
		return s.router.BroadcastToMembers(ctx, groupID, event, exclude)
	}

	if groupID, ok := room.GroupCall(); ok {
		members, err := s.groupCalls.Members(groupID)
		if err != nil {
			return err
		}
		for _, id := range members {
			if id != exclude {
				s.registry.Deliver(id, event)
			}
		}
	}
	return nil
}

func (s *Server) handleVoiceJoin(ctx context.Context, sess *session, raw json.RawMessage) error {
	var payload voicePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid voice_join payload: %w", err)
	}

	room, err := s.resolveRoom(payload, sess.identity)
	if err != nil {
		return err
	}

	participant := domain.VoiceParticipant{
		IdentityID:  sess.identity,
		DisplayName: sess.displayName,
		Muted:       payload.Muted,
		Deafened:    payload.Deafened,
	}
	roster := s.voice.Join(room, participant)
	s.metrics.SetVoiceParticipants(s.voice.ParticipantCount())

	sess.client.Enqueue(domain.NewEvent(domain.EventVoiceRoster, map[string]any{
		"room":         room,
		"participants": roster,
	}))
	return s.broadcastVoice(ctx, room, domain.NewEvent(domain.EventVoiceUserJoined, map[string]any{
		"room":        room,
		"participant": participant,
	}), sess.identity)
}

func (s *Server) handleVoiceLeave(ctx context.Context, sess *session, raw json.RawMessage) error {
	var payload voicePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid voice_leave payload: %w", err)
	}

	room, err := s.resolveRoom(payload, sess.identity)
	if err != nil {
		return err
	}
	if !s.voice.Leave(room, sess.identity) {
		return nil
	}
	s.metrics.SetVoiceParticipants(s.voice.ParticipantCount())

	return s.broadcastVoice(ctx, room, domain.NewEvent(domain.EventVoiceUserLeft, map[string]any{
		"room":        room,
		"identity_id": sess.identity,
	}), sess.identity)
}

func (s *Server) handleVoiceUpdate(ctx context.Context, sess *session, msgType MessageType, raw json.RawMessage) error {
	var payload voicePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msgType, err)
	}

	room, err := s.resolveRoom(payload, sess.identity)
	if err != nil {
		return err
	}

	updated, err := s.voice.Update(room, sess.identity, func(p *domain.VoiceParticipant) {
		switch msgType {
		case MsgVoiceSpeaking:
			p.Speaking = payload.Speaking
		case MsgVoiceMute:
			p.Muted = payload.Muted
		case MsgVoiceDeafen:
			p.Deafened = payload.Deafened
		}
	})
	if err != nil {
		return err
	}

	return s.broadcastVoice(ctx, room, domain.NewEvent(domain.EventVoiceUserUpdated, map[string]any{
		"room":        room,
		"participant": updated,
	}), sess.identity)
}

// handleRelay forwards signaling payloads verbatim to the named target,
// stamping the sender so the receiver knows whom to answer. Delivery is
// best-effort: an offline target drops the message silently and the
// sender's own signaling timeout covers the gap.
func (s *Server) handleRelay(sess *session, msgType MessageType, raw json.RawMessage) error {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msgType, err)
	}

	target, _ := payload["target_identity_id"].(string)
	if target == "" {
		return fmt.Errorf("target_identity_id is required")
	}
	targetID := domain.IdentityID(target)
	if targetID == sess.identity {
		return fmt.Errorf("cannot signal yourself")
	}

	delete(payload, "target_identity_id")
	payload["from_identity_id"] = sess.identity

	s.registry.Deliver(targetID, domain.NewEvent(relayEvents[msgType], payload))
	return nil
}

func (s *Server) handleCall(ctx context.Context, sess *session, msgType MessageType, raw json.RawMessage) error {
	var payload dmCallPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msgType, err)
	}
	if payload.ChannelID == "" {
		return fmt.Errorf("channel_id is required")
	}

	var err error
	switch msgType {
	case MsgCallStart:
		err = s.calls.Start(ctx, payload.ChannelID, sess.identity, sess.displayName, payload.TargetIdentityID)
		if err == nil {
			s.metrics.CallStarted()
		}
	case MsgCallAccept:
		err = s.calls.Accept(ctx, payload.ChannelID, sess.identity)
	case MsgCallReject:
		err = s.calls.Reject(ctx, payload.ChannelID, sess.identity)
	case MsgCallCancel:
		err = s.calls.Cancel(ctx, payload.ChannelID, sess.identity)
	case MsgCallEnd:
		err = s.endCall(ctx, sess, payload.ChannelID)
	case MsgCallRejoin:
		err = s.calls.Rejoin(ctx, payload.ChannelID, sess.identity)
	}
	if err != nil {
		return err
	}

	s.metrics.SetActiveCalls(s.calls.ActiveCount())
	return nil
}

// endCall snapshots the session before ending it so the completed-call
// duration can be observed once the session is gone.
func (s *Server) endCall(ctx context.Context, sess *session, channelID domain.ChannelID) error {
	snapshot, hadSession := s.calls.Session(channelID)

	if err := s.calls.End(ctx, channelID, sess.identity); err != nil {
		return err
	}

	if hadSession && snapshot.State() == domain.CallActive {
		if _, stillLive := s.calls.Session(channelID); !stillLive {
			s.metrics.ObserveCallDuration(time.Since(snapshot.StartTime).Seconds())
		}
	}
	return nil
}

func (s *Server) handleGroupCallCreate(ctx context.Context, sess *session, raw json.RawMessage) error {
	var payload groupCallCreatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid group_call_create payload: %w", err)
	}

	view, err := s.groupCalls.Create(ctx, sess.identity, payload.Name, payload.Invited)
	if err != nil {
		return err
	}
	s.metrics.SetActiveGroupCalls(s.groupCalls.ActiveCount())

	sess.client.Enqueue(domain.NewEvent(domain.EventGroupCallCreated, view))
	return nil
}

func (s *Server) handleGroupCallJoin(ctx context.Context, sess *session, raw json.RawMessage) error {
	var payload groupCallPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid group_call_join payload: %w", err)
	}

	if err := s.groupCalls.Accept(ctx, payload.GroupID, sess.identity); err != nil {
		return err
	}

	view, err := s.groupCalls.Get(ctx, payload.GroupID)
	if err != nil {
		return err
	}
	sess.client.Enqueue(domain.NewEvent(domain.EventGroupCallJoined, view))
	return nil
}

func (s *Server) handleGroupCallLeave(ctx context.Context, sess *session, raw json.RawMessage) error {
	var payload groupCallPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid group_call_leave payload: %w", err)
	}

	room := domain.GroupCallRoom(payload.GroupID)
	if s.voice.Leave(room, sess.identity) {
		s.metrics.SetVoiceParticipants(s.voice.ParticipantCount())
		s.broadcastVoice(ctx, room, domain.NewEvent(domain.EventVoiceUserLeft, map[string]any{
			"room":        room,
			"identity_id": sess.identity,
		}), sess.identity)
	}

	if err := s.groupCalls.Leave(ctx, payload.GroupID, sess.identity); err != nil {
		return err
	}
	s.metrics.SetActiveGroupCalls(s.groupCalls.ActiveCount())
	return nil
}

// teardown runs the disconnect cascade. Voice rooms first so departure
// events still reach group-call audiences, then group calls, then the
// router's subscriptions, and presence last.
func (s *Server) teardown(sess *session) {
	sess.client.Close()
	s.metrics.ConnectionClosed()

	id, fullyOffline := s.registry.Unregister(sess.client)
	if id == "" || !fullyOffline {
		return
	}

	ctx := context.Background()

	for _, room := range s.voice.LeaveAll(id) {
		if err := s.broadcastVoice(ctx, room, domain.NewEvent(domain.EventVoiceUserLeft, map[string]any{
			"room":        room,
			"identity_id": id,
		}), id); err != nil {
			s.logger.Warnw("voice teardown broadcast failed",
				"identity_id", id, "room", room, "error", err)
		}
	}
	s.metrics.SetVoiceParticipants(s.voice.ParticipantCount())

	s.groupCalls.LeaveAll(ctx, id)
	s.metrics.SetActiveGroupCalls(s.groupCalls.ActiveCount())

	s.router.DropIdentity(id)
	s.presence.HandleDisconnect(ctx, id)
	s.metrics.IdentityOffline()
}

// ConnectionCount is exposed for readiness reporting.
func (s *Server) ConnectionCount() int {
	return s.registry.ConnectionCount()
}
