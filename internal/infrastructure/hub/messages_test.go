package hub

import (
	"encoding/json"
	"testing"

	"voxhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundMessageUnmarshal(t *testing.T) {
	data := []byte(`{"type":"subscribe","payload":{"channel_id":"general"}}`)

	var msg InboundMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MsgSubscribe, msg.Type)

	var payload channelPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, domain.ChannelID("general"), payload.ChannelID)
}

func TestRelayEventsCoverEverySignalingType(t *testing.T) {
	expected := map[MessageType]domain.EventType{
		MsgSessionOffer:       domain.EventSessionOffer,
		MsgSessionAnswer:      domain.EventSessionAnswer,
		MsgICECandidate:       domain.EventICECandidate,
		MsgScreenOffer:        domain.EventScreenOffer,
		MsgScreenAnswer:       domain.EventScreenAnswer,
		MsgScreenICECandidate: domain.EventScreenICECandidate,
		MsgScreenStop:         domain.EventScreenStop,
	}
	assert.Equal(t, expected, relayEvents)

	// Stateful message types must never route through the relay.
	for _, msgType := range []MessageType{MsgCallStart, MsgVoiceJoin, MsgGroupCallCreate} {
		_, ok := relayEvents[msgType]
		assert.False(t, ok, "%s must not be a relay type", msgType)
	}
}

func TestVoicePayloadAddressing(t *testing.T) {
	var payload voicePayload
	require.NoError(t, json.Unmarshal([]byte(`{"channel_id":"general","muted":true}`), &payload))
	assert.Equal(t, domain.ChannelID("general"), payload.ChannelID)
	assert.Empty(t, payload.GroupCallID)
	assert.True(t, payload.Muted)

	payload = voicePayload{}
	require.NoError(t, json.Unmarshal([]byte(`{"group_call_id":"g1"}`), &payload))
	assert.Equal(t, domain.GroupID("g1"), payload.GroupCallID)
}
