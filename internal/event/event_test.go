package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncodesData(t *testing.T) {
	evt, err := New(ReminderReceived, map[string]string{"id": "r1"})
	require.NoError(t, err)

	assert.Equal(t, ReminderReceived, evt.Type)
	assert.JSONEq(t, `{"id":"r1"}`, string(evt.Data))
	assert.False(t, evt.Timestamp.IsZero())
}

func TestEnvelopeKeepsRawData(t *testing.T) {
	evt, err := New(MessageReceived, map[string]any{"body": "你好", "seq": 3})
	require.NoError(t, err)
	env := Envelope{Id: "e1", TargetKind: TargetRoom, Target: ConversationRoom("C1"), Event: evt}

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	var decoded Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "conversation:C1", decoded.Target)
	assert.JSONEq(t, string(evt.Data), string(decoded.Event.Data))
}

func TestConversationIdFromRoom(t *testing.T) {
	id, ok := ConversationIdFromRoom("conversation:C9")
	assert.True(t, ok)
	assert.Equal(t, "C9", id)

	_, ok = ConversationIdFromRoom("pool:agent")
	assert.False(t, ok)
	_, ok = ConversationIdFromRoom("conversation:")
	assert.False(t, ok)
}
