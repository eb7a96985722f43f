package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAttentionPayloadPartial(t *testing.T) {
	raw := json.RawMessage(`{"participantId":"stu-1","status":"DISTRACTED","score":40}`)
	p, err := decode[AttentionPayload](raw)
	require.NoError(t, err)

	assert.Equal(t, "stu-1", p.ParticipantID)
	assert.Equal(t, StatusDistracted, p.Status)
	require.NotNil(t, p.Score)
	assert.Equal(t, 40, *p.Score)
	// omitted counters stay nil so they never zero stored values
	assert.Nil(t, p.ResponsesCount)
	assert.Nil(t, p.TotalCount)
}

func TestDecodeEmptyPayload(t *testing.T) {
	_, err := decode[JoinPayload](nil)
	assert.Error(t, err)
}

func TestDecodeMalformedPayload(t *testing.T) {
	_, err := decode[ApprovePayload](json.RawMessage(`{"connectionId":`))
	assert.Error(t, err)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{Event: EventRaiseHand, Data: json.RawMessage(`{"raised":true}`)}
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var got Envelope
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, EventRaiseHand, got.Event)

	p, err := decode[RaiseHandPayload](got.Data)
	require.NoError(t, err)
	assert.True(t, p.Raised)
}
