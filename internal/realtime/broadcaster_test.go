package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	ev, err := NewEvent("payment-confirmation", map[string]string{"documentId": "doc-1"})
	require.NoError(t, err)
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	room, decoded, err := decodeMessage(channelPrefix+"doc-1", string(payload))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", room)
	assert.Equal(t, "payment-confirmation", decoded.Name)
	assert.JSONEq(t, `{"documentId":"doc-1"}`, string(decoded.Data))
}

func TestDecodeMessageErrors(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		payload string
	}{
		{name: "foreign channel", channel: "other:doc-1", payload: `{"event":"x","data":{}}`},
		{name: "empty room", channel: channelPrefix, payload: `{"event":"x","data":{}}`},
		{name: "bad json", channel: channelPrefix + "doc-1", payload: `{`},
		{name: "no event name", channel: channelPrefix + "doc-1", payload: `{"data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeMessage(tt.channel, tt.payload)
			assert.Error(t, err)
		})
	}
}
