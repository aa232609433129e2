package events

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/models"
)

func TestEncodeWSFlatShape(t *testing.T) {
	e := NewAgentDelta("researcher", "abc", "abc", "abc")
	data, err := EncodeWS(e)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "AGENT_DELTA", m["type"])
	assert.Equal(t, "agent", m["category"])
	assert.Equal(t, "researcher", m["agent_id"])
	assert.Equal(t, "abc", m["delta"])
	assert.NotEmpty(t, m["timestamp"])
}

func TestEncodeWSErrorEvent(t *testing.T) {
	data, err := EncodeWS(NewError(models.CodeTimeout, "run timed out", "execution"))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "ERROR", m["type"])
	assert.Equal(t, "timeout", m["code"])
	assert.Equal(t, "execution", m["phase"])
}

func TestEncodeWSUnknownType(t *testing.T) {
	e := &WorkflowStatus{Base: Base{Type: "NOT_A_TYPE"}}
	_, err := EncodeWS(e)
	assert.Error(t, err)
}

func TestEncodeSSEFraming(t *testing.T) {
	data, err := EncodeSSE(NewQuality(models.QualityVerdict{Score: 7.5, Feedback: "solid"}))
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "event: QUALITY\ndata: "), text)
	assert.True(t, strings.HasSuffix(text, "\n\n"))

	payload := strings.TrimSuffix(strings.TrimPrefix(text, "event: QUALITY\ndata: "), "\n\n")
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &m))
	assert.Equal(t, 7.5, m["score"])
}

func TestClientMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     ClientMessage
		wantErr bool
	}{
		{"task ok", ClientMessage{Type: ClientTask, Message: "hi"}, false},
		{"task without message", ClientMessage{Type: ClientTask}, true},
		{"task with checkpoint", ClientMessage{Type: ClientTask, Message: "hi", CheckpointID: "c1"}, true},
		{"response ok", ClientMessage{Type: ClientResponse, RequestID: "r1"}, false},
		{"response without request id", ClientMessage{Type: ClientResponse}, true},
		{"resume ok", ClientMessage{Type: ClientResume, CheckpointID: "c1"}, false},
		{"resume without checkpoint", ClientMessage{Type: ClientResume}, true},
		{"resume with message", ClientMessage{Type: ClientResume, CheckpointID: "c1", Message: "hi"}, true},
		{"ping", ClientMessage{Type: ClientPing}, false},
		{"cancel", ClientMessage{Type: ClientCancel}, false},
		{"unknown", ClientMessage{Type: "subscribe"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, models.IsInvalidInput(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
