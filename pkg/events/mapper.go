package events

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Frame encoding is table-driven: each event type registers an encoder, and
// the transport-facing functions do an O(1) lookup. Unknown types are
// rejected rather than serialized best-effort.

type encoderFunc func(Event) ([]byte, error)

var frameEncoders = map[EventType]encoderFunc{
	TypeWorkflowStatus:      encodeJSON,
	TypeOrchestratorMessage: encodeJSON,
	TypeReasoningCompleted:  encodeJSON,
	TypeAgentStarted:        encodeJSON,
	TypeAgentCompleted:      encodeJSON,
	TypeAgentDelta:          encodeJSON,
	TypeToolCall:            encodeJSON,
	TypeQuality:             encodeJSON,
	TypeRequest:             encodeJSON,
	TypeWorkflowOutput:      encodeJSON,
	TypeError:               encodeJSON,
}

func encodeJSON(e Event) ([]byte, error) { return json.Marshal(e) }

// EncodeWS renders e as a single WebSocket text frame.
func EncodeWS(e Event) ([]byte, error) {
	enc, ok := frameEncoders[e.EventType()]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", e.EventType())
	}
	return enc(e)
}

// EncodeSSE renders e as one Server-Sent Events block:
//
//	event: <type>
//	data: <json>
//	<blank line>
func EncodeSSE(e Event) ([]byte, error) {
	payload, err := EncodeWS(e)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(string(e.EventType()))
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}
