package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/events"
	"github.com/maestro-ai/maestro/pkg/llm"
)

// readFrame reads one frame and decodes its type field.
func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	typ, _ := frame["type"].(string)
	return typ, frame
}

func sendFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, msg events.ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestWebSocketTaskLifecycle(t *testing.T) {
	fake := &llm.FakeClient{Script: []llm.FakeResponse{{TextChunks: []string{"hello there"}}}}
	env := newTestEnv(t, fake)

	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	typ, _ := readFrame(t, ctx, conn)
	assert.Equal(t, events.ServerConnected, typ)

	// Ping before any run.
	sendFrame(t, ctx, conn, events.ClientMessage{Type: events.ClientPing})
	typ, _ = readFrame(t, ctx, conn)
	assert.Equal(t, events.ServerPong, typ)

	sendFrame(t, ctx, conn, events.ClientMessage{Type: events.ClientTask, Message: "hi"})

	var sawOutput bool
	var result string
	for !sawOutput {
		typ, frame := readFrame(t, ctx, conn)
		if typ == string(events.TypeWorkflowOutput) {
			sawOutput = true
			result, _ = frame["result"].(string)
		}
	}
	assert.Equal(t, "hello there", result)
}

func TestWebSocketRejectsInvalidFrames(t *testing.T) {
	env := newTestEnv(t, &llm.FakeClient{})

	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	typ, _ := readFrame(t, ctx, conn)
	require.Equal(t, events.ServerConnected, typ)

	// Malformed JSON.
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))
	typ, frame := readFrame(t, ctx, conn)
	assert.Equal(t, events.ServerError, typ)
	assert.Contains(t, frame["message"], "malformed")

	// Task frame carrying a checkpoint id.
	sendFrame(t, ctx, conn, events.ClientMessage{
		Type: events.ClientTask, Message: "hi", CheckpointID: "abc",
	})
	typ, frame = readFrame(t, ctx, conn)
	assert.Equal(t, events.ServerError, typ)
	assert.Contains(t, frame["message"], "checkpointId")

	// Response without an active run.
	sendFrame(t, ctx, conn, events.ClientMessage{Type: events.ClientResponse, RequestID: "r1"})
	typ, frame = readFrame(t, ctx, conn)
	assert.Equal(t, events.ServerError, typ)
	assert.Contains(t, frame["message"], "no active run")
}
