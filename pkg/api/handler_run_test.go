package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/llm"
	"github.com/maestro-ai/maestro/pkg/models"
	"github.com/maestro-ai/maestro/pkg/session"
)

func TestGetRunStatus(t *testing.T) {
	fake := &llm.FakeClient{Script: []llm.FakeResponse{{TextChunks: []string{"hello there"}}}}
	env := newTestEnv(t, fake)

	run, err := env.sessions.Start(context.Background(), session.StartInput{Message: "hi"})
	require.NoError(t, err)
	<-run.Done()
	for range run.Events() {
	}

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+run.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp runStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, run.ID, resp.RunID)
	assert.Equal(t, models.RunSucceeded, resp.Status)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "hello there", resp.Result.Result)
}

func TestGetRunNotFound(t *testing.T) {
	env := newTestEnv(t, &llm.FakeClient{})
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/runs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelRun(t *testing.T) {
	fake := &llm.FakeClient{Respond: func(*llm.GenerateInput) llm.FakeResponse {
		return llm.FakeResponse{Delay: time.Second, TextChunks: []string{"never"}}
	}}
	env := newTestEnv(t, fake)

	run, err := env.sessions.Start(context.Background(),
		session.StartInput{Message: "write a long report on storage engines"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/api/v1/runs/"+run.ID+"/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-run.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not terminate after cancel")
	}
	assert.Equal(t, models.RunCancelled, run.Status())
}

func TestRespondValidation(t *testing.T) {
	env := newTestEnv(t, &llm.FakeClient{})
	h := env.server.Handler()

	// Missing requestId.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs/some-run/respond",
		strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown run.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/runs/some-run/respond",
		strings.NewReader(`{"requestId":"r1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	fake := &llm.FakeClient{Script: []llm.FakeResponse{{TextChunks: []string{"done"}}}}
	env := newTestEnv(t, fake)

	run, err := env.sessions.Start(context.Background(), session.StartInput{Message: "hi"})
	require.NoError(t, err)
	<-run.Done()
	for range run.Events() {
	}

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []models.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, run.ID, records[0].RunID)

	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutingCacheDebugEndpoint(t *testing.T) {
	env := newTestEnv(t, &llm.FakeClient{})

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/debug/routing-cache", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp routingCacheResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, time.Minute.Milliseconds(), resp.TTLMs)
	assert.Equal(t, 0, resp.Stats.Entries)
}
