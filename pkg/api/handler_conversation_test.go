package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/llm"
	"github.com/maestro-ai/maestro/pkg/models"
)

func TestConversationEndpoints(t *testing.T) {
	env := newTestEnv(t, &llm.FakeClient{})
	h := env.server.Handler()

	// Create.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations",
		strings.NewReader(`{"title":"storage research"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var conv models.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "storage research", conv.Title)

	// Get.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/"+conv.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// List.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []models.ConversationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, conv.ID, summaries[0].ID)
}

func TestGetConversationNotFound(t *testing.T) {
	env := newTestEnv(t, &llm.FakeClient{})
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/conversations/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
