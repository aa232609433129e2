package reasoner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/llm"
	"github.com/maestro-ai/maestro/pkg/models"
)

func testArtifact() *Artifact {
	a := &Artifact{Version: "r-test", RecentYearThreshold: 2023}
	a.Prompts.Analyze = "analyze"
	a.Prompts.Route = "route"
	a.Prompts.Progress = "progress"
	a.Prompts.Quality = "quality"
	return a
}

func TestLLMReasonerAnalyze(t *testing.T) {
	fake := &llm.FakeClient{Script: []llm.FakeResponse{{
		TextChunks: []string{`{"complexity":"complex","needs_web_search":true,"search_query":"fusion"}`},
	}}}
	r := NewLLMReasoner(fake, testArtifact(), "gpt-4o")

	a, err := r.AnalyzeTask(context.Background(), "latest fusion results", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ComplexityComplex, a.Complexity)
	assert.True(t, a.NeedsWebSearch)
	assert.Equal(t, "fusion", a.SearchQuery)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "analyze", calls[0].Messages[0].Content)
	assert.Contains(t, calls[0].Messages[1].Content, "latest fusion results")
}

func TestLLMReasonerAnalyzeRejectsBadComplexity(t *testing.T) {
	fake := &llm.FakeClient{Script: []llm.FakeResponse{{
		TextChunks: []string{`{"complexity":"impossible"}`},
	}}}
	r := NewLLMReasoner(fake, testArtifact(), "gpt-4o")

	_, err := r.AnalyzeTask(context.Background(), "task", nil)
	assert.ErrorIs(t, err, models.ErrReasonerUnavailable)
}

func TestLLMReasonerRouteWithCodeFence(t *testing.T) {
	fake := &llm.FakeClient{Script: []llm.FakeResponse{{
		TextChunks: []string{"```json\n{\"mode\":\"parallel\",\"assigned\":[\"researcher\",\"writer\"],\"confidence\":0.8}\n```"},
	}}}
	r := NewLLMReasoner(fake, testArtifact(), "gpt-4o")

	d, err := r.RouteTask(context.Background(), "task", models.TaskAnalysis{}, testAgents(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ModeParallel, d.Mode)
	assert.Equal(t, []string{"researcher", "writer"}, d.Assigned)
}

func TestLLMReasonerErrorChunk(t *testing.T) {
	fake := &llm.FakeClient{Script: []llm.FakeResponse{{
		Err: &llm.ErrorChunk{Message: "overloaded"},
	}}}
	r := NewLLMReasoner(fake, testArtifact(), "gpt-4o")

	_, err := r.EvaluateProgress(context.Background(), "task", nil)
	assert.ErrorIs(t, err, models.ErrReasonerUnavailable)
}

func TestLLMReasonerQualityScoreRange(t *testing.T) {
	fake := &llm.FakeClient{Script: []llm.FakeResponse{{
		TextChunks: []string{`{"score":15,"feedback":"great"}`},
	}}}
	r := NewLLMReasoner(fake, testArtifact(), "gpt-4o")

	_, err := r.AssessQuality(context.Background(), "task", "output")
	assert.ErrorIs(t, err, models.ErrReasonerUnavailable)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in))
	}
}

func TestLoadArtifact(t *testing.T) {
	dir := t.TempDir()

	valid := `{
		"version": "r-7",
		"recent_year_threshold": 2024,
		"prompts": {"analyze": "a", "route": "r", "progress": "p", "quality": "q"}
	}`
	path := filepath.Join(dir, "artifact.json")
	require.NoError(t, os.WriteFile(path, []byte(valid), 0o600))

	a, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "r-7", a.Version)
	assert.Equal(t, 2024, a.RecentYearThreshold)

	// Missing prompts rejected.
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version":"x","prompts":{"analyze":"a"}}`), 0o600))
	_, err = LoadArtifact(bad)
	assert.Error(t, err)

	// Missing file.
	_, err = LoadArtifact(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)
}
