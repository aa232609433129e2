package tools

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/models"
)

func echoInvoker() Invoker {
	return InvokerFunc(func(_ context.Context, input map[string]any) (Result, error) {
		q, _ := input["q"].(string)
		return Result{Content: q}, nil
	})
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Name: "search", Invoker: echoInvoker()}))

	err := r.Register(Descriptor{Name: "search", Invoker: echoInvoker()})
	assert.ErrorContains(t, err, "already registered")
}

func TestRegisterRejectsAliasCollisions(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Name: "search", Aliases: []string{"find"}, Invoker: echoInvoker()}))

	tests := []struct {
		name string
		desc Descriptor
	}{
		{"name collides with alias", Descriptor{Name: "find", Invoker: echoInvoker()}},
		{"alias collides with name", Descriptor{Name: "other", Aliases: []string{"search"}, Invoker: echoInvoker()}},
		{"alias collides with alias", Descriptor{Name: "other", Aliases: []string{"find"}, Invoker: echoInvoker()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, r.Register(tt.desc))
		})
	}
}

func TestResolveAlias(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Name: "tavily_search", Aliases: []string{"web_search"}, Invoker: echoInvoker()}))

	canonical, ok := r.Resolve("web_search")
	require.True(t, ok)
	assert.Equal(t, "tavily_search", canonical)

	_, ok = r.Resolve("missing")
	assert.False(t, ok)
}

func TestByCapabilityRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Name: "a", Capabilities: []string{"web_search"}, Invoker: echoInvoker()}))
	require.NoError(t, r.Register(Descriptor{Name: "b", Capabilities: []string{"math"}, Invoker: echoInvoker()}))
	require.NoError(t, r.Register(Descriptor{Name: "c", Capabilities: []string{"web_search"}, Invoker: echoInvoker()}))

	assert.Equal(t, []string{"a", "c"}, r.ByCapability("web_search"))
	assert.Equal(t, []string{"b"}, r.ByCapability("math"))
	assert.Empty(t, r.ByCapability("browser"))
	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
}

func TestDescribeMinimalProjection(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{
		Name:         "tavily_search",
		Capabilities: []string{"web_search"},
		LatencyHint:  LatencyMedium,
		ResultTTL:    2 * time.Minute,
		Invoker:      echoInvoker(),
	}))

	infos := r.Describe()
	require.Len(t, infos, 1)
	assert.Equal(t, "tavily_search", infos[0].Name)
	assert.Equal(t, []string{"web_search"}, infos[0].Capabilities)
	assert.Equal(t, LatencyMedium, infos[0].LatencyHint)
	assert.Equal(t, int64(120000), infos[0].ResultTTLMs)
}

func TestInvokeSchemaValidation(t *testing.T) {
	r := NewRegistry()
	schema := []byte(`{
		"type": "object",
		"properties": {"q": {"type": "string"}},
		"required": ["q"],
		"additionalProperties": false
	}`)
	require.NoError(t, r.Register(Descriptor{Name: "search", Schema: schema, Invoker: echoInvoker()}))

	// Valid input passes through.
	res, err := r.Invoke(context.Background(), "search", map[string]any{"q": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Content)

	// Unknown fields are rejected.
	_, err = r.Invoke(context.Background(), "search", map[string]any{"q": "hello", "extra": true})
	var toolErr *models.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "search", toolErr.Tool)

	// Missing required field rejected.
	_, err = r.Invoke(context.Background(), "search", map[string]any{})
	assert.ErrorAs(t, err, &toolErr)
}

func TestInvokeUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Invoke(context.Background(), "ghost", nil)
	var toolErr *models.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "ghost", toolErr.Tool)
}

func TestInvokeFailureWrapsToolError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{
		Name: "flaky",
		Invoker: InvokerFunc(func(context.Context, map[string]any) (Result, error) {
			return Result{}, errors.New("upstream down")
		}),
	}))

	_, err := r.Invoke(context.Background(), "flaky", nil)
	var toolErr *models.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.ErrorContains(t, toolErr.Err, "upstream down")
}

func TestInvokeSuspensionPassesThrough(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{
		Name: "deploy",
		Invoker: InvokerFunc(func(context.Context, map[string]any) (Result, error) {
			return Result{}, Suspend("approval", map[string]any{"action": "deploy"})
		}),
	}))

	_, err := r.Invoke(context.Background(), "deploy", nil)
	var susp *Suspension
	require.ErrorAs(t, err, &susp)
	assert.Equal(t, "approval", susp.Kind)
	assert.Equal(t, "deploy", susp.Payload["action"])
}

func TestInvokeResultCache(t *testing.T) {
	r := NewRegistry()
	var calls atomic.Int32
	require.NoError(t, r.Register(Descriptor{
		Name:      "cached",
		ResultTTL: time.Minute,
		Invoker: InvokerFunc(func(_ context.Context, input map[string]any) (Result, error) {
			calls.Add(1)
			q, _ := input["q"].(string)
			return Result{Content: q}, nil
		}),
	}))

	for range 3 {
		res, err := r.Invoke(context.Background(), "cached", map[string]any{"q": "same"})
		require.NoError(t, err)
		assert.Equal(t, "same", res.Content)
	}
	assert.Equal(t, int32(1), calls.Load())

	// Different input misses the cache.
	_, err := r.Invoke(context.Background(), "cached", map[string]any{"q": "other"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvokeTimeout(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		Invoker: InvokerFunc(func(ctx context.Context, _ map[string]any) (Result, error) {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(time.Second):
				return Result{Content: "done"}, nil
			}
		}),
	}))

	_, err := r.Invoke(context.Background(), "slow", nil)
	var toolErr *models.ToolError
	require.ErrorAs(t, err, &toolErr)
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r, nil))

	assert.True(t, r.Has("tavily_search"))
	assert.True(t, r.Has("web_search")) // alias
	assert.True(t, r.Has("fetch_url"))
	assert.True(t, r.Has("calculator"))
	assert.True(t, r.Has("datetime"))
	assert.True(t, r.Has("approval_gate"))
	assert.Equal(t, []string{"tavily_search"}, r.ByCapability("web_search"))
	assert.Equal(t, []string{"approval_gate"}, r.ByCapability("approval"))
}

func TestDatetime(t *testing.T) {
	res, err := currentDatetime(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Content)
	assert.Equal(t, "UTC", res.Data["timezone"])

	res, err = currentDatetime(context.Background(), map[string]any{"timezone": "America/New_York"})
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", res.Data["timezone"])

	_, err = currentDatetime(context.Background(), map[string]any{"timezone": "Atlantis/Lost"})
	assert.Error(t, err)
}

func TestApprovalGateSuspendsAndResolves(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r, nil))
	ctx := context.Background()

	// First invocation has no operator answer yet.
	_, err := r.Invoke(ctx, "approval_gate", map[string]any{
		"action": "delete the staging index",
		"detail": "frees 2GB",
	})
	var susp *Suspension
	require.ErrorAs(t, err, &susp)
	assert.Equal(t, "approval", susp.Kind)
	assert.Equal(t, "delete the staging index", susp.Payload["action"])
	assert.Equal(t, "frees 2GB", susp.Payload["detail"])

	// Retry with the operator response merged in.
	res, err := r.Invoke(ctx, "approval_gate", map[string]any{
		"action":   "delete the staging index",
		"approved": true,
		"comment":  "go ahead",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "approved")
	assert.Contains(t, res.Content, "go ahead")
	assert.Equal(t, true, res.Data["approved"])

	res, err = r.Invoke(ctx, "approval_gate", map[string]any{
		"action":   "delete the staging index",
		"approved": false,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "rejected")
}

func TestCalculator(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2+2", "4"},
		{"10 / 4", "2.5"},
		{"3 * 7", "21"},
		{"-5 + 2", "-3"},
		{"42", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res, err := evalCalculator(context.Background(), map[string]any{"expression": tt.expr})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Content)
		})
	}

	_, err := evalCalculator(context.Background(), map[string]any{"expression": "1/0"})
	assert.Error(t, err)
	_, err = evalCalculator(context.Background(), map[string]any{"expression": "nonsense"})
	assert.Error(t, err)
}
