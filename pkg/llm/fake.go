package llm

import (
	"context"
	"sync"
	"time"
)

// FakeResponse scripts one Generate call of a FakeClient.
type FakeResponse struct {
	// Delay before the first chunk; lets tests skew completion order.
	Delay      time.Duration
	TextChunks []string
	Thinking   string
	ToolCalls  []ToolCall
	Usage      *UsageChunk
	Err        *ErrorChunk
}

// FakeClient is a scripted in-memory Client for tests. Responses are either
// chosen by Respond (when set) or consumed from Script in call order, with
// the last entry repeating.
type FakeClient struct {
	mu     sync.Mutex
	Script []FakeResponse
	// Respond overrides Script when non-nil.
	Respond func(input *GenerateInput) FakeResponse

	calls []GenerateInput
	next  int
}

// Generate implements Client.
func (f *FakeClient) Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error) {
	f.mu.Lock()
	f.calls = append(f.calls, *input)
	var resp FakeResponse
	if f.Respond != nil {
		resp = f.Respond(input)
	} else if len(f.Script) > 0 {
		idx := f.next
		if idx >= len(f.Script) {
			idx = len(f.Script) - 1
		}
		resp = f.Script[idx]
		f.next++
	}
	f.mu.Unlock()

	chunks := make(chan Chunk, 64)
	go func() {
		defer close(chunks)
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-ctx.Done():
				return
			}
		}
		if resp.Err != nil {
			send(ctx, chunks, resp.Err)
			return
		}
		if resp.Thinking != "" {
			if !send(ctx, chunks, &ThinkingChunk{Content: resp.Thinking}) {
				return
			}
		}
		for _, text := range resp.TextChunks {
			if !send(ctx, chunks, &TextChunk{Content: text}) {
				return
			}
		}
		for _, tc := range resp.ToolCalls {
			if !send(ctx, chunks, &ToolCallChunk{CallID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}) {
				return
			}
		}
		if resp.Usage != nil {
			send(ctx, chunks, resp.Usage)
		}
	}()
	return chunks, nil
}

// Close implements Client.
func (f *FakeClient) Close() error { return nil }

// Calls returns a copy of every recorded Generate input.
func (f *FakeClient) Calls() []GenerateInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]GenerateInput, len(f.calls))
	copy(out, f.calls)
	return out
}
