package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// AnthropicClient streams messages from the Anthropic API.
type AnthropicClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAnthropicClient builds a client. baseURL may be empty for the public API.
func NewAnthropicClient(apiKey, baseURL string, timeout time.Duration) *AnthropicClient {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &AnthropicClient{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type anthropicContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
	Stream      bool               `json:"stream"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		Thinking    string `json:"thinking"`
	} `json:"delta"`
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Message struct {
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements Client.
func (c *AnthropicClient) Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error) {
	reqPayload, err := c.buildRequest(input)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	chunks := make(chan Chunk, 64)
	go c.readStream(ctx, resp.Body, chunks)
	return chunks, nil
}

// buildRequest converts the neutral conversation into Anthropic's shape:
// the system prompt is a top-level field, tool results are user-role
// tool_result blocks, assistant tool calls are tool_use blocks.
func (c *AnthropicClient) buildRequest(input *GenerateInput) (*anthropicRequest, error) {
	req := &anthropicRequest{
		Model:       input.Model,
		Temperature: input.Temperature,
		MaxTokens:   input.MaxTokens,
		Stream:      true,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 4096
	}

	for _, m := range input.Messages {
		switch m.Role {
		case "system":
			if req.System != "" {
				req.System += "\n\n"
			}
			req.System += m.Content
		case "assistant":
			msg := anthropicMessage{Role: "assistant"}
			if m.Content != "" {
				msg.Content = append(msg.Content, anthropicContent{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				if args == "" {
					args = "{}"
				}
				msg.Content = append(msg.Content, anthropicContent{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: json.RawMessage(args),
				})
			}
			req.Messages = append(req.Messages, msg)
		case "tool":
			req.Messages = append(req.Messages, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.Content,
				}},
			})
		default:
			req.Messages = append(req.Messages, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: m.Content}},
			})
		}
	}

	for _, t := range input.Tools {
		schema := t.ParametersSchema
		if schema == "" {
			schema = `{"type":"object"}`
		}
		req.Tools = append(req.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: json.RawMessage(schema),
		})
	}
	return req, nil
}

func (c *AnthropicClient) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- Chunk) {
	defer close(chunks)
	defer body.Close()

	type pendingCall struct {
		id   string
		name string
		args strings.Builder
	}
	pending := make(map[int]*pendingCall)
	order := []int{}
	var inputTokens int

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var ev anthropicStreamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			send(ctx, chunks, &ErrorChunk{Message: "malformed stream event", Code: "decode_error"})
			return
		}

		switch ev.Type {
		case "message_start":
			inputTokens = ev.Message.Usage.InputTokens

		case "content_block_start":
			if ev.ContentBlock.Type == "tool_use" {
				pending[ev.Index] = &pendingCall{id: ev.ContentBlock.ID, name: ev.ContentBlock.Name}
				order = append(order, ev.Index)
			}

		case "content_block_delta":
			switch ev.Delta.Type {
			case "text_delta":
				if !send(ctx, chunks, &TextChunk{Content: ev.Delta.Text}) {
					return
				}
			case "thinking_delta":
				if !send(ctx, chunks, &ThinkingChunk{Content: ev.Delta.Thinking}) {
					return
				}
			case "input_json_delta":
				if pc, ok := pending[ev.Index]; ok {
					pc.args.WriteString(ev.Delta.PartialJSON)
				}
			}

		case "message_delta":
			if ev.Usage.OutputTokens > 0 {
				send(ctx, chunks, &UsageChunk{
					InputTokens:  inputTokens,
					OutputTokens: ev.Usage.OutputTokens,
					TotalTokens:  inputTokens + ev.Usage.OutputTokens,
				})
			}

		case "message_stop":
			for _, idx := range order {
				pc := pending[idx]
				args := pc.args.String()
				if args == "" {
					args = "{}"
				}
				send(ctx, chunks, &ToolCallChunk{CallID: pc.id, Name: pc.name, Arguments: args})
			}
			return

		case "error":
			send(ctx, chunks, &ErrorChunk{Message: ev.Error.Message, Code: ev.Error.Type})
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		send(ctx, chunks, &ErrorChunk{Message: "stream read failed", Code: "stream_error", Retryable: true})
	}
}

// Close implements Client.
func (c *AnthropicClient) Close() error { return nil }
