package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Built-in tools registered by the process wiring. Each stays thin: the
// registry contract (schema validation, timeout, caching) does the rest.

const (
	tavilyEndpoint  = "https://api.tavily.com/search"
	fetchMaxBytes   = 256 << 10
	tavilySearchTTL = 5 * time.Minute
)

var tavilySchema = []byte(`{
	"type": "object",
	"properties": {
		"query": {"type": "string", "minLength": 1},
		"max_results": {"type": "integer", "minimum": 1, "maximum": 10}
	},
	"required": ["query"],
	"additionalProperties": false
}`)

var fetchURLSchema = []byte(`{
	"type": "object",
	"properties": {
		"url": {"type": "string", "minLength": 1}
	},
	"required": ["url"],
	"additionalProperties": false
}`)

var calculatorSchema = []byte(`{
	"type": "object",
	"properties": {
		"expression": {"type": "string", "minLength": 1}
	},
	"required": ["expression"],
	"additionalProperties": false
}`)

var datetimeSchema = []byte(`{
	"type": "object",
	"properties": {
		"timezone": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`)

// approved and comment arrive via the merged HITL response, so the schema
// must admit them on the retry.
var approvalGateSchema = []byte(`{
	"type": "object",
	"properties": {
		"action": {"type": "string", "minLength": 1},
		"detail": {"type": "string"},
		"approved": {"type": "boolean"},
		"comment": {"type": "string"}
	},
	"required": ["action"],
	"additionalProperties": false
}`)

// RegisterBuiltins registers the stock tool set. The Tavily key comes from
// TAVILY_API_KEY; when unset the tool still registers and fails at invocation
// so routing stays deterministic across environments.
func RegisterBuiltins(r *Registry, httpClient *http.Client) error {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultInvokeTimeout}
	}

	descriptors := []Descriptor{
		{
			Name:         "tavily_search",
			Description:  "Search the web for current information. Returns an answer summary plus ranked results.",
			Aliases:      []string{"web_search"},
			Capabilities: []string{"web_search"},
			LatencyHint:  LatencyMedium,
			ResultTTL:    tavilySearchTTL,
			Schema:       tavilySchema,
			Invoker:      &tavilyInvoker{client: httpClient},
		},
		{
			Name:         "fetch_url",
			Description:  "Fetch the raw contents of a single http(s) URL.",
			Capabilities: []string{"browser"},
			LatencyHint:  LatencyHigh,
			Schema:       fetchURLSchema,
			Invoker:      &fetchInvoker{client: httpClient},
		},
		{
			Name:         "calculator",
			Description:  "Evaluate a simple arithmetic expression with two operands.",
			Capabilities: []string{"math"},
			LatencyHint:  LatencyLow,
			Schema:       calculatorSchema,
			Invoker:      InvokerFunc(evalCalculator),
		},
		{
			Name:         "datetime",
			Description:  "Report the current date and time, optionally in a named IANA timezone.",
			Capabilities: []string{"time"},
			LatencyHint:  LatencyLow,
			Schema:       datetimeSchema,
			Invoker:      InvokerFunc(currentDatetime),
		},
		{
			Name:         "approval_gate",
			Description:  "Ask the human operator to approve or reject an action before proceeding.",
			Capabilities: []string{"approval"},
			LatencyHint:  LatencyHigh,
			Schema:       approvalGateSchema,
			Invoker:      InvokerFunc(approvalGate),
		},
	}

	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

type tavilyInvoker struct {
	client *http.Client
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

func (t *tavilyInvoker) Invoke(ctx context.Context, input map[string]any) (Result, error) {
	apiKey := os.Getenv("TAVILY_API_KEY")
	if apiKey == "" {
		return Result{}, fmt.Errorf("TAVILY_API_KEY is not set")
	}

	query, _ := input["query"].(string)
	maxResults := 5
	if n, ok := input["max_results"].(float64); ok {
		maxResults = int(n)
	}

	body, err := json.Marshal(map[string]any{
		"api_key":     apiKey,
		"query":       query,
		"max_results": maxResults,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyEndpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("tavily returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Answer  string         `json:"answer"`
		Results []tavilyResult `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, fetchMaxBytes)).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("decoding tavily response: %w", err)
	}

	var sb strings.Builder
	if parsed.Answer != "" {
		sb.WriteString(parsed.Answer)
		sb.WriteString("\n\n")
	}
	for i, res := range parsed.Results {
		fmt.Fprintf(&sb, "[%d] %s\n%s\n%s\n\n", i+1, res.Title, res.URL, res.Content)
	}

	return Result{
		Content: strings.TrimSpace(sb.String()),
		Data:    map[string]any{"result_count": len(parsed.Results)},
	}, nil
}

type fetchInvoker struct {
	client *http.Client
}

func (f *fetchInvoker) Invoke(ctx context.Context, input map[string]any) (Result, error) {
	url, _ := input["url"].(string)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return Result{}, fmt.Errorf("unsupported URL scheme")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes))
	if err != nil {
		return Result{}, err
	}

	return Result{
		Content: string(data),
		Data:    map[string]any{"bytes": len(data), "content_type": resp.Header.Get("Content-Type")},
	}, nil
}

// currentDatetime reports now in the requested timezone, UTC by default.
func currentDatetime(_ context.Context, input map[string]any) (Result, error) {
	loc := time.UTC
	if tz, ok := input["timezone"].(string); ok {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return Result{}, fmt.Errorf("unknown timezone %q", tz)
		}
		loc = l
	}
	now := time.Now().In(loc)
	return Result{
		Content: now.Format("Monday, January 2, 2006 15:04:05 MST"),
		Data: map[string]any{
			"iso":      now.Format(time.RFC3339),
			"unix":     now.Unix(),
			"timezone": loc.String(),
		},
	}, nil
}

// approvalGate suspends until the operator answers, then reports the verdict
// back to the model as plain text. Rejection is a normal result so the model
// can adjust instead of erroring out.
func approvalGate(_ context.Context, input map[string]any) (Result, error) {
	action, _ := input["action"].(string)
	approved, answered := input["approved"].(bool)
	if !answered {
		payload := map[string]any{"action": action}
		if detail, ok := input["detail"].(string); ok && detail != "" {
			payload["detail"] = detail
		}
		return Result{}, Suspend("approval", payload)
	}

	comment, _ := input["comment"].(string)
	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	content := fmt.Sprintf("The operator %s the action: %s", verdict, action)
	if comment != "" {
		content += "\nOperator comment: " + comment
	}
	return Result{
		Content: content,
		Data:    map[string]any{"approved": approved},
	}, nil
}

// evalCalculator handles +,-,*,/ over two operands. Anything richer belongs
// in a real code-exec tool.
func evalCalculator(_ context.Context, input map[string]any) (Result, error) {
	expr, _ := input["expression"].(string)
	value, err := evalBinaryExpr(expr)
	if err != nil {
		return Result{}, err
	}
	text := strconv.FormatFloat(value, 'f', -1, 64)
	return Result{Content: text, Data: map[string]any{"value": value}}, nil
}

func evalBinaryExpr(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	for _, op := range []string{"+", "-", "*", "/"} {
		// Search from index 1 so a leading minus is treated as a sign.
		idx := strings.Index(expr[1:], op)
		if idx < 0 {
			continue
		}
		idx++
		left, errL := strconv.ParseFloat(strings.TrimSpace(expr[:idx]), 64)
		right, errR := strconv.ParseFloat(strings.TrimSpace(expr[idx+1:]), 64)
		if errL != nil || errR != nil {
			continue
		}
		switch op {
		case "+":
			return left + right, nil
		case "-":
			return left - right, nil
		case "*":
			return left * right, nil
		case "/":
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return left / right, nil
		}
	}
	if v, err := strconv.ParseFloat(expr, 64); err == nil {
		return v, nil
	}
	return 0, fmt.Errorf("unsupported expression: %q", expr)
}
