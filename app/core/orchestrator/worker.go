package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Client invokes worker agents over HTTP. The per-call deadline comes from
// the caller's context; the transport itself carries no timeout so the
// dispatch queue stays in control of attempt budgets.
type Client struct {
	http *http.Client
}

func NewClient() *Client {
	return &Client{http: &http.Client{}}
}

// Execute POSTs the task to the agent's endpoint and returns the result
// content. Any transport error, non-2xx status or success=false reply is
// an execution failure.
func (c *Client) Execute(ctx context.Context, agent WorkerAgent, payload string, priority string) (string, error) {
	body, err := buildExecutePayload(payload, priority)
	if err != nil {
		return "", fmt.Errorf("build payload for %s: %w", agent.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agent.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", agent.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call agent %s: %w", agent.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read reply from %s: %w", agent.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("agent %s replied %d: %s", agent.Name, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return parseExecuteReply(agent.Name, string(raw))
}

func buildExecutePayload(payload string, priority string) ([]byte, error) {
	body, err := sjson.Set("", "task_description", payload)
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "requirements", []string{})
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "priority", priority)
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func parseExecuteReply(agentName string, raw string) (string, error) {
	if !gjson.Valid(raw) {
		return "", fmt.Errorf("agent %s returned invalid JSON", agentName)
	}
	if !gjson.Get(raw, "success").Bool() {
		message := gjson.Get(raw, "message").String()
		if message == "" {
			message = "execution failed"
		}
		return "", fmt.Errorf("agent %s: %s", agentName, message)
	}
	for _, field := range []string{"result", "content", "message"} {
		if value := gjson.Get(raw, field); value.Exists() && value.String() != "" {
			return value.String(), nil
		}
	}
	return "", nil
}
