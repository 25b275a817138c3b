package reasoner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var (
	ErrUnavailable = errors.New("reasoner: service unavailable")
	ErrTimeout     = errors.New("reasoner: call timed out")
)

// Client talks to the generative reasoning service. It is an opaque
// completion capability: prompt in, free text out, bounded by a timeout.
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
}

func NewClient(apiKey string, model string, timeout time.Duration) *Client {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o"
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		api:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}
}

// Complete sends the prompts and returns the completion text. Timeouts and
// transport failures surface as ErrTimeout / ErrUnavailable so callers can
// degrade without inspecting provider error types.
func (c *Client) Complete(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
