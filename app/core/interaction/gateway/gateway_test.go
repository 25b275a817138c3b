package gateway

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"surooh/app/core/agent"
	"surooh/app/core/gate"
	"surooh/app/pkg/types"
)

type echoAgent struct{}

func (echoAgent) Name() string { return "echo" }

func (echoAgent) Process(ctx context.Context, msg types.Message) (types.Message, error) {
	return types.Message{
		ID:      "resp-" + msg.ID,
		Content: "echo: " + msg.Content,
		Role:    types.MessageRoleAssistant,
		UserID:  msg.UserID,
	}, nil
}

type validationAgent struct{}

func (validationAgent) Name() string { return "strict" }

func (validationAgent) Process(ctx context.Context, msg types.Message) (types.Message, error) {
	return types.Message{}, fmt.Errorf("%w: user=%s", agent.ErrEmptyMessage, msg.UserID)
}

type scriptChannel struct {
	id     string
	inputs []types.Message

	mu   sync.Mutex
	sent []types.Message
	done chan struct{}
}

func newScriptChannel(id string, inputs ...types.Message) *scriptChannel {
	return &scriptChannel{id: id, inputs: inputs, done: make(chan struct{})}
}

func (c *scriptChannel) ID() string { return c.id }

func (c *scriptChannel) Start(ctx context.Context, handler func(types.Message)) error {
	for _, msg := range c.inputs {
		msg.ChannelID = c.id
		handler(msg)
	}
	close(c.done)
	<-ctx.Done()
	return nil
}

func (c *scriptChannel) Send(ctx context.Context, msg types.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *scriptChannel) replies() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Message, len(c.sent))
	copy(out, c.sent)
	return out
}

func runGateway(t *testing.T, g *Gateway, channels ...*scriptChannel) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Start(ctx) }()

	for _, c := range channels {
		select {
		case <-c.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("channel %s never drained", c.id)
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("gateway did not stop")
	}
}

func TestRepliesRoutedBackToChannel(t *testing.T) {
	ch := newScriptChannel("cli", types.Message{ID: "m-1", Content: "مرحبا", UserID: "u"})
	g := New(echoAgent{}, gate.New(10, time.Hour))
	g.RegisterChannel(ch)
	runGateway(t, g, ch)

	replies := ch.replies()
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	if replies[0].Content != "echo: مرحبا" {
		t.Fatalf("unexpected reply: %q", replies[0].Content)
	}
	if status := g.HealthStatus(); status.Processed != 1 || status.Rejected != 0 {
		t.Fatalf("unexpected health: %+v", status)
	}
}

func TestRateLimitedRequestNeverReachesAgent(t *testing.T) {
	inputs := []types.Message{
		{ID: "m-1", Content: "one", UserID: "u"},
		{ID: "m-2", Content: "two", UserID: "u"},
		{ID: "m-3", Content: "three", UserID: "u"},
	}
	ch := newScriptChannel("cli", inputs...)
	g := New(echoAgent{}, gate.New(2, time.Hour))
	g.RegisterChannel(ch)
	runGateway(t, g, ch)

	replies := ch.replies()
	if len(replies) != 3 {
		t.Fatalf("expected 3 replies, got %d", len(replies))
	}
	last := replies[2]
	if reason, _ := last.Meta["error"].(string); reason != "rate_limited" {
		t.Fatalf("expected rate_limited reply, got %+v", last)
	}
	if status := g.HealthStatus(); status.Rejected != 1 {
		t.Fatalf("expected 1 rejection, got %+v", status)
	}
}

func TestValidationErrorReply(t *testing.T) {
	ch := newScriptChannel("cli", types.Message{ID: "m-1", Content: "", UserID: "u"})
	g := New(validationAgent{}, gate.New(10, time.Hour))
	g.RegisterChannel(ch)
	runGateway(t, g, ch)

	replies := ch.replies()
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	if reason, _ := replies[0].Meta["error"].(string); reason != "validation" {
		t.Fatalf("expected validation reply, got %+v", replies[0])
	}
}
