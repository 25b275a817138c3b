package types

import "context"

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// Chat modes accepted on inbound requests.
const (
	ModeSmart    = "smart"
	ModeCreative = "creative"
)

// Message represents a user input or an assistant reply crossing a channel.
type Message struct {
	ID        string
	Content   string
	Role      string // "user", "assistant", "system"
	ChannelID string // Source channel identifier (e.g., "http", "cli")
	UserID    string
	SessionID string
	RequestID string
	TaskID    string
	Mode      string // "smart" (default) or "creative"
	Meta      map[string]interface{}
}

// Agent represents the core reasoning entity behind the gateway.
type Agent interface {
	Process(ctx context.Context, msg Message) (Message, error)
	Name() string
}

// Channel represents an input/output interface (CLI, HTTP).
type Channel interface {
	Start(ctx context.Context, handler func(Message)) error
	Send(ctx context.Context, msg Message) error
	ID() string
}

// Reasoner is the external text-completion capability. Implementations
// apply their own call timeout and surface timeouts as errors.
type Reasoner interface {
	Complete(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// Gateway orchestrates channels and the agent.
type Gateway interface {
	RegisterChannel(c Channel)
	Start(ctx context.Context) error
}
