package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"surooh/app/pkg/types"
)

// Channel is the local terminal loop. One line in, one reply out; the
// chat mode can be flipped inline with /smart and /creative.
type Channel struct {
	id     string
	userID string
	mode   string
}

func NewChannel(userID string) *Channel {
	if strings.TrimSpace(userID) == "" {
		userID = "local_user"
	}
	return &Channel{id: "cli", userID: userID, mode: types.ModeSmart}
}

func (c *Channel) ID() string {
	return c.id
}

func (c *Channel) Start(ctx context.Context, handler func(types.Message)) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println(">> سُروح CLI started. Type 'exit' to quit, /creative or /smart to switch modes.")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			fmt.Print("> ")
			if !scanner.Scan() {
				return nil
			}
			text := strings.TrimSpace(scanner.Text())
			switch text {
			case "":
				continue
			case "exit", "quit":
				fmt.Println("Exiting CLI loop...")
				return nil
			case "/creative":
				c.mode = types.ModeCreative
				fmt.Println("mode: creative")
				continue
			case "/smart":
				c.mode = types.ModeSmart
				fmt.Println("mode: smart")
				continue
			}

			msgID := fmt.Sprintf("cli-%d", time.Now().UnixNano())
			handler(types.Message{
				ID:        msgID,
				Content:   text,
				Role:      types.MessageRoleUser,
				ChannelID: c.id,
				UserID:    c.userID,
				RequestID: msgID,
				Mode:      c.mode,
			})
		}
	}
}

func (c *Channel) Send(ctx context.Context, msg types.Message) error {
	if strings.TrimSpace(msg.TaskID) != "" {
		fmt.Printf("[سُروح][task:%s]: %s\n", msg.TaskID, msg.Content)
		return nil
	}
	fmt.Printf("[سُروح]: %s\n", msg.Content)
	return nil
}
