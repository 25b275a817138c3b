package gateway

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"surooh/app/core/agent"
	"surooh/app/core/gate"
	"surooh/app/pkg/types"
)

const rateLimitedText = "تجاوزت الحد المسموح من الطلبات، جرب مرة ثانية بعد شوي."

// Gateway fans inbound messages from all registered channels into the
// agent, with the admission gate in front. Channel loops run supervised;
// one failing channel brings the group down so main can restart cleanly.
type Gateway struct {
	channelMu sync.RWMutex
	channels  map[string]types.Channel
	agent     types.Agent
	admission *gate.Gate

	processed       atomic.Uint64
	rejected        atomic.Uint64
	failed          atomic.Uint64
	startedUnix     atomic.Int64
	lastMessageUnix atomic.Int64
}

type HealthStatus struct {
	Started       bool      `json:"started"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	AgentName     string    `json:"agent"`
	Channels      []string  `json:"channels"`
	Processed     uint64    `json:"processed"`
	Rejected      uint64    `json:"rejected"`
	Failed        uint64    `json:"failed"`
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
}

func New(a types.Agent, admission *gate.Gate) *Gateway {
	return &Gateway{
		channels:  make(map[string]types.Channel),
		agent:     a,
		admission: admission,
	}
}

func (g *Gateway) RegisterChannel(c types.Channel) {
	g.channelMu.Lock()
	defer g.channelMu.Unlock()
	g.channels[c.ID()] = c
	log.Printf("[Gateway] Registered channel: %s", c.ID())
}

// Start runs all channel loops until ctx is canceled or a channel fails.
func (g *Gateway) Start(ctx context.Context) error {
	g.startedUnix.Store(time.Now().Unix())

	group, groupCtx := errgroup.WithContext(ctx)
	g.channelMu.RLock()
	for _, c := range g.channels {
		channel := c
		group.Go(func() error {
			if err := channel.Start(groupCtx, func(msg types.Message) {
				g.handle(groupCtx, channel, msg)
			}); err != nil && groupCtx.Err() == nil {
				log.Printf("[Gateway] Channel %s error: %v", channel.ID(), err)
				return err
			}
			return nil
		})
	}
	g.channelMu.RUnlock()

	log.Println("[Gateway] Started all channels")
	return group.Wait()
}

func (g *Gateway) handle(ctx context.Context, channel types.Channel, msg types.Message) {
	g.processed.Add(1)
	g.lastMessageUnix.Store(time.Now().Unix())

	if err := g.admission.Check(msg.UserID); err != nil {
		g.rejected.Add(1)
		log.Printf("[Gateway] Rejected user=%s: %v", msg.UserID, err)
		g.sendError(ctx, channel, msg, rateLimitedText, "rate_limited")
		return
	}

	reply, err := g.agent.Process(ctx, msg)
	if err != nil {
		g.failed.Add(1)
		if errors.Is(err, agent.ErrEmptyMessage) {
			g.sendError(ctx, channel, msg, "ما وصلني شي، اكتب طلبك مرة ثانية.", "validation")
			return
		}
		log.Printf("[Gateway] Processing failed for user=%s: %v", msg.UserID, err)
		g.sendError(ctx, channel, msg, "صار خطأ غير متوقع، جرب مرة ثانية.", "internal")
		return
	}

	if reply.ChannelID == "" {
		reply.ChannelID = msg.ChannelID
	}
	if err := channel.Send(ctx, reply); err != nil {
		log.Printf("[Gateway] Reply delivery failed on %s: %v", channel.ID(), err)
	}
}

func (g *Gateway) sendError(ctx context.Context, channel types.Channel, msg types.Message, text string, reason string) {
	reply := types.Message{
		ID:        "resp-" + msg.ID,
		Content:   text,
		Role:      types.MessageRoleAssistant,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		SessionID: msg.SessionID,
		RequestID: msg.RequestID,
		Meta:      map[string]interface{}{"error": reason},
	}
	if err := channel.Send(ctx, reply); err != nil {
		log.Printf("[Gateway] Error reply delivery failed on %s: %v", channel.ID(), err)
	}
}

func (g *Gateway) HealthStatus() HealthStatus {
	g.channelMu.RLock()
	channels := make([]string, 0, len(g.channels))
	for id := range g.channels {
		channels = append(channels, id)
	}
	g.channelMu.RUnlock()
	sort.Strings(channels)

	status := HealthStatus{
		AgentName: g.agent.Name(),
		Channels:  channels,
		Processed: g.processed.Load(),
		Rejected:  g.rejected.Load(),
		Failed:    g.failed.Load(),
	}
	if started := g.startedUnix.Load(); started > 0 {
		status.Started = true
		status.StartedAt = time.Unix(started, 0).UTC()
	}
	if last := g.lastMessageUnix.Load(); last > 0 {
		status.LastMessageAt = time.Unix(last, 0).UTC()
	}
	return status
}
