package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"surooh/app/core/audit"
	"surooh/app/core/brain"
	"surooh/app/core/memory"
	"surooh/app/core/orchestrator"
	"surooh/app/core/scoring"
	"surooh/app/pkg/types"
)

var ErrEmptyMessage = errors.New("agent: empty message")

// Surooh is the core agent: it runs every inbound message through the
// analysis pipeline, decides whether the request needs a worker agent,
// updates the session context and logs the exchange.
type Surooh struct {
	name       string
	brain      *brain.Brain
	classifier *orchestrator.Classifier
	orch       *orchestrator.Orchestrator
	mem        *memory.Store
	auditLog   *audit.Log
}

func New(name string, b *brain.Brain, classifier *orchestrator.Classifier, orch *orchestrator.Orchestrator, mem *memory.Store, auditLog *audit.Log) *Surooh {
	if strings.TrimSpace(name) == "" {
		name = "surooh"
	}
	return &Surooh{
		name:       name,
		brain:      b,
		classifier: classifier,
		orch:       orch,
		mem:        mem,
		auditLog:   auditLog,
	}
}

func (s *Surooh) Name() string {
	return s.name
}

// Process handles one message end to end. Empty input is the only
// synchronous failure; pipeline and dispatch problems surface inside the
// reply, not as errors.
func (s *Surooh) Process(ctx context.Context, msg types.Message) (types.Message, error) {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return types.Message{}, fmt.Errorf("%w: user=%s", ErrEmptyMessage, msg.UserID)
	}

	sessionID := strings.TrimSpace(msg.SessionID)
	if sessionID == "" {
		sessionID = "user:" + msg.UserID
	}

	resp := s.brain.Process(ctx, brain.Request{
		Message:   content,
		UserID:    msg.UserID,
		SessionID: sessionID,
		Mode:      msg.Mode,
		Context:   s.mem.Context(sessionID),
	})

	taskID := ""
	if !resp.Degraded && wantsExecution(content) {
		if worker, err := s.classifier.Classify(ctx, content); err == nil {
			id, createErr := s.orch.CreateTask(ctx, worker.Name, content, orchestrator.PriorityNormal)
			if createErr != nil {
				log.Printf("[Agent] task creation failed for user=%s: %v", msg.UserID, createErr)
			} else {
				taskID = id
			}
		} else if !errors.Is(err, orchestrator.ErrRoutingFailed) {
			log.Printf("[Agent] classification failed for user=%s: %v", msg.UserID, err)
		}
	}

	s.mem.AddToContext(sessionID, memory.ContextEntry{
		Type:    "query",
		Content: content,
		Answer:  resp.Text,
	})

	status := "ok"
	if resp.Degraded {
		status = "degraded"
	}
	if s.auditLog != nil {
		if err := s.auditLog.Append(audit.Exchange{
			UserID:     msg.UserID,
			SessionID:  sessionID,
			TraceID:    msg.RequestID,
			Request:    content,
			Response:   resp.Text,
			Status:     status,
			Confidence: resp.Confidence,
			TaskID:     taskID,
		}); err != nil {
			log.Printf("[Agent] audit append failed: %v", err)
		}
	}

	reply := types.Message{
		ID:        "resp-" + msg.ID,
		Content:   resp.Text,
		Role:      types.MessageRoleAssistant,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		SessionID: sessionID,
		RequestID: msg.RequestID,
		TaskID:    taskID,
		Meta: map[string]interface{}{
			"confidence":       resp.Confidence,
			"knowledge_gained": resp.KnowledgeGained,
			"stages":           len(resp.Stages),
			"degraded":         resp.Degraded,
		},
	}
	return reply, nil
}

// wantsExecution is the task gate: only messages carrying a request or
// technical signal go to a worker agent, plain questions stay as chat.
func wantsExecution(text string) bool {
	for _, tag := range scoring.DetectPatterns(text) {
		if tag == scoring.PatternRequest || tag == scoring.PatternTechnical {
			return true
		}
	}
	return false
}
