package brain

import (
	"time"

	"surooh/app/core/memory"
)

// Stage names, in execution order.
const (
	StagePerception = "perception"
	StageAnalysis   = "analysis"
	StageReasoning  = "reasoning"
	StageCreativity = "creativity"
	StageLearning   = "learning"
	StageMemory     = "memory"
	StageSynthesis  = "synthesis"
)

const (
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
)

// Request is one inbound message plus the session context it runs against.
type Request struct {
	Message   string
	UserID    string
	SessionID string
	Mode      string
	Context   []memory.ContextEntry
}

// StageResult is the scored partial output of a single pipeline stage.
type StageResult struct {
	Name       string        `json:"name"`
	Status     string        `json:"status"`
	Summary    string        `json:"summary"`
	Insights   []string      `json:"insights"`
	Confidence int           `json:"confidence"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Response is the pipeline's composite assessment of a request.
type Response struct {
	Text            string        `json:"text"`
	Confidence      int           `json:"confidence"`
	Stages          []StageResult `json:"stages"`
	Insights        []string      `json:"insights"`
	KnowledgeGained int           `json:"knowledge_gained"`
	Degraded        bool          `json:"degraded"`
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// priorConfidence looks up a named prior stage's confidence, 0 if absent.
func priorConfidence(prior []StageResult, name string) int {
	for _, p := range prior {
		if p.Name == name {
			return p.Confidence
		}
	}
	return 0
}
