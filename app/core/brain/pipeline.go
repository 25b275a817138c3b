package brain

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"surooh/app/core/knowledge"
	"surooh/app/pkg/types"
)

const degradedText = "عذراً، واجهت صعوبة في معالجة طلبك. يرجى المحاولة مرة أخرى."

const degradedConfidence = 30

// knowledgeGainFactor converts a learning run's insight count into the
// reported knowledge-gained figure.
const knowledgeGainFactor = 5

// Brain runs the seven-stage analysis pipeline over inbound requests.
// Stages execute strictly in order within a request; concurrent requests
// only share the underlying stores, which serialize their own access.
type Brain struct {
	reasoner types.Reasoner
	know     *knowledge.Store

	relevantK        int
	patternThreshold int
}

func New(reasoner types.Reasoner, know *knowledge.Store, relevantK int, patternThreshold int) *Brain {
	if relevantK <= 0 {
		relevantK = 5
	}
	if patternThreshold <= 0 {
		patternThreshold = 3
	}
	return &Brain{
		reasoner:         reasoner,
		know:             know,
		relevantK:        relevantK,
		patternThreshold: patternThreshold,
	}
}

type stage struct {
	name string
	fn   func(Request, []StageResult) StageResult
}

func (b *Brain) stages() []stage {
	return []stage{
		{StagePerception, b.perceive},
		{StageAnalysis, b.analyze},
		{StageReasoning, b.reason},
		{StageCreativity, b.create},
		{StageLearning, b.learnStage},
		{StageMemory, b.remember},
		{StageSynthesis, b.synthesize},
	}
}

// Process runs the full pipeline: seven stages, response generation and the
// learning update. Failures never escape; the caller always receives a
// well-formed response, degraded when generation fails.
func (b *Brain) Process(ctx context.Context, req Request) Response {
	results := make([]StageResult, 0, 7)
	for _, s := range b.stages() {
		start := time.Now()
		res := s.fn(req, results)
		res.Elapsed = time.Since(start)
		results = append(results, res)
	}

	text, err := b.reasoner.Complete(ctx, b.systemPrompt(req, results), req.Message)
	if err != nil {
		log.Printf("[Brain] response generation failed: %v", err)
		return Response{
			Text:       degradedText,
			Confidence: degradedConfidence,
			Stages:     nil,
			Degraded:   true,
		}
	}

	learned := b.learn(req.Message, text, results)

	sum := 0
	var pooled []string
	for _, res := range results {
		sum += res.Confidence
		pooled = append(pooled, res.Insights...)
	}
	overall := int(math.Round(float64(sum) / float64(len(results))))

	return Response{
		Text:            text,
		Confidence:      overall,
		Stages:          results,
		Insights:        pooled,
		KnowledgeGained: knowledgeGainFactor * len(learned),
	}
}

// systemPrompt embeds the stage trace and the most relevant knowledge units
// into the generation instructions.
func (b *Brain) systemPrompt(req Request, results []StageResult) string {
	var sb strings.Builder
	sb.WriteString("أنت سُروح، مساعد ذكي يرد بوضوح وإيجاز بلغة المستخدم.\n")
	sb.WriteString("Internal analysis trace (do not mention it to the user):\n")
	for _, res := range results {
		sb.WriteString(fmt.Sprintf("- %s: confidence %d", res.Name, res.Confidence))
		if len(res.Insights) > 0 {
			sb.WriteString(" (" + strings.Join(res.Insights, "; ") + ")")
		}
		sb.WriteString("\n")
	}

	units := b.know.TopRelevant(req.Message, b.relevantK)
	if len(units) > 0 {
		sb.WriteString("Relevant accumulated knowledge:\n")
		for _, unit := range units {
			sb.WriteString(fmt.Sprintf("- %s (confidence %d)", unit.Topic, unit.Confidence))
			if len(unit.Facts) > 0 {
				sb.WriteString(": " + strings.Join(unit.Facts, "; "))
			}
			sb.WriteString("\n")
		}
	}

	if len(req.Context) > 0 {
		sb.WriteString(fmt.Sprintf("Conversation context depth: %d entries.\n", len(req.Context)))
	}
	return sb.String()
}
