package brain

import (
	"fmt"
	"strings"

	"surooh/app/core/scoring"
)

// Term tables feeding the stage heuristics. Arabic and English side by side,
// matching the request vocabulary the system actually receives.
var (
	applicationTerms = []string{"تطبيق", "موقع", "نظام", "منصة", "app", "application", "website", "system", "platform"}
	technologyTerms  = []string{"react", "python", "javascript", "node", "flask", "api", "database", "sql", "قاعدة بيانات", "برمجة", "كود", "code"}
	designTerms      = []string{"تصميم", "ديزاين", "لوجو", "واجهة", "إبداع", "design", "logo", "ui", "ux", "creative", "brand"}
)

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// perceive reads the surface signals of the message.
func (b *Brain) perceive(req Request, prior []StageResult) StageResult {
	confidence := 85
	var insights []string
	if len(req.Message) > 100 {
		insights = append(insights, "detailed message received")
	}
	tags := scoring.DetectPatterns(req.Message)
	for _, tag := range tags {
		switch {
		case tag == scoring.PatternRequest:
			insights = append(insights, "user expressed a request")
		case tag == scoring.PatternQuestion:
			insights = append(insights, "user asked a question")
		}
	}
	return StageResult{
		Name:       StagePerception,
		Status:     StageStatusCompleted,
		Summary:    fmt.Sprintf("perceived %d signal(s) in %d chars", len(tags), len(req.Message)),
		Insights:   insights,
		Confidence: clampConfidence(confidence),
	}
}

// analyze scores structural richness of the request.
func (b *Brain) analyze(req Request, prior []StageResult) StageResult {
	confidence := 80
	var insights []string
	words := len(strings.Fields(req.Message))
	if words > 20 {
		confidence += 5
		insights = append(insights, "long-form request, structure extracted")
	}
	if len(req.Context) > 0 {
		confidence += 10
		insights = append(insights, "conversation context available")
	}
	return StageResult{
		Name:       StageAnalysis,
		Status:     StageStatusCompleted,
		Summary:    fmt.Sprintf("analyzed %d words, %d context entries", words, len(req.Context)),
		Insights:   insights,
		Confidence: clampConfidence(confidence),
	}
}

// reason correlates domain terms and the analysis verdict.
func (b *Brain) reason(req Request, prior []StageResult) StageResult {
	confidence := 75
	var insights []string
	lower := strings.ToLower(req.Message)
	if containsAny(lower, applicationTerms) && containsAny(lower, technologyTerms) {
		confidence += 15
		insights = append(insights, "request names both an application type and a technology")
	}
	if priorConfidence(prior, StageAnalysis) > 85 {
		confidence += 10
		insights = append(insights, "high-confidence analysis reinforces reasoning")
	}
	return StageResult{
		Name:       StageReasoning,
		Status:     StageStatusCompleted,
		Summary:    "logical pass over request intent",
		Insights:   insights,
		Confidence: clampConfidence(confidence),
	}
}

// create scores the creative dimension of the request.
func (b *Brain) create(req Request, prior []StageResult) StageResult {
	confidence := 70
	var insights []string
	if req.Mode == "creative" {
		confidence += 20
		insights = append(insights, "creative mode active")
	}
	if containsAny(strings.ToLower(req.Message), designTerms) {
		confidence += 15
		insights = append(insights, "design vocabulary detected")
	}
	return StageResult{
		Name:       StageCreativity,
		Status:     StageStatusCompleted,
		Summary:    "creative framing considered",
		Insights:   insights,
		Confidence: clampConfidence(confidence),
	}
}

// learnStage checks how much accumulated learning applies to this request.
func (b *Brain) learnStage(req Request, prior []StageResult) StageResult {
	confidence := 65
	var insights []string
	if containsAny(strings.ToLower(req.Message), technologyTerms) {
		confidence += 10
		insights = append(insights, "request overlaps known technical terms")
	}
	if b.know.HistoryLen() > 10 {
		confidence += 15
		insights = append(insights, "established learning history applied")
	}
	return StageResult{
		Name:       StageLearning,
		Status:     StageStatusCompleted,
		Summary:    fmt.Sprintf("learning history depth %d", b.know.HistoryLen()),
		Insights:   insights,
		Confidence: clampConfidence(confidence),
	}
}

// remember relates the request to recent context and the knowledge base.
func (b *Brain) remember(req Request, prior []StageResult) StageResult {
	confidence := 80
	var insights []string

	lead := firstWord(req.Message)
	recent := req.Context
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	for _, entry := range recent {
		if lead != "" && firstWord(entry.Content) == lead {
			confidence += 10
			insights = append(insights, "recent context shares the request's opening word")
			break
		}
	}
	if b.know.CountTopicsIn(req.Message) > 0 {
		confidence += 15
		insights = append(insights, "known knowledge topics referenced")
	}
	return StageResult{
		Name:       StageMemory,
		Status:     StageStatusCompleted,
		Summary:    fmt.Sprintf("checked %d recent entries", len(recent)),
		Insights:   insights,
		Confidence: clampConfidence(confidence),
	}
}

// synthesize folds the six prior stages into a final verdict band.
func (b *Brain) synthesize(req Request, prior []StageResult) StageResult {
	sum := 0
	for _, p := range prior {
		sum += p.Confidence
	}
	mean := 0.0
	if len(prior) > 0 {
		mean = float64(sum) / float64(len(prior))
	}

	confidence := 70
	switch {
	case mean > 80:
		confidence = 95
	case mean > 60:
		confidence = 85
	}

	insights := []string{
		fmt.Sprintf("synthesized %d active stages", len(prior)),
		fmt.Sprintf("mean stage confidence %.1f", mean),
	}
	return StageResult{
		Name:       StageSynthesis,
		Status:     StageStatusCompleted,
		Summary:    "composite assessment formed",
		Insights:   insights,
		Confidence: confidence,
	}
}

func firstWord(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
