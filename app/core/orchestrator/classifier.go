package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"surooh/app/pkg/types"
)

// categoryRules map request vocabulary to agent categories. Evaluated in
// order; scoring counts keyword hits per category so mixed requests go to
// the category with the strongest signal.
var categoryRules = []struct {
	Category string
	Keywords []string
}{
	{"design", []string{"تصميم", "لوجو", "شعار", "هوية", "واجهة", "ديزاين", "design", "logo", "ui", "ux", "brand", "poster"}},
	{"development", []string{"موقع", "متجر", "منصة", "تطبيق", "نظام", "website", "webapp", "platform", "fullstack", "frontend", "backend", "full-stack"}},
	{"code", []string{"كود", "برمجة", "دالة", "سكريبت", "خوارزمية", "code", "function", "script", "api", "bug", "debug", "python", "javascript"}},
}

// Classifier decides which worker agent should own a request. Keyword
// rules run first; when they are ambiguous one reasoner call may refine
// the category. The result must name a registered agent.
type Classifier struct {
	registry *Registry
	reasoner types.Reasoner
	timeout  time.Duration
}

func NewClassifier(registry *Registry, reasoner types.Reasoner, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Classifier{registry: registry, reasoner: reasoner, timeout: timeout}
}

// Classify returns the worker agent for the request text, or
// ErrRoutingFailed when no registered category can be established.
func (c *Classifier) Classify(ctx context.Context, text string) (WorkerAgent, error) {
	category, decisive := keywordCategory(text)
	if decisive {
		if agent, ok := c.registry.ByCategory(category); ok {
			return agent, nil
		}
	}

	if c.reasoner != nil {
		if agent, err := c.refine(ctx, text); err == nil {
			return agent, nil
		}
	}

	// a non-decisive keyword hit is still better than nothing
	if category != "" {
		if agent, ok := c.registry.ByCategory(category); ok {
			return agent, nil
		}
	}
	return WorkerAgent{}, fmt.Errorf("%w: %q", ErrRoutingFailed, truncate(text, 60))
}

// keywordCategory scores keyword hits per category. Decisive means a
// single category scored strictly higher than all others.
func keywordCategory(text string) (string, bool) {
	lower := strings.ToLower(text)
	best, bestScore, tie := "", 0, false
	for _, rule := range categoryRules {
		score := 0
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score == 0 {
			continue
		}
		switch {
		case score > bestScore:
			best, bestScore, tie = rule.Category, score, false
		case score == bestScore:
			tie = true
		}
	}
	return best, best != "" && !tie
}

func (c *Classifier) refine(ctx context.Context, text string) (WorkerAgent, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var categories []string
	for _, agent := range c.registry.Agents() {
		categories = append(categories, agent.Category)
	}
	system := fmt.Sprintf(
		"Classify the user request into exactly one category of: %s. Reply with JSON only: {\"category\":\"...\"}",
		strings.Join(categories, ", "))

	out, err := c.reasoner.Complete(callCtx, system, text)
	if err != nil {
		return WorkerAgent{}, err
	}
	category := gjson.Get(extractJSON(out), "category").String()
	agent, ok := c.registry.ByCategory(strings.TrimSpace(category))
	if !ok {
		return WorkerAgent{}, fmt.Errorf("%w: refined category %q not registered", ErrRoutingFailed, category)
	}
	return agent, nil
}

// extractJSON cuts the first top-level JSON object out of a completion,
// tolerating prose or code fences around it.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
