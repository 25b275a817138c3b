package brain

import (
	"fmt"
	"strings"
	"time"

	"surooh/app/core/knowledge"
	"surooh/app/core/scoring"
)

// topicVocab maps trigger keywords to canonical knowledge topics. Ordered
// slice so extraction is deterministic.
var topicVocab = []struct {
	Keyword string
	Topic   string
}{
	{"react", "React"},
	{"python", "Python"},
	{"javascript", "JavaScript"},
	{"flask", "Flask"},
	{"api", "API"},
	{"database", "Database"},
	{"قاعدة بيانات", "Database"},
	{"برمجة", "Programming"},
	{"كود", "Code"},
	{"مبيعات", "Sales"},
	{"تسويق", "Marketing"},
	{"عملاء", "Customers"},
	{"مشروع", "Project"},
}

// learn performs the post-response knowledge update: pattern frequency
// counting, strategy detection and topic extraction, in that order. Returns
// the insights generated by this call after recording them in the history.
func (b *Brain) learn(message string, response string, results []StageResult) []knowledge.Insight {
	now := time.Now()
	var insights []knowledge.Insight

	for _, tag := range scoring.DetectPatterns(message) {
		count, significant := b.know.BumpPattern(tag)
		// emit once, at the crossing
		if significant && count == b.patternThreshold+1 {
			insights = append(insights, knowledge.Insight{
				Content:    fmt.Sprintf("pattern %q recurs frequently (%d occurrences)", tag, count),
				Category:   knowledge.CategoryPattern,
				Importance: 3,
				Timestamp:  now,
				Source:     "pattern_detection",
			})
		}
	}

	for _, res := range results {
		if res.Confidence > 80 {
			insights = append(insights, knowledge.Insight{
				Content:    "learned a new response strategy from stage " + res.Name,
				Category:   knowledge.CategoryStrategy,
				Importance: 4,
				Timestamp:  now,
				Source:     "stage_confidence",
			})
			break
		}
	}

	combined := strings.ToLower(message + " " + response)
	fact := factFrom(message)
	for _, entry := range topicVocab {
		if !strings.Contains(combined, entry.Keyword) {
			continue
		}
		created := b.know.Touch(entry.Topic, fact)
		verb := "reinforced"
		if created {
			verb = "acquired"
		}
		insights = append(insights, knowledge.Insight{
			Content:    verb + " knowledge about " + entry.Topic,
			Category:   knowledge.CategoryKnowledge,
			Importance: 3,
			Timestamp:  now,
			Source:     "topic_extraction",
		})
	}

	b.know.RecordInsights(insights...)
	return insights
}

// factFrom trims the message into a short stored fact.
func factFrom(message string) string {
	runes := []rune(strings.TrimSpace(message))
	if len(runes) > 100 {
		return "mentioned in: " + string(runes[:100]) + "..."
	}
	return "mentioned in: " + string(runes)
}
