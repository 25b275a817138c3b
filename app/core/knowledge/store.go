package knowledge

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Insight categories.
const (
	CategoryPattern   = "pattern_recognition"
	CategoryStrategy  = "response_strategy"
	CategoryKnowledge = "knowledge_building"
)

const (
	initialConfidence   = 70
	confidenceIncrement = 5
	maxConfidence       = 100
)

// Unit is an accumulated fact record keyed by topic. Confidence only ever
// increases (capped at 100); units are never deleted.
type Unit struct {
	Topic         string
	Facts         []string
	Relationships map[string]string
	Confidence    int
	LastUpdated   time.Time
}

// Insight is an immutable learning event.
type Insight struct {
	Content    string
	Category   string
	Importance int // 1-5
	Timestamp  time.Time
	Source     string
}

type Stats struct {
	Units    int            `json:"units"`
	Insights int            `json:"insights"`
	Patterns map[string]int `json:"patterns"`
}

// Store owns the knowledge base, the bounded insight history and the
// pattern frequency counters. All access goes through its methods; raw
// structural access is never exposed.
type Store struct {
	mu               sync.RWMutex
	units            map[string]*Unit
	insights         []Insight
	patterns         map[string]int
	insightLimit     int
	patternThreshold int
}

func NewStore(insightLimit int, patternThreshold int) *Store {
	if insightLimit <= 0 {
		insightLimit = 200
	}
	if patternThreshold <= 0 {
		patternThreshold = 3
	}
	return &Store{
		units:            make(map[string]*Unit),
		patterns:         make(map[string]int),
		insightLimit:     insightLimit,
		patternThreshold: patternThreshold,
	}
}

// Touch creates the unit for topic on first mention (confidence 70) or
// merges the fact into the existing unit (+5 confidence, capped at 100).
// Facts are deduplicated while preserving insertion order. Returns true
// when the topic was newly created.
func (s *Store) Touch(topic string, fact string) bool {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unit, ok := s.units[topic]
	if !ok {
		unit = &Unit{
			Topic:         topic,
			Relationships: map[string]string{},
			Confidence:    initialConfidence,
		}
		if fact != "" {
			unit.Facts = []string{fact}
		}
		unit.LastUpdated = time.Now()
		s.units[topic] = unit
		return true
	}

	if fact != "" && !containsFact(unit.Facts, fact) {
		unit.Facts = append(unit.Facts, fact)
	}
	unit.Confidence += confidenceIncrement
	if unit.Confidence > maxConfidence {
		unit.Confidence = maxConfidence
	}
	unit.LastUpdated = time.Now()
	return false
}

// Relate records a relationship pair on an existing topic.
func (s *Store) Relate(topic string, key string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit, ok := s.units[topic]
	if !ok {
		return
	}
	unit.Relationships[key] = value
	unit.LastUpdated = time.Now()
}

// Unit returns a snapshot of the topic's unit.
func (s *Store) Unit(topic string) (Unit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unit, ok := s.units[topic]
	if !ok {
		return Unit{}, false
	}
	return cloneUnit(unit), true
}

// TopRelevant returns up to k units whose topic or facts literally appear
// in the message, ranked by confidence descending with most recently
// updated first on ties. The snapshot is taken under a single lock.
func (s *Store) TopRelevant(message string, k int) []Unit {
	if k <= 0 {
		k = 5
	}
	lower := strings.ToLower(message)

	s.mu.RLock()
	relevant := make([]Unit, 0, k)
	for _, unit := range s.units {
		if unitMatches(unit, lower) {
			relevant = append(relevant, cloneUnit(unit))
		}
	}
	s.mu.RUnlock()

	sort.Slice(relevant, func(i, j int) bool {
		if relevant[i].Confidence != relevant[j].Confidence {
			return relevant[i].Confidence > relevant[j].Confidence
		}
		return relevant[i].LastUpdated.After(relevant[j].LastUpdated)
	})
	if len(relevant) > k {
		relevant = relevant[:k]
	}
	return relevant
}

// CountTopicsIn reports how many known topics literally appear in the text.
func (s *Store) CountTopicsIn(text string) int {
	lower := strings.ToLower(text)
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for topic := range s.units {
		if strings.Contains(lower, strings.ToLower(topic)) {
			count++
		}
	}
	return count
}

// RecordInsights appends insights to the bounded history, evicting the
// oldest entries FIFO beyond the limit.
func (s *Store) RecordInsights(insights ...Insight) {
	if len(insights) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights = append(s.insights, insights...)
	if overflow := len(s.insights) - s.insightLimit; overflow > 0 {
		s.insights = append([]Insight(nil), s.insights[overflow:]...)
	}
}

// History returns a copy of the insight history, oldest first.
func (s *Store) History() []Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Insight, len(s.insights))
	copy(out, s.insights)
	return out
}

func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.insights)
}

// BumpPattern increments the frequency counter for a pattern tag and
// reports whether the pattern is now significant (count above threshold).
func (s *Store) BumpPattern(tag string) (count int, significant bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[tag]++
	count = s.patterns[tag]
	return count, count > s.patternThreshold
}

// SignificantPatterns returns the tags whose counts exceed the threshold.
func (s *Store) SignificantPatterns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tags []string
	for tag, count := range s.patterns {
		if count > s.patternThreshold {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// RecordTaskOutcome feeds a task completion back into the knowledge layer
// so execution history can reinforce future routing decisions.
func (s *Store) RecordTaskOutcome(agentName string, category string, success bool) {
	tag := "agent_failure:" + agentName
	content := "Worker agent " + agentName + " failed a " + category + " task"
	importance := 2
	if success {
		tag = "agent_success:" + agentName
		content = "Worker agent " + agentName + " completed a " + category + " task"
		importance = 4
	}
	s.BumpPattern(tag)
	s.RecordInsights(Insight{
		Content:    content,
		Category:   CategoryStrategy,
		Importance: importance,
		Timestamp:  time.Now(),
		Source:     "task_completion",
	})
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	patterns := make(map[string]int, len(s.patterns))
	for tag, count := range s.patterns {
		patterns[tag] = count
	}
	return Stats{
		Units:    len(s.units),
		Insights: len(s.insights),
		Patterns: patterns,
	}
}

func unitMatches(unit *Unit, lowerMessage string) bool {
	if strings.Contains(lowerMessage, strings.ToLower(unit.Topic)) {
		return true
	}
	for _, fact := range unit.Facts {
		if strings.Contains(lowerMessage, strings.ToLower(fact)) {
			return true
		}
	}
	return false
}

func cloneUnit(unit *Unit) Unit {
	out := Unit{
		Topic:         unit.Topic,
		Confidence:    unit.Confidence,
		LastUpdated:   unit.LastUpdated,
		Facts:         append([]string(nil), unit.Facts...),
		Relationships: make(map[string]string, len(unit.Relationships)),
	}
	for k, v := range unit.Relationships {
		out.Relationships[k] = v
	}
	return out
}

func containsFact(facts []string, fact string) bool {
	for _, f := range facts {
		if f == fact {
			return true
		}
	}
	return false
}
