package scoring

import "strings"

// Pattern tags produced by DetectPatterns.
const (
	PatternCommand   = "command"
	PatternQuestion  = "question_pattern"
	PatternRequest   = "request_pattern"
	PatternTechnical = "technical_request"
)

// PatternRule classifies a message into a tag. Rules are data, not control
// flow: a rule either matches a leading prefix or any keyword from its list.
type PatternRule struct {
	Tag      string
	Prefix   string
	Keywords []string
}

var defaultRules = []PatternRule{
	{Tag: PatternCommand, Prefix: "/"},
	{Tag: PatternQuestion, Keywords: []string{"كيف", "شو", "ليش", "وين", "متى", "how", "what", "why", "where", "when", "?"}},
	{Tag: PatternRequest, Keywords: []string{"بدي", "أريد", "ممكن", "عاوز", "i want", "i need", "please", "can you"}},
	{Tag: PatternTechnical, Keywords: []string{"كود", "برمجة", "تطبيق", "موقع", "api", "code", "app", "website", "database"}},
}

// Rules returns the active pattern rule table.
func Rules() []PatternRule {
	out := make([]PatternRule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// DetectPatterns classifies text against the rule table and returns the
// matched tags in rule order. A command match carries the command word so
// distinct commands count as distinct patterns.
func DetectPatterns(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	lower := strings.ToLower(trimmed)

	var tags []string
	for _, rule := range defaultRules {
		if rule.Prefix != "" {
			if strings.HasPrefix(trimmed, rule.Prefix) {
				head := strings.Fields(trimmed)[0]
				tags = append(tags, rule.Tag+":"+head)
			}
			continue
		}
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, rule.Tag)
				break
			}
		}
	}
	return tags
}

// Similarity computes token-set Jaccard similarity between two texts in
// [0,1]. It is a literal-overlap proxy, not a semantic measure: callers may
// only assume that a higher score means more shared tokens. Returns 0 when
// either side has no tokens.
func Similarity(query string, candidate string) float64 {
	qs := tokenSet(query)
	cs := tokenSet(candidate)
	if len(qs) == 0 || len(cs) == 0 {
		return 0
	}

	intersection := 0
	for tok := range qs {
		if _, ok := cs[tok]; ok {
			intersection++
		}
	}
	union := len(qs) + len(cs) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
