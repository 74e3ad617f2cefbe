package classifier

import (
	"regexp"
	"strings"

	"github.com/Houeta/watchdog/internal/models"
)

// priorityByChangeType is the deterministic priority rule table. For the
// categories it covers it wins over the reasoning collaborator's priority.
var priorityByChangeType = map[string]models.Priority{
	"pricing":       models.PriorityHigh,
	"free_tier":     models.PriorityHigh,
	"feature":       models.PriorityHigh,
	"compliance":    models.PriorityHigh,
	"integration":   models.PriorityHigh,
	"changelog":     models.PriorityMedium,
	"press_release": models.PriorityMedium,
	"case_study":    models.PriorityMedium,
	"customer_logo": models.PriorityMedium,
	"content":       models.PriorityLow,
	"blog":          models.PriorityLow,
	"testimonial":   models.PriorityLow,
}

// PriorityRulesText is the rule table as sent to the reasoning collaborator.
const PriorityRulesText = `PRIORITY RULES:
- HIGH: pricing changes, free tier introduction/removal, major feature launches, security/compliance certifications, major integrations
- MEDIUM: changelog updates, press releases, new case studies, new customer logos
- LOW: homepage/landing page copy changes, general industry blog posts, testimonials`

// Keyword tables for degraded-mode priority assignment.
var (
	highPriorityKeywords = []string{
		"pricing", "price", "tier", "plan", "free tier",
		"certification", "compliance", "soc", "iso", "gdpr", "hipaa",
		"integration", "launch", "release", "feature",
	}
	mediumPriorityKeywords = []string{
		"changelog", "update", "news", "press release",
		"case study", "customer", "logo",
	}
	lowPriorityKeywords = []string{
		"homepage", "landing", "testimonial", "blog",
		"thought leadership", "industry",
	}
)

var priorityRank = map[models.Priority]int{
	models.PriorityHigh:   3,
	models.PriorityMedium: 2,
	models.PriorityLow:    1,
}

// resolvePriority lets the deterministic table win for the change types it
// covers; the collaborator's priority is used only outside the table.
func resolvePriority(changeType string, suggested models.Priority) models.Priority {
	if priority, ok := priorityByChangeType[strings.ToLower(changeType)]; ok {
		return priority
	}
	if _, ok := priorityRank[suggested]; ok {
		return suggested
	}

	return models.PriorityMedium
}

// keywordPriority assigns a priority from keyword tables when no change
// type resolves, mirroring the degraded-mode rules.
func keywordPriority(text string) models.Priority {
	text = strings.ToLower(text)

	matches := func(keywords []string) bool {
		for _, keyword := range keywords {
			if strings.Contains(text, keyword) {
				return true
			}
		}
		return false
	}

	if matches(highPriorityKeywords) && !matches(lowPriorityKeywords) {
		return models.PriorityHigh
	}
	if matches(mediumPriorityKeywords) {
		return models.PriorityMedium
	}

	return models.PriorityLow
}

// hedgePattern flags speculative phrasing in the rationale; causalPhrases
// allow hedges that state a causal link to a reviewed fact.
var (
	hedgePattern  = regexp.MustCompile(`(?i)\b(might|could|possibly|perhaps|maybe|potentially)\b`)
	causalPhrases = []string{"could indicate", "might suggest"}
)

func isSpeculative(rationale string) bool {
	if !hedgePattern.MatchString(rationale) {
		return false
	}

	lower := strings.ToLower(rationale)
	for _, phrase := range causalPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	return true
}

// sentenceEnd matches a sentence terminator followed by whitespace or the
// end of the text, so "$5.99" does not count as a boundary.
var sentenceEnd = regexp.MustCompile(`[.!?]+(\s|$)`)

func countSentences(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	count := len(sentenceEnd.FindAllString(text, -1))
	if count == 0 {
		count = 1
	}

	return count
}
