package diff

import (
	"regexp"

	"github.com/Houeta/watchdog/internal/models"
)

// volatilePatterns match regions that churn on every crawl without carrying
// meaning: timestamps, counters and session-specific tokens.
var volatilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}([ T]\d{2}:\d{2}(:\d{2})?)?\b`),
	regexp.MustCompile(`\b\d{1,2}:\d{2}(:\d{2})?\s?(AM|PM|am|pm)?\b`),
	regexp.MustCompile(`(?i)\b\d[\d,.]*\s?(views?|visits?|visitors?|downloads?|users?|customers?)\b`),
	regexp.MustCompile(`(?i)\b(sessid|session|token|csrf|nonce|request[-_]?id)[=:]\s?[A-Za-z0-9+/_-]{8,}`),
	regexp.MustCompile(`(?i)\blast (updated|modified|checked)\b.*`),
	regexp.MustCompile(`(?i)\bcopyright\b.*\d{4}|©\s?\d{4}`),
}

// typeVolatilePatterns extend the base rules per asset type.
var typeVolatilePatterns = map[models.AssetType][]*regexp.Regexp{
	models.AssetSocial: {
		regexp.MustCompile(`(?i)\b\d[\d,.]*[kKmM]?\s?(likes?|retweets?|reposts?|followers?|replies|shares?)\b`),
	},
	models.AssetBlog: {
		regexp.MustCompile(`(?i)\b\d+\s?(comments?|min read)\b`),
	},
	models.AssetNews: {
		regexp.MustCompile(`(?i)\b\d+\s?(minutes?|hours?|days?) ago\b`),
	},
}

// onlyVolatile reports whether every changed line falls inside a known
// volatile region for the asset type. An empty edit script is not volatile.
func onlyVolatile(assetType models.AssetType, lines []string) bool {
	if len(lines) == 0 {
		return false
	}

	patterns := volatilePatterns
	if extra, ok := typeVolatilePatterns[assetType]; ok {
		patterns = append(patterns, extra...)
	}

	for _, line := range lines {
		matched := false
		for _, pattern := range patterns {
			if pattern.MatchString(line) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}
