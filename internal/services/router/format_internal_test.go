package router

import (
	"strings"
	"testing"
	"time"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFormatDigest_GroupsByCompetitor(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	detectedAt := now.Add(-2 * time.Hour)

	changes := []models.PendingChange{
		{
			Change:         models.Change{ChangeType: "press_release", Priority: models.PriorityMedium, Summary: "Acme announced a partnership.", WhyItMatters: "Distribution reach grows.", DetectedAt: detectedAt},
			AssetType:      models.AssetNews,
			AssetURL:       "https://acme.example/news",
			CompetitorName: "Acme",
		},
		{
			Change:         models.Change{ChangeType: "changelog", Priority: models.PriorityMedium, Summary: "Acme shipped exports.", WhyItMatters: "Feature parity gap narrows.", DetectedAt: detectedAt},
			AssetType:      models.AssetChangelog,
			AssetURL:       "https://acme.example/changelog",
			CompetitorName: "Acme",
		},
		{
			Change:         models.Change{ChangeType: "press_release", Priority: models.PriorityMedium, Summary: "Globex raised a round.", WhyItMatters: "Expect hiring and product acceleration.", DetectedAt: detectedAt},
			AssetType:      models.AssetNews,
			AssetURL:       "https://globex.example/news",
			CompetitorName: "Globex",
		},
	}

	digest := formatDigest("Daily Digest", now, changes)

	assert.True(t, strings.HasPrefix(digest, "Daily Digest (2026-03-02): 3 change(s)"))
	// One section header per competitor, not per change.
	assert.Equal(t, 1, strings.Count(digest, "\nAcme\n"))
	assert.Equal(t, 1, strings.Count(digest, "\nGlobex\n"))
	assert.Equal(t, 3, strings.Count(digest, "Citation (URL + timestamp):"))
	assert.Less(t, strings.Index(digest, "\nAcme\n"), strings.Index(digest, "\nGlobex\n"))
}
