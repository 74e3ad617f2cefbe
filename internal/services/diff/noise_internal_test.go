package diff

import (
	"testing"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestOnlyVolatile(t *testing.T) {
	testCases := []struct {
		name      string
		assetType models.AssetType
		lines     []string
		expected  bool
	}{
		{
			name:      "empty edit script is not volatile",
			assetType: models.AssetPricing,
			lines:     nil,
			expected:  false,
		},
		{
			name:      "timestamps only",
			assetType: models.AssetPricing,
			lines:     []string{"Last updated 2026-03-01", "Generated at 09:15 AM"},
			expected:  true,
		},
		{
			name:      "view counters only",
			assetType: models.AssetBlog,
			lines:     []string{"1,204 views", "87 comments"},
			expected:  true,
		},
		{
			name:      "session tokens only",
			assetType: models.AssetPricing,
			lines:     []string{"csrf: dGhpcyBpcyBub3QgcmVhbA"},
			expected:  true,
		},
		{
			name:      "copyright year bump",
			assetType: models.AssetPricing,
			lines:     []string{"Copyright Acme 2026"},
			expected:  true,
		},
		{
			name:      "pricing line is never volatile",
			assetType: models.AssetPricing,
			lines:     []string{"Pro: $59"},
			expected:  false,
		},
		{
			name:      "one real line among noise keeps the change",
			assetType: models.AssetPricing,
			lines:     []string{"Last updated 2026-03-01", "Pro: $59"},
			expected:  false,
		},
		{
			name:      "social engagement counters",
			assetType: models.AssetSocial,
			lines:     []string{"1.2k likes", "300 retweets"},
			expected:  true,
		},
		{
			name:      "engagement counters on a pricing page are not covered",
			assetType: models.AssetPricing,
			lines:     []string{"1.2k likes"},
			expected:  false,
		},
		{
			name:      "news relative timestamps",
			assetType: models.AssetNews,
			lines:     []string{"Posted 3 hours ago"},
			expected:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, onlyVolatile(tc.assetType, tc.lines))
		})
	}
}
