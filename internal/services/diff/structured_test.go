package diff_test

import (
	"testing"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/Houeta/watchdog/internal/services/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareStructured_Pricing(t *testing.T) {
	before := map[string]any{
		"tiers":         map[string]any{"Pro": "$49", "Team": "$99"},
		"has_free_tier": false,
	}
	after := map[string]any{
		"tiers":         map[string]any{"Pro": "$59", "Enterprise": "$499"},
		"has_free_tier": true,
	}

	result := diff.CompareStructured(before, after, models.AssetPricing)

	require.NotNil(t, result)
	assert.Equal(t, []models.FieldChange{
		{Field: "tier:Enterprise", After: "$499"},
		{Field: "tier:Pro", Before: "$49", After: "$59"},
		{Field: "tier:Team", Before: "$99"},
		{Field: "free_tier", Before: "false", After: "true"},
	}, result.Changes)
}

func TestCompareStructured_PricingUnchanged(t *testing.T) {
	metadata := map[string]any{
		"tiers":         map[string]any{"Pro": "$49"},
		"has_free_tier": false,
	}

	assert.Nil(t, diff.CompareStructured(metadata, metadata, models.AssetPricing))
}

func TestCompareStructured_FeatureSet(t *testing.T) {
	before := map[string]any{"features": []any{"SSO", "Audit log"}}
	after := map[string]any{"features": []any{"SSO", "SCIM provisioning"}}

	result := diff.CompareStructured(before, after, models.AssetFeatures)

	require.NotNil(t, result)
	assert.Equal(t, []models.FieldChange{
		{Field: "features", After: "SCIM provisioning"},
		{Field: "features", Before: "Audit log"},
	}, result.Changes)
}

func TestCompareStructured_TypedSlices(t *testing.T) {
	// Fresh extractions carry []string; snapshots loaded from storage carry
	// []any. Both forms must compare equal.
	before := map[string]any{"certifications": []string{"SOC 2"}}
	after := map[string]any{"certifications": []any{"SOC 2", "ISO 27001"}}

	result := diff.CompareStructured(before, after, models.AssetCompliance)

	require.NotNil(t, result)
	assert.Equal(t, []models.FieldChange{
		{Field: "certifications", After: "ISO 27001"},
	}, result.Changes)
}

func TestCompareStructured_NoMetadata(t *testing.T) {
	metadata := map[string]any{"features": []any{"SSO"}}

	assert.Nil(t, diff.CompareStructured(nil, metadata, models.AssetFeatures))
	assert.Nil(t, diff.CompareStructured(metadata, nil, models.AssetFeatures))
}

func TestCompareStructured_SocialPosts(t *testing.T) {
	before := map[string]any{"posts": []any{"We shipped dark mode"}}
	after := map[string]any{"posts": []any{"We shipped dark mode", "Announcing our Series B"}}

	result := diff.CompareStructured(before, after, models.AssetSocial)

	require.NotNil(t, result)
	assert.Equal(t, []models.FieldChange{
		{Field: "posts", After: "Announcing our Series B"},
	}, result.Changes)
}

func TestCompareStructured_UnknownType(t *testing.T) {
	before := map[string]any{"anything": "x"}
	after := map[string]any{"anything": "y"}

	assert.Nil(t, diff.CompareStructured(before, after, models.AssetType("landing")))
}
