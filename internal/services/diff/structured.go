package diff

import (
	"fmt"
	"sort"

	"github.com/Houeta/watchdog/internal/models"
)

// setFieldByType names the set-valued metadata field for each asset type
// that carries one.
var setFieldByType = map[models.AssetType]string{
	models.AssetFeatures:   "features",
	models.AssetCompliance: "certifications",
	models.AssetChangelog:  "entries",
	models.AssetSitemap:    "urls",
	models.AssetBlog:       "posts",
	models.AssetNews:       "posts",
	models.AssetSocial:     "posts",
}

// CompareStructured performs the field-level comparison of extracted
// metadata. A nil result means no structured comparison was possible or
// nothing changed.
func CompareStructured(before, after map[string]any, assetType models.AssetType) *models.StructuredDiff {
	if before == nil || after == nil {
		return nil
	}

	var result *models.StructuredDiff
	if assetType == models.AssetPricing {
		result = comparePricing(before, after)
	} else if field, ok := setFieldByType[assetType]; ok {
		result = compareSets(field, before, after)
	}

	if result.Empty() {
		return nil
	}

	return result
}

func comparePricing(before, after map[string]any) *models.StructuredDiff {
	var diff models.StructuredDiff

	tiersBefore := asStringMap(before["tiers"])
	tiersAfter := asStringMap(after["tiers"])

	names := make([]string, 0, len(tiersBefore)+len(tiersAfter))
	seen := make(map[string]struct{})
	for name := range tiersBefore {
		names = append(names, name)
		seen[name] = struct{}{}
	}
	for name := range tiersAfter {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		oldPrice, hadOld := tiersBefore[name]
		newPrice, hasNew := tiersAfter[name]
		switch {
		case hadOld && hasNew && oldPrice != newPrice:
			diff.Changes = append(diff.Changes, models.FieldChange{
				Field: "tier:" + name, Before: oldPrice, After: newPrice,
			})
		case !hadOld:
			diff.Changes = append(diff.Changes, models.FieldChange{
				Field: "tier:" + name, After: newPrice,
			})
		case !hasNew:
			diff.Changes = append(diff.Changes, models.FieldChange{
				Field: "tier:" + name, Before: oldPrice,
			})
		}
	}

	if asBool(before["has_free_tier"]) != asBool(after["has_free_tier"]) {
		diff.Changes = append(diff.Changes, models.FieldChange{
			Field:  "free_tier",
			Before: fmt.Sprintf("%t", asBool(before["has_free_tier"])),
			After:  fmt.Sprintf("%t", asBool(after["has_free_tier"])),
		})
	}

	return &diff
}

func compareSets(field string, before, after map[string]any) *models.StructuredDiff {
	var diff models.StructuredDiff

	oldSet := asStringSet(before[field])
	newSet := asStringSet(after[field])

	var added, removed []string
	for item := range newSet {
		if _, ok := oldSet[item]; !ok {
			added = append(added, item)
		}
	}
	for item := range oldSet {
		if _, ok := newSet[item]; !ok {
			removed = append(removed, item)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	for _, item := range added {
		diff.Changes = append(diff.Changes, models.FieldChange{Field: field, After: item})
	}
	for _, item := range removed {
		diff.Changes = append(diff.Changes, models.FieldChange{Field: field, Before: item})
	}

	return &diff
}

// Metadata round-trips through JSON, so values arrive as map[string]any,
// []any, string, float64 or bool. The converters accept both typed and
// decoded forms.

func asStringMap(value any) map[string]string {
	result := make(map[string]string)
	switch typed := value.(type) {
	case map[string]string:
		return typed
	case map[string]any:
		for key, val := range typed {
			result[key] = fmt.Sprintf("%v", val)
		}
	}

	return result
}

func asStringSet(value any) map[string]struct{} {
	result := make(map[string]struct{})
	switch typed := value.(type) {
	case []string:
		for _, item := range typed {
			result[item] = struct{}{}
		}
	case []any:
		for _, item := range typed {
			result[fmt.Sprintf("%v", item)] = struct{}{}
		}
	}

	return result
}

func asBool(value any) bool {
	b, _ := value.(bool)
	return b
}
