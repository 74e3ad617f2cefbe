package parser

import (
	"regexp"
	"strings"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// tierPattern matches "Pro: $49/mo", "Team - $12", "Enterprise $299" style lines.
var tierPattern = regexp.MustCompile(`(?i)^([a-z][\w+& ]{0,30}?)\s*[:–-]?\s*\$\s?(\d+(?:\.\d{1,2})?)`)

// certPattern matches the compliance certifications worth tracking.
var certPattern = regexp.MustCompile(`(?i)\b(SOC\s?2(?:\s?Type\s?(?:I{1,2}|\d))?|ISO\s?27001|ISO\s?9001|GDPR|HIPAA|PCI[\s-]?DSS|FedRAMP|CCPA)\b`)

var freeTierPattern = regexp.MustCompile(`(?i)\bfree (tier|plan|forever)\b|\$0\b`)

// extractMetadata pulls structured fields out of the document for asset
// types that have them. Unstructured types return nil and rely on the text
// diff alone.
func extractMetadata(doc *goquery.Document, text string, assetType models.AssetType) map[string]any {
	switch assetType {
	case models.AssetPricing:
		return extractPricing(text)
	case models.AssetFeatures:
		return extractList("features", itemTexts(doc, "li"))
	case models.AssetCompliance:
		return extractList("certifications", certPattern.FindAllString(text, -1))
	case models.AssetChangelog:
		return extractList("entries", itemTexts(doc, "h2, h3"))
	case models.AssetSitemap:
		return extractList("urls", itemTexts(doc, "loc"))
	case models.AssetBlog, models.AssetNews:
		return extractList("posts", itemLinks(doc, "article a, h2 a, h3 a"))
	case models.AssetSocial:
		return extractList("posts", itemTexts(doc, "article"))
	default:
		return nil
	}
}

func extractPricing(text string) map[string]any {
	tiers := make(map[string]any)
	for _, line := range strings.Split(text, "\n") {
		if m := tierPattern.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(m[1])
			if name != "" {
				tiers[name] = "$" + m[2]
			}
		}
	}

	if len(tiers) == 0 {
		return nil
	}

	return map[string]any{
		"tiers":         tiers,
		"has_free_tier": freeTierPattern.MatchString(text),
	}
}

func extractList(field string, items []string) map[string]any {
	seen := make(map[string]struct{}, len(items))
	var uniq []any
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		uniq = append(uniq, item)
	}

	if len(uniq) == 0 {
		return nil
	}

	return map[string]any{field: uniq}
}

func itemTexts(doc *goquery.Document, selector string) []string {
	var items []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		items = append(items, strings.Join(strings.Fields(s.Text()), " "))
	})

	return items
}

func itemLinks(doc *goquery.Document, selector string) []string {
	var links []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			links = append(links, href)
		}
	})

	return links
}
