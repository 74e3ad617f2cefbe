package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Houeta/watchdog/internal/models"
)

// Reasoner is the external reasoning collaborator. A nil reasoner degrades
// classification to the rule-based path.
type Reasoner interface {
	ClassifyChange(ctx context.Context, req models.ClassifyRequest) (*models.Classification, error)
}

// RejectionError marks a change that failed the quality gate. It is
// terminal for the change: no alert is ever created.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "classification rejected: " + e.Reason
}

const (
	// minConfidence is the quality-gate floor for collaborator confidence.
	minConfidence = 0.3
	// degradedConfidence is reported by rule-based classification.
	degradedConfidence = 0.6
	// extractLimit bounds before/after content sent to the collaborator.
	extractLimit = 5000
	// maxSummarySentences is the quality-gate cap on the summary.
	maxSummarySentences = 3
)

// Classifier assigns type, priority and insight to change candidates and
// enforces the quality gate.
type Classifier struct {
	log      *slog.Logger
	reasoner Reasoner
}

// NewClassifier creates a classifier. reasoner may be nil.
func NewClassifier(log *slog.Logger, reasoner Reasoner) *Classifier {
	return &Classifier{log: log, reasoner: reasoner}
}

// Classify produces a validated classification for a change candidate, or a
// RejectionError when the quality gate fails.
func (c *Classifier) Classify(
	ctx context.Context, cand *models.ChangeCandidate, asset models.AssetInfo,
) (*models.Classification, error) {
	const opn = "classifier.Classify"
	log := c.log.With("op", opn, "asset_id", asset.ID)

	cls := c.collaboratorClassification(ctx, cand, asset)
	if cls == nil {
		var err error
		cls, err = c.ruleBased(cand, asset)
		if err != nil {
			return nil, err
		}
	}

	cls.Priority = resolvePriority(cls.ChangeType, cls.Priority)
	cls.Confidence = clamp01(cls.Confidence)
	cls.Summary = strings.TrimSpace(cls.Summary)
	cls.WhyItMatters = strings.TrimSpace(cls.WhyItMatters)

	if err := validate(cls, cand, asset); err != nil {
		return nil, err
	}

	if below(cls.Priority, asset.PriorityThreshold) {
		return nil, &RejectionError{
			Reason: fmt.Sprintf("priority %s below asset threshold %s", cls.Priority, asset.PriorityThreshold),
		}
	}

	log.InfoContext(ctx, "Change classified",
		"change_type", cls.ChangeType, "priority", cls.Priority, "confidence", cls.Confidence)

	return cls, nil
}

// collaboratorClassification asks the reasoning collaborator; any transport
// failure returns nil and selects the degraded path.
func (c *Classifier) collaboratorClassification(
	ctx context.Context, cand *models.ChangeCandidate, asset models.AssetInfo,
) *models.Classification {
	if c.reasoner == nil {
		return nil
	}

	req := models.ClassifyRequest{
		AssetType:     asset.Type,
		URL:           asset.URL,
		Competitor:    asset.CompetitorName,
		BeforeExtract: truncate(cand.Before.ContentText, extractLimit),
		AfterExtract:  truncate(cand.After.ContentText, extractLimit),
		Text:          cand.Payload.Text,
		Structured:    cand.Payload.Structured,
		PriorityRules: PriorityRulesText,
		PriorType:     inferChangeType(cand, asset.Type),
	}

	cls, err := c.reasoner.ClassifyChange(ctx, req)
	if err != nil {
		c.log.WarnContext(ctx, "Reasoning collaborator failed, falling back to rule-based classification",
			"asset_id", asset.ID, "error", err)
		return nil
	}

	return cls
}

// ruleBased is the degraded classification path: deterministic keyword and
// template rules over the structured diff and asset type. When no safe
// template applies it rejects rather than emit an unvalidated alert.
func (c *Classifier) ruleBased(
	cand *models.ChangeCandidate, asset models.AssetInfo,
) (*models.Classification, error) {
	changeType := inferChangeType(cand, asset.Type)

	summary := templateSummary(cand, asset)
	if summary == "" {
		return nil, &RejectionError{Reason: "no safe summary template for degraded classification"}
	}

	priority, ok := priorityByChangeType[changeType]
	if !ok {
		priority = keywordPriority(changeType + " " + summary)
	}

	return &models.Classification{
		ChangeType:   changeType,
		Priority:     priority,
		Summary:      summary,
		WhyItMatters: templateRationale(changeType, asset),
		Confidence:   degradedConfidence,
	}, nil
}

// validate is the quality gate, applied regardless of collaborator output.
func validate(cls *models.Classification, cand *models.ChangeCandidate, asset models.AssetInfo) error {
	if cls.Summary == "" {
		return &RejectionError{Reason: "summary is missing"}
	}
	if n := countSentences(cls.Summary); n > maxSummarySentences {
		return &RejectionError{Reason: fmt.Sprintf("summary has %d sentences (max %d)", n, maxSummarySentences)}
	}
	if len(cls.WhyItMatters) < 10 {
		return &RejectionError{Reason: "why it matters is missing or too short"}
	}
	if isSpeculative(cls.WhyItMatters) {
		return &RejectionError{Reason: "why it matters contains speculative language"}
	}
	if cls.Confidence < minConfidence {
		return &RejectionError{Reason: fmt.Sprintf("classification confidence too low: %.2f", cls.Confidence)}
	}

	// The alert must resolve to a citable URL plus detection timestamp.
	parsed, err := url.Parse(asset.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &RejectionError{Reason: "citation URL cannot be resolved"}
	}
	if cand.After == nil || cand.After.CapturedAt.IsZero() {
		return &RejectionError{Reason: "citation timestamp cannot be resolved"}
	}

	return nil
}

// inferChangeType maps the structured diff, then the asset type, to a
// change type.
func inferChangeType(cand *models.ChangeCandidate, assetType models.AssetType) string {
	if cand.Payload.Initial {
		return "initial"
	}

	if structured := cand.Payload.Structured; !structured.Empty() {
		for _, change := range structured.Changes {
			switch {
			case change.Field == "free_tier":
				return "free_tier"
			case strings.HasPrefix(change.Field, "tier:"):
				return "pricing"
			case change.Field == "features":
				return "feature"
			case change.Field == "certifications":
				return "compliance"
			case change.Field == "entries":
				return "changelog"
			case change.Field == "urls":
				return "sitemap"
			}
		}
	}

	switch assetType {
	case models.AssetPricing:
		return "pricing"
	case models.AssetFeatures:
		return "feature"
	case models.AssetChangelog:
		return "changelog"
	case models.AssetCompliance:
		return "compliance"
	case models.AssetNews:
		return "press_release"
	case models.AssetBlog:
		return "blog"
	default:
		return "content"
	}
}

// templateSummary builds a factual Before -> After summary from the diff
// alone. Empty string means no safe template applies.
func templateSummary(cand *models.ChangeCandidate, asset models.AssetInfo) string {
	if structured := cand.Payload.Structured; !structured.Empty() {
		var parts []string
		for i, change := range structured.Changes {
			if i == 2 { // keep the summary within the sentence budget
				break
			}
			switch {
			case change.Before != "" && change.After != "":
				parts = append(parts, fmt.Sprintf("%s changed from %s to %s", change.Field, change.Before, change.After))
			case change.Before == "":
				parts = append(parts, fmt.Sprintf("%s added: %s", change.Field, change.After))
			default:
				parts = append(parts, fmt.Sprintf("%s removed: %s", change.Field, change.Before))
			}
		}
		return fmt.Sprintf("%s %s page: %s.", asset.CompetitorName, asset.Type, strings.Join(parts, "; "))
	}

	text := cand.Payload.Text
	if text.AddedCount == 0 && text.RemovedCount == 0 {
		return ""
	}

	return fmt.Sprintf("%s %s page changed: %d lines added, %d lines removed (%.0f%% of content).",
		asset.CompetitorName, asset.Type, text.AddedCount, text.RemovedCount, text.Fraction*100)
}

// templateRationale states a concrete, non-speculative reason per change type.
func templateRationale(changeType string, asset models.AssetInfo) string {
	switch changeType {
	case "pricing", "free_tier":
		return fmt.Sprintf("A tracked pricing field on %s moved; sales teams quote against these numbers.", asset.CompetitorName)
	case "feature":
		return fmt.Sprintf("%s changed its published feature set, which shifts head-to-head comparisons.", asset.CompetitorName)
	case "compliance":
		return fmt.Sprintf("%s updated its published compliance posture, which affects enterprise deals in regulated segments.", asset.CompetitorName)
	case "changelog":
		return fmt.Sprintf("%s shipped product changes recorded in its changelog.", asset.CompetitorName)
	default:
		return fmt.Sprintf("Tracked content on the %s %s page changed materially.", asset.CompetitorName, asset.Type)
	}
}

func below(priority, threshold models.Priority) bool {
	if threshold == "" {
		return false
	}

	return priorityRank[priority] < priorityRank[threshold]
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}

	return value
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}

	return text[:limit] + "... [truncated]"
}
