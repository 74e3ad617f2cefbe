package llm

import (
	"fmt"
	"strings"

	"github.com/Houeta/watchdog/internal/models"
)

func buildSemanticPrompt(before, after string, assetType models.AssetType) string {
	return fmt.Sprintf(`You compare two versions of a competitor's %s page and decide whether the
difference is meaningful to a competitive intelligence analyst, or just
cosmetic (rewording, reordering, formatting, tracking noise).

BEFORE:
%s

AFTER:
%s

Respond with JSON only, no other text:
{"is_significant": true or false, "confidence": 0.0-1.0}`, assetType, before, after)
}

func buildClassifyPrompt(req models.ClassifyRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a competitive intelligence analyst. A tracked page changed and you
must classify the change.

Competitor: %s
Asset type: %s
URL: %s

`, req.Competitor, req.AssetType, req.URL)

	if req.PriorType != "" {
		fmt.Fprintf(&b, "Preliminary change type from structural analysis: %s\n\n", req.PriorType)
	}

	if req.Structured != nil && !req.Structured.Empty() {
		b.WriteString("STRUCTURED FIELD CHANGES:\n")
		for _, change := range req.Structured.Changes {
			switch {
			case change.Before != "" && change.After != "":
				fmt.Fprintf(&b, "- %s: %q -> %q\n", change.Field, change.Before, change.After)
			case change.Before == "":
				fmt.Fprintf(&b, "- %s added: %q\n", change.Field, change.After)
			default:
				fmt.Fprintf(&b, "- %s removed: %q\n", change.Field, change.Before)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `TEXT DIFF: %d lines added, %d lines removed (%.1f%% of the page).
`, req.Text.AddedCount, req.Text.RemovedCount, req.Text.Fraction*100)

	if len(req.Text.AddedLines) > 0 {
		b.WriteString("Sample added lines:\n")
		for _, line := range req.Text.AddedLines {
			fmt.Fprintf(&b, "+ %s\n", line)
		}
	}
	if len(req.Text.RemovedLines) > 0 {
		b.WriteString("Sample removed lines:\n")
		for _, line := range req.Text.RemovedLines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	fmt.Fprintf(&b, `
BEFORE (extract):
%s

AFTER (extract):
%s

%s

Rules for your answer:
- summary: at most 3 sentences, factual, framed as before -> after.
- why_it_matters: one concrete sentence on the competitive impact. State facts,
  not speculation; avoid hedging words like "might" or "possibly" unless tied to
  an observed fact ("could indicate").
- confidence: your confidence in the classification, 0.0-1.0.

Respond with JSON only, no other text:
{"change_type": "pricing|free_tier|feature|compliance|integration|changelog|press_release|case_study|customer_logo|content|blog|testimonial", "priority": "high|medium|low", "summary": "...", "why_it_matters": "...", "confidence": 0.0-1.0}`,
		req.BeforeExtract, req.AfterExtract, req.PriorityRules)

	return b.String()
}
