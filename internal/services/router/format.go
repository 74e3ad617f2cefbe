package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/Houeta/watchdog/internal/models"
)

// FormatAlert renders the fixed alert message schema. Every delivered alert
// uses exactly these fields in exactly this order.
func FormatAlert(change models.PendingChange) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Company: %s\n", change.CompetitorName)
	fmt.Fprintf(&b, "Priority: %s\n", strings.ToUpper(string(change.Priority)))
	fmt.Fprintf(&b, "Asset: %s\n", change.AssetType)
	fmt.Fprintf(&b, "Change Type: %s\n", change.ChangeType)
	fmt.Fprintf(&b, "Summary (Before → After): %s\n", change.Summary)
	fmt.Fprintf(&b, "Why It Matters: %s\n", change.WhyItMatters)
	fmt.Fprintf(&b, "Citation (URL + timestamp): %s (Detected: %s)",
		change.AssetURL, change.DetectedAt.UTC().Format(time.RFC3339))

	return b.String()
}

// formatDigest renders one digest message for a batch of classified changes,
// grouped by competitor. The caller guarantees the batch is non-empty.
func formatDigest(title string, now time.Time, changes []models.PendingChange) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (%s): %d change(s)\n", title, now.UTC().Format("2006-01-02"), len(changes))

	// PendingDigest returns rows ordered by competitor, so grouping is a
	// single pass.
	var current string
	for _, change := range changes {
		if change.CompetitorName != current {
			current = change.CompetitorName
			fmt.Fprintf(&b, "\n%s\n", current)
		}
		fmt.Fprintf(&b, "\n%s\n", indent(FormatAlert(change)))
	}

	return strings.TrimRight(b.String(), "\n")
}

func indent(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}

	return strings.Join(lines, "\n")
}
