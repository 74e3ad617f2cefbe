package diff

import (
	"strings"

	"github.com/Houeta/watchdog/internal/models"
)

const (
	// maxSampleLines caps the added/removed line samples kept on a change.
	maxSampleLines = 20
	// maxDiffLines bounds the LCS table; pathological pages are truncated.
	maxDiffLines = 2000
)

// CompareText computes the line-level edit script between two normalized
// contents.
func CompareText(before, after string) models.TextDiff {
	result, _ := compareText(before, after)
	return result
}

// compareText additionally returns every changed line, uncapped. The noise
// filter must see the full edit script; the capped samples on the TextDiff
// are only persisted and quoted in prompts.
func compareText(before, after string) (models.TextDiff, []string) {
	linesBefore := splitLines(before)
	linesAfter := splitLines(after)

	if len(linesBefore) > maxDiffLines {
		linesBefore = linesBefore[:maxDiffLines]
	}
	if len(linesAfter) > maxDiffLines {
		linesAfter = linesAfter[:maxDiffLines]
	}

	added, removed := editScript(linesBefore, linesAfter)

	result := models.TextDiff{
		AddedCount:   len(added),
		RemovedCount: len(removed),
		AddedLines:   sample(added),
		RemovedLines: sample(removed),
		TotalBefore:  len(linesBefore),
		TotalAfter:   len(linesAfter),
	}
	result.Fraction = changeFraction(result)

	touched := make([]string, 0, len(added)+len(removed))
	touched = append(touched, added...)
	touched = append(touched, removed...)

	return result, touched
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	return strings.Split(text, "\n")
}

// editScript returns the lines unique to after (added) and unique to before
// (removed), based on a longest-common-subsequence alignment.
func editScript(before, after []string) (added, removed []string) {
	// lcs[i][j] is the LCS length of before[i:] and after[j:].
	lcs := make([][]int, len(before)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(after)+1)
	}
	for i := len(before) - 1; i >= 0; i-- {
		for j := len(after) - 1; j >= 0; j-- {
			if before[i] == after[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	i, j := 0, 0
	for i < len(before) && j < len(after) {
		switch {
		case before[i] == after[j]:
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			removed = append(removed, before[i])
			i++
		default:
			added = append(added, after[j])
			j++
		}
	}
	removed = append(removed, before[i:]...)
	added = append(added, after[j:]...)

	return added, removed
}

func sample(lines []string) []string {
	if len(lines) > maxSampleLines {
		return lines[:maxSampleLines]
	}

	return lines
}

// changeFraction is the size of the change relative to total content size.
func changeFraction(d models.TextDiff) float64 {
	total := max(d.TotalBefore, d.TotalAfter)
	if total == 0 {
		return 0
	}

	fraction := float64(d.AddedCount+d.RemovedCount) / float64(total)
	if fraction > 1 {
		fraction = 1
	}

	return fraction
}
