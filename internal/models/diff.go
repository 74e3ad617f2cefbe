package models

// TextDiff holds the line-level edit script statistics between two snapshots.
type TextDiff struct {
	AddedCount   int      `json:"added_count"`
	RemovedCount int      `json:"removed_count"`
	AddedLines   []string `json:"added_lines,omitempty"`   // capped sample
	RemovedLines []string `json:"removed_lines,omitempty"` // capped sample
	TotalBefore  int      `json:"total_lines_before"`
	TotalAfter   int      `json:"total_lines_after"`
	// Fraction is the size of the change relative to total content size, 0..1.
	Fraction float64 `json:"fraction"`
}

// FieldChange is a single structured-field difference, e.g. a pricing tier
// moving from one price to another.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// StructuredDiff is the field-level comparison of extracted metadata.
// A non-empty StructuredDiff always marks a change as significant.
type StructuredDiff struct {
	Changes []FieldChange `json:"changes"`
}

// Empty reports whether no structured field changed.
func (d *StructuredDiff) Empty() bool {
	return d == nil || len(d.Changes) == 0
}

// DiffPayload is the raw diff stored on a Change.
type DiffPayload struct {
	Text       TextDiff        `json:"text"`
	Structured *StructuredDiff `json:"structured,omitempty"`
	Initial    bool            `json:"initial,omitempty"` // previous content was empty
}

// ChangeCandidate is the Diff Engine output for a significant change:
// both snapshot references plus the edit script.
type ChangeCandidate struct {
	Before  *Snapshot
	After   *Snapshot
	Payload DiffPayload
}

// SemanticJudgment is the semantic-comparison collaborator's verdict on
// whether an unstructured change is meaningful.
type SemanticJudgment struct {
	Significant bool    `json:"is_significant"`
	Confidence  float64 `json:"confidence"`
}

// ClassifyRequest is the fixed request contract sent to the reasoning
// collaborator.
type ClassifyRequest struct {
	AssetType     AssetType
	URL           string
	Competitor    string
	BeforeExtract string
	AfterExtract  string
	Text          TextDiff
	Structured    *StructuredDiff
	PriorityRules string
	PriorType     string // preliminary change type, if any
}
