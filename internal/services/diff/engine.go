package diff

import (
	"context"
	"log/slog"

	"github.com/Houeta/watchdog/internal/models"
)

// SemanticComparer is the external semantic-comparison collaborator. A nil
// comparer degrades the engine to structural-diff-only judgment.
type SemanticComparer interface {
	CompareSemantics(ctx context.Context, before, after string, assetType models.AssetType) (models.SemanticJudgment, error)
}

const (
	// DefaultMinorEditThreshold is the noise-filter fraction below which an
	// unstructured change may be discarded.
	DefaultMinorEditThreshold = 0.05
	// DefaultSemanticBar is the fraction below which an unstructured change
	// is referred to the semantic collaborator for a second opinion.
	DefaultSemanticBar = 0.30

	// semanticExtractLimit bounds the content sent to the collaborator.
	semanticExtractLimit = 5000
)

// Engine detects significant changes between consecutive snapshots of the
// same asset.
type Engine struct {
	log       *slog.Logger
	semantic  SemanticComparer
	minorEdit float64
	semBar    float64
}

// NewEngine creates a diff engine. semantic may be nil.
func NewEngine(log *slog.Logger, semantic SemanticComparer, minorEdit, semanticBar float64) *Engine {
	if minorEdit <= 0 {
		minorEdit = DefaultMinorEditThreshold
	}
	if semanticBar <= 0 {
		semanticBar = DefaultSemanticBar
	}

	return &Engine{log: log, semantic: semantic, minorEdit: minorEdit, semBar: semanticBar}
}

// Detect compares the previous and current snapshots of an asset and
// returns a change candidate, or nil when there is no significant change.
// Nothing is ever persisted for a nil result.
func (e *Engine) Detect(
	ctx context.Context, asset models.Asset, prev, curr *models.Snapshot,
) (*models.ChangeCandidate, error) {
	const opn = "diff.Detect"
	log := e.log.With("op", opn, "asset_id", asset.ID)

	if curr == nil || curr.FetchStatus != models.FetchOK {
		return nil, nil
	}

	// Stage 1: hash gate. First observation or identical normalized content
	// short-circuits before any expensive work.
	if prev == nil {
		log.DebugContext(ctx, "First observation, nothing to diff")
		return nil, nil
	}
	if prev.ContentHash == curr.ContentHash {
		log.DebugContext(ctx, "Content hash unchanged")
		return nil, nil
	}

	// Stage 2: structural diff.
	text, touched := compareText(prev.ContentText, curr.ContentText)
	structured := CompareStructured(prev.Metadata, curr.Metadata, asset.Type)

	candidate := &models.ChangeCandidate{
		Before: prev,
		After:  curr,
		Payload: models.DiffPayload{
			Text:       text,
			Structured: structured,
			Initial:    prev.ContentText == "",
		},
	}

	// Empty previous content is always a change.
	if candidate.Payload.Initial {
		log.InfoContext(ctx, "Previous content empty, treating as initial change")
		return candidate, nil
	}

	// A structured-field change overrides every later filter.
	if !structured.Empty() {
		log.InfoContext(ctx, "Structured fields changed", "fields", len(structured.Changes))
		return candidate, nil
	}

	// Stage 3: noise filter over the full edit script, not the capped samples.
	if text.Fraction < e.minorEdit && onlyVolatile(asset.Type, touched) {
		log.DebugContext(ctx, "Change filtered as noise",
			"fraction", text.Fraction, "added", text.AddedCount, "removed", text.RemovedCount)
		return nil, nil
	}

	// Stage 4: semantic refinement for unstructured content below the
	// confidence bar. Collaborator failure falls back to the structural
	// judgment instead of failing the pipeline.
	if e.semantic != nil && text.Fraction < e.semBar {
		judgment, err := e.semantic.CompareSemantics(ctx,
			truncate(prev.ContentText, semanticExtractLimit),
			truncate(curr.ContentText, semanticExtractLimit),
			asset.Type)
		if err != nil {
			log.WarnContext(ctx, "Semantic comparison failed, keeping structural judgment", "error", err)
			return candidate, nil
		}
		if !judgment.Significant {
			log.InfoContext(ctx, "Semantic collaborator judged change insignificant",
				"confidence", judgment.Confidence)
			return nil, nil
		}
	}

	return candidate, nil
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}

	return text[:limit] + "... [truncated]"
}
