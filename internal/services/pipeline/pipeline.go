package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/Houeta/watchdog/internal/parser"
	"github.com/Houeta/watchdog/internal/repository"
	"github.com/Houeta/watchdog/internal/services/classifier"
)

// Repository is the storage surface the pipeline needs: assets, snapshots
// and the change lifecycle.
type Repository interface {
	GetAsset(ctx context.Context, id int64) (*models.AssetInfo, error)
	PutSnapshot(ctx context.Context, snap *models.Snapshot) error
	GetPreviousSnapshot(ctx context.Context, assetID int64) (*models.Snapshot, error)
	CreateChange(ctx context.Context, change *models.Change) error
	SetClassification(ctx context.Context, changeID int64, cls models.Classification, at time.Time) error
	MarkRejected(ctx context.Context, changeID int64, reason string, at time.Time) error
}

// Detector is the diff engine stage.
type Detector interface {
	Detect(ctx context.Context, asset models.Asset, prev, curr *models.Snapshot) (*models.ChangeCandidate, error)
}

// Classifier is the classification stage.
type Classifier interface {
	Classify(ctx context.Context, cand *models.ChangeCandidate, asset models.AssetInfo) (*models.Classification, error)
}

// AlertRouter decides delivery for a classified change.
type AlertRouter interface {
	Route(ctx context.Context, change models.PendingChange) error
}

// Pipeline runs the capture -> diff -> classify -> route cycle for a single
// asset. Runs for the same asset are serialized; distinct assets may run
// concurrently.
type Pipeline struct {
	log        *slog.Logger
	repo       Repository
	fetcher    parser.Fetcher
	detector   Detector
	classifier Classifier
	router     AlertRouter

	mu     sync.Mutex
	inUse  map[int64]*sync.Mutex
	refcnt map[int64]int
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(
	log *slog.Logger, repo Repository, fetcher parser.Fetcher,
	detector Detector, cls Classifier, router AlertRouter,
) *Pipeline {
	return &Pipeline{
		log:        log,
		repo:       repo,
		fetcher:    fetcher,
		detector:   detector,
		classifier: cls,
		router:     router,
		inUse:      make(map[int64]*sync.Mutex),
		refcnt:     make(map[int64]int),
	}
}

// RunAsset executes one full cycle for the asset. Concurrent calls for the
// same asset wait on each other so snapshot ordering stays total.
func (p *Pipeline) RunAsset(ctx context.Context, assetID int64) error {
	const opn = "pipeline.RunAsset"

	unlock := p.lockAsset(assetID)
	defer unlock()

	log := p.log.With("op", opn, "asset_id", assetID)

	asset, err := p.repo.GetAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("%s: failed to load asset: %w", opn, err)
	}

	curr, prev, err := p.capture(ctx, log, asset)
	if err != nil || curr == nil {
		return err
	}

	cand, err := p.detector.Detect(ctx, asset.Asset, prev, curr)
	if err != nil {
		return fmt.Errorf("%s: diff failed: %w", opn, err)
	}
	if cand == nil {
		log.DebugContext(ctx, "No significant change")
		return nil
	}

	change := &models.Change{
		AssetID:    asset.ID,
		BeforeID:   cand.Before.ID,
		AfterID:    cand.After.ID,
		Status:     models.StatusDetected,
		Diff:       cand.Payload,
		DetectedAt: time.Now().UTC(),
	}
	if err = p.repo.CreateChange(ctx, change); err != nil {
		if errors.Is(err, repository.ErrChangeExists) {
			log.DebugContext(ctx, "Change already recorded for this snapshot pair")
			return nil
		}
		return fmt.Errorf("%s: failed to record change: %w", opn, err)
	}

	return p.classifyAndRoute(ctx, log, change, cand, asset)
}

// capture fetches the asset and appends the snapshot. A fetch failure is
// recorded as a failed snapshot and ends the cycle without error; the next
// scheduled run retries.
func (p *Pipeline) capture(
	ctx context.Context, log *slog.Logger, asset *models.AssetInfo,
) (curr, prev *models.Snapshot, err error) {
	const opn = "pipeline.capture"

	curr, err = p.fetcher.Fetch(ctx, asset.Asset)
	if err != nil {
		log.WarnContext(ctx, "Fetch failed, recording failed capture", "error", err)
		failed := &models.Snapshot{
			AssetID:     asset.ID,
			FetchStatus: models.FetchFailed,
			CapturedAt:  time.Now().UTC(),
		}
		if putErr := p.repo.PutSnapshot(ctx, failed); putErr != nil {
			return nil, nil, fmt.Errorf("%s: failed to record failed capture: %w", opn, putErr)
		}
		return nil, nil, nil
	}

	prev, err = p.repo.GetPreviousSnapshot(ctx, asset.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrSnapshotNotFound) {
			return nil, nil, fmt.Errorf("%s: failed to load previous snapshot: %w", opn, err)
		}
		prev = nil
	}

	if err = p.repo.PutSnapshot(ctx, curr); err != nil {
		return nil, nil, fmt.Errorf("%s: failed to store snapshot: %w", opn, err)
	}

	return curr, prev, nil
}

// classifyAndRoute finishes the cycle for a recorded change: quality-gated
// classification, then routing. A rejection is terminal and silent.
func (p *Pipeline) classifyAndRoute(
	ctx context.Context, log *slog.Logger,
	change *models.Change, cand *models.ChangeCandidate, asset *models.AssetInfo,
) error {
	const opn = "pipeline.classifyAndRoute"

	cls, err := p.classifier.Classify(ctx, cand, *asset)
	if err != nil {
		var rejection *classifier.RejectionError
		if errors.As(err, &rejection) {
			log.InfoContext(ctx, "Change rejected by quality gate", "reason", rejection.Reason)
			if markErr := p.repo.MarkRejected(ctx, change.ID, rejection.Reason, time.Now().UTC()); markErr != nil {
				return fmt.Errorf("%s: failed to mark change rejected: %w", opn, markErr)
			}
			return nil
		}
		return fmt.Errorf("%s: classification failed: %w", opn, err)
	}

	now := time.Now().UTC()
	if err = p.repo.SetClassification(ctx, change.ID, *cls, now); err != nil {
		return fmt.Errorf("%s: failed to store classification: %w", opn, err)
	}

	change.Status = models.StatusClassified
	change.ChangeType = cls.ChangeType
	change.Priority = cls.Priority
	change.Summary = cls.Summary
	change.WhyItMatters = cls.WhyItMatters
	change.Confidence = cls.Confidence
	change.ClassifiedAt = &now

	pending := models.PendingChange{
		Change:         *change,
		AssetType:      asset.Type,
		AssetURL:       asset.URL,
		CompetitorName: asset.CompetitorName,
	}
	if err = p.router.Route(ctx, pending); err != nil {
		return fmt.Errorf("%s: routing failed: %w", opn, err)
	}

	return nil
}

// lockAsset serializes pipeline runs per asset.
func (p *Pipeline) lockAsset(assetID int64) func() {
	p.mu.Lock()
	lock, ok := p.inUse[assetID]
	if !ok {
		lock = &sync.Mutex{}
		p.inUse[assetID] = lock
	}
	p.refcnt[assetID]++
	p.mu.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()
		p.mu.Lock()
		p.refcnt[assetID]--
		if p.refcnt[assetID] == 0 {
			delete(p.inUse, assetID)
			delete(p.refcnt, assetID)
		}
		p.mu.Unlock()
	}
}
