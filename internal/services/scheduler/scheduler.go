package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/watchdog/internal/models"
	"golang.org/x/sync/semaphore"
)

// AssetSource lists the assets due for a crawl cycle.
type AssetSource interface {
	DueAssets(ctx context.Context, now time.Time) ([]models.AssetInfo, error)
}

// Runner executes one pipeline cycle for an asset.
type Runner interface {
	RunAsset(ctx context.Context, assetID int64) error
}

// DigestFlusher delivers the queued digests.
type DigestFlusher interface {
	FlushDaily(ctx context.Context, now time.Time) error
	FlushWeekly(ctx context.Context, now time.Time) error
	ReportUndelivered(ctx context.Context) error
}

// Scheduler drives the crawl cadence: a ticker enumerates due assets and
// runs them with bounded concurrency, and the digest flushes fire once at
// their configured wall-clock times.
type Scheduler struct {
	log     *slog.Logger
	assets  AssetSource
	runner  Runner
	flusher DigestFlusher
	sem     *semaphore.Weighted
	slots   int64

	interval  time.Duration
	dailyAt   string // HH:MM
	weeklyAt  string // HH:MM
	weeklyDay time.Weekday

	lastDaily  string // date the daily digest last fired, 2006-01-02
	lastWeekly string
}

// New creates a scheduler with the given cadence. maxConcurrent bounds the
// number of assets processed at once.
func New(
	log *slog.Logger, assets AssetSource, runner Runner, flusher DigestFlusher,
	interval time.Duration, maxConcurrent int64,
	dailyAt, weeklyAt string, weeklyDay time.Weekday,
) (*Scheduler, error) {
	if _, err := time.Parse("15:04", dailyAt); err != nil {
		return nil, fmt.Errorf("invalid daily digest time %q: %w", dailyAt, err)
	}
	if _, err := time.Parse("15:04", weeklyAt); err != nil {
		return nil, fmt.Errorf("invalid weekly digest time %q: %w", weeklyAt, err)
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Scheduler{
		log:       log,
		assets:    assets,
		runner:    runner,
		flusher:   flusher,
		sem:       semaphore.NewWeighted(maxConcurrent),
		slots:     maxConcurrent,
		interval:  interval,
		dailyAt:   dailyAt,
		weeklyAt:  weeklyAt,
		weeklyDay: weeklyDay,
	}, nil
}

// Run blocks until the context is cancelled, ticking the crawl and digest
// cadence. Undelivered alerts are reported once on startup.
func (s *Scheduler) Run(ctx context.Context) error {
	const opn = "scheduler.Run"
	log := s.log.With("op", opn)

	if err := s.flusher.ReportUndelivered(ctx); err != nil {
		log.WarnContext(ctx, "Failed to report undelivered alerts", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.InfoContext(ctx, "Scheduler started", "interval", s.interval)

	// First cycle runs immediately rather than waiting one interval.
	s.tick(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			// Let in-flight pipeline runs drain before returning.
			_ = s.sem.Acquire(context.Background(), s.slots) //nolint:errcheck
			log.Info("Scheduler stopped")
			return ctx.Err()
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.runDue(ctx, now)
	s.runDigests(ctx, now)
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	const opn = "scheduler.runDue"
	log := s.log.With("op", opn)

	assets, err := s.assets.DueAssets(ctx, now)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list due assets", "error", err)
		return
	}
	if len(assets) == 0 {
		return
	}

	log.InfoContext(ctx, "Running crawl cycle", "due", len(assets))

	for _, asset := range assets {
		if err = s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func(id int64) {
			defer s.sem.Release(1)
			if runErr := s.runner.RunAsset(ctx, id); runErr != nil {
				log.ErrorContext(ctx, "Pipeline run failed", "asset_id", id, "error", runErr)
			}
		}(asset.ID)
	}
}

// runDigests fires each digest at most once per calendar day, after its
// configured wall-clock time has passed.
func (s *Scheduler) runDigests(ctx context.Context, now time.Time) {
	const opn = "scheduler.runDigests"
	log := s.log.With("op", opn)

	today := now.Format("2006-01-02")

	if s.lastDaily != today && now.Format("15:04") >= s.dailyAt {
		if err := s.flusher.FlushDaily(ctx, now); err != nil {
			log.ErrorContext(ctx, "Daily digest flush failed", "error", err)
		} else {
			s.lastDaily = today
		}
	}

	if s.lastWeekly != today && now.Weekday() == s.weeklyDay && now.Format("15:04") >= s.weeklyAt {
		if err := s.flusher.FlushWeekly(ctx, now); err != nil {
			log.ErrorContext(ctx, "Weekly digest flush failed", "error", err)
		} else {
			s.lastWeekly = today
		}
	}
}
