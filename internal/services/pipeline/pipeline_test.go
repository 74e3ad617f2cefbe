package pipeline_test

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/Houeta/watchdog/internal/repository"
	"github.com/Houeta/watchdog/internal/repository/sqlite"
	"github.com/Houeta/watchdog/internal/services/classifier"
	"github.com/Houeta/watchdog/internal/services/diff"
	"github.com/Houeta/watchdog/internal/services/pipeline"
	"github.com/Houeta/watchdog/internal/services/router"
	"github.com/Houeta/watchdog/test/mocks"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo      *sqlite.Repository
	fetcher   *mocks.Fetcher
	deliverer *mocks.Deliverer
	pipe      *pipeline.Pipeline
	asset     models.AssetInfo
}

// newFixture wires a pipeline with a real store, real diff engine and
// degraded rule-based classification; only transport edges are mocked.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := t.Context()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := sqlite.NewRepository(ctx, logger, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err = repo.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	roster := []models.RosterCompetitor{{
		Name:    "Acme",
		BaseURL: "https://acme.example",
		Assets: []models.RosterAsset{{
			Type:           models.AssetPricing,
			URL:            "https://acme.example/pricing",
			CrawlFrequency: "daily",
		}},
	}}
	require.NoError(t, repo.SyncRoster(ctx, roster))
	assets, err := repo.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 1)

	fetcher := mocks.NewFetcher(t)
	deliverer := mocks.NewDeliverer(t)

	engine := diff.NewEngine(logger, nil, 0.05, 0.30)
	cls := classifier.NewClassifier(logger, nil)
	alertRouter := router.NewRouter(logger, repo, deliverer, "slack")
	pipe := pipeline.NewPipeline(logger, repo, fetcher, engine, cls, alertRouter)

	return &fixture{repo: repo, fetcher: fetcher, deliverer: deliverer, pipe: pipe, asset: assets[0]}
}

func pricingSnapshot(assetID int64, price string, capturedAt time.Time) *models.Snapshot {
	text := "Acme Pricing\nPro: " + price + "\nTeam: $99"

	return &models.Snapshot{
		AssetID:     assetID,
		ContentHash: "hash-" + price,
		ContentText: text,
		Metadata: map[string]any{
			"tiers":         map[string]any{"Pro": price, "Team": "$99"},
			"has_free_tier": false,
		},
		FetchStatus: models.FetchOK,
		HTTPStatus:  200,
		CapturedAt:  capturedAt,
	}
}

func TestPipeline_PriceChangeEndToEnd(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Day one: first observation, nothing to compare against.
	f.fetcher.On("Fetch", ctx, mock.AnythingOfType("models.Asset")).
		Return(pricingSnapshot(f.asset.ID, "$49", base), nil).Once()
	require.NoError(t, f.pipe.RunAsset(ctx, f.asset.ID))

	// Day two: Pro tier moved $49 -> $59. One high-priority alert, delivered
	// immediately.
	f.deliverer.On("Deliver", ctx, mock.AnythingOfType("string")).Return("msg-1", nil).Once()
	f.fetcher.On("Fetch", ctx, mock.AnythingOfType("models.Asset")).
		Return(pricingSnapshot(f.asset.ID, "$59", base.Add(24*time.Hour)), nil).Once()
	require.NoError(t, f.pipe.RunAsset(ctx, f.asset.ID))

	message, ok := f.deliverer.Calls[0].Arguments.Get(1).(string)
	require.True(t, ok)
	assert.Contains(t, message, "Company: Acme")
	assert.Contains(t, message, "Priority: HIGH")
	assert.Contains(t, message, "Change Type: pricing")
	assert.Contains(t, message, "tier:Pro changed from $49 to $59")
	assert.Contains(t, message, "https://acme.example/pricing")

	// Day three: same content again, no new change and no new delivery.
	f.fetcher.On("Fetch", ctx, mock.AnythingOfType("models.Asset")).
		Return(pricingSnapshot(f.asset.ID, "$59", base.Add(48*time.Hour)), nil).Once()
	require.NoError(t, f.pipe.RunAsset(ctx, f.asset.ID))

	f.deliverer.AssertNumberOfCalls(t, "Deliver", 1)
}

func TestPipeline_FetchFailureRecordsFailedCapture(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)

	f.fetcher.On("Fetch", ctx, mock.AnythingOfType("models.Asset")).
		Return(nil, errors.New("status code error: [503] Service Unavailable")).Once()

	require.NoError(t, f.pipe.RunAsset(ctx, f.asset.ID), "a fetch failure is not a pipeline error")

	// No successful capture exists yet.
	_, err := f.repo.GetPreviousSnapshot(ctx, f.asset.ID)
	require.ErrorIs(t, err, repository.ErrSnapshotNotFound)
}

func TestPipeline_FailedCaptureDoesNotBreakDiffChain(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	f.fetcher.On("Fetch", ctx, mock.AnythingOfType("models.Asset")).
		Return(pricingSnapshot(f.asset.ID, "$49", base), nil).Once()
	require.NoError(t, f.pipe.RunAsset(ctx, f.asset.ID))

	f.fetcher.On("Fetch", ctx, mock.AnythingOfType("models.Asset")).
		Return(nil, errors.New("timeout")).Once()
	require.NoError(t, f.pipe.RunAsset(ctx, f.asset.ID))

	// The next successful capture diffs against the last good snapshot, so
	// the price change is still detected.
	f.deliverer.On("Deliver", ctx, mock.AnythingOfType("string")).Return("msg-1", nil).Once()
	f.fetcher.On("Fetch", ctx, mock.AnythingOfType("models.Asset")).
		Return(pricingSnapshot(f.asset.ID, "$59", base.Add(48*time.Hour)), nil).Once()
	require.NoError(t, f.pipe.RunAsset(ctx, f.asset.ID))

	f.deliverer.AssertNumberOfCalls(t, "Deliver", 1)
}

func TestPipeline_UnknownAsset(t *testing.T) {
	f := newFixture(t)

	err := f.pipe.RunAsset(t.Context(), 9999)

	require.ErrorIs(t, err, repository.ErrAssetNotFound)
}
