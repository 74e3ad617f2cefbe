package sqlite_test

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/Houeta/watchdog/internal/repository"
	"github.com/Houeta/watchdog/internal/repository/sqlite"
	"github.com/stretchr/testify/require"
)

// newTestRepo is a helper function that creates a temporary database for a test.
func newTestRepo(t *testing.T) *sqlite.Repository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := sqlite.NewRepository(t.Context(), logger, dbPath)
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		if err = repo.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	return repo
}

// seedAsset syncs a one-competitor roster and returns the created asset.
func seedAsset(t *testing.T, repo *sqlite.Repository) models.AssetInfo {
	t.Helper()

	roster := []models.RosterCompetitor{{
		Name:    "Acme",
		BaseURL: "https://acme.example",
		Assets: []models.RosterAsset{{
			Type:           models.AssetPricing,
			URL:            "https://acme.example/pricing",
			CrawlFrequency: "daily",
		}},
	}}
	require.NoError(t, repo.SyncRoster(t.Context(), roster))

	assets, err := repo.ListAssets(t.Context())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	return assets[0]
}

func putSnapshot(t *testing.T, repo *sqlite.Repository, assetID int64, hash, text string, at time.Time) *models.Snapshot {
	t.Helper()

	snap := &models.Snapshot{
		AssetID:     assetID,
		ContentHash: hash,
		ContentText: text,
		FetchStatus: models.FetchOK,
		HTTPStatus:  200,
		CapturedAt:  at,
	}
	require.NoError(t, repo.PutSnapshot(t.Context(), snap))
	require.NotZero(t, snap.ID)

	return snap
}

func TestRepository_Integration_Snapshots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()
	asset := seedAsset(t, repo)

	t.Run("previous_snapshot_from_empty_history", func(t *testing.T) {
		_, err := repo.GetPreviousSnapshot(ctx, asset.ID)
		require.ErrorIs(t, err, repository.ErrSnapshotNotFound)
	})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	putSnapshot(t, repo, asset.ID, "hash1", "Pro: $49", base)
	second := putSnapshot(t, repo, asset.ID, "hash2", "Pro: $59", base.Add(time.Hour))

	t.Run("previous_is_most_recent_successful", func(t *testing.T) {
		prev, err := repo.GetPreviousSnapshot(ctx, asset.ID)
		require.NoError(t, err)
		require.Equal(t, second.ID, prev.ID)
		require.Equal(t, "hash2", prev.ContentHash)
		require.Equal(t, "Pro: $59", prev.ContentText)
	})

	t.Run("failed_captures_are_skipped", func(t *testing.T) {
		failed := &models.Snapshot{
			AssetID:     asset.ID,
			FetchStatus: models.FetchFailed,
			CapturedAt:  base.Add(2 * time.Hour),
		}
		require.NoError(t, repo.PutSnapshot(ctx, failed))

		prev, err := repo.GetPreviousSnapshot(ctx, asset.ID)
		require.NoError(t, err)
		require.Equal(t, second.ID, prev.ID)
	})

	t.Run("metadata_roundtrip", func(t *testing.T) {
		snap := &models.Snapshot{
			AssetID:     asset.ID,
			ContentHash: "hash3",
			ContentText: "Pro: $69",
			Metadata:    map[string]any{"tiers": map[string]any{"Pro": "$69"}, "has_free_tier": true},
			FetchStatus: models.FetchOK,
			CapturedAt:  base.Add(3 * time.Hour),
		}
		require.NoError(t, repo.PutSnapshot(ctx, snap))

		prev, err := repo.GetPreviousSnapshot(ctx, asset.ID)
		require.NoError(t, err)
		require.Equal(t, snap.ID, prev.ID)
		require.Equal(t, true, prev.Metadata["has_free_tier"])
		tiers, ok := prev.Metadata["tiers"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "$69", tiers["Pro"])
	})
}

func TestRepository_Integration_ChangeLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()
	asset := seedAsset(t, repo)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := putSnapshot(t, repo, asset.ID, "hash1", "Pro: $49", base)
	after := putSnapshot(t, repo, asset.ID, "hash2", "Pro: $59", base.Add(time.Hour))

	change := &models.Change{
		AssetID:    asset.ID,
		BeforeID:   before.ID,
		AfterID:    after.ID,
		Diff:       models.DiffPayload{Text: models.TextDiff{AddedCount: 1, RemovedCount: 1}},
		DetectedAt: base.Add(time.Hour),
	}

	t.Run("create_change", func(t *testing.T) {
		require.NoError(t, repo.CreateChange(ctx, change))
		require.NotZero(t, change.ID)
		require.Equal(t, models.StatusDetected, change.Status)
	})

	t.Run("duplicate_snapshot_pair_is_rejected", func(t *testing.T) {
		dup := &models.Change{
			AssetID:    asset.ID,
			BeforeID:   before.ID,
			AfterID:    after.ID,
			DetectedAt: base.Add(2 * time.Hour),
		}
		require.ErrorIs(t, repo.CreateChange(ctx, dup), repository.ErrChangeExists)
	})

	cls := models.Classification{
		ChangeType:   "pricing",
		Priority:     models.PriorityHigh,
		Summary:      "Pro tier changed from $49 to $59.",
		WhyItMatters: "A 20% increase opens price-based positioning against Acme.",
		Confidence:   0.9,
	}

	t.Run("classify_change", func(t *testing.T) {
		require.NoError(t, repo.SetClassification(ctx, change.ID, cls, base.Add(time.Hour)))

		loaded, err := repo.GetChange(ctx, change.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusClassified, loaded.Status)
		require.Equal(t, "pricing", loaded.ChangeType)
		require.Equal(t, models.PriorityHigh, loaded.Priority)
		require.Equal(t, cls.Summary, loaded.Summary)
		require.NotNil(t, loaded.ClassifiedAt)
		require.Equal(t, 1, loaded.Diff.Text.AddedCount)
	})

	t.Run("classified_state_is_not_reclassifiable", func(t *testing.T) {
		err := repo.SetClassification(ctx, change.ID, cls, base.Add(2*time.Hour))
		require.ErrorIs(t, err, repository.ErrInvalidTransition)
	})

	t.Run("rejected_state_is_terminal", func(t *testing.T) {
		third := putSnapshot(t, repo, asset.ID, "hash3", "Pro: $69", base.Add(2*time.Hour))
		other := &models.Change{
			AssetID:    asset.ID,
			BeforeID:   after.ID,
			AfterID:    third.ID,
			DetectedAt: base.Add(2 * time.Hour),
		}
		require.NoError(t, repo.CreateChange(ctx, other))
		require.NoError(t, repo.MarkRejected(ctx, other.ID, "summary has 4 sentences (max 3)", base.Add(2*time.Hour)))

		loaded, err := repo.GetChange(ctx, other.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusRejected, loaded.Status)
		require.Equal(t, "summary has 4 sentences (max 3)", loaded.RejectReason)

		require.ErrorIs(t, repo.SetClassification(ctx, other.ID, cls, base.Add(3*time.Hour)),
			repository.ErrInvalidTransition)
	})

	t.Run("get_missing_change", func(t *testing.T) {
		_, err := repo.GetChange(ctx, 9999)
		require.ErrorIs(t, err, repository.ErrChangeNotFound)
	})
}

func TestRepository_Integration_Alerts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()
	asset := seedAsset(t, repo)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := putSnapshot(t, repo, asset.ID, "hash1", "Pro: $49", base)
	after := putSnapshot(t, repo, asset.ID, "hash2", "Pro: $59", base.Add(time.Hour))

	change := &models.Change{AssetID: asset.ID, BeforeID: before.ID, AfterID: after.ID, DetectedAt: base.Add(time.Hour)}
	require.NoError(t, repo.CreateChange(ctx, change))
	require.NoError(t, repo.SetClassification(ctx, change.ID, models.Classification{
		ChangeType:   "pricing",
		Priority:     models.PriorityHigh,
		Summary:      "Pro tier changed from $49 to $59.",
		WhyItMatters: "Acme moved upmarket on its flagship tier.",
		Confidence:   0.9,
	}, base.Add(time.Hour)))

	alert := &models.Alert{
		ChangeID:     change.ID,
		Priority:     models.PriorityHigh,
		Channel:      "slack",
		DeliveryMode: models.DeliveryImmediate,
		CreatedAt:    base.Add(time.Hour),
	}

	t.Run("create_immediate_alert", func(t *testing.T) {
		require.NoError(t, repo.CreateImmediateAlert(ctx, alert))
		require.NotZero(t, alert.ID)

		loaded, err := repo.GetChange(ctx, change.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusAlerted, loaded.Status)
	})

	t.Run("second_alert_for_same_change_is_rejected", func(t *testing.T) {
		dup := &models.Alert{
			ChangeID:     change.ID,
			Priority:     models.PriorityHigh,
			Channel:      "slack",
			DeliveryMode: models.DeliveryImmediate,
			CreatedAt:    base.Add(2 * time.Hour),
		}
		require.ErrorIs(t, repo.CreateImmediateAlert(ctx, dup), repository.ErrAlreadyAlerted)
	})

	t.Run("undelivered_until_marked_sent", func(t *testing.T) {
		undelivered, err := repo.UndeliveredAlerts(ctx)
		require.NoError(t, err)
		require.Len(t, undelivered, 1)
		require.Equal(t, alert.ID, undelivered[0].ID)

		sentAt := base.Add(90 * time.Minute)
		require.NoError(t, repo.MarkAlertSent(ctx, alert.ID, "msg-1", sentAt))

		undelivered, err = repo.UndeliveredAlerts(ctx)
		require.NoError(t, err)
		require.Empty(t, undelivered)
	})
}

func TestRepository_Integration_DigestFlow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()
	asset := seedAsset(t, repo)

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// Three classified medium changes, one of them outside the window.
	var ids []int64
	for i, detectedAt := range []time.Time{
		base.Add(-2 * time.Hour),
		base.Add(-5 * time.Hour),
		base.Add(-30 * time.Hour), // stale, must not appear in the daily digest
	} {
		before := putSnapshot(t, repo, asset.ID, "before"+string(rune('a'+i)), "old", detectedAt.Add(-time.Hour))
		after := putSnapshot(t, repo, asset.ID, "after"+string(rune('a'+i)), "new", detectedAt)

		change := &models.Change{AssetID: asset.ID, BeforeID: before.ID, AfterID: after.ID, DetectedAt: detectedAt}
		require.NoError(t, repo.CreateChange(ctx, change))
		require.NoError(t, repo.SetClassification(ctx, change.ID, models.Classification{
			ChangeType:   "press_release",
			Priority:     models.PriorityMedium,
			Summary:      "Acme announced a partnership.",
			WhyItMatters: "Acme is expanding distribution through partners.",
			Confidence:   0.8,
		}, detectedAt))
		ids = append(ids, change.ID)
	}

	t.Run("pending_digest_respects_window_and_priority", func(t *testing.T) {
		pending, err := repo.PendingDigest(ctx, models.PriorityMedium, base.Add(-24*time.Hour))
		require.NoError(t, err)
		require.Len(t, pending, 2)
		for _, p := range pending {
			require.Equal(t, "Acme", p.CompetitorName)
			require.Equal(t, models.AssetPricing, p.AssetType)
		}

		none, err := repo.PendingDigest(ctx, models.PriorityLow, base.Add(-24*time.Hour))
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("digest_alerts_mark_whole_batch", func(t *testing.T) {
		sentAt := base.Add(time.Minute)
		require.NoError(t, repo.CreateDigestAlerts(ctx, ids[:2], models.PriorityMedium,
			"slack", models.DeliveryDailyDigest, "digest-1", sentAt))

		pending, err := repo.PendingDigest(ctx, models.PriorityMedium, base.Add(-24*time.Hour))
		require.NoError(t, err)
		require.Empty(t, pending)

		for _, id := range ids[:2] {
			loaded, err := repo.GetChange(ctx, id)
			require.NoError(t, err)
			require.Equal(t, models.StatusAlerted, loaded.Status)
		}

		// Digest alerts are stamped sent at creation time.
		undelivered, err := repo.UndeliveredAlerts(ctx)
		require.NoError(t, err)
		require.Empty(t, undelivered)
	})

	t.Run("repeated_digest_creation_skips_alerted_changes", func(t *testing.T) {
		require.NoError(t, repo.CreateDigestAlerts(ctx, ids[:2], models.PriorityMedium,
			"slack", models.DeliveryDailyDigest, "digest-2", base.Add(2*time.Minute)))
	})
}

func TestRepository_Integration_Roster(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()

	roster := []models.RosterCompetitor{{
		Name:    "Acme",
		BaseURL: "https://acme.example",
		Assets: []models.RosterAsset{
			{Type: models.AssetPricing, URL: "https://acme.example/pricing", CrawlFrequency: "daily"},
			{Type: models.AssetBlog, URL: "https://acme.example/blog", CrawlFrequency: "weekly", PriorityThreshold: models.PriorityMedium},
		},
	}}
	require.NoError(t, repo.SyncRoster(ctx, roster))

	t.Run("sync_is_idempotent_and_applies_edits", func(t *testing.T) {
		roster[0].Assets[0].CrawlFrequency = "weekly"
		require.NoError(t, repo.SyncRoster(ctx, roster))

		assets, err := repo.ListAssets(ctx)
		require.NoError(t, err)
		require.Len(t, assets, 2)
		require.Equal(t, "weekly", assets[0].CrawlFrequency)
		require.Equal(t, models.PriorityMedium, assets[1].PriorityThreshold)
		require.Equal(t, "Acme", assets[0].CompetitorName)
	})

	t.Run("due_assets", func(t *testing.T) {
		now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

		due, err := repo.DueAssets(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 2, "never-captured assets are always due")

		// A fresh capture takes the blog asset out of the due set for a week.
		assets, err := repo.ListAssets(ctx)
		require.NoError(t, err)
		putSnapshot(t, repo, assets[1].ID, "hash1", "post", now.Add(-time.Hour))

		due, err = repo.DueAssets(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		require.Equal(t, assets[0].ID, due[0].ID)

		// A week later it is due again.
		due, err = repo.DueAssets(ctx, now.Add(8*24*time.Hour))
		require.NoError(t, err)
		require.Len(t, due, 2)
	})

	t.Run("get_missing_asset", func(t *testing.T) {
		_, err := repo.GetAsset(ctx, 9999)
		require.ErrorIs(t, err, repository.ErrAssetNotFound)
	})
}
