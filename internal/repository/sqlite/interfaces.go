package sqlite

import (
	"context"
	"time"

	"github.com/Houeta/watchdog/internal/models"
)

// SnapshotRepository is the Content Store surface used by the pipeline for
// snapshot reads and writes.
type SnapshotRepository interface {
	// PutSnapshot appends a snapshot and fills in its ID.
	PutSnapshot(ctx context.Context, snap *models.Snapshot) error
	// GetPreviousSnapshot returns the most recent successful capture for the
	// asset, or repository.ErrSnapshotNotFound.
	GetPreviousSnapshot(ctx context.Context, assetID int64) (*models.Snapshot, error)
}

// ChangeRepository manages the change lifecycle.
type ChangeRepository interface {
	// CreateChange inserts a detected change. Returns
	// repository.ErrChangeExists if the snapshot pair is already recorded.
	CreateChange(ctx context.Context, change *models.Change) error
	// SetClassification transitions detected -> classified and attaches the
	// classification in one statement.
	SetClassification(ctx context.Context, changeID int64, cls models.Classification, at time.Time) error
	// MarkRejected transitions detected -> rejected with a reason.
	MarkRejected(ctx context.Context, changeID int64, reason string, at time.Time) error
	// PendingDigest returns classified, unalerted changes of the given
	// priority detected at or after since.
	PendingDigest(ctx context.Context, priority models.Priority, since time.Time) ([]models.PendingChange, error)
	// GetChange loads a single change by id.
	GetChange(ctx context.Context, id int64) (*models.Change, error)
}

// AlertRepository manages alert creation and delivery bookkeeping.
type AlertRepository interface {
	// CreateImmediateAlert transitions the change classified -> alerted and
	// inserts the alert row in one transaction. Returns
	// repository.ErrAlreadyAlerted if the change is not in classified state.
	CreateImmediateAlert(ctx context.Context, alert *models.Alert) error
	// CreateDigestAlerts marks every given change alerted and records one
	// alert row per change, all in one transaction. Changes no longer in
	// classified state are skipped.
	CreateDigestAlerts(ctx context.Context, changeIDs []int64, priority models.Priority,
		channel string, mode models.DeliveryMode, messageID string, sentAt time.Time) error
	// MarkAlertSent sets sent_at and the transport message id.
	MarkAlertSent(ctx context.Context, alertID int64, messageID string, sentAt time.Time) error
	// UndeliveredAlerts returns alerts created but never delivered, for
	// operator attention.
	UndeliveredAlerts(ctx context.Context) ([]models.Alert, error)
}

// AssetRepository manages the competitor/asset roster.
type AssetRepository interface {
	// SyncRoster upserts competitors and assets from the config roster.
	SyncRoster(ctx context.Context, roster []models.RosterCompetitor) error
	// ListAssets returns every asset joined with its competitor name.
	ListAssets(ctx context.Context) ([]models.AssetInfo, error)
	// DueAssets returns assets whose crawl cadence makes them due at now.
	DueAssets(ctx context.Context, now time.Time) ([]models.AssetInfo, error)
	// GetAsset loads one asset with competitor context.
	GetAsset(ctx context.Context, id int64) (*models.AssetInfo, error)
}
