package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/Houeta/watchdog/internal/repository"
)

// CreateChange inserts a detected change. The UNIQUE index on
// (asset_id, snapshot_before_id, snapshot_after_id) guarantees at most one
// change per snapshot pair; a duplicate insert reports ErrChangeExists.
func (r *Repository) CreateChange(ctx context.Context, change *models.Change) error {
	const opn = "repository.sqlite.CreateChange"

	payload, err := json.Marshal(change.Diff)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal diff payload: %w", opn, err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO changes (asset_id, snapshot_before_id, snapshot_after_id, status, diff_payload, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		change.AssetID, change.BeforeID, change.AfterID,
		string(models.StatusDetected), string(payload), change.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to insert change: %w", opn, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", opn, err)
	}
	if affected == 0 {
		return repository.ErrChangeExists
	}

	change.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: failed to get inserted id: %w", opn, err)
	}
	change.Status = models.StatusDetected

	return nil
}

// SetClassification transitions a change detected -> classified and attaches
// the classification fields in the same statement. The status guard keeps
// terminal states terminal.
func (r *Repository) SetClassification(
	ctx context.Context, changeID int64, cls models.Classification, at time.Time,
) error {
	const opn = "repository.sqlite.SetClassification"

	res, err := r.db.ExecContext(ctx,
		`UPDATE changes
		 SET status = ?, change_type = ?, priority = ?, summary = ?, why_it_matters = ?, confidence = ?, classified_at = ?
		 WHERE id = ? AND status = ?`,
		string(models.StatusClassified), cls.ChangeType, string(cls.Priority),
		cls.Summary, cls.WhyItMatters, cls.Confidence, at,
		changeID, string(models.StatusDetected),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update change: %w", opn, err)
	}

	return checkTransition(opn, res)
}

// MarkRejected transitions a change detected -> rejected with the quality
// gate reason.
func (r *Repository) MarkRejected(ctx context.Context, changeID int64, reason string, at time.Time) error {
	const opn = "repository.sqlite.MarkRejected"

	res, err := r.db.ExecContext(ctx,
		`UPDATE changes SET status = ?, reject_reason = ?, classified_at = ? WHERE id = ? AND status = ?`,
		string(models.StatusRejected), reason, at, changeID, string(models.StatusDetected),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update change: %w", opn, err)
	}

	return checkTransition(opn, res)
}

// PendingDigest returns classified, unalerted changes of one priority
// detected at or after since, joined with asset and competitor context.
func (r *Repository) PendingDigest(
	ctx context.Context, priority models.Priority, since time.Time,
) ([]models.PendingChange, error) {
	const opn = "repository.sqlite.PendingDigest"

	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.asset_id, c.snapshot_before_id, c.snapshot_after_id, c.status,
		        c.change_type, c.priority, c.summary, c.why_it_matters, c.confidence,
		        c.diff_payload, c.detected_at,
		        a.asset_type, a.url, co.name
		 FROM changes c
		 JOIN assets a ON a.id = c.asset_id
		 JOIN competitors co ON co.id = a.competitor_id
		 WHERE c.status = ? AND c.priority = ? AND c.detected_at >= ?
		 ORDER BY co.name, c.detected_at`,
		string(models.StatusClassified), string(priority), since,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query pending changes: %w", opn, err)
	}
	defer rows.Close()

	var pending []models.PendingChange
	for rows.Next() {
		var (
			p          models.PendingChange
			status     string
			prio       string
			payload    string
			assetType  string
			changeType string
		)
		if err = rows.Scan(&p.Change.ID, &p.Change.AssetID, &p.BeforeID, &p.AfterID, &status,
			&changeType, &prio, &p.Summary, &p.WhyItMatters, &p.Confidence,
			&payload, &p.DetectedAt,
			&assetType, &p.AssetURL, &p.CompetitorName); err != nil {
			return nil, fmt.Errorf("%s: failed to scan pending change: %w", opn, err)
		}
		p.Status = models.ChangeStatus(status)
		p.Change.Priority = models.Priority(prio)
		p.ChangeType = changeType
		p.AssetType = models.AssetType(assetType)
		if err = json.Unmarshal([]byte(payload), &p.Diff); err != nil {
			return nil, fmt.Errorf("%s: failed to unmarshal diff payload: %w", opn, err)
		}
		pending = append(pending, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return pending, nil
}

// GetChange loads a single change by id.
func (r *Repository) GetChange(ctx context.Context, id int64) (*models.Change, error) {
	const opn = "repository.sqlite.GetChange"

	var (
		change       models.Change
		status       string
		prio         string
		payload      string
		classifiedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, asset_id, snapshot_before_id, snapshot_after_id, status,
		        change_type, priority, summary, why_it_matters, confidence,
		        reject_reason, diff_payload, detected_at, classified_at
		 FROM changes WHERE id = ?`, id,
	).Scan(&change.ID, &change.AssetID, &change.BeforeID, &change.AfterID, &status,
		&change.ChangeType, &prio, &change.Summary, &change.WhyItMatters, &change.Confidence,
		&change.RejectReason, &payload, &change.DetectedAt, &classifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrChangeNotFound
		}
		return nil, fmt.Errorf("%s: failed to get change: %w", opn, err)
	}

	change.Status = models.ChangeStatus(status)
	change.Priority = models.Priority(prio)
	if classifiedAt.Valid {
		change.ClassifiedAt = &classifiedAt.Time
	}
	if err = json.Unmarshal([]byte(payload), &change.Diff); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal diff payload: %w", opn, err)
	}

	return &change, nil
}

// checkTransition maps a zero-row guarded status update to ErrInvalidTransition.
func checkTransition(opn string, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", opn, err)
	}
	if affected == 0 {
		return repository.ErrInvalidTransition
	}

	return nil
}
