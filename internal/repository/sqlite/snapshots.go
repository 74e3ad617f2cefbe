package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/Houeta/watchdog/internal/repository"
)

// PutSnapshot appends a snapshot row for an asset and sets snap.ID.
func (r *Repository) PutSnapshot(ctx context.Context, snap *models.Snapshot) error {
	const opn = "repository.sqlite.PutSnapshot"

	var metadata any
	if snap.Metadata != nil {
		raw, err := json.Marshal(snap.Metadata)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal metadata: %w", opn, err)
		}
		metadata = string(raw)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots (asset_id, content_hash, content_text, metadata, fetch_status, http_status, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.AssetID, snap.ContentHash, snap.ContentText, metadata,
		string(snap.FetchStatus), snap.HTTPStatus, snap.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to insert snapshot: %w", opn, err)
	}

	snap.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: failed to get inserted id: %w", opn, err)
	}

	return nil
}

// GetPreviousSnapshot returns the most recent successful capture for the
// asset, the "previous" side of the next diff.
func (r *Repository) GetPreviousSnapshot(ctx context.Context, assetID int64) (*models.Snapshot, error) {
	const opn = "repository.sqlite.GetPreviousSnapshot"

	row := r.db.QueryRowContext(ctx,
		`SELECT id, asset_id, content_hash, content_text, metadata, fetch_status, http_status, captured_at
		 FROM snapshots
		 WHERE asset_id = ? AND fetch_status = ?
		 ORDER BY captured_at DESC, id DESC
		 LIMIT 1`,
		assetID, string(models.FetchOK),
	)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	return snap, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var (
		snap        models.Snapshot
		metadata    sql.NullString
		fetchStatus string
	)

	err := row.Scan(&snap.ID, &snap.AssetID, &snap.ContentHash, &snap.ContentText,
		&metadata, &fetchStatus, &snap.HTTPStatus, &snap.CapturedAt)
	if err != nil {
		return nil, err
	}

	snap.FetchStatus = models.FetchStatus(fetchStatus)
	if metadata.Valid && metadata.String != "" {
		if err = json.Unmarshal([]byte(metadata.String), &snap.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot metadata: %w", err)
		}
	}

	return &snap, nil
}
