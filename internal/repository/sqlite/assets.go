package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/Houeta/watchdog/internal/repository"
)

// SyncRoster upserts competitors and their assets from the config roster.
// Existing rows keep their ids; cadence and threshold edits are applied.
func (r *Repository) SyncRoster(ctx context.Context, roster []models.RosterCompetitor) error {
	const opn = "repository.sqlite.SyncRoster"

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit returns sql.ErrTxDone, nothing to act on

	for _, comp := range roster {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO competitors (name, base_url) VALUES (?, ?)
			 ON CONFLICT (name) DO UPDATE SET base_url = excluded.base_url`,
			comp.Name, comp.BaseURL,
		); err != nil {
			return fmt.Errorf("%s: failed to upsert competitor %s: %w", opn, comp.Name, err)
		}

		var compID int64
		if err = tx.QueryRowContext(ctx,
			`SELECT id FROM competitors WHERE name = ?`, comp.Name,
		).Scan(&compID); err != nil {
			return fmt.Errorf("%s: failed to resolve competitor %s: %w", opn, comp.Name, err)
		}

		for _, asset := range comp.Assets {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO assets (competitor_id, asset_type, url, crawl_frequency, priority_threshold)
				 VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT (competitor_id, url) DO UPDATE SET
				   asset_type = excluded.asset_type,
				   crawl_frequency = excluded.crawl_frequency,
				   priority_threshold = excluded.priority_threshold`,
				compID, string(asset.Type), asset.URL, asset.CrawlFrequency, string(asset.PriorityThreshold),
			); err != nil {
				return fmt.Errorf("%s: failed to upsert asset %s: %w", opn, asset.URL, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return nil
}

const assetColumns = `a.id, a.competitor_id, a.asset_type, a.url, a.crawl_frequency, a.priority_threshold, a.created_at, co.name`

// ListAssets returns every monitored asset joined with its competitor name.
func (r *Repository) ListAssets(ctx context.Context) ([]models.AssetInfo, error) {
	const opn = "repository.sqlite.ListAssets"

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets a JOIN competitors co ON co.id = a.competitor_id ORDER BY a.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query assets: %w", opn, err)
	}
	defer rows.Close()

	return collectAssets(opn, rows)
}

// DueAssets returns assets whose last capture is older than their crawl
// cadence (daily or weekly), or that have never been captured.
func (r *Repository) DueAssets(ctx context.Context, now time.Time) ([]models.AssetInfo, error) {
	const opn = "repository.sqlite.DueAssets"

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assetColumns+`
		 FROM assets a
		 JOIN competitors co ON co.id = a.competitor_id
		 LEFT JOIN (
		   SELECT asset_id, MAX(captured_at) AS last_captured FROM snapshots GROUP BY asset_id
		 ) s ON s.asset_id = a.id
		 WHERE s.last_captured IS NULL
		   OR (a.crawl_frequency = 'daily' AND s.last_captured <= ?)
		   OR (a.crawl_frequency = 'weekly' AND s.last_captured <= ?)
		 ORDER BY a.id`,
		now.Add(-24*time.Hour), now.Add(-7*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query due assets: %w", opn, err)
	}
	defer rows.Close()

	return collectAssets(opn, rows)
}

// GetAsset loads one asset with its competitor name.
func (r *Repository) GetAsset(ctx context.Context, id int64) (*models.AssetInfo, error) {
	const opn = "repository.sqlite.GetAsset"

	row := r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets a JOIN competitors co ON co.id = a.competitor_id WHERE a.id = ?`, id,
	)

	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrAssetNotFound
		}
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	return asset, nil
}

func collectAssets(opn string, rows *sql.Rows) ([]models.AssetInfo, error) {
	var assets []models.AssetInfo
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to scan asset: %w", opn, err)
		}
		assets = append(assets, *asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return assets, nil
}

func scanAsset(row rowScanner) (*models.AssetInfo, error) {
	var (
		asset     models.AssetInfo
		assetType string
		threshold string
	)
	err := row.Scan(&asset.ID, &asset.CompetitorID, &assetType, &asset.URL,
		&asset.CrawlFrequency, &threshold, &asset.CreatedAt, &asset.CompetitorName)
	if err != nil {
		return nil, err
	}

	asset.Type = models.AssetType(assetType)
	asset.PriorityThreshold = models.Priority(threshold)

	return &asset, nil
}
