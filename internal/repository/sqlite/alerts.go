package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/Houeta/watchdog/internal/repository"
)

// CreateImmediateAlert records an alert for a high-priority change. The
// classified -> alerted transition and the alert insert happen in one
// transaction, so re-routing an already-alerted change is a no-op that
// reports ErrAlreadyAlerted and never creates a second alert.
func (r *Repository) CreateImmediateAlert(ctx context.Context, alert *models.Alert) error {
	const opn = "repository.sqlite.CreateImmediateAlert"

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit returns sql.ErrTxDone, nothing to act on

	res, err := tx.ExecContext(ctx,
		`UPDATE changes SET status = ? WHERE id = ? AND status = ?`,
		string(models.StatusAlerted), alert.ChangeID, string(models.StatusClassified),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to mark change alerted: %w", opn, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", opn, err)
	}
	if affected == 0 {
		return repository.ErrAlreadyAlerted
	}

	ins, err := tx.ExecContext(ctx,
		`INSERT INTO alerts (change_id, priority, channel, delivery_mode, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		alert.ChangeID, string(alert.Priority), alert.Channel,
		string(alert.DeliveryMode), alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to insert alert: %w", opn, err)
	}

	if alert.ID, err = ins.LastInsertId(); err != nil {
		return fmt.Errorf("%s: failed to get inserted id: %w", opn, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return nil
}

// CreateDigestAlerts marks every given change alerted and inserts its alert
// row, already stamped as sent, in one transaction. A change that left the
// classified state since selection is skipped, which keeps the flush safe
// under repeated invocation.
func (r *Repository) CreateDigestAlerts(
	ctx context.Context, changeIDs []int64, priority models.Priority,
	channel string, mode models.DeliveryMode, messageID string, sentAt time.Time,
) error {
	const opn = "repository.sqlite.CreateDigestAlerts"

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit returns sql.ErrTxDone, nothing to act on

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO alerts (change_id, priority, channel, delivery_mode, message_id, created_at, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare insert statement: %w", opn, err)
	}
	defer stmt.Close()

	for _, changeID := range changeIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE changes SET status = ? WHERE id = ? AND status = ?`,
			string(models.StatusAlerted), changeID, string(models.StatusClassified),
		)
		if err != nil {
			return fmt.Errorf("%s: failed to mark change %d alerted: %w", opn, changeID, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s: failed to get affected rows: %w", opn, err)
		}
		if affected == 0 {
			r.log.WarnContext(ctx, "change already alerted, skipping digest alert", "change_id", changeID)
			continue
		}

		if _, err = stmt.ExecContext(ctx, changeID, string(priority), channel,
			string(mode), messageID, sentAt, sentAt); err != nil {
			return fmt.Errorf("%s: failed to insert alert for change %d: %w", opn, changeID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return nil
}

// MarkAlertSent stamps a successful delivery on an existing alert.
func (r *Repository) MarkAlertSent(ctx context.Context, alertID int64, messageID string, sentAt time.Time) error {
	const opn = "repository.sqlite.MarkAlertSent"

	_, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET message_id = ?, sent_at = ? WHERE id = ?`,
		messageID, sentAt, alertID,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update alert: %w", opn, err)
	}

	return nil
}

// UndeliveredAlerts returns alerts that were created but never delivered,
// so operators can see stuck high-priority notifications.
func (r *Repository) UndeliveredAlerts(ctx context.Context) ([]models.Alert, error) {
	const opn = "repository.sqlite.UndeliveredAlerts"

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, change_id, priority, channel, delivery_mode, message_id, created_at, sent_at
		 FROM alerts WHERE sent_at IS NULL ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query alerts: %w", opn, err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var (
			alert  models.Alert
			prio   string
			mode   string
			sentAt sql.NullTime
		)
		if err = rows.Scan(&alert.ID, &alert.ChangeID, &prio, &alert.Channel,
			&mode, &alert.MessageID, &alert.CreatedAt, &sentAt); err != nil {
			return nil, fmt.Errorf("%s: failed to scan alert: %w", opn, err)
		}
		alert.Priority = models.Priority(prio)
		alert.DeliveryMode = models.DeliveryMode(mode)
		if sentAt.Valid {
			alert.SentAt = &sentAt.Time
		}
		alerts = append(alerts, alert)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return alerts, nil
}
