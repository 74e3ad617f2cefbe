package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/Houeta/watchdog/internal/repository"
)

// Deliverer is the transport that carries one rendered alert message to the
// configured channel and returns the transport's message identifier.
type Deliverer interface {
	Deliver(ctx context.Context, message string) (string, error)
}

// Repository is the storage surface the router needs: alert bookkeeping plus
// digest queries.
type Repository interface {
	CreateImmediateAlert(ctx context.Context, alert *models.Alert) error
	CreateDigestAlerts(ctx context.Context, changeIDs []int64, priority models.Priority,
		channel string, mode models.DeliveryMode, messageID string, sentAt time.Time) error
	MarkAlertSent(ctx context.Context, alertID int64, messageID string, sentAt time.Time) error
	PendingDigest(ctx context.Context, priority models.Priority, since time.Time) ([]models.PendingChange, error)
	UndeliveredAlerts(ctx context.Context) ([]models.Alert, error)
}

const (
	deliveryAttempts = 3
	deliveryBackoff  = 1 * time.Second

	dailyWindow  = 24 * time.Hour
	weeklyWindow = 7 * 24 * time.Hour
)

// Router decides how each classified change reaches the operator: high
// priority immediately, medium into the daily digest, low into the weekly
// digest. Routing the same change twice is a no-op.
type Router struct {
	log     *slog.Logger
	repo    Repository
	deliver Deliverer
	channel string

	flushMu sync.Mutex
}

// NewRouter creates an alert router delivering on the named channel.
func NewRouter(log *slog.Logger, repo Repository, deliver Deliverer, channel string) *Router {
	return &Router{log: log, repo: repo, deliver: deliver, channel: channel}
}

// Route handles one freshly classified change. High-priority changes are
// alerted and delivered immediately; lower priorities stay classified until
// the matching digest flush picks them up.
func (r *Router) Route(ctx context.Context, change models.PendingChange) error {
	const opn = "router.Route"
	log := r.log.With("op", opn, "change_id", change.ID, "priority", change.Priority)

	if change.Priority != models.PriorityHigh {
		log.DebugContext(ctx, "Change queued for digest delivery")
		return nil
	}

	alert := &models.Alert{
		ChangeID:     change.ID,
		Priority:     change.Priority,
		Channel:      r.channel,
		DeliveryMode: models.DeliveryImmediate,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.repo.CreateImmediateAlert(ctx, alert); err != nil {
		if errors.Is(err, repository.ErrAlreadyAlerted) {
			log.DebugContext(ctx, "Change already alerted, skipping")
			return nil
		}
		return fmt.Errorf("%s: failed to create alert: %w", opn, err)
	}

	messageID, err := r.deliverWithRetry(ctx, FormatAlert(change))
	if err != nil {
		// The alert row stays undelivered (sent_at NULL) for operator
		// follow-up; the change itself is already terminal.
		log.ErrorContext(ctx, "Immediate alert delivery failed, alert left undelivered",
			"alert_id", alert.ID, "error", err)
		return fmt.Errorf("%s: delivery failed: %w", opn, err)
	}

	if err = r.repo.MarkAlertSent(ctx, alert.ID, messageID, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s: failed to mark alert sent: %w", opn, err)
	}

	log.InfoContext(ctx, "Immediate alert delivered", "alert_id", alert.ID, "message_id", messageID)

	return nil
}

// FlushDaily delivers one digest of medium-priority changes from the
// trailing 24 hours.
func (r *Router) FlushDaily(ctx context.Context, now time.Time) error {
	return r.flush(ctx, now, models.PriorityMedium, models.DeliveryDailyDigest, "Daily Digest", dailyWindow)
}

// FlushWeekly delivers one digest of low-priority changes from the trailing
// seven days.
func (r *Router) FlushWeekly(ctx context.Context, now time.Time) error {
	return r.flush(ctx, now, models.PriorityLow, models.DeliveryWeeklyDigest, "Weekly Digest", weeklyWindow)
}

// flush gathers pending changes, delivers one combined message, then marks
// every included change alerted in a single transaction. A delivery failure
// marks nothing, so the next flush retries the whole batch.
func (r *Router) flush(
	ctx context.Context, now time.Time, priority models.Priority,
	mode models.DeliveryMode, title string, window time.Duration,
) error {
	const opn = "router.flush"

	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	log := r.log.With("op", opn, "mode", mode)

	changes, err := r.repo.PendingDigest(ctx, priority, now.Add(-window))
	if err != nil {
		return fmt.Errorf("%s: failed to load pending changes: %w", opn, err)
	}
	if len(changes) == 0 {
		log.DebugContext(ctx, "No pending changes, skipping digest")
		return nil
	}

	messageID, err := r.deliverWithRetry(ctx, formatDigest(title, now, changes))
	if err != nil {
		log.ErrorContext(ctx, "Digest delivery failed, batch left pending",
			"changes", len(changes), "error", err)
		return fmt.Errorf("%s: delivery failed: %w", opn, err)
	}

	ids := make([]int64, 0, len(changes))
	for _, change := range changes {
		ids = append(ids, change.ID)
	}
	if err = r.repo.CreateDigestAlerts(ctx, ids, priority, r.channel, mode, messageID, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s: failed to record digest alerts: %w", opn, err)
	}

	log.InfoContext(ctx, "Digest delivered", "changes", len(changes), "message_id", messageID)

	return nil
}

// ReportUndelivered logs every alert created but never delivered, for
// operator attention.
func (r *Router) ReportUndelivered(ctx context.Context) error {
	const opn = "router.ReportUndelivered"

	alerts, err := r.repo.UndeliveredAlerts(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	for _, alert := range alerts {
		r.log.WarnContext(ctx, "Alert created but not delivered",
			"alert_id", alert.ID, "change_id", alert.ChangeID,
			"mode", alert.DeliveryMode, "created_at", alert.CreatedAt)
	}

	return nil
}

func (r *Router) deliverWithRetry(ctx context.Context, message string) (string, error) {
	backoff := deliveryBackoff
	var lastErr error
	for attempt := 1; attempt <= deliveryAttempts; attempt++ {
		messageID, err := r.deliver.Deliver(ctx, message)
		if err == nil {
			return messageID, nil
		}
		lastErr = err

		if attempt < deliveryAttempts {
			r.log.WarnContext(ctx, "Delivery attempt failed, retrying",
				"attempt", attempt, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("delivery cancelled: %w", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return "", fmt.Errorf("delivery failed after %d attempts: %w", deliveryAttempts, lastErr)
}
