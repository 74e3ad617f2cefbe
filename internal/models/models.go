package models

import "time"

// AssetType enumerates the kinds of competitor resources the watchdog monitors.
type AssetType string

const (
	AssetPricing    AssetType = "pricing"
	AssetFeatures   AssetType = "features"
	AssetChangelog  AssetType = "changelog"
	AssetSitemap    AssetType = "sitemap"
	AssetNews       AssetType = "news"
	AssetBlog       AssetType = "blog"
	AssetCompliance AssetType = "compliance"
	AssetSocial     AssetType = "social"
)

// ValidAssetTypes lists every asset type accepted by the roster config.
var ValidAssetTypes = []AssetType{
	AssetPricing, AssetFeatures, AssetChangelog, AssetSitemap,
	AssetNews, AssetBlog, AssetCompliance, AssetSocial,
}

// Priority is the delivery priority assigned to a classified change.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ChangeStatus tracks the lifecycle of a detected change.
// Transitions: detected -> classified -> (rejected | alerted).
// rejected and alerted are terminal.
type ChangeStatus string

const (
	StatusDetected   ChangeStatus = "detected"
	StatusClassified ChangeStatus = "classified"
	StatusRejected   ChangeStatus = "rejected"
	StatusAlerted    ChangeStatus = "alerted"
)

// DeliveryMode describes how an alert reaches the notification channel.
type DeliveryMode string

const (
	DeliveryImmediate    DeliveryMode = "immediate"
	DeliveryDailyDigest  DeliveryMode = "daily_digest"
	DeliveryWeeklyDigest DeliveryMode = "weekly_digest"
)

// FetchStatus records the outcome of a snapshot capture.
type FetchStatus string

const (
	FetchOK     FetchStatus = "ok"
	FetchFailed FetchStatus = "failed"
)

// Competitor is a monitored company.
type Competitor struct {
	ID        int64
	Name      string
	BaseURL   string
	CreatedAt time.Time
}

// Asset is a single monitored resource belonging to a competitor.
type Asset struct {
	ID                int64
	CompetitorID      int64
	Type              AssetType
	URL               string
	CrawlFrequency    string   // daily or weekly
	PriorityThreshold Priority // optional; empty means no threshold
	CreatedAt         time.Time
}

// AssetInfo is an Asset joined with its competitor name, as the pipeline
// and formatter consume it.
type AssetInfo struct {
	Asset
	CompetitorName string
}

// Snapshot is an observed state of an asset at a point in time.
// Snapshots are append-only and totally ordered per asset by CapturedAt.
type Snapshot struct {
	ID          int64
	AssetID     int64
	ContentHash string // sha256 over normalized text
	ContentText string
	Metadata    map[string]any // structured extraction (pricing tiers etc.), may be nil
	FetchStatus FetchStatus
	HTTPStatus  int
	CapturedAt  time.Time
}

// Change is a candidate difference between two consecutive snapshots of the
// same asset. At most one Change exists per (AssetID, BeforeID, AfterID).
type Change struct {
	ID           int64
	AssetID      int64
	BeforeID     int64
	AfterID      int64
	Status       ChangeStatus
	Diff         DiffPayload
	ChangeType   string
	Priority     Priority
	Summary      string
	WhyItMatters string
	Confidence   float64
	RejectReason string
	DetectedAt   time.Time
	ClassifiedAt *time.Time
}

// PendingChange is a classified, unalerted change joined with its asset and
// competitor context, ready for routing or digest inclusion.
type PendingChange struct {
	Change
	AssetType      AssetType
	AssetURL       string
	CompetitorName string
}

// Classification is the outcome of classifying a change candidate.
type Classification struct {
	ChangeType   string   `json:"change_type"`
	Priority     Priority `json:"priority"`
	Summary      string   `json:"summary"`
	WhyItMatters string   `json:"why_it_matters"`
	Confidence   float64  `json:"confidence"`
}

// Alert is a delivery record for exactly one change. Immutable after
// creation except for SentAt/MessageID set on successful transport.
type Alert struct {
	ID           int64
	ChangeID     int64
	Priority     Priority
	Channel      string
	DeliveryMode DeliveryMode
	MessageID    string
	CreatedAt    time.Time
	SentAt       *time.Time
}
