package types

import (
	"time"
)

// Platform identifies an external social media data source.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformTwitter   Platform = "twitter"
)

// KnownPlatforms lists every platform an adapter can be registered for.
func KnownPlatforms() []Platform {
	return []Platform{PlatformTikTok, PlatformInstagram, PlatformYouTube, PlatformTwitter}
}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTikTok, PlatformInstagram, PlatformYouTube, PlatformTwitter:
		return true
	}
	return false
}

// ScanStatus represents the lifecycle state of a scan.
type ScanStatus string

const (
	ScanStatusPending    ScanStatus = "pending"
	ScanStatusInProgress ScanStatus = "in_progress"
	ScanStatusCompleted  ScanStatus = "completed"
	ScanStatusFailed     ScanStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s ScanStatus) Terminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed
}

// Post is a single piece of content fetched from a platform adapter.
type Post struct {
	ID        string    `json:"id" db:"id"`
	Platform  Platform  `json:"platform" db:"platform"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Caption   string    `json:"caption,omitempty" db:"caption"`
	URL       string    `json:"url,omitempty" db:"url"`
	PostedAt  time.Time `json:"posted_at" db:"posted_at"`
	Likes     int       `json:"likes" db:"likes"`
	Comments  int       `json:"comments" db:"comments"`
	Shares    int       `json:"shares" db:"shares"`
	Views     int       `json:"views" db:"views"`
}

// ScanOptions describes what a scan should fetch. Immutable once submitted.
type ScanOptions struct {
	Platforms       []Platform `json:"platforms"`
	LookbackDays    int        `json:"lookback_days"`
	IncludeOwnPosts bool       `json:"include_own_posts"`
	CompetitorIDs   []string   `json:"competitor_ids,omitempty"`
}

// PeakTime is an hour of day ranked by observed engagement.
type PeakTime struct {
	Hour            int     `json:"hour"`
	EngagementScore float64 `json:"engagement_score"`
}

// ScanMetrics is the consolidated analysis produced at the end of a scan.
type ScanMetrics struct {
	TotalPosts         int        `json:"total_posts"`
	AverageEngagement  float64    `json:"average_engagement"`
	PeakTimes          []PeakTime `json:"peak_times"`
	TopPerformingPosts []Post     `json:"top_performing_posts"`
}

// ScanResult is the unit of scan state. It is owned exclusively by the
// orchestrator while active and becomes immutable once terminal.
type ScanResult struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Platforms []Platform   `json:"platforms"`
	StartTime time.Time    `json:"start_time"`
	EndTime   *time.Time   `json:"end_time,omitempty"`
	Status    ScanStatus   `json:"status"`
	Metrics   *ScanMetrics `json:"metrics,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Clone returns a deep-enough copy for handing to readers without exposing
// the orchestrator's mutable instance.
func (r *ScanResult) Clone() *ScanResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.EndTime != nil {
		t := *r.EndTime
		out.EndTime = &t
	}
	if r.Platforms != nil {
		out.Platforms = append([]Platform(nil), r.Platforms...)
	}
	if r.Metrics != nil {
		m := *r.Metrics
		m.PeakTimes = append([]PeakTime(nil), r.Metrics.PeakTimes...)
		m.TopPerformingPosts = append([]Post(nil), r.Metrics.TopPerformingPosts...)
		out.Metrics = &m
	}
	return &out
}
