package analysis

import (
	"sort"

	"github.com/clipscommerce/socialscan/pkg/types"
)

// Analyzer computes engagement metrics from a set of posts.
type Analyzer interface {
	Analyze(posts []types.Post) *types.ScanMetrics
}

// Engine is the default analyzer. Comments and shares are weighted
// above likes because they are stronger engagement signals.
type Engine struct {
	topPostsLimit int
	peakTimeLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopPostsLimit sets how many top performing posts to retain.
func WithTopPostsLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topPostsLimit = n
		}
	}
}

// NewEngine creates an analysis engine with default limits.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		topPostsLimit: 10,
		peakTimeLimit: 5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EngagementScore returns the weighted engagement score for a post.
func EngagementScore(p types.Post) float64 {
	return float64(p.Likes) + 2*float64(p.Comments) + 3*float64(p.Shares)
}

// Analyze computes metrics over the posts. A nil or empty slice yields
// zero-valued metrics, never nil.
func (e *Engine) Analyze(posts []types.Post) *types.ScanMetrics {
	metrics := &types.ScanMetrics{
		TotalPosts:         len(posts),
		PeakTimes:          []types.PeakTime{},
		TopPerformingPosts: []types.Post{},
	}
	if len(posts) == 0 {
		return metrics
	}

	var total float64
	hourScores := make(map[int]float64)
	hourCounts := make(map[int]int)
	for _, p := range posts {
		score := EngagementScore(p)
		total += score
		hour := p.PostedAt.Hour()
		hourScores[hour] += score
		hourCounts[hour]++
	}
	metrics.AverageEngagement = total / float64(len(posts))

	// Hours are ranked by mean score per post, not the raw sum, so a
	// busy hour of weak posts does not outrank a quiet hour of strong
	// ones.
	for hour, score := range hourScores {
		metrics.PeakTimes = append(metrics.PeakTimes, types.PeakTime{
			Hour:            hour,
			EngagementScore: score / float64(hourCounts[hour]),
		})
	}
	sort.Slice(metrics.PeakTimes, func(i, j int) bool {
		if metrics.PeakTimes[i].EngagementScore != metrics.PeakTimes[j].EngagementScore {
			return metrics.PeakTimes[i].EngagementScore > metrics.PeakTimes[j].EngagementScore
		}
		return metrics.PeakTimes[i].Hour < metrics.PeakTimes[j].Hour
	})
	if len(metrics.PeakTimes) > e.peakTimeLimit {
		metrics.PeakTimes = metrics.PeakTimes[:e.peakTimeLimit]
	}

	ranked := make([]types.Post, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return EngagementScore(ranked[i]) > EngagementScore(ranked[j])
	})
	if len(ranked) > e.topPostsLimit {
		ranked = ranked[:e.topPostsLimit]
	}
	metrics.TopPerformingPosts = ranked

	return metrics
}
