package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipscommerce/socialscan/pkg/types"
)

func postAt(hour, likes, comments, shares int) types.Post {
	return types.Post{
		ID:       fmt.Sprintf("p-%d-%d", hour, likes),
		Platform: types.PlatformTikTok,
		PostedAt: time.Date(2026, 8, 1, hour, 30, 0, 0, time.UTC),
		Likes:    likes,
		Comments: comments,
		Shares:   shares,
	}
}

func TestEngagementScore_Weighting(t *testing.T) {
	p := types.Post{Likes: 10, Comments: 5, Shares: 2}
	assert.Equal(t, 26.0, EngagementScore(p))
}

func TestAnalyze_EmptyPosts(t *testing.T) {
	metrics := NewEngine().Analyze(nil)

	require.NotNil(t, metrics)
	assert.Equal(t, 0, metrics.TotalPosts)
	assert.Equal(t, 0.0, metrics.AverageEngagement)
	assert.Empty(t, metrics.PeakTimes)
	assert.Empty(t, metrics.TopPerformingPosts)
}

func TestAnalyze_AverageEngagement(t *testing.T) {
	posts := []types.Post{
		postAt(9, 100, 0, 0),  // score 100
		postAt(12, 200, 0, 0), // score 200
	}

	metrics := NewEngine().Analyze(posts)

	assert.Equal(t, 2, metrics.TotalPosts)
	assert.Equal(t, 150.0, metrics.AverageEngagement)
}

func TestAnalyze_PeakTimesSortedByScore(t *testing.T) {
	posts := []types.Post{
		postAt(9, 100, 0, 0),
		postAt(9, 50, 0, 0),
		postAt(18, 400, 0, 0),
		postAt(12, 200, 0, 0),
	}

	metrics := NewEngine().Analyze(posts)

	require.Len(t, metrics.PeakTimes, 3)
	assert.Equal(t, 18, metrics.PeakTimes[0].Hour)
	assert.Equal(t, 400.0, metrics.PeakTimes[0].EngagementScore)
	assert.Equal(t, 12, metrics.PeakTimes[1].Hour)
	assert.Equal(t, 9, metrics.PeakTimes[2].Hour)
	assert.Equal(t, 75.0, metrics.PeakTimes[2].EngagementScore, "two posts at hour 9 average out")
}

func TestAnalyze_PeakTimesUseMeanNotSum(t *testing.T) {
	// Hour 9 has three weak posts (sum 300, mean 100); hour 12 has one
	// strong post (mean 200). Mean ranking puts 12 first.
	posts := []types.Post{
		postAt(9, 100, 0, 0),
		postAt(9, 100, 0, 0),
		postAt(9, 100, 0, 0),
		postAt(12, 200, 0, 0),
	}

	metrics := NewEngine().Analyze(posts)

	require.Len(t, metrics.PeakTimes, 2)
	assert.Equal(t, 12, metrics.PeakTimes[0].Hour)
	assert.Equal(t, 200.0, metrics.PeakTimes[0].EngagementScore)
	assert.Equal(t, 9, metrics.PeakTimes[1].Hour)
	assert.Equal(t, 100.0, metrics.PeakTimes[1].EngagementScore)
}

func TestAnalyze_PeakTimesLimitedToFive(t *testing.T) {
	var posts []types.Post
	for hour := 0; hour < 10; hour++ {
		posts = append(posts, postAt(hour, (hour+1)*10, 0, 0))
	}

	metrics := NewEngine().Analyze(posts)

	require.Len(t, metrics.PeakTimes, 5)
	// The five busiest hours are 9 down to 5.
	assert.Equal(t, 9, metrics.PeakTimes[0].Hour)
	assert.Equal(t, 5, metrics.PeakTimes[4].Hour)
}

func TestAnalyze_TopPostsRankedAndLimited(t *testing.T) {
	var posts []types.Post
	for i := 0; i < 15; i++ {
		posts = append(posts, postAt(i%24, i*10, 0, 0))
	}

	metrics := NewEngine().Analyze(posts)

	require.Len(t, metrics.TopPerformingPosts, 10)
	assert.Equal(t, 140, metrics.TopPerformingPosts[0].Likes)
	for i := 1; i < len(metrics.TopPerformingPosts); i++ {
		assert.GreaterOrEqual(t,
			EngagementScore(metrics.TopPerformingPosts[i-1]),
			EngagementScore(metrics.TopPerformingPosts[i]))
	}
}

func TestAnalyze_TopPostsLimitOption(t *testing.T) {
	var posts []types.Post
	for i := 0; i < 8; i++ {
		posts = append(posts, postAt(i, i*10, 0, 0))
	}

	metrics := NewEngine(WithTopPostsLimit(3)).Analyze(posts)

	assert.Len(t, metrics.TopPerformingPosts, 3)
}

func TestAnalyze_DoesNotMutateInput(t *testing.T) {
	posts := []types.Post{
		postAt(9, 10, 0, 0),
		postAt(12, 500, 0, 0),
		postAt(15, 100, 0, 0),
	}

	NewEngine().Analyze(posts)

	assert.Equal(t, 10, posts[0].Likes)
	assert.Equal(t, 500, posts[1].Likes)
}
