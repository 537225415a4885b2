package platform

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/clipscommerce/socialscan/pkg/types"
)

// StaticAdapter generates deterministic synthetic posts for local
// development and demos. The same account always produces the same
// posts for a given day, so cache and analysis behavior is
// reproducible.
type StaticAdapter struct {
	platform     types.Platform
	postsPerUser int
	now          func() time.Time
}

// NewStaticAdapter creates a synthetic adapter for the platform.
func NewStaticAdapter(platform types.Platform) *StaticAdapter {
	return &StaticAdapter{
		platform:     platform,
		postsPerUser: 12,
		now:          time.Now,
	}
}

// Platform returns the platform this adapter serves.
func (a *StaticAdapter) Platform() types.Platform {
	return a.platform
}

// GetUserPosts returns synthetic posts for the user.
func (a *StaticAdapter) GetUserPosts(ctx context.Context, userID string, lookbackDays int) ([]types.Post, error) {
	return a.generate(ctx, userID, lookbackDays)
}

// GetCompetitorPosts returns synthetic posts for the competitor.
func (a *StaticAdapter) GetCompetitorPosts(ctx context.Context, competitorID string, lookbackDays int) ([]types.Post, error) {
	return a.generate(ctx, competitorID, lookbackDays)
}

func (a *StaticAdapter) generate(ctx context.Context, accountID string, lookbackDays int) ([]types.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lookbackDays <= 0 {
		lookbackDays = 30
	}

	seed := a.seed(accountID)
	now := a.now()
	posts := make([]types.Post, 0, a.postsPerUser)
	for i := 0; i < a.postsPerUser; i++ {
		// Spread posts evenly across the lookback window, varying the
		// hour of day per post so peak-time analysis has structure.
		age := time.Duration(i*lookbackDays/a.postsPerUser*24) * time.Hour
		hour := int((seed + uint64(i)*7) % 24)
		postedAt := now.Add(-age).Truncate(24 * time.Hour).Add(time.Duration(hour) * time.Hour)

		base := (seed+uint64(i)*31)%500 + 50
		posts = append(posts, types.Post{
			ID:       fmt.Sprintf("%s-%s-%d", a.platform, accountID, i),
			Platform: a.platform,
			AuthorID: accountID,
			Caption:  fmt.Sprintf("Post %d from %s", i+1, accountID),
			URL:      fmt.Sprintf("https://%s.example.com/%s/posts/%d", a.platform, accountID, i),
			PostedAt: postedAt,
			Likes:    int(base * 10),
			Comments: int(base / 2),
			Shares:   int(base / 5),
			Views:    int(base * 100),
		})
	}
	return posts, nil
}

func (a *StaticAdapter) seed(accountID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(string(a.platform) + ":" + accountID))
	return h.Sum64()
}
