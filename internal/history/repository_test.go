package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipscommerce/socialscan/pkg/types"
)

// These tests need a real database; set TEST_DATABASE_URL to run them.
func testRepository(t *testing.T) *Repository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database integration test")
	}

	repo, err := New(Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_RecordAndQueryScan(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	end := time.Now().UTC().Truncate(time.Millisecond)
	userID := "hist-user-" + uuid.New().String()
	result := &types.ScanResult{
		ID:        uuid.New().String(),
		UserID:    userID,
		Platforms: []types.Platform{types.PlatformTikTok},
		StartTime: end.Add(-time.Minute),
		EndTime:   &end,
		Status:    types.ScanStatusCompleted,
		Metrics: &types.ScanMetrics{
			TotalPosts:        9,
			AverageEngagement: 123.5,
			PeakTimes:         []types.PeakTime{{Hour: 18, EngagementScore: 400}},
		},
	}

	require.NoError(t, repo.RecordScan(ctx, result))

	scans, err := repo.RecentScans(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, result.ID, scans[0].ID)
	assert.Equal(t, types.ScanStatusCompleted, scans[0].Status)
	require.NotNil(t, scans[0].Metrics)
	assert.Equal(t, 9, scans[0].Metrics.TotalPosts)
}

func TestRepository_RecordScanIsUpsert(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	userID := "hist-user-" + uuid.New().String()
	result := &types.ScanResult{
		ID:        uuid.New().String(),
		UserID:    userID,
		Platforms: []types.Platform{types.PlatformInstagram},
		StartTime: time.Now().UTC(),
		Status:    types.ScanStatusInProgress,
	}
	require.NoError(t, repo.RecordScan(ctx, result))

	end := time.Now().UTC()
	result.Status = types.ScanStatusFailed
	result.EndTime = &end
	result.Error = "scan timed out"
	require.NoError(t, repo.RecordScan(ctx, result))

	scans, err := repo.RecentScans(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, types.ScanStatusFailed, scans[0].Status)
	assert.Equal(t, "scan timed out", scans[0].Error)
}
