package services

import (
	"context"
	"testing"
	"time"

	"github.com/openveil/veilforum/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_Stats(t *testing.T) {
	since := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

	var activeCutoff time.Time
	members := &MockIdentityRepository{
		CountMembersFunc: func(ctx context.Context) (int, error) {
			return 42, nil
		},
		CountActiveSinceFunc: func(ctx context.Context, cutoff time.Time) (int, error) {
			activeCutoff = cutoff
			return 17, nil
		},
		FirstCreatedAtFunc: func(ctx context.Context) (*time.Time, error) {
			return &since, nil
		},
	}
	messages := &MockMessageRepository{
		StatsFunc: func(ctx context.Context, visibilityCutoff, dayStart time.Time) (*models.MessageStats, error) {
			return &models.MessageStats{Total: 120, Active: 30, Today: 8}, nil
		},
	}

	svc := NewStatsService(members, messages, testLogger(), testForumConfig())

	resp, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 42, resp.Members)
	assert.Equal(t, 17, resp.ActiveMembers)
	assert.Equal(t, 120, resp.TotalMessages)
	assert.Equal(t, 30, resp.ActiveMessages)
	assert.Equal(t, 8, resp.MessagesToday)
	assert.Equal(t, since.Format(time.RFC3339), resp.CommunitySince)

	// One hour of recency makes a member "active", not a week.
	assert.InDelta(t, time.Hour.Seconds(), time.Since(activeCutoff).Seconds(), 5)
}

func TestStatsService_Stats_EmptyCommunity(t *testing.T) {
	svc := NewStatsService(&MockIdentityRepository{}, &MockMessageRepository{}, testLogger(), testForumConfig())

	resp, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Zero(t, resp.Members)
	assert.Empty(t, resp.CommunitySince)
}
