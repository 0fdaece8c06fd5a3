package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burakmert236/xsgfaucet/common/models"
)

var now = time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

func TestEvaluate(t *testing.T) {
	yesterday := now.AddDate(0, 0, -1)

	tests := []struct {
		name      string
		record    *models.RewardRecord
		followers int
		want      Status
	}{
		{"no record", nil, 100, NewUser},
		{"count equals followers", &models.RewardRecord{WithdrawalCount: 5, FollowersAtLastReward: 5, LastRewardDate: yesterday}, 5, LimitReached},
		{"followers dropped below count", &models.RewardRecord{WithdrawalCount: 5, FollowersAtLastReward: 9, LastRewardDate: yesterday}, 3, LimitReached},
		{"limit wins over daily", &models.RewardRecord{WithdrawalCount: 5, FollowersAtLastReward: 5, LastRewardDate: now}, 5, LimitReached},
		{"already rewarded today", &models.RewardRecord{WithdrawalCount: 1, FollowersAtLastReward: 100, LastRewardDate: now}, 100, DailyLimit},
		{"headroom and new day", &models.RewardRecord{WithdrawalCount: 1, FollowersAtLastReward: 100, LastRewardDate: yesterday}, 100, Eligible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.record, tt.followers, models.Tag, now)
			assert.Equal(t, tt.want, d.Status)
			assert.Equal(t, tt.want == NewUser || tt.want == Eligible, d.Payable())
		})
	}
}

func TestEvaluateNewUser(t *testing.T) {
	d := Evaluate(nil, 42, models.FriendMention, now)

	require.NotNil(t, d.Next)
	assert.Equal(t, 1, d.Next.WithdrawalCount)
	assert.Equal(t, 42, d.Next.FollowersAtLastReward)
	assert.Equal(t, models.DateOf(now), d.Next.LastRewardDate)
	assert.Equal(t, models.FriendMention, d.Class)
}

func TestEvaluateEligibleIncrementsByOne(t *testing.T) {
	record := &models.RewardRecord{UserId: "u1", WithdrawalCount: 3, FollowersAtLastReward: 4, LastRewardDate: now.AddDate(0, 0, -2), Version: 7}

	d := Evaluate(record, 4, models.Tag, now)

	require.Equal(t, Eligible, d.Status)
	assert.Equal(t, 4, d.Next.WithdrawalCount)
	assert.LessOrEqual(t, d.Next.WithdrawalCount, d.Next.FollowersAtLastReward)
	assert.Equal(t, int64(7), d.Next.Version)
	assert.Equal(t, 3, record.WithdrawalCount, "input record must not change")

	// next day the user sits at the cap
	again := Evaluate(d.Next, 4, models.Tag, now.AddDate(0, 0, 1))
	assert.Equal(t, LimitReached, again.Status)
}

func TestEvaluateLimitReachedSurvivesDayBoundary(t *testing.T) {
	record := &models.RewardRecord{WithdrawalCount: 2, FollowersAtLastReward: 2, LastRewardDate: now}

	for days := 1; days <= 3; days++ {
		d := Evaluate(record, 2, models.Tag, now.AddDate(0, 0, days))
		assert.Equal(t, LimitReached, d.Status)
	}
}

func TestEvaluateLimitReachedRefreshesFollowers(t *testing.T) {
	record := &models.RewardRecord{WithdrawalCount: 2, FollowersAtLastReward: 2, LastRewardDate: now.AddDate(0, 0, -1)}

	d := Evaluate(record, 1, models.Tag, now)

	require.NotNil(t, d.Next)
	assert.Equal(t, 1, d.Next.FollowersAtLastReward)
	assert.Equal(t, 2, d.Next.WithdrawalCount)
}

func TestEvaluateDailyLimitRemaining(t *testing.T) {
	record := &models.RewardRecord{WithdrawalCount: 1, FollowersAtLastReward: 1000, LastRewardDate: now}

	d := Evaluate(record, 1000, models.Tag, now)

	assert.Equal(t, DailyLimit, d.Status)
	assert.Nil(t, d.Next)
	assert.Equal(t, 6*time.Hour, d.Remaining)
}

func TestEvaluateNeverExceedsFollowerCap(t *testing.T) {
	record := (*models.RewardRecord)(nil)
	followers := 3
	day := now

	for i := 0; i < 10; i++ {
		d := Evaluate(record, followers, models.Tag, day)
		if d.Payable() {
			record = d.Next
		}
		require.NotNil(t, record)
		assert.LessOrEqual(t, record.WithdrawalCount, followers)
		day = day.AddDate(0, 0, 1)
	}
	assert.Equal(t, 3, record.WithdrawalCount)
}
