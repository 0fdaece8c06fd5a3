package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/burakmert236/xsgfaucet/common/models"
)

func TestMemoryRewardCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Rewards.GetById(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	record := &models.RewardRecord{UserId: "u1", FollowersAtLastReward: 10, WithdrawalCount: 1}
	require.NoError(t, store.Rewards.Create(ctx, record))
	assert.Equal(t, int64(1), record.Version)

	err = store.Rewards.Create(ctx, &models.RewardRecord{UserId: "u1"})
	assert.True(t, errors.Is(err, errors.CodeAlreadyExists))

	got, err = store.Rewards.GetById(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.FollowersAtLastReward)
}

func TestMemoryRewardUpdateIsVersionConditioned(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Rewards.Create(ctx, &models.RewardRecord{UserId: "u1", WithdrawalCount: 1}))

	first, _ := store.Rewards.GetById(ctx, "u1")
	stale, _ := store.Rewards.GetById(ctx, "u1")

	first.WithdrawalCount = 2
	require.NoError(t, store.Rewards.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	stale.WithdrawalCount = 2
	err := store.Rewards.Update(ctx, stale)
	assert.True(t, errors.Is(err, errors.CodeConflict))

	got, _ := store.Rewards.GetById(ctx, "u1")
	assert.Equal(t, 2, got.WithdrawalCount)
}

func TestMemoryProcessedMarkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	exists, err := store.Processed.Exists(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Processed.Mark(ctx, &models.ProcessedEvent{UserId: "u1", PostId: "p1", Outcome: models.OutcomeRewarded}))
	require.NoError(t, store.Processed.Mark(ctx, &models.ProcessedEvent{UserId: "u1", PostId: "p1", Outcome: models.OutcomeDuplicate}))

	exists, err = store.Processed.Exists(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, _ = store.Processed.Exists(ctx, "u2", "p1")
	assert.False(t, exists)
}

func TestMemoryStatRollups(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	jan1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	jan2 := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Stats.Add(ctx, jan1, models.StatDelta{Amount: decimal.NewFromInt(10), IsNewUser: true}))
	require.NoError(t, store.Stats.Add(ctx, jan1, models.StatDelta{Amount: decimal.NewFromInt(10)}))
	require.NoError(t, store.Stats.Add(ctx, jan2, models.StatDelta{Amount: decimal.NewFromInt(10), IsNewUser: true}))

	day, err := store.Stats.Get(ctx, models.DayKey(jan1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), day.TotalWithdrawals)
	assert.Equal(t, int64(1), day.NewUsers)
	assert.True(t, decimal.NewFromInt(20).Equal(day.WithdrawalAmount))

	month, err := store.Stats.Get(ctx, models.MonthKey(jan1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), month.TotalWithdrawals)
	assert.Equal(t, int64(2), month.NewUsers)
	assert.True(t, decimal.NewFromInt(30).Equal(month.WithdrawalAmount))

	absent, err := store.Stats.Get(ctx, models.DayKey(jan1.AddDate(0, 0, -1)))
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestMemoryStatAddIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Stats.Add(ctx, date, models.StatDelta{Amount: decimal.NewFromInt(1)})
		}()
	}
	wg.Wait()

	year, err := store.Stats.Get(ctx, models.YearKey(date))
	require.NoError(t, err)
	assert.Equal(t, int64(50), year.TotalWithdrawals)
	assert.True(t, decimal.NewFromInt(50).Equal(year.WithdrawalAmount))
}

func TestMemoryCursorOnlyMovesForward(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	pos, err := store.Cursors.Get(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pos)

	require.NoError(t, store.Cursors.Advance(ctx, "main", 5))
	require.NoError(t, store.Cursors.Advance(ctx, "main", 3))
	require.NoError(t, store.Cursors.Advance(ctx, "main", 5))

	pos, _ = store.Cursors.Get(ctx, "main")
	assert.Equal(t, uint64(5), pos)

	require.NoError(t, store.Cursors.Advance(ctx, "main", 9))
	pos, _ = store.Cursors.Get(ctx, "main")
	assert.Equal(t, uint64(9), pos)
}
