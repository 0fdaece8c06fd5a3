package repository

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/burakmert236/xsgfaucet/common/models"
)

// NewMemoryStore returns a process-local Store. Every read-modify-write goes through
// xsync.Map.Compute, which runs under the key's bucket lock.
func NewMemoryStore() *Store {
	return &Store{
		Rewards:   &memoryRewardRepo{records: xsync.NewMap[string, models.RewardRecord]()},
		Processed: &memoryProcessedRepo{events: xsync.NewMap[string, models.ProcessedEvent]()},
		Stats:     &memoryStatRepo{buckets: xsync.NewMap[models.PeriodKey, models.StatBucket]()},
		Cursors:   &memoryCursorRepo{positions: xsync.NewMap[string, uint64]()},
	}
}

type memoryRewardRepo struct {
	records *xsync.Map[string, models.RewardRecord]
}

func (r *memoryRewardRepo) GetById(_ context.Context, userId string) (*models.RewardRecord, error) {
	record, ok := r.records.Load(userId)
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (r *memoryRewardRepo) Create(_ context.Context, record *models.RewardRecord) error {
	now := time.Now().UTC()
	next := *record
	next.PK = models.RewardPK(record.UserId)
	next.SK = models.RecordSK()
	next.Version = 1
	next.CreatedAt = now
	next.UpdatedAt = now

	if _, loaded := r.records.LoadOrStore(record.UserId, next); loaded {
		return errors.New(errors.CodeAlreadyExists, "reward record already exists")
	}

	*record = next
	return nil
}

func (r *memoryRewardRepo) Update(_ context.Context, record *models.RewardRecord) error {
	var conflict bool
	next := *record
	next.PK = models.RewardPK(record.UserId)
	next.SK = models.RecordSK()
	next.Version = record.Version + 1
	next.UpdatedAt = time.Now().UTC()

	r.records.Compute(record.UserId, func(old models.RewardRecord, loaded bool) (models.RewardRecord, xsync.ComputeOp) {
		if !loaded || old.Version != record.Version {
			conflict = true
			return old, xsync.CancelOp
		}
		next.CreatedAt = old.CreatedAt
		return next, xsync.UpdateOp
	})
	if conflict {
		return errors.New(errors.CodeConflict, "reward record was modified concurrently")
	}

	*record = next
	return nil
}

type memoryProcessedRepo struct {
	events *xsync.Map[string, models.ProcessedEvent]
}

func processedKey(userId, postId string) string {
	return models.RewardPK(userId) + "|" + models.PostSK(postId)
}

func (r *memoryProcessedRepo) Exists(_ context.Context, userId, postId string) (bool, error) {
	_, ok := r.events.Load(processedKey(userId, postId))
	return ok, nil
}

func (r *memoryProcessedRepo) Mark(_ context.Context, event *models.ProcessedEvent) error {
	next := *event
	next.PK = models.RewardPK(event.UserId)
	next.SK = models.PostSK(event.PostId)
	if next.CreatedAt.IsZero() {
		next.CreatedAt = time.Now().UTC()
	}
	r.events.LoadOrStore(processedKey(event.UserId, event.PostId), next)
	return nil
}

type memoryStatRepo struct {
	buckets *xsync.Map[models.PeriodKey, models.StatBucket]
}

func (r *memoryStatRepo) Get(_ context.Context, period models.PeriodKey) (*models.StatBucket, error) {
	bucket, ok := r.buckets.Load(period)
	if !ok {
		return nil, nil
	}
	return &bucket, nil
}

func (r *memoryStatRepo) Add(_ context.Context, date time.Time, delta models.StatDelta) error {
	for _, period := range models.PeriodKeys(date) {
		r.buckets.Compute(period, func(old models.StatBucket, loaded bool) (models.StatBucket, xsync.ComputeOp) {
			var prev *models.StatBucket
			if loaded {
				prev = &old
			}
			return *delta.Apply(period, prev), xsync.UpdateOp
		})
	}
	return nil
}

type memoryCursorRepo struct {
	positions *xsync.Map[string, uint64]
}

func (r *memoryCursorRepo) Get(_ context.Context, feedId string) (uint64, error) {
	position, _ := r.positions.Load(feedId)
	return position, nil
}

func (r *memoryCursorRepo) Advance(_ context.Context, feedId string, position uint64) error {
	r.positions.Compute(feedId, func(old uint64, loaded bool) (uint64, xsync.ComputeOp) {
		if loaded && old >= position {
			return old, xsync.CancelOp
		}
		return position, xsync.UpdateOp
	})
	return nil
}
