package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/burakmert236/xsgfaucet/common/database"
	"github.com/burakmert236/xsgfaucet/common/models"
)

// RewardRepository owns per-user reward records. GetById returns nil, nil for an unknown user.
type RewardRepository interface {
	GetById(ctx context.Context, userId string) (*models.RewardRecord, error)
	Create(ctx context.Context, record *models.RewardRecord) error
	Update(ctx context.Context, record *models.RewardRecord) error
}

// ProcessedEventRepository stores write-once dedup markers keyed by (user, post).
type ProcessedEventRepository interface {
	Exists(ctx context.Context, userId, postId string) (bool, error)
	Mark(ctx context.Context, event *models.ProcessedEvent) error
}

// StatRepository keeps day, month and year buckets. Get returns nil, nil for an absent bucket.
type StatRepository interface {
	Get(ctx context.Context, period models.PeriodKey) (*models.StatBucket, error)
	Add(ctx context.Context, date time.Time, delta models.StatDelta) error
}

// CursorRepository persists the last processed feed position. Positions only move forward.
type CursorRepository interface {
	Get(ctx context.Context, feedId string) (uint64, error)
	Advance(ctx context.Context, feedId string, position uint64) error
}

// Store bundles the ledger repositories behind one storage driver.
type Store struct {
	Rewards   RewardRepository
	Processed ProcessedEventRepository
	Stats     StatRepository
	Cursors   CursorRepository
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// NewDynamoStore wires every repository to one single-table DynamoDB client.
func NewDynamoStore(db *database.DynamoDBClient) *Store {
	return &Store{
		Rewards:   NewRewardRepository(db),
		Processed: NewProcessedEventRepository(db),
		Stats:     NewStatRepository(db, database.NewTransactionRepository(db)),
		Cursors:   NewCursorRepository(db),
	}
}
