package repository

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/burakmert236/xsgfaucet/common/database"
	"github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/burakmert236/xsgfaucet/common/models"
)

type processedEventRepo struct {
	db *database.DynamoDBClient
}

func NewProcessedEventRepository(db *database.DynamoDBClient) ProcessedEventRepository {
	return &processedEventRepo{db: db}
}

func (r *processedEventRepo) Exists(ctx context.Context, userId, postId string) (bool, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.RewardPK(userId)},
			"SK": &types.AttributeValueMemberS{Value: models.PostSK(postId)},
		},
		ProjectionExpression: aws.String("PK"),
		ConsistentRead:       aws.Bool(true),
	})
	if err != nil {
		return false, errors.Wrap(err, errors.CodeDatabaseError, "failed to check processed event")
	}

	return result.Item != nil, nil
}

// Mark writes the marker once; marking an already marked pair is a no-op
func (r *processedEventRepo) Mark(ctx context.Context, event *models.ProcessedEvent) error {
	event.PK = models.RewardPK(event.UserId)
	event.SK = models.PostSK(event.PostId)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return errors.Wrap(err, errors.CodeObjectMarshalError, "failed to marshal processed event")
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil
		}
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to mark processed event")
	}

	return nil
}
