package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/burakmert236/xsgfaucet/common/database"
	"github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/burakmert236/xsgfaucet/common/models"
)

type rewardRepo struct {
	db *database.DynamoDBClient
}

func NewRewardRepository(db *database.DynamoDBClient) RewardRepository {
	return &rewardRepo{db: db}
}

// Fetch a reward record with user id
func (r *rewardRepo) GetById(ctx context.Context, userId string) (*models.RewardRecord, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.RewardPK(userId)},
			"SK": &types.AttributeValueMemberS{Value: models.RecordSK()},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to get reward record")
	}

	if result.Item == nil {
		return nil, nil
	}

	var record models.RewardRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, errors.Wrap(err, errors.CodeObjectUnmarshalError, "failed to unmarshal reward record")
	}

	return &record, nil
}

// Create a first reward record; fails with ALREADY_EXISTS if the user has one
func (r *rewardRepo) Create(ctx context.Context, record *models.RewardRecord) error {
	now := time.Now().UTC()
	record.PK = models.RewardPK(record.UserId)
	record.SK = models.RecordSK()
	record.Version = 1
	record.CreatedAt = now
	record.UpdatedAt = now

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return errors.Wrap(err, errors.CodeObjectMarshalError, "failed to marshal reward record")
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return errors.Wrap(err, errors.CodeAlreadyExists, "reward record already exists")
		}
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to create reward record")
	}

	return nil
}

// Update replaces the record if nobody wrote it since it was read
func (r *rewardRepo) Update(ctx context.Context, record *models.RewardRecord) error {
	expected := record.Version
	record.PK = models.RewardPK(record.UserId)
	record.SK = models.RecordSK()
	record.Version = expected + 1
	record.UpdatedAt = time.Now().UTC()

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		record.Version = expected
		return errors.Wrap(err, errors.CodeObjectMarshalError, "failed to marshal reward record")
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK) AND #version = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#version": "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
		},
	})
	if err != nil {
		record.Version = expected
		if isConditionFailed(err) {
			return errors.Wrap(err, errors.CodeConflict, "reward record was modified concurrently")
		}
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to update reward record")
	}

	return nil
}
