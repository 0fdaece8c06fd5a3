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

type cursorRepo struct {
	db *database.DynamoDBClient
}

func NewCursorRepository(db *database.DynamoDBClient) CursorRepository {
	return &cursorRepo{db: db}
}

func (r *cursorRepo) Get(ctx context.Context, feedId string) (uint64, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.CursorPK(feedId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "failed to get cursor")
	}

	if result.Item == nil {
		return 0, nil
	}

	var cursor models.Cursor
	if err := attributevalue.UnmarshalMap(result.Item, &cursor); err != nil {
		return 0, errors.Wrap(err, errors.CodeObjectUnmarshalError, "failed to unmarshal cursor")
	}

	return cursor.Position, nil
}

// Advance stores position unless the stored cursor is already at or past it
func (r *cursorRepo) Advance(ctx context.Context, feedId string, position uint64) error {
	cursor := models.Cursor{
		FeedId:    feedId,
		Position:  position,
		UpdatedAt: time.Now().UTC(),
		PK:        models.CursorPK(feedId),
		SK:        models.MetaSK(),
	}

	item, err := attributevalue.MarshalMap(cursor)
	if err != nil {
		return errors.Wrap(err, errors.CodeObjectMarshalError, "failed to marshal cursor")
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR #position < :position"),
		ExpressionAttributeNames: map[string]string{
			"#position": "position",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":position": &types.AttributeValueMemberN{Value: strconv.FormatUint(position, 10)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil
		}
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to advance cursor")
	}

	return nil
}
