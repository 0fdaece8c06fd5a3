package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/burakmert236/xsgfaucet/common/database"
	"github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/burakmert236/xsgfaucet/common/models"
)

const (
	attrNewUsers         = "new_users"
	attrTotalWithdrawals = "total_withdrawals"
	attrWithdrawalAmount = "withdrawal_amount"
)

type statRepo struct {
	db     *database.DynamoDBClient
	txRepo database.TransactionRepository
}

func NewStatRepository(db *database.DynamoDBClient, txRepo database.TransactionRepository) StatRepository {
	return &statRepo{db: db, txRepo: txRepo}
}

func (r *statRepo) Get(ctx context.Context, period models.PeriodKey) (*models.StatBucket, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.StatPK(period.Granularity)},
			"SK": &types.AttributeValueMemberS{Value: period.Key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to get stat bucket")
	}

	if result.Item == nil {
		return nil, nil
	}

	bucket := &models.StatBucket{Period: period, WithdrawalAmount: decimal.Zero}
	if bucket.NewUsers, err = intAttr(result.Item, attrNewUsers); err != nil {
		return nil, err
	}
	if bucket.TotalWithdrawals, err = intAttr(result.Item, attrTotalWithdrawals); err != nil {
		return nil, err
	}
	if v, ok := result.Item[attrWithdrawalAmount].(*types.AttributeValueMemberN); ok {
		amount, err := decimal.NewFromString(v.Value)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeObjectUnmarshalError, "invalid withdrawal amount")
		}
		bucket.WithdrawalAmount = amount
	}

	return bucket, nil
}

// Add increments the day, month and year buckets of date in one transaction.
// ADD creates missing attributes, so an absent bucket starts from zero.
func (r *statRepo) Add(ctx context.Context, date time.Time, delta models.StatDelta) error {
	newUsers := "0"
	if delta.IsNewUser {
		newUsers = "1"
	}

	tb := database.NewTransactionBuilder()
	for _, period := range models.PeriodKeys(date) {
		err := tb.AddUpdate(types.Update{
			TableName: aws.String(r.db.Table()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: models.StatPK(period.Granularity)},
				"SK": &types.AttributeValueMemberS{Value: period.Key},
			},
			UpdateExpression: aws.String("ADD #nu :nu, #tw :one, #wa :amount SET granularity = :g, period_key = :k"),
			ExpressionAttributeNames: map[string]string{
				"#nu": attrNewUsers,
				"#tw": attrTotalWithdrawals,
				"#wa": attrWithdrawalAmount,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":nu":     &types.AttributeValueMemberN{Value: newUsers},
				":one":    &types.AttributeValueMemberN{Value: "1"},
				":amount": &types.AttributeValueMemberN{Value: delta.Amount.String()},
				":g":      &types.AttributeValueMemberS{Value: string(period.Granularity)},
				":k":      &types.AttributeValueMemberS{Value: period.Key},
			},
		})
		if err != nil {
			return errors.Wrap(err, errors.CodeInternalServer, "failed to build stat transaction")
		}
	}

	if err := r.txRepo.Execute(ctx, tb); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to add stat")
	}

	return nil
}

func intAttr(item map[string]types.AttributeValue, name string) (int64, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeObjectUnmarshalError, "invalid counter "+name)
	}
	return n, nil
}
