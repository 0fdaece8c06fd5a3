package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	apperrors "github.com/burakmert236/xsgfaucet/common/errors"
)

// DynamoDB rejects transactions with more than 100 actions.
const maxTransactionItems = 100

type TransactionBuilder struct {
	items []types.TransactWriteItem
	limit int
}

func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		items: make([]types.TransactWriteItem, 0),
		limit: maxTransactionItems,
	}
}

func (tb *TransactionBuilder) AddPut(item types.Put) error {
	return tb.add(types.TransactWriteItem{Put: &item})
}

func (tb *TransactionBuilder) AddUpdate(item types.Update) error {
	return tb.add(types.TransactWriteItem{Update: &item})
}

func (tb *TransactionBuilder) add(item types.TransactWriteItem) error {
	if len(tb.items) >= tb.limit {
		return fmt.Errorf("transaction limit exceeded: %d items", tb.limit)
	}
	tb.items = append(tb.items, item)
	return nil
}

func (tb *TransactionBuilder) Execute(ctx context.Context, client *dynamodb.Client) error {
	if len(tb.items) == 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "no items in transaction")
	}

	_, err := client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: tb.items,
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			return apperrors.Wrap(err, apperrors.CodeConflict, "transaction canceled")
		}
		return apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to execute transaction")
	}

	return nil
}

func (tb *TransactionBuilder) Count() int {
	return len(tb.items)
}

// TransactionRepository executes built transactions against one DynamoDB client.
type TransactionRepository interface {
	Execute(ctx context.Context, tb *TransactionBuilder) error
}

type transactionRepo struct {
	db *DynamoDBClient
}

func NewTransactionRepository(db *DynamoDBClient) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Execute(ctx context.Context, tb *TransactionBuilder) error {
	return tb.Execute(ctx, r.db.Client)
}
