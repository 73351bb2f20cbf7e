package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-bgg-gateway/internal/domain"
)

const maxUnprocessedRetries = 3

// VerificationCodeRepo manages short email verification codes.
// PK: code. GSI email-index on email.
type VerificationCodeRepo struct {
	client    API
	tableName string
}

func NewVerificationCodeRepo(client API, tableName string) *VerificationCodeRepo {
	return &VerificationCodeRepo{client: client, tableName: tableName}
}

// Create writes v only if no item with the same code exists.
// An existing code yields an error wrapping domain.ErrConflict.
func (r *VerificationCodeRepo) Create(ctx context.Context, v *domain.VerificationCode) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#c)"),
		ExpressionAttributeNames: map[string]string{"#c": fieldCode},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("code already exists: %w", domain.ErrConflict)
	}
	return err
}

func (r *VerificationCodeRepo) Get(ctx context.Context, code string) (*domain.VerificationCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldCode, code),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	var v domain.VerificationCode
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, fmt.Errorf("unmarshal verification code: %w", err)
	}
	return &v, nil
}

func (r *VerificationCodeRepo) Delete(ctx context.Context, code string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldCode, code),
	})
	return err
}

// ListByEmail returns every code bound to email via the email-index GSI.
func (r *VerificationCodeRepo) ListByEmail(ctx context.Context, email string) ([]domain.VerificationCode, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexEmail),
		KeyConditionExpression:    aws.String("#e = :e"),
		ExpressionAttributeNames:  map[string]string{"#e": fieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: email}},
	}
	var codes []domain.VerificationCode
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.VerificationCode
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal verification codes: %w", err)
		}
		codes = append(codes, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return codes, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// DeleteMany removes the given codes in batches of 25, resubmitting unprocessed items a
// bounded number of times.
func (r *VerificationCodeRepo) DeleteMany(ctx context.Context, codes []string) error {
	for _, batch := range chunk(codes, maxBatchWrite) {
		reqs := make([]types.WriteRequest, 0, len(batch))
		for _, c := range batch {
			reqs = append(reqs, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: strKey(fieldCode, c)},
			})
		}
		pending := map[string][]types.WriteRequest{r.tableName: reqs}
		for attempt := 0; len(pending[r.tableName]) > 0; attempt++ {
			if attempt > maxUnprocessedRetries {
				return fmt.Errorf("batch delete: %d items left unprocessed", len(pending[r.tableName]))
			}
			out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("batch delete: %w", err)
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}
