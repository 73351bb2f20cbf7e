package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-bgg-gateway/internal/domain"
)

// GameRepo provides typed DynamoDB operations for the games table.
type GameRepo struct {
	client    API
	tableName string
}

func NewGameRepo(client API, tableName string) *GameRepo {
	return &GameRepo{client: client, tableName: tableName}
}

func (r *GameRepo) Get(ctx context.Context, bggID int) (*domain.Game, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       numKey(fieldBggID, bggID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("game %d not found: %w", bggID, domain.ErrNotFound)
	}
	var g domain.Game
	if err := attributevalue.UnmarshalMap(out.Item, &g); err != nil {
		return nil, fmt.Errorf("unmarshal game: %w", err)
	}
	if g.Categories == nil {
		g.Categories = []string{}
	}
	return &g, nil
}

// Upsert merges every mapped field into the game item, creating it when absent.
// Attributes the new document does not carry are left untouched.
func (r *GameRepo) Upsert(ctx context.Context, g *domain.Game) error {
	item, err := attributevalue.MarshalMap(g)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	delete(item, fieldBggID)
	ue, err := itemUpdateExpr(item)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       numKey(fieldBggID, g.BggID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
