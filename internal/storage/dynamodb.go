package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of the DynamoDB client this package calls,
// kept narrow so tests can supply a mock (grounded on
// fleet-service/internal/storage/dynamodb.go's DynamoDBAPI interface).
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoDBRunStorage persists checkpoints to a DynamoDB table keyed by
// run_id (partition key) and step_count (sort key); the latest
// checkpoint for a run is the highest step_count.
type DynamoDBRunStorage struct {
	client    DynamoDBAPI
	tableName string
}

// NewDynamoDBRunStorage constructs a DynamoDBRunStorage against the given
// table.
func NewDynamoDBRunStorage(client DynamoDBAPI, tableName string) *DynamoDBRunStorage {
	return &DynamoDBRunStorage{client: client, tableName: tableName}
}

func (d *DynamoDBRunStorage) SaveCheckpoint(ctx context.Context, cp *Checkpoint) error {
	if cp.SavedAt.IsZero() {
		cp.SavedAt = time.Now()
	}
	item, err := attributevalue.MarshalMap(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put checkpoint: %w", err)
	}
	return nil
}

func (d *DynamoDBRunStorage) GetLatestCheckpoint(ctx context.Context, runID string) (*Checkpoint, error) {
	result, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("run_id = :runID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":runID": &types.AttributeValueMemberS{Value: runID},
		},
		ScanIndexForward: aws.Bool(false), // highest step_count first.
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	var cp Checkpoint
	if err := attributevalue.UnmarshalMap(result.Items[0], &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

func (d *DynamoDBRunStorage) ListRuns(ctx context.Context) ([]string, error) {
	result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(d.tableName),
		ProjectionExpression: aws.String("run_id"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan checkpoints: %w", err)
	}

	seen := make(map[string]bool)
	var runs []string
	for _, item := range result.Items {
		v, ok := item["run_id"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if !seen[v.Value] {
			seen[v.Value] = true
			runs = append(runs, v.Value)
		}
	}
	return runs, nil
}
