package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDB item attributes.
const (
	attrKey     = "pk"
	attrBody    = "body"
	attrUpdated = "updated_at"
)

// DynamoStore implements BlobStore on a DynamoDB table keyed by a string
// partition key named "pk". Each key is one item holding the blob.
type DynamoStore struct {
	Client *dynamodb.Client
	Table  string
}

func NewDynamoStore(cfg aws.Config, table string, optFns ...func(*dynamodb.Options)) *DynamoStore {
	return &DynamoStore{
		Client: dynamodb.NewFromConfig(cfg, optFns...),
		Table:  table,
	}
}

func (s *DynamoStore) Put(ctx context.Context, key string, data []byte) error {
	if !validKey(key) {
		return fmt.Errorf("invalid key %q", key)
	}
	_, err := s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.Table),
		Item: map[string]types.AttributeValue{
			attrKey:     &types.AttributeValueMemberS{Value: key},
			attrBody:    &types.AttributeValueMemberB{Value: data},
			attrUpdated: &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put dynamodb item: %w", err)
	}
	return nil
}

func (s *DynamoStore) Get(ctx context.Context, key string) ([]byte, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("invalid key %q", key)
	}
	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Table),
		Key:            map[string]types.AttributeValue{attrKey: &types.AttributeValueMemberS{Value: key}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get dynamodb item: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("dynamodb://%s/%s: %w", s.Table, key, ErrNotFound)
	}

	switch body := out.Item[attrBody].(type) {
	case *types.AttributeValueMemberB:
		return body.Value, nil
	case *types.AttributeValueMemberS:
		return []byte(body.Value), nil
	default:
		return nil, fmt.Errorf("dynamodb item %s has no %s attribute", key, attrBody)
	}
}

func (s *DynamoStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	input := &dynamodb.ScanInput{
		TableName:            aws.String(s.Table),
		ProjectionExpression: aws.String(attrKey),
	}
	if prefix != "" {
		input.FilterExpression = aws.String("begins_with(" + attrKey + ", :prefix)")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		}
	}

	paginator := dynamodb.NewScanPaginator(s.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dynamodb table: %w", err)
		}
		for _, item := range page.Items {
			if k, ok := item[attrKey].(*types.AttributeValueMemberS); ok {
				keys = append(keys, k.Value)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// EnsureTable creates the backing table if it does not exist and waits
// until it is active.
func (s *DynamoStore) EnsureTable(ctx context.Context) error {
	_, err := s.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.Table)})
	if err == nil {
		return nil
	}
	var rnf *types.ResourceNotFoundException
	if !errors.As(err, &rnf) {
		return fmt.Errorf("failed to describe table %s: %w", s.Table, err)
	}

	_, err = s.Client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.Table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrKey), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.Table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.Client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.Table)}, 2*time.Minute)
}

func (s *DynamoStore) String() string {
	return "dynamodb://" + s.Table
}
