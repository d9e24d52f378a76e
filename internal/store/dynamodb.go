package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// dynamoItem is the row layout. The table's partition key is "pk" and its
// sort key "sk"; TTL must be enabled on "expires_at". Reads filter on the
// millisecond "expires_at_ms" since the TTL attribute only has seconds.
type dynamoItem struct {
	PK          string `dynamodbav:"pk"`
	SK          string `dynamodbav:"sk"`
	Value       []byte `dynamodbav:"value"`
	ExpiresAt   int64  `dynamodbav:"expires_at"`    // Unix seconds, rounded up
	ExpiresAtMs int64  `dynamodbav:"expires_at_ms"` // Unix ms
}

// DynamoDBStore keeps mailbox entries in a DynamoDB table. Everything up to
// and including the first ':' of a key is its partition, so listing a room
// is a single-partition Query.
//
// DynamoDB deletes expired items lazily (up to days later), so reads filter
// on expires_at themselves.
type DynamoDBStore struct {
	client DynamoDBAPI
	table  string
	now    func() time.Time
}

// NewDynamoDBStore loads the default AWS configuration and returns a store
// for table.
func NewDynamoDBStore(ctx context.Context, table, region string) (*DynamoDBStore, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return NewDynamoDBStoreFromClient(dynamodb.NewFromConfig(cfg), table), nil
}

// NewDynamoDBStoreFromClient wraps an existing client.
func NewDynamoDBStoreFromClient(client DynamoDBAPI, table string) *DynamoDBStore {
	return &DynamoDBStore{client: client, table: table, now: time.Now}
}

// Name returns the backend name.
func (s *DynamoDBStore) Name() string { return "dynamodb" }

// Close is a no-op; the SDK client holds no connections that need closing.
func (s *DynamoDBStore) Close() error { return nil }

// Ping checks the table exists and is reachable.
func (s *DynamoDBStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	return err
}

// Put writes the item with its TTL attribute.
func (s *DynamoDBStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expires := s.now().Add(ttl)
	item := dynamoItem{
		PK:          partitionOf(key),
		SK:          key,
		Value:       value,
		ExpiresAt:   expires.Add(time.Second - time.Nanosecond).Unix(),
		ExpiresAtMs: expires.UnixMilli(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	return err
}

// Get reads the item and treats a passed expires_at as absent.
func (s *DynamoDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: partitionOf(key)},
			"sk": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	if item.ExpiresAtMs <= s.now().UnixMilli() {
		return nil, ErrNotFound
	}
	return item.Value, nil
}

// List queries the prefix's partition, or scans when the prefix does not
// name a whole partition.
func (s *DynamoDBStore) List(ctx context.Context, prefix string) ([]string, error) {
	now := strconv.FormatInt(s.now().UnixMilli(), 10)
	keys := make([]string, 0)

	pk := partitionOf(prefix)
	if strings.HasSuffix(pk, ":") {
		p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
			FilterExpression:       aws.String("expires_at_ms > :now"),
			ProjectionExpression:   aws.String("sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: pk},
				":prefix": &types.AttributeValueMemberS{Value: prefix},
				":now":    &types.AttributeValueMemberN{Value: now},
			},
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			keys = appendSortKeys(keys, page.Items)
		}
		return keys, nil
	}

	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:            aws.String(s.table),
		FilterExpression:     aws.String("begins_with(sk, :prefix) AND expires_at_ms > :now"),
		ProjectionExpression: aws.String("sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: prefix},
			":now":    &types.AttributeValueMemberN{Value: now},
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		keys = appendSortKeys(keys, page.Items)
	}
	return keys, nil
}

func appendSortKeys(keys []string, items []map[string]types.AttributeValue) []string {
	for _, item := range items {
		if sk, ok := item["sk"].(*types.AttributeValueMemberS); ok {
			keys = append(keys, sk.Value)
		}
	}
	return keys
}

// partitionOf returns the key up to and including its first ':', or the
// whole key when it has none.
func partitionOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i+1]
	}
	return key
}
