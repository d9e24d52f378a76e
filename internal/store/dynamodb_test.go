package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo keeps items in memory and evaluates the few expressions the
// store issues by reading their attribute values.
type fakeDynamo struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue // by sk
	queries int
	scans   int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func attrS(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func attrN(item map[string]types.AttributeValue, name string) int64 {
	if v, ok := item[name].(*types.AttributeValueMemberN); ok {
		n, _ := strconv.ParseInt(v.Value, 10, 64)
		return n
	}
	return 0
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[attrS(in.Item, "sk")] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[attrS(in.Key, "sk")]
	if !ok || attrS(item, "pk") != attrS(in.Key, "pk") {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDynamo) match(pk, prefix string, now int64) []map[string]types.AttributeValue {
	var out []map[string]types.AttributeValue
	for sk, item := range f.items {
		if pk != "" && attrS(item, "pk") != pk {
			continue
		}
		if strings.HasPrefix(sk, prefix) && attrN(item, "expires_at_ms") > now {
			out = append(out, item)
		}
	}
	return out
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	v := in.ExpressionAttributeValues
	return &dynamodb.QueryOutput{Items: f.match(attrS(v, ":pk"), attrS(v, ":prefix"), attrN(v, ":now"))}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	v := in.ExpressionAttributeValues
	return &dynamodb.ScanOutput{Items: f.match("", attrS(v, ":prefix"), attrN(v, ":now"))}, nil
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, nil
}

func TestDynamoDBStoreContract(t *testing.T) {
	fake := newFakeDynamo()
	testKVContract(t, NewDynamoDBStoreFromClient(fake, "test"))

	if fake.queries == 0 {
		t.Fatal("expected room listing to use Query")
	}
}

func TestDynamoDBStoreHidesExpiredItems(t *testing.T) {
	s := NewDynamoDBStoreFromClient(newFakeDynamo(), "test")
	clock := newFakeClock()
	s.now = clock.Now
	ctx := context.Background()

	if err := s.Put(ctx, "room:1:a", []byte("a"), 10*time.Second); err != nil {
		t.Fatal(err)
	}

	clock.Advance(10 * time.Second)

	if _, err := s.Get(ctx, "room:1:a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	keys, err := s.List(ctx, "room:")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Fatalf("List = %v, want none", keys)
	}
}

func TestDynamoDBStoreKeepsSubSecondTTL(t *testing.T) {
	fake := newFakeDynamo()
	s := NewDynamoDBStoreFromClient(fake, "test")
	clock := newFakeClock()
	clock.Advance(900 * time.Millisecond)
	s.now = clock.Now
	ctx := context.Background()

	if err := s.Put(ctx, "room:1:a", []byte("a"), 600*time.Second); err != nil {
		t.Fatal(err)
	}
	item := fake.items["room:1:a"]
	if got, want := attrN(item, "expires_at"), clock.Now().Add(600*time.Second).Unix()+1; got != want {
		t.Fatalf("expires_at = %d, want %d (rounded up)", got, want)
	}

	clock.Advance(600*time.Second - 50*time.Millisecond)
	if _, err := s.Get(ctx, "room:1:a"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}
	if keys, _ := s.List(ctx, "room:"); len(keys) != 1 {
		t.Fatalf("List before expiry = %v", keys)
	}

	clock.Advance(50 * time.Millisecond)
	if _, err := s.Get(ctx, "room:1:a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get at expiry: %v", err)
	}
}

func TestDynamoDBStorePartialPrefixScans(t *testing.T) {
	fake := newFakeDynamo()
	s := NewDynamoDBStoreFromClient(fake, "test")
	ctx := context.Background()

	s.Put(ctx, "room:1:a", []byte("a"), time.Minute)
	s.Put(ctx, "roomy:1:b", []byte("b"), time.Minute)

	keys, err := s.List(ctx, "room")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("List room = %v, want 2 keys", keys)
	}
	if fake.scans != 1 {
		t.Fatalf("expected a Scan for a non-partition prefix, got %d", fake.scans)
	}
}

func TestPartitionOf(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"room:0001700000000000:ABC", "room:"},
		{"room:", "room:"},
		{"room", "room"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := partitionOf(tt.key); got != tt.want {
			t.Fatalf("partitionOf(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
