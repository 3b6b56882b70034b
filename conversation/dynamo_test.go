package conversation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamoClient is an in-memory DynamoDB mock covering the query shapes
// DynamoStore issues.
type mockDynamoClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue // pk+"|"+sk -> item
}

func newMockDynamoClient() *mockDynamoClient {
	return &mockDynamoClient{items: make(map[string]map[string]types.AttributeValue)}
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if attr, ok := item[name].(*types.AttributeValueMemberS); ok {
		return attr.Value
	}
	return ""
}

func (m *mockDynamoClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stringAttr(params.Item, "pk") + "|" + stringAttr(params.Item, "sk")
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(sk)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []map[string]types.AttributeValue
	var sortBy string

	switch expr := aws.ToString(params.KeyConditionExpression); expr {
	case "#owner = :owner":
		owner := stringAttr(params.ExpressionAttributeValues, ":owner")
		for _, item := range m.items {
			if stringAttr(item, "owner") == owner && stringAttr(item, "sk") == dynamoMetaSK {
				matched = append(matched, item)
			}
		}
		sortBy = "created_at"
	case "pk = :pk AND sk = :meta":
		pk := stringAttr(params.ExpressionAttributeValues, ":pk")
		if item, ok := m.items[pk+"|"+dynamoMetaSK]; ok {
			matched = append(matched, item)
		}
	case "pk = :pk AND begins_with(sk, :msg)":
		pk := stringAttr(params.ExpressionAttributeValues, ":pk")
		prefix := stringAttr(params.ExpressionAttributeValues, ":msg")
		for _, item := range m.items {
			if stringAttr(item, "pk") == pk && strings.HasPrefix(stringAttr(item, "sk"), prefix) {
				matched = append(matched, item)
			}
		}
		sortBy = "sk"
	}

	if sortBy != "" {
		sort.Slice(matched, func(i, j int) bool {
			return stringAttr(matched[i], sortBy) < stringAttr(matched[j], sortBy)
		})
	}
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if params.Limit != nil && int(*params.Limit) < len(matched) {
		matched = matched[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: matched}, nil
}

func TestDynamoStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewDynamoStore(newMockDynamoClient(), "lexrag-conversations")
	})
}
