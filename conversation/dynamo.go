package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoClient is the interface for DynamoDB operations.
type DynamoClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore persists conversations in a single DynamoDB table so several
// application nodes can share chat history.
//
// Table schema:
//   - Partition key: pk (string) - "CONV#<id>"
//   - Sort key: sk (string) - "META" for the conversation item,
//     "MSG#<seq>" for messages (zero-padded so range order is append order)
//   - GSI "owner-index": partition key owner (string), sort key created_at
//     (string, RFC 3339) for latest-conversation lookups
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name lexrag-conversations \
//	  --attribute-definitions AttributeName=pk,AttributeType=S AttributeName=sk,AttributeType=S \
//	    AttributeName=owner,AttributeType=S AttributeName=created_at,AttributeType=S \
//	  --key-schema AttributeName=pk,KeyType=HASH AttributeName=sk,KeyType=RANGE \
//	  --global-secondary-indexes 'IndexName=owner-index,KeySchema=[{AttributeName=owner,KeyType=HASH},{AttributeName=created_at,KeyType=RANGE}],Projection={ProjectionType=ALL}' \
//	  --billing-mode PAY_PER_REQUEST
type DynamoStore struct {
	client    DynamoClient
	tableName string
}

var _ Store = (*DynamoStore)(nil)

const (
	dynamoOwnerIndex = "owner-index"
	dynamoMetaSK     = "META"
)

type dynamoConversationItem struct {
	PK    string `dynamodbav:"pk"`
	SK    string `dynamodbav:"sk"`
	ID    string `dynamodbav:"id"`
	Owner string `dynamodbav:"owner"`
	// RFC 3339 so the owner-index range key sorts chronologically
	CreatedAt string `dynamodbav:"created_at"`
}

type dynamoMessageItem struct {
	PK        string     `dynamodbav:"pk"`
	SK        string     `dynamodbav:"sk"`
	ID        string     `dynamodbav:"id"`
	Role      string     `dynamodbav:"role"`
	Content   string     `dynamodbav:"content"`
	Citations []Citation `dynamodbav:"citations,omitempty"`
	CreatedAt time.Time  `dynamodbav:"created_at,unixtime"`
}

// NewDynamoStore creates a conversation store on top of an existing table.
func NewDynamoStore(client DynamoClient, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func conversationPK(id string) string {
	return "CONV#" + id
}

func messageSK(seq int) string {
	return fmt.Sprintf("MSG#%012d", seq)
}

func (s *DynamoStore) CreateConversation(ctx context.Context, owner string) (*Conversation, error) {
	conv := &Conversation{
		ID:        uuid.NewString(),
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
	}

	item, err := attributevalue.MarshalMap(dynamoConversationItem{
		PK:        conversationPK(conv.ID),
		SK:        dynamoMetaSK,
		ID:        conv.ID,
		Owner:     conv.Owner,
		CreatedAt: conv.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling conversation: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}

func (s *DynamoStore) LatestConversationFor(ctx context.Context, owner string) (*Conversation, error) {
	resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(dynamoOwnerIndex),
		KeyConditionExpression: aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("querying latest conversation: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, ErrNoConversation
	}

	conv, err := unmarshalDynamoConversation(resp.Items[0])
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *DynamoStore) AppendMessage(ctx context.Context, conversationID string, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	seq, err := s.nextSeq(ctx, conversationID)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(dynamoMessageItem{
		PK:        conversationPK(conversationID),
		SK:        messageSK(seq),
		ID:        msg.ID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		Citations: msg.Citations,
		CreatedAt: msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(sk)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			// Another writer took this sequence number, retry once
			seq, err = s.nextSeq(ctx, conversationID)
			if err != nil {
				return err
			}
			item["sk"] = &types.AttributeValueMemberS{Value: messageSK(seq)}
			_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
				TableName:           aws.String(s.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(sk)"),
			})
		}
		if err != nil {
			return fmt.Errorf("appending message: %w", err)
		}
	}
	return nil
}

func (s *DynamoStore) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	if err := s.ensureConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	var msgs []Message
	var lastKey map[string]types.AttributeValue
	for {
		resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :msg)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":  &types.AttributeValueMemberS{Value: conversationPK(conversationID)},
				":msg": &types.AttributeValueMemberS{Value: "MSG#"},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("querying messages: %w", err)
		}

		for _, raw := range resp.Items {
			var item dynamoMessageItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("unmarshalling message: %w", err)
			}
			msgs = append(msgs, Message{
				ID:        item.ID,
				Role:      Role(item.Role),
				Content:   item.Content,
				Citations: item.Citations,
				CreatedAt: item.CreatedAt,
			})
		}

		lastKey = resp.LastEvaluatedKey
		if len(lastKey) == 0 {
			break
		}
	}
	return msgs, nil
}

// nextSeq returns one past the highest message sequence in the conversation.
func (s *DynamoStore) nextSeq(ctx context.Context, conversationID string) (int, error) {
	if err := s.ensureConversation(ctx, conversationID); err != nil {
		return 0, err
	}

	resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :msg)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":  &types.AttributeValueMemberS{Value: conversationPK(conversationID)},
			":msg": &types.AttributeValueMemberS{Value: "MSG#"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("querying last message: %w", err)
	}
	if len(resp.Items) == 0 {
		return 1, nil
	}

	var last dynamoMessageItem
	if err := attributevalue.UnmarshalMap(resp.Items[0], &last); err != nil {
		return 0, fmt.Errorf("unmarshalling last message: %w", err)
	}
	var seq int
	if _, err := fmt.Sscanf(last.SK, "MSG#%d", &seq); err != nil {
		return 0, fmt.Errorf("parsing message sequence %q: %w", last.SK, err)
	}
	return seq + 1, nil
}

func (s *DynamoStore) ensureConversation(ctx context.Context, conversationID string) error {
	resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("pk = :pk AND sk = :meta"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: conversationPK(conversationID)},
			":meta": &types.AttributeValueMemberS{Value: dynamoMetaSK},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("checking conversation: %w", err)
	}
	if len(resp.Items) == 0 {
		return ErrNoConversation
	}
	return nil
}

func unmarshalDynamoConversation(raw map[string]types.AttributeValue) (*Conversation, error) {
	var conv Conversation
	id, ok := raw["id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("invalid id attribute in conversation item")
	}
	owner, ok := raw["owner"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("invalid owner attribute in conversation item")
	}
	createdAt, ok := raw["created_at"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("invalid created_at attribute in conversation item")
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt.Value)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	conv.ID = id.Value
	conv.Owner = owner.Value
	conv.CreatedAt = ts
	return &conv, nil
}
