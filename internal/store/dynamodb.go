package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
)

const pkPrefixUser = "USER#"

// dynamoAPI is the part of *dynamodb.Client the conversation table needs.
type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoConversations stores one item per user keyed by PK = USER#<id>.
type DynamoConversations struct {
	api   dynamoAPI
	table string
	now   func() time.Time
}

// NewDynamo wraps a DynamoDB table.
func NewDynamo(api dynamoAPI, table string) (*DynamoConversations, error) {
	if api == nil {
		return nil, errors.New("store: dynamodb api must not be nil")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("store: dynamodb table name must not be empty")
	}
	return &DynamoConversations{api: api, table: table, now: time.Now}, nil
}

func userPK(userID int64) string {
	return pkPrefixUser + strconv.FormatInt(userID, 10)
}

// ReadConversation loads a user's item with a consistent read.
func (d *DynamoConversations) ReadConversation(ctx context.Context, userID int64) (bakery.Conversation, error) {
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return bakery.Conversation{}, fmt.Errorf("dynamodb get conversation: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return bakery.NewConversation(userID), nil
	}

	item := out.Item
	kind, _ := strAttr(item, "state")
	categoryID, err := optIntAttr(item, "category_id")
	if err != nil {
		return bakery.Conversation{}, err
	}
	productID, err := optIntAttr(item, "product_id")
	if err != nil {
		return bakery.Conversation{}, err
	}
	last, err := optIntAttr(item, "last_product")
	if err != nil {
		return bakery.Conversation{}, err
	}
	conv := bakery.Conversation{
		UserID:        userID,
		State:         decodeState(ctx, userID, bakery.EncodedState{Kind: kind, CategoryID: categoryID, ProductID: productID}),
		LastProductID: last,
	}
	if ts, ok := strAttr(item, "updated_at"); ok {
		conv.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return conv, nil
}

// WriteConversation replaces the user's item.
func (d *DynamoConversations) WriteConversation(ctx context.Context, conv bakery.Conversation) error {
	enc := bakery.EncodeState(conv.State)
	updated := d.now()
	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: userPK(conv.UserID)},
		"user_id":    &types.AttributeValueMemberN{Value: strconv.FormatInt(conv.UserID, 10)},
		"state":      &types.AttributeValueMemberS{Value: enc.Kind},
		"updated_at": &types.AttributeValueMemberS{Value: updated.UTC().Format(time.RFC3339Nano)},
	}
	putOptInt(item, "category_id", enc.CategoryID)
	putOptInt(item, "product_id", enc.ProductID)
	putOptInt(item, "last_product", conv.LastProductID)

	if _, err := d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamodb put conversation: %w", err)
	}
	return nil
}

func putOptInt(item map[string]types.AttributeValue, key string, v *int64) {
	if v == nil {
		return
	}
	item[key] = &types.AttributeValueMemberN{Value: strconv.FormatInt(*v, 10)}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, bool) {
	s, ok := item[key].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return s.Value, true
}

func optIntAttr(item map[string]types.AttributeValue, key string) (*int64, error) {
	v, ok := item[key]
	if !ok {
		return nil, nil
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("store: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("store: parse attribute %q: %w", key, err)
	}
	return &parsed, nil
}
