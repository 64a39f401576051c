// Package dynamodb implements the expiring key-value Store over a single
// DynamoDB table with native TTL expiry.
package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	apperrors "muse-backend/pkg/errors"
)

// kvItem is the table row shape. TTL is a Unix epoch consumed by DynamoDB's
// native item expiry; zero means no expiry.
type kvItem struct {
	PK        string `dynamodbav:"PK"`
	Payload   []byte `dynamodbav:"Payload"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
	UpdatedAt int64  `dynamodbav:"UpdatedAt"`
}

// KVStore is the DynamoDB-backed Store implementation
type KVStore struct {
	client    *awsdynamodb.Client
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

// NewKVStore creates a store over the given table
func NewKVStore(client *awsdynamodb.Client, tableName string, logger *zap.Logger) *KVStore {
	return &KVStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

// Get fetches the value for key. DynamoDB TTL deletion is lazy, sometimes by
// days, so expiry is also enforced on read.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, false, apperrors.NewDatabaseError("get", err)
	}
	if out.Item == nil {
		return nil, false, nil
	}

	var item kvItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, false, apperrors.NewDatabaseError("unmarshal", err)
	}

	if item.TTL > 0 && s.now().Unix() >= item.TTL {
		return nil, false, nil
	}

	return item.Payload, true, nil
}

// Put writes value under key with a fresh lifetime
func (s *KVStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item := kvItem{
		PK:        key,
		Payload:   value,
		UpdatedAt: s.now().Unix(),
	}
	if ttl > 0 {
		item.TTL = s.now().Add(ttl).Unix()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewDatabaseError("marshal", err)
	}

	_, err = s.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		s.logger.Error("dynamodb put failed", zap.String("key", key), zap.Error(err))
		return apperrors.NewDatabaseError("put", err)
	}
	return nil
}

// Delete removes key if present
func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return apperrors.NewDatabaseError("delete", err)
	}
	return nil
}
