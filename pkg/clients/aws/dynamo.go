package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
)

// Dynamo defines the interactions with the DynamoDB API, items are
// identified by an Id attribute and carry their payload as a string map
// in a Data attribute
type Dynamo interface {
	// GetItem returns the data of the item with the given id, returns
	// ErrItemNotFound when no such item exists
	GetItem(ctx context.Context, table, id string) (map[string]string, error)
	// PutItem writes the data of the item with the given id
	PutItem(ctx context.Context, table, id string, data map[string]string) error
}

// DynamoImpl is a concrete implementation of the Dynamo interface
type DynamoImpl struct {
	client *dynamodb.Client
	log    logger.Logger
}

// NewDynamo creates a new DynamoDB client
func NewDynamo(cfg aws.Config, l logger.Logger) Dynamo {
	return &DynamoImpl{dynamodb.NewFromConfig(cfg), l}
}

func (c *DynamoImpl) GetItem(ctx context.Context, table, id string) (map[string]string, error) {
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		ConsistentRead: aws.Bool(true),
		Key: map[string]types.AttributeValue{
			"Id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		if apiErrorCode(err, "ResourceNotFoundException") {
			return nil, ErrItemNotFound
		}

		return nil, fmt.Errorf("unable to get item %s from table %s: %w", id, table, err)
	}

	if out.Item == nil {
		return nil, ErrItemNotFound
	}

	data := map[string]string{}
	if d, ok := out.Item["Data"].(*types.AttributeValueMemberM); ok {
		for k, v := range d.Value {
			if s, ok := v.(*types.AttributeValueMemberS); ok {
				data[k] = s.Value
			}
		}
	}

	return data, nil
}

func (c *DynamoImpl) PutItem(ctx context.Context, table, id string, data map[string]string) error {
	c.log.Debug("Writing item", "table", table, "id", id)

	values := map[string]types.AttributeValue{}
	for k, v := range data {
		values[k] = &types.AttributeValueMemberS{Value: v}
	}

	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item: map[string]types.AttributeValue{
			"Id":   &types.AttributeValueMemberS{Value: id},
			"Data": &types.AttributeValueMemberM{Value: values},
		},
	})
	if err != nil {
		return fmt.Errorf("unable to write item %s to table %s: %w", id, table, err)
	}

	return nil
}
