package dynamodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskgraph/application/ports"
	"taskgraph/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Single-table layout for nodes:
//
//	PK = NODE#<id>        SK = METADATA
//	GSI1PK = NAME#<lower> GSI1SK = NODE#<id>   (exact-name lookups)
//	GSI2PK = TYPE#<type>  GSI2SK = NODE#<id>   (per-kind scans)
const (
	nodeEntityType = "NODE"
	nodeKeyPrefix  = "NODE#"
	nameKeyPrefix  = "NAME#"
	typeKeyPrefix  = "TYPE#"
	metadataSK     = "METADATA"
)

// batchGetLimit is DynamoDB's per-request cap on BatchGetItem keys.
const batchGetLimit = 100

// NodeRepository implements ports.NodeRepository using DynamoDB
type NodeRepository struct {
	client        *dynamodb.Client
	tableName     string
	nameIndexName string
	typeIndexName string
	logger        *zap.Logger
}

// NewNodeRepository creates a new NodeRepository
func NewNodeRepository(client *dynamodb.Client, tableName, nameIndexName, typeIndexName string, logger *zap.Logger) ports.NodeRepository {
	return &NodeRepository{
		client:        client,
		tableName:     tableName,
		nameIndexName: nameIndexName,
		typeIndexName: typeIndexName,
		logger:        logger,
	}
}

// nodeItem represents the DynamoDB item structure for a node
type nodeItem struct {
	PK                    string    `dynamodbav:"PK"`
	SK                    string    `dynamodbav:"SK"`
	GSI1PK                string    `dynamodbav:"GSI1PK"`
	GSI1SK                string    `dynamodbav:"GSI1SK"`
	GSI2PK                string    `dynamodbav:"GSI2PK"`
	GSI2SK                string    `dynamodbav:"GSI2SK"`
	EntityType            string    `dynamodbav:"EntityType"`
	NodeID                string    `dynamodbav:"NodeID"`
	Name                  string    `dynamodbav:"Name"`
	NodeType              string    `dynamodbav:"NodeType"`
	CreatedAt             string    `dynamodbav:"CreatedAt"`
	UpdatedAt             string    `dynamodbav:"UpdatedAt"`
	Embedding             []float32 `dynamodbav:"Embedding,omitempty"`
	EmbeddingModelVersion string    `dynamodbav:"EmbeddingModelVersion,omitempty"`
	Completed             bool      `dynamodbav:"Completed"`
	Archived              bool      `dynamodbav:"Archived"`
}

func newNodeItem(node *entities.Node) nodeItem {
	return nodeItem{
		PK:                    nodeKeyPrefix + node.ID,
		SK:                    metadataSK,
		GSI1PK:                nameKeyPrefix + strings.ToLower(node.Name),
		GSI1SK:                nodeKeyPrefix + node.ID,
		GSI2PK:                typeKeyPrefix + string(node.Type),
		GSI2SK:                nodeKeyPrefix + node.ID,
		EntityType:            nodeEntityType,
		NodeID:                node.ID,
		Name:                  node.Name,
		NodeType:              string(node.Type),
		CreatedAt:             node.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:             node.UpdatedAt.Format(time.RFC3339Nano),
		Embedding:             node.Embedding,
		EmbeddingModelVersion: node.EmbeddingModelVersion,
		Completed:             node.Completed,
		Archived:              node.Archived,
	}
}

func (item *nodeItem) toNode() entities.Node {
	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	return entities.Node{
		ID:                    item.NodeID,
		Name:                  item.Name,
		Type:                  entities.NodeType(item.NodeType),
		CreatedAt:             createdAt,
		UpdatedAt:             updatedAt,
		Embedding:             item.Embedding,
		EmbeddingModelVersion: item.EmbeddingModelVersion,
		Completed:             item.Completed,
		Archived:              item.Archived,
	}
}

// CreateNode persists a new node and returns its store-assigned ID
func (r *NodeRepository) CreateNode(ctx context.Context, node *entities.Node) (string, error) {
	stored := *node
	stored.ID = uuid.New().String()

	av, err := attributevalue.MarshalMap(newNodeItem(&stored))
	if err != nil {
		return "", fmt.Errorf("failed to marshal node: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		r.logger.Error("Failed to save node to DynamoDB",
			zap.Error(err),
			zap.String("nodeID", stored.ID),
		)
		return "", fmt.Errorf("failed to save node: %w", err)
	}

	r.logger.Debug("Node saved to DynamoDB",
		zap.String("nodeID", stored.ID),
		zap.String("type", string(stored.Type)),
	)

	return stored.ID, nil
}

// GetByID retrieves a single node by its ID. Returns nil without error when
// the node does not exist.
func (r *NodeRepository) GetByID(ctx context.Context, id string) (*entities.Node, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: nodeKeyPrefix + id},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item nodeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node: %w", err)
	}

	node := item.toNode()
	return &node, nil
}

// GetByName retrieves nodes by exact name match via GSI1. The match is
// case-insensitive on the index key and then confirmed exactly.
func (r *NodeRepository) GetByName(ctx context.Context, name string) ([]entities.Node, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.nameIndexName),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: nameKeyPrefix + strings.ToLower(name)},
		},
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes by name: %w", err)
	}

	nodes := make([]entities.Node, 0, len(result.Items))
	for _, raw := range result.Items {
		var item nodeItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal node item", zap.Error(err))
			continue
		}
		if item.Name != name {
			continue
		}
		nodes = append(nodes, item.toNode())
	}

	return nodes, nil
}

// GetByIDs retrieves the nodes whose IDs appear in the given set, batching
// reads at the DynamoDB limit. Missing IDs are silently absent from the
// result.
func (r *NodeRepository) GetByIDs(ctx context.Context, ids []string) ([]entities.Node, error) {
	if len(ids) == 0 {
		return []entities.Node{}, nil
	}

	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	nodes := make([]entities.Node, 0, len(unique))
	for start := 0; start < len(unique); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(unique) {
			end = len(unique)
		}

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range unique[start:end] {
			keys = append(keys, map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: nodeKeyPrefix + id},
				"SK": &types.AttributeValueMemberS{Value: metadataSK},
			})
		}

		requested := map[string]types.KeysAndAttributes{
			r.tableName: {Keys: keys},
		}

		// Unprocessed keys are retried until DynamoDB returns none.
		for len(requested) > 0 {
			result, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: requested,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to batch get nodes: %w", err)
			}

			for _, raw := range result.Responses[r.tableName] {
				var item nodeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					r.logger.Warn("Failed to unmarshal node item", zap.Error(err))
					continue
				}
				nodes = append(nodes, item.toNode())
			}

			requested = result.UnprocessedKeys
		}
	}

	return nodes, nil
}

// GetByType retrieves all nodes of a single type via GSI2.
func (r *NodeRepository) GetByType(ctx context.Context, nodeType entities.NodeType) ([]entities.Node, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.typeIndexName),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: typeKeyPrefix + string(nodeType)},
		},
	}

	nodes := []entities.Node{}
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query nodes by type: %w", err)
		}
		for _, raw := range page.Items {
			var item nodeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal node item", zap.Error(err))
				continue
			}
			nodes = append(nodes, item.toNode())
		}
	}

	return nodes, nil
}

// UpdateFields merges a partial update into a node, always refreshing
// UpdatedAt. Renames also rewrite the name-index key.
func (r *NodeRepository) UpdateFields(ctx context.Context, id string, update entities.NodeUpdate) error {
	if id == "" {
		return fmt.Errorf("node id is required")
	}

	set := expression.Set(
		expression.Name("UpdatedAt"),
		expression.Value(time.Now().UTC().Format(time.RFC3339Nano)),
	)

	if update.Name != nil {
		set = set.Set(expression.Name("Name"), expression.Value(*update.Name))
		set = set.Set(expression.Name("GSI1PK"), expression.Value(nameKeyPrefix+strings.ToLower(*update.Name)))
	}
	if update.Completed != nil {
		set = set.Set(expression.Name("Completed"), expression.Value(*update.Completed))
	}
	if update.Archived != nil {
		set = set.Set(expression.Name("Archived"), expression.Value(*update.Archived))
	}
	if update.Embedding != nil {
		set = set.Set(expression.Name("Embedding"), expression.Value(update.Embedding))
	}
	if update.EmbeddingModelVersion != nil {
		set = set.Set(expression.Name("EmbeddingModelVersion"), expression.Value(*update.EmbeddingModelVersion))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: nodeKeyPrefix + id},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	if _, err := r.client.UpdateItem(ctx, input); err != nil {
		r.logger.Error("Failed to update node",
			zap.Error(err),
			zap.String("nodeID", id),
		)
		return fmt.Errorf("failed to update node: %w", err)
	}

	return nil
}

// GetAll retrieves a full snapshot of the nodes collection via a filtered
// table scan.
func (r *NodeRepository) GetAll(ctx context.Context) ([]entities.Node, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Equal(expression.Name("EntityType"), expression.Value(nodeEntityType))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	nodes := []entities.Node{}
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nodes: %w", err)
		}
		for _, raw := range page.Items {
			var item nodeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal node item", zap.Error(err))
				continue
			}
			nodes = append(nodes, item.toNode())
		}
	}

	return nodes, nil
}
