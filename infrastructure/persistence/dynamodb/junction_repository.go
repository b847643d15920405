package dynamodb

import (
	"context"
	"fmt"
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

// Single-table layout for junctions:
//
//	PK = JUNCTION#<id>       SK = METADATA
//	GSI1PK = PARENT#<pid>    GSI1SK = CHILD#<cid>    (edges by parent)
//	GSI2PK = CHILD#<cid>     GSI2SK = PARENT#<pid>   (edges by child)
const (
	junctionEntityType = "JUNCTION"
	junctionKeyPrefix  = "JUNCTION#"
	parentKeyPrefix    = "PARENT#"
	childKeyPrefix     = "CHILD#"
)

// JunctionRepository implements ports.JunctionRepository using DynamoDB
type JunctionRepository struct {
	client        *dynamodb.Client
	tableName     string
	nameIndexName string
	typeIndexName string
	logger        *zap.Logger
}

// NewJunctionRepository creates a new JunctionRepository
func NewJunctionRepository(client *dynamodb.Client, tableName, nameIndexName, typeIndexName string, logger *zap.Logger) ports.JunctionRepository {
	return &JunctionRepository{
		client:        client,
		tableName:     tableName,
		nameIndexName: nameIndexName,
		typeIndexName: typeIndexName,
		logger:        logger,
	}
}

// junctionItem represents the DynamoDB item structure for a junction
type junctionItem struct {
	PK              string `dynamodbav:"PK"`
	SK              string `dynamodbav:"SK"`
	GSI1PK          string `dynamodbav:"GSI1PK"`
	GSI1SK          string `dynamodbav:"GSI1SK"`
	GSI2PK          string `dynamodbav:"GSI2PK"`
	GSI2SK          string `dynamodbav:"GSI2SK"`
	EntityType      string `dynamodbav:"EntityType"`
	JunctionID      string `dynamodbav:"JunctionID"`
	ParentID        string `dynamodbav:"ParentID"`
	ChildID         string `dynamodbav:"ChildID"`
	ParentType      string `dynamodbav:"ParentType"`
	ChildType       string `dynamodbav:"ChildType"`
	CreatedAt       string `dynamodbav:"CreatedAt"`
	RelationType    string `dynamodbav:"RelationType,omitempty"`
	DisplayName     string `dynamodbav:"DisplayName,omitempty"`
	UseOriginalName bool   `dynamodbav:"UseOriginalName,omitempty"`
	Archived        bool   `dynamodbav:"Archived"`
}

func newJunctionItem(junction *entities.Junction) junctionItem {
	item := junctionItem{
		PK:         junctionKeyPrefix + junction.ID,
		SK:         metadataSK,
		GSI1PK:     parentKeyPrefix + junction.ParentID,
		GSI1SK:     childKeyPrefix + junction.ChildID,
		GSI2PK:     childKeyPrefix + junction.ChildID,
		GSI2SK:     parentKeyPrefix + junction.ParentID,
		EntityType: junctionEntityType,
		JunctionID: junction.ID,
		ParentID:   junction.ParentID,
		ChildID:    junction.ChildID,
		ParentType: string(junction.ParentType),
		ChildType:  string(junction.ChildType),
		CreatedAt:  junction.CreatedAt.Format(time.RFC3339Nano),
		Archived:   junction.Archived,
	}
	if junction.JunctionType != nil {
		item.RelationType = junction.JunctionType.Type
		if junction.JunctionType.Details != nil {
			item.DisplayName = junction.JunctionType.Details.DisplayName
			item.UseOriginalName = junction.JunctionType.Details.UseOriginalName
		}
	}
	return item
}

func (item *junctionItem) toJunction() entities.Junction {
	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	junction := entities.Junction{
		ID:         item.JunctionID,
		ParentID:   item.ParentID,
		ChildID:    item.ChildID,
		ParentType: entities.NodeType(item.ParentType),
		ChildType:  entities.NodeType(item.ChildType),
		CreatedAt:  createdAt,
		Archived:   item.Archived,
	}
	if item.RelationType != "" {
		junction.JunctionType = &entities.JunctionType{Type: item.RelationType}
		if item.RelationType == entities.JunctionTypeEquivalency {
			junction.JunctionType.Details = &entities.EquivalencyDetails{
				DisplayName:     item.DisplayName,
				UseOriginalName: item.UseOriginalName,
			}
		}
	}
	return junction
}

// Create persists a new junction and returns its store-assigned ID
func (r *JunctionRepository) Create(ctx context.Context, junction *entities.Junction) (string, error) {
	stored := *junction
	stored.ID = uuid.New().String()

	av, err := attributevalue.MarshalMap(newJunctionItem(&stored))
	if err != nil {
		return "", fmt.Errorf("failed to marshal junction: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		r.logger.Error("Failed to save junction to DynamoDB",
			zap.Error(err),
			zap.String("junctionID", stored.ID),
		)
		return "", fmt.Errorf("failed to save junction: %w", err)
	}

	r.logger.Debug("Junction saved to DynamoDB",
		zap.String("junctionID", stored.ID),
		zap.String("parentID", stored.ParentID),
		zap.String("childID", stored.ChildID),
	)

	return stored.ID, nil
}

// Query retrieves junctions matching the given predicates. An endpoint ID
// narrows the read to one index partition; without one the whole junction
// set is scanned. Predicates not covered by the index key are applied in
// memory.
func (r *JunctionRepository) Query(ctx context.Context, query ports.JunctionQuery) ([]entities.Junction, error) {
	var raw []map[string]types.AttributeValue
	var err error

	switch {
	case query.ParentID != "":
		raw, err = r.queryIndex(ctx, r.nameIndexName, "GSI1PK", parentKeyPrefix+query.ParentID)
	case query.ChildID != "":
		raw, err = r.queryIndex(ctx, r.typeIndexName, "GSI2PK", childKeyPrefix+query.ChildID)
	default:
		raw, err = r.scanAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	junctions := make([]entities.Junction, 0, len(raw))
	for _, rawItem := range raw {
		var item junctionItem
		if err := attributevalue.UnmarshalMap(rawItem, &item); err != nil {
			r.logger.Warn("Failed to unmarshal junction item", zap.Error(err))
			continue
		}
		junction := item.toJunction()
		if matchesQuery(&junction, query) {
			junctions = append(junctions, junction)
		}
	}

	return junctions, nil
}

func matchesQuery(j *entities.Junction, q ports.JunctionQuery) bool {
	if q.ParentID != "" && j.ParentID != q.ParentID {
		return false
	}
	if q.ChildID != "" && j.ChildID != q.ChildID {
		return false
	}
	if q.ParentType != "" && j.ParentType != q.ParentType {
		return false
	}
	if q.ChildType != "" && j.ChildType != q.ChildType {
		return false
	}
	if q.EquivalencyOnly && !j.IsEquivalency() {
		return false
	}
	if !q.IncludeArchived && j.Archived {
		return false
	}
	return true
}

func (r *JunctionRepository) queryIndex(ctx context.Context, indexName, keyName, keyValue string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexName),
		KeyConditionExpression: aws.String(keyName + " = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keyValue},
		},
	}

	items := []map[string]types.AttributeValue{}
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query junctions: %w", err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (r *JunctionRepository) scanAll(ctx context.Context) ([]map[string]types.AttributeValue, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Equal(expression.Name("EntityType"), expression.Value(junctionEntityType))).
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

	items := []map[string]types.AttributeValue{}
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan junctions: %w", err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// Archive soft-deletes a junction. The item stays in place so historical
// reads and the integrity checker still see it.
func (r *JunctionRepository) Archive(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("junction id is required")
	}

	expr, err := expression.NewBuilder().
		WithUpdate(expression.Set(expression.Name("Archived"), expression.Value(true))).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build archive expression: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: junctionKeyPrefix + id},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	if _, err := r.client.UpdateItem(ctx, input); err != nil {
		r.logger.Error("Failed to archive junction",
			zap.Error(err),
			zap.String("junctionID", id),
		)
		return fmt.Errorf("failed to archive junction: %w", err)
	}

	return nil
}

// GetAll retrieves a full snapshot of the junctions collection, archived
// junctions included.
func (r *JunctionRepository) GetAll(ctx context.Context) ([]entities.Junction, error) {
	raw, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}

	junctions := make([]entities.Junction, 0, len(raw))
	for _, rawItem := range raw {
		var item junctionItem
		if err := attributevalue.UnmarshalMap(rawItem, &item); err != nil {
			r.logger.Warn("Failed to unmarshal junction item", zap.Error(err))
			continue
		}
		junctions = append(junctions, item.toJunction())
	}

	return junctions, nil
}
