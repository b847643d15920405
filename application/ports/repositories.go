package ports

import (
	"context"
	"time"

	"taskgraph/domain/core/entities"
	"taskgraph/domain/events"
)

// NodeRepository defines the interface for node persistence.
// This is a port in hexagonal architecture - the application layer doesn't
// know about the implementation.
//
// Reads may be served from a local snapshot cache rather than a live round
// trip; callers must tolerate staleness (a read immediately after a write is
// not guaranteed to observe that write).
type NodeRepository interface {
	// CreateNode persists a new node and returns its store-assigned ID.
	CreateNode(ctx context.Context, node *entities.Node) (string, error)

	// GetByID retrieves a single node by its ID.
	GetByID(ctx context.Context, id string) (*entities.Node, error)

	// GetByName retrieves nodes by exact name match. Name uniqueness is a
	// soft invariant, so zero, one, or more matches are all legitimate.
	GetByName(ctx context.Context, name string) ([]entities.Node, error)

	// GetByIDs retrieves the nodes whose IDs appear in the given set.
	GetByIDs(ctx context.Context, ids []string) ([]entities.Node, error)

	// GetByType retrieves all nodes of a single type.
	GetByType(ctx context.Context, nodeType entities.NodeType) ([]entities.Node, error)

	// UpdateFields merges a partial update into a node, always refreshing
	// UpdatedAt.
	UpdateFields(ctx context.Context, id string, update entities.NodeUpdate) error

	// GetAll retrieves a full snapshot of the nodes collection.
	GetAll(ctx context.Context) ([]entities.Node, error)
}

// JunctionQuery selects junctions by endpoint and payload predicates.
// Zero-valued fields are not filtered on.
type JunctionQuery struct {
	ParentID        string
	ChildID         string
	ParentType      entities.NodeType
	ChildType       entities.NodeType
	EquivalencyOnly bool
	IncludeArchived bool
}

// JunctionRepository defines the interface for junction persistence.
// The same staleness caveat as NodeRepository applies to reads.
type JunctionRepository interface {
	// Create persists a new junction and returns its store-assigned ID.
	Create(ctx context.Context, junction *entities.Junction) (string, error)

	// Query retrieves junctions matching the given predicates.
	Query(ctx context.Context, query JunctionQuery) ([]entities.Junction, error)

	// Archive soft-deletes a junction by setting its archived marker.
	Archive(ctx context.Context, id string) error

	// GetAll retrieves a full snapshot of the junctions collection,
	// archived junctions included.
	GetAll(ctx context.Context) ([]entities.Junction, error)
}

// Clock abstracts time for createdAt/updatedAt stamping and recency sorts.
type Clock interface {
	Now() time.Time
}

// Embedder produces semantic vectors for text. The computation runs on a
// dedicated worker; Embed blocks until the one-shot request completes.
type Embedder interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelVersion identifies the model producing vectors, used for
	// staleness detection against stored embeddings.
	ModelVersion() string

	// Dim returns the fixed vector dimensionality.
	Dim() int
}

// EventPublisher defines the interface for publishing domain events.
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// MetricsPublisher reports operational metrics such as the junction health
// score to an external monitoring backend.
type MetricsPublisher interface {
	PublishHealthScore(ctx context.Context, score int, totalJunctions, errors, warnings int) error
}
