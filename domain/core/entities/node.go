package entities

import (
	"strings"
	"time"

	pkgerrors "taskgraph/pkg/errors"
)

// NodeType discriminates the two node variants stored in the nodes collection.
type NodeType string

const (
	NodeTypeTask NodeType = "task"
	NodeTypeTag  NodeType = "tag"
)

// IsValid reports whether the type is one of the known variants.
func (t NodeType) IsValid() bool {
	return t == NodeTypeTask || t == NodeTypeTag
}

// Node is a vertex in the task/tag graph. The ID is assigned by the store on
// creation and is empty before the node has been persisted.
//
// Completed and Archived are meaningful only when Type is NodeTypeTask; they
// stay at their zero values for tags.
type Node struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Type      NodeType  `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Embedding is the cached semantic vector for Name, tagged with the
	// model version that produced it so staleness can be detected.
	Embedding             []float32 `json:"embedding,omitempty"`
	EmbeddingModelVersion string    `json:"embeddingModelVersion,omitempty"`

	Completed bool `json:"completed,omitempty"`
	Archived  bool `json:"archived,omitempty"`
}

// NewTask creates an unpersisted task node. The name must be non-blank.
func NewTask(name string, now time.Time) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("task name cannot be empty")
	}

	return &Node{
		Name:      name,
		Type:      NodeTypeTask,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewTag creates an unpersisted tag node. The name must be non-blank.
func NewTag(name string, now time.Time) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("tag name cannot be empty")
	}

	return &Node{
		Name:      name,
		Type:      NodeTypeTag,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsTask reports whether the node is a task.
func (n *Node) IsTask() bool {
	return n.Type == NodeTypeTask
}

// IsTag reports whether the node is a tag.
func (n *Node) IsTag() bool {
	return n.Type == NodeTypeTag
}

// HasEmbedding reports whether the node carries a cached embedding vector
// together with the version tag of the model that produced it.
func (n *Node) HasEmbedding() bool {
	return len(n.Embedding) > 0 && n.EmbeddingModelVersion != ""
}

// NodeUpdate is a partial-field update applied to a persisted node.
// Nil fields are left untouched; the store always refreshes UpdatedAt.
type NodeUpdate struct {
	Name                  *string
	Completed             *bool
	Archived              *bool
	Embedding             []float32
	EmbeddingModelVersion *string
}

// TaskWithSource annotates a task with the tag through which it was found
// during equivalency expansion.
type TaskWithSource struct {
	Node
	SourceTagID   string `json:"sourceTagId"`
	SourceTagName string `json:"sourceTagName"`
	IsEquivalent  bool   `json:"isEquivalent"`
}
