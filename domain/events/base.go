package events

import (
	"time"
)

// SourceService identifies this service as the event source on the bus.
const SourceService = "taskgraph"

// DomainEvent is the base interface for all domain events.
// Events represent something that has happened in the past.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// NodeCreated is raised when a task or tag node is persisted.
type NodeCreated struct {
	BaseEvent
	NodeID   string `json:"node_id"`
	NodeType string `json:"node_type"`
	Name     string `json:"name"`
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(nodeID, nodeType, name string, timestamp time.Time) NodeCreated {
	return NodeCreated{
		BaseEvent: BaseEvent{
			AggregateID: nodeID,
			EventType:   "node.created",
			Timestamp:   timestamp,
		},
		NodeID:   nodeID,
		NodeType: nodeType,
		Name:     name,
	}
}

// JunctionCreated is raised when an edge between two nodes is persisted.
type JunctionCreated struct {
	BaseEvent
	JunctionID   string `json:"junction_id"`
	ParentID     string `json:"parent_id"`
	ChildID      string `json:"child_id"`
	RelationType string `json:"relation_type"`
	Equivalency  bool   `json:"equivalency"`
}

// NewJunctionCreated creates a JunctionCreated event
func NewJunctionCreated(junctionID, parentID, childID, relationType string, equivalency bool, timestamp time.Time) JunctionCreated {
	return JunctionCreated{
		BaseEvent: BaseEvent{
			AggregateID: junctionID,
			EventType:   "junction.created",
			Timestamp:   timestamp,
		},
		JunctionID:   junctionID,
		ParentID:     parentID,
		ChildID:      childID,
		RelationType: relationType,
		Equivalency:  equivalency,
	}
}

// EquivalencyRemoved is raised when an equivalency junction is archived.
type EquivalencyRemoved struct {
	BaseEvent
	JunctionID string `json:"junction_id"`
}

// NewEquivalencyRemoved creates an EquivalencyRemoved event
func NewEquivalencyRemoved(junctionID string, timestamp time.Time) EquivalencyRemoved {
	return EquivalencyRemoved{
		BaseEvent: BaseEvent{
			AggregateID: junctionID,
			EventType:   "equivalency.removed",
			Timestamp:   timestamp,
		},
		JunctionID: junctionID,
	}
}

// TaskUpdated is raised when task fields change (completion, archival, rename).
type TaskUpdated struct {
	BaseEvent
	TaskID string   `json:"task_id"`
	Fields []string `json:"fields"`
}

// NewTaskUpdated creates a TaskUpdated event
func NewTaskUpdated(taskID string, fields []string, timestamp time.Time) TaskUpdated {
	return TaskUpdated{
		BaseEvent: BaseEvent{
			AggregateID: taskID,
			EventType:   "task.updated",
			Timestamp:   timestamp,
		},
		TaskID: taskID,
		Fields: fields,
	}
}
