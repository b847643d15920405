package entities

import (
	"time"

	pkgerrors "taskgraph/pkg/errors"
)

// JunctionTypeEquivalency is the only typed-junction variant currently in use.
const JunctionTypeEquivalency = "equivalency"

// RelationKey renders a (parentType, childType) pair the way the validator
// and statistics report it, e.g. "tag->task".
func RelationKey(parentType, childType NodeType) string {
	return string(parentType) + "->" + string(childType)
}

// ValidCombination reports whether a (parentType, childType) pair is allowed.
// Tasks can never be parents; the only legal edges are tag->task and tag->tag.
func ValidCombination(parentType, childType NodeType) bool {
	return parentType == NodeTypeTag && (childType == NodeTypeTask || childType == NodeTypeTag)
}

// EquivalencyDetails carries the display configuration of an equivalency
// junction. When UseOriginalName is set, each tag keeps its own name
// regardless of DisplayName.
type EquivalencyDetails struct {
	DisplayName     string `json:"displayName,omitempty"`
	UseOriginalName bool   `json:"useOriginalName,omitempty"`
}

// JunctionType is the optional tagged payload on a junction.
type JunctionType struct {
	Type    string              `json:"type"`
	Details *EquivalencyDetails `json:"details,omitempty"`
}

// Junction is a directed, typed edge between two nodes. ParentType and
// ChildType are declared redundantly rather than derived, so they can drift
// from the referenced nodes' actual types; the junction validator detects
// that drift.
//
// Junctions are never hard-deleted: removal sets Archived.
type Junction struct {
	ID           string        `json:"id,omitempty"`
	ParentID     string        `json:"parentId"`
	ChildID      string        `json:"childId"`
	ParentType   NodeType      `json:"parentType"`
	ChildType    NodeType      `json:"childType"`
	CreatedAt    time.Time     `json:"createdAt"`
	JunctionType *JunctionType `json:"junctionType,omitempty"`
	Archived     bool          `json:"archived,omitempty"`
}

// NewJunction creates an unpersisted plain junction between two nodes.
func NewJunction(parentID, childID string, parentType, childType NodeType, now time.Time) (*Junction, error) {
	if parentID == "" || childID == "" {
		return nil, pkgerrors.NewValidationError("junction endpoints cannot be empty")
	}

	return &Junction{
		ParentID:   parentID,
		ChildID:    childID,
		ParentType: parentType,
		ChildType:  childType,
		CreatedAt:  now,
	}, nil
}

// NewEquivalency creates an unpersisted tag->tag equivalency junction.
// The master tag is the parent, the linked tag the child, but the relation
// is treated as symmetric by readers.
func NewEquivalency(masterTagID, linkedTagID, displayName string, useOriginalName bool, now time.Time) (*Junction, error) {
	j, err := NewJunction(masterTagID, linkedTagID, NodeTypeTag, NodeTypeTag, now)
	if err != nil {
		return nil, err
	}

	j.JunctionType = &JunctionType{
		Type: JunctionTypeEquivalency,
		Details: &EquivalencyDetails{
			DisplayName:     displayName,
			UseOriginalName: useOriginalName,
		},
	}
	return j, nil
}

// IsEquivalency reports whether the junction carries an equivalency payload.
func (j *Junction) IsEquivalency() bool {
	return j.JunctionType != nil && j.JunctionType.Type == JunctionTypeEquivalency
}

// OtherEndpoint returns the endpoint of the junction that is not nodeID.
// Used when walking symmetric equivalency relations.
func (j *Junction) OtherEndpoint(nodeID string) string {
	if j.ParentID == nodeID {
		return j.ChildID
	}
	return j.ParentID
}
