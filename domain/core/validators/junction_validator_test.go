package validators

import (
	"testing"
	"time"

	"taskgraph/domain/core/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func makeNode(id, name string, nodeType entities.NodeType) entities.Node {
	return entities.Node{
		ID:        id,
		Name:      name,
		Type:      nodeType,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

func makeJunction(id, parentID, childID string, parentType, childType entities.NodeType) entities.Junction {
	return entities.Junction{
		ID:         id,
		ParentID:   parentID,
		ChildID:    childID,
		ParentType: parentType,
		ChildType:  childType,
		CreatedAt:  testTime,
	}
}

func TestValidate_CleanGraph(t *testing.T) {
	validator := NewJunctionValidator()

	nodes := []entities.Node{
		makeNode("tag-1", "work", entities.NodeTypeTag),
		makeNode("task-1", "write report", entities.NodeTypeTask),
	}
	junctions := []entities.Junction{
		makeJunction("j-1", "tag-1", "task-1", entities.NodeTypeTag, entities.NodeTypeTask),
	}

	result := validator.Validate(junctions, nodes)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 100, result.Statistics.HealthScore)
	assert.Equal(t, 1, result.Statistics.TotalJunctions)
	assert.Equal(t, 1, result.Statistics.ByRelationType["tag->task"])
}

func TestValidate_EmptySnapshot(t *testing.T) {
	validator := NewJunctionValidator()

	result := validator.Validate(nil, nil)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 100, result.Statistics.HealthScore)
	assert.Equal(t, 0, result.Statistics.TotalJunctions)
}

func TestValidate_MissingFields(t *testing.T) {
	validator := NewJunctionValidator()

	// Every required field absent: one error per field.
	junctions := []entities.Junction{{ID: "j-1"}}

	result := validator.Validate(junctions, nil)

	assert.False(t, result.IsValid)

	var missingFields []string
	for _, e := range result.Errors {
		if e.Type == ErrorMissingField {
			missingFields = append(missingFields, e.Details["field"].(string))
		}
	}
	assert.ElementsMatch(t, []string{"parentId", "childId", "parentType", "childType", "createdAt"}, missingFields)
}

func TestValidate_JunctionWithoutIDReportedAsUnknown(t *testing.T) {
	validator := NewJunctionValidator()

	junctions := []entities.Junction{
		{ParentID: "tag-1", ChildID: "task-1", ParentType: entities.NodeTypeTag, ChildType: entities.NodeTypeTask, CreatedAt: testTime},
	}

	result := validator.Validate(junctions, nil)

	require.NotEmpty(t, result.Errors)
	for _, e := range result.Errors {
		assert.Equal(t, "unknown", e.JunctionID)
	}
}

func TestValidate_InvalidTypeCombinations(t *testing.T) {
	validator := NewJunctionValidator()

	nodes := []entities.Node{
		makeNode("task-1", "a", entities.NodeTypeTask),
		makeNode("task-2", "b", entities.NodeTypeTask),
		makeNode("tag-1", "t", entities.NodeTypeTag),
	}

	cases := []struct {
		name        string
		parentID    string
		childID     string
		parentType  entities.NodeType
		childType   entities.NodeType
		combination string
	}{
		{"task to task", "task-1", "task-2", entities.NodeTypeTask, entities.NodeTypeTask, "task->task"},
		{"task to tag", "task-1", "tag-1", entities.NodeTypeTask, entities.NodeTypeTag, "task->tag"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			junctions := []entities.Junction{
				makeJunction("j-1", tc.parentID, tc.childID, tc.parentType, tc.childType),
			}

			result := validator.Validate(junctions, nodes)

			assert.False(t, result.IsValid)
			found := false
			for _, e := range result.Errors {
				if e.Type == ErrorInvalidType {
					found = true
					assert.Equal(t, tc.combination, e.Details["combination"])
				}
			}
			assert.True(t, found, "expected invalid_type error")
		})
	}
}

func TestValidate_TagToTagAllowed(t *testing.T) {
	validator := NewJunctionValidator()

	nodes := []entities.Node{
		makeNode("tag-1", "home", entities.NodeTypeTag),
		makeNode("tag-2", "house", entities.NodeTypeTag),
	}
	junctions := []entities.Junction{
		makeJunction("j-1", "tag-1", "tag-2", entities.NodeTypeTag, entities.NodeTypeTag),
	}

	result := validator.Validate(junctions, nodes)

	assert.True(t, result.IsValid)
}

func TestValidate_EquivalencyStructure(t *testing.T) {
	validator := NewJunctionValidator()

	nodes := []entities.Node{
		makeNode("tag-1", "home", entities.NodeTypeTag),
		makeNode("tag-2", "house", entities.NodeTypeTag),
		makeNode("task-1", "clean", entities.NodeTypeTask),
	}

	t.Run("equivalency without details", func(t *testing.T) {
		j := makeJunction("j-1", "tag-1", "tag-2", entities.NodeTypeTag, entities.NodeTypeTag)
		j.JunctionType = &entities.JunctionType{Type: entities.JunctionTypeEquivalency}

		result := validator.Validate([]entities.Junction{j}, nodes)

		assert.False(t, result.IsValid)
		assert.Contains(t, result.Errors[0].Message, "details")
	})

	t.Run("equivalency between tag and task", func(t *testing.T) {
		j := makeJunction("j-1", "tag-1", "task-1", entities.NodeTypeTag, entities.NodeTypeTask)
		j.JunctionType = &entities.JunctionType{
			Type:    entities.JunctionTypeEquivalency,
			Details: &entities.EquivalencyDetails{DisplayName: "x"},
		}

		result := validator.Validate([]entities.Junction{j}, nodes)

		assert.False(t, result.IsValid)
		found := false
		for _, e := range result.Errors {
			if e.Type == ErrorInvalidType && e.Message == "equivalency junctions must be between tags (tag->tag)" {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("junction type without type field", func(t *testing.T) {
		j := makeJunction("j-1", "tag-1", "tag-2", entities.NodeTypeTag, entities.NodeTypeTag)
		j.JunctionType = &entities.JunctionType{}

		result := validator.Validate([]entities.Junction{j}, nodes)

		assert.False(t, result.IsValid)
	})
}

func TestValidate_OrphanedBothSidesYieldsTwoErrors(t *testing.T) {
	validator := NewJunctionValidator()

	junctions := []entities.Junction{
		makeJunction("j-1", "ghost-parent", "ghost-child", entities.NodeTypeTag, entities.NodeTypeTask),
	}

	result := validator.Validate(junctions, nil)

	orphans := 0
	sides := map[string]string{}
	for _, e := range result.Errors {
		if e.Type == ErrorOrphanedJunction {
			orphans++
			sides[e.Details["side"].(string)] = e.Details["missingNodeId"].(string)
		}
	}
	assert.Equal(t, 2, orphans)
	assert.Equal(t, "ghost-parent", sides["parent"])
	assert.Equal(t, "ghost-child", sides["child"])
}

func TestValidate_TypeMismatchOnlyWhenResolved(t *testing.T) {
	validator := NewJunctionValidator()

	// The parent resolves but its actual type contradicts the declaration;
	// the child does not resolve at all.
	nodes := []entities.Node{
		makeNode("node-1", "actually a task", entities.NodeTypeTask),
	}
	junctions := []entities.Junction{
		makeJunction("j-1", "node-1", "ghost", entities.NodeTypeTag, entities.NodeTypeTask),
	}

	result := validator.Validate(junctions, nodes)

	mismatches := 0
	orphans := 0
	for _, e := range result.Errors {
		switch e.Type {
		case ErrorTypeMismatch:
			mismatches++
			assert.Equal(t, "tag", e.Details["declaredType"])
			assert.Equal(t, "task", e.Details["actualType"])
		case ErrorOrphanedJunction:
			orphans++
		}
	}
	// One mismatch for the resolved parent, one orphan for the missing
	// child, and never a mismatch for an unresolved endpoint.
	assert.Equal(t, 1, mismatches)
	assert.Equal(t, 1, orphans)
}

func TestValidate_DuplicatesWarnPerMember(t *testing.T) {
	validator := NewJunctionValidator()

	nodes := []entities.Node{
		makeNode("tag-1", "work", entities.NodeTypeTag),
		makeNode("task-1", "report", entities.NodeTypeTask),
	}
	junctions := []entities.Junction{
		makeJunction("j-1", "tag-1", "task-1", entities.NodeTypeTag, entities.NodeTypeTask),
		makeJunction("j-2", "tag-1", "task-1", entities.NodeTypeTag, entities.NodeTypeTask),
		makeJunction("j-3", "tag-1", "task-1", entities.NodeTypeTag, entities.NodeTypeTask),
	}

	result := validator.Validate(junctions, nodes)

	// Duplicates are warnings, not errors.
	assert.True(t, result.IsValid)
	require.Len(t, result.Warnings, 3)
	for _, w := range result.Warnings {
		assert.Equal(t, WarningDuplicateJunction, w.Type)
		assert.Equal(t, 3, w.Details["totalDuplicates"])
		assert.ElementsMatch(t, []string{"j-1", "j-2", "j-3"}, w.Details["allJunctionIds"])
	}
}

func TestValidate_ReversedDirectionIsNotDuplicate(t *testing.T) {
	validator := NewJunctionValidator()

	nodes := []entities.Node{
		makeNode("tag-1", "home", entities.NodeTypeTag),
		makeNode("tag-2", "house", entities.NodeTypeTag),
	}
	junctions := []entities.Junction{
		makeJunction("j-1", "tag-1", "tag-2", entities.NodeTypeTag, entities.NodeTypeTag),
		makeJunction("j-2", "tag-2", "tag-1", entities.NodeTypeTag, entities.NodeTypeTag),
	}

	result := validator.Validate(junctions, nodes)

	assert.Empty(t, result.Warnings)
}

func TestHealthScore(t *testing.T) {
	validator := NewJunctionValidator()

	t.Run("single orphan on single junction floors the score", func(t *testing.T) {
		nodes := []entities.Node{
			makeNode("tag-1", "work", entities.NodeTypeTag),
		}
		junctions := []entities.Junction{
			makeJunction("j-1", "tag-1", "ghost", entities.NodeTypeTag, entities.NodeTypeTask),
		}

		result := validator.Validate(junctions, nodes)

		// Issue ratio 1.0 zeroes the base, the critical penalty keeps it
		// clamped at zero.
		assert.Equal(t, 0, result.Statistics.HealthScore)
	})

	t.Run("warnings weigh half", func(t *testing.T) {
		nodes := []entities.Node{
			makeNode("tag-1", "work", entities.NodeTypeTag),
			makeNode("task-1", "report", entities.NodeTypeTask),
		}
		// 10 junctions all duplicating the same pair: one warning per
		// member, zero errors.
		junctions := []entities.Junction{
			makeJunction("j-1", "tag-1", "task-1", entities.NodeTypeTag, entities.NodeTypeTask),
			makeJunction("j-2", "tag-1", "task-1", entities.NodeTypeTag, entities.NodeTypeTask),
		}
		for i := 0; i < 8; i++ {
			junctions = append(junctions,
				makeJunction(string(rune('a'+i)), "tag-1", "task-1", entities.NodeTypeTag, entities.NodeTypeTask))
		}

		result := validator.Validate(junctions, nodes)

		// 10 warnings * 0.5 / 10 junctions = ratio 0.5, base 50, no
		// critical penalty.
		assert.Equal(t, 50, result.Statistics.HealthScore)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		nodes := []entities.Node{
			makeNode("tag-1", "work", entities.NodeTypeTag),
		}
		junctions := []entities.Junction{
			makeJunction("j-1", "tag-1", "ghost", entities.NodeTypeTag, entities.NodeTypeTask),
			makeJunction("j-2", "tag-1", "ghost", entities.NodeTypeTag, entities.NodeTypeTask),
		}

		first := validator.Validate(junctions, nodes)
		second := validator.Validate(junctions, nodes)

		assert.Equal(t, first.Statistics.HealthScore, second.Statistics.HealthScore)
		assert.Equal(t, len(first.Errors), len(second.Errors))
	})
}

func TestValidate_Statistics(t *testing.T) {
	validator := NewJunctionValidator()

	nodes := []entities.Node{
		makeNode("tag-1", "home", entities.NodeTypeTag),
		makeNode("tag-2", "house", entities.NodeTypeTag),
		makeNode("task-1", "clean", entities.NodeTypeTask),
	}

	equivalency := makeJunction("j-2", "tag-1", "tag-2", entities.NodeTypeTag, entities.NodeTypeTag)
	equivalency.JunctionType = &entities.JunctionType{
		Type:    entities.JunctionTypeEquivalency,
		Details: &entities.EquivalencyDetails{UseOriginalName: true},
	}

	junctions := []entities.Junction{
		makeJunction("j-1", "tag-1", "task-1", entities.NodeTypeTag, entities.NodeTypeTask),
		equivalency,
	}

	result := validator.Validate(junctions, nodes)

	assert.Equal(t, 2, result.Statistics.TotalJunctions)
	assert.Equal(t, 2, result.Statistics.ByParentType["tag"])
	assert.Equal(t, 1, result.Statistics.ByChildType["task"])
	assert.Equal(t, 1, result.Statistics.ByChildType["tag"])
	assert.Equal(t, 1, result.Statistics.ByRelationType["tag->task"])
	assert.Equal(t, 1, result.Statistics.ByRelationType["tag->tag"])
	assert.Equal(t, 1, result.Statistics.WithJunctionType)
	assert.Equal(t, 1, result.Statistics.EquivalencyJunctions)
}
