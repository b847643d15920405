package validators

import (
	"fmt"
	"math"

	"taskgraph/domain/config"
	"taskgraph/domain/core/entities"
)

// ErrorType classifies integrity violations found in the junction set.
type ErrorType string

const (
	ErrorMissingField     ErrorType = "missing_field"
	ErrorInvalidType      ErrorType = "invalid_type"
	ErrorOrphanedJunction ErrorType = "orphaned_junction"
	ErrorTypeMismatch     ErrorType = "type_mismatch"
)

// WarningType classifies non-fatal findings.
type WarningType string

const (
	WarningDuplicateJunction WarningType = "duplicate_junction"
)

// ValidationError is a single integrity violation attributed to a junction.
type ValidationError struct {
	Type       ErrorType              `json:"type"`
	JunctionID string                 `json:"junctionId"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// ValidationWarning is a non-fatal finding attributed to a junction.
type ValidationWarning struct {
	Type       WarningType            `json:"type"`
	JunctionID string                 `json:"junctionId,omitempty"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Statistics summarizes the junction set regardless of validation outcome.
type Statistics struct {
	TotalJunctions       int            `json:"totalJunctions"`
	ByParentType         map[string]int `json:"byParentType"`
	ByChildType          map[string]int `json:"byChildType"`
	ByRelationType       map[string]int `json:"byRelationType"`
	WithJunctionType     int            `json:"withJunctionType"`
	EquivalencyJunctions int            `json:"equivalencyJunctions"`
	HealthScore          int            `json:"healthScore"`
}

// Result is the structured report of a full-snapshot validation pass.
// IsValid is true iff no errors were found; warnings never affect validity.
type Result struct {
	IsValid    bool                `json:"isValid"`
	Errors     []ValidationError   `json:"errors"`
	Warnings   []ValidationWarning `json:"warnings"`
	Statistics Statistics          `json:"statistics"`
}

// JunctionValidator batch-checks referential and structural integrity across
// a full snapshot of nodes and junctions. It is stateless; every violation is
// reported in the Result rather than returned as an error.
type JunctionValidator struct {
	criticalErrorPenalty float64
	warningWeight        float64
}

// NewJunctionValidator creates a validator with the default scoring weights.
func NewJunctionValidator() *JunctionValidator {
	return NewJunctionValidatorWithConfig(nil)
}

// NewJunctionValidatorWithConfig creates a validator with scoring weights
// taken from the domain configuration.
func NewJunctionValidatorWithConfig(cfg *config.DomainConfig) *JunctionValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &JunctionValidator{
		criticalErrorPenalty: cfg.CriticalErrorPenalty,
		warningWeight:        cfg.WarningWeight,
	}
}

// Validate runs every check over the snapshot and computes statistics and the
// health score. A panic in any check degrades to a zeroed statistics object
// plus a single synthetic error carrying the failure message.
func (v *JunctionValidator) Validate(junctions []entities.Junction, nodes []entities.Node) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				IsValid: false,
				Errors: []ValidationError{{
					Type:       ErrorMissingField,
					JunctionID: "unknown",
					Message:    fmt.Sprintf("validation failed: %v", r),
				}},
				Warnings:   []ValidationWarning{},
				Statistics: emptyStatistics(),
			}
		}
	}()

	result = Result{
		IsValid:    true,
		Errors:     []ValidationError{},
		Warnings:   []ValidationWarning{},
		Statistics: calculateStatistics(junctions),
	}

	nodeMap := make(map[string]entities.Node, len(nodes))
	for _, node := range nodes {
		if node.ID != "" {
			nodeMap[node.ID] = node
		}
	}

	v.checkRequiredFields(junctions, &result)
	v.checkTypeCombinations(junctions, &result)
	v.checkJunctionTypeStructure(junctions, &result)
	v.checkNodeReferences(junctions, nodeMap, &result)
	v.checkTypeConsistency(junctions, nodeMap, &result)
	v.findDuplicates(junctions, &result)

	result.Statistics.HealthScore = v.healthScore(&result)
	result.IsValid = len(result.Errors) == 0

	return result
}

// checkRequiredFields reports one missing_field error per absent field.
func (v *JunctionValidator) checkRequiredFields(junctions []entities.Junction, result *Result) {
	for i := range junctions {
		j := &junctions[i]

		missing := []string{}
		if j.ParentID == "" {
			missing = append(missing, "parentId")
		}
		if j.ChildID == "" {
			missing = append(missing, "childId")
		}
		if j.ParentType == "" {
			missing = append(missing, "parentType")
		}
		if j.ChildType == "" {
			missing = append(missing, "childType")
		}
		if j.CreatedAt.IsZero() {
			missing = append(missing, "createdAt")
		}

		for _, field := range missing {
			result.Errors = append(result.Errors, ValidationError{
				Type:       ErrorMissingField,
				JunctionID: junctionID(j),
				Message:    fmt.Sprintf("missing required field: %s", field),
				Details:    map[string]interface{}{"field": field},
			})
		}
	}
}

// checkTypeCombinations rejects every (parentType, childType) pair outside
// {tag->task, tag->tag}, which in particular forbids tasks as parents.
func (v *JunctionValidator) checkTypeCombinations(junctions []entities.Junction, result *Result) {
	for i := range junctions {
		j := &junctions[i]

		if !entities.ValidCombination(j.ParentType, j.ChildType) {
			combination := entities.RelationKey(j.ParentType, j.ChildType)
			result.Errors = append(result.Errors, ValidationError{
				Type:       ErrorInvalidType,
				JunctionID: junctionID(j),
				Message:    fmt.Sprintf("invalid type combination: %s", combination),
				Details:    map[string]interface{}{"combination": combination},
			})
		}
	}
}

func (v *JunctionValidator) checkJunctionTypeStructure(junctions []entities.Junction, result *Result) {
	for i := range junctions {
		j := &junctions[i]
		if j.JunctionType == nil {
			continue
		}

		if j.JunctionType.Type == "" {
			result.Errors = append(result.Errors, ValidationError{
				Type:       ErrorInvalidType,
				JunctionID: junctionID(j),
				Message:    "junctionType.type is required when junctionType is present",
			})
		}

		if j.JunctionType.Type == entities.JunctionTypeEquivalency {
			if j.JunctionType.Details == nil {
				result.Errors = append(result.Errors, ValidationError{
					Type:       ErrorInvalidType,
					JunctionID: junctionID(j),
					Message:    "junctionType.details is required for equivalency type",
				})
			}

			if j.ParentType != entities.NodeTypeTag || j.ChildType != entities.NodeTypeTag {
				result.Errors = append(result.Errors, ValidationError{
					Type:       ErrorInvalidType,
					JunctionID: junctionID(j),
					Message:    "equivalency junctions must be between tags (tag->tag)",
				})
			}
		}
	}
}

// checkNodeReferences reports one orphaned_junction error per missing side,
// so a junction with both endpoints unresolved yields two errors.
func (v *JunctionValidator) checkNodeReferences(junctions []entities.Junction, nodeMap map[string]entities.Node, result *Result) {
	for i := range junctions {
		j := &junctions[i]

		if _, ok := nodeMap[j.ParentID]; !ok {
			result.Errors = append(result.Errors, ValidationError{
				Type:       ErrorOrphanedJunction,
				JunctionID: junctionID(j),
				Message:    fmt.Sprintf("parent node not found: %s", j.ParentID),
				Details:    map[string]interface{}{"missingNodeId": j.ParentID, "side": "parent"},
			})
		}

		if _, ok := nodeMap[j.ChildID]; !ok {
			result.Errors = append(result.Errors, ValidationError{
				Type:       ErrorOrphanedJunction,
				JunctionID: junctionID(j),
				Message:    fmt.Sprintf("child node not found: %s", j.ChildID),
				Details:    map[string]interface{}{"missingNodeId": j.ChildID, "side": "child"},
			})
		}
	}
}

// checkTypeConsistency only fires for endpoints that resolve: an orphaned
// reference cannot also be a type mismatch for that side.
func (v *JunctionValidator) checkTypeConsistency(junctions []entities.Junction, nodeMap map[string]entities.Node, result *Result) {
	for i := range junctions {
		j := &junctions[i]

		if parent, ok := nodeMap[j.ParentID]; ok && parent.Type != j.ParentType {
			result.Errors = append(result.Errors, ValidationError{
				Type:       ErrorTypeMismatch,
				JunctionID: junctionID(j),
				Message: fmt.Sprintf("parent type mismatch: junction declares '%s' but node is '%s'",
					j.ParentType, parent.Type),
				Details: map[string]interface{}{
					"declaredType": string(j.ParentType),
					"actualType":   string(parent.Type),
					"nodeId":       j.ParentID,
				},
			})
		}

		if child, ok := nodeMap[j.ChildID]; ok && child.Type != j.ChildType {
			result.Errors = append(result.Errors, ValidationError{
				Type:       ErrorTypeMismatch,
				JunctionID: junctionID(j),
				Message: fmt.Sprintf("child type mismatch: junction declares '%s' but node is '%s'",
					j.ChildType, child.Type),
				Details: map[string]interface{}{
					"declaredType": string(j.ChildType),
					"actualType":   string(child.Type),
					"nodeId":       j.ChildID,
				},
			})
		}
	}
}

// findDuplicates groups junctions by (parentId, childId) and emits one
// warning per member of every group larger than one.
func (v *JunctionValidator) findDuplicates(junctions []entities.Junction, result *Result) {
	groups := make(map[string][]*entities.Junction)
	for i := range junctions {
		j := &junctions[i]
		key := j.ParentID + "->" + j.ChildID
		groups[key] = append(groups[key], j)
	}

	for relationship, group := range groups {
		if len(group) <= 1 {
			continue
		}

		ids := make([]string, 0, len(group))
		for _, j := range group {
			if j.ID != "" {
				ids = append(ids, j.ID)
			}
		}

		for _, j := range group {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Type:       WarningDuplicateJunction,
				JunctionID: junctionID(j),
				Message:    fmt.Sprintf("duplicate junction relationship: %s", relationship),
				Details: map[string]interface{}{
					"relationship":    relationship,
					"totalDuplicates": len(group),
					"allJunctionIds":  ids,
				},
			})
		}
	}
}

// healthScore derives a 0-100 integrity score from the issue density, with a
// stacking penalty for each orphaned_junction or type_mismatch error.
func (v *JunctionValidator) healthScore(result *Result) int {
	totalIssues := float64(len(result.Errors)) + float64(len(result.Warnings))*v.warningWeight
	totalJunctions := result.Statistics.TotalJunctions
	if totalJunctions < 1 {
		totalJunctions = 1
	}

	issueRatio := totalIssues / float64(totalJunctions)
	baseScore := math.Max(0, 100-issueRatio*100)

	critical := 0
	for _, e := range result.Errors {
		if e.Type == ErrorOrphanedJunction || e.Type == ErrorTypeMismatch {
			critical++
		}
	}

	score := math.Round(baseScore) - float64(critical)*v.criticalErrorPenalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score)
}

func calculateStatistics(junctions []entities.Junction) Statistics {
	stats := emptyStatistics()
	stats.TotalJunctions = len(junctions)

	for i := range junctions {
		j := &junctions[i]

		stats.ByParentType[string(j.ParentType)]++
		stats.ByChildType[string(j.ChildType)]++
		stats.ByRelationType[entities.RelationKey(j.ParentType, j.ChildType)]++

		if j.JunctionType != nil {
			stats.WithJunctionType++
			if j.JunctionType.Type == entities.JunctionTypeEquivalency {
				stats.EquivalencyJunctions++
			}
		}
	}

	return stats
}

func emptyStatistics() Statistics {
	return Statistics{
		ByParentType:   map[string]int{},
		ByChildType:    map[string]int{},
		ByRelationType: map[string]int{},
	}
}

func junctionID(j *entities.Junction) string {
	if j.ID == "" {
		return "unknown"
	}
	return j.ID
}
