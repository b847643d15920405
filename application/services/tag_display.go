package services

import (
	"context"
	"sort"

	"taskgraph/domain/core/entities"

	"go.uber.org/zap"
)

// GetTagDisplayName resolves the name a tag should render under. A tag in an
// equivalency set may surrender its own name to the set's display name. When
// a tag sits in several equivalency sets, the one with the smallest junction
// ID wins, so the result is stable across calls.
func (s *GraphService) GetTagDisplayName(ctx context.Context, tag *entities.Node) string {
	if tag == nil {
		return ""
	}
	if tag.ID == "" {
		// Not yet persisted, so it cannot be part of any equivalency.
		return tag.Name
	}

	equivalencies := s.GetTagEquivalencies(ctx, tag.ID)
	if len(equivalencies) == 0 {
		return tag.Name
	}

	sort.Slice(equivalencies, func(i, j int) bool {
		return equivalencies[i].ID < equivalencies[j].ID
	})

	name := DisplayNameFromEquivalency(&equivalencies[0], tag.Name)
	if name != tag.Name {
		s.logger.Debug("Tag renders under equivalency display name",
			zap.String("tagID", tag.ID),
			zap.String("ownName", tag.Name),
			zap.String("displayName", name),
		)
	}
	return name
}

// DisplayNameFromEquivalency applies one equivalency's naming rule to a
// tag's own name. UseOriginalName overrides the set's display name, and a
// junction without equivalency details changes nothing.
func DisplayNameFromEquivalency(junction *entities.Junction, ownName string) string {
	if junction == nil || junction.JunctionType == nil || junction.JunctionType.Details == nil {
		return ownName
	}
	details := junction.JunctionType.Details
	if details.UseOriginalName {
		return ownName
	}
	if details.DisplayName == "" {
		return ownName
	}
	return details.DisplayName
}
