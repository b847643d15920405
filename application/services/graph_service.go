package services

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"taskgraph/application/ports"
	"taskgraph/domain/config"
	"taskgraph/domain/core/entities"
	"taskgraph/domain/events"

	"go.uber.org/zap"
)

// ChunkType discriminates the fragments of a composed task input.
type ChunkType string

const (
	ChunkText ChunkType = "text"
	ChunkTag  ChunkType = "tag"
)

// Chunk is one typed fragment of task input. A tag chunk's content starts
// with a marker character ('#' or '/') that is stripped before use.
type Chunk struct {
	Content string    `json:"content"`
	Type    ChunkType `json:"type"`
}

// Direction selects which side of a junction to search from.
type Direction string

const (
	DirectionParent Direction = "parent"
	DirectionChild  Direction = "child"
)

// GraphService resolves parent/child relations, tag-equivalency chains, and
// tag-to-task expansion over the node and junction collections.
//
// Library-level operations never fail for data-shape problems: input
// validation failures and missing dependencies are logged and produce empty
// results, so callers see "operation completed, possibly with nothing" and
// diagnose through logs or the junction validator's report.
type GraphService struct {
	nodes     ports.NodeRepository
	junctions ports.JunctionRepository
	clock     ports.Clock
	publisher ports.EventPublisher
	embedder  *EmbeddingService
	cfg       *config.DomainConfig
	logger    *zap.Logger
}

// NewGraphService creates a graph service. The publisher and embedder are
// optional; when present, node creation emits domain events and schedules
// background embedding generation.
func NewGraphService(
	nodes ports.NodeRepository,
	junctions ports.JunctionRepository,
	clock ports.Clock,
	publisher ports.EventPublisher,
	embedder *EmbeddingService,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *GraphService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &GraphService{
		nodes:     nodes,
		junctions: junctions,
		clock:     clock,
		publisher: publisher,
		embedder:  embedder,
		cfg:       cfg,
		logger:    logger,
	}
}

// AddTask assembles a task from typed input fragments and links it to every
// referenced tag, resolving or creating each tag node as needed. The
// multi-step sequence is not atomic: tags and junctions created before a
// failure persist, and failures surface only in logs. Returns the new task's
// ID, or "" when nothing was created.
func (s *GraphService) AddTask(ctx context.Context, chunks []Chunk) string {
	var name strings.Builder
	var tags []string

	for _, chunk := range chunks {
		switch chunk.Type {
		case ChunkTag:
			tags = append(tags, stripTagMarker(chunk.Content, s.cfg.TagMarkers))
		case ChunkText:
			name.WriteString(chunk.Content)
		}
	}

	taskName := strings.TrimSpace(name.String())
	if taskName == "" {
		s.logger.Warn("Task text empty, nothing to add")
		return ""
	}

	if s.nodes == nil || s.junctions == nil {
		s.logger.Error("Missing nodes or junctions collection")
		return ""
	}

	task := s.createNode(ctx, taskName, entities.NodeTypeTask)
	if task == nil {
		s.logger.Error("Failed to create task", zap.String("name", taskName))
		return ""
	}

	for _, tag := range tags {
		// The task was created in this same flow, so the existence check
		// for the task endpoint is skipped.
		s.AddTagToTask(ctx, tag, task.ID, false)
	}

	return task.ID
}

// AddTagToTask resolves or creates the named tag and links it to the task
// with a tag->task junction. When checkTaskExistence is set, the task
// endpoint is confirmed to exist before the edge is written.
func (s *GraphService) AddTagToTask(ctx context.Context, tagName, taskID string, checkTaskExistence bool) {
	if s.nodes == nil || s.junctions == nil {
		s.logger.Error("Missing nodes or junctions collection")
		return
	}

	matches, err := s.nodes.GetByName(ctx, tagName)
	if err != nil {
		s.logger.Error("Tag lookup failed", zap.String("tag", tagName), zap.Error(err))
		return
	}

	var tag *entities.Node
	// There should not be more than one tag with the same name, but name
	// uniqueness is a soft invariant and there might be no tag at all.
	if len(matches) == 0 {
		tag = s.createNode(ctx, tagName, entities.NodeTypeTag)
		if tag == nil {
			s.logger.Error("Failed to create tag", zap.String("tag", tagName))
			return
		}
		s.logger.Info("Created new tag", zap.String("tag", tagName), zap.String("tagID", tag.ID))
	} else {
		if len(matches) > 1 {
			s.logger.Warn("More than one identical tag found", zap.String("tag", tagName), zap.Int("count", len(matches)))
		}
		tag = &matches[0]
		s.logger.Debug("Using existing tag", zap.String("tag", tagName), zap.String("tagID", tag.ID))
	}

	// The tag is known to exist at this point; the task endpoint is only
	// re-checked when the caller did not just create it.
	junction := s.createJunction(ctx, tag.ID, taskID, entities.NodeTypeTag, entities.NodeTypeTask, checkTaskExistence)
	if junction == nil {
		s.logger.Error("Failed to create junction", zap.String("tag", tagName), zap.String("taskID", taskID))
		return
	}

	s.logger.Info("Linked tag to task",
		zap.String("tag", tagName),
		zap.String("taskID", taskID),
		zap.String("junctionID", junction.ID),
	)
}

// createNode persists a new task or tag node. Returns nil on blank names and
// persistence failures. Embedding generation for the new node is kicked off
// in the background; its failure never affects the creation.
func (s *GraphService) createNode(ctx context.Context, name string, nodeType entities.NodeType) *entities.Node {
	var node *entities.Node
	var err error

	now := s.clock.Now()
	if nodeType == entities.NodeTypeTask {
		node, err = entities.NewTask(name, now)
	} else {
		node, err = entities.NewTag(name, now)
	}
	if err != nil {
		s.logger.Warn("Node text empty", zap.String("type", string(nodeType)))
		return nil
	}

	id, err := s.nodes.CreateNode(ctx, node)
	if err != nil {
		s.logger.Error("Failed to persist node",
			zap.String("type", string(nodeType)),
			zap.String("name", name),
			zap.Error(err),
		)
		return nil
	}
	node.ID = id

	s.logger.Info("Node added to collection",
		zap.String("type", string(nodeType)),
		zap.String("name", name),
		zap.String("nodeID", id),
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewNodeCreated(id, string(nodeType), name, now)); err != nil {
			s.logger.Warn("Failed to publish node created event", zap.Error(err))
		}
	}

	if s.embedder != nil {
		go func(n entities.Node) {
			if err := s.embedder.GenerateAndStore(context.Background(), &n); err != nil {
				s.logger.Warn("Failed to generate embedding for new node",
					zap.String("name", n.Name),
					zap.Error(err),
				)
			}
		}(*node)
	}

	return node
}

// createJunction writes a directed edge between two nodes. When
// checkExistence is set, both endpoints must be confirmed to exist first.
func (s *GraphService) createJunction(ctx context.Context, parentID, childID string, parentType, childType entities.NodeType, checkExistence bool) *entities.Junction {
	if checkExistence {
		parent, perr := s.nodes.GetByID(ctx, parentID)
		child, cerr := s.nodes.GetByID(ctx, childID)
		if perr != nil || parent == nil || cerr != nil || child == nil {
			s.logger.Error("Junction endpoint does not exist",
				zap.String("parentID", parentID),
				zap.Bool("parentExists", parent != nil),
				zap.String("childID", childID),
				zap.Bool("childExists", child != nil),
			)
			return nil
		}
	}

	junction, err := entities.NewJunction(parentID, childID, parentType, childType, s.clock.Now())
	if err != nil {
		s.logger.Error("Invalid junction", zap.Error(err))
		return nil
	}

	id, err := s.junctions.Create(ctx, junction)
	if err != nil {
		s.logger.Error("Failed to persist junction",
			zap.String("parentID", parentID),
			zap.String("childID", childID),
			zap.Error(err),
		)
		return nil
	}
	junction.ID = id

	s.logger.Info("Created junction",
		zap.String("parentID", parentID),
		zap.String("childID", childID),
		zap.String("junctionID", id),
	)

	if s.publisher != nil {
		event := events.NewJunctionCreated(id, parentID, childID,
			entities.RelationKey(parentType, childType), junction.IsEquivalency(), junction.CreatedAt)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish junction created event", zap.Error(err))
		}
	}

	return junction
}

// GetRelations finds the nodes related to nodeID in the given direction,
// optionally narrowed to a target type. Junctions are matched on the side
// opposite the search direction, then the remaining endpoint IDs are
// resolved in one batched node read. Missing collections, a blank nodeID,
// and zero matches all produce an empty slice, never an error.
func (s *GraphService) GetRelations(ctx context.Context, nodeID string, direction Direction, targetType entities.NodeType) []entities.Node {
	if s.junctions == nil || s.nodes == nil {
		s.logger.Error("Missing junctions or nodes collection")
		return []entities.Node{}
	}

	if nodeID == "" {
		s.logger.Error("No node ID provided")
		return []entities.Node{}
	}

	query := ports.JunctionQuery{}
	if direction == DirectionParent {
		// Searching for parents: this node appears on the child side.
		query.ChildID = nodeID
		query.ParentType = targetType
	} else {
		query.ParentID = nodeID
		query.ChildType = targetType
	}

	matched, err := s.junctions.Query(ctx, query)
	if err != nil {
		s.logger.Error("Junction query failed", zap.String("nodeID", nodeID), zap.Error(err))
		return []entities.Node{}
	}

	targetIDs := make([]string, 0, len(matched))
	for i := range matched {
		if direction == DirectionParent {
			targetIDs = append(targetIDs, matched[i].ParentID)
		} else {
			targetIDs = append(targetIDs, matched[i].ChildID)
		}
	}

	if len(targetIDs) == 0 {
		s.logger.Debug("No relations found",
			zap.String("nodeID", nodeID),
			zap.String("direction", string(direction)),
			zap.String("targetType", string(targetType)),
		)
		return []entities.Node{}
	}

	related, err := s.nodes.GetByIDs(ctx, targetIDs)
	if err != nil {
		s.logger.Error("Node batch resolve failed", zap.String("nodeID", nodeID), zap.Error(err))
		return []entities.Node{}
	}

	return related
}

// GetTasksInTag returns the tasks directly linked under a tag.
func (s *GraphService) GetTasksInTag(ctx context.Context, tagID string) []entities.Node {
	return s.GetRelations(ctx, tagID, DirectionChild, entities.NodeTypeTask)
}

// GetTagsForTask returns the tags a task is filed under.
func (s *GraphService) GetTagsForTask(ctx context.Context, taskID string) []entities.Node {
	return s.GetRelations(ctx, taskID, DirectionParent, entities.NodeTypeTag)
}

// GetTasksInTagWithEquivalents expands a tag's task list through its
// equivalency set. The expansion is a single hop: tasks of tags equivalent
// to equivalents are not discovered. Tasks already collected keep their
// first attribution, so a task in both the source tag and an equivalent is
// attributed to the source. Results are sorted newest first.
func (s *GraphService) GetTasksInTagWithEquivalents(ctx context.Context, tagID string) []entities.TaskWithSource {
	if s.nodes == nil {
		s.logger.Error("Missing nodes collection")
		return []entities.TaskWithSource{}
	}

	currentTag, err := s.nodes.GetByID(ctx, tagID)
	if err != nil || currentTag == nil {
		s.logger.Error("Current tag not found", zap.String("tagID", tagID))
		return []entities.TaskWithSource{}
	}

	results := []entities.TaskWithSource{}
	seen := map[string]bool{}

	for _, task := range s.GetTasksInTag(ctx, tagID) {
		if seen[task.ID] {
			continue
		}
		seen[task.ID] = true
		results = append(results, entities.TaskWithSource{
			Node:          task,
			SourceTagID:   tagID,
			SourceTagName: currentTag.Name,
			IsEquivalent:  false,
		})
	}

	for _, equivalency := range s.GetTagEquivalencies(ctx, tagID) {
		otherTagID := equivalency.OtherEndpoint(tagID)

		otherTag, err := s.nodes.GetByID(ctx, otherTagID)
		if err != nil || otherTag == nil {
			continue
		}

		for _, task := range s.GetTasksInTag(ctx, otherTagID) {
			if seen[task.ID] {
				continue
			}
			seen[task.ID] = true
			results = append(results, entities.TaskWithSource{
				Node:          task,
				SourceTagID:   otherTagID,
				SourceTagName: otherTag.Name,
				IsEquivalent:  true,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	return results
}

// GetTagEquivalencies returns the unarchived equivalency junctions touching
// the tag on either side; the relation is symmetric.
func (s *GraphService) GetTagEquivalencies(ctx context.Context, tagID string) []entities.Junction {
	if s.junctions == nil {
		s.logger.Error("Missing junctions collection")
		return []entities.Junction{}
	}

	asMaster, err := s.junctions.Query(ctx, ports.JunctionQuery{
		ParentID:        tagID,
		ParentType:      entities.NodeTypeTag,
		ChildType:       entities.NodeTypeTag,
		EquivalencyOnly: true,
	})
	if err != nil {
		s.logger.Error("Equivalency query failed", zap.String("tagID", tagID), zap.Error(err))
		return []entities.Junction{}
	}

	asLinked, err := s.junctions.Query(ctx, ports.JunctionQuery{
		ChildID:         tagID,
		ParentType:      entities.NodeTypeTag,
		ChildType:       entities.NodeTypeTag,
		EquivalencyOnly: true,
	})
	if err != nil {
		s.logger.Error("Equivalency query failed", zap.String("tagID", tagID), zap.Error(err))
		return []entities.Junction{}
	}

	return append(asMaster, asLinked...)
}

// CreateTagEquivalency declares two tags interchangeable for task lookup.
// Returns the junction ID, or "" on failure.
func (s *GraphService) CreateTagEquivalency(ctx context.Context, masterTagID, linkedTagID, displayName string, useOriginalName bool) string {
	if s.junctions == nil {
		s.logger.Error("Missing junctions collection")
		return ""
	}

	junction, err := entities.NewEquivalency(masterTagID, linkedTagID, displayName, useOriginalName, s.clock.Now())
	if err != nil {
		s.logger.Error("Invalid equivalency", zap.Error(err))
		return ""
	}

	id, err := s.junctions.Create(ctx, junction)
	if err != nil {
		s.logger.Error("Failed to create tag equivalency",
			zap.String("masterTagID", masterTagID),
			zap.String("linkedTagID", linkedTagID),
			zap.Error(err),
		)
		return ""
	}

	s.logger.Info("Created tag equivalency",
		zap.String("masterTagID", masterTagID),
		zap.String("linkedTagID", linkedTagID),
		zap.String("junctionID", id),
	)

	if s.publisher != nil {
		event := events.NewJunctionCreated(id, masterTagID, linkedTagID,
			entities.RelationKey(entities.NodeTypeTag, entities.NodeTypeTag), true, junction.CreatedAt)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish junction created event", zap.Error(err))
		}
	}

	return id
}

// RemoveTagEquivalency archives an equivalency junction. Junctions are never
// hard-deleted.
func (s *GraphService) RemoveTagEquivalency(ctx context.Context, junctionID string) {
	if s.junctions == nil {
		s.logger.Error("Missing junctions collection")
		return
	}

	if err := s.junctions.Archive(ctx, junctionID); err != nil {
		s.logger.Error("Failed to remove tag equivalency", zap.String("junctionID", junctionID), zap.Error(err))
		return
	}

	s.logger.Info("Removed tag equivalency", zap.String("junctionID", junctionID))

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewEquivalencyRemoved(junctionID, s.clock.Now())); err != nil {
			s.logger.Warn("Failed to publish equivalency removed event", zap.Error(err))
		}
	}
}

// UpdateTask merges a partial update into a task; UpdatedAt is always
// refreshed by the store.
func (s *GraphService) UpdateTask(ctx context.Context, id string, update entities.NodeUpdate) {
	if s.nodes == nil {
		s.logger.Error("No nodes collection found")
		return
	}

	if err := s.nodes.UpdateFields(ctx, id, update); err != nil {
		s.logger.Error("Failed to update task", zap.String("taskID", id), zap.Error(err))
		return
	}

	s.logger.Info("Task updated", zap.String("taskID", id))

	if s.publisher != nil {
		fields := updatedFieldNames(update)
		if err := s.publisher.Publish(ctx, events.NewTaskUpdated(id, fields, s.clock.Now())); err != nil {
			s.logger.Warn("Failed to publish task updated event", zap.Error(err))
		}
	}
}

// ArchiveTask soft-deletes a task.
func (s *GraphService) ArchiveTask(ctx context.Context, id string) {
	archived := true
	s.UpdateTask(ctx, id, entities.NodeUpdate{Archived: &archived})
}

// CompleteTask marks a task as done.
func (s *GraphService) CompleteTask(ctx context.Context, id string) {
	completed := true
	s.UpdateTask(ctx, id, entities.NodeUpdate{Completed: &completed})
}

// GetTagByName resolves a tag by exact name. Returns nil when the tag does
// not exist or the collection is unavailable.
func (s *GraphService) GetTagByName(ctx context.Context, name string) *entities.Node {
	if s.nodes == nil {
		s.logger.Error("No nodes collection found")
		return nil
	}

	matches, err := s.nodes.GetByName(ctx, name)
	if err != nil {
		s.logger.Error("Tag lookup failed", zap.String("name", name), zap.Error(err))
		return nil
	}
	for i := range matches {
		if matches[i].IsTag() {
			return &matches[i]
		}
	}
	return nil
}

// GetAllTags returns every tag node.
func (s *GraphService) GetAllTags(ctx context.Context) []entities.Node {
	return s.getByType(ctx, entities.NodeTypeTag)
}

// GetAllTasks returns every task node.
func (s *GraphService) GetAllTasks(ctx context.Context) []entities.Node {
	return s.getByType(ctx, entities.NodeTypeTask)
}

func (s *GraphService) getByType(ctx context.Context, nodeType entities.NodeType) []entities.Node {
	if s.nodes == nil {
		s.logger.Error("No nodes collection found")
		return []entities.Node{}
	}

	nodes, err := s.nodes.GetByType(ctx, nodeType)
	if err != nil {
		s.logger.Error("Node query failed", zap.String("type", string(nodeType)), zap.Error(err))
		return []entities.Node{}
	}
	return nodes
}

// GetAllNodes returns a full snapshot of the nodes collection.
func (s *GraphService) GetAllNodes(ctx context.Context) []entities.Node {
	if s.nodes == nil {
		s.logger.Error("No nodes collection found")
		return []entities.Node{}
	}

	nodes, err := s.nodes.GetAll(ctx)
	if err != nil {
		s.logger.Error("Node snapshot failed", zap.Error(err))
		return []entities.Node{}
	}
	return nodes
}

// GetAllJunctions returns a full snapshot of the junctions collection.
func (s *GraphService) GetAllJunctions(ctx context.Context) []entities.Junction {
	if s.junctions == nil {
		s.logger.Error("No junctions collection found")
		return []entities.Junction{}
	}

	junctions, err := s.junctions.GetAll(ctx)
	if err != nil {
		s.logger.Error("Junction snapshot failed", zap.Error(err))
		return []entities.Junction{}
	}
	return junctions
}

// stripTagMarker removes exactly one leading marker character; any further
// markers are part of the tag name ("##urgent" -> "#urgent").
func stripTagMarker(content, markers string) string {
	r, size := utf8.DecodeRuneInString(content)
	if size > 0 && strings.ContainsRune(markers, r) {
		return content[size:]
	}
	return content
}

func updatedFieldNames(update entities.NodeUpdate) []string {
	var fields []string
	if update.Name != nil {
		fields = append(fields, "name")
	}
	if update.Completed != nil {
		fields = append(fields, "completed")
	}
	if update.Archived != nil {
		fields = append(fields, "archived")
	}
	if update.Embedding != nil {
		fields = append(fields, "embedding")
	}
	if update.EmbeddingModelVersion != nil {
		fields = append(fields, "embeddingModelVersion")
	}
	return fields
}
