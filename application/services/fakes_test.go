package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskgraph/application/ports"
	"taskgraph/domain/core/entities"
	"taskgraph/domain/events"
)

// fakeClock hands out strictly increasing timestamps so recency sorts are
// deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type memNodeRepo struct {
	mu     sync.Mutex
	nodes  map[string]entities.Node
	nextID int
	fail   bool
}

func newMemNodeRepo() *memNodeRepo {
	return &memNodeRepo{nodes: map[string]entities.Node{}}
}

func (r *memNodeRepo) CreateNode(ctx context.Context, node *entities.Node) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return "", fmt.Errorf("store unavailable")
	}
	r.nextID++
	id := fmt.Sprintf("node-%d", r.nextID)
	stored := *node
	stored.ID = id
	r.nodes[id] = stored
	return id, nil
}

func (r *memNodeRepo) GetByID(ctx context.Context, id string) (*entities.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	node, ok := r.nodes[id]
	if !ok {
		return nil, nil
	}
	return &node, nil
}

func (r *memNodeRepo) GetByName(ctx context.Context, name string) ([]entities.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	matches := []entities.Node{}
	for _, node := range r.nodes {
		if node.Name == name {
			matches = append(matches, node)
		}
	}
	return matches, nil
}

func (r *memNodeRepo) GetByIDs(ctx context.Context, ids []string) ([]entities.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	matches := []entities.Node{}
	for _, id := range ids {
		if node, ok := r.nodes[id]; ok {
			matches = append(matches, node)
		}
	}
	return matches, nil
}

func (r *memNodeRepo) GetByType(ctx context.Context, nodeType entities.NodeType) ([]entities.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	matches := []entities.Node{}
	for _, node := range r.nodes {
		if node.Type == nodeType {
			matches = append(matches, node)
		}
	}
	return matches, nil
}

func (r *memNodeRepo) UpdateFields(ctx context.Context, id string, update entities.NodeUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("store unavailable")
	}
	node, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("node not found: %s", id)
	}
	if update.Name != nil {
		node.Name = *update.Name
	}
	if update.Completed != nil {
		node.Completed = *update.Completed
	}
	if update.Archived != nil {
		node.Archived = *update.Archived
	}
	if update.Embedding != nil {
		node.Embedding = update.Embedding
	}
	if update.EmbeddingModelVersion != nil {
		node.EmbeddingModelVersion = *update.EmbeddingModelVersion
	}
	node.UpdatedAt = node.UpdatedAt.Add(time.Second)
	r.nodes[id] = node
	return nil
}

func (r *memNodeRepo) GetAll(ctx context.Context) ([]entities.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	all := make([]entities.Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		all = append(all, node)
	}
	return all, nil
}

func (r *memNodeRepo) put(node entities.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.ID] = node
}

type memJunctionRepo struct {
	mu        sync.Mutex
	junctions map[string]entities.Junction
	nextID    int
	fail      bool
}

func newMemJunctionRepo() *memJunctionRepo {
	return &memJunctionRepo{junctions: map[string]entities.Junction{}}
}

func (r *memJunctionRepo) Create(ctx context.Context, junction *entities.Junction) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return "", fmt.Errorf("store unavailable")
	}
	r.nextID++
	id := fmt.Sprintf("junction-%d", r.nextID)
	stored := *junction
	stored.ID = id
	r.junctions[id] = stored
	return id, nil
}

func (r *memJunctionRepo) Query(ctx context.Context, query ports.JunctionQuery) ([]entities.Junction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	matches := []entities.Junction{}
	for _, j := range r.junctions {
		if query.ParentID != "" && j.ParentID != query.ParentID {
			continue
		}
		if query.ChildID != "" && j.ChildID != query.ChildID {
			continue
		}
		if query.ParentType != "" && j.ParentType != query.ParentType {
			continue
		}
		if query.ChildType != "" && j.ChildType != query.ChildType {
			continue
		}
		if query.EquivalencyOnly && !j.IsEquivalency() {
			continue
		}
		if !query.IncludeArchived && j.Archived {
			continue
		}
		matches = append(matches, j)
	}
	return matches, nil
}

func (r *memJunctionRepo) Archive(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("store unavailable")
	}
	j, ok := r.junctions[id]
	if !ok {
		return fmt.Errorf("junction not found: %s", id)
	}
	j.Archived = true
	r.junctions[id] = j
	return nil
}

func (r *memJunctionRepo) GetAll(ctx context.Context) ([]entities.Junction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	all := make([]entities.Junction, 0, len(r.junctions))
	for _, j := range r.junctions {
		all = append(all, j)
	}
	return all, nil
}

func (r *memJunctionRepo) put(j entities.Junction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.junctions[j.ID] = j
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, batch...)
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.GetEventType())
	}
	return types
}

// stubEmbedder returns a fixed-dimension vector derived from text length.
type stubEmbedder struct {
	mu      sync.Mutex
	version string
	dim     int
	calls   int
	err     error
}

func newStubEmbedder(version string, dim int) *stubEmbedder {
	return &stubEmbedder{version: version, dim: dim}
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	vector := make([]float32, e.dim)
	for i := range vector {
		vector[i] = float32(len(text)%7) + float32(i)
	}
	return vector, nil
}

func (e *stubEmbedder) ModelVersion() string { return e.version }

func (e *stubEmbedder) Dim() int { return e.dim }

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
