package cache

import (
	"context"
	"sync"
	"time"

	"taskgraph/application/ports"
	"taskgraph/domain/core/entities"

	"go.uber.org/zap"
)

// snapshot holds one cached bulk read with its expiry.
type snapshot[T any] struct {
	mu        sync.RWMutex
	items     []T
	expiresAt time.Time
}

func (s *snapshot[T]) get() ([]T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.items == nil || time.Now().After(s.expiresAt) {
		return nil, false
	}
	return s.items, true
}

func (s *snapshot[T]) set(items []T, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.expiresAt = time.Now().Add(ttl)
}

func (s *snapshot[T]) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// CachedNodeRepository serves bulk reads from a TTL-bounded snapshot while
// point reads stay live. Writes invalidate the snapshot, but readers must
// still tolerate staleness within the TTL window.
type CachedNodeRepository struct {
	inner  ports.NodeRepository
	ttl    time.Duration
	logger *zap.Logger
	all    snapshot[entities.Node]
	byType sync.Map // entities.NodeType -> *snapshot[entities.Node]
}

// NewCachedNodeRepository decorates a node repository with snapshot caching.
func NewCachedNodeRepository(inner ports.NodeRepository, ttl time.Duration, logger *zap.Logger) *CachedNodeRepository {
	return &CachedNodeRepository{inner: inner, ttl: ttl, logger: logger}
}

func (r *CachedNodeRepository) CreateNode(ctx context.Context, node *entities.Node) (string, error) {
	id, err := r.inner.CreateNode(ctx, node)
	if err == nil {
		r.invalidate()
	}
	return id, err
}

// GetByID always reads live so identity lookups see fresh fields.
func (r *CachedNodeRepository) GetByID(ctx context.Context, id string) (*entities.Node, error) {
	return r.inner.GetByID(ctx, id)
}

// GetByName always reads live; name resolution decides whether a tag gets
// created, so a stale miss here would duplicate tags.
func (r *CachedNodeRepository) GetByName(ctx context.Context, name string) ([]entities.Node, error) {
	return r.inner.GetByName(ctx, name)
}

// GetByIDs serves from the full snapshot when warm, otherwise reads live.
func (r *CachedNodeRepository) GetByIDs(ctx context.Context, ids []string) ([]entities.Node, error) {
	if cached, ok := r.all.get(); ok {
		wanted := make(map[string]bool, len(ids))
		for _, id := range ids {
			wanted[id] = true
		}
		nodes := make([]entities.Node, 0, len(ids))
		for _, node := range cached {
			if wanted[node.ID] {
				nodes = append(nodes, node)
			}
		}
		return nodes, nil
	}
	return r.inner.GetByIDs(ctx, ids)
}

func (r *CachedNodeRepository) GetByType(ctx context.Context, nodeType entities.NodeType) ([]entities.Node, error) {
	if entry, ok := r.byType.Load(nodeType); ok {
		if cached, warm := entry.(*snapshot[entities.Node]).get(); warm {
			return cached, nil
		}
	}

	nodes, err := r.inner.GetByType(ctx, nodeType)
	if err != nil {
		return nil, err
	}

	entry, _ := r.byType.LoadOrStore(nodeType, &snapshot[entities.Node]{})
	entry.(*snapshot[entities.Node]).set(nodes, r.ttl)
	r.logger.Debug("Node type snapshot refreshed",
		zap.String("type", string(nodeType)),
		zap.Int("count", len(nodes)),
	)
	return nodes, nil
}

func (r *CachedNodeRepository) UpdateFields(ctx context.Context, id string, update entities.NodeUpdate) error {
	err := r.inner.UpdateFields(ctx, id, update)
	if err == nil {
		r.invalidate()
	}
	return err
}

func (r *CachedNodeRepository) GetAll(ctx context.Context) ([]entities.Node, error) {
	if cached, ok := r.all.get(); ok {
		return cached, nil
	}

	nodes, err := r.inner.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	r.all.set(nodes, r.ttl)
	r.logger.Debug("Node snapshot refreshed", zap.Int("count", len(nodes)))
	return nodes, nil
}

func (r *CachedNodeRepository) invalidate() {
	r.all.invalidate()
	r.byType.Range(func(key, value any) bool {
		value.(*snapshot[entities.Node]).invalidate()
		return true
	})
}

// CachedJunctionRepository serves Query and GetAll from a TTL-bounded
// snapshot of the full junction set; predicates are applied in memory.
type CachedJunctionRepository struct {
	inner  ports.JunctionRepository
	ttl    time.Duration
	logger *zap.Logger
	all    snapshot[entities.Junction]
}

// NewCachedJunctionRepository decorates a junction repository with snapshot
// caching.
func NewCachedJunctionRepository(inner ports.JunctionRepository, ttl time.Duration, logger *zap.Logger) *CachedJunctionRepository {
	return &CachedJunctionRepository{inner: inner, ttl: ttl, logger: logger}
}

func (r *CachedJunctionRepository) Create(ctx context.Context, junction *entities.Junction) (string, error) {
	id, err := r.inner.Create(ctx, junction)
	if err == nil {
		r.all.invalidate()
	}
	return id, err
}

func (r *CachedJunctionRepository) Query(ctx context.Context, query ports.JunctionQuery) ([]entities.Junction, error) {
	cached, ok := r.all.get()
	if !ok {
		refreshed, err := r.refresh(ctx)
		if err != nil {
			// Fall back to a live query rather than failing the read.
			r.logger.Warn("Junction snapshot refresh failed, querying live", zap.Error(err))
			return r.inner.Query(ctx, query)
		}
		cached = refreshed
	}

	matched := []entities.Junction{}
	for i := range cached {
		if junctionMatches(&cached[i], query) {
			matched = append(matched, cached[i])
		}
	}
	return matched, nil
}

func junctionMatches(j *entities.Junction, q ports.JunctionQuery) bool {
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

func (r *CachedJunctionRepository) Archive(ctx context.Context, id string) error {
	err := r.inner.Archive(ctx, id)
	if err == nil {
		r.all.invalidate()
	}
	return err
}

func (r *CachedJunctionRepository) GetAll(ctx context.Context) ([]entities.Junction, error) {
	if cached, ok := r.all.get(); ok {
		return cached, nil
	}
	return r.refresh(ctx)
}

func (r *CachedJunctionRepository) refresh(ctx context.Context) ([]entities.Junction, error) {
	junctions, err := r.inner.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	r.all.set(junctions, r.ttl)
	r.logger.Debug("Junction snapshot refreshed", zap.Int("count", len(junctions)))
	return junctions, nil
}
