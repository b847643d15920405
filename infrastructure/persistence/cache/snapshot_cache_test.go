package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taskgraph/application/ports"
	"taskgraph/domain/core/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingNodeRepo struct {
	nodes    []entities.Node
	getAlls  int
	byIDs    int
	failNext bool
}

func (r *countingNodeRepo) CreateNode(ctx context.Context, node *entities.Node) (string, error) {
	id := fmt.Sprintf("node-%d", len(r.nodes)+1)
	stored := *node
	stored.ID = id
	r.nodes = append(r.nodes, stored)
	return id, nil
}

func (r *countingNodeRepo) GetByID(ctx context.Context, id string) (*entities.Node, error) {
	for i := range r.nodes {
		if r.nodes[i].ID == id {
			node := r.nodes[i]
			return &node, nil
		}
	}
	return nil, nil
}

func (r *countingNodeRepo) GetByName(ctx context.Context, name string) ([]entities.Node, error) {
	matches := []entities.Node{}
	for _, n := range r.nodes {
		if n.Name == name {
			matches = append(matches, n)
		}
	}
	return matches, nil
}

func (r *countingNodeRepo) GetByIDs(ctx context.Context, ids []string) ([]entities.Node, error) {
	r.byIDs++
	matches := []entities.Node{}
	for _, id := range ids {
		for _, n := range r.nodes {
			if n.ID == id {
				matches = append(matches, n)
			}
		}
	}
	return matches, nil
}

func (r *countingNodeRepo) GetByType(ctx context.Context, nodeType entities.NodeType) ([]entities.Node, error) {
	matches := []entities.Node{}
	for _, n := range r.nodes {
		if n.Type == nodeType {
			matches = append(matches, n)
		}
	}
	return matches, nil
}

func (r *countingNodeRepo) UpdateFields(ctx context.Context, id string, update entities.NodeUpdate) error {
	for i := range r.nodes {
		if r.nodes[i].ID == id {
			if update.Name != nil {
				r.nodes[i].Name = *update.Name
			}
			return nil
		}
	}
	return fmt.Errorf("node not found: %s", id)
}

func (r *countingNodeRepo) GetAll(ctx context.Context) ([]entities.Node, error) {
	if r.failNext {
		r.failNext = false
		return nil, fmt.Errorf("store unavailable")
	}
	r.getAlls++
	all := make([]entities.Node, len(r.nodes))
	copy(all, r.nodes)
	return all, nil
}

type countingJunctionRepo struct {
	junctions []entities.Junction
	getAlls   int
	queries   int
	failNext  bool
}

func (r *countingJunctionRepo) Create(ctx context.Context, junction *entities.Junction) (string, error) {
	id := fmt.Sprintf("junction-%d", len(r.junctions)+1)
	stored := *junction
	stored.ID = id
	r.junctions = append(r.junctions, stored)
	return id, nil
}

func (r *countingJunctionRepo) Query(ctx context.Context, query ports.JunctionQuery) ([]entities.Junction, error) {
	r.queries++
	matches := []entities.Junction{}
	for i := range r.junctions {
		if junctionMatches(&r.junctions[i], query) {
			matches = append(matches, r.junctions[i])
		}
	}
	return matches, nil
}

func (r *countingJunctionRepo) Archive(ctx context.Context, id string) error {
	for i := range r.junctions {
		if r.junctions[i].ID == id {
			r.junctions[i].Archived = true
			return nil
		}
	}
	return fmt.Errorf("junction not found: %s", id)
}

func (r *countingJunctionRepo) GetAll(ctx context.Context) ([]entities.Junction, error) {
	if r.failNext {
		r.failNext = false
		return nil, fmt.Errorf("store unavailable")
	}
	r.getAlls++
	all := make([]entities.Junction, len(r.junctions))
	copy(all, r.junctions)
	return all, nil
}

func TestCachedNodeRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("GetAll serves repeat reads from the snapshot", func(t *testing.T) {
		inner := &countingNodeRepo{nodes: []entities.Node{{ID: "a", Name: "a"}}}
		repo := NewCachedNodeRepository(inner, time.Minute, zap.NewNop())

		first, err := repo.GetAll(ctx)
		require.NoError(t, err)
		second, err := repo.GetAll(ctx)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, inner.getAlls)
	})

	t.Run("writes invalidate the snapshot", func(t *testing.T) {
		inner := &countingNodeRepo{}
		repo := NewCachedNodeRepository(inner, time.Minute, zap.NewNop())

		_, err := repo.GetAll(ctx)
		require.NoError(t, err)

		_, err = repo.CreateNode(ctx, &entities.Node{Name: "new", Type: entities.NodeTypeTask})
		require.NoError(t, err)

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.Equal(t, 2, inner.getAlls)
	})

	t.Run("expired snapshot is refreshed", func(t *testing.T) {
		inner := &countingNodeRepo{nodes: []entities.Node{{ID: "a"}}}
		repo := NewCachedNodeRepository(inner, time.Millisecond, zap.NewNop())

		_, err := repo.GetAll(ctx)
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)

		_, err = repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, inner.getAlls)
	})

	t.Run("GetByIDs uses the warm snapshot", func(t *testing.T) {
		inner := &countingNodeRepo{nodes: []entities.Node{{ID: "a"}, {ID: "b"}}}
		repo := NewCachedNodeRepository(inner, time.Minute, zap.NewNop())

		_, err := repo.GetAll(ctx)
		require.NoError(t, err)

		nodes, err := repo.GetByIDs(ctx, []string{"b"})
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, "b", nodes[0].ID)
		assert.Zero(t, inner.byIDs)
	})

	t.Run("GetByIDs reads live when cold", func(t *testing.T) {
		inner := &countingNodeRepo{nodes: []entities.Node{{ID: "a"}}}
		repo := NewCachedNodeRepository(inner, time.Minute, zap.NewNop())

		nodes, err := repo.GetByIDs(ctx, []string{"a"})
		require.NoError(t, err)
		assert.Len(t, nodes, 1)
		assert.Equal(t, 1, inner.byIDs)
	})

	t.Run("GetByName is never cached", func(t *testing.T) {
		inner := &countingNodeRepo{nodes: []entities.Node{{ID: "a", Name: "inbox", Type: entities.NodeTypeTag}}}
		repo := NewCachedNodeRepository(inner, time.Minute, zap.NewNop())

		_, err := repo.GetAll(ctx)
		require.NoError(t, err)

		inner.nodes[0].Name = "renamed"
		matches, err := repo.GetByName(ctx, "renamed")
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})
}

func TestCachedJunctionRepository(t *testing.T) {
	ctx := context.Background()

	tagToTask := entities.Junction{
		ID: "j-1", ParentID: "tag-1", ChildID: "task-1",
		ParentType: entities.NodeTypeTag, ChildType: entities.NodeTypeTask,
	}
	archived := entities.Junction{
		ID: "j-2", ParentID: "tag-1", ChildID: "task-2",
		ParentType: entities.NodeTypeTag, ChildType: entities.NodeTypeTask,
		Archived: true,
	}

	t.Run("Query filters the snapshot in memory", func(t *testing.T) {
		inner := &countingJunctionRepo{junctions: []entities.Junction{tagToTask, archived}}
		repo := NewCachedJunctionRepository(inner, time.Minute, zap.NewNop())

		matched, err := repo.Query(ctx, ports.JunctionQuery{ParentID: "tag-1"})
		require.NoError(t, err)
		require.Len(t, matched, 1)
		assert.Equal(t, "j-1", matched[0].ID)

		// Second query is served from the snapshot.
		_, err = repo.Query(ctx, ports.JunctionQuery{ChildID: "task-1"})
		require.NoError(t, err)
		assert.Equal(t, 1, inner.getAlls)
		assert.Zero(t, inner.queries)
	})

	t.Run("archived junctions are returned only on request", func(t *testing.T) {
		inner := &countingJunctionRepo{junctions: []entities.Junction{tagToTask, archived}}
		repo := NewCachedJunctionRepository(inner, time.Minute, zap.NewNop())

		matched, err := repo.Query(ctx, ports.JunctionQuery{ParentID: "tag-1", IncludeArchived: true})
		require.NoError(t, err)
		assert.Len(t, matched, 2)
	})

	t.Run("refresh failure falls back to a live query", func(t *testing.T) {
		inner := &countingJunctionRepo{junctions: []entities.Junction{tagToTask}, failNext: true}
		repo := NewCachedJunctionRepository(inner, time.Minute, zap.NewNop())

		matched, err := repo.Query(ctx, ports.JunctionQuery{ParentID: "tag-1"})
		require.NoError(t, err)
		assert.Len(t, matched, 1)
		assert.Equal(t, 1, inner.queries)
	})

	t.Run("Archive invalidates the snapshot", func(t *testing.T) {
		inner := &countingJunctionRepo{junctions: []entities.Junction{tagToTask}}
		repo := NewCachedJunctionRepository(inner, time.Minute, zap.NewNop())

		_, err := repo.GetAll(ctx)
		require.NoError(t, err)

		require.NoError(t, repo.Archive(ctx, "j-1"))

		matched, err := repo.Query(ctx, ports.JunctionQuery{ParentID: "tag-1"})
		require.NoError(t, err)
		assert.Empty(t, matched)
		assert.Equal(t, 2, inner.getAlls)
	})
}
