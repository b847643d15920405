package services

import (
	"context"
	"sync"
	"time"

	"taskgraph/application/ports"
	"taskgraph/domain/config"
	"taskgraph/domain/core/entities"
	pkgerrors "taskgraph/pkg/errors"

	"go.uber.org/zap"
)

// EmbeddingService keeps node embeddings in step with the current model.
// A node's embedding is stale when it is absent or was produced by a
// different model version; staleness is detected cheaply from metadata, the
// vector itself is never recomputed for comparison.
type EmbeddingService struct {
	embedder ports.Embedder
	nodes    ports.NodeRepository
	cfg      *config.DomainConfig
	logger   *zap.Logger
}

// NewEmbeddingService creates an embedding service bound to a model worker.
func NewEmbeddingService(embedder ports.Embedder, nodes ports.NodeRepository, cfg *config.DomainConfig, logger *zap.Logger) *EmbeddingService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &EmbeddingService{
		embedder: embedder,
		nodes:    nodes,
		cfg:      cfg,
		logger:   logger,
	}
}

// NeedsEmbedding reports whether a node's embedding must be (re)computed:
// no vector, no recorded model version, or a version that does not match
// the current model.
func (s *EmbeddingService) NeedsEmbedding(node *entities.Node) bool {
	if node == nil {
		return false
	}
	if len(node.Embedding) == 0 {
		return true
	}
	if node.EmbeddingModelVersion == "" {
		return true
	}
	return node.EmbeddingModelVersion != s.embedder.ModelVersion()
}

// GenerateAndStore computes the embedding for a node's name and persists the
// vector together with the model version that produced it.
func (s *EmbeddingService) GenerateAndStore(ctx context.Context, node *entities.Node) error {
	if node == nil || node.ID == "" {
		return pkgerrors.NewValidationError("node must be persisted before embedding")
	}

	vector, err := s.embedder.Embed(ctx, node.Name)
	if err != nil {
		return pkgerrors.Wrapf(err, "embedding generation for node %s", node.ID)
	}

	version := s.embedder.ModelVersion()
	update := entities.NodeUpdate{
		Embedding:             vector,
		EmbeddingModelVersion: &version,
	}
	if err := s.nodes.UpdateFields(ctx, node.ID, update); err != nil {
		return pkgerrors.Wrapf(err, "storing embedding for node %s", node.ID)
	}

	node.Embedding = vector
	node.EmbeddingModelVersion = version

	s.logger.Debug("Stored embedding",
		zap.String("nodeID", node.ID),
		zap.String("modelVersion", version),
		zap.Int("dim", len(vector)),
	)
	return nil
}

// EnsureAll backfills embeddings for every stale node in the given set.
// Work proceeds in fixed-size batches, parallel within a batch, with a pause
// between batches so the embedding worker is not saturated. Individual
// failures are logged and skipped; the pass continues.
func (s *EmbeddingService) EnsureAll(ctx context.Context, nodes []entities.Node) {
	var stale []*entities.Node
	for i := range nodes {
		if s.NeedsEmbedding(&nodes[i]) {
			stale = append(stale, &nodes[i])
		}
	}

	if len(stale) == 0 {
		s.logger.Debug("All embeddings up to date", zap.Int("checked", len(nodes)))
		return
	}

	s.logger.Info("Backfilling embeddings",
		zap.Int("stale", len(stale)),
		zap.Int("total", len(nodes)),
		zap.String("modelVersion", s.embedder.ModelVersion()),
	)

	batchSize := s.cfg.EmbeddingBatchSize
	for start := 0; start < len(stale); start += batchSize {
		end := start + batchSize
		if end > len(stale) {
			end = len(stale)
		}

		var wg sync.WaitGroup
		for _, node := range stale[start:end] {
			wg.Add(1)
			go func(n *entities.Node) {
				defer wg.Done()
				if err := s.GenerateAndStore(ctx, n); err != nil {
					s.logger.Warn("Embedding backfill failed for node",
						zap.String("nodeID", n.ID),
						zap.Error(err),
					)
				}
			}(node)
		}
		wg.Wait()

		if end < len(stale) {
			select {
			case <-ctx.Done():
				s.logger.Warn("Embedding backfill interrupted", zap.Error(ctx.Err()))
				return
			case <-time.After(s.cfg.EmbeddingBatchPause):
			}
		}
	}

	s.logger.Info("Embedding backfill complete", zap.Int("processed", len(stale)))
}

// ItemsWithEmbeddings partitions nodes into those carrying a usable vector
// and those without one.
func ItemsWithEmbeddings(nodes []entities.Node) (with, without []entities.Node) {
	for _, node := range nodes {
		if node.HasEmbedding() {
			with = append(with, node)
		} else {
			without = append(without, node)
		}
	}
	return with, without
}

// Warmup runs a throwaway embedding request so the model is loaded before
// the first real query. Unlike library operations, a warmup failure is
// propagated: a service that cannot embed should not report ready.
func (s *EmbeddingService) Warmup(ctx context.Context) error {
	start := time.Now()
	vector, err := s.embedder.Embed(ctx, "warmup")
	if err != nil {
		return pkgerrors.Wrap(err, "embedding warmup")
	}
	if len(vector) != s.embedder.Dim() {
		return pkgerrors.NewInternalError("embedding warmup returned wrong dimensionality")
	}

	s.logger.Info("Embedding model ready",
		zap.String("modelVersion", s.embedder.ModelVersion()),
		zap.Int("dim", len(vector)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}
