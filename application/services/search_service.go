package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"taskgraph/application/ports"
	"taskgraph/domain/config"
	"taskgraph/domain/core/entities"
	pkgerrors "taskgraph/pkg/errors"

	"go.uber.org/zap"
)

// SearchResult pairs a node with its similarity to the query.
type SearchResult struct {
	Item       entities.Node `json:"item"`
	Similarity float64       `json:"similarity"`
	Type       string        `json:"type"`
}

// SearchService ranks tasks and tags against a free-text query by embedding
// similarity. Items without a usable embedding are skipped with a warning
// rather than failing the whole search.
type SearchService struct {
	embedder ports.Embedder
	graph    *GraphService
	cfg      *config.DomainConfig
	logger   *zap.Logger
}

// NewSearchService creates a search service over the graph's nodes.
func NewSearchService(embedder ports.Embedder, graph *GraphService, cfg *config.DomainConfig, logger *zap.Logger) *SearchService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &SearchService{
		embedder: embedder,
		graph:    graph,
		cfg:      cfg,
		logger:   logger,
	}
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Vectors of different lengths are an error; a zero-magnitude vector yields
// similarity 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, pkgerrors.NewValidationError("embedding vectors have different lengths")
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}

// FindSimilarItems ranks candidate nodes against a query vector, keeping
// those at or above the similarity threshold, best first, capped at max
// results. A non-positive max falls back to the configured default.
func (s *SearchService) FindSimilarItems(queryVector []float32, candidates []entities.Node, max int) []SearchResult {
	if max <= 0 {
		max = s.cfg.MaxSearchResults
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, item := range candidates {
		// A vector from an older model version is still searchable; only
		// items with no vector at all are skipped.
		if len(item.Embedding) == 0 {
			s.logger.Warn("Item has no embedding, skipping",
				zap.String("nodeID", item.ID),
				zap.String("name", item.Name),
			)
			continue
		}

		similarity, err := CosineSimilarity(queryVector, item.Embedding)
		if err != nil {
			s.logger.Warn("Similarity computation failed",
				zap.String("nodeID", item.ID),
				zap.Error(err),
			)
			continue
		}

		if similarity >= s.cfg.SimilarityThreshold {
			results = append(results, SearchResult{
				Item:       item,
				Similarity: similarity,
				Type:       string(item.Type),
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > max {
		results = results[:max]
	}
	return results
}

// Search embeds the query and ranks every node against it. A blank query
// returns nothing without touching the embedder. Failures are logged and
// produce an empty result.
func (s *SearchService) Search(ctx context.Context, query string, max int) []SearchResult {
	if strings.TrimSpace(query) == "" {
		return []SearchResult{}
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Error("Query embedding failed", zap.String("query", query), zap.Error(err))
		return []SearchResult{}
	}

	candidates := s.graph.GetAllNodes(ctx)
	results := s.FindSimilarItems(queryVector, candidates, max)

	s.logger.Debug("Semantic search complete",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
	)
	return results
}

// DebouncedSearch coalesces rapid successive queries: each new query cancels
// the previously scheduled one, and only the query that survives the quiet
// period runs. An in-flight search is never cancelled, only pending ones.
type DebouncedSearch struct {
	search  *SearchService
	delay   time.Duration
	logger  *zap.Logger
	mu      sync.Mutex
	pending *time.Timer
}

// NewDebouncedSearch wraps a search service with a quiet-period gate.
func NewDebouncedSearch(search *SearchService, logger *zap.Logger) *DebouncedSearch {
	return &DebouncedSearch{
		search: search,
		delay:  search.cfg.SearchDebounce,
		logger: logger,
	}
}

// Query schedules a search after the quiet period and delivers the result to
// the callback. A newer Query supersedes an unscheduled older one; the
// superseded callback is never invoked.
func (d *DebouncedSearch) Query(ctx context.Context, query string, max int, deliver func([]SearchResult)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
	}

	d.pending = time.AfterFunc(d.delay, func() {
		results := d.search.Search(ctx, query, max)
		deliver(results)
	})

	d.logger.Debug("Search debounced", zap.String("query", query), zap.Duration("delay", d.delay))
}

// Cancel drops any pending query without running it.
func (d *DebouncedSearch) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
