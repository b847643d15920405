package services

import (
	"context"

	"taskgraph/application/ports"
	"taskgraph/domain/core/validators"

	"go.uber.org/zap"
)

// HealthService runs the junction validator over full collection snapshots
// and reports the outcome to logs and an optional metrics backend.
type HealthService struct {
	graph     *GraphService
	validator *validators.JunctionValidator
	metrics   ports.MetricsPublisher
	logger    *zap.Logger
}

// NewHealthService creates a health service. The metrics publisher is
// optional; without it the report only goes to logs.
func NewHealthService(graph *GraphService, validator *validators.JunctionValidator, metrics ports.MetricsPublisher, logger *zap.Logger) *HealthService {
	return &HealthService{
		graph:     graph,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
	}
}

// RunHealthCheck validates the full graph snapshot and returns the report.
// The report is also logged, and the health score is published as a metric
// when a publisher is configured. Metric failures never affect the result.
func (s *HealthService) RunHealthCheck(ctx context.Context) validators.Result {
	nodes := s.graph.GetAllNodes(ctx)
	junctions := s.graph.GetAllJunctions(ctx)

	result := s.validator.Validate(junctions, nodes)

	s.logReport(&result)

	if s.metrics != nil {
		err := s.metrics.PublishHealthScore(ctx,
			result.Statistics.HealthScore,
			result.Statistics.TotalJunctions,
			len(result.Errors),
			len(result.Warnings),
		)
		if err != nil {
			s.logger.Warn("Failed to publish health score metric", zap.Error(err))
		}
	}

	return result
}

func (s *HealthService) logReport(result *validators.Result) {
	fields := []zap.Field{
		zap.Bool("isValid", result.IsValid),
		zap.Int("healthScore", result.Statistics.HealthScore),
		zap.Int("totalJunctions", result.Statistics.TotalJunctions),
		zap.Int("errors", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int("equivalencies", result.Statistics.EquivalencyJunctions),
		zap.Any("byRelationType", result.Statistics.ByRelationType),
	}

	if result.IsValid {
		s.logger.Info("Junction integrity check passed", fields...)
	} else {
		s.logger.Error("Junction integrity check failed", fields...)
	}

	for _, e := range result.Errors {
		s.logger.Error("Integrity violation",
			zap.String("type", string(e.Type)),
			zap.String("junctionID", e.JunctionID),
			zap.String("message", e.Message),
			zap.Any("details", e.Details),
		)
	}
	for _, w := range result.Warnings {
		s.logger.Warn("Integrity warning",
			zap.String("type", string(w.Type)),
			zap.String("junctionID", w.JunctionID),
			zap.String("message", w.Message),
			zap.Any("details", w.Details),
		)
	}
}
