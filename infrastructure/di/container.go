package di

import (
	"taskgraph/application/ports"
	"taskgraph/application/services"
	"taskgraph/domain/core/validators"
	"taskgraph/infrastructure/config"
	"taskgraph/infrastructure/embedding"
	"taskgraph/interfaces/http/rest"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *zap.Logger
	NodeRepo         ports.NodeRepository
	JunctionRepo     ports.JunctionRepository
	EventPublisher   ports.EventPublisher
	MetricsPublisher ports.MetricsPublisher
	EmbeddingWorker  *embedding.Worker
	GraphService     *services.GraphService
	SearchService    *services.SearchService
	EmbeddingService *services.EmbeddingService
	HealthService    *services.HealthService
	Validator        *validators.JunctionValidator
	Router           *rest.Router
}

// Shutdown releases container-owned resources. Safe to call once after the
// server stops.
func (c *Container) Shutdown() {
	if c.EmbeddingWorker != nil {
		c.EmbeddingWorker.Close()
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
}
