package di

import (
	"context"
	"time"

	"taskgraph/application/ports"
	"taskgraph/application/services"
	domaincfg "taskgraph/domain/config"
	"taskgraph/domain/core/validators"
	"taskgraph/infrastructure/config"
	"taskgraph/infrastructure/embedding"
	"taskgraph/infrastructure/messaging/eventbridge"
	"taskgraph/infrastructure/persistence/cache"
	"taskgraph/infrastructure/persistence/dynamodb"
	"taskgraph/interfaces/http/rest"
	"taskgraph/pkg/auth"
	"taskgraph/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDomainConfig projects env configuration onto the domain rules
func ProvideDomainConfig(cfg *config.Config) *domaincfg.DomainConfig {
	return cfg.DomainConfig()
}

// ProvideNodeRepository creates the node repository behind a snapshot cache
func ProvideNodeRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.NodeRepository {
	repo := dynamodb.NewNodeRepository(
		client,
		cfg.DynamoDBTable,
		cfg.NameIndexName,
		cfg.TypeIndexName,
		logger,
	)
	return cache.NewCachedNodeRepository(repo, cfg.CacheTTL, logger)
}

// ProvideJunctionRepository creates the junction repository behind a snapshot cache
func ProvideJunctionRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.JunctionRepository {
	repo := dynamodb.NewJunctionRepository(
		client,
		cfg.DynamoDBTable,
		cfg.NameIndexName,
		cfg.TypeIndexName,
		logger,
	)
	return cache.NewCachedJunctionRepository(repo, cfg.CacheTTL, logger)
}

// systemClock is the wall-clock implementation of ports.Clock
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// ProvideClock creates the wall clock
func ProvideClock() ports.Clock {
	return systemClock{}
}

// ProvideEmbeddingWorker starts the embedding worker over the configured
// provider. Without an endpoint the deterministic local provider serves
// development and tests.
func ProvideEmbeddingWorker(cfg *config.Config, logger *zap.Logger) *embedding.Worker {
	var provider embedding.Provider
	if cfg.EmbeddingEndpoint != "" {
		provider = embedding.NewHTTPProvider(cfg.EmbeddingEndpoint, 30*time.Second)
	} else {
		provider = embedding.NewLocalProvider(cfg.EmbeddingDim)
	}
	return embedding.NewWorker(provider, cfg.EmbeddingModelVersion, cfg.EmbeddingDim, logger)
}

// ProvideEmbedder exposes the worker through the port
func ProvideEmbedder(worker *embedding.Worker) ports.Embedder {
	return worker
}

// ProvideEventPublisher creates the event publisher, or a noop one when
// event publishing is disabled
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if !cfg.EnableEvents {
		return eventbridge.NewNoopPublisher()
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideMetricsPublisher creates the metrics publisher, or a noop one when
// metrics publishing is disabled
func ProvideMetricsPublisher(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) ports.MetricsPublisher {
	if !cfg.EnableMetrics {
		return observability.NewNoopMetrics()
	}
	return observability.NewCloudWatchMetrics(client, cfg.Environment, logger)
}

// ProvideEmbeddingService creates the embedding service
func ProvideEmbeddingService(embedder ports.Embedder, nodes ports.NodeRepository, dc *domaincfg.DomainConfig, logger *zap.Logger) *services.EmbeddingService {
	return services.NewEmbeddingService(embedder, nodes, dc, logger)
}

// ProvideGraphService creates the graph service
func ProvideGraphService(
	nodes ports.NodeRepository,
	junctions ports.JunctionRepository,
	clock ports.Clock,
	publisher ports.EventPublisher,
	embeddings *services.EmbeddingService,
	dc *domaincfg.DomainConfig,
	logger *zap.Logger,
) *services.GraphService {
	return services.NewGraphService(nodes, junctions, clock, publisher, embeddings, dc, logger)
}

// ProvideSearchService creates the search service
func ProvideSearchService(embedder ports.Embedder, graph *services.GraphService, dc *domaincfg.DomainConfig, logger *zap.Logger) *services.SearchService {
	return services.NewSearchService(embedder, graph, dc, logger)
}

// ProvideJunctionValidator creates the junction validator
func ProvideJunctionValidator(dc *domaincfg.DomainConfig) *validators.JunctionValidator {
	return validators.NewJunctionValidatorWithConfig(dc)
}

// ProvideHealthService creates the health service
func ProvideHealthService(graph *services.GraphService, validator *validators.JunctionValidator, metrics ports.MetricsPublisher, logger *zap.Logger) *services.HealthService {
	return services.NewHealthService(graph, validator, metrics, logger)
}

// ProvideJWTValidator creates the token validator. Development without a
// secret runs unauthenticated.
func ProvideJWTValidator(cfg *config.Config) *auth.JWTValidator {
	if cfg.JWTSecret == "" {
		return nil
	}
	return auth.NewJWTValidator(cfg.JWTSecret, cfg.JWTIssuer)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	graph *services.GraphService,
	search *services.SearchService,
	health *services.HealthService,
	embeddings *services.EmbeddingService,
	validator *auth.JWTValidator,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(graph, search, health, embeddings, validator, cfg.EnableCORS, logger)
}
