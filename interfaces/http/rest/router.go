package rest

import (
	"net/http"

	"taskgraph/application/services"
	"taskgraph/interfaces/http/rest/handlers"
	"taskgraph/interfaces/http/rest/middleware"
	"taskgraph/pkg/auth"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	graph      *services.GraphService
	search     *services.SearchService
	health     *services.HealthService
	embeddings *services.EmbeddingService
	validator  *auth.JWTValidator
	enableCORS bool
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	graph *services.GraphService,
	search *services.SearchService,
	health *services.HealthService,
	embeddings *services.EmbeddingService,
	validator *auth.JWTValidator,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		graph:      graph,
		search:     search,
		health:     health,
		embeddings: embeddings,
		validator:  validator,
		enableCORS: enableCORS,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		// Task endpoints
		r.Route("/tasks", func(r chi.Router) {
			taskHandler := handlers.NewTaskHandler(rt.graph, rt.logger)
			r.Post("/", taskHandler.CreateTask)
			r.Get("/", taskHandler.ListTasks)
			r.Put("/{taskID}", taskHandler.UpdateTask)
			r.Post("/{taskID}/complete", taskHandler.CompleteTask)
			r.Post("/{taskID}/archive", taskHandler.ArchiveTask)
			r.Get("/{taskID}/tags", taskHandler.GetTaskTags)
			r.Post("/{taskID}/tags", taskHandler.AddTag)
		})

		// Tag and equivalency endpoints
		tagHandler := handlers.NewTagHandler(rt.graph, rt.logger)
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tagHandler.ListTags)
			r.Get("/{tagID}/tasks", tagHandler.GetTagTasks)
			r.Get("/{tagID}/equivalencies", tagHandler.GetTagEquivalencies)
		})
		r.Route("/equivalencies", func(r chi.Router) {
			r.Post("/", tagHandler.CreateEquivalency)
			r.Delete("/{junctionID}", tagHandler.RemoveEquivalency)
		})

		// Semantic search
		r.Get("/search", handlers.NewSearchHandler(rt.search, rt.logger).Search)

		// Junction integrity report
		r.Get("/validation", handlers.NewValidationHandler(rt.health, rt.logger).Validate)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck verifies the embedding path end to end before reporting
// ready, so traffic only arrives once the model can serve.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if err := rt.embeddings.Warmup(req.Context()); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
