package handlers

import (
	"net/http"

	"taskgraph/application/services"
	"taskgraph/pkg/common"

	"go.uber.org/zap"
)

// ValidationHandler exposes the junction integrity check over HTTP
type ValidationHandler struct {
	health *services.HealthService
	logger *zap.Logger
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(health *services.HealthService, logger *zap.Logger) *ValidationHandler {
	return &ValidationHandler{health: health, logger: logger}
}

// Validate handles GET /validation. The full report is returned with 200
// regardless of outcome; isValid in the body carries the verdict.
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	result := h.health.RunHealthCheck(r.Context())

	userID, _ := common.GetUserID(r.Context())
	h.logger.Info("Integrity check requested",
		zap.String("userID", userID),
		zap.String("requestID", common.ExtractRequestID(r)),
		zap.Bool("isValid", result.IsValid),
		zap.Duration("elapsed", common.GetElapsedTime(r.Context())),
	)

	common.RespondJSON(w, http.StatusOK, result)
}
