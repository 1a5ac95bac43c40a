package routes

import (
	"net/http"

	"github.com/diagnosai/backend/internal/api/handlers"
	"github.com/diagnosai/backend/internal/api/middleware"
	"github.com/diagnosai/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	systemHandler     *handlers.SystemHandler
	diagnosisHandler  *handlers.DiagnosisHandler
	healthInfoHandler *handlers.HealthInfoHandler
	referralHandler   *handlers.ReferralHandler
	userHandler       *handlers.UserHandler
	chatHandler       *handlers.ChatHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	systemHandler *handlers.SystemHandler,
	diagnosisHandler *handlers.DiagnosisHandler,
	healthInfoHandler *handlers.HealthInfoHandler,
	referralHandler *handlers.ReferralHandler,
	userHandler *handlers.UserHandler,
	chatHandler *handlers.ChatHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		systemHandler:     systemHandler,
		diagnosisHandler:  diagnosisHandler,
		healthInfoHandler: healthInfoHandler,
		referralHandler:   referralHandler,
		userHandler:       userHandler,
		chatHandler:       chatHandler,
		allowedOrigins:    allowedOrigins,
		metrics:           metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /{$}", r.systemHandler.Root)
	r.mux.HandleFunc("GET /health", r.systemHandler.Health)

	r.mux.HandleFunc("POST /api/diagnose", r.diagnosisHandler.Diagnose)
	r.mux.HandleFunc("GET /api/healthdata/health-info/{query}", r.healthInfoHandler.GetHealthInfo)
	r.mux.HandleFunc("POST /api/referral/find", r.referralHandler.FindReferrals)

	r.mux.HandleFunc("POST /api/users/register", r.userHandler.Register)
	r.mux.HandleFunc("POST /api/users/login", r.userHandler.Login)

	if r.chatHandler != nil {
		r.mux.HandleFunc("POST /api/chat", r.chatHandler.Chat)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so preflight requests short-circuit before any work
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
