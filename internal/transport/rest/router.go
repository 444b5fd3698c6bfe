package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/andrewy1n/platypus-academy/internal/health"
	"github.com/andrewy1n/platypus-academy/internal/metrics"
	"github.com/andrewy1n/platypus-academy/internal/service"
	"github.com/andrewy1n/platypus-academy/internal/transport/rest/handler"
	"github.com/andrewy1n/platypus-academy/internal/transport/rest/middleware"
	"github.com/andrewy1n/platypus-academy/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	SessionService   *service.SessionService
	QuestionService  *service.QuestionService
	GradeService     *service.GradeService
	UserService      *service.UserService
	AssistantService *service.AssistantService
	RunService       *service.RunService
	Health           *health.Checker
	Metrics          *metrics.Metrics
	WSHub            *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(c.SessionService)
	questionHandler := handler.NewQuestionHandler(c.QuestionService)
	gradeHandler := handler.NewGradeHandler(c.GradeService)
	userHandler := handler.NewUserHandler(c.UserService)
	assistantHandler := handler.NewAssistantHandler(c.AssistantService)
	pipelineHandler := handler.NewPipelineHandler(c.RunService)
	wsHandler := ws.NewHandler(c.WSHub, c.RunService, c.SessionService)
	if c.Metrics != nil {
		wsHandler.SetTracker(c.Metrics)
	}

	// CORS middleware (apply first)
	r.Use(corsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.Observe(c.Metrics))

	// Operational routes
	if c.Health != nil {
		r.Handle("/health", c.Health.Handler()).Methods("GET")
	}
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/sessions/create", sessionHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/sessions/{id}/questions", sessionHandler.Questions).Methods("GET", "OPTIONS")

	v1.HandleFunc("/questions/{id}", questionHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/questions/{id}/save-answer", questionHandler.SaveAnswer).Methods("POST", "OPTIONS")

	v1.HandleFunc("/grade/question/{id}", gradeHandler.Question).Methods("POST", "OPTIONS")
	v1.HandleFunc("/grade/session/{id}", gradeHandler.Session).Methods("POST", "OPTIONS")
	v1.HandleFunc("/grade/free-response", gradeHandler.FreeResponse).Methods("POST", "OPTIONS")

	v1.HandleFunc("/users/create", userHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/users/{id}", userHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/users/{id}/sessions", userHandler.Sessions).Methods("GET", "OPTIONS")
	v1.HandleFunc("/users/{id}/stats", userHandler.Stats).Methods("GET", "OPTIONS")

	v1.HandleFunc("/assistant", assistantHandler.Ask).Methods("POST", "OPTIONS")
	v1.HandleFunc("/assistant/{conversationId}", assistantHandler.Conversation).Methods("GET", "OPTIONS")

	v1.HandleFunc("/pipelines", pipelineHandler.Register).Methods("POST", "OPTIONS")

	// WebSocket routes (public with ticket in query param)
	v1.HandleFunc("/ws/pipelines/{runId}", wsHandler.PipelineWS).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, X-Request-ID"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
