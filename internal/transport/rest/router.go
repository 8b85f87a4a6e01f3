package rest

import (
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"

	"trainhub/internal/service"
	"trainhub/internal/transport/rest/handler"
	"trainhub/internal/transport/rest/middleware"
	"trainhub/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService       *service.AuthService
	AssessmentService *service.AssessmentService
	WSHub             *ws.Hub
	AllowedOrigins    []string
	AllowCredentials  bool
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	viewHandler := handler.NewViewHandler(c.AssessmentService)
	attemptHandler := handler.NewAttemptHandler(c.AssessmentService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.AssessmentService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.AllowedOrigins, c.AllowCredentials))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// WebSocket routes (token in query param)
	v1.HandleFunc("/ws/views/{viewId}", wsHandler.ViewWS).Methods("GET")

	// Learner routes (require learner auth)
	learner := v1.NewRoute().Subrouter()
	learner.Use(authMW.RequireLearner)

	learner.HandleFunc("/modules/{moduleId:[0-9]+}/views", viewHandler.Open).Methods("POST", "OPTIONS")
	learner.HandleFunc("/modules/{moduleId:[0-9]+}/attempts", attemptHandler.List).Methods("GET", "OPTIONS")
	learner.HandleFunc("/modules/{moduleId:[0-9]+}/scoreboard", attemptHandler.Scoreboard).Methods("GET", "OPTIONS")
	learner.HandleFunc("/attempts/{attemptId}", attemptHandler.Get).Methods("GET", "OPTIONS")

	learner.HandleFunc("/views/{viewId}", viewHandler.Get).Methods("GET", "OPTIONS")
	learner.HandleFunc("/views/{viewId}", viewHandler.Close).Methods("DELETE", "OPTIONS")
	learner.HandleFunc("/views/{viewId}/steps/complete", viewHandler.CompleteStep).Methods("POST", "OPTIONS")
	learner.HandleFunc("/views/{viewId}/steps/{index:[0-9]+}", viewHandler.GoToStep).Methods("POST", "OPTIONS")
	learner.HandleFunc("/views/{viewId}/quiz/resume", viewHandler.ResumeQuiz).Methods("POST", "OPTIONS")
	learner.HandleFunc("/views/{viewId}/quiz/answers/{position:[0-9]+}", viewHandler.Answer).Methods("PUT", "OPTIONS")
	learner.HandleFunc("/views/{viewId}/quiz/submit", viewHandler.Submit).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(origins []string, allowCredentials bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
			if allowedMethods == "" {
				allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
			}

			allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
			if allowedHeaders == "" {
				allowedHeaders = "Content-Type, Authorization"
			}

			if origin := allowOrigin(origins, r.Header.Get("Origin")); origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				if origin != "*" {
					w.Header().Add("Vary", "Origin")
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			if allowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// allowOrigin picks the Access-Control-Allow-Origin value for a request origin
func allowOrigin(origins []string, origin string) string {
	for _, o := range origins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}
