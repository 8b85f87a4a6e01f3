package middleware

import (
	"context"
	"net/http"
	"strings"

	"trainhub/internal/model"
	"trainhub/internal/service"
)

type contextKey string

const LearnerKey contextKey = "learner"

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireLearner validates the learner JWT from the Authorization header
func (m *AuthMiddleware) RequireLearner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := ExtractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		learner, err := m.authSvc.ValidateLearnerToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithLearner(r.Context(), learner)))
	})
}

// GetLearner extracts the authenticated learner from context
func GetLearner(ctx context.Context) *model.Learner {
	if v, ok := ctx.Value(LearnerKey).(*model.Learner); ok {
		return v
	}
	return nil
}

// WithLearner returns ctx carrying learner
func WithLearner(ctx context.Context, learner *model.Learner) context.Context {
	return context.WithValue(ctx, LearnerKey, learner)
}

// ExtractBearerToken returns the token of an "Authorization: Bearer" header
func ExtractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
