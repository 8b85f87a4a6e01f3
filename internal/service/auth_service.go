package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trainhub/internal/model"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService validates the learner tokens issued by the LMS backend
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates a new auth service sharing the backend's HS256 secret
func NewAuthService(secret string) *AuthService {
	return &AuthService{
		jwtSecret: []byte(secret),
	}
}

// IssueLearnerToken signs a token the way the LMS backend does
func (s *AuthService) IssueLearnerToken(employeeCode string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &model.LearnerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   employeeCode,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateLearnerToken validates a learner JWT and returns the caller
func (s *AuthService) ValidateLearnerToken(tokenString string) (*model.Learner, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.LearnerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.LearnerClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &model.Learner{
		EmployeeCode: claims.Subject,
		Token:        tokenString,
	}, nil
}
