package model

import "github.com/golang-jwt/jwt/v5"

// LearnerClaims are the JWT claims of a token issued by the LMS backend.
// Subject carries the employee code.
type LearnerClaims struct {
	jwt.RegisteredClaims
}

// Learner is the authenticated caller of a request
type Learner struct {
	EmployeeCode string
	Token        string // Raw bearer token, forwarded to the LMS backend
}
