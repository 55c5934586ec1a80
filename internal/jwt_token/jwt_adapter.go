package jwttoken

import (
	"pawnshop/internal/access"
)

func ToAccessClaims(claims *Claims) *access.TokenClaims {
	return &access.TokenClaims{
		Subject: claims.Subject,
		Role:    claims.Role,
		JTI:     claims.ID, // JWT ID for revocation tracking
	}
}

// JWTServiceAdapter lets the access gate consume JWTService as its validator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*access.TokenClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToAccessClaims(claims), nil
}
