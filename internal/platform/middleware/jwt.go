package middleware

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HMACValidator validates HS256 tokens issued by the auth frontend. Claims of
// interest: "sub" (usuario id) and "roles" (role code list).
type HMACValidator struct {
	key []byte
}

// NewHMACValidator builds a validator over a shared signing key.
func NewHMACValidator(signingKey string) *HMACValidator {
	return &HMACValidator{key: []byte(signingKey)}
}

type tokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// ValidateToken parses and verifies the token, returning actor claims.
func (v *HMACValidator) ValidateToken(tokenString string) (*JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return &JWTClaims{
		UsuarioID: claims.Subject,
		Roles:     claims.Roles,
	}, nil
}
