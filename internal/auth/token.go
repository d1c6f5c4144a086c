package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

// TokenManager validates bearer tokens issued by the platform's
// authentication service. Credentials themselves are never seen here; the
// token already carries the resolved identity and role.
type TokenManager struct {
	secret []byte
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Claims describes the JWT payload.
type Claims struct {
	IdentityID string      `json:"sub"`
	Name       string      `json:"name,omitempty"`
	Role       domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for the actor. Used by tests and tooling; in
// production tokens arrive from the authentication service.
func (tm *TokenManager) GenerateToken(actor domain.Actor, ttl time.Duration) (string, error) {
	claims := &Claims{
		IdentityID: actor.IdentityID,
		Name:       actor.Name,
		Role:       actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.IdentityID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
