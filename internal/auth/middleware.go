package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
	apperrors "github.com/kuiporro/pgf-fleet-workshop/pkg/util"
)

const actorKey = "auth_actor"

// Middleware extracts the acting identity and role from bearer tokens.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware constructs the middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if !claims.Role.IsValid() {
		return apperrors.NewUnauthorized("unknown role")
	}

	c.Locals(actorKey, domain.Actor{
		IdentityID: claims.IdentityID,
		Name:       claims.Name,
		Role:       claims.Role,
	})
	return c.Next()
}

// ActorFromContext retrieves the authenticated actor.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return domain.Actor{}, false
	}
	actor, ok := val.(domain.Actor)
	return actor, ok
}
