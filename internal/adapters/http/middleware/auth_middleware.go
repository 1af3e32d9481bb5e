package middleware

import (
	"errors"
	"strings"

	"foodlink/internal/core/domain"
	"foodlink/internal/pkg/jwt"
	"foodlink/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the auth middleware
const (
	LocalUserID   = "userID"
	LocalUsername = "username"
	LocalRole     = "role"
	LocalActor    = "actor"
)

// extractToken reads the access token from the cookie, then the
// Authorization header, then the access_token query parameter (EventSource
// cannot send headers)
func extractToken(c *fiber.Ctx) string {
	if token := c.Cookies("access_token"); token != "" {
		return token
	}

	authHeader := c.Get("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return c.Query("access_token")
}

func setIdentity(c *fiber.Ctx, claims *jwt.Claims) {
	c.Locals(LocalUserID, claims.UserID)
	c.Locals(LocalUsername, claims.Username)
	c.Locals(LocalRole, string(claims.Role))
	c.Locals(LocalActor, claims.Actor())
}

// AuthMiddleware creates authentication middleware
func AuthMiddleware(tokens *jwt.Signer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := extractToken(c)
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		claims, err := tokens.ParseAccess(accessToken)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		setIdentity(c, claims)
		return c.Next()
	}
}

// OptionalAuth doesn't require auth but sets user info if a valid token is present
func OptionalAuth(tokens *jwt.Signer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if accessToken := extractToken(c); accessToken != "" {
			claims, err := tokens.ParseAccess(accessToken)
			if err == nil {
				setIdentity(c, claims)
			}
		}
		return c.Next()
	}
}

// GetActor returns the authenticated caller
func GetActor(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(LocalActor).(domain.Actor)
	return actor, ok
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := GetActor(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		for _, allowedRole := range allowedRoles {
			if actor.Role == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// DonorOnly allows only donor accounts
func DonorOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleDonor)
}

// NGOOnly allows only NGO accounts
func NGOOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleNGO)
}
