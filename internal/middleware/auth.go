// Package middleware contains HTTP middleware for the match-play scoring API.
// Middleware sits between the HTTP server and route handlers: it runs on every request
// that passes through it, which makes it the right place for authentication and
// role checks.
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Roles understood by the API. Anyone signed in may post scores; only admins may
// register participants, correct handicaps, lock matches or rebuild.
const (
	RoleAdmin  = "admin"
	RolePlayer = "player"
)

// Claims is the payload we expect in a bearer token.
// Subject is the caller's identifier; Role is one of the constants above.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Auth returns a middleware that verifies the "Authorization: Bearer <token>" header
// against secret (HS256) and stores the caller's identity in c.Locals:
//
//	c.Locals("userID")   the token subject
//	c.Locals("userRole") the role claim, defaulting to RolePlayer
//
// Expired tokens and tokens signed with any other algorithm are rejected.
func Auth(secret []byte, log *logrus.Logger) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid authorization header",
			})
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims := &Claims{}
		if _, err := parser.ParseWithClaims(tokenStr, claims, keyFunc); err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			log.WithError(err).WithField("path", c.Path()).Debug("Rejected bearer token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
		}

		if claims.Subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "token missing subject",
			})
		}

		c.Locals("userID", claims.Subject)
		c.Locals("userRole", roleFromClaim(claims.Role))
		return c.Next()
	}
}

// roleFromClaim maps an unknown or empty role to the least privileged one.
func roleFromClaim(s string) string {
	if s == RoleAdmin {
		return RoleAdmin
	}
	return RolePlayer
}
