package middleware

import (
	"slices"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// RequireRole lets a request through only when the role Auth stored on it is one of
// roles. With no roles given it admits administrators only. Denials are answered with 403
// and name the roles that would have been accepted.
//
//	admin := middleware.RequireRole(log, middleware.RoleAdmin)
func RequireRole(log *logrus.Logger, roles ...string) fiber.Handler {
	if len(roles) == 0 {
		roles = []string{RoleAdmin}
	}

	return func(c *fiber.Ctx) error {
		userRole, _ := c.Locals("userRole").(string)
		if slices.Contains(roles, userRole) {
			return c.Next()
		}

		log.WithFields(logrus.Fields{
			"user_id": c.Locals("userID"),
			"role":    userRole,
			"method":  c.Method(),
			"path":    c.Path(),
		}).Warn("Rejected request without the required role")

		msg := "insufficient permissions"
		if userRole == "" {
			msg = "request carries no role"
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":          msg,
			"required_roles": roles,
		})
	}
}
