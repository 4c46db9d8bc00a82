package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/ebulletin-go-api/internal/utils"
)

// AccessPolicy builds authorization guards. OnDenied, when set, observes every
// rejected request.
type AccessPolicy struct {
	OnDenied func(c *fiber.Ctx, reason string)
}

// RequireRole ensures that the authenticated actor has one of the allowed kinds.
func RequireRole(roles ...string) fiber.Handler {
	return AccessPolicy{}.RequireRole(roles...)
}

// RequirePosition ensures that the authenticated actor is an admin holding one of the positions.
func RequirePosition(positions ...string) fiber.Handler {
	return AccessPolicy{}.RequirePosition(positions...)
}

// RequireRole ensures that the authenticated actor has one of the allowed kinds.
func (p AccessPolicy) RequireRole(roles ...string) fiber.Handler {
	allowed := normalizedSet(roles)

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if _, ok := allowed[string(actor.Kind)]; !ok {
			return p.deny(c, "role_not_allowed")
		}
		return c.Next()
	}
}

// RequirePosition ensures that the authenticated actor is an admin holding one of the positions.
func (p AccessPolicy) RequirePosition(positions ...string) fiber.Handler {
	allowed := normalizedSet(positions)

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if !actor.IsAdmin() {
			return p.deny(c, "position_not_allowed")
		}
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(actor.Position))]; !ok {
			return p.deny(c, "position_not_allowed")
		}
		return c.Next()
	}
}

func (p AccessPolicy) deny(c *fiber.Ctx, reason string) error {
	if p.OnDenied != nil {
		p.OnDenied(c, reason)
	}
	return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
}

func normalizedSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}
