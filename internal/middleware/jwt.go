package middleware

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ebulletin-go-api/internal/service"
	"github.com/noah-isme/ebulletin-go-api/internal/utils"
)

const (
	actorLocalsKey   = "actor"
	sessionLocalsKey = "token_session"
)

// JWTConfig configures JWTProtected.
type JWTConfig struct {
	Secret  string
	Revoker service.TokenRevoker
	Logger  zerolog.Logger
	// OnReject is called for every rejected token with a short reason.
	OnReject func(c *fiber.Ctx, reason string)
}

// JWTProtected returns a middleware that validates JWT bearer tokens and binds the
// resulting actor to the request.
func JWTProtected(cfg JWTConfig) fiber.Handler {
	logger := cfg.Logger.With().Str("component", "jwt_middleware").Logger()

	reject := func(c *fiber.Ctx, status int, reason, message string) error {
		if cfg.OnReject != nil {
			cfg.OnReject(c, reason)
		}
		return utils.SendError(c, status, message)
	}

	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return reject(c, fiber.StatusUnauthorized, "malformed_authorization", "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return reject(c, fiber.StatusUnauthorized, "empty_token", "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.Secret), nil
		})
		if err != nil || !token.Valid {
			return reject(c, fiber.StatusUnauthorized, "invalid_token", "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return reject(c, fiber.StatusUnauthorized, "invalid_claims", "invalid token claims")
		}

		actor := ActorFromClaims(claims)
		session := sessionFromClaims(claims)

		if cfg.Revoker != nil {
			revoked, err := cfg.Revoker.IsRevoked(c.UserContext(), session.TokenID, service.PrincipalKey(actor), session.IssuedAt)
			if err != nil {
				logger.Error().Err(err).Msg("token revocation check failed")
				return utils.SendError(c, fiber.StatusServiceUnavailable, "unable to verify token")
			}
			if revoked {
				return reject(c, fiber.StatusUnauthorized, "revoked_token", "token has been revoked")
			}
		}

		c.Locals(actorLocalsKey, actor)
		c.Locals(sessionLocalsKey, session)

		return c.Next()
	}
}

// ActorFromClaims builds the request actor from token claims. The role claim wins;
// without one a student_number claim marks a student and anything else an admin.
func ActorFromClaims(claims jwt.MapClaims) service.Actor {
	actor := service.Actor{
		Email:         claimString(claims, "email"),
		StudentNumber: claimString(claims, "student_number"),
		Position:      claimString(claims, "position"),
	}

	switch role := normalizeRole(claims["role"]); role {
	case string(service.ActorAdmin), string(service.ActorStudent), string(service.ActorSystem):
		actor.Kind = service.ActorKind(role)
	default:
		if actor.StudentNumber != "" {
			actor.Kind = service.ActorStudent
		} else {
			actor.Kind = service.ActorAdmin
		}
	}

	for _, key := range []string{"sub", "id", "admin_id", "student_id"} {
		if value, ok := claims[key]; ok {
			if id, err := normalizeUserID(value); err == nil {
				actor.ID = &id
				break
			}
		}
	}

	return actor
}

// ActorFromContext returns the actor bound by JWTProtected.
func ActorFromContext(c *fiber.Ctx) (service.Actor, bool) {
	actor, ok := c.Locals(actorLocalsKey).(service.Actor)
	return actor, ok
}

// SessionFromContext returns the token session bound by JWTProtected.
func SessionFromContext(c *fiber.Ctx) (service.TokenSession, bool) {
	session, ok := c.Locals(sessionLocalsKey).(service.TokenSession)
	return session, ok
}

func sessionFromClaims(claims jwt.MapClaims) service.TokenSession {
	session := service.TokenSession{TokenID: claimString(claims, "jti")}
	if issued, err := claims.GetIssuedAt(); err == nil && issued != nil {
		session.IssuedAt = issued.Time
	}
	if expires, err := claims.GetExpirationTime(); err == nil && expires != nil {
		session.ExpiresAt = expires.Time
	}
	if session.IssuedAt.IsZero() {
		session.IssuedAt = time.Unix(0, 0)
	}
	return session
}

func claimString(claims jwt.MapClaims, key string) string {
	if value, ok := claims[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToLower(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
	}
	return ""
}
