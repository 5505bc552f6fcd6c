package api

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/playcraft/internal/auth"
)

// Authentication modes.
const (
	AuthJWT    = "jwt"
	AuthAPIKey = "api-key"
	AuthNone   = "none"
)

// UserHeader names the acting user in api-key and none modes.
const UserHeader = "X-User-ID"

// DevUserID is the user of unauthenticated requests in none mode.
const DevUserID = "dev"

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode     string
	APIKey   string
	Verifier *auth.Verifier
}

// NewAuthMiddleware resolves the caller and stores it in the request's user
// context. JWT mode trusts the token subject. API-key mode trusts the
// X-User-ID header once the key matches.
func NewAuthMiddleware(cfg AuthConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if isPublicPath(path) {
			return c.Next()
		}

		var user *auth.User
		if cfg.Mode == AuthNone {
			user = &auth.User{ID: headerOr(c, UserHeader, DevUserID)}
		} else {
			authHeader := c.Get(fiber.HeaderAuthorization)
			if authHeader == "" {
				return problemResponse(c, fiber.StatusUnauthorized,
					"missing_auth", "Unauthorized",
					"Authorization header is required")
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return problemResponse(c, fiber.StatusUnauthorized,
					"invalid_auth_scheme", "Unauthorized",
					"Authorization header must use Bearer scheme")
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			switch cfg.Mode {
			case AuthAPIKey:
				if cfg.APIKey == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.APIKey)) != 1 {
					logger.Warn().
						Str("path", path).
						Str("method", c.Method()).
						Msg("unauthorized request: invalid API key")
					return problemResponse(c, fiber.StatusUnauthorized,
						"invalid_api_key", "Unauthorized",
						"Invalid API key")
				}
				user = &auth.User{ID: headerOr(c, UserHeader, "api")}
			default:
				if cfg.Verifier == nil {
					return problemResponse(c, fiber.StatusUnauthorized,
						"invalid_token", "Unauthorized",
						"Token verification is not configured")
				}
				u, err := cfg.Verifier.Verify(token)
				if err != nil {
					logger.Debug().Err(err).Str("path", path).Msg("unauthorized request: invalid token")
					return problemResponse(c, fiber.StatusUnauthorized,
						"invalid_token", "Unauthorized",
						"Invalid or expired token")
				}
				user = u
			}
		}

		c.Locals("user_id", user.ID)
		c.SetUserContext(auth.WithUser(c.UserContext(), user))
		return c.Next()
	}
}

func headerOr(c *fiber.Ctx, name, fallback string) string {
	if v := strings.TrimSpace(c.Get(name)); v != "" {
		return v
	}
	return fallback
}
