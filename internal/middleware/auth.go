// Package middleware provides authentication, logging, tracing and rate limiting for the HTTP API.
package middleware

import (
	"errors"
	"strings"

	"captionboard/internal/config"
	"captionboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Fiber locals written by the auth middleware.
const (
	LocalUserID = "userID"
	LocalEmail  = "email"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// Identity is the verified subject of a bearer token.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// ParseToken verifies an HS256 token minted by the identity provider. The
// subject must be a UUID; issuer and audience are checked when configured.
func ParseToken(tokenString string) (Identity, error) {
	if cfg == nil {
		return Identity{}, errors.New("auth middleware not initialized")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return Identity{}, errors.New("invalid or expired token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, errors.New("invalid token structure - missing subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil || userID == uuid.Nil {
		return Identity{}, errors.New("invalid user ID in token")
	}

	email, _ := claims["email"].(string)
	return Identity{UserID: userID, Email: email}, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", nil
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
}

func authenticate(c *fiber.Ctx, required bool) error {
	raw, err := bearerToken(c)
	if err != nil {
		return unauthorized(c, err.Error())
	}
	if raw == "" {
		if required {
			return unauthorized(c, "Authorization header required")
		}
		return c.Next()
	}

	identity, err := ParseToken(raw)
	if err != nil {
		return unauthorized(c, err.Error())
	}
	c.Locals(LocalUserID, identity.UserID)
	c.Locals(LocalEmail, identity.Email)
	return c.Next()
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(c *fiber.Ctx) error {
	return authenticate(c, true)
}

// OptionalAuth identifies the caller when a token is present. A malformed or
// expired token is still rejected.
func OptionalAuth(c *fiber.Ctx) error {
	return authenticate(c, false)
}

// UserID returns the authenticated identity, or nil for anonymous requests.
func UserID(c *fiber.Ctx) *uuid.UUID {
	if id, ok := c.Locals(LocalUserID).(uuid.UUID); ok {
		return &id
	}
	return nil
}

// Email returns the email claim of the authenticated identity.
func Email(c *fiber.Ctx) string {
	email, _ := c.Locals(LocalEmail).(string)
	return email
}
