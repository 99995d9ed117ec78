package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultJWTIssuer   = "busline"
	DefaultJWTAudience = "busline-admin"
)

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// EnsureValidToken checks the bearer token is an HS256 JWT signed with the shared secret
func EnsureValidToken(config JWTConfig) (fiber.Handler, error) {
	if config.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if config.Issuer == "" {
		config.Issuer = DefaultJWTIssuer
	}
	if config.Audience == "" {
		config.Audience = DefaultJWTAudience
	}

	secret := []byte(config.Secret)

	jwtValidator, err := validator.New(
		func(ctx context.Context) (interface{}, error) {
			return secret, nil
		},
		validator.HS256,
		config.Issuer,
		[]string{config.Audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)

		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authorization header is required",
			})
		}

		jwtToken, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authorization header must be a bearer token",
			})
		}

		claimsI, jwtErr := jwtValidator.ValidateToken(c.UserContext(), jwtToken)
		if jwtErr != nil {
			log.Debug().Err(jwtErr).Msg("Rejected admin token")

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid auth token",
			})
		}

		claims := claimsI.(*validator.ValidatedClaims)
		c.Locals("admin_subject", claims.RegisteredClaims.Subject)

		return c.Next()
	}, nil
}
