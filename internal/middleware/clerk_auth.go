package middleware

import (
	"strings"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gofiber/fiber/v3"

	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

// TokenVerifier checks a session token and returns its subject
type TokenVerifier func(c fiber.Ctx, token string) (string, error)

// ClerkVerifier verifies tokens with the Clerk SDK using secretKey
func ClerkVerifier(secretKey string) TokenVerifier {
	clerk.SetKey(secretKey)
	return func(c fiber.Ctx, token string) (string, error) {
		claims, err := jwt.Verify(c.Context(), &jwt.VerifyParams{Token: token})
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	}
}

// ClerkAuth middleware validates Clerk JWT tokens
func ClerkAuth(secretKey string) fiber.Handler {
	return BearerAuth(ClerkVerifier(secretKey))
}

// BearerAuth rejects requests without a valid bearer token and stores the
// token subject in the user_id local.
func BearerAuth(verify TokenVerifier) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.NewUnauthorizedError("Missing authorization token")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			return utils.NewUnauthorizedError("Invalid authorization header format")
		}

		subject, err := verify(c, token)
		if err != nil {
			log := logger.FromContext(c.Context())
			log.Warn().Err(err).Msg("token verification failed")
			return utils.NewUnauthorizedError("Invalid or expired token")
		}

		c.Locals("user_id", subject)
		return c.Next()
	}
}
