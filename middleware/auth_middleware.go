package middleware

import (
	config "github.com/kevinmwangi/nyumbani/configs"
	"github.com/kevinmwangi/nyumbani/models"
	"github.com/kevinmwangi/nyumbani/services"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

func Protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(config.Config("JWT_SECRET")),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Locals("user").(*jwt.Token)
		claims := token.Claims.(jwt.MapClaims)
		role, _ := claims["role"].(string)

		if role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Admin access required",
			})
		}
		return c.Next()
	}
}

// CallerFromContext builds the explicit caller identity that gets threaded
// through every service call.
func CallerFromContext(c *fiber.Ctx) (services.Caller, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return services.Caller{}, fiber.NewError(fiber.StatusUnauthorized, "missing authentication")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return services.Caller{}, fiber.NewError(fiber.StatusUnauthorized, "malformed token claims")
	}

	idStr, _ := claims["user_id"].(string)
	callerID, err := uuid.Parse(idStr)
	if err != nil {
		return services.Caller{}, fiber.NewError(fiber.StatusUnauthorized, "malformed user id in token")
	}
	role, _ := claims["role"].(string)

	return services.Caller{ID: callerID, Role: role}, nil
}
