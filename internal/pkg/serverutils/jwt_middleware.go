package serverutils

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"ai-knowledgebase-be/internal/tenant"
)

// JwtMiddleware authenticates the request and establishes the tenant
// scope on the user context so services downstream can read it.
func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	namespace, _ := claims["namespace"].(string)
	userId, _ := claims["user_id"].(string)
	if namespace == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	ctx.Locals("user_id", userId)
	ctx.SetUserContext(tenant.NewContext(ctx.UserContext(), tenant.Context{
		Namespace: namespace,
		UserID:    userId,
	}))
	return ctx.Next()
}

// NamespaceMiddleware scopes unauthenticated routes (register, login)
// from the X-Namespace header.
func NamespaceMiddleware(ctx *fiber.Ctx) error {
	namespace := ctx.Get("X-Namespace")
	if namespace == "" {
		namespace = "default"
	}
	ctx.SetUserContext(tenant.NewContext(ctx.UserContext(), tenant.Context{
		Namespace: namespace,
	}))
	return ctx.Next()
}
