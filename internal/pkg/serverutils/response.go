package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ai-knowledgebase-be/internal/storage"
)

type WebResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func SuccessResponse(message string, data any) WebResponse {
	return WebResponse{Message: message, Data: data}
}

// ErrorHandlerMiddleware translates storage-layer sentinel errors into
// HTTP statuses. Anything unrecognized is a 500 with a generic body so
// internals never leak.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(WebResponse{Message: fiberErr.Message})
		}

		status := fiber.StatusInternalServerError
		message := "internal server error"
		switch {
		case errors.Is(err, storage.ErrMalformedID), errors.Is(err, storage.ErrValidation):
			status, message = fiber.StatusBadRequest, err.Error()
		case errors.Is(err, storage.ErrNotFound):
			status, message = fiber.StatusNotFound, err.Error()
		case errors.Is(err, storage.ErrConstraint):
			status, message = fiber.StatusConflict, err.Error()
		case errors.Is(err, storage.ErrTenantScope):
			status, message = fiber.StatusUnauthorized, err.Error()
		case errors.Is(err, storage.ErrTimeout):
			status, message = fiber.StatusGatewayTimeout, err.Error()
		case errors.Is(err, storage.ErrUnavailable):
			status, message = fiber.StatusServiceUnavailable, err.Error()
		}
		return ctx.Status(status).JSON(WebResponse{Message: message})
	}
}
