package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stoir-api/internal/application/dto"
	"github.com/jhoicas/stoir-api/internal/domain"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// El orden importa: un error de restricción envuelve ErrDuplicate y ErrConflict a la vez.
var errorMappings = []errorMapping{
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrInvalidSnapshot, fiber.StatusBadRequest, "INVALID_SNAPSHOT"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrNestedTransaction, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrUnsupported, fiber.StatusNotImplemented, "UNSUPPORTED"},
}

// writeError traduce errores de dominio a la respuesta HTTP. Message lleva el error completo
// para que el cliente vea qué artículo o documento falló.
func writeError(c *fiber.Ctx, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: message})
}
