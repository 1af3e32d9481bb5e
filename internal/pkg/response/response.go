package response

import (
	"errors"

	"foodlink/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Response is the envelope around every JSON body the API returns
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a 200 with data
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{Success: true, Message: message, Data: data})
}

// Created sends a 201 with the created resource
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Message: message, Data: data})
}

// Error sends a failed envelope with the given status
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{Success: false, Error: message})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

// StatusFor maps a domain error onto its HTTP status. Unknown errors are
// server errors.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoleForbidden), errors.Is(err, domain.ErrUserInactive):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrNotEditable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConcurrentUpdate),
		errors.Is(err, domain.ErrDuplicateEntry):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// FromError writes the envelope for err. Client errors carry the wrapped
// message; server errors are logged with the request line and answered
// with fallback so storage details stay internal.
func FromError(c *fiber.Ctx, log *zap.Logger, err error, fallback string) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Error(fallback,
			zap.Error(err),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()))
		return InternalServerError(c, fallback)
	}
	return Error(c, status, err.Error())
}
