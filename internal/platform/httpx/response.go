// Package httpx maps the typed business errors of ledgererr onto fiber JSON
// responses covering this service's nine error kinds.
package httpx

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shoreline-pay/ledgercore/internal/platform/ledgererr"
)

// responseError is the wire shape of every non-2xx body this service sends.
type responseError struct {
	Code    string `json:"code,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK writes a 200 with body as the JSON payload.
func OK(c *fiber.Ctx, body any) error {
	return c.Status(fiber.StatusOK).JSON(body)
}

// Created writes a 201 with body as the JSON payload.
func Created(c *fiber.Ctx, body any) error {
	return c.Status(fiber.StatusCreated).JSON(body)
}

// WithError maps err to the status code its typed kind implies and writes
// a responseError body. Any error that does not match one of ledgererr's
// typed kinds is treated as an unexpected internal fault.
func WithError(c *fiber.Ctx, err error) error {
	switch e := err.(type) {
	case ledgererr.ValidationError:
		return c.Status(fiber.StatusBadRequest).JSON(responseError{Code: e.Code, Title: e.Title, Message: e.Message})
	case ledgererr.ConflictError:
		return c.Status(fiber.StatusConflict).JSON(responseError{Code: e.Code, Title: e.Title, Message: e.Message})
	case ledgererr.PreconditionError:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(responseError{Code: e.Code, Title: e.Title, Message: e.Message})
	case ledgererr.NotFoundError:
		return c.Status(fiber.StatusNotFound).JSON(responseError{Code: e.Code, Title: e.Title, Message: e.Message})
	case ledgererr.UnauthorizedError:
		return c.Status(fiber.StatusUnauthorized).JSON(responseError{Code: e.Code, Title: e.Title, Message: e.Message})
	case ledgererr.TransientError:
		return c.Status(fiber.StatusServiceUnavailable).JSON(responseError{Code: e.Code, Message: e.Message})
	case ledgererr.ReplayError:
		return c.Status(fiber.StatusOK).JSON(responseError{Code: e.Code, Title: e.Title, Message: e.Message})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(responseError{Code: "LC0000", Title: "Internal Error", Message: err.Error()})
	}
}

// ValidationFailed builds the typed ValidationError httpx/WithError expects,
// for request-shape failures caught at the HTTP boundary before any
// use case is invoked (spec §7: "ValidationError ... returned before any
// I/O").
func ValidationFailed(entityType, message string) error {
	return ledgererr.Translate(ledgererr.ErrValidation, entityType, message)
}
