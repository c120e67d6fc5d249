package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/classmirror-api/internal/service"
	"github.com/noah-isme/classmirror-api/pkg/classroom"
)

func principalIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals("principal_id"); v != nil {
		if id, ok := v.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// statusFromError maps service and upstream errors to HTTP responses.
// Credential problems are the caller's to fix, upstream outages are not.
func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrAuthRequired):
		return fiber.StatusUnauthorized, "authentication required"
	case errors.Is(err, service.ErrReauthRequired):
		return fiber.StatusUnauthorized, "re-authentication required"
	case errors.Is(err, classroom.ErrRejected):
		return fiber.StatusForbidden, "upstream rejected the request"
	case errors.Is(err, service.ErrPrincipalNotFound),
		errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrTeacherNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, classroom.ErrUnavailable):
		return fiber.StatusBadGateway, "upstream service unavailable"
	case errors.Is(err, service.ErrCacheWrite):
		return fiber.StatusInternalServerError, "failed to persist cache"
	default:
		return fiber.StatusInternalServerError, "internal error"
	}
}
