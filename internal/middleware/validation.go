package middleware

import (
	"strconv"

	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/dto"
	"wiki-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the validation middleware.
const (
	LocalGenerateRequest = "validated_generate_request"
	LocalLimit           = "validated_limit"
	LocalOffset          = "validated_offset"
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware(validator *validation.Validator) *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validator,
	}
}

// ValidateGenerateRequest parses the JSON body of POST /api/generate
func (vm *ValidationMiddleware) ValidateGenerateRequest() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req dto.GenerateRequest
		if err := c.BodyParser(&req); err != nil {
			return domain.NewInvalidInputError("Invalid request body")
		}

		normalized, errs := vm.validator.ValidateArticleURL(req.URL)
		if len(errs) > 0 {
			return errs // This will be handled by ErrorHandler middleware
		}
		req.URL = normalized

		c.Locals(LocalGenerateRequest, req)
		return c.Next()
	}
}

// ValidateHistoryParams validates limit and offset query parameters
func (vm *ValidationMiddleware) ValidateHistoryParams() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := parseIntQuery(c, "limit", validation.DefaultLimit)
		if err != nil {
			return err
		}
		offset, err := parseIntQuery(c, "offset", 0)
		if err != nil {
			return err
		}

		if errs := vm.validator.ValidatePage(limit, offset); len(errs) > 0 {
			return errs
		}

		c.Locals(LocalLimit, limit)
		c.Locals(LocalOffset, offset)
		return c.Next()
	}
}

func parseIntQuery(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ValidationErrors{domain.NewInvalidFormatError(name, raw)}
	}
	return n, nil
}
