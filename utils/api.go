package utils

import (
	"strconv"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// MakeHTTPHandleFunc binds store to a handler and maps its error onto the standard response
func MakeHTTPHandleFunc(handler func(c *fiber.Ctx, store database.Storage) error, store database.Storage) func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if err := handler(c, store); err != nil {
			return response.FromError(c, err)
		}
		return nil
	}
}

// ParamID parses a positive numeric route parameter
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("request", name, "id", name+" must be a positive integer")
	}
	return uint(id), nil
}

// QueryUint parses an optional numeric query parameter; absent means 0
func QueryUint(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation("request", name, "uint", name+" must be a non-negative integer")
	}
	return uint(v), nil
}

// ParseBody decodes the JSON body into dst
func ParseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		if v, ok := apperr.AsValidation(err); ok {
			return v
		}
		return apperr.Validation("request", "body", "json", "Invalid request body")
	}
	return nil
}
