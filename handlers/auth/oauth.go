package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// GoogleLogin handles GET /auth/google/login
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	return response.NotImplemented(c, "Google sign-in is not available yet")
}

// GoogleCallback handles GET /auth/google/callback
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	return response.NotImplemented(c, "Google sign-in is not available yet")
}
