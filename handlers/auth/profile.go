package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/utils/middleware"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	user, err := h.users.Get(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, user)
}
